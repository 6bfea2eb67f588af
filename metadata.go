package geoarrow

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// Metadata is a parsed view of GeoArrow extension metadata.
//
// Crs holds the value exactly as it appeared in the serialized JSON: a string
// CRS keeps its outer quotes and escapes, a PROJJSON object is kept verbatim.
// Use UnescapeCrs to obtain a displayable form.
type Metadata struct {
	Edges   EdgeType
	CrsType CrsType
	Crs     string
}

// jsonScanner walks a JSON document permissively: it consumes only the
// top-level keys it recognizes and skips balanced objects, lists, and quoted
// strings (tolerating escaped quotes) everywhere else.
type jsonScanner struct {
	data string
	pos  int
}

func (s *jsonScanner) remaining() string { return s.data[s.pos:] }

func (s *jsonScanner) peek() byte {
	if s.pos < len(s.data) {
		return s.data[s.pos]
	}
	return 0
}

func (s *jsonScanner) skipWhitespace() {
	for s.pos < len(s.data) {
		switch s.data[s.pos] {
		case ' ', '\t', '\n', '\r':
			s.pos++
		default:
			return
		}
	}
}

func (s *jsonScanner) skipUntil(items string) bool {
	for s.pos < len(s.data) {
		if strings.IndexByte(items, s.data[s.pos]) >= 0 {
			return true
		}
		s.pos++
	}
	return false
}

func (s *jsonScanner) expectChar(c byte) error {
	if s.pos < len(s.data) && s.data[s.pos] == c {
		s.pos++
		return nil
	}
	return fmt.Errorf("%w: expected '%c' at byte %d", ErrInvalid, c, s.pos)
}

// findString consumes a quoted string and returns it with quotes and escapes
// intact.
func (s *jsonScanner) findString() (string, error) {
	start := s.pos
	if s.peek() != '"' {
		return "", fmt.Errorf("%w: expected string at byte %d", ErrInvalid, s.pos)
	}
	s.pos++

	escaped := false
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		s.pos++
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = true
		case '"':
			return s.data[start:s.pos], nil
		}
	}

	return "", fmt.Errorf("%w: unterminated string starting at byte %d", ErrInvalid, start)
}

func (s *jsonScanner) findNull() (string, error) {
	if strings.HasPrefix(s.remaining(), "null") {
		s.pos += 4
		return "null", nil
	}
	return "", fmt.Errorf("%w: expected null at byte %d", ErrInvalid, s.pos)
}

// findBalanced consumes a balanced {...} or [...] value and returns it
// verbatim.
func (s *jsonScanner) findBalanced(open, close byte) (string, error) {
	start := s.pos
	if s.peek() != open {
		return "", fmt.Errorf("%w: expected '%c' at byte %d", ErrInvalid, open, s.pos)
	}
	s.pos++

	for s.pos < len(s.data) {
		if !s.skipUntil(`{["]}`) {
			break
		}
		var err error
		switch s.data[s.pos] {
		case '"':
			_, err = s.findString()
		case '{':
			_, err = s.findBalanced('{', '}')
		case '[':
			_, err = s.findBalanced('[', ']')
		case close:
			s.pos++
			return s.data[start:s.pos], nil
		default:
			// mismatched closing bracket; let the enclosing level fail
			s.pos++
		}
		if err != nil {
			return "", err
		}
	}

	return "", fmt.Errorf("%w: unterminated '%c' starting at byte %d", ErrInvalid, open, start)
}

func (s *jsonScanner) findValue() (string, error) {
	switch s.peek() {
	case '"':
		return s.findString()
	case '{':
		return s.findBalanced('{', '}')
	case '[':
		return s.findBalanced('[', ']')
	case 'n':
		return s.findNull()
	default:
		// e.g., a number or boolean
		return "", fmt.Errorf("%w: unsupported JSON value at byte %d", ErrInvalid, s.pos)
	}
}

func (m *Metadata) parseJSON(s *jsonScanner) error {
	if err := s.expectChar('{'); err != nil {
		return err
	}
	s.skipWhitespace()

	for s.pos < len(s.data) && s.peek() != '}' {
		s.skipWhitespace()
		key, err := s.findString()
		if err != nil {
			return err
		}
		s.skipWhitespace()
		if err := s.expectChar(':'); err != nil {
			return err
		}
		s.skipWhitespace()
		value, err := s.findValue()
		if err != nil {
			return err
		}

		switch key {
		case `"edges"`:
			switch value {
			case `"planar"`, "null":
				m.Edges = EdgesPlanar
			case `"spherical"`:
				m.Edges = EdgesSpherical
			case `"vincenty"`:
				m.Edges = EdgesVincenty
			case `"thomas"`:
				m.Edges = EdgesThomas
			case `"andoyer"`:
				m.Edges = EdgesAndoyer
			case `"karney"`:
				m.Edges = EdgesKarney
			default:
				return fmt.Errorf("%w: unsupported edges value %s", ErrInvalid, value)
			}
		case `"crs"`:
			switch value[0] {
			case '{', '"':
				m.Crs = value
				if m.CrsType == CrsNone {
					m.CrsType = CrsUnknown
				}
			case 'n':
				// A null explicitly un-sets the CRS
				m.CrsType = CrsNone
				m.Crs = ""
			default:
				return fmt.Errorf("%w: unsupported crs value %s", ErrInvalid, value)
			}
		case `"crs_type"`:
			if value[0] != '"' {
				return fmt.Errorf("%w: crs_type must be a string but got %s", ErrInvalid, value)
			}
			switch value {
			case `"projjson"`:
				m.CrsType = CrsProjJSON
			case `"wkt2:2019"`:
				m.CrsType = CrsWKT2_2019
			case `"authority_code"`:
				m.CrsType = CrsAuthorityCode
			case `"srid"`:
				m.CrsType = CrsSRID
			default:
				// Accept unrecognized string values but ignore them
				m.CrsType = CrsUnknown
			}
		}

		s.skipUntil(",}")
		if s.peek() == ',' {
			s.pos++
		}
	}

	return s.expectChar('}')
}

// ParseMetadata parses serialized GeoArrow extension metadata. An empty
// string is valid and yields the default Metadata (planar edges, no CRS).
func ParseMetadata(metadata string) (Metadata, error) {
	m := Metadata{Edges: EdgesPlanar, CrsType: CrsNone}
	if metadata == "" {
		return m, nil
	}

	s := &jsonScanner{data: metadata}
	s.skipWhitespace()
	if err := m.parseJSON(s); err != nil {
		return Metadata{}, fmt.Errorf("expected valid GeoArrow JSON metadata but got %q: %w", metadata, err)
	}

	s.skipWhitespace()
	if s.pos != len(metadata) {
		return Metadata{}, fmt.Errorf("%w: expected JSON object with no trailing characters but found trailing %q",
			ErrInvalid, s.remaining())
	}

	// It is possible that crs_type was set but crs was not; canonicalize to
	// no CRS at all.
	if m.Crs == "" {
		m.CrsType = CrsNone
	}

	return m, nil
}

// crsNeedsEscape reports whether the stored CRS must be wrapped in quotes on
// output (i.e., it is not already a JSON object or quoted string).
func crsNeedsEscape(crs string) bool {
	return crs == "" || (crs[0] != '{' && crs[0] != '"')
}

// String serializes m to the minimal JSON object: keys whose value is the
// default (planar edges, no CRS) are omitted.
func (m Metadata) String() string {
	var b strings.Builder
	b.WriteByte('{')

	nKeys := 0
	if m.Edges != EdgesPlanar {
		fmt.Fprintf(&b, `"edges":%q`, m.Edges.String())
		nKeys++
	}

	if m.CrsType != CrsNone && m.CrsType != CrsUnknown {
		if nKeys > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, `"crs_type":%q`, m.CrsType.String())
		nKeys++
	}

	if m.CrsType != CrsNone {
		if nKeys > 0 {
			b.WriteByte(',')
		}
		b.WriteString(`"crs":`)
		if crsNeedsEscape(m.Crs) {
			quoted, _ := json.Marshal(m.Crs)
			b.Write(quoted)
		} else {
			b.WriteString(m.Crs)
		}
	}

	b.WriteByte('}')
	return b.String()
}

// UnescapeCrs converts a stored CRS value to a displayable form: quoted
// strings lose their outer quotes and backslash escapes; anything else is
// returned as-is.
func UnescapeCrs(crs string) string {
	if crs == "" || crs[0] != '"' {
		return crs
	}

	var out string
	if err := json.Unmarshal([]byte(crs), &out); err == nil {
		return out
	}

	// Not valid JSON; fall back to stripping escapes by hand.
	var b strings.Builder
	escaped := false
	for i := 1; i < len(crs)-1; i++ {
		if !escaped && crs[i] == '\\' {
			escaped = true
			continue
		}
		escaped = false
		b.WriteByte(crs[i])
	}
	return b.String()
}

// ProjJSONID is the identifier of a PROJJSON coordinate reference system.
type ProjJSONID struct {
	Authority string `json:"authority"`
	Code      any    `json:"code"`
}

// CrsID extracts the authority/code identifier from a PROJJSON CRS, if the
// stored CRS is a PROJJSON object carrying one.
func (m Metadata) CrsID() (ProjJSONID, bool) {
	if m.Crs == "" || m.Crs[0] != '{' {
		return ProjJSONID{}, false
	}

	var doc struct {
		ID *ProjJSONID `json:"id"`
	}
	if err := json.Unmarshal([]byte(m.Crs), &doc); err != nil || doc.ID == nil {
		return ProjJSONID{}, false
	}
	return *doc.ID, true
}

// SetLonLat sets the CRS to the canonical PROJJSON representation of
// longitude/latitude on the WGS84 ellipsoid (OGC:CRS84).
func (m *Metadata) SetLonLat() {
	m.Crs = crsWgs84
	m.CrsType = CrsProjJSON
}

const crsWgs84 = `{"type":"GeographicCRS","name":"WGS 84 (CRS84)","datum_ensemble":{"name":"World Geodetic System 1984 ensemble","members":[{"name":"World Geodetic System 1984 (Transit)","id":{"authority":"EPSG","code":1166}},{"name":"World Geodetic System 1984 (G730)","id":{"authority":"EPSG","code":1152}},{"name":"World Geodetic System 1984 (G873)","id":{"authority":"EPSG","code":1153}},{"name":"World Geodetic System 1984 (G1150)","id":{"authority":"EPSG","code":1154}},{"name":"World Geodetic System 1984 (G1674)","id":{"authority":"EPSG","code":1155}},{"name":"World Geodetic System 1984 (G1762)","id":{"authority":"EPSG","code":1156}},{"name":"World Geodetic System 1984 (G2139)","id":{"authority":"EPSG","code":1309}}],"ellipsoid":{"name":"WGS 84","semi_major_axis":6378137,"inverse_flattening":298.257223563},"accuracy":"2.0","id":{"authority":"EPSG","code":6326}},"coordinate_system":{"subtype":"ellipsoidal","axis":[{"name":"Geodetic longitude","abbreviation":"Lon","direction":"east","unit":"degree"},{"name":"Geodetic latitude","abbreviation":"Lat","direction":"north","unit":"degree"}]},"scope":"Not known.","area":"World.","bbox":{"south_latitude":-90,"west_longitude":-180,"north_latitude":90,"east_longitude":180},"id":{"authority":"OGC","code":"CRS84"}}`
