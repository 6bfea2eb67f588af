package geoarrow

import (
	"fmt"
	"strconv"
	"strings"
)

// WKTReader parses well-known text character by character, driving a Visitor
// with the event stream of each parsed feature.
type WKTReader struct {
	coord [4]float64
}

// NewWKTReader creates a reader.
func NewWKTReader() *WKTReader {
	return &WKTReader{}
}

type wktSource struct {
	data string
	pos  int
}

func (s *wktSource) remaining() int { return len(s.data) - s.pos }

func (s *wktSource) peek() byte {
	if s.pos < len(s.data) {
		return s.data[s.pos]
	}
	return 0
}

func (s *wktSource) skipWhitespace() {
	for s.pos < len(s.data) {
		switch s.data[s.pos] {
		case ' ', '\t', '\n', '\r':
			s.pos++
		default:
			return
		}
	}
}

// peekUntilSep returns the run of bytes up to the next separator (whitespace,
// comma, or parenthesis), capped at maxChars.
func (s *wktSource) peekUntilSep(maxChars int) string {
	end := s.pos
	limit := s.pos + maxChars
	if limit > len(s.data) {
		limit = len(s.data)
	}
	for end < limit && !strings.ContainsRune(" \t\n\r,()", rune(s.data[end])) {
		end++
	}
	return s.data[s.pos:end]
}

func (s *wktSource) errExpected(expected string) error {
	return fmt.Errorf("%w: expected %s at byte %d", ErrInvalid, expected, s.pos)
}

func (s *wktSource) assertChar(c byte) error {
	if s.pos < len(s.data) && s.data[s.pos] == c {
		return nil
	}
	return s.errExpected("'" + string(c) + "'")
}

func (s *wktSource) assertWhitespace() error {
	switch s.peek() {
	case ' ', '\t', '\n', '\r':
		return nil
	default:
		return s.errExpected("whitespace")
	}
}

func (s *wktSource) readOrdinate() (float64, error) {
	word := s.peekUntilSep(s.remaining())
	value, err := strconv.ParseFloat(word, 64)
	if err != nil || word == "" {
		return 0, s.errExpected("number")
	}
	s.pos += len(word)
	return value, nil
}

// tryEmpty consumes the EMPTY keyword if present.
func (s *wktSource) tryEmpty() bool {
	if s.peekUntilSep(6) == "EMPTY" {
		s.pos += 5
		return true
	}
	return false
}

func (r *WKTReader) readCoordinate(s *wktSource, v Visitor, nDims int) error {
	var err error
	if r.coord[0], err = s.readOrdinate(); err != nil {
		return err
	}
	for i := 1; i < nDims; i++ {
		if err := s.assertWhitespace(); err != nil {
			return err
		}
		s.skipWhitespace()
		if r.coord[i], err = s.readOrdinate(); err != nil {
			return err
		}
	}

	values := [][]float64{r.coord[0:1], r.coord[1:2], r.coord[2:3], r.coord[3:4]}
	return v.Coords(NewCoordView(values[:nDims], 1, 1))
}

// readEmptyOrCoordinates reads either EMPTY or a parenthesized
// comma-separated coordinate sequence.
func (r *WKTReader) readEmptyOrCoordinates(s *wktSource, v Visitor, nDims int) error {
	s.skipWhitespace()
	if s.peek() == '(' {
		s.pos++
		s.skipWhitespace()

		// Read the first coordinate (there must always be one)
		if err := r.readCoordinate(s, v, nDims); err != nil {
			return err
		}
		s.skipWhitespace()

		for s.peek() != ')' {
			if err := s.assertChar(','); err != nil {
				return s.errExpected("',' or ')'")
			}
			s.pos++
			s.skipWhitespace()
			if err := r.readCoordinate(s, v, nDims); err != nil {
				return err
			}
			s.skipWhitespace()
		}

		s.pos++
		return nil
	}

	if s.tryEmpty() {
		return nil
	}

	return s.errExpected("'(' or 'EMPTY'")
}

func (r *WKTReader) readEmptyOrPointCoordinate(s *wktSource, v Visitor, nDims int) error {
	s.skipWhitespace()
	if s.peek() == '(' {
		s.pos++
		s.skipWhitespace()
		if err := r.readCoordinate(s, v, nDims); err != nil {
			return err
		}
		s.skipWhitespace()
		if err := s.assertChar(')'); err != nil {
			return err
		}
		s.pos++
		return nil
	}

	if s.tryEmpty() {
		return nil
	}

	return s.errExpected("'(' or 'EMPTY'")
}

// readMulti reads the body of a multi-geometry: either EMPTY or a
// parenthesized, comma-separated sequence of child bodies, each wrapped in
// its own GeomStart/GeomEnd pair.
func (r *WKTReader) readMulti(s *wktSource, v Visitor, child func() error) error {
	s.skipWhitespace()
	if s.peek() == '(' {
		s.pos++
		s.skipWhitespace()

		if err := child(); err != nil {
			return err
		}
		s.skipWhitespace()

		for s.peek() != ')' {
			if err := s.assertChar(','); err != nil {
				return s.errExpected("',' or ')'")
			}
			s.pos++
			s.skipWhitespace()
			if err := child(); err != nil {
				return err
			}
			s.skipWhitespace()
		}

		s.pos++
		return nil
	}

	if s.tryEmpty() {
		return nil
	}

	return s.errExpected("'(' or 'EMPTY'")
}

func (r *WKTReader) readPolygon(s *wktSource, v Visitor, nDims int) error {
	s.skipWhitespace()
	if s.peek() == '(' {
		s.pos++
		s.skipWhitespace()

		if err := v.RingStart(); err != nil {
			return err
		}
		if err := r.readEmptyOrCoordinates(s, v, nDims); err != nil {
			return err
		}
		if err := v.RingEnd(); err != nil {
			return err
		}
		s.skipWhitespace()

		for s.peek() != ')' {
			if err := s.assertChar(','); err != nil {
				return s.errExpected("',' or ')'")
			}
			s.pos++
			s.skipWhitespace()
			if err := v.RingStart(); err != nil {
				return err
			}
			if err := r.readEmptyOrCoordinates(s, v, nDims); err != nil {
				return err
			}
			if err := v.RingEnd(); err != nil {
				return err
			}
			s.skipWhitespace()
		}

		s.pos++
		return nil
	}

	if s.tryEmpty() {
		return nil
	}

	return s.errExpected("'(' or 'EMPTY'")
}

// readMultipointChild reads one multipoint element: "(x y)", "EMPTY", or the
// flat "x y" form. Flat and nested forms produce identical event sequences.
func (r *WKTReader) readMultipointChild(s *wktSource, v Visitor, dims Dimensions, nDims int) error {
	if err := v.GeomStart(GeometryTypePoint, dims); err != nil {
		return err
	}

	s.skipWhitespace()
	switch {
	case s.peek() == '(':
		s.pos++
		s.skipWhitespace()
		if err := r.readCoordinate(s, v, nDims); err != nil {
			return err
		}
		s.skipWhitespace()
		if err := s.assertChar(')'); err != nil {
			return err
		}
		s.pos++
	case s.tryEmpty():
	default:
		if err := r.readCoordinate(s, v, nDims); err != nil {
			return err
		}
	}

	return v.GeomEnd()
}

func (r *WKTReader) readTaggedGeometry(s *wktSource, v Visitor, level int) error {
	if level >= writerMaxLevel {
		return fmt.Errorf("%w: WKT reader exceeded maximum nesting", ErrRecursion)
	}

	s.skipWhitespace()

	word := s.peekUntilSep(19)
	var geometryType GeometryType
	switch word {
	case "POINT":
		geometryType = GeometryTypePoint
	case "LINESTRING":
		geometryType = GeometryTypeLinestring
	case "POLYGON":
		geometryType = GeometryTypePolygon
	case "MULTIPOINT":
		geometryType = GeometryTypeMultiPoint
	case "MULTILINESTRING":
		geometryType = GeometryTypeMultiLinestring
	case "MULTIPOLYGON":
		geometryType = GeometryTypeMultiPolygon
	case "GEOMETRYCOLLECTION":
		geometryType = GeometryTypeGeometryCollection
	default:
		return s.errExpected("geometry type")
	}
	s.pos += len(word)

	dimensions := DimensionsXY
	s.skipWhitespace()
	switch s.peekUntilSep(3) {
	case "Z":
		dimensions = DimensionsXYZ
		s.pos++
	case "M":
		dimensions = DimensionsXYM
		s.pos++
	case "ZM":
		dimensions = DimensionsXYZM
		s.pos += 2
	}
	nDims := dimensions.Count()

	if err := v.GeomStart(geometryType, dimensions); err != nil {
		return err
	}

	var err error
	switch geometryType {
	case GeometryTypePoint:
		err = r.readEmptyOrPointCoordinate(s, v, nDims)
	case GeometryTypeLinestring:
		err = r.readEmptyOrCoordinates(s, v, nDims)
	case GeometryTypePolygon:
		err = r.readPolygon(s, v, nDims)
	case GeometryTypeMultiPoint:
		err = r.readMulti(s, v, func() error {
			return r.readMultipointChild(s, v, dimensions, nDims)
		})
	case GeometryTypeMultiLinestring:
		err = r.readMulti(s, v, func() error {
			if err := v.GeomStart(GeometryTypeLinestring, dimensions); err != nil {
				return err
			}
			if err := r.readEmptyOrCoordinates(s, v, nDims); err != nil {
				return err
			}
			return v.GeomEnd()
		})
	case GeometryTypeMultiPolygon:
		err = r.readMulti(s, v, func() error {
			if err := v.GeomStart(GeometryTypePolygon, dimensions); err != nil {
				return err
			}
			if err := r.readPolygon(s, v, nDims); err != nil {
				return err
			}
			return v.GeomEnd()
		})
	case GeometryTypeGeometryCollection:
		err = r.readMulti(s, v, func() error {
			return r.readTaggedGeometry(s, v, level+1)
		})
	}
	if err != nil {
		return err
	}

	return v.GeomEnd()
}

// Visit parses one WKT geometry from src and drives v with its event stream
// (one full feature). Trailing non-whitespace bytes are an error.
func (r *WKTReader) Visit(src string, v Visitor) error {
	s := &wktSource{data: src}

	if err := v.FeatStart(); err != nil {
		return err
	}
	if err := r.readTaggedGeometry(s, v, 0); err != nil {
		return err
	}

	s.skipWhitespace()
	if s.remaining() > 0 {
		return fmt.Errorf("%w: %d bytes at byte %d", ErrTooManyBytes, s.remaining(), s.pos)
	}

	return v.FeatEnd()
}
