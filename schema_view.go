package geoarrow

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

// SchemaView is a parsed view of the type information carried by an Arrow
// field: the geometry type triple, the extension name, and the parsed
// extension metadata.
type SchemaView struct {
	Type          Type
	ExtensionName string
	Metadata      Metadata
}

// GeometryType returns the geometry kind of the viewed type.
func (s SchemaView) GeometryType() GeometryType { return s.Type.GeometryType() }

// Dimensions returns the dimension combination of the viewed type.
func (s SchemaView) Dimensions() Dimensions { return s.Type.Dimensions() }

// CoordType returns the coordinate layout of the viewed type.
func (s SchemaView) CoordType() CoordType { return s.Type.CoordType() }

// SchemaViewFromType initializes a SchemaView from a Type. This never
// consults an external schema and is always accepted for valid types.
func SchemaViewFromType(t Type) (SchemaView, error) {
	if t == TypeUnset {
		return SchemaView{}, fmt.Errorf("%w: can't view uninitialized type", ErrInvalid)
	}
	return SchemaView{Type: t, ExtensionName: t.ExtensionName()}, nil
}

// dimensionsFromLetters maps a coordinate child-name sequence (e.g., "xyz")
// to its Dimensions, returning DimensionsUnknown for anything else.
func dimensionsFromLetters(letters string) Dimensions {
	switch letters {
	case "xy":
		return DimensionsXY
	case "xyz":
		return DimensionsXYZ
	case "xym":
		return DimensionsXYM
	case "xyzm":
		return DimensionsXYZM
	default:
		return DimensionsUnknown
	}
}

func parseCoordStorage(dt arrow.DataType) (Dimensions, CoordType, error) {
	switch dt := dt.(type) {
	case *arrow.StructType:
		letters := make([]byte, 0, 4)
		for _, f := range dt.Fields() {
			if len(f.Name) != 1 || !strings.ContainsAny(f.Name, "xyzm") {
				return 0, 0, fmt.Errorf("%w: expected coordinate child named one of x, y, z, or m but got %q",
					ErrInvalid, f.Name)
			}
			if f.Type.ID() != arrow.FLOAT64 {
				return 0, 0, fmt.Errorf("%w: expected coordinate child %q to have type double but got %s",
					ErrInvalid, f.Name, f.Type)
			}
			letters = append(letters, f.Name[0])
		}

		dims := dimensionsFromLetters(string(letters))
		if dims == DimensionsUnknown {
			return 0, 0, fmt.Errorf("%w: expected coordinate children named xy, xyz, xym, or xyzm but got %q",
				ErrInvalid, string(letters))
		}
		return dims, CoordTypeSeparate, nil

	case *arrow.FixedSizeListType:
		child := dt.ElemField()
		if child.Type.ID() != arrow.FLOAT64 {
			return 0, 0, fmt.Errorf("%w: expected interleaved coordinate child to have type double but got %s",
				ErrInvalid, child.Type)
		}

		if dims := dimensionsFromLetters(child.Name); dims != DimensionsUnknown {
			if int32(dims.Count()) != dt.Len() {
				return 0, 0, fmt.Errorf("%w: expected fixed-size list of size %d for dimensions %q but got %d",
					ErrInvalid, dims.Count(), child.Name, dt.Len())
			}
			return dims, CoordTypeInterleaved, nil
		}

		switch dt.Len() {
		case 2:
			return DimensionsXY, CoordTypeInterleaved, nil
		case 4:
			return DimensionsXYZM, CoordTypeInterleaved, nil
		default:
			return 0, 0, fmt.Errorf("%w: can't infer dimensions of fixed-size list of size %d with child named %q",
				ErrInvalid, dt.Len(), child.Name)
		}

	default:
		return 0, 0, fmt.Errorf("%w: expected coordinate storage of struct or fixed-size list but got %s",
			ErrInvalid, dt)
	}
}

func parseBoxStorage(dt arrow.DataType) (Dimensions, error) {
	st, ok := dt.(*arrow.StructType)
	if !ok {
		return 0, fmt.Errorf("%w: expected box storage of struct but got %s", ErrInvalid, dt)
	}

	n := st.NumFields()
	if n != 4 && n != 6 && n != 8 {
		return 0, fmt.Errorf("%w: expected box struct with 4, 6, or 8 children but got %d", ErrInvalid, n)
	}

	nDims := n / 2
	letters := make([]byte, 0, 4)
	for i := 0; i < n; i++ {
		f := st.Field(i)
		if f.Type.ID() != arrow.FLOAT64 {
			return 0, fmt.Errorf("%w: expected box child %q to have type double but got %s",
				ErrInvalid, f.Name, f.Type)
		}

		suffix := "min"
		if i >= nDims {
			suffix = "max"
		}
		if len(f.Name) != 4 || f.Name[1:] != suffix {
			return 0, fmt.Errorf("%w: expected box child %d to be named <dim>%s but got %q",
				ErrInvalid, i, suffix, f.Name)
		}

		if i < nDims {
			letters = append(letters, f.Name[0])
		} else if f.Name[0] != letters[i-nDims] {
			return 0, fmt.Errorf("%w: box child %q does not match min child %q",
				ErrInvalid, f.Name, string(letters[i-nDims])+"min")
		}
	}

	dims := dimensionsFromLetters(string(letters))
	if dims == DimensionsUnknown {
		return 0, fmt.Errorf("%w: expected box children named for dimensions xy, xyz, xym, or xyzm but got %q",
			ErrInvalid, string(letters))
	}
	return dims, nil
}

// unwrapList peels one variable-length list level, failing when the storage
// is not a list.
func unwrapList(dt arrow.DataType, extensionName string) (arrow.DataType, error) {
	lt, ok := dt.(*arrow.ListType)
	if !ok {
		return nil, fmt.Errorf("%w: expected list storage for extension %q but got %s",
			ErrInvalid, extensionName, dt)
	}
	return lt.Elem(), nil
}

// SchemaViewFromStorage validates that storage matches the layout declared by
// extensionName and parses metadata, populating a SchemaView.
func SchemaViewFromStorage(storage arrow.DataType, extensionName, metadata string) (SchemaView, error) {
	m, err := ParseMetadata(metadata)
	if err != nil {
		return SchemaView{}, err
	}

	out := SchemaView{ExtensionName: extensionName, Metadata: m}

	switch extensionName {
	case "geoarrow.wkb":
		switch storage.ID() {
		case arrow.BINARY:
			out.Type = TypeWKB
		case arrow.LARGE_BINARY:
			out.Type = TypeWKBLarge
		default:
			return SchemaView{}, fmt.Errorf("%w: expected binary or large binary storage for extension %q but got %s",
				ErrInvalid, extensionName, storage)
		}
		return out, nil

	case "geoarrow.wkt":
		switch storage.ID() {
		case arrow.STRING:
			out.Type = TypeWKT
		case arrow.LARGE_STRING:
			out.Type = TypeWKTLarge
		default:
			return SchemaView{}, fmt.Errorf("%w: expected string or large string storage for extension %q but got %s",
				ErrInvalid, extensionName, storage)
		}
		return out, nil

	case "geoarrow.box":
		dims, err := parseBoxStorage(storage)
		if err != nil {
			return SchemaView{}, err
		}
		out.Type = MakeType(GeometryTypeBox, dims, CoordTypeSeparate)
		return out, nil
	}

	var geometryType GeometryType
	var nLists int
	switch extensionName {
	case "geoarrow.point":
		geometryType, nLists = GeometryTypePoint, 0
	case "geoarrow.linestring":
		geometryType, nLists = GeometryTypeLinestring, 1
	case "geoarrow.multipoint":
		geometryType, nLists = GeometryTypeMultiPoint, 1
	case "geoarrow.polygon":
		geometryType, nLists = GeometryTypePolygon, 2
	case "geoarrow.multilinestring":
		geometryType, nLists = GeometryTypeMultiLinestring, 2
	case "geoarrow.multipolygon":
		geometryType, nLists = GeometryTypeMultiPolygon, 3
	default:
		return SchemaView{}, fmt.Errorf("%w: unrecognized extension name %q", ErrInvalid, extensionName)
	}

	for i := 0; i < nLists; i++ {
		if storage, err = unwrapList(storage, extensionName); err != nil {
			return SchemaView{}, err
		}
	}

	dims, coordType, err := parseCoordStorage(storage)
	if err != nil {
		return SchemaView{}, err
	}

	out.Type = MakeType(geometryType, dims, coordType)
	if out.Type == TypeUnset {
		return SchemaView{}, fmt.Errorf("%w: no type for extension %q with dimensions %s",
			ErrInvalid, extensionName, dims)
	}
	return out, nil
}

// SchemaViewFromField derives a SchemaView from an Arrow field carrying
// either a registered geoarrow extension type or the
// ARROW:extension:name/metadata key-value pair.
func SchemaViewFromField(field arrow.Field) (SchemaView, error) {
	if ext, ok := field.Type.(*ExtensionType); ok {
		return SchemaView{
			Type:          ext.Type(),
			ExtensionName: ext.ExtensionName(),
			Metadata:      ext.Meta(),
		}, nil
	}

	name, ok := field.Metadata.GetValue("ARROW:extension:name")
	if !ok {
		return SchemaView{}, fmt.Errorf("%w: field %q has no extension name", ErrInvalid, field.Name)
	}

	metadata, _ := field.Metadata.GetValue("ARROW:extension:metadata")
	return SchemaViewFromStorage(field.Type, name, metadata)
}
