package geoarrow

import (
	"github.com/apache/arrow-go/v18/arrow"
)

func coordStorageSeparate(dims Dimensions) arrow.DataType {
	letters := dims.String()
	fields := make([]arrow.Field, len(letters))
	for i := range letters {
		fields[i] = arrow.Field{
			Name: string(letters[i]),
			Type: arrow.PrimitiveTypes.Float64,
		}
	}
	return arrow.StructOf(fields...)
}

func coordStorageInterleaved(dims Dimensions) arrow.DataType {
	return arrow.FixedSizeListOfField(int32(dims.Count()), arrow.Field{
		Name: dims.String(),
		Type: arrow.PrimitiveTypes.Float64,
	})
}

func boxStorage(dims Dimensions) arrow.DataType {
	letters := dims.String()
	fields := make([]arrow.Field, 0, 2*len(letters))
	for i := range letters {
		fields = append(fields, arrow.Field{
			Name: string(letters[i]) + "min",
			Type: arrow.PrimitiveTypes.Float64,
		})
	}
	for i := range letters {
		fields = append(fields, arrow.Field{
			Name: string(letters[i]) + "max",
			Type: arrow.PrimitiveTypes.Float64,
		})
	}
	return arrow.StructOf(fields...)
}

func listStorageOf(child arrow.DataType, childNames ...string) arrow.DataType {
	for i := len(childNames) - 1; i >= 0; i-- {
		child = arrow.ListOfField(arrow.Field{Name: childNames[i], Type: child})
	}
	return child
}

// Storage returns the Arrow storage type for t, or nil if t has no Arrow
// representation. All inner list and struct children are non-nullable.
func (t Type) Storage() arrow.DataType {
	switch t {
	case TypeWKB:
		return arrow.BinaryTypes.Binary
	case TypeWKBLarge:
		return arrow.BinaryTypes.LargeBinary
	case TypeWKT:
		return arrow.BinaryTypes.String
	case TypeWKTLarge:
		return arrow.BinaryTypes.LargeString
	}

	dims := t.Dimensions()
	var coord arrow.DataType
	switch t.CoordType() {
	case CoordTypeSeparate:
		coord = coordStorageSeparate(dims)
	case CoordTypeInterleaved:
		coord = coordStorageInterleaved(dims)
	default:
		return nil
	}

	switch t.GeometryType() {
	case GeometryTypeBox:
		return boxStorage(dims)
	case GeometryTypePoint:
		return coord
	case GeometryTypeLinestring:
		return listStorageOf(coord, "vertices")
	case GeometryTypeMultiPoint:
		return listStorageOf(coord, "points")
	case GeometryTypePolygon:
		return listStorageOf(coord, "rings", "vertices")
	case GeometryTypeMultiLinestring:
		return listStorageOf(coord, "linestrings", "vertices")
	case GeometryTypeMultiPolygon:
		return listStorageOf(coord, "polygons", "rings", "vertices")
	default:
		return nil
	}
}
