package geoarrow

// GeometryType identifies one of the geometry kinds supported by GeoArrow.
// The values are intentionally chosen to be equivalent to well-known binary
// type identifiers.
type GeometryType int32

const (
	GeometryTypeGeometry           GeometryType = 0
	GeometryTypePoint              GeometryType = 1
	GeometryTypeLinestring         GeometryType = 2
	GeometryTypePolygon            GeometryType = 3
	GeometryTypeMultiPoint         GeometryType = 4
	GeometryTypeMultiLinestring    GeometryType = 5
	GeometryTypeMultiPolygon       GeometryType = 6
	GeometryTypeGeometryCollection GeometryType = 7
	GeometryTypeBox                GeometryType = 990
)

// String returns the WKT keyword for the geometry type ("" if there is none).
func (t GeometryType) String() string {
	switch t {
	case GeometryTypePoint:
		return "POINT"
	case GeometryTypeLinestring:
		return "LINESTRING"
	case GeometryTypePolygon:
		return "POLYGON"
	case GeometryTypeMultiPoint:
		return "MULTIPOINT"
	case GeometryTypeMultiLinestring:
		return "MULTILINESTRING"
	case GeometryTypeMultiPolygon:
		return "MULTIPOLYGON"
	case GeometryTypeGeometryCollection:
		return "GEOMETRYCOLLECTION"
	default:
		return ""
	}
}

// NumOffsets returns the number of offset buffers required for the native
// encoding of this geometry type (-1 if it has no native encoding).
func (t GeometryType) NumOffsets() int {
	switch t {
	case GeometryTypePoint, GeometryTypeBox:
		return 0
	case GeometryTypeLinestring, GeometryTypeMultiPoint:
		return 1
	case GeometryTypePolygon, GeometryTypeMultiLinestring:
		return 2
	case GeometryTypeMultiPolygon:
		return 3
	default:
		return -1
	}
}

// Dimensions identifies a dimension combination supported by GeoArrow.
type Dimensions int32

const (
	DimensionsUnknown Dimensions = 0
	DimensionsXY      Dimensions = 1
	DimensionsXYZ     Dimensions = 2
	DimensionsXYM     Dimensions = 3
	DimensionsXYZM    Dimensions = 4
)

// String returns the lowercase dimension letters ("xy", "xyz", "xym", "xyzm").
func (d Dimensions) String() string {
	switch d {
	case DimensionsXY:
		return "xy"
	case DimensionsXYZ:
		return "xyz"
	case DimensionsXYM:
		return "xym"
	case DimensionsXYZM:
		return "xyzm"
	default:
		return ""
	}
}

// Count returns the number of ordinates per coordinate (-1 if unknown).
func (d Dimensions) Count() int {
	switch d {
	case DimensionsXY:
		return 2
	case DimensionsXYZ, DimensionsXYM:
		return 3
	case DimensionsXYZM:
		return 4
	default:
		return -1
	}
}

// HasZ reports whether the combination includes a Z ordinate.
func (d Dimensions) HasZ() bool { return d == DimensionsXYZ || d == DimensionsXYZM }

// HasM reports whether the combination includes an M ordinate.
func (d Dimensions) HasM() bool { return d == DimensionsXYM || d == DimensionsXYZM }

// CoordType identifies the coordinate buffer layout of a native array.
type CoordType int32

const (
	CoordTypeUnknown     CoordType = 0
	CoordTypeSeparate    CoordType = 1
	CoordTypeInterleaved CoordType = 2
)

// EdgeType identifies the interpretation of an edge between two vertices.
type EdgeType int32

const (
	EdgesPlanar EdgeType = iota
	EdgesSpherical
	EdgesVincenty
	EdgesThomas
	EdgesAndoyer
	EdgesKarney
)

// String returns the metadata value for the edge type.
func (e EdgeType) String() string {
	switch e {
	case EdgesPlanar:
		return "planar"
	case EdgesSpherical:
		return "spherical"
	case EdgesVincenty:
		return "vincenty"
	case EdgesThomas:
		return "thomas"
	case EdgesAndoyer:
		return "andoyer"
	case EdgesKarney:
		return "karney"
	default:
		return ""
	}
}

// CrsType identifies the interpretation of the crs metadata value.
type CrsType int32

const (
	CrsNone CrsType = iota
	CrsUnknown
	CrsProjJSON
	CrsWKT2_2019
	CrsAuthorityCode
	CrsSRID
)

// String returns the metadata value for the crs type ("" for none/unknown,
// which are never written).
func (c CrsType) String() string {
	switch c {
	case CrsProjJSON:
		return "projjson"
	case CrsWKT2_2019:
		return "wkt2:2019"
	case CrsAuthorityCode:
		return "authority_code"
	case CrsSRID:
		return "srid"
	default:
		return ""
	}
}

// Type identifies a unique memory layout supported by this package. It covers
// both the serialized representations and the GeoArrow-native representations;
// native type identifiers decompose into (GeometryType, Dimensions, CoordType).
//
// The values support efficient decomposition but are not guaranteed to be
// stable across releases: the stable identity of a layout is the triple plus
// the extension name.
type Type int32

const (
	TypeUnset Type = 0

	TypeWKB      Type = 100001
	TypeWKBLarge Type = 100002
	TypeWKT      Type = 100003
	TypeWKTLarge Type = 100004

	TypeBox   Type = 990
	TypeBoxZ  Type = 1990
	TypeBoxM  Type = 2990
	TypeBoxZM Type = 3990

	TypePoint           Type = 1
	TypeLinestring      Type = 2
	TypePolygon         Type = 3
	TypeMultiPoint      Type = 4
	TypeMultiLinestring Type = 5
	TypeMultiPolygon    Type = 6

	TypePointZ           Type = 1001
	TypeLinestringZ      Type = 1002
	TypePolygonZ         Type = 1003
	TypeMultiPointZ      Type = 1004
	TypeMultiLinestringZ Type = 1005
	TypeMultiPolygonZ    Type = 1006

	TypePointM           Type = 2001
	TypeLinestringM      Type = 2002
	TypePolygonM         Type = 2003
	TypeMultiPointM      Type = 2004
	TypeMultiLinestringM Type = 2005
	TypeMultiPolygonM    Type = 2006

	TypePointZM           Type = 3001
	TypeLinestringZM      Type = 3002
	TypePolygonZM         Type = 3003
	TypeMultiPointZM      Type = 3004
	TypeMultiLinestringZM Type = 3005
	TypeMultiPolygonZM    Type = 3006

	TypeInterleavedPoint           Type = 10001
	TypeInterleavedLinestring      Type = 10002
	TypeInterleavedPolygon         Type = 10003
	TypeInterleavedMultiPoint      Type = 10004
	TypeInterleavedMultiLinestring Type = 10005
	TypeInterleavedMultiPolygon    Type = 10006

	TypeInterleavedPointZ           Type = 11001
	TypeInterleavedLinestringZ      Type = 11002
	TypeInterleavedPolygonZ         Type = 11003
	TypeInterleavedMultiPointZ      Type = 11004
	TypeInterleavedMultiLinestringZ Type = 11005
	TypeInterleavedMultiPolygonZ    Type = 11006

	TypeInterleavedPointM           Type = 12001
	TypeInterleavedLinestringM      Type = 12002
	TypeInterleavedPolygonM         Type = 12003
	TypeInterleavedMultiPointM      Type = 12004
	TypeInterleavedMultiLinestringM Type = 12005
	TypeInterleavedMultiPolygonM    Type = 12006

	TypeInterleavedPointZM           Type = 13001
	TypeInterleavedLinestringZM      Type = 13002
	TypeInterleavedPolygonZM         Type = 13003
	TypeInterleavedMultiPointZM      Type = 13004
	TypeInterleavedMultiLinestringZM Type = 13005
	TypeInterleavedMultiPolygonZM    Type = 13006
)

const interleavedTypeOffset = 10000

// MakeType returns the Type for a (geometry, dimensions, layout) combination,
// or TypeUnset if the combination has no native encoding (for example a box
// with interleaved coordinates or any geometry collection).
func MakeType(geometryType GeometryType, dimensions Dimensions, coordType CoordType) Type {
	switch dimensions {
	case DimensionsXY, DimensionsXYZ, DimensionsXYM, DimensionsXYZM:
	default:
		return TypeUnset
	}

	dimOffset := Type(dimensions-1) * 1000

	switch geometryType {
	case GeometryTypePoint, GeometryTypeLinestring, GeometryTypePolygon,
		GeometryTypeMultiPoint, GeometryTypeMultiLinestring, GeometryTypeMultiPolygon:
		switch coordType {
		case CoordTypeSeparate:
			return Type(geometryType) + dimOffset
		case CoordTypeInterleaved:
			return interleavedTypeOffset + Type(geometryType) + dimOffset
		default:
			return TypeUnset
		}
	case GeometryTypeBox:
		if coordType != CoordTypeSeparate {
			return TypeUnset
		}
		return TypeBox + dimOffset
	default:
		return TypeUnset
	}
}

// GeometryType returns the geometry kind encoded in t (GeometryTypeGeometry
// for serialized types, which can store any kind).
func (t Type) GeometryType() GeometryType {
	switch t {
	case TypeWKB, TypeWKBLarge, TypeWKT, TypeWKTLarge, TypeUnset:
		return GeometryTypeGeometry
	}

	code := int32(t)
	if code >= interleavedTypeOffset {
		code -= interleavedTypeOffset
	}
	code %= 1000
	switch {
	case code >= 1 && code <= 6:
		return GeometryType(code)
	case code == 990:
		return GeometryTypeBox
	default:
		return GeometryTypeGeometry
	}
}

// Dimensions returns the dimension combination encoded in t
// (DimensionsUnknown for serialized types).
func (t Type) Dimensions() Dimensions {
	switch t {
	case TypeWKB, TypeWKBLarge, TypeWKT, TypeWKTLarge, TypeUnset:
		return DimensionsUnknown
	}

	code := int32(t)
	if code >= interleavedTypeOffset {
		code -= interleavedTypeOffset
	}
	if code < 0 || code >= 4000 {
		return DimensionsUnknown
	}
	return Dimensions(code/1000) + 1
}

// CoordType returns the coordinate layout encoded in t (CoordTypeUnknown for
// serialized types).
func (t Type) CoordType() CoordType {
	switch t {
	case TypeWKB, TypeWKBLarge, TypeWKT, TypeWKTLarge, TypeUnset:
		return CoordTypeUnknown
	}

	if int32(t) >= interleavedTypeOffset {
		return CoordTypeInterleaved
	}
	return CoordTypeSeparate
}

// ExtensionName returns the Arrow extension name for t ("" if t has none).
func (t Type) ExtensionName() string {
	switch t {
	case TypeWKB, TypeWKBLarge:
		return "geoarrow.wkb"
	case TypeWKT, TypeWKTLarge:
		return "geoarrow.wkt"
	}

	switch t.GeometryType() {
	case GeometryTypePoint:
		return "geoarrow.point"
	case GeometryTypeLinestring:
		return "geoarrow.linestring"
	case GeometryTypePolygon:
		return "geoarrow.polygon"
	case GeometryTypeMultiPoint:
		return "geoarrow.multipoint"
	case GeometryTypeMultiLinestring:
		return "geoarrow.multilinestring"
	case GeometryTypeMultiPolygon:
		return "geoarrow.multipolygon"
	case GeometryTypeBox:
		return "geoarrow.box"
	default:
		return ""
	}
}

// String returns a compact human-readable representation of t, e.g.
// "interleaved_point_z" or "wkb".
func (t Type) String() string {
	switch t {
	case TypeUnset:
		return "unset"
	case TypeWKB:
		return "wkb"
	case TypeWKBLarge:
		return "large_wkb"
	case TypeWKT:
		return "wkt"
	case TypeWKTLarge:
		return "large_wkt"
	}

	var name string
	switch t.GeometryType() {
	case GeometryTypePoint:
		name = "point"
	case GeometryTypeLinestring:
		name = "linestring"
	case GeometryTypePolygon:
		name = "polygon"
	case GeometryTypeMultiPoint:
		name = "multipoint"
	case GeometryTypeMultiLinestring:
		name = "multilinestring"
	case GeometryTypeMultiPolygon:
		name = "multipolygon"
	case GeometryTypeBox:
		name = "box"
	default:
		return "unset"
	}

	switch t.Dimensions() {
	case DimensionsXYZ:
		name += "_z"
	case DimensionsXYM:
		name += "_m"
	case DimensionsXYZM:
		name += "_zm"
	}

	if t.CoordType() == CoordTypeInterleaved {
		name = "interleaved_" + name
	}

	return name
}

// dimensionMap fills dimMap such that destination ordinate i is sourced from
// source ordinate dimMap[i], or -1 when the source has no such ordinate.
func dimensionMap(src, dst Dimensions) [4]int {
	dimMap := [4]int{0, 1, -1, -1}

	switch dst {
	case DimensionsXYZ:
		switch src {
		case DimensionsXYZ, DimensionsXYZM:
			dimMap[2] = 2
		}
	case DimensionsXYM:
		switch src {
		case DimensionsXYM:
			dimMap[2] = 2
		case DimensionsXYZM:
			dimMap[2] = 3
		}
	case DimensionsXYZM:
		switch src {
		case DimensionsXYZ:
			dimMap[2] = 2
		case DimensionsXYM:
			dimMap[3] = 2
		case DimensionsXYZM:
			dimMap[2] = 2
			dimMap[3] = 3
		}
	}

	return dimMap
}
