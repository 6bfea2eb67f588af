package geoarrow

import (
	"fmt"
	"reflect"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// ExtensionType implements an Arrow extension type for any GeoArrow memory
// layout. Compatible with the GeoArrow specification, the DuckDB spatial
// extension, and GeoParquet.
type ExtensionType struct {
	arrow.ExtensionBase

	typ  Type
	meta Metadata
}

// NewExtensionType creates an extension type for t with default metadata
// (planar edges, no CRS).
func NewExtensionType(t Type) (*ExtensionType, error) {
	return NewExtensionTypeWithMetadata(t, Metadata{})
}

// NewExtensionTypeWithMetadata creates an extension type for t carrying the
// given edge type and CRS.
func NewExtensionTypeWithMetadata(t Type, m Metadata) (*ExtensionType, error) {
	storage := t.Storage()
	if storage == nil {
		return nil, fmt.Errorf("%w: type %s has no Arrow storage", ErrUnsupportedType, t)
	}

	return &ExtensionType{
		ExtensionBase: arrow.ExtensionBase{Storage: storage},
		typ:           t,
		meta:          m,
	}, nil
}

// Type returns the GeoArrow type identifier of the extension type.
func (g *ExtensionType) Type() Type { return g.typ }

// Meta returns the parsed extension metadata.
func (g *ExtensionType) Meta() Metadata { return g.meta }

// ExtensionName returns the Arrow extension type identifier
// (e.g., "geoarrow.point" or "geoarrow.wkb").
func (g *ExtensionType) ExtensionName() string { return g.typ.ExtensionName() }

// String returns a string representation of the type.
func (g *ExtensionType) String() string {
	return fmt.Sprintf("extension<%s>", g.ExtensionName())
}

// Serialize returns the minimal extension metadata JSON.
func (g *ExtensionType) Serialize() string { return g.meta.String() }

// Deserialize creates an extension type from a storage type and serialized
// metadata, validating that the storage matches this extension name.
func (g *ExtensionType) Deserialize(storageType arrow.DataType, data string) (arrow.ExtensionType, error) {
	view, err := SchemaViewFromStorage(storageType, g.ExtensionName(), data)
	if err != nil {
		return nil, err
	}

	return &ExtensionType{
		ExtensionBase: arrow.ExtensionBase{Storage: storageType},
		typ:           view.Type,
		meta:          view.Metadata,
	}, nil
}

// ExtensionEquals checks equality with another extension type.
func (g *ExtensionType) ExtensionEquals(other arrow.ExtensionType) bool {
	o, ok := other.(*ExtensionType)
	if !ok {
		return false
	}
	return g.typ == o.typ && g.meta == o.meta && arrow.TypeEqual(g.StorageType(), o.StorageType())
}

// ArrayType returns the Go type for arrays of this extension type.
func (g *ExtensionType) ArrayType() reflect.Type {
	return reflect.TypeOf(GeometryArray{})
}

// GeometryArray is an extension array of geometries. It wraps the underlying
// storage array and exposes the GeoArrow type information.
type GeometryArray struct {
	array.ExtensionArrayBase
}

// GeoArrowType returns the GeoArrow type identifier of the array.
func (a *GeometryArray) GeoArrowType() Type {
	return a.DataType().(*ExtensionType).Type()
}

// String returns a string representation of the array.
func (a *GeometryArray) String() string {
	return fmt.Sprintf("GeometryArray{type=%s, len=%d}", a.GeoArrowType(), a.Len())
}

var _ array.ExtensionArray = (*GeometryArray)(nil)

// NewField creates an Arrow field of the extension type for t, with the
// extension name and metadata set so the field round-trips through
// implementations that do not register extension types.
func NewField(name string, t Type, nullable bool, m Metadata) (arrow.Field, error) {
	ext, err := NewExtensionTypeWithMetadata(t, m)
	if err != nil {
		return arrow.Field{}, err
	}

	return arrow.Field{
		Name:     name,
		Type:     ext,
		Nullable: nullable,
		Metadata: arrow.MetadataFrom(map[string]string{
			"ARROW:extension:name":     ext.ExtensionName(),
			"ARROW:extension:metadata": ext.Serialize(),
		}),
	}, nil
}

// RegisterExtensionTypes registers one extension type per geoarrow extension
// name with the Arrow registry. It is called from init() and only needs to
// be called again after arrow.UnregisterExtensionType.
func RegisterExtensionTypes() {
	for _, t := range []Type{
		TypePoint,
		TypeLinestring,
		TypePolygon,
		TypeMultiPoint,
		TypeMultiLinestring,
		TypeMultiPolygon,
		TypeBox,
		TypeWKB,
		TypeWKT,
	} {
		ext, err := NewExtensionType(t)
		if err != nil {
			continue
		}
		_ = arrow.RegisterExtensionType(ext)
	}
}

func init() {
	RegisterExtensionTypes()
}
