package geoarrow

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/bitutil"
)

// ArrayReader visits the features of any readable GeoArrow array: serialized
// WKT and WKB columns go through their parsers, native columns through the
// array view.
type ArrayReader struct {
	view *ArrayView
	wkt  *WKTReader
	wkb  *WKBReader
}

// NewArrayReader creates a reader for arrays of type t.
func NewArrayReader(t Type) (*ArrayReader, error) {
	switch t {
	case TypeWKBLarge, TypeWKTLarge:
		return nil, fmt.Errorf("%w: large-offset storage is not supported by the array reader",
			ErrUnsupportedType)
	}

	view, err := NewArrayView(t)
	if err != nil {
		return nil, err
	}

	r := &ArrayReader{view: view}
	switch t {
	case TypeWKT:
		r.wkt = NewWKTReader()
	case TypeWKB:
		r.wkb = NewWKBReader()
	}
	return r, nil
}

// NewArrayReaderFromField creates a reader for arrays of the type declared
// by an Arrow field carrying a geoarrow extension.
func NewArrayReaderFromField(field arrow.Field) (*ArrayReader, error) {
	view, err := SchemaViewFromField(field)
	if err != nil {
		return nil, err
	}
	return NewArrayReader(view.Type)
}

// SetArray points the reader at array data. The data must outlive the
// reader's use of it.
func (r *ArrayReader) SetArray(data arrow.ArrayData) error {
	return r.view.SetArray(data)
}

// ArrayView returns the underlying array view (only available for native
// types).
func (r *ArrayReader) ArrayView() (*ArrayView, error) {
	switch r.view.SchemaView().Type {
	case TypeWKB, TypeWKT:
		return nil, fmt.Errorf("%w: no array view for serialized type %s",
			ErrUnsupportedType, r.view.SchemaView().Type)
	}
	return r.view, nil
}

// itemBytes returns the serialized blob of feature i (physical index).
func (r *ArrayReader) itemBytes(phys int64) []byte {
	lo := r.view.offsets[0][phys]
	hi := r.view.offsets[0][phys+1]
	return r.view.data[lo:hi]
}

func (r *ArrayReader) visitSerialized(offset, length int64, v Visitor) error {
	a := r.view
	for i := offset; i < offset+length; i++ {
		phys := a.offset[0] + i
		if a.validity != nil && !bitutil.BitIsSet(a.validity, int(phys)) {
			if err := v.FeatStart(); err != nil {
				return err
			}
			if err := v.NullFeat(); err != nil {
				return err
			}
			if err := v.FeatEnd(); err != nil {
				return err
			}
			continue
		}

		var err error
		switch {
		case r.wkt != nil:
			err = r.wkt.Visit(string(r.itemBytes(phys)), v)
		case r.wkb != nil:
			err = r.wkb.Visit(r.itemBytes(phys), v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Visit drives v with the event stream of length features starting at
// offset (relative to the array's logical window).
func (r *ArrayReader) Visit(offset, length int64, v Visitor) error {
	switch r.view.SchemaView().Type {
	case TypeWKT, TypeWKB:
		return r.visitSerialized(offset, length, v)
	default:
		return r.view.Visit(offset, length, v)
	}
}
