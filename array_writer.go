package geoarrow

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// ArrayWriter builds an array of any writable GeoArrow type from a visitor
// event stream, dispatching to the WKT writer, the WKB writer, or the native
// writer.
type ArrayWriter struct {
	typ    Type
	wkt    *WKTWriter
	wkb    *WKBWriter
	native *NativeWriter
}

// NewArrayWriter creates a writer producing arrays of type t.
func NewArrayWriter(mem memory.Allocator, t Type) (*ArrayWriter, error) {
	w := &ArrayWriter{typ: t}

	switch t {
	case TypeWKTLarge, TypeWKBLarge:
		return nil, fmt.Errorf("%w: large-offset storage is not supported by the array writer",
			ErrUnsupportedType)
	case TypeWKT:
		w.wkt = NewWKTWriter(mem)
	case TypeWKB:
		w.wkb = NewWKBWriter(mem)
	default:
		native, err := NewNativeWriter(mem, t)
		if err != nil {
			return nil, err
		}
		w.native = native
	}

	return w, nil
}

// NewArrayWriterFromField creates a writer producing arrays of the type
// declared by an Arrow field carrying a geoarrow extension.
func NewArrayWriterFromField(mem memory.Allocator, field arrow.Field) (*ArrayWriter, error) {
	view, err := SchemaViewFromField(field)
	if err != nil {
		return nil, err
	}
	return NewArrayWriter(mem, view.Type)
}

// SetPrecision sets the number of significant digits written by a WKT
// writer. Setting it on any other writer is an error.
func (w *ArrayWriter) SetPrecision(precision int) error {
	if w.wkt == nil {
		return fmt.Errorf("%w: precision applies to WKT writers only", ErrInvalid)
	}
	w.wkt.Precision = precision
	return nil
}

// SetFlatMultipoint selects the flat MULTIPOINT (x y, x y) form for a WKT
// writer. Setting it on any other writer is an error.
func (w *ArrayWriter) SetFlatMultipoint(flat bool) error {
	if w.wkt == nil {
		return fmt.Errorf("%w: flat multipoint applies to WKT writers only", ErrInvalid)
	}
	w.wkt.FlatMultipoint = flat
	return nil
}

// Visitor returns the visitor that feeds this writer.
func (w *ArrayWriter) Visitor() Visitor {
	switch {
	case w.wkt != nil:
		return w.wkt
	case w.wkb != nil:
		return w.wkb
	default:
		return w.native
	}
}

// Finish returns the accumulated features as a finished array and resets the
// writer for the next batch.
func (w *ArrayWriter) Finish() (arrow.Array, error) {
	switch {
	case w.wkt != nil:
		return w.wkt.Finish()
	case w.wkb != nil:
		return w.wkb.Finish()
	default:
		return w.native.Finish()
	}
}
