package geoarrow

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/bitutil"
)

// ArrayView is a parsed, non-owning view of a GeoArrow-encoded array: the
// validity bitmap, the offsets and logical window of each nesting level, and
// a stride-aware view of the coordinate leaf (or the raw data buffer for
// serialized types). The viewed array must outlive the view.
type ArrayView struct {
	schemaView SchemaView

	// logical offset and length at each nesting level (0 = root)
	offset [4]int64
	length [4]int64

	validity []byte
	offsets  [3][]int32
	data     []byte
	coords   CoordView
}

// NewArrayView creates a view for arrays of type t. Call SetArray before
// visiting.
func NewArrayView(t Type) (*ArrayView, error) {
	view, err := SchemaViewFromType(t)
	if err != nil {
		return nil, err
	}
	return &ArrayView{schemaView: view}, nil
}

// NewArrayViewFromField creates a view for arrays of the type declared by an
// Arrow field carrying a geoarrow extension.
func NewArrayViewFromField(field arrow.Field) (*ArrayView, error) {
	view, err := SchemaViewFromField(field)
	if err != nil {
		return nil, err
	}
	return &ArrayView{schemaView: view}, nil
}

// SchemaView returns the type information of the viewed array.
func (a *ArrayView) SchemaView() SchemaView { return a.schemaView }

// Coords returns the coordinate view of the currently set array.
func (a *ArrayView) Coords() CoordView { return a.coords }

func (a *ArrayView) nOffsets() int {
	switch a.schemaView.Type {
	case TypeWKB, TypeWKT:
		return 1
	}
	n := a.schemaView.GeometryType().NumOffsets()
	if n < 0 {
		n = 0
	}
	return n
}

func bufferBytes(data arrow.ArrayData, i int) []byte {
	bufs := data.Buffers()
	if i >= len(bufs) || bufs[i] == nil {
		return nil
	}
	return bufs[i].Bytes()
}

// setCoords points the coordinate view at the coordinate container data,
// which holds nCoords coordinates after applying its own offset.
func (a *ArrayView) setCoords(data arrow.ArrayData, nCoords int64) error {
	nValues := a.schemaView.Dimensions().Count()
	if a.schemaView.GeometryType() == GeometryTypeBox {
		nValues *= 2
	}

	values := make([][]float64, nValues)

	switch a.schemaView.CoordType() {
	case CoordTypeSeparate:
		if len(data.Children()) != nValues {
			return fmt.Errorf("%w: expected %d children for coordinate struct array but got %d",
				ErrInvalid, nValues, len(data.Children()))
		}

		for j, child := range data.Children() {
			if len(child.Buffers()) != 2 {
				return fmt.Errorf("%w: expected 2 buffers for coordinate child %d but got %d",
					ErrInvalid, j, len(child.Buffers()))
			}
			doubles := arrow.Float64Traits.CastFromBytes(bufferBytes(child, 1))
			values[j] = doubles[child.Offset():]
		}
		a.coords = NewCoordView(values, int(nCoords), 1)

	case CoordTypeInterleaved:
		if len(data.Children()) != 1 {
			return fmt.Errorf("%w: expected 1 child for interleaved coordinate array but got %d",
				ErrInvalid, len(data.Children()))
		}

		child := data.Children()[0]
		if len(child.Buffers()) != 2 {
			return fmt.Errorf("%w: expected 2 buffers for interleaved coordinate child but got %d",
				ErrInvalid, len(child.Buffers()))
		}
		doubles := arrow.Float64Traits.CastFromBytes(bufferBytes(child, 1))
		for j := 0; j < nValues; j++ {
			values[j] = doubles[child.Offset()+j:]
		}
		a.coords = NewCoordView(values, int(nCoords), nValues)

	default:
		return fmt.Errorf("%w: unexpected coordinate type in ArrayView", ErrInvalid)
	}

	return nil
}

func (a *ArrayView) setArrayLevel(data arrow.ArrayData, level int) error {
	a.offset[level] = int64(data.Offset())
	a.length[level] = int64(data.Len())

	if level == a.nOffsets() {
		// coordinate leaf
		var nCoords int64
		if level == 0 {
			nCoords = int64(data.Len())
		} else if a.length[level-1] > 0 {
			offsets := a.offsets[level-1]
			lo := offsets[a.offset[level-1]]
			hi := offsets[a.offset[level-1]+a.length[level-1]]
			nCoords = int64(hi - lo)
		}
		return a.setCoords(data, nCoords)
	}

	if len(data.Buffers()) != 2 {
		return fmt.Errorf("%w: expected 2 buffers for list array at level %d but got %d",
			ErrInvalid, level, len(data.Buffers()))
	}
	if len(data.Children()) != 1 {
		return fmt.Errorf("%w: expected 1 child for list array at level %d but got %d",
			ErrInvalid, level, len(data.Children()))
	}

	a.offsets[level] = arrow.Int32Traits.CastFromBytes(bufferBytes(data, 1))

	// Offsets within the logical window must be readable and non-decreasing
	// for reads to be in bounds.
	if data.Len() > 0 {
		if data.Offset()+data.Len()+1 > len(a.offsets[level]) {
			return fmt.Errorf("%w: offset buffer at level %d has %d elements but requires %d",
				ErrInvalid, level, len(a.offsets[level]), data.Offset()+data.Len()+1)
		}
		window := a.offsets[level][data.Offset() : data.Offset()+data.Len()+1]
		for i := 1; i < len(window); i++ {
			if window[i] < window[i-1] {
				return fmt.Errorf("%w: offset buffer at level %d decreases at element %d",
					ErrInvalid, level, i)
			}
		}
	}

	return a.setArrayLevel(data.Children()[0], level+1)
}

// SetArray points the view at array data, validating that buffer and child
// counts match the type and that list offsets within the logical window are
// readable.
func (a *ArrayView) SetArray(data arrow.ArrayData) error {
	storageID := a.schemaView.Type.Storage().ID()
	if id := data.DataType().ID(); id != storageID && id != arrow.EXTENSION {
		return fmt.Errorf("%w: expected storage of type %s for %s array but got %s",
			ErrInvalid, a.schemaView.Type.Storage(), a.schemaView.Type, data.DataType())
	}

	switch a.schemaView.Type {
	case TypeWKB, TypeWKT:
		a.offset[0] = int64(data.Offset())
		a.length[0] = int64(data.Len())
		a.offsets[0] = arrow.Int32Traits.CastFromBytes(bufferBytes(data, 1))
		a.data = bufferBytes(data, 2)
	default:
		if a.schemaView.GeometryType() == GeometryTypeBox {
			a.offset[0] = int64(data.Offset())
			a.length[0] = int64(data.Len())
			if err := a.setCoords(data, int64(data.Len())); err != nil {
				return err
			}
		} else if err := a.setArrayLevel(data, 0); err != nil {
			return err
		}
	}

	a.validity = bufferBytes(data, 0)
	return nil
}

func (a *ArrayView) isValid(i int64) bool {
	return a.validity == nil || bitutil.BitIsSet(a.validity, int(a.offset[0]+i))
}

// visitFeature wraps one feature's geometry events in FeatStart/FeatEnd,
// emitting NullFeat for null features.
func (a *ArrayView) visitFeature(i int64, v Visitor, geom func() error) error {
	if err := v.FeatStart(); err != nil {
		return err
	}
	if a.isValid(i) {
		if err := geom(); err != nil {
			return err
		}
	} else if err := v.NullFeat(); err != nil {
		return err
	}
	return v.FeatEnd()
}

// childSlice resolves the list element at physical index phys of the given
// level into its child window: the physical start in the child and the
// element count.
func (a *ArrayView) childSlice(level int, phys int64) (childPhys, length int64) {
	lo := a.offsets[level][phys]
	hi := a.offsets[level][phys+1]
	return int64(lo) + a.offset[level+1], int64(hi - lo)
}

func (a *ArrayView) visitPoint(offset, length int64, v Visitor) error {
	dims := a.schemaView.Dimensions()
	for i := offset; i < offset+length; i++ {
		i := i
		err := a.visitFeature(i, v, func() error {
			if err := v.GeomStart(GeometryTypePoint, dims); err != nil {
				return err
			}
			if err := v.Coords(a.coords.slice(int(a.offset[0]+i), 1)); err != nil {
				return err
			}
			return v.GeomEnd()
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *ArrayView) visitLinestring(offset, length int64, v Visitor) error {
	dims := a.schemaView.Dimensions()
	for i := offset; i < offset+length; i++ {
		i := i
		err := a.visitFeature(i, v, func() error {
			if err := v.GeomStart(GeometryTypeLinestring, dims); err != nil {
				return err
			}
			coordOffset, nCoords := a.childSlice(0, a.offset[0]+i)
			if err := v.Coords(a.coords.slice(int(coordOffset), int(nCoords))); err != nil {
				return err
			}
			return v.GeomEnd()
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *ArrayView) visitPolygon(offset, length int64, v Visitor) error {
	dims := a.schemaView.Dimensions()
	for i := offset; i < offset+length; i++ {
		i := i
		err := a.visitFeature(i, v, func() error {
			if err := v.GeomStart(GeometryTypePolygon, dims); err != nil {
				return err
			}
			ringOffset, nRings := a.childSlice(0, a.offset[0]+i)
			for j := int64(0); j < nRings; j++ {
				if err := v.RingStart(); err != nil {
					return err
				}
				coordOffset, nCoords := a.childSlice(1, ringOffset+j)
				if err := v.Coords(a.coords.slice(int(coordOffset), int(nCoords))); err != nil {
					return err
				}
				if err := v.RingEnd(); err != nil {
					return err
				}
			}
			return v.GeomEnd()
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *ArrayView) visitMultipoint(offset, length int64, v Visitor) error {
	dims := a.schemaView.Dimensions()
	for i := offset; i < offset+length; i++ {
		i := i
		err := a.visitFeature(i, v, func() error {
			if err := v.GeomStart(GeometryTypeMultiPoint, dims); err != nil {
				return err
			}
			coordOffset, nCoords := a.childSlice(0, a.offset[0]+i)
			for j := int64(0); j < nCoords; j++ {
				if err := v.GeomStart(GeometryTypePoint, dims); err != nil {
					return err
				}
				if err := v.Coords(a.coords.slice(int(coordOffset+j), 1)); err != nil {
					return err
				}
				if err := v.GeomEnd(); err != nil {
					return err
				}
			}
			return v.GeomEnd()
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *ArrayView) visitMultilinestring(offset, length int64, v Visitor) error {
	dims := a.schemaView.Dimensions()
	for i := offset; i < offset+length; i++ {
		i := i
		err := a.visitFeature(i, v, func() error {
			if err := v.GeomStart(GeometryTypeMultiLinestring, dims); err != nil {
				return err
			}
			lsOffset, nLinestrings := a.childSlice(0, a.offset[0]+i)
			for j := int64(0); j < nLinestrings; j++ {
				if err := v.GeomStart(GeometryTypeLinestring, dims); err != nil {
					return err
				}
				coordOffset, nCoords := a.childSlice(1, lsOffset+j)
				if err := v.Coords(a.coords.slice(int(coordOffset), int(nCoords))); err != nil {
					return err
				}
				if err := v.GeomEnd(); err != nil {
					return err
				}
			}
			return v.GeomEnd()
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *ArrayView) visitMultipolygon(offset, length int64, v Visitor) error {
	dims := a.schemaView.Dimensions()
	for i := offset; i < offset+length; i++ {
		i := i
		err := a.visitFeature(i, v, func() error {
			if err := v.GeomStart(GeometryTypeMultiPolygon, dims); err != nil {
				return err
			}
			polyOffset, nPolygons := a.childSlice(0, a.offset[0]+i)
			for j := int64(0); j < nPolygons; j++ {
				if err := v.GeomStart(GeometryTypePolygon, dims); err != nil {
					return err
				}
				ringOffset, nRings := a.childSlice(1, polyOffset+j)
				for k := int64(0); k < nRings; k++ {
					if err := v.RingStart(); err != nil {
						return err
					}
					coordOffset, nCoords := a.childSlice(2, ringOffset+k)
					if err := v.Coords(a.coords.slice(int(coordOffset), int(nCoords))); err != nil {
						return err
					}
					if err := v.RingEnd(); err != nil {
						return err
					}
				}
				if err := v.GeomEnd(); err != nil {
					return err
				}
			}
			return v.GeomEnd()
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// visitBox visits an XY box feature as a closed five-point polygon ring, or
// an empty polygon when any dimension's min exceeds its max.
func (a *ArrayView) visitBox(offset, length int64, v Visitor) error {
	if a.schemaView.Dimensions() != DimensionsXY {
		return fmt.Errorf("%w: can't visit box with non-XY dimensions", ErrUnsupportedType)
	}

	nDim := 2
	var x, y [5]float64
	values := [][]float64{x[:], y[:]}

	// index into the box children for each polygon corner
	mapX := [5]int{0, nDim, nDim, 0, 0}
	mapY := [5]int{1, 1, nDim + 1, nDim + 1, 1}

	for i := offset; i < offset+length; i++ {
		i := i
		err := a.visitFeature(i, v, func() error {
			raw := int(a.offset[0] + i)
			empty := false
			for d := 0; d < nDim; d++ {
				if a.coords.Value(raw, d) > a.coords.Value(raw, nDim+d) {
					empty = true
				}
			}

			if err := v.GeomStart(GeometryTypePolygon, DimensionsXY); err != nil {
				return err
			}

			if !empty {
				for c := 0; c < 5; c++ {
					x[c] = a.coords.Value(raw, mapX[c])
					y[c] = a.coords.Value(raw, mapY[c])
				}
				if err := v.RingStart(); err != nil {
					return err
				}
				if err := v.Coords(NewCoordView(values, 5, 1)); err != nil {
					return err
				}
				if err := v.RingEnd(); err != nil {
					return err
				}
			}

			return v.GeomEnd()
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Visit drives v with the event stream of length features starting at
// offset (relative to the array's logical window).
func (a *ArrayView) Visit(offset, length int64, v Visitor) error {
	switch a.schemaView.GeometryType() {
	case GeometryTypeBox:
		return a.visitBox(offset, length, v)
	case GeometryTypePoint:
		return a.visitPoint(offset, length, v)
	case GeometryTypeLinestring:
		return a.visitLinestring(offset, length, v)
	case GeometryTypePolygon:
		return a.visitPolygon(offset, length, v)
	case GeometryTypeMultiPoint:
		return a.visitMultipoint(offset, length, v)
	case GeometryTypeMultiLinestring:
		return a.visitMultilinestring(offset, length, v)
	case GeometryTypeMultiPolygon:
		return a.visitMultipolygon(offset, length, v)
	default:
		return fmt.Errorf("%w: can't visit %s array natively", ErrUnsupportedType,
			a.schemaView.Type)
	}
}
