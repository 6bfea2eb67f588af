package geoarrow

import (
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Kernel is a generalized batched transformation over geometry arrays:
// Start computes the output type from the input type, PushBatch consumes one
// batch (returning the per-batch result for scalar kernels, nil for
// aggregate ones), Finish returns the aggregate result (nil for scalar
// kernels), and Release frees held resources.
type Kernel interface {
	Start(input SchemaView, options string) (arrow.DataType, error)
	PushBatch(data arrow.ArrayData) (arrow.Array, error)
	Finish() (arrow.Array, error)
	Release()
}

// NewKernel creates a named kernel: "void", "void_agg", "box", or
// "box_agg".
func NewKernel(mem memory.Allocator, name string) (Kernel, error) {
	switch name {
	case "void":
		return &voidKernel{}, nil
	case "void_agg":
		return &voidKernel{agg: true}, nil
	case "box":
		return &boxKernel{mem: mem}, nil
	case "box_agg":
		return &boxKernel{mem: mem, agg: true}, nil
	default:
		return nil, fmt.Errorf("%w: unknown kernel %q", ErrInvalid, name)
	}
}

// voidKernel maps any input batch to a length-matching null array; the
// aggregate variant returns a single null on Finish.
type voidKernel struct {
	agg bool
}

func (k *voidKernel) Start(SchemaView, string) (arrow.DataType, error) {
	return arrow.Null, nil
}

func (k *voidKernel) PushBatch(data arrow.ArrayData) (arrow.Array, error) {
	if k.agg {
		return nil, nil
	}
	return array.NewNull(data.Len()), nil
}

func (k *voidKernel) Finish() (arrow.Array, error) {
	if !k.agg {
		return nil, nil
	}
	return array.NewNull(1), nil
}

func (k *voidKernel) Release() {}

// boundsAccumulator reduces visitor coordinate callbacks to an XY bounding
// box. Z and M bounds are not computed.
type boundsAccumulator struct {
	min [2]float64
	max [2]float64
}

func (b *boundsAccumulator) reset() {
	b.min = [2]float64{math.Inf(1), math.Inf(1)}
	b.max = [2]float64{math.Inf(-1), math.Inf(-1)}
}

func (b *boundsAccumulator) Coords(coords CoordView) error {
	for i := 0; i < coords.NumCoords(); i++ {
		for d := 0; d < 2; d++ {
			value := coords.Value(i, d)
			if value < b.min[d] {
				b.min[d] = value
			}
			if value > b.max[d] {
				b.max[d] = value
			}
		}
	}
	return nil
}

// boxKernel computes per-feature XY bounds as a geoarrow.box storage array;
// the aggregate variant reduces every batch into one global box row.
type boxKernel struct {
	mem memory.Allocator
	agg bool

	reader   *ArrayReader
	builder  *Builder
	bounds   boundsAccumulator
	validity validityBitmap
	length   int64
	featNull bool
}

func (k *boxKernel) Start(input SchemaView, options string) (arrow.DataType, error) {
	reader, err := NewArrayReader(input.Type)
	if err != nil {
		return nil, err
	}
	k.reader = reader

	builder, err := NewBuilder(k.mem, TypeBox)
	if err != nil {
		return nil, err
	}
	k.builder = builder

	if k.agg {
		k.bounds.reset()
	}
	return TypeBox.Storage(), nil
}

// Visitor callbacks for the per-feature variant.

func (k *boxKernel) FeatStart() error {
	k.bounds.reset()
	k.featNull = false
	return nil
}

func (k *boxKernel) NullFeat() error {
	k.featNull = true
	return nil
}

func (k *boxKernel) GeomStart(GeometryType, Dimensions) error { return nil }
func (k *boxKernel) RingStart() error                         { return nil }
func (k *boxKernel) RingEnd() error                           { return nil }
func (k *boxKernel) GeomEnd() error                           { return nil }

func (k *boxKernel) Coords(coords CoordView) error {
	return k.bounds.Coords(coords)
}

func (k *boxKernel) FeatEnd() error {
	k.length++
	if k.featNull {
		appendBoxRow(k.builder, quietNaN, quietNaN, quietNaN, quietNaN)
		k.validity.ensureAllocated(k.length - 1)
		k.validity.appendBit(false)
		return nil
	}

	appendBoxRow(k.builder, k.bounds.min[0], k.bounds.min[1], k.bounds.max[0], k.bounds.max[1])
	if k.validity.allocated() {
		k.validity.appendBit(true)
	}
	return nil
}

// appendBoxRow appends one (xmin, ymin, xmax, ymax) row to a box builder.
// Box children are independent ordinates, not coordinates, so the
// dimension-mapping append does not apply.
func appendBoxRow(b *Builder, xmin, ymin, xmax, ymax float64) {
	row := [4]float64{xmin, ymin, xmax, ymax}
	for j := range row {
		b.coords[j] = append(b.coords[j], row[j])
	}
}

func (k *boxKernel) PushBatch(data arrow.ArrayData) (arrow.Array, error) {
	if err := k.reader.SetArray(data); err != nil {
		return nil, err
	}

	if k.agg {
		var agg aggBoundsVisitor
		agg.kernel = k
		if err := k.reader.Visit(0, int64(data.Len()), &agg); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if err := k.reader.Visit(0, int64(data.Len()), k); err != nil {
		return nil, err
	}

	if k.validity.allocated() {
		if err := k.builder.AppendBuffer(0, k.validity.bytes); err != nil {
			return nil, err
		}
	}
	k.validity.reset()
	k.length = 0
	return k.builder.Finish()
}

// aggBoundsVisitor feeds every coordinate of a batch into the kernel's
// global accumulator.
type aggBoundsVisitor struct {
	VisitorBase
	kernel *boxKernel
}

func (v *aggBoundsVisitor) Coords(coords CoordView) error {
	return v.kernel.bounds.Coords(coords)
}

func (k *boxKernel) Finish() (arrow.Array, error) {
	if !k.agg {
		return nil, nil
	}

	appendBoxRow(k.builder, k.bounds.min[0], k.bounds.min[1], k.bounds.max[0], k.bounds.max[1])
	return k.builder.Finish()
}

func (k *boxKernel) Release() {
	if k.builder != nil {
		k.builder.Reset()
	}
}

var _ Visitor = (*boxKernel)(nil)
