package geoarrow

import (
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Builder assembles one GeoArrow-encoded array from raw buffer pieces: a
// validity bitmap, one offset buffer per nesting level, and either one
// interleaved or |dims| separated coordinate buffers (for serialized types,
// a data buffer instead).
//
// Buffers are addressed by a flat index: 0 is the validity bitmap, followed
// by the offset buffers from the outermost level in, followed by the
// coordinate (or data) buffers. Mutation happens only through the append
// operations; Finish hands out the finished array and resets the builder for
// the next batch.
type Builder struct {
	mem        memory.Allocator
	schemaView SchemaView

	nOffsets int
	nValues  int

	validity []byte
	offsets  [][]int32
	coords   [][]float64
	data     []byte

	owned map[int]*memory.Buffer
}

// NewBuilder creates a builder for arrays of type t.
func NewBuilder(mem memory.Allocator, t Type) (*Builder, error) {
	view, err := SchemaViewFromType(t)
	if err != nil {
		return nil, err
	}
	return newBuilder(mem, view)
}

// NewBuilderFromField creates a builder for arrays of the type declared by
// an Arrow field carrying a geoarrow extension.
func NewBuilderFromField(mem memory.Allocator, field arrow.Field) (*Builder, error) {
	view, err := SchemaViewFromField(field)
	if err != nil {
		return nil, err
	}
	return newBuilder(mem, view)
}

func newBuilder(mem memory.Allocator, view SchemaView) (*Builder, error) {
	switch view.Type {
	case TypeWKBLarge, TypeWKTLarge:
		return nil, fmt.Errorf("%w: large-offset storage is not supported by the builder",
			ErrUnsupportedType)
	}

	b := &Builder{
		mem:        mem,
		schemaView: view,
		owned:      map[int]*memory.Buffer{},
	}

	switch view.Type {
	case TypeWKB, TypeWKT:
		b.nOffsets = 1
		b.nValues = 0
	default:
		b.nOffsets = view.GeometryType().NumOffsets()
		b.nValues = view.Dimensions().Count()
		if view.GeometryType() == GeometryTypeBox {
			b.nValues *= 2
		}
	}

	b.offsets = make([][]int32, b.nOffsets)
	switch view.CoordType() {
	case CoordTypeSeparate:
		b.coords = make([][]float64, b.nValues)
	case CoordTypeInterleaved:
		b.coords = make([][]float64, 1)
	}

	return b, nil
}

// SchemaView returns the type information the builder was created with.
func (b *Builder) SchemaView() SchemaView { return b.schemaView }

// NumBuffers returns the number of buffer slots of the array being built.
func (b *Builder) NumBuffers() int {
	if b.coords == nil {
		// serialized: validity, offsets, data
		return 2 + b.nOffsets
	}
	return 1 + b.nOffsets + len(b.coords)
}

func (b *Builder) checkBuffer(i int) error {
	if i < 0 || i >= b.NumBuffers() {
		return fmt.Errorf("%w: buffer %d out of range for %d-buffer builder",
			ErrInvalid, i, b.NumBuffers())
	}
	return nil
}

// AppendBuffer appends raw bytes to buffer i, reinterpreting them as the
// buffer's element type (validity bytes, int32 offsets, or float64
// coordinates).
func (b *Builder) AppendBuffer(i int, data []byte) error {
	if err := b.checkBuffer(i); err != nil {
		return err
	}

	switch {
	case i == 0:
		b.validity = append(b.validity, data...)
	case i <= b.nOffsets:
		b.offsets[i-1] = append(b.offsets[i-1], arrow.Int32Traits.CastFromBytes(data)...)
	case b.coords == nil:
		b.data = append(b.data, data...)
	default:
		j := i - 1 - b.nOffsets
		b.coords[j] = append(b.coords[j], arrow.Float64Traits.CastFromBytes(data)...)
	}
	return nil
}

// ReserveBuffer grows the capacity of buffer i by at least additionalBytes.
func (b *Builder) ReserveBuffer(i int, additionalBytes int) error {
	if err := b.checkBuffer(i); err != nil {
		return err
	}

	switch {
	case i == 0:
		b.validity = reserve(b.validity, additionalBytes)
	case i <= b.nOffsets:
		b.offsets[i-1] = reserve(b.offsets[i-1], additionalBytes/4)
	case b.coords == nil:
		b.data = reserve(b.data, additionalBytes)
	default:
		j := i - 1 - b.nOffsets
		b.coords[j] = reserve(b.coords[j], additionalBytes/8)
	}
	return nil
}

func reserve[T any](s []T, additional int) []T {
	if cap(s)-len(s) >= additional {
		return s
	}
	out := make([]T, len(s), len(s)+additional)
	copy(out, s)
	return out
}

// SetOwnedBuffer installs an externally-owned buffer as the entire content
// of buffer slot i. The buffer is retained until the finished array (or the
// builder itself) releases it, so its deallocator runs exactly once.
func (b *Builder) SetOwnedBuffer(i int, buf *memory.Buffer) error {
	if err := b.checkBuffer(i); err != nil {
		return err
	}

	if prev, ok := b.owned[i]; ok {
		prev.Release()
	}
	b.owned[i] = buf

	data := buf.Bytes()
	switch {
	case i == 0:
		b.validity = data
	case i <= b.nOffsets:
		b.offsets[i-1] = arrow.Int32Traits.CastFromBytes(data)
	case b.coords == nil:
		b.data = data
	default:
		b.coords[i-1-b.nOffsets] = arrow.Float64Traits.CastFromBytes(data)
	}
	return nil
}

// OffsetAppend appends offsets to the offset buffer of the given nesting
// level (0 = outermost).
func (b *Builder) OffsetAppend(level int, values ...int32) error {
	if level < 0 || level >= b.nOffsets {
		return fmt.Errorf("%w: offset level %d out of range for %d-level builder",
			ErrInvalid, level, b.nOffsets)
	}
	b.offsets[level] = append(b.offsets[level], values...)
	return nil
}

// CoordsCount returns the number of whole coordinates appended so far.
func (b *Builder) CoordsCount() int64 {
	if b.coords == nil || len(b.coords) == 0 || b.nValues == 0 {
		return 0
	}
	if b.schemaView.CoordType() == CoordTypeInterleaved {
		return int64(len(b.coords[0]) / b.nValues)
	}
	return int64(len(b.coords[0]))
}

// CoordsAppend appends n coordinates starting at offset from src, mapping
// dimensions between srcDims and the builder's dimensions: ordinates the
// destination lacks are dropped, ordinates the source lacks are filled with
// NaN.
func (b *Builder) CoordsAppend(src CoordView, srcDims Dimensions, offset, n int) error {
	if b.coords == nil {
		return fmt.Errorf("%w: builder for %s has no coordinate buffers",
			ErrInvalid, b.schemaView.Type)
	}

	dimMap := dimensionMap(srcDims, b.schemaView.Dimensions())

	if b.schemaView.CoordType() == CoordTypeInterleaved {
		buf := b.coords[0]
		for i := 0; i < n; i++ {
			for j := 0; j < b.nValues; j++ {
				buf = append(buf, mappedOrdinate(src, offset+i, dimMap[j]))
			}
		}
		b.coords[0] = buf
		return nil
	}

	for j := 0; j < b.nValues; j++ {
		buf := b.coords[j]
		for i := 0; i < n; i++ {
			buf = append(buf, mappedOrdinate(src, offset+i, dimMap[j]))
		}
		b.coords[j] = buf
	}
	return nil
}

func mappedOrdinate(src CoordView, i, srcDim int) float64 {
	if srcDim < 0 || srcDim >= src.NumValues() {
		return quietNaN
	}
	return src.Value(i, srcDim)
}

func (b *Builder) validityBuffer() *memory.Buffer {
	if len(b.validity) == 0 {
		return nil
	}
	return memory.NewBufferBytes(b.validity)
}

func (b *Builder) offsetsBuffer(level int) *memory.Buffer {
	if buf, ok := b.owned[1+level]; ok {
		return buf
	}
	return memory.NewBufferBytes(arrow.Int32Traits.CastToBytes(b.offsets[level]))
}

func listLength(offsets []int32) int {
	if len(offsets) == 0 {
		return 0
	}
	return len(offsets) - 1
}

// Finish snaps child array lengths from the buffer sizes, returns the
// finished array, and re-initializes the builder for the next batch.
func (b *Builder) Finish() (arrow.Array, error) {
	storage := b.schemaView.Type.Storage()

	var data arrow.ArrayData
	switch b.schemaView.Type {
	case TypeWKB, TypeWKT:
		length := listLength(b.offsets[0])
		data = array.NewData(storage, length,
			[]*memory.Buffer{
				b.validityBuffer(),
				b.offsetsBuffer(0),
				b.dataBuffer(),
			},
			nil, array.UnknownNullCount, 0)
	default:
		coordsCount := int(b.CoordsCount())
		if int64(coordsCount) > math.MaxInt32 {
			return nil, fmt.Errorf("%w: coordinate count exceeds INT32_MAX", ErrOutOfRange)
		}
		data = b.finishNative(storage, coordsCount)
	}
	defer data.Release()

	out := array.MakeFromData(data)

	// Re-initialize for the next batch. Owned buffers were handed to the
	// finished array; drop our references.
	for i, buf := range b.owned {
		buf.Release()
		delete(b.owned, i)
	}
	b.validity = nil
	b.data = nil
	for i := range b.offsets {
		b.offsets[i] = nil
	}
	for i := range b.coords {
		b.coords[i] = nil
	}

	return out, nil
}

// finishNative assembles the nested ArrayData for a native storage tree.
func (b *Builder) finishNative(storage arrow.DataType, coordsCount int) arrow.ArrayData {
	// Build the coordinate leaf (bottom of the storage tree).
	coordType := storage
	for level := 0; level < b.nOffsets; level++ {
		coordType = coordType.(*arrow.ListType).Elem()
	}

	var coord arrow.ArrayData
	switch ct := coordType.(type) {
	case *arrow.StructType:
		children := make([]arrow.ArrayData, b.nValues)
		for j := 0; j < b.nValues; j++ {
			buf := b.coordBuffer(j)
			children[j] = array.NewData(ct.Field(j).Type, coordsCount,
				[]*memory.Buffer{nil, buf}, nil, 0, 0)
			defer children[j].Release()
		}
		coord = array.NewData(ct, coordsCount, []*memory.Buffer{nil}, children, 0, 0)
	case *arrow.FixedSizeListType:
		values := array.NewData(ct.Elem(), coordsCount*b.nValues,
			[]*memory.Buffer{nil, b.coordBuffer(0)}, nil, 0, 0)
		defer values.Release()
		coord = array.NewData(ct, coordsCount, []*memory.Buffer{nil},
			[]arrow.ArrayData{values}, 0, 0)
	}

	// Wrap one list level at a time from the inside out.
	current := coord
	for level := b.nOffsets - 1; level >= 0; level-- {
		listType := storage
		for l := 0; l < level; l++ {
			listType = listType.(*arrow.ListType).Elem()
		}

		var validity *memory.Buffer
		nulls := 0
		if level == 0 {
			validity = b.validityBuffer()
			if validity != nil {
				nulls = array.UnknownNullCount
			}
		}

		next := array.NewData(listType, listLength(b.offsets[level]),
			[]*memory.Buffer{validity, b.offsetsBuffer(level)},
			[]arrow.ArrayData{current}, nulls, 0)
		current.Release()
		current = next
	}

	if b.nOffsets == 0 {
		// point or box: the coordinate container is the root and carries
		// the validity bitmap
		if validity := b.validityBuffer(); validity != nil {
			root := array.NewData(coord.DataType(), coord.Len(),
				[]*memory.Buffer{validity}, coord.Children(), array.UnknownNullCount, 0)
			coord.Release()
			return root
		}
	}

	return current
}

func (b *Builder) dataBuffer() *memory.Buffer {
	if buf, ok := b.owned[1+b.nOffsets]; ok {
		return buf
	}
	return memory.NewBufferBytes(b.data)
}

func (b *Builder) coordBuffer(j int) *memory.Buffer {
	slot := 1 + b.nOffsets + j
	if buf, ok := b.owned[slot]; ok {
		return buf
	}
	return memory.NewBufferBytes(arrow.Float64Traits.CastToBytes(b.coords[j]))
}

// Reset releases any externally-owned buffers and clears the builder.
func (b *Builder) Reset() {
	for i, buf := range b.owned {
		buf.Release()
		delete(b.owned, i)
	}
	b.validity = nil
	b.data = nil
	for i := range b.offsets {
		b.offsets[i] = nil
	}
	for i := range b.coords {
		b.coords[i] = nil
	}
}
