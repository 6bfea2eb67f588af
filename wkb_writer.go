package geoarrow

import (
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

const writerMaxLevel = 32

// WKBWriter is a Visitor that serializes each visited feature to well-known
// binary, producing an Arrow Binary array. Output is in the host byte order
// with ISO type codes.
type WKBWriter struct {
	mem memory.Allocator

	validity  validityBitmap
	offsets   []int32
	values    []byte
	length    int64
	nullCount int64

	level        int
	featNull     bool
	geometryType [writerMaxLevel]GeometryType
	dimensions   [writerMaxLevel]Dimensions
	sizePos      [writerMaxLevel]int
	size         [writerMaxLevel]uint32
}

// NewWKBWriter creates a writer allocating from mem.
func NewWKBWriter(mem memory.Allocator) *WKBWriter {
	return &WKBWriter{mem: mem}
}

func (w *WKBWriter) appendUint32(v uint32) {
	var scratch [4]byte
	nativeOrder.PutUint32(scratch[:], v)
	w.values = append(w.values, scratch[:]...)
}

func (w *WKBWriter) patchUint32(pos int, v uint32) {
	nativeOrder.PutUint32(w.values[pos:pos+4], v)
}

func (w *WKBWriter) FeatStart() error {
	if int64(len(w.values)) > math.MaxInt32 {
		return fmt.Errorf("%w: WKB output exceeds 2GB", ErrOutOfRange)
	}
	w.level = 0
	w.size[0] = 0
	w.featNull = false
	w.length++
	w.offsets = append(w.offsets, int32(len(w.values)))
	return nil
}

func (w *WKBWriter) NullFeat() error {
	w.featNull = true
	return nil
}

func (w *WKBWriter) GeomStart(geometryType GeometryType, dimensions Dimensions) error {
	if w.level+1 >= writerMaxLevel {
		return fmt.Errorf("%w: WKB writer exceeded maximum nesting", ErrRecursion)
	}

	w.size[w.level]++
	w.level++
	w.geometryType[w.level] = geometryType
	w.dimensions[w.level] = dimensions
	w.size[w.level] = 0

	w.values = append(w.values, nativeEndianWKB)
	w.appendUint32(uint32(geometryType) + uint32(dimensions-1)*1000)
	if geometryType != GeometryTypePoint {
		w.sizePos[w.level] = len(w.values)
		w.appendUint32(0)
	}

	return nil
}

func (w *WKBWriter) RingStart() error {
	if w.level+1 >= writerMaxLevel {
		return fmt.Errorf("%w: WKB writer exceeded maximum nesting", ErrRecursion)
	}

	w.size[w.level]++
	w.level++
	w.geometryType[w.level] = GeometryTypeGeometry
	w.size[w.level] = 0
	w.sizePos[w.level] = len(w.values)
	w.appendUint32(0)
	return nil
}

func (w *WKBWriter) Coords(coords CoordView) error {
	w.size[w.level] += uint32(coords.NumCoords())

	var scratch [8]byte
	for i := 0; i < coords.NumCoords(); i++ {
		for j := 0; j < coords.NumValues(); j++ {
			nativeOrder.PutUint64(scratch[:], math.Float64bits(coords.Value(i, j)))
			w.values = append(w.values, scratch[:]...)
		}
	}
	return nil
}

func (w *WKBWriter) RingEnd() error {
	w.patchUint32(w.sizePos[w.level], w.size[w.level])
	w.level--
	return nil
}

func (w *WKBWriter) GeomEnd() error {
	if w.geometryType[w.level] != GeometryTypePoint {
		w.patchUint32(w.sizePos[w.level], w.size[w.level])
	} else if w.size[w.level] == 0 {
		// an empty point has no canonical WKB; emit one NaN coordinate
		var scratch [8]byte
		nativeOrder.PutUint64(scratch[:], math.Float64bits(quietNaN))
		for j := 0; j < w.dimensions[w.level].Count(); j++ {
			w.values = append(w.values, scratch[:]...)
		}
	}
	w.level--
	return nil
}

func (w *WKBWriter) FeatEnd() error {
	if w.featNull {
		w.validity.ensureAllocated(w.length - 1)
		w.validity.appendBit(false)
		w.nullCount++
	} else if w.validity.allocated() {
		w.validity.appendBit(true)
	}
	return nil
}

// Finish returns the accumulated features as a Binary array and resets the
// writer for the next batch.
func (w *WKBWriter) Finish() (arrow.Array, error) {
	if int64(len(w.values)) > math.MaxInt32 {
		return nil, fmt.Errorf("%w: WKB output exceeds 2GB", ErrOutOfRange)
	}
	w.offsets = append(w.offsets, int32(len(w.values)))

	data := array.NewData(
		arrow.BinaryTypes.Binary, int(w.length),
		[]*memory.Buffer{
			w.validity.buffer(),
			memory.NewBufferBytes(arrow.Int32Traits.CastToBytes(w.offsets)),
			memory.NewBufferBytes(w.values),
		},
		nil, int(w.nullCount), 0,
	)
	defer data.Release()
	out := array.NewBinaryData(data)

	w.validity.reset()
	w.offsets = nil
	w.values = nil
	w.length = 0
	w.nullCount = 0
	return out, nil
}

var _ Visitor = (*WKBWriter)(nil)
