package geoarrow

import (
	"fmt"
	"math"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// WKTWriter is a Visitor that serializes each visited feature to well-known
// text, producing an Arrow String array.
//
// Keywords are uppercase with a single space before the opening parenthesis;
// empty frames are written as EMPTY. Numbers go through Go's
// shortest-round-trip formatter unless Precision narrows them.
type WKTWriter struct {
	mem memory.Allocator

	// Precision is the number of significant digits to write, or -1
	// (the default) for the shortest representation that round-trips.
	Precision int

	// FlatMultipoint selects MULTIPOINT (x y, x y) over the nested
	// MULTIPOINT ((x y), (x y)) form. The option always wins: the input
	// flavor is not auto-detected.
	FlatMultipoint bool

	validity  validityBitmap
	offsets   []int32
	values    []byte
	length    int64
	nullCount int64

	// Frame stack: level indexes the innermost open frame. Frame 0 is the
	// feature itself; a frame is pushed per GeomStart/RingStart. count is
	// the number of children (or coordinates) written into the frame so
	// far, flatChildren marks a MULTIPOINT frame whose point children are
	// written without their own parentheses, and bare marks such a child.
	level        int
	featNull     bool
	geometryType [writerMaxLevel]GeometryType
	count        [writerMaxLevel]int64
	flatChildren [writerMaxLevel]bool
	bare         [writerMaxLevel]bool
}

// NewWKTWriter creates a writer allocating from mem.
func NewWKTWriter(mem memory.Allocator) *WKTWriter {
	return &WKTWriter{mem: mem, Precision: -1}
}

func (w *WKTWriter) write(s string) {
	w.values = append(w.values, s...)
}

func (w *WKTWriter) writeFloat(value float64) {
	w.values = strconv.AppendFloat(w.values, value, 'g', w.Precision, 64)
}

func (w *WKTWriter) FeatStart() error {
	if int64(len(w.values)) > math.MaxInt32 {
		return fmt.Errorf("%w: WKT output exceeds 2GB", ErrOutOfRange)
	}
	w.level = 0
	w.geometryType[0] = GeometryTypeGeometry
	w.count[0] = 0
	w.flatChildren[0] = false
	w.bare[0] = false
	w.featNull = false
	w.length++
	w.offsets = append(w.offsets, int32(len(w.values)))
	return nil
}

func (w *WKTWriter) NullFeat() error {
	w.featNull = true
	return nil
}

// push opens a new frame after writing the separator owed to the parent:
// "(" before the parent's first child, ", " before every subsequent one (the
// root geometry owes no separator).
func (w *WKTWriter) push(geometryType GeometryType, bare bool) error {
	if w.level+1 >= writerMaxLevel {
		return fmt.Errorf("%w: WKT writer exceeded maximum nesting", ErrRecursion)
	}

	if w.level > 0 {
		if w.count[w.level] == 0 {
			w.write("(")
		} else {
			w.write(", ")
		}
	}
	w.count[w.level]++

	w.level++
	w.geometryType[w.level] = geometryType
	w.count[w.level] = 0
	w.flatChildren[w.level] = geometryType == GeometryTypeMultiPoint && w.FlatMultipoint
	w.bare[w.level] = bare
	return nil
}

func (w *WKTWriter) GeomStart(geometryType GeometryType, dimensions Dimensions) error {
	parentIsCollection := w.level > 0 &&
		w.geometryType[w.level] == GeometryTypeGeometryCollection
	writeKeyword := w.level == 0 || parentIsCollection
	bare := w.level > 0 && w.flatChildren[w.level] && geometryType == GeometryTypePoint

	if err := w.push(geometryType, bare); err != nil {
		return err
	}

	if writeKeyword {
		keyword := geometryType.String()
		if keyword == "" {
			return fmt.Errorf("%w: unexpected geometry type in WKT writer", ErrInvalid)
		}
		w.write(keyword)

		switch dimensions {
		case DimensionsXY:
		case DimensionsXYZ:
			w.write(" Z")
		case DimensionsXYM:
			w.write(" M")
		case DimensionsXYZM:
			w.write(" ZM")
		default:
			return fmt.Errorf("%w: unexpected dimensions in WKT writer", ErrInvalid)
		}
		w.write(" ")
	}

	return nil
}

func (w *WKTWriter) RingStart() error {
	return w.push(GeometryTypeGeometry, false)
}

func (w *WKTWriter) Coords(coords CoordView) error {
	bare := w.bare[w.level]

	for i := 0; i < coords.NumCoords(); i++ {
		if w.count[w.level] == 0 {
			if !bare {
				w.write("(")
			}
		} else {
			w.write(", ")
		}
		w.count[w.level]++

		for j := 0; j < coords.NumValues(); j++ {
			if j > 0 {
				w.write(" ")
			}
			w.writeFloat(coords.Value(i, j))
		}
	}

	return nil
}

// pop closes the innermost frame, writing EMPTY when nothing was written
// into it.
func (w *WKTWriter) pop() {
	n := w.count[w.level]
	bare := w.bare[w.level]
	w.level--

	switch {
	case n == 0:
		w.write("EMPTY")
	case !bare:
		w.write(")")
	}
}

func (w *WKTWriter) RingEnd() error {
	w.pop()
	return nil
}

func (w *WKTWriter) GeomEnd() error {
	w.pop()
	return nil
}

func (w *WKTWriter) FeatEnd() error {
	if w.featNull {
		w.validity.ensureAllocated(w.length - 1)
		w.validity.appendBit(false)
		w.nullCount++
	} else if w.validity.allocated() {
		w.validity.appendBit(true)
	}
	return nil
}

// Finish returns the accumulated features as a String array and resets the
// writer for the next batch.
func (w *WKTWriter) Finish() (arrow.Array, error) {
	if int64(len(w.values)) > math.MaxInt32 {
		return nil, fmt.Errorf("%w: WKT output exceeds 2GB", ErrOutOfRange)
	}
	w.offsets = append(w.offsets, int32(len(w.values)))

	data := array.NewData(
		arrow.BinaryTypes.String, int(w.length),
		[]*memory.Buffer{
			w.validity.buffer(),
			memory.NewBufferBytes(arrow.Int32Traits.CastToBytes(w.offsets)),
			memory.NewBufferBytes(w.values),
		},
		nil, int(w.nullCount), 0,
	)
	defer data.Release()
	out := array.NewStringData(data)

	w.validity.reset()
	w.offsets = nil
	w.values = nil
	w.length = 0
	w.nullCount = 0
	return out, nil
}

var _ Visitor = (*WKTWriter)(nil)
