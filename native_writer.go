package geoarrow

import (
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// nativeKind selects the visitor behavior of a NativeWriter. Types sharing a
// storage depth share a kind: a multipoint is a linestring whose sequence
// elements happen to be points, and a polygon is a multilinestring whose
// sequences happen to be rings.
type nativeKind int

const (
	nativePoint nativeKind = iota
	nativeLinestring
	nativeMultiLinestring
	nativeMultiPolygon
)

// NativeWriter is a Visitor that assembles a GeoArrow-native array through a
// Builder, one feature per FeatStart/FeatEnd pair.
//
// Features whose structure cannot be represented in the target type (for
// example a two-part MULTILINESTRING fed to a linestring writer) abort with
// a descriptive error. Nested multipoint input is folded into the flat
// coordinate sequence, empty points are written as NaN coordinates, and null
// point features as zeros.
type NativeWriter struct {
	builder *Builder
	kind    nativeKind

	validity  validityBitmap
	nullCount int64

	featNull          bool
	nestingMultipoint int
	lastDims          Dimensions
	size              [3]int64
	level             int
}

// NewNativeWriter creates a writer producing arrays of native type t.
func NewNativeWriter(mem memory.Allocator, t Type) (*NativeWriter, error) {
	var kind nativeKind
	switch t.GeometryType() {
	case GeometryTypePoint:
		kind = nativePoint
	case GeometryTypeLinestring, GeometryTypeMultiPoint:
		kind = nativeLinestring
	case GeometryTypePolygon, GeometryTypeMultiLinestring:
		kind = nativeMultiLinestring
	case GeometryTypeMultiPolygon:
		kind = nativeMultiPolygon
	default:
		return nil, fmt.Errorf("%w: no native writer for %s", ErrUnsupportedType, t)
	}

	builder, err := NewBuilder(mem, t)
	if err != nil {
		return nil, err
	}

	w := &NativeWriter{builder: builder, kind: kind}
	w.initOutput()
	return w, nil
}

// initOutput seeds each offset buffer with its leading zero.
func (w *NativeWriter) initOutput() {
	for level := 0; level < w.builder.nOffsets; level++ {
		_ = w.builder.OffsetAppend(level, 0)
	}
	w.validity.reset()
	w.nullCount = 0
}

// Finish returns the accumulated features as a finished array and resets the
// writer for the next batch.
func (w *NativeWriter) Finish() (arrow.Array, error) {
	if w.validity.allocated() {
		if err := w.builder.AppendBuffer(0, w.validity.bytes); err != nil {
			return nil, err
		}
	}

	out, err := w.builder.Finish()
	if err != nil {
		return nil, err
	}

	w.initOutput()
	return out, nil
}

func (w *NativeWriter) appendSeqOffset(level int) error {
	n := w.builder.CoordsCount()
	if n > math.MaxInt32 {
		return fmt.Errorf("%w: coordinate count exceeds INT32_MAX", ErrOutOfRange)
	}
	return w.builder.OffsetAppend(level, int32(n))
}

func (w *NativeWriter) appendFeatValidity(currentLength int64) error {
	if w.featNull {
		w.validity.ensureAllocated(currentLength - 1)
		w.validity.appendBit(false)
		w.nullCount++
	} else if w.validity.allocated() {
		w.validity.appendBit(true)
	}
	return nil
}

func (w *NativeWriter) FeatStart() error {
	w.featNull = false
	w.nestingMultipoint = 0
	w.level = 0
	w.size = [3]int64{}
	return nil
}

func (w *NativeWriter) NullFeat() error {
	w.featNull = true
	return nil
}

func (w *NativeWriter) GeomStart(geometryType GeometryType, dimensions Dimensions) error {
	w.lastDims = dimensions

	switch w.kind {
	case nativePoint:
		// nothing to track: every coordinate lands in the same slot
	case nativeLinestring:
		switch geometryType {
		case GeometryTypeLinestring:
			w.level++
		case GeometryTypeMultiPoint:
			w.nestingMultipoint = 1
			w.level++
		case GeometryTypePoint:
			if w.nestingMultipoint > 0 {
				w.nestingMultipoint++
			}
		}
	case nativeMultiLinestring:
		switch geometryType {
		case GeometryTypeLinestring, GeometryTypeMultiPoint:
			w.level++
		}
	case nativeMultiPolygon:
		switch geometryType {
		case GeometryTypePolygon, GeometryTypeMultiLinestring,
			GeometryTypeLinestring, GeometryTypeMultiPoint:
			w.level++
		}
	}

	return nil
}

func (w *NativeWriter) RingStart() error {
	if w.kind != nativePoint {
		w.level++
	}
	return nil
}

func (w *NativeWriter) Coords(coords CoordView) error {
	switch w.kind {
	case nativePoint:
		w.size[0] += int64(coords.NumCoords())
	case nativeLinestring:
		w.size[1] += int64(coords.NumCoords())
	case nativeMultiLinestring:
		w.size[1] += int64(coords.NumCoords())
	case nativeMultiPolygon:
		w.size[2] += int64(coords.NumCoords())
	}
	return w.builder.CoordsAppend(coords, w.lastDims, 0, coords.NumCoords())
}

func (w *NativeWriter) RingEnd() error {
	switch w.kind {
	case nativePoint:
		return nil
	case nativeLinestring:
		w.level--
		w.size[0]++
		return w.appendSeqOffset(0)
	case nativeMultiLinestring:
		w.level--
		if w.size[1] > 0 {
			if err := w.appendSeqOffset(1); err != nil {
				return err
			}
			w.size[0]++
			w.size[1] = 0
		}
		return nil
	case nativeMultiPolygon:
		w.level--
		if w.size[2] > 0 {
			if err := w.appendSeqOffset(2); err != nil {
				return err
			}
			w.size[1]++
			w.size[2] = 0
		}
		return nil
	}
	return nil
}

func (w *NativeWriter) GeomEnd() error {
	switch w.kind {
	case nativePoint:
		return nil

	case nativeLinestring:
		// ignore GeomEnd from a POINT nested within a MULTIPOINT
		if w.nestingMultipoint == 2 {
			w.nestingMultipoint--
			return nil
		}
		if w.level == 1 {
			w.size[0]++
			w.level--
			return w.appendSeqOffset(0)
		}
		return nil

	case nativeMultiLinestring:
		if w.level == 1 {
			w.level--
			if w.size[1] > 0 {
				if err := w.appendSeqOffset(1); err != nil {
					return err
				}
				w.size[0]++
				w.size[1] = 0
			}
		}
		return nil

	case nativeMultiPolygon:
		switch w.level {
		case 2:
			w.level--
			if w.size[2] > 0 {
				if err := w.appendSeqOffset(2); err != nil {
					return err
				}
				w.size[1]++
				w.size[2] = 0
			}
		case 1:
			w.level--
			if w.size[1] > 0 {
				n := int32(len(w.builder.offsets[2]) - 1)
				if err := w.builder.OffsetAppend(1, n); err != nil {
					return err
				}
				w.size[0]++
				w.size[1] = 0
			}
		}
		return nil
	}
	return nil
}

func (w *NativeWriter) FeatEnd() error {
	switch w.kind {
	case nativePoint:
		// an empty feature still occupies one coordinate slot
		if w.size[0] == 0 {
			coord := emptyCoord(4)
			if w.featNull {
				coord = zeroCoord(4)
			}
			if err := w.builder.CoordsAppend(coord, DimensionsXYZM, 0, 1); err != nil {
				return err
			}
		} else if w.size[0] != 1 {
			return fmt.Errorf("%w: can't convert feature with >1 coordinate to POINT", ErrInvalid)
		}
		return w.appendFeatValidity(w.builder.CoordsCount())

	case nativeLinestring:
		// if no sequence was finished (EMPTY or a bare point), finish one now
		if w.size[0] == 0 {
			if err := w.appendSeqOffset(0); err != nil {
				return err
			}
		} else if w.size[0] != 1 {
			return fmt.Errorf("%w: can't convert feature with >1 sequence to LINESTRING", ErrInvalid)
		}
		return w.appendFeatValidity(int64(len(w.builder.offsets[0]) - 1))

	case nativeMultiLinestring:
		// an unfinished sequence is left when the last child was a POINT
		if w.size[1] > 0 {
			if err := w.appendSeqOffset(1); err != nil {
				return err
			}
		}
		n := int32(len(w.builder.offsets[1]) - 1)
		if err := w.builder.OffsetAppend(0, n); err != nil {
			return err
		}
		return w.appendFeatValidity(int64(len(w.builder.offsets[0]) - 1))

	case nativeMultiPolygon:
		if w.size[2] > 0 {
			if err := w.appendSeqOffset(2); err != nil {
				return err
			}
			w.size[1]++
		}
		if w.size[1] > 0 {
			n := int32(len(w.builder.offsets[2]) - 1)
			if err := w.builder.OffsetAppend(1, n); err != nil {
				return err
			}
		}
		n := int32(len(w.builder.offsets[1]) - 1)
		if err := w.builder.OffsetAppend(0, n); err != nil {
			return err
		}
		return w.appendFeatValidity(int64(len(w.builder.offsets[0]) - 1))
	}
	return nil
}

var _ Visitor = (*NativeWriter)(nil)
