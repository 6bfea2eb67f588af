package geoarrow

import "math"

// CoordView is a generic read-only view of a coordinate sequence. It can
// represent both separated and interleaved storage: values holds one slice
// head per ordinate and stride is the number of elements between successive
// coordinates within each slice (1 for separated storage, the dimension
// count for interleaved storage).
type CoordView struct {
	values  [8][]float64
	nCoords int
	nValues int
	stride  int
}

// NewCoordView wraps per-ordinate slice heads into a view of nCoords
// coordinates with the given element stride.
func NewCoordView(values [][]float64, nCoords, stride int) CoordView {
	var v CoordView
	v.nCoords = nCoords
	v.nValues = len(values)
	v.stride = stride
	copy(v.values[:], values)
	return v
}

// NumCoords returns the number of coordinates in the view.
func (v CoordView) NumCoords() int { return v.nCoords }

// NumValues returns the number of ordinates per coordinate.
func (v CoordView) NumValues() int { return v.nValues }

// Stride returns the element stride between successive coordinates.
func (v CoordView) Stride() int { return v.stride }

// Value returns ordinate dim of coordinate i.
func (v CoordView) Value(i, dim int) float64 {
	return v.values[dim][i*v.stride]
}

// slice returns a view of length coordinates starting at offset.
func (v CoordView) slice(offset, length int) CoordView {
	out := v
	out.nCoords = length
	for j := 0; j < v.nValues; j++ {
		if v.values[j] != nil {
			out.values[j] = v.values[j][offset*v.stride:]
		}
	}
	return out
}

// quietNaN is the bit pattern every absent ordinate is filled with.
var quietNaN = math.Float64frombits(0x7ff8000000000000)

// emptyCoord returns a one-coordinate view with every ordinate NaN, used for
// empty points.
func emptyCoord(nValues int) CoordView {
	var v CoordView
	v.nCoords = 1
	v.nValues = nValues
	v.stride = 1
	nan := []float64{quietNaN}
	for i := 0; i < nValues; i++ {
		v.values[i] = nan
	}
	return v
}

// zeroCoord returns a one-coordinate view with every ordinate zero.
func zeroCoord(nValues int) CoordView {
	var v CoordView
	v.nCoords = 1
	v.nValues = nValues
	v.stride = 1
	zero := []float64{0}
	for i := 0; i < nValues; i++ {
		v.values[i] = zero
	}
	return v
}
