package geoarrow

import (
	"encoding/binary"
	"fmt"
	"math"
)

// NodeFlagSwapEndian indicates that a node's coordinates must be
// byte-swapped before being interpreted on the current platform.
const NodeFlagSwapEndian uint8 = 0x01

// nativeEndianWKB is the WKB endian marker matching this platform
// (0x01 little, 0x00 big), and swappedOrder decodes byte-swapped values.
var (
	nativeEndianWKB byte
	nativeOrder     binary.ByteOrder
	swappedOrder    binary.ByteOrder
)

func init() {
	nativeOrder = binary.NativeEndian
	if binary.NativeEndian.Uint16([]byte{0x01, 0x00}) == 1 {
		nativeEndianWKB = 0x01
		swappedOrder = binary.BigEndian
	} else {
		nativeEndianWKB = 0x00
		swappedOrder = binary.LittleEndian
	}
}

// nanSentinel backs the coordinate cursors of unused ordinates. It is a
// process-lifetime constant; nodes reference it with stride zero.
var nanSentinel = func() []byte {
	b := make([]byte, 8)
	nativeOrder.PutUint64(b, math.Float64bits(quietNaN))
	return b
}()

// GeometryNode describes one element of a depth-first geometry traversal.
//
// For point and linestring nodes, Coords holds one non-owning byte cursor
// per ordinate and CoordStride the number of bytes between adjacent values:
// 8 for separated doubles, 8×ndims for interleaved doubles, the size of one
// WKB item for contiguous fixed-size WKB values, and 0 for a constant.
// Unused ordinates point at a shared NaN and must never be nil. Size is the
// coordinate count for point/linestring nodes and the direct child count
// otherwise; rings of a polygon are represented as linestring children.
// Level is 0 for the root and parent level + 1 for children.
type GeometryNode struct {
	Coords      [4][]byte
	CoordStride [4]int32
	Size        uint32
	Type        GeometryType
	Dimensions  Dimensions
	Flags       uint8
	Level       uint8
}

func (n *GeometryNode) reset(level uint8) {
	*n = GeometryNode{Level: level}
	for i := range n.Coords {
		n.Coords[i] = nanSentinel
	}
}

// GeometryView is a non-owning view of a geometry represented by a pre-order
// sequence of nodes: a node is immediately followed by its children, then by
// any remaining siblings. The backing buffers referenced by the nodes must
// outlive the view.
type GeometryView struct {
	Nodes []GeometryNode
}

// Geometry is the owning variant of GeometryView: a growable node sequence
// reused across parses.
type Geometry struct {
	nodes []GeometryNode
}

// View returns a non-owning view of the geometry. The view is invalidated by
// the next AppendNode or ResizeNodes.
func (g *Geometry) View() GeometryView { return GeometryView{Nodes: g.nodes} }

// ResizeNodes resizes the node sequence, reusing capacity where possible.
func (g *Geometry) ResizeNodes(n int) {
	if n <= cap(g.nodes) {
		g.nodes = g.nodes[:n]
		return
	}
	g.nodes = append(g.nodes[:cap(g.nodes)], make([]GeometryNode, n-cap(g.nodes))...)
}

// AppendNode appends one empty node (every coordinate cursor at the NaN
// sentinel) at the given level and returns its
// index. Indexes remain valid across appends; node pointers do not.
func (g *Geometry) AppendNode(level uint8) int {
	i := len(g.nodes)
	g.nodes = append(g.nodes, GeometryNode{})
	g.nodes[i].reset(level)
	return i
}

// ShallowCopy copies the node sequence of src into g. The copied nodes still
// reference the source coordinate buffers.
func (g *Geometry) ShallowCopy(src GeometryView) {
	g.ResizeNodes(len(src.Nodes))
	copy(g.nodes, src.Nodes)
}

// Visit drives v with the owned geometry's event stream.
func (g *Geometry) Visit(v Visitor) error { return g.View().Visit(v) }

// coordScratchElements must be divisible by 2, 3, and 4 so that whole
// coordinates fill the scratch exactly.
const coordScratchElements = 384

// visitSequence materializes a point or linestring node's coordinates in
// bounded chunks, byte-swapping into the scratch when the node is flagged,
// and issues the Coords calls.
func visitSequence(node *GeometryNode, v Visitor) error {
	nValues := node.Dimensions.Count()
	if nValues < 0 {
		return fmt.Errorf("%w: invalid dimensions %d in geometry node", ErrInvalid, node.Dimensions)
	}

	order := nativeOrder
	if node.Flags&NodeFlagSwapEndian != 0 {
		order = swappedOrder
	}

	var scratch [coordScratchElements]float64
	values := make([][]float64, nValues)
	for j := 0; j < nValues; j++ {
		values[j] = scratch[j:]
	}

	chunkSize := coordScratchElements / nValues
	var cursor [4]int64

	remaining := int64(node.Size)
	for remaining > 0 {
		n := remaining
		if n > int64(chunkSize) {
			n = int64(chunkSize)
		}

		for k := int64(0); k < n; k++ {
			for j := 0; j < nValues; j++ {
				bits := order.Uint64(node.Coords[j][cursor[j] : cursor[j]+8])
				scratch[int(k)*nValues+j] = math.Float64frombits(bits)
				cursor[j] += int64(node.CoordStride[j])
			}
		}

		if err := v.Coords(NewCoordView(values, int(n), nValues)); err != nil {
			return err
		}
		remaining -= n
	}

	if node.Size == 0 {
		return v.Coords(NewCoordView(values, 0, nValues))
	}

	return nil
}

// visitNode visits the node at index i and its subtree, returning the index
// one past the subtree.
func visitNode(nodes []GeometryNode, i int, v Visitor) (int, error) {
	if i >= len(nodes) {
		return i, fmt.Errorf("%w: too few nodes in geometry", ErrInvalid)
	}

	node := &nodes[i]
	if err := v.GeomStart(node.Type, node.Dimensions); err != nil {
		return i, err
	}

	next := i + 1
	switch node.Type {
	case GeometryTypePoint, GeometryTypeLinestring:
		if err := visitSequence(node, v); err != nil {
			return i, err
		}
	case GeometryTypePolygon:
		if next+int(node.Size) > len(nodes) {
			return i, fmt.Errorf("%w: too few ring nodes in geometry", ErrInvalid)
		}
		for j := uint32(0); j < node.Size; j++ {
			if err := v.RingStart(); err != nil {
				return i, err
			}
			if err := visitSequence(&nodes[next], v); err != nil {
				return i, err
			}
			if err := v.RingEnd(); err != nil {
				return i, err
			}
			next++
		}
	case GeometryTypeMultiPoint, GeometryTypeMultiLinestring, GeometryTypeMultiPolygon,
		GeometryTypeGeometryCollection:
		for j := uint32(0); j < node.Size; j++ {
			var err error
			next, err = visitNode(nodes, next, v)
			if err != nil {
				return i, err
			}
		}
	default:
		return i, fmt.Errorf("%w: invalid geometry type %d in geometry node", ErrInvalid, node.Type)
	}

	return next, v.GeomEnd()
}

// Visit drives v with one feature: FeatStart, the geometry events of the
// node sequence, FeatEnd.
func (g GeometryView) Visit(v Visitor) error {
	if err := v.FeatStart(); err != nil {
		return err
	}

	next, err := visitNode(g.Nodes, 0, v)
	if err != nil {
		return err
	}
	if next != len(g.Nodes) {
		return fmt.Errorf("%w: too many nodes in geometry", ErrInvalid)
	}

	return v.FeatEnd()
}
