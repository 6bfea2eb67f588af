package geoarrow

import (
	"errors"
	"fmt"
)

const (
	ewkbZBit    = 0x80000000
	ewkbMBit    = 0x40000000
	ewkbSRIDBit = 0x20000000
)

// WKBReader parses well-known binary into a reusable node sequence whose
// coordinate cursors point into the source buffer (zero-copy; byte swapping
// is deferred until the nodes are visited).
type WKBReader struct {
	geom Geometry
}

// NewWKBReader creates a reader with an empty, reusable node sequence.
func NewWKBReader() *WKBReader {
	return &WKBReader{}
}

type wkbSource struct {
	data     []byte
	pos      int
	needSwap bool
}

func (s *wkbSource) remaining() int { return len(s.data) - s.pos }

func (s *wkbSource) readEndian() error {
	if s.remaining() < 1 {
		return fmt.Errorf("%w: expected endian byte but found end of buffer at byte %d",
			ErrTooFewBytes, s.pos)
	}

	switch s.data[s.pos] {
	case 0x00, 0x01:
		s.needSwap = s.data[s.pos] != nativeEndianWKB
	default:
		return fmt.Errorf("%w: expected endian byte 0x00 or 0x01 but found 0x%02x at byte %d",
			ErrInvalid, s.data[s.pos], s.pos)
	}

	s.pos++
	return nil
}

func (s *wkbSource) readUint32() (uint32, error) {
	if s.remaining() < 4 {
		return 0, fmt.Errorf("%w: expected uint32 but found end of buffer at byte %d",
			ErrTooFewBytes, s.pos)
	}

	out := nativeOrder.Uint32(s.data[s.pos : s.pos+4])
	if s.needSwap {
		out = bits32swap(out)
	}
	s.pos += 4
	return out, nil
}

func bits32swap(x uint32) uint32 {
	return x<<24 | (x&0xff00)<<8 | (x>>8)&0xff00 | x>>24
}

// readCoordinates records cursors into the source buffer for nCoords
// coordinates of nValues doubles each, without copying or swapping.
func (s *wkbSource) readCoordinates(node *GeometryNode, nCoords uint32, nValues int) error {
	bytesNeeded := int64(nCoords) * int64(nValues) * 8
	if int64(s.remaining()) < bytesNeeded {
		return fmt.Errorf(
			"%w: expected coordinate sequence of %d coords (%d bytes) but found %d bytes remaining at byte %d",
			ErrTooFewBytes, nCoords, bytesNeeded, s.remaining(), s.pos)
	}

	if nCoords > 0 {
		for i := 0; i < nValues; i++ {
			node.CoordStride[i] = int32(nValues) * 8
			node.Coords[i] = s.data[s.pos+i*8:]
		}
	}

	s.pos += int(bytesNeeded)
	return nil
}

func (r *WKBReader) readGeometry(s *wkbSource, nodeIdx int) error {
	if err := s.readEndian(); err != nil {
		return err
	}

	typeCodePos := s.pos
	typeCode, err := s.readUint32()
	if err != nil {
		return err
	}

	hasZ := typeCode&ewkbZBit != 0
	hasM := typeCode&ewkbMBit != 0

	if typeCode&ewkbSRIDBit != 0 {
		// The embedded SRID is consumed and discarded: there is no way to
		// represent it without a schema-level CRS, and failing here would
		// strand data with no other conversion path.
		if _, err := s.readUint32(); err != nil {
			return err
		}
	}

	typeCode &= 0x0000ffff

	// ISO X000 geometry types
	switch {
	case typeCode >= 3000:
		typeCode -= 3000
		hasZ = true
		hasM = true
	case typeCode >= 2000:
		typeCode -= 2000
		hasM = true
	case typeCode >= 1000:
		typeCode -= 1000
		hasZ = true
	}

	geometryType := GeometryType(typeCode)
	switch geometryType {
	case GeometryTypePoint, GeometryTypeLinestring, GeometryTypePolygon,
		GeometryTypeMultiPoint, GeometryTypeMultiLinestring, GeometryTypeMultiPolygon,
		GeometryTypeGeometryCollection:
	default:
		return fmt.Errorf("%w: expected valid geometry type code but found %d at byte %d",
			ErrInvalid, typeCode, typeCodePos)
	}

	size := uint32(1)
	if geometryType != GeometryTypePoint {
		if size, err = s.readUint32(); err != nil {
			return err
		}
	}

	dimensions := DimensionsXY
	switch {
	case hasZ && hasM:
		dimensions = DimensionsXYZM
	case hasZ:
		dimensions = DimensionsXYZ
	case hasM:
		dimensions = DimensionsXYM
	}

	node := &r.geom.nodes[nodeIdx]
	node.Type = geometryType
	node.Dimensions = dimensions
	node.Size = size
	if s.needSwap {
		node.Flags = NodeFlagSwapEndian
	} else {
		node.Flags = 0
	}
	level := node.Level

	switch geometryType {
	case GeometryTypePoint, GeometryTypeLinestring:
		return s.readCoordinates(node, size, dimensions.Count())

	case GeometryTypePolygon:
		if level == 255 {
			return fmt.Errorf("%w: WKB reader exceeded maximum recursion", ErrRecursion)
		}

		ringTemplate := *node
		ringTemplate.Type = GeometryTypeLinestring
		ringTemplate.Level = level + 1

		for i := uint32(0); i < size; i++ {
			ringSize, err := s.readUint32()
			if err != nil {
				return err
			}

			ringIdx := r.geom.AppendNode(0)
			ring := &r.geom.nodes[ringIdx]
			*ring = ringTemplate
			ring.Size = ringSize
			if err := s.readCoordinates(ring, ringSize, dimensions.Count()); err != nil {
				return err
			}
		}
		return nil

	case GeometryTypeMultiPoint, GeometryTypeMultiLinestring, GeometryTypeMultiPolygon,
		GeometryTypeGeometryCollection:
		if level == 255 {
			return fmt.Errorf("%w: WKB reader exceeded maximum recursion", ErrRecursion)
		}

		for i := uint32(0); i < size; i++ {
			childIdx := r.geom.AppendNode(level + 1)
			if err := r.readGeometry(s, childIdx); err != nil {
				return err
			}
		}
		return nil

	default:
		return fmt.Errorf("%w: expected valid geometry type code but found %d at byte %d",
			ErrInvalid, typeCode, typeCodePos)
	}
}

// Read parses one WKB geometry from src. The returned view references src:
// src must outlive the view, and the view is invalidated by the next Read.
//
// Trailing bytes after a complete geometry are reported as an error wrapping
// ErrTooManyBytes; the returned view is still fully populated in that case.
func (r *WKBReader) Read(src []byte) (GeometryView, error) {
	s := &wkbSource{data: src}

	r.geom.ResizeNodes(0)
	root := r.geom.AppendNode(0)

	if err := r.readGeometry(s, root); err != nil {
		return GeometryView{}, err
	}

	view := r.geom.View()
	if s.remaining() > 0 {
		return view, fmt.Errorf("%w: %d trailing bytes at byte %d", ErrTooManyBytes,
			s.remaining(), s.pos)
	}

	return view, nil
}

// Visit parses one WKB geometry from src and drives v with its event stream
// (one full feature). A trailing-bytes error is returned after the visit
// completes.
func (r *WKBReader) Visit(src []byte, v Visitor) error {
	view, err := r.Read(src)
	if err != nil && !errors.Is(err, ErrTooManyBytes) {
		return err
	}

	if visitErr := view.Visit(v); visitErr != nil {
		return visitErr
	}
	return err
}
