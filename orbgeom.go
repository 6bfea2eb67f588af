package geoarrow

import (
	"fmt"

	"github.com/paulmach/orb"
)

// VisitOrb drives v with the event stream of one feature holding an orb
// geometry. A nil geometry visits as a null feature. orb geometries are
// two-dimensional, so every event carries DimensionsXY.
func VisitOrb(geom orb.Geometry, v Visitor) error {
	if err := v.FeatStart(); err != nil {
		return err
	}

	if geom == nil {
		if err := v.NullFeat(); err != nil {
			return err
		}
		return v.FeatEnd()
	}

	if err := visitOrbGeometry(geom, v); err != nil {
		return err
	}
	return v.FeatEnd()
}

func orbCoords(points []orb.Point, v Visitor) error {
	if len(points) == 0 {
		return nil
	}

	x := make([]float64, len(points))
	y := make([]float64, len(points))
	for i, p := range points {
		x[i] = p[0]
		y[i] = p[1]
	}
	return v.Coords(NewCoordView([][]float64{x, y}, len(points), 1))
}

func visitOrbGeometry(geom orb.Geometry, v Visitor) error {
	switch g := geom.(type) {
	case orb.Point:
		if err := v.GeomStart(GeometryTypePoint, DimensionsXY); err != nil {
			return err
		}
		if err := orbCoords([]orb.Point{orb.Point(g)}, v); err != nil {
			return err
		}
		return v.GeomEnd()

	case orb.LineString:
		if err := v.GeomStart(GeometryTypeLinestring, DimensionsXY); err != nil {
			return err
		}
		if err := orbCoords(g, v); err != nil {
			return err
		}
		return v.GeomEnd()

	case orb.Ring:
		// a bare ring visits as its closed linestring
		if err := v.GeomStart(GeometryTypeLinestring, DimensionsXY); err != nil {
			return err
		}
		if err := orbCoords(g, v); err != nil {
			return err
		}
		return v.GeomEnd()

	case orb.Polygon:
		if err := v.GeomStart(GeometryTypePolygon, DimensionsXY); err != nil {
			return err
		}
		for _, ring := range g {
			if err := v.RingStart(); err != nil {
				return err
			}
			if err := orbCoords(ring, v); err != nil {
				return err
			}
			if err := v.RingEnd(); err != nil {
				return err
			}
		}
		return v.GeomEnd()

	case orb.MultiPoint:
		if err := v.GeomStart(GeometryTypeMultiPoint, DimensionsXY); err != nil {
			return err
		}
		for _, p := range g {
			if err := visitOrbGeometry(p, v); err != nil {
				return err
			}
		}
		return v.GeomEnd()

	case orb.MultiLineString:
		if err := v.GeomStart(GeometryTypeMultiLinestring, DimensionsXY); err != nil {
			return err
		}
		for _, ls := range g {
			if err := visitOrbGeometry(ls, v); err != nil {
				return err
			}
		}
		return v.GeomEnd()

	case orb.MultiPolygon:
		if err := v.GeomStart(GeometryTypeMultiPolygon, DimensionsXY); err != nil {
			return err
		}
		for _, poly := range g {
			if err := visitOrbGeometry(poly, v); err != nil {
				return err
			}
		}
		return v.GeomEnd()

	case orb.Collection:
		if err := v.GeomStart(GeometryTypeGeometryCollection, DimensionsXY); err != nil {
			return err
		}
		for _, child := range g {
			if err := visitOrbGeometry(child, v); err != nil {
				return err
			}
		}
		return v.GeomEnd()

	case orb.Bound:
		return visitOrbGeometry(g.ToPolygon(), v)

	default:
		return fmt.Errorf("%w: unknown orb geometry type %T", ErrUnsupportedType, geom)
	}
}

// orbFrame is one partially-built geometry on the collector stack.
type orbFrame struct {
	typ      GeometryType
	isRing   bool
	coords   []orb.Point
	children []orb.Geometry
	rings    []orb.Ring
}

// OrbCollector is a Visitor that assembles orb geometries from an event
// stream, one per visited feature. Null features collect as nil. Z and M
// ordinates are dropped: orb geometries are two-dimensional.
type OrbCollector struct {
	geoms    []orb.Geometry
	stack    []orbFrame
	featNull bool
}

// Geometries returns the geometries collected so far, one per feature.
func (c *OrbCollector) Geometries() []orb.Geometry { return c.geoms }

// Reset drops all collected geometries.
func (c *OrbCollector) Reset() { c.geoms = nil }

func (c *OrbCollector) FeatStart() error {
	c.stack = c.stack[:0]
	c.featNull = false
	return nil
}

func (c *OrbCollector) NullFeat() error {
	c.featNull = true
	return nil
}

func (c *OrbCollector) GeomStart(geometryType GeometryType, _ Dimensions) error {
	c.stack = append(c.stack, orbFrame{typ: geometryType})
	return nil
}

func (c *OrbCollector) RingStart() error {
	c.stack = append(c.stack, orbFrame{isRing: true})
	return nil
}

func (c *OrbCollector) Coords(coords CoordView) error {
	if len(c.stack) == 0 {
		return fmt.Errorf("%w: coordinates outside of a geometry", ErrInvalid)
	}

	top := &c.stack[len(c.stack)-1]
	for i := 0; i < coords.NumCoords(); i++ {
		top.coords = append(top.coords, orb.Point{coords.Value(i, 0), coords.Value(i, 1)})
	}
	return nil
}

func (c *OrbCollector) RingEnd() error {
	ring := orb.Ring(c.stack[len(c.stack)-1].coords)
	c.stack = c.stack[:len(c.stack)-1]

	parent := &c.stack[len(c.stack)-1]
	parent.rings = append(parent.rings, ring)
	return nil
}

func (c *OrbCollector) GeomEnd() error {
	frame := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]

	var geom orb.Geometry
	switch frame.typ {
	case GeometryTypePoint:
		if len(frame.coords) == 0 {
			geom = orb.Point{quietNaN, quietNaN}
		} else {
			geom = frame.coords[0]
		}
	case GeometryTypeLinestring:
		geom = orb.LineString(frame.coords)
	case GeometryTypePolygon:
		geom = orb.Polygon(frame.rings)
	case GeometryTypeMultiPoint:
		mp := make(orb.MultiPoint, 0, len(frame.children))
		for _, child := range frame.children {
			p, ok := child.(orb.Point)
			if !ok {
				return fmt.Errorf("%w: multipoint child is %T", ErrInvalid, child)
			}
			mp = append(mp, p)
		}
		geom = mp
	case GeometryTypeMultiLinestring:
		mls := make(orb.MultiLineString, 0, len(frame.children))
		for _, child := range frame.children {
			ls, ok := child.(orb.LineString)
			if !ok {
				return fmt.Errorf("%w: multilinestring child is %T", ErrInvalid, child)
			}
			mls = append(mls, ls)
		}
		geom = mls
	case GeometryTypeMultiPolygon:
		mp := make(orb.MultiPolygon, 0, len(frame.children))
		for _, child := range frame.children {
			poly, ok := child.(orb.Polygon)
			if !ok {
				return fmt.Errorf("%w: multipolygon child is %T", ErrInvalid, child)
			}
			mp = append(mp, poly)
		}
		geom = mp
	case GeometryTypeGeometryCollection:
		geom = orb.Collection(frame.children)
	default:
		return fmt.Errorf("%w: can't collect geometry type %d", ErrInvalid, frame.typ)
	}

	if len(c.stack) == 0 {
		c.geoms = append(c.geoms, geom)
		return nil
	}

	parent := &c.stack[len(c.stack)-1]
	parent.children = append(parent.children, geom)
	return nil
}

func (c *OrbCollector) FeatEnd() error {
	if c.featNull {
		c.geoms = append(c.geoms, nil)
	}
	return nil
}

var _ Visitor = (*OrbCollector)(nil)
