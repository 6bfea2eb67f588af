package geoarrow

// Visitor receives a stream of geometry events from a reader. The order of
// method calls is essentially the order the same information would be
// encountered when parsing well-known text: every FeatStart is matched by
// exactly one FeatEnd and, in between, either NullFeat or one or more
// balanced GeomStart/GeomEnd pairs occur. RingStart/RingEnd pairs only occur
// inside a polygon GeomStart. Coords may be called any number of times per
// owning sequence; readers are free to chunk coordinates however they see
// fit.
//
// For example, visiting "MULTIPOINT (0 1, 2 3)" results in:
//
//	FeatStart
//	GeomStart(GeometryTypeMultiPoint, DimensionsXY)
//	GeomStart(GeometryTypePoint, DimensionsXY)
//	Coords(0 1)
//	GeomEnd
//	GeomStart(GeometryTypePoint, DimensionsXY)
//	Coords(2 3)
//	GeomEnd
//	GeomEnd
//	FeatEnd
//
// Any method may return a non-nil error; drivers abort the walk on the first
// error and propagate it to the caller. A Visitor is not safe for concurrent
// use.
type Visitor interface {
	FeatStart() error
	NullFeat() error
	GeomStart(geometryType GeometryType, dimensions Dimensions) error
	RingStart() error
	Coords(coords CoordView) error
	RingEnd() error
	GeomEnd() error
	FeatEnd() error
}

// VisitorBase is a no-op Visitor intended for embedding, so implementations
// only spell out the callbacks they care about.
type VisitorBase struct{}

func (VisitorBase) FeatStart() error                         { return nil }
func (VisitorBase) NullFeat() error                          { return nil }
func (VisitorBase) GeomStart(GeometryType, Dimensions) error { return nil }
func (VisitorBase) RingStart() error                         { return nil }
func (VisitorBase) Coords(CoordView) error                   { return nil }
func (VisitorBase) RingEnd() error                           { return nil }
func (VisitorBase) GeomEnd() error                           { return nil }
func (VisitorBase) FeatEnd() error                           { return nil }

var _ Visitor = VisitorBase{}
