// Package geoarrow implements zero-copy columnar geometry interchange for
// Apache Arrow: the GeoArrow native memory layouts (point, linestring,
// polygon, their multi variants, and boxes, with separated or interleaved
// coordinates and XY/XYZ/XYM/XYZM dimensions), the serialized WKT and WKB
// layouts, and the translation between all of them.
//
// The package is organized around a small number of building blocks:
//
//   - Type, Metadata, and SchemaView describe a geometry column: the
//     (geometry, dimensions, layout) triple, the Arrow extension name, and
//     the edges/CRS extension metadata. ExtensionType plugs these into the
//     Arrow extension type registry.
//   - Visitor is the event protocol shared by every reader and writer:
//     readers emit feature/geometry/ring/coordinate events in traversal
//     order, writers consume them. Any reader can drive any writer.
//   - WKBReader parses binary into a flat node sequence (Geometry) whose
//     coordinate cursors point into the source buffer; byte swapping is
//     deferred until the nodes are visited. WKTReader parses text directly
//     into visitor events. ArrayView and ArrayReader replay existing Arrow
//     arrays.
//   - WKTWriter, WKBWriter, and NativeWriter consume visitor events and
//     produce Arrow arrays; Builder assembles native arrays from raw buffer
//     pieces. ArrayWriter dispatches between them by output type.
//
// Converting between representations is a matter of pairing a reader with a
// writer:
//
//	reader := geoarrow.NewWKTReader()
//	writer, _ := geoarrow.NewArrayWriter(memory.DefaultAllocator, geoarrow.TypePoint)
//	_ = reader.Visit("POINT (30 10)", writer.Visitor())
//	arr, _ := writer.Finish()
//
// All objects are single-threaded: readers, writers, builders, and kernels
// are exclusively owned by their user, and independent instances are fully
// independent.
package geoarrow
