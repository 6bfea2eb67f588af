package geoarrow

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/go-cmp/cmp"
)

// serializedEvents writes the WKT inputs into an array of the given
// serialized type and replays it through an ArrayReader.
func serializedEvents(t *testing.T, typ Type, wkts ...string) []string {
	t.Helper()

	writer, err := NewArrayWriter(memory.DefaultAllocator, typ)
	if err != nil {
		t.Fatalf("NewArrayWriter failed: %v", err)
	}
	writeFeatures(t, writer.Visitor(), wkts...)

	arr, err := writer.Finish()
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	defer arr.Release()

	reader, err := NewArrayReader(typ)
	if err != nil {
		t.Fatalf("NewArrayReader failed: %v", err)
	}
	if err := reader.SetArray(arr.Data()); err != nil {
		t.Fatalf("SetArray failed: %v", err)
	}

	var log eventLog
	if err := reader.Visit(0, int64(arr.Len()), &log); err != nil {
		t.Fatalf("Visit failed: %v", err)
	}
	return log.events
}

func TestArrayReaderSerializedColumns(t *testing.T) {
	wkts := []string{
		"POINT (30 10)",
		"",
		"MULTIPOLYGON (((0 0, 1 0, 0 1, 0 0)))",
		"GEOMETRYCOLLECTION (POINT (1 2))",
	}

	var want []string
	reader := NewWKTReader()
	for _, wkt := range wkts {
		if wkt == "" {
			want = append(want, "feat_start", "null_feat", "feat_end")
			continue
		}
		var log eventLog
		if err := reader.Visit(wkt, &log); err != nil {
			t.Fatalf("Visit(%q) failed: %v", wkt, err)
		}
		want = append(want, log.events...)
	}

	for _, typ := range []Type{TypeWKT, TypeWKB} {
		t.Run(typ.String(), func(t *testing.T) {
			if diff := cmp.Diff(want, serializedEvents(t, typ, wkts...)); diff != "" {
				t.Errorf("event mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestArrayReaderNative(t *testing.T) {
	arr := buildNative(t, TypeMultiPoint, "MULTIPOINT ((8 9), (10 11))")
	defer arr.Release()

	reader, err := NewArrayReader(TypeMultiPoint)
	if err != nil {
		t.Fatalf("NewArrayReader failed: %v", err)
	}
	if err := reader.SetArray(arr.Data()); err != nil {
		t.Fatalf("SetArray failed: %v", err)
	}

	var log eventLog
	if err := reader.Visit(0, 1, &log); err != nil {
		t.Fatalf("Visit failed: %v", err)
	}
	if diff := cmp.Diff(wktEvents(t, "MULTIPOINT ((8 9), (10 11))"), log.events); diff != "" {
		t.Errorf("event mismatch (-want +got):\n%s", diff)
	}

	if _, err := reader.ArrayView(); err != nil {
		t.Errorf("ArrayView() failed for native reader: %v", err)
	}
}

func TestArrayReaderSerializedHasNoArrayView(t *testing.T) {
	reader, err := NewArrayReader(TypeWKB)
	if err != nil {
		t.Fatalf("NewArrayReader failed: %v", err)
	}
	if _, err := reader.ArrayView(); err == nil {
		t.Error("ArrayView() succeeded for WKB reader, want error")
	}
}

func TestArrayReaderLargeOffsetsUnsupported(t *testing.T) {
	_, err := NewArrayReader(TypeWKTLarge)
	errCheck(t, err, ErrUnsupportedType, "")
}

// Transcoding a WKT column to a WKB column and back preserves the text.
func TestTranscodeSerializedColumns(t *testing.T) {
	wkts := []string{
		"POINT (30 10)",
		"LINESTRING (0 1, 2 3)",
		"POLYGON ((0 0, 4 0, 4 4, 0 0), (1 1, 2 1, 1 2, 1 1))",
	}

	wktWriter, err := NewArrayWriter(memory.DefaultAllocator, TypeWKT)
	if err != nil {
		t.Fatalf("NewArrayWriter failed: %v", err)
	}
	writeFeatures(t, wktWriter.Visitor(), wkts...)
	wktArr, err := wktWriter.Finish()
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	defer wktArr.Release()

	// WKT column -> WKB column
	wktReader, err := NewArrayReader(TypeWKT)
	if err != nil {
		t.Fatalf("NewArrayReader failed: %v", err)
	}
	if err := wktReader.SetArray(wktArr.Data()); err != nil {
		t.Fatalf("SetArray failed: %v", err)
	}
	wkbWriter, err := NewArrayWriter(memory.DefaultAllocator, TypeWKB)
	if err != nil {
		t.Fatalf("NewArrayWriter failed: %v", err)
	}
	if err := wktReader.Visit(0, int64(wktArr.Len()), wkbWriter.Visitor()); err != nil {
		t.Fatalf("Visit failed: %v", err)
	}
	wkbArr, err := wkbWriter.Finish()
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	defer wkbArr.Release()

	// WKB column -> WKT column
	wkbReader, err := NewArrayReader(TypeWKB)
	if err != nil {
		t.Fatalf("NewArrayReader failed: %v", err)
	}
	if err := wkbReader.SetArray(wkbArr.Data()); err != nil {
		t.Fatalf("SetArray failed: %v", err)
	}
	backWriter, err := NewArrayWriter(memory.DefaultAllocator, TypeWKT)
	if err != nil {
		t.Fatalf("NewArrayWriter failed: %v", err)
	}
	if err := wkbReader.Visit(0, int64(wkbArr.Len()), backWriter.Visitor()); err != nil {
		t.Fatalf("Visit failed: %v", err)
	}
	back, err := backWriter.Finish()
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	defer back.Release()

	for i, wkt := range wkts {
		if got := stringValue(t, back, i); got != wkt {
			t.Errorf("value %d = %q, want %q", i, got, wkt)
		}
	}
}
