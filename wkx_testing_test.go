package geoarrow

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// eventLog records visitor callbacks as readable strings so tests can
// compare whole event sequences.
type eventLog struct {
	events []string
}

func (e *eventLog) add(s string) error {
	e.events = append(e.events, s)
	return nil
}

func (e *eventLog) FeatStart() error { return e.add("feat_start") }
func (e *eventLog) NullFeat() error  { return e.add("null_feat") }
func (e *eventLog) RingStart() error { return e.add("ring_start") }
func (e *eventLog) RingEnd() error   { return e.add("ring_end") }
func (e *eventLog) GeomEnd() error   { return e.add("geom_end") }
func (e *eventLog) FeatEnd() error   { return e.add("feat_end") }

func (e *eventLog) GeomStart(geometryType GeometryType, dimensions Dimensions) error {
	name := geometryType.String()
	if name == "" {
		name = "GEOMETRY"
	}
	return e.add("geom_start " + name + " " + dimensions.String())
}

// Coords records one entry per coordinate so that readers chunking their
// sequences differently still produce comparable logs.
func (e *eventLog) Coords(coords CoordView) error {
	for i := 0; i < coords.NumCoords(); i++ {
		var b strings.Builder
		b.WriteString("coords (")
		for j := 0; j < coords.NumValues(); j++ {
			if j > 0 {
				b.WriteString(" ")
			}
			b.WriteString(strconv.FormatFloat(coords.Value(i, j), 'g', -1, 64))
		}
		b.WriteString(")")
		if err := e.add(b.String()); err != nil {
			return err
		}
	}
	return nil
}

var _ Visitor = (*eventLog)(nil)

// wktEvents parses a WKT string and returns its recorded event sequence.
func wktEvents(t *testing.T, wkt string) []string {
	t.Helper()
	var log eventLog
	if err := NewWKTReader().Visit(wkt, &log); err != nil {
		t.Fatalf("Visit(%q) failed: %v", wkt, err)
	}
	return log.events
}

// wktToWKB serializes one WKT geometry through the WKB writer.
func wktToWKB(t *testing.T, wkt string) []byte {
	t.Helper()

	writer := NewWKBWriter(memory.DefaultAllocator)
	if err := NewWKTReader().Visit(wkt, writer); err != nil {
		t.Fatalf("Visit(%q) failed: %v", wkt, err)
	}

	arr, err := writer.Finish()
	if err != nil {
		t.Fatalf("Finish() failed: %v", err)
	}
	defer arr.Release()
	return append([]byte(nil), binaryValue(t, arr, 0)...)
}

// errCheck fails unless err wraps sentinel and mentions substr.
func errCheck(t *testing.T, err, sentinel error, substr string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error containing %q but got nil", substr)
	}
	if sentinel != nil && !errors.Is(err, sentinel) {
		t.Fatalf("expected error wrapping %v but got: %v", sentinel, err)
	}
	if substr != "" && !strings.Contains(err.Error(), substr) {
		t.Fatalf("expected error containing %q but got: %v", substr, err)
	}
}

// binaryValue returns blob i of a Binary array.
func binaryValue(t *testing.T, arr arrow.Array, i int) []byte {
	t.Helper()
	bin, ok := arr.(*array.Binary)
	if !ok {
		t.Fatalf("expected *array.Binary but got %T", arr)
	}
	return bin.Value(i)
}

// stringValue returns string i of a String array.
func stringValue(t *testing.T, arr arrow.Array, i int) string {
	t.Helper()
	str, ok := arr.(*array.String)
	if !ok {
		t.Fatalf("expected *array.String but got %T", arr)
	}
	return str.Value(i)
}

// writeFeatures feeds WKT inputs ("" marks a null feature) into a writer's
// visitor.
func writeFeatures(t *testing.T, v Visitor, wkts ...string) {
	t.Helper()
	reader := NewWKTReader()
	for _, wkt := range wkts {
		if wkt == "" {
			if err := v.FeatStart(); err != nil {
				t.Fatalf("FeatStart() failed: %v", err)
			}
			if err := v.NullFeat(); err != nil {
				t.Fatalf("NullFeat() failed: %v", err)
			}
			if err := v.FeatEnd(); err != nil {
				t.Fatalf("FeatEnd() failed: %v", err)
			}
			continue
		}
		if err := reader.Visit(wkt, v); err != nil {
			t.Fatalf("Visit(%q) failed: %v", wkt, err)
		}
	}
}
