package geoarrow

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/go-cmp/cmp"
)

// WKB fixtures are assembled with an explicit byte order so the assertions
// hold on hosts of either endianness.

func appendUint32(dst []byte, order binary.ByteOrder, v uint32) []byte {
	var scratch [4]byte
	order.PutUint32(scratch[:], v)
	return append(dst, scratch[:]...)
}

func appendDoubles(dst []byte, order binary.ByteOrder, values ...float64) []byte {
	var scratch [8]byte
	for _, v := range values {
		order.PutUint64(scratch[:], math.Float64bits(v))
		dst = append(dst, scratch[:]...)
	}
	return dst
}

// wkbPointLE assembles a little-endian WKB point.
func wkbPointLE(x, y float64) []byte {
	out := []byte{0x01}
	out = appendUint32(out, binary.LittleEndian, 1)
	return appendDoubles(out, binary.LittleEndian, x, y)
}

func wkbEvents(t *testing.T, wkb []byte) []string {
	t.Helper()
	var log eventLog
	if err := NewWKBReader().Visit(wkb, &log); err != nil {
		t.Fatalf("Visit failed: %v", err)
	}
	return log.events
}

func TestWKBReaderPoint(t *testing.T) {
	want := []string{
		"feat_start",
		"geom_start POINT xy",
		"coords (30 10)",
		"geom_end",
		"feat_end",
	}
	if diff := cmp.Diff(want, wkbEvents(t, wkbPointLE(30, 10))); diff != "" {
		t.Errorf("event mismatch (-want +got):\n%s", diff)
	}
}

func TestWKBReaderEndianIndependence(t *testing.T) {
	be := []byte{0x00}
	be = appendUint32(be, binary.BigEndian, 1)
	be = appendDoubles(be, binary.BigEndian, 30, 10)

	if diff := cmp.Diff(wkbEvents(t, wkbPointLE(30, 10)), wkbEvents(t, be)); diff != "" {
		t.Errorf("big-endian events differ from little-endian (-le +be):\n%s", diff)
	}
}

func TestWKBReaderISODimensions(t *testing.T) {
	tests := []struct {
		code   uint32
		coords []float64
		want   string
	}{
		{1001, []float64{1, 2, 3}, "geom_start POINT xyz"},
		{2001, []float64{1, 2, 3}, "geom_start POINT xym"},
		{3001, []float64{1, 2, 3, 4}, "geom_start POINT xyzm"},
	}

	for _, tt := range tests {
		blob := []byte{0x01}
		blob = appendUint32(blob, binary.LittleEndian, tt.code)
		blob = appendDoubles(blob, binary.LittleEndian, tt.coords...)

		events := wkbEvents(t, blob)
		if events[1] != tt.want {
			t.Errorf("code %d: geom_start = %q, want %q", tt.code, events[1], tt.want)
		}
	}
}

func TestWKBReaderEWKB(t *testing.T) {
	// has-Z flag
	z := []byte{0x01}
	z = appendUint32(z, binary.LittleEndian, 0x80000001)
	z = appendDoubles(z, binary.LittleEndian, 1, 2, 3)
	if events := wkbEvents(t, z); events[1] != "geom_start POINT xyz" {
		t.Errorf("EWKB Z geom_start = %q", events[1])
	}

	// embedded SRID is consumed and discarded
	srid := []byte{0x01}
	srid = appendUint32(srid, binary.LittleEndian, 0x20000001)
	srid = appendUint32(srid, binary.LittleEndian, 4326)
	srid = appendDoubles(srid, binary.LittleEndian, 30, 10)

	if diff := cmp.Diff(wkbEvents(t, wkbPointLE(30, 10)), wkbEvents(t, srid)); diff != "" {
		t.Errorf("SRID-carrying events differ (-plain +srid):\n%s", diff)
	}
}

func TestWKBReaderErrors(t *testing.T) {
	t.Run("empty buffer", func(t *testing.T) {
		_, err := NewWKBReader().Read(nil)
		errCheck(t, err, ErrTooFewBytes, "expected endian byte")
	})

	t.Run("bad endian byte", func(t *testing.T) {
		_, err := NewWKBReader().Read([]byte{0x02})
		errCheck(t, err, ErrInvalid, "endian byte")
	})

	t.Run("unknown geometry type", func(t *testing.T) {
		blob := appendUint32([]byte{0x01}, binary.LittleEndian, 99)
		_, err := NewWKBReader().Read(blob)
		errCheck(t, err, ErrInvalid, "geometry type code")
	})

	t.Run("every truncation fails cleanly", func(t *testing.T) {
		full := wktToWKB(t, "MULTIPOLYGON (((0 0, 1 0, 0 1, 0 0)), ((2 2, 3 2, 2 3, 2 2)))")
		reader := NewWKBReader()
		for n := 0; n < len(full); n++ {
			if _, err := reader.Read(full[:n]); err == nil {
				t.Fatalf("Read of %d/%d bytes succeeded, want error", n, len(full))
			} else if !bytes.Contains([]byte(err.Error()), []byte("end of buffer")) &&
				!bytes.Contains([]byte(err.Error()), []byte("remaining")) {
				t.Fatalf("Read of %d bytes: unexpected error: %v", n, err)
			}
		}
	})

	t.Run("trailing byte", func(t *testing.T) {
		blob := append(wkbPointLE(30, 10), 0x00)
		view, err := NewWKBReader().Read(blob)
		errCheck(t, err, ErrTooManyBytes, "")
		if len(view.Nodes) != 1 {
			t.Fatalf("output not populated: %d nodes", len(view.Nodes))
		}
	})

	t.Run("recursion cap", func(t *testing.T) {
		var blob []byte
		for i := 0; i < 300; i++ {
			blob = append(blob, 0x01)
			blob = appendUint32(blob, binary.LittleEndian, 7)
			blob = appendUint32(blob, binary.LittleEndian, 1)
		}
		blob = append(blob, wkbPointLE(0, 0)...)

		_, err := NewWKBReader().Read(blob)
		errCheck(t, err, ErrRecursion, "")
	})
}

func TestWKBRoundTrip(t *testing.T) {
	tests := []string{
		"POINT (30 10)",
		"POINT Z (1 2 3)",
		"POINT ZM (1 2 3 4)",
		"LINESTRING (0 1, 2 3)",
		"LINESTRING EMPTY",
		"POLYGON ((1 2, 2 3, 4 5, 1 2))",
		"POLYGON ((0 0, 4 0, 4 4, 0 0), (1 1, 2 1, 1 2, 1 1))",
		"MULTIPOINT ((8 9), (10 11))",
		"MULTIPOINT EMPTY",
		"MULTILINESTRING ((0 1, 2 3), (4 5, 6 7))",
		"MULTIPOLYGON (((0 0, 1 0, 0 1, 0 0)))",
		"GEOMETRYCOLLECTION (POINT (30 10), LINESTRING (0 1, 2 3))",
		"GEOMETRYCOLLECTION EMPTY",
	}

	reader := NewWKBReader()
	for _, wkt := range tests {
		t.Run(wkt, func(t *testing.T) {
			first := wktToWKB(t, wkt)

			writer := NewWKBWriter(memory.DefaultAllocator)
			if err := reader.Visit(first, writer); err != nil {
				t.Fatalf("Visit failed: %v", err)
			}
			arr, err := writer.Finish()
			if err != nil {
				t.Fatalf("Finish() failed: %v", err)
			}
			defer arr.Release()

			if !bytes.Equal(first, binaryValue(t, arr, 0)) {
				t.Errorf("WKB round trip is not byte-identical:\n%x\n%x",
					first, binaryValue(t, arr, 0))
			}
		})
	}
}

func TestWKBEmptyPointConvention(t *testing.T) {
	blob := wktToWKB(t, "POINT EMPTY")

	want := len(wkbPointLE(0, 0))
	if len(blob) != want {
		t.Fatalf("empty point WKB is %d bytes, want %d", len(blob), want)
	}

	events := wkbEvents(t, blob)
	if events[2] != "coords (NaN NaN)" {
		t.Errorf("empty point coords = %q, want NaN NaN", events[2])
	}
}

func TestWKBSeedPoint(t *testing.T) {
	if nativeEndianWKB != 0x01 {
		t.Skip("seed bytes assume a little-endian host")
	}

	want := []byte{
		0x01,
		0x01, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x3e, 0x40,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x24, 0x40,
	}
	if got := wktToWKB(t, "POINT (30 10)"); !bytes.Equal(got, want) {
		t.Errorf("WKB = %x, want %x", got, want)
	}
}

func TestWKTToWKBToWKT(t *testing.T) {
	tests := []string{
		"POINT (30 10)",
		"LINESTRING ZM (1 2 3 4, 5 6 7 8)",
		"POLYGON ((0 0, 4 0, 4 4, 0 0), (1 1, 2 1, 1 2, 1 1))",
		"MULTIPOINT ((8 9), (10 11))",
		"GEOMETRYCOLLECTION (POINT (30 10), MULTIPOLYGON (((0 0, 1 0, 0 1, 0 0))))",
	}

	reader := NewWKBReader()
	for _, wkt := range tests {
		t.Run(wkt, func(t *testing.T) {
			writer := NewWKTWriter(memory.DefaultAllocator)
			if err := reader.Visit(wktToWKB(t, wkt), writer); err != nil {
				t.Fatalf("Visit failed: %v", err)
			}
			arr, err := writer.Finish()
			if err != nil {
				t.Fatalf("Finish() failed: %v", err)
			}
			defer arr.Release()

			if got := stringValue(t, arr, 0); got != wkt {
				t.Errorf("WKT -> WKB -> WKT = %q, want %q", got, wkt)
			}
		})
	}
}
