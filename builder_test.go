package geoarrow

import (
	"math"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"
)

// buildNative assembles a native array from WKT inputs ("" marks a null).
func buildNative(t *testing.T, typ Type, wkts ...string) arrow.Array {
	t.Helper()

	writer, err := NewNativeWriter(memory.DefaultAllocator, typ)
	require.NoError(t, err)
	writeFeatures(t, writer, wkts...)

	arr, err := writer.Finish()
	require.NoError(t, err)
	return arr
}

func float64Child(t *testing.T, arr arrow.Array, i int) []float64 {
	t.Helper()
	st, ok := arr.(*array.Struct)
	require.True(t, ok, "expected struct array, got %T", arr)
	return st.Field(i).(*array.Float64).Values()
}

func TestBuilderSeedPoint(t *testing.T) {
	arr := buildNative(t, TypePoint, "POINT (30 10)")
	defer arr.Release()

	require.Equal(t, 1, arr.Len())
	require.Equal(t, 0, arr.NullN())
	require.Nil(t, arr.Data().Buffers()[0], "no validity bitmap expected")
	require.Equal(t, []float64{30}, float64Child(t, arr, 0))
	require.Equal(t, []float64{10}, float64Child(t, arr, 1))
}

func TestBuilderSeedLinestring(t *testing.T) {
	arr := buildNative(t, TypeLinestring, "LINESTRING (0 1, 2 3)")
	defer arr.Release()

	list := arr.(*array.List)
	require.Equal(t, []int32{0, 2}, list.Offsets())
	require.Equal(t, []float64{0, 2}, float64Child(t, list.ListValues(), 0))
	require.Equal(t, []float64{1, 3}, float64Child(t, list.ListValues(), 1))
}

func TestBuilderSeedPolygon(t *testing.T) {
	arr := buildNative(t, TypePolygon, "POLYGON ((1 2, 2 3, 4 5, 1 2))")
	defer arr.Release()

	outer := arr.(*array.List)
	require.Equal(t, []int32{0, 1}, outer.Offsets())

	rings := outer.ListValues().(*array.List)
	require.Equal(t, []int32{0, 4}, rings.Offsets())
	require.Equal(t, []float64{1, 2, 4, 1}, float64Child(t, rings.ListValues(), 0))
	require.Equal(t, []float64{2, 3, 5, 2}, float64Child(t, rings.ListValues(), 1))
}

func TestBuilderSeedNullPoints(t *testing.T) {
	arr := buildNative(t, TypePoint, "POINT (30 10)", "", "")
	defer arr.Release()

	require.Equal(t, 3, arr.Len())
	require.Equal(t, 2, arr.NullN())
	require.Equal(t, []float64{30, 0, 0}, float64Child(t, arr, 0))
	require.Equal(t, []float64{10, 0, 0}, float64Child(t, arr, 1))

	validity := arr.Data().Buffers()[0]
	require.NotNil(t, validity)
	require.Equal(t, byte(0b00000001), validity.Bytes()[0])

	// visiting the null features emits null_feat
	view, err := NewArrayView(TypePoint)
	require.NoError(t, err)
	require.NoError(t, view.SetArray(arr.Data()))

	var log eventLog
	require.NoError(t, view.Visit(1, 2, &log))
	require.Equal(t, []string{
		"feat_start", "null_feat", "feat_end",
		"feat_start", "null_feat", "feat_end",
	}, log.events)
}

func TestBuilderValidityIdempotence(t *testing.T) {
	// all-valid input must not allocate a validity bitmap
	arr := buildNative(t, TypePoint, "POINT (1 2)", "POINT (3 4)")
	defer arr.Release()
	require.Nil(t, arr.Data().Buffers()[0])

	// the first null backfills ones for the features before it
	withNull := buildNative(t, TypePoint, "POINT (1 2)", "POINT (3 4)", "")
	defer withNull.Release()

	validity := withNull.Data().Buffers()[0]
	require.NotNil(t, validity)
	require.Equal(t, byte(0b00000011), validity.Bytes()[0])
}

func TestBuilderDimensionCoercion(t *testing.T) {
	tests := []struct {
		name    string
		typ     Type
		wkt     string
		ords    map[int]float64 // child index -> expected value
		nanOrds []int           // child indexes expected to be NaN
	}{
		{"zm to z keeps z", TypePointZ, "POINT ZM (1 2 3 4)",
			map[int]float64{0: 1, 1: 2, 2: 3}, nil},
		{"zm to m keeps m", TypePointM, "POINT ZM (1 2 3 4)",
			map[int]float64{0: 1, 1: 2, 2: 4}, nil},
		{"m to z fills nan", TypePointZ, "POINT M (1 2 3)",
			map[int]float64{0: 1, 1: 2}, []int{2}},
		{"xy to zm fills nan", TypePointZM, "POINT (1 2)",
			map[int]float64{0: 1, 1: 2}, []int{2, 3}},
		{"z to zm maps z", TypePointZM, "POINT Z (1 2 3)",
			map[int]float64{0: 1, 1: 2, 2: 3}, []int{3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arr := buildNative(t, tt.typ, tt.wkt)
			defer arr.Release()

			for child, want := range tt.ords {
				require.Equal(t, []float64{want}, float64Child(t, arr, child))
			}
			for _, child := range tt.nanOrds {
				got := float64Child(t, arr, child)
				require.Len(t, got, 1)
				require.True(t, math.IsNaN(got[0]), "child %d = %v, want NaN", child, got[0])
			}
		})
	}
}

func TestBuilderInterleaved(t *testing.T) {
	arr := buildNative(t, TypeInterleavedLinestring, "LINESTRING (0 1, 2 3)")
	defer arr.Release()

	list := arr.(*array.List)
	require.Equal(t, []int32{0, 2}, list.Offsets())

	fsl := list.ListValues().(*array.FixedSizeList)
	require.Equal(t, 2, fsl.Len())
	values := fsl.ListValues().(*array.Float64).Values()
	require.Equal(t, []float64{0, 1, 2, 3}, values)
}

func TestBuilderAppendBuffer(t *testing.T) {
	builder, err := NewBuilder(memory.DefaultAllocator, TypePoint)
	require.NoError(t, err)

	// buffer 1 is x, buffer 2 is y
	require.NoError(t, builder.AppendBuffer(1, arrow.Float64Traits.CastToBytes([]float64{30})))
	require.NoError(t, builder.AppendBuffer(2, arrow.Float64Traits.CastToBytes([]float64{10})))

	arr, err := builder.Finish()
	require.NoError(t, err)
	defer arr.Release()

	require.Equal(t, 1, arr.Len())
	require.Equal(t, []float64{30}, float64Child(t, arr, 0))

	require.Error(t, builder.AppendBuffer(7, nil))
}

func TestBuilderSetOwnedBuffer(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	builder, err := NewBuilder(mem, TypePoint)
	require.NoError(t, err)

	for slot, value := range map[int]float64{1: 30, 2: 10} {
		buf := memory.NewResizableBuffer(mem)
		buf.Resize(8)
		copy(buf.Bytes(), arrow.Float64Traits.CastToBytes([]float64{value}))
		require.NoError(t, builder.SetOwnedBuffer(slot, buf))
	}

	arr, err := builder.Finish()
	require.NoError(t, err)

	require.Equal(t, []float64{30}, float64Child(t, arr, 0))
	require.Equal(t, []float64{10}, float64Child(t, arr, 1))

	// releasing the array runs each installed buffer's deallocator once
	arr.Release()
}

func TestBuilderFinishResets(t *testing.T) {
	writer, err := NewNativeWriter(memory.DefaultAllocator, TypeLinestring)
	require.NoError(t, err)

	writeFeatures(t, writer, "LINESTRING (0 1, 2 3)")
	first, err := writer.Finish()
	require.NoError(t, err)
	defer first.Release()

	writeFeatures(t, writer, "LINESTRING (4 5, 6 7)", "LINESTRING (8 9, 10 11)")
	second, err := writer.Finish()
	require.NoError(t, err)
	defer second.Release()

	require.Equal(t, 1, first.Len())
	require.Equal(t, 2, second.Len())
	require.Equal(t, []int32{0, 2, 4}, second.(*array.List).Offsets())
}

func TestBuilderLargeOffsetsUnsupported(t *testing.T) {
	_, err := NewBuilder(memory.DefaultAllocator, TypeWKBLarge)
	errCheck(t, err, ErrUnsupportedType, "")
}
