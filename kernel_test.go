package geoarrow

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"
)

func TestVoidKernel(t *testing.T) {
	kernel, err := NewKernel(memory.DefaultAllocator, "void")
	require.NoError(t, err)
	defer kernel.Release()

	view, err := SchemaViewFromType(TypePoint)
	require.NoError(t, err)

	outType, err := kernel.Start(view, "")
	require.NoError(t, err)
	require.True(t, arrow.TypeEqual(arrow.Null, outType))

	batch := buildNative(t, TypePoint, "POINT (1 2)", "POINT (3 4)")
	defer batch.Release()

	out, err := kernel.PushBatch(batch.Data())
	require.NoError(t, err)
	defer out.Release()
	require.Equal(t, 2, out.Len())
	require.Equal(t, 2, out.NullN())

	final, err := kernel.Finish()
	require.NoError(t, err)
	require.Nil(t, final)
}

func TestVoidAggKernel(t *testing.T) {
	kernel, err := NewKernel(memory.DefaultAllocator, "void_agg")
	require.NoError(t, err)
	defer kernel.Release()

	view, err := SchemaViewFromType(TypePoint)
	require.NoError(t, err)
	_, err = kernel.Start(view, "")
	require.NoError(t, err)

	batch := buildNative(t, TypePoint, "POINT (1 2)")
	defer batch.Release()

	out, err := kernel.PushBatch(batch.Data())
	require.NoError(t, err)
	require.Nil(t, out)

	final, err := kernel.Finish()
	require.NoError(t, err)
	defer final.Release()
	require.Equal(t, 1, final.Len())
	require.Equal(t, 1, final.NullN())
}

func boxValues(t *testing.T, arr arrow.Array, row int) [4]float64 {
	t.Helper()
	st := arr.(*array.Struct)
	var out [4]float64
	for i := range out {
		out[i] = st.Field(i).(*array.Float64).Value(row)
	}
	return out
}

func TestBoxKernelMultipoint(t *testing.T) {
	kernel, err := NewKernel(memory.DefaultAllocator, "box")
	require.NoError(t, err)
	defer kernel.Release()

	view, err := SchemaViewFromType(TypeMultiPoint)
	require.NoError(t, err)

	outType, err := kernel.Start(view, "")
	require.NoError(t, err)
	require.True(t, arrow.TypeEqual(TypeBox.Storage(), outType))

	batch := buildNative(t, TypeMultiPoint, "MULTIPOINT ((8 9), (10 11))")
	defer batch.Release()

	out, err := kernel.PushBatch(batch.Data())
	require.NoError(t, err)
	defer out.Release()

	require.Equal(t, 1, out.Len())
	require.Equal(t, [4]float64{8, 9, 10, 11}, boxValues(t, out, 0))
}

func TestBoxKernelSerializedInput(t *testing.T) {
	kernel, err := NewKernel(memory.DefaultAllocator, "box")
	require.NoError(t, err)
	defer kernel.Release()

	view, err := SchemaViewFromType(TypeWKT)
	require.NoError(t, err)
	_, err = kernel.Start(view, "")
	require.NoError(t, err)

	writer, err := NewArrayWriter(memory.DefaultAllocator, TypeWKT)
	require.NoError(t, err)
	writeFeatures(t, writer.Visitor(), "LINESTRING (0 5, 2 3)", "POINT (-1 4)")
	batch, err := writer.Finish()
	require.NoError(t, err)
	defer batch.Release()

	out, err := kernel.PushBatch(batch.Data())
	require.NoError(t, err)
	defer out.Release()

	require.Equal(t, 2, out.Len())
	require.Equal(t, [4]float64{0, 3, 2, 5}, boxValues(t, out, 0))
	require.Equal(t, [4]float64{-1, 4, -1, 4}, boxValues(t, out, 1))
}

func TestBoxAggKernel(t *testing.T) {
	kernel, err := NewKernel(memory.DefaultAllocator, "box_agg")
	require.NoError(t, err)
	defer kernel.Release()

	view, err := SchemaViewFromType(TypePoint)
	require.NoError(t, err)
	_, err = kernel.Start(view, "")
	require.NoError(t, err)

	first := buildNative(t, TypePoint, "POINT (8 9)")
	defer first.Release()
	second := buildNative(t, TypePoint, "POINT (10 11)", "POINT (9 10)")
	defer second.Release()

	out, err := kernel.PushBatch(first.Data())
	require.NoError(t, err)
	require.Nil(t, out)
	_, err = kernel.PushBatch(second.Data())
	require.NoError(t, err)

	final, err := kernel.Finish()
	require.NoError(t, err)
	defer final.Release()

	require.Equal(t, 1, final.Len())
	require.Equal(t, [4]float64{8, 9, 10, 11}, boxValues(t, final, 0))
}

func TestUnknownKernel(t *testing.T) {
	_, err := NewKernel(memory.DefaultAllocator, "frobnicate")
	errCheck(t, err, ErrInvalid, "unknown kernel")
}
