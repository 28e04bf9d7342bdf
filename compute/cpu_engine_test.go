package compute_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ckptgrad/ckptgrad/compute"
	"github.com/ckptgrad/ckptgrad/numeric"
	"github.com/ckptgrad/ckptgrad/tensor"
)

func newEngine() *compute.CPUEngine[float32] {
	return compute.NewCPUEngine[float32](numeric.Float32Ops{})
}

func mt(t *testing.T, rows, cols int, data []float32) *tensor.Tensor[float32] {
	t.Helper()

	tt, err := tensor.New[float32](rows, cols, data)
	require.NoError(t, err)

	return tt
}

func TestCPUEngineAddSubMul(t *testing.T) {
	ctx := context.Background()
	e := newEngine()

	a := mt(t, 1, 2, []float32{3, 4})
	b := mt(t, 1, 2, []float32{1, 2})

	sum, err := e.Add(ctx, a, b)
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 6}, sum.Data())

	diff, err := e.Sub(ctx, a, b)
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 2}, diff.Data())

	prod, err := e.Mul(ctx, a, b)
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 8}, prod.Data())
}

func TestCPUEngineBinaryOpRejectsShapeMismatch(t *testing.T) {
	ctx := context.Background()
	e := newEngine()

	a := mt(t, 1, 2, []float32{1, 2})
	b := mt(t, 2, 1, []float32{1, 2})

	_, err := e.Add(ctx, a, b)
	assert.Error(t, err)
}

func TestCPUEngineBinaryOpRejectsEmptyInput(t *testing.T) {
	ctx := context.Background()
	e := newEngine()

	_, err := e.Add(ctx, tensor.Empty[float32](), tensor.Empty[float32]())
	assert.Error(t, err)
}

func TestCPUEngineMatMul(t *testing.T) {
	ctx := context.Background()
	e := newEngine()

	a := mt(t, 2, 3, []float32{1, 2, 3, 4, 5, 6})
	b := mt(t, 3, 2, []float32{1, 0, 0, 1, 1, 1})

	out, err := e.MatMul(ctx, a, b)
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 5, 10, 11}, out.Data())
}

func TestCPUEngineMatMulRejectsInnerDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	e := newEngine()

	a := mt(t, 2, 3, []float32{1, 2, 3, 4, 5, 6})
	b := mt(t, 2, 2, []float32{1, 0, 0, 1})

	_, err := e.MatMul(ctx, a, b)
	assert.Error(t, err)
}

func TestCPUEngineTranspose(t *testing.T) {
	ctx := context.Background()
	e := newEngine()

	a := mt(t, 2, 3, []float32{1, 2, 3, 4, 5, 6})
	out, err := e.Transpose(ctx, a)
	require.NoError(t, err)

	assert.Equal(t, 3, out.Rows())
	assert.Equal(t, 2, out.Cols())
	assert.Equal(t, []float32{1, 4, 2, 5, 3, 6}, out.Data())
}

func TestCPUEngineSum(t *testing.T) {
	ctx := context.Background()
	e := newEngine()

	a := mt(t, 2, 2, []float32{1, 2, 3, 4})
	out, err := e.Sum(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, float32(10), out.At(0, 0))
}

func TestCPUEngineExpAndLogAreInverses(t *testing.T) {
	ctx := context.Background()
	e := newEngine()

	a := mt(t, 1, 2, []float32{1, 2})

	exp, err := e.Exp(ctx, a)
	require.NoError(t, err)

	back, err := e.Log(ctx, exp)
	require.NoError(t, err)

	assert.InDelta(t, float32(1), back.At(0, 0), 1e-5)
	assert.InDelta(t, float32(2), back.At(0, 1), 1e-5)
}

func TestCPUEngineSoftmaxRowsSumToOne(t *testing.T) {
	ctx := context.Background()
	e := newEngine()

	a := mt(t, 2, 3, []float32{1, 2, 3, 0, 0, 0})

	out, err := e.Softmax(ctx, a)
	require.NoError(t, err)

	row0 := out.At(0, 0) + out.At(0, 1) + out.At(0, 2)
	row1 := out.At(1, 0) + out.At(1, 1) + out.At(1, 2)

	assert.InDelta(t, float32(1), row0, 1e-5)
	assert.InDelta(t, float32(1), row1, 1e-5)
	assert.InDelta(t, float32(1.0/3), out.At(1, 0), 1e-5)
}

func TestCPUEngineFill(t *testing.T) {
	ctx := context.Background()
	e := newEngine()

	a := mt(t, 1, 3, []float32{0, 0, 0})
	require.NoError(t, e.Fill(ctx, a, 7))
	assert.Equal(t, []float32{7, 7, 7}, a.Data())
}

func TestCPUEngineFillRejectsEmptyTarget(t *testing.T) {
	ctx := context.Background()
	e := newEngine()

	assert.Error(t, e.Fill(ctx, tensor.Empty[float32](), 1))
}

func TestCPUEngineCopy(t *testing.T) {
	ctx := context.Background()
	e := newEngine()

	src := mt(t, 1, 2, []float32{1, 2})
	dst := mt(t, 1, 2, []float32{0, 0})

	require.NoError(t, e.Copy(ctx, dst, src))
	assert.Equal(t, []float32{1, 2}, dst.Data())
}

func TestCPUEngineCopyRejectsShapeMismatch(t *testing.T) {
	ctx := context.Background()
	e := newEngine()

	src := mt(t, 1, 2, []float32{1, 2})
	dst := mt(t, 2, 1, []float32{0, 0})

	assert.Error(t, e.Copy(ctx, dst, src))
}

func TestCPUEngineMulScalar(t *testing.T) {
	ctx := context.Background()
	e := newEngine()

	a := mt(t, 1, 3, []float32{1, 2, 3})

	out, err := e.MulScalar(ctx, a, 2)
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 4, 6}, out.Data())
}

func TestCPUEngineDestTensorShapeMismatchErrors(t *testing.T) {
	ctx := context.Background()
	e := newEngine()

	a := mt(t, 1, 2, []float32{1, 2})
	b := mt(t, 1, 2, []float32{3, 4})
	wrongDst := mt(t, 2, 1, []float32{0, 0})

	_, err := e.Add(ctx, a, b, wrongDst)
	assert.Error(t, err)
}
