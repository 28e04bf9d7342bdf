package tensor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ckptgrad/ckptgrad/device"
	"github.com/ckptgrad/ckptgrad/tensor"
)

func TestNewRejectsNegativeDimensions(t *testing.T) {
	_, err := tensor.New[float32](-1, 2, nil)
	require.Error(t, err)
}

func TestNewRejectsMismatchedDataLength(t *testing.T) {
	_, err := tensor.New[float32](2, 2, []float32{1, 2, 3})
	require.Error(t, err)
}

func TestNewWithNilDataAllocatesZeroed(t *testing.T) {
	tt, err := tensor.New[float32](2, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 0, 0, 0, 0}, tt.Data())
}

func TestEmptyReportsUnmaterialized(t *testing.T) {
	e := tensor.Empty[float32]()
	assert.False(t, e.Size())
	assert.Equal(t, []int{0, 0}, e.Shape())
}

func TestZerosAndOnes(t *testing.T) {
	z, err := tensor.Zeros[float32](2, 2)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 0, 0}, z.Data())

	o, err := tensor.Ones[float32](1, 3)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 1, 1}, o.Data())
}

func TestZerosLikeAndOnesLikeMatchShape(t *testing.T) {
	src, err := tensor.New[float32](2, 3, nil)
	require.NoError(t, err)

	z, err := tensor.ZerosLike(src)
	require.NoError(t, err)
	assert.True(t, z.ShapeEquals(src))

	o, err := tensor.OnesLike(src)
	require.NoError(t, err)
	assert.True(t, o.ShapeEquals(src))
}

func TestRandnIsReproducibleForSameSeed(t *testing.T) {
	a, err := tensor.Randn[float32](2, 2, 99)
	require.NoError(t, err)

	b, err := tensor.Randn[float32](2, 2, 99)
	require.NoError(t, err)

	assert.Equal(t, a.Data(), b.Data())
}

func TestAtAndSet(t *testing.T) {
	tt, err := tensor.New[float32](2, 2, []float32{1, 2, 3, 4})
	require.NoError(t, err)

	assert.Equal(t, float32(3), tt.At(1, 0))

	tt.Set(1, 0, 99)
	assert.Equal(t, float32(99), tt.At(1, 0))
}

func TestCopyIsIndependent(t *testing.T) {
	tt, err := tensor.New[float32](1, 2, []float32{1, 2})
	require.NoError(t, err)

	cp := tt.Copy()
	cp.Set(0, 0, 42)

	assert.Equal(t, float32(1), tt.At(0, 0))
	assert.Equal(t, float32(42), cp.At(0, 0))
}

func TestCopyOfEmptyReturnsEmpty(t *testing.T) {
	e := tensor.Empty[float32]()
	cp := e.Copy()
	assert.False(t, cp.Size())
}

func TestReleaseRecordsFreedElementCountAndLeavesDataIntact(t *testing.T) {
	a, err := tensor.New[float32](1, 3, []float32{1, 2, 3})
	require.NoError(t, err)

	before := device.FreedElementCount()

	a.Release()

	assert.Equal(t, before+3, device.FreedElementCount())
	// Release does not mutate the tensor itself, since the same buffer may
	// still be aliased by a checkpoint's saved-input snapshot.
	assert.True(t, a.Size())
	assert.Equal(t, []float32{1, 2, 3}, a.Data())
}

func TestReleaseOfNilOrEmptyIsANoOp(t *testing.T) {
	var nilTensor *tensor.Tensor[float32]
	nilTensor.Release()

	before := device.FreedElementCount()
	tensor.Empty[float32]().Release()
	assert.Equal(t, before, device.FreedElementCount())
}

func TestAddInPlaceAccumulates(t *testing.T) {
	a, err := tensor.New[float32](1, 2, []float32{1, 2})
	require.NoError(t, err)

	b, err := tensor.New[float32](1, 2, []float32{10, 20})
	require.NoError(t, err)

	require.NoError(t, a.AddInPlace(b))
	assert.Equal(t, []float32{11, 22}, a.Data())
}

func TestAddInPlaceRejectsShapeMismatch(t *testing.T) {
	a, err := tensor.New[float32](1, 2, []float32{1, 2})
	require.NoError(t, err)

	b, err := tensor.New[float32](2, 1, []float32{1, 2})
	require.NoError(t, err)

	assert.Error(t, a.AddInPlace(b))
}

func TestShapeEqualsHandlesNils(t *testing.T) {
	var a, b *tensor.Tensor[float32]
	assert.True(t, a.ShapeEquals(b))

	tt, err := tensor.New[float32](1, 1, []float32{1})
	require.NoError(t, err)
	assert.False(t, tt.ShapeEquals(nil))
}

func TestStringOfEmptyTensor(t *testing.T) {
	e := tensor.Empty[float32]()
	assert.Equal(t, "Tensor(empty)", e.String())
}

func TestFloat64ElementType(t *testing.T) {
	tt, err := tensor.New[float64](1, 2, []float64{1.5, 2.5})
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2.5}, tt.Data())
}
