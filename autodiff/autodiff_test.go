package autodiff_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ckptgrad/ckptgrad/autodiff"
	"github.com/ckptgrad/ckptgrad/checkpoint"
	"github.com/ckptgrad/ckptgrad/compute"
	"github.com/ckptgrad/ckptgrad/graph"
	"github.com/ckptgrad/ckptgrad/numeric"
	"github.com/ckptgrad/ckptgrad/ops"
	"github.com/ckptgrad/ckptgrad/tensor"
)

func engine() compute.Engine[float32] {
	return compute.NewCPUEngine[float32](numeric.Float32Ops{})
}

func mt(t *testing.T, rows, cols int, data []float32) *tensor.Tensor[float32] {
	t.Helper()

	tt, err := tensor.New[float32](rows, cols, data)
	require.NoError(t, err)

	return tt
}

// buildTinyMLP is end-to-end scenario 1 from the testable-properties list:
// loss = sum(matmul(x,W)+b).
func buildTinyMLP(t *testing.T) (loss, w *graph.Node[float32]) {
	t.Helper()

	ctx := context.Background()
	eng := engine()

	x := graph.Constant(mt(t, 2, 3, []float32{1, 2, 3, 4, 5, 6}), "x")
	wNode := graph.Param(mt(t, 3, 2, []float32{1, 0, 0, 1, 1, 1}), "w")
	b := graph.Constant(mt(t, 1, 2, []float32{0, 0}), "b")

	mm := ops.MatMul(x, wNode, "mm")
	added := ops.Add(mm, b, "added")
	lossNode := ops.Sum(added, "loss")

	autodiff.ComputeForwardValues(ctx, lossNode, eng)

	return lossNode, wNode
}

func TestBackwardTinyMLPMatchesClosedForm(t *testing.T) {
	ctx := context.Background()
	eng := engine()

	loss, w := buildTinyMLP(t)

	require.NoError(t, autodiff.Backward(ctx, loss, nil, eng))

	x := loss.Inputs[0].Inputs[0].Inputs[0] // loss -> added -> mm -> x
	xT, err := eng.Transpose(ctx, x.Value)
	require.NoError(t, err)

	ones, err := tensor.Ones[float32](2, 2)
	require.NoError(t, err)

	expected, err := eng.MatMul(ctx, xT, ones)
	require.NoError(t, err)

	assert.Equal(t, expected.Data(), w.Grad.Data())
}

func TestBackwardScalarRootDefaultsSeedToOnes(t *testing.T) {
	ctx := context.Background()
	eng := engine()

	x := graph.Param(mt(t, 1, 1, []float32{3}), "x")
	y := ops.Mul(x, x, "y") // y = x^2, dy/dx = 2x

	autodiff.ComputeForwardValues(ctx, y, eng)
	require.NoError(t, autodiff.Backward(ctx, y, nil, eng))

	assert.InDelta(t, float32(6), x.Grad.At(0, 0), 1e-5)
}

func TestBackwardFailsOnMissingNonCheckpointedParent(t *testing.T) {
	ctx := context.Background()
	eng := engine()

	loss, _ := buildTinyMLP(t)

	mm := loss.Inputs[0].Inputs[0]
	mm.Value = tensor.Empty[float32]() // simulate an evicted, non-checkpointed ancestor

	err := autodiff.Backward(ctx, loss, nil, eng)
	require.Error(t, err)
	assert.True(t, errors.Is(err, autodiff.ErrMissingActivationNotCheckpointed))
}

func TestBackwardRecomputesThroughCheckpoint(t *testing.T) {
	ctx := context.Background()
	eng := engine()

	loss, w := buildTinyMLP(t)

	mm := loss.Inputs[0].Inputs[0]
	checkpoint.MarkNodeCheckpoint(mm, checkpoint.Options{})
	checkpoint.CaptureCheckpointSnapshots(loss)
	checkpoint.EvictNonCheckpointValues(loss)

	// eviction keeps the checkpoint mm itself and clears x and w behind it
	require.True(t, mm.Value.Size())
	require.False(t, mm.Inputs[1].Value.Size())

	require.NoError(t, autodiff.Backward(ctx, loss, nil, eng))

	require.True(t, mm.Value.Size(), "recomputation should have refilled mm's value")

	x := mm.Inputs[0]
	xT, err := eng.Transpose(ctx, x.Value)
	require.NoError(t, err)

	ones, err := tensor.Ones[float32](2, 2)
	require.NoError(t, err)

	expected, err := eng.MatMul(ctx, xT, ones)
	require.NoError(t, err)

	assert.Equal(t, expected.Data(), w.Grad.Data())
}

func TestJVPDualityWithBackward(t *testing.T) {
	ctx := context.Background()
	eng := engine()

	x := graph.Param(mt(t, 1, 1, []float32{2}), "x")
	w := graph.Param(mt(t, 1, 1, []float32{3}), "w")
	y := ops.Mul(x, w, "y")

	autodiff.ComputeForwardValues(ctx, y, eng)

	v := mt(t, 1, 1, []float32{5}) // seed tangent on x
	tangent, err := autodiff.JVP[float32](ctx, y, map[*graph.Node[float32]]*tensor.Tensor[float32]{x: v}, eng)
	require.NoError(t, err)

	u := mt(t, 1, 1, []float32{1}) // cotangent seed on y
	require.NoError(t, autodiff.Backward(ctx, y, u, eng))

	// <u, jvp> should equal <v, grad_x> for this scalar chain.
	lhs := u.At(0, 0) * tangent.At(0, 0)
	rhs := v.At(0, 0) * x.Grad.At(0, 0)

	assert.InDelta(t, lhs, rhs, 1e-5)
}

func TestJVPEmptySeedMapYieldsZero(t *testing.T) {
	ctx := context.Background()
	eng := engine()

	x := graph.Param(mt(t, 1, 2, []float32{1, 2}), "x")
	y := ops.Sum(x, "y")

	autodiff.ComputeForwardValues(ctx, y, eng)

	tangent, err := autodiff.JVP[float32](ctx, y, map[*graph.Node[float32]]*tensor.Tensor[float32]{}, eng)
	require.NoError(t, err)

	assert.Equal(t, float32(0), tangent.At(0, 0))
}

func TestComputeForwardValuesContinuesPastFailingBranch(t *testing.T) {
	ctx := context.Background()
	eng := engine()

	// mismatched shapes make forwardAdd fail for this node, but an
	// unrelated sibling branch must still get a value.
	bad := ops.Add(
		graph.Constant(mt(t, 1, 2, []float32{1, 2}), "a"),
		graph.Constant(mt(t, 1, 3, []float32{1, 2, 3}), "b"),
		"bad",
	)
	good := ops.Sum(graph.Constant(mt(t, 1, 2, []float32{1, 2}), "c"), "good")

	root := ops.Add(bad, good, "root")

	autodiff.ComputeForwardValues(ctx, root, eng)

	assert.False(t, bad.Value != nil && bad.Value.Size())
	require.True(t, good.Value.Size())
	assert.InDelta(t, float32(3), good.Value.At(0, 0), 1e-6)
}
