package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ckptgrad/ckptgrad/graph"
)

func TestTopoFromOrdersParentsBeforeChildren(t *testing.T) {
	x := graph.Param(mustTensor(t, 1, 1, []float32{1}), "x")
	y := graph.NewOp[float32](graph.OpAdd, "y", x, x)
	z := graph.NewOp[float32](graph.OpMul, "z", y, x)

	order := graph.TopoFrom(z)

	pos := map[*graph.Node[float32]]int{}
	for i, n := range order {
		pos[n] = i
	}

	require.Contains(t, pos, x)
	require.Contains(t, pos, y)
	require.Contains(t, pos, z)

	assert.Less(t, pos[x], pos[y])
	assert.Less(t, pos[y], pos[z])
	assert.Equal(t, len(order), 3, "each node appears exactly once despite x being referenced twice")
}

func TestZeroGradZeroesEveryRequiresGradNodeWithValue(t *testing.T) {
	x := graph.Param(mustTensor(t, 1, 2, []float32{1, 2}), "x")
	x.Grad = mustTensor(t, 1, 2, []float32{9, 9})

	y := graph.NewOp[float32](graph.OpAdd, "y", x, x)
	y.Value = mustTensor(t, 1, 2, []float32{2, 4})
	y.Grad = mustTensor(t, 1, 2, []float32{5, 5})

	require.NoError(t, graph.ZeroGrad(y))

	assert.Equal(t, []float32{0, 0}, x.Grad.Data())
	assert.Equal(t, []float32{0, 0}, y.Grad.Data())
}

func TestZeroGradSkipsNodesWithoutValue(t *testing.T) {
	x := graph.Param(mustTensor(t, 1, 2, []float32{1, 2}), "x")
	// x.Value is set by Param; simulate an evicted node with no value yet.
	x.Value = nil

	require.NoError(t, graph.ZeroGrad(x))
	assert.Nil(t, x.Grad)
}
