package ops_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zerfoo/float16"

	"github.com/ckptgrad/ckptgrad/compute"
	"github.com/ckptgrad/ckptgrad/graph"
	"github.com/ckptgrad/ckptgrad/numeric"
	"github.com/ckptgrad/ckptgrad/ops"
	"github.com/ckptgrad/ckptgrad/tensor"
)

// tinyMLPLoss builds sum(matmul(x,w)+b) and runs it forward, returning the
// scalar loss value as a float64 for cross-dtype comparison.
func tinyMLPLoss[T tensor.Numeric](t *testing.T, ctx context.Context, eng compute.Engine[T], conv func(float64) T, toF64 func(T) float64) float64 {
	t.Helper()

	x, err := tensor.New[T](2, 3, []T{conv(1), conv(2), conv(3), conv(4), conv(5), conv(6)})
	require.NoError(t, err)

	w, err := tensor.New[T](3, 2, []T{conv(1), conv(0), conv(0), conv(1), conv(1), conv(1)})
	require.NoError(t, err)

	b, err := tensor.New[T](1, 2, []T{conv(0), conv(0)})
	require.NoError(t, err)

	xNode := graph.Param(x, "x")
	wNode := graph.Param(w, "w")
	bNode := graph.Constant(b, "b")

	mm := ops.MatMul(xNode, wNode, "mm")
	added := ops.Add(mm, bNode, "added")
	loss := ops.Sum(added, "loss")

	for _, n := range graph.TopoFrom(loss) {
		if n.IsLeaf() {
			continue
		}

		v, err := ops.ForwardEvalNode(ctx, n, eng)
		require.NoError(t, err)
		n.Value = v
	}

	return toF64(loss.Value.At(0, 0))
}

// TestTinyMLPLossIsConsistentAcrossDtypes exercises the same forward graph
// under float32, float64 and (at reduced tolerance) float16 engines and
// checks they all land on the same scalar loss.
func TestTinyMLPLossIsConsistentAcrossDtypes(t *testing.T) {
	ctx := context.Background()

	f32 := tinyMLPLoss[float32](t, ctx, compute.NewCPUEngine[float32](numeric.Float32Ops{}),
		func(f float64) float32 { return float32(f) },
		func(v float32) float64 { return float64(v) },
	)

	f64 := tinyMLPLoss[float64](t, ctx, compute.NewCPUEngine[float64](numeric.Float64Ops{}),
		func(f float64) float64 { return f },
		func(v float64) float64 { return v },
	)

	f16 := tinyMLPLoss[float16.Float16](t, ctx, compute.NewCPUEngine[float16.Float16](numeric.Float16Ops{}),
		func(f float64) float16.Float16 { return float16.FromFloat64(f) },
		func(v float16.Float16) float64 { return float64(v.ToFloat32()) },
	)

	assert.InDelta(t, f64, f32, 1e-5)
	assert.InDelta(t, f64, f16, 0.5, "float16 carries materially less precision, widen tolerance accordingly")
}
