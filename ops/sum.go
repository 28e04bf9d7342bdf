package ops

import (
	"context"
	"fmt"

	"github.com/ckptgrad/ckptgrad/compute"
	"github.com/ckptgrad/ckptgrad/graph"
	"github.com/ckptgrad/ckptgrad/tensor"
)

// Sum builds a full-reduction node: the 1x1 sum of every element of x.
func Sum[T tensor.Numeric](x *graph.Node[T], name string) *graph.Node[T] {
	return graph.NewOp[T](graph.OpSum, name, x)
}

func forwardSum[T tensor.Numeric](ctx context.Context, n *graph.Node[T], engine compute.Engine[T]) (*tensor.Tensor[T], error) {
	if len(n.Inputs) != 1 {
		return nil, fmt.Errorf("sum: %w: got %d", ErrInvalidInputCount, len(n.Inputs))
	}

	return engine.Sum(ctx, n.Inputs[0].Value)
}

// vjpSum broadcasts the 1x1 upstream gradient back across the parent's
// full shape: d(sum(x))/dx_i = 1 for every element.
func vjpSum[T tensor.Numeric](ctx context.Context, n *graph.Node[T], gy *tensor.Tensor[T], engine compute.Engine[T]) error {
	if len(n.Inputs) != 1 {
		return fmt.Errorf("sum: %w: got %d", ErrInvalidInputCount, len(n.Inputs))
	}

	x := n.Inputs[0]

	gradX, err := broadcastScalar(ctx, engine, gy, x.Value)
	if err != nil {
		return err
	}

	return accumulateInto(x, gradX)
}

func jvpSum[T tensor.Numeric](ctx context.Context, n *graph.Node[T], tangentOf func(*graph.Node[T]) *tensor.Tensor[T], engine compute.Engine[T]) (*tensor.Tensor[T], error) {
	if len(n.Inputs) != 1 {
		return nil, fmt.Errorf("sum: %w: got %d", ErrInvalidInputCount, len(n.Inputs))
	}

	return engine.Sum(ctx, tangentOf(n.Inputs[0]))
}
