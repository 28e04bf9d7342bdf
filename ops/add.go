package ops

import (
	"context"
	"fmt"

	"github.com/ckptgrad/ckptgrad/compute"
	"github.com/ckptgrad/ckptgrad/graph"
	"github.com/ckptgrad/ckptgrad/tensor"
)

// Add builds an element-wise addition node from a and b.
func Add[T tensor.Numeric](a, b *graph.Node[T], name string) *graph.Node[T] {
	return graph.NewOp[T](graph.OpAdd, name, a, b)
}

func forwardAdd[T tensor.Numeric](ctx context.Context, n *graph.Node[T], engine compute.Engine[T]) (*tensor.Tensor[T], error) {
	if len(n.Inputs) != 2 {
		return nil, fmt.Errorf("add: %w: got %d", ErrInvalidInputCount, len(n.Inputs))
	}

	return engine.Add(ctx, n.Inputs[0].Value, n.Inputs[1].Value)
}

// vjpAdd accumulates gy into both parents unchanged: d(a+b)/da = 1, d(a+b)/db = 1.
func vjpAdd[T tensor.Numeric](ctx context.Context, n *graph.Node[T], gy *tensor.Tensor[T], engine compute.Engine[T]) error {
	if len(n.Inputs) != 2 {
		return fmt.Errorf("add: %w: got %d", ErrInvalidInputCount, len(n.Inputs))
	}

	return accumulateAll(ctx, engine, gy, n.Inputs[0], n.Inputs[1])
}

func jvpAdd[T tensor.Numeric](ctx context.Context, n *graph.Node[T], tangentOf func(*graph.Node[T]) *tensor.Tensor[T], engine compute.Engine[T]) (*tensor.Tensor[T], error) {
	if len(n.Inputs) != 2 {
		return nil, fmt.Errorf("add: %w: got %d", ErrInvalidInputCount, len(n.Inputs))
	}

	return engine.Add(ctx, tangentOf(n.Inputs[0]), tangentOf(n.Inputs[1]))
}
