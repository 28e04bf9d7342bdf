package ops

import (
	"context"
	"fmt"

	"github.com/ckptgrad/ckptgrad/compute"
	"github.com/ckptgrad/ckptgrad/graph"
	"github.com/ckptgrad/ckptgrad/tensor"
)

// Mul builds an element-wise multiplication node from a and b.
func Mul[T tensor.Numeric](a, b *graph.Node[T], name string) *graph.Node[T] {
	return graph.NewOp[T](graph.OpMul, name, a, b)
}

func forwardMul[T tensor.Numeric](ctx context.Context, n *graph.Node[T], engine compute.Engine[T]) (*tensor.Tensor[T], error) {
	if len(n.Inputs) != 2 {
		return nil, fmt.Errorf("mul: %w: got %d", ErrInvalidInputCount, len(n.Inputs))
	}

	return engine.Mul(ctx, n.Inputs[0].Value, n.Inputs[1].Value)
}

// vjpMul: d(a*b)/da = b, d(a*b)/db = a.
func vjpMul[T tensor.Numeric](ctx context.Context, n *graph.Node[T], gy *tensor.Tensor[T], engine compute.Engine[T]) error {
	if len(n.Inputs) != 2 {
		return fmt.Errorf("mul: %w: got %d", ErrInvalidInputCount, len(n.Inputs))
	}

	a, b := n.Inputs[0], n.Inputs[1]

	gradA, err := engine.Mul(ctx, gy, b.Value)
	if err != nil {
		return err
	}

	gradB, err := engine.Mul(ctx, gy, a.Value)
	if err != nil {
		return err
	}

	if err := accumulateInto(a, gradA); err != nil {
		return err
	}

	return accumulateInto(b, gradB)
}

func jvpMul[T tensor.Numeric](ctx context.Context, n *graph.Node[T], tangentOf func(*graph.Node[T]) *tensor.Tensor[T], engine compute.Engine[T]) (*tensor.Tensor[T], error) {
	if len(n.Inputs) != 2 {
		return nil, fmt.Errorf("mul: %w: got %d", ErrInvalidInputCount, len(n.Inputs))
	}

	a, b := n.Inputs[0], n.Inputs[1]

	left, err := engine.Mul(ctx, tangentOf(a), b.Value)
	if err != nil {
		return nil, err
	}

	right, err := engine.Mul(ctx, a.Value, tangentOf(b))
	if err != nil {
		return nil, err
	}

	return engine.Add(ctx, left, right)
}
