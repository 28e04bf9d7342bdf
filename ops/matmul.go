package ops

import (
	"context"
	"fmt"

	"github.com/ckptgrad/ckptgrad/compute"
	"github.com/ckptgrad/ckptgrad/graph"
	"github.com/ckptgrad/ckptgrad/tensor"
)

// MatMul builds a 2-D matrix multiplication node: a (m,k) * b (k,n) -> (m,n).
func MatMul[T tensor.Numeric](a, b *graph.Node[T], name string) *graph.Node[T] {
	return graph.NewOp[T](graph.OpMatMul, name, a, b)
}

func forwardMatMul[T tensor.Numeric](ctx context.Context, n *graph.Node[T], engine compute.Engine[T]) (*tensor.Tensor[T], error) {
	if len(n.Inputs) != 2 {
		return nil, fmt.Errorf("matmul: %w: got %d", ErrInvalidInputCount, len(n.Inputs))
	}

	return engine.MatMul(ctx, n.Inputs[0].Value, n.Inputs[1].Value)
}

// vjpMatMul: for y = a @ b, dL/da = gy @ b^T, dL/db = a^T @ gy.
func vjpMatMul[T tensor.Numeric](ctx context.Context, n *graph.Node[T], gy *tensor.Tensor[T], engine compute.Engine[T]) error {
	if len(n.Inputs) != 2 {
		return fmt.Errorf("matmul: %w: got %d", ErrInvalidInputCount, len(n.Inputs))
	}

	a, b := n.Inputs[0], n.Inputs[1]

	if a.RequiresGrad {
		bT, err := engine.Transpose(ctx, b.Value)
		if err != nil {
			return err
		}

		gradA, err := engine.MatMul(ctx, gy, bT)
		if err != nil {
			return err
		}

		if err := accumulateInto(a, gradA); err != nil {
			return err
		}
	}

	if b.RequiresGrad {
		aT, err := engine.Transpose(ctx, a.Value)
		if err != nil {
			return err
		}

		gradB, err := engine.MatMul(ctx, aT, gy)
		if err != nil {
			return err
		}

		if err := accumulateInto(b, gradB); err != nil {
			return err
		}
	}

	return nil
}

func jvpMatMul[T tensor.Numeric](ctx context.Context, n *graph.Node[T], tangentOf func(*graph.Node[T]) *tensor.Tensor[T], engine compute.Engine[T]) (*tensor.Tensor[T], error) {
	if len(n.Inputs) != 2 {
		return nil, fmt.Errorf("matmul: %w: got %d", ErrInvalidInputCount, len(n.Inputs))
	}

	a, b := n.Inputs[0], n.Inputs[1]

	left, err := engine.MatMul(ctx, tangentOf(a), b.Value)
	if err != nil {
		return nil, err
	}

	right, err := engine.MatMul(ctx, a.Value, tangentOf(b))
	if err != nil {
		return nil, err
	}

	return engine.Add(ctx, left, right)
}
