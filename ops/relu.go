package ops

import (
	"context"
	"fmt"

	"github.com/ckptgrad/ckptgrad/compute"
	"github.com/ckptgrad/ckptgrad/graph"
	"github.com/ckptgrad/ckptgrad/tensor"
)

// ReLU builds a rectified-linear-unit node over x.
func ReLU[T tensor.Numeric](x *graph.Node[T], name string) *graph.Node[T] {
	return graph.NewOp[T](graph.OpReLU, name, x)
}

func forwardReLU[T tensor.Numeric](ctx context.Context, n *graph.Node[T], engine compute.Engine[T]) (*tensor.Tensor[T], error) {
	if len(n.Inputs) != 1 {
		return nil, fmt.Errorf("relu: %w: got %d", ErrInvalidInputCount, len(n.Inputs))
	}

	return engine.UnaryOp(ctx, n.Inputs[0].Value, engine.Ops().ReLU)
}

func vjpReLU[T tensor.Numeric](ctx context.Context, n *graph.Node[T], gy *tensor.Tensor[T], engine compute.Engine[T]) error {
	if len(n.Inputs) != 1 {
		return fmt.Errorf("relu: %w: got %d", ErrInvalidInputCount, len(n.Inputs))
	}

	x := n.Inputs[0]

	dRelu, err := engine.UnaryOp(ctx, x.Value, engine.Ops().ReLUGrad)
	if err != nil {
		return err
	}

	gradX, err := engine.Mul(ctx, gy, dRelu)
	if err != nil {
		return err
	}

	return accumulateInto(x, gradX)
}

func jvpReLU[T tensor.Numeric](ctx context.Context, n *graph.Node[T], tangentOf func(*graph.Node[T]) *tensor.Tensor[T], engine compute.Engine[T]) (*tensor.Tensor[T], error) {
	if len(n.Inputs) != 1 {
		return nil, fmt.Errorf("relu: %w: got %d", ErrInvalidInputCount, len(n.Inputs))
	}

	x := n.Inputs[0]

	dRelu, err := engine.UnaryOp(ctx, x.Value, engine.Ops().ReLUGrad)
	if err != nil {
		return nil, err
	}

	return engine.Mul(ctx, tangentOf(x), dRelu)
}
