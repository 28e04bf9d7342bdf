package ops

import (
	"context"
	"fmt"

	"github.com/ckptgrad/ckptgrad/compute"
	"github.com/ckptgrad/ckptgrad/graph"
	"github.com/ckptgrad/ckptgrad/tensor"
)

// MSELoss builds a mean-squared-error node: mean((predictions-targets)^2),
// reduced to a 1x1 tensor.
func MSELoss[T tensor.Numeric](predictions, targets *graph.Node[T], name string) *graph.Node[T] {
	return graph.NewOp[T](graph.OpMSELoss, name, predictions, targets)
}

func mseDiff[T tensor.Numeric](ctx context.Context, n *graph.Node[T], engine compute.Engine[T]) (*tensor.Tensor[T], error) {
	return engine.Sub(ctx, n.Inputs[0].Value, n.Inputs[1].Value)
}

func forwardMSELoss[T tensor.Numeric](ctx context.Context, n *graph.Node[T], engine compute.Engine[T]) (*tensor.Tensor[T], error) {
	if len(n.Inputs) != 2 {
		return nil, fmt.Errorf("mse-loss: %w: got %d", ErrInvalidInputCount, len(n.Inputs))
	}

	diff, err := mseDiff(ctx, n, engine)
	if err != nil {
		return nil, err
	}

	squared, err := engine.Mul(ctx, diff, diff)
	if err != nil {
		return nil, err
	}

	total, err := engine.Sum(ctx, squared)
	if err != nil {
		return nil, err
	}

	n1 := engine.Ops().FromFloat64(1.0 / float64(diff.Numel()))

	return engine.MulScalar(ctx, total, n1)
}

// vjpMSELoss: dL/dpred = gy * 2/N * (pred-target), dL/dtarget = -dL/dpred.
func vjpMSELoss[T tensor.Numeric](ctx context.Context, n *graph.Node[T], gy *tensor.Tensor[T], engine compute.Engine[T]) error {
	if len(n.Inputs) != 2 {
		return fmt.Errorf("mse-loss: %w: got %d", ErrInvalidInputCount, len(n.Inputs))
	}

	pred, targ := n.Inputs[0], n.Inputs[1]

	diff, err := mseDiff(ctx, n, engine)
	if err != nil {
		return err
	}

	scale := engine.Ops().Mul(engine.Ops().FromFloat64(2.0/float64(diff.Numel())), gy.At(0, 0))

	gradPred, err := engine.MulScalar(ctx, diff, scale)
	if err != nil {
		return err
	}

	if err := accumulateInto(pred, gradPred); err != nil {
		return err
	}

	if targ.RequiresGrad {
		gradTarg, err := engine.MulScalar(ctx, gradPred, engine.Ops().FromFloat64(-1))
		if err != nil {
			return err
		}

		if err := accumulateInto(targ, gradTarg); err != nil {
			return err
		}
	}

	return nil
}

func jvpMSELoss[T tensor.Numeric](ctx context.Context, n *graph.Node[T], tangentOf func(*graph.Node[T]) *tensor.Tensor[T], engine compute.Engine[T]) (*tensor.Tensor[T], error) {
	if len(n.Inputs) != 2 {
		return nil, fmt.Errorf("mse-loss: %w: got %d", ErrInvalidInputCount, len(n.Inputs))
	}

	pred, targ := n.Inputs[0], n.Inputs[1]

	diff, err := mseDiff(ctx, n, engine)
	if err != nil {
		return nil, err
	}

	tDiff, err := engine.Sub(ctx, tangentOf(pred), tangentOf(targ))
	if err != nil {
		return nil, err
	}

	prod, err := engine.Mul(ctx, diff, tDiff)
	if err != nil {
		return nil, err
	}

	total, err := engine.Sum(ctx, prod)
	if err != nil {
		return nil, err
	}

	scale := engine.Ops().FromFloat64(2.0 / float64(diff.Numel()))

	return engine.MulScalar(ctx, total, scale)
}
