package ops

import (
	"context"
	"fmt"

	"github.com/ckptgrad/ckptgrad/compute"
	"github.com/ckptgrad/ckptgrad/graph"
	"github.com/ckptgrad/ckptgrad/tensor"
)

// CrossEntropyWithLogits builds a row-wise softmax cross-entropy node.
// targetsOneHot must already be one-hot encoded float tensors of the same
// shape as logits; the dense 2-D core has no integer label tensor or
// gather/one-hot kernels, so that encoding is the caller's responsibility.
func CrossEntropyWithLogits[T tensor.Numeric](logits, targetsOneHot *graph.Node[T], name string) *graph.Node[T] {
	return graph.NewOp[T](graph.OpCrossEntropyWithLogits, name, logits, targetsOneHot)
}

func softmaxOf[T tensor.Numeric](ctx context.Context, n *graph.Node[T], engine compute.Engine[T]) (*tensor.Tensor[T], error) {
	return engine.Softmax(ctx, n.Inputs[0].Value)
}

func forwardCrossEntropyWithLogits[T tensor.Numeric](ctx context.Context, n *graph.Node[T], engine compute.Engine[T]) (*tensor.Tensor[T], error) {
	if len(n.Inputs) != 2 {
		return nil, fmt.Errorf("cross-entropy-with-logits: %w: got %d", ErrInvalidInputCount, len(n.Inputs))
	}

	softmax, err := softmaxOf(ctx, n, engine)
	if err != nil {
		return nil, err
	}

	logSoftmax, err := engine.Log(ctx, softmax)
	if err != nil {
		return nil, err
	}

	prod, err := engine.Mul(ctx, n.Inputs[1].Value, logSoftmax)
	if err != nil {
		return nil, err
	}

	total, err := engine.Sum(ctx, prod)
	if err != nil {
		return nil, err
	}

	batchSize := engine.Ops().FromFloat64(-1.0 / float64(n.Inputs[0].Value.Rows()))

	return engine.MulScalar(ctx, total, batchSize)
}

// vjpCrossEntropyWithLogits: dL/dlogits = (softmax(logits) - targets) * gy / batch.
func vjpCrossEntropyWithLogits[T tensor.Numeric](ctx context.Context, n *graph.Node[T], gy *tensor.Tensor[T], engine compute.Engine[T]) error {
	if len(n.Inputs) != 2 {
		return fmt.Errorf("cross-entropy-with-logits: %w: got %d", ErrInvalidInputCount, len(n.Inputs))
	}

	logits, targets := n.Inputs[0], n.Inputs[1]

	softmax, err := softmaxOf(ctx, n, engine)
	if err != nil {
		return err
	}

	diff, err := engine.Sub(ctx, softmax, targets.Value)
	if err != nil {
		return err
	}

	scale := engine.Ops().Mul(engine.Ops().FromFloat64(1.0/float64(logits.Value.Rows())), gy.At(0, 0))

	gradLogits, err := engine.MulScalar(ctx, diff, scale)
	if err != nil {
		return err
	}

	return accumulateInto(logits, gradLogits)
}

// jvpCrossEntropyWithLogits only propagates the logits tangent; targets are
// treated as constant one-hot labels, matching the loss's own backward
// contract (no gradient flows to targets).
func jvpCrossEntropyWithLogits[T tensor.Numeric](ctx context.Context, n *graph.Node[T], tangentOf func(*graph.Node[T]) *tensor.Tensor[T], engine compute.Engine[T]) (*tensor.Tensor[T], error) {
	if len(n.Inputs) != 2 {
		return nil, fmt.Errorf("cross-entropy-with-logits: %w: got %d", ErrInvalidInputCount, len(n.Inputs))
	}

	logits, targets := n.Inputs[0], n.Inputs[1]

	softmax, err := softmaxOf(ctx, n, engine)
	if err != nil {
		return nil, err
	}

	diff, err := engine.Sub(ctx, softmax, targets.Value)
	if err != nil {
		return nil, err
	}

	prod, err := engine.Mul(ctx, diff, tangentOf(logits))
	if err != nil {
		return nil, err
	}

	total, err := engine.Sum(ctx, prod)
	if err != nil {
		return nil, err
	}

	scale := engine.Ops().FromFloat64(1.0 / float64(logits.Value.Rows()))

	return engine.MulScalar(ctx, total, scale)
}
