// Package ops is the op library the graph core treats as an external
// collaborator: per-op forward evaluators and the VJP/JVP rule tables that
// the reverse- and forward-mode engines dispatch into by op tag.
package ops

import (
	"context"

	"github.com/ckptgrad/ckptgrad/compute"
	"github.com/ckptgrad/ckptgrad/graph"
	"github.com/ckptgrad/ckptgrad/tensor"
)

// accumulateInto adds contribution into p.Grad (creating a zero accumulator
// first if p has none yet), but only when p requires grad: non-trainable
// leaves and constants are never written to.
func accumulateInto[T tensor.Numeric](p *graph.Node[T], contribution *tensor.Tensor[T]) error {
	if !p.RequiresGrad || contribution == nil || !contribution.Size() {
		return nil
	}

	if p.Grad == nil || !p.Grad.Size() {
		z, err := tensor.ZerosLike(contribution)
		if err != nil {
			return err
		}

		p.Grad = z
	}

	return p.Grad.AddInPlace(contribution)
}

// accumulateAll accumulates the same upstream gradient into every parent in
// parents, used by ops whose VJP is the identity on each input (add).
func accumulateAll[T tensor.Numeric](_ context.Context, _ compute.Engine[T], gy *tensor.Tensor[T], parents ...*graph.Node[T]) error {
	for _, p := range parents {
		if err := accumulateInto(p, gy); err != nil {
			return err
		}
	}

	return nil
}

// broadcastScalar returns a tensor shaped like like, filled with the single
// value held by a 1x1 scalar tensor. Used by reduction VJPs (Sum) whose
// upstream gradient is always 1x1 but whose parent is not.
func broadcastScalar[T tensor.Numeric](ctx context.Context, engine compute.Engine[T], scalar *tensor.Tensor[T], like *tensor.Tensor[T]) (*tensor.Tensor[T], error) {
	ones, err := tensor.OnesLike(like)
	if err != nil {
		return nil, err
	}

	return engine.MulScalar(ctx, ones, scalar.At(0, 0))
}

// ForwardEvalNode is the pure function of a node's op tag and its inputs'
// current values that computes and returns the node's forward value; it
// does not store it in n.Value, which is left to the caller. Leaf
// nodes are assumed already materialized by their constructor and are
// returned as-is.
func ForwardEvalNode[T tensor.Numeric](ctx context.Context, n *graph.Node[T], engine compute.Engine[T]) (*tensor.Tensor[T], error) {
	switch n.Op {
	case graph.OpLeaf:
		return n.Value, nil
	case graph.OpAdd:
		return forwardAdd(ctx, n, engine)
	case graph.OpMul:
		return forwardMul(ctx, n, engine)
	case graph.OpMatMul:
		return forwardMatMul(ctx, n, engine)
	case graph.OpReLU:
		return forwardReLU(ctx, n, engine)
	case graph.OpGELU:
		return forwardGELU(ctx, n, engine)
	case graph.OpMSELoss:
		return forwardMSELoss(ctx, n, engine)
	case graph.OpCrossEntropyWithLogits:
		return forwardCrossEntropyWithLogits(ctx, n, engine)
	case graph.OpSum:
		return forwardSum(ctx, n, engine)
	default:
		return nil, ErrUnknownOp
	}
}

// VJPRule reads a node's upstream gradient and accumulates each input's
// contribution into that input's Grad.
type VJPRule[T tensor.Numeric] func(ctx context.Context, n *graph.Node[T], gy *tensor.Tensor[T], engine compute.Engine[T]) error

// VJPLookup returns the VJP rule registered for op, or false if none is.
// Implemented as a compile-time-exhaustive switch rather than a runtime map
// so a missing case is visible at review time; the bool return is still the
// dynamic fallback the reverse-mode engine uses to warn-and-skip.
func VJPLookup[T tensor.Numeric](op graph.Op) (VJPRule[T], bool) {
	switch op {
	case graph.OpAdd:
		return vjpAdd[T], true
	case graph.OpMul:
		return vjpMul[T], true
	case graph.OpMatMul:
		return vjpMatMul[T], true
	case graph.OpReLU:
		return vjpReLU[T], true
	case graph.OpGELU:
		return vjpGELU[T], true
	case graph.OpMSELoss:
		return vjpMSELoss[T], true
	case graph.OpCrossEntropyWithLogits:
		return vjpCrossEntropyWithLogits[T], true
	case graph.OpSum:
		return vjpSum[T], true
	case graph.OpLeaf:
		return nil, false
	default:
		return nil, false
	}
}

// JVPRule computes a node's output tangent from a lookup over its parents'
// tangents.
type JVPRule[T tensor.Numeric] func(ctx context.Context, n *graph.Node[T], tangentOf func(*graph.Node[T]) *tensor.Tensor[T], engine compute.Engine[T]) (*tensor.Tensor[T], error)

// JVPLookup returns the JVP rule registered for op, or false if none is.
func JVPLookup[T tensor.Numeric](op graph.Op) (JVPRule[T], bool) {
	switch op {
	case graph.OpAdd:
		return jvpAdd[T], true
	case graph.OpMul:
		return jvpMul[T], true
	case graph.OpMatMul:
		return jvpMatMul[T], true
	case graph.OpReLU:
		return jvpReLU[T], true
	case graph.OpGELU:
		return jvpGELU[T], true
	case graph.OpMSELoss:
		return jvpMSELoss[T], true
	case graph.OpCrossEntropyWithLogits:
		return jvpCrossEntropyWithLogits[T], true
	case graph.OpSum:
		return jvpSum[T], true
	case graph.OpLeaf:
		return nil, false
	default:
		return nil, false
	}
}
