package autodiff

import (
	"context"
	"fmt"
	"log"

	"github.com/ckptgrad/ckptgrad/checkpoint"
	"github.com/ckptgrad/ckptgrad/compute"
	"github.com/ckptgrad/ckptgrad/diagnostics"
	"github.com/ckptgrad/ckptgrad/graph"
	"github.com/ckptgrad/ckptgrad/ops"
	"github.com/ckptgrad/ckptgrad/tensor"
)

// Backward runs the reverse-mode engine from root. If seed is nil, a ones
// tensor shaped like root's value is used (a 1x1 ones tensor for a scalar
// root). Partial state — accumulated grads, any values recomputed along
// the way — is left in place even when a fatal error is returned, so it
// can be inspected.
func Backward[T tensor.Numeric](ctx context.Context, root *graph.Node[T], seed *tensor.Tensor[T], engine compute.Engine[T]) error {
	ctx, span := diagnostics.StartSpan(ctx, "autodiff.Backward")
	defer span.End()

	order := graph.TopoFrom(root)

	if seed == nil {
		ones, err := tensor.OnesLike(root.Value)
		if err != nil {
			return fmt.Errorf("autodiff: failed to build default seed: %w", err)
		}

		seed = ones
	}

	root.Grad = seed

	for i := len(order) - 1; i >= 0; i-- {
		n := order[i]
		if !n.RequiresGrad {
			continue
		}

		gy := n.Grad
		if gy == nil || !gy.Size() {
			continue
		}

		needsRecompute := n.IsCheckpoint && (n.Value == nil || !n.Value.Size())
		if n.IsCheckpoint && !needsRecompute {
			// Eviction keeps a checkpoint's own value but may clear the
			// parents behind it; recomputing restores them from its snapshot.
			for _, p := range n.Inputs {
				if p.Value == nil || !p.Value.Size() {
					needsRecompute = true

					break
				}
			}
		}

		if needsRecompute {
			ok, err := checkpoint.RecomputeSubgraph(ctx, n, engine)
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrRecomputeFailed, n, err)
			}

			if !ok {
				return fmt.Errorf("%w: %s", ErrRecomputeFailed, n)
			}
		}

		for _, p := range n.Inputs {
			if p.Value != nil && p.Value.Size() {
				continue
			}

			if !p.IsCheckpoint {
				return fmt.Errorf("%w: consumer %s, producer %s", ErrMissingActivationNotCheckpointed, n, p)
			}

			ok, err := checkpoint.RecomputeSubgraph(ctx, p, engine)
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrRecomputeFailed, p, err)
			}

			if !ok {
				return fmt.Errorf("%w: %s", ErrRecomputeFailed, p)
			}
		}

		rule, ok := ops.VJPLookup[T](n.Op)
		if !ok {
			log.Printf("autodiff: no vjp rule registered for op %s at node %s, skipping", n.Op, n)
			diagnostics.WarnVJPMissing(n.Op.String())

			continue
		}

		if err := rule(ctx, n, gy, engine); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrVJPException, n, err)
		}
	}

	return nil
}
