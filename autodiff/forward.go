// Package autodiff implements the reverse-mode (backward) and forward-mode
// (jvp) differentiation engines, plus the compute_forward_values driver
// that fills node values ahead of either.
package autodiff

import (
	"context"
	"log"

	"github.com/ckptgrad/ckptgrad/compute"
	"github.com/ckptgrad/ckptgrad/diagnostics"
	"github.com/ckptgrad/ckptgrad/graph"
	"github.com/ckptgrad/ckptgrad/ops"
	"github.com/ckptgrad/ckptgrad/tensor"
)

// ComputeForwardValues evaluates every node reachable from root, in
// parents-before-children order, filling each node's Value. A rule failure
// on one branch is logged and traversal continues so unrelated branches
// still get a value — the fail-soft posture the backward pass does not
// share.
func ComputeForwardValues[T tensor.Numeric](ctx context.Context, root *graph.Node[T], engine compute.Engine[T]) {
	for _, n := range graph.TopoFrom(root) {
		if n.Op == graph.OpLeaf {
			continue
		}

		value, err := ops.ForwardEvalNode(ctx, n, engine)
		if err != nil {
			log.Printf("autodiff: forward evaluation failed for %s: %v", n, err)
			diagnostics.RecordForwardError(n.Op.String())

			continue
		}

		n.Value = value
	}
}
