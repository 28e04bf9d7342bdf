// Package checkpoint implements activation checkpointing: marking nodes as
// recomputation boundaries, snapshotting their parents' tensors, evicting
// everything that is not a checkpoint or on a protected live range, and
// recursively recomputing evicted values on demand.
package checkpoint

import (
	"context"
	"fmt"

	"github.com/ckptgrad/ckptgrad/compute"
	"github.com/ckptgrad/ckptgrad/diagnostics"
	"github.com/ckptgrad/ckptgrad/graph"
	"github.com/ckptgrad/ckptgrad/internal/rng"
	"github.com/ckptgrad/ckptgrad/ops"
	"github.com/ckptgrad/ckptgrad/tensor"
	"github.com/ckptgrad/ckptgrad/types"
)

// Options configures a checkpoint mark.
type Options struct {
	// SaveRNG captures the global RNG state at mark time so a later
	// recompute can restore it before re-running the forward evaluator.
	SaveRNG bool

	// DeletePolicy is passed through, unmodified, to whatever external
	// careful-deletion layer a caller pairs with this node once it is
	// evicted. The checkpoint subsystem does not interpret it.
	DeletePolicy types.DeletePolicy
}

// MarkNodeCheckpoint designates n as a recomputation boundary. Idempotent:
// marking an already-checkpoint node is a no-op. Snapshots whatever parent
// values are currently available (an empty slot where a parent has none
// yet) and records one occupancy placeholder per input regardless, since
// occupancy — not payload — is what gates recomputation eligibility.
func MarkNodeCheckpoint[T tensor.Numeric](n *graph.Node[T], opts Options) {
	if n.IsCheckpoint {
		return
	}

	n.IsCheckpoint = true
	n.DeletePolicy = opts.DeletePolicy
	n.SavedInputTensors = make([]*tensor.Tensor[T], len(n.Inputs))
	n.SavedInputs = make([]bool, len(n.Inputs))

	for i, p := range n.Inputs {
		n.SavedInputs[i] = true

		if p.Value != nil && p.Value.Size() {
			n.SavedInputTensors[i] = p.Value.Copy()
		} else {
			n.SavedInputTensors[i] = tensor.Empty[T]()
		}
	}

	if opts.SaveRNG {
		n.HasSavedRNG = true
		n.SavedRNGBlob = rng.Snapshot()
	}
}

// CaptureCheckpointSnapshots re-snapshots every checkpoint node reachable
// from root with its parents' current values. Intended to run once after a
// complete forward pass, since marking (which may happen before forward
// runs) can only snapshot whatever was available at construction time.
func CaptureCheckpointSnapshots[T tensor.Numeric](root *graph.Node[T]) {
	for _, n := range graph.TopoFrom(root) {
		if !n.IsCheckpoint {
			continue
		}

		if len(n.SavedInputTensors) != len(n.Inputs) {
			n.SavedInputTensors = make([]*tensor.Tensor[T], len(n.Inputs))
		}

		for i, p := range n.Inputs {
			if p.Value != nil && p.Value.Size() {
				n.SavedInputTensors[i] = p.Value.Copy()
			} else {
				n.SavedInputTensors[i] = tensor.Empty[T]()
			}
		}
	}
}

// EvictNonCheckpointValues runs the two-phase protect/sweep eviction: every
// node on a checkpoint-free path from root keeps its value; everything
// reachable only behind a checkpoint is cleared, since it can be
// regenerated by RecomputeSubgraph.
func EvictNonCheckpointValues[T tensor.Numeric](root *graph.Node[T]) {
	protected := protectedSet(root)

	visited := map[*graph.Node[T]]bool{}
	queue := []*graph.Node[T]{root}

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]

		if visited[n] {
			continue
		}

		visited[n] = true

		if !protected[n] {
			n.Value.Release()
			n.Value = tensor.Empty[T]()
			n.Tape = nil
		}

		queue = append(queue, n.Inputs...)
	}

	diagnostics.RecordEviction()
}

// protectedSet is phase 1: BFS from root, stopping descent at checkpoint
// nodes so their ancestors are left unprotected and eligible for eviction.
func protectedSet[T tensor.Numeric](root *graph.Node[T]) map[*graph.Node[T]]bool {
	protected := map[*graph.Node[T]]bool{}
	queue := []*graph.Node[T]{root}

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]

		if protected[n] {
			continue
		}

		protected[n] = true

		if n.IsCheckpoint {
			continue
		}

		queue = append(queue, n.Inputs...)
	}

	return protected
}

// AutoCheckpointEveryN walks root's graph breadth-first and marks every
// Nth non-leaf node visited, in BFS order.
func AutoCheckpointEveryN[T tensor.Numeric](root *graph.Node[T], every int, opts Options) {
	if every <= 0 {
		return
	}

	visited := map[*graph.Node[T]]bool{}
	queue := []*graph.Node[T]{root}

	count := 0

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]

		if visited[n] {
			continue
		}

		visited[n] = true

		if !n.IsLeaf() {
			count++
			if count%every == 0 {
				MarkNodeCheckpoint(n, opts)
			}
		}

		queue = append(queue, n.Inputs...)
	}
}

// AutoCheckpointByDepth walks root's graph breadth-first, tracking depth
// from root, and marks every non-leaf node at depth >= minDepth.
func AutoCheckpointByDepth[T tensor.Numeric](root *graph.Node[T], minDepth int, opts Options) {
	type item struct {
		n     *graph.Node[T]
		depth int
	}

	visited := map[*graph.Node[T]]bool{}
	queue := []item{{root, 0}}

	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]

		if visited[it.n] {
			continue
		}

		visited[it.n] = true

		if !it.n.IsLeaf() && it.depth >= minDepth {
			MarkNodeCheckpoint(it.n, opts)
		}

		for _, p := range it.n.Inputs {
			queue = append(queue, item{p, it.depth + 1})
		}
	}
}

// RecomputeSubgraph regenerates n's value from its saved inputs, recursing
// into any parent that is itself an evicted checkpoint. Returns false (not
// an error) when n is not recomputable at all; a failure partway through a
// recursive chain surfaces as an error.
func RecomputeSubgraph[T tensor.Numeric](ctx context.Context, n *graph.Node[T], engine compute.Engine[T]) (bool, error) {
	if !n.IsCheckpoint || len(n.SavedInputs) == 0 {
		return false, nil
	}

	if n.HasSavedRNG {
		rng.Restore(n.SavedRNGBlob)
	}

	for i, p := range n.Inputs {
		if i < len(n.SavedInputs) && n.SavedInputs[i] && i < len(n.SavedInputTensors) && n.SavedInputTensors[i].Size() {
			p.Value = n.SavedInputTensors[i]

			continue
		}

		if p.Value != nil && p.Value.Size() {
			continue
		}

		if !p.IsCheckpoint {
			diagnostics.RecordRecompute(n.Op.String(), false)

			return false, fmt.Errorf("checkpoint: recompute failed: parent %s of %s has no saved or live value and is not a checkpoint", p, n)
		}

		ok, err := RecomputeSubgraph(ctx, p, engine)
		if err != nil {
			diagnostics.RecordRecompute(n.Op.String(), false)

			return false, fmt.Errorf("checkpoint: recompute failed for %s: %w", n, err)
		}

		if !ok {
			diagnostics.RecordRecompute(n.Op.String(), false)

			return false, fmt.Errorf("checkpoint: recompute failed: could not recompute parent %s of %s", p, n)
		}
	}

	value, err := ops.ForwardEvalNode(ctx, n, engine)
	if err != nil {
		diagnostics.RecordRecompute(n.Op.String(), false)

		return false, fmt.Errorf("checkpoint: recompute failed for %s: %w", n, err)
	}

	n.Value = value
	n.BumpVersion()

	diagnostics.RecordRecompute(n.Op.String(), true)

	return true, nil
}

// EnsureValuePresent returns true if n already has a value, recomputing it
// first when n is an evicted checkpoint. Returns false if n has no value
// and cannot be recomputed.
func EnsureValuePresent[T tensor.Numeric](ctx context.Context, n *graph.Node[T], engine compute.Engine[T]) (bool, error) {
	if n.Value != nil && n.Value.Size() {
		return true, nil
	}

	if !n.IsCheckpoint {
		return false, nil
	}

	return RecomputeSubgraph(ctx, n, engine)
}
