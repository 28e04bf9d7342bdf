package autodiff

import (
	"context"
	"fmt"

	"github.com/ckptgrad/ckptgrad/compute"
	"github.com/ckptgrad/ckptgrad/diagnostics"
	"github.com/ckptgrad/ckptgrad/graph"
	"github.com/ckptgrad/ckptgrad/ops"
	"github.com/ckptgrad/ckptgrad/tensor"
)

// JVP runs the forward-mode engine from root, seeding the tangent of each
// node named in seeds and defaulting every other node's tangent to zero.
// It returns root's tangent. A single forward pass, no accumulation.
func JVP[T tensor.Numeric](ctx context.Context, root *graph.Node[T], seeds map[*graph.Node[T]]*tensor.Tensor[T], engine compute.Engine[T]) (*tensor.Tensor[T], error) {
	ctx, span := diagnostics.StartSpan(ctx, "autodiff.JVP")
	defer span.End()

	order := graph.TopoFrom(root)
	tangents := make(map[*graph.Node[T]]*tensor.Tensor[T], len(order))

	zeroFor := func(n *graph.Node[T]) (*tensor.Tensor[T], error) {
		if n.Value != nil && n.Value.Size() {
			return tensor.ZerosLike(n.Value)
		}

		return tensor.Empty[T](), nil
	}

	tangentOf := func(n *graph.Node[T]) *tensor.Tensor[T] {
		if t, ok := tangents[n]; ok {
			return t
		}

		z, _ := zeroFor(n)

		return z
	}

	for _, n := range order {
		var (
			t   *tensor.Tensor[T]
			err error
		)

		if seeded, ok := seeds[n]; ok {
			t = seeded
		} else {
			t, err = zeroFor(n)
			if err != nil {
				return nil, fmt.Errorf("autodiff: jvp: failed to build zero tangent for %s: %w", n, err)
			}
		}

		if rule, ok := ops.JVPLookup[T](n.Op); ok {
			t, err = rule(ctx, n, tangentOf, engine)
			if err != nil {
				return nil, fmt.Errorf("autodiff: jvp: rule failed for %s: %w", n, err)
			}
		}

		tangents[n] = t
	}

	return tangentOf(root), nil
}
