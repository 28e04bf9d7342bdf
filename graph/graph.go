package graph

import "github.com/ckptgrad/ckptgrad/tensor"

// TopoFrom returns every node reachable from root in parents-before-children
// order: a depth-first traversal over Inputs, emitted on post-order, so that
// by construction every ancestor precedes the node that depends on it. Ties
// among equal-depth nodes are broken by first-seen order during the walk,
// making the result deterministic for a given graph.
func TopoFrom[T tensor.Numeric](root *Node[T]) []*Node[T] {
	visited := make(map[*Node[T]]bool)

	var order []*Node[T]

	var visit func(n *Node[T])

	visit = func(n *Node[T]) {
		if visited[n] {
			return
		}

		visited[n] = true

		for _, in := range n.Inputs {
			visit(in)
		}

		order = append(order, n)
	}

	visit(root)

	return order
}

// ZeroGrad sets Grad to a zero tensor shaped like Value for every node
// reachable from root that requires grad and currently holds a value.
func ZeroGrad[T tensor.Numeric](root *Node[T]) error {
	for _, n := range TopoFrom(root) {
		if !n.RequiresGrad || !n.Value.Size() {
			continue
		}

		z, err := tensor.ZerosLike(n.Value)
		if err != nil {
			return err
		}

		n.Grad = z
	}

	return nil
}
