// Package trace implements the graph tracer: thread-scoped capture of
// nodes created during a region, insertion-order dedup, output detection
// and a topological sort restricted to the captured subgraph.
package trace

import (
	"sync"

	"github.com/ckptgrad/ckptgrad/graph"
	"github.com/ckptgrad/ckptgrad/internal/gls"
	"github.com/ckptgrad/ckptgrad/tensor"
)

// Tracer captures every node created on the current goroutine between a
// start() and stop() call. All public methods take an internal lock; the
// observer stack itself is per-goroutine, installed by gls.
type Tracer[T tensor.Numeric] struct {
	mu       sync.Mutex
	nodes    []*graph.Node[T]
	seen     map[*graph.Node[T]]bool
	outputs  []*graph.Node[T]
	outSeen  map[*graph.Node[T]]bool
	observer gls.Callback
}

// New creates an idle tracer. Call Start to begin capturing.
func New[T tensor.Numeric]() *Tracer[T] {
	return &Tracer[T]{
		seen:    map[*graph.Node[T]]bool{},
		outSeen: map[*graph.Node[T]]bool{},
	}
}

// Start installs this tracer's observer on top of the calling goroutine's
// node-creation stack. Nesting is supported: the most recently started
// tracer on this goroutine receives each creation event.
func (t *Tracer[T]) Start() {
	t.observer = func(node any) {
		n, ok := node.(*graph.Node[T])
		if !ok {
			return
		}

		t.onNodeCreated(n)
	}

	gls.Push(t.observer)
}

// Stop pops the top observer off the calling goroutine's stack. Per the
// underlying stack's LIFO discipline this removes whichever observer is on
// top, regardless of which tracer called Stop — callers are responsible
// for pairing Start/Stop.
func (t *Tracer[T]) Stop() {
	gls.Pop()
}

// onNodeCreated is the observer hook: re-entrant, safe to call from
// whatever goroutine owns this tracer's stack slot.
func (t *Tracer[T]) onNodeCreated(n *graph.Node[T]) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.seen[n] {
		return
	}

	t.seen[n] = true
	t.nodes = append(t.nodes, n)
}

// MarkOutput records n as an explicit output, in first-marked order.
func (t *Tracer[T]) MarkOutput(n *graph.Node[T]) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.outSeen[n] {
		return
	}

	t.outSeen[n] = true
	t.outputs = append(t.outputs, n)
}

// CapturedNodes returns captured nodes in insertion order.
func (t *Tracer[T]) CapturedNodes() []*graph.Node[T] {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]*graph.Node[T], len(t.nodes))
	copy(out, t.nodes)

	return out
}

// Outputs returns the explicitly marked outputs in the order they were
// marked, if any were marked. Otherwise it returns every captured node that is not listed
// as an input by any other captured node — the sinks of the captured
// subgraph. If both sets are empty, it falls back to the last captured
// node.
func (t *Tracer[T]) Outputs() []*graph.Node[T] {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.outputsLocked()
}

// outputsLocked is Outputs' logic, callable while t.mu is already held.
func (t *Tracer[T]) outputsLocked() []*graph.Node[T] {
	if len(t.outputs) > 0 {
		out := make([]*graph.Node[T], len(t.outputs))
		copy(out, t.outputs)

		return out
	}

	referenced := map[*graph.Node[T]]bool{}

	for _, n := range t.nodes {
		for _, in := range n.Inputs {
			referenced[in] = true
		}
	}

	var sinks []*graph.Node[T]

	for _, n := range t.nodes {
		if !referenced[n] {
			sinks = append(sinks, n)
		}
	}

	if len(sinks) > 0 {
		return sinks
	}

	if len(t.nodes) > 0 {
		return []*graph.Node[T]{t.nodes[len(t.nodes)-1]}
	}

	return nil
}

// TopoSort returns captured nodes in parent-before-child order: DFS from
// each detected output over inputs filtered to the captured set, emitted
// post-order, then any node unreachable from an output is appended so
// nothing captured is dropped.
func (t *Tracer[T]) TopoSort() []*graph.Node[T] {
	t.mu.Lock()
	captured := map[*graph.Node[T]]bool{}

	for _, n := range t.nodes {
		captured[n] = true
	}

	outputs := t.outputsLocked()
	t.mu.Unlock()

	visited := map[*graph.Node[T]]bool{}

	var postorder []*graph.Node[T]

	var visit func(n *graph.Node[T])

	visit = func(n *graph.Node[T]) {
		if visited[n] {
			return
		}

		visited[n] = true

		for _, in := range n.Inputs {
			if captured[in] {
				visit(in)
			}
		}

		postorder = append(postorder, n)
	}

	for _, out := range outputs {
		visit(out)
	}

	order := postorder

	for _, n := range t.CapturedNodes() {
		if !visited[n] {
			order = append(order, n)
		}
	}

	return order
}

// Clear resets all captured state. It does not affect the goroutine's
// observer stack; call Stop separately if this tracer is still installed.
func (t *Tracer[T]) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nodes = nil
	t.seen = map[*graph.Node[T]]bool{}
	t.outputs = nil
	t.outSeen = map[*graph.Node[T]]bool{}
}
