// Package types contains shared, fundamental types threaded between the
// graph, checkpoint and autodiff packages without pulling them into an
// import cycle with each other.
package types

// DeletePolicy is an opaque enum describing how a careful-deletion layer
// external to the core should treat an evicted or recomputed node. The
// checkpoint subsystem only passes it through to that layer; it has no
// behavior of its own here.
type DeletePolicy int

const (
	// DeleteImmediate releases a node's storage as soon as eviction clears
	// its value.
	DeleteImmediate DeletePolicy = iota
	// DeleteDeferred leaves storage release to the external layer's own
	// scheduling (e.g. a generational sweep), for callers pairing this
	// engine with a more elaborate allocator.
	DeleteDeferred
)
