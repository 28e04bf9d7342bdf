package trace

import "github.com/ckptgrad/ckptgrad/tensor"

// CaptureGuard starts a tracer on construction and stops it on scope exit,
// for the common `defer trace.Guard(t)()`-free call site:
//
//	tr := trace.New[float32]()
//	g := trace.NewCaptureGuard(tr)
//	defer g.Close()
type CaptureGuard[T tensor.Numeric] struct {
	tracer *Tracer[T]
}

// NewCaptureGuard starts tracer and returns a guard that will stop it.
func NewCaptureGuard[T tensor.Numeric](tracer *Tracer[T]) *CaptureGuard[T] {
	tracer.Start()

	return &CaptureGuard[T]{tracer: tracer}
}

// Close stops the guarded tracer. Safe to call via defer.
func (g *CaptureGuard[T]) Close() {
	g.tracer.Stop()
}
