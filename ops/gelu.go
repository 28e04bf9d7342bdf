package ops

import (
	"context"
	"fmt"

	"github.com/ckptgrad/ckptgrad/compute"
	"github.com/ckptgrad/ckptgrad/graph"
	"github.com/ckptgrad/ckptgrad/numeric"
	"github.com/ckptgrad/ckptgrad/tensor"
)

// GELU builds a Gaussian-Error-Linear-Unit node over x, using the tanh
// approximation: 0.5*x*(1+tanh(sqrt(2/pi)*(x+0.044715*x^3))).
func GELU[T tensor.Numeric](x *graph.Node[T], name string) *graph.Node[T] {
	return graph.NewOp[T](graph.OpGELU, name, x)
}

func geluScalar[T tensor.Numeric](ops numeric.Arithmetic[T]) func(T) T {
	c := ops.FromFloat64(0.7978845608028654)
	coeff := ops.FromFloat64(0.044715)
	half := ops.FromFloat64(0.5)

	return func(x T) T {
		x3 := ops.Mul(ops.Mul(x, x), x)
		inner := ops.Mul(c, ops.Add(x, ops.Mul(coeff, x3)))
		t := ops.Tanh(inner)

		return ops.Mul(half, ops.Mul(x, ops.Add(ops.One(), t)))
	}
}

func geluGradScalar[T tensor.Numeric](ops numeric.Arithmetic[T]) func(T) T {
	c := ops.FromFloat64(0.7978845608028654)
	coeff := ops.FromFloat64(0.044715)
	half := ops.FromFloat64(0.5)
	three := ops.FromFloat64(3)
	one := ops.One()

	return func(x T) T {
		x2 := ops.Mul(x, x)
		x3 := ops.Mul(x2, x)
		inner := ops.Mul(c, ops.Add(x, ops.Mul(coeff, x3)))
		t := ops.Tanh(inner)
		sech2 := ops.Sub(one, ops.Mul(t, t))
		dInner := ops.Mul(c, ops.Add(one, ops.Mul(three, ops.Mul(coeff, x2))))

		left := ops.Mul(half, ops.Add(one, t))
		right := ops.Mul(half, ops.Mul(x, ops.Mul(sech2, dInner)))

		return ops.Add(left, right)
	}
}

func forwardGELU[T tensor.Numeric](ctx context.Context, n *graph.Node[T], engine compute.Engine[T]) (*tensor.Tensor[T], error) {
	if len(n.Inputs) != 1 {
		return nil, fmt.Errorf("gelu: %w: got %d", ErrInvalidInputCount, len(n.Inputs))
	}

	return engine.UnaryOp(ctx, n.Inputs[0].Value, geluScalar(engine.Ops()))
}

func vjpGELU[T tensor.Numeric](ctx context.Context, n *graph.Node[T], gy *tensor.Tensor[T], engine compute.Engine[T]) error {
	if len(n.Inputs) != 1 {
		return fmt.Errorf("gelu: %w: got %d", ErrInvalidInputCount, len(n.Inputs))
	}

	x := n.Inputs[0]

	dGelu, err := engine.UnaryOp(ctx, x.Value, geluGradScalar(engine.Ops()))
	if err != nil {
		return err
	}

	gradX, err := engine.Mul(ctx, gy, dGelu)
	if err != nil {
		return err
	}

	return accumulateInto(x, gradX)
}

func jvpGELU[T tensor.Numeric](ctx context.Context, n *graph.Node[T], tangentOf func(*graph.Node[T]) *tensor.Tensor[T], engine compute.Engine[T]) (*tensor.Tensor[T], error) {
	if len(n.Inputs) != 1 {
		return nil, fmt.Errorf("gelu: %w: got %d", ErrInvalidInputCount, len(n.Inputs))
	}

	x := n.Inputs[0]

	dGelu, err := engine.UnaryOp(ctx, x.Value, geluGradScalar(engine.Ops()))
	if err != nil {
		return nil, err
	}

	return engine.Mul(ctx, tangentOf(x), dGelu)
}
