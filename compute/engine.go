// Package compute implements the tensor compute engine consumed by the op
// library: the small set of dense 2-D kernels (elementwise, reduction,
// matrix multiply) that forward evaluators and VJP/JVP rules are built on.
package compute

import (
	"context"

	"github.com/ckptgrad/ckptgrad/numeric"
	"github.com/ckptgrad/ckptgrad/tensor"
)

// Engine is the interface every hardware backend (CPU today) implements.
// Routing every tensor operation through it is what lets the op library stay
// oblivious to where the elements actually live.
type Engine[T tensor.Numeric] interface {
	// Ops returns the scalar arithmetic for the engine's numeric type.
	Ops() numeric.Arithmetic[T]

	// UnaryOp applies op to every element of a, writing into dst if given.
	UnaryOp(ctx context.Context, a *tensor.Tensor[T], op func(T) T, dst ...*tensor.Tensor[T]) (*tensor.Tensor[T], error)

	// Add performs element-wise addition. Shapes must match exactly; the
	// core has no broadcasting semantics to preserve.
	Add(ctx context.Context, a, b *tensor.Tensor[T], dst ...*tensor.Tensor[T]) (*tensor.Tensor[T], error)

	// Sub performs element-wise subtraction.
	Sub(ctx context.Context, a, b *tensor.Tensor[T], dst ...*tensor.Tensor[T]) (*tensor.Tensor[T], error)

	// Mul performs element-wise multiplication.
	Mul(ctx context.Context, a, b *tensor.Tensor[T], dst ...*tensor.Tensor[T]) (*tensor.Tensor[T], error)

	// MatMul performs 2-D matrix multiplication: a (m,k) * b (k,n) -> (m,n).
	MatMul(ctx context.Context, a, b *tensor.Tensor[T], dst ...*tensor.Tensor[T]) (*tensor.Tensor[T], error)

	// Transpose returns the transpose of a 2-D tensor.
	Transpose(ctx context.Context, a *tensor.Tensor[T]) (*tensor.Tensor[T], error)

	// Sum reduces every element of a to a 1x1 tensor.
	Sum(ctx context.Context, a *tensor.Tensor[T]) (*tensor.Tensor[T], error)

	// Exp computes the element-wise exponential of a tensor.
	Exp(ctx context.Context, a *tensor.Tensor[T], dst ...*tensor.Tensor[T]) (*tensor.Tensor[T], error)

	// Log computes the element-wise natural logarithm of a tensor.
	Log(ctx context.Context, a *tensor.Tensor[T], dst ...*tensor.Tensor[T]) (*tensor.Tensor[T], error)

	// Softmax applies row-wise softmax to a 2-D tensor.
	Softmax(ctx context.Context, a *tensor.Tensor[T], dst ...*tensor.Tensor[T]) (*tensor.Tensor[T], error)

	// Fill sets every element of t to value.
	Fill(ctx context.Context, t *tensor.Tensor[T], value T) error

	// Copy copies src's data into dst. Shapes must match.
	Copy(ctx context.Context, dst, src *tensor.Tensor[T]) error

	// MulScalar multiplies every element of a by scalar.
	MulScalar(ctx context.Context, a *tensor.Tensor[T], scalar T, dst ...*tensor.Tensor[T]) (*tensor.Tensor[T], error)
}
