package compute

import (
	"context"
	"errors"
	"fmt"

	"github.com/ckptgrad/ckptgrad/internal/xblas"
	"github.com/ckptgrad/ckptgrad/numeric"
	"github.com/ckptgrad/ckptgrad/tensor"
)

// CPUEngine is the CPU implementation of Engine.
type CPUEngine[T tensor.Numeric] struct {
	ops numeric.Arithmetic[T]
}

// NewCPUEngine creates a CPU engine bound to the given arithmetic.
func NewCPUEngine[T tensor.Numeric](ops numeric.Arithmetic[T]) *CPUEngine[T] {
	return &CPUEngine[T]{ops: ops}
}

// Ops returns the scalar arithmetic for T.
func (e *CPUEngine[T]) Ops() numeric.Arithmetic[T] {
	return e.ops
}

func (e *CPUEngine[T]) getOrCreateDest(rows, cols int, dst ...*tensor.Tensor[T]) (*tensor.Tensor[T], error) {
	if len(dst) > 0 && dst[0] != nil {
		if dst[0].Rows() != rows || dst[0].Cols() != cols {
			return nil, fmt.Errorf("compute: dst shape (%d,%d) does not match result shape (%d,%d)", dst[0].Rows(), dst[0].Cols(), rows, cols)
		}

		return dst[0], nil
	}

	return tensor.New[T](rows, cols, nil)
}

// UnaryOp applies op element-wise.
func (e *CPUEngine[T]) UnaryOp(_ context.Context, a *tensor.Tensor[T], op func(T) T, dst ...*tensor.Tensor[T]) (*tensor.Tensor[T], error) {
	if a == nil || !a.Size() {
		return nil, errors.New("compute: input tensor is empty")
	}

	out, err := e.getOrCreateDest(a.Rows(), a.Cols(), dst...)
	if err != nil {
		return nil, err
	}

	src, outData := a.Data(), out.Data()
	for i := range src {
		outData[i] = op(src[i])
	}

	return out, nil
}

func (e *CPUEngine[T]) binaryOp(a, b *tensor.Tensor[T], op func(x, y T) T, dst []*tensor.Tensor[T]) (*tensor.Tensor[T], error) {
	if a == nil || b == nil || !a.Size() || !b.Size() {
		return nil, errors.New("compute: input tensor is empty")
	}

	if !a.ShapeEquals(b) {
		return nil, fmt.Errorf("compute: shape mismatch %v vs %v", a.Shape(), b.Shape())
	}

	out, err := e.getOrCreateDest(a.Rows(), a.Cols(), dst...)
	if err != nil {
		return nil, err
	}

	aData, bData, outData := a.Data(), b.Data(), out.Data()
	for i := range aData {
		outData[i] = op(aData[i], bData[i])
	}

	return out, nil
}

// Add performs element-wise addition.
func (e *CPUEngine[T]) Add(_ context.Context, a, b *tensor.Tensor[T], dst ...*tensor.Tensor[T]) (*tensor.Tensor[T], error) {
	return e.binaryOp(a, b, e.ops.Add, dst)
}

// Sub performs element-wise subtraction.
func (e *CPUEngine[T]) Sub(_ context.Context, a, b *tensor.Tensor[T], dst ...*tensor.Tensor[T]) (*tensor.Tensor[T], error) {
	return e.binaryOp(a, b, e.ops.Sub, dst)
}

// Mul performs element-wise multiplication.
func (e *CPUEngine[T]) Mul(_ context.Context, a, b *tensor.Tensor[T], dst ...*tensor.Tensor[T]) (*tensor.Tensor[T], error) {
	return e.binaryOp(a, b, e.ops.Mul, dst)
}

// MatMul performs 2-D matrix multiplication via BLAS GEMM.
func (e *CPUEngine[T]) MatMul(_ context.Context, a, b *tensor.Tensor[T], dst ...*tensor.Tensor[T]) (*tensor.Tensor[T], error) {
	if a == nil || b == nil || !a.Size() || !b.Size() {
		return nil, errors.New("compute: input tensor is empty")
	}

	if a.Cols() != b.Rows() {
		return nil, fmt.Errorf("compute: matmul shape mismatch (%d,%d) x (%d,%d)", a.Rows(), a.Cols(), b.Rows(), b.Cols())
	}

	out, err := e.getOrCreateDest(a.Rows(), b.Cols(), dst...)
	if err != nil {
		return nil, err
	}

	xblas.Gemm(a.Rows(), b.Cols(), a.Cols(), a.Data(), b.Data(), out.Data())

	return out, nil
}

// Transpose returns a new tensor holding the transpose of a.
func (e *CPUEngine[T]) Transpose(_ context.Context, a *tensor.Tensor[T]) (*tensor.Tensor[T], error) {
	if a == nil || !a.Size() {
		return nil, errors.New("compute: input tensor is empty")
	}

	out, err := tensor.New[T](a.Cols(), a.Rows(), nil)
	if err != nil {
		return nil, err
	}

	for r := 0; r < a.Rows(); r++ {
		for c := 0; c < a.Cols(); c++ {
			out.Set(c, r, a.At(r, c))
		}
	}

	return out, nil
}

// Sum reduces a to a 1x1 tensor holding the sum of every element.
func (e *CPUEngine[T]) Sum(_ context.Context, a *tensor.Tensor[T]) (*tensor.Tensor[T], error) {
	if a == nil || !a.Size() {
		return nil, errors.New("compute: input tensor is empty")
	}

	total := e.ops.Sum(a.Data())

	return tensor.New[T](1, 1, []T{total})
}

// Exp computes the element-wise exponential.
func (e *CPUEngine[T]) Exp(ctx context.Context, a *tensor.Tensor[T], dst ...*tensor.Tensor[T]) (*tensor.Tensor[T], error) {
	return e.UnaryOp(ctx, a, e.ops.Exp, dst...)
}

// Log computes the element-wise natural logarithm.
func (e *CPUEngine[T]) Log(ctx context.Context, a *tensor.Tensor[T], dst ...*tensor.Tensor[T]) (*tensor.Tensor[T], error) {
	return e.UnaryOp(ctx, a, e.ops.Log, dst...)
}

// Softmax applies row-wise softmax, subtracting each row's max for
// numerical stability before exponentiating.
func (e *CPUEngine[T]) Softmax(_ context.Context, a *tensor.Tensor[T], dst ...*tensor.Tensor[T]) (*tensor.Tensor[T], error) {
	if a == nil || !a.Size() {
		return nil, errors.New("compute: input tensor is empty")
	}

	out, err := e.getOrCreateDest(a.Rows(), a.Cols(), dst...)
	if err != nil {
		return nil, err
	}

	for r := 0; r < a.Rows(); r++ {
		max := a.At(r, 0)
		for c := 1; c < a.Cols(); c++ {
			if e.ops.GreaterThan(a.At(r, c), max) {
				max = a.At(r, c)
			}
		}

		row := make([]T, a.Cols())

		var sum T

		for c := 0; c < a.Cols(); c++ {
			row[c] = e.ops.Exp(e.ops.Sub(a.At(r, c), max))
			sum = e.ops.Add(sum, row[c])
		}

		for c := 0; c < a.Cols(); c++ {
			out.Set(r, c, e.ops.Div(row[c], sum))
		}
	}

	return out, nil
}

// Fill sets every element of t to value.
func (e *CPUEngine[T]) Fill(_ context.Context, t *tensor.Tensor[T], value T) error {
	if t == nil || !t.Size() {
		return errors.New("compute: target tensor is empty")
	}

	data := t.Data()
	for i := range data {
		data[i] = value
	}

	return nil
}

// Copy copies src's data into dst. Shapes must match.
func (e *CPUEngine[T]) Copy(_ context.Context, dst, src *tensor.Tensor[T]) error {
	if dst == nil || src == nil || !src.Size() {
		return errors.New("compute: source tensor is empty")
	}

	if !dst.ShapeEquals(src) {
		return fmt.Errorf("compute: shape mismatch %v vs %v", dst.Shape(), src.Shape())
	}

	copy(dst.Data(), src.Data())

	return nil
}

// MulScalar multiplies every element of a by scalar.
func (e *CPUEngine[T]) MulScalar(ctx context.Context, a *tensor.Tensor[T], scalar T, dst ...*tensor.Tensor[T]) (*tensor.Tensor[T], error) {
	return e.UnaryOp(ctx, a, func(x T) T { return e.ops.Mul(x, scalar) }, dst...)
}

var _ Engine[float32] = (*CPUEngine[float32])(nil)
