// Package tensor provides the dense 2-D numeric tensor consumed by the
// graph and checkpoint packages. It is deliberately narrow: the engine
// only ever needs element storage, shape queries, copies and a handful
// of constructors, never sparse layouts, broadcasting views or n-D
// indexing.
package tensor

import (
	"fmt"
	"math/rand"

	"github.com/zerfoo/float16"
	"github.com/zerfoo/float8"

	"github.com/ckptgrad/ckptgrad/device"
)

// Numeric constrains the element type a Tensor may hold.
type Numeric interface {
	~float32 | ~float64 | float8.Float8 | float16.Float16
}

// Tensor is a dense, row-major 2-D array of a generic numeric type T.
//
// The zero value (via Empty) is the "not materialized" sentinel referenced
// throughout the graph and checkpoint packages: Size reports false and rows
// and cols are both zero.
type Tensor[T Numeric] struct { //nolint:revive // stutter (tensor.Tensor) kept for API stability
	rows, cols int
	data       []T
}

// Empty returns the empty sentinel tensor: no shape, no data.
func Empty[T Numeric]() *Tensor[T] {
	return &Tensor[T]{}
}

// New allocates a tensor of the given shape. If data is nil a zeroed buffer
// is allocated through the CPU device's allocator; otherwise data is used
// directly (it must have exactly rows*cols elements).
func New[T Numeric](rows, cols int, data []T) (*Tensor[T], error) {
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("tensor: negative dimension (%d, %d)", rows, cols)
	}

	n := rows * cols
	if data == nil {
		buf, err := allocate[T](n)
		if err != nil {
			return nil, fmt.Errorf("tensor: %w", err)
		}

		data = buf
	} else if len(data) != n {
		return nil, fmt.Errorf("tensor: data length %d does not match shape (%d, %d)", len(data), rows, cols)
	}

	return &Tensor[T]{rows: rows, cols: cols, data: data}, nil
}

// allocate requests a backing buffer of n elements from the CPU device's
// allocator; the returned slice becomes the tensor's own data, not a
// throwaway. device.Get confirms the CPU device is registered before
// CPUAllocator hands back the typed slice, so allocation stays visible to
// the same device registry the rest of the stack goes through.
func allocate[T Numeric](n int) ([]T, error) {
	if _, err := device.Get("cpu"); err != nil {
		return nil, err
	}

	return device.CPUAllocator[T]().Allocate(n)
}

// Zeros returns a new rows x cols tensor filled with zeros.
func Zeros[T Numeric](rows, cols int) (*Tensor[T], error) {
	return New[T](rows, cols, nil)
}

// ZerosLike returns a new tensor of t's shape filled with zeros.
func ZerosLike[T Numeric](t *Tensor[T]) (*Tensor[T], error) {
	return Zeros[T](t.rows, t.cols)
}

// Ones returns a new rows x cols tensor filled with ones.
func Ones[T Numeric](rows, cols int) (*Tensor[T], error) {
	out, err := New[T](rows, cols, nil)
	if err != nil {
		return nil, err
	}

	one := fromFloat64[T](1)
	for i := range out.data {
		out.data[i] = one
	}

	return out, nil
}

// OnesLike returns a new tensor of t's shape filled with ones.
func OnesLike[T Numeric](t *Tensor[T]) (*Tensor[T], error) {
	return Ones[T](t.rows, t.cols)
}

// Randn returns a new rows x cols tensor of standard-normal samples drawn
// from a seeded generator, so callers can reproduce a forward pass exactly
// (the same role the RNG blob plays for checkpoint recomputation).
func Randn[T Numeric](rows, cols int, seed int64) (*Tensor[T], error) {
	out, err := New[T](rows, cols, nil)
	if err != nil {
		return nil, err
	}

	r := rand.New(rand.NewSource(seed)) //nolint:gosec // reproducible sampling, not security sensitive
	for i := range out.data {
		out.data[i] = fromFloat64[T](r.NormFloat64())
	}

	return out, nil
}

func fromFloat64[T Numeric](f float64) T {
	var zero T

	switch any(zero).(type) {
	case float32:
		return any(float32(f)).(T)
	case float64:
		return any(f).(T)
	case float16.Float16:
		return any(float16.FromFloat32(float32(f))).(T)
	case float8.Float8:
		return any(float8.ToFloat8(float32(f))).(T)
	default:
		return zero
	}
}

// Rows returns the number of rows.
func (t *Tensor[T]) Rows() int { return t.rows }

// Cols returns the number of columns.
func (t *Tensor[T]) Cols() int { return t.cols }

// Numel returns the total element count.
func (t *Tensor[T]) Numel() int { return t.rows * t.cols }

// Size reports whether the tensor holds materialized data. A tensor
// produced by Empty, or zeroed out by eviction, reports false.
func (t *Tensor[T]) Size() bool {
	return t != nil && t.data != nil
}

// Shape returns [rows, cols].
func (t *Tensor[T]) Shape() []int {
	return []int{t.rows, t.cols}
}

// ShapeEquals reports whether two tensors share the same rows and cols.
func (t *Tensor[T]) ShapeEquals(other *Tensor[T]) bool {
	if t == nil || other == nil {
		return t == other
	}

	return t.rows == other.rows && t.cols == other.cols
}

// Data returns the underlying row-major element slice. Callers that intend
// to keep a reference beyond the current op should Copy first.
func (t *Tensor[T]) Data() []T {
	return t.data
}

// At returns the element at (row, col).
func (t *Tensor[T]) At(row, col int) T {
	return t.data[row*t.cols+col]
}

// Set assigns the element at (row, col).
func (t *Tensor[T]) Set(row, col int, v T) {
	t.data[row*t.cols+col] = v
}

// Release returns t's backing buffer to the CPU allocator. It does not
// reclaim or zero the buffer itself (the allocator's Free is a bookkeeping
// no-op, since a checkpoint's saved-input snapshot may still alias this
// exact buffer) and it does not clear t's shape or data pointer — the
// caller is responsible for dropping or replacing its own reference.
// Eviction calls this before discarding a node's Value.
func (t *Tensor[T]) Release() {
	if t == nil || t.data == nil {
		return
	}

	_ = device.CPUAllocator[T]().Free(t.data)
}

// Copy returns an owned, independent duplicate of t. Checkpoint snapshots
// rely on this to survive eviction of the producing node.
func (t *Tensor[T]) Copy() *Tensor[T] {
	if t == nil || t.data == nil {
		return Empty[T]()
	}

	cp := make([]T, len(t.data))
	copy(cp, t.data)

	return &Tensor[T]{rows: t.rows, cols: t.cols, data: cp}
}

// AddInPlace accumulates other into t element-wise; used by reverse-mode
// gradient accumulation. Shapes must match.
func (t *Tensor[T]) AddInPlace(other *Tensor[T]) error {
	if !t.ShapeEquals(other) {
		return fmt.Errorf("tensor: shape mismatch in AddInPlace: %v vs %v", t.Shape(), other.Shape())
	}

	for i := range t.data {
		t.data[i] = addT(t.data[i], other.data[i])
	}

	return nil
}

func addT[T Numeric](a, b T) T {
	switch av := any(a).(type) {
	case float32:
		return any(av + any(b).(float32)).(T)
	case float64:
		return any(av + any(b).(float64)).(T)
	case float16.Float16:
		res, _ := float16.AddWithMode(av, any(b).(float16.Float16), float16.ModeFastArithmetic, float16.RoundNearestEven)

		return any(res).(T)
	case float8.Float8:
		return any(float8.Add(av, any(b).(float8.Float8))).(T)
	default:
		return a
	}
}

// String returns a debug representation of the tensor.
func (t *Tensor[T]) String() string {
	if !t.Size() {
		return "Tensor(empty)"
	}

	return fmt.Sprintf("Tensor(shape=(%d,%d), data=%v)", t.rows, t.cols, t.data)
}
