// Package testutils collects small assertion and mock helpers shared across
// this module's test suites: generic value/error assertions, approximate
// tensor comparison, and a scriptable compute.Engine stub for exercising op
// error paths without a real CPU engine.
package testutils

import (
	"context"
	"math"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/ckptgrad/ckptgrad/compute"
	"github.com/ckptgrad/ckptgrad/numeric"
	"github.com/ckptgrad/ckptgrad/tensor"
)

// TestCase represents a single test case with a name and a function to execute.
type TestCase struct {
	Name string
	Func func(t *testing.T)
}

// RunTests executes a slice of test cases.
func RunTests(t *testing.T, tests []TestCase) {
	t.Helper()

	for _, tt := range tests {
		t.Run(tt.Name, tt.Func)
	}
}

// ElementsMatch checks if two string slices contain the same elements, regardless of order.
func ElementsMatch(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}

	sortedA := append([]string(nil), a...)
	sortedB := append([]string(nil), b...)
	sort.Strings(sortedA)
	sort.Strings(sortedB)

	for i := range sortedA {
		if sortedA[i] != sortedB[i] {
			return false
		}
	}

	return true
}

// AssertError checks if an error is not nil.
func AssertError(t *testing.T, err error, msg string) {
	t.Helper()

	if err == nil {
		t.Errorf("expected an error, but got nil: %s", msg)
	}
}

// AssertNoError checks if an error is nil.
func AssertNoError(t *testing.T, err error, msg string) {
	t.Helper()

	if err != nil {
		t.Errorf("expected no error, but got %v: %s", err, msg)
	}
}

// AssertEqual checks if two values are equal.
func AssertEqual[T comparable](t *testing.T, expected, actual T, msg string) {
	t.Helper()

	if actual != expected {
		t.Errorf("expected %v, got %v: %s", expected, actual, msg)
	}
}

// AssertNotNil checks if a value is not nil.
func AssertNotNil(t *testing.T, value interface{}, msg string) {
	t.Helper()

	if value == nil {
		t.Errorf("expected not nil, but got nil: %s", msg)
	}
}

// AssertNil checks if a value is nil.
func AssertNil(t *testing.T, value interface{}, msg string) {
	t.Helper()

	if value != nil && !reflect.ValueOf(value).IsNil() {
		t.Errorf("expected nil, but got %v: %s", value, msg)
	}
}

// AssertTrue checks if a boolean is true.
func AssertTrue(t *testing.T, condition bool, msg string) {
	t.Helper()

	if !condition {
		t.Errorf("expected true, but got false: %s", msg)
	}
}

// AssertFalse checks if a boolean is false.
func AssertFalse(t *testing.T, condition bool, msg string) {
	t.Helper()

	if condition {
		t.Errorf("expected false, but got true: %s", msg)
	}
}

// AssertContains checks if a string contains a substring.
func AssertContains(t *testing.T, s, substr, msg string) {
	t.Helper()

	if !strings.Contains(s, substr) {
		t.Errorf("expected %q to contain %q, but it did not: %s", s, substr, msg)
	}
}

// AssertPanics checks if a function panics.
func AssertPanics(t *testing.T, f func(), msg string) {
	t.Helper()

	defer func() {
		if r := recover(); r == nil {
			t.Errorf("expected a panic, but none occurred: %s", msg)
		}
	}()

	f()
}

// AssertFloatEqual checks if two float values are approximately equal.
func AssertFloatEqual[T float32 | float64](t *testing.T, expected, actual T, tolerance T, msg string) {
	t.Helper()

	if math.Abs(float64(expected)-float64(actual)) > float64(tolerance) {
		t.Errorf("expected %v, got %v (tolerance %v): %s", expected, actual, tolerance, msg)
	}
}

// AssertTensorApproxEqual checks if two tensors are approximately equal element-wise.
func AssertTensorApproxEqual[T tensor.Numeric](t *testing.T, expected, actual *tensor.Tensor[T], tolerance float64, msg string) {
	t.Helper()

	if !actual.ShapeEquals(expected) {
		t.Errorf("tensor shapes do not match: expected %v, got %v: %s", expected.Shape(), actual.Shape(), msg)

		return
	}

	expectedData, actualData := expected.Data(), actual.Data()
	for i := range expectedData {
		if math.Abs(float64(expectedData[i])-float64(actualData[i])) > tolerance {
			t.Errorf("tensor elements at index %d differ: expected %v, got %v (tolerance %v): %s",
				i, expectedData[i], actualData[i], tolerance, msg)

			return
		}
	}
}

// StubEngine is a scriptable compute.Engine[T] that returns a fixed error
// from every method, for exercising op forward/VJP/JVP error paths without a
// real CPU engine behind them.
type StubEngine[T tensor.Numeric] struct {
	Err error
	ops numeric.Arithmetic[T]
}

// NewStubEngine creates a stub engine that fails every call with err.
func NewStubEngine[T tensor.Numeric](ops numeric.Arithmetic[T], err error) *StubEngine[T] {
	return &StubEngine[T]{Err: err, ops: ops}
}

// Ops returns the scalar arithmetic bound at construction.
func (e *StubEngine[T]) Ops() numeric.Arithmetic[T] { return e.ops }

// UnaryOp always fails with e.Err.
func (e *StubEngine[T]) UnaryOp(_ context.Context, _ *tensor.Tensor[T], _ func(T) T, _ ...*tensor.Tensor[T]) (*tensor.Tensor[T], error) {
	return nil, e.Err
}

// Add always fails with e.Err.
func (e *StubEngine[T]) Add(_ context.Context, _, _ *tensor.Tensor[T], _ ...*tensor.Tensor[T]) (*tensor.Tensor[T], error) {
	return nil, e.Err
}

// Sub always fails with e.Err.
func (e *StubEngine[T]) Sub(_ context.Context, _, _ *tensor.Tensor[T], _ ...*tensor.Tensor[T]) (*tensor.Tensor[T], error) {
	return nil, e.Err
}

// Mul always fails with e.Err.
func (e *StubEngine[T]) Mul(_ context.Context, _, _ *tensor.Tensor[T], _ ...*tensor.Tensor[T]) (*tensor.Tensor[T], error) {
	return nil, e.Err
}

// MatMul always fails with e.Err.
func (e *StubEngine[T]) MatMul(_ context.Context, _, _ *tensor.Tensor[T], _ ...*tensor.Tensor[T]) (*tensor.Tensor[T], error) {
	return nil, e.Err
}

// Transpose always fails with e.Err.
func (e *StubEngine[T]) Transpose(_ context.Context, _ *tensor.Tensor[T]) (*tensor.Tensor[T], error) {
	return nil, e.Err
}

// Sum always fails with e.Err.
func (e *StubEngine[T]) Sum(_ context.Context, _ *tensor.Tensor[T]) (*tensor.Tensor[T], error) {
	return nil, e.Err
}

// Exp always fails with e.Err.
func (e *StubEngine[T]) Exp(_ context.Context, _ *tensor.Tensor[T], _ ...*tensor.Tensor[T]) (*tensor.Tensor[T], error) {
	return nil, e.Err
}

// Log always fails with e.Err.
func (e *StubEngine[T]) Log(_ context.Context, _ *tensor.Tensor[T], _ ...*tensor.Tensor[T]) (*tensor.Tensor[T], error) {
	return nil, e.Err
}

// Softmax always fails with e.Err.
func (e *StubEngine[T]) Softmax(_ context.Context, _ *tensor.Tensor[T], _ ...*tensor.Tensor[T]) (*tensor.Tensor[T], error) {
	return nil, e.Err
}

// Fill always fails with e.Err.
func (e *StubEngine[T]) Fill(_ context.Context, _ *tensor.Tensor[T], _ T) error {
	return e.Err
}

// Copy always fails with e.Err.
func (e *StubEngine[T]) Copy(_ context.Context, _, _ *tensor.Tensor[T]) error {
	return e.Err
}

// MulScalar always fails with e.Err.
func (e *StubEngine[T]) MulScalar(_ context.Context, _ *tensor.Tensor[T], _ T, _ ...*tensor.Tensor[T]) (*tensor.Tensor[T], error) {
	return nil, e.Err
}

var _ compute.Engine[float32] = (*StubEngine[float32])(nil)
