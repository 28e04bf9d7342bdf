package tensor

import (
	"math"
	"testing"

	"github.com/zerfoo/float16"
	"github.com/zerfoo/float8"
)

// CompareApprox checks if two tensors are approximately equal element-wise,
// within epsilon, failing the test and returning false otherwise.
func CompareApprox[T Numeric](t *testing.T, actual, expected *Tensor[T], epsilon float64) bool {
	t.Helper()

	if !actual.ShapeEquals(expected) {
		t.Errorf("tensor shapes do not match: actual %v, expected %v", actual.Shape(), expected.Shape())

		return false
	}

	ok := true
	for i := range actual.data {
		a, e := toFloat64(actual.data[i]), toFloat64(expected.data[i])
		if math.Abs(a-e) > epsilon {
			t.Errorf("tensor elements at index %d differ: actual %v, expected %v, epsilon %v", i, a, e, epsilon)

			ok = false
		}
	}

	return ok
}

func toFloat64[T Numeric](v T) float64 {
	switch x := any(v).(type) {
	case float32:
		return float64(x)
	case float64:
		return x
	case float16.Float16:
		return float64(x.ToFloat32())
	case float8.Float8:
		return float64(x.ToFloat32())
	default:
		return 0
	}
}
