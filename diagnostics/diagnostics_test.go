package diagnostics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWarnVJPMissingIncrementsCounterForOp(t *testing.T) {
	before := testutil.ToFloat64(vjpMissingCounter.WithLabelValues("custom-op"))

	WarnVJPMissing("custom-op")

	after := testutil.ToFloat64(vjpMissingCounter.WithLabelValues("custom-op"))
	assert.Equal(t, before+1, after)
}

func TestRecordRecomputeIncrementsOkAndFailedSeparately(t *testing.T) {
	before := testutil.ToFloat64(recomputeCounter.WithLabelValues("sum", "ok"))
	RecordRecompute("sum", true)
	afterOK := testutil.ToFloat64(recomputeCounter.WithLabelValues("sum", "ok"))
	assert.Equal(t, before+1, afterOK)

	beforeFailed := testutil.ToFloat64(recomputeCounter.WithLabelValues("sum", "failed"))
	RecordRecompute("sum", false)
	afterFailed := testutil.ToFloat64(recomputeCounter.WithLabelValues("sum", "failed"))
	assert.Equal(t, beforeFailed+1, afterFailed)
}

func TestRecordEvictionIncrementsGlobalCounter(t *testing.T) {
	before := testutil.ToFloat64(evictionCounter)
	RecordEviction()
	after := testutil.ToFloat64(evictionCounter)

	assert.Equal(t, before+1, after)
}

func TestRecordForwardErrorIncrementsCounterForOp(t *testing.T) {
	before := testutil.ToFloat64(forwardErrorCounter.WithLabelValues("matmul"))
	RecordForwardError("matmul")
	after := testutil.ToFloat64(forwardErrorCounter.WithLabelValues("matmul"))

	assert.Equal(t, before+1, after)
}

func TestStartSpanReturnsNonNilSpanUnderNoOpProvider(t *testing.T) {
	_, span := StartSpan(context.Background(), "test-span")
	require.NotNil(t, span)
	span.End()
}

func TestTracerIsMemoizedAcrossCalls(t *testing.T) {
	a := Tracer()
	b := Tracer()
	assert.Equal(t, a, b)
}
