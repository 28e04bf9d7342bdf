package gls_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ckptgrad/ckptgrad/internal/gls"
)

func TestInvokeIsNoOpWithNoObserverInstalled(t *testing.T) {
	called := false
	// no Push happened on this goroutine yet (assuming a clean stack);
	// Invoke must not panic and must not call anything.
	gls.Invoke("node")
	assert.False(t, called)
}

func TestPushInvokePopRoundTrip(t *testing.T) {
	var got any

	gls.Push(func(n any) { got = n })
	defer gls.Pop()

	gls.Invoke("hello")
	assert.Equal(t, "hello", got)
}

func TestPopIsNoOpOnEmptyStack(t *testing.T) {
	before := gls.Depth()
	gls.Pop()
	assert.Equal(t, before, gls.Depth())
}

func TestDepthTracksPushAndPop(t *testing.T) {
	base := gls.Depth()

	gls.Push(func(any) {})
	assert.Equal(t, base+1, gls.Depth())

	gls.Push(func(any) {})
	assert.Equal(t, base+2, gls.Depth())

	gls.Pop()
	assert.Equal(t, base+1, gls.Depth())

	gls.Pop()
	assert.Equal(t, base, gls.Depth())
}

func TestNestedPushInvokesOnlyTopObserver(t *testing.T) {
	var outerCalled, innerCalled bool

	gls.Push(func(any) { outerCalled = true })
	gls.Push(func(any) { innerCalled = true })

	gls.Invoke("x")

	assert.False(t, outerCalled)
	assert.True(t, innerCalled)

	gls.Pop()
	gls.Pop()
}

func TestStackIsScopedPerGoroutine(t *testing.T) {
	gls.Push(func(any) {})
	defer gls.Pop()

	mainDepth := gls.Depth()

	var wg sync.WaitGroup
	wg.Add(1)

	var otherDepth int

	go func() {
		defer wg.Done()
		otherDepth = gls.Depth()
	}()

	wg.Wait()

	assert.NotEqual(t, mainDepth, otherDepth)
	assert.Equal(t, 0, otherDepth)
}
