// Package gls emulates goroutine-local storage for the debug/trace hook: a
// per-goroutine stack of "node created" callbacks. Go has no native
// thread-local storage, so the goroutine's id (parsed from its own stack
// trace, the same trick used by established GLS shims) stands in for the
// thread identity the callback stack is keyed on.
package gls

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

// Callback is invoked with a freshly created graph node (passed as any to
// keep this package free of a dependency on the graph package's generic
// Node type).
type Callback func(node any)

var (
	mu     sync.Mutex
	stacks = make(map[int64][]Callback)
)

// goroutineID recovers the calling goroutine's id from its stack trace
// header ("goroutine 123 [running]: ..."). It is a parsing trick, not a
// stable API, but it is the only handle Go exposes on goroutine identity.
func goroutineID() int64 {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	buf = buf[:n]

	buf = bytes.TrimPrefix(buf, []byte("goroutine "))
	if idx := bytes.IndexByte(buf, ' '); idx >= 0 {
		buf = buf[:idx]
	}

	id, err := strconv.ParseInt(string(buf), 10, 64)
	if err != nil {
		return 0
	}

	return id
}

// Push installs cb on top of the calling goroutine's observer stack.
func Push(cb Callback) {
	id := goroutineID()

	mu.Lock()
	defer mu.Unlock()

	stacks[id] = append(stacks[id], cb)
}

// Pop removes the top observer from the calling goroutine's stack,
// regardless of which callback is there. It is a no-op on an empty stack.
func Pop() {
	id := goroutineID()

	mu.Lock()
	defer mu.Unlock()

	s := stacks[id]
	if len(s) == 0 {
		return
	}

	stacks[id] = s[:len(s)-1]

	if len(stacks[id]) == 0 {
		delete(stacks, id)
	}
}

// Invoke calls the calling goroutine's top-of-stack observer, if any, with
// node. This is the sole coupling point between node construction and the
// tracer/diagnostics subsystems.
func Invoke(node any) {
	id := goroutineID()

	mu.Lock()
	s := stacks[id]

	var top Callback
	if len(s) > 0 {
		top = s[len(s)-1]
	}
	mu.Unlock()

	if top != nil {
		top(node)
	}
}

// Depth reports the calling goroutine's current observer stack depth.
// Exposed for tests asserting start/stop balance.
func Depth() int {
	id := goroutineID()

	mu.Lock()
	defer mu.Unlock()

	return len(stacks[id])
}
