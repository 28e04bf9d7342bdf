package ops

import "errors"

// ErrInvalidInputCount is returned when a node carries the wrong number of
// inputs for its op tag.
var ErrInvalidInputCount = errors.New("ops: invalid number of inputs")

// ErrUnknownOp is returned when forward evaluation is asked for an op tag
// with no registered evaluator.
var ErrUnknownOp = errors.New("ops: no forward evaluator registered for op")
