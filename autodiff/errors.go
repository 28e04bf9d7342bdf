package autodiff

import "errors"

// Sentinels identifying the fatal error kinds backward and recompute can
// raise; wrap these with fmt.Errorf("...: %w", ...) rather than returning
// them bare, so callers can match with errors.Is while the message still
// carries node identity.
var (
	// ErrMissingActivationNotCheckpointed is fatal: during backward, a
	// parent has an empty value and is not a checkpoint.
	ErrMissingActivationNotCheckpointed = errors.New("autodiff: parent activation missing and not checkpointed")

	// ErrRecomputeFailed is fatal: recompute_subgraph could not restore a
	// value.
	ErrRecomputeFailed = errors.New("autodiff: recompute failed")

	// ErrVJPException is fatal: a VJP rule raised during accumulation.
	ErrVJPException = errors.New("autodiff: vjp rule failed")
)
