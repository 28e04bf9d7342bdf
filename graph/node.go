// Package graph implements the dynamic dataflow graph the reverse- and
// forward-mode engines differentiate over: the Node entity, its op tag,
// topological ordering and the construction helpers external op builders
// use to wire nodes together.
package graph

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/ckptgrad/ckptgrad/internal/gls"
	"github.com/ckptgrad/ckptgrad/tensor"
	"github.com/ckptgrad/ckptgrad/types"
)

// Op tags the closed set of operation kinds a node can carry. The forward
// evaluator and VJP/JVP rule tables that interpret it live in the op
// library, external to this package.
type Op int

// The supported op kinds. A leaf has no inputs and no VJP/JVP rule; every
// other tag is dispatched to the op library's rule tables by value.
const (
	OpLeaf Op = iota
	OpAdd
	OpMul
	OpMatMul
	OpReLU
	OpGELU
	OpMSELoss
	OpCrossEntropyWithLogits
	OpSum
)

func (o Op) String() string {
	switch o {
	case OpLeaf:
		return "leaf"
	case OpAdd:
		return "add"
	case OpMul:
		return "mul"
	case OpMatMul:
		return "matmul"
	case OpReLU:
		return "relu"
	case OpGELU:
		return "gelu"
	case OpMSELoss:
		return "mse-loss"
	case OpCrossEntropyWithLogits:
		return "cross-entropy-with-logits"
	case OpSum:
		return "sum"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

var nodeSeq uint64

// Node is one value in the dataflow graph. It is shared by every node that
// lists it as an input, plus any external strong reference (a root handle,
// a tracer, a saved-input slot); the reverse, child-pointing direction is
// never stored and is recovered on demand by TopoFrom.
type Node[T tensor.Numeric] struct {
	ID   uuid.UUID
	Seq  uint64
	Op   Op
	Name string

	Inputs []*Node[T]

	Value *tensor.Tensor[T]
	Grad  *tensor.Tensor[T]

	// Version counts how many times BumpVersion has been called. It starts
	// at 0 for a freshly constructed node and advances on every successful
	// recompute (RecomputeSubgraph bumps it); ordinary forward evaluation
	// does not advance it. External in-place reasoning can detect a stale
	// reference by comparing the version it last observed.
	Version uint64

	RequiresGrad bool

	IsCheckpoint      bool
	SavedInputTensors []*tensor.Tensor[T]
	// SavedInputs carries only occupancy: SavedInputs[i] true means slot i
	// was recorded at mark time. Recomputation gates on this, not on
	// whether SavedInputTensors[i] is non-nil.
	SavedInputs []bool

	HasSavedRNG  bool
	SavedRNGBlob []byte

	// DeletePolicy is opaque to this package; it is set by the checkpoint
	// subsystem at mark time and read only by an external deletion layer.
	DeletePolicy types.DeletePolicy

	// Tape is op-specific scratch cleared on eviction; the core never
	// reads it, it only clears it.
	Tape map[string]*tensor.Tensor[T]
}

// newNode allocates a node, wires its inputs and registers it with the
// current goroutine's node-creation observer, if one is installed.
func newNode[T tensor.Numeric](op Op, name string, requiresGrad bool, inputs ...*Node[T]) *Node[T] {
	n := &Node[T]{
		ID:           uuid.New(),
		Seq:          atomic.AddUint64(&nodeSeq, 1),
		Op:           op,
		Name:         name,
		Inputs:       inputs,
		RequiresGrad: requiresGrad,
	}

	gls.Invoke(n)

	return n
}

// Constant creates a leaf node holding t that does not participate in
// reverse-mode accumulation.
func Constant[T tensor.Numeric](t *tensor.Tensor[T], name string) *Node[T] {
	n := newNode[T](OpLeaf, name, false)
	n.Value = t

	return n
}

// Param creates a leaf node holding t that requires grad: the standard
// constructor for trainable tensors.
func Param[T tensor.Numeric](t *tensor.Tensor[T], name string) *Node[T] {
	n := newNode[T](OpLeaf, name, true)
	n.Value = t

	return n
}

// MakeTensor creates a leaf node with an explicit requires-grad flag.
func MakeTensor[T tensor.Numeric](t *tensor.Tensor[T], name string, requiresGrad bool) *Node[T] {
	n := newNode[T](OpLeaf, name, requiresGrad)
	n.Value = t

	return n
}

// NewOp creates a non-leaf node of the given op, wired to inputs. It
// requires grad iff at least one input does. op library constructors are
// expected to call this to get graph registration (uuid, sequence number,
// creation-hook dispatch) for free.
func NewOp[T tensor.Numeric](op Op, name string, inputs ...*Node[T]) *Node[T] {
	requiresGrad := false

	for _, in := range inputs {
		if in.RequiresGrad {
			requiresGrad = true

			break
		}
	}

	return newNode[T](op, name, requiresGrad, inputs...)
}

// BumpVersion advances n's version counter. Call it whenever n.Value is
// replaced outside of ordinary forward construction — recomputation being
// the one case the core itself triggers — so any downstream code holding
// onto a prior *tensor.Tensor[T] reference can detect it is stale.
func (n *Node[T]) BumpVersion() {
	atomic.AddUint64(&n.Version, 1)
}

// IsLeaf reports whether n has no inputs.
func (n *Node[T]) IsLeaf() bool {
	return len(n.Inputs) == 0
}

// String returns a debug representation.
func (n *Node[T]) String() string {
	name := n.Name
	if name == "" {
		name = n.ID.String()[:8]
	}

	return fmt.Sprintf("Node(%s, op=%s, seq=%d)", name, n.Op, n.Seq)
}
