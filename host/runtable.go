package host

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/flowgrid/graph-runtime/graph"
)

// RunIdentifier correlates a dispatched execution with its pending
// callback. Identifiers are process-unique and valid only until the
// callback fires.
type RunIdentifier uint64

// CallbackFunc receives the outcome of one run. The execution context
// passed to RunNetwork is handed back here, success or failure, and
// ownership returns to the caller with it.
type CallbackFunc func(runID RunIdentifier, err error, ectx *graph.ExecutionContext)

// runTable tracks in-flight runs. Each allocated identifier has
// exactly one pending callback, removed before invocation so delivery
// happens exactly once and outside the table's lock.
type runTable struct {
	mu      sync.Mutex
	pending map[RunIdentifier]CallbackFunc
	nextID  atomic.Uint64
}

func newRunTable() *runTable {
	return &runTable{pending: make(map[RunIdentifier]CallbackFunc)}
}

func (t *runTable) allocate(cb CallbackFunc) RunIdentifier {
	id := RunIdentifier(t.nextID.Add(1))
	t.mu.Lock()
	t.pending[id] = cb
	t.mu.Unlock()
	return id
}

// complete removes the entry for id and invokes its callback.
// Completing an id twice, or an id never allocated, is a dispatcher
// bug, not a runtime condition: it panics rather than risk a silent
// double delivery.
func (t *runTable) complete(id RunIdentifier, err error, ectx *graph.ExecutionContext) {
	t.mu.Lock()
	cb, ok := t.pending[id]
	delete(t.pending, id)
	t.mu.Unlock()
	if !ok {
		panic(fmt.Sprintf("host: completion for unknown run %d", id))
	}
	cb(id, err, ectx)
}

func (t *runTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
