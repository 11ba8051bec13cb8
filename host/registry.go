package host

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/flowgrid/graph-runtime/device"
	"github.com/flowgrid/graph-runtime/errors"
)

// dispatchTarget is the resolved (compiled unit, device) pair a run
// executes against. It is reference counted: the registry holds one
// reference for as long as the network is registered, and every
// in-flight run holds one from resolve until its completion fires, so
// removing a network never yanks device state out from under a run.
type dispatchTarget struct {
	unit   device.CompiledUnit
	handle device.Handle
	name   string
	refs   atomic.Int32
}

func (t *dispatchTarget) retain() {
	t.refs.Add(1)
}

func (t *dispatchTarget) release() {
	if t.refs.Add(-1) == 0 {
		t.handle.Release(t.unit)
	}
}

// registry owns the name to provisioned-state mapping. Mutation goes
// through one mutex; a name being compiled is held in pending so a
// racing add fails fast with DuplicateName while resolve still never
// observes the half-built entry.
type registry struct {
	mu       sync.RWMutex
	networks map[string]*dispatchTarget
	pending  map[string]struct{}
}

func newRegistry() *registry {
	return &registry{
		networks: make(map[string]*dispatchTarget),
		pending:  make(map[string]struct{}),
	}
}

// reserve claims a name before the (slow) compile step so the mutex is
// not held during compilation. The claim must be resolved with commit
// or abandon.
func (r *registry) reserve(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.networks[name]; exists {
		return errors.DuplicateName(name)
	}
	if _, inFlight := r.pending[name]; inFlight {
		return errors.DuplicateName(name)
	}
	r.pending[name] = struct{}{}
	return nil
}

// commit publishes a compiled target under its reserved name.
func (r *registry) commit(t *dispatchTarget) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, t.name)
	r.networks[t.name] = t
}

// abandon drops a reservation after a failed compile.
func (r *registry) abandon(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, name)
}

// resolve returns the target for name with a reference already taken.
// Taking the reference under the read lock makes resolve atomic with
// respect to remove.
func (r *registry) resolve(name string) (*dispatchTarget, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.networks[name]
	if !ok {
		return nil, false
	}
	t.retain()
	return t, true
}

// remove deletes the entry for name and returns it so the caller can
// drop the registry's reference outside the lock. Absent names return
// nil; removal is idempotent.
func (r *registry) remove(name string) *dispatchTarget {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.networks[name]
	if !ok {
		return nil
	}
	delete(r.networks, name)
	return t
}

// drain empties the registry and returns every target, for shutdown.
func (r *registry) drain() []*dispatchTarget {
	r.mu.Lock()
	defer r.mu.Unlock()
	targets := make([]*dispatchTarget, 0, len(r.networks))
	for name, t := range r.networks {
		delete(r.networks, name)
		targets = append(targets, t)
	}
	return targets
}

func (r *registry) names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.networks))
	for name := range r.networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *registry) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.networks)
}
