package device

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/flowgrid/graph-runtime/errors"
	"github.com/flowgrid/graph-runtime/graph"
)

// Kind names a backend implementation.
type Kind string

const (
	Interpreter Kind = "interpreter"
	WASM        Kind = "wasm"
)

// Config describes one device in the pool: which backend to use and
// which ordinal it occupies. The pool composition is fixed for the
// lifetime of the manager that owns it.
type Config struct {
	Logger  *zap.Logger
	Kind    Kind
	Ordinal int
}

// String returns the device identity used in logs and errors.
func (c Config) String() string {
	return fmt.Sprintf("%s:%d", c.Kind, c.Ordinal)
}

// CompiledUnit is a graph lowered to device-executable form. Its
// contents are opaque outside the backend that produced it.
type CompiledUnit interface {
	NetworkName() string
}

// CompleteFunc receives the outcome of one execution. The execution
// context is handed back regardless of success or failure.
type CompleteFunc func(err error, ectx *graph.ExecutionContext)

// Handle wraps one backend instance. Compile may be called from any
// goroutine. Execute never blocks the caller; the backend serializes
// work per device internally and invokes done from its own goroutine
// exactly once per call.
type Handle interface {
	Kind() Kind
	Ordinal() int
	Compile(g *graph.Graph) (CompiledUnit, error)
	Execute(unit CompiledUnit, ectx *graph.ExecutionContext, done CompleteFunc)

	// Release frees the device-side state of a unit produced by this
	// handle. Executions already accepted before Release still complete.
	Release(unit CompiledUnit)

	Close() error
}

// Factory constructs a Handle for one Config.
type Factory func(cfg Config) (Handle, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[Kind]Factory)
)

// Register makes a backend available under the given kind. Backends
// call it from init. Registering the same kind twice panics.
func Register(kind Kind, factory Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	if factory == nil {
		panic("device: Register with nil factory")
	}
	if _, dup := factories[kind]; dup {
		panic("device: Register called twice for kind " + string(kind))
	}
	factories[kind] = factory
}

// New constructs a handle for cfg using the registered factory for its
// kind.
func New(cfg Config) (Handle, error) {
	factoriesMu.RLock()
	factory, ok := factories[cfg.Kind]
	factoriesMu.RUnlock()
	if !ok {
		return nil, errors.New(errors.PhaseProvision, errors.KindUnsupported).
			Device(cfg.String()).
			Detail("unknown device kind (registered: %v)", Kinds()).
			Build()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return factory(cfg)
}

// Kinds returns the registered backend kinds in sorted order.
func Kinds() []Kind {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	kinds := make([]Kind, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
