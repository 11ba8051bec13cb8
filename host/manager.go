package host

import (
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/flowgrid/graph-runtime/device"
	"github.com/flowgrid/graph-runtime/errors"
	"github.com/flowgrid/graph-runtime/graph"
)

// Manager owns a fixed pool of device handles and the lifecycle of the
// networks registered against them. It is safe for concurrent use: any
// number of goroutines may add, remove and run networks on the same
// Manager.
type Manager struct {
	log        *zap.Logger
	registry   *registry
	runs       *runTable
	devices    []device.Handle
	nextDevice atomic.Uint32
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger. It is also handed to devices
// whose Config carries no logger of its own.
func WithLogger(log *zap.Logger) Option {
	return func(m *Manager) {
		m.log = log
	}
}

// New provisions one device handle per config. At least one device is
// required; the pool is fixed for the manager's lifetime.
func New(configs []device.Config, opts ...Option) (*Manager, error) {
	if len(configs) == 0 {
		return nil, errors.InvalidInput(errors.PhaseProvision, "at least one device required")
	}

	m := &Manager{
		log:      zap.NewNop(),
		registry: newRegistry(),
		runs:     newRunTable(),
	}
	for _, opt := range opts {
		opt(m)
	}

	for _, cfg := range configs {
		if cfg.Logger == nil {
			cfg.Logger = m.log
		}
		h, err := device.New(cfg)
		if err != nil {
			for _, provisioned := range m.devices {
				provisioned.Close()
			}
			return nil, err
		}
		m.devices = append(m.devices, h)
	}

	m.log.Info("provisioned device pool", zap.Int("devices", len(m.devices)))
	return m, nil
}

// AddNetwork compiles the graph for a device in the pool and registers
// it under the graph's name. A name can hold at most one network;
// re-adding a live name fails with DuplicateName and leaves the
// existing network untouched. Compilation happens outside the registry
// lock, so slow compiles of distinct names proceed in parallel.
func (m *Manager) AddNetwork(g *graph.Graph) error {
	name := g.Name()
	if name == "" {
		return errors.InvalidInput(errors.PhaseCompile, "graph has no name")
	}

	if err := m.registry.reserve(name); err != nil {
		return err
	}

	handle := m.pickDevice()
	unit, err := handle.Compile(g)
	if err != nil {
		m.registry.abandon(name)
		return err
	}

	t := &dispatchTarget{name: name, unit: unit, handle: handle}
	t.refs.Store(1) // the registry's reference
	m.registry.commit(t)

	m.log.Info("registered network",
		zap.String("network", name),
		zap.String("device", device.Config{Kind: handle.Kind(), Ordinal: handle.Ordinal()}.String()))
	return nil
}

// RemoveNetwork unregisters name and releases its compiled state once
// in-flight runs finish. Removing an absent name is a no-op; removal
// never fails from the caller's perspective.
func (m *Manager) RemoveNetwork(name string) {
	t := m.registry.remove(name)
	if t == nil {
		return
	}
	t.release()
	m.log.Info("removed network", zap.String("network", name))
}

// RunNetwork dispatches one asynchronous execution of name against its
// assigned device and returns without blocking. The callback fires
// exactly once, on a different goroutine, with the same execution
// context handed back; the caller may reuse or resubmit it immediately,
// including from inside the callback. An unregistered name is reported
// as NotFound through the callback, never as a synchronous error, so
// callers have one uniform completion path.
func (m *Manager) RunNetwork(name string, ectx *graph.ExecutionContext, cb CallbackFunc) {
	target, ok := m.registry.resolve(name)
	id := m.runs.allocate(cb)

	if !ok {
		go m.runs.complete(id, errors.NotFound(name), ectx)
		return
	}

	target.handle.Execute(target.unit, ectx, func(err error, returned *graph.ExecutionContext) {
		m.runs.complete(id, err, returned)
		target.release()
	})
}

// NetworkNames returns the currently registered names in sorted order.
func (m *Manager) NetworkNames() []string {
	return m.registry.names()
}

// Size returns the number of registered networks.
func (m *Manager) Size() int {
	return m.registry.size()
}

// Devices describes the pool, in provisioning order.
func (m *Manager) Devices() []device.Config {
	configs := make([]device.Config, len(m.devices))
	for i, h := range m.devices {
		configs[i] = device.Config{Kind: h.Kind(), Ordinal: h.Ordinal()}
	}
	return configs
}

// Close unregisters every network and shuts the device pool down.
// Runs already dispatched complete first; their callbacks still fire.
func (m *Manager) Close() error {
	for _, t := range m.registry.drain() {
		t.release()
	}

	var err error
	for _, h := range m.devices {
		err = multierr.Append(err, h.Close())
	}
	m.log.Info("host manager closed")
	return err
}

// pickDevice assigns networks to devices round-robin at registration
// time. First-come dispatch; no load awareness.
func (m *Manager) pickDevice() device.Handle {
	n := m.nextDevice.Add(1) - 1
	return m.devices[int(n)%len(m.devices)]
}
