// Package wasm is a device backend that lowers graphs to WebAssembly
// and executes them on a wazero runtime. It stands in for an
// accelerator-style device: compilation produces real device code, and
// execution happens against that code, not the graph.
package wasm

import (
	"context"
	"math"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/flowgrid/graph-runtime/device"
	"github.com/flowgrid/graph-runtime/errors"
	"github.com/flowgrid/graph-runtime/graph"
)

func init() {
	device.Register(device.WASM, New)
}

// Backend owns one wazero runtime. The env host module provides the
// transcendental kernels the generated code imports.
type Backend struct {
	log   *zap.Logger
	queue *device.Queue
	rt    wazero.Runtime
	cfg   device.Config
}

func New(cfg device.Config) (device.Handle, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)

	_, err := rt.NewHostModuleBuilder("env").
		NewFunctionBuilder().
		WithFunc(func(x float32) float32 { return float32(math.Tanh(float64(x))) }).
		Export("tanh").
		NewFunctionBuilder().
		WithFunc(func(x float32) float32 { return float32(1 / (1 + math.Exp(-float64(x)))) }).
		Export("sigmoid").
		Instantiate(ctx)
	if err != nil {
		rt.Close(ctx)
		return nil, errors.New(errors.PhaseProvision, errors.KindDeviceFault).
			Device(cfg.String()).
			Cause(err).
			Detail("instantiate env host module").
			Build()
	}

	return &Backend{
		cfg:   cfg,
		log:   cfg.Logger.Named("wasm"),
		queue: device.NewQueue(),
		rt:    rt,
	}, nil
}

func (b *Backend) Kind() device.Kind { return b.cfg.Kind }
func (b *Backend) Ordinal() int      { return b.cfg.Ordinal }

type unit struct {
	name     string
	compiled wazero.CompiledModule
	lay      *layout
}

func (u *unit) NetworkName() string { return u.name }

// Compile lowers the graph to a wasm module and compiles it through
// wazero. The compiled module is the unit's device-side state,
// released by Release.
func (b *Backend) Compile(g *graph.Graph) (device.CompiledUnit, error) {
	if err := g.Validate(); err != nil {
		return nil, errors.CompileFailure(g.Name(), b.cfg.String(), err)
	}
	code, lay, err := lower(g)
	if err != nil {
		return nil, errors.CompileFailure(g.Name(), b.cfg.String(), err)
	}
	compiled, err := b.rt.CompileModule(context.Background(), code)
	if err != nil {
		return nil, errors.CompileFailure(g.Name(), b.cfg.String(), err)
	}
	b.log.Debug("compiled network",
		zap.String("network", g.Name()),
		zap.Int("module_bytes", len(code)),
		zap.Uint32("memory_pages", lay.pages))
	return &unit{name: g.Name(), compiled: compiled, lay: lay}, nil
}

func (b *Backend) Execute(cu device.CompiledUnit, ectx *graph.ExecutionContext, done device.CompleteFunc) {
	u, ok := cu.(*unit)
	if !ok {
		go done(errors.DeviceFault(b.cfg.String(),
			errors.InvalidInput(errors.PhaseExecute, "unit was not compiled by this backend")), ectx)
		return
	}
	accepted := b.queue.Submit(func() {
		done(b.run(u, ectx), ectx)
	})
	if !accepted {
		go done(errors.DeviceFault(b.cfg.String(),
			errors.InvalidInput(errors.PhaseExecute, "device closed")), ectx)
	}
}

func (b *Backend) run(u *unit, ectx *graph.ExecutionContext) error {
	ctx := context.Background()

	// Anonymous instantiation so runs of the same unit never collide
	// on module name.
	mod, err := b.rt.InstantiateModule(ctx, u.compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return errors.Execution(u.name, b.cfg.String(), err)
	}
	defer mod.Close(ctx)

	mem := mod.Memory()
	for phName, reg := range u.lay.inputs {
		t, ok := ectx.Tensor(phName)
		if !ok {
			return b.execErr(u, "placeholder %q not bound", phName)
		}
		if t.Size() != int(reg.size) {
			return b.execErr(u, "placeholder %q size %d, graph expects %d",
				phName, t.Size(), reg.size)
		}
		for i, v := range t.Data() {
			if !mem.WriteFloat32Le(reg.off+uint32(i)*4, v) {
				return errors.DeviceFault(b.cfg.String(),
					errors.InvalidInput(errors.PhaseExecute, "input write out of bounds"))
			}
		}
	}

	if _, err := mod.ExportedFunction("run").Call(ctx); err != nil {
		return errors.Execution(u.name, b.cfg.String(), err)
	}

	for phName, reg := range u.lay.outputs {
		t, ok := ectx.Tensor(phName)
		if !ok {
			t = graph.NewTensor(int(reg.size))
			ectx.Bind(phName, t)
		} else if t.Size() != int(reg.size) {
			return b.execErr(u, "output %q size %d, graph produces %d",
				phName, t.Size(), reg.size)
		}
		data := t.Data()
		for i := range data {
			v, ok := mem.ReadFloat32Le(reg.off + uint32(i)*4)
			if !ok {
				return errors.DeviceFault(b.cfg.String(),
					errors.InvalidInput(errors.PhaseExecute, "output read out of bounds"))
			}
			data[i] = v
		}
	}
	return nil
}

func (b *Backend) execErr(u *unit, format string, args ...any) error {
	return errors.Execution(u.name, b.cfg.String(),
		errors.New(errors.PhaseExecute, errors.KindInvalidInput).
			Detail(format, args...).
			Build())
}

// Release frees the compiled wazero module. Callers must not submit
// new executions of the unit after Release; executions already
// accepted are safe because the host manager holds the unit until
// their completions fire.
func (b *Backend) Release(cu device.CompiledUnit) {
	if u, ok := cu.(*unit); ok {
		if err := u.compiled.Close(context.Background()); err != nil {
			b.log.Warn("release compiled module",
				zap.String("network", u.name),
				zap.Error(err))
		}
	}
}

func (b *Backend) Close() error {
	b.queue.Close()
	return b.rt.Close(context.Background())
}
