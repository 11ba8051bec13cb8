// Package interp is the reference device backend: a tree-walking
// evaluator over float32 slices. It exists to define correct results
// for the other backends and to keep tests hermetic.
package interp

import (
	"math"

	"go.uber.org/zap"

	"github.com/flowgrid/graph-runtime/device"
	"github.com/flowgrid/graph-runtime/errors"
	"github.com/flowgrid/graph-runtime/graph"
)

func init() {
	device.Register(device.Interpreter, New)
}

// Backend evaluates compiled graphs on the host CPU, one run at a time.
type Backend struct {
	log   *zap.Logger
	queue *device.Queue
	cfg   device.Config
}

func New(cfg device.Config) (device.Handle, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Backend{
		cfg:   cfg,
		log:   cfg.Logger.Named("interp"),
		queue: device.NewQueue(),
	}, nil
}

func (b *Backend) Kind() device.Kind { return b.cfg.Kind }
func (b *Backend) Ordinal() int      { return b.cfg.Ordinal }

type unit struct {
	g *graph.Graph
}

func (u *unit) NetworkName() string { return u.g.Name() }

// Compile validates the graph and checks every op is evaluable here.
// The interpreter keeps the graph itself as its compiled form.
func (b *Backend) Compile(g *graph.Graph) (device.CompiledUnit, error) {
	if err := g.Validate(); err != nil {
		return nil, errors.CompileFailure(g.Name(), b.cfg.String(), err)
	}
	for _, n := range g.Nodes() {
		switch n.Op {
		case graph.OpInput, graph.OpTanh, graph.OpSigmoid, graph.OpRelu,
			graph.OpAdd, graph.OpMul, graph.OpScale, graph.OpSave:
		default:
			return nil, errors.CompileFailure(g.Name(), b.cfg.String(),
				errors.Unsupported(errors.PhaseCompile, "op "+n.Op.String()))
		}
	}
	b.log.Debug("compiled network",
		zap.String("network", g.Name()),
		zap.Int("nodes", len(g.Nodes())))
	return &unit{g: g}, nil
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
	vals := make(map[*graph.Node][]float32, len(u.g.Nodes()))

	for _, n := range u.g.Nodes() {
		switch n.Op {
		case graph.OpInput:
			t, ok := ectx.Tensor(n.PH.Name)
			if !ok {
				return b.execErr(u, "placeholder %q not bound", n.PH.Name)
			}
			if t.Size() != n.Size() {
				return b.execErr(u, "placeholder %q size %d, graph expects %d",
					n.PH.Name, t.Size(), n.Size())
			}
			vals[n] = t.Data()

		case graph.OpTanh:
			vals[n] = unaryMap(vals[n.Ins[0]], func(x float32) float32 {
				return float32(math.Tanh(float64(x)))
			})

		case graph.OpSigmoid:
			vals[n] = unaryMap(vals[n.Ins[0]], func(x float32) float32 {
				return float32(1 / (1 + math.Exp(-float64(x))))
			})

		case graph.OpRelu:
			vals[n] = unaryMap(vals[n.Ins[0]], func(x float32) float32 {
				if x < 0 {
					return 0
				}
				return x
			})

		case graph.OpAdd:
			vals[n] = binaryMap(vals[n.Ins[0]], vals[n.Ins[1]], func(a, b float32) float32 {
				return a + b
			})

		case graph.OpMul:
			vals[n] = binaryMap(vals[n.Ins[0]], vals[n.Ins[1]], func(a, b float32) float32 {
				return a * b
			})

		case graph.OpScale:
			k := n.K
			vals[n] = unaryMap(vals[n.Ins[0]], func(x float32) float32 {
				return x * k
			})

		case graph.OpSave:
			t, ok := ectx.Tensor(n.PH.Name)
			if !ok {
				t = graph.NewTensor(n.Size())
				ectx.Bind(n.PH.Name, t)
			} else if t.Size() != n.Size() {
				return b.execErr(u, "output %q size %d, graph produces %d",
					n.PH.Name, t.Size(), n.Size())
			}
			copy(t.Data(), vals[n.Ins[0]])
		}
	}
	return nil
}

func (b *Backend) execErr(u *unit, format string, args ...any) error {
	return errors.Execution(u.g.Name(), b.cfg.String(),
		errors.New(errors.PhaseExecute, errors.KindInvalidInput).
			Detail(format, args...).
			Build())
}

// Release is a no-op: the interpreter holds no device-side state
// beyond the graph reference inside the unit.
func (b *Backend) Release(device.CompiledUnit) {}

func (b *Backend) Close() error {
	b.queue.Close()
	return nil
}

func unaryMap(in []float32, f func(float32) float32) []float32 {
	out := make([]float32, len(in))
	for i, x := range in {
		out[i] = f(x)
	}
	return out
}

func binaryMap(a, b []float32, f func(float32, float32) float32) []float32 {
	out := make([]float32, len(a))
	for i := range a {
		out[i] = f(a[i], b[i])
	}
	return out
}
