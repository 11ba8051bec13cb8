package wasm

import (
	"math"
	"testing"

	"github.com/flowgrid/graph-runtime/device"
	rterrors "github.com/flowgrid/graph-runtime/errors"
	"github.com/flowgrid/graph-runtime/graph"
)

func newBackend(t *testing.T) device.Handle {
	t.Helper()
	h, err := New(device.Config{Kind: device.WASM})
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return h
}

func runSync(t *testing.T, h device.Handle, u device.CompiledUnit, ectx *graph.ExecutionContext) error {
	t.Helper()
	doneCh := make(chan error, 1)
	h.Execute(u, ectx, func(err error, got *graph.ExecutionContext) {
		if got != ectx {
			t.Error("callback returned a different context")
		}
		doneCh <- err
	})
	return <-doneCh
}

func TestTanhOnWasm(t *testing.T) {
	g := graph.New("main")
	g.Save("save", g.Tanh("tanh1", g.Input("X", 3)))

	h := newBackend(t)
	u, err := h.Compile(g)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	defer h.Release(u)

	ectx := graph.NewContext()
	ectx.Bind("X", graph.NewVector(1, 2, 3))

	if err := runSync(t, h, u, ectx); err != nil {
		t.Fatalf("execute: %v", err)
	}
	out, ok := ectx.Tensor("save")
	if !ok {
		t.Fatal("output not bound after run")
	}
	for i, x := range []float64{1, 2, 3} {
		want := math.Tanh(x)
		if got := float64(out.At(i)); math.Abs(got-want) > 1e-5 {
			t.Errorf("tanh(%v) = %v, want %v", x, got, want)
		}
	}
}

func TestPureWasmOps(t *testing.T) {
	// No transcendental ops, so the generated module has no imports.
	g := graph.New("pure")
	a := g.Input("A", 4)
	b := g.Input("B", 4)
	g.Save("sum", g.Add("add1", a, b))
	g.Save("prod", g.Mul("mul1", a, b))
	g.Save("half", g.Scale("scale1", a, 0.5))
	g.Save("rect", g.Relu("relu1", b))

	h := newBackend(t)
	u, err := h.Compile(g)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	defer h.Release(u)

	ectx := graph.NewContext()
	ectx.Bind("A", graph.NewVector(1, 2, 3, 4))
	ectx.Bind("B", graph.NewVector(-2, -1, 1, 2))

	if err := runSync(t, h, u, ectx); err != nil {
		t.Fatalf("execute: %v", err)
	}

	checks := map[string][]float32{
		"sum":  {-1, 1, 4, 6},
		"prod": {-2, -2, 3, 8},
		"half": {0.5, 1, 1.5, 2},
		"rect": {0, 0, 1, 2},
	}
	for name, want := range checks {
		tensor, ok := ectx.Tensor(name)
		if !ok {
			t.Fatalf("output %q not bound", name)
		}
		for i, w := range want {
			if got := tensor.At(i); got != w {
				t.Errorf("%s[%d] = %v, want %v", name, i, got, w)
			}
		}
	}
}

func TestIdentitySave(t *testing.T) {
	// Saving an input directly produces no compute loops; the output
	// aliases the input buffer.
	g := graph.New("identity")
	g.Save("copy", g.Input("X", 2))

	h := newBackend(t)
	u, err := h.Compile(g)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	defer h.Release(u)

	ectx := graph.NewContext()
	ectx.Bind("X", graph.NewVector(7, 9))
	if err := runSync(t, h, u, ectx); err != nil {
		t.Fatalf("execute: %v", err)
	}
	out, _ := ectx.Tensor("copy")
	if out.At(0) != 7 || out.At(1) != 9 {
		t.Errorf("copy = %v, %v", out.At(0), out.At(1))
	}
}

func TestRepeatedRunsOfOneUnit(t *testing.T) {
	g := graph.New("repeat")
	g.Save("out", g.Scale("double", g.Input("X", 1), 2))

	h := newBackend(t)
	u, err := h.Compile(g)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	defer h.Release(u)

	for i := 1; i <= 5; i++ {
		ectx := graph.NewContext()
		ectx.Bind("X", graph.NewVector(float32(i)))
		if err := runSync(t, h, u, ectx); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		out, _ := ectx.Tensor("out")
		if got, want := out.At(0), float32(2*i); got != want {
			t.Errorf("run %d: out = %v, want %v", i, got, want)
		}
	}
}

func TestUnboundInputFails(t *testing.T) {
	g := graph.New("main")
	g.Save("save", g.Tanh("tanh1", g.Input("X", 3)))

	h := newBackend(t)
	u, err := h.Compile(g)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	defer h.Release(u)

	err = runSync(t, h, u, graph.NewContext())
	if !rterrors.IsKind(err, rterrors.KindExecution) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCompileRejectsInvalidGraph(t *testing.T) {
	g := graph.New("broken")
	g.Tanh("t", g.Input("X", 2)) // no save

	h := newBackend(t)
	if _, err := h.Compile(g); !rterrors.IsKind(err, rterrors.KindCompileFailure) {
		t.Errorf("unexpected error: %v", err)
	}
}
