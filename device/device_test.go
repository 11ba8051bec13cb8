package device

import (
	stderrors "errors"
	"testing"

	rterrors "github.com/flowgrid/graph-runtime/errors"
	"github.com/flowgrid/graph-runtime/graph"
)

type fakeHandle struct {
	cfg Config
}

func (h *fakeHandle) Kind() Kind           { return h.cfg.Kind }
func (h *fakeHandle) Ordinal() int         { return h.cfg.Ordinal }
func (h *fakeHandle) Close() error         { return nil }
func (h *fakeHandle) Release(CompiledUnit) {}

func (h *fakeHandle) Compile(g *graph.Graph) (CompiledUnit, error) {
	return nil, nil
}

func (h *fakeHandle) Execute(unit CompiledUnit, ectx *graph.ExecutionContext, done CompleteFunc) {
	done(nil, ectx)
}

func TestRegisterAndNew(t *testing.T) {
	kind := Kind("fake-for-test")
	Register(kind, func(cfg Config) (Handle, error) {
		return &fakeHandle{cfg: cfg}, nil
	})

	h, err := New(Config{Kind: kind, Ordinal: 3})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if h.Kind() != kind || h.Ordinal() != 3 {
		t.Errorf("handle identity = %s:%d", h.Kind(), h.Ordinal())
	}
}

func TestNewUnknownKind(t *testing.T) {
	_, err := New(Config{Kind: "no-such-backend"})
	if err == nil {
		t.Fatal("expected error for unknown kind")
	}
	if !stderrors.Is(err, &rterrors.Error{Phase: rterrors.PhaseProvision, Kind: rterrors.KindUnsupported}) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	kind := Kind("dup-for-test")
	factory := func(cfg Config) (Handle, error) { return &fakeHandle{cfg: cfg}, nil }
	Register(kind, factory)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate Register")
		}
	}()
	Register(kind, factory)
}

func TestConfigString(t *testing.T) {
	cfg := Config{Kind: Interpreter, Ordinal: 2}
	if got := cfg.String(); got != "interpreter:2" {
		t.Errorf("String() = %q", got)
	}
}
