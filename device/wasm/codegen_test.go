package wasm

import (
	"bytes"
	"testing"

	"github.com/flowgrid/graph-runtime/graph"
)

func TestLowerModuleShape(t *testing.T) {
	g := graph.New("main")
	g.Save("save", g.Tanh("tanh1", g.Input("X", 3)))

	code, lay, err := lower(g)
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	if _, ok := lay.inputs["X"]; !ok {
		t.Error("input X missing from layout")
	}

	if !bytes.HasPrefix(code, []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}) {
		t.Error("missing wasm magic and version")
	}
	if !bytes.Contains(code, []byte("env")) || !bytes.Contains(code, []byte("tanh")) {
		t.Error("expected env.tanh import")
	}
	if !bytes.Contains(code, []byte("run")) || !bytes.Contains(code, []byte("mem")) {
		t.Error("expected run and mem exports")
	}
	if bytes.Contains(code, []byte("sigmoid")) {
		t.Error("sigmoid imported but unused")
	}
}

func TestLowerLayout(t *testing.T) {
	g := graph.New("layout")
	a := g.Input("A", 4)
	b := g.Input("B", 4)
	sum := g.Add("sum", a, b)
	g.Save("out", sum)

	_, lay, err := lower(g)
	if err != nil {
		t.Fatalf("lower: %v", err)
	}

	ra, ok := lay.inputs["A"]
	if !ok || ra.off != 0 || ra.size != 4 {
		t.Errorf("A region = %+v", ra)
	}
	rb, ok := lay.inputs["B"]
	if !ok || rb.off != 16 || rb.size != 4 {
		t.Errorf("B region = %+v", rb)
	}
	// The save target aliases the sum node's buffer.
	out, ok := lay.outputs["out"]
	if !ok || out.off != 32 || out.size != 4 {
		t.Errorf("out region = %+v", out)
	}
	if lay.pages != 1 {
		t.Errorf("pages = %d, want 1", lay.pages)
	}
}

func TestLowerNoImportsForPureOps(t *testing.T) {
	g := graph.New("pure")
	a := g.Input("A", 2)
	g.Save("out", g.Relu("r", a))

	code, _, err := lower(g)
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	if bytes.Contains(code, []byte("env")) {
		t.Error("pure graph should not import host functions")
	}
}

func TestLeb128(t *testing.T) {
	tests := []struct {
		v    uint32
		want []byte
	}{
		{0, []byte{0x00}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{65536, []byte{0x80, 0x80, 0x04}},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		uleb128(&buf, tt.v)
		if !bytes.Equal(buf.Bytes(), tt.want) {
			t.Errorf("uleb128(%d) = %x, want %x", tt.v, buf.Bytes(), tt.want)
		}
	}

	stests := []struct {
		v    int32
		want []byte
	}{
		{0, []byte{0x00}},
		{4, []byte{0x04}},
		{63, []byte{0x3f}},
		{64, []byte{0xc0, 0x00}},
		{-1, []byte{0x7f}},
		{-64, []byte{0x40}},
	}
	for _, tt := range stests {
		var buf bytes.Buffer
		sleb128(&buf, tt.v)
		if !bytes.Equal(buf.Bytes(), tt.want) {
			t.Errorf("sleb128(%d) = %x, want %x", tt.v, buf.Bytes(), tt.want)
		}
	}
}
