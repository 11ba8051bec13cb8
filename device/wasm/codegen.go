package wasm

import (
	"bytes"
	"math"

	"github.com/flowgrid/graph-runtime/errors"
	"github.com/flowgrid/graph-runtime/graph"
)

// region is one buffer in the module's linear memory.
type region struct {
	off  uint32 // byte offset
	size uint32 // element count
}

// layout records where the lowered module expects its placeholder data.
// Save targets alias the buffer of the node they save, so outputs are
// read back without an extra copy loop.
type layout struct {
	inputs  map[string]region
	outputs map[string]region
	pages   uint32
}

const wasmPageSize = 65536

// Wasm binary opcodes and section ids used by the emitter.
const (
	secType     = 1
	secImport   = 2
	secFunction = 3
	secMemory   = 5
	secExport   = 7
	secCode     = 10

	opBlock    = 0x02
	opLoop     = 0x03
	opEnd      = 0x0b
	opBr       = 0x0c
	opBrIf     = 0x0d
	opCall     = 0x10
	opLocalGet = 0x20
	opLocalSet = 0x21
	opF32Load  = 0x2a
	opF32Store = 0x38
	opI32Const = 0x41
	opF32Const = 0x43
	opI32GeU   = 0x4f
	opI32Add   = 0x6a
	opF32Add   = 0x92
	opF32Mul   = 0x94
	opF32Max   = 0x97

	blockVoid = 0x40
	typeFunc  = 0x60
	valF32    = 0x7d
	valI32    = 0x7f
)

// lower compiles a validated graph to a WebAssembly module exporting
// memory "mem" and a nullary function "run". Transcendental ops become
// calls into the env host module; everything else is emitted as
// elementwise f32 loops.
func lower(g *graph.Graph) ([]byte, *layout, error) {
	lay := &layout{
		inputs:  make(map[string]region),
		outputs: make(map[string]region),
	}

	regions := make(map[*graph.Node]region)
	var next uint32
	alloc := func(n *graph.Node) region {
		r := region{off: next, size: uint32(n.Size())}
		next += r.size * 4
		regions[n] = r
		return r
	}

	var importNames []string
	importIdx := make(map[graph.Op]uint32)
	needImport := func(op graph.Op, name string) {
		if _, ok := importIdx[op]; ok {
			return
		}
		importIdx[op] = uint32(len(importNames))
		importNames = append(importNames, name)
	}

	for _, n := range g.Nodes() {
		switch n.Op {
		case graph.OpInput:
			lay.inputs[n.PH.Name] = alloc(n)
		case graph.OpSave:
			lay.outputs[n.PH.Name] = regions[n.Ins[0]]
		case graph.OpTanh:
			needImport(graph.OpTanh, "tanh")
			alloc(n)
		case graph.OpSigmoid:
			needImport(graph.OpSigmoid, "sigmoid")
			alloc(n)
		case graph.OpRelu, graph.OpAdd, graph.OpMul, graph.OpScale:
			alloc(n)
		default:
			return nil, nil, errors.Unsupported(errors.PhaseCompile, "op "+n.Op.String())
		}
	}

	lay.pages = (next + wasmPageSize - 1) / wasmPageSize
	if lay.pages == 0 {
		lay.pages = 1
	}

	var body bytes.Buffer
	for _, n := range g.Nodes() {
		if n.Op == graph.OpInput || n.Op == graph.OpSave {
			continue
		}
		emitNodeLoop(&body, n, regions, importIdx)
	}
	body.WriteByte(opEnd)

	return assemble(importNames, lay.pages, body.Bytes()), lay, nil
}

// emitNodeLoop writes one elementwise loop computing node n. Local 0
// is the byte index, shared by all loops since each resets it.
func emitNodeLoop(w *bytes.Buffer, n *graph.Node, regions map[*graph.Node]region, importIdx map[graph.Op]uint32) {
	dst := regions[n]
	limit := int32(dst.size * 4)

	// i = 0
	w.WriteByte(opI32Const)
	sleb128(w, 0)
	w.WriteByte(opLocalSet)
	uleb128(w, 0)

	w.Write([]byte{opBlock, blockVoid, opLoop, blockVoid})

	// if i >= limit, break out of the block
	w.WriteByte(opLocalGet)
	uleb128(w, 0)
	w.WriteByte(opI32Const)
	sleb128(w, limit)
	w.WriteByte(opI32GeU)
	w.WriteByte(opBrIf)
	uleb128(w, 1)

	// store address operand
	w.WriteByte(opLocalGet)
	uleb128(w, 0)

	load := func(r region) {
		w.WriteByte(opLocalGet)
		uleb128(w, 0)
		w.WriteByte(opF32Load)
		uleb128(w, 2) // 4-byte alignment
		uleb128(w, r.off)
	}

	switch n.Op {
	case graph.OpTanh, graph.OpSigmoid:
		load(regions[n.Ins[0]])
		w.WriteByte(opCall)
		uleb128(w, importIdx[n.Op])
	case graph.OpRelu:
		load(regions[n.Ins[0]])
		w.WriteByte(opF32Const)
		f32const(w, 0)
		w.WriteByte(opF32Max)
	case graph.OpAdd:
		load(regions[n.Ins[0]])
		load(regions[n.Ins[1]])
		w.WriteByte(opF32Add)
	case graph.OpMul:
		load(regions[n.Ins[0]])
		load(regions[n.Ins[1]])
		w.WriteByte(opF32Mul)
	case graph.OpScale:
		load(regions[n.Ins[0]])
		w.WriteByte(opF32Const)
		f32const(w, n.K)
		w.WriteByte(opF32Mul)
	}

	w.WriteByte(opF32Store)
	uleb128(w, 2)
	uleb128(w, dst.off)

	// i += 4
	w.WriteByte(opLocalGet)
	uleb128(w, 0)
	w.WriteByte(opI32Const)
	sleb128(w, 4)
	w.WriteByte(opI32Add)
	w.WriteByte(opLocalSet)
	uleb128(w, 0)

	// continue the loop
	w.WriteByte(opBr)
	uleb128(w, 0)

	w.Write([]byte{opEnd, opEnd})
}

// assemble wraps the function body into a complete binary module.
// Type 0 is ()->() for run; type 1, present only when host calls are
// needed, is (f32)->f32 for the env imports.
func assemble(importNames []string, pages uint32, body []byte) []byte {
	var mod bytes.Buffer
	mod.Write([]byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00})

	var types bytes.Buffer
	if len(importNames) > 0 {
		uleb128(&types, 2)
	} else {
		uleb128(&types, 1)
	}
	types.Write([]byte{typeFunc, 0, 0})
	if len(importNames) > 0 {
		types.Write([]byte{typeFunc, 1, valF32, 1, valF32})
	}
	section(&mod, secType, types.Bytes())

	if len(importNames) > 0 {
		var imports bytes.Buffer
		uleb128(&imports, uint32(len(importNames)))
		for _, fn := range importNames {
			name(&imports, "env")
			name(&imports, fn)
			imports.WriteByte(0x00) // func import
			uleb128(&imports, 1)    // type (f32)->f32
		}
		section(&mod, secImport, imports.Bytes())
	}

	var funcs bytes.Buffer
	uleb128(&funcs, 1)
	uleb128(&funcs, 0) // run has type ()->()
	section(&mod, secFunction, funcs.Bytes())

	var mem bytes.Buffer
	uleb128(&mem, 1)
	mem.WriteByte(0x00) // min-only limits
	uleb128(&mem, pages)
	section(&mod, secMemory, mem.Bytes())

	var exports bytes.Buffer
	uleb128(&exports, 2)
	name(&exports, "mem")
	exports.WriteByte(0x02) // memory export
	uleb128(&exports, 0)
	name(&exports, "run")
	exports.WriteByte(0x00) // func export, after the imported funcs
	uleb128(&exports, uint32(len(importNames)))
	section(&mod, secExport, exports.Bytes())

	var code bytes.Buffer
	uleb128(&code, 1)
	var fn bytes.Buffer
	fn.Write([]byte{1, 1, valI32}) // one i32 local: the loop index
	fn.Write(body)
	uleb128(&code, uint32(fn.Len()))
	code.Write(fn.Bytes())
	section(&mod, secCode, code.Bytes())

	return mod.Bytes()
}

func section(mod *bytes.Buffer, id byte, payload []byte) {
	mod.WriteByte(id)
	uleb128(mod, uint32(len(payload)))
	mod.Write(payload)
}

func name(w *bytes.Buffer, s string) {
	uleb128(w, uint32(len(s)))
	w.WriteString(s)
}

func uleb128(w *bytes.Buffer, v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.WriteByte(b)
		if v == 0 {
			return
		}
	}
}

func sleb128(w *bytes.Buffer, v int32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			w.WriteByte(b)
			return
		}
		w.WriteByte(b | 0x80)
	}
}

func f32const(w *bytes.Buffer, v float32) {
	bits := math.Float32bits(v)
	w.Write([]byte{byte(bits), byte(bits >> 8), byte(bits >> 16), byte(bits >> 24)})
}
