package graph

import (
	"github.com/flowgrid/graph-runtime/errors"
)

// Op identifies the operation a node performs.
type Op uint8

const (
	OpInput Op = iota
	OpTanh
	OpSigmoid
	OpRelu
	OpAdd
	OpMul
	OpScale
	OpSave
)

func (op Op) String() string {
	switch op {
	case OpInput:
		return "input"
	case OpTanh:
		return "tanh"
	case OpSigmoid:
		return "sigmoid"
	case OpRelu:
		return "relu"
	case OpAdd:
		return "add"
	case OpMul:
		return "mul"
	case OpScale:
		return "scale"
	case OpSave:
		return "save"
	default:
		return "unknown"
	}
}

// Placeholder is a named binding slot: inputs are read from it, saved
// outputs are written to it. The caller supplies tensors for
// placeholders through an ExecutionContext.
type Placeholder struct {
	Name string
	Size int
}

// Node is one operation in a graph. Nodes are created through the
// Graph builder methods, which guarantee that inputs precede uses.
type Node struct {
	Name string
	Op   Op
	Ins  []*Node
	PH   *Placeholder // source for OpInput, target for OpSave
	K    float32      // factor for OpScale
	size int
}

// Size returns the element count of the node's value.
func (n *Node) Size() int { return n.size }

// Graph is a named computation over float32 vectors. Build it with the
// node constructor methods, then Validate before handing it to a
// backend. A Graph is immutable once registered and must not be
// mutated while runs against it are in flight.
type Graph struct {
	name         string
	placeholders []*Placeholder
	phByName     map[string]*Placeholder
	nodes        []*Node
	byName       map[string]*Node
	err          error
}

func New(name string) *Graph {
	return &Graph{
		name:     name,
		phByName: make(map[string]*Placeholder),
		byName:   make(map[string]*Node),
	}
}

func (g *Graph) Name() string { return g.name }

// Nodes returns all nodes in construction order, which is a valid
// topological order: every node appears after its inputs.
func (g *Graph) Nodes() []*Node { return g.nodes }

// Placeholder returns the placeholder with the given name, if any.
func (g *Graph) Placeholder(name string) (*Placeholder, bool) {
	ph, ok := g.phByName[name]
	return ph, ok
}

// Inputs returns the placeholders read by input nodes.
func (g *Graph) Inputs() []*Placeholder {
	var out []*Placeholder
	for _, n := range g.nodes {
		if n.Op == OpInput {
			out = append(out, n.PH)
		}
	}
	return out
}

// Outputs returns the placeholders written by save nodes.
func (g *Graph) Outputs() []*Placeholder {
	var out []*Placeholder
	for _, n := range g.nodes {
		if n.Op == OpSave {
			out = append(out, n.PH)
		}
	}
	return out
}

// Input declares a named input of the given element count and returns
// the node reading it.
func (g *Graph) Input(name string, size int) *Node {
	if size <= 0 {
		g.fail("input %q has non-positive size %d", name, size)
		size = 0
	}
	if _, dup := g.phByName[name]; dup {
		g.fail("placeholder %q declared twice", name)
	}
	ph := &Placeholder{Name: name, Size: size}
	g.phByName[name] = ph
	g.placeholders = append(g.placeholders, ph)
	return g.add(&Node{Name: name, Op: OpInput, PH: ph, size: size})
}

// Tanh applies elementwise hyperbolic tangent.
func (g *Graph) Tanh(name string, in *Node) *Node {
	return g.unary(name, OpTanh, in)
}

// Sigmoid applies the elementwise logistic function.
func (g *Graph) Sigmoid(name string, in *Node) *Node {
	return g.unary(name, OpSigmoid, in)
}

// Relu applies elementwise max(x, 0).
func (g *Graph) Relu(name string, in *Node) *Node {
	return g.unary(name, OpRelu, in)
}

// Add computes elementwise a + b. Both inputs must have the same size.
func (g *Graph) Add(name string, a, b *Node) *Node {
	return g.binary(name, OpAdd, a, b)
}

// Mul computes elementwise a * b. Both inputs must have the same size.
func (g *Graph) Mul(name string, a, b *Node) *Node {
	return g.binary(name, OpMul, a, b)
}

// Scale computes elementwise in * k.
func (g *Graph) Scale(name string, in *Node, k float32) *Node {
	n := g.unary(name, OpScale, in)
	n.K = k
	return n
}

// Save binds the value of in to an output placeholder with the given
// name. The placeholder is returned so callers can pre-allocate the
// result tensor in their ExecutionContext.
func (g *Graph) Save(name string, in *Node) *Placeholder {
	if in == nil {
		g.fail("save %q has nil input", name)
		in = &Node{}
	}
	if _, dup := g.phByName[name]; dup {
		g.fail("placeholder %q declared twice", name)
	}
	ph := &Placeholder{Name: name, Size: in.size}
	g.phByName[name] = ph
	g.placeholders = append(g.placeholders, ph)
	g.add(&Node{Name: name, Op: OpSave, Ins: []*Node{in}, PH: ph, size: in.size})
	return ph
}

// Validate reports the first structural problem recorded during
// construction, or nil for a well-formed graph. Backends call this
// before compiling.
func (g *Graph) Validate() error {
	if g.err != nil {
		return g.err
	}
	if g.name == "" {
		return errors.InvalidInput(errors.PhaseCompile, "graph has no name")
	}
	if len(g.nodes) == 0 {
		return errors.Codegen(g.name, "graph has no nodes")
	}
	hasSave := false
	for _, n := range g.nodes {
		if n.Op == OpSave {
			hasSave = true
			break
		}
	}
	if !hasSave {
		return errors.Codegen(g.name, "graph saves no outputs")
	}
	return nil
}

func (g *Graph) unary(name string, op Op, in *Node) *Node {
	if in == nil {
		g.fail("%s %q has nil input", op, name)
		in = &Node{}
	}
	return g.add(&Node{Name: name, Op: op, Ins: []*Node{in}, size: in.size})
}

func (g *Graph) binary(name string, op Op, a, b *Node) *Node {
	if a == nil || b == nil {
		g.fail("%s %q has nil input", op, name)
		return g.add(&Node{Name: name, Op: op})
	}
	if a.size != b.size {
		g.fail("%s %q input sizes differ: %d vs %d", op, name, a.size, b.size)
	}
	return g.add(&Node{Name: name, Op: op, Ins: []*Node{a, b}, size: a.size})
}

func (g *Graph) add(n *Node) *Node {
	if _, dup := g.byName[n.Name]; dup {
		g.fail("node %q declared twice", n.Name)
	}
	g.byName[n.Name] = n
	g.nodes = append(g.nodes, n)
	return n
}

func (g *Graph) fail(format string, args ...any) {
	if g.err == nil {
		g.err = errors.New(errors.PhaseCompile, errors.KindInvalidInput).
			Network(g.name).
			Detail(format, args...).
			Build()
	}
}
