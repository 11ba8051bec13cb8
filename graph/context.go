package graph

import "sort"

// ExecutionContext carries the placeholder bindings for one run. The
// caller owns it, hands it to the host manager at run time, and gets
// it back through the run's completion callback. It is bound to at
// most one in-flight run at a time and is not safe for concurrent use.
type ExecutionContext struct {
	bindings map[string]*Tensor
}

func NewContext() *ExecutionContext {
	return &ExecutionContext{bindings: make(map[string]*Tensor)}
}

// Allocate creates a zeroed tensor sized for ph, binds it, and returns
// it. An existing binding for the same name is replaced.
func (c *ExecutionContext) Allocate(ph *Placeholder) *Tensor {
	t := NewTensor(ph.Size)
	c.bindings[ph.Name] = t
	return t
}

// Bind associates a tensor with a placeholder name.
func (c *ExecutionContext) Bind(name string, t *Tensor) {
	c.bindings[name] = t
}

// Tensor returns the tensor bound to name, if any.
func (c *ExecutionContext) Tensor(name string) (*Tensor, bool) {
	t, ok := c.bindings[name]
	return t, ok
}

// Names returns the bound placeholder names in sorted order.
func (c *ExecutionContext) Names() []string {
	names := make([]string, 0, len(c.bindings))
	for name := range c.bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
