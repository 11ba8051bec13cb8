package graph

import "fmt"

// Tensor is a dense float32 vector with an optional shape. The runtime
// only interprets the flat element count; shape is carried through for
// the caller's benefit.
type Tensor struct {
	data []float32
	dims []int
}

// NewTensor allocates a zeroed tensor with the given dimensions.
func NewTensor(dims ...int) *Tensor {
	size := 1
	for _, d := range dims {
		size *= d
	}
	return &Tensor{data: make([]float32, size), dims: dims}
}

// NewVector builds a 1-D tensor from the given values.
func NewVector(values ...float32) *Tensor {
	data := make([]float32, len(values))
	copy(data, values)
	return &Tensor{data: data, dims: []int{len(values)}}
}

// Size returns the flat element count.
func (t *Tensor) Size() int { return len(t.data) }

// Dims returns the tensor's dimensions.
func (t *Tensor) Dims() []int { return t.dims }

// Data returns the backing slice. Mutations are visible to the tensor.
func (t *Tensor) Data() []float32 { return t.data }

// At returns the element at flat index i.
func (t *Tensor) At(i int) float32 { return t.data[i] }

// Set overwrites the tensor's contents. The value count must match the
// tensor's size.
func (t *Tensor) Set(values ...float32) error {
	if len(values) != len(t.data) {
		return fmt.Errorf("tensor size %d, got %d values", len(t.data), len(values))
	}
	copy(t.data, values)
	return nil
}
