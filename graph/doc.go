// Package graph defines the computation graph IR the host manager
// registers and runs: named graphs over float32 vectors, the tensors
// they consume and produce, and the per-run ExecutionContext that
// binds placeholder names to tensors.
//
// A graph is built once, validated, and then treated as immutable:
//
//	g := graph.New("main")
//	x := g.Input("X", 3)
//	y := g.Tanh("tanh1", x)
//	g.Save("save", y)
//
// The host manager compiles graphs through device backends; this
// package knows nothing about devices.
package graph
