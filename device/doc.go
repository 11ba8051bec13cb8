// Package device defines the backend abstraction the host manager
// provisions and dispatches against: a Handle that can compile a graph
// into an opaque CompiledUnit and execute compiled units
// asynchronously, completing through a callback.
//
// Backends register a Factory for their Kind in init, the way database
// drivers do:
//
//	import _ "github.com/flowgrid/graph-runtime/device/interp"
//
//	h, err := device.New(device.Config{Kind: device.Interpreter})
//
// The manager never branches on device kind beyond pool construction;
// all kind-specific behavior lives behind Handle.
package device
