// Package graphruntime hosts compiled computation graphs on a pool of
// execution devices.
//
// A Manager owns the full lifecycle: networks are added by name,
// compiled for one device in the pool, dispatched asynchronously, and
// removed when no longer needed. Results are delivered through
// completion callbacks, exactly once per run.
//
//	graphruntime/
//	├── graph/           Graph IR, tensors and execution contexts
//	├── device/          Device handle abstraction and backend registry
//	│   ├── interp/      Reference interpreter backend
//	│   └── wasm/        WebAssembly backend (codegen + wazero)
//	├── host/            Manager, network registry and run table
//	├── config/          TOML device pool configuration
//	├── errors/          Structured errors with phase and kind
//	└── cmd/graphhost/   CLI and interactive TUI
package graphruntime
