// Package host implements the host manager: the runtime component that
// owns compiled networks across a pool of device backends and
// dispatches asynchronous runs against them.
//
// # Quick Start
//
//	m, err := host.New([]device.Config{{Kind: device.Interpreter}})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer m.Close()
//
//	g := graph.New("main")
//	g.Save("save", g.Tanh("tanh1", g.Input("X", 3)))
//	if err := m.AddNetwork(g); err != nil {
//	    log.Fatal(err)
//	}
//
//	ectx := graph.NewContext()
//	ectx.Bind("X", graph.NewVector(1, 2, 3))
//	m.RunNetwork("main", ectx, func(id host.RunIdentifier, err error, ectx *graph.ExecutionContext) {
//	    out, _ := ectx.Tensor("save")
//	    fmt.Println(out.Data(), err)
//	})
//
// # Guarantees
//
// Network names are unique: of two adds racing on one name, exactly
// one succeeds and the other observes DuplicateName. Removal is
// idempotent and safe against in-flight runs of the same network; the
// compiled state is released only after those runs complete. Every
// run's callback fires exactly once, on a goroutine owned by the
// device, outside all manager locks, so a callback may immediately
// resubmit its context without deadlocking.
//
// # Thread Safety
//
// Manager is safe for concurrent use. ExecutionContext is not: it
// belongs to exactly one in-flight run at a time, transferring to the
// manager at RunNetwork and back to the caller at completion.
package host
