// Package runtime wires an engine session, the bridge API binding and the
// native function registry together.
//
// # Quick Start
//
//	ctx := context.Background()
//	rt, err := runtime.New(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	// Expose a native object as a global
//	g, err := runtime.SetGlobal(rt, &Person{Name: "Ann", Age: 30})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Access it the way script code would
//	obj, _ := rt.Global(g.Name())
//	defer obj.Release()
//	s, err := rt.Invoke(obj, "format")
//
// # Native Modules
//
// Hosts are structs whose exported methods become functions callable by
// name:
//
//	type Native struct{}
//
//	func (Native) Namespace() string    { return "native" }
//	func (Native) Sum(a, b int32) int32 { return a + b }
//
//	rt.RegisterHost(Native{})
//	v, err := rt.Call(ctx, "sum", value.Int32(1), value.Int32(2))
//
// Free functions registered with RegisterFunc are consulted first, then
// modules in registration order. A qualified name ("native.sum") goes
// straight to its module.
//
// # Lifetime
//
// Values obtained from a runtime are valid until Close. Close removes every
// global registered through SetGlobal and unbinds the bridge.
package runtime
