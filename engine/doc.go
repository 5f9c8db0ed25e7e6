// Package engine is an in-process reference script engine that publishes the
// abi.API entry point table.
//
// It owns a reference-counted value heap (strings, byte blobs, arrays,
// ordered maps, native functors and asset references), an atom table, the
// global asset slots and the literal printer/parser behind ValueToString and
// ValueFromString. Scalars live inline in the value slot; everything else is
// a heap reference counted per slot copy.
//
// # Script surface
//
// Besides the ABI, an Engine exposes the operations script code would
// perform on an asset: property get/set, method calls, item get/set and
// item enumeration. They go through the asset's class descriptor and
// passport exactly as a real engine would, which makes the package usable as
// a test double for the bridge and as the backing store of runtime.Runtime.
//
// # Thread Safety
//
// All entry points are serialized by one mutex. Callbacks into native code
// (functor invocation, enumeration callbacks, asset add_ref/release and
// thunks) run with the mutex released, so native code may call back into
// the engine.
package engine
