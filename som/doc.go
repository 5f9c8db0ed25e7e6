// Package som is the native object model: it turns Go types into assets the
// script engine can hold, inspect and call.
//
// A type opts in by implementing capability interfaces on its pointer type.
// Generated code (see cmd/somgen) implements them from annotations; they can
// also be written by hand:
//
//	func (*Person) SOMName() string { return "Person" }
//
//	func (*Person) SOMFields() []som.PropertySpec {
//		return []som.PropertySpec{som.Field("name", "Name")}
//	}
//
//	func (*Person) SOMMethods() []som.MethodSpec {
//		return []som.MethodSpec{som.Method("format", (*Person).Format)}
//	}
//
// The passport, the engine-facing manifest of properties, methods and item
// accessors, is built lazily once per type and loaded engine. A failure is
// cached and reported on every later use.
//
// # Ownership
//
// Three strategies decide who owns the payload:
//
//	som.NewAsset(p)  // reference counted; the payload is destroyed at zero
//	som.NewGlobal(p) // registered under its passport name; count fixed at 1
//	som.Lend(p)      // caller keeps ownership; End revokes script access
//
// Releasing a counted asset more often than it was retained returns a
// double release error instead of destroying the payload twice.
//
// # Thunks
//
// Calls arriving from the engine check arity first, convert arguments left
// to right, run the Go code with panics recovered, and convert the result
// with ToValue. Any failure is returned to the engine as an error string.
package som
