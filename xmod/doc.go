// Package xmod dispatches script calls to native functions by name.
//
// A Provider answers calls for the names it knows. Free functions are
// registered with AddFunctions; whole modules with AddModule. Lookup tries
// free functions first, then modules in registration order, all sharing one
// namespace. A qualified "module.name" goes straight to the named module.
//
//	reg := xmod.NewRegistry()
//	reg.AddFunctions(xmod.Funcs{"sum": sum})
//	mod, _ := xmod.Reflect(&NativeModule{})
//	reg.AddModule("native", mod)
//
//	v, err := reg.Call("sum", value.Int32(1), value.Int32(2))
//
// Reflect exposes the exported methods of a value under lowerCamel names.
// Method arguments and results are converted with the som rules, so assets
// pass through as their Go payload.
package xmod
