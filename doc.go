// Package scriptbridge exposes typed Go objects to an embedded script engine
// over a C-style value ABI.
//
// Go values cross the boundary as engine-owned value slots. Go structs cross
// as assets: a ref-counted header plus a class descriptor whose passport
// lists the properties, methods and item accessors script code may use.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	scriptbridge/        Root package, documentation only
//	├── abi/             Raw value slot, asset header, passport, API table
//	├── engine/          In-process reference engine implementing abi.API
//	├── sapi/            Process-wide loaded API with checked wrappers
//	├── value/           Owned, ref-counted script values
//	├── conv/            Go <-> script value conversion
//	├── resource/        Asset handle table
//	├── som/             Asset object model, passports and dispatch thunks
//	├── xmod/            Native function modules callable by name
//	├── runtime/         Engine, API and registry wired into one session
//	├── wasmhost/        wazero host module for WebAssembly guests
//	├── gen/             Source generator for annotated types
//	├── errors/          Structured error types for debugging
//	└── cmd/             somgen and somrun
//
// # Quick Start
//
// Publish a global and use it the way script code would:
//
//	rt, err := runtime.New(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	if _, err := runtime.SetGlobal(rt, person.New("Arthur", 42)); err != nil {
//	    log.Fatal(err)
//	}
//	obj, _ := rt.Global("Person")
//	defer obj.Release()
//
//	out, _ := rt.Invoke(obj, "format")
//	fmt.Println(out) // "Arthur of 42"
//
// # Declaring Assets
//
// Annotate a struct and run somgen to produce its thunks:
//
//	//som:asset
//	type Person struct {
//	    Name string `som:"name"`
//	    Age  int32  `som:"age"`
//	}
//
// Types can also implement som.Fields and som.Methods by hand, using
// som.Field and som.Method for the reflection-backed forms.
//
// # Ownership
//
// Three strategies decide who frees an asset: ref-counted (som.NewAsset),
// global (som.NewGlobal, never freed by the engine) and borrowed
// (som.Lend, revoked by End). A released or revoked asset's handle stops
// resolving, so a stale reference fails instead of reaching freed memory.
//
// # Thread Safety
//
// The reference engine serializes its own state. A process has one loaded
// API at a time in sapi; values are invalid once their engine is closed.
package scriptbridge
