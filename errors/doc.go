// Package errors provides structured error types for the script bridge.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the entry point, method or parameter name involved,
// the Go and script type names, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseConvert, errors.KindIncompatibleType).
//		Path("person", "age").
//		GoType("int32").
//		ScriptType("string").
//		Detail("cannot read a string as an integer").
//		Build()
//
// Or use convenience constructors for the bridge taxonomy:
//
//	err := errors.APIUnavailable("ValueInit")
//	err := errors.ArgCount("format", 2, 0)
//	err := errors.NoSuchMethod("private")
//
// All errors implement the standard error interface and support errors.Is/As.
// The Err* sentinels match on Kind regardless of Phase:
//
//	if errors.Is(err, bridgeerrors.ErrOverflow) { ... }
package errors
