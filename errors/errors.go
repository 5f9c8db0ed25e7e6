package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseEngine   Phase = "engine"   // engine entry point calls
	PhaseValue    Phase = "value"    // script value access
	PhaseConvert  Phase = "convert"  // Go <-> script value conversion
	PhasePassport Phase = "passport" // passport construction
	PhaseAsset    Phase = "asset"    // asset lifetime management
	PhaseDispatch Phase = "dispatch" // thunk and name dispatch
	PhaseModule   Phase = "module"   // function module registration
	PhaseRuntime  Phase = "runtime"  // embedding session
	PhaseHost     Phase = "host"     // wasm host module
	PhaseGenerate Phase = "generate" // code generation
)

// Kind categorizes the error
type Kind string

const (
	KindAPIUnavailable   Kind = "api_unavailable"
	KindAPIFailure       Kind = "api_failure"
	KindIncompatibleType Kind = "incompatible_type"
	KindOverflow         Kind = "overflow"
	KindArgCount         Kind = "arg_count"
	KindArgConversion    Kind = "arg_conversion"
	KindNoSuchMethod     Kind = "no_such_method"
	KindNoSuchProperty   Kind = "no_such_property"
	KindPassport         Kind = "passport"
	KindDoubleRelease    Kind = "double_release"
	KindNotParsed        Kind = "not_parsed"
	KindInvalidHandle    Kind = "invalid_handle"
	KindUnsupported      Kind = "unsupported"
	KindNilPointer       Kind = "nil_pointer"
	KindNotFound         Kind = "not_found"
	KindNotInitialized   Kind = "not_initialized"
	KindInvalidInput     Kind = "invalid_input"
	KindInvalidData      Kind = "invalid_data"
	KindRegistration     Kind = "registration"
	KindPanic            Kind = "panic"
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Value      any
	Cause      error
	Phase      Phase
	Kind       Kind
	GoType     string
	ScriptType string
	Name       string // entry point, method, parameter or property name
	Detail     string
	Path       []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Name != "" {
		b.WriteString(" '")
		b.WriteString(e.Name)
		b.WriteByte('\'')
	}

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" || e.ScriptType != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.ScriptType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", script type ")
			b.WriteString(e.ScriptType)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("script type ")
			b.WriteString(e.ScriptType)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.ScriptType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target with an empty Phase matches on Kind alone.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		if t.Phase == "" {
			return e.Kind == t.Kind
		}
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// ScriptType sets the script value kind name
func (b *Builder) ScriptType(t string) *Builder {
	b.err.ScriptType = t
	return b
}

// Name sets the entry point, method, parameter or property name
func (b *Builder) Name(n string) *Builder {
	b.err.Name = n
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Sentinels for errors.Is matching on kind alone.
var (
	ErrAPIUnavailable   = &Error{Kind: KindAPIUnavailable}
	ErrIncompatibleType = &Error{Kind: KindIncompatibleType}
	ErrOverflow         = &Error{Kind: KindOverflow}
	ErrArgCount         = &Error{Kind: KindArgCount}
	ErrArgConversion    = &Error{Kind: KindArgConversion}
	ErrNoSuchMethod     = &Error{Kind: KindNoSuchMethod}
	ErrNoSuchProperty   = &Error{Kind: KindNoSuchProperty}
	ErrPassport         = &Error{Kind: KindPassport}
	ErrDoubleRelease    = &Error{Kind: KindDoubleRelease}
	ErrNotParsed        = &Error{Kind: KindNotParsed}
	ErrInvalidHandle    = &Error{Kind: KindInvalidHandle}
)

// Convenience constructors for the bridge taxonomy

// APIUnavailable reports an engine entry point that is missing from the loaded
// engine, or that no engine is loaded at all.
func APIUnavailable(entry string) *Error {
	return &Error{
		Phase:  PhaseEngine,
		Kind:   KindAPIUnavailable,
		Name:   entry,
		Detail: fmt.Sprintf("'%s' API method unavailable", entry),
	}
}

// APIFailure reports an entry point that returned an unexpected result code.
func APIFailure(entry string, code int32) *Error {
	return &Error{
		Phase:  PhaseEngine,
		Kind:   KindAPIFailure,
		Name:   entry,
		Value:  code,
		Detail: fmt.Sprintf("result code %d", code),
	}
}

// IncompatibleType creates an incompatible type error for a value read as a
// kind it does not hold.
func IncompatibleType(phase Phase, goType, scriptType string) *Error {
	return &Error{
		Phase:      phase,
		Kind:       KindIncompatibleType,
		GoType:     goType,
		ScriptType: scriptType,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, value any, targetType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		GoType: targetType,
		Detail: fmt.Sprintf("value %v overflows %s", value, targetType),
		Value:  value,
	}
}

// ArgCount creates an argument-count mismatch error carrying the method name
func ArgCount(method string, want, got int) *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindArgCount,
		Name:   method,
		Detail: fmt.Sprintf("expected %d argument(s), got %d", want, got),
	}
}

// ArgConversion wraps the conversion failure of one parameter
func ArgConversion(param string, cause error) *Error {
	return &Error{
		Phase: PhaseDispatch,
		Kind:  KindArgConversion,
		Name:  param,
		Cause: cause,
	}
}

// NoSuchMethod creates a dispatch miss error carrying the attempted name
func NoSuchMethod(name string) *Error {
	return &Error{
		Phase: PhaseDispatch,
		Kind:  KindNoSuchMethod,
		Name:  name,
	}
}

// NoSuchProperty creates a missing property or item accessor error
func NoSuchProperty(name string) *Error {
	return &Error{
		Phase: PhaseDispatch,
		Kind:  KindNoSuchProperty,
		Name:  name,
	}
}

// Passport creates a passport construction error for a Go type
func Passport(goType string, cause error) *Error {
	return &Error{
		Phase:  PhasePassport,
		Kind:   KindPassport,
		GoType: goType,
		Cause:  cause,
	}
}

// DoubleRelease reports a release call on an asset whose count already reached zero
func DoubleRelease(goType string, handle uint32) *Error {
	return &Error{
		Phase:  PhaseAsset,
		Kind:   KindDoubleRelease,
		GoType: goType,
		Value:  handle,
		Detail: fmt.Sprintf("handle %d released after its count reached zero", handle),
	}
}

// InvalidHandle reports a stale or unknown asset handle
func InvalidHandle(phase Phase, handle uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidHandle,
		Value:  handle,
		Detail: fmt.Sprintf("handle %d is not live", handle),
	}
}

// NotParsed reports the number of UTF-16 units a string parse left unconsumed
func NotParsed(n int) *Error {
	return &Error{
		Phase:  PhaseValue,
		Kind:   KindNotParsed,
		Value:  n,
		Detail: fmt.Sprintf("%d character(s) not parsed", n),
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// NilPointer creates a nil pointer error
func NilPointer(phase Phase, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilPointer,
		GoType: goType,
		Detail: "nil pointer",
	}
}

// Panic wraps a recovered native panic so it can be surfaced to script
func Panic(name string, recovered any) *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindPanic,
		Name:   name,
		Value:  recovered,
		Detail: fmt.Sprintf("native panic: %v", recovered),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// NotInitialized creates a not-initialized error
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Name:   name,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// Registration creates a registration error
func Registration(phase Phase, namespace, name string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindRegistration,
		Name:   name,
		Detail: fmt.Sprintf("register %s#%s", namespace, name),
		Cause:  cause,
	}
}

// MissingEntryPointsError is returned when an engine API table lacks entry
// points the bridge depends on. It usually means version skew between the
// bridge and the loaded engine.
type MissingEntryPointsError struct {
	Version     uint32
	EntryPoints []string
}

func (e *MissingEntryPointsError) Error() string {
	if len(e.EntryPoints) == 0 {
		return "[engine] api_unavailable: no entry points specified"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "engine API v%d is missing %d entry point(s):", e.Version, len(e.EntryPoints))
	for _, name := range e.EntryPoints {
		b.WriteString("\n  - ")
		b.WriteString(name)
	}
	return b.String()
}

// Is reports whether target matches this error type. It also matches the
// api_unavailable kind so callers can test for either.
func (e *MissingEntryPointsError) Is(target error) bool {
	switch t := target.(type) {
	case *MissingEntryPointsError:
		return true
	case *Error:
		return t.Kind == KindAPIUnavailable
	}
	return false
}
