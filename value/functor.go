package value

import (
	"fmt"

	"github.com/wippyai/script-bridge/abi"
	"github.com/wippyai/script-bridge/sapi"
)

// NativeFunc is a native callable exposed to script. Arguments are borrowed;
// the returned Value is handed to the engine.
type NativeFunc func(args []Value) (Value, error)

// Functor wraps fn as a script function value.
func Functor(fn NativeFunc) (Value, error) {
	return FunctorWithRelease(fn, nil)
}

// FunctorWithRelease wraps fn and calls onRelease once when the engine
// drops its last reference.
func FunctorWithRelease(fn NativeFunc, onRelease func()) (Value, error) {
	var v Value
	release := func(any) {
		if onRelease != nil {
			onRelease()
		}
	}
	if err := sapi.ValueNativeFunctorSet(&v.raw, invokeFunctor, release, fn); err != nil {
		return Value{}, err
	}
	return v, nil
}

func invokeFunctor(tag any, argc uint32, argv *abi.Value, result *abi.Value) {
	fn, _ := tag.(NativeFunc)
	out := Ref(result)

	defer func() {
		if r := recover(); r != nil {
			out.Release()
			*out = errorValue(fmt.Sprintf("native panic: %v", r))
		}
	}()

	if fn == nil {
		*out = errorValue("functor has no callable")
		return
	}
	ret, err := fn(Args(argc, argv))
	if err != nil {
		ret.Release()
		*out = errorValue(err.Error())
		return
	}
	*out = ret
}

// errorValue builds an error string, falling back to undefined when the
// engine cannot allocate it.
func errorValue(msg string) Value {
	v, err := ErrorString(msg)
	if err != nil {
		return Value{}
	}
	return v
}

// ErrorResult stores an error string describing err in out. Used by
// thunks to report failure.
func ErrorResult(out *Value, err error) {
	out.Release()
	*out = errorValue(err.Error())
}
