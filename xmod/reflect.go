package xmod

import (
	"fmt"
	"reflect"

	"github.com/wippyai/script-bridge/conv"
	"github.com/wippyai/script-bridge/errors"
	"github.com/wippyai/script-bridge/som"
	"github.com/wippyai/script-bridge/value"
)

// ExplicitRegistrar lets a module name its functions instead of having
// every exported method registered under its lowerCamel name.
type ExplicitRegistrar interface {
	SOMFunctions() map[string]any
}

// skipped methods are never exposed by Reflect.
var skipped = map[string]bool{
	"Namespace":    true,
	"SOMFunctions": true,
	"Names":        true,
	"Call":         true,
}

var (
	errorType = reflect.TypeFor[error]()
	valueType = reflect.TypeFor[value.Value]()
)

// Reflect builds a provider from obj's exported methods.
func Reflect(obj any) (Funcs, error) {
	if obj == nil {
		return nil, errors.NilPointer(errors.PhaseModule, "module")
	}

	funcs := Funcs{}
	if er, ok := obj.(ExplicitRegistrar); ok {
		for name, handler := range er.SOMFunctions() {
			fn, err := Func(name, handler)
			if err != nil {
				return nil, err
			}
			funcs[name] = fn
		}
		return funcs, nil
	}

	rv := reflect.ValueOf(obj)
	rt := rv.Type()
	for i := 0; i < rt.NumMethod(); i++ {
		method := rt.Method(i)
		if !method.IsExported() || skipped[method.Name] {
			continue
		}
		name := conv.LowerCamel(method.Name)
		fn, err := Func(name, rv.Method(i).Interface())
		if err != nil {
			return nil, err
		}
		funcs[name] = fn
	}
	return funcs, nil
}

// Func adapts a Go function. A Function or a func([]value.Value)
// (value.Value, error) is used as is; any other function gets an arity
// check, per-argument conversion and result conversion.
func Func(name string, fn any) (Function, error) {
	switch f := fn.(type) {
	case Function:
		return f, nil
	case func([]value.Value) (value.Value, error):
		return f, nil
	}

	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func {
		return nil, errors.New(errors.PhaseModule, errors.KindIncompatibleType).
			Name(name).
			GoType(fmt.Sprintf("%T", fn)).
			Detail("handler must be a function").
			Build()
	}
	ft := fv.Type()
	if ft.IsVariadic() {
		return nil, errors.Unsupported(errors.PhaseModule, "variadic function "+name)
	}
	if n := ft.NumOut(); n > 2 || (n == 2 && ft.Out(1) != errorType) {
		return nil, errors.Unsupported(errors.PhaseModule, "results of "+name+": "+ft.String())
	}

	params := ft.NumIn()
	return func(args []value.Value) (value.Value, error) {
		if len(args) != params {
			return value.Value{}, errors.ArgCount(name, params, len(args))
		}
		in := make([]reflect.Value, params)
		for i, arg := range args {
			p := reflect.New(ft.In(i)).Elem()
			if err := som.DecodeValue(arg, p); err != nil {
				return value.Value{}, errors.ArgConversion(fmt.Sprintf("arg%d", i), err)
			}
			in[i] = p
		}
		return results(fv.Call(in))
	}, nil
}

func results(out []reflect.Value) (value.Value, error) {
	if n := len(out); n > 0 && out[n-1].Type() == errorType {
		if err, _ := out[n-1].Interface().(error); err != nil {
			return value.Value{}, err
		}
		out = out[:n-1]
	}
	if len(out) == 0 {
		return value.Nothing(), nil
	}
	if out[0].Type() == valueType {
		return out[0].Interface().(value.Value), nil
	}
	return som.EncodeValue(out[0])
}
