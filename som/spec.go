package som

import (
	"fmt"
	"reflect"

	"github.com/wippyai/script-bridge/abi"
	"github.com/wippyai/script-bridge/errors"
	"github.com/wippyai/script-bridge/value"
)

// PropertySpec describes one property. A nil Set makes it read-only.
type PropertySpec struct {
	Name string
	Get  func(thing *abi.Asset) (value.Value, error)
	Set  func(thing *abi.Asset, v value.Value) error
}

// MethodSpec describes one method. Call receives exactly Params borrowed
// arguments; the arity is checked before Call runs.
//
// Func optionally holds the Go method expression the spec was built from.
// It only feeds Describe.
type MethodSpec struct {
	Name   string
	Params int
	Call   func(thing *abi.Asset, args []value.Value) (value.Value, error)
	Func   any
}

// Capability interfaces. They are resolved once per Go type against a zero
// value, so implementations must not depend on receiver state.
type (
	// Named overrides the passport name. The default is the Go type name.
	Named interface {
		SOMName() string
	}

	Fields interface {
		SOMFields() []PropertySpec
	}

	Methods interface {
		SOMMethods() []MethodSpec
	}

	// ItemGetter serves obj[key]. A missing key returns Nothing.
	ItemGetter interface {
		SOMGetItem(key value.Value) (value.Value, error)
	}

	ItemSetter interface {
		SOMSetItem(key, val value.Value) error
	}

	// ItemEnumerator serves for-in enumeration by position. ok is false past
	// the last item.
	ItemEnumerator interface {
		SOMItemAt(i int) (key, val value.Value, ok bool, err error)
	}

	// Extendable marks instances script code may add properties to.
	Extendable interface {
		SOMExtendable() bool
	}
)

// Field binds a property to an exported struct field by reflection.
func Field(name, goField string) PropertySpec {
	return PropertySpec{
		Name: name,
		Get: func(thing *abi.Asset) (value.Value, error) {
			f, err := fieldOf(thing, goField)
			if err != nil {
				return value.Value{}, err
			}
			return encoder.EncodeValue(f)
		},
		Set: func(thing *abi.Asset, v value.Value) error {
			f, err := fieldOf(thing, goField)
			if err != nil {
				return err
			}
			// decode into a temporary so a failed conversion leaves the field intact
			tmp := reflect.New(f.Type()).Elem()
			if err := decoder.DecodeValue(v, tmp); err != nil {
				return err
			}
			f.Set(tmp)
			return nil
		},
	}
}

// ReadOnly drops the setter of p.
func ReadOnly(p PropertySpec) PropertySpec {
	p.Set = nil
	return p
}

func fieldOf(thing *abi.Asset, goField string) (reflect.Value, error) {
	payload, err := payloadOf(thing)
	if err != nil {
		return reflect.Value{}, err
	}
	rv := reflect.ValueOf(payload)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return reflect.Value{}, errors.Unsupported(errors.PhaseDispatch, "field on "+rv.Type().String())
	}
	f := rv.FieldByName(goField)
	if !f.IsValid() || !f.CanSet() {
		return reflect.Value{}, errors.NoSuchProperty(goField)
	}
	return f, nil
}

// Virtual binds a property to typed accessor functions. set may be nil.
func Virtual[T, V any](name string, get func(*T) V, set func(*T, V) error) PropertySpec {
	p := PropertySpec{
		Name: name,
		Get: func(thing *abi.Asset) (value.Value, error) {
			self, err := Ref[T](thing)
			if err != nil {
				return value.Value{}, err
			}
			return ToValue(get(self))
		},
	}
	if set != nil {
		p.Set = func(thing *abi.Asset, v value.Value) error {
			self, err := Ref[T](thing)
			if err != nil {
				return err
			}
			x, err := FromValue[V](v)
			if err != nil {
				return err
			}
			return set(self, x)
		}
	}
	return p
}

var errorType = reflect.TypeFor[error]()

// Method builds a spec from a method expression such as (*Person).Format.
// The first parameter is the receiver. Results may be empty, a value, an
// error, or a value followed by an error. Variadic methods are not supported.
//
// Reflection cannot see parameter names, so conversion errors name the
// parameters by position ('arg0', 'arg1', ...). Run somgen over an annotated
// type to get thunks that report the declared names instead.
func Method(name string, fn any) MethodSpec {
	fv := reflect.ValueOf(fn)
	ft := fv.Type()
	if ft.Kind() != reflect.Func || ft.NumIn() == 0 || ft.IsVariadic() {
		panic(fmt.Sprintf("som.Method(%q): want a non-variadic method expression, got %s", name, ft))
	}
	if n := ft.NumOut(); n > 2 || (n == 2 && ft.Out(1) != errorType) {
		panic(fmt.Sprintf("som.Method(%q): unsupported results in %s", name, ft))
	}

	recv := ft.In(0)
	params := ft.NumIn() - 1

	return MethodSpec{
		Name:   name,
		Params: params,
		Func:   fn,
		Call: func(thing *abi.Asset, args []value.Value) (value.Value, error) {
			payload, err := payloadOf(thing)
			if err != nil {
				return value.Value{}, err
			}
			self := reflect.ValueOf(payload)
			if !self.Type().AssignableTo(recv) {
				if self.Kind() == reflect.Pointer && self.Elem().Type().AssignableTo(recv) {
					self = self.Elem()
				} else {
					return value.Value{}, errors.IncompatibleType(errors.PhaseDispatch, recv.String(), self.Type().String())
				}
			}

			in := make([]reflect.Value, 0, ft.NumIn())
			in = append(in, self)
			for i, arg := range args {
				p := reflect.New(ft.In(i + 1)).Elem()
				if err := decoder.DecodeValue(arg, p); err != nil {
					return value.Value{}, errors.ArgConversion(fmt.Sprintf("arg%d", i), err)
				}
				in = append(in, p)
			}

			return results(fv.Call(in))
		},
	}
}

func results(out []reflect.Value) (value.Value, error) {
	switch len(out) {
	case 0:
		return value.Nothing(), nil
	case 1:
		if out[0].Type() == errorType {
			if err, _ := out[0].Interface().(error); err != nil {
				return value.Value{}, err
			}
			return value.Nothing(), nil
		}
		return encoder.EncodeValue(out[0])
	}
	if err, _ := out[1].Interface().(error); err != nil {
		return value.Value{}, err
	}
	return encoder.EncodeValue(out[0])
}
