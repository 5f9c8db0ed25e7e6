package conv

import (
	"reflect"

	"github.com/wippyai/script-bridge/value"
)

// Marshaler is implemented by types that build their own script value.
type Marshaler interface {
	ToScriptValue() (value.Value, error)
}

// Unmarshaler is implemented by pointer types that fill themselves from a
// borrowed script value.
type Unmarshaler interface {
	FromScriptValue(v value.Value) error
}

var (
	marshalerType   = reflect.TypeFor[Marshaler]()
	unmarshalerType = reflect.TypeFor[Unmarshaler]()
	valueType       = reflect.TypeFor[value.Value]()
)

var (
	defaultEncoder = &Encoder{}
	defaultDecoder = &Decoder{}
)

// ToValue converts x with the default rules.
func ToValue(x any) (value.Value, error) {
	return defaultEncoder.Encode(x)
}

// FromValue converts a borrowed script value into T.
func FromValue[T any](v value.Value) (T, error) {
	var out T
	err := defaultDecoder.Decode(v, &out)
	return out, err
}

// DecodeInto is FromValue with an explicit decoder.
func DecodeInto[T any](d *Decoder, v value.Value) (T, error) {
	var out T
	err := d.Decode(v, &out)
	return out, err
}

// AsString reads a string argument. Generated thunks use it for string
// parameters.
func AsString(v value.Value) (string, error) {
	return FromValue[string](v)
}

func AsBool(v value.Value) (bool, error)       { return FromValue[bool](v) }
func AsInt(v value.Value) (int, error)         { return FromValue[int](v) }
func AsInt32(v value.Value) (int32, error)     { return FromValue[int32](v) }
func AsInt64(v value.Value) (int64, error)     { return FromValue[int64](v) }
func AsFloat64(v value.Value) (float64, error) { return FromValue[float64](v) }
