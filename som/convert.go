package som

import (
	"reflect"

	"github.com/wippyai/script-bridge/conv"
	"github.com/wippyai/script-bridge/errors"
	"github.com/wippyai/script-bridge/value"
)

var (
	encoder = &conv.Encoder{}
	decoder = &conv.Decoder{}
)

func init() {
	encoder.Hook = encodeAsset
	decoder.Hook = decodeAsset
}

// ToValue converts x like conv.ToValue, except that pointers to types with
// a passport become ref-counted asset values, also inside containers.
func ToValue(x any) (value.Value, error) {
	return encoder.Encode(x)
}

// FromValue converts v like conv.FromValue and also resolves asset values
// into pointers to their payload.
func FromValue[T any](v value.Value) (T, error) {
	return conv.DecodeInto[T](decoder, v)
}

// EncodeValue is ToValue for a reflected value.
func EncodeValue(rv reflect.Value) (value.Value, error) {
	return encoder.EncodeValue(rv)
}

// DecodeValue is FromValue into a settable reflected value.
func DecodeValue(v value.Value, target reflect.Value) error {
	return decoder.DecodeValue(v, target)
}

func encodeAsset(rv reflect.Value) (value.Value, bool, error) {
	if rv.Kind() != reflect.Pointer || rv.IsNil() || !HasPassport(rv.Type()) {
		return value.Value{}, false, nil
	}
	if _, ok := rv.Interface().(conv.Marshaler); ok {
		return value.Value{}, false, nil
	}
	thing, fresh, err := acquire(rv.Type(), rv.Interface())
	if err != nil {
		return value.Value{}, true, err
	}
	v, err := value.Asset(thing)
	if err != nil {
		if fresh {
			assets.Revoke(thing)
		} else {
			_, _ = assets.Release(thing)
		}
		return value.Value{}, true, err
	}
	// the value holds its own reference; drop the one acquire took
	if _, err := assets.Release(thing); err != nil {
		v.Release()
		return value.Value{}, true, err
	}
	return v, true, nil
}

func decodeAsset(v value.Value, target reflect.Value) (bool, error) {
	t := target.Type()
	if t.Kind() != reflect.Pointer || !v.IsAsset() || !HasPassport(t) {
		return false, nil
	}
	thing, err := v.AsAsset()
	if err != nil {
		return true, err
	}
	payload, err := payloadOf(thing)
	if err != nil {
		return true, err
	}
	pv := reflect.ValueOf(payload)
	if !pv.Type().AssignableTo(t) {
		return true, errors.IncompatibleType(errors.PhaseConvert, t.String(), pv.Type().String())
	}
	target.Set(pv)
	return true, nil
}
