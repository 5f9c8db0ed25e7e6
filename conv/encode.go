package conv

import (
	"cmp"
	"reflect"
	"slices"

	"github.com/wippyai/script-bridge/errors"
	"github.com/wippyai/script-bridge/value"
)

// Encoder converts Go values to script values.
//
// Hook, when set, is consulted for every value before the built-in rules,
// including elements of slices, maps and structs. It reports handled=false
// to fall through.
type Encoder struct {
	Hook func(rv reflect.Value) (v value.Value, handled bool, err error)
}

// Encode converts x. A nil interface becomes Nothing.
func (e *Encoder) Encode(x any) (value.Value, error) {
	if x == nil {
		return value.Nothing(), nil
	}
	return e.encode(reflect.ValueOf(x))
}

// EncodeValue converts a reflected value.
func (e *Encoder) EncodeValue(rv reflect.Value) (value.Value, error) {
	if !rv.IsValid() {
		return value.Nothing(), nil
	}
	return e.encode(rv)
}

func (e *Encoder) encode(rv reflect.Value) (value.Value, error) {
	if rv.Type() == valueType {
		return rv.Interface().(value.Value).Copy()
	}
	if e.Hook != nil {
		v, handled, err := e.Hook(rv)
		if handled || err != nil {
			return v, err
		}
	}
	if rv.Type().Implements(marshalerType) {
		if rv.Kind() == reflect.Pointer && rv.IsNil() {
			return value.Null(), nil
		}
		return rv.Interface().(Marshaler).ToScriptValue()
	}
	if rv.CanAddr() && reflect.PointerTo(rv.Type()).Implements(marshalerType) {
		return rv.Addr().Interface().(Marshaler).ToScriptValue()
	}

	switch rv.Kind() {
	case reflect.Bool:
		return value.Bool(rv.Bool()), nil
	case reflect.Int8, reflect.Int16, reflect.Int32:
		return value.Int32(int32(rv.Int())), nil
	case reflect.Uint8, reflect.Uint16:
		return value.Int32(int32(rv.Uint())), nil
	case reflect.Uint32:
		return value.Int32(int32(uint32(rv.Uint()))), nil
	case reflect.Int, reflect.Int64:
		return value.Int64(rv.Int()), nil
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		return value.Int64(int64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return value.Float64(rv.Float()), nil
	case reflect.String:
		return value.String(rv.String())
	case reflect.Slice:
		if rv.IsNil() {
			return value.Null(), nil
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return value.Bytes(rv.Bytes())
		}
		return e.encodeList(rv)
	case reflect.Array:
		return e.encodeList(rv)
	case reflect.Map:
		if rv.IsNil() {
			return value.Null(), nil
		}
		return e.encodeMap(rv)
	case reflect.Struct:
		return e.encodeStruct(rv)
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return value.Null(), nil
		}
		return e.encode(rv.Elem())
	}

	return value.Value{}, errors.Unsupported(errors.PhaseConvert, rv.Type().String())
}

func (e *Encoder) encodeList(rv reflect.Value) (value.Value, error) {
	arr, err := value.Array()
	if err != nil {
		return value.Value{}, err
	}
	for i := 0; i < rv.Len(); i++ {
		elem, err := e.encode(rv.Index(i))
		if err != nil {
			arr.Release()
			return value.Value{}, at(err, indexSegment(i))
		}
		err = arr.SetIndex(i, elem)
		elem.Release()
		if err != nil {
			arr.Release()
			return value.Value{}, err
		}
	}
	return arr, nil
}

type encodedKey struct {
	key  value.Value
	text string
	elem reflect.Value
}

func (e *Encoder) encodeMap(rv reflect.Value) (value.Value, error) {
	keys := make([]encodedKey, 0, rv.Len())
	releaseKeys := func() {
		for i := range keys {
			keys[i].key.Release()
		}
	}

	iter := rv.MapRange()
	for iter.Next() {
		k, err := e.encode(iter.Key())
		if err != nil {
			releaseKeys()
			return value.Value{}, err
		}
		keys = append(keys, encodedKey{key: k, text: k.String(), elem: iter.Value()})
	}
	slices.SortStableFunc(keys, func(a, b encodedKey) int {
		return cmp.Compare(a.text, b.text)
	})

	m, err := value.Map()
	if err != nil {
		releaseKeys()
		return value.Value{}, err
	}
	for _, k := range keys {
		elem, err := e.encode(k.elem)
		if err != nil {
			releaseKeys()
			m.Release()
			return value.Value{}, at(err, k.text)
		}
		err = m.Set(k.key, elem)
		elem.Release()
		if err != nil {
			releaseKeys()
			m.Release()
			return value.Value{}, err
		}
	}
	releaseKeys()
	return m, nil
}

func (e *Encoder) encodeStruct(rv reflect.Value) (value.Value, error) {
	m, err := value.Map()
	if err != nil {
		return value.Value{}, err
	}
	for _, f := range fieldsOf(rv.Type()) {
		elem, err := e.encode(rv.FieldByIndex(f.index))
		if err != nil {
			m.Release()
			return value.Value{}, at(err, f.name)
		}
		key, err := value.String(f.name)
		if err != nil {
			elem.Release()
			m.Release()
			return value.Value{}, err
		}
		err = m.Set(key, elem)
		key.Release()
		elem.Release()
		if err != nil {
			m.Release()
			return value.Value{}, err
		}
	}
	return m, nil
}
