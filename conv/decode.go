package conv

import (
	stderrors "errors"
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/wippyai/script-bridge/abi"
	"github.com/wippyai/script-bridge/errors"
	"github.com/wippyai/script-bridge/value"
)

// Decoder converts script values into Go values.
//
// Hook, when set, runs before the built-in rules for every target,
// including nested elements.
type Decoder struct {
	Hook func(v value.Value, target reflect.Value) (handled bool, err error)
}

// Decode stores the converted v in the value target points to. v stays
// owned by the caller.
func (d *Decoder) Decode(v value.Value, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.NilPointer(errors.PhaseConvert, fmt.Sprintf("%T", target))
	}
	return d.decode(v, rv.Elem())
}

// DecodeValue stores the converted v in a settable reflected value.
func (d *Decoder) DecodeValue(v value.Value, target reflect.Value) error {
	return d.decode(v, target)
}

func (d *Decoder) decode(v value.Value, rv reflect.Value) error {
	t := rv.Type()
	if t == valueType {
		c, err := v.Copy()
		if err != nil {
			return err
		}
		rv.Set(reflect.ValueOf(c))
		return nil
	}
	if d.Hook != nil {
		if handled, err := d.Hook(v, rv); handled || err != nil {
			return err
		}
	}
	if rv.CanAddr() && reflect.PointerTo(t).Implements(unmarshalerType) {
		return rv.Addr().Interface().(Unmarshaler).FromScriptValue(v)
	}

	switch t.Kind() {
	case reflect.Bool:
		b, err := v.AsBool()
		if err != nil {
			return mismatch(t, v)
		}
		rv.SetBool(b)
		return nil

	case reflect.Int8, reflect.Int16, reflect.Int32:
		n, err := v.AsInt32()
		if err != nil {
			return mismatch(t, v)
		}
		if rv.OverflowInt(int64(n)) {
			return errors.Overflow(errors.PhaseConvert, n, t.String())
		}
		rv.SetInt(int64(n))
		return nil

	case reflect.Uint8, reflect.Uint16:
		n, err := v.AsInt32()
		if err != nil {
			return mismatch(t, v)
		}
		if n < 0 || rv.OverflowUint(uint64(n)) {
			return errors.Overflow(errors.PhaseConvert, n, t.String())
		}
		rv.SetUint(uint64(n))
		return nil

	case reflect.Uint32:
		n, err := v.AsInt32()
		if err != nil {
			return mismatch(t, v)
		}
		rv.SetUint(uint64(uint32(n)))
		return nil

	case reflect.Int, reflect.Int64:
		n, err := wideInt(v)
		if err != nil {
			return mismatch(t, v)
		}
		if rv.OverflowInt(n) {
			return errors.Overflow(errors.PhaseConvert, n, t.String())
		}
		rv.SetInt(n)
		return nil

	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		if v.IsInt32() {
			n, _ := v.AsInt32()
			if n < 0 {
				return errors.Overflow(errors.PhaseConvert, n, t.String())
			}
			rv.SetUint(uint64(n))
			return nil
		}
		n, err := v.AsInt64()
		if err != nil {
			return mismatch(t, v)
		}
		if rv.OverflowUint(uint64(n)) {
			return errors.Overflow(errors.PhaseConvert, n, t.String())
		}
		rv.SetUint(uint64(n))
		return nil

	case reflect.Float32, reflect.Float64:
		f, err := wideFloat(v)
		if err != nil {
			return mismatch(t, v)
		}
		if t.Kind() == reflect.Float32 && !math.IsInf(f, 0) && rv.OverflowFloat(f) {
			return errors.Overflow(errors.PhaseConvert, f, t.String())
		}
		rv.SetFloat(f)
		return nil

	case reflect.String:
		s, err := v.AsString()
		if err != nil {
			return mismatch(t, v)
		}
		rv.SetString(s)
		return nil

	case reflect.Slice:
		if v.IsNull() || v.IsUndefined() {
			rv.SetZero()
			return nil
		}
		if t.Elem().Kind() == reflect.Uint8 && v.IsBytes() {
			b, err := v.AsBytes()
			if err != nil {
				return err
			}
			rv.SetBytes(b)
			return nil
		}
		return d.decodeSlice(v, rv)

	case reflect.Array:
		return d.decodeArray(v, rv)

	case reflect.Map:
		if v.IsNull() || v.IsUndefined() {
			rv.SetZero()
			return nil
		}
		return d.decodeMap(v, rv)

	case reflect.Struct:
		return d.decodeStruct(v, rv)

	case reflect.Pointer:
		if v.IsNull() || v.IsUndefined() {
			rv.SetZero()
			return nil
		}
		elem := reflect.New(t.Elem())
		if err := d.decode(v, elem.Elem()); err != nil {
			return err
		}
		rv.Set(elem)
		return nil

	case reflect.Interface:
		if t.NumMethod() != 0 {
			break
		}
		x, err := d.natural(v)
		if err != nil {
			return err
		}
		if x == nil {
			rv.SetZero()
			return nil
		}
		rv.Set(reflect.ValueOf(x))
		return nil
	}

	return errors.Unsupported(errors.PhaseConvert, t.String())
}

func wideInt(v value.Value) (int64, error) {
	if v.IsInt32() {
		n, err := v.AsInt32()
		return int64(n), err
	}
	return v.AsInt64()
}

func wideFloat(v value.Value) (float64, error) {
	switch v.Type() {
	case abi.TInt, abi.TBigInt:
		n, err := wideInt(v)
		return float64(n), err
	}
	return v.AsFloat64()
}

func (d *Decoder) decodeSlice(v value.Value, rv reflect.Value) error {
	if !v.IsArray() {
		return mismatch(rv.Type(), v)
	}
	n, err := v.Len()
	if err != nil {
		return err
	}
	out := reflect.MakeSlice(rv.Type(), n, n)
	if err := d.fill(v, out); err != nil {
		return err
	}
	rv.Set(out)
	return nil
}

func (d *Decoder) decodeArray(v value.Value, rv reflect.Value) error {
	if !v.IsArray() {
		return mismatch(rv.Type(), v)
	}
	n, err := v.Len()
	if err != nil {
		return err
	}
	if n != rv.Len() {
		return errors.InvalidData(errors.PhaseConvert, nil,
			"array length "+strconv.Itoa(n)+" does not match "+rv.Type().String())
	}
	return d.fill(v, rv)
}

func (d *Decoder) fill(v value.Value, out reflect.Value) error {
	i := 0
	var ferr error
	err := v.Enumerate(func(_, elem *value.Value) bool {
		if i >= out.Len() {
			return false
		}
		if err := d.decode(*elem, out.Index(i)); err != nil {
			ferr = at(err, indexSegment(i))
			return false
		}
		i++
		return true
	})
	if err != nil {
		return err
	}
	return ferr
}

func (d *Decoder) decodeMap(v value.Value, rv reflect.Value) error {
	if !v.IsMap() {
		return mismatch(rv.Type(), v)
	}
	t := rv.Type()
	out := reflect.MakeMap(t)
	var ferr error
	err := v.Enumerate(func(key, elem *value.Value) bool {
		k := reflect.New(t.Key()).Elem()
		if err := d.decode(*key, k); err != nil {
			ferr = err
			return false
		}
		e := reflect.New(t.Elem()).Elem()
		if err := d.decode(*elem, e); err != nil {
			ferr = at(err, key.String())
			return false
		}
		out.SetMapIndex(k, e)
		return true
	})
	if err != nil {
		return err
	}
	if ferr != nil {
		return ferr
	}
	rv.Set(out)
	return nil
}

// decodeStruct fills matching fields. Missing keys leave fields untouched.
func (d *Decoder) decodeStruct(v value.Value, rv reflect.Value) error {
	if !v.IsMap() {
		return mismatch(rv.Type(), v)
	}
	for _, f := range fieldsOf(rv.Type()) {
		elem, err := v.GetByName(f.name)
		if err != nil {
			return err
		}
		if elem.IsUndefined() {
			continue
		}
		err = d.decode(elem, rv.FieldByIndex(f.index))
		elem.Release()
		if err != nil {
			return at(err, f.name)
		}
	}
	return nil
}

// natural picks the Go type a script value maps to when the target is any.
func (d *Decoder) natural(v value.Value) (any, error) {
	switch v.Type() {
	case abi.TUndefined, abi.TNull:
		return nil, nil
	case abi.TBool:
		return v.AsBool()
	case abi.TInt:
		return v.AsInt32()
	case abi.TBigInt:
		return v.AsInt64()
	case abi.TFloat:
		return v.AsFloat64()
	case abi.TString:
		return v.AsString()
	case abi.TBytes:
		return v.AsBytes()
	case abi.TArray:
		var out []any
		err := d.decodeSlice(v, reflect.ValueOf(&out).Elem())
		return out, err
	case abi.TMap:
		out := map[string]any{}
		var ferr error
		err := v.Enumerate(func(key, elem *value.Value) bool {
			x, err := d.natural(*elem)
			if err != nil {
				ferr = at(err, key.String())
				return false
			}
			out[key.String()] = x
			return true
		})
		if err == nil {
			err = ferr
		}
		return out, err
	case abi.TAsset:
		return v.AsAsset()
	}
	return v.Copy()
}

func mismatch(t reflect.Type, v value.Value) error {
	return errors.IncompatibleType(errors.PhaseConvert, t.String(), v.Type().String())
}

func indexSegment(i int) string {
	return "[" + strconv.Itoa(i) + "]"
}

// at prefixes the error's path with seg.
func at(err error, seg string) error {
	var e *errors.Error
	if !stderrors.As(err, &e) {
		return err
	}
	cp := *e
	cp.Path = append([]string{seg}, e.Path...)
	return &cp
}
