package value

import (
	"math"
	"unicode/utf16"
	"unsafe"

	"github.com/wippyai/script-bridge/abi"
	"github.com/wippyai/script-bridge/errors"
	"github.com/wippyai/script-bridge/sapi"
)

// Value is an owned reference to an engine value. The zero Value is undefined.
type Value struct {
	raw abi.Value
}

// Pair is one map entry.
type Pair struct {
	Key Value
	Val Value
}

// FromRaw adopts a raw slot. The returned Value owns the reference.
func FromRaw(raw abi.Value) Value {
	return Value{raw: raw}
}

// Ref views a raw slot as a Value without taking ownership.
func Ref(p *abi.Value) *Value {
	return (*Value)(unsafe.Pointer(p))
}

// Args views an engine argument array as values. The values are borrowed
// and must not be released.
func Args(argc uint32, argv *abi.Value) []Value {
	if argc == 0 || argv == nil {
		return nil
	}
	return unsafe.Slice((*Value)(unsafe.Pointer(argv)), argc)
}

func rawSlice(vs []Value) []abi.Value {
	if len(vs) == 0 {
		return nil
	}
	return unsafe.Slice((*abi.Value)(unsafe.Pointer(&vs[0])), len(vs))
}

// Raw returns the underlying slot for passing to the engine.
func (v *Value) Raw() *abi.Value {
	return &v.raw
}

// Take moves the reference out of v, leaving v undefined.
func (v *Value) Take() Value {
	t := *v
	v.raw = abi.Value{}
	return t
}

// Release gives the reference back to the engine and leaves v undefined.
func (v *Value) Release() {
	if !isHeap(v.raw.T) {
		v.raw = abi.Value{}
		return
	}
	if err := sapi.ValueClear(&v.raw); err != nil {
		// engine gone; nothing left to release
		v.raw = abi.Value{}
	}
}

func isHeap(t abi.Type) bool {
	switch t {
	case abi.TString, abi.TBytes, abi.TArray, abi.TMap, abi.TFunction, abi.TAsset:
		return true
	}
	return false
}

// Copy returns a new reference to the same content.
func (v Value) Copy() (Value, error) {
	if !isHeap(v.raw.T) {
		return v, nil
	}
	var c Value
	if err := sapi.ValueCopy(&c.raw, &v.raw); err != nil {
		return Value{}, err
	}
	return c, nil
}

// Isolate replaces v with a deep copy that shares no containers.
func (v *Value) Isolate() error {
	return sapi.ValueIsolate(&v.raw)
}

// Scalar constructors.

func Nothing() Value { return Value{raw: abi.Value{T: abi.TUndefined, U: abi.UTNothing}} }

func Null() Value { return Value{raw: abi.Value{T: abi.TNull}} }

func Bool(b bool) Value {
	var d uint64
	if b {
		d = 1
	}
	return Value{raw: abi.Value{T: abi.TBool, D: d}}
}

func Int32(n int32) Value { return Value{raw: abi.Value{T: abi.TInt, D: uint64(uint32(n))}} }

func Int64(n int64) Value { return Value{raw: abi.Value{T: abi.TBigInt, D: uint64(n)}} }

func Float64(f float64) Value { return Value{raw: abi.Value{T: abi.TFloat, D: math.Float64bits(f)}} }

// String constructors.

func String(s string) (Value, error) { return stringWithUnit(s, abi.UTStringString) }

func Symbol(s string) (Value, error) { return stringWithUnit(s, abi.UTStringSymbol) }

func SecureString(s string) (Value, error) { return stringWithUnit(s, abi.UTStringSecure) }

// ErrorString creates the error-flavored string thunks return on failure.
func ErrorString(s string) (Value, error) { return stringWithUnit(s, abi.UTStringError) }

func stringWithUnit(s string, unit uint32) (Value, error) {
	var v Value
	if err := sapi.ValueStringDataSet(&v.raw, utf16.Encode([]rune(s)), unit); err != nil {
		return Value{}, err
	}
	return v, nil
}

// Bytes creates a byte blob value holding a copy of b.
func Bytes(b []byte) (Value, error) {
	var v Value
	if err := sapi.ValueBinaryDataSet(&v.raw, b, abi.TBytes, 0); err != nil {
		return Value{}, err
	}
	return v, nil
}

// Asset creates a value referencing thing. The engine takes its own
// reference through the asset's class.
func Asset(thing *abi.Asset) (Value, error) {
	if thing == nil {
		return Value{}, errors.NilPointer(errors.PhaseValue, "*abi.Asset")
	}
	var v Value
	if err := sapi.ValueAssetDataSet(&v.raw, thing); err != nil {
		return Value{}, err
	}
	return v, nil
}

// Array creates an array holding new references to elems.
func Array(elems ...Value) (Value, error) {
	if len(elems) == 0 {
		return parseEmpty("[]")
	}
	var arr Value
	for i := range elems {
		if err := sapi.ValueNthElementValueSet(&arr.raw, i, &elems[i].raw); err != nil {
			arr.Release()
			return Value{}, err
		}
	}
	return arr, nil
}

// Map creates a map holding new references to the pairs, in order.
func Map(pairs ...Pair) (Value, error) {
	if len(pairs) == 0 {
		return parseEmpty("{}")
	}
	var m Value
	for i := range pairs {
		if err := sapi.ValueSetValueToKey(&m.raw, &pairs[i].Key.raw, &pairs[i].Val.raw); err != nil {
			m.Release()
			return Value{}, err
		}
	}
	return m, nil
}

func parseEmpty(lit string) (Value, error) {
	var v Value
	if err := sapi.ValueFromString(&v.raw, utf16.Encode([]rune(lit)), abi.CvtJSONLiteral); err != nil {
		v.Release()
		return Value{}, err
	}
	return v, nil
}
