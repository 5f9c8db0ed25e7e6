package value

import (
	"bytes"
	"math"
	"unicode/utf16"

	"github.com/wippyai/script-bridge/abi"
	"github.com/wippyai/script-bridge/errors"
	"github.com/wippyai/script-bridge/sapi"
)

// Mode selects a string rendering.
type Mode = abi.ToStringMode

const (
	Simple       = abi.CvtSimple
	JSONLiteral  = abi.CvtJSONLiteral
	JSONMap      = abi.CvtJSONMap
	XJSONLiteral = abi.CvtXJSONLiteral
)

func (v Value) Type() abi.Type { return v.raw.T }
func (v Value) Unit() uint32   { return v.raw.U }

func (v Value) IsUndefined() bool { return v.raw.T == abi.TUndefined }
func (v Value) IsNothing() bool   { return v.raw.T == abi.TUndefined && v.raw.U == abi.UTNothing }
func (v Value) IsNull() bool      { return v.raw.T == abi.TNull }
func (v Value) IsBool() bool      { return v.raw.T == abi.TBool }
func (v Value) IsInt32() bool     { return v.raw.T == abi.TInt }
func (v Value) IsInt64() bool     { return v.raw.T == abi.TBigInt }
func (v Value) IsFloat64() bool   { return v.raw.T == abi.TFloat }
func (v Value) IsString() bool    { return v.raw.T == abi.TString }
func (v Value) IsBytes() bool     { return v.raw.T == abi.TBytes }
func (v Value) IsArray() bool     { return v.raw.T == abi.TArray }
func (v Value) IsMap() bool       { return v.raw.T == abi.TMap }
func (v Value) IsFunction() bool  { return v.raw.T == abi.TFunction }
func (v Value) IsAsset() bool     { return v.raw.T == abi.TAsset }

func (v Value) IsSymbol() bool {
	return v.raw.T == abi.TString && v.raw.U == abi.UTStringSymbol
}

func (v Value) IsErrorString() bool {
	return v.raw.T == abi.TString && v.raw.U == abi.UTStringError
}

func (v Value) IsSecureString() bool {
	return v.raw.T == abi.TString && v.raw.U == abi.UTStringSecure
}

// IsNativeFunction reports whether v is a functor created on the native side.
func (v Value) IsNativeFunction() bool {
	if v.raw.T != abi.TFunction {
		return false
	}
	ok, err := sapi.ValueIsNativeFunctor(&v.raw)
	return err == nil && ok
}

func (v Value) incompatible(goType string) error {
	return errors.IncompatibleType(errors.PhaseValue, goType, v.raw.T.String())
}

func (v Value) AsBool() (bool, error) {
	if v.raw.T != abi.TBool {
		return false, v.incompatible("bool")
	}
	n, err := sapi.ValueIntData(&v.raw)
	return n != 0, err
}

func (v Value) AsInt32() (int32, error) {
	if v.raw.T != abi.TInt {
		return 0, v.incompatible("int32")
	}
	return sapi.ValueIntData(&v.raw)
}

func (v Value) AsInt64() (int64, error) {
	if v.raw.T != abi.TBigInt {
		return 0, v.incompatible("int64")
	}
	return sapi.ValueInt64Data(&v.raw)
}

func (v Value) AsFloat64() (float64, error) {
	if v.raw.T != abi.TFloat {
		return 0, v.incompatible("float64")
	}
	return sapi.ValueFloatData(&v.raw)
}

func (v Value) AsString() (string, error) {
	if v.raw.T != abi.TString {
		return "", v.incompatible("string")
	}
	chars, err := sapi.ValueStringData(&v.raw)
	if err != nil {
		return "", err
	}
	return string(utf16.Decode(chars)), nil
}

// AsBytes returns a copy of a byte blob value.
func (v Value) AsBytes() ([]byte, error) {
	if v.raw.T != abi.TBytes {
		return nil, v.incompatible("[]byte")
	}
	data, err := sapi.ValueBinaryData(&v.raw)
	if err != nil {
		return nil, err
	}
	return bytes.Clone(data), nil
}

func (v Value) AsAsset() (*abi.Asset, error) {
	if v.raw.T != abi.TAsset {
		return nil, v.incompatible("asset")
	}
	return sapi.ValueAssetData(&v.raw)
}

const (
	rankBool = iota + 1
	rankInt32
	rankInt64
	rankFloat
)

func numericRank(t abi.Type) int {
	switch t {
	case abi.TBool:
		return rankBool
	case abi.TInt:
		return rankInt32
	case abi.TBigInt:
		return rankInt64
	case abi.TFloat:
		return rankFloat
	}
	return 0
}

// Equal compares two values. Numeric operands of different kinds compare
// as the wider kind; any other kind mismatch is unequal.
func (v Value) Equal(o Value) bool {
	ra, rb := numericRank(v.raw.T), numericRank(o.raw.T)
	if ra != 0 && rb != 0 && ra != rb {
		switch max(ra, rb) {
		case rankFloat:
			return v.widenFloat() == o.widenFloat()
		default:
			return v.widenInt() == o.widenInt()
		}
	}
	if v.raw.T != o.raw.T {
		return false
	}
	eq, err := sapi.ValueCompare(&v.raw, &o.raw)
	return err == nil && eq
}

func (v Value) widenInt() int64 {
	switch v.raw.T {
	case abi.TBool:
		if v.raw.D != 0 {
			return 1
		}
		return 0
	case abi.TInt:
		return int64(int32(uint32(v.raw.D)))
	}
	return int64(v.raw.D)
}

func (v Value) widenFloat() float64 {
	if v.raw.T == abi.TFloat {
		return math.Float64frombits(v.raw.D)
	}
	return float64(v.widenInt())
}

// String renders v in Simple mode. Rendering failures produce "".
func (v Value) String() string {
	s, _ := v.ToString(Simple)
	return s
}

// ToString renders v without modifying it.
func (v Value) ToString(mode Mode) (string, error) {
	if v.raw.T == abi.TString && mode == Simple {
		return v.AsString()
	}
	c, err := v.Copy()
	if err != nil {
		return "", err
	}
	defer c.Release()
	if err := sapi.ValueToString(&c.raw, mode); err != nil {
		return "", err
	}
	return c.AsString()
}

// FromString parses s. It fails with not_parsed naming the number of
// unconsumed UTF-16 units when s holds more than one literal.
func FromString(s string, mode Mode) (Value, error) {
	var v Value
	if err := sapi.ValueFromString(&v.raw, utf16.Encode([]rune(s)), mode); err != nil {
		v.Release()
		return Value{}, err
	}
	return v, nil
}

// Len returns the element count of an array or map.
func (v Value) Len() (int, error) {
	return sapi.ValueElementsCount(&v.raw)
}

// Index returns a new reference to the n-th element.
func (v Value) Index(n int) (Value, error) {
	var out Value
	if err := sapi.ValueNthElementValue(&v.raw, n, &out.raw); err != nil {
		return Value{}, err
	}
	return out, nil
}

// SetIndex stores a reference to val at position n, growing arrays as needed.
func (v *Value) SetIndex(n int, val Value) error {
	return sapi.ValueNthElementValueSet(&v.raw, n, &val.raw)
}

// Append stores a reference to val after the last element.
func (v *Value) Append(val Value) error {
	n := 0
	if !v.IsUndefined() {
		var err error
		if n, err = v.Len(); err != nil {
			return err
		}
	}
	return v.SetIndex(n, val)
}

// Key returns a new reference to the n-th key of a map.
func (v Value) Key(n int) (Value, error) {
	var out Value
	if err := sapi.ValueNthElementKey(&v.raw, n, &out.raw); err != nil {
		return Value{}, err
	}
	return out, nil
}

// Get returns a new reference to the value under key, or undefined.
func (v Value) Get(key Value) (Value, error) {
	var out Value
	if err := sapi.ValueGetValueOfKey(&v.raw, &key.raw, &out.raw); err != nil {
		return Value{}, err
	}
	return out, nil
}

// GetByName looks up a string key.
func (v Value) GetByName(name string) (Value, error) {
	key, err := String(name)
	if err != nil {
		return Value{}, err
	}
	defer key.Release()
	return v.Get(key)
}

// Set stores references to key and val, replacing an equal key in place.
func (v *Value) Set(key, val Value) error {
	return sapi.ValueSetValueToKey(&v.raw, &key.raw, &val.raw)
}

// SetByName stores a reference to val under a string key.
func (v *Value) SetByName(name string, val Value) error {
	key, err := String(name)
	if err != nil {
		return err
	}
	defer key.Release()
	return v.Set(key, val)
}

// Enumerate calls fn for every element in order. Array keys are undefined.
// The values passed to fn are borrowed. Returning false stops the walk.
func (v Value) Enumerate(fn func(key, val *Value) bool) error {
	return sapi.ValueEnumElements(&v.raw, func(_ any, k, e *abi.Value) bool {
		return fn(Ref(k), Ref(e))
	}, nil)
}

// Invoke calls v with an optional this binding. A callable that produced
// no result yields Nothing.
func (v Value) Invoke(this *Value, args ...Value) (Value, error) {
	var thisRaw *abi.Value
	if this != nil {
		thisRaw = &this.raw
	}
	var out Value
	if err := sapi.ValueInvoke(&v.raw, thisRaw, rawSlice(args), &out.raw, ""); err != nil {
		return Value{}, err
	}
	if out.IsUndefined() {
		return Nothing(), nil
	}
	return out, nil
}
