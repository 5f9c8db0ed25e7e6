package sapi

import (
	"github.com/wippyai/script-bridge/abi"
	"github.com/wippyai/script-bridge/errors"
)

func ValueInit(v *abi.Value) error {
	a := table()
	if a == nil || a.ValueInit == nil {
		return errors.APIUnavailable("ValueInit")
	}
	return result("ValueInit", a.ValueInit(v))
}

func ValueClear(v *abi.Value) error {
	a := table()
	if a == nil || a.ValueClear == nil {
		return errors.APIUnavailable("ValueClear")
	}
	return result("ValueClear", a.ValueClear(v))
}

// ValueCompare reports whether the engine considers a and b equal.
func ValueCompare(a, b *abi.Value) (bool, error) {
	t := table()
	if t == nil || t.ValueCompare == nil {
		return false, errors.APIUnavailable("ValueCompare")
	}
	r := t.ValueCompare(a, b)
	return r == abi.ResultOKTrue, result("ValueCompare", r)
}

func ValueCopy(dst, src *abi.Value) error {
	a := table()
	if a == nil || a.ValueCopy == nil {
		return errors.APIUnavailable("ValueCopy")
	}
	return result("ValueCopy", a.ValueCopy(dst, src))
}

func ValueIsolate(v *abi.Value) error {
	a := table()
	if a == nil || a.ValueIsolate == nil {
		return errors.APIUnavailable("ValueIsolate")
	}
	return result("ValueIsolate", a.ValueIsolate(v))
}

func ValueType(v *abi.Value) (abi.Type, uint32, error) {
	a := table()
	if a == nil || a.ValueType == nil {
		return 0, 0, errors.APIUnavailable("ValueType")
	}
	var t abi.Type
	var u uint32
	err := result("ValueType", a.ValueType(v, &t, &u))
	return t, u, err
}

// ValueStringData returns the engine-owned UTF-16 units of a string value.
// The slice must not be retained past the next mutation of v.
func ValueStringData(v *abi.Value) ([]uint16, error) {
	a := table()
	if a == nil || a.ValueStringData == nil {
		return nil, errors.APIUnavailable("ValueStringData")
	}
	var chars []uint16
	err := result("ValueStringData", a.ValueStringData(v, &chars))
	return chars, err
}

func ValueStringDataSet(v *abi.Value, chars []uint16, units uint32) error {
	a := table()
	if a == nil || a.ValueStringDataSet == nil {
		return errors.APIUnavailable("ValueStringDataSet")
	}
	return result("ValueStringDataSet", a.ValueStringDataSet(v, chars, units))
}

func ValueIntData(v *abi.Value) (int32, error) {
	a := table()
	if a == nil || a.ValueIntData == nil {
		return 0, errors.APIUnavailable("ValueIntData")
	}
	var n int32
	err := result("ValueIntData", a.ValueIntData(v, &n))
	return n, err
}

func ValueIntDataSet(v *abi.Value, data int32, t abi.Type, units uint32) error {
	a := table()
	if a == nil || a.ValueIntDataSet == nil {
		return errors.APIUnavailable("ValueIntDataSet")
	}
	return result("ValueIntDataSet", a.ValueIntDataSet(v, data, t, units))
}

func ValueInt64Data(v *abi.Value) (int64, error) {
	a := table()
	if a == nil || a.ValueInt64Data == nil {
		return 0, errors.APIUnavailable("ValueInt64Data")
	}
	var n int64
	err := result("ValueInt64Data", a.ValueInt64Data(v, &n))
	return n, err
}

func ValueInt64DataSet(v *abi.Value, data int64, t abi.Type, units uint32) error {
	a := table()
	if a == nil || a.ValueInt64DataSet == nil {
		return errors.APIUnavailable("ValueInt64DataSet")
	}
	return result("ValueInt64DataSet", a.ValueInt64DataSet(v, data, t, units))
}

func ValueFloatData(v *abi.Value) (float64, error) {
	a := table()
	if a == nil || a.ValueFloatData == nil {
		return 0, errors.APIUnavailable("ValueFloatData")
	}
	var f float64
	err := result("ValueFloatData", a.ValueFloatData(v, &f))
	return f, err
}

func ValueFloatDataSet(v *abi.Value, data float64, t abi.Type, units uint32) error {
	a := table()
	if a == nil || a.ValueFloatDataSet == nil {
		return errors.APIUnavailable("ValueFloatDataSet")
	}
	return result("ValueFloatDataSet", a.ValueFloatDataSet(v, data, t, units))
}

// ValueBinaryData returns the engine-owned bytes of a bytes value.
func ValueBinaryData(v *abi.Value) ([]byte, error) {
	a := table()
	if a == nil || a.ValueBinaryData == nil {
		return nil, errors.APIUnavailable("ValueBinaryData")
	}
	var data []byte
	err := result("ValueBinaryData", a.ValueBinaryData(v, &data))
	return data, err
}

func ValueBinaryDataSet(v *abi.Value, data []byte, t abi.Type, units uint32) error {
	a := table()
	if a == nil || a.ValueBinaryDataSet == nil {
		return errors.APIUnavailable("ValueBinaryDataSet")
	}
	return result("ValueBinaryDataSet", a.ValueBinaryDataSet(v, data, t, units))
}

func ValueAssetData(v *abi.Value) (*abi.Asset, error) {
	a := table()
	if a == nil || a.ValueAssetData == nil {
		return nil, errors.APIUnavailable("ValueAssetData")
	}
	var thing *abi.Asset
	err := result("ValueAssetData", a.ValueAssetData(v, &thing))
	return thing, err
}

func ValueAssetDataSet(v *abi.Value, thing *abi.Asset) error {
	a := table()
	if a == nil || a.ValueAssetDataSet == nil {
		return errors.APIUnavailable("ValueAssetDataSet")
	}
	return result("ValueAssetDataSet", a.ValueAssetDataSet(v, thing))
}

func ValueElementsCount(v *abi.Value) (int, error) {
	a := table()
	if a == nil || a.ValueElementsCount == nil {
		return 0, errors.APIUnavailable("ValueElementsCount")
	}
	var n int32
	err := result("ValueElementsCount", a.ValueElementsCount(v, &n))
	return int(n), err
}

func ValueNthElementValue(v *abi.Value, n int, out *abi.Value) error {
	a := table()
	if a == nil || a.ValueNthElementValue == nil {
		return errors.APIUnavailable("ValueNthElementValue")
	}
	return result("ValueNthElementValue", a.ValueNthElementValue(v, int32(n), out))
}

func ValueNthElementValueSet(v *abi.Value, n int, val *abi.Value) error {
	a := table()
	if a == nil || a.ValueNthElementValueSet == nil {
		return errors.APIUnavailable("ValueNthElementValueSet")
	}
	return result("ValueNthElementValueSet", a.ValueNthElementValueSet(v, int32(n), val))
}

func ValueNthElementKey(v *abi.Value, n int, out *abi.Value) error {
	a := table()
	if a == nil || a.ValueNthElementKey == nil {
		return errors.APIUnavailable("ValueNthElementKey")
	}
	return result("ValueNthElementKey", a.ValueNthElementKey(v, int32(n), out))
}

func ValueEnumElements(v *abi.Value, cb abi.KeyValueCallback, param any) error {
	a := table()
	if a == nil || a.ValueEnumElements == nil {
		return errors.APIUnavailable("ValueEnumElements")
	}
	return result("ValueEnumElements", a.ValueEnumElements(v, cb, param))
}

func ValueSetValueToKey(v *abi.Value, key, val *abi.Value) error {
	a := table()
	if a == nil || a.ValueSetValueToKey == nil {
		return errors.APIUnavailable("ValueSetValueToKey")
	}
	return result("ValueSetValueToKey", a.ValueSetValueToKey(v, key, val))
}

func ValueGetValueOfKey(v *abi.Value, key *abi.Value, out *abi.Value) error {
	a := table()
	if a == nil || a.ValueGetValueOfKey == nil {
		return errors.APIUnavailable("ValueGetValueOfKey")
	}
	return result("ValueGetValueOfKey", a.ValueGetValueOfKey(v, key, out))
}

func ValueToString(v *abi.Value, how abi.ToStringMode) error {
	a := table()
	if a == nil || a.ValueToString == nil {
		return errors.APIUnavailable("ValueToString")
	}
	return result("ValueToString", a.ValueToString(v, how))
}

// ValueFromString parses chars into v and fails with not_parsed when input
// remains unconsumed.
func ValueFromString(v *abi.Value, chars []uint16, how abi.ToStringMode) error {
	a := table()
	if a == nil || a.ValueFromString == nil {
		return errors.APIUnavailable("ValueFromString")
	}
	if n := a.ValueFromString(v, chars, how); n != 0 {
		return errors.NotParsed(int(n))
	}
	return nil
}

func ValueInvoke(v *abi.Value, this *abi.Value, args []abi.Value, out *abi.Value, url string) error {
	a := table()
	if a == nil || a.ValueInvoke == nil {
		return errors.APIUnavailable("ValueInvoke")
	}
	argc, argv := abi.ArgsPtr(args)
	return result("ValueInvoke", a.ValueInvoke(v, this, argc, argv, out, url))
}

func ValueNativeFunctorSet(v *abi.Value, invoke abi.FunctorInvoke, release abi.FunctorRelease, tag any) error {
	a := table()
	if a == nil || a.ValueNativeFunctorSet == nil {
		return errors.APIUnavailable("ValueNativeFunctorSet")
	}
	return result("ValueNativeFunctorSet", a.ValueNativeFunctorSet(v, invoke, release, tag))
}

func ValueIsNativeFunctor(v *abi.Value) (bool, error) {
	a := table()
	if a == nil || a.ValueIsNativeFunctor == nil {
		return false, errors.APIUnavailable("ValueIsNativeFunctor")
	}
	return a.ValueIsNativeFunctor(v), nil
}

// AtomValue interns name. A zero atom from the engine is an error.
func AtomValue(name string) (abi.Atom, error) {
	a := table()
	if a == nil || a.AtomValue == nil {
		return 0, errors.APIUnavailable("AtomValue")
	}
	atom := a.AtomValue(name)
	if atom == 0 {
		return 0, errors.New(errors.PhaseEngine, errors.KindAPIFailure).
			Name("AtomValue").
			Detail("engine could not intern %q", name).
			Build()
	}
	return atom, nil
}

func AtomName(atom abi.Atom) (string, error) {
	a := table()
	if a == nil || a.AtomNameCB == nil {
		return "", errors.APIUnavailable("AtomNameCB")
	}
	var name string
	if !a.AtomNameCB(atom, func(n string) { name = n }) {
		return "", errors.NotFound(errors.PhaseEngine, "atom", "")
	}
	return name, nil
}

func SetGlobalAsset(thing *abi.Asset) error {
	a := table()
	if a == nil || a.SetGlobalAsset == nil {
		return errors.APIUnavailable("SetGlobalAsset")
	}
	if !a.SetGlobalAsset(thing) {
		return errors.New(errors.PhaseEngine, errors.KindAPIFailure).
			Name("SetGlobalAsset").
			Detail("engine rejected global asset").
			Build()
	}
	return nil
}

func ReleaseGlobalAsset(thing *abi.Asset) error {
	a := table()
	if a == nil || a.ReleaseGlobalAsset == nil {
		return errors.APIUnavailable("ReleaseGlobalAsset")
	}
	if !a.ReleaseGlobalAsset(thing) {
		return errors.New(errors.PhaseEngine, errors.KindAPIFailure).
			Name("ReleaseGlobalAsset").
			Detail("asset is not a registered global").
			Build()
	}
	return nil
}
