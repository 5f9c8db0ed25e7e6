package abi

import "reflect"

// API is the engine's entry point table. A nil entry means the loaded engine
// does not provide it.
type API struct {
	Version uint32

	ValueInit    func(v *Value) Result
	ValueClear   func(v *Value) Result
	ValueCompare func(a, b *Value) Result
	ValueCopy    func(dst, src *Value) Result
	ValueIsolate func(v *Value) Result
	ValueType    func(v *Value, t *Type, u *uint32) Result

	ValueStringData    func(v *Value, chars *[]uint16) Result
	ValueStringDataSet func(v *Value, chars []uint16, units uint32) Result
	ValueIntData       func(v *Value, out *int32) Result
	ValueIntDataSet    func(v *Value, data int32, t Type, units uint32) Result
	ValueInt64Data     func(v *Value, out *int64) Result
	ValueInt64DataSet  func(v *Value, data int64, t Type, units uint32) Result
	ValueFloatData     func(v *Value, out *float64) Result
	ValueFloatDataSet  func(v *Value, data float64, t Type, units uint32) Result
	ValueBinaryData    func(v *Value, out *[]byte) Result
	ValueBinaryDataSet func(v *Value, data []byte, t Type, units uint32) Result
	ValueAssetData     func(v *Value, out **Asset) Result
	ValueAssetDataSet  func(v *Value, thing *Asset) Result

	ValueElementsCount      func(v *Value, n *int32) Result
	ValueNthElementValue    func(v *Value, n int32, out *Value) Result
	ValueNthElementValueSet func(v *Value, n int32, val *Value) Result
	ValueNthElementKey      func(v *Value, n int32, out *Value) Result
	ValueEnumElements       func(v *Value, cb KeyValueCallback, param any) Result
	ValueSetValueToKey      func(v *Value, key, val *Value) Result
	ValueGetValueOfKey      func(v *Value, key *Value, out *Value) Result

	ValueToString   func(v *Value, how ToStringMode) Result
	ValueFromString func(v *Value, chars []uint16, how ToStringMode) uint32

	ValueInvoke           func(v *Value, this *Value, argc uint32, argv *Value, result *Value, url string) Result
	ValueNativeFunctorSet func(v *Value, invoke FunctorInvoke, release FunctorRelease, tag any) Result
	ValueIsNativeFunctor  func(v *Value) bool

	AtomValue  func(name string) Atom
	AtomNameCB func(atom Atom, rcv func(name string)) bool

	SetGlobalAsset     func(thing *Asset) bool
	ReleaseGlobalAsset func(thing *Asset) bool
}

// Missing lists the names of nil entry points in table order.
func (a *API) Missing() []string {
	var missing []string
	rv := reflect.ValueOf(a).Elem()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rv.Field(i)
		if f.Kind() == reflect.Func && f.IsNil() {
			missing = append(missing, rt.Field(i).Name)
		}
	}
	return missing
}

// Clear sets the named entry points to nil. Unknown names are ignored.
// Engines use it to model partial tables.
func (a *API) Clear(names ...string) {
	rv := reflect.ValueOf(a).Elem()
	for _, name := range names {
		f := rv.FieldByName(name)
		if f.IsValid() && f.Kind() == reflect.Func {
			f.Set(reflect.Zero(f.Type()))
		}
	}
}
