package engine

import (
	"testing"
	"unicode/utf16"

	"github.com/wippyai/script-bridge/abi"
)

func str(t *testing.T, api *abi.API, s string) abi.Value {
	t.Helper()
	var v abi.Value
	if r := api.ValueStringDataSet(&v, utf16.Encode([]rune(s)), abi.UTStringString); r != abi.ResultOK {
		t.Fatalf("ValueStringDataSet: %d", r)
	}
	return v
}

func goString(t *testing.T, api *abi.API, v *abi.Value) string {
	t.Helper()
	var chars []uint16
	if r := api.ValueStringData(v, &chars); r != abi.ResultOK {
		t.Fatalf("ValueStringData: %d", r)
	}
	return string(utf16.Decode(chars))
}

func intVal(api *abi.API, n int32) abi.Value {
	var v abi.Value
	api.ValueIntDataSet(&v, n, abi.TInt, 0)
	return v
}

func boolVal(api *abi.API, b bool) abi.Value {
	var v abi.Value
	n := int32(0)
	if b {
		n = 1
	}
	api.ValueIntDataSet(&v, n, abi.TBool, 0)
	return v
}

func TestEngine_ConfigOmit(t *testing.T) {
	e := NewWithConfig(&Config{Version: 7, Omit: []string{"ValueInit", "AtomValue"}})
	api := e.API()
	if api.Version != 7 {
		t.Fatalf("Version = %d, want 7", api.Version)
	}
	missing := api.Missing()
	if len(missing) != 2 || missing[0] != "ValueInit" || missing[1] != "AtomValue" {
		t.Fatalf("Missing = %v", missing)
	}
	if New().API().Missing() != nil {
		t.Fatal("default engine should publish every entry point")
	}
}

func TestEngine_StringLifecycle(t *testing.T) {
	e := New()
	api := e.API()

	v := str(t, api, "asdf")
	if e.Live() != 1 {
		t.Fatalf("Live = %d, want 1", e.Live())
	}

	var c abi.Value
	api.ValueCopy(&c, &v)
	if e.Live() != 1 {
		t.Fatal("copy must share the heap object")
	}

	api.ValueClear(&v)
	if goString(t, api, &c) != "asdf" {
		t.Fatal("copy must survive clearing the original")
	}
	api.ValueClear(&c)
	if e.Live() != 0 {
		t.Fatalf("Live = %d after clearing both", e.Live())
	}
	if c.T != abi.TUndefined {
		t.Fatal("cleared value must be undefined")
	}
}

func TestEngine_ScalarAccess(t *testing.T) {
	api := New().API()

	v := intVal(api, -12)
	var n int32
	if api.ValueIntData(&v, &n) != abi.ResultOK || n != -12 {
		t.Fatalf("ValueIntData = %d", n)
	}

	var f float64
	if api.ValueFloatData(&v, &f) != abi.ResultIncompatibleType {
		t.Fatal("int read as float must be incompatible")
	}

	var u abi.Value
	if api.ValueIntData(&u, &n) != abi.ResultIncompatibleType {
		t.Fatal("undefined read as int must be incompatible")
	}

	var big abi.Value
	api.ValueInt64DataSet(&big, 1<<40, abi.TBigInt, 0)
	var i64 int64
	if api.ValueInt64Data(&big, &i64) != abi.ResultOK || i64 != 1<<40 {
		t.Fatalf("ValueInt64Data = %d", i64)
	}

	if api.ValueIntDataSet(&v, 1, abi.TString, 0) != abi.ResultBadParameter {
		t.Fatal("ValueIntDataSet must reject non-integer tags")
	}
}

func TestEngine_Compare(t *testing.T) {
	api := New().API()

	a, b := str(t, api, "x"), str(t, api, "x")
	if api.ValueCompare(&a, &b) != abi.ResultOKTrue {
		t.Fatal("equal strings should compare equal")
	}

	i, bl := intVal(api, 1), boolVal(api, true)
	if api.ValueCompare(&i, &bl) != abi.ResultOK {
		t.Fatal("engine compare does not coerce kinds")
	}

	var arr1, arr2 abi.Value
	api.ValueNthElementValueSet(&arr1, 0, &a)
	api.ValueNthElementValueSet(&arr2, 0, &b)
	if api.ValueCompare(&arr1, &arr2) != abi.ResultOKTrue {
		t.Fatal("arrays with equal elements should compare equal")
	}
}

func TestEngine_ArrayEnumeration(t *testing.T) {
	e := New()
	api := e.API()

	elems := []abi.Value{intVal(api, 1), intVal(api, 2), boolVal(api, true), str(t, api, "str")}
	var arr abi.Value
	for i := range elems {
		api.ValueNthElementValueSet(&arr, int32(i), &elems[i])
		api.ValueClear(&elems[i])
	}

	var n int32
	api.ValueElementsCount(&arr, &n)
	if n != 4 {
		t.Fatalf("count = %d, want 4", n)
	}

	var keys, vals []string
	api.ValueEnumElements(&arr, func(_ any, k, v *abi.Value) bool {
		kc, vc := *k, *v
		var kk, vv abi.Value
		api.ValueCopy(&kk, &kc)
		api.ValueCopy(&vv, &vc)
		api.ValueToString(&kk, abi.CvtSimple)
		api.ValueToString(&vv, abi.CvtSimple)
		keys = append(keys, goString(t, api, &kk))
		vals = append(vals, goString(t, api, &vv))
		api.ValueClear(&kk)
		api.ValueClear(&vv)
		return true
	}, nil)

	want := []string{"1", "2", "true", "str"}
	for i := range want {
		if keys[i] != "" || vals[i] != want[i] {
			t.Fatalf("entry %d = (%q, %q)", i, keys[i], vals[i])
		}
	}

	api.ValueToString(&arr, abi.CvtSimple)
	if got := goString(t, api, &arr); got != `[1,2,true,"str"]` {
		t.Fatalf("array string = %s", got)
	}
	api.ValueClear(&arr)
	if e.Live() != 0 {
		t.Fatalf("Live = %d, want 0", e.Live())
	}
}

func TestEngine_EnumerationStopsEarly(t *testing.T) {
	api := New().API()
	var arr abi.Value
	for i := int32(0); i < 5; i++ {
		v := intVal(api, i)
		api.ValueNthElementValueSet(&arr, i, &v)
	}
	calls := 0
	api.ValueEnumElements(&arr, func(any, *abi.Value, *abi.Value) bool {
		calls++
		return calls < 2
	}, nil)
	if calls != 2 {
		t.Fatalf("callback ran %d times, want 2", calls)
	}
}

func TestEngine_MapKeys(t *testing.T) {
	api := New().API()

	var m abi.Value
	k1, v1 := intVal(api, 1), str(t, api, "str")
	k2, v2 := intVal(api, 2), boolVal(api, false)
	api.ValueSetValueToKey(&m, &k1, &v1)
	api.ValueSetValueToKey(&m, &k2, &v2)

	var out abi.Value
	api.ValueGetValueOfKey(&m, &k1, &out)
	if goString(t, api, &out) != "str" {
		t.Fatal("lookup by key failed")
	}

	replacement := intVal(api, 9)
	api.ValueSetValueToKey(&m, &k1, &replacement)
	var n int32
	api.ValueElementsCount(&m, &n)
	if n != 2 {
		t.Fatalf("replacing a key must not grow the map, count = %d", n)
	}

	var key abi.Value
	api.ValueNthElementKey(&m, 1, &key)
	var kn int32
	api.ValueIntData(&key, &kn)
	if kn != 2 {
		t.Fatalf("second key = %d, want 2", kn)
	}

	missing := intVal(api, 42)
	api.ValueGetValueOfKey(&m, &missing, &out)
	if out.T != abi.TUndefined {
		t.Fatal("missing key should yield undefined")
	}

	api.ValueToString(&m, abi.CvtSimple)
	if got := goString(t, api, &m); got != `{1:9,2:false}` {
		t.Fatalf("map string = %s", got)
	}
}

func TestEngine_ToStringModes(t *testing.T) {
	api := New().API()

	build := func() abi.Value {
		var m abi.Value
		k, v := str(t, api, "name"), str(t, api, "Ann")
		api.ValueSetValueToKey(&m, &k, &v)
		k2, v2 := intVal(api, 1), abi.Value{}
		api.ValueSetValueToKey(&m, &k2, &v2)
		api.ValueClear(&k)
		api.ValueClear(&v)
		return m
	}

	tests := []struct {
		name string
		mode abi.ToStringMode
		want string
	}{
		{"simple", abi.CvtSimple, `{"name":"Ann",1:undefined}`},
		{"json", abi.CvtJSONLiteral, `{"name":"Ann","1":null}`},
		{"json map", abi.CvtJSONMap, `"name":"Ann","1":null`},
		{"xjson", abi.CvtXJSONLiteral, `{name:"Ann",1:undefined}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := build()
			api.ValueToString(&m, tt.mode)
			if got := goString(t, api, &m); got != tt.want {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
			api.ValueClear(&m)
		})
	}

	var f abi.Value
	api.ValueFloatDataSet(&f, 2, abi.TFloat, 0)
	api.ValueToString(&f, abi.CvtSimple)
	if got := goString(t, api, &f); got != "2.0" {
		t.Fatalf("float string = %s", got)
	}

	s := str(t, api, "a\"b")
	api.ValueToString(&s, abi.CvtJSONLiteral)
	if got := goString(t, api, &s); got != `"a\"b"` {
		t.Fatalf("quoted string = %s", got)
	}
}

func TestEngine_FromString(t *testing.T) {
	e := New()
	api := e.API()

	tests := []struct {
		name     string
		input    string
		mode     abi.ToStringMode
		unparsed uint32
		want     abi.Type
	}{
		{"int", "123", abi.CvtJSONLiteral, 0, abi.TInt},
		{"trailing garbage", "123abc", abi.CvtJSONLiteral, 3, abi.TInt},
		{"bigint", "4294967296", abi.CvtJSONLiteral, 0, abi.TBigInt},
		{"float", "1.5e2", abi.CvtJSONLiteral, 0, abi.TFloat},
		{"array", ` [1, "two", true] `, abi.CvtJSONLiteral, 0, abi.TArray},
		{"map", `{"a": {"b": null}}`, abi.CvtJSONLiteral, 0, abi.TMap},
		{"json map", `"a":1,"b":2`, abi.CvtJSONMap, 0, abi.TMap},
		{"xjson", `{a: undefined, 'b': NaN, c: [1,],}`, abi.CvtXJSONLiteral, 0, abi.TMap},
		{"simple", "not json", abi.CvtSimple, 0, abi.TString},
		{"broken", `[1, 2`, abi.CvtJSONLiteral, 5, abi.TUndefined},
		{"bare key in json", `{a:1}`, abi.CvtJSONLiteral, 5, abi.TUndefined},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v abi.Value
			got := api.ValueFromString(&v, utf16.Encode([]rune(tt.input)), tt.mode)
			if got != tt.unparsed {
				t.Fatalf("unparsed = %d, want %d", got, tt.unparsed)
			}
			if v.T != tt.want {
				t.Fatalf("type = %s, want %s", v.T, tt.want)
			}
			api.ValueClear(&v)
		})
	}

	if e.Live() != 0 {
		t.Fatalf("Live = %d, parse failures must not leak", e.Live())
	}

	var v abi.Value
	api.ValueFromString(&v, utf16.Encode([]rune(`{"k":[1,2,{"x":"y"}]}`)), abi.CvtJSONLiteral)
	api.ValueToString(&v, abi.CvtJSONLiteral)
	if got := goString(t, api, &v); got != `{"k":[1,2,{"x":"y"}]}` {
		t.Fatalf("reprinted = %s", got)
	}
}

func TestEngine_Isolate(t *testing.T) {
	api := New().API()

	var arr abi.Value
	one := intVal(api, 1)
	api.ValueNthElementValueSet(&arr, 0, &one)

	var shared abi.Value
	api.ValueCopy(&shared, &arr)
	api.ValueIsolate(&shared)

	two := intVal(api, 2)
	api.ValueNthElementValueSet(&arr, 0, &two)

	var first abi.Value
	api.ValueNthElementValue(&shared, 0, &first)
	var n int32
	api.ValueIntData(&first, &n)
	if n != 1 {
		t.Fatalf("isolated copy changed to %d", n)
	}
}

func TestEngine_FunctorRelease(t *testing.T) {
	e := New()
	api := e.API()

	released := 0
	var fn abi.Value
	api.ValueNativeFunctorSet(&fn,
		func(tag any, argc uint32, argv *abi.Value, result *abi.Value) {
			args := abi.Args(argc, argv)
			for i := range args {
				api.ValueNthElementValueSet(result, int32(i), &args[i])
			}
		},
		func(tag any) {
			released++
			if tag.(string) != "ctx" {
				t.Errorf("tag = %v", tag)
			}
		},
		"ctx")

	if !api.ValueIsNativeFunctor(&fn) {
		t.Fatal("expected native functor")
	}

	args := []abi.Value{str(t, api, "str"), intVal(api, 44), boolVal(api, false)}
	argc, argv := abi.ArgsPtr(args)
	var result abi.Value
	if r := api.ValueInvoke(&fn, nil, argc, argv, &result, ""); r != abi.ResultOK {
		t.Fatalf("ValueInvoke: %d", r)
	}
	api.ValueToString(&result, abi.CvtJSONLiteral)
	if got := goString(t, api, &result); got != `["str",44,false]` {
		t.Fatalf("result = %s", got)
	}

	api.ValueClear(&fn)
	if released != 1 {
		t.Fatalf("release ran %d times, want 1", released)
	}

	notFn := intVal(api, 1)
	if api.ValueInvoke(&notFn, nil, 0, nil, &result, "") != abi.ResultIncompatibleType {
		t.Fatal("invoking a non-function must be incompatible")
	}
}

func TestEngine_Close(t *testing.T) {
	e := New()
	api := e.API()

	released := false
	var fn abi.Value
	api.ValueNativeFunctorSet(&fn, func(any, uint32, *abi.Value, *abi.Value) {}, func(any) { released = true }, nil)

	if err := e.Close(); err != nil {
		t.Fatal(err)
	}
	if !released {
		t.Fatal("Close must release live functors")
	}
	var v abi.Value
	if api.ValueStringDataSet(&v, nil, 0) != abi.ResultBadParameter {
		t.Fatal("entry points must fail after Close")
	}
	if api.AtomValue("x") != 0 {
		t.Fatal("atoms must fail after Close")
	}
}

func TestEngine_Atoms(t *testing.T) {
	api := New().API()
	a := api.AtomValue("format")
	if a == 0 {
		t.Fatal("expected atom")
	}
	if api.AtomValue("format") != a {
		t.Fatal("atoms must be interned")
	}
	if api.AtomValue("") != 0 {
		t.Fatal("empty name must not intern")
	}
	var name string
	if !api.AtomNameCB(a, func(n string) { name = n }) || name != "format" {
		t.Fatalf("AtomNameCB = %q", name)
	}
	if api.AtomNameCB(abi.Atom(999), func(string) {}) {
		t.Fatal("unknown atom must fail")
	}
}
