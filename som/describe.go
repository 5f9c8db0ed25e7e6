package som

import (
	"reflect"

	"go.bytecodealliance.org/wit"
)

// Description is a static summary of an asset type, independent of any
// loaded engine.
type Description struct {
	Name       string
	GoType     string
	Properties []PropertyDescription
	Methods    []MethodDescription
	Items      ItemSupport
	Extendable bool
}

type PropertyDescription struct {
	Name     string
	ReadOnly bool
}

// MethodDescription lists parameter types when the spec carries its Go
// method expression. Result is nil for methods without a value result.
type MethodDescription struct {
	Name   string
	Params []wit.Type
	Result wit.Type
}

type ItemSupport struct {
	Get, Set, Enumerate bool
}

// Describe summarizes pointer type t.
func Describe(t reflect.Type) Description {
	probe := proto(t)
	d := Description{Name: NameOf(t), GoType: t.String()}

	if ext, ok := probe.(Extendable); ok {
		d.Extendable = ext.SOMExtendable()
	}
	_, d.Items.Get = probe.(ItemGetter)
	_, d.Items.Set = probe.(ItemSetter)
	_, d.Items.Enumerate = probe.(ItemEnumerator)

	if f, ok := probe.(Fields); ok {
		for _, spec := range f.SOMFields() {
			d.Properties = append(d.Properties, PropertyDescription{Name: spec.Name, ReadOnly: spec.Set == nil})
		}
	}
	if m, ok := probe.(Methods); ok {
		for _, spec := range m.SOMMethods() {
			d.Methods = append(d.Methods, describeMethod(spec))
		}
	}
	return d
}

// DescribeFor is Describe for *T.
func DescribeFor[T any]() Description {
	return Describe(reflect.TypeFor[*T]())
}

func describeMethod(spec MethodSpec) MethodDescription {
	md := MethodDescription{Name: spec.Name}
	if spec.Func == nil {
		return md
	}
	ft := reflect.TypeOf(spec.Func)
	if ft.Kind() != reflect.Func {
		return md
	}
	for i := 1; i < ft.NumIn(); i++ {
		md.Params = append(md.Params, WitType(ft.In(i)))
	}
	for i := 0; i < ft.NumOut(); i++ {
		if ft.Out(i) != errorType {
			md.Result = WitType(ft.Out(i))
			break
		}
	}
	return md
}

// WitType maps a Go type to the WIT type describing its script form.
// Types with a passport become owned handles named after the asset.
func WitType(t reflect.Type) wit.Type {
	switch t.Kind() {
	case reflect.Bool:
		return wit.Bool{}
	case reflect.Int8:
		return wit.S8{}
	case reflect.Int16:
		return wit.S16{}
	case reflect.Int32:
		return wit.S32{}
	case reflect.Int, reflect.Int64:
		return wit.S64{}
	case reflect.Uint8:
		return wit.U8{}
	case reflect.Uint16:
		return wit.U16{}
	case reflect.Uint32:
		return wit.U32{}
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		return wit.U64{}
	case reflect.Float32:
		return wit.F32{}
	case reflect.Float64:
		return wit.F64{}
	case reflect.String:
		return wit.String{}
	case reflect.Slice, reflect.Array:
		return &wit.TypeDef{Kind: &wit.List{Type: WitType(t.Elem())}}
	case reflect.Map:
		pair := &wit.TypeDef{Kind: &wit.Tuple{Types: []wit.Type{WitType(t.Key()), WitType(t.Elem())}}}
		return &wit.TypeDef{Kind: &wit.List{Type: pair}}
	case reflect.Pointer:
		if HasPassport(t) {
			name := NameOf(t)
			return &wit.TypeDef{Name: &name, Kind: &wit.Own{}}
		}
		return &wit.TypeDef{Kind: &wit.Option{Type: WitType(t.Elem())}}
	}
	name := t.String()
	return &wit.TypeDef{Name: &name, Kind: &wit.Record{}}
}
