package main

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"go.bytecodealliance.org/wit"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/script-bridge/examples/person"
	"github.com/wippyai/script-bridge/runtime"
	"github.com/wippyai/script-bridge/som"
	"github.com/wippyai/script-bridge/value"
)

var typeOfPerson = reflect.TypeFor[*person.Person]()

// target is one callable entry: a registered function or a method of the
// global Person.
type target struct {
	name   string
	method string
	result string
	params []paramInfo
}

// paramInfo describes one input. A nil witType takes a comma-separated
// list of literals.
type paramInfo struct {
	name    string
	witType wit.Type
	typeStr string
}

// session owns a runtime loaded with the demo assets.
type session struct {
	rt      *runtime.Runtime
	arthur  *person.Person
	global  value.Value
	targets []target
}

func newSession(ctx context.Context, log *zap.Logger) (*session, error) {
	rt, err := runtime.NewWithConfig(ctx, &runtime.Config{Logger: log})
	if err != nil {
		return nil, fmt.Errorf("create runtime: %w", err)
	}
	s := &session{rt: rt, arthur: person.New("Arthur", 42)}

	if err := s.load(); err != nil {
		return nil, multierr.Append(err, rt.Close(ctx))
	}
	s.targets = catalog()
	return s, nil
}

func (s *session) load() error {
	if err := s.rt.RegisterHost(person.NativeModule{}); err != nil {
		return fmt.Errorf("register module: %w", err)
	}
	if err := s.rt.Functions().AddFunctions(person.SOMFuncs()); err != nil {
		return fmt.Errorf("register functions: %w", err)
	}
	if _, err := runtime.SetGlobal(s.rt, s.arthur); err != nil {
		return fmt.Errorf("set global: %w", err)
	}
	obj, err := s.rt.Global(som.NameOf(typeOfPerson))
	if err != nil {
		return err
	}
	s.global = obj
	return nil
}

func (s *session) Close(ctx context.Context) error {
	s.global.Release()
	return s.rt.Close(ctx)
}

func (s *session) find(name string) (target, bool) {
	for _, t := range s.targets {
		if t.name == name {
			return t, true
		}
	}
	return target{}, false
}

// call runs t with raw string inputs, one per parameter, and renders the
// result as a script literal.
func (s *session) call(ctx context.Context, t target, inputs []string) (string, error) {
	var args []value.Value
	defer func() {
		for i := range args {
			args[i].Release()
		}
	}()
	for i, p := range t.params {
		in := ""
		if i < len(inputs) {
			in = inputs[i]
		}
		vs, err := s.convertArg(in, p.witType)
		if err != nil {
			return "", fmt.Errorf("%s: %w", p.name, err)
		}
		args = append(args, vs...)
	}

	var (
		out value.Value
		err error
	)
	if t.method != "" {
		out, err = s.rt.Invoke(s.global, t.method, args...)
	} else {
		out, err = s.rt.Call(ctx, t.name, args...)
	}
	if err != nil {
		return "", err
	}
	defer out.Release()
	return out.ToString(value.XJSONLiteral)
}

// convertArg builds the value(s) for one input. An owned Person handle
// accepts "Person" for the global.
func (s *session) convertArg(in string, t wit.Type) ([]value.Value, error) {
	one := func(v value.Value, err error) ([]value.Value, error) {
		if err != nil {
			return nil, err
		}
		return []value.Value{v}, nil
	}
	switch t := t.(type) {
	case nil:
		return parseList(in)
	case wit.String:
		return one(value.String(in))
	case wit.U8, wit.U16, wit.U32, wit.S8, wit.S16, wit.S32:
		n, err := strconv.ParseInt(in, 10, 32)
		return one(value.Int32(int32(n)), err)
	case wit.U64:
		n, err := strconv.ParseUint(in, 10, 64)
		return one(value.Int64(int64(n)), err)
	case wit.S64:
		n, err := strconv.ParseInt(in, 10, 64)
		return one(value.Int64(n), err)
	case wit.F32, wit.F64:
		f, err := strconv.ParseFloat(in, 64)
		return one(value.Float64(f), err)
	case wit.Bool:
		return one(value.Bool(in == "true" || in == "1"), nil)
	case *wit.TypeDef:
		if _, ok := t.Kind.(*wit.Own); ok && t.Name != nil && in == *t.Name {
			return one(s.global.Copy())
		}
	}
	return one(value.FromString(in, value.XJSONLiteral))
}

// parseList reads "1, true, \"x\"" as separate arguments.
func parseList(in string) ([]value.Value, error) {
	if strings.TrimSpace(in) == "" {
		return nil, nil
	}
	list, err := value.FromString("["+in+"]", value.XJSONLiteral)
	if err != nil {
		return nil, err
	}
	defer list.Release()

	n, err := list.Len()
	if err != nil {
		return nil, err
	}
	args := make([]value.Value, 0, n)
	for i := 0; i < n; i++ {
		v, err := list.Index(i)
		if err != nil {
			for j := range args {
				args[j].Release()
			}
			return nil, err
		}
		args = append(args, v)
	}
	return args, nil
}

// catalog lists the demo's callables, sorted by name.
func catalog() []target {
	var ts []target
	for _, name := range person.SOMFuncs().Names() {
		ts = append(ts, listTarget(name))
	}
	mod := person.NativeModule{}
	for name := range mod.SOMFunctions() {
		ts = append(ts, listTarget(mod.Namespace()+"."+name))
	}

	d := som.Describe(typeOfPerson)
	for _, m := range d.Methods {
		t := target{name: d.Name + "." + m.Name, method: m.Name}
		for i, p := range m.Params {
			t.params = append(t.params, paramInfo{
				name:    fmt.Sprintf("arg%d", i),
				witType: p,
				typeStr: witTypeStr(p),
			})
		}
		if m.Result != nil {
			t.result = witTypeStr(m.Result)
		}
		ts = append(ts, t)
	}
	sort.Slice(ts, func(i, j int) bool { return ts[i].name < ts[j].name })
	return ts
}

func listTarget(name string) target {
	return target{
		name:   name,
		params: []paramInfo{{name: "args", typeStr: "literal, ..."}},
	}
}

func witTypeStr(t wit.Type) string {
	switch v := t.(type) {
	case wit.Bool:
		return "bool"
	case wit.U8:
		return "u8"
	case wit.S8:
		return "s8"
	case wit.U16:
		return "u16"
	case wit.S16:
		return "s16"
	case wit.U32:
		return "u32"
	case wit.S32:
		return "s32"
	case wit.U64:
		return "u64"
	case wit.S64:
		return "s64"
	case wit.F32:
		return "f32"
	case wit.F64:
		return "f64"
	case wit.String:
		return "string"
	case *wit.TypeDef:
		if v.Name != nil {
			return *v.Name
		}
		switch k := v.Kind.(type) {
		case *wit.List:
			return "list<" + witTypeStr(k.Type) + ">"
		case *wit.Option:
			return "option<" + witTypeStr(k.Type) + ">"
		case *wit.Tuple:
			parts := make([]string, len(k.Types))
			for i, e := range k.Types {
				parts[i] = witTypeStr(e)
			}
			return "tuple<" + strings.Join(parts, ", ") + ">"
		}
		return "typedef"
	default:
		return fmt.Sprintf("%T", t)
	}
}
