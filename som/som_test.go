package som

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/script-bridge/abi"
	"github.com/wippyai/script-bridge/engine"
	"github.com/wippyai/script-bridge/errors"
	"github.com/wippyai/script-bridge/sapi"
	"github.com/wippyai/script-bridge/value"
)

type counter struct {
	N     int32
	Label string
	items map[string]int32
	keys  []string
	drops int
}

func (*counter) SOMName() string { return "Counter" }

func (*counter) SOMFields() []PropertySpec {
	return []PropertySpec{
		Field("n", "N"),
		Virtual("label", func(c *counter) string { return c.Label }, func(c *counter, s string) error {
			if s == "" {
				return stderrors.New("label must not be empty")
			}
			c.Label = s
			return nil
		}),
		ReadOnly(Field("frozen", "N")),
	}
}

func (*counter) SOMMethods() []MethodSpec {
	return []MethodSpec{
		Method("add", (*counter).Add),
		Method("describe", (*counter).Describe),
		Method("explode", (*counter).Explode),
		Method("check", (*counter).Check),
	}
}

func (c *counter) Add(n int32) int32 {
	c.N += n
	return c.N
}

func (c *counter) Describe(prefix string, times int) (string, error) {
	return strings.Repeat(prefix, times) + c.Label, nil
}

func (c *counter) Explode() { panic("boom") }

func (c *counter) Check() error { return fmt.Errorf("counter %d is unhappy", c.N) }

func (c *counter) SOMGetItem(key value.Value) (value.Value, error) {
	k, err := FromValue[string](key)
	if err != nil {
		return value.Value{}, err
	}
	n, ok := c.items[k]
	if !ok {
		return value.Nothing(), nil
	}
	return value.Int32(n), nil
}

func (c *counter) SOMSetItem(key, val value.Value) error {
	k, err := FromValue[string](key)
	if err != nil {
		return err
	}
	n, err := FromValue[int32](val)
	if err != nil {
		return err
	}
	if c.items == nil {
		c.items = map[string]int32{}
	}
	if _, ok := c.items[k]; !ok {
		c.keys = append(c.keys, k)
	}
	c.items[k] = n
	return nil
}

func (c *counter) SOMItemAt(i int) (value.Value, value.Value, bool, error) {
	if i >= len(c.keys) {
		return value.Value{}, value.Value{}, false, nil
	}
	k, err := value.String(c.keys[i])
	if err != nil {
		return value.Value{}, value.Value{}, false, err
	}
	return k, value.Int32(c.items[c.keys[i]]), true, nil
}

func (c *counter) Drop() { c.drops++ }

// binder records the arguments of its only method.
type binder struct {
	calls int
	a     uint64
	b     bool
}

func (*binder) SOMMethods() []MethodSpec {
	return []MethodSpec{Method("bind", (*binder).Bind)}
}

func (b *binder) Bind(a uint64, flag bool) {
	b.calls++
	b.a, b.b = a, flag
}

// faulty fails every enumeration step.
type faulty struct{}

func (*faulty) SOMItemAt(int) (value.Value, value.Value, bool, error) {
	return value.Value{}, value.Value{}, false, stderrors.New("enumeration broke")
}

// broken declares the same member twice.
type broken struct{}

func (*broken) SOMFields() []PropertySpec {
	return []PropertySpec{Field("x", "X"), Field("x", "X")}
}

func setup(t *testing.T) *engine.Engine {
	t.Helper()
	eng := engine.New()
	if err := sapi.Load(eng.API()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = eng.Close()
		sapi.Unload()
	})
	return eng
}

func asValue(t *testing.T, m interface {
	ToScriptValue() (value.Value, error)
}) value.Value {
	t.Helper()
	v, err := m.ToScriptValue()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { v.Release() })
	return v
}

// raw exposes a scalar's slot; the engine only borrows it.
func raw(v value.Value) *abi.Value {
	return v.Raw()
}

func call(eng *engine.Engine, obj value.Value, method string, args ...value.Value) (value.Value, error) {
	raw := make([]abi.Value, len(args))
	for i := range args {
		raw[i] = *args[i].Raw()
	}
	var out value.Value
	err := eng.CallMethod(obj.Raw(), method, raw, out.Raw())
	return out, err
}

func TestPassport(t *testing.T) {
	eng := setup(t)

	p, err := PassportFor[counter]()
	if err != nil {
		t.Fatal(err)
	}
	if got := eng.AtomName(p.Name); got != "Counter" {
		t.Errorf("name = %q", got)
	}
	var props, methods []string
	for _, d := range p.Properties {
		props = append(props, eng.AtomName(d.Name))
	}
	for _, d := range p.Methods {
		methods = append(methods, eng.AtomName(d.Name))
	}
	if diff := cmp.Diff([]string{"n", "label", "frozen"}, props); diff != "" {
		t.Errorf("properties (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"add", "describe", "explode", "check"}, methods); diff != "" {
		t.Errorf("methods (-want +got):\n%s", diff)
	}
	if p.Properties[2].Setter != nil {
		t.Error("frozen should be read-only")
	}
	if p.ItemGetter == nil || p.ItemSetter == nil || p.ItemNext == nil {
		t.Error("item thunks missing")
	}

	again, _ := PassportFor[counter]()
	if again != p {
		t.Error("passport should be cached")
	}
}

func TestPassportFailureCached(t *testing.T) {
	setup(t)

	_, err := PassportFor[broken]()
	if !stderrors.Is(err, errors.ErrPassport) {
		t.Fatalf("expected passport error, got %v", err)
	}
	_, again := PassportFor[broken]()
	if again != err {
		t.Error("failure should be cached")
	}
}

func TestAssetLifecycle(t *testing.T) {
	eng := setup(t)

	c := &counter{}
	a, err := NewAsset(c)
	if err != nil {
		t.Fatal(err)
	}
	if a.Count() != 1 {
		t.Fatalf("Count = %d, want 1", a.Count())
	}

	v, err := a.ToScriptValue()
	if err != nil {
		t.Fatal(err)
	}
	if a.Count() != 2 {
		t.Fatalf("Count after script reference = %d, want 2", a.Count())
	}
	v.Release()
	if a.Count() != 1 || c.drops != 0 {
		t.Fatalf("Count = %d drops = %d", a.Count(), c.drops)
	}

	if err := a.Release(); err != nil {
		t.Fatal(err)
	}
	if c.drops != 1 {
		t.Fatalf("destructor ran %d times, want 1", c.drops)
	}
	if err := a.Release(); !stderrors.Is(err, errors.ErrDoubleRelease) {
		t.Fatalf("expected double release, got %v", err)
	}
	if c.drops != 1 {
		t.Fatal("double release must not rerun the destructor")
	}
	if eng.Live() != 0 {
		t.Errorf("Live = %d", eng.Live())
	}
}

func TestMethodThunks(t *testing.T) {
	eng := setup(t)

	c := &counter{N: 1, Label: "x"}
	a, _ := NewAsset(c)
	defer a.Release()
	obj := asValue(t, a)

	out, err := call(eng, obj, "add", value.Int32(4))
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := out.AsInt32(); n != 5 || c.N != 5 {
		t.Errorf("add = %d, N = %d", n, c.N)
	}

	s, _ := value.String("ab")
	defer s.Release()
	out, err = call(eng, obj, "describe", s, value.Int32(2))
	if err != nil {
		t.Fatal(err)
	}
	got, _ := out.AsString()
	out.Release()
	if got != "ababx" {
		t.Errorf("describe = %q", got)
	}

	tests := []struct {
		name   string
		method string
		args   []value.Value
		want   string
	}{
		{"arity", "add", nil, "expected 1 argument(s), got 0"},
		{"too many", "add", []value.Value{value.Int32(1), value.Int32(2)}, "expected 1 argument(s), got 2"},
		{"conversion", "add", []value.Value{value.Bool(true)}, "'arg0'"},
		{"second param", "describe", []value.Value{s, value.Bool(true)}, "'arg1'"},
		{"panic", "explode", nil, "native panic: boom"},
		{"returned error", "check", nil, "counter 5 is unhappy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := call(eng, obj, tt.method, tt.args...)
			var se *engine.ScriptError
			if !stderrors.As(err, &se) {
				t.Fatalf("expected script error, got %v", err)
			}
			if !strings.Contains(se.Message, tt.want) {
				t.Errorf("message %q does not contain %q", se.Message, tt.want)
			}
		})
	}
	if c.N != 5 {
		t.Errorf("failed calls must not run the body, N = %d", c.N)
	}

	_, err = call(eng, obj, "missing")
	if !stderrors.Is(err, errors.ErrNoSuchMethod) {
		t.Errorf("missing method: %v", err)
	}
}

func TestMethodArgumentBinding(t *testing.T) {
	eng := setup(t)

	b := &binder{}
	a, _ := NewAsset(b)
	defer a.Release()
	obj := asValue(t, a)

	if _, err := call(eng, obj, "bind", value.Int32(12), value.Bool(true)); err != nil {
		t.Fatal(err)
	}
	if b.a != 12 || !b.b {
		t.Errorf("bound a = %d, b = %v, want 12 and true", b.a, b.b)
	}

	tests := []struct {
		name string
		args []value.Value
	}{
		{"none", nil},
		{"one", []value.Value{value.Int32(1)}},
		{"three", []value.Value{value.Int32(1), value.Bool(false), value.Int32(3)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := call(eng, obj, "bind", tt.args...)
			var se *engine.ScriptError
			if !stderrors.As(err, &se) {
				t.Fatalf("expected script error, got %v", err)
			}
			for _, want := range []string{string(errors.KindArgCount), "expected 2 argument(s)"} {
				if !strings.Contains(se.Message, want) {
					t.Errorf("message %q does not contain %q", se.Message, want)
				}
			}
		})
	}
	if b.calls != 1 {
		t.Errorf("body ran %d times, want 1", b.calls)
	}
}

func TestAcquireReplacesDeadSlot(t *testing.T) {
	setup(t)

	c := &counter{}
	stale := &abi.Asset{Handle: 1 << 20}
	live.Store(c, stale)

	a, err := NewAsset(c)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Release()
	if a.Thing() == stale {
		t.Fatal("dead header was handed out")
	}
	if a.Count() != 1 {
		t.Errorf("Count = %d, want 1", a.Count())
	}
	if h, _ := live.Load(c); h != a.Thing() {
		t.Error("live entry not replaced")
	}
}

func TestPropertyThunks(t *testing.T) {
	eng := setup(t)

	c := &counter{N: 3, Label: "old"}
	a, _ := NewAsset(c)
	defer a.Release()
	obj := asValue(t, a)

	var out value.Value
	if err := eng.GetProperty(obj.Raw(), "n", out.Raw()); err != nil {
		t.Fatal(err)
	}
	if n, _ := out.AsInt32(); n != 3 {
		t.Errorf("n = %d", n)
	}

	if err := eng.SetProperty(obj.Raw(), "n", raw(value.Int32(9))); err != nil {
		t.Fatal(err)
	}
	if c.N != 9 {
		t.Errorf("N = %d after set", c.N)
	}
	if err := eng.SetProperty(obj.Raw(), "n", raw(value.Bool(true))); err == nil {
		t.Error("setting a bool into an int32 field should fail")
	}
	if c.N != 9 {
		t.Error("failed set must leave the field intact")
	}

	empty, _ := value.String("")
	defer empty.Release()
	before := eng.Live()
	err := eng.SetProperty(obj.Raw(), "label", empty.Raw())
	var se *engine.ScriptError
	if !stderrors.As(err, &se) || !strings.Contains(se.Message, "label must not be empty") {
		t.Errorf("virtual setter error = %v, want its message", err)
	}
	if eng.Live() != before {
		t.Errorf("Live = %d after failed set, want %d", eng.Live(), before)
	}
	if !empty.IsString() {
		t.Error("failed set replaced the caller's value")
	}
	if err := eng.SetProperty(obj.Raw(), "frozen", raw(value.Int32(1))); err == nil {
		t.Error("read-only property accepted a write")
	}

	label, _ := value.String("new")
	defer label.Release()
	if err := eng.SetProperty(obj.Raw(), "label", label.Raw()); err != nil || c.Label != "new" {
		t.Errorf("label = %q, %v", c.Label, err)
	}
}

func TestItemThunks(t *testing.T) {
	eng := setup(t)

	c := &counter{}
	a, _ := NewAsset(c)
	defer a.Release()
	obj := asValue(t, a)

	key, _ := value.String("a")
	defer key.Release()

	var out value.Value
	if err := eng.GetItem(obj.Raw(), key.Raw(), out.Raw()); err != nil {
		t.Fatal(err)
	}
	if !out.IsNothing() {
		t.Errorf("missing item = %v, want nothing", out.Type())
	}

	for i, k := range []string{"a", "b"} {
		kv, _ := value.String(k)
		if err := eng.SetItem(obj.Raw(), kv.Raw(), raw(value.Int32(int32(i+1)))); err != nil {
			t.Fatal(err)
		}
		kv.Release()
	}

	var seen []string
	err := eng.Items(obj.Raw(), func(k, v *abi.Value) bool {
		seen = append(seen, value.Ref(k).String()+"="+value.Ref(v).String())
		return true
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a=1", "b=2"}, seen); diff != "" {
		t.Errorf("items (-want +got):\n%s", diff)
	}

	var se *engine.ScriptError
	err = eng.SetItem(obj.Raw(), key.Raw(), raw(value.Bool(true)))
	if !stderrors.As(err, &se) || se.Message == "native call failed" {
		t.Errorf("item setter error = %v, want the conversion failure", err)
	}
}

func TestItemEnumerationError(t *testing.T) {
	eng := setup(t)

	a, err := NewAsset(&faulty{})
	if err != nil {
		t.Fatal(err)
	}
	defer a.Release()
	obj := asValue(t, a)

	visited := 0
	err = eng.Items(obj.Raw(), func(k, v *abi.Value) bool {
		visited++
		return true
	})
	var se *engine.ScriptError
	if !stderrors.As(err, &se) {
		t.Fatalf("Items error = %v, want script error", err)
	}
	if !strings.Contains(se.Message, "enumeration broke") {
		t.Errorf("message = %q", se.Message)
	}
	if visited != 0 {
		t.Errorf("visited %d items", visited)
	}
}

func TestGlobal(t *testing.T) {
	eng := setup(t)

	g, err := NewGlobal(&counter{N: 7})
	if err != nil {
		t.Fatal(err)
	}
	if g.Name() != "Counter" {
		t.Errorf("Name = %q", g.Name())
	}

	var out value.Value
	if !eng.Global("Counter", out.Raw()) {
		t.Fatal("global not registered")
	}
	var n value.Value
	if err := eng.GetProperty(out.Raw(), "n", n.Raw()); err != nil {
		t.Fatal(err)
	}
	if got, _ := n.AsInt32(); got != 7 {
		t.Errorf("n = %d", got)
	}
	out.Release()

	if err := g.Close(); err != nil {
		t.Fatal(err)
	}
	if eng.Global("Counter", out.Raw()) {
		t.Error("global still visible after Close")
	}
	if err := g.Close(); err == nil {
		t.Error("second Close should fail")
	}
}

func TestBorrowed(t *testing.T) {
	eng := setup(t)

	c := &counter{N: 2}
	b, err := Lend(c)
	if err != nil {
		t.Fatal(err)
	}
	obj := asValue(t, b)

	var out value.Value
	if err := eng.GetProperty(obj.Raw(), "n", out.Raw()); err != nil {
		t.Fatal(err)
	}

	b.End()
	b.End()
	err = eng.GetProperty(obj.Raw(), "n", out.Raw())
	var se *engine.ScriptError
	if !stderrors.As(err, &se) || !strings.Contains(se.Message, "invalid_handle") {
		t.Fatalf("access after End: %v", err)
	}
	if c.drops != 0 {
		t.Error("borrowed payload must not be destroyed")
	}
}

func TestToValueFromValue(t *testing.T) {
	setup(t)

	c := &counter{N: 1}
	v, err := ToValue(c)
	if err != nil {
		t.Fatal(err)
	}
	if !v.IsAsset() {
		t.Fatalf("type = %v, want asset", v.Type())
	}
	back, err := FromValue[*counter](v)
	if err != nil || back != c {
		t.Fatalf("FromValue = %p, %v", back, err)
	}

	list, err := ToValue([]*counter{c, {N: 2}})
	if err != nil {
		t.Fatal(err)
	}
	got, err := FromValue[[]*counter](list)
	if err != nil || len(got) != 2 || got[0] != c || got[1].N != 2 {
		t.Fatalf("list round trip = %v, %v", got, err)
	}
	list.Release()

	v.Release()
	if c.drops != 1 {
		t.Errorf("drops = %d after the last script reference", c.drops)
	}
}

func TestDescribe(t *testing.T) {
	d := DescribeFor[counter]()
	if d.Name != "Counter" || d.GoType != "*som.counter" {
		t.Errorf("header = %q %q", d.Name, d.GoType)
	}
	if !d.Items.Get || !d.Items.Set || !d.Items.Enumerate {
		t.Errorf("items = %+v", d.Items)
	}
	if len(d.Properties) != 3 || !d.Properties[2].ReadOnly || d.Properties[0].ReadOnly {
		t.Errorf("properties = %+v", d.Properties)
	}

	desc := d.Methods[1]
	if desc.Name != "describe" || len(desc.Params) != 2 {
		t.Fatalf("describe = %+v", desc)
	}
	if _, ok := desc.Params[0].(wit.String); !ok {
		t.Errorf("param 0 = %T", desc.Params[0])
	}
	if _, ok := desc.Params[1].(wit.S64); !ok {
		t.Errorf("param 1 = %T", desc.Params[1])
	}
	if _, ok := desc.Result.(wit.String); !ok {
		t.Errorf("result = %T", desc.Result)
	}
	if d.Methods[2].Result != nil {
		t.Error("explode has no result")
	}
}
