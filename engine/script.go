package engine

import (
	"fmt"
	"unicode/utf16"

	"go.uber.org/zap"

	"github.com/wippyai/script-bridge/abi"
	"github.com/wippyai/script-bridge/errors"
)

// ScriptError is the exception script code observes when an operation on a
// native object fails.
type ScriptError struct {
	Cause   error
	Op      string
	Name    string
	Message string
}

func (e *ScriptError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("script error in %s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("script error in %s '%s': %s", e.Op, e.Name, e.Message)
}

func (e *ScriptError) Unwrap() error {
	return e.Cause
}

// Global stores a reference to the named global asset in out.
func (e *Engine) Global(name string, out *abi.Value) bool {
	e.mu.Lock()
	thing := e.globals[name]
	e.mu.Unlock()
	if thing == nil {
		return false
	}
	return e.valueAssetDataSet(out, thing) == abi.ResultOK
}

func (e *Engine) setGlobalAsset(thing *abi.Asset) bool {
	if thing == nil || thing.Class == nil || thing.Class.GetPassport == nil {
		return false
	}
	p := thing.Class.GetPassport(thing)
	if p == nil {
		return false
	}
	name, ok := e.atomName(p.Name)
	if !ok {
		return false
	}

	thing.Class.AddRef(thing)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		thing.Class.Release(thing)
		return false
	}
	prev := e.globals[name]
	e.globals[name] = thing
	e.mu.Unlock()

	if prev != nil {
		prev.Class.Release(prev)
	}
	Logger().Debug("global asset set", zap.String("name", name))
	return true
}

func (e *Engine) releaseGlobalAsset(thing *abi.Asset) bool {
	if thing == nil {
		return false
	}
	e.mu.Lock()
	found := ""
	for name, g := range e.globals {
		if g == thing {
			found = name
			break
		}
	}
	if found != "" {
		delete(e.globals, found)
	}
	e.mu.Unlock()

	if found == "" {
		return false
	}
	if thing.Class != nil && thing.Class.Release != nil {
		thing.Class.Release(thing)
	}
	Logger().Debug("global asset released", zap.String("name", found))
	return true
}

// Passport returns the passport of the asset held by obj.
func (e *Engine) Passport(obj *abi.Value) (*abi.Passport, error) {
	_, p, err := e.assetOf("passport", "", obj)
	return p, err
}

// AtomName resolves an atom to its name. Unknown atoms resolve to "".
func (e *Engine) AtomName(atom abi.Atom) string {
	name, _ := e.atomName(atom)
	return name
}

func (e *Engine) assetOf(op, name string, obj *abi.Value) (*abi.Asset, *abi.Passport, error) {
	var thing *abi.Asset
	if obj == nil || e.valueAssetData(obj, &thing) != abi.ResultOK || thing == nil {
		t := "undefined"
		if obj != nil {
			t = obj.T.String()
		}
		return nil, nil, &ScriptError{
			Op:      op,
			Name:    name,
			Message: "not a native object",
			Cause:   errors.IncompatibleType(errors.PhaseDispatch, "asset", t),
		}
	}
	if thing.Class == nil || thing.Class.GetPassport == nil {
		return nil, nil, &ScriptError{Op: op, Name: name, Message: "object has no passport"}
	}
	p := thing.Class.GetPassport(thing)
	if p == nil {
		return nil, nil, &ScriptError{
			Op:      op,
			Name:    name,
			Message: "object has no passport",
			Cause:   errors.New(errors.PhaseDispatch, errors.KindPassport).Detail("passport unavailable").Build(),
		}
	}
	return thing, p, nil
}

// failure turns a failed thunk call into a ScriptError, consuming out.
func (e *Engine) failure(op, name string, out *abi.Value) error {
	msg := "native call failed"
	e.do(func(fin *finalizers) abi.Result {
		if isErrorString(out) {
			if o := e.obj(out); o != nil {
				msg = string(utf16.Decode(o.chars))
			}
		}
		e.clear(out, fin)
		return abi.ResultOK
	})
	Logger().Debug("native call failed",
		zap.String("op", op),
		zap.String("name", name),
		zap.String("message", msg))
	return &ScriptError{Op: op, Name: name, Message: msg}
}

func isErrorString(v *abi.Value) bool {
	return v.T == abi.TString && v.U == abi.UTStringError
}

// scratch returns a new reference to v. Setters receive it so a failing one
// can replace it with an error string without touching the caller's slot.
func (e *Engine) scratch(v *abi.Value) abi.Value {
	var s abi.Value
	e.do(func(fin *finalizers) abi.Result {
		e.assign(&s, *v, fin)
		return abi.ResultOK
	})
	return s
}

func (e *Engine) findProperty(p *abi.Passport, name string) *abi.PropertyDef {
	atom := e.atomValue(name)
	for i := range p.Properties {
		if p.Properties[i].Name == atom {
			return &p.Properties[i]
		}
	}
	return nil
}

func (e *Engine) findMethod(p *abi.Passport, name string) *abi.MethodDef {
	atom := e.atomValue(name)
	for i := range p.Methods {
		if p.Methods[i].Name == atom {
			return &p.Methods[i]
		}
	}
	return nil
}

// GetProperty reads obj.name into out.
func (e *Engine) GetProperty(obj *abi.Value, name string, out *abi.Value) error {
	thing, p, err := e.assetOf("get", name, obj)
	if err != nil {
		return err
	}
	prop := e.findProperty(p, name)
	if prop == nil || prop.Getter == nil {
		return &ScriptError{Op: "get", Name: name, Message: "no such property", Cause: errors.NoSuchProperty(name)}
	}
	e.valueClear(out)
	if !prop.Getter(thing, out) {
		return e.failure("get", name, out)
	}
	return nil
}

// SetProperty performs obj.name = val.
func (e *Engine) SetProperty(obj *abi.Value, name string, val *abi.Value) error {
	thing, p, err := e.assetOf("set", name, obj)
	if err != nil {
		return err
	}
	prop := e.findProperty(p, name)
	if prop == nil {
		return &ScriptError{Op: "set", Name: name, Message: "no such property", Cause: errors.NoSuchProperty(name)}
	}
	if prop.Setter == nil {
		return &ScriptError{Op: "set", Name: name, Message: "read-only property"}
	}
	in := e.scratch(val)
	if !prop.Setter(thing, &in) {
		return e.failure("set", name, &in)
	}
	e.valueClear(&in)
	return nil
}

// CallMethod performs out = obj.name(args...).
func (e *Engine) CallMethod(obj *abi.Value, name string, args []abi.Value, out *abi.Value) error {
	thing, p, err := e.assetOf("call", name, obj)
	if err != nil {
		return err
	}
	m := e.findMethod(p, name)
	if m == nil || m.Func == nil {
		return &ScriptError{Op: "call", Name: name, Message: "no such method", Cause: errors.NoSuchMethod(name)}
	}
	e.valueClear(out)
	argc, argv := abi.ArgsPtr(args)
	if !m.Func(thing, argc, argv, out) {
		return e.failure("call", name, out)
	}
	return nil
}

// GetItem performs out = obj[key].
func (e *Engine) GetItem(obj *abi.Value, key *abi.Value, out *abi.Value) error {
	thing, p, err := e.assetOf("item", "", obj)
	if err != nil {
		return err
	}
	if p.ItemGetter == nil {
		return e.noItems("item", key)
	}
	e.valueClear(out)
	if !p.ItemGetter(thing, key, out) {
		return e.failure("item", e.keyText(key), out)
	}
	return nil
}

// SetItem performs obj[key] = val.
func (e *Engine) SetItem(obj *abi.Value, key *abi.Value, val *abi.Value) error {
	thing, p, err := e.assetOf("item", "", obj)
	if err != nil {
		return err
	}
	if p.ItemSetter == nil {
		return e.noItems("item", key)
	}
	in := e.scratch(val)
	if !p.ItemSetter(thing, key, &in) {
		return e.failure("item", e.keyText(key), &in)
	}
	e.valueClear(&in)
	return nil
}

// Items enumerates obj the way a for-in loop would.
func (e *Engine) Items(obj *abi.Value, fn func(key, val *abi.Value) bool) error {
	thing, p, err := e.assetOf("items", "", obj)
	if err != nil {
		return err
	}
	if p.ItemNext == nil {
		return &ScriptError{Op: "items", Message: "no such property", Cause: errors.NoSuchProperty("items")}
	}

	var pos abi.Value
	defer e.valueClear(&pos)
	for {
		var key, val abi.Value
		if !p.ItemNext(thing, &pos, &key, &val) {
			e.valueClear(&key)
			if isErrorString(&val) {
				return e.failure("items", "", &val)
			}
			e.valueClear(&val)
			return nil
		}
		more := fn(&key, &val)
		e.valueClear(&key)
		e.valueClear(&val)
		if !more {
			return nil
		}
	}
}

func (e *Engine) keyText(key *abi.Value) string {
	if key == nil {
		return ""
	}
	var s string
	e.do(func(*finalizers) abi.Result {
		s = e.text(key)
		return abi.ResultOK
	})
	return s
}

func (e *Engine) noItems(op string, key *abi.Value) error {
	name := e.keyText(key)
	return &ScriptError{Op: op, Name: name, Message: "no such property", Cause: errors.NoSuchProperty(name)}
}
