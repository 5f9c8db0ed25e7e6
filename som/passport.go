package som

import (
	"reflect"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/script-bridge/abi"
	"github.com/wippyai/script-bridge/errors"
	"github.com/wippyai/script-bridge/sapi"
)

// Passports hold engine atoms, so they are cached per loaded engine.
type passportKey struct {
	t   reflect.Type
	api *abi.API
}

type passportEntry struct {
	once sync.Once
	p    *abi.Passport
	err  error
}

var (
	passports sync.Map // passportKey -> *passportEntry
	capable   sync.Map // reflect.Type -> bool
)

// proto returns a fresh zero value to probe capability interfaces on.
func proto(t reflect.Type) any {
	if t.Kind() != reflect.Pointer {
		return reflect.Zero(t).Interface()
	}
	return reflect.New(t.Elem()).Interface()
}

// HasPassport reports whether pointer type t implements any capability
// interface.
func HasPassport(t reflect.Type) bool {
	if t.Kind() != reflect.Pointer {
		return false
	}
	if ok, found := capable.Load(t); found {
		return ok.(bool)
	}
	var ok bool
	switch proto(t).(type) {
	case Named, Fields, Methods, ItemGetter, ItemSetter, ItemEnumerator:
		ok = true
	}
	capable.Store(t, ok)
	return ok
}

// PassportOf returns the passport of pointer type t, building it on first
// use. A failed build is cached too.
func PassportOf(t reflect.Type) (*abi.Passport, error) {
	api, err := sapi.Current()
	if err != nil {
		return nil, errors.Passport(t.String(), err)
	}
	e, _ := passports.LoadOrStore(passportKey{t: t, api: api}, &passportEntry{})
	entry := e.(*passportEntry)
	entry.once.Do(func() {
		entry.p, entry.err = buildPassport(t)
		if entry.err != nil {
			Logger().Warn("passport construction failed",
				zap.String("type", t.String()),
				zap.Error(entry.err))
			return
		}
		Logger().Debug("passport built",
			zap.String("type", t.String()),
			zap.Int("properties", len(entry.p.Properties)),
			zap.Int("methods", len(entry.p.Methods)))
	})
	return entry.p, entry.err
}

// PassportFor is PassportOf for *T.
func PassportFor[T any]() (*abi.Passport, error) {
	return PassportOf(reflect.TypeFor[*T]())
}

// NameOf returns the script name of pointer type t.
func NameOf(t reflect.Type) string {
	if n, ok := proto(t).(Named); ok {
		return n.SOMName()
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

func buildPassport(t reflect.Type) (*abi.Passport, error) {
	typeName := t.String()
	fail := func(err error) (*abi.Passport, error) {
		return nil, errors.Passport(typeName, err)
	}

	probe := proto(t)
	p := &abi.Passport{Flags: abi.SealedObject}
	if ext, ok := probe.(Extendable); ok && ext.SOMExtendable() {
		p.Flags = abi.ExtendableObject
	}

	name, err := sapi.AtomValue(NameOf(t))
	if err != nil {
		return fail(err)
	}
	p.Name = name

	if _, ok := probe.(ItemGetter); ok {
		p.ItemGetter = itemGetThunk
	}
	if _, ok := probe.(ItemSetter); ok {
		p.ItemSetter = itemSetThunk
	}
	if _, ok := probe.(ItemEnumerator); ok {
		p.ItemNext = itemNextThunk
	}

	seen := map[string]bool{}
	claim := func(name string) error {
		if name == "" {
			return errors.InvalidInput(errors.PhasePassport, "empty member name")
		}
		if seen[name] {
			return errors.InvalidInput(errors.PhasePassport, "duplicate member '"+name+"'")
		}
		seen[name] = true
		return nil
	}

	if f, ok := probe.(Fields); ok {
		for _, spec := range f.SOMFields() {
			if err := claim(spec.Name); err != nil {
				return fail(err)
			}
			atom, err := sapi.AtomValue(spec.Name)
			if err != nil {
				return fail(err)
			}
			def := abi.PropertyDef{Name: atom, Getter: getterThunk(spec)}
			if spec.Set != nil {
				def.Setter = setterThunk(spec)
			}
			p.Properties = append(p.Properties, def)
		}
	}

	if m, ok := probe.(Methods); ok {
		for _, spec := range m.SOMMethods() {
			if err := claim(spec.Name); err != nil {
				return fail(err)
			}
			atom, err := sapi.AtomValue(spec.Name)
			if err != nil {
				return fail(err)
			}
			p.Methods = append(p.Methods, abi.MethodDef{
				Name:   atom,
				Params: uint32(spec.Params),
				Func:   methodThunk(spec),
			})
		}
	}

	return p, nil
}
