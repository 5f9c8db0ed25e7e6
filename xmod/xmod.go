package xmod

import (
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/script-bridge/errors"
	"github.com/wippyai/script-bridge/value"
)

// Function is a native function callable from script. Arguments are
// borrowed; the result is owned by the caller.
type Function func(args []value.Value) (value.Value, error)

// Provider answers calls by name. ok is false when the name is unknown.
type Provider interface {
	Call(name string, args []value.Value) (v value.Value, ok bool, err error)
}

// Lister is optionally implemented by providers that can enumerate their
// function names.
type Lister interface {
	Names() []string
}

// Funcs is a Provider backed by a map.
type Funcs map[string]Function

func (f Funcs) Call(name string, args []value.Value) (value.Value, bool, error) {
	fn, ok := f[name]
	if !ok {
		return value.Value{}, false, nil
	}
	v, err := guard(name, fn, args)
	return v, true, err
}

func (f Funcs) Names() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func guard(name string, fn Function, args []value.Value) (v value.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			v.Release()
			v, err = value.Value{}, errors.Panic(name, r)
		}
	}()
	return fn(args)
}

type module struct {
	name     string
	provider Provider
}

// Registry is the xcall dispatcher.
type Registry struct {
	free    Funcs
	modules []module
	mu      sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{free: Funcs{}}
}

// AddFunction registers one free function.
func (r *Registry) AddFunction(name string, fn Function) error {
	if name == "" {
		return errors.InvalidInput(errors.PhaseModule, "function name cannot be empty")
	}
	if fn == nil {
		return errors.NilPointer(errors.PhaseModule, "xmod.Function")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.free[name]; dup {
		return errors.Registration(errors.PhaseModule, "", name,
			errors.InvalidInput(errors.PhaseModule, "function already registered"))
	}
	r.free[name] = fn
	debugf("free function registered name=%s", name)
	return nil
}

// AddFunctions registers every entry of fs; it stops at the first
// duplicate.
func (r *Registry) AddFunctions(fs Funcs) error {
	for _, name := range fs.Names() {
		if err := r.AddFunction(name, fs[name]); err != nil {
			return err
		}
	}
	return nil
}

// AddModule appends a provider consulted after free functions and earlier
// modules.
func (r *Registry) AddModule(name string, p Provider) error {
	if name == "" {
		return errors.InvalidInput(errors.PhaseModule, "module name cannot be empty")
	}
	if p == nil {
		return errors.NilPointer(errors.PhaseModule, "xmod.Provider")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.modules {
		if m.name == name {
			return errors.Registration(errors.PhaseModule, name, "",
				errors.InvalidInput(errors.PhaseModule, "module already registered"))
		}
	}
	r.modules = append(r.modules, module{name: name, provider: p})
	Logger().Debug("module registered", zap.String("module", name))
	return nil
}

// Call dispatches name. A miss is a no_such_method error.
func (r *Registry) Call(name string, args ...value.Value) (value.Value, error) {
	r.mu.RLock()
	fn, isFree := r.free[name]
	modules := slices.Clone(r.modules)
	r.mu.RUnlock()

	if isFree {
		return guard(name, fn, args)
	}

	if mod, fname, ok := strings.Cut(name, "."); ok {
		for _, m := range modules {
			if m.name == mod {
				if v, ok, err := m.provider.Call(fname, args); ok {
					return v, err
				}
				break
			}
		}
	}

	for _, m := range modules {
		if v, ok, err := m.provider.Call(name, args); ok {
			return v, err
		}
	}

	Logger().Debug("no such method", zap.String("name", name))
	return value.Value{}, errors.NoSuchMethod(name)
}

// Names lists free functions, then each listable module's functions.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := r.free.Names()
	for _, m := range r.modules {
		if l, ok := m.provider.(Lister); ok {
			names = append(names, l.Names()...)
		}
	}
	return names
}

// Modules lists registered module names in order.
func (r *Registry) Modules() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.modules))
	for i, m := range r.modules {
		names[i] = m.name
	}
	return names
}
