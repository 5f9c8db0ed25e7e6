package runtime

import (
	"context"
	"io"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/script-bridge/abi"
	"github.com/wippyai/script-bridge/engine"
	"github.com/wippyai/script-bridge/errors"
	"github.com/wippyai/script-bridge/sapi"
	"github.com/wippyai/script-bridge/som"
	"github.com/wippyai/script-bridge/value"
	"github.com/wippyai/script-bridge/wasmhost"
	"github.com/wippyai/script-bridge/xmod"
)

// Config holds configuration for runtime creation
type Config struct {
	// Engine configures the reference engine. nil means defaults.
	Engine *engine.Config

	// Logger is installed in every bridge package. nil keeps the
	// packages' current loggers.
	Logger *zap.Logger
}

type Runtime struct {
	engine  *engine.Engine
	funcs   *xmod.Registry
	log     *zap.Logger
	globals []io.Closer
	mu      sync.Mutex
	closed  bool
}

// New creates a runtime with the default configuration.
func New(ctx context.Context) (*Runtime, error) {
	return NewWithConfig(ctx, nil)
}

// NewWithConfig creates an engine session and binds the bridge to it.
// Only one runtime can be bound at a time; a new one replaces the old
// binding.
func NewWithConfig(ctx context.Context, cfg *Config) (*Runtime, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = &Config{}
	}

	log := zap.NewNop()
	if cfg.Logger != nil {
		log = cfg.Logger
		engine.SetLogger(log.Named("engine"))
		sapi.SetLogger(log.Named("sapi"))
		som.SetLogger(log.Named("som"))
		xmod.SetLogger(log.Named("xmod"))
		wasmhost.SetLogger(log.Named("wasmhost"))
	}

	if prev, err := sapi.Current(); err == nil && prev != nil {
		log.Warn("replacing bound engine API", zap.Uint32("version", prev.Version))
	}

	eng := engine.NewWithConfig(cfg.Engine)
	if err := sapi.Load(eng.API()); err != nil {
		return nil, multierr.Append(errors.Wrap(errors.PhaseRuntime, errors.KindNotInitialized, err, "load engine API"), eng.Close())
	}

	return &Runtime{
		engine: eng,
		funcs:  xmod.NewRegistry(),
		log:    log,
	}, nil
}

// Engine returns the underlying engine session.
func (r *Runtime) Engine() *engine.Engine {
	return r.engine
}

func (r *Runtime) Functions() *xmod.Registry {
	return r.funcs
}

// Close releases globals, unbinds the bridge and closes the engine.
func (r *Runtime) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	globals := r.globals
	r.globals = nil
	r.mu.Unlock()

	var err error
	for i := len(globals) - 1; i >= 0; i-- {
		err = multierr.Append(err, globals[i].Close())
	}
	if cur, cerr := sapi.Current(); cerr == nil && cur == r.engine.API() {
		sapi.Unload()
	}
	err = multierr.Append(err, r.engine.Close())
	if err != nil {
		r.log.Warn("runtime closed with errors", zap.Error(err))
	}
	return err
}

// RegisterHost registers all exported methods of h as a module named by
// h.Namespace(). Method names are converted to lowerCamel (GetValue ->
// getValue).
func (r *Runtime) RegisterHost(h Host) error {
	return registerHost(r.funcs, h)
}

// RegisterFunc registers a free function. Free functions take precedence
// over module functions of the same name.
func (r *Runtime) RegisterFunc(name string, fn any) error {
	f, err := xmod.Func(name, fn)
	if err != nil {
		return errors.Registration(errors.PhaseModule, "", name, err)
	}
	return r.funcs.AddFunction(name, f)
}

// Call dispatches a native function by name.
func (r *Runtime) Call(ctx context.Context, name string, args ...value.Value) (value.Value, error) {
	if err := ctx.Err(); err != nil {
		return value.Value{}, err
	}
	return r.funcs.Call(name, args...)
}

// Function returns a script function value that dispatches name through the
// registry when invoked.
func (r *Runtime) Function(name string) (value.Value, error) {
	return value.Functor(func(args []value.Value) (value.Value, error) {
		return r.funcs.Call(name, args...)
	})
}

// SetGlobal registers data as an engine global under its passport name. The
// global is removed when the runtime closes.
func SetGlobal[T any](r *Runtime, data *T) (*som.Global[T], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, errors.NotInitialized(errors.PhaseRuntime, "runtime")
	}

	g, err := som.NewGlobal(data)
	if err != nil {
		return nil, err
	}
	r.globals = append(r.globals, g)
	return g, nil
}

// Global returns a reference to the named global.
func (r *Runtime) Global(name string) (value.Value, error) {
	var out value.Value
	if !r.engine.Global(name, out.Raw()) {
		return value.Value{}, errors.NotFound(errors.PhaseRuntime, "global", name)
	}
	return out, nil
}

// Property reads obj.name.
func (r *Runtime) Property(obj value.Value, name string) (value.Value, error) {
	var out value.Value
	if err := r.engine.GetProperty(obj.Raw(), name, out.Raw()); err != nil {
		return value.Value{}, err
	}
	return out, nil
}

// SetProperty performs obj.name = val. val is borrowed.
func (r *Runtime) SetProperty(obj value.Value, name string, val value.Value) error {
	return r.engine.SetProperty(obj.Raw(), name, val.Raw())
}

// Invoke calls obj.method(args...). Arguments are borrowed.
func (r *Runtime) Invoke(obj value.Value, method string, args ...value.Value) (value.Value, error) {
	var out value.Value
	if err := r.engine.CallMethod(obj.Raw(), method, raws(args), out.Raw()); err != nil {
		return value.Value{}, err
	}
	return out, nil
}

// Item reads obj[key].
func (r *Runtime) Item(obj, key value.Value) (value.Value, error) {
	var out value.Value
	if err := r.engine.GetItem(obj.Raw(), key.Raw(), out.Raw()); err != nil {
		return value.Value{}, err
	}
	return out, nil
}

// SetItem performs obj[key] = val.
func (r *Runtime) SetItem(obj, key, val value.Value) error {
	return r.engine.SetItem(obj.Raw(), key.Raw(), val.Raw())
}

// Items enumerates obj the way a for-in loop does. key and val are
// borrowed for the duration of fn.
func (r *Runtime) Items(obj value.Value, fn func(key, val value.Value) bool) error {
	return r.engine.Items(obj.Raw(), func(key, val *abi.Value) bool {
		return fn(*value.Ref(key), *value.Ref(val))
	})
}

func raws(args []value.Value) []abi.Value {
	if len(args) == 0 {
		return nil
	}
	out := make([]abi.Value, len(args))
	for i := range args {
		out[i] = *args[i].Raw()
	}
	return out
}
