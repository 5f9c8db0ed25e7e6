package wasmhost

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/script-bridge/abi"
	"github.com/wippyai/script-bridge/errors"
	"github.com/wippyai/script-bridge/resource"
	"github.com/wippyai/script-bridge/sapi"
	"github.com/wippyai/script-bridge/som"
)

// DefaultModuleName is the import module guests link against.
const DefaultModuleName = "som"

// RecordSize is the size of one raw value record in guest memory:
// T u32, U u32, D u64, little endian.
const RecordSize = 16

// Status codes returned by call_method and method_index.
const (
	StatusOK            int32 = 0
	StatusInvalidHandle int32 = -1
	StatusNoSuchMethod  int32 = -2
	StatusArgCount      int32 = -3
	StatusNonScalar     int32 = -4
	StatusFailed        int32 = -5
	StatusMemory        int32 = -6
)

// Config holds configuration for host module instantiation
type Config struct {
	// ModuleName overrides DefaultModuleName.
	ModuleName string

	// Assets resolves guest handles. nil means som.Assets().
	Assets *resource.Table
}

// Host is one instantiated host module. Guests only reach assets granted
// to this instance, and release only the references they hold.
type Host struct {
	mod    api.Module
	assets *resource.Table

	mu     sync.Mutex
	grants map[uint32]*grant
}

type grant struct {
	thing *abi.Asset
	refs  int32 // references held on behalf of the guest
}

// Instantiate registers the host module with r.
func Instantiate(ctx context.Context, r wazero.Runtime) (*Host, error) {
	return InstantiateWithConfig(ctx, r, nil)
}

// InstantiateWithConfig registers the host module with custom configuration.
func InstantiateWithConfig(ctx context.Context, r wazero.Runtime, cfg *Config) (*Host, error) {
	name := DefaultModuleName
	h := &Host{assets: som.Assets(), grants: make(map[uint32]*grant)}
	if cfg != nil {
		if cfg.ModuleName != "" {
			name = cfg.ModuleName
		}
		if cfg.Assets != nil {
			h.assets = cfg.Assets
		}
	}

	i32 := api.ValueTypeI32
	builder := r.NewHostModuleBuilder(name)

	builder = builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(h.addRef), []api.ValueType{i32}, []api.ValueType{i32}).
		WithParameterNames("asset").
		Export("add_ref")

	builder = builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(h.release), []api.ValueType{i32}, []api.ValueType{i32}).
		WithParameterNames("asset").
		Export("release")

	builder = builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(h.methodCount), []api.ValueType{i32}, []api.ValueType{i32}).
		WithParameterNames("asset").
		Export("method_count")

	builder = builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(h.methodIndex), []api.ValueType{i32, i32, i32}, []api.ValueType{i32}).
		WithParameterNames("asset", "name", "name_len").
		Export("method_index")

	builder = builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(h.callMethod), []api.ValueType{i32, i32, i32, i32, i32}, []api.ValueType{i32}).
		WithParameterNames("asset", "method", "argc", "argv", "result").
		Export("call_method")

	mod, err := builder.Instantiate(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseHost, errors.KindRegistration, err, "instantiate "+name)
	}
	h.mod = mod
	Logger().Debug("host module instantiated", zap.String("module", name))
	return h, nil
}

// Module returns the instantiated host module.
func (h *Host) Module() api.Module { return h.mod }

// Grant makes thing reachable from the guest and takes one reference on
// its behalf. The returned handle is what the guest passes to the imports.
func (h *Host) Grant(thing *abi.Asset) (uint32, error) {
	if thing == nil || thing.Class == nil {
		return 0, errors.InvalidHandle(errors.PhaseHost, 0)
	}
	if _, ok := h.assets.Lookup(thing); !ok {
		return 0, errors.InvalidHandle(errors.PhaseHost, thing.Handle)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if thing.Class.AddRef(thing) <= 0 {
		return 0, errors.InvalidHandle(errors.PhaseHost, thing.Handle)
	}
	g, ok := h.grants[thing.Handle]
	if !ok || g.thing != thing {
		g = &grant{thing: thing}
		h.grants[thing.Handle] = g
	}
	g.refs++
	debugf("granted handle=%d refs=%d", thing.Handle, g.refs)
	return thing.Handle, nil
}

// Granted reports how many references the guest holds on handle.
func (h *Host) Granted(handle uint32) int32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if g, ok := h.grants[handle]; ok {
		return g.refs
	}
	return 0
}

// Close drops every reference still held on behalf of the guest and closes
// the host module.
func (h *Host) Close(ctx context.Context) error {
	h.mu.Lock()
	grants := h.grants
	h.grants = make(map[uint32]*grant)
	h.mu.Unlock()

	for _, g := range grants {
		if _, ok := h.assets.Lookup(g.thing); !ok {
			continue
		}
		for range g.refs {
			g.thing.Class.Release(g.thing)
		}
	}
	if h.mod == nil {
		return nil
	}
	return h.mod.Close(ctx)
}

// resolve returns the granted asset at handle. Handles the guest holds no
// reference on, and assets destroyed since the grant, do not resolve.
func (h *Host) resolve(handle uint32) (*abi.Asset, *abi.Passport, bool) {
	h.mu.Lock()
	g, ok := h.grants[handle]
	h.mu.Unlock()
	if !ok {
		debugf("ungranted asset handle=%d", handle)
		return nil, nil, false
	}
	if _, live := h.assets.Lookup(g.thing); !live {
		debugf("stale asset handle=%d", handle)
		return nil, nil, false
	}
	thing := g.thing
	var p *abi.Passport
	if thing.Class.GetPassport != nil {
		p = thing.Class.GetPassport(thing)
	}
	return thing, p, true
}

func (h *Host) addRef(_ context.Context, _ api.Module, stack []uint64) {
	handle := api.DecodeU32(stack[0])
	thing, _, ok := h.resolve(handle)
	if !ok {
		stack[0] = api.EncodeI32(StatusInvalidHandle)
		return
	}
	n := thing.Class.AddRef(thing)
	if n <= 0 {
		stack[0] = api.EncodeI32(StatusInvalidHandle)
		return
	}
	h.mu.Lock()
	if g, ok := h.grants[handle]; ok && g.thing == thing {
		g.refs++
	}
	h.mu.Unlock()
	stack[0] = api.EncodeI32(n)
}

// release drops one of the guest's own references. The last one also
// removes the grant, so the guest cannot reach the asset afterwards.
func (h *Host) release(_ context.Context, _ api.Module, stack []uint64) {
	handle := api.DecodeU32(stack[0])
	thing, _, ok := h.resolve(handle)
	if !ok {
		stack[0] = api.EncodeI32(StatusInvalidHandle)
		return
	}
	h.mu.Lock()
	g, ok := h.grants[handle]
	if !ok || g.thing != thing || g.refs <= 0 {
		h.mu.Unlock()
		stack[0] = api.EncodeI32(StatusInvalidHandle)
		return
	}
	g.refs--
	if g.refs == 0 {
		delete(h.grants, handle)
	}
	h.mu.Unlock()
	stack[0] = api.EncodeI32(thing.Class.Release(thing))
}

func (h *Host) methodCount(_ context.Context, _ api.Module, stack []uint64) {
	_, p, ok := h.resolve(api.DecodeU32(stack[0]))
	switch {
	case !ok:
		stack[0] = api.EncodeI32(StatusInvalidHandle)
	case p == nil:
		stack[0] = 0
	default:
		stack[0] = api.EncodeI32(int32(len(p.Methods)))
	}
}

func (h *Host) methodIndex(_ context.Context, mod api.Module, stack []uint64) {
	_, p, ok := h.resolve(api.DecodeU32(stack[0]))
	if !ok {
		stack[0] = api.EncodeI32(StatusInvalidHandle)
		return
	}
	buf, ok := mod.Memory().Read(api.DecodeU32(stack[1]), api.DecodeU32(stack[2]))
	if !ok {
		stack[0] = api.EncodeI32(StatusMemory)
		return
	}
	atom, err := sapi.AtomValue(string(buf))
	if err != nil || p == nil {
		stack[0] = api.EncodeI32(StatusNoSuchMethod)
		return
	}
	for i, m := range p.Methods {
		if m.Name == atom {
			stack[0] = api.EncodeI32(int32(i))
			return
		}
	}
	stack[0] = api.EncodeI32(StatusNoSuchMethod)
}

func (h *Host) callMethod(_ context.Context, mod api.Module, stack []uint64) {
	stack[0] = api.EncodeI32(h.call(mod.Memory(),
		api.DecodeU32(stack[0]),
		api.DecodeI32(stack[1]),
		api.DecodeU32(stack[2]),
		api.DecodeU32(stack[3]),
		api.DecodeU32(stack[4])))
}

func (h *Host) call(mem api.Memory, handle uint32, method int32, argc, argv, result uint32) int32 {
	thing, p, ok := h.resolve(handle)
	if !ok {
		return StatusInvalidHandle
	}
	if p == nil || method < 0 || int(method) >= len(p.Methods) || p.Methods[method].Func == nil {
		return StatusNoSuchMethod
	}
	m := p.Methods[method]
	if argc != m.Params {
		return StatusArgCount
	}

	args := make([]abi.Value, argc)
	for i := range args {
		v, ok := readRecord(mem, argv+uint32(i)*RecordSize)
		if !ok {
			return StatusMemory
		}
		if !scalar(v.T) {
			return StatusNonScalar
		}
		args[i] = v
	}

	var out abi.Value
	n, ptr := abi.ArgsPtr(args)
	if !m.Func(thing, n, ptr, &out) {
		Logger().Warn("guest method call failed",
			zap.Uint32("handle", handle),
			zap.Int32("method", method))
		_ = sapi.ValueClear(&out)
		return StatusFailed
	}
	if !scalar(out.T) {
		_ = sapi.ValueClear(&out)
		return StatusNonScalar
	}
	if !writeRecord(mem, result, out) {
		return StatusMemory
	}
	return StatusOK
}

// scalar reports whether t is stored inline in the slot.
func scalar(t abi.Type) bool {
	switch t {
	case abi.TUndefined, abi.TNull, abi.TBool, abi.TInt, abi.TFloat, abi.TBigInt:
		return true
	}
	return false
}

func readRecord(mem api.Memory, offset uint32) (abi.Value, bool) {
	t, ok1 := mem.ReadUint32Le(offset)
	u, ok2 := mem.ReadUint32Le(offset + 4)
	d, ok3 := mem.ReadUint64Le(offset + 8)
	if !ok1 || !ok2 || !ok3 {
		return abi.Value{}, false
	}
	return abi.Value{T: abi.Type(t), U: u, D: d}, true
}

func writeRecord(mem api.Memory, offset uint32, v abi.Value) bool {
	return mem.WriteUint32Le(offset, uint32(v.T)) &&
		mem.WriteUint32Le(offset+4, v.U) &&
		mem.WriteUint64Le(offset+8, v.D)
}
