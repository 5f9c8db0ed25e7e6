package engine

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/script-bridge/abi"
)

// Config holds configuration for engine creation
type Config struct {
	// Version is reported in the published API table.
	// 0 means abi.Version.
	Version uint32

	// Omit lists entry points left out of the published table, modelling an
	// engine build that predates them.
	Omit []string
}

// Engine is a single script engine session.
type Engine struct {
	heap    map[uint64]*object
	atoms   map[string]abi.Atom
	globals map[string]*abi.Asset
	api     *abi.API
	names   []string
	nextID  uint64
	mu      sync.Mutex
	closed  bool
}

type object struct {
	fn    *functor
	asset *abi.Asset
	chars []uint16
	bytes []byte
	keys  []abi.Value // map keys, parallel to elems
	elems []abi.Value
	refs  int32
	kind  abi.Type
}

type functor struct {
	invoke  abi.FunctorInvoke
	release abi.FunctorRelease
	tag     any
}

// finalizers collects native callbacks that must run after the engine
// mutex is released.
type finalizers []func()

func (f finalizers) run() {
	for _, fn := range f {
		fn()
	}
}

// New creates an engine with the default configuration.
func New() *Engine {
	return NewWithConfig(nil)
}

// NewWithConfig creates an engine with custom configuration.
func NewWithConfig(cfg *Config) *Engine {
	e := &Engine{
		heap:    make(map[uint64]*object),
		atoms:   make(map[string]abi.Atom),
		globals: make(map[string]*abi.Asset),
	}

	version := abi.Version
	var omit []string
	if cfg != nil {
		if cfg.Version != 0 {
			version = cfg.Version
		}
		omit = cfg.Omit
	}

	e.api = &abi.API{
		Version: version,

		ValueInit:    e.valueInit,
		ValueClear:   e.valueClear,
		ValueCompare: e.valueCompare,
		ValueCopy:    e.valueCopy,
		ValueIsolate: e.valueIsolate,
		ValueType:    e.valueType,

		ValueStringData:    e.valueStringData,
		ValueStringDataSet: e.valueStringDataSet,
		ValueIntData:       e.valueIntData,
		ValueIntDataSet:    e.valueIntDataSet,
		ValueInt64Data:     e.valueInt64Data,
		ValueInt64DataSet:  e.valueInt64DataSet,
		ValueFloatData:     e.valueFloatData,
		ValueFloatDataSet:  e.valueFloatDataSet,
		ValueBinaryData:    e.valueBinaryData,
		ValueBinaryDataSet: e.valueBinaryDataSet,
		ValueAssetData:     e.valueAssetData,
		ValueAssetDataSet:  e.valueAssetDataSet,

		ValueElementsCount:      e.valueElementsCount,
		ValueNthElementValue:    e.valueNthElementValue,
		ValueNthElementValueSet: e.valueNthElementValueSet,
		ValueNthElementKey:      e.valueNthElementKey,
		ValueEnumElements:       e.valueEnumElements,
		ValueSetValueToKey:      e.valueSetValueToKey,
		ValueGetValueOfKey:      e.valueGetValueOfKey,

		ValueToString:   e.valueToString,
		ValueFromString: e.valueFromString,

		ValueInvoke:           e.valueInvoke,
		ValueNativeFunctorSet: e.valueNativeFunctorSet,
		ValueIsNativeFunctor:  e.valueIsNativeFunctor,

		AtomValue:  e.atomValue,
		AtomNameCB: e.atomNameCB,

		SetGlobalAsset:     e.setGlobalAsset,
		ReleaseGlobalAsset: e.releaseGlobalAsset,
	}
	e.api.Clear(omit...)

	Logger().Debug("engine created",
		zap.Uint32("version", version),
		zap.Strings("omitted", omit))
	return e
}

// API returns the engine's entry point table.
func (e *Engine) API() *abi.API {
	return e.api
}

// Live returns the number of live heap objects.
func (e *Engine) Live() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.heap)
}

// Globals returns the names of registered global assets, sorted.
func (e *Engine) Globals() []string {
	e.mu.Lock()
	names := make([]string, 0, len(e.globals))
	for name := range e.globals {
		names = append(names, name)
	}
	e.mu.Unlock()
	sort.Strings(names)
	return names
}

// Close tears the session down. Functors and asset references still held by
// heap values are released; every entry point fails afterwards.
func (e *Engine) Close() error {
	var fin finalizers

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	for _, o := range e.heap {
		e.finalize(o, &fin)
	}
	leaked := len(e.heap)
	e.heap = nil
	e.globals = nil
	e.mu.Unlock()

	fin.run()
	if leaked > 0 {
		Logger().Debug("engine closed with live values", zap.Int("live", leaked))
	}
	return nil
}

// do runs fn under the engine mutex and then runs collected finalizers.
func (e *Engine) do(fn func(fin *finalizers) abi.Result) abi.Result {
	var fin finalizers
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return abi.ResultBadParameter
	}
	r := fn(&fin)
	e.mu.Unlock()
	fin.run()
	return r
}

func isHeap(t abi.Type) bool {
	switch t {
	case abi.TString, abi.TBytes, abi.TArray, abi.TMap, abi.TFunction, abi.TAsset:
		return true
	}
	return false
}

func (e *Engine) alloc(o *object) abi.Value {
	e.nextID++
	o.refs = 1
	e.heap[e.nextID] = o
	return abi.Value{T: o.kind, D: e.nextID}
}

func (e *Engine) obj(v *abi.Value) *object {
	if !isHeap(v.T) {
		return nil
	}
	return e.heap[v.D]
}

func (e *Engine) retain(v *abi.Value) {
	if o := e.obj(v); o != nil {
		o.refs++
	}
}

func (e *Engine) drop(v *abi.Value, fin *finalizers) {
	o := e.obj(v)
	if o == nil {
		return
	}
	o.refs--
	if o.refs > 0 {
		return
	}
	delete(e.heap, v.D)
	for i := range o.keys {
		e.drop(&o.keys[i], fin)
	}
	for i := range o.elems {
		e.drop(&o.elems[i], fin)
	}
	e.finalize(o, fin)
}

// finalize queues the native side effects of freeing o.
func (e *Engine) finalize(o *object, fin *finalizers) {
	if f := o.fn; f != nil && f.release != nil {
		*fin = append(*fin, func() { f.release(f.tag) })
	}
	if thing := o.asset; thing != nil && thing.Class != nil && thing.Class.Release != nil {
		*fin = append(*fin, func() { thing.Class.Release(thing) })
	}
}

func (e *Engine) clear(v *abi.Value, fin *finalizers) {
	e.drop(v, fin)
	*v = abi.Value{}
}

// assign stores a new reference to src in dst.
func (e *Engine) assign(dst *abi.Value, src abi.Value, fin *finalizers) {
	e.retain(&src)
	e.clear(dst, fin)
	*dst = src
}
