package som

import (
	stderrors "errors"
	"reflect"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/script-bridge/abi"
	"github.com/wippyai/script-bridge/errors"
	"github.com/wippyai/script-bridge/resource"
	"github.com/wippyai/script-bridge/sapi"
	"github.com/wippyai/script-bridge/value"
)

// live maps a counted payload pointer to its header, so one payload is
// never exposed under two counts.
var live sync.Map

func init() {
	assets.Subscribe(resource.ObserverFunc(func(e resource.Event) {
		if e.Type == resource.EventDestroyed || e.Type == resource.EventRevoked {
			live.CompareAndDelete(e.Payload, e.Header)
		}
	}))
}

// acquire returns the header for payload holding one new reference for
// the caller. fresh reports that the slot was created by this call. A slot
// that is being destroyed is never revived; a new one replaces it.
func acquire(t reflect.Type, payload any) (thing *abi.Asset, fresh bool, err error) {
	for {
		if h, ok := live.Load(payload); ok {
			thing := h.(*abi.Asset)
			_, err := assets.Retain(thing)
			if err == nil {
				return thing, false, nil
			}
			if !stderrors.Is(err, errors.ErrInvalidHandle) {
				return nil, false, err
			}
			live.CompareAndDelete(payload, thing)
			continue
		}

		thing, err := assets.Insert(classFor(strategyCounted, t), t.String(), payload)
		if err != nil {
			return nil, false, err
		}
		if _, loaded := live.LoadOrStore(payload, thing); loaded {
			assets.Revoke(thing)
			continue
		}
		debugf("asset created type=%s handle=%d", t, thing.Handle)
		return thing, true, nil
	}
}

// Asset is a reference-counted native object. The creator holds the first
// reference; the payload's Drop or Close runs when the last one goes.
type Asset[T any] struct {
	thing *abi.Asset
	data  *T
}

// NewAsset takes a reference to data. A payload that is not exposed yet
// starts at a count of 1.
func NewAsset[T any](data *T) (*Asset[T], error) {
	t := reflect.TypeFor[*T]()
	if data == nil {
		return nil, errors.NilPointer(errors.PhaseAsset, t.String())
	}
	thing, _, err := acquire(t, data)
	if err != nil {
		return nil, err
	}
	return &Asset[T]{thing: thing, data: data}, nil
}

func (a *Asset[T]) Thing() *abi.Asset { return a.thing }
func (a *Asset[T]) Data() *T          { return a.data }

// Count returns the live reference count, 0 once destroyed.
func (a *Asset[T]) Count() int32 { return assets.Count(a.thing) }

// AddRef takes another native reference.
func (a *Asset[T]) AddRef() (int32, error) {
	return assets.Retain(a.thing)
}

// Release drops one native reference. Releasing more references than were
// taken fails with a double release error.
func (a *Asset[T]) Release() error {
	_, err := assets.Release(a.thing)
	if stderrors.Is(err, errors.ErrDoubleRelease) {
		err = errors.DoubleRelease(reflect.TypeFor[*T]().String(), a.thing.Handle)
		Logger().Error("asset released past zero", zap.Error(err))
	}
	return err
}

// ToScriptValue returns a script reference to the asset.
func (a *Asset[T]) ToScriptValue() (value.Value, error) {
	return value.Asset(a.thing)
}

// Global is a native object registered in the engine's global namespace
// under its passport name. Its count is fixed at 1.
type Global[T any] struct {
	thing *abi.Asset
	data  *T
	name  string
}

// NewGlobal registers data as a global.
func NewGlobal[T any](data *T) (*Global[T], error) {
	t := reflect.TypeFor[*T]()
	if data == nil {
		return nil, errors.NilPointer(errors.PhaseAsset, t.String())
	}
	if _, err := PassportOf(t); err != nil {
		return nil, err
	}

	thing, err := assets.InsertUncounted(classFor(strategyGlobal, t), t.String(), data)
	if err != nil {
		return nil, err
	}
	if err := sapi.SetGlobalAsset(thing); err != nil {
		assets.Revoke(thing)
		return nil, err
	}

	g := &Global[T]{thing: thing, data: data, name: NameOf(t)}
	Logger().Debug("global registered", zap.String("name", g.name), zap.Uint32("handle", thing.Handle))
	return g, nil
}

func (g *Global[T]) Thing() *abi.Asset { return g.thing }
func (g *Global[T]) Data() *T          { return g.data }
func (g *Global[T]) Name() string      { return g.name }

func (g *Global[T]) ToScriptValue() (value.Value, error) {
	return value.Asset(g.thing)
}

// Close removes the global from the engine and ends the slot.
func (g *Global[T]) Close() error {
	err := sapi.ReleaseGlobalAsset(g.thing)
	assets.Revoke(g.thing)
	return err
}

// Borrowed exposes a payload the caller keeps owning. After End, script
// access through outstanding references fails with an invalid handle error.
type Borrowed[T any] struct {
	thing *abi.Asset
	data  *T
}

// Lend exposes data without reference counting.
func Lend[T any](data *T) (*Borrowed[T], error) {
	t := reflect.TypeFor[*T]()
	if data == nil {
		return nil, errors.NilPointer(errors.PhaseAsset, t.String())
	}
	thing, err := assets.InsertUncounted(classFor(strategyBorrowed, t), t.String(), data)
	if err != nil {
		return nil, err
	}
	return &Borrowed[T]{thing: thing, data: data}, nil
}

func (b *Borrowed[T]) Thing() *abi.Asset { return b.thing }
func (b *Borrowed[T]) Data() *T          { return b.data }

func (b *Borrowed[T]) ToScriptValue() (value.Value, error) {
	return value.Asset(b.thing)
}

// End revokes the loan. It is safe to call more than once.
func (b *Borrowed[T]) End() {
	if _, ok := assets.Revoke(b.thing); ok {
		debugf("loan ended type=%s handle=%d", reflect.TypeFor[*T](), b.thing.Handle)
	}
}
