package som

import (
	"reflect"
	"sync"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/script-bridge/abi"
	"github.com/wippyai/script-bridge/errors"
	"github.com/wippyai/script-bridge/resource"
)

// assets holds the payload of every asset handed to the engine.
var assets = resource.NewTable()

// Assets returns the process-wide asset table, for observers and hosts that
// address assets by handle.
func Assets() *resource.Table {
	return assets
}

func payloadOf(thing *abi.Asset) (any, error) {
	payload, ok := assets.Lookup(thing)
	if !ok {
		h := uint32(0)
		if thing != nil {
			h = thing.Handle
		}
		return nil, errors.InvalidHandle(errors.PhaseAsset, h)
	}
	return payload, nil
}

// Ref returns the typed payload behind thing.
func Ref[T any](thing *abi.Asset) (*T, error) {
	payload, err := payloadOf(thing)
	if err != nil {
		return nil, err
	}
	p, ok := payload.(*T)
	if !ok {
		return nil, errors.IncompatibleType(errors.PhaseAsset, reflect.TypeFor[*T]().String(), reflect.TypeOf(payload).String())
	}
	return p, nil
}

type strategy uint8

const (
	strategyCounted strategy = iota
	strategyGlobal
	strategyBorrowed
)

func (s strategy) String() string {
	switch s {
	case strategyCounted:
		return "counted"
	case strategyGlobal:
		return "global"
	case strategyBorrowed:
		return "borrowed"
	}
	return "unknown"
}

type classKey struct {
	s strategy
	t reflect.Type
}

var classes sync.Map // classKey -> *abi.AssetClass

// classFor returns the shared class descriptor for (s, t).
func classFor(s strategy, t reflect.Type) *abi.AssetClass {
	key := classKey{s: s, t: t}
	if c, ok := classes.Load(key); ok {
		return c.(*abi.AssetClass)
	}

	c := &abi.AssetClass{
		GetInterface: func(*abi.Asset, string, *unsafe.Pointer) bool { return false },
		GetPassport: func(*abi.Asset) *abi.Passport {
			p, err := PassportOf(t)
			if err != nil {
				return nil
			}
			return p
		},
	}

	switch s {
	case strategyCounted:
		c.AddRef = func(thing *abi.Asset) int32 {
			n, err := assets.Retain(thing)
			if err != nil {
				Logger().Warn("add_ref on dead asset", zap.String("type", t.String()), zap.Error(err))
			}
			return n
		}
		c.Release = func(thing *abi.Asset) int32 {
			n, err := assets.Release(thing)
			if err != nil {
				Logger().Error("asset released past zero",
					zap.String("type", t.String()),
					zap.Uint32("handle", thing.Handle),
					zap.Error(err))
			}
			return n
		}
	default:
		// lifetime is owned outside the engine
		c.AddRef = func(*abi.Asset) int32 { return 1 }
		c.Release = func(*abi.Asset) int32 { return 1 }
	}

	actual, _ := classes.LoadOrStore(key, c)
	return actual.(*abi.AssetClass)
}
