// Package sapi holds the engine API table the bridge is currently bound to
// and exposes each entry point as a checked call.
//
// A nil table or a nil entry point yields an api_unavailable error naming the
// entry point; engine result codes are mapped onto the bridge error taxonomy.
package sapi

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/script-bridge/abi"
	"github.com/wippyai/script-bridge/errors"
)

var current atomic.Pointer[abi.API]

// Load binds the bridge to api. Partial tables are accepted; calls to
// missing entry points fail individually.
func Load(api *abi.API) error {
	if api == nil {
		return errors.InvalidInput(errors.PhaseEngine, "api table is nil")
	}
	if api.Version < abi.Version {
		Logger().Warn("engine API older than bridge",
			zap.Uint32("engine", api.Version),
			zap.Uint32("bridge", abi.Version))
	}
	if missing := api.Missing(); len(missing) > 0 {
		Logger().Warn("engine API is missing entry points", zap.Strings("missing", missing))
	}
	current.Store(api)
	Logger().Debug("engine API loaded", zap.Uint32("version", api.Version))
	return nil
}

// Unload detaches the bridge from the current table.
func Unload() {
	current.Store(nil)
}

// Current returns the bound table.
func Current() (*abi.API, error) {
	a := current.Load()
	if a == nil {
		return nil, errors.APIUnavailable("API")
	}
	return a, nil
}

// Check reports every entry point the bound table lacks.
func Check() error {
	a, err := Current()
	if err != nil {
		return err
	}
	if missing := a.Missing(); len(missing) > 0 {
		return &errors.MissingEntryPointsError{Version: a.Version, EntryPoints: missing}
	}
	return nil
}

func table() *abi.API {
	return current.Load()
}

func result(entry string, r abi.Result) error {
	switch r {
	case abi.ResultOK, abi.ResultOKTrue:
		return nil
	case abi.ResultIncompatibleType:
		return errors.New(errors.PhaseValue, errors.KindIncompatibleType).Name(entry).Build()
	}
	return errors.APIFailure(entry, int32(r))
}
