package runtime

import (
	"github.com/wippyai/script-bridge/errors"
	"github.com/wippyai/script-bridge/xmod"
)

// Host is the interface for struct-based native modules.
// All exported methods (except Namespace) are registered as module
// functions; implement xmod.ExplicitRegistrar to choose names instead.
type Host interface {
	// Namespace returns the module name used for qualified calls
	// ("native.sum").
	Namespace() string
}

func registerHost(reg *xmod.Registry, h Host) error {
	if h == nil {
		return errors.NilPointer(errors.PhaseModule, "runtime.Host")
	}
	ns := h.Namespace()
	if ns == "" {
		return errors.InvalidInput(errors.PhaseModule, "namespace cannot be empty")
	}

	funcs, err := xmod.Reflect(h)
	if err != nil {
		return errors.Registration(errors.PhaseModule, ns, "", err)
	}
	return reg.AddModule(ns, funcs)
}
