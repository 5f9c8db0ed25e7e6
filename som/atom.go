package som

import (
	"github.com/wippyai/script-bridge/abi"
	"github.com/wippyai/script-bridge/sapi"
)

// Atom is a name interned by the loaded engine.
type Atom abi.Atom

// Intern returns the atom for name.
func Intern(name string) (Atom, error) {
	a, err := sapi.AtomValue(name)
	return Atom(a), err
}

// Name reads the atom's name back from the engine.
func (a Atom) Name() (string, error) {
	return sapi.AtomName(abi.Atom(a))
}
