package som

import (
	"go.uber.org/zap"

	"github.com/wippyai/script-bridge/abi"
	"github.com/wippyai/script-bridge/errors"
	"github.com/wippyai/script-bridge/value"
)

// guard runs fn, turning a panic into an error.
func guard(name string, fn func() (value.Value, error)) (v value.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			v.Release()
			v, err = value.Value{}, errors.Panic(name, r)
		}
	}()
	return fn()
}

// fail stores err as an error-string result and reports failure.
func fail(out *abi.Value, op, name string, err error) bool {
	Logger().Debug("thunk failed",
		zap.String("op", op),
		zap.String("name", name),
		zap.Error(err))
	if out != nil {
		value.ErrorResult(value.Ref(out), err)
	}
	return false
}

// succeed moves v into the engine's result slot.
func succeed(out *abi.Value, v value.Value) bool {
	r := value.Ref(out)
	r.Release()
	*r = v
	return true
}

func methodThunk(spec MethodSpec) abi.MethodFunc {
	return func(thing *abi.Asset, argc uint32, argv *abi.Value, result *abi.Value) bool {
		args := value.Args(argc, argv)
		if len(args) != spec.Params {
			return fail(result, "call", spec.Name, errors.ArgCount(spec.Name, spec.Params, len(args)))
		}
		v, err := guard(spec.Name, func() (value.Value, error) {
			return spec.Call(thing, args)
		})
		if err != nil {
			return fail(result, "call", spec.Name, err)
		}
		return succeed(result, v)
	}
}

func getterThunk(spec PropertySpec) abi.PropGetFunc {
	return func(thing *abi.Asset, out *abi.Value) bool {
		v, err := guard(spec.Name, func() (value.Value, error) {
			return spec.Get(thing)
		})
		if err != nil {
			return fail(out, "get", spec.Name, err)
		}
		return succeed(out, v)
	}
}

func setterThunk(spec PropertySpec) abi.PropSetFunc {
	return func(thing *abi.Asset, in *abi.Value) bool {
		_, err := guard(spec.Name, func() (value.Value, error) {
			return value.Value{}, spec.Set(thing, *value.Ref(in))
		})
		if err != nil {
			return fail(in, "set", spec.Name, err)
		}
		return true
	}
}

func itemGetThunk(thing *abi.Asset, key *abi.Value, out *abi.Value) bool {
	v, err := guard("item", func() (value.Value, error) {
		payload, err := payloadOf(thing)
		if err != nil {
			return value.Value{}, err
		}
		v, err := payload.(ItemGetter).SOMGetItem(*value.Ref(key))
		if err != nil {
			return value.Value{}, err
		}
		if v.IsUndefined() {
			return value.Nothing(), nil
		}
		return v, nil
	})
	if err != nil {
		return fail(out, "item", value.Ref(key).String(), err)
	}
	return succeed(out, v)
}

func itemSetThunk(thing *abi.Asset, key *abi.Value, val *abi.Value) bool {
	_, err := guard("item", func() (value.Value, error) {
		payload, err := payloadOf(thing)
		if err != nil {
			return value.Value{}, err
		}
		return value.Value{}, payload.(ItemSetter).SOMSetItem(*value.Ref(key), *value.Ref(val))
	})
	if err != nil {
		return fail(val, "item", value.Ref(key).String(), err)
	}
	return true
}

// itemNextThunk walks items by position; pos holds the next index.
func itemNextThunk(thing *abi.Asset, pos *abi.Value, key *abi.Value, val *abi.Value) bool {
	p := value.Ref(pos)
	i := 0
	if !p.IsUndefined() {
		n, err := p.AsInt32()
		if err != nil {
			return fail(val, "items", "", err)
		}
		i = int(n)
	}

	var k, v value.Value
	var ok bool
	_, err := guard("items", func() (value.Value, error) {
		payload, err := payloadOf(thing)
		if err != nil {
			return value.Value{}, err
		}
		k, v, ok, err = payload.(ItemEnumerator).SOMItemAt(i)
		return value.Value{}, err
	})
	if err != nil || !ok {
		k.Release()
		v.Release()
		if err != nil {
			return fail(val, "items", "", err)
		}
		return false
	}

	*p = value.Int32(int32(i + 1))
	succeed(key, k)
	succeed(val, v)
	return true
}
