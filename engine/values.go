package engine

import (
	"bytes"
	"math"
	"slices"

	"github.com/wippyai/script-bridge/abi"
)

func (e *Engine) valueInit(v *abi.Value) abi.Result {
	if v == nil {
		return abi.ResultBadParameter
	}
	*v = abi.Value{}
	return abi.ResultOK
}

func (e *Engine) valueClear(v *abi.Value) abi.Result {
	if v == nil {
		return abi.ResultBadParameter
	}
	return e.do(func(fin *finalizers) abi.Result {
		e.clear(v, fin)
		return abi.ResultOK
	})
}

func (e *Engine) valueCompare(a, b *abi.Value) abi.Result {
	if a == nil || b == nil {
		return abi.ResultBadParameter
	}
	return e.do(func(*finalizers) abi.Result {
		if e.equal(a, b) {
			return abi.ResultOKTrue
		}
		return abi.ResultOK
	})
}

func (e *Engine) equal(a, b *abi.Value) bool {
	if a.T != b.T {
		return false
	}
	switch a.T {
	case abi.TUndefined, abi.TNull:
		return true
	case abi.TBool, abi.TInt, abi.TBigInt:
		return a.D == b.D
	case abi.TFloat:
		return math.Float64frombits(a.D) == math.Float64frombits(b.D)
	}

	if a.D == b.D {
		return true
	}
	oa, ob := e.obj(a), e.obj(b)
	if oa == nil || ob == nil {
		return false
	}
	switch a.T {
	case abi.TString:
		return slices.Equal(oa.chars, ob.chars)
	case abi.TBytes:
		return bytes.Equal(oa.bytes, ob.bytes)
	case abi.TArray, abi.TMap:
		if len(oa.elems) != len(ob.elems) {
			return false
		}
		for i := range oa.keys {
			if !e.equal(&oa.keys[i], &ob.keys[i]) {
				return false
			}
		}
		for i := range oa.elems {
			if !e.equal(&oa.elems[i], &ob.elems[i]) {
				return false
			}
		}
		return true
	case abi.TAsset:
		return oa.asset == ob.asset
	}
	return false
}

func (e *Engine) valueCopy(dst, src *abi.Value) abi.Result {
	if dst == nil || src == nil {
		return abi.ResultBadParameter
	}
	return e.do(func(fin *finalizers) abi.Result {
		e.assign(dst, *src, fin)
		return abi.ResultOK
	})
}

func (e *Engine) valueIsolate(v *abi.Value) abi.Result {
	if v == nil {
		return abi.ResultBadParameter
	}
	return e.do(func(fin *finalizers) abi.Result {
		isolated := e.isolate(*v)
		e.clear(v, fin)
		*v = isolated
		return abi.ResultOK
	})
}

// isolate returns a new reference to a deep copy of v. Functors and assets
// are shared, not copied.
func (e *Engine) isolate(v abi.Value) abi.Value {
	o := e.obj(&v)
	if o == nil {
		return v
	}
	switch o.kind {
	case abi.TString:
		nv := e.alloc(&object{kind: abi.TString, chars: slices.Clone(o.chars)})
		nv.U = v.U
		return nv
	case abi.TBytes:
		nv := e.alloc(&object{kind: abi.TBytes, bytes: slices.Clone(o.bytes)})
		nv.U = v.U
		return nv
	case abi.TArray, abi.TMap:
		c := &object{kind: o.kind}
		if o.keys != nil {
			c.keys = make([]abi.Value, len(o.keys))
			for i := range o.keys {
				c.keys[i] = e.isolate(o.keys[i])
			}
		}
		c.elems = make([]abi.Value, len(o.elems))
		for i := range o.elems {
			c.elems[i] = e.isolate(o.elems[i])
		}
		nv := e.alloc(c)
		nv.U = v.U
		return nv
	}
	e.retain(&v)
	return v
}

func (e *Engine) valueType(v *abi.Value, t *abi.Type, u *uint32) abi.Result {
	if v == nil || t == nil || u == nil {
		return abi.ResultBadParameter
	}
	*t = v.T
	*u = v.U
	return abi.ResultOK
}

func (e *Engine) valueStringData(v *abi.Value, chars *[]uint16) abi.Result {
	if v == nil || chars == nil {
		return abi.ResultBadParameter
	}
	return e.do(func(*finalizers) abi.Result {
		if v.T != abi.TString {
			return abi.ResultIncompatibleType
		}
		o := e.obj(v)
		if o == nil {
			return abi.ResultBadParameter
		}
		*chars = o.chars
		return abi.ResultOK
	})
}

func (e *Engine) valueStringDataSet(v *abi.Value, chars []uint16, units uint32) abi.Result {
	if v == nil {
		return abi.ResultBadParameter
	}
	return e.do(func(fin *finalizers) abi.Result {
		e.clear(v, fin)
		*v = e.newString(chars, units)
		return abi.ResultOK
	})
}

func (e *Engine) newString(chars []uint16, units uint32) abi.Value {
	nv := e.alloc(&object{kind: abi.TString, chars: slices.Clone(chars)})
	nv.U = units
	return nv
}

func (e *Engine) valueIntData(v *abi.Value, out *int32) abi.Result {
	if v == nil || out == nil {
		return abi.ResultBadParameter
	}
	switch v.T {
	case abi.TBool, abi.TInt:
		*out = int32(uint32(v.D))
		return abi.ResultOK
	}
	return abi.ResultIncompatibleType
}

func (e *Engine) valueIntDataSet(v *abi.Value, data int32, t abi.Type, units uint32) abi.Result {
	if v == nil {
		return abi.ResultBadParameter
	}
	switch t {
	case abi.TUndefined, abi.TNull:
		data = 0
	case abi.TBool:
		if data != 0 {
			data = 1
		}
	case abi.TInt:
	default:
		return abi.ResultBadParameter
	}
	return e.do(func(fin *finalizers) abi.Result {
		e.clear(v, fin)
		*v = abi.Value{T: t, U: units, D: uint64(uint32(data))}
		return abi.ResultOK
	})
}

func (e *Engine) valueInt64Data(v *abi.Value, out *int64) abi.Result {
	if v == nil || out == nil {
		return abi.ResultBadParameter
	}
	if v.T != abi.TBigInt {
		return abi.ResultIncompatibleType
	}
	*out = int64(v.D)
	return abi.ResultOK
}

func (e *Engine) valueInt64DataSet(v *abi.Value, data int64, t abi.Type, units uint32) abi.Result {
	if v == nil || t != abi.TBigInt {
		return abi.ResultBadParameter
	}
	return e.do(func(fin *finalizers) abi.Result {
		e.clear(v, fin)
		*v = abi.Value{T: t, U: units, D: uint64(data)}
		return abi.ResultOK
	})
}

func (e *Engine) valueFloatData(v *abi.Value, out *float64) abi.Result {
	if v == nil || out == nil {
		return abi.ResultBadParameter
	}
	if v.T != abi.TFloat {
		return abi.ResultIncompatibleType
	}
	*out = math.Float64frombits(v.D)
	return abi.ResultOK
}

func (e *Engine) valueFloatDataSet(v *abi.Value, data float64, t abi.Type, units uint32) abi.Result {
	if v == nil || t != abi.TFloat {
		return abi.ResultBadParameter
	}
	return e.do(func(fin *finalizers) abi.Result {
		e.clear(v, fin)
		*v = abi.Value{T: t, U: units, D: math.Float64bits(data)}
		return abi.ResultOK
	})
}

func (e *Engine) valueBinaryData(v *abi.Value, out *[]byte) abi.Result {
	if v == nil || out == nil {
		return abi.ResultBadParameter
	}
	return e.do(func(*finalizers) abi.Result {
		if v.T != abi.TBytes {
			return abi.ResultIncompatibleType
		}
		o := e.obj(v)
		if o == nil {
			return abi.ResultBadParameter
		}
		*out = o.bytes
		return abi.ResultOK
	})
}

func (e *Engine) valueBinaryDataSet(v *abi.Value, data []byte, t abi.Type, units uint32) abi.Result {
	if v == nil || t != abi.TBytes {
		return abi.ResultBadParameter
	}
	return e.do(func(fin *finalizers) abi.Result {
		e.clear(v, fin)
		nv := e.alloc(&object{kind: abi.TBytes, bytes: slices.Clone(data)})
		nv.U = units
		*v = nv
		return abi.ResultOK
	})
}

func (e *Engine) valueAssetData(v *abi.Value, out **abi.Asset) abi.Result {
	if v == nil || out == nil {
		return abi.ResultBadParameter
	}
	return e.do(func(*finalizers) abi.Result {
		if v.T != abi.TAsset {
			return abi.ResultIncompatibleType
		}
		o := e.obj(v)
		if o == nil {
			return abi.ResultBadParameter
		}
		*out = o.asset
		return abi.ResultOK
	})
}

func (e *Engine) valueAssetDataSet(v *abi.Value, thing *abi.Asset) abi.Result {
	if v == nil || thing == nil || thing.Class == nil || thing.Class.AddRef == nil {
		return abi.ResultBadParameter
	}
	thing.Class.AddRef(thing)
	r := e.do(func(fin *finalizers) abi.Result {
		e.clear(v, fin)
		*v = e.alloc(&object{kind: abi.TAsset, asset: thing})
		return abi.ResultOK
	})
	if r != abi.ResultOK && thing.Class.Release != nil {
		thing.Class.Release(thing)
	}
	return r
}

func (e *Engine) valueElementsCount(v *abi.Value, n *int32) abi.Result {
	if v == nil || n == nil {
		return abi.ResultBadParameter
	}
	return e.do(func(*finalizers) abi.Result {
		switch v.T {
		case abi.TUndefined:
			*n = 0
			return abi.ResultOK
		case abi.TArray, abi.TMap:
			o := e.obj(v)
			if o == nil {
				return abi.ResultBadParameter
			}
			*n = int32(len(o.elems))
			return abi.ResultOK
		}
		return abi.ResultIncompatibleType
	})
}

func (e *Engine) container(v *abi.Value) (*object, abi.Result) {
	if v.T != abi.TArray && v.T != abi.TMap {
		return nil, abi.ResultIncompatibleType
	}
	o := e.obj(v)
	if o == nil {
		return nil, abi.ResultBadParameter
	}
	return o, abi.ResultOK
}

func (e *Engine) valueNthElementValue(v *abi.Value, n int32, out *abi.Value) abi.Result {
	if v == nil || out == nil {
		return abi.ResultBadParameter
	}
	return e.do(func(fin *finalizers) abi.Result {
		o, r := e.container(v)
		if r != abi.ResultOK {
			return r
		}
		if n < 0 || int(n) >= len(o.elems) {
			return abi.ResultBadParameter
		}
		e.assign(out, o.elems[n], fin)
		return abi.ResultOK
	})
}

func (e *Engine) valueNthElementValueSet(v *abi.Value, n int32, val *abi.Value) abi.Result {
	if v == nil || val == nil || n < 0 {
		return abi.ResultBadParameter
	}
	return e.do(func(fin *finalizers) abi.Result {
		o := e.obj(v)
		switch {
		case v.T == abi.TMap && o != nil && int(n) < len(o.elems):
		case v.T == abi.TArray && o != nil:
		default:
			// anything else turns into an array
			e.clear(v, fin)
			*v = e.alloc(&object{kind: abi.TArray})
			o = e.obj(v)
		}
		for len(o.elems) <= int(n) {
			o.elems = append(o.elems, abi.Value{})
		}
		e.assign(&o.elems[n], *val, fin)
		return abi.ResultOK
	})
}

func (e *Engine) valueNthElementKey(v *abi.Value, n int32, out *abi.Value) abi.Result {
	if v == nil || out == nil {
		return abi.ResultBadParameter
	}
	return e.do(func(fin *finalizers) abi.Result {
		if v.T != abi.TMap {
			return abi.ResultIncompatibleType
		}
		o := e.obj(v)
		if o == nil || n < 0 || int(n) >= len(o.keys) {
			return abi.ResultBadParameter
		}
		e.assign(out, o.keys[n], fin)
		return abi.ResultOK
	})
}

func (e *Engine) valueEnumElements(v *abi.Value, cb abi.KeyValueCallback, param any) abi.Result {
	if v == nil || cb == nil {
		return abi.ResultBadParameter
	}

	var keys, vals []abi.Value
	r := e.do(func(*finalizers) abi.Result {
		if v.T == abi.TUndefined {
			return abi.ResultOK
		}
		o, r := e.container(v)
		if r != abi.ResultOK {
			return r
		}
		vals = slices.Clone(o.elems)
		for i := range vals {
			e.retain(&vals[i])
		}
		if o.keys != nil {
			keys = slices.Clone(o.keys)
			for i := range keys {
				e.retain(&keys[i])
			}
		}
		return abi.ResultOK
	})
	if r != abi.ResultOK {
		return r
	}

	// callbacks run unlocked on a retained snapshot
	for i := range vals {
		var key abi.Value
		if keys != nil {
			key = keys[i]
		}
		if !cb(param, &key, &vals[i]) {
			break
		}
	}

	e.do(func(fin *finalizers) abi.Result {
		for i := range keys {
			e.drop(&keys[i], fin)
		}
		for i := range vals {
			e.drop(&vals[i], fin)
		}
		return abi.ResultOK
	})
	return abi.ResultOK
}

func (e *Engine) valueSetValueToKey(v *abi.Value, key, val *abi.Value) abi.Result {
	if v == nil || key == nil || val == nil {
		return abi.ResultBadParameter
	}
	return e.do(func(fin *finalizers) abi.Result {
		if v.T != abi.TMap {
			e.clear(v, fin)
			*v = e.alloc(&object{kind: abi.TMap, keys: []abi.Value{}})
		}
		o := e.obj(v)
		if o == nil {
			return abi.ResultBadParameter
		}
		for i := range o.keys {
			if e.equal(&o.keys[i], key) {
				e.assign(&o.elems[i], *val, fin)
				return abi.ResultOK
			}
		}
		k, nv := *key, *val
		e.retain(&k)
		e.retain(&nv)
		o.keys = append(o.keys, k)
		o.elems = append(o.elems, nv)
		return abi.ResultOK
	})
}

func (e *Engine) valueGetValueOfKey(v *abi.Value, key *abi.Value, out *abi.Value) abi.Result {
	if v == nil || key == nil || out == nil {
		return abi.ResultBadParameter
	}
	return e.do(func(fin *finalizers) abi.Result {
		if v.T != abi.TMap {
			return abi.ResultIncompatibleType
		}
		o := e.obj(v)
		if o == nil {
			return abi.ResultBadParameter
		}
		for i := range o.keys {
			if e.equal(&o.keys[i], key) {
				e.assign(out, o.elems[i], fin)
				return abi.ResultOK
			}
		}
		e.clear(out, fin)
		return abi.ResultOK
	})
}

func (e *Engine) valueToString(v *abi.Value, how abi.ToStringMode) abi.Result {
	if v == nil || how > abi.CvtXJSONLiteral {
		return abi.ResultBadParameter
	}
	return e.do(func(fin *finalizers) abi.Result {
		if v.T == abi.TString && how == abi.CvtSimple {
			return abi.ResultOK
		}
		chars := e.render(v, how)
		e.clear(v, fin)
		*v = e.alloc(&object{kind: abi.TString, chars: chars})
		return abi.ResultOK
	})
}

func (e *Engine) valueFromString(v *abi.Value, chars []uint16, how abi.ToStringMode) uint32 {
	if v == nil || how > abi.CvtXJSONLiteral {
		return uint32(len(chars))
	}

	unparsed := uint32(len(chars))
	e.do(func(fin *finalizers) abi.Result {
		if how == abi.CvtSimple {
			e.clear(v, fin)
			*v = e.newString(chars, abi.UTStringString)
			unparsed = 0
			return abi.ResultOK
		}

		p := &parser{e: e, src: chars, mode: how, fin: fin}
		parsed, ok := p.parse()
		e.clear(v, fin)
		if !ok {
			return abi.ResultOK
		}
		*v = parsed
		unparsed = uint32(len(chars) - p.pos)
		return abi.ResultOK
	})
	return unparsed
}

func (e *Engine) valueInvoke(v *abi.Value, this *abi.Value, argc uint32, argv *abi.Value, result *abi.Value, url string) abi.Result {
	if v == nil || result == nil {
		return abi.ResultBadParameter
	}

	var fn *functor
	callee := *v
	r := e.do(func(fin *finalizers) abi.Result {
		if v.T != abi.TFunction {
			return abi.ResultIncompatibleType
		}
		o := e.obj(v)
		if o == nil || o.fn == nil {
			return abi.ResultBadParameter
		}
		fn = o.fn
		// keep the functor alive for the duration of the call
		e.retain(&callee)
		e.clear(result, fin)
		return abi.ResultOK
	})
	if r != abi.ResultOK {
		return r
	}

	debugf("invoke functor this=%v argc=%d url=%q", this != nil, argc, url)
	fn.invoke(fn.tag, argc, argv, result)

	e.do(func(fin *finalizers) abi.Result {
		e.drop(&callee, fin)
		return abi.ResultOK
	})
	return abi.ResultOK
}

func (e *Engine) valueNativeFunctorSet(v *abi.Value, invoke abi.FunctorInvoke, release abi.FunctorRelease, tag any) abi.Result {
	if v == nil || invoke == nil {
		return abi.ResultBadParameter
	}
	return e.do(func(fin *finalizers) abi.Result {
		e.clear(v, fin)
		*v = e.alloc(&object{
			kind: abi.TFunction,
			fn:   &functor{invoke: invoke, release: release, tag: tag},
		})
		return abi.ResultOK
	})
}

func (e *Engine) valueIsNativeFunctor(v *abi.Value) bool {
	if v == nil {
		return false
	}
	var native bool
	e.do(func(*finalizers) abi.Result {
		o := e.obj(v)
		native = o != nil && o.fn != nil
		return abi.ResultOK
	})
	return native
}

func (e *Engine) atomValue(name string) abi.Atom {
	if name == "" {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return 0
	}
	if a, ok := e.atoms[name]; ok {
		return a
	}
	e.names = append(e.names, name)
	a := abi.Atom(len(e.names))
	e.atoms[name] = a
	return a
}

func (e *Engine) atomName(atom abi.Atom) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if atom == 0 || int(atom) > len(e.names) {
		return "", false
	}
	return e.names[atom-1], true
}

func (e *Engine) atomNameCB(atom abi.Atom, rcv func(name string)) bool {
	if rcv == nil {
		return false
	}
	name, ok := e.atomName(atom)
	if !ok {
		return false
	}
	rcv(name)
	return true
}
