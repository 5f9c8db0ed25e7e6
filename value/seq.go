package value

import "iter"

// ArrayOf builds an array from seq, converting each element with conv.
func ArrayOf[T any](seq iter.Seq[T], conv func(T) (Value, error)) (Value, error) {
	arr, err := Array()
	if err != nil {
		return Value{}, err
	}
	for item := range seq {
		v, err := conv(item)
		if err != nil {
			arr.Release()
			return Value{}, err
		}
		err = arr.Append(v)
		v.Release()
		if err != nil {
			arr.Release()
			return Value{}, err
		}
	}
	return arr, nil
}

// MapOf builds a map from seq, converting keys and values with the given
// functions. Pairs are stored in iteration order.
func MapOf[K, V any](seq iter.Seq2[K, V], key func(K) (Value, error), val func(V) (Value, error)) (Value, error) {
	m, err := Map()
	if err != nil {
		return Value{}, err
	}
	for k, e := range seq {
		kv, err := key(k)
		if err != nil {
			m.Release()
			return Value{}, err
		}
		ev, err := val(e)
		if err != nil {
			kv.Release()
			m.Release()
			return Value{}, err
		}
		err = m.Set(kv, ev)
		kv.Release()
		ev.Release()
		if err != nil {
			m.Release()
			return Value{}, err
		}
	}
	return m, nil
}

// Elements yields borrowed elements of an array or map. Iteration errors
// are dropped; use Enumerate to observe them.
func (v Value) Elements() iter.Seq2[*Value, *Value] {
	return func(yield func(*Value, *Value) bool) {
		_ = v.Enumerate(yield)
	}
}
