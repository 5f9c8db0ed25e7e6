// Package conv converts between native Go values and script values.
//
// ToValue and FromValue cover the primitive kinds, strings, byte slices,
// slices, arrays, maps, pointers and structs:
//
//	v, err := conv.ToValue([]int32{1, 2, 3})
//	defer v.Release()
//	back, err := conv.FromValue[[]int32](v)
//
// Narrow integers travel as Int32 and report an overflow when a stored value
// does not fit the target. uint32 is stored with two's complement
// reinterpretation. 64-bit integers travel as Int64. Maps are written in the
// order of their keys' string form so that output is stable.
//
// Types can take over their own conversion by implementing Marshaler and
// Unmarshaler. Higher layers that need to intercept whole families of types
// use an Encoder or Decoder with a Hook.
package conv
