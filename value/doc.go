// Package value provides Value, an owned reference to a script engine value.
//
// Scalars (undefined, null, bool, int32, int64, float64) are stored inline and
// never touch the engine. Strings, byte blobs, arrays, maps, functions and
// assets are engine heap objects: every constructor hands the caller one
// reference and Release gives it back. Copy makes an independent reference to
// the same content.
//
//	arr, err := value.Array(value.Int32(1), value.Bool(true))
//	if err != nil {
//		return err
//	}
//	defer arr.Release()
//	fmt.Println(arr) // [1,true]
//
// Value has the same memory layout as abi.Value, so engine argument arrays
// can be viewed as []Value without copying (see Args).
package value
