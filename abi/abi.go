package abi

import "unsafe"

// Version is the ABI revision this bridge is written against.
const Version uint32 = 1

// Type is the primary tag of a value slot.
type Type uint32

const (
	TUndefined Type = 0
	TNull      Type = 1
	TBool      Type = 2
	TInt       Type = 3
	TFloat     Type = 4
	TString    Type = 5
	TBigInt    Type = 7 // 64-bit integer
	TArray     Type = 9
	TMap       Type = 10
	TFunction  Type = 11
	TBytes     Type = 12
	TAsset     Type = 21
)

var typeNames = map[Type]string{
	TUndefined: "undefined",
	TNull:      "null",
	TBool:      "bool",
	TInt:       "int",
	TFloat:     "float",
	TString:    "string",
	TBigInt:    "bigint",
	TArray:     "array",
	TMap:       "map",
	TFunction:  "function",
	TBytes:     "bytes",
	TAsset:     "asset",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "unknown"
}

// Unit sub-tags. They never change the bit layout of a slot.
const (
	UTNone uint32 = 0

	// TUndefined
	UTNothing uint32 = 1

	// TString
	UTStringString uint32 = 0
	UTStringError  uint32 = 1
	UTStringSecure uint32 = 2
	UTStringSymbol uint32 = 0xffff
)

// Value is the raw engine value slot: a type tag, a unit sub-tag and a
// 64-bit payload that holds scalars inline or a heap reference.
type Value struct {
	T Type
	U uint32
	D uint64
}

// Result is the status code returned by value entry points.
type Result int32

const (
	ResultOKTrue           Result = -1
	ResultOK               Result = 0
	ResultBadParameter     Result = 1
	ResultIncompatibleType Result = 2
)

// ToStringMode selects the rendering used by ValueToString and the grammar
// used by ValueFromString.
type ToStringMode uint32

const (
	CvtSimple       ToStringMode = 0 // strings verbatim, best effort for the rest
	CvtJSONLiteral  ToStringMode = 1
	CvtJSONMap      ToStringMode = 2 // map contents without surrounding braces
	CvtXJSONLiteral ToStringMode = 3 // JSON plus undefined, NaN, bare keys
)

// Atom is an interned name. Zero is never a valid atom.
type Atom uint64

// Asset is the header every native object exposed to the engine carries.
// The engine only ever sees *Asset; Handle locates the typed payload on the
// native side.
type Asset struct {
	Class  *AssetClass
	Handle uint32
}

// AssetClass is the per-type lifetime and introspection record.
type AssetClass struct {
	AddRef       func(thing *Asset) int32
	Release      func(thing *Asset) int32
	GetInterface func(thing *Asset, name string, out *unsafe.Pointer) bool
	GetPassport  func(thing *Asset) *Passport
}

// PassportFlags describe how the engine treats instances.
type PassportFlags uint64

const (
	SealedObject     PassportFlags = 0
	ExtendableObject PassportFlags = 1
)

// Thunk signatures. A thunk returning false may leave an error string
// (UTStringError) in its last value slot to describe the failure; for
// ItemNextFunc that distinguishes a failure from the end of iteration.
type (
	MethodFunc   func(thing *Asset, argc uint32, argv *Value, result *Value) bool
	PropGetFunc  func(thing *Asset, out *Value) bool
	PropSetFunc  func(thing *Asset, in *Value) bool
	ItemGetFunc  func(thing *Asset, key *Value, out *Value) bool
	ItemSetFunc  func(thing *Asset, key *Value, val *Value) bool
	ItemNextFunc func(thing *Asset, pos *Value, key *Value, val *Value) bool
)

// PropertyDef binds a name to an accessor pair. Setter may be nil for
// read-only properties.
type PropertyDef struct {
	Name   Atom
	Getter PropGetFunc
	Setter PropSetFunc
}

// MethodDef binds a name to a method thunk declaring Params arguments.
type MethodDef struct {
	Name   Atom
	Params uint32
	Func   MethodFunc
}

// Passport is the capability manifest of one asset type. Once handed to the
// engine it is never mutated or retracted.
type Passport struct {
	Flags      PassportFlags
	Name       Atom
	Properties []PropertyDef
	Methods    []MethodDef
	ItemGetter ItemGetFunc
	ItemSetter ItemSetFunc
	ItemNext   ItemNextFunc
}

// Native functor callbacks. Tag is the native context registered with the functor.
type (
	FunctorInvoke  func(tag any, argc uint32, argv *Value, result *Value)
	FunctorRelease func(tag any)
)

// KeyValueCallback is called per element by ValueEnumElements. Returning
// false stops the enumeration.
type KeyValueCallback func(param any, key *Value, val *Value) bool

// Args reinterprets a raw argument pointer and count as a slice sharing the
// engine's memory.
func Args(argc uint32, argv *Value) []Value {
	if argc == 0 || argv == nil {
		return nil
	}
	return unsafe.Slice(argv, argc)
}

// ArgsPtr returns the raw pointer form of an argument slice.
func ArgsPtr(args []Value) (uint32, *Value) {
	if len(args) == 0 {
		return 0, nil
	}
	return uint32(len(args)), &args[0]
}
