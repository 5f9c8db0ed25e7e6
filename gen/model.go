package gen

// Package is everything the generator found in one directory.
type Package struct {
	Name    string
	Dir     string
	Files   []*File
	Funcs   []*Func
	FuncsAt string // file that declares the first //som:func
}

// File groups the annotated declarations of one source file.
type File struct {
	Path    string
	Assets  []*Asset
	Modules []*Module
}

// Asset is a struct type marked //som:asset.
type Asset struct {
	Name       string
	ScriptName string // empty keeps the Go type name
	Fields     []*Field
	Methods    []*Method

	// Declared reports SOM* methods written by hand; the generator leaves
	// those alone.
	Declared map[string]bool
}

// Field is a struct field carrying a som tag.
type Field struct {
	GoName     string
	ScriptName string
	Type       string
	Kind       ConvKind
	ReadOnly   bool
}

// Module is a struct type marked //som:module.
type Module struct {
	Name     string
	Pointer  bool // some method has a pointer receiver
	Methods  []*Method
	Declared bool // SOMFunctions written by hand
}

// Method is an exposed method or free function.
type Method struct {
	GoName     string
	ScriptName string
	Params     []*Param
	Results    Results
}

// Func is a top-level function marked //som:func.
type Func = Method

// Param is one non-receiver parameter.
type Param struct {
	Name string
	Type string
	Kind ConvKind
}

// ConvKind selects the conversion statement emitted for a parameter.
type ConvKind int

const (
	ConvGeneric ConvKind = iota // conv.FromValue[T]
	ConvString                  // conv.AsString
	ConvAsset                   // som.FromValue[T], for asset pointers
)

// Results describes what a method returns.
type Results struct {
	// Type is empty when the method returns nothing but an optional error.
	Type     string
	Error    bool
	RawValue bool
}

// Arity is the declared non-receiver parameter count.
func (m *Method) Arity() int { return len(m.Params) }
