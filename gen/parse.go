package gen

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/wippyai/script-bridge/conv"
	"github.com/wippyai/script-bridge/errors"
)

// Markers recognized in doc comments.
const (
	markerAsset  = "som:asset"
	markerModule = "som:module"
	markerFunc   = "som:func"
	markerSkip   = "som:skip"
	markerName   = "som:name"
)

// OutputSuffix is appended to a source file's base name to form the
// generated file name.
const OutputSuffix = "_som.go"

// FuncsFile holds the provider for //som:func functions of a package.
const FuncsFile = "funcs" + OutputSuffix

// Sources lists the Go files of dir the generator reads: no tests, no
// previous output.
func Sources(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseGenerate, errors.KindNotFound, err, "read "+dir)
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") ||
			strings.HasSuffix(name, "_test.go") || strings.HasSuffix(name, OutputSuffix) {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	return files, nil
}

// Parse reads every source file of dir concurrently and collects the
// annotated declarations.
func Parse(ctx context.Context, dir string) (*Package, error) {
	paths, err := Sources(dir)
	if err != nil {
		return nil, err
	}

	fset := token.NewFileSet()
	asts := make([]*ast.File, len(paths))
	g, _ := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			f, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
			if err != nil {
				return errors.Wrap(errors.PhaseGenerate, errors.KindInvalidData, err, "parse "+path)
			}
			asts[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pkg := &Package{Dir: dir}
	if len(asts) == 0 {
		return pkg, nil
	}
	pkg.Name = asts[0].Name.Name

	// Methods may live in any file of the package.
	methods := map[string][]*ast.FuncDecl{}
	for _, f := range asts {
		for _, decl := range f.Decls {
			fd, ok := decl.(*ast.FuncDecl)
			if !ok || fd.Recv == nil || len(fd.Recv.List) != 1 {
				continue
			}
			if recv, _ := receiver(fd); recv != "" {
				methods[recv] = append(methods[recv], fd)
			}
		}
	}

	for i, f := range asts {
		if f.Name.Name != pkg.Name {
			return nil, errors.InvalidInput(errors.PhaseGenerate,
				fmt.Sprintf("%s: package %s, want %s", paths[i], f.Name.Name, pkg.Name))
		}
		file := &File{Path: paths[i]}
		if err := collect(pkg, file, f, methods); err != nil {
			return nil, err
		}
		if len(file.Assets) > 0 || len(file.Modules) > 0 {
			pkg.Files = append(pkg.Files, file)
		}
	}
	debugf("parsed dir=%s files=%d annotated=%d funcs=%d", dir, len(paths), len(pkg.Files), len(pkg.Funcs))
	return pkg, nil
}

func collect(pkg *Package, file *File, f *ast.File, methods map[string][]*ast.FuncDecl) error {
	for _, decl := range f.Decls {
		switch d := decl.(type) {
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			for _, spec := range d.Specs {
				ts := spec.(*ast.TypeSpec)
				doc := ts.Doc
				if doc == nil && len(d.Specs) == 1 {
					doc = d.Doc
				}
				if err := collectType(file, ts, doc, methods[ts.Name.Name]); err != nil {
					return err
				}
			}
		case *ast.FuncDecl:
			if d.Recv != nil {
				continue
			}
			if _, ok := marker(d.Doc, markerFunc); !ok {
				continue
			}
			m, err := method(d)
			if err != nil {
				return err
			}
			if pkg.FuncsAt == "" {
				pkg.FuncsAt = file.Path
			}
			pkg.Funcs = append(pkg.Funcs, m)
		}
	}
	return nil
}

func collectType(file *File, ts *ast.TypeSpec, doc *ast.CommentGroup, decls []*ast.FuncDecl) error {
	name := ts.Name.Name
	arg, isAsset := marker(doc, markerAsset)
	_, isModule := marker(doc, markerModule)
	if !isAsset && !isModule {
		return nil
	}
	st, ok := ts.Type.(*ast.StructType)
	if !ok || ts.TypeParams != nil {
		return errors.Unsupported(errors.PhaseGenerate, "annotated type "+name+" must be a non-generic struct")
	}

	exposed, declared, pointer, err := exposedMethods(decls)
	if err != nil {
		return err
	}

	if isModule {
		file.Modules = append(file.Modules, &Module{
			Name:     name,
			Pointer:  pointer,
			Methods:  exposed,
			Declared: declared["SOMFunctions"],
		})
		return nil
	}

	fields, err := taggedFields(name, st)
	if err != nil {
		return err
	}
	file.Assets = append(file.Assets, &Asset{
		Name:       name,
		ScriptName: arg,
		Fields:     fields,
		Methods:    exposed,
		Declared:   declared,
	})
	return nil
}

// lifecycle methods are never exposed.
var lifecycle = map[string]bool{"Drop": true, "Close": true, "Namespace": true}

func exposedMethods(decls []*ast.FuncDecl) (exposed []*Method, declared map[string]bool, pointer bool, err error) {
	declared = map[string]bool{}
	for _, fd := range decls {
		name := fd.Name.Name
		if strings.HasPrefix(name, "SOM") {
			declared[name] = true
			continue
		}
		if !fd.Name.IsExported() || lifecycle[name] {
			continue
		}
		if _, skip := marker(fd.Doc, markerSkip); skip {
			continue
		}
		if _, ptr := receiver(fd); ptr {
			pointer = true
		}
		m, err := method(fd)
		if err != nil {
			return nil, nil, false, err
		}
		exposed = append(exposed, m)
	}
	slices.SortStableFunc(exposed, func(a, b *Method) int { return strings.Compare(a.GoName, b.GoName) })
	return exposed, declared, pointer, nil
}

func taggedFields(typeName string, st *ast.StructType) ([]*Field, error) {
	var fields []*Field
	seen := map[string]bool{}
	for _, f := range st.Fields.List {
		if f.Tag == nil {
			continue
		}
		tag, ok := reflect.StructTag(strings.Trim(f.Tag.Value, "`")).Lookup("som")
		if !ok || tag == "-" {
			continue
		}
		if len(f.Names) != 1 {
			return nil, errors.Unsupported(errors.PhaseGenerate,
				fmt.Sprintf("%s: som tag on an embedded or multi-name field", typeName))
		}
		if !f.Names[0].IsExported() {
			return nil, errors.InvalidInput(errors.PhaseGenerate,
				fmt.Sprintf("%s.%s: som tag on an unexported field", typeName, f.Names[0].Name))
		}

		name, opts, _ := strings.Cut(tag, ",")
		if name == "" {
			name = conv.LowerCamel(f.Names[0].Name)
		}
		if seen[name] {
			return nil, errors.InvalidInput(errors.PhaseGenerate,
				fmt.Sprintf("%s: duplicate property %q", typeName, name))
		}
		seen[name] = true

		fields = append(fields, &Field{
			GoName:     f.Names[0].Name,
			ScriptName: name,
			Type:       types.ExprString(f.Type),
			Kind:       convKind(f.Type),
			ReadOnly:   opts == "readonly",
		})
	}
	return fields, nil
}

func method(fd *ast.FuncDecl) (*Method, error) {
	name := fd.Name.Name
	m := &Method{GoName: name, ScriptName: conv.LowerCamel(name)}
	if alias, ok := marker(fd.Doc, markerName); ok && alias != "" {
		m.ScriptName = alias
	}

	ft := fd.Type
	if ft.TypeParams != nil {
		return nil, errors.Unsupported(errors.PhaseGenerate, "generic function "+name)
	}
	for _, field := range ft.Params.List {
		if _, variadic := field.Type.(*ast.Ellipsis); variadic {
			return nil, errors.Unsupported(errors.PhaseGenerate, "variadic function "+name)
		}
		typ := types.ExprString(field.Type)
		kind := convKind(field.Type)
		if len(field.Names) == 0 {
			m.Params = append(m.Params, &Param{Type: typ, Kind: kind})
			continue
		}
		for _, n := range field.Names {
			m.Params = append(m.Params, &Param{Name: n.Name, Type: typ, Kind: kind})
		}
	}
	for i, p := range m.Params {
		if p.Name == "" || p.Name == "_" {
			p.Name = fmt.Sprintf("arg%d", i)
		}
	}

	var results []ast.Expr
	if ft.Results != nil {
		for _, field := range ft.Results.List {
			n := max(len(field.Names), 1)
			for range n {
				results = append(results, field.Type)
			}
		}
	}
	switch len(results) {
	case 0:
	case 1:
		if isError(results[0]) {
			m.Results.Error = true
		} else {
			m.Results.Type = types.ExprString(results[0])
		}
	case 2:
		if !isError(results[1]) {
			return nil, errors.Unsupported(errors.PhaseGenerate, "second result of "+name+" must be error")
		}
		m.Results.Type = types.ExprString(results[0])
		m.Results.Error = true
	default:
		return nil, errors.Unsupported(errors.PhaseGenerate, "more than two results in "+name)
	}
	m.Results.RawValue = m.Results.Type == "value.Value"
	return m, nil
}

// marker finds "//som:xxx [arg]" in doc.
func marker(doc *ast.CommentGroup, name string) (string, bool) {
	if doc == nil {
		return "", false
	}
	for _, c := range doc.List {
		text := strings.TrimSpace(strings.TrimPrefix(c.Text, "//"))
		if !strings.HasPrefix(text, name) {
			continue
		}
		rest := text[len(name):]
		if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
			continue
		}
		return strings.TrimSpace(rest), true
	}
	return "", false
}

func receiver(fd *ast.FuncDecl) (name string, pointer bool) {
	t := fd.Recv.List[0].Type
	if star, ok := t.(*ast.StarExpr); ok {
		t, pointer = star.X, true
	}
	if id, ok := t.(*ast.Ident); ok {
		return id.Name, pointer
	}
	return "", false
}

func convKind(t ast.Expr) ConvKind {
	if id, ok := t.(*ast.Ident); ok && id.Name == "string" {
		return ConvString
	}
	if star, ok := t.(*ast.StarExpr); ok {
		switch x := star.X.(type) {
		case *ast.Ident:
			if builtin[x.Name] {
				return ConvGeneric
			}
			return ConvAsset
		case *ast.SelectorExpr:
			return ConvAsset
		}
	}
	return ConvGeneric
}

var builtin = map[string]bool{
	"bool": true, "string": true, "byte": true, "rune": true,
	"int": true, "int8": true, "int16": true, "int32": true, "int64": true,
	"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true,
	"float32": true, "float64": true, "any": true,
}

func isError(t ast.Expr) bool {
	id, ok := t.(*ast.Ident)
	return ok && id.Name == "error"
}
