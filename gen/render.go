package gen

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"golang.org/x/tools/imports"

	"github.com/wippyai/script-bridge/errors"
)

//go:embed som.tmpl
var templateText string

var tmpl = template.Must(template.New("som").Funcs(template.FuncMap{
	"decode":  decode,
	"argList": argList,
	"bind":    bind,
}).Parse(templateText))

// Output is one generated file.
type Output struct {
	Path   string
	Source []byte
}

type fileData struct {
	Package string
	Assets  []*Asset
	Modules []*Module
	Funcs   []*Func
}

type bodyData struct {
	Prefix string
	M      *Method
}

func bind(prefix string, m *Method) bodyData {
	return bodyData{Prefix: prefix, M: m}
}

func decode(kind ConvKind, typ, src string) string {
	switch kind {
	case ConvString:
		return fmt.Sprintf("conv.AsString(%s)", src)
	case ConvAsset:
		return fmt.Sprintf("som.FromValue[%s](%s)", typ, src)
	default:
		return fmt.Sprintf("conv.FromValue[%s](%s)", typ, src)
	}
}

func argList(m *Method) string {
	args := make([]string, len(m.Params))
	for i := range m.Params {
		args[i] = fmt.Sprintf("a%d", i)
	}
	return strings.Join(args, ", ")
}

// render executes the template and formats the result the way goimports
// would, dropping imports the file does not use.
func render(path string, data fileData) (Output, error) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "file", data); err != nil {
		return Output{}, errors.Wrap(errors.PhaseGenerate, errors.KindInvalidData, err, "execute template for "+path)
	}
	src, err := imports.Process(path, buf.Bytes(), nil)
	if err != nil {
		debugf("unformatted output path=%s\n%s", path, buf.String())
		return Output{}, errors.Wrap(errors.PhaseGenerate, errors.KindInvalidData, err, "format "+path)
	}
	return Output{Path: path, Source: src}, nil
}
