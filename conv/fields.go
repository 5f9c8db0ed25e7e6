package conv

import (
	"reflect"
	"strings"
	"sync"
	"unicode"
)

// structField is one exported field exchanged with script.
type structField struct {
	name  string
	index []int
}

var fieldCache sync.Map // reflect.Type -> []structField

// fieldsOf lists the exported fields of a struct type. A `som:"name"` tag
// renames a field, `som:"-"` hides it, untagged fields use lowerCamel names.
func fieldsOf(t reflect.Type) []structField {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.([]structField)
	}

	var fields []structField
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Tag.Get("som")
		if name == "-" {
			continue
		}
		if name == "" {
			name = LowerCamel(f.Name)
		}
		fields = append(fields, structField{name: name, index: f.Index})
	}

	actual, _ := fieldCache.LoadOrStore(t, fields)
	return actual.([]structField)
}

// LowerCamel converts a Go identifier to its script name:
// "Name" -> "name", "HTTPServer" -> "httpServer", "ID" -> "id".
func LowerCamel(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if !unicode.IsUpper(r) {
			b.WriteString(string(runes[i:]))
			break
		}
		// keep the last capital of an acronym when a lowercase letter follows
		if i > 0 && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
			b.WriteString(string(runes[i:]))
			break
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
