package wasmhost

import (
	"github.com/tetratelabs/wazero/api"
)

// guestBuilder assembles a core module that imports host functions, owns
// one page of exported memory and re-exports each import under its own
// name through a forwarding body.
type guestBuilder struct {
	module string
	funcs  []guestFunc
}

type guestFunc struct {
	name    string
	params  []api.ValueType
	results []api.ValueType
}

func newGuestBuilder(module string) *guestBuilder {
	return &guestBuilder{module: module}
}

func (b *guestBuilder) addFunc(name string, params, results []api.ValueType) {
	b.funcs = append(b.funcs, guestFunc{name: name, params: params, results: results})
}

func (b *guestBuilder) build() []byte {
	wasm := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	wasm = appendSection(wasm, 0x01, b.typeSection())
	wasm = appendSection(wasm, 0x02, b.importSection())
	wasm = appendSection(wasm, 0x03, b.funcSection())
	wasm = appendSection(wasm, 0x05, []byte{0x01, 0x00, 0x01})
	wasm = appendSection(wasm, 0x07, b.exportSection())
	wasm = appendSection(wasm, 0x0a, b.codeSection())
	return wasm
}

func appendSection(wasm []byte, id byte, section []byte) []byte {
	wasm = append(wasm, id)
	wasm = append(wasm, uleb(uint32(len(section)))...)
	return append(wasm, section...)
}

func appendName(buf []byte, name string) []byte {
	buf = append(buf, uleb(uint32(len(name)))...)
	return append(buf, name...)
}

func (b *guestBuilder) typeSection() []byte {
	section := uleb(uint32(len(b.funcs)))
	for _, f := range b.funcs {
		section = append(section, 0x60)
		section = append(section, uleb(uint32(len(f.params)))...)
		for _, t := range f.params {
			section = append(section, valType(t))
		}
		section = append(section, uleb(uint32(len(f.results)))...)
		for _, t := range f.results {
			section = append(section, valType(t))
		}
	}
	return section
}

func (b *guestBuilder) importSection() []byte {
	section := uleb(uint32(len(b.funcs)))
	for i, f := range b.funcs {
		section = appendName(section, b.module)
		section = appendName(section, f.name)
		section = append(section, 0x00)
		section = append(section, uleb(uint32(i))...)
	}
	return section
}

func (b *guestBuilder) funcSection() []byte {
	section := uleb(uint32(len(b.funcs)))
	for i := range b.funcs {
		section = append(section, uleb(uint32(i))...)
	}
	return section
}

func (b *guestBuilder) exportSection() []byte {
	section := uleb(uint32(len(b.funcs) + 1))
	section = appendName(section, "memory")
	section = append(section, 0x02, 0x00)
	for i, f := range b.funcs {
		section = appendName(section, f.name)
		section = append(section, 0x00)
		section = append(section, uleb(uint32(len(b.funcs)+i))...)
	}
	return section
}

func (b *guestBuilder) codeSection() []byte {
	section := uleb(uint32(len(b.funcs)))
	for i, f := range b.funcs {
		body := []byte{0x00}
		for p := range f.params {
			body = append(body, 0x20)
			body = append(body, uleb(uint32(p))...)
		}
		body = append(body, 0x10)
		body = append(body, uleb(uint32(i))...)
		body = append(body, 0x0b)

		section = append(section, uleb(uint32(len(body)))...)
		section = append(section, body...)
	}
	return section
}

func uleb(v uint32) []byte {
	var out []byte
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			c |= 0x80
		}
		out = append(out, c)
		if v == 0 {
			return out
		}
	}
}

func valType(t api.ValueType) byte {
	switch t {
	case api.ValueTypeI64:
		return 0x7e
	case api.ValueTypeF32:
		return 0x7d
	case api.ValueTypeF64:
		return 0x7c
	default:
		return 0x7f
	}
}
