package engine

import (
	"encoding/base64"
	"math"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/wippyai/script-bridge/abi"
)

// render prints v in the given mode. Called with the mutex held.
func (e *Engine) render(v *abi.Value, how abi.ToStringMode) []uint16 {
	var b strings.Builder
	e.write(&b, v, how, true)
	return utf16.Encode([]rune(b.String()))
}

// text returns the Simple rendering of v as a Go string. Called with the
// mutex held.
func (e *Engine) text(v *abi.Value) string {
	var b strings.Builder
	e.write(&b, v, abi.CvtSimple, true)
	return b.String()
}

func (e *Engine) write(b *strings.Builder, v *abi.Value, how abi.ToStringMode, top bool) {
	simpleTop := how == abi.CvtSimple && top

	switch v.T {
	case abi.TUndefined:
		switch {
		case simpleTop:
		case how == abi.CvtJSONLiteral || how == abi.CvtJSONMap:
			b.WriteString("null")
		default:
			b.WriteString("undefined")
		}
	case abi.TNull:
		b.WriteString("null")
	case abi.TBool:
		b.WriteString(strconv.FormatBool(v.D != 0))
	case abi.TInt:
		b.WriteString(strconv.FormatInt(int64(int32(uint32(v.D))), 10))
	case abi.TBigInt:
		b.WriteString(strconv.FormatInt(int64(v.D), 10))
	case abi.TFloat:
		writeFloat(b, math.Float64frombits(v.D), how)
	case abi.TString:
		o := e.obj(v)
		if o == nil {
			return
		}
		s := string(utf16.Decode(o.chars))
		if simpleTop {
			b.WriteString(s)
		} else {
			writeQuoted(b, s)
		}
	case abi.TBytes:
		o := e.obj(v)
		if o == nil {
			return
		}
		s := base64.StdEncoding.EncodeToString(o.bytes)
		if simpleTop {
			b.WriteString(s)
		} else {
			writeQuoted(b, s)
		}
	case abi.TArray:
		o := e.obj(v)
		b.WriteByte('[')
		if o != nil {
			for i := range o.elems {
				if i > 0 {
					b.WriteByte(',')
				}
				e.write(b, &o.elems[i], how, false)
			}
		}
		b.WriteByte(']')
	case abi.TMap:
		o := e.obj(v)
		braces := !(how == abi.CvtJSONMap && top)
		if braces {
			b.WriteByte('{')
		}
		if o != nil {
			for i := range o.elems {
				if i > 0 {
					b.WriteByte(',')
				}
				e.writeKey(b, &o.keys[i], how)
				b.WriteByte(':')
				e.write(b, &o.elems[i], how, false)
			}
		}
		if braces {
			b.WriteByte('}')
		}
	case abi.TFunction:
		switch how {
		case abi.CvtSimple:
			b.WriteString("[function]")
		case abi.CvtXJSONLiteral:
			b.WriteString("undefined")
		default:
			b.WriteString("null")
		}
	case abi.TAsset:
		switch how {
		case abi.CvtSimple:
			b.WriteString("[asset]")
		case abi.CvtXJSONLiteral:
			b.WriteString("undefined")
		default:
			b.WriteString("null")
		}
	}
}

func (e *Engine) writeKey(b *strings.Builder, k *abi.Value, how abi.ToStringMode) {
	if k.T == abi.TString {
		o := e.obj(k)
		s := ""
		if o != nil {
			s = string(utf16.Decode(o.chars))
		}
		if how == abi.CvtXJSONLiteral && isIdent(s) {
			b.WriteString(s)
			return
		}
		writeQuoted(b, s)
		return
	}
	switch how {
	case abi.CvtJSONLiteral, abi.CvtJSONMap:
		writeQuoted(b, e.text(k))
	default:
		e.write(b, k, how, false)
	}
}

func writeFloat(b *strings.Builder, f float64, how abi.ToStringMode) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		if how == abi.CvtJSONLiteral || how == abi.CvtJSONMap {
			b.WriteString("null")
			return
		}
		switch {
		case math.IsNaN(f):
			b.WriteString("NaN")
		case f > 0:
			b.WriteString("Infinity")
		default:
			b.WriteString("-Infinity")
		}
		return
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	b.WriteString(s)
	if !strings.ContainsAny(s, ".eE") {
		b.WriteString(".0")
	}
}

func writeQuoted(b *strings.Builder, s string) {
	const hex = "0123456789abcdef"
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			if r < 0x20 {
				b.WriteString(`\u00`)
				b.WriteByte(hex[r>>4])
				b.WriteByte(hex[r&0xf])
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// parser reads JSON-like literals from UTF-16 input. XJSON additionally
// accepts undefined, NaN, Infinity, single-quoted strings, bare identifier
// keys and trailing commas.
type parser struct {
	e    *Engine
	fin  *finalizers
	src  []uint16
	pos  int
	mode abi.ToStringMode
}

// parse reads one top-level literal. On success pos is past it and any
// trailing whitespace.
func (p *parser) parse() (abi.Value, bool) {
	p.ws()
	var v abi.Value
	var ok bool
	if p.mode == abi.CvtJSONMap {
		v, ok = p.members(0)
	} else {
		v, ok = p.value()
	}
	if !ok {
		return abi.Value{}, false
	}
	p.ws()
	return v, true
}

func (p *parser) xjson() bool {
	return p.mode == abi.CvtXJSONLiteral
}

func (p *parser) peek() uint16 {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) ws() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) literal(word string) bool {
	if p.pos+len(word) > len(p.src) {
		return false
	}
	for i := 0; i < len(word); i++ {
		if p.src[p.pos+i] != uint16(word[i]) {
			return false
		}
	}
	p.pos += len(word)
	return true
}

func (p *parser) value() (abi.Value, bool) {
	switch c := p.peek(); {
	case c == '{':
		p.pos++
		return p.members('}')
	case c == '[':
		p.pos++
		return p.array()
	case c == '"' || (c == '\'' && p.xjson()):
		chars, ok := p.str()
		if !ok {
			return abi.Value{}, false
		}
		return p.e.alloc(&object{kind: abi.TString, chars: chars}), true
	case c == '-' || (c >= '0' && c <= '9'):
		if p.xjson() && p.literal("-Infinity") {
			return abi.Value{T: abi.TFloat, D: math.Float64bits(math.Inf(-1))}, true
		}
		return p.number()
	case p.literal("true"):
		return abi.Value{T: abi.TBool, D: 1}, true
	case p.literal("false"):
		return abi.Value{T: abi.TBool}, true
	case p.literal("null"):
		return abi.Value{T: abi.TNull}, true
	case p.xjson() && p.literal("undefined"):
		return abi.Value{}, true
	case p.xjson() && p.literal("NaN"):
		return abi.Value{T: abi.TFloat, D: math.Float64bits(math.NaN())}, true
	case p.xjson() && p.literal("Infinity"):
		return abi.Value{T: abi.TFloat, D: math.Float64bits(math.Inf(1))}, true
	}
	return abi.Value{}, false
}

func (p *parser) number() (abi.Value, bool) {
	start := p.pos
	isFloat := false
	if p.peek() == '-' {
		p.pos++
	}
	digits := 0
	for c := p.peek(); c >= '0' && c <= '9'; c = p.peek() {
		p.pos++
		digits++
	}
	if digits == 0 {
		return abi.Value{}, false
	}
	if p.peek() == '.' {
		isFloat = true
		p.pos++
		for c := p.peek(); c >= '0' && c <= '9'; c = p.peek() {
			p.pos++
		}
	}
	if c := p.peek(); c == 'e' || c == 'E' {
		isFloat = true
		p.pos++
		if c := p.peek(); c == '+' || c == '-' {
			p.pos++
		}
		for c := p.peek(); c >= '0' && c <= '9'; c = p.peek() {
			p.pos++
		}
	}

	text := string(utf16.Decode(p.src[start:p.pos]))
	if !isFloat {
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			if n >= math.MinInt32 && n <= math.MaxInt32 {
				return abi.Value{T: abi.TInt, D: uint64(uint32(int32(n)))}, true
			}
			return abi.Value{T: abi.TBigInt, D: uint64(n)}, true
		}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return abi.Value{}, false
	}
	return abi.Value{T: abi.TFloat, D: math.Float64bits(f)}, true
}

func (p *parser) str() ([]uint16, bool) {
	quote := p.src[p.pos]
	p.pos++
	out := []uint16{}
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		p.pos++
		switch c {
		case quote:
			return out, true
		case '\\':
			if p.pos >= len(p.src) {
				return nil, false
			}
			esc := p.src[p.pos]
			p.pos++
			switch esc {
			case '"', '\\', '/', '\'':
				out = append(out, esc)
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'u':
				if p.pos+4 > len(p.src) {
					return nil, false
				}
				n, err := strconv.ParseUint(string(utf16.Decode(p.src[p.pos:p.pos+4])), 16, 16)
				if err != nil {
					return nil, false
				}
				out = append(out, uint16(n))
				p.pos += 4
			default:
				return nil, false
			}
		default:
			out = append(out, c)
		}
	}
	return nil, false
}

func (p *parser) array() (abi.Value, bool) {
	var elems []abi.Value
	fail := func() (abi.Value, bool) {
		for i := range elems {
			p.e.drop(&elems[i], p.fin)
		}
		return abi.Value{}, false
	}

	p.ws()
	if p.peek() == ']' {
		p.pos++
		return p.e.alloc(&object{kind: abi.TArray}), true
	}
	for {
		p.ws()
		if p.xjson() && p.peek() == ']' && len(elems) > 0 {
			p.pos++
			break
		}
		v, ok := p.value()
		if !ok {
			return fail()
		}
		elems = append(elems, v)
		p.ws()
		switch p.peek() {
		case ',':
			p.pos++
			continue
		case ']':
			p.pos++
		default:
			return fail()
		}
		break
	}
	return p.e.alloc(&object{kind: abi.TArray, elems: elems}), true
}

// members reads map entries up to the closing rune. A zero closing rune
// reads to the end of input.
func (p *parser) members(closing uint16) (abi.Value, bool) {
	keys := []abi.Value{}
	var elems []abi.Value
	fail := func() (abi.Value, bool) {
		for i := range keys {
			p.e.drop(&keys[i], p.fin)
		}
		for i := range elems {
			p.e.drop(&elems[i], p.fin)
		}
		return abi.Value{}, false
	}
	done := func() bool {
		if closing == 0 {
			return p.pos >= len(p.src)
		}
		if p.peek() == closing {
			p.pos++
			return true
		}
		return false
	}

	p.ws()
	if done() {
		return p.e.alloc(&object{kind: abi.TMap, keys: keys}), true
	}
	for {
		p.ws()
		key, ok := p.key()
		if !ok {
			return fail()
		}
		keys = append(keys, key)
		p.ws()
		if p.peek() != ':' {
			elems = append(elems, abi.Value{})
			return fail()
		}
		p.pos++
		p.ws()
		v, ok := p.value()
		if !ok {
			elems = append(elems, abi.Value{})
			return fail()
		}
		elems = append(elems, v)
		p.ws()
		if p.peek() == ',' {
			p.pos++
			p.ws()
			if p.xjson() && done() {
				break
			}
			continue
		}
		if done() {
			break
		}
		return fail()
	}
	return p.e.alloc(&object{kind: abi.TMap, keys: keys, elems: elems}), true
}

func (p *parser) key() (abi.Value, bool) {
	c := p.peek()
	if c == '"' || (c == '\'' && p.xjson()) {
		chars, ok := p.str()
		if !ok {
			return abi.Value{}, false
		}
		return p.e.alloc(&object{kind: abi.TString, chars: chars}), true
	}
	if !p.xjson() {
		return abi.Value{}, false
	}
	if c >= '0' && c <= '9' || c == '-' {
		return p.number()
	}
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (p.pos > start && c >= '0' && c <= '9') {
			p.pos++
			continue
		}
		break
	}
	if p.pos == start {
		return abi.Value{}, false
	}
	chars := make([]uint16, p.pos-start)
	copy(chars, p.src[start:p.pos])
	return p.e.alloc(&object{kind: abi.TString, chars: chars}), true
}
