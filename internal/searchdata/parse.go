package searchdata

import (
	"errors"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ErrNotShard is returned when the input does not start with the searchData declaration
var ErrNotShard = errors.New("not a search shard: missing \"var searchData=\" declaration")

// SyntaxError describes malformed shard content
type SyntaxError struct {
	Offset int // Byte offset of the offending token
	Line   int // 1-based line
	Col    int // 1-based column
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at line %d, column %d: %s", e.Line, e.Col, e.Msg)
}

// Parse reads a shard literal of the form
//
//	var searchData=
//	[
//	  ['key',['Display',['../page.html#anchor',1,'scope'],...]],
//	  ...
//	];
//
// Name, Category and Section are left empty; use ParseFile to derive them from the file name.
func Parse(r io.Reader) (*Shard, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read shard: %w", err)
	}
	return ParseBytes(data)
}

// ParseBytes is Parse on an in-memory buffer
func ParseBytes(data []byte) (*Shard, error) {
	p := &parser{src: data}

	if err := p.declaration("searchData"); err != nil {
		return nil, err
	}

	value, err := p.value()
	if err != nil {
		return nil, err
	}
	if err := p.end(); err != nil {
		return nil, err
	}

	list, ok := value.([]any)
	if !ok {
		return nil, p.errorf(0, "searchData must be an array")
	}

	shard := &Shard{Section: -1, Entries: make([]Entry, 0, len(list))}
	for i, raw := range list {
		entry, err := toEntry(raw)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		shard.Entries = append(shard.Entries, entry)
	}

	return shard, nil
}

// ParseFile parses a shard file and fills in Name, Category and Section from its file name
func ParseFile(path string) (*Shard, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open shard: %w", err)
	}
	defer f.Close()

	shard, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	shard.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if category, section, ok := SplitShardName(shard.Name); ok {
		shard.Category = category
		shard.Section = section
	}

	return shard, nil
}

// toEntry converts a decoded literal into an Entry.
// Shape: [key, [display, [url, flag, scope], ...]]
func toEntry(raw any) (Entry, error) {
	pair, ok := raw.([]any)
	if !ok || len(pair) != 2 {
		return Entry{}, errors.New("expected [key, [display, targets...]]")
	}

	key, ok := pair[0].(string)
	if !ok {
		return Entry{}, errors.New("key must be a string")
	}

	body, ok := pair[1].([]any)
	if !ok || len(body) < 1 {
		return Entry{}, fmt.Errorf("entry %q: expected [display, targets...]", key)
	}

	display, ok := body[0].(string)
	if !ok {
		return Entry{}, fmt.Errorf("entry %q: display must be a string", key)
	}

	entry := Entry{
		Key:     key,
		Display: html.UnescapeString(display),
		Targets: make([]Target, 0, len(body)-1),
	}

	for i, rawTarget := range body[1:] {
		target, err := toTarget(rawTarget)
		if err != nil {
			return Entry{}, fmt.Errorf("entry %q target %d: %w", key, i, err)
		}
		entry.Targets = append(entry.Targets, target)
	}

	return entry, nil
}

// toTarget converts [url, flag, scope] into a Target.
// The scope element is optional in some generator versions.
func toTarget(raw any) (Target, error) {
	tuple, ok := raw.([]any)
	if !ok || len(tuple) < 2 || len(tuple) > 3 {
		return Target{}, errors.New("expected [url, flag, scope]")
	}

	url, ok := tuple[0].(string)
	if !ok {
		return Target{}, errors.New("url must be a string")
	}
	flag, ok := tuple[1].(int64)
	if !ok {
		return Target{}, errors.New("flag must be an integer")
	}

	target := Target{URL: url, ParentFrame: flag != 0}
	if len(tuple) == 3 {
		scope, ok := tuple[2].(string)
		if !ok {
			return Target{}, errors.New("scope must be a string")
		}
		target.Scope = html.UnescapeString(scope)
	}

	return target, nil
}

// parser is a recursive-descent reader for the subset of JavaScript literal
// syntax produced by the generator: arrays, objects, strings, integers.
type parser struct {
	src []byte
	pos int
}

// declaration consumes "var <name> =" and returns ErrNotShard if it is missing
func (p *parser) declaration(name string) error {
	p.skipSpace()
	if !p.consumeWord("var") {
		return ErrNotShard
	}
	p.skipSpace()
	if !p.consumeWord(name) {
		return ErrNotShard
	}
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != '=' {
		return ErrNotShard
	}
	p.pos++
	return nil
}

// end accepts an optional ';' followed by whitespace up to EOF
func (p *parser) end() error {
	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == ';' {
		p.pos++
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return p.errorf(p.pos, "unexpected trailing content %q", p.snippet())
	}
	return nil
}

func (p *parser) value() (any, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return nil, p.errorf(p.pos, "unexpected end of input")
	}

	switch c := p.src[p.pos]; {
	case c == '[':
		return p.array()
	case c == '{':
		return p.object()
	case c == '\'' || c == '"':
		return p.str()
	case c == '-' || (c >= '0' && c <= '9'):
		return p.integer()
	default:
		return nil, p.errorf(p.pos, "unexpected character %q", rune(c))
	}
}

func (p *parser) array() ([]any, error) {
	start := p.pos
	p.pos++ // [

	items := []any{}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, p.errorf(start, "unterminated array")
		}
		if p.src[p.pos] == ']' {
			p.pos++
			return items, nil
		}

		item, err := p.value()
		if err != nil {
			return nil, err
		}
		items = append(items, item)

		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, p.errorf(start, "unterminated array")
		}
		switch p.src[p.pos] {
		case ',':
			p.pos++
		case ']':
		default:
			return nil, p.errorf(p.pos, "expected ',' or ']' but found %q", rune(p.src[p.pos]))
		}
	}
}

// object parses { key: value, ... } where keys are integers, identifiers or strings.
// Keys are returned as strings.
func (p *parser) object() (map[string]any, error) {
	start := p.pos
	p.pos++ // {

	obj := map[string]any{}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, p.errorf(start, "unterminated object")
		}
		if p.src[p.pos] == '}' {
			p.pos++
			return obj, nil
		}

		key, err := p.objectKey()
		if err != nil {
			return nil, err
		}

		p.skipSpace()
		if p.pos >= len(p.src) || p.src[p.pos] != ':' {
			return nil, p.errorf(p.pos, "expected ':' after object key %q", key)
		}
		p.pos++

		val, err := p.value()
		if err != nil {
			return nil, err
		}
		obj[key] = val

		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, p.errorf(start, "unterminated object")
		}
		switch p.src[p.pos] {
		case ',':
			p.pos++
		case '}':
		default:
			return nil, p.errorf(p.pos, "expected ',' or '}' but found %q", rune(p.src[p.pos]))
		}
	}
}

func (p *parser) objectKey() (string, error) {
	c := p.src[p.pos]
	if c == '\'' || c == '"' {
		return p.str()
	}

	start := p.pos
	for p.pos < len(p.src) && isIdentByte(p.src[p.pos]) {
		p.pos++
	}
	if start == p.pos {
		return "", p.errorf(p.pos, "expected object key but found %q", rune(c))
	}
	return string(p.src[start:p.pos]), nil
}

func (p *parser) integer() (int64, error) {
	start := p.pos
	if p.src[p.pos] == '-' {
		p.pos++
	}
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	n, err := strconv.ParseInt(string(p.src[start:p.pos]), 10, 64)
	if err != nil {
		return 0, p.errorf(start, "invalid integer %q", p.src[start:p.pos])
	}
	return n, nil
}

func (p *parser) str() (string, error) {
	start := p.pos
	quote := p.src[p.pos]
	p.pos++

	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == quote:
			p.pos++
			return b.String(), nil
		case c == '\n':
			return "", p.errorf(start, "unterminated string")
		case c == '\\':
			if err := p.escape(&b); err != nil {
				return "", err
			}
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	return "", p.errorf(start, "unterminated string")
}

func (p *parser) escape(b *strings.Builder) error {
	at := p.pos
	p.pos++ // backslash
	if p.pos >= len(p.src) {
		return p.errorf(at, "unterminated escape")
	}

	c := p.src[p.pos]
	p.pos++
	switch c {
	case 'n':
		b.WriteByte('\n')
	case 't':
		b.WriteByte('\t')
	case 'r':
		b.WriteByte('\r')
	case 'b':
		b.WriteByte('\b')
	case 'f':
		b.WriteByte('\f')
	case '0':
		b.WriteByte(0)
	case 'x':
		v, err := p.hexRun(2, at)
		if err != nil {
			return err
		}
		b.WriteRune(rune(v))
	case 'u':
		v, err := p.hexRun(4, at)
		if err != nil {
			return err
		}
		b.WriteRune(rune(v))
	default:
		// \' \" \\ \/ and any other character stand for themselves
		b.WriteByte(c)
	}
	return nil
}

func (p *parser) hexRun(n, at int) (uint64, error) {
	if p.pos+n > len(p.src) {
		return 0, p.errorf(at, "truncated escape")
	}
	v, err := strconv.ParseUint(string(p.src[p.pos:p.pos+n]), 16, 32)
	if err != nil {
		return 0, p.errorf(at, "invalid escape %q", p.src[at:p.pos+n])
	}
	p.pos += n
	return v, nil
}

// skipSpace skips whitespace and JavaScript comments
func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			p.pos++
		case c == '/' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '/':
			for p.pos < len(p.src) && p.src[p.pos] != '\n' {
				p.pos++
			}
		case c == '/' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '*':
			end := strings.Index(string(p.src[p.pos+2:]), "*/")
			if end < 0 {
				p.pos = len(p.src)
				return
			}
			p.pos += end + 4
		case c == 0xEF && p.pos == 0 && len(p.src) >= 3 && p.src[1] == 0xBB && p.src[2] == 0xBF:
			p.pos += 3 // UTF-8 BOM
		default:
			return
		}
	}
}

func (p *parser) consumeWord(word string) bool {
	end := p.pos + len(word)
	if end > len(p.src) || string(p.src[p.pos:end]) != word {
		return false
	}
	if end < len(p.src) && isIdentByte(p.src[end]) {
		return false
	}
	p.pos = end
	return true
}

func (p *parser) snippet() string {
	end := p.pos + 20
	if end > len(p.src) {
		end = len(p.src)
	}
	return string(p.src[p.pos:end])
}

func (p *parser) errorf(offset int, format string, args ...any) *SyntaxError {
	line, col := 1, 1
	for i := 0; i < offset && i < len(p.src); {
		r, size := utf8.DecodeRune(p.src[i:])
		if r == '\n' {
			line++
			col = 1
		} else {
			col++
		}
		i += size
	}
	return &SyntaxError{Offset: offset, Line: line, Col: col, Msg: fmt.Sprintf(format, args...)}
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
