package annotation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

var ErrInvalidAnnotation = errors.New("invalid annotation")

// Parse reads an annotation comment of the form [&key=value,key2=value2,...].
// A key without a value is stored as Boolean(true). A set whose elements are
// all {time,source,destination} triples is returned as a Set of MarkovJump
// values.
func Parse(comment string) (map[string]Value, error) {
	s := strings.TrimSpace(comment)
	if !strings.HasPrefix(s, "[&") || !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("%w, %q is not a [&...] comment", ErrInvalidAnnotation, comment)
	}
	p := newParser(s[2 : len(s)-1])
	annotations := make(map[string]Value)
	p.skipSpace()
	if p.done() {
		return annotations, nil
	}
	for {
		key, err := p.key()
		if err != nil {
			return nil, err
		}
		var value Value = Boolean(true)
		p.skipSpace()
		if p.accept('=') {
			if value, err = p.value(); err != nil {
				return nil, err
			}
		}
		annotations[key] = value
		p.skipSpace()
		if p.done() {
			return annotations, nil
		}
		if !p.accept(',') {
			return nil, p.errorf("expected ',' between annotations")
		}
	}
}

// ParseValue reads a single annotation value, e.g. UK, "United Kingdom", 0.5
// or {a,b}.
func ParseValue(s string) (Value, error) {
	p := newParser(s)
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.done() {
		return nil, p.errorf("unexpected trailing characters")
	}
	return v, nil
}

type parser struct {
	src string
	r   *strings.Reader
}

func newParser(src string) *parser {
	return &parser{src: src, r: strings.NewReader(src)}
}

func (p *parser) offset() int {
	return len(p.src) - p.r.Len()
}

func (p *parser) errorf(format string, v ...any) error {
	return fmt.Errorf("%w, %s at offset %d of %q", ErrInvalidAnnotation, fmt.Sprintf(format, v...), p.offset(), p.src)
}

func (p *parser) done() bool {
	return p.r.Len() == 0
}

// peek returns the next byte without consuming it (0 at the end of input).
func (p *parser) peek() byte {
	ch, err := p.r.ReadByte()
	if err != nil {
		return 0
	}
	p.r.UnreadByte()
	return ch
}

func (p *parser) accept(ch byte) bool {
	if !p.done() && p.peek() == ch {
		p.r.ReadByte()
		return true
	}
	return false
}

func (p *parser) skipSpace() {
	for !p.done() && isSpace(p.peek()) {
		p.r.ReadByte()
	}
}

func (p *parser) quoted() (string, error) {
	q, _ := p.r.ReadByte()
	s, err := ReadQuoted(p.r, q)
	if err != nil {
		return "", fmt.Errorf("%w at offset %d of %q", err, p.offset(), p.src)
	}
	return s, nil
}

func (p *parser) key() (string, error) {
	p.skipSpace()
	if ch := p.peek(); ch == '"' || ch == '\'' {
		return p.quoted()
	}
	// brackets are allowed in bare keys, e.g. location[1]
	var b strings.Builder
	depth := 0
	for !p.done() {
		ch := p.peek()
		if depth == 0 && (ch == '=' || ch == ',') {
			break
		}
		switch ch {
		case '[':
			depth++
		case ']':
			depth--
		}
		p.r.ReadByte()
		b.WriteByte(ch)
	}
	key := strings.TrimSpace(b.String())
	if key == "" {
		return "", p.errorf("missing annotation key")
	}
	return key, nil
}

func (p *parser) value() (Value, error) {
	p.skipSpace()
	switch ch := p.peek(); {
	case p.done():
		return nil, p.errorf("missing annotation value")
	case ch == '{':
		return p.set()
	case ch == '"' || ch == '\'':
		s, err := p.quoted()
		if err != nil {
			return nil, err
		}
		return Discrete(s), nil
	}
	var b strings.Builder
	for !p.done() {
		ch := p.peek()
		if ch == ',' || ch == '}' {
			break
		}
		p.r.ReadByte()
		b.WriteByte(ch)
	}
	tok := strings.TrimSpace(b.String())
	switch {
	case tok == "":
		return nil, p.errorf("missing annotation value")
	case looksNumeric(tok):
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			log.Warn("could not parse numeric annotation; falling back to discrete", "value", tok)
			return Discrete(tok), nil
		}
		return Continuous(f), nil
	case tok == "true":
		return Boolean(true), nil
	case tok == "false":
		return Boolean(false), nil
	}
	return Discrete(tok), nil
}

func (p *parser) set() (Value, error) {
	p.r.ReadByte() // '{'
	set := Set{}
	p.skipSpace()
	if p.accept('}') {
		return set, nil
	}
	for {
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		set = append(set, v)
		p.skipSpace()
		if p.accept('}') {
			return markovJumps(set), nil
		}
		if !p.accept(',') {
			if p.done() {
				return nil, p.errorf("unterminated set")
			}
			return nil, p.errorf("expected ',' or '}' in set")
		}
	}
}

// markovJumps converts a set of {time,source,destination} triples into a set
// of MarkovJump values. Sets with any other element are returned unchanged.
func markovJumps(set Set) Set {
	jumps := make(Set, 0, len(set))
	for _, v := range set {
		triple, ok := v.(Set)
		if !ok || len(triple) != 3 {
			return set
		}
		time, ok := triple[0].(Continuous)
		if !ok || !scalar(triple[1]) || !scalar(triple[2]) {
			return set
		}
		jumps = append(jumps, MarkovJump{
			Time:        float64(time),
			Source:      Text(triple[1]),
			Destination: Text(triple[2]),
		})
	}
	return jumps
}

func scalar(v Value) bool {
	k := v.Kind()
	return k == DiscreteKind || k == ContinuousKind
}

func looksNumeric(tok string) bool {
	ch := tok[0]
	return (ch >= '0' && ch <= '9') || ch == '-' || ch == '+' || ch == '.'
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}
