package annotation

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

var ErrUnterminatedQuote = errors.New("unterminated quote")

// characters that force a taxon or label to be quoted on output
const labelSpecial = " \t\r\n()[]':;,\"{}="

// ReadQuoted reads a quoted token whose opening quote has already been
// consumed. A doubled quote character ('' or "") is a literal quote; any other
// quote ends the token. The byte after the closing quote is left unread.
func ReadQuoted(r io.ByteScanner, quote byte) (string, error) {
	var b strings.Builder
	for {
		ch, err := r.ReadByte()
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("%w, expected closing %c after %q", ErrUnterminatedQuote, quote, b.String())
		} else if err != nil {
			return "", err
		}
		if ch != quote {
			b.WriteByte(ch)
			continue
		}
		next, err := r.ReadByte()
		if errors.Is(err, io.EOF) {
			return b.String(), nil
		} else if err != nil {
			return "", err
		}
		if next == quote {
			b.WriteByte(quote)
			continue
		}
		if err := r.UnreadByte(); err != nil {
			return "", err
		}
		return b.String(), nil
	}
}

func NeedsQuotes(s string) bool {
	return s == "" || strings.ContainsAny(s, labelSpecial)
}

// QuoteLabel single quotes s if it could not be read back as a bare Newick
// token.
func QuoteLabel(s string) string {
	if !NeedsQuotes(s) {
		return s
	}
	return quote(s, '\'')
}

// QuoteString always double quotes s.
func QuoteString(s string) string {
	return quote(s, '"')
}

func quote(s string, q byte) string {
	qs := string(q)
	return qs + strings.ReplaceAll(s, qs, qs+qs) + qs
}

// QuoteKey returns an annotation key as Parse will read it back: bare when
// that is unambiguous (brackets allowed if balanced), double quoted otherwise.
func QuoteKey(key string) string {
	if key == "" || strings.ContainsAny(key, " \t\r\n,=\"'{}") {
		return QuoteString(key)
	}
	depth := 0
	for i := 0; i < len(key); i++ {
		switch key[i] {
		case '[':
			depth++
		case ']':
			depth--
		}
		if depth < 0 {
			return QuoteString(key)
		}
	}
	if depth != 0 {
		return QuoteString(key)
	}
	return key
}
