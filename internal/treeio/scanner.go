package treeio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"maps"
	"strconv"
	"strings"

	"github.com/jsdoublel/fertree/internal/annotation"
)

// scanner holds the byte level reading shared by the Newick and Nexus
// importers. It keeps one byte of pushback, the delimiter that ended the last
// token, and any [&...] annotations read since they were last taken.
type scanner struct {
	r         *bufio.Reader
	pushback  int // -1 when empty
	prev      byte
	line      int
	offset    int
	lastDelim byte
	pending   map[string]annotation.Value
}

func newScanner(r io.Reader) *scanner {
	return &scanner{r: bufio.NewReader(r), pushback: -1, line: 1}
}

func (s *scanner) errorf(format string, v ...any) error {
	return &FormatError{Line: s.line, Offset: s.offset, Msg: fmt.Sprintf(format, v...)}
}

// eof turns an io.EOF met inside a statement into a format error.
func (s *scanner) eof(err error) error {
	if errors.Is(err, io.EOF) {
		return s.errorf("unexpected end of input")
	}
	return err
}

func (s *scanner) read() (byte, error) {
	if s.pushback >= 0 {
		ch := byte(s.pushback)
		s.pushback = -1
		s.prev = ch
		return ch, nil
	}
	ch, err := s.r.ReadByte()
	if err != nil {
		return 0, err
	}
	if ch == '\n' {
		s.line++
		s.offset = 0
	} else {
		s.offset++
	}
	s.prev = ch
	return ch, nil
}

func (s *scanner) unread(ch byte) {
	if s.pushback >= 0 {
		panic("scanner already holds a pushed back byte")
	}
	s.pushback = int(ch)
}

// ReadByte and UnreadByte make the scanner an io.ByteScanner so quoted tokens
// can be read with annotation.ReadQuoted.
func (s *scanner) ReadByte() (byte, error) {
	return s.read()
}

func (s *scanner) UnreadByte() error {
	s.unread(s.prev)
	return nil
}

func (s *scanner) skipSpace() error {
	for {
		ch, err := s.read()
		if err != nil {
			return err
		}
		if !isSpace(ch) {
			s.unread(ch)
			return nil
		}
	}
}

// readByte returns the next byte that is neither whitespace nor part of a
// comment.
func (s *scanner) readByte() (byte, error) {
	for {
		if err := s.skipSpace(); err != nil {
			return 0, err
		}
		ch, err := s.read()
		if err != nil {
			return 0, err
		}
		if ch != '[' {
			return ch, nil
		}
		if err := s.skipComment(true); err != nil {
			return 0, err
		}
	}
}

// nextByte peeks at the byte readByte would return.
func (s *scanner) nextByte() (byte, error) {
	ch, err := s.readByte()
	if err != nil {
		return 0, err
	}
	s.unread(ch)
	return ch, nil
}

// skipComment reads a (possibly nested) comment whose opening '[' has been
// consumed. With parse set, [&...] comments are added to the pending
// annotations; other comments are dropped. Brackets inside quoted strings of
// an [&...] comment do not count towards nesting.
func (s *scanner) skipComment(parse bool) error {
	var b strings.Builder
	b.WriteByte('[')
	var quote byte
	for depth := 1; depth > 0; {
		ch, err := s.read()
		if errors.Is(err, io.EOF) {
			return s.errorf("unterminated comment")
		} else if err != nil {
			return err
		}
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '[':
			depth++
		case ch == ']':
			depth--
		case ch == '"' || ch == '\'':
			if b.Len() > 1 && b.String()[1] == '&' {
				quote = ch
			}
		}
		b.WriteByte(ch)
	}
	comment := b.String()
	if !parse || !strings.HasPrefix(comment, "[&") {
		return nil
	}
	values, err := annotation.Parse(comment)
	if err != nil {
		return &FormatError{Line: s.line, Offset: s.offset, Msg: "bad annotation comment", Err: err}
	}
	if s.pending == nil {
		s.pending = values
	} else {
		maps.Copy(s.pending, values)
	}
	return nil
}

// takePending returns and clears the annotations read so far.
func (s *scanner) takePending() map[string]annotation.Value {
	p := s.pending
	s.pending = nil
	return p
}

// readToken reads a label or number. The token ends at whitespace, at a
// comment, or at one of delims; the byte that ended it is kept in lastDelim
// (' ' for whitespace and comments, 0 at the end of input). After whitespace
// the next significant byte is consumed as the delimiter if it is one of
// delims. A token may start with a single or double quote, in which case it
// runs to the closing quote and doubled quotes are literal.
func (s *scanner) readToken(delims string) (string, error) {
	if _, err := s.nextByte(); err != nil {
		return "", err
	}
	var b strings.Builder
	quoted := false
	for first := true; ; first = false {
		ch, err := s.read()
		if errors.Is(err, io.EOF) {
			if b.Len() == 0 && !quoted {
				return "", io.EOF
			}
			s.lastDelim = 0
			return b.String(), nil
		} else if err != nil {
			return "", err
		}
		switch {
		case first && (ch == '\'' || ch == '"'):
			text, err := annotation.ReadQuoted(s, ch)
			if err != nil {
				return "", &FormatError{Line: s.line, Offset: s.offset, Msg: "bad quoted token", Err: err}
			}
			b.WriteString(text)
			quoted = true
			continue
		case ch == '[':
			if err := s.skipComment(true); err != nil {
				return "", err
			}
		case isSpace(ch):
		case strings.IndexByte(delims, ch) >= 0:
			s.lastDelim = ch
			return b.String(), nil
		default:
			b.WriteByte(ch)
			continue
		}
		// whitespace or a comment ended the token
		s.lastDelim = ' '
		next, err := s.nextByte()
		if errors.Is(err, io.EOF) {
			return b.String(), nil
		} else if err != nil {
			return "", err
		}
		if strings.IndexByte(delims, next) >= 0 {
			s.read()
			s.lastDelim = next
		}
		return b.String(), nil
	}
}

func (s *scanner) readFloat(delims string) (float64, error) {
	tok, err := s.readToken(delims)
	if err != nil {
		return 0, s.eof(err)
	}
	f, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, s.errorf("malformed number %q", tok)
	}
	return f, nil
}

func (s *scanner) readInt(delims string) (int, error) {
	tok, err := s.readToken(delims)
	if err != nil {
		return 0, s.eof(err)
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, s.errorf("malformed integer %q", tok)
	}
	return n, nil
}

// skipUntil discards input up to and including the next significant c.
// Comments passed on the way are parsed into the pending annotations.
func (s *scanner) skipUntil(c byte) error {
	for {
		ch, err := s.readByte()
		if err != nil {
			return err
		}
		if ch == c {
			return nil
		}
	}
}

// skipStatement discards input up to and including the next ';' that is not
// quoted or inside a comment, without interpreting anything on the way.
func (s *scanner) skipStatement() error {
	for {
		ch, err := s.read()
		if err != nil {
			return s.eof(err)
		}
		switch ch {
		case ';':
			s.lastDelim = ';'
			s.pending = nil
			return nil
		case '\'', '"':
			if _, err := annotation.ReadQuoted(s, ch); err != nil {
				return &FormatError{Line: s.line, Offset: s.offset, Msg: "bad quoted token", Err: err}
			}
		case '[':
			if err := s.skipComment(false); err != nil {
				return err
			}
		}
	}
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f' || ch == '\v'
}
