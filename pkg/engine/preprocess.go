package engine

import (
	"fmt"
	"strings"
)

// Sculpture scripts use `;` comments, `:name` keywords and kebab-case
// names, none of which zygomys reads. Scripts are rewritten before loading:
//
//	(part "left-wing" left-half :shading :flat) ; wing
//
// becomes
//
//	(part "left-wing" left_half "__kw_shading" "__kw_flat") // wing
//
// Keywords become tagged string literals rather than symbols so that a
// keyword never collides with a variable of the same name.

// scanner rewrites one script, tracking the position of the next byte.
type scanner struct {
	src  string
	out  strings.Builder
	pos  int
	line int
	col  int
}

// preprocessSource rewrites a sculpture script for zygomys. Keyword names
// are lowercased and their hyphens become underscores, so :Max-Tiers and
// :max_tiers name the same argument. A keyword that is empty or runs into
// something other than whitespace or a bracket is reported at its
// position. Unterminated strings are left for the reader to report.
func preprocessSource(source string) (string, *EvalError) {
	s := &scanner{src: source, line: 1, col: 1}
	s.out.Grow(len(source) + len(source)/4)
	for !s.done() {
		switch c := s.peek(0); {
		case c == '"':
			s.quoted('"', true)
		case c == '`':
			s.quoted('`', false)
		case c == ';':
			s.comment()
		case c == ':' && s.startsToken():
			if err := s.keyword(); err != nil {
				return "", err
			}
		case c == '-' && s.inName():
			s.advance()
			s.out.WriteByte('_')
		default:
			s.copy()
		}
	}
	return s.out.String(), nil
}

func (s *scanner) done() bool { return s.pos >= len(s.src) }

// peek returns the byte off positions ahead, or 0 past the end.
func (s *scanner) peek(off int) byte {
	if s.pos+off >= len(s.src) {
		return 0
	}
	return s.src[s.pos+off]
}

func (s *scanner) advance() byte {
	c := s.src[s.pos]
	s.pos++
	if c == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return c
}

func (s *scanner) copy() { s.out.WriteByte(s.advance()) }

// startsToken reports whether the next byte begins a token, as opposed to
// continuing a symbol like zygomys' a:b field syntax.
func (s *scanner) startsToken() bool {
	return s.pos == 0 || !isNameChar(s.src[s.pos-1])
}

// inName reports whether a hyphen joins two parts of a kebab-case name
// rather than negating a number or subtracting.
func (s *scanner) inName() bool {
	return s.pos > 0 && isNameChar(s.src[s.pos-1]) && isAlpha(s.peek(1))
}

// quoted copies a string literal verbatim, closing quote included.
func (s *scanner) quoted(quote byte, escapes bool) {
	s.copy()
	for !s.done() && s.peek(0) != quote {
		if escapes && s.peek(0) == '\\' && s.pos+1 < len(s.src) {
			s.copy()
		}
		s.copy()
	}
	if !s.done() {
		s.copy()
	}
}

// comment turns a run of semicolons into // and copies the rest of the
// line.
func (s *scanner) comment() {
	for !s.done() && s.peek(0) == ';' {
		s.advance()
	}
	s.out.WriteString("//")
	for !s.done() && s.peek(0) != '\n' {
		s.copy()
	}
}

// keyword rewrites :name as a tagged string literal. := is zygomys
// assignment and passes through.
func (s *scanner) keyword() *EvalError {
	line, col := s.line, s.col
	if s.peek(1) == '=' {
		s.copy()
		s.copy()
		return nil
	}
	if !isAlpha(s.peek(1)) {
		return &EvalError{Line: line, Col: col, Message: fmt.Sprintf("keyword must start with a letter, got %s", describeByte(s.peek(1)))}
	}
	s.advance()

	var name strings.Builder
	for !s.done() && isKeywordChar(s.peek(0)) {
		c := s.advance()
		switch {
		case c == '-':
			c = '_'
		case c >= 'A' && c <= 'Z':
			c += 'a' - 'A'
		}
		name.WriteByte(c)
	}
	if !s.done() && !isDelimiter(s.peek(0)) {
		return &EvalError{Line: line, Col: col, Message: fmt.Sprintf("keyword :%s runs into %s", name.String(), describeByte(s.peek(0)))}
	}

	s.out.WriteByte('"')
	s.out.WriteString(kwPrefix)
	s.out.WriteString(name.String())
	s.out.WriteByte('"')
	return nil
}

func describeByte(c byte) string {
	switch c {
	case 0:
		return "end of input"
	case ' ', '\t', '\r', '\n':
		return "whitespace"
	}
	return fmt.Sprintf("%q", c)
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isNameChar(c byte) bool {
	return isAlpha(c) || isDigit(c) || c == '_'
}

func isKeywordChar(c byte) bool {
	return isNameChar(c) || c == '-'
}

// isDelimiter reports whether c may follow a keyword.
func isDelimiter(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '(', ')', '[', ']', '{', '}':
		return true
	}
	return false
}
