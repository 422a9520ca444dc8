// Package scanner is the character-by-character scanner spec.md §4.1
// describes, shared by the Prototype Parser (pkg/parser) and the
// Instance Compiler's body walker (pkg/compiler). It tracks a line
// index as it advances so every downstream diagnostic can point at an
// exact source line, matching the scan style the teacher's
// preprocessor sub-parsers use (char-by-char with a running lineNum).
package scanner

import "strings"

// Scanner walks a body of text one byte at a time, tracking the current
// byte offset and 1-based line number.
type Scanner struct {
	src  string
	pos  int
	line int
}

// New creates a Scanner over src, starting at line startLine (1-based).
func New(src string, startLine int) *Scanner {
	return &Scanner{src: src, pos: 0, line: startLine}
}

// Done reports whether the scanner has consumed all input.
func (s *Scanner) Done() bool { return s.pos >= len(s.src) }

// Line returns the current 1-based line number.
func (s *Scanner) Line() int { return s.line }

// Pos returns the current byte offset.
func (s *Scanner) Pos() int { return s.pos }

// Src returns the full source text the scanner was built from.
func (s *Scanner) Src() string { return s.src }

// Peek returns the current byte without consuming it, or 0 at EOF.
func (s *Scanner) Peek() byte {
	if s.Done() {
		return 0
	}
	return s.src[s.pos]
}

// PeekAt returns the byte at pos+offset, or 0 if out of range.
func (s *Scanner) PeekAt(offset int) byte {
	i := s.pos + offset
	if i < 0 || i >= len(s.src) {
		return 0
	}
	return s.src[i]
}

// Advance consumes and returns the current byte, tracking newlines.
func (s *Scanner) Advance() byte {
	b := s.src[s.pos]
	s.pos++
	if b == '\n' {
		s.line++
	}
	return b
}

// SkipWhitespace consumes contiguous whitespace (spaces, tabs,
// newlines), incrementing the line counter for each newline crossed.
func (s *Scanner) SkipWhitespace() {
	for !s.Done() {
		b := s.Peek()
		if b == ' ' || b == '\t' || b == '\r' || b == '\n' {
			s.Advance()
			continue
		}
		break
	}
}

// StripLineComment removes a "//" to end-of-line comment starting at
// the current position, if one is present, without consuming the
// terminating newline. Returns true if a comment was stripped.
func (s *Scanner) StripLineComment() bool {
	if s.Peek() == '/' && s.PeekAt(1) == '/' {
		for !s.Done() && s.Peek() != '\n' {
			s.Advance()
		}
		return true
	}
	return false
}

// isIdentRune reports whether b may appear in an identifier-like token
// (letters, digits, underscore, hyphen — SRC names may contain hyphens
// per the Dialect Table's reserved-identifier examples).
func isIdentRune(b byte) bool {
	return b == '_' || b == '-' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// ReadIdent accumulates a maximal identifier-like token starting at the
// current position.
func (s *Scanner) ReadIdent() string {
	start := s.pos
	for !s.Done() && isIdentRune(s.Peek()) {
		s.Advance()
	}
	return s.src[start:s.pos]
}

// ReadBalancedParens reads a balanced "(...)" substring starting at the
// current position (which must be "("), tracking nested parens, and
// returns the contents between the outer parens (exclusive) along with
// whether a matching close was found. On success the scanner is left
// positioned just past the closing ")".
func (s *Scanner) ReadBalancedParens() (string, bool) {
	if s.Peek() != '(' {
		return "", false
	}
	s.Advance()
	depth := 1
	start := s.pos
	for !s.Done() {
		b := s.Peek()
		if b == '(' {
			depth++
		} else if b == ')' {
			depth--
			if depth == 0 {
				contents := s.src[start:s.pos]
				s.Advance()
				return contents, true
			}
		}
		s.Advance()
	}
	return "", false
}

// StripComments removes every "//" line comment from src and trims each
// resulting line, matching the Prototype Parser's body normalization
// (spec.md §4.2): "for each body line, strip comments and trim;
// concatenate with \n preserved."
func StripComments(src string) string {
	lines := strings.Split(src, "\n")
	out := make([]string, len(lines))
	for i, line := range lines {
		if idx := findLineComment(line); idx >= 0 {
			line = line[:idx]
		}
		out[i] = strings.TrimSpace(line)
	}
	return strings.Join(out, "\n")
}

// findLineComment returns the byte index of the first "//" in line that
// is not itself inside one (SRC has no string literals to worry about).
func findLineComment(line string) int {
	for i := 0; i < len(line)-1; i++ {
		if line[i] == '/' && line[i+1] == '/' {
			return i
		}
	}
	return -1
}
