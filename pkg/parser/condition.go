// Package parser holds the small sub-parsers spec.md §4.2 and §4.4
// describe: the top-level Prototype Parser, the condition parser, and
// the template-argument-list parser. Grounded in shape on the teacher's
// small preprocessor sub-parsers (ternary.go, type_annot.go), which scan
// a fixed-length input and return both a parsed value and the count of
// characters consumed so the caller can advance its own cursor.
package parser

import (
	"fmt"
	"strings"

	"github.com/kdlang/karelc/pkg/dialect"
)

// conditionAtoms is the fixed set spec.md §4.4 names.
var conditionAtoms = map[string]bool{
	"wall": true, "flag": true, "home": true,
	"north": true, "south": true, "east": true, "west": true,
}

// ParseCondition parses a condition expression ("is_X" or "not_X")
// starting at the beginning of s, translates it via dia, and returns
// the translated TGT text plus the number of bytes of s consumed.
func ParseCondition(s string, dia *dialect.Table) (text string, consumed int, err error) {
	var negated bool
	var rest string
	switch {
	case strings.HasPrefix(s, "is_"):
		negated = false
		rest = s[len("is_"):]
	case strings.HasPrefix(s, "not_"):
		negated = true
		rest = s[len("not_"):]
	default:
		return "", 0, fmt.Errorf("condition must start with is_ or not_, got %q", firstToken(s))
	}

	atom := readAtom(rest)
	if atom == "" || !conditionAtoms[atom] {
		return "", 0, fmt.Errorf("unknown condition atom %q", atom)
	}

	prefix := "is_"
	if negated {
		prefix = "not_"
	}
	consumed = len(prefix) + len(atom)

	atomLexeme := dia.Keyword(atom)
	if negated {
		return fmt.Sprintf("%s %s", dia.Keyword("not"), atomLexeme), consumed, nil
	}
	return fmt.Sprintf("%s %s", dia.Keyword("is"), atomLexeme), consumed, nil
}

// readAtom reads a maximal run of identifier characters from the start
// of s.
func readAtom(s string) string {
	i := 0
	for i < len(s) {
		b := s[i]
		if b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') {
			i++
			continue
		}
		break
	}
	return s[:i]
}

// firstToken is used only to build a readable error message.
func firstToken(s string) string {
	for i, r := range s {
		if r == ' ' || r == ';' || r == '{' || r == '\n' {
			return s[:i]
		}
	}
	return s
}
