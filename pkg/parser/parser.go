package parser

import (
	"fmt"
	"strings"

	"github.com/kdlang/karelc/pkg/dialect"
	"github.com/kdlang/karelc/pkg/proto"
	"github.com/kdlang/karelc/pkg/scanner"
)

// Import is a parsed top-level `import "path"` declaration.
type Import struct {
	Path string
	Line int
}

// ParseFile is the Prototype Parser (spec.md §4.2): it walks a whole
// source file's raw text, dispatching each top-level construct on its
// prefix (`import`/`fn`/error), defining every parsed Prototype into
// reg, and collecting the file's import declarations for the Import
// Driver to resolve.
func ParseFile(file, content string, dia *dialect.Table, reg *proto.Registry) ([]Import, error) {
	s := scanner.New(content, 1)
	var imports []Import

	for {
		s.SkipWhitespace()
		if s.StripLineComment() {
			continue
		}
		s.SkipWhitespace()
		if s.Done() {
			break
		}

		line := s.Line()
		word := s.ReadIdent()
		switch word {
		case "import":
			imp, err := parseImport(file, line, s)
			if err != nil {
				return nil, err
			}
			imports = append(imports, imp)
		case "fn":
			if err := parseFn(file, line, s, dia, reg); err != nil {
				return nil, err
			}
		case "":
			return nil, fmt.Errorf("%s:%d: expression outside of a fn", file, line)
		default:
			return nil, fmt.Errorf("%s:%d: expression outside of a fn (got %q)", file, line, word)
		}
	}
	return imports, nil
}

func parseImport(file string, line int, s *scanner.Scanner) (Import, error) {
	s.SkipWhitespace()
	if s.Peek() != '"' {
		return Import{}, fmt.Errorf("%s:%d: import expects a quoted path", file, line)
	}
	s.Advance()
	start := s.Pos()
	for !s.Done() && s.Peek() != '"' {
		s.Advance()
	}
	if s.Done() {
		return Import{}, fmt.Errorf("%s:%d: unterminated import path", file, line)
	}
	path := s.Src()[start:s.Pos()]
	s.Advance()
	return Import{Path: path, Line: line}, nil
}

// parseFn parses a single `fn name[(params)] [slicing] { body }`
// declaration and defines it in reg.
func parseFn(file string, line int, s *scanner.Scanner, dia *dialect.Table, reg *proto.Registry) error {
	s.SkipWhitespace()

	headerStart := s.Pos()
	depth := 0
	for !s.Done() {
		b := s.Peek()
		if b == '(' {
			depth++
		} else if b == ')' {
			depth--
		} else if b == '{' && depth == 0 {
			break
		}
		s.Advance()
	}
	if s.Done() {
		return fmt.Errorf("%s:%d: fn declaration never reaches '{'", file, line)
	}
	headerText := s.Src()[headerStart:s.Pos()]
	s.Advance() // consume '{'

	name, params, isSlicing, err := parseHeader(file, line, headerText)
	if err != nil {
		return err
	}
	if dia.IsReserved(name) {
		return fmt.Errorf("%s:%d: fn name %q collides with a reserved dialect identifier", file, line, name)
	}

	bodyStart := s.Pos()
	closeBraceIdx, endLine, err := scanBraceBody(file, s)
	if err != nil {
		return err
	}
	if err := verifyClosingBraceAlone(file, s.Src(), closeBraceIdx); err != nil {
		return err
	}
	bodyRaw := s.Src()[bodyStart:closeBraceIdx]
	s.Advance() // consume the final '}'

	p := &proto.Prototype{
		Name:             name,
		Params:           params,
		IsSlicing:        isSlicing,
		BodyText:         scanner.StripComments(bodyRaw),
		IsLambda:         false,
		TopLevelImplicit: len(params) == 0 && !isSlicing,
		File:             file,
		Line:             line,
		EndingLine:       endLine,
	}
	return reg.Define(p)
}

// parseHeader parses the text between `fn` and the opening `{`: the
// name, an optional parenthesized template-parameter list, and an
// optional trailing `slicing` marker.
func parseHeader(file string, line int, headerText string) (name string, params []proto.Param, isSlicing bool, err error) {
	text := strings.TrimSpace(headerText)
	if text == "" {
		return "", nil, false, fmt.Errorf("%s:%d: fn declaration missing a name", file, line)
	}

	i := 0
	for i < len(text) {
		b := text[i]
		if b == '_' || b == '-' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') {
			i++
			continue
		}
		break
	}
	name = text[:i]
	if name == "" {
		return "", nil, false, fmt.Errorf("%s:%d: fn declaration has no valid name", file, line)
	}
	rest := strings.TrimSpace(text[i:])

	if strings.HasPrefix(rest, "(") {
		args, consumed, perr := ParseTemplateArgs(rest)
		if perr != nil {
			return "", nil, false, fmt.Errorf("%s:%d: %w", file, line, perr)
		}
		for _, a := range args {
			params = append(params, proto.Param{Name: a, IsTemplate: true})
		}
		rest = strings.TrimSpace(rest[consumed:])
	}

	switch rest {
	case "":
		isSlicing = false
	case "slicing":
		isSlicing = true
	default:
		return "", nil, false, fmt.Errorf("%s:%d: unexpected text %q in fn header", file, line, rest)
	}

	return name, params, isSlicing, nil
}

// scanBraceBody scans from just after a fn's opening `{` (brace depth
// already at 1) to the matching top-level closing `}`, skipping line
// comments, and returns the byte index of that closing brace and the
// line it is on.
func scanBraceBody(file string, s *scanner.Scanner) (closeIdx int, line int, err error) {
	depth := 1
	for !s.Done() {
		if s.StripLineComment() {
			continue
		}
		b := s.Peek()
		switch b {
		case '{':
			depth++
			s.Advance()
		case '}':
			depth--
			if depth == 0 {
				return s.Pos(), s.Line(), nil
			}
			s.Advance()
		default:
			s.Advance()
		}
	}
	return 0, 0, fmt.Errorf("%s: fn never closed (missing '}') at EOF", file)
}

// verifyClosingBraceAlone enforces spec.md §4.2: "the closing `}` of a
// top-level prototype must be the last non-comment character on its
// line."
func verifyClosingBraceAlone(file, content string, closeIdx int) error {
	lineEnd := len(content)
	if idx := strings.IndexByte(content[closeIdx:], '\n'); idx >= 0 {
		lineEnd = closeIdx + idx
	}
	afterBrace := content[closeIdx+1 : lineEnd]
	if c := strings.Index(afterBrace, "//"); c >= 0 {
		afterBrace = afterBrace[:c]
	}
	if strings.TrimSpace(afterBrace) != "" {
		return fmt.Errorf("%s: closing '}' must be the last non-comment character on its line", file)
	}
	return nil
}
