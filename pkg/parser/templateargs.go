package parser

import (
	"fmt"
	"strings"
)

// ParseTemplateArgs parses a comma-separated, nesting-aware template
// argument list starting at the beginning of s, per spec.md §4.4: if s
// has no "(", the result is an empty tuple and zero bytes consumed.
// Otherwise the matching ")" is located (tracking nested parens), the
// contents are split on top-level commas and trimmed, and an empty
// argument is rejected unless the whole list is textually empty ("()").
func ParseTemplateArgs(s string) (args []string, consumed int, err error) {
	if len(s) == 0 || s[0] != '(' {
		return nil, 0, nil
	}

	depth := 0
	closeIdx := -1
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				closeIdx = i
			}
		}
		if closeIdx >= 0 {
			break
		}
	}
	if closeIdx < 0 {
		return nil, 0, fmt.Errorf("unbalanced template argument list: %q", s)
	}

	inner := s[1:closeIdx]
	consumed = closeIdx + 1

	if strings.TrimSpace(inner) == "" {
		return nil, consumed, nil
	}

	parts := splitTopLevelCommas(inner)
	args = make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			return nil, 0, fmt.Errorf("empty template argument in %q", s[:consumed])
		}
		args = append(args, trimmed)
	}
	return args, consumed, nil
}

// splitTopLevelCommas splits s on commas that are not nested inside
// parentheses.
func splitTopLevelCommas(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}
