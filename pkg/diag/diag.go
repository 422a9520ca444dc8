// Package diag renders compiler diagnostics in the teacher's rustc-style
// format: a message, a file:line:column pointer, and a small window of
// source context with a caret under the offending column. Grounded on
// _examples/miaomiao1992-dingo/pkg/errors/enhanced.go, adapted from a
// single EnhancedError type into a Diagnostic with a Severity so the
// same renderer serves both errors and warnings, per spec.md's
// Diagnostics Sink and warning-level policy (none/all/err-promotes).
package diag

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
)

// Severity distinguishes a hard compile error from a warning that may or
// may not be promoted to an error depending on CLI policy.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Diagnostic is one compiler message with enough location information to
// render source context around it.
type Diagnostic struct {
	Severity Severity
	Message  string
	File     string
	Line     int // 1-based
	Column   int // 1-based, 0 if unknown
}

func (d *Diagnostic) Error() string {
	return d.Format(false)
}

// contextRadius is the number of lines shown above and below the
// offending line, matching the teacher's ±2 window.
const contextRadius = 2

var (
	styleError   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5F87"))
	styleWarning = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F2C94C"))
	styleLoc     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8A8A8A"))
	styleCaret   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5F87"))
	styleGutter  = lipgloss.NewStyle().Foreground(lipgloss.Color("#5C5C5C"))
)

// Format renders the diagnostic. When color is false, styling is
// skipped entirely (used for non-tty output and for golden-file tests).
func (d *Diagnostic) Format(color bool) string {
	var b strings.Builder

	label := fmt.Sprintf("%s: %s", d.Severity, d.Message)
	loc := fmt.Sprintf("  --> %s:%d:%d", d.File, d.Line, d.Column)
	if color {
		style := styleError
		if d.Severity == SeverityWarning {
			style = styleWarning
		}
		label = style.Render(label)
		loc = styleLoc.Render(loc)
	}
	b.WriteString(label)
	b.WriteString("\n")
	b.WriteString(loc)
	b.WriteString("\n")

	lines, firstLineNo, err := extractSourceLines(d.File, d.Line, contextRadius)
	if err != nil {
		return b.String()
	}

	gutterWidth := len(strconv.Itoa(firstLineNo + len(lines) - 1))
	for i, line := range lines {
		lineNo := firstLineNo + i
		gutter := fmt.Sprintf("%*d | ", gutterWidth, lineNo)
		if color {
			gutter = styleGutter.Render(gutter)
		}
		b.WriteString(gutter)
		b.WriteString(line)
		b.WriteString("\n")
		if lineNo == d.Line {
			pad := strings.Repeat(" ", gutterWidth+3+caretOffset(line, d.Column))
			caret := pad + "^"
			if color {
				caret = strings.Repeat(" ", gutterWidth+3) + styleCaret.Render(strings.Repeat(" ", caretOffset(line, d.Column))+"^")
			}
			b.WriteString(caret)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// caretOffset converts a 1-based column into a rune offset, clamped to
// the line's length so a stale column never panics or wraps.
func caretOffset(line string, column int) int {
	if column <= 1 {
		return 0
	}
	n := utf8.RuneCountInString(line)
	if column-1 > n {
		return n
	}
	return column - 1
}

// sourceCacheLimit bounds the number of distinct source files kept
// resident, evicted least-recently-used first — matching the teacher's LRU cache
// around repeated diagnostics against the same file.
const sourceCacheLimit = 100

var (
	cacheMu    sync.Mutex
	cacheOrder []string
	cacheLines = map[string][]string{}
)

// extractSourceLines returns the window of lines [line-radius, line+radius]
// (1-based, inclusive, clamped to file bounds) and the 1-based number of
// the first returned line.
func extractSourceLines(file string, line, radius int) ([]string, int, error) {
	all, err := cachedFileLines(file)
	if err != nil {
		return nil, 0, err
	}
	if line < 1 || line > len(all) {
		return nil, 0, fmt.Errorf("line %d out of range for %s (%d lines)", line, file, len(all))
	}

	start := line - radius
	if start < 1 {
		start = 1
	}
	end := line + radius
	if end > len(all) {
		end = len(all)
	}
	return all[start-1 : end], start, nil
}

func cachedFileLines(file string) ([]string, error) {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	if lines, ok := cacheLines[file]; ok {
		for i, f := range cacheOrder {
			if f == file {
				cacheOrder = append(append(cacheOrder[:i:i], cacheOrder[i+1:]...), file)
				break
			}
		}
		return lines, nil
	}

	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	addToCache(file, lines)
	return lines, nil
}

func addToCache(file string, lines []string) {
	if _, exists := cacheLines[file]; exists {
		cacheLines[file] = lines
		return
	}
	if len(cacheOrder) >= sourceCacheLimit {
		oldest := cacheOrder[0]
		cacheOrder = cacheOrder[1:]
		delete(cacheLines, oldest)
	}
	cacheOrder = append(cacheOrder, file)
	cacheLines[file] = lines
}

// ClearCache drops all cached source file contents. Tests call this
// between cases that reuse the same path with different contents.
func ClearCache() {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	cacheOrder = nil
	cacheLines = map[string][]string{}
}
