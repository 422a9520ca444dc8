// Package sourcemap emits the sourcemap-v3-shaped sidecar karelc writes
// next to its TGT output when --sourcemap is set (spec.md has no debug
// information of its own in TGT, so this is purely a karelc-side
// debugging aid, not a runtime dependency of the compiled program).
// Unlike the teacher's generator, which leaves VLQ encoding as a
// Phase-1.6 TODO and emits an empty "mappings" string, karelc's maps
// are line-granular (a mapping ties a whole TGT line to one SRC (file, line))
// so the VLQ encoding has no column complexity to defer — it is
// implemented here in full.
package sourcemap

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-sourcemap/sourcemap"
)

// Mapping is one generated-TGT-line to original-SRC-line correspondence.
type Mapping struct {
	GenLine    int
	SourceFile string
	SourceLine int
}

// Generator collects line mappings during Output rendering and encodes
// them into a source map v3 document.
type Generator struct {
	genFile   string
	sources   []string
	sourceIdx map[string]int
	mappings  []Mapping
}

// NewGenerator creates a Generator for a TGT output file named genFile.
func NewGenerator(genFile string) *Generator {
	return &Generator{genFile: genFile, sourceIdx: map[string]int{}}
}

// AddLine records that 1-based TGT line genLine was produced from
// sourceFile's 1-based sourceLine.
func (g *Generator) AddLine(genLine int, sourceFile string, sourceLine int) {
	if _, ok := g.sourceIdx[sourceFile]; !ok {
		g.sourceIdx[sourceFile] = len(g.sources)
		g.sources = append(g.sources, sourceFile)
	}
	g.mappings = append(g.mappings, Mapping{GenLine: genLine, SourceFile: sourceFile, SourceLine: sourceLine})
}

// Generate encodes the collected mappings into a source map v3 JSON
// document. Every generated line carries at most one segment, at
// generated column 0, since TGT has no sub-line structure to map.
func (g *Generator) Generate() ([]byte, error) {
	byLine := make(map[int]Mapping, len(g.mappings))
	maxLine := 0
	for _, m := range g.mappings {
		byLine[m.GenLine] = m
		if m.GenLine > maxLine {
			maxLine = m.GenLine
		}
	}

	var mappings strings.Builder
	prevSrcIdx, prevSrcLine := 0, 0
	for line := 1; line <= maxLine; line++ {
		if line > 1 {
			mappings.WriteByte(';')
		}
		m, ok := byLine[line]
		if !ok {
			continue
		}
		srcIdx := g.sourceIdx[m.SourceFile]
		srcLine0 := m.SourceLine - 1 // source maps are 0-based

		vlqEncode(0, &mappings) // generated column: always 0, one segment per line
		vlqEncode(srcIdx-prevSrcIdx, &mappings)
		vlqEncode(srcLine0-prevSrcLine, &mappings)
		vlqEncode(0, &mappings) // source column: untracked, always 0

		prevSrcIdx = srcIdx
		prevSrcLine = srcLine0
	}

	doc := struct {
		Version  int      `json:"version"`
		File     string   `json:"file"`
		Sources  []string `json:"sources"`
		Names    []string `json:"names"`
		Mappings string   `json:"mappings"`
	}{
		Version:  3,
		File:     g.genFile,
		Sources:  g.sources,
		Names:    []string{},
		Mappings: mappings.String(),
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling source map: %w", err)
	}
	return data, nil
}

// GenerateInline produces a base64-encoded inline source map comment,
// for callers that don't want a separate .map sidecar file.
func (g *Generator) GenerateInline() (string, error) {
	data, err := g.Generate()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("//# sourceMappingURL=data:application/json;base64,%s",
		base64.StdEncoding.EncodeToString(data)), nil
}

const base64VLQChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// vlqEncode appends n's base64 VLQ encoding to b, per the source map v3
// spec: the sign is folded into the low bit, and each base64 digit
// carries 5 value bits plus a continuation bit in its 0x20 bit.
func vlqEncode(n int, b *strings.Builder) {
	v := n << 1
	if n < 0 {
		v = (-n << 1) | 1
	}
	for {
		digit := v & 0x1f
		v >>= 5
		if v > 0 {
			digit |= 0x20
		}
		b.WriteByte(base64VLQChars[digit])
		if v == 0 {
			break
		}
	}
}

// Consumer looks up original SRC positions from a parsed source map,
// via go-sourcemap/sourcemap — the same library the teacher's own
// Consumer wraps.
type Consumer struct {
	sm *sourcemap.Consumer
}

// NewConsumer parses a source map v3 document produced by Generate.
func NewConsumer(data []byte) (*Consumer, error) {
	sm, err := sourcemap.Parse("", data)
	if err != nil {
		return nil, fmt.Errorf("parsing source map: %w", err)
	}
	return &Consumer{sm: sm}, nil
}

// Source resolves the SRC (file, line) a 1-based TGT line originated
// from.
func (c *Consumer) Source(genLine int) (file string, line int, ok bool) {
	file, _, srcLine, _, ok := c.sm.Source(genLine-1, 0)
	if !ok {
		return "", 0, false
	}
	return file, srcLine + 1, true
}
