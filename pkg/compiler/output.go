package compiler

import (
	"strings"

	"github.com/kdlang/karelc/pkg/proto"
)

// Output is the Output Assembler (spec.md §4.6): a monotonically
// growing buffer that the Instance Compiler appends freshly compiled
// segments to, in emission order. There is no separate link/resolve
// step — every emitted_name is chosen deterministically before any
// segment calls it, so forward references resolve by name alone at TGT
// load time.
type Output struct {
	segments []proto.Segment
	origins  []SegmentOrigin
}

// SegmentOrigin is the SRC declaration a segment was compiled from, at
// the granularity the Instance Compiler actually tracks (one (file,
// line) per source prototype, not per TGT statement — compileBody
// doesn't thread per-statement line numbers through emission).
type SegmentOrigin struct {
	File string
	Line int
}

// NewOutput creates an empty Output buffer.
func NewOutput() *Output {
	return &Output{}
}

// Append adds every segment of inst, in the order compileBody produced
// them, to the buffer, tagging each with inst's declaration site.
func (o *Output) Append(inst *proto.Instance) {
	o.segments = append(o.segments, inst.Segments...)
	origin := SegmentOrigin{File: inst.Prototype.File, Line: inst.Prototype.Line}
	for range inst.Segments {
		o.origins = append(o.origins, origin)
	}
}

// Segments exposes the assembled segment list in emission order, for
// -vv registry dumps and sourcemap generation.
func (o *Output) Segments() []proto.Segment {
	return o.segments
}

// Origins exposes each segment's declaration-site origin, parallel to
// Segments, for sourcemap generation.
func (o *Output) Origins() []SegmentOrigin {
	return o.origins
}

// Render assembles the buffer into the final TGT text: each segment
// headed by its own name line, then its body lines, blank-line
// separated, uppercased throughout per spec.md §4.6.
func (o *Output) Render() string {
	var b strings.Builder
	for i, seg := range o.segments {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strings.ToUpper(seg.Name))
		b.WriteByte('\n')
		for _, line := range seg.Lines {
			b.WriteString(strings.ToUpper(line))
			b.WriteByte('\n')
		}
	}
	return b.String()
}
