// Package proto holds the compiler's data model: the Prototype registry
// (one entry per fn as written in SRC) and the Instance cache (one entry
// per monomorphized compilation of a fn), plus the Callable and
// CallLocation records that stitch stack-slice segments back together.
package proto

// Param is a single formal parameter of a fn, carrying both its name and
// whether it is a template parameter (substituted textually at compile
// time) or a runtime value parameter (irrelevant to TGT, which has none,
// but needed while resolving a call's arguments against the prototype).
type Param struct {
	Name       string
	IsTemplate bool
}

// Prototype is a fn as the parser found it: name, formal parameters,
// and body_text exactly as spec.md §3 defines it — comments stripped,
// lines trimmed, newlines preserved, left as a single string. The
// Instance Compiler scans this text directly (after template
// substitution) rather than walking a pre-built statement tree, since
// `[p]` placeholders must be substituted textually before the body's
// shape (calls vs. blocks vs. pushes) can even be determined — a lambda
// header, for instance, can itself be the text a template parameter
// expands into.
type Prototype struct {
	Name       string
	Params     []Param
	IsSlicing  bool
	BodyText   string
	IsLambda   bool

	// TopLevelImplicit is true iff Params is empty, IsSlicing is false,
	// and the prototype is not a lambda (spec.md §3).
	TopLevelImplicit bool

	// File, Line, EndingLine locate the fn for diagnostics.
	File       string
	Line       int
	EndingLine int
}

// HasTemplateParams reports whether any formal parameter is a template
// parameter requiring substitution before compilation.
func (p *Prototype) HasTemplateParams() bool {
	for _, prm := range p.Params {
		if prm.IsTemplate {
			return true
		}
	}
	return false
}

// Instance is one monomorphized compilation of a Prototype: the dedup
// key that produced it, its deterministic base emitted_name, and its
// compiled segments once compilation has run. Instances are memoized by
// Key so recall cycles terminate and repeated calls with identical
// arguments share output.
type Instance struct {
	Key       Key
	Prototype *Prototype

	// BaseName is the deterministic emitted_name computed from Key at
	// the moment the Instance is created — before its body is compiled.
	// An instance whose body has no push emits exactly one segment named
	// BaseName; in an instance whose body pushes, the first segment is
	// also named BaseName, and each push adds a continuation segment with
	// its own name derived from it (see SegmentName).
	BaseName string

	// TemplateValues and InheritedValues/InheritedParams are the
	// resolved bindings this Instance was compiled with, kept around
	// for diagnostics and for composing a lambda's own inherited
	// bindings.
	TemplateValues   []string
	InheritedParams  []string
	InheritedValues  []string

	// Continuation is the Callable a commit inside this instance resumes
	// into, or nil when the instance was not reached through a push.
	Continuation *Callable

	// Pending marks an instance whose compilation has started but not
	// finished — set true when the Instance is inserted into the cache
	// (before compiling its body) and cleared on completion. A recall
	// that hits a Pending instance is a memoized cycle, not a fresh
	// compile.
	Pending bool

	// Segments holds the finalized TGT segments, in emission order
	// (segment 0 = BaseName, segment k = SegmentName(k)), once
	// compilation completes.
	Segments []Segment
}

// Segment is one emitted TGT subroutine: its name and its indented body
// lines (not yet uppercased and not including the header line or
// trailing blank separator — the Output Assembler adds those).
type Segment struct {
	Name  string
	Lines []string
}

// SegmentName returns the deterministic name of segment idx of this
// instance: BaseName for idx 0, a derived name for idx > 0. Deriving it
// from BaseName rather than storing a pre-populated slice lets a push
// site compute its continuation's name before that segment has actually
// been compiled.
func (inst *Instance) SegmentName(idx int) string {
	if idx == 0 {
		return inst.BaseName
	}
	return segmentSuffix(inst.BaseName, idx)
}

func segmentSuffix(base string, idx int) string {
	return base + "__s" + itoa(idx)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Callable is a handle to an already-created (possibly still-Pending)
// Instance that some other Instance can resume into — the continuation
// half of a push/commit pair.
type Callable struct {
	Instance *Instance

	// SegmentIndex selects which segment of Instance this handle
	// resumes at; 0 for a non-slicing target.
	SegmentIndex int
}

// Name returns the TGT subroutine name this Callable resumes at.
func (c *Callable) Name() string {
	if c == nil || c.Instance == nil {
		return ""
	}
	return c.Instance.SegmentName(c.SegmentIndex)
}

// CallLocation is the input to the Instance Compiler (spec.md §3): the
// template values and inherited bindings to compile a Prototype under,
// the continuation active at the call site (nil for none), and the
// caller's source coordinates for diagnostics.
type CallLocation struct {
	TemplateValues  []string
	InheritedParams []string
	InheritedValues []string
	Continuation    *Callable

	CallerFile string
	CallerLine int
}
