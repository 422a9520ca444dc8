package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kdlang/karelc/pkg/parser"
	"github.com/kdlang/karelc/pkg/proto"
	"github.com/kdlang/karelc/pkg/scanner"
)

// segBuf is one in-progress TGT segment: its eventual name, the lines
// compiled into it so far, and whether the most recently appended line
// was a tail-transferring call (push/commit/recall) — when that call is
// still the segment's last line once compileBody finishes, the segment's
// closing END is suppressed for it. A push's tail call is not always
// final: a pop can later restore this segment as bc.cur and append more
// statements after it, which clears the flag again via emit.
type segBuf struct {
	name        string
	lines       []string
	lastWasTail bool
}

func newSegBuf(name string) *segBuf {
	return &segBuf{name: name}
}

func (b *segBuf) emit(depth int, line string) {
	b.lines = append(b.lines, strings.Repeat("   ", depth)+line)
	b.lastWasTail = false
}

func (b *segBuf) emitTail(depth int, line string) {
	b.lines = append(b.lines, strings.Repeat("   ", depth)+line)
	b.lastWasTail = true
}

// sliceFrame is one active push/pop stack-slice entry: the slice's name
// and the segment that was active just before the push, so pop can
// restore it (spec.md §4.5's "move back to the segment at index s").
type sliceFrame struct {
	name     string
	savedSeg *segBuf
}

// bodyCompiler holds the mutable state for compiling a single
// Instance's body: a list of segment buffers and the current one, which
// only segment-root push/pop switch between. Nested if/while/for blocks
// are compiled straight into bc.cur at a deeper indent, and a lambda body
// is compiled as its own Instance, since push/pop are only legal at
// segment-root scope.
type bodyCompiler struct {
	c    *Compiler
	inst *proto.Instance

	segs       []*segBuf
	cur        *segBuf
	sliceStack []sliceFrame
}

// compileBody substitutes inst's template and inherited bindings into
// its prototype's body text, then scans the result, producing inst's
// finalized Segments.
func (c *Compiler) compileBody(inst *proto.Instance, loc proto.CallLocation) error {
	text := substituteTemplates(inst.Prototype.BodyText, paramNamesOf(inst.Prototype), inst.TemplateValues)
	text = substituteTemplates(text, inst.InheritedParams, inst.InheritedValues)

	bc := &bodyCompiler{c: c, inst: inst}
	bc.cur = newSegBuf(inst.SegmentName(0))
	bc.segs = []*segBuf{bc.cur}

	s := scanner.New(text, inst.Prototype.Line)
	if err := bc.parseStatements(s, 1, inst.Prototype.File, false); err != nil {
		return err
	}

	if len(bc.sliceStack) != 0 {
		return c.Sink.Errorf(inst.Prototype.File, inst.Prototype.EndingLine, 1,
			"un-popped stack slice %q at body end", bc.sliceStack[len(bc.sliceStack)-1].name)
	}

	for _, seg := range bc.segs {
		if !seg.lastWasTail {
			seg.lines = append(seg.lines, c.Opts.Dialect.Keyword("end"))
		}
		inst.Segments = append(inst.Segments, proto.Segment{Name: seg.name, Lines: seg.lines})
	}
	return nil
}

// substituteTemplates textually replaces every "[name]" occurrence with
// its bound value, in order, matching spec.md §4.5's substitution pass.
func substituteTemplates(body string, params, values []string) string {
	if len(params) == 0 {
		return body
	}
	var rep []string
	for i, p := range params {
		if i >= len(values) {
			break
		}
		rep = append(rep, "["+p+"]", values[i])
	}
	if len(rep) == 0 {
		return body
	}
	return strings.NewReplacer(rep...).Replace(body)
}

// paramNamesOf extracts a Prototype's own parameter names, in order.
func paramNamesOf(p *proto.Prototype) []string {
	names := make([]string, len(p.Params))
	for i, prm := range p.Params {
		names[i] = prm.Name
	}
	return names
}

// parseStatements is the statement loop for every depth: it reads
// statements and blocks until the input is exhausted (segment root) or,
// with stopAtCloseBrace, until the enclosing block's closing '}'.
// push/pop are accepted only at depth 1; recall and commit are accepted
// at any depth.
func (bc *bodyCompiler) parseStatements(s *scanner.Scanner, depth int, file string, stopAtCloseBrace bool) error {
	canAttachElse := false

	for {
		s.SkipWhitespace()
		if s.StripLineComment() {
			continue
		}
		s.SkipWhitespace()
		if s.Done() {
			if stopAtCloseBrace {
				return fmt.Errorf("%s: block never closed (missing '}')", file)
			}
			return nil
		}
		if s.Peek() == '}' {
			if !stopAtCloseBrace {
				return fmt.Errorf("%s:%d: unexpected '}'", file, s.Line())
			}
			s.Advance()
			return nil
		}

		line := s.Line()
		head, term, err := bc.readHead(s, file)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", file, line, err)
		}
		trimmedHead := strings.TrimSpace(head)

		if term == '{' || term == ';' {
			s.Advance() // consume the terminator itself
		}

		if trimmedHead == "else" {
			if term != '{' {
				return fmt.Errorf("%s:%d: bracket-less else", file, line)
			}
			if !canAttachElse {
				return fmt.Errorf("%s:%d: else without a matching if", file, line)
			}
			bc.cur.lines = bc.cur.lines[:len(bc.cur.lines)-1] // drop the speculative empty-else END
			if err := bc.parseStatements(s, depth+1, file, true); err != nil {
				return err
			}
			bc.cur.emit(depth, bc.c.Opts.Dialect.Keyword("end"))
			canAttachElse = false
			continue
		}
		canAttachElse = false

		switch term {
		case '{':
			if err := bc.dispatchBlock(s, trimmedHead, depth, file, line, &canAttachElse); err != nil {
				return err
			}
		case ';':
			if err := bc.dispatchStatement(s, trimmedHead, depth, file, line); err != nil {
				return err
			}
		case 0:
			if trimmedHead != "" {
				return fmt.Errorf("%s:%d: trailing statement %q has no terminator", file, line, trimmedHead)
			}
			return nil
		}
	}
}

// readHead accumulates characters up to (not including) the next
// top-level '{' or ';', collapsing runs of whitespace to a single
// space, and resolves any residual "[name]" left over from template
// substitution by warning ("unresolved template target") and skipping
// it, per spec.md §4.5. Returns the terminator byte actually found (0
// at EOF, with the terminator left unconsumed for '{'/';' so the caller
// can act on it).
func (bc *bodyCompiler) readHead(s *scanner.Scanner, file string) (head string, terminator byte, err error) {
	var b strings.Builder
	lastWasSpace := false
	for !s.Done() {
		c := s.Peek()
		switch c {
		case '{', ';':
			return b.String(), c, nil
		case ' ', '\t', '\n', '\r':
			if !lastWasSpace {
				b.WriteByte(' ')
				lastWasSpace = true
			}
			s.Advance()
		case '[':
			targetLine := s.Line()
			s.Advance()
			start := s.Pos()
			for !s.Done() && s.Peek() != ']' {
				s.Advance()
			}
			if s.Done() {
				return "", 0, fmt.Errorf("unresolved template target never closed")
			}
			target := s.Src()[start:s.Pos()]
			s.Advance()
			if werr := bc.c.Sink.Warnf(file, targetLine, 1, "unresolved template target %q", target); werr != nil {
				return "", 0, werr
			}
			lastWasSpace = false
		default:
			b.WriteByte(c)
			s.Advance()
			lastWasSpace = false
		}
	}
	return b.String(), 0, nil
}

// dispatchBlock handles a `{`-terminated head: if/while/for/lambda.
func (bc *bodyCompiler) dispatchBlock(s *scanner.Scanner, head string, depth int, file string, line int, canAttachElse *bool) error {
	dia := bc.c.Opts.Dialect

	switch {
	case strings.HasPrefix(head, "if "):
		condText, consumed, err := parser.ParseCondition(strings.TrimSpace(head[len("if "):]), dia)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", file, line, err)
		}
		if consumed != len(strings.TrimSpace(head[len("if "):])) {
			return fmt.Errorf("%s:%d: trailing text after if condition", file, line)
		}
		bc.cur.emit(depth, fmt.Sprintf("%s %s", dia.Keyword("if"), condText))
		if err := bc.compileNestedBlock(s, depth, file); err != nil {
			return err
		}
		bc.cur.emit(depth, dia.Keyword("else"))
		bc.cur.emit(depth, dia.Keyword("end"))
		*canAttachElse = true
		return nil

	case strings.HasPrefix(head, "while "):
		condText, consumed, err := parser.ParseCondition(strings.TrimSpace(head[len("while "):]), dia)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", file, line, err)
		}
		if consumed != len(strings.TrimSpace(head[len("while "):])) {
			return fmt.Errorf("%s:%d: trailing text after while condition", file, line)
		}
		bc.cur.emit(depth, fmt.Sprintf("%s %s", dia.Keyword("while"), condText))
		if err := bc.compileNestedBlock(s, depth, file); err != nil {
			return err
		}
		bc.cur.emit(depth, dia.Keyword("end"))
		return nil

	case strings.HasPrefix(head, "for "):
		numText := strings.TrimSpace(head[len("for "):])
		n, err := strconv.Atoi(numText)
		if err != nil {
			return fmt.Errorf("%s:%d: for count %q is not an integer", file, line, numText)
		}
		if n > bc.c.Opts.MaxForLoopCount {
			if werr := bc.c.Sink.Warnf(file, line, 1, "for loop count %d exceeds configured maximum %d", n, bc.c.Opts.MaxForLoopCount); werr != nil {
				return werr
			}
		}
		bc.cur.emit(depth, fmt.Sprintf("%s %d%s", dia.Keyword("for"), n, dia.Keyword("for-suffix")))
		if err := bc.compileNestedBlock(s, depth, file); err != nil {
			return err
		}
		bc.cur.emit(depth, dia.Keyword("end"))
		return nil

	case strings.TrimSpace(head) == "":
		return bc.dispatchLambda(s, depth, file, line)

	default:
		return fmt.Errorf("%s:%d: bracket-less block header %q", file, line, head)
	}
}

// compileNestedBlock parses the statements of an if/while/for body
// (depth+1) into bc.cur, stopping at and consuming the block's closing
// '}'. Nested blocks never switch bc.cur themselves — push/pop are
// rejected below segment-root scope inside dispatchStatement.
func (bc *bodyCompiler) compileNestedBlock(s *scanner.Scanner, depth int, file string) error {
	return bc.parseStatements(s, depth+1, file, true)
}

// dispatchLambda handles a plain `{ ... }(args);` block: it is a lambda
// definition, auto-named against its enclosing instance, compiled as
// its own Instance and called by name from the enclosing segment.
func (bc *bodyCompiler) dispatchLambda(s *scanner.Scanner, depth int, file string, line int) error {
	bodyText, err := readBraceBody(s)
	if err != nil {
		return fmt.Errorf("%s:%d: %w", file, line, err)
	}

	s.SkipWhitespace()
	rest := s.Src()[s.Pos():]
	args, consumed, err := parser.ParseTemplateArgs(rest)
	if err != nil {
		return fmt.Errorf("%s:%d: %w", file, line, err)
	}
	for i := 0; i < consumed; i++ {
		s.Advance()
	}
	s.SkipWhitespace()
	if s.Peek() != ';' {
		return fmt.Errorf("%s:%d: lambda statement must end with ';'", file, s.Line())
	}
	s.Advance()

	lambdaProto := &proto.Prototype{
		Name:       bc.c.nextLambdaName(bc.inst),
		BodyText:   bodyText,
		IsSlicing:  bc.inst.Continuation != nil,
		IsLambda:   true,
		File:       file,
		Line:       line,
		EndingLine: s.Line(),
	}

	inheritedParams := append(append([]string{}, paramNamesOf(bc.inst.Prototype)...), bc.inst.InheritedParams...)
	inheritedValues := append(append([]string{}, bc.inst.TemplateValues...), bc.inst.InheritedValues...)

	loc := proto.CallLocation{
		TemplateValues:  args,
		InheritedParams: inheritedParams,
		InheritedValues: inheritedValues,
		Continuation:    bc.inst.Continuation,
		CallerFile:      file,
		CallerLine:      line,
	}

	lambdaInst, err := bc.c.Compile(lambdaProto, loc)
	if err != nil {
		return err
	}
	bc.cur.emit(depth, lambdaInst.BaseName)
	return nil
}

// readBraceBody reads from just past an already-consumed opening '{' up
// to and including its matching '}', tracking nested braces, and
// returns the text between them (exclusive). Line comments are skipped
// so a stray "//{" or "//}" inside one doesn't unbalance the count.
func readBraceBody(s *scanner.Scanner) (string, error) {
	start := s.Pos()
	depth := 1
	for !s.Done() {
		if s.StripLineComment() {
			continue
		}
		switch s.Peek() {
		case '{':
			depth++
			s.Advance()
		case '}':
			depth--
			if depth == 0 {
				body := s.Src()[start:s.Pos()]
				s.Advance()
				return body, nil
			}
			s.Advance()
		default:
			s.Advance()
		}
	}
	return "", fmt.Errorf("lambda body never closed (missing '}')")
}

// dispatchStatement handles a ';'-terminated statement head at any
// depth: the fixed statement forms spec.md §4.5 lists, falling through
// to a plain call when nothing else matches.
func (bc *bodyCompiler) dispatchStatement(s *scanner.Scanner, head string, depth int, file string, line int) error {
	dia := bc.c.Opts.Dialect

	switch head {
	case "++":
		place, ok := dia.Primitive("place")
		if !ok {
			return fmt.Errorf("%s:%d: dialect %q missing primitive \"place\"", file, line, dia.Name)
		}
		bc.cur.emit(depth, place)
		return nil
	case "--":
		pick, ok := dia.Primitive("pick")
		if !ok {
			return fmt.Errorf("%s:%d: dialect %q missing primitive \"pick\"", file, line, dia.Name)
		}
		bc.cur.emit(depth, pick)
		return nil
	case "no_op", "":
		return nil
	}

	if tgt, ok := dia.Primitive(head); ok {
		bc.cur.emit(depth, tgt)
		return nil
	}

	if eq := strings.IndexByte(head, '='); eq >= 0 {
		lhs := strings.TrimSpace(head[:eq])
		rhs := strings.TrimSpace(head[eq+1:])
		if rhs == "push" || strings.HasPrefix(rhs, "push ") {
			return bc.dispatchPush(lhs, strings.TrimSpace(strings.TrimPrefix(rhs, "push")), depth, file, line)
		}
		return fmt.Errorf("%s:%d: unsupported assignment %q", file, line, head)
	}

	if head == "pop" || strings.HasPrefix(head, "pop ") {
		return bc.dispatchPop(strings.TrimSpace(strings.TrimPrefix(head, "pop")), depth, file, line)
	}

	if head == "recall" || strings.HasPrefix(head, "recall(") || strings.HasPrefix(head, "recall ") {
		return bc.dispatchRecall(head, depth, file, line)
	}

	if head == "commit" || strings.HasPrefix(head, "commit(") || strings.HasPrefix(head, "commit ") {
		return bc.dispatchCommit(head, depth, file, line)
	}

	return bc.dispatchCall(head, depth, file, line)
}

// splitNameArgs splits a statement head into its leading identifier and
// whatever (trimmed) text remains, e.g. "foo(a, b)" -> ("foo", "(a, b)").
func splitNameArgs(head string) (name, rest string) {
	i := 0
	for i < len(head) && isIdentByte(head[i]) {
		i++
	}
	return head[:i], strings.TrimSpace(head[i:])
}

func isIdentByte(b byte) bool {
	return b == '_' || b == '-' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// dispatchRecall compiles the enclosing prototype again under a fresh
// CallLocation and emits a tail call to the result.
func (bc *bodyCompiler) dispatchRecall(head string, depth int, file string, line int) error {
	_, argsText := splitNameArgs(head)
	args, consumed, err := parser.ParseTemplateArgs(argsText)
	if err != nil {
		return fmt.Errorf("%s:%d: %w", file, line, err)
	}
	if consumed != len(argsText) {
		return fmt.Errorf("%s:%d: trailing text after recall arguments", file, line)
	}
	if depth == 1 {
		if werr := bc.c.Sink.Warnf(file, line, 1,
			"recall at segment-root scope is an unconditional tail-recursion that never terminates"); werr != nil {
			return werr
		}
	}

	// ParseTemplateArgs returns a nil slice both for a bare "recall" and
	// for an explicit empty "recall()" — distinguish them by whether a
	// "(" was actually present, since the two mean different things here.
	values := bc.inst.TemplateValues
	if strings.HasPrefix(argsText, "(") {
		values = args
	}

	loc := proto.CallLocation{
		TemplateValues:  values,
		InheritedParams: bc.inst.InheritedParams,
		InheritedValues: bc.inst.InheritedValues,
		Continuation:    bc.inst.Continuation,
		CallerFile:      file,
		CallerLine:      line,
	}
	again, err := bc.c.Compile(bc.inst.Prototype, loc)
	if err != nil {
		return err
	}
	bc.cur.emitTail(depth, again.BaseName)
	return nil
}

// dispatchCommit requires the enclosing prototype to be slicing with an
// active continuation, emitting a tail call into it; otherwise it warns.
func (bc *bodyCompiler) dispatchCommit(head string, depth int, file string, line int) error {
	_, argsText := splitNameArgs(head)
	_, consumed, err := parser.ParseTemplateArgs(argsText)
	if err != nil {
		return fmt.Errorf("%s:%d: %w", file, line, err)
	}
	if consumed != len(argsText) {
		return fmt.Errorf("%s:%d: trailing text after commit arguments", file, line)
	}

	if !bc.inst.Prototype.IsSlicing || bc.inst.Continuation == nil {
		return bc.c.Sink.Warnf(file, line, 1, "commit used while not pushing a stack slice")
	}
	bc.cur.emitTail(depth, bc.inst.Continuation.Name())
	return nil
}

// dispatchPush begins a stack slice: it closes out the current segment
// with a tail call to the callee, opens a fresh continuation segment
// (the segment a later "commit" inside the callee's push-chain resumes
// into), and switches bc.cur to it. The segment active at the moment of
// the push is saved on the slice frame so the matching pop can restore
// it — statements between pop and the end of the body belong to the
// caller's own segment, not to the continuation (see dispatchPop).
func (bc *bodyCompiler) dispatchPush(sliceName, rest string, depth int, file string, line int) error {
	if depth != 1 {
		return fmt.Errorf("%s:%d: push below segment-root scope", file, line)
	}
	if sliceName == "" {
		return fmt.Errorf("%s:%d: push requires a slice name", file, line)
	}
	for _, f := range bc.sliceStack {
		if f.name == sliceName {
			return fmt.Errorf("%s:%d: stack slice %q reused", file, line, sliceName)
		}
	}

	calleeName, argsText := splitNameArgs(rest)
	if calleeName == "" {
		return fmt.Errorf("%s:%d: push requires a callee", file, line)
	}
	args, consumed, err := parser.ParseTemplateArgs(argsText)
	if err != nil {
		return fmt.Errorf("%s:%d: %w", file, line, err)
	}
	if consumed != len(argsText) {
		return fmt.Errorf("%s:%d: trailing text after push arguments", file, line)
	}

	callee, err := bc.c.lookupCallee(calleeName, file, line)
	if err != nil {
		return err
	}
	if !callee.IsSlicing {
		return fmt.Errorf("%s:%d: push of non-slicing callee %q", file, line, calleeName)
	}

	nextIdx := len(bc.segs)
	contSeg := newSegBuf(bc.inst.SegmentName(nextIdx))
	cont := &proto.Callable{Instance: bc.inst, SegmentIndex: nextIdx}

	calleeLoc := proto.CallLocation{
		TemplateValues: args,
		Continuation:   cont,
		CallerFile:     file,
		CallerLine:     line,
	}
	calleeInst, err := bc.c.Compile(callee, calleeLoc)
	if err != nil {
		return err
	}

	prevSeg := bc.cur
	bc.cur.emitTail(depth, calleeInst.BaseName)

	bc.segs = append(bc.segs, contSeg)
	bc.sliceStack = append(bc.sliceStack, sliceFrame{name: sliceName, savedSeg: prevSeg})
	bc.cur = contSeg
	return nil
}

// dispatchPop validates LIFO slice-name ordering and restores bc.cur to
// the segment that was active just before the matching push — per
// spec.md §4.5, "finalize the current segment with a terminal END, move
// back to the segment at index s, and continue appending." Confirmed
// against numka.py's reference behavior on spec.md/SPEC_FULL.md §9's
// scenario 5: statements following a pop land back in the pre-push
// (caller) segment, not in the continuation segment push switched into.
// The continuation segment's own terminal END still comes from
// compileBody's segment-finalization pass, once no more statements are
// appended to it — the same mechanism every other segment closes through.
func (bc *bodyCompiler) dispatchPop(name string, depth int, file string, line int) error {
	if depth != 1 {
		return fmt.Errorf("%s:%d: pop below segment-root scope", file, line)
	}
	if len(bc.sliceStack) == 0 {
		return fmt.Errorf("%s:%d: stray pop %q: no active stack slice", file, line, name)
	}
	top := bc.sliceStack[len(bc.sliceStack)-1]
	if top.name != name {
		return fmt.Errorf("%s:%d: out-of-order pop %q: expected %q", file, line, name, top.name)
	}
	// The continuation segment push switched into is now closed off — it
	// gets its own terminal END from compileBody's segment-finalization
	// pass, the same as any other segment, once no more statements are
	// appended to it.
	bc.sliceStack = bc.sliceStack[:len(bc.sliceStack)-1]
	bc.cur = top.savedSeg
	return nil
}

// dispatchCall resolves a plain call, propagating the caller's own
// continuation to the callee only when the callee is itself slicing, so
// calls made from within a push chain keep that chain's continuation.
func (bc *bodyCompiler) dispatchCall(head string, depth int, file string, line int) error {
	name, argsText := splitNameArgs(head)
	if name == "" {
		return fmt.Errorf("%s:%d: syntax error in statement %q", file, line, head)
	}
	args, consumed, err := parser.ParseTemplateArgs(argsText)
	if err != nil {
		return fmt.Errorf("%s:%d: %w", file, line, err)
	}
	if consumed != len(argsText) {
		return fmt.Errorf("%s:%d: trailing text after call to %q", file, line, name)
	}

	callee, err := bc.c.lookupCallee(name, file, line)
	if err != nil {
		return err
	}

	var cont *proto.Callable
	if callee.IsSlicing {
		cont = bc.inst.Continuation
	}

	loc := proto.CallLocation{
		TemplateValues: args,
		Continuation:   cont,
		CallerFile:     file,
		CallerLine:     line,
	}
	calleeInst, err := bc.c.Compile(callee, loc)
	if err != nil {
		return err
	}
	bc.cur.emit(depth, calleeInst.BaseName)
	return nil
}
