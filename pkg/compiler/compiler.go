// Package compiler is the Instance Compiler (spec.md §4.5), the core of
// the core: it monomorphizes SRC Prototypes into named TGT subroutines,
// splitting slicing prototypes into continuation-chained segments and
// memoizing every distinct (prototype, template values, continuation)
// triple so recall cycles terminate.
package compiler

import (
	"fmt"

	"github.com/kdlang/karelc/pkg/dialect"
	"github.com/kdlang/karelc/pkg/diag"
	"github.com/kdlang/karelc/pkg/proto"
)

// Options configures a compilation run — the CLI-tunable knobs spec.md
// §6 lists that affect the Instance Compiler itself (as opposed to the
// ambient CLI/config layer that resolves them).
type Options struct {
	Dialect         *dialect.Table
	MaxForLoopCount int
	Debug           bool // -g: human-readable emitted_names
}

// Compiler drives monomorphizing compilation over a fully populated
// Prototype registry, producing a flat, ordered TGT output.
type Compiler struct {
	Registry *proto.Registry
	Cache    *proto.Cache
	Sink     *diag.Sink
	Opts     Options
	Output   *Output

	lambdaCounters map[*proto.Instance]int
}

// New creates a Compiler ready to compile every top_level_implicit
// Prototype in reg.
func New(reg *proto.Registry, sink *diag.Sink, opts Options) *Compiler {
	return &Compiler{
		Registry:       reg,
		Cache:          proto.NewCache(),
		Sink:           sink,
		Opts:           opts,
		Output:         NewOutput(),
		lambdaCounters: map[*proto.Instance]int{},
	}
}

// CompileAll compiles every top_level_implicit Prototype in the
// registry, in file/declaration order, so the output always contains
// them even without explicit callers (spec.md §3).
func (c *Compiler) CompileAll() error {
	for _, p := range c.Registry.All() {
		if !p.TopLevelImplicit {
			continue
		}
		if _, err := c.Compile(p, proto.CallLocation{}); err != nil {
			return err
		}
	}
	return nil
}

// Compile returns the (possibly cached) Instance for p under loc,
// compiling it if this is the first time this exact key is reached.
// Inserting a Pending Instance before recursing is what makes a recall
// cycle terminate: a nested call that reaches the same key again finds
// the Pending entry and reuses it instead of recursing forever.
func (c *Compiler) Compile(p *proto.Prototype, loc proto.CallLocation) (*proto.Instance, error) {
	key := proto.NewKey(p.Name, loc.Continuation, append(append([]string{}, loc.TemplateValues...), loc.InheritedValues...))

	if existing, ok := c.Cache.Get(key); ok {
		return existing, nil
	}

	inst := &proto.Instance{
		Key:             key,
		Prototype:       p,
		BaseName:        emittedBaseName(p, key, c.Opts.Debug),
		TemplateValues:  loc.TemplateValues,
		InheritedParams: loc.InheritedParams,
		InheritedValues: loc.InheritedValues,
		Continuation:    loc.Continuation,
		Pending:         true,
	}
	c.Cache.Insert(key, inst)

	if err := c.compileBody(inst, loc); err != nil {
		return nil, err
	}
	inst.Pending = false

	c.Output.Append(inst)
	return inst, nil
}

// lookupCallee resolves name in the registry, producing a diagnostic
// through the sink (not a bare Go error) so the caller gets consistent
// source-windowed output.
func (c *Compiler) lookupCallee(name, file string, line int) (*proto.Prototype, error) {
	p, ok := c.Registry.Lookup(name)
	if !ok {
		return nil, c.Sink.Errorf(file, line, 1, "unresolved identifier %q", name)
	}
	return p, nil
}

// nextLambdaName auto-names a lambda owned by inst, per spec.md §3:
// "<enclosing-instance-name>_lambda_n<k>" where k is the count of
// lambdas already owned by that enclosing instance at the point of
// parsing.
func (c *Compiler) nextLambdaName(inst *proto.Instance) string {
	k := c.lambdaCounters[inst]
	c.lambdaCounters[inst] = k + 1
	return fmt.Sprintf("%s_lambda_n%d", inst.BaseName, k)
}
