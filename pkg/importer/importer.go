// Package importer is the Import Driver (spec.md §4.3): it resolves
// `import "path"` declarations against an ordered search path, detects
// cycles, and dedups by canonical path. Every invocation of karelc
// re-parses and recompiles its inputs from scratch — no state crosses
// process invocations, per spec.md's Non-goal "No incremental/partial
// compilation across invocations."
package importer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kdlang/karelc/pkg/dialect"
	"github.com/kdlang/karelc/pkg/parser"
	"github.com/kdlang/karelc/pkg/proto"
)

// status tracks where a canonical path is in the import lifecycle.
type status int

const (
	statusInProgress status = iota
	statusDone
)

// Driver orchestrates recursive import resolution. "." is always first
// on the search path, per spec.md §6, and is resolved against the
// directory of the importing file.
type Driver struct {
	SearchPath []string
	Registry   *proto.Registry
	Dialect    *dialect.Table

	progress map[string]status
}

// New creates a Driver. searchPath should not include "." — New
// prepends it.
func New(searchPath []string, reg *proto.Registry, dia *dialect.Table) *Driver {
	full := append([]string{"."}, searchPath...)
	return &Driver{
		SearchPath: full,
		Registry:   reg,
		Dialect:    dia,
		progress:   map[string]status{},
	}
}

// CompileFile parses file (a root entry point, not reached via import)
// and recursively resolves every import it declares.
func (d *Driver) CompileFile(file string) error {
	canon, err := filepath.Abs(file)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", file, err)
	}
	return d.compileCanonical(canon, file)
}

// resolveImport resolves an import path p against the search path and
// returns its canonical form. The "." entry stands for the directory of
// fromFile, the file that declares the import.
func (d *Driver) resolveImport(p, fromFile string) (canon, resolved string, err error) {
	for _, dir := range d.SearchPath {
		if dir == "." {
			dir = filepath.Dir(fromFile)
		}
		candidate := filepath.Join(dir, p)
		if _, statErr := os.Stat(candidate); statErr == nil {
			abs, absErr := filepath.Abs(candidate)
			if absErr != nil {
				return "", "", absErr
			}
			return abs, candidate, nil
		}
	}
	return "", "", fmt.Errorf("source file not found: %q", p)
}

// Import resolves and compiles p, the target of an `import "p"`
// declaration found while parsing a file at the given line.
func (d *Driver) Import(p string, fromFile string, fromLine int) error {
	canon, resolved, err := d.resolveImport(p, fromFile)
	if err != nil {
		return fmt.Errorf("%s:%d: %w", fromFile, fromLine, err)
	}

	if st, seen := d.progress[canon]; seen {
		switch st {
		case statusInProgress:
			return fmt.Errorf("%s:%d: cyclical import of %q", fromFile, fromLine, p)
		case statusDone:
			return nil
		}
	}

	return d.compileCanonical(canon, resolved)
}

// compileCanonical parses resolved (whose canonical path is canon),
// recursing into its own imports, then marks it Done. Every file is
// always parsed and its Prototypes always registered, once per run —
// the progress map only guards against re-parsing the same canonical
// path twice within this invocation (a diamond import, or a cycle).
func (d *Driver) compileCanonical(canon, resolved string) error {
	d.progress[canon] = statusInProgress

	content, err := os.ReadFile(resolved)
	if err != nil {
		return fmt.Errorf("reading %s: %w", resolved, err)
	}

	imports, err := parser.ParseFile(resolved, string(content), d.Dialect, d.Registry)
	if err != nil {
		return err
	}

	for _, imp := range imports {
		if err := d.Import(imp.Path, resolved, imp.Line); err != nil {
			return err
		}
	}

	d.progress[canon] = statusDone
	return nil
}
