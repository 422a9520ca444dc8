package diag_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kdlang/karelc/pkg/diag"
)

func writeTempSource(t *testing.T, lines ...string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.src")
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Cleanup(diag.ClearCache)
	return path
}

func TestFormatIncludesSourceWindow(t *testing.T) {
	file := writeTempSource(t, "fn main {", "  step;", "  bogus;", "  left;", "}")
	d := &diag.Diagnostic{Severity: diag.SeverityError, Message: "unresolved identifier", File: file, Line: 3, Column: 3}

	out := d.Format(false)
	require.Contains(t, out, "error: unresolved identifier")
	require.Contains(t, out, "step;")
	require.Contains(t, out, "bogus;")
	require.Contains(t, out, "left;")
	require.Contains(t, out, "^")
}

func TestFormatClampsWindowAtFileBounds(t *testing.T) {
	file := writeTempSource(t, "fn main {", "  step;", "}")
	d := &diag.Diagnostic{Severity: diag.SeverityWarning, Message: "unused", File: file, Line: 1, Column: 1}

	out := d.Format(false)
	require.Contains(t, out, "warning: unused")
	require.Contains(t, out, "fn main {")
}

func TestFormatMissingFileStillRendersHeader(t *testing.T) {
	d := &diag.Diagnostic{Severity: diag.SeverityError, Message: "boom", File: "/no/such/file", Line: 1, Column: 1}
	out := d.Format(false)
	require.Contains(t, out, "error: boom")
}
