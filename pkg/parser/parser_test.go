package parser_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kdlang/karelc/pkg/dialect"
	"github.com/kdlang/karelc/pkg/parser"
	"github.com/kdlang/karelc/pkg/proto"
)

func pyKarel(t *testing.T) *dialect.Table {
	t.Helper()
	dia, ok := dialect.Builtin("PyKarel/Kvm")
	require.True(t, ok)
	return dia
}

func TestParseFileDefinesPrototype(t *testing.T) {
	reg := proto.NewRegistry()
	_, err := parser.ParseFile("t.src", `fn main { step; left; }`, pyKarel(t), reg)
	require.NoError(t, err)

	p, ok := reg.Lookup("main")
	require.True(t, ok)
	require.True(t, p.TopLevelImplicit)
	require.False(t, p.IsSlicing)
	require.Equal(t, "step; left;", p.BodyText)
}

func TestParseFileTemplateParamsAndSlicing(t *testing.T) {
	reg := proto.NewRegistry()
	_, err := parser.ParseFile("t.src", `fn over_wall(dir) slicing { while is_[dir] { step; } commit; }`, pyKarel(t), reg)
	require.NoError(t, err)

	p, ok := reg.Lookup("over_wall")
	require.True(t, ok)
	require.True(t, p.IsSlicing)
	require.False(t, p.TopLevelImplicit)
	require.Len(t, p.Params, 1)
	require.Equal(t, "dir", p.Params[0].Name)
}

func TestParseFileImports(t *testing.T) {
	reg := proto.NewRegistry()
	imports, err := parser.ParseFile("t.src", `import "lib.src"
fn main { step; }`, pyKarel(t), reg)
	require.NoError(t, err)
	require.Len(t, imports, 1)
	require.Equal(t, "lib.src", imports[0].Path)
}

func TestParseFileRejectsRedefinition(t *testing.T) {
	reg := proto.NewRegistry()
	_, err := parser.ParseFile("t.src", "fn main { step; }\nfn main { left; }", pyKarel(t), reg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "redefined")
}

func TestParseFileRejectsTrailingTextAfterCloseBrace(t *testing.T) {
	reg := proto.NewRegistry()
	_, err := parser.ParseFile("t.src", "fn main { step; } garbage", pyKarel(t), reg)
	require.Error(t, err)
}

func TestParseFileStripsComments(t *testing.T) {
	reg := proto.NewRegistry()
	_, err := parser.ParseFile("t.src", "fn main {\n  step; // go\n  left;\n}", pyKarel(t), reg)
	require.NoError(t, err)
	p, _ := reg.Lookup("main")
	require.Equal(t, "\nstep;\nleft;\n", p.BodyText)
}

func TestParseFileRejectsReservedName(t *testing.T) {
	reg := proto.NewRegistry()
	_, err := parser.ParseFile("t.src", `fn end { step; }`, pyKarel(t), reg)
	require.Error(t, err)
}
