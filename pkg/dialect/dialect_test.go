package dialect_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kdlang/karelc/pkg/dialect"
)

func TestBuiltinsValidate(t *testing.T) {
	for _, name := range dialect.Names() {
		dia, ok := dialect.Builtin(name)
		require.True(t, ok)
		require.NoError(t, dia.Validate(), "builtin dialect %q", name)
	}
}

func TestIsReservedChecksAllThreeTables(t *testing.T) {
	dia, _ := dialect.Builtin("PyKarel/Kvm")
	require.True(t, dia.IsReserved("end"))   // Reserved set
	require.True(t, dia.IsReserved("STEP"))  // primitive lexeme
	require.True(t, dia.IsReserved("WALL"))  // keyword lexeme
	require.False(t, dia.IsReserved("spin")) // an ordinary SRC name
}

func TestKeywordPanicsOnMissingEntry(t *testing.T) {
	dia := &dialect.Table{Name: "broken", Keywords: map[string]string{}}
	require.Panics(t, func() { dia.Keyword("if") })
}

func TestLoadFallsBackToBuiltin(t *testing.T) {
	dia, err := dialect.Load("PyKarel/Kvm", nil)
	require.NoError(t, err)
	require.Equal(t, "PyKarel/Kvm", dia.Name)
}

func TestLoadCustomTOMLDialect(t *testing.T) {
	dir := t.TempDir()
	toml := `
name = "Custom"
[primitives]
step = "FORWARD"
left = "TURN-LEFT"
pick = "GRAB"
place = "DROP"
stop = "HALT"
[reserved]
end = true
[keywords]
end = "HALT-END"
if = "IF"
is = "IS"
not = "ISNOT"
else = "ELSE"
while = "UNTIL"
for = "REPEAT"
for-suffix = "-TIMES"
wall = "WALL"
flag = "FLAG"
home = "HOME"
north = "NORTH"
south = "SOUTH"
east = "EAST"
west = "WEST"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Custom.dialect.toml"), []byte(toml), 0o644))

	dia, err := dialect.Load("Custom", []string{dir})
	require.NoError(t, err)
	require.Equal(t, "FORWARD", dia.Primitives["step"])
}

func TestLoadUnknownDialectErrors(t *testing.T) {
	_, err := dialect.Load("NoSuchDialect", []string{t.TempDir()})
	require.Error(t, err)
}
