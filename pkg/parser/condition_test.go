package parser_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kdlang/karelc/pkg/dialect"
	"github.com/kdlang/karelc/pkg/parser"
)

func TestParseConditionIs(t *testing.T) {
	dia, _ := dialect.Builtin("PyKarel/Kvm")
	text, consumed, err := parser.ParseCondition("is_wall {", dia)
	require.NoError(t, err)
	require.Equal(t, "IS WALL", text)
	require.Equal(t, len("is_wall"), consumed)
}

func TestParseConditionNot(t *testing.T) {
	dia, _ := dialect.Builtin("PyKarel/Kvm")
	text, consumed, err := parser.ParseCondition("not_flag", dia)
	require.NoError(t, err)
	require.Equal(t, "ISNOT FLAG", text)
	require.Equal(t, len("not_flag"), consumed)
}

func TestParseConditionUnknownAtom(t *testing.T) {
	dia, _ := dialect.Builtin("PyKarel/Kvm")
	_, _, err := parser.ParseCondition("is_banana", dia)
	require.Error(t, err)
}

func TestParseConditionBadPrefix(t *testing.T) {
	dia, _ := dialect.Builtin("PyKarel/Kvm")
	_, _, err := parser.ParseCondition("maybe_wall", dia)
	require.Error(t, err)
}

func TestParseConditionOtherDialect(t *testing.T) {
	dia, _ := dialect.Builtin("VisK99")
	text, _, err := parser.ParseCondition("is_home", dia)
	require.NoError(t, err)
	require.Equal(t, "JE DOMOV", text)
}
