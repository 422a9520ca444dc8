package parser_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kdlang/karelc/pkg/parser"
)

func TestParseTemplateArgsNoParens(t *testing.T) {
	args, consumed, err := parser.ParseTemplateArgs("foo")
	require.NoError(t, err)
	require.Nil(t, args)
	require.Equal(t, 0, consumed)
}

func TestParseTemplateArgsEmptyParens(t *testing.T) {
	args, consumed, err := parser.ParseTemplateArgs("() rest")
	require.NoError(t, err)
	require.Nil(t, args)
	require.Equal(t, 2, consumed)
}

func TestParseTemplateArgsNested(t *testing.T) {
	args, consumed, err := parser.ParseTemplateArgs("(a, f(b, c), d) rest")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "f(b, c)", "d"}, args)
	require.Equal(t, len("(a, f(b, c), d)"), consumed)
}

func TestParseTemplateArgsRejectsEmptyArgument(t *testing.T) {
	_, _, err := parser.ParseTemplateArgs("(a, , b)")
	require.Error(t, err)
}

func TestParseTemplateArgsUnbalanced(t *testing.T) {
	_, _, err := parser.ParseTemplateArgs("(a, b")
	require.Error(t, err)
}
