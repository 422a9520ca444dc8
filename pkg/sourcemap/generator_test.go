package sourcemap

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateRoundTrip(t *testing.T) {
	g := NewGenerator("out.k")
	g.AddLine(1, "main.k", 3)
	g.AddLine(2, "main.k", 4)
	g.AddLine(3, "lib.k", 10)
	// line 4 intentionally has no mapping (a blank segment separator line)
	g.AddLine(5, "lib.k", 11)

	data, err := g.Generate()
	require.NoError(t, err)

	err = ValidateRoundTrip(data, []Mapping{
		{GenLine: 1, SourceFile: "main.k", SourceLine: 3},
		{GenLine: 2, SourceFile: "main.k", SourceLine: 4},
		{GenLine: 3, SourceFile: "lib.k", SourceLine: 10},
		{GenLine: 5, SourceFile: "lib.k", SourceLine: 11},
	})
	require.NoError(t, err)
}

func TestGenerateInline(t *testing.T) {
	g := NewGenerator("out.k")
	g.AddLine(1, "main.k", 1)

	inline, err := g.GenerateInline()
	require.NoError(t, err)
	require.Contains(t, inline, "//# sourceMappingURL=data:application/json;base64,")
}

func TestVLQEncodeNonEmpty(t *testing.T) {
	cases := []int{0, 1, -1, 15, -15, 16, -16, 1000, -1000}
	for _, n := range cases {
		var b strings.Builder
		vlqEncode(n, &b)
		require.NotEmpty(t, b.String())
	}
}
