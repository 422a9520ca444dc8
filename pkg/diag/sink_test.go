package diag_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kdlang/karelc/pkg/diag"
)

func TestWarnAllAccumulatesAndDoesNotFail(t *testing.T) {
	s := diag.NewSink(diag.WarnAll)
	require.NoError(t, s.Warnf("t.src", 1, 1, "unused %s", "thing"))
	require.False(t, s.Failed())
	require.Len(t, s.Warnings, 1)
	require.Contains(t, s.Render(false), "warning: unused thing")
}

func TestWarnNoneSuppressesWarnings(t *testing.T) {
	s := diag.NewSink(diag.WarnNone)
	require.NoError(t, s.Warnf("t.src", 1, 1, "unused"))
	require.False(t, s.Failed())
	require.Empty(t, s.Warnings)
	require.Empty(t, s.Render(false))
}

func TestWarnAsErrorPromotesAndFailsBuild(t *testing.T) {
	s := diag.NewSink(diag.WarnAsError)
	err := s.Warnf("t.src", 1, 1, "unused")
	require.Error(t, err)
	require.True(t, s.Failed())
	require.Contains(t, s.Err().Error(), "unused")
}

func TestErrorFirstOneSticks(t *testing.T) {
	s := diag.NewSink(diag.WarnAll)
	require.Error(t, s.Errorf("t.src", 1, 1, "first"))
	require.Error(t, s.Errorf("t.src", 2, 1, "second"))
	require.Contains(t, s.Err().Error(), "first")
}

func TestRenderIncludesErrorAfterWarnings(t *testing.T) {
	s := diag.NewSink(diag.WarnAll)
	require.NoError(t, s.Warnf("t.src", 1, 1, "a warning"))
	require.Error(t, s.Errorf("t.src", 2, 1, "a fatal problem"))

	out := s.Render(false)
	require.Contains(t, out, "warning: a warning")
	require.Contains(t, out, "error: a fatal problem")
}
