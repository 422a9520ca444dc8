package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kdlang/karelc/pkg/config"
)

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	require.Equal(t, "PyKarel/Kvm", cfg.Dialect)
	require.Equal(t, config.WarningAll, cfg.WarningMode)
	require.Equal(t, []string{"."}, cfg.ImportPath)
	require.NoError(t, cfg.Validate())
}

func TestLoadWithNoFilesReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir, config.Overrides{})
	require.NoError(t, err)
	require.Equal(t, "PyKarel/Kvm", cfg.Dialect)
}

func TestLoadMergesProjectFile(t *testing.T) {
	dir := t.TempDir()
	toml := `
dialect = "VisK99"
warnings = "none"
import_path = ["lib", "."]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "karelc.toml"), []byte(toml), 0o644))

	cfg, err := config.Load(dir, config.Overrides{})
	require.NoError(t, err)
	require.Equal(t, "VisK99", cfg.Dialect)
	require.Equal(t, config.WarningNone, cfg.WarningMode)
	require.Equal(t, []string{"lib", "."}, cfg.ImportPath)
}

func TestLoadOverridesWinOverProjectFile(t *testing.T) {
	dir := t.TempDir()
	toml := `dialect = "VisK99"`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "karelc.toml"), []byte(toml), 0o644))

	cfg, err := config.Load(dir, config.Overrides{Dialect: "PyKarel/Kvm"})
	require.NoError(t, err)
	require.Equal(t, "PyKarel/Kvm", cfg.Dialect)
}

func TestLoadRejectsBadProjectFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "karelc.toml"), []byte("not = [valid"), 0o644))

	_, err := config.Load(dir, config.Overrides{})
	require.Error(t, err)
}

func TestValidateRejectsUnknownWarningMode(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.WarningMode = "bogus"
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsEmptyImportPath(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ImportPath = nil
	require.Error(t, cfg.Validate())
}

func TestOverrideSourceMap(t *testing.T) {
	dir := t.TempDir()
	yes := true
	cfg, err := config.Load(dir, config.Overrides{SourceMap: &yes, SourceMapOutDir: "maps"})
	require.NoError(t, err)
	require.True(t, cfg.SourceMap.Enabled)
	require.Equal(t, "maps", cfg.SourceMap.OutDir)
}
