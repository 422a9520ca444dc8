// Package config implements karelc's layered TOML configuration, the
// same shape as _examples/miaomiao1992-dingo/pkg/config/config.go: a
// DefaultConfig, an optional user-level file, an optional project-level
// file, and CLI overrides applied last, each layer only overwriting
// fields its source actually set.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// WarningLevel mirrors pkg/diag.WarningPolicy as a TOML/CLI-facing enum;
// kept distinct from diag.WarningPolicy so this package never imports
// the compiler-facing diag package.
type WarningLevel string

const (
	WarningAll     WarningLevel = "all"
	WarningNone    WarningLevel = "none"
	WarningAsError WarningLevel = "error"
)

// SourceMapConfig controls whether and how source maps are emitted.
type SourceMapConfig struct {
	Enabled    bool   `toml:"enabled"`
	InlineData bool   `toml:"inline_data"`
	OutDir     string `toml:"out_dir"`
}

// Config is karelc's fully resolved configuration.
type Config struct {
	Dialect     string          `toml:"dialect"`
	WarningMode WarningLevel    `toml:"warnings"`
	ImportPath  []string        `toml:"import_path"`
	SourceMap   SourceMapConfig `toml:"sourcemap"`
}

// DefaultConfig returns karelc's built-in defaults, used before any
// config file or CLI override is applied.
func DefaultConfig() Config {
	return Config{
		Dialect:     "PyKarel/Kvm",
		WarningMode: WarningAll,
		ImportPath:  []string{"."},
		SourceMap: SourceMapConfig{
			Enabled: false,
			OutDir:  "",
		},
	}
}

// Overrides carries CLI flag values that should win over any file-based
// configuration. A field left at its zero value means "not set on the
// command line" and the file/default layer is left untouched; use the
// pointer fields for true/false flags where the zero value (false) is a
// legitimate explicit choice.
type Overrides struct {
	Dialect         string
	WarningMode     WarningLevel
	ImportPath      []string
	SourceMap       *bool
	SourceMapOutDir string
}

// Load builds the final Config by layering: defaults, then
// ~/.karelc/config.toml if present, then ./karelc.toml (relative to
// projectDir) if present, then CLI overrides.
func Load(projectDir string, ov Overrides) (Config, error) {
	cfg := DefaultConfig()

	if home, err := os.UserHomeDir(); err == nil {
		userFile := filepath.Join(home, ".karelc", "config.toml")
		if err := mergeFile(&cfg, userFile); err != nil {
			return cfg, err
		}
	}

	projectFile := filepath.Join(projectDir, "karelc.toml")
	if err := mergeFile(&cfg, projectFile); err != nil {
		return cfg, err
	}

	applyOverrides(&cfg, ov)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func mergeFile(cfg *Config, path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	var onDisk Config
	if _, err := toml.DecodeFile(path, &onDisk); err != nil {
		return fmt.Errorf("loading config %s: %w", path, err)
	}
	mergeInto(cfg, onDisk)
	return nil
}

func mergeInto(dst *Config, src Config) {
	if src.Dialect != "" {
		dst.Dialect = src.Dialect
	}
	if src.WarningMode != "" {
		dst.WarningMode = src.WarningMode
	}
	if len(src.ImportPath) > 0 {
		dst.ImportPath = src.ImportPath
	}
	if src.SourceMap.Enabled {
		dst.SourceMap.Enabled = true
	}
	if src.SourceMap.InlineData {
		dst.SourceMap.InlineData = true
	}
	if src.SourceMap.OutDir != "" {
		dst.SourceMap.OutDir = src.SourceMap.OutDir
	}
}

func applyOverrides(cfg *Config, ov Overrides) {
	if ov.Dialect != "" {
		cfg.Dialect = ov.Dialect
	}
	if ov.WarningMode != "" {
		cfg.WarningMode = ov.WarningMode
	}
	if len(ov.ImportPath) > 0 {
		cfg.ImportPath = ov.ImportPath
	}
	if ov.SourceMap != nil {
		cfg.SourceMap.Enabled = *ov.SourceMap
	}
	if ov.SourceMapOutDir != "" {
		cfg.SourceMap.OutDir = ov.SourceMapOutDir
	}
}

// Validate checks that the resolved configuration is internally
// consistent.
func (c *Config) Validate() error {
	switch c.WarningMode {
	case WarningAll, WarningNone, WarningAsError:
	default:
		return fmt.Errorf("invalid warnings mode %q (want all, none, or error)", c.WarningMode)
	}
	if len(c.ImportPath) == 0 {
		return fmt.Errorf("import_path must contain at least one directory")
	}
	return nil
}
