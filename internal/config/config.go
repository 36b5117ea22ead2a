// Package config loads VM tuning knobs from a .ember.toml project file,
// generalizing the project-manifest pattern the teacher uses for its own
// TOML-configured build metadata.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// GC holds the garbage collector's tunables.
type GC struct {
	InitialThreshold int     `toml:"initial-threshold"`
	GrowFactor       float64 `toml:"grow-factor"`
	Stress           bool    `toml:"stress"`
	Log              bool    `toml:"log"`
}

// Debug holds the conditional-compile-flag equivalents: toggles for
// bytecode/execution tracing.
type Debug struct {
	TraceBytecode  bool `toml:"trace-bytecode"`
	TraceExecution bool `toml:"trace-execution"`
}

// Config is the full set of VM tuning knobs, loadable from a project
// file and overridable by CLI flags.
type Config struct {
	MaxFrames int   `toml:"max-frames"`
	GC        GC    `toml:"gc"`
	Debug     Debug `toml:"debug"`

	// Dir is the directory containing the loaded .ember.toml, if any.
	Dir string `toml:"-"`
}

// Default returns the configuration used when no project file is found.
func Default() Config {
	return Config{
		MaxFrames: 64,
		GC: GC{
			InitialThreshold: 1024 * 1024,
			GrowFactor:       2.0,
		},
	}
}

// Load parses .ember.toml from the given directory, filling unset fields
// with Default's values.
func Load(dir string) (Config, error) {
	path := filepath.Join(dir, ".ember.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: cannot read %s: %w", path, err)
	}

	cfg := Default()
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse error in %s: %w", path, err)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return Config{}, fmt.Errorf("config: cannot resolve path %s: %w", dir, err)
	}
	cfg.Dir = abs
	cfg.applyDefaults()
	return cfg, nil
}

// FindAndLoad walks up from startDir looking for a .ember.toml, returning
// Default() if none is found anywhere up to the filesystem root.
func FindAndLoad(startDir string) (Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return Config{}, err
	}
	for {
		path := filepath.Join(dir, ".ember.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

func (c *Config) applyDefaults() {
	if c.MaxFrames == 0 {
		c.MaxFrames = 64
	}
	if c.GC.InitialThreshold == 0 {
		c.GC.InitialThreshold = 1024 * 1024
	}
	if c.GC.GrowFactor == 0 {
		c.GC.GrowFactor = 2.0
	}
}
