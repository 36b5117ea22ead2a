package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValues(t *testing.T) {
	cfg := Default()
	if cfg.MaxFrames != 64 {
		t.Errorf("MaxFrames = %d, want 64", cfg.MaxFrames)
	}
	if cfg.GC.InitialThreshold != 1024*1024 {
		t.Errorf("GC.InitialThreshold = %d, want %d", cfg.GC.InitialThreshold, 1024*1024)
	}
	if cfg.GC.GrowFactor != 2.0 {
		t.Errorf("GC.GrowFactor = %v, want 2.0", cfg.GC.GrowFactor)
	}
}

func TestLoadParsesProjectFile(t *testing.T) {
	dir := t.TempDir()
	contents := `
max-frames = 128

[gc]
initial-threshold = 2048
grow-factor = 1.5
stress = true

[debug]
trace-bytecode = true
`
	if err := os.WriteFile(filepath.Join(dir, ".ember.toml"), []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxFrames != 128 {
		t.Errorf("MaxFrames = %d, want 128", cfg.MaxFrames)
	}
	if cfg.GC.InitialThreshold != 2048 {
		t.Errorf("GC.InitialThreshold = %d, want 2048", cfg.GC.InitialThreshold)
	}
	if cfg.GC.GrowFactor != 1.5 {
		t.Errorf("GC.GrowFactor = %v, want 1.5", cfg.GC.GrowFactor)
	}
	if !cfg.GC.Stress {
		t.Error("GC.Stress = false, want true")
	}
	if !cfg.Debug.TraceBytecode {
		t.Error("Debug.TraceBytecode = false, want true")
	}

	abs, _ := filepath.Abs(dir)
	if cfg.Dir != abs {
		t.Errorf("Dir = %q, want %q", cfg.Dir, abs)
	}
}

func TestLoadAppliesDefaultsForUnsetFields(t *testing.T) {
	dir := t.TempDir()
	contents := `
[debug]
trace-execution = true
`
	if err := os.WriteFile(filepath.Join(dir, ".ember.toml"), []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxFrames != 64 {
		t.Errorf("MaxFrames = %d, want default 64", cfg.MaxFrames)
	}
	if cfg.GC.InitialThreshold != 1024*1024 {
		t.Errorf("GC.InitialThreshold = %d, want default", cfg.GC.InitialThreshold)
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(dir); err == nil {
		t.Fatal("expected an error loading from a directory with no .ember.toml")
	}
}

func TestLoadMalformedTomlErrors(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".ember.toml"), []byte("not = [valid toml"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("expected a parse error for malformed TOML")
	}
}

func TestFindAndLoadWalksUpToAncestor(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, ".ember.toml"), []byte("max-frames = 99\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	cfg, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("FindAndLoad: %v", err)
	}
	if cfg.MaxFrames != 99 {
		t.Errorf("MaxFrames = %d, want 99 (found via ancestor search)", cfg.MaxFrames)
	}
}

func TestFindAndLoadReturnsDefaultWhenNoneFound(t *testing.T) {
	dir := t.TempDir()
	cfg, err := FindAndLoad(dir)
	if err != nil {
		t.Fatalf("FindAndLoad: %v", err)
	}
	if cfg != Default() {
		t.Errorf("FindAndLoad with no project file = %+v, want Default()", cfg)
	}
}
