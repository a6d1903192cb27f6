package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Backend != DefaultBackend {
		t.Errorf("expected backend %s, got %s", DefaultBackend, cfg.Backend)
	}
	if cfg.Solver.Tolerance <= 0 {
		t.Error("tolerance should be positive")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("serial")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Workers != 1 {
		t.Errorf("expected 1 worker, got %d", cfg.Workers)
	}

	cfg.Workers = 8
	if Presets["serial"].Workers != 1 {
		t.Error("GetPreset must return a copy")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestListPresets(t *testing.T) {
	presets := ListPresets()
	if len(presets) != len(Presets) {
		t.Fatalf("expected %d presets, got %d", len(Presets), len(presets))
	}
	if presets[0] != "debug" {
		t.Errorf("expected sorted names, got %v", presets)
	}
	for _, name := range presets {
		if err := Presets[name].Validate(); err != nil {
			t.Errorf("preset %s invalid: %v", name, err)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty backend", func(c *Config) { c.Backend = "" }},
		{"negative device", func(c *Config) { c.Device = -1 }},
		{"negative workers", func(c *Config) { c.Workers = -2 }},
		{"negative memory", func(c *Config) { c.MemoryLimit = -1 }},
		{"zero tolerance", func(c *Config) { c.Solver.Tolerance = 0 }},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }},
	}

	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "simusolve.yaml")
	cfg := GetPreset("debug")
	cfg.Workers = 3

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("round trip mismatch: %+v vs %+v", loaded, cfg)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	if err := os.WriteFile(path, []byte("workers: 2\nsolver:\n  scrub: true\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Workers != 2 || !cfg.Solver.Scrub {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Solver.Tolerance != DefaultTolerance || cfg.Backend != DefaultBackend {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("workers: -4\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected validation error")
	}
}

func TestLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "debug"
	if cfg.Level() != zerolog.DebugLevel {
		t.Errorf("expected debug, got %v", cfg.Level())
	}
	cfg.LogLevel = ""
	if cfg.Level() != zerolog.InfoLevel {
		t.Errorf("expected info fallback, got %v", cfg.Level())
	}
}

func TestOpenBackend(t *testing.T) {
	cfg := DefaultConfig()
	b, err := cfg.OpenBackend()
	if err != nil {
		t.Fatalf("auto backend: %v", err)
	}
	if !b.Available() {
		t.Error("auto-selected backend must be available")
	}

	cfg.Backend = "missing"
	if _, err := cfg.OpenBackend(); err == nil {
		t.Error("expected error for unknown backend")
	}
}
