package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != Default() {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestParsePartialOverride(t *testing.T) {
	cfg, err := Parse([]byte(`
[window]
width = 1024

[vulkan]
validation = false
max_samples = 4
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Window.Width != 1024 {
		t.Errorf("width = %d, want 1024", cfg.Window.Width)
	}
	if cfg.Window.Height != 600 {
		t.Errorf("height = %d, want default 600", cfg.Window.Height)
	}
	if cfg.Vulkan.Validation {
		t.Error("validation should be disabled")
	}
	if cfg.Vulkan.MaxSamples != 4 {
		t.Errorf("max_samples = %d, want 4", cfg.Vulkan.MaxSamples)
	}
	if cfg.Assets.Model != "Models/viking_room.obj" {
		t.Errorf("model path = %q, want default", cfg.Assets.Model)
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("[window]\nwidht = 3\n"))
	if err == nil {
		t.Fatal("expected error for misspelled key")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero width", func(c *Config) { c.Window.Width = 0 }},
		{"negative height", func(c *Config) { c.Window.Height = -1 }},
		{"empty model", func(c *Config) { c.Assets.Model = "" }},
		{"empty vertex shader", func(c *Config) { c.Assets.VertexShader = "" }},
		{"samples not power of two", func(c *Config) { c.Vulkan.MaxSamples = 6 }},
		{"samples too large", func(c *Config) { c.Vulkan.MaxSamples = 128 }},
		{"samples zero", func(c *Config) { c.Vulkan.MaxSamples = 0 }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			test.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}

	if err := Default().Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultPath)
	err := os.WriteFile(path, []byte("[log]\nlevel = \"debug\"\n"), 0o644)
	if err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("level = %q, want debug", cfg.Log.Level)
	}
}
