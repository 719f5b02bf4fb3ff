// Package config loads the tutorial settings. Every field has a built-in default,
// so the file is optional.
package config

import (
	"bytes"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
)

// DefaultPath is read from the working directory when present.
const DefaultPath = "vulkan_tutorial.toml"

type Window struct {
	Width     int    `toml:"width"`
	Height    int    `toml:"height"`
	Title     string `toml:"title"`
	Resizable bool   `toml:"resizable"`
}

type Assets struct {
	Dir            string `toml:"dir"`
	VertexShader   string `toml:"vertex_shader"`
	FragmentShader string `toml:"fragment_shader"`
	Texture        string `toml:"texture"`
	Model          string `toml:"model"`
	// Material is an optional MTL library for Model.
	Material string `toml:"material"`
	// HotReload rebuilds the graphics pipeline whenever a SPIR-V file changes on disk.
	HotReload bool `toml:"hot_reload"`
}

type Vulkan struct {
	Validation bool `toml:"validation"`
	// MaxSamples caps the MSAA sample count picked from the device limits.
	MaxSamples int `toml:"max_samples"`
}

type Log struct {
	Level string `toml:"level"`
}

type Config struct {
	Window Window `toml:"window"`
	Assets Assets `toml:"assets"`
	Vulkan Vulkan `toml:"vulkan"`
	Log    Log    `toml:"log"`
}

func Default() Config {
	return Config{
		Window: Window{
			Width:     800,
			Height:    600,
			Title:     "Vulkan",
			Resizable: true,
		},
		Assets: Assets{
			Dir:            ".",
			VertexShader:   "Shaders/TriangleVert.spv",
			FragmentShader: "Shaders/TriangleFrag.spv",
			Texture:        "Textures/viking_room.png",
			Model:          "Models/viking_room.obj",
		},
		Vulkan: Vulkan{
			Validation: true,
			MaxSamples: 64,
		},
		Log: Log{
			Level: "info",
		},
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	} else if err != nil {
		return cfg, errors.Wrapf(err, "failed to read config %s", path)
	}

	cfg, err = Parse(data)
	if err != nil {
		return cfg, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Parse decodes TOML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, errors.Wrap(err, "failed to decode config")
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return errors.Newf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}

	paths := map[string]string{
		"assets.vertex_shader":   c.Assets.VertexShader,
		"assets.fragment_shader": c.Assets.FragmentShader,
		"assets.texture":         c.Assets.Texture,
		"assets.model":           c.Assets.Model,
	}
	for key, value := range paths {
		if value == "" {
			return errors.Newf("%s must not be empty", key)
		}
	}

	samples := c.Vulkan.MaxSamples
	if samples < 1 || samples > 64 || samples&(samples-1) != 0 {
		return errors.Newf("vulkan.max_samples must be a power of two between 1 and 64, got %d", samples)
	}

	return nil
}
