// Package config handles viewer configuration loading and management.
package config

import (
	"fmt"

	"github.com/Faultbox/midgard-paint/pkg/scene"
)

// Config holds all viewer settings.
type Config struct {
	Window  WindowConfig  `yaml:"window" toml:"window"`
	Model   ModelConfig   `yaml:"model" toml:"model"`
	Palette PaletteConfig `yaml:"palette" toml:"palette"`
	Audio   AudioConfig   `yaml:"audio" toml:"audio"`
	Artwork ArtworkConfig `yaml:"artwork" toml:"artwork"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
}

// WindowConfig holds display settings.
type WindowConfig struct {
	Width      int  `yaml:"width" toml:"width"`
	Height     int  `yaml:"height" toml:"height"`
	Fullscreen bool `yaml:"fullscreen" toml:"fullscreen"`
	VSync      bool `yaml:"vsync" toml:"vsync"`
}

// ModelConfig holds the startup model and where assets are found.
type ModelConfig struct {
	Path         string   `yaml:"path" toml:"path"`                   // Model opened at startup
	Archives     []string `yaml:"archives" toml:"archives"`           // GRF archives, later = higher priority
	SearchDirs   []string `yaml:"search_dirs" toml:"search_dirs"`     // Plain directories
	CacheEntries int      `yaml:"cache_entries" toml:"cache_entries"` // Asset cache size
}

// PaletteConfig holds the colors the viewer cycles through.
type PaletteConfig struct {
	Colors  []string `yaml:"colors" toml:"colors"`
	Default int      `yaml:"default" toml:"default"`
}

// AudioConfig holds background music settings.
type AudioConfig struct {
	Music  string  `yaml:"music" toml:"music"`
	Volume float32 `yaml:"volume" toml:"volume"`
	Muted  bool    `yaml:"muted" toml:"muted"`
}

// ArtworkConfig controls where saved artwork goes.
type ArtworkConfig struct {
	Dir    string `yaml:"dir" toml:"dir"`
	Prefix string `yaml:"prefix" toml:"prefix"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" toml:"level"`
	LogFile string `yaml:"log_file" toml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Width:  1280,
			Height: 720,
			VSync:  true,
		},
		Model: ModelConfig{
			SearchDirs:   []string{"."},
			CacheEntries: 256,
		},
		Palette: PaletteConfig{
			Colors: []string{
				"#e53935", "#fb8c00", "#fdd835", "#43a047",
				"#1e88e5", "#8e24aa", "#6d4c41", "#ffffff", "#212121",
			},
		},
		Audio: AudioConfig{
			Volume: 0.7,
		},
		Artwork: ArtworkConfig{
			Dir:    "artwork",
			Prefix: "artwork",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Parse converts the palette to scene colors. An invalid entry fails the whole palette.
func (p PaletteConfig) Parse() ([]scene.Color, error) {
	out := make([]scene.Color, 0, len(p.Colors))
	for i, s := range p.Colors {
		c, err := scene.ParseColor(s)
		if err != nil {
			return nil, fmt.Errorf("palette color %d: %w", i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// Validate checks values that would break the viewer.
func (c *Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("invalid window size %dx%d", c.Window.Width, c.Window.Height)
	}
	colors, err := c.Palette.Parse()
	if err != nil {
		return err
	}
	if len(colors) == 0 {
		return fmt.Errorf("palette is empty")
	}
	if c.Palette.Default < 0 || c.Palette.Default >= len(colors) {
		return fmt.Errorf("palette default %d out of range", c.Palette.Default)
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 1 {
		return fmt.Errorf("audio volume %.2f outside [0, 1]", c.Audio.Volume)
	}
	return nil
}
