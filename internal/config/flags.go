package config

import (
	"flag"
	"strings"
)

// Flags holds command-line overrides. Zero values leave the config untouched.
type Flags struct {
	Config     string
	Debug      bool
	Model      string
	GRF        string
	Windowed   bool
	Fullscreen bool
	Width      int
	Height     int
	Mute       bool
}

// Register binds the flags to fs.
func (f *Flags) Register(fs *flag.FlagSet) {
	fs.StringVar(&f.Config, "config", "", "Path to config file (.yaml or .toml)")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.Model, "model", "", "Model to open at startup")
	fs.StringVar(&f.GRF, "grf", "", "Comma-separated GRF archives to add")
	fs.BoolVar(&f.Windowed, "windowed", false, "Run in windowed mode")
	fs.BoolVar(&f.Fullscreen, "fullscreen", false, "Run in fullscreen mode")
	fs.IntVar(&f.Width, "width", 0, "Window width")
	fs.IntVar(&f.Height, "height", 0, "Window height")
	fs.BoolVar(&f.Mute, "mute", false, "Start with music muted")
}

// Apply applies the overrides to cfg.
func (f *Flags) Apply(cfg *Config) {
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.Model != "" {
		cfg.Model.Path = f.Model
	}
	if f.GRF != "" {
		for _, p := range strings.Split(f.GRF, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.Model.Archives = append(cfg.Model.Archives, p)
			}
		}
	}
	if f.Windowed {
		cfg.Window.Fullscreen = false
	}
	if f.Fullscreen {
		cfg.Window.Fullscreen = true
	}
	if f.Width > 0 {
		cfg.Window.Width = f.Width
	}
	if f.Height > 0 {
		cfg.Window.Height = f.Height
	}
	if f.Mute {
		cfg.Audio.Muted = true
	}
}
