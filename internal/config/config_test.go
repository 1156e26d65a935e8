package config

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/midgard-paint/pkg/scene"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Window.Width != 1280 || cfg.Window.Height != 720 {
		t.Errorf("expected 1280x720, got %dx%d", cfg.Window.Width, cfg.Window.Height)
	}
	if cfg.Window.Fullscreen {
		t.Error("expected fullscreen to be false by default")
	}
	if cfg.Model.CacheEntries != 256 {
		t.Errorf("expected cache entries 256, got %d", cfg.Model.CacheEntries)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}

	colors, err := cfg.Palette.Parse()
	if err != nil {
		t.Fatalf("default palette: %v", err)
	}
	if len(colors) != 9 || colors[0] != 0xe53935 {
		t.Errorf("default palette = %v", colors)
	}
}

func TestLoadFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "colorview.yaml")
	content := `
window:
  width: 1920
  height: 1080
  fullscreen: true

model:
  path: "data/model/tree.rsm"
  archives: ["data.grf", "rdata.grf"]

palette:
  colors: ["#ff0000", "#00ff00"]
  default: 1

audio:
  music: "bgm/01.mp3"
  volume: 0.5
  muted: true

logging:
  level: "debug"
  log_file: "paint.log"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, path); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Window.Width != 1920 || !cfg.Window.Fullscreen {
		t.Errorf("window = %+v", cfg.Window)
	}
	if !cfg.Window.VSync {
		t.Error("vsync should keep its default when absent from the file")
	}
	if cfg.Model.Path != "data/model/tree.rsm" || len(cfg.Model.Archives) != 2 {
		t.Errorf("model = %+v", cfg.Model)
	}
	if cfg.Palette.Default != 1 || len(cfg.Palette.Colors) != 2 {
		t.Errorf("palette = %+v", cfg.Palette)
	}
	if cfg.Audio.Volume != 0.5 || !cfg.Audio.Muted || cfg.Audio.Music != "bgm/01.mp3" {
		t.Errorf("audio = %+v", cfg.Audio)
	}
	if cfg.Logging.LogFile != "paint.log" {
		t.Errorf("log file = %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "colorview.toml")
	content := `
[window]
width = 800
height = 600

[palette]
colors = ["#123456"]

[artwork]
dir = "out"
prefix = "paint"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, path); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Window.Width != 800 || cfg.Window.Height != 600 {
		t.Errorf("window = %+v", cfg.Window)
	}
	if cfg.Artwork.Dir != "out" || cfg.Artwork.Prefix != "paint" {
		t.Errorf("artwork = %+v", cfg.Artwork)
	}
	colors, err := cfg.Palette.Parse()
	if err != nil || len(colors) != 1 || colors[0] != 0x123456 {
		t.Errorf("palette = %v, %v", colors, err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	for _, name := range []string{"config.yaml", "config.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)

			cfg := Default()
			cfg.Window.Width = 1600
			cfg.Model.Archives = []string{"a.grf"}
			cfg.Audio.Volume = 0.25
			if err := cfg.SaveTo(path); err != nil {
				t.Fatalf("SaveTo: %v", err)
			}

			loaded := Default()
			if err := loadFromFile(loaded, path); err != nil {
				t.Fatalf("loadFromFile: %v", err)
			}
			if loaded.Window.Width != 1600 || loaded.Audio.Volume != 0.25 {
				t.Errorf("loaded = %+v", loaded)
			}
			if len(loaded.Model.Archives) != 1 || loaded.Model.Archives[0] != "a.grf" {
				t.Errorf("archives = %v", loaded.Model.Archives)
			}
		})
	}
}

func TestFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	if err := os.WriteFile(path, []byte("window:\n  width: 1024\n  fullscreen: true\nmodel:\n  archives: [\"base.grf\"]\n"), 0644); err != nil {
		t.Fatal(err)
	}

	var f Flags
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	f.Register(fs)
	args := []string{"-config", path, "-width", "640", "-windowed", "-debug", "-grf", "x.grf, y.grf", "-model", "m.glb", "-mute"}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	cfg, err := Load(&f)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Window.Width != 640 || cfg.Window.Fullscreen {
		t.Errorf("window = %+v", cfg.Window)
	}
	if cfg.Logging.Level != "debug" || !cfg.Audio.Muted || cfg.Model.Path != "m.glb" {
		t.Errorf("cfg = %+v", cfg)
	}
	want := []string{"base.grf", "x.grf", "y.grf"}
	if len(cfg.Model.Archives) != len(want) {
		t.Fatalf("archives = %v", cfg.Model.Archives)
	}
	for i := range want {
		if cfg.Model.Archives[i] != want[i] {
			t.Errorf("archive %d = %s, want %s", i, cfg.Model.Archives[i], want[i])
		}
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("window: [oops"), 0644)
	if _, err := Load(&Flags{Config: bad}); err == nil {
		t.Error("expected parse error")
	}

	if _, err := Load(&Flags{Config: filepath.Join(dir, "missing.yaml")}); err == nil {
		t.Error("expected error for missing explicit config")
	}

	palette := filepath.Join(dir, "palette.yaml")
	os.WriteFile(palette, []byte("palette:\n  colors: [\"#zzzzzz\"]\n"), 0644)
	_, err := Load(&Flags{Config: palette})
	if !errors.Is(err, scene.ErrInvalidColor) {
		t.Errorf("bad palette error = %v, want ErrInvalidColor", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero width", func(c *Config) { c.Window.Width = 0 }},
		{"empty palette", func(c *Config) { c.Palette.Colors = nil }},
		{"default out of range", func(c *Config) { c.Palette.Default = 42 }},
		{"loud", func(c *Config) { c.Audio.Volume = 2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
