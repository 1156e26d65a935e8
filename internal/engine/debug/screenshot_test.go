package debug

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/anthonynsimon/bild/imgio"
)

func fixedClock() time.Time {
	return time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
}

func TestFilename(t *testing.T) {
	tests := []struct {
		dir, prefix string
		want        string
	}{
		{"", "art", "art_2024-03-09_14-05-07.png"},
		{"out", "art", filepath.Join("out", "art_2024-03-09_14-05-07.png")},
		{"", "", "capture_2024-03-09_14-05-07.png"},
	}
	for _, tt := range tests {
		c := NewCapture(tt.dir, tt.prefix)
		c.Now = fixedClock
		if got := c.Filename(); got != tt.want {
			t.Errorf("Filename(%q, %q) = %q, want %q", tt.dir, tt.prefix, got, tt.want)
		}
	}
}

func TestSaveFramebufferFlips(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	c := NewCapture(dir, "shot")
	c.Now = fixedClock

	// Bottom row red, top row blue as OpenGL would return it.
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}
	img.SetRGBA(0, 0, red)
	img.SetRGBA(1, 0, red)
	img.SetRGBA(0, 1, blue)
	img.SetRGBA(1, 1, blue)

	path, err := c.SaveFramebuffer(img)
	if err != nil {
		t.Fatalf("SaveFramebuffer: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("file not written: %v", err)
	}

	saved, err := imgio.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	r, _, b, _ := saved.At(0, 0).RGBA()
	if r != 0 || b == 0 {
		t.Errorf("top-left after flip should be blue, got r=%d b=%d", r, b)
	}
	r, _, b, _ = saved.At(0, 1).RGBA()
	if r == 0 || b != 0 {
		t.Errorf("bottom-left after flip should be red, got r=%d b=%d", r, b)
	}
}

func TestSaveEmpty(t *testing.T) {
	c := NewCapture(t.TempDir(), "x")
	if _, err := c.Save(image.NewRGBA(image.Rectangle{})); err == nil {
		t.Error("saving an empty image should fail")
	}
}

func TestThumbnail(t *testing.T) {
	tests := []struct {
		w, h, size   int
		wantW, wantH int
	}{
		{100, 50, 20, 20, 10},
		{50, 100, 20, 10, 20},
		{10, 10, 20, 10, 10},
		{1000, 1, 10, 10, 1},
	}
	for _, tt := range tests {
		got := Thumbnail(image.NewRGBA(image.Rect(0, 0, tt.w, tt.h)), tt.size).Bounds()
		if got.Dx() != tt.wantW || got.Dy() != tt.wantH {
			t.Errorf("Thumbnail(%dx%d, %d) = %dx%d, want %dx%d", tt.w, tt.h, tt.size, got.Dx(), got.Dy(), tt.wantW, tt.wantH)
		}
	}
}
