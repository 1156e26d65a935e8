// Package debug captures rendered frames to disk.
package debug

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
)

// Capture writes frames as timestamped PNG files.
type Capture struct {
	outputDir string
	prefix    string

	// Now is the clock used for filenames.
	Now func() time.Time
}

// NewCapture creates a capture writing prefix_<timestamp>.png into outputDir.
func NewCapture(outputDir, prefix string) *Capture {
	if prefix == "" {
		prefix = "capture"
	}
	return &Capture{outputDir: outputDir, prefix: prefix, Now: time.Now}
}

// SetOutputDir sets the output directory.
func (c *Capture) SetOutputDir(dir string) {
	c.outputDir = dir
}

// Filename returns the path the next capture would be written to.
func (c *Capture) Filename() string {
	name := fmt.Sprintf("%s_%s.png", c.prefix, c.Now().Format("2006-01-02_15-04-05"))
	if c.outputDir != "" {
		name = filepath.Join(c.outputDir, name)
	}
	return name
}

// SaveFramebuffer writes an image read from OpenGL, whose rows run bottom
// to top, and returns the file path.
func (c *Capture) SaveFramebuffer(img image.Image) (string, error) {
	return c.Save(transform.FlipV(img))
}

// Save writes img as PNG and returns the file path.
func (c *Capture) Save(img image.Image) (string, error) {
	if img.Bounds().Empty() {
		return "", fmt.Errorf("empty image")
	}
	if c.outputDir != "" {
		if err := os.MkdirAll(c.outputDir, 0755); err != nil {
			return "", fmt.Errorf("creating output dir: %w", err)
		}
	}

	filename := c.Filename()
	if err := imgio.Save(filename, img, imgio.PNGEncoder()); err != nil {
		return "", fmt.Errorf("saving %s: %w", filename, err)
	}
	return filename, nil
}

// Thumbnail scales img to fit within size x size, keeping its aspect ratio.
func Thumbnail(img image.Image, size int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= size && h <= size || w == 0 || h == 0 {
		return img
	}
	if w >= h {
		h = max(1, h*size/w)
		w = size
	} else {
		w = max(1, w*size/h)
		h = size
	}
	return transform.Resize(img, w, h, transform.Linear)
}
