// Package texture decodes model textures into RGBA images.
package texture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"path"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
)

// ErrUnsupportedFormat is returned for image types the decoder does not know.
var ErrUnsupportedFormat = errors.New("unsupported texture format")

// Decode decodes data as the image type named by the extension of name.
// When the extension is missing or unknown the type is sniffed from the
// header bytes. Ragnarok magenta is keyed to transparent when keyMagenta is set.
func Decode(data []byte, name string, keyMagenta bool) (*image.RGBA, error) {
	img, err := decode(data, strings.ToLower(path.Ext(name)))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}
	return ToRGBA(img, keyMagenta), nil
}

func decode(data []byte, ext string) (image.Image, error) {
	r := bytes.NewReader(data)
	switch ext {
	case ".bmp":
		return bmp.Decode(r)
	case ".tga":
		return tga.Decode(r)
	case ".png":
		return png.Decode(r)
	case ".jpg", ".jpeg":
		return jpeg.Decode(r)
	}

	switch {
	case bytes.HasPrefix(data, []byte("BM")):
		return bmp.Decode(r)
	case bytes.HasPrefix(data, []byte("\x89PNG")):
		return png.Decode(r)
	case bytes.HasPrefix(data, []byte("\xff\xd8")):
		return jpeg.Decode(r)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}

// IsMagentaKey reports whether the color is the near-magenta transparency key.
func IsMagentaKey(r, g, b uint8) bool {
	return r >= 250 && g <= 10 && b >= 250
}

// ToRGBA converts img to RGBA with its origin at (0, 0). Keyed pixels become
// transparent black so filtering does not bleed magenta into edges.
func ToRGBA(img image.Image, keyMagenta bool) *image.RGBA {
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)

	if !keyMagenta {
		return rgba
	}
	for i := 0; i+3 < len(rgba.Pix); i += 4 {
		p := rgba.Pix[i : i+4 : i+4]
		if IsMagentaKey(p[0], p[1], p[2]) {
			p[0], p[1], p[2], p[3] = 0, 0, 0, 0
		}
	}
	return rgba
}

// Solid returns a 1x1 image of c, used as a placeholder map.
func Solid(c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.SetRGBA(0, 0, c)
	return img
}

// Stale returns the keys of uploaded that are not in live.
func Stale(uploaded map[image.Image]uint32, live []image.Image) []image.Image {
	if len(uploaded) == 0 {
		return nil
	}
	keep := make(map[image.Image]bool, len(live))
	for _, img := range live {
		keep[img] = true
	}
	var stale []image.Image
	for img := range uploaded {
		if !keep[img] {
			stale = append(stale, img)
		}
	}
	return stale
}
