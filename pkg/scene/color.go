// Package scene provides a minimal scene graph of nodes, meshes and materials.
package scene

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidColor is returned when a color string cannot be parsed.
var ErrInvalidColor = errors.New("invalid color")

// Color is a 24-bit RGB color stored as 0xRRGGBB.
type Color uint32

// Common colors.
const (
	White Color = 0xffffff
	Black Color = 0x000000
)

// NewColorRGB builds a color from 8-bit channels.
func NewColorRGB(r, g, b uint8) Color {
	return Color(uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

// NewColorFloat builds a color from 0-1 float channels, clamping out-of-range values.
func NewColorFloat(r, g, b float32) Color {
	return NewColorRGB(unitToByte(r), unitToByte(g), unitToByte(b))
}

// Set copies another color into c.
func (c *Color) Set(other Color) {
	*c = other & 0xffffff
}

// SetHex sets the color from a 0xRRGGBB integer. Bits above 24 are dropped.
func (c *Color) SetHex(hex uint32) {
	*c = Color(hex & 0xffffff)
}

// Hex returns the color as a 0xRRGGBB integer.
func (c Color) Hex() uint32 {
	return uint32(c) & 0xffffff
}

// RGB8 returns the 8-bit channels.
func (c Color) RGB8() (r, g, b uint8) {
	return uint8(c >> 16), uint8(c >> 8), uint8(c)
}

// RGB returns the channels normalized to 0-1, ready for shader uniforms.
func (c Color) RGB() [3]float32 {
	r, g, b := c.RGB8()
	return [3]float32{float32(r) / 255, float32(g) / 255, float32(b) / 255}
}

// String returns the color as "#rrggbb".
func (c Color) String() string {
	return fmt.Sprintf("#%06x", c.Hex())
}

// ParseColor parses "#rrggbb", "0xrrggbb", "rrggbb" or short "#rgb".
func ParseColor(s string) (Color, error) {
	v := strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(v, "#"):
		v = v[1:]
	case strings.HasPrefix(v, "0x"), strings.HasPrefix(v, "0X"):
		v = v[2:]
	}

	if len(v) == 3 {
		v = string([]byte{v[0], v[0], v[1], v[1], v[2], v[2]})
	}
	if len(v) != 6 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}

	n, err := strconv.ParseUint(v, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return Color(n), nil
}

// MarshalText implements encoding.TextMarshaler.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func unitToByte(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
