// Package lighting computes the directional light the viewer shades with.
package lighting

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/midgard-paint/pkg/math"
)

// Default sun placement, in degrees.
const (
	DefaultAzimuth   = 45
	DefaultElevation = 50
)

// SunDirection converts an azimuth around Y (0-360) and an elevation above
// the horizon (0-90), both in degrees, to a unit vector pointing at the sun.
func SunDirection(azimuth, elevation float32) math.Vec3 {
	az := azimuth * math32.Pi / 180
	el := elevation * math32.Pi / 180

	return math.Vec3{
		math32.Cos(el) * math32.Sin(az),
		math32.Sin(el),
		math32.Cos(el) * math32.Cos(az),
	}
}

// LightDirection returns the direction the sun's light travels in, which is
// what a shader dots against surface normals.
func LightDirection(azimuth, elevation float32) math.Vec3 {
	return SunDirection(azimuth, elevation).Scale(-1)
}
