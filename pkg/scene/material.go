package scene

import "image"

// Material describes how a mesh is shaded.
// Color multiplies the texture map when one is present.
type Material struct {
	Name        string
	Color       Color
	Opacity     float32
	DoubleSided bool

	// TextureName is the asset path the map was loaded from (may be empty).
	TextureName string
	Map         image.Image
}

// NewMaterial creates an opaque single-sided material.
func NewMaterial(name string, color Color) *Material {
	return &Material{
		Name:    name,
		Color:   color,
		Opacity: 1.0,
	}
}

// Clone returns a new material object with the same values.
// The texture image is shared; it is never mutated.
func (m *Material) Clone() *Material {
	c := *m
	return &c
}
