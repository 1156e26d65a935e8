package scene

import "github.com/chewxy/math32"

// Vertex is an interleaved mesh vertex, laid out for direct GPU upload.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	TexCoord [2]float32
}

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min [3]float32
	Max [3]float32
}

// EmptyBounds returns an inverted box that any Extend call will replace.
func EmptyBounds() Bounds {
	return Bounds{
		Min: [3]float32{math32.MaxFloat32, math32.MaxFloat32, math32.MaxFloat32},
		Max: [3]float32{-math32.MaxFloat32, -math32.MaxFloat32, -math32.MaxFloat32},
	}
}

// IsEmpty reports whether no point was ever added.
func (b Bounds) IsEmpty() bool {
	return b.Min[0] > b.Max[0]
}

// Extend grows the box to contain p.
func (b *Bounds) Extend(p [3]float32) {
	for i := 0; i < 3; i++ {
		b.Min[i] = math32.Min(b.Min[i], p[i])
		b.Max[i] = math32.Max(b.Max[i], p[i])
	}
}

// Union grows the box to contain other.
func (b *Bounds) Union(other Bounds) {
	if other.IsEmpty() {
		return
	}
	b.Extend(other.Min)
	b.Extend(other.Max)
}

// Center returns the midpoint of the box.
func (b Bounds) Center() [3]float32 {
	return [3]float32{
		(b.Min[0] + b.Max[0]) / 2,
		(b.Min[1] + b.Max[1]) / 2,
		(b.Min[2] + b.Max[2]) / 2,
	}
}

// Radius returns half the diagonal length.
func (b Bounds) Radius() float32 {
	dx := b.Max[0] - b.Min[0]
	dy := b.Max[1] - b.Min[1]
	dz := b.Max[2] - b.Min[2]
	return math32.Sqrt(dx*dx+dy*dy+dz*dz) / 2
}

// Geometry holds indexed triangle data.
type Geometry struct {
	Vertices []Vertex
	Indices  []uint32
	Bounds   Bounds
}

// NewGeometry creates geometry and computes its bounds.
func NewGeometry(vertices []Vertex, indices []uint32) *Geometry {
	g := &Geometry{Vertices: vertices, Indices: indices}
	g.ComputeBounds()
	return g
}

// ComputeBounds recalculates Bounds from the vertex positions.
func (g *Geometry) ComputeBounds() {
	g.Bounds = EmptyBounds()
	for i := range g.Vertices {
		g.Bounds.Extend(g.Vertices[i].Position)
	}
}

// TriangleCount returns the number of indexed triangles.
func (g *Geometry) TriangleCount() int {
	return len(g.Indices) / 3
}

// Triangle returns the positions of triangle i.
func (g *Geometry) Triangle(i int) (a, b, c [3]float32) {
	return g.Vertices[g.Indices[i*3]].Position,
		g.Vertices[g.Indices[i*3+1]].Position,
		g.Vertices[g.Indices[i*3+2]].Position
}
