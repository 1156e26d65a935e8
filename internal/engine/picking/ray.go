// Package picking casts rays from the screen into the scene to find the
// region under the cursor.
package picking

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/midgard-paint/pkg/math"
	"github.com/Faultbox/midgard-paint/pkg/scene"
)

// Ray is a half-line with a normalized direction.
type Ray struct {
	Origin    math.Vec3
	Direction math.Vec3
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float32) math.Vec3 {
	return r.Origin.Add(r.Direction.Scale(t))
}

// ScreenToRay converts pixel coordinates to a world-space ray.
// invViewProj is the inverse of the view-projection matrix.
func ScreenToRay(screenX, screenY, viewportW, viewportH float32, invViewProj math.Mat4) Ray {
	ndcX := 2*screenX/viewportW - 1
	ndcY := 1 - 2*screenY/viewportH // screen Y grows down

	near := invViewProj.TransformPoint([3]float32{ndcX, ndcY, -1})
	far := invViewProj.TransformPoint([3]float32{ndcX, ndcY, 1})

	return Ray{
		Origin:    near,
		Direction: math.Vec3(far).Sub(near).Normalize(),
	}
}

// IntersectBounds returns the entry distance of the ray into b, or the exit
// distance when the origin is inside.
func (r Ray) IntersectBounds(b scene.Bounds) (float32, bool) {
	if b.IsEmpty() {
		return 0, false
	}
	tmin := float32(-math32.MaxFloat32)
	tmax := float32(math32.MaxFloat32)

	for axis := 0; axis < 3; axis++ {
		o, d := r.Origin[axis], r.Direction[axis]
		if d == 0 {
			if o < b.Min[axis] || o > b.Max[axis] {
				return 0, false
			}
			continue
		}
		t1 := (b.Min[axis] - o) / d
		t2 := (b.Max[axis] - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math32.Max(tmin, t1)
		tmax = math32.Min(tmax, t2)
	}

	if tmax < tmin || tmax < 0 {
		return 0, false
	}
	if tmin < 0 {
		return tmax, true
	}
	return tmin, true
}

// IntersectTriangle returns the distance to triangle abc (either side),
// using the Moller-Trumbore test.
func (r Ray) IntersectTriangle(a, b, c [3]float32) (float32, bool) {
	const eps = 1e-7

	e1 := math.Vec3(b).Sub(a)
	e2 := math.Vec3(c).Sub(a)
	p := r.Direction.Cross(e2)
	det := e1.Dot(p)
	if math32.Abs(det) < eps {
		return 0, false
	}
	inv := 1 / det

	s := r.Origin.Sub(a)
	u := s.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	q := s.Cross(e1)
	v := r.Direction.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}

	t := e2.Dot(q) * inv
	if t < eps {
		return 0, false
	}
	return t, true
}

// Hit is the nearest mesh a ray struck.
type Hit struct {
	Index    int // position in the slice passed to Pick
	Mesh     *scene.Node
	Distance float32
}

// Pick returns the closest visible mesh hit by the ray. Meshes whose bounds
// the ray misses are skipped without testing triangles.
func Pick(r Ray, meshes []*scene.Node) (Hit, bool) {
	best := Hit{Index: -1, Distance: math32.MaxFloat32}

	for i, m := range meshes {
		if m == nil || !m.IsMesh() || !m.Visible {
			continue
		}
		g := m.Geometry
		if t, ok := r.IntersectBounds(g.Bounds); !ok || t > best.Distance {
			continue
		}
		for tri := 0; tri < g.TriangleCount(); tri++ {
			a, b, c := g.Triangle(tri)
			if t, ok := r.IntersectTriangle(a, b, c); ok && t < best.Distance {
				best = Hit{Index: i, Mesh: m, Distance: t}
			}
		}
	}

	return best, best.Index >= 0
}
