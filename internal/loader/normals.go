package loader

import (
	"github.com/Faultbox/midgard-paint/pkg/math"
	"github.com/Faultbox/midgard-paint/pkg/scene"
)

// faceNormal returns the unit normal of a counter-clockwise triangle, or the
// zero vector when the triangle is degenerate.
func faceNormal(a, b, c [3]float32) [3]float32 {
	e1 := math.Vec3(b).Sub(math.Vec3(a))
	e2 := math.Vec3(c).Sub(math.Vec3(a))
	n := e1.Cross(e2)
	if n.Length() < 1e-8 {
		return [3]float32{}
	}
	return n.Normalize()
}

// smoothNormals averages normals of vertices sharing a quantized position.
func smoothNormals(vertices []scene.Vertex) {
	const epsilon float32 = 0.001

	byPos := make(map[[3]int32][]int)
	for i := range vertices {
		p := vertices[i].Position
		key := [3]int32{int32(p[0] / epsilon), int32(p[1] / epsilon), int32(p[2] / epsilon)}
		byPos[key] = append(byPos[key], i)
	}

	for _, idxs := range byPos {
		if len(idxs) < 2 {
			continue
		}
		var sum math.Vec3
		for _, i := range idxs {
			sum = sum.Add(vertices[i].Normal)
		}
		avg := sum.Normalize()
		if avg == (math.Vec3{}) {
			continue
		}
		for _, i := range idxs {
			vertices[i].Normal = avg
		}
	}
}
