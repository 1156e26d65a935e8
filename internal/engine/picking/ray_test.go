package picking

import (
	"testing"

	"github.com/chewxy/math32"

	"github.com/Faultbox/midgard-paint/pkg/math"
	"github.com/Faultbox/midgard-paint/pkg/scene"
)

// quad returns a mesh covering [-1,1]x[-1,1] at depth z facing +Z.
func quad(name string, z float32) *scene.Node {
	geom := scene.NewGeometry([]scene.Vertex{
		{Position: [3]float32{-1, -1, z}},
		{Position: [3]float32{1, -1, z}},
		{Position: [3]float32{1, 1, z}},
		{Position: [3]float32{-1, 1, z}},
	}, []uint32{0, 1, 2, 0, 2, 3})
	return scene.NewMesh(name, geom, scene.NewMaterial(name, scene.White))
}

func TestIntersectTriangle(t *testing.T) {
	a, b, c := [3]float32{0, 0, 0}, [3]float32{1, 0, 0}, [3]float32{0, 1, 0}

	tests := []struct {
		name string
		ray  Ray
		hit  bool
		dist float32
	}{
		{"front", Ray{math.Vec3{0.2, 0.2, 5}, math.Vec3{0, 0, -1}}, true, 5},
		{"back side", Ray{math.Vec3{0.2, 0.2, -3}, math.Vec3{0, 0, 1}}, true, 3},
		{"outside", Ray{math.Vec3{0.8, 0.8, 5}, math.Vec3{0, 0, -1}}, false, 0},
		{"behind origin", Ray{math.Vec3{0.2, 0.2, 5}, math.Vec3{0, 0, 1}}, false, 0},
		{"parallel", Ray{math.Vec3{0.2, 0.2, 5}, math.Vec3{1, 0, 0}}, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := tt.ray.IntersectTriangle(a, b, c)
			if ok != tt.hit {
				t.Fatalf("hit = %v, want %v", ok, tt.hit)
			}
			if ok && math32.Abs(d-tt.dist) > 1e-5 {
				t.Errorf("distance = %f, want %f", d, tt.dist)
			}
		})
	}
}

func TestIntersectBounds(t *testing.T) {
	b := scene.Bounds{Min: [3]float32{-1, -1, -1}, Max: [3]float32{1, 1, 1}}

	if d, ok := (Ray{math.Vec3{0, 0, 5}, math.Vec3{0, 0, -1}}).IntersectBounds(b); !ok || d != 4 {
		t.Errorf("outside hit = %f, %v", d, ok)
	}
	if d, ok := (Ray{math.Vec3{0, 0, 0}, math.Vec3{1, 0, 0}}).IntersectBounds(b); !ok || d != 1 {
		t.Errorf("inside hit = %f, %v", d, ok)
	}
	if _, ok := (Ray{math.Vec3{5, 5, 5}, math.Vec3{0, 0, -1}}).IntersectBounds(b); ok {
		t.Error("parallel miss reported a hit")
	}
	if _, ok := (Ray{math.Vec3{0, 0, 5}, math.Vec3{0, 0, 1}}).IntersectBounds(b); ok {
		t.Error("box behind origin reported a hit")
	}
	if _, ok := (Ray{}).IntersectBounds(scene.EmptyBounds()); ok {
		t.Error("empty bounds reported a hit")
	}
}

func TestPickNearest(t *testing.T) {
	far := quad("far", -2)
	near := quad("near", 1)
	hidden := quad("hidden", 3)
	hidden.Visible = false
	meshes := []*scene.Node{far, near, hidden, scene.NewGroup("group")}

	hit, ok := Pick(Ray{math.Vec3{0.5, 0.5, 10}, math.Vec3{0, 0, -1}}, meshes)
	if !ok {
		t.Fatal("expected a hit")
	}
	if hit.Mesh != near || hit.Index != 1 {
		t.Errorf("picked %s (%d), want near", hit.Mesh.Name, hit.Index)
	}
	if math32.Abs(hit.Distance-9) > 1e-5 {
		t.Errorf("distance = %f, want 9", hit.Distance)
	}

	if _, ok := Pick(Ray{math.Vec3{5, 5, 10}, math.Vec3{0, 0, -1}}, meshes); ok {
		t.Error("ray beside the quads should miss")
	}
}

func TestScreenToRay(t *testing.T) {
	view := math.LookAt(math.Vec3{0, 0, 10}, math.Vec3{}, math.Vec3{0, 1, 0})
	proj := math.Perspective(math32.Pi/4, 1, 0.1, 100)
	inv, ok := proj.Mul(view).Inverse()
	if !ok {
		t.Fatal("view-projection not invertible")
	}

	r := ScreenToRay(50, 50, 100, 100, inv)
	if math32.Abs(r.Direction[2]+1) > 1e-4 || math32.Abs(r.Direction[0]) > 1e-4 {
		t.Errorf("center ray direction = %v, want (0, 0, -1)", r.Direction)
	}
	if math32.Abs(r.Origin[2]-9.9) > 1e-3 {
		t.Errorf("center ray origin = %v, want on the near plane", r.Origin)
	}

	// Upper-left pixel points up and left.
	r = ScreenToRay(0, 0, 100, 100, inv)
	if r.Direction[0] >= 0 || r.Direction[1] <= 0 {
		t.Errorf("corner ray direction = %v", r.Direction)
	}

	if p := r.At(2); math32.Abs(p.Sub(r.Origin).Length()-2) > 1e-4 {
		t.Errorf("At(2) distance = %f", p.Sub(r.Origin).Length())
	}
}
