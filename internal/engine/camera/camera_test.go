package camera

import (
	"testing"

	"github.com/chewxy/math32"

	"github.com/Faultbox/midgard-paint/pkg/math"
	"github.com/Faultbox/midgard-paint/pkg/scene"
)

func TestPositionDistance(t *testing.T) {
	c := NewOrbitCamera()
	c.Center = math.Vec3{1, 2, 3}
	c.Distance = 5
	c.Pitch = 0.3
	c.Yaw = 1.2

	if d := c.Position().Sub(c.Center).Length(); math32.Abs(d-5) > 1e-4 {
		t.Errorf("distance from center = %f, want 5", d)
	}
}

func TestViewMatrixLooksAtCenter(t *testing.T) {
	c := NewOrbitCamera()
	c.Center = math.Vec3{4, 0, -2}
	c.Distance = 7

	p := c.ViewMatrix().TransformPoint(c.Center)
	if math32.Abs(p[0]) > 1e-4 || math32.Abs(p[1]) > 1e-4 || math32.Abs(p[2]+7) > 1e-3 {
		t.Errorf("center in view space = %v, want (0, 0, -7)", p)
	}
}

func TestHandleDragClampsPitch(t *testing.T) {
	c := NewOrbitCamera()
	c.HandleDrag(0, 1e6)
	if c.Pitch != c.MaxPitch {
		t.Errorf("pitch = %f, want %f", c.Pitch, c.MaxPitch)
	}
	c.HandleDrag(0, -1e6)
	if c.Pitch != c.MinPitch {
		t.Errorf("pitch = %f, want %f", c.Pitch, c.MinPitch)
	}
}

func TestHandleZoomClampsDistance(t *testing.T) {
	c := NewOrbitCamera()
	c.Distance = 10
	c.HandleZoom(1)
	if c.Distance != 9 {
		t.Errorf("distance = %f, want 9", c.Distance)
	}
	for i := 0; i < 1000; i++ {
		c.HandleZoom(5)
	}
	if c.Distance != c.MinDistance {
		t.Errorf("distance = %f, want min %f", c.Distance, c.MinDistance)
	}
}

func TestFitToBounds(t *testing.T) {
	c := NewOrbitCamera()
	before := *c
	c.FitToBounds(scene.EmptyBounds())
	if c.Distance != before.Distance || c.Center != before.Center {
		t.Error("empty bounds should leave the camera alone")
	}

	b := scene.Bounds{Min: [3]float32{-1, -1, -1}, Max: [3]float32{1, 3, 1}}
	c.FitToBounds(b)
	if c.Center != (math.Vec3{0, 1, 0}) {
		t.Errorf("center = %v", c.Center)
	}
	if c.Distance <= b.Radius() {
		t.Errorf("distance %f should exceed the bounding radius %f", c.Distance, b.Radius())
	}
	if c.Near <= 0 || c.Far <= c.Distance {
		t.Errorf("clip planes %f..%f", c.Near, c.Far)
	}
}
