package debug

import (
	"testing"

	"github.com/Faultbox/midgard-paint/pkg/scene"
)

func TestBoxLines(t *testing.T) {
	b := scene.Bounds{Min: [3]float32{-1, 0, 2}, Max: [3]float32{1, 3, 4}}
	lines := BoxLines(b, 0)
	if len(lines) != BoxVertexCount {
		t.Fatalf("got %d vertices, want %d", len(lines), BoxVertexCount)
	}

	// Every endpoint is a corner and every edge is axis-aligned.
	for i := 0; i < len(lines); i += 2 {
		a, c := lines[i], lines[i+1]
		diff := 0
		for axis := 0; axis < 3; axis++ {
			if a[axis] != b.Min[axis] && a[axis] != b.Max[axis] {
				t.Fatalf("vertex %v is not a corner", a)
			}
			if a[axis] != c[axis] {
				diff++
			}
		}
		if diff != 1 {
			t.Errorf("edge %v-%v is not axis-aligned", a, c)
		}
	}
}

func TestBoxLinesPadding(t *testing.T) {
	b := scene.Bounds{Min: [3]float32{0, 0, 0}, Max: [3]float32{3, 0, 4}}
	lines := BoxLines(b, 0.1)
	// Diagonal is 5, so the box grows by 0.5 on each side.
	want := [3]float32{-0.5, -0.5, -0.5}
	if lines[0] != want {
		t.Errorf("first corner = %v, want %v", lines[0], want)
	}
}

func TestBoxLinesEmpty(t *testing.T) {
	if lines := BoxLines(scene.EmptyBounds(), BoxPadding); lines != nil {
		t.Errorf("empty bounds gave %d vertices", len(lines))
	}
}
