package debug

import "github.com/Faultbox/midgard-paint/pkg/scene"

// BoxVertexCount is the number of line vertices in a box outline (12 edges x 2).
const BoxVertexCount = 24

// BoxPadding is the relative margin added around selection boxes.
const BoxPadding = 0.02

// BoxLines returns line-list vertices outlining b, grown on every side by
// padding times the box diagonal. An empty box yields nil.
func BoxLines(b scene.Bounds, padding float32) [][3]float32 {
	if b.IsEmpty() {
		return nil
	}
	pad := b.Radius() * 2 * padding
	lo := [3]float32{b.Min[0] - pad, b.Min[1] - pad, b.Min[2] - pad}
	hi := [3]float32{b.Max[0] + pad, b.Max[1] + pad, b.Max[2] + pad}

	corner := func(x, y, z int) [3]float32 {
		pick := func(axis, bit int) float32 {
			if bit == 0 {
				return lo[axis]
			}
			return hi[axis]
		}
		return [3]float32{pick(0, x), pick(1, y), pick(2, z)}
	}

	lines := make([][3]float32, 0, BoxVertexCount)
	for _, y := range []int{0, 1} {
		// Bottom and top rings.
		lines = append(lines,
			corner(0, y, 0), corner(1, y, 0),
			corner(1, y, 0), corner(1, y, 1),
			corner(1, y, 1), corner(0, y, 1),
			corner(0, y, 1), corner(0, y, 0),
		)
	}
	for _, xz := range [][2]int{{0, 0}, {1, 0}, {1, 1}, {0, 1}} {
		lines = append(lines, corner(xz[0], 0, xz[1]), corner(xz[0], 1, xz[1]))
	}
	return lines
}
