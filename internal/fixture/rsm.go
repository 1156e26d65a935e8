// Package fixture builds small in-memory asset files (RSM, glTF, GRF) for
// tests across the module.
package fixture

import (
	"bytes"
	"encoding/binary"

	"golang.org/x/text/encoding/korean"
)

// RSMFace is one triangle of an RSM node.
type RSMFace struct {
	Vertices  [3]uint16
	TexCoords [3]uint16
	Texture   uint16
	TwoSide   bool
}

// RSMRotKey is a rotation keyframe.
type RSMRotKey struct {
	Frame int32
	Quat  [4]float32
}

// RSMNode describes one node. A zero Matrix is written as identity and a
// zero Scale as (1, 1, 1).
type RSMNode struct {
	Name     string
	Parent   string
	Textures []int32

	Matrix   [9]float32
	Offset   [3]float32
	Position [3]float32
	RotAngle float32
	RotAxis  [3]float32
	Scale    [3]float32

	Vertices  [][3]float32
	TexCoords [][2]float32
	Faces     []RSMFace
	RotKeys   []RSMRotKey
}

// RSM describes a whole model. Minor defaults to 5 (version 1.5).
type RSM struct {
	Minor    uint8
	Textures []string
	Root     string
	Nodes    []RSMNode
}

// Triangle returns a single-node RSM with one textured triangle.
func Triangle(name, texture string) RSM {
	return RSM{
		Textures: []string{texture},
		Root:     name,
		Nodes: []RSMNode{{
			Name:      name,
			Textures:  []int32{0},
			Vertices:  [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
			TexCoords: [][2]float32{{0, 0}, {1, 0}, {0, 1}},
			Faces:     []RSMFace{{Vertices: [3]uint16{0, 1, 2}, TexCoords: [3]uint16{0, 1, 2}}},
		}},
	}
}

// Bytes encodes the model in the GRSM 1.x layout.
func (m RSM) Bytes() []byte {
	minor := m.Minor
	if minor == 0 {
		minor = 5
	}

	var buf bytes.Buffer
	w := func(v any) { binary.Write(&buf, binary.LittleEndian, v) }

	buf.WriteString("GRSM")
	buf.WriteByte(1)
	buf.WriteByte(minor)
	w(int32(0)) // anim length
	w(int32(2)) // smooth shading
	if minor >= 4 {
		buf.WriteByte(255)
	}
	buf.Write(make([]byte, 16))

	w(int32(len(m.Textures)))
	for _, t := range m.Textures {
		buf.Write(fixedString(t, 40))
	}
	buf.Write(fixedString(m.Root, 40))

	w(int32(len(m.Nodes)))
	for _, n := range m.Nodes {
		buf.Write(fixedString(n.Name, 40))
		buf.Write(fixedString(n.Parent, 40))
		w(int32(len(n.Textures)))
		w(n.Textures)

		if n.Matrix == ([9]float32{}) {
			n.Matrix = [9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1}
		}
		if n.Scale == ([3]float32{}) {
			n.Scale = [3]float32{1, 1, 1}
		}
		w(n.Matrix)
		w(n.Offset)
		w(n.Position)
		w(n.RotAngle)
		w(n.RotAxis)
		w(n.Scale)

		w(int32(len(n.Vertices)))
		w(n.Vertices)

		w(int32(len(n.TexCoords)))
		for _, tc := range n.TexCoords {
			if minor >= 2 {
				buf.Write([]byte{255, 255, 255, 255})
			}
			w(tc)
		}

		w(int32(len(n.Faces)))
		for _, f := range n.Faces {
			w(f.Vertices)
			w(f.TexCoords)
			w(f.Texture)
			w(uint16(0))
			twoSide := int32(0)
			if f.TwoSide {
				twoSide = 1
			}
			w(twoSide)
			if minor >= 2 {
				w(int32(0))
			}
		}

		if minor >= 5 {
			w(int32(0)) // position keys
		}
		w(int32(len(n.RotKeys)))
		for _, k := range n.RotKeys {
			w(k.Frame)
			w(k.Quat)
		}
	}

	return buf.Bytes()
}

func fixedString(s string, size int) []byte {
	out := make([]byte, size)
	enc, err := korean.EUCKR.NewEncoder().Bytes([]byte(s))
	if err != nil {
		enc = []byte(s)
	}
	copy(out, enc)
	return out
}
