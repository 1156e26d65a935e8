package fixture

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
)

// GLTFMesh is one single-primitive mesh placed under the root node.
type GLTFMesh struct {
	Name      string
	Positions [][3]float32
	Indices   []uint16
	Color     [4]float32
}

// GLTF describes a document with one root node and a child node per mesh.
type GLTF struct {
	Root        string
	Translation [3]float32
	Meshes      []GLTFMesh
}

// Quad returns a document with two colored triangles named after the given meshes.
func Quad(first, second string) GLTF {
	return GLTF{
		Root: "quad",
		Meshes: []GLTFMesh{
			{
				Name:      first,
				Positions: [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}},
				Indices:   []uint16{0, 1, 2},
				Color:     [4]float32{1, 0, 0, 1},
			},
			{
				Name:      second,
				Positions: [][3]float32{{0, 0, 0}, {1, 1, 0}, {0, 1, 0}},
				Indices:   []uint16{0, 1, 2},
				Color:     [4]float32{0, 0, 1, 1},
			},
		},
	}
}

// document returns the JSON tree and the binary buffer it references.
func (g GLTF) document() (map[string]any, []byte) {
	var bin bytes.Buffer
	var (
		accessors   []map[string]any
		bufferViews []map[string]any
		meshes      []map[string]any
		materials   []map[string]any
		nodes       []map[string]any
		children    []int
	)

	addView := func(data []byte, count int, compType int, typ string) int {
		for bin.Len()%4 != 0 {
			bin.WriteByte(0)
		}
		bufferViews = append(bufferViews, map[string]any{
			"buffer": 0, "byteOffset": bin.Len(), "byteLength": len(data),
		})
		bin.Write(data)
		accessors = append(accessors, map[string]any{
			"bufferView": len(bufferViews) - 1, "componentType": compType, "count": count, "type": typ,
		})
		return len(accessors) - 1
	}

	nodes = append(nodes, nil) // root placeholder
	for i, m := range g.Meshes {
		var pos, idx bytes.Buffer
		binary.Write(&pos, binary.LittleEndian, m.Positions)
		binary.Write(&idx, binary.LittleEndian, m.Indices)
		posAcc := addView(pos.Bytes(), len(m.Positions), 5126, "VEC3")
		idxAcc := addView(idx.Bytes(), len(m.Indices), 5123, "SCALAR")

		materials = append(materials, map[string]any{
			"name":                 m.Name,
			"pbrMetallicRoughness": map[string]any{"baseColorFactor": m.Color},
		})
		meshes = append(meshes, map[string]any{
			"name": m.Name,
			"primitives": []map[string]any{{
				"attributes": map[string]int{"POSITION": posAcc},
				"indices":    idxAcc,
				"material":   i,
			}},
		})
		nodes = append(nodes, map[string]any{"name": m.Name, "mesh": i})
		children = append(children, len(nodes)-1)
	}
	nodes[0] = map[string]any{"name": g.Root, "children": children, "translation": g.Translation}

	doc := map[string]any{
		"asset":       map[string]any{"version": "2.0", "generator": "fixture"},
		"scene":       0,
		"scenes":      []map[string]any{{"nodes": []int{0}}},
		"nodes":       nodes,
		"meshes":      meshes,
		"materials":   materials,
		"accessors":   accessors,
		"bufferViews": bufferViews,
		"buffers":     []map[string]any{{"byteLength": bin.Len()}},
	}
	return doc, bin.Bytes()
}

// JSON encodes the document as .gltf with the buffer embedded as a data URI.
func (g GLTF) JSON() []byte {
	doc, bin := g.document()
	doc["buffers"] = []map[string]any{{
		"byteLength": len(bin),
		"uri":        "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(bin),
	}}
	out, _ := json.Marshal(doc)
	return out
}

// JSONExternal encodes the document as .gltf referencing uri for its buffer.
// The buffer bytes are returned alongside.
func (g GLTF) JSONExternal(uri string) ([]byte, []byte) {
	doc, bin := g.document()
	doc["buffers"] = []map[string]any{{"byteLength": len(bin), "uri": uri}}
	out, _ := json.Marshal(doc)
	return out, bin
}

// GLB encodes the document as a binary glTF container.
func (g GLTF) GLB() []byte {
	doc, bin := g.document()
	js, _ := json.Marshal(doc)
	for len(js)%4 != 0 {
		js = append(js, ' ')
	}
	for len(bin)%4 != 0 {
		bin = append(bin, 0)
	}

	var buf bytes.Buffer
	w := func(v any) { binary.Write(&buf, binary.LittleEndian, v) }
	w(uint32(0x46546C67))
	w(uint32(2))
	w(uint32(12 + 8 + len(js) + 8 + len(bin)))
	w(uint32(len(js)))
	w(uint32(0x4E4F534A))
	buf.Write(js)
	w(uint32(len(bin)))
	w(uint32(0x004E4942))
	buf.Write(bin)
	return buf.Bytes()
}
