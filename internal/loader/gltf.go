package loader

import (
	"fmt"
	"image"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-paint/internal/engine/texture"
	"github.com/Faultbox/midgard-paint/internal/logger"
	"github.com/Faultbox/midgard-paint/pkg/formats"
	"github.com/Faultbox/midgard-paint/pkg/math"
	"github.com/Faultbox/midgard-paint/pkg/scene"
)

type gltfBuilder struct {
	l         *Loader
	doc       *formats.GLTF
	path      string
	materials map[int]*scene.Material
	fallback  *scene.Material
	visited   map[int]bool
}

// buildGLTF returns a group named after the file mirroring the default
// scene's node tree, with transforms baked into vertex positions.
func (l *Loader) buildGLTF(doc *formats.GLTF, p string) (*scene.Node, error) {
	b := &gltfBuilder{
		l:         l,
		doc:       doc,
		path:      p,
		materials: make(map[int]*scene.Material),
		visited:   make(map[int]bool),
	}

	root := scene.NewGroup(modelName(p))
	for _, idx := range doc.RootNodes() {
		child, err := b.buildNode(idx, math.Identity())
		if err != nil {
			return nil, err
		}
		if child != nil {
			root.Add(child)
		}
	}
	return root, nil
}

func localMatrix(n formats.GLTFNode) math.Mat4 {
	if n.Matrix != nil {
		return math.Mat4(*n.Matrix)
	}
	m := math.Identity()
	if t := n.Translation; t != nil {
		m = m.Mul(math.Translate(t[0], t[1], t[2]))
	}
	if r := n.Rotation; r != nil {
		m = m.Mul(math.FromQuat(*r))
	}
	if s := n.Scale; s != nil {
		m = m.Mul(math.Scale(s[0], s[1], s[2]))
	}
	return m
}

func (b *gltfBuilder) buildNode(idx int, parent math.Mat4) (*scene.Node, error) {
	if idx < 0 || idx >= len(b.doc.Nodes) || b.visited[idx] {
		return nil, nil
	}
	b.visited[idx] = true

	n := b.doc.Nodes[idx]
	world := parent.Mul(localMatrix(n))
	name := n.Name
	if name == "" {
		name = fmt.Sprintf("node%d", idx)
	}

	var node *scene.Node
	if n.Mesh != nil && *n.Mesh >= 0 && *n.Mesh < len(b.doc.Meshes) {
		meshes, err := b.buildMesh(b.doc.Meshes[*n.Mesh], name, world)
		if err != nil {
			return nil, err
		}
		if len(meshes) == 1 {
			node = meshes[0]
			node.Name = name
		} else {
			node = scene.NewGroup(name)
			for _, m := range meshes {
				node.Add(m)
			}
		}
	} else {
		node = scene.NewGroup(name)
	}

	for _, c := range n.Children {
		child, err := b.buildNode(c, world)
		if err != nil {
			return nil, err
		}
		if child != nil {
			node.Add(child)
		}
	}
	return node, nil
}

func (b *gltfBuilder) buildMesh(mesh formats.GLTFMesh, name string, world math.Mat4) ([]*scene.Node, error) {
	normalMatrix := world
	if inv, ok := world.Inverse(); ok {
		// Inverse-transpose keeps normals perpendicular under non-uniform scale.
		for r := 0; r < 4; r++ {
			for c := 0; c < 4; c++ {
				normalMatrix[c*4+r] = inv[r*4+c]
			}
		}
	}
	reverse := world.Determinant3() < 0

	var out []*scene.Node
	for pi, prim := range mesh.Primitives {
		if !prim.IsTriangles() {
			logger.Debug("skipping non-triangle primitive", zap.String("mesh", name), zap.Int("primitive", pi))
			continue
		}
		posIdx, ok := prim.Attributes["POSITION"]
		if !ok {
			continue
		}

		pos, comps, err := b.doc.ReadFloats(posIdx)
		if err != nil {
			return nil, fmt.Errorf("mesh %s positions: %w", name, err)
		}
		if comps != 3 {
			return nil, fmt.Errorf("mesh %s: %w: POSITION must be VEC3", name, formats.ErrInvalidAccessor)
		}
		count := len(pos) / 3

		var normals, uvs []float32
		if i, ok := prim.Attributes["NORMAL"]; ok {
			if v, c, err := b.doc.ReadFloats(i); err == nil && c == 3 && len(v) == count*3 {
				normals = v
			}
		}
		if i, ok := prim.Attributes["TEXCOORD_0"]; ok {
			if v, c, err := b.doc.ReadFloats(i); err == nil && c == 2 && len(v) == count*2 {
				uvs = v
			}
		}

		vertices := make([]scene.Vertex, count)
		for i := range vertices {
			p := [3]float32{pos[i*3], pos[i*3+1], pos[i*3+2]}
			vertices[i].Position = world.TransformPoint(p)
			if normals != nil {
				d := normalMatrix.TransformDirection([3]float32{normals[i*3], normals[i*3+1], normals[i*3+2]})
				vertices[i].Normal = math.Vec3(d).Normalize()
			}
			if uvs != nil {
				vertices[i].TexCoord = [2]float32{uvs[i*2], uvs[i*2+1]}
			}
		}

		var indices []uint32
		if prim.Indices != nil {
			indices, err = b.doc.ReadIndices(*prim.Indices)
			if err != nil {
				return nil, fmt.Errorf("mesh %s indices: %w", name, err)
			}
		} else {
			indices = make([]uint32, count)
			for i := range indices {
				indices[i] = uint32(i)
			}
		}
		indices = indices[:len(indices)/3*3]
		for _, ix := range indices {
			if int(ix) >= count {
				return nil, fmt.Errorf("mesh %s: %w: index %d out of %d vertices", name, formats.ErrInvalidAccessor, ix, count)
			}
		}
		if reverse {
			for i := 0; i < len(indices); i += 3 {
				indices[i], indices[i+2] = indices[i+2], indices[i]
			}
		}
		if normals == nil {
			flatNormals(vertices, indices)
		}

		mat := b.material(prim.Material)
		out = append(out, scene.NewMesh(fmt.Sprintf("%s#%d", name, pi), scene.NewGeometry(vertices, indices), mat))
	}
	return out, nil
}

// flatNormals assigns each vertex the normal of the last face using it.
func flatNormals(vertices []scene.Vertex, indices []uint32) {
	for i := 0; i+2 < len(indices); i += 3 {
		a, b, c := indices[i], indices[i+1], indices[i+2]
		n := faceNormal(vertices[a].Position, vertices[b].Position, vertices[c].Position)
		vertices[a].Normal, vertices[b].Normal, vertices[c].Normal = n, n, n
	}
}

// material returns the shared material for a glTF material index.
func (b *gltfBuilder) material(index *int) *scene.Material {
	if index == nil || *index < 0 || *index >= len(b.doc.Materials) {
		if b.fallback == nil {
			b.fallback = scene.NewMaterial("default", scene.White)
		}
		return b.fallback
	}
	if m, ok := b.materials[*index]; ok {
		return m
	}

	src := b.doc.Materials[*index]
	base := src.BaseColor()
	m := scene.NewMaterial(src.Name, scene.NewColorFloat(base[0], base[1], base[2]))
	m.Opacity = base[3]
	m.DoubleSided = src.DoubleSided
	if tex := src.BaseColorTexture(); tex >= 0 {
		m.TextureName, m.Map = b.texture(tex)
	}
	b.materials[*index] = m
	return m
}

func (b *gltfBuilder) texture(index int) (string, image.Image) {
	if index >= len(b.doc.Textures) || b.doc.Textures[index].Source == nil {
		return "", nil
	}
	src := *b.doc.Textures[index].Source
	if src < 0 || src >= len(b.doc.Images) {
		return "", nil
	}

	info := b.doc.Images[src]
	name := info.URI
	if info.BufferView != nil || strings.HasPrefix(name, "data:") {
		name = fmt.Sprintf("image%d%s", src, mimeExt(info.MimeType))
	}

	data, err := b.doc.ImageData(src, b.l.resolver(b.path))
	if err != nil {
		logger.Warn("texture unavailable", zap.String("texture", name), zap.String("model", b.path), zap.Error(err))
		return name, nil
	}
	img, err := texture.Decode(data, name, false)
	if err != nil {
		logger.Warn("texture unavailable", zap.String("texture", name), zap.String("model", b.path), zap.Error(err))
		return name, nil
	}
	return name, img
}

func mimeExt(mime string) string {
	switch mime {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	}
	return ""
}
