package loader

import (
	"fmt"
	"image"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-paint/internal/engine/texture"
	"github.com/Faultbox/midgard-paint/internal/logger"
	"github.com/Faultbox/midgard-paint/pkg/formats"
	"github.com/Faultbox/midgard-paint/pkg/math"
	"github.com/Faultbox/midgard-paint/pkg/scene"
)

// rsmBuilder converts one parsed RSM into a scene subtree.
type rsmBuilder struct {
	l         *Loader
	rsm       *formats.RSM
	path      string
	materials map[int]*scene.Material
}

// buildRSM returns a group named after the file holding one node per RSM
// node. Geometry is baked to model space; Y is flipped to make RO's
// down-pointing Y axis point up.
func (l *Loader) buildRSM(rsm *formats.RSM, p string) *scene.Node {
	b := &rsmBuilder{l: l, rsm: rsm, path: p, materials: make(map[int]*scene.Material)}

	root := scene.NewGroup(modelName(p))
	nodes := make([]*scene.Node, len(rsm.Nodes))
	for i := range rsm.Nodes {
		nodes[i] = b.buildNode(&rsm.Nodes[i])
	}

	for i := range rsm.Nodes {
		parent := b.parentIndex(i)
		if parent < 0 {
			root.Add(nodes[i])
		} else {
			nodes[parent].Add(nodes[i])
		}
	}
	return root
}

// parentIndex returns the index of node i's parent, or -1 when it has none,
// names itself, names a missing node or sits on a parent cycle.
func (b *rsmBuilder) parentIndex(i int) int {
	index := func(name string) int {
		for j := range b.rsm.Nodes {
			if b.rsm.Nodes[j].Name == name {
				return j
			}
		}
		return -1
	}

	parent := index(b.rsm.Nodes[i].Parent)
	if parent < 0 || parent == i {
		return -1
	}

	seen := map[int]bool{i: true}
	for cur := parent; cur >= 0; {
		if seen[cur] {
			return -1
		}
		seen[cur] = true
		next := index(b.rsm.Nodes[cur].Parent)
		if next == cur {
			break
		}
		cur = next
	}
	return parent
}

type faceGroup struct {
	texture  int
	vertices []scene.Vertex
	indices  []uint32
	twoSided bool
}

func (b *rsmBuilder) buildNode(node *formats.RSMNode) *scene.Node {
	mat := b.nodeMatrix(node)
	reverse := mat.Determinant3() > 0

	var groups []*faceGroup
	byTexture := make(map[int]*faceGroup)

	for _, face := range node.Faces {
		valid := true
		for _, vid := range face.VertexIDs {
			if int(vid) >= len(node.Vertices) {
				valid = false
				break
			}
		}
		if !valid {
			continue
		}

		tex := 0
		if int(face.TextureID) < len(node.TextureIDs) {
			tex = int(node.TextureIDs[face.TextureID])
		}
		g := byTexture[tex]
		if g == nil {
			g = &faceGroup{texture: tex}
			byTexture[tex] = g
			groups = append(groups, g)
		}
		if face.TwoSide != 0 {
			g.twoSided = true
		}

		order := [3]int{0, 1, 2}
		if reverse {
			order = [3]int{2, 1, 0}
		}

		var tri [3]scene.Vertex
		for j, k := range order {
			pos := mat.TransformPoint(node.Vertices[face.VertexIDs[k]])
			pos[1] = -pos[1]
			tri[j].Position = pos
			if tc := int(face.TexCoordIDs[k]); tc < len(node.TexCoords) {
				tri[j].TexCoord = [2]float32{node.TexCoords[tc].U, node.TexCoords[tc].V}
			}
		}

		n := faceNormal(tri[0].Position, tri[1].Position, tri[2].Position)
		if n == ([3]float32{}) {
			continue
		}
		base := uint32(len(g.vertices))
		for j := range tri {
			tri[j].Normal = n
			g.vertices = append(g.vertices, tri[j])
		}
		g.indices = append(g.indices, base, base+1, base+2)
	}

	if b.rsm.Shading == formats.RSMShadingSmooth {
		for _, g := range groups {
			smoothNormals(g.vertices)
		}
	}

	switch len(groups) {
	case 0:
		return scene.NewGroup(node.Name)
	case 1:
		return scene.NewMesh(node.Name, scene.NewGeometry(groups[0].vertices, groups[0].indices), b.material(groups[0]))
	}

	group := scene.NewGroup(node.Name)
	for i, g := range groups {
		name := fmt.Sprintf("%s#%d", node.Name, i)
		group.Add(scene.NewMesh(name, scene.NewGeometry(g.vertices, g.indices), b.material(g)))
	}
	return group
}

// nodeMatrix returns parent hierarchy * offset * mat3. Children inherit
// position, rotation and scale but not offset or mat3. The first rotation
// key stands in for the axis-angle rotation when present.
func (b *rsmBuilder) nodeMatrix(node *formats.RSMNode) math.Mat4 {
	m := b.hierarchyMatrix(node, make(map[string]bool))
	m = m.Mul(math.Translate(node.Offset[0], node.Offset[1], node.Offset[2]))
	return m.Mul(math.FromMat3(node.Matrix))
}

func (b *rsmBuilder) hierarchyMatrix(node *formats.RSMNode, visited map[string]bool) math.Mat4 {
	if visited[node.Name] {
		return math.Identity()
	}
	visited[node.Name] = true

	local := math.Translate(node.Position[0], node.Position[1], node.Position[2])
	switch {
	case len(node.RotKeys) > 0:
		local = local.Mul(math.FromQuat(node.RotKeys[0].Quaternion))
	case node.RotAngle != 0:
		if axis := math.Vec3(node.RotAxis).Normalize(); axis != (math.Vec3{}) {
			local = local.Mul(math.RotateAxis(axis, node.RotAngle))
		}
	}
	local = local.Mul(math.Scale(node.Scale[0], node.Scale[1], node.Scale[2]))

	if node.Parent != "" && node.Parent != node.Name {
		if parent := b.rsm.NodeByName(node.Parent); parent != nil {
			return b.hierarchyMatrix(parent, visited).Mul(local)
		}
	}
	return local
}

// material returns the shared material for a texture index. Every mesh
// using the same texture starts with the same material object.
func (b *rsmBuilder) material(g *faceGroup) *scene.Material {
	if m, ok := b.materials[g.texture]; ok {
		if g.twoSided {
			m.DoubleSided = true
		}
		return m
	}

	name := ""
	if g.texture >= 0 && g.texture < len(b.rsm.Textures) {
		name = b.rsm.Textures[g.texture]
	}

	m := scene.NewMaterial(name, scene.White)
	m.Opacity = b.rsm.Alpha
	m.DoubleSided = g.twoSided
	m.TextureName = name
	if name != "" {
		m.Map = b.l.loadTexture(name, b.path)
	}
	b.materials[g.texture] = m
	return m
}

// loadTexture tries the texture directory, then the model's own directory.
// A missing or undecodable texture is logged and yields nil.
func (l *Loader) loadTexture(name, modelPath string) image.Image {
	candidates := []string{
		joinAsset(l.TextureDir, name),
		joinAsset(modelDir(modelPath), name),
	}

	var lastErr error
	for _, c := range candidates {
		data, err := l.assets.Load(c)
		if err != nil {
			lastErr = err
			continue
		}
		img, err := texture.Decode(data, name, true)
		if err != nil {
			lastErr = err
			break
		}
		return img
	}

	logger.Warn("texture unavailable",
		zap.String("texture", name),
		zap.String("model", modelPath),
		zap.Error(lastErr))
	return nil
}
