// RSM (Resource Model) format parser for 3D models.
package formats

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// RSM format errors.
var (
	ErrInvalidRSMMagic       = errors.New("invalid RSM magic: expected 'GRSM'")
	ErrUnsupportedRSMVersion = errors.New("unsupported RSM version")
	ErrTruncatedRSMData      = errors.New("truncated RSM data")
	ErrInvalidNodeCount      = errors.New("invalid RSM node count")
)

// Element limits; anything larger is treated as corrupt.
const (
	maxRSMTextures  = 1000
	maxRSMNodes     = 10000
	maxRSMVertices  = 100000
	maxRSMKeyframes = 10000
)

// RSMVersion represents the RSM file version.
type RSMVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v RSMVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// AtLeast returns true if version is >= major.minor.
func (v RSMVersion) AtLeast(major, minor uint8) bool {
	if v.Major != major {
		return v.Major > major
	}
	return v.Minor >= minor
}

// RSMShadingType represents the shading mode for rendering.
type RSMShadingType int32

const (
	RSMShadingNone   RSMShadingType = 0
	RSMShadingFlat   RSMShadingType = 1
	RSMShadingSmooth RSMShadingType = 2
)

// String returns a human-readable shading type name.
func (s RSMShadingType) String() string {
	switch s {
	case RSMShadingNone:
		return "None"
	case RSMShadingFlat:
		return "Flat"
	case RSMShadingSmooth:
		return "Smooth"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// RSMTexCoord is a texture coordinate with its vertex color.
type RSMTexCoord struct {
	Color [4]uint8 // BGRA, v1.2+; white before
	U, V  float32
}

// RSMFace is a triangle.
type RSMFace struct {
	VertexIDs   [3]uint16
	TexCoordIDs [3]uint16
	TextureID   uint16 // index into the node's TextureIDs
	Padding     uint16
	TwoSide     int32
	SmoothGroup int32 // v1.2+
}

// RSMPosKeyframe is a position animation keyframe (v1.5+).
type RSMPosKeyframe struct {
	Frame    int32
	Position [3]float32
}

// RSMRotKeyframe is a rotation animation keyframe.
type RSMRotKeyframe struct {
	Frame      int32
	Quaternion [4]float32 // X, Y, Z, W
}

// RSMNode is one node of the model hierarchy.
type RSMNode struct {
	Name       string
	Parent     string
	TextureIDs []int32 // indices into RSM.Textures

	Matrix   [9]float32 // 3x3, column-major
	Offset   [3]float32
	Position [3]float32
	RotAngle float32
	RotAxis  [3]float32
	Scale    [3]float32

	Vertices  [][3]float32
	TexCoords []RSMTexCoord
	Faces     []RSMFace

	PosKeys []RSMPosKeyframe
	RotKeys []RSMRotKeyframe
}

// RSM is a parsed resource model.
type RSM struct {
	Version    RSMVersion
	AnimLength int32
	Shading    RSMShadingType
	Alpha      float32
	Textures   []string
	RootNode   string
	Nodes      []RSMNode
}

// ParseRSM parses RSM 1.x data.
func ParseRSM(data []byte) (*RSM, error) {
	if len(data) < 6 {
		return nil, ErrTruncatedRSMData
	}
	if string(data[:4]) != "GRSM" {
		return nil, ErrInvalidRSMMagic
	}

	br := newBinReader(data)
	br.skip(4)

	rsm := &RSM{
		Version: RSMVersion{Major: br.uint8(), Minor: br.uint8()},
		Alpha:   1.0,
	}
	if rsm.Version.Major != 1 || rsm.Version.Minor < 1 || rsm.Version.Minor > 5 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRSMVersion, rsm.Version)
	}

	rsm.AnimLength = br.int32()
	rsm.Shading = RSMShadingType(br.int32())
	if rsm.Version.AtLeast(1, 4) {
		rsm.Alpha = float32(br.uint8()) / 255.0
	}
	br.skip(16) // reserved

	texCount, ok := br.count(maxRSMTextures)
	if !ok {
		return nil, truncatedOr(br.err, fmt.Errorf("invalid RSM texture count"))
	}
	rsm.Textures = make([]string, texCount)
	for i := range rsm.Textures {
		rsm.Textures[i] = br.fixedString(40)
	}

	rsm.RootNode = br.fixedString(40)

	nodeCount, ok := br.count(maxRSMNodes)
	if !ok {
		return nil, truncatedOr(br.err, ErrInvalidNodeCount)
	}

	rsm.Nodes = make([]RSMNode, nodeCount)
	for i := range rsm.Nodes {
		if err := parseRSMNode(br, rsm.Version, &rsm.Nodes[i]); err != nil {
			return nil, fmt.Errorf("parsing node %d: %w", i, err)
		}
	}

	// Volume boxes may follow; they carry nothing a mesh needs.
	return rsm, nil
}

func parseRSMNode(br *binReader, version RSMVersion, node *RSMNode) error {
	node.Name = br.fixedString(40)
	node.Parent = br.fixedString(40)

	n, ok := br.count(maxRSMTextures)
	if !ok {
		return truncatedOr(br.err, fmt.Errorf("invalid texture count"))
	}
	node.TextureIDs = make([]int32, n)
	br.read(node.TextureIDs)

	br.read(&node.Matrix)
	br.read(&node.Offset)
	br.read(&node.Position)
	node.RotAngle = br.float32()
	br.read(&node.RotAxis)
	br.read(&node.Scale)

	if n, ok = br.count(maxRSMVertices); !ok {
		return truncatedOr(br.err, fmt.Errorf("invalid vertex count"))
	}
	node.Vertices = make([][3]float32, n)
	br.read(node.Vertices)

	if n, ok = br.count(maxRSMVertices); !ok {
		return truncatedOr(br.err, fmt.Errorf("invalid texcoord count"))
	}
	node.TexCoords = make([]RSMTexCoord, n)
	for i := range node.TexCoords {
		tc := &node.TexCoords[i]
		if version.AtLeast(1, 2) {
			br.read(&tc.Color)
		} else {
			tc.Color = [4]uint8{255, 255, 255, 255}
		}
		tc.U = br.float32()
		tc.V = br.float32()
	}

	if n, ok = br.count(maxRSMVertices); !ok {
		return truncatedOr(br.err, fmt.Errorf("invalid face count"))
	}
	node.Faces = make([]RSMFace, n)
	for i := range node.Faces {
		f := &node.Faces[i]
		br.read(&f.VertexIDs)
		br.read(&f.TexCoordIDs)
		br.read(&f.TextureID)
		br.read(&f.Padding)
		f.TwoSide = br.int32()
		if version.AtLeast(1, 2) {
			f.SmoothGroup = br.int32()
		}
	}

	if version.AtLeast(1, 5) {
		if n, ok = br.count(maxRSMKeyframes); !ok {
			return truncatedOr(br.err, fmt.Errorf("invalid position key count"))
		}
		node.PosKeys = make([]RSMPosKeyframe, n)
		br.read(node.PosKeys)
	}

	if n, ok = br.count(maxRSMKeyframes); !ok {
		return truncatedOr(br.err, fmt.Errorf("invalid rotation key count"))
	}
	node.RotKeys = make([]RSMRotKeyframe, n)
	br.read(node.RotKeys)

	return truncatedOr(br.err, nil)
}

// truncatedOr maps a read failure to ErrTruncatedRSMData, else returns fallback.
func truncatedOr(readErr, fallback error) error {
	if errors.Is(readErr, io.EOF) || errors.Is(readErr, io.ErrUnexpectedEOF) {
		return ErrTruncatedRSMData
	}
	if readErr != nil {
		return readErr
	}
	return fallback
}

// ParseRSMFile parses an RSM file from disk.
func ParseRSMFile(path string) (*RSM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading RSM file: %w", err)
	}
	return ParseRSM(data)
}

// NodeByName returns a node by its name, or nil if not found.
func (rsm *RSM) NodeByName(name string) *RSMNode {
	for i := range rsm.Nodes {
		if rsm.Nodes[i].Name == name {
			return &rsm.Nodes[i]
		}
	}
	return nil
}

// ChildNodes returns the nodes whose parent is parentName, in file order.
// A node naming itself as parent is never its own child.
func (rsm *RSM) ChildNodes(parentName string) []*RSMNode {
	var children []*RSMNode
	for i := range rsm.Nodes {
		n := &rsm.Nodes[i]
		if n.Parent == parentName && n.Name != parentName {
			children = append(children, n)
		}
	}
	return children
}

// TotalFaceCount returns the number of faces across all nodes.
func (rsm *RSM) TotalFaceCount() int {
	total := 0
	for i := range rsm.Nodes {
		total += len(rsm.Nodes[i].Faces)
	}
	return total
}
