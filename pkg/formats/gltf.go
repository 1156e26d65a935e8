// glTF 2.0 (.gltf / .glb) reader for static meshes.
package formats

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// glTF format errors.
var (
	ErrInvalidGLBMagic        = errors.New("invalid GLB magic: expected 'glTF'")
	ErrUnsupportedGLTFVersion = errors.New("unsupported glTF version")
	ErrTruncatedGLBData       = errors.New("truncated GLB data")
	ErrInvalidAccessor        = errors.New("invalid glTF accessor")
	ErrMissingBuffer          = errors.New("missing glTF buffer")
)

// GLB chunk types.
const (
	glbMagic     = 0x46546C67 // "glTF"
	glbChunkJSON = 0x4E4F534A // "JSON"
	glbChunkBIN  = 0x004E4942 // "BIN\0"
)

// Accessor component types.
const (
	GLTFUnsignedByte  = 5121
	GLTFUnsignedShort = 5123
	GLTFUnsignedInt   = 5125
	GLTFFloat         = 5126
)

// Primitive modes; only triangles are turned into geometry.
const GLTFModeTriangles = 4

// GLTF is a decoded glTF document with its buffers resolved.
type GLTF struct {
	Asset       GLTFAsset        `json:"asset"`
	Scene       *int             `json:"scene"`
	Scenes      []GLTFScene      `json:"scenes"`
	Nodes       []GLTFNode       `json:"nodes"`
	Meshes      []GLTFMesh       `json:"meshes"`
	Materials   []GLTFMaterial   `json:"materials"`
	Textures    []GLTFTexture    `json:"textures"`
	Images      []GLTFImage      `json:"images"`
	Accessors   []GLTFAccessor   `json:"accessors"`
	BufferViews []GLTFBufferView `json:"bufferViews"`
	Buffers     []GLTFBuffer     `json:"buffers"`

	// Data holds the bytes of each buffer, indexed like Buffers.
	Data [][]byte `json:"-"`
}

// GLTFAsset is the asset header.
type GLTFAsset struct {
	Version   string `json:"version"`
	Generator string `json:"generator"`
}

// GLTFScene lists root node indices.
type GLTFScene struct {
	Name  string `json:"name"`
	Nodes []int  `json:"nodes"`
}

// GLTFNode is one node of the hierarchy. A node carries either Matrix or TRS.
type GLTFNode struct {
	Name        string       `json:"name"`
	Children    []int        `json:"children"`
	Mesh        *int         `json:"mesh"`
	Matrix      *[16]float32 `json:"matrix"`
	Translation *[3]float32  `json:"translation"`
	Rotation    *[4]float32  `json:"rotation"` // X, Y, Z, W
	Scale       *[3]float32  `json:"scale"`
}

// GLTFMesh is a list of primitives.
type GLTFMesh struct {
	Name       string          `json:"name"`
	Primitives []GLTFPrimitive `json:"primitives"`
}

// GLTFPrimitive references accessors by attribute name.
type GLTFPrimitive struct {
	Attributes map[string]int `json:"attributes"`
	Indices    *int           `json:"indices"`
	Material   *int           `json:"material"`
	Mode       *int           `json:"mode"`
}

// IsTriangles reports whether the primitive is a triangle list.
func (p GLTFPrimitive) IsTriangles() bool {
	return p.Mode == nil || *p.Mode == GLTFModeTriangles
}

// GLTFMaterial is the subset of PBR metallic-roughness the viewer shades with.
type GLTFMaterial struct {
	Name                 string   `json:"name"`
	DoubleSided          bool     `json:"doubleSided"`
	AlphaMode            string   `json:"alphaMode"`
	PBRMetallicRoughness *GLTFPBR `json:"pbrMetallicRoughness"`
}

// GLTFPBR holds the base color inputs of a metallic-roughness material.
type GLTFPBR struct {
	BaseColorFactor  *[4]float32      `json:"baseColorFactor"`
	BaseColorTexture *GLTFTextureInfo `json:"baseColorTexture"`
}

// BaseColor returns the base color factor, white when absent.
func (m GLTFMaterial) BaseColor() [4]float32 {
	if m.PBRMetallicRoughness != nil && m.PBRMetallicRoughness.BaseColorFactor != nil {
		return *m.PBRMetallicRoughness.BaseColorFactor
	}
	return [4]float32{1, 1, 1, 1}
}

// BaseColorTexture returns the texture index of the base color map, or -1.
func (m GLTFMaterial) BaseColorTexture() int {
	if m.PBRMetallicRoughness != nil && m.PBRMetallicRoughness.BaseColorTexture != nil {
		return m.PBRMetallicRoughness.BaseColorTexture.Index
	}
	return -1
}

// GLTFTextureInfo references a texture.
type GLTFTextureInfo struct {
	Index int `json:"index"`
}

// GLTFTexture references an image.
type GLTFTexture struct {
	Source *int `json:"source"`
}

// GLTFImage is an external, embedded or buffer-view image.
type GLTFImage struct {
	Name       string `json:"name"`
	URI        string `json:"uri"`
	MimeType   string `json:"mimeType"`
	BufferView *int   `json:"bufferView"`
}

// GLTFAccessor describes a typed view into a buffer view.
type GLTFAccessor struct {
	BufferView    *int   `json:"bufferView"`
	ByteOffset    int    `json:"byteOffset"`
	ComponentType int    `json:"componentType"`
	Normalized    bool   `json:"normalized"`
	Count         int    `json:"count"`
	Type          string `json:"type"`
}

// GLTFBufferView is a byte range of a buffer.
type GLTFBufferView struct {
	Buffer     int `json:"buffer"`
	ByteOffset int `json:"byteOffset"`
	ByteLength int `json:"byteLength"`
	ByteStride int `json:"byteStride"`
}

// GLTFBuffer is a binary blob referenced by URI (or the GLB BIN chunk when URI is empty).
type GLTFBuffer struct {
	URI        string `json:"uri"`
	ByteLength int    `json:"byteLength"`
}

// URIResolver loads an external resource referenced by a relative URI.
type URIResolver func(uri string) ([]byte, error)

// ParseGLTF parses a .gltf JSON document. External buffers are fetched with
// resolve; data: URIs are decoded in place. resolve may be nil when every
// buffer is embedded.
func ParseGLTF(data []byte, resolve URIResolver) (*GLTF, error) {
	return parseGLTF(data, nil, resolve)
}

// ParseGLB parses a binary glTF container.
func ParseGLB(data []byte, resolve URIResolver) (*GLTF, error) {
	if len(data) < 12 {
		return nil, ErrTruncatedGLBData
	}
	if binary.LittleEndian.Uint32(data[0:4]) != glbMagic {
		return nil, ErrInvalidGLBMagic
	}
	if v := binary.LittleEndian.Uint32(data[4:8]); v != 2 {
		return nil, fmt.Errorf("%w: GLB container %d", ErrUnsupportedGLTFVersion, v)
	}
	total := int(binary.LittleEndian.Uint32(data[8:12]))
	if total > len(data) {
		return nil, ErrTruncatedGLBData
	}

	var jsonChunk, binChunk []byte
	for off := 12; off+8 <= total; {
		length := int(binary.LittleEndian.Uint32(data[off : off+4]))
		kind := binary.LittleEndian.Uint32(data[off+4 : off+8])
		off += 8
		if length < 0 || off+length > total {
			return nil, ErrTruncatedGLBData
		}
		switch kind {
		case glbChunkJSON:
			jsonChunk = data[off : off+length]
		case glbChunkBIN:
			if binChunk == nil {
				binChunk = data[off : off+length]
			}
		}
		off += length
	}
	if jsonChunk == nil {
		return nil, fmt.Errorf("%w: no JSON chunk", ErrTruncatedGLBData)
	}

	return parseGLTF(jsonChunk, binChunk, resolve)
}

func parseGLTF(doc, bin []byte, resolve URIResolver) (*GLTF, error) {
	var g GLTF
	if err := json.Unmarshal(doc, &g); err != nil {
		return nil, fmt.Errorf("decoding glTF JSON: %w", err)
	}
	if !strings.HasPrefix(g.Asset.Version, "2.") {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedGLTFVersion, g.Asset.Version)
	}

	g.Data = make([][]byte, len(g.Buffers))
	for i, b := range g.Buffers {
		var (
			buf []byte
			err error
		)
		switch {
		case b.URI == "" && i == 0 && bin != nil:
			buf = bin
		case b.URI == "":
			return nil, fmt.Errorf("%w: buffer %d has no data", ErrMissingBuffer, i)
		default:
			buf, err = loadURI(b.URI, resolve)
		}
		if err != nil {
			return nil, fmt.Errorf("buffer %d: %w", i, err)
		}
		if len(buf) < b.ByteLength {
			return nil, fmt.Errorf("%w: buffer %d has %d bytes, want %d", ErrMissingBuffer, i, len(buf), b.ByteLength)
		}
		g.Data[i] = buf
	}

	return &g, nil
}

func loadURI(uri string, resolve URIResolver) ([]byte, error) {
	if strings.HasPrefix(uri, "data:") {
		comma := strings.IndexByte(uri, ',')
		if comma < 0 || !strings.HasSuffix(uri[:comma], ";base64") {
			return nil, fmt.Errorf("%w: unsupported data URI", ErrMissingBuffer)
		}
		return base64.StdEncoding.DecodeString(uri[comma+1:])
	}
	if resolve == nil {
		return nil, fmt.Errorf("%w: external %q", ErrMissingBuffer, uri)
	}
	return resolve(uri)
}

// RootNodes returns the root node indices of the default scene, or of the
// first scene, or every parentless node when the file has no scenes.
func (g *GLTF) RootNodes() []int {
	if len(g.Scenes) > 0 {
		s := 0
		if g.Scene != nil && *g.Scene >= 0 && *g.Scene < len(g.Scenes) {
			s = *g.Scene
		}
		return g.Scenes[s].Nodes
	}

	hasParent := make([]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		for _, c := range n.Children {
			if c >= 0 && c < len(hasParent) {
				hasParent[c] = true
			}
		}
	}
	var roots []int
	for i, p := range hasParent {
		if !p {
			roots = append(roots, i)
		}
	}
	return roots
}

// componentsOf returns the element width of an accessor type.
func componentsOf(accessorType string) int {
	switch accessorType {
	case "SCALAR":
		return 1
	case "VEC2":
		return 2
	case "VEC3":
		return 3
	case "VEC4":
		return 4
	case "MAT4":
		return 16
	}
	return 0
}

func componentSize(componentType int) int {
	switch componentType {
	case GLTFUnsignedByte:
		return 1
	case GLTFUnsignedShort:
		return 2
	case GLTFUnsignedInt, GLTFFloat:
		return 4
	}
	return 0
}

// maxAccessorCount bounds the elements a single accessor may declare.
const maxAccessorCount = 1 << 26

// accessorBytes returns the backing slice, element stride and component count.
func (g *GLTF) accessorBytes(index int) (data []byte, stride, comps int, acc GLTFAccessor, err error) {
	if index < 0 || index >= len(g.Accessors) {
		return nil, 0, 0, acc, fmt.Errorf("%w: index %d", ErrInvalidAccessor, index)
	}
	acc = g.Accessors[index]
	comps = componentsOf(acc.Type)
	size := componentSize(acc.ComponentType)
	if comps == 0 || size == 0 {
		return nil, 0, 0, acc, fmt.Errorf("%w: %s of component %d", ErrInvalidAccessor, acc.Type, acc.ComponentType)
	}
	if acc.Count < 0 || acc.Count > maxAccessorCount || acc.ByteOffset < 0 {
		return nil, 0, 0, acc, fmt.Errorf("%w: accessor %d has count %d, offset %d", ErrInvalidAccessor, index, acc.Count, acc.ByteOffset)
	}
	if acc.BufferView == nil {
		// Sparse or zero-filled accessors carry no view.
		return nil, comps * size, comps, acc, nil
	}
	if *acc.BufferView < 0 || *acc.BufferView >= len(g.BufferViews) {
		return nil, 0, 0, acc, fmt.Errorf("%w: buffer view %d", ErrInvalidAccessor, *acc.BufferView)
	}
	view := g.BufferViews[*acc.BufferView]
	if view.Buffer < 0 || view.Buffer >= len(g.Data) {
		return nil, 0, 0, acc, fmt.Errorf("%w: buffer %d", ErrMissingBuffer, view.Buffer)
	}

	if view.ByteStride < 0 || view.ByteOffset < 0 || view.ByteLength < 0 {
		return nil, 0, 0, acc, fmt.Errorf("%w: buffer view %d has negative layout", ErrInvalidAccessor, *acc.BufferView)
	}
	stride = view.ByteStride
	if stride == 0 {
		stride = comps * size
	}
	start := view.ByteOffset + acc.ByteOffset
	end := view.ByteOffset + view.ByteLength
	need := 0
	if acc.Count > 0 {
		need = stride*(acc.Count-1) + comps*size
	}
	buf := g.Data[view.Buffer]
	if start < 0 || end > len(buf) || start+need > end {
		return nil, 0, 0, acc, fmt.Errorf("%w: accessor %d exceeds its buffer view", ErrInvalidAccessor, index)
	}
	return buf[start:end], stride, comps, acc, nil
}

// ReadFloats returns accessor index as a flat float32 slice of
// Count*components values. Integer components are normalized when the
// accessor says so.
func (g *GLTF) ReadFloats(index int) ([]float32, int, error) {
	data, stride, comps, acc, err := g.accessorBytes(index)
	if err != nil {
		return nil, 0, err
	}
	out := make([]float32, acc.Count*comps)
	if data == nil {
		return out, comps, nil
	}
	size := componentSize(acc.ComponentType)
	for i := 0; i < acc.Count; i++ {
		for c := 0; c < comps; c++ {
			p := data[i*stride+c*size:]
			var v float32
			switch acc.ComponentType {
			case GLTFFloat:
				v = math.Float32frombits(binary.LittleEndian.Uint32(p))
			case GLTFUnsignedByte:
				v = float32(p[0])
				if acc.Normalized {
					v /= 255
				}
			case GLTFUnsignedShort:
				v = float32(binary.LittleEndian.Uint16(p))
				if acc.Normalized {
					v /= 65535
				}
			case GLTFUnsignedInt:
				v = float32(binary.LittleEndian.Uint32(p))
			}
			out[i*comps+c] = v
		}
	}
	return out, comps, nil
}

// ReadIndices returns an index accessor widened to uint32.
func (g *GLTF) ReadIndices(index int) ([]uint32, error) {
	data, stride, comps, acc, err := g.accessorBytes(index)
	if err != nil {
		return nil, err
	}
	if comps != 1 || acc.ComponentType == GLTFFloat {
		return nil, fmt.Errorf("%w: indices must be unsigned scalars", ErrInvalidAccessor)
	}
	out := make([]uint32, acc.Count)
	if data == nil {
		return out, nil
	}
	for i := range out {
		p := data[i*stride:]
		switch acc.ComponentType {
		case GLTFUnsignedByte:
			out[i] = uint32(p[0])
		case GLTFUnsignedShort:
			out[i] = uint32(binary.LittleEndian.Uint16(p))
		case GLTFUnsignedInt:
			out[i] = binary.LittleEndian.Uint32(p)
		}
	}
	return out, nil
}

// ImageData returns the encoded bytes of image index.
func (g *GLTF) ImageData(index int, resolve URIResolver) ([]byte, error) {
	if index < 0 || index >= len(g.Images) {
		return nil, fmt.Errorf("glTF image %d out of range", index)
	}
	img := g.Images[index]
	if img.BufferView != nil {
		v := *img.BufferView
		if v < 0 || v >= len(g.BufferViews) {
			return nil, fmt.Errorf("glTF image %d: bad buffer view %d", index, v)
		}
		view := g.BufferViews[v]
		if view.Buffer < 0 || view.Buffer >= len(g.Data) || view.ByteOffset < 0 || view.ByteLength < 0 ||
			view.ByteOffset+view.ByteLength > len(g.Data[view.Buffer]) {
			return nil, fmt.Errorf("%w: image %d", ErrMissingBuffer, index)
		}
		return g.Data[view.Buffer][view.ByteOffset : view.ByteOffset+view.ByteLength], nil
	}
	return loadURI(img.URI, resolve)
}
