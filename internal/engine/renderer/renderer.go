// Package renderer draws scene graph meshes with OpenGL.
package renderer

import (
	"fmt"
	"image"
	"image/color"
	"sort"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-paint/internal/engine/shader"
	"github.com/Faultbox/midgard-paint/internal/engine/texture"
	"github.com/Faultbox/midgard-paint/internal/logger"
	"github.com/Faultbox/midgard-paint/pkg/math"
	"github.com/Faultbox/midgard-paint/pkg/scene"
)

// Config holds renderer configuration.
type Config struct {
	Width  int
	Height int
}

const vertexShader = `
#version 410 core

layout (location = 0) in vec3 aPosition;
layout (location = 1) in vec3 aNormal;
layout (location = 2) in vec2 aTexCoord;

uniform mat4 uViewProj;

out vec3 vNormal;
out vec2 vTexCoord;

void main() {
	vNormal = aNormal;
	vTexCoord = aTexCoord;
	gl_Position = uViewProj * vec4(aPosition, 1.0);
}
`

const fragmentShader = `
#version 410 core

in vec3 vNormal;
in vec2 vTexCoord;

uniform sampler2D uTexture;
uniform vec3 uColor;
uniform float uOpacity;
uniform vec3 uLightDir;
uniform float uHighlight;

out vec4 FragColor;

void main() {
	vec4 tex = texture(uTexture, vTexCoord);
	if (tex.a < 0.5) {
		discard;
	}
	vec3 n = normalize(gl_FrontFacing ? vNormal : -vNormal);
	float diffuse = max(dot(n, -uLightDir), 0.0);
	vec3 base = tex.rgb * uColor;
	vec3 lit = base * (0.45 + 0.55 * diffuse);
	lit = mix(lit, vec3(1.0, 1.0, 0.6), uHighlight * 0.25);
	FragColor = vec4(lit, tex.a * uOpacity);
}
`

const lineVertexShader = `
#version 410 core

layout (location = 0) in vec3 aPosition;

uniform mat4 uViewProj;

void main() {
	gl_Position = uViewProj * vec4(aPosition, 1.0);
}
`

const lineFragmentShader = `
#version 410 core

uniform vec3 uColor;

out vec4 FragColor;

void main() {
	FragColor = vec4(uColor, 1.0);
}
`

type gpuMesh struct {
	vao, vbo, ebo uint32
	indexCount    int32
	geometry      *scene.Geometry
}

// Renderer uploads scene meshes on first sight and draws them every frame.
// Material colors are read at draw time, so recoloring needs no re-upload.
type Renderer struct {
	config  Config
	program *shader.Program
	lines   *shader.Program

	lineVAO, lineVBO uint32

	meshes   map[*scene.Node]*gpuMesh
	textures map[image.Image]uint32
	white    uint32

	// LightDir is the world-space direction light travels in.
	LightDir math.Vec3
}

// New creates a renderer. The OpenGL context must already be current.
func New(cfg Config) (*Renderer, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	logger.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.ClearColor(0.18, 0.18, 0.22, 1.0)

	program, err := shader.Compile(vertexShader, fragmentShader)
	if err != nil {
		return nil, fmt.Errorf("failed to create shader program: %w", err)
	}
	lines, err := shader.Compile(lineVertexShader, lineFragmentShader)
	if err != nil {
		program.Delete()
		return nil, fmt.Errorf("failed to create line program: %w", err)
	}

	r := &Renderer{
		config:   cfg,
		program:  program,
		lines:    lines,
		meshes:   make(map[*scene.Node]*gpuMesh),
		textures: make(map[image.Image]uint32),
		LightDir: math.Vec3{-0.4, -1, -0.6}.Normalize(),
	}
	r.white = uploadTexture(texture.Solid(color.RGBA{R: 255, G: 255, B: 255, A: 255}))

	gl.GenVertexArrays(1, &r.lineVAO)
	gl.BindVertexArray(r.lineVAO)
	gl.GenBuffers(1, &r.lineVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.lineVBO)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, 12, 0)
	gl.EnableVertexAttribArray(0)
	gl.BindVertexArray(0)

	r.Resize(cfg.Width, cfg.Height)
	return r, nil
}

// Close releases every GPU resource.
func (r *Renderer) Close() {
	logger.Info("closing renderer", zap.Int("meshes", len(r.meshes)), zap.Int("textures", len(r.textures)))
	for node := range r.meshes {
		r.release(node)
	}
	for img, id := range r.textures {
		gl.DeleteTextures(1, &id)
		delete(r.textures, img)
	}
	if r.white != 0 {
		gl.DeleteTextures(1, &r.white)
		r.white = 0
	}
	gl.DeleteVertexArrays(1, &r.lineVAO)
	gl.DeleteBuffers(1, &r.lineVBO)
	r.lines.Delete()
	r.program.Delete()
}

// Resize handles window resize.
func (r *Renderer) Resize(width, height int) {
	r.config.Width = width
	r.config.Height = height
	gl.Viewport(0, 0, int32(width), int32(height))
	logger.Debug("renderer resized", zap.Int("width", width), zap.Int("height", height))
}

// Size returns the viewport size.
func (r *Renderer) Size() (int, int) {
	return r.config.Width, r.config.Height
}

// Begin starts a new frame.
func (r *Renderer) Begin() {
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// Draw renders every visible mesh under root. Opaque meshes go first.
// The highlighted mesh, if any, is tinted.
func (r *Renderer) Draw(root *scene.Node, viewProj math.Mat4, highlight *scene.Node) {
	if root == nil {
		return
	}

	r.program.Use()
	r.program.SetMat4("uViewProj", (*[16]float32)(&viewProj))
	r.program.SetVec3("uLightDir", r.LightDir)
	r.program.SetInt("uTexture", 0)
	gl.ActiveTexture(gl.TEXTURE0)

	seen := make(map[*scene.Node]bool)
	var maps []image.Image
	for _, node := range drawOrder(root.Meshes()) {
		seen[node] = true
		if node.Material.Map != nil {
			maps = append(maps, node.Material.Map)
		}
		if !node.Visible {
			continue
		}
		gm := r.upload(node)
		if gm == nil {
			continue
		}

		mat := node.Material
		r.program.SetVec3("uColor", mat.Color.RGB())
		r.program.SetFloat("uOpacity", mat.Opacity)
		if node == highlight {
			r.program.SetFloat("uHighlight", 1)
		} else {
			r.program.SetFloat("uHighlight", 0)
		}
		gl.BindTexture(gl.TEXTURE_2D, r.textureFor(mat.Map))

		if mat.DoubleSided {
			gl.Disable(gl.CULL_FACE)
		} else {
			gl.Enable(gl.CULL_FACE)
			gl.CullFace(gl.BACK)
		}

		gl.BindVertexArray(gm.vao)
		gl.DrawElements(gl.TRIANGLES, gm.indexCount, gl.UNSIGNED_INT, nil)
	}
	gl.BindVertexArray(0)

	// Drop buffers for meshes and textures that left the graph.
	for node := range r.meshes {
		if !seen[node] {
			r.release(node)
		}
	}
	for _, img := range texture.Stale(r.textures, maps) {
		id := r.textures[img]
		gl.DeleteTextures(1, &id)
		delete(r.textures, img)
	}
}

// DrawLines draws a line list on top of the scene.
func (r *Renderer) DrawLines(points [][3]float32, viewProj math.Mat4, c scene.Color) {
	if len(points) < 2 {
		return
	}
	r.lines.Use()
	r.lines.SetMat4("uViewProj", (*[16]float32)(&viewProj))
	r.lines.SetVec3("uColor", c.RGB())

	gl.BindVertexArray(r.lineVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.lineVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(points)*12, unsafe.Pointer(&points[0]), gl.STREAM_DRAW)
	gl.Disable(gl.DEPTH_TEST)
	gl.DrawArrays(gl.LINES, 0, int32(len(points)))
	gl.Enable(gl.DEPTH_TEST)
	gl.BindVertexArray(0)
}

// ReadPixels returns the current framebuffer, bottom row first.
func (r *Renderer) ReadPixels() *image.RGBA {
	w, h := r.config.Width, r.config.Height
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return img
	}
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(w), int32(h), gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&img.Pix[0]))
	return img
}

// drawOrder returns meshes with opaque materials before translucent ones,
// keeping traversal order inside each group.
func drawOrder(meshes []*scene.Node) []*scene.Node {
	out := make([]*scene.Node, len(meshes))
	copy(out, meshes)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Material.Opacity >= 1 && out[j].Material.Opacity < 1
	})
	return out
}

func (r *Renderer) upload(node *scene.Node) *gpuMesh {
	geom := node.Geometry
	if gm, ok := r.meshes[node]; ok && gm.geometry == geom {
		return gm
	} else if ok {
		r.release(node)
	}
	if len(geom.Vertices) == 0 || len(geom.Indices) == 0 {
		return nil
	}

	gm := &gpuMesh{geometry: geom, indexCount: int32(len(geom.Indices))}
	gl.GenVertexArrays(1, &gm.vao)
	gl.BindVertexArray(gm.vao)

	gl.GenBuffers(1, &gm.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, gm.vbo)
	stride := int32(unsafe.Sizeof(scene.Vertex{}))
	gl.BufferData(gl.ARRAY_BUFFER, len(geom.Vertices)*int(stride), unsafe.Pointer(&geom.Vertices[0]), gl.STATIC_DRAW)

	gl.GenBuffers(1, &gm.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, gm.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(geom.Indices)*4, unsafe.Pointer(&geom.Indices[0]), gl.STATIC_DRAW)

	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, stride, 0)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, stride, 12)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(2, 2, gl.FLOAT, false, stride, 24)
	gl.EnableVertexAttribArray(2)

	gl.BindVertexArray(0)
	r.meshes[node] = gm
	return gm
}

func (r *Renderer) release(node *scene.Node) {
	gm, ok := r.meshes[node]
	if !ok {
		return
	}
	gl.DeleteVertexArrays(1, &gm.vao)
	gl.DeleteBuffers(1, &gm.vbo)
	gl.DeleteBuffers(1, &gm.ebo)
	delete(r.meshes, node)
}

func (r *Renderer) textureFor(img image.Image) uint32 {
	if img == nil || img.Bounds().Empty() {
		return r.white
	}
	if id, ok := r.textures[img]; ok {
		return id
	}
	id := uploadTexture(texture.ToRGBA(img, false))
	r.textures[img] = id
	return id
}

func uploadTexture(img *image.RGBA) uint32 {
	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, int32(img.Bounds().Dx()), int32(img.Bounds().Dy()), 0, gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&img.Pix[0]))
	gl.GenerateMipmap(gl.TEXTURE_2D)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	return id
}
