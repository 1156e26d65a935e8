package loader

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/image/bmp"

	"github.com/Faultbox/midgard-paint/internal/assets"
	"github.com/Faultbox/midgard-paint/internal/coloring"
	"github.com/Faultbox/midgard-paint/internal/eventloop"
	"github.com/Faultbox/midgard-paint/internal/fixture"
	"github.com/Faultbox/midgard-paint/internal/logger"
	"github.com/Faultbox/midgard-paint/pkg/formats"
	"github.com/Faultbox/midgard-paint/pkg/scene"
)

// observe routes the global logger into an in-memory observer for the test.
func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	logger.Use(zap.New(core))
	t.Cleanup(func() { logger.Use(nil) })
	return logs
}

// newTestLoader serves files from a temp directory.
func newTestLoader(t *testing.T, files map[string][]byte) (*Loader, string) {
	t.Helper()
	dir := t.TempDir()
	for name, data := range files {
		full := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, data, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	am, err := assets.NewManager(16)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(am.Close)
	if err := am.AddDir(dir); err != nil {
		t.Fatalf("AddDir: %v", err)
	}
	return New(am, eventloop.New()), dir
}

func bmpTexture(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.SetRGBA(0, 0, color.RGBA{255, 0, 255, 255})
	img.SetRGBA(1, 0, color.RGBA{40, 80, 120, 255})
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// drain runs the loop until req completes.
func drain(t *testing.T, l *Loader, req *Request) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		l.Loop().Drain()
		select {
		case <-req.Done():
			return
		case <-deadline:
			t.Fatal("request did not complete")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestLoadRSM(t *testing.T) {
	l, _ := newTestLoader(t, map[string][]byte{
		"model/tri.rsm":         fixture.Triangle("tri_node", "wall.bmp").Bytes(),
		"data/texture/wall.bmp": bmpTexture(t),
	})

	node, err := l.Load("model/tri.rsm")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if node.Name != "tri" || len(node.Children) != 1 {
		t.Fatalf("root %q with %d children", node.Name, len(node.Children))
	}

	mesh := node.Children[0]
	if !mesh.IsMesh() || mesh.Name != "tri_node" {
		t.Fatalf("child %q is not the mesh", mesh.Name)
	}
	if mesh.Material.Color != scene.White || mesh.Material.TextureName != "wall.bmp" {
		t.Errorf("material = %+v", mesh.Material)
	}
	m, ok := mesh.Material.Map.(*image.RGBA)
	if !ok {
		t.Fatalf("texture map = %T", mesh.Material.Map)
	}
	if m.RGBAAt(0, 0).A != 0 || m.RGBAAt(1, 0).A != 255 {
		t.Errorf("magenta key not applied: %v %v", m.RGBAAt(0, 0), m.RGBAAt(1, 0))
	}

	b := mesh.Geometry.Bounds
	if b.Min != [3]float32{0, -1, 0} || b.Max != [3]float32{1, 0, 0} {
		t.Errorf("bounds = %+v, want Y flipped", b)
	}
	for _, v := range mesh.Geometry.Vertices {
		if v.Normal == ([3]float32{}) {
			t.Error("vertex without normal")
		}
	}
}

func TestLoadRSMHierarchyAndGroups(t *testing.T) {
	tri := func(tex uint16) fixture.RSMFace {
		return fixture.RSMFace{Vertices: [3]uint16{0, 1, 2}, Texture: tex}
	}
	verts := [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}

	m := fixture.RSM{
		Textures: []string{"a.bmp", "b.bmp"},
		Root:     "base",
		Nodes: []fixture.RSMNode{
			{Name: "base", Textures: []int32{0, 1}, Vertices: verts, Faces: []fixture.RSMFace{tri(0), tri(1)}},
			{Name: "arm", Parent: "base", Position: [3]float32{10, 0, 0}, Textures: []int32{1}, Vertices: verts, Faces: []fixture.RSMFace{tri(0)}},
			{Name: "loop1", Parent: "loop2"},
			{Name: "loop2", Parent: "loop1"},
		},
	}
	logs := observe(t)
	l, _ := newTestLoader(t, map[string][]byte{"m.rsm": m.Bytes()})

	node, err := l.Load("m.rsm")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	base := node.FindByName("base")
	if base == nil || base.IsMesh() || len(base.Children) != 3 {
		t.Fatalf("base should be a group with two texture meshes and arm, got %+v", base)
	}
	arm := node.FindByName("arm")
	if arm == nil || arm.Parent != base || !arm.IsMesh() {
		t.Fatal("arm should be a mesh under base")
	}
	if arm.Geometry.Bounds.Min[0] != 10 {
		t.Errorf("arm min x = %f, want 10", arm.Geometry.Bounds.Min[0])
	}

	// Both meshes using b.bmp start from the same material object.
	second := base.Children[1]
	if second.Material != arm.Material {
		t.Error("meshes sharing a texture should share the original material")
	}

	for _, name := range []string{"loop1", "loop2"} {
		if n := node.FindByName(name); n == nil || n.Parent != node {
			t.Errorf("%s should hang off the model root", name)
		}
	}

	if len(node.Meshes()) != 3 {
		t.Errorf("Meshes = %d, want 3", len(node.Meshes()))
	}
	if logs.FilterMessage("texture unavailable").Len() != 2 {
		t.Errorf("expected a warning per missing texture, got %d", logs.FilterMessage("texture unavailable").Len())
	}
}

func TestLoadGLTF(t *testing.T) {
	quad := fixture.Quad("left", "right")
	quad.Translation = [3]float32{0, 5, 0}
	doc, bin := quad.JSONExternal("buffers/quad.bin")

	l, _ := newTestLoader(t, map[string][]byte{
		"models/quad.glb":         quad.GLB(),
		"models/quad.gltf":        quad.JSON(),
		"models/ext.gltf":         doc,
		"models/buffers/quad.bin": bin,
	})

	for _, p := range []string{"models/quad.glb", "models/quad.gltf", "models/ext.gltf"} {
		t.Run(p, func(t *testing.T) {
			node, err := l.Load(p)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			meshes := node.Meshes()
			if len(meshes) != 2 {
				t.Fatalf("got %d meshes", len(meshes))
			}
			if meshes[0].Name != "left" || meshes[1].Name != "right" {
				t.Errorf("mesh names = %s, %s", meshes[0].Name, meshes[1].Name)
			}
			if meshes[0].Material.Color != 0xff0000 || meshes[1].Material.Color != 0x0000ff {
				t.Errorf("colors = %s, %s", meshes[0].Material.Color, meshes[1].Material.Color)
			}
			if y := meshes[0].Geometry.Bounds.Min[1]; y != 5 {
				t.Errorf("min y = %f, want translation baked in", y)
			}
			if meshes[0].Parent.Name != "quad" {
				t.Errorf("parent = %s", meshes[0].Parent.Name)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	l, _ := newTestLoader(t, map[string][]byte{
		"bad.rsm": []byte("not a model"),
		"bad.glb": []byte("glTF"),
	})

	tests := []struct {
		path string
		want error
	}{
		{"model.obj", ErrUnsupportedFormat},
		{"missing.rsm", assets.ErrNotFound},
	}
	for _, tt := range tests {
		if _, err := l.Load(tt.path); !errors.Is(err, tt.want) {
			t.Errorf("Load(%q) error = %v, want %v", tt.path, err, tt.want)
		}
	}
	for _, p := range []string{"bad.rsm", "bad.glb"} {
		if _, err := l.Load(p); err == nil {
			t.Errorf("Load(%q) should fail", p)
		}
	}

	if _, err := New(nil, nil).Load("x.rsm"); err == nil {
		t.Error("Load without asset manager should fail")
	}
}

func TestLoadModelInsertsOnDrain(t *testing.T) {
	l, _ := newTestLoader(t, map[string][]byte{"q.glb": fixture.Quad("a", "b").GLB()})
	root := scene.NewScene()

	var loaded *scene.Node
	calls := 0
	req := l.LoadModel(root, "q.glb", func(n *scene.Node) {
		calls++
		loaded = n
		if n.Parent != root {
			t.Error("onLoaded ran before the node was inserted")
		}
	})

	if len(root.Children) != 0 {
		t.Fatal("scene mutated before the loop was drained")
	}
	drain(t, l, req)

	if calls != 1 || loaded == nil {
		t.Fatalf("onLoaded called %d times", calls)
	}
	if len(root.Children) != 1 || root.Children[0] != loaded {
		t.Error("loaded node not inserted into the scene")
	}
	if req.Err() != nil || req.Node() != loaded {
		t.Errorf("request = %v, %v", req.Node(), req.Err())
	}
	if err := req.Wait(context.Background()); err != nil {
		t.Errorf("Wait = %v", err)
	}
}

func TestLoadModelNilCallbackAndScene(t *testing.T) {
	l, _ := newTestLoader(t, map[string][]byte{"q.glb": fixture.Quad("a", "b").GLB()})
	req := l.LoadModel(nil, "q.glb", nil)
	drain(t, l, req)
	if req.Node() == nil || req.Node().Parent != nil {
		t.Error("node should load without a target scene")
	}
}

func TestLoadModelFailureIsLogged(t *testing.T) {
	logs := observe(t)
	l, _ := newTestLoader(t, nil)
	root := scene.NewScene()

	called := false
	req := l.LoadModel(root, "nope.glb", func(*scene.Node) { called = true })
	if req.Err() != nil || req.Node() != nil {
		t.Error("request should report nothing before completion")
	}
	drain(t, l, req)

	if called {
		t.Error("onLoaded called on failure")
	}
	if len(root.Children) != 0 {
		t.Error("scene mutated on failure")
	}
	if !errors.Is(req.Err(), assets.ErrNotFound) {
		t.Errorf("Err = %v", req.Err())
	}

	entries := logs.FilterMessage("loading model failed").All()
	if len(entries) != 1 || entries[0].Level != zapcore.ErrorLevel {
		t.Fatalf("expected one error log, got %d", len(entries))
	}
	if entries[0].ContextMap()["path"] != "nope.glb" {
		t.Errorf("log fields = %v", entries[0].ContextMap())
	}
}

// negativeCountGLTF has a POSITION accessor with a negative element count.
const negativeCountGLTF = `{
	"asset": {"version": "2.0"},
	"scenes": [{"nodes": [0]}],
	"nodes": [{"name": "bad", "mesh": 0}],
	"meshes": [{"primitives": [{"attributes": {"POSITION": 0}}]}],
	"accessors": [{"componentType": 5126, "type": "VEC3", "count": -1}]
}`

func TestLoadRejectsNegativeAccessorCount(t *testing.T) {
	l, _ := newTestLoader(t, map[string][]byte{"neg.gltf": []byte(negativeCountGLTF)})
	if _, err := l.Load("neg.gltf"); !errors.Is(err, formats.ErrInvalidAccessor) {
		t.Errorf("Load error = %v, want ErrInvalidAccessor", err)
	}
}

func TestLoadModelMalformedGLTFIsLogged(t *testing.T) {
	logs := observe(t)
	l, _ := newTestLoader(t, map[string][]byte{"neg.gltf": []byte(negativeCountGLTF)})
	root := scene.NewScene()

	called := false
	req := l.LoadModel(root, "neg.gltf", func(*scene.Node) { called = true })
	drain(t, l, req)

	if called || len(root.Children) != 0 {
		t.Error("malformed model should not be inserted")
	}
	if !errors.Is(req.Err(), formats.ErrInvalidAccessor) {
		t.Errorf("Err = %v", req.Err())
	}
	if n := logs.FilterMessage("loading model failed").Len(); n != 1 {
		t.Errorf("expected one error log, got %d", n)
	}
}

func TestWaitHonorsContext(t *testing.T) {
	l, _ := newTestLoader(t, map[string][]byte{"q.glb": fixture.Quad("a", "b").GLB()})
	req := l.LoadModel(nil, "q.glb", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	// Nobody drains the loop, so the completion never runs.
	if err := req.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait = %v, want deadline exceeded", err)
	}
	drain(t, l, req)
}

func TestLoadedModelColoring(t *testing.T) {
	l, _ := newTestLoader(t, map[string][]byte{"q.glb": fixture.Quad("a", "b").GLB()})
	root := scene.NewScene()

	var engine *coloring.Engine
	req := l.LoadModel(root, "q.glb", func(n *scene.Node) { engine = coloring.NewEngine(n) })
	drain(t, l, req)

	if engine == nil || engine.MeshCount() != 2 {
		t.Fatal("engine not built from loaded model")
	}
	engine.ColorRegion(1, 0x00ff00)
	engine.ColorRegion(1, 0xffffff)
	engine.Undo()
	if c, _ := engine.Color(1); c != 0x00ff00 {
		t.Errorf("after undo = %s", c)
	}
	engine.Reset()
	if c, _ := engine.Color(1); c != 0x0000ff {
		t.Errorf("after reset = %s, want original blue", c)
	}
}
