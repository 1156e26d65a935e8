package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/sqweek/dialog"
	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-paint/internal/assets"
	"github.com/Faultbox/midgard-paint/internal/coloring"
	"github.com/Faultbox/midgard-paint/internal/config"
	"github.com/Faultbox/midgard-paint/internal/engine/audio"
	"github.com/Faultbox/midgard-paint/internal/engine/camera"
	"github.com/Faultbox/midgard-paint/internal/engine/debug"
	"github.com/Faultbox/midgard-paint/internal/engine/input"
	"github.com/Faultbox/midgard-paint/internal/engine/lighting"
	"github.com/Faultbox/midgard-paint/internal/engine/picking"
	"github.com/Faultbox/midgard-paint/internal/engine/renderer"
	"github.com/Faultbox/midgard-paint/internal/engine/window"
	"github.com/Faultbox/midgard-paint/internal/eventloop"
	"github.com/Faultbox/midgard-paint/internal/loader"
	"github.com/Faultbox/midgard-paint/internal/logger"
	"github.com/Faultbox/midgard-paint/pkg/scene"
)

// Title is the window title prefix.
const Title = "Midgard Paint"

// clickSlop is how far the mouse may travel, in pixels, before a press
// counts as a drag instead of a click.
const clickSlop = 4

// App is the interactive viewer.
type App struct {
	cfg *config.Config

	window   *window.Window
	renderer *renderer.Renderer
	input    *input.Input
	camera   *camera.OrbitCamera
	audio    *audio.Manager
	capture  *debug.Capture

	assets  *assets.Manager
	loop    *eventloop.Loop
	session *Session

	running  bool
	hover    *scene.Node
	pressX   int
	pressY   int
	dragging bool
	title    string
}

// New opens the window, the asset sources and the audio device.
func New(cfg *config.Config) (*App, error) {
	palette, err := cfg.Palette.Parse()
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:     cfg,
		camera:  camera.NewOrbitCamera(),
		input:   input.New(),
		loop:    eventloop.New(),
		capture: debug.NewCapture(cfg.Artwork.Dir, cfg.Artwork.Prefix),
	}

	a.assets, err = assets.NewManager(cfg.Model.CacheEntries)
	if err != nil {
		return nil, err
	}
	for _, dir := range cfg.Model.SearchDirs {
		if err := a.assets.AddDir(dir); err != nil {
			logger.Warn("skipping search dir", zap.String("dir", dir), zap.Error(err))
		}
	}
	for _, p := range cfg.Model.Archives {
		if err := a.assets.AddArchive(p); err != nil {
			a.assets.Close()
			return nil, fmt.Errorf("opening archive %s: %w", p, err)
		}
	}

	a.session = NewSession(loader.New(a.assets, a.loop), palette, cfg.Palette.Default)
	a.session.OnModel = func(model *scene.Node) {
		a.hover = nil
		a.camera.FitToBounds(model.Bounds())
	}
	a.session.OnChange = func(c coloring.Change) {
		logger.Debug("coloring changed", zap.Int("kind", int(c.Kind)), zap.Int("region", c.Index))
	}

	a.window, err = window.New(window.Config{
		Title:      Title,
		Width:      cfg.Window.Width,
		Height:     cfg.Window.Height,
		Fullscreen: cfg.Window.Fullscreen,
		VSync:      cfg.Window.VSync,
	})
	if err != nil {
		a.assets.Close()
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	// The renderer needs the GL context the window just created.
	w, h := a.window.DrawableSize()
	a.renderer, err = renderer.New(renderer.Config{Width: w, Height: h})
	if err != nil {
		a.window.Close()
		a.assets.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	a.renderer.LightDir = lighting.LightDirection(lighting.DefaultAzimuth, lighting.DefaultElevation)

	a.audio = audio.New()
	a.audio.SetVolume(float64(cfg.Audio.Volume))
	a.audio.SetMuted(cfg.Audio.Muted)
	if err := a.audio.Init(); err != nil {
		logger.Warn("audio unavailable", zap.Error(err))
	} else if cfg.Audio.Music != "" {
		a.playMusic(cfg.Audio.Music)
	}

	if cfg.Model.Path != "" {
		a.session.Open(cfg.Model.Path)
	}

	logger.Info("viewer initialized",
		zap.Int("palette", len(palette)),
		zap.Int("archives", len(a.assets.Archives())))
	return a, nil
}

func (a *App) playMusic(name string) {
	data, err := a.assets.Load(name)
	if err != nil {
		logger.Warn("music unavailable", zap.String("path", name), zap.Error(err))
		return
	}
	if err := a.audio.PlayMusic(data, name, true); err != nil {
		logger.Warn("music failed", zap.String("path", name), zap.Error(err))
	}
}

// Run drives the frame loop until the window closes or Escape is pressed.
func (a *App) Run() error {
	a.running = true
	frames := 0
	fpsTimer := time.Now()

	logger.Info("starting main loop")

	for a.running {
		if a.input.Update() {
			break
		}
		for _, ev := range a.input.Events() {
			a.handle(ev)
		}

		a.loop.Drain()

		a.render()
		a.window.SwapBuffers()
		a.updateTitle()

		frames++
		if time.Since(fpsTimer) >= time.Second {
			logger.Debug("fps", zap.Int("count", frames))
			frames = 0
			fpsTimer = time.Now()
		}
	}

	return nil
}

func (a *App) render() {
	a.renderer.Begin()
	w, h := a.renderer.Size()
	if h == 0 {
		return
	}
	vp := a.camera.ViewProjection(float32(w) / float32(h))
	a.renderer.Draw(a.session.Root(), vp, a.hover)
	if a.hover != nil {
		a.renderer.DrawLines(debug.BoxLines(a.hover.Geometry.Bounds, debug.BoxPadding), vp, a.session.Color())
	}
}

func (a *App) updateTitle() {
	if t := a.session.Title(Title); t != a.title {
		a.title = t
		a.window.SetTitle(t)
	}
}

func (a *App) handle(ev input.Event) {
	switch ev.Type {
	case input.EventWindowResize:
		w, h := a.window.DrawableSize()
		a.renderer.Resize(w, h)

	case input.EventKeyDown:
		a.handleKey(ev)

	case input.EventMouseDown:
		if ev.Button == sdl.BUTTON_LEFT {
			a.pressX, a.pressY = ev.MouseX, ev.MouseY
			a.dragging = false
		}

	case input.EventMouseMove:
		if a.input.IsButtonHeld(sdl.BUTTON_LEFT) {
			if abs(ev.MouseX-a.pressX) > clickSlop || abs(ev.MouseY-a.pressY) > clickSlop {
				a.dragging = true
			}
			if a.dragging {
				a.camera.HandleDrag(float32(ev.DeltaX), float32(ev.DeltaY))
			}
			return
		}
		a.hover = a.pick(ev.MouseX, ev.MouseY)

	case input.EventMouseUp:
		if ev.Button == sdl.BUTTON_LEFT && !a.dragging {
			if mesh := a.pick(ev.MouseX, ev.MouseY); mesh != nil {
				a.session.PaintMesh(mesh)
			}
		}
		a.dragging = false

	case input.EventMouseWheel:
		a.camera.HandleZoom(ev.Wheel)

	case input.EventFileDrop:
		a.session.Open(ev.Path)
	}
}

func (a *App) handleKey(ev input.Event) {
	if ev.Repeat && ev.Key != sdl.SCANCODE_Z {
		return
	}

	switch ev.Key {
	case sdl.SCANCODE_ESCAPE:
		a.running = false
	case sdl.SCANCODE_Z:
		a.session.Undo()
	case sdl.SCANCODE_R:
		a.session.Reset()
	case sdl.SCANCODE_P:
		a.saveArtwork()
	case sdl.SCANCODE_S:
		if ev.Ctrl() {
			a.saveArtwork()
		}
	case sdl.SCANCODE_O:
		a.openDialog()
	case sdl.SCANCODE_M:
		muted := a.audio.ToggleMute()
		logger.Info("music toggled", zap.Bool("muted", muted))
	case sdl.SCANCODE_TAB:
		if ev.Shift() {
			a.session.CycleColor(-1)
		} else {
			a.session.CycleColor(1)
		}
	case sdl.SCANCODE_F:
		if m := a.session.Model(); m != nil {
			a.camera.FitToBounds(m.Bounds())
		}
	default:
		// 1..9 pick palette entries directly.
		if ev.Key >= sdl.SCANCODE_1 && ev.Key <= sdl.SCANCODE_9 {
			a.session.SelectColor(int(ev.Key - sdl.SCANCODE_1))
		}
	}
}

// pick returns the visible mesh under the given window coordinates.
func (a *App) pick(x, y int) *scene.Node {
	model := a.session.Model()
	if model == nil {
		return nil
	}
	ww, wh := a.window.Size()
	if ww == 0 || wh == 0 {
		return nil
	}
	rw, rh := a.renderer.Size()
	if rh == 0 {
		return nil
	}
	inv, ok := a.camera.ViewProjection(float32(rw) / float32(rh)).Inverse()
	if !ok {
		return nil
	}

	ray := picking.ScreenToRay(float32(x), float32(y), float32(ww), float32(wh), inv)
	hit, ok := picking.Pick(ray, model.Meshes())
	if !ok {
		return nil
	}
	return hit.Mesh
}

func (a *App) saveArtwork() {
	path, err := a.capture.SaveFramebuffer(a.renderer.ReadPixels())
	if err != nil {
		logger.Error("saving artwork failed", zap.Error(err))
		return
	}
	logger.Info("artwork saved", zap.String("path", path))
}

// openDialog shows a native file dialog off the main thread and opens the
// chosen model from the event loop.
func (a *App) openDialog() {
	go func() {
		filename, err := dialog.File().
			Filter("Models", "rsm", "gltf", "glb").
			Filter("All Files", "*").
			Title("Open Model").
			Load()
		if err != nil {
			if !errors.Is(err, dialog.ErrCancelled) {
				logger.Error("file dialog failed", zap.Error(err))
			}
			return
		}
		a.loop.Post(func() {
			a.session.Open(filename)
		})
	}()
}

// Close releases every resource New acquired.
func (a *App) Close() {
	logger.Info("closing viewer")

	if a.audio != nil {
		a.audio.Close()
	}
	if a.renderer != nil {
		a.renderer.Close()
	}
	if a.window != nil {
		a.window.Close()
	}
	if a.assets != nil {
		hits, misses := a.assets.Stats()
		logger.Debug("asset cache", zap.Int("hits", hits), zap.Int("misses", misses))
		a.assets.Close()
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
