// Package app runs the interactive coloring viewer.
package app

import (
	"fmt"
	"path"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-paint/internal/coloring"
	"github.com/Faultbox/midgard-paint/internal/loader"
	"github.com/Faultbox/midgard-paint/internal/logger"
	"github.com/Faultbox/midgard-paint/pkg/scene"
)

// Session holds the open model, its coloring engine and the palette.
// It has no window or GPU dependencies and runs on the event loop goroutine.
type Session struct {
	loader  *loader.Loader
	root    *scene.Node
	model   *scene.Node
	engine  *coloring.Engine
	pending *loader.Request

	palette  []scene.Color
	selected int

	// OnModel, if set, is called after a model replaces the previous one.
	OnModel func(model *scene.Node)
	// OnChange, if set, receives every engine change.
	OnChange func(coloring.Change)
}

// NewSession creates a session. palette must not be empty.
func NewSession(ld *loader.Loader, palette []scene.Color, selected int) *Session {
	if len(palette) == 0 {
		palette = []scene.Color{scene.White}
	}
	s := &Session{
		loader:  ld,
		root:    scene.NewScene(),
		palette: palette,
		engine:  coloring.NewEngine(nil),
	}
	s.SelectColor(selected)
	return s
}

// Root returns the scene every model is attached to.
func (s *Session) Root() *scene.Node {
	return s.root
}

// Model returns the open model, or nil.
func (s *Session) Model() *scene.Node {
	return s.model
}

// Engine returns the engine for the open model. It is empty before the
// first model loads.
func (s *Session) Engine() *coloring.Engine {
	return s.engine
}

// Loading reports whether an Open is still in flight.
func (s *Session) Loading() bool {
	if s.pending == nil {
		return false
	}
	select {
	case <-s.pending.Done():
		return false
	default:
		return true
	}
}

// Open starts loading p. The current model stays on screen until the new
// one arrives; a newer Open supersedes an older one still in flight.
func (s *Session) Open(p string) *loader.Request {
	var req *loader.Request
	req = s.loader.LoadModel(nil, p, func(node *scene.Node) {
		if req != s.pending {
			logger.Debug("discarding superseded model", zap.String("path", p))
			return
		}
		s.replace(node)
	})
	s.pending = req
	return req
}

func (s *Session) replace(node *scene.Node) {
	if s.model != nil {
		s.root.Remove(s.model)
	}
	s.root.Add(node)
	s.model = node

	s.engine = coloring.NewEngine(node)
	s.engine.OnChange = func(c coloring.Change) {
		if s.OnChange != nil {
			s.OnChange(c)
		}
	}

	logger.Info("model opened",
		zap.String("name", node.Name),
		zap.Int("regions", s.engine.MeshCount()))
	if s.OnModel != nil {
		s.OnModel(node)
	}
}

// Palette returns the palette colors.
func (s *Session) Palette() []scene.Color {
	return s.palette
}

// Selected returns the index of the active palette color.
func (s *Session) Selected() int {
	return s.selected
}

// Color returns the active palette color.
func (s *Session) Color() scene.Color {
	return s.palette[s.selected]
}

// SelectColor makes palette entry i active. Out-of-range i is ignored.
func (s *Session) SelectColor(i int) bool {
	if i < 0 || i >= len(s.palette) {
		return false
	}
	s.selected = i
	return true
}

// CycleColor moves the selection by delta, wrapping around.
func (s *Session) CycleColor(delta int) {
	n := len(s.palette)
	s.selected = ((s.selected+delta)%n + n) % n
}

// Paint colors region with the active palette color.
func (s *Session) Paint(region int) coloring.Outcome {
	out := s.engine.ColorRegion(region, s.Color())
	logger.Debug("paint",
		zap.Int("region", region),
		zap.Stringer("color", s.Color()),
		zap.Stringer("outcome", out))
	return out
}

// PaintMesh colors the region backed by mesh.
func (s *Session) PaintMesh(mesh *scene.Node) coloring.Outcome {
	return s.Paint(s.engine.IndexOf(mesh))
}

// Undo reverts the last paint.
func (s *Session) Undo() coloring.Outcome {
	return s.engine.Undo()
}

// Reset restores the model's original colors.
func (s *Session) Reset() {
	s.engine.Reset()
}

// Title describes the session for the window title bar.
func (s *Session) Title(base string) string {
	if s.model == nil {
		if s.Loading() {
			return fmt.Sprintf("%s | loading %s", base, path.Base(s.pending.Path))
		}
		return base
	}
	return fmt.Sprintf("%s | %s | %d regions | %d edits | %s",
		base, s.model.Name, s.engine.MeshCount(), s.engine.HistoryLen(), s.Color())
}
