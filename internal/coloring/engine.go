// Package coloring tracks per-region color edits on a loaded model.
//
// An Engine indexes every mesh under a node in depth-first order. Regions
// are recolored in place on a working material, edits are kept on a single
// LIFO history shared by all meshes, and Reset swaps each mesh back to the
// material object it had when the engine was created.
//
// The engine holds non-owning pointers into the scene graph; the graph must
// stay alive and keep the same mesh set for the engine's lifetime. It is not
// safe for concurrent use.
package coloring

import (
	"github.com/Faultbox/midgard-paint/pkg/scene"
)

// Outcome reports what a coloring operation did.
type Outcome int

const (
	// OutcomeApplied means state changed.
	OutcomeApplied Outcome = iota
	// OutcomeOutOfRange means the mesh index did not address a region.
	OutcomeOutOfRange
	// OutcomeNoop means there was nothing to do (empty history).
	OutcomeNoop
)

// String returns a human-readable outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeOutOfRange:
		return "out of range"
	case OutcomeNoop:
		return "noop"
	default:
		return "unknown"
	}
}

// MeshRecord is a region captured at construction.
type MeshRecord struct {
	Mesh     *scene.Node
	Original *scene.Material
}

// EditRecord is one applied recolor.
type EditRecord struct {
	Mesh     *scene.Node
	Index    int
	Previous scene.Color
	Next     scene.Color
}

// ChangeKind identifies the operation behind a Change.
type ChangeKind int

const (
	ChangeColor ChangeKind = iota
	ChangeUndo
	ChangeReset
)

// Change is delivered to OnChange after every state-mutating operation.
// Index is -1 for resets.
type Change struct {
	Kind  ChangeKind
	Index int
	Color scene.Color
}

// Engine applies and reverts region colors.
type Engine struct {
	root    *scene.Node
	records []MeshRecord
	history []EditRecord

	// OnChange, if set, is called after ColorRegion, Undo or Reset changes state.
	OnChange func(Change)
}

// NewEngine captures every mesh under node and its current material.
func NewEngine(node *scene.Node) *Engine {
	e := &Engine{root: node}
	if node == nil {
		return e
	}
	node.Traverse(func(n *scene.Node) {
		if n.IsMesh() {
			e.records = append(e.records, MeshRecord{Mesh: n, Original: n.Material})
		}
	})
	return e
}

// Root returns the node the engine was built from.
func (e *Engine) Root() *scene.Node {
	return e.root
}

// MeshCount returns the number of addressable regions.
func (e *Engine) MeshCount() int {
	return len(e.records)
}

// HistoryLen returns the number of undoable edits.
func (e *Engine) HistoryLen() int {
	return len(e.history)
}

// Mesh returns the mesh at index, or nil if out of range.
func (e *Engine) Mesh(index int) *scene.Node {
	if !e.inRange(index) {
		return nil
	}
	return e.records[index].Mesh
}

// Color returns the current color of region index.
func (e *Engine) Color(index int) (scene.Color, bool) {
	if !e.inRange(index) {
		return 0, false
	}
	return e.records[index].Mesh.Material.Color, true
}

// Records returns a copy of the captured regions.
func (e *Engine) Records() []MeshRecord {
	out := make([]MeshRecord, len(e.records))
	copy(out, e.records)
	return out
}

// History returns a copy of the edit stack, oldest first.
func (e *Engine) History() []EditRecord {
	out := make([]EditRecord, len(e.history))
	copy(out, e.history)
	return out
}

// IndexOf returns the region index of mesh, or -1.
func (e *Engine) IndexOf(mesh *scene.Node) int {
	for i := range e.records {
		if e.records[i].Mesh == mesh {
			return i
		}
	}
	return -1
}

// ColorRegion sets the color of region index. Out-of-range indices change nothing.
func (e *Engine) ColorRegion(index int, c scene.Color) Outcome {
	if !e.inRange(index) {
		return OutcomeOutOfRange
	}

	rec := &e.records[index]
	mesh := rec.Mesh

	// The captured original is never edited; the first edit moves the mesh
	// onto its own working copy.
	if mesh.Material == rec.Original {
		mesh.Material = rec.Original.Clone()
	}

	e.history = append(e.history, EditRecord{
		Mesh:     mesh,
		Index:    index,
		Previous: mesh.Material.Color,
		Next:     c,
	})
	mesh.Material.Color.Set(c)

	e.notify(Change{Kind: ChangeColor, Index: index, Color: c})
	return OutcomeApplied
}

// Undo reverts the most recent edit, whichever mesh it touched.
func (e *Engine) Undo() Outcome {
	if len(e.history) == 0 {
		return OutcomeNoop
	}

	last := e.history[len(e.history)-1]
	e.history = e.history[:len(e.history)-1]
	last.Mesh.Material.Color.Set(last.Previous)

	e.notify(Change{Kind: ChangeUndo, Index: last.Index, Color: last.Previous})
	return OutcomeApplied
}

// Reset restores every mesh's original material object and clears history.
func (e *Engine) Reset() {
	for i := range e.records {
		e.records[i].Mesh.Material = e.records[i].Original
	}
	e.history = nil

	e.notify(Change{Kind: ChangeReset, Index: -1})
}

func (e *Engine) inRange(index int) bool {
	return index >= 0 && index < len(e.records)
}

func (e *Engine) notify(c Change) {
	if e.OnChange != nil {
		e.OnChange(c)
	}
}
