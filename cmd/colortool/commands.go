package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/Faultbox/midgard-paint/internal/assets"
	"github.com/Faultbox/midgard-paint/internal/coloring"
	"github.com/Faultbox/midgard-paint/internal/loader"
	"github.com/Faultbox/midgard-paint/pkg/grf"
	"github.com/Faultbox/midgard-paint/pkg/scene"
)

// errUsage means the usage text was already printed.
var errUsage = errors.New("usage")

// sourceFlags are the asset options shared by regions and paint.
type sourceFlags struct {
	grfs string
	dir  string
}

func (s *sourceFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&s.grfs, "grf", "", "Comma-separated GRF archives, later wins")
	fs.StringVar(&s.dir, "dir", ".", "Directory searched before the local disk")
}

// open builds an asset manager from the flags.
func (s *sourceFlags) open() (*assets.Manager, error) {
	am, err := assets.NewManager(assets.DefaultCacheEntries)
	if err != nil {
		return nil, err
	}
	if s.dir != "" {
		if err := am.AddDir(s.dir); err != nil {
			am.Close()
			return nil, err
		}
	}
	for _, p := range strings.Split(s.grfs, ",") {
		if p = strings.TrimSpace(p); p == "" {
			continue
		}
		if err := am.AddArchive(p); err != nil {
			am.Close()
			return nil, fmt.Errorf("opening archive %s: %w", p, err)
		}
	}
	return am, nil
}

func loadEngine(src *sourceFlags, modelPath string) (*coloring.Engine, func(), error) {
	am, err := src.open()
	if err != nil {
		return nil, nil, err
	}
	node, err := loader.New(am, nil).Load(modelPath)
	if err != nil {
		am.Close()
		return nil, nil, err
	}
	return coloring.NewEngine(node), am.Close, nil
}

func cmdRegions(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("regions", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var src sourceFlags
	src.register(fs)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Usage: colortool regions [-grf ...] [-dir d] <model>")
		return errUsage
	}

	engine, done, err := loadEngine(&src, fs.Arg(0))
	if err != nil {
		return err
	}
	defer done()

	printRegions(stdout, engine)
	return nil
}

func printRegions(w io.Writer, e *coloring.Engine) {
	fmt.Fprintf(w, "Model:   %s\n", e.Root().Name)
	fmt.Fprintf(w, "Regions: %d\n", e.MeshCount())
	if e.MeshCount() == 0 {
		return
	}
	fmt.Fprintln(w)
	for i := 0; i < e.MeshCount(); i++ {
		mesh := e.Mesh(i)
		tex := mesh.Material.TextureName
		if tex == "" {
			tex = "-"
		}
		fmt.Fprintf(w, "  %3d  %-24s %s  %5d tris  %s\n",
			i, mesh.Name, mesh.Material.Color, mesh.Geometry.TriangleCount(), tex)
	}
}

// paintOp is one idx=color argument.
type paintOp struct {
	index int
	color scene.Color
}

func parsePaintOp(s string) (paintOp, error) {
	idx, col, ok := strings.Cut(s, "=")
	if !ok {
		return paintOp{}, fmt.Errorf("expected idx=color, got %q", s)
	}
	i, err := strconv.Atoi(strings.TrimSpace(idx))
	if err != nil {
		return paintOp{}, fmt.Errorf("bad region index in %q: %w", s, err)
	}
	c, err := scene.ParseColor(col)
	if err != nil {
		return paintOp{}, fmt.Errorf("bad color in %q: %w", s, err)
	}
	return paintOp{index: i, color: c}, nil
}

func cmdPaint(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("paint", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var src sourceFlags
	src.register(fs)
	undo := fs.Int("undo", 0, "Undo the last N edits after painting")
	reset := fs.Bool("reset", false, "Reset all colors after painting")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(stderr, "Usage: colortool paint [-grf ...] [-dir d] [-undo n] [-reset] <model> idx=color...")
		return errUsage
	}

	ops := make([]paintOp, 0, fs.NArg()-1)
	for _, a := range fs.Args()[1:] {
		op, err := parsePaintOp(a)
		if err != nil {
			return err
		}
		ops = append(ops, op)
	}

	engine, done, err := loadEngine(&src, fs.Arg(0))
	if err != nil {
		return err
	}
	defer done()

	for _, op := range ops {
		out := engine.ColorRegion(op.index, op.color)
		fmt.Fprintf(stdout, "paint %d %s: %s\n", op.index, op.color, out)
	}
	for i := 0; i < *undo; i++ {
		fmt.Fprintf(stdout, "undo: %s\n", engine.Undo())
	}
	if *reset {
		engine.Reset()
		fmt.Fprintln(stdout, "reset")
	}

	fmt.Fprintln(stdout)
	printRegions(stdout, engine)
	fmt.Fprintf(stdout, "\nHistory: %d\n", engine.HistoryLen())
	return nil
}

// modelExts are the extensions the loader understands.
var modelExts = map[string]bool{".rsm": true, ".gltf": true, ".glb": true}

func cmdModels(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("models", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() < 1 || fs.NArg() > 2 {
		fmt.Fprintln(stderr, "Usage: colortool models <file.grf> [pattern]")
		return errUsage
	}

	archive, err := grf.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer archive.Close()

	files := archive.List()
	if fs.NArg() == 2 {
		if files, err = archive.Match(fs.Arg(1)); err != nil {
			return fmt.Errorf("bad pattern: %w", err)
		}
	}

	count := 0
	for _, f := range files {
		if !modelExts[path.Ext(f)] {
			continue
		}
		fmt.Fprintln(stdout, f)
		count++
	}
	fmt.Fprintf(stderr, "(%d models)\n", count)
	return nil
}
