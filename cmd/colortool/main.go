// colortool inspects and recolors models from the command line.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Faultbox/midgard-paint/internal/logger"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one command and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	top := flag.NewFlagSet("colortool", flag.ContinueOnError)
	top.SetOutput(stderr)
	debug := top.Bool("debug", false, "Enable debug logging")
	if err := top.Parse(args); err != nil {
		return 2
	}
	if top.NArg() < 1 {
		printUsage(stderr)
		return 2
	}

	level := "warn"
	if *debug {
		level = "debug"
	}
	if err := logger.Init(level, ""); err != nil {
		fmt.Fprintf(stderr, "Logger error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	command := top.Arg(0)
	rest := top.Args()[1:]

	var err error
	switch command {
	case "regions":
		err = cmdRegions(rest, stdout, stderr)
	case "paint":
		err = cmdPaint(rest, stdout, stderr)
	case "models":
		err = cmdModels(rest, stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", command)
		printUsage(stderr)
		return 2
	}

	if err != nil {
		if err != errUsage {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `colortool - inspect and recolor RSM and glTF models

Usage:
  colortool [-debug] <command> [options]

Commands:
  regions [-grf a.grf,b.grf] [-dir d] <model>
        List the colorable regions of a model
  paint [-grf ...] [-dir d] [-undo n] [-reset] <model> idx=color...
        Apply colors in order, then undo/reset, and print the result
  models <file.grf> [pattern]
        List the models stored in an archive

Examples:
  colortool regions -grf data.grf data/model/prontera/fountain.rsm
  colortool paint -dir ./assets chair.glb 0=#ff0000 2=00ff00
  colortool paint -undo 1 chair.glb 0=#ff0000 0=#0000ff
  colortool models data.grf "data/model/prontera/*"`)
}
