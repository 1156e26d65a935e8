// Package main is the entry point for the Midgard Paint viewer.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-paint/internal/app"
	"github.com/Faultbox/midgard-paint/internal/config"
	"github.com/Faultbox/midgard-paint/internal/logger"
)

func main() {
	var flags config.Flags
	flags.Register(flag.CommandLine)
	flag.Parse()

	// A bare argument is the model to open.
	if flag.NArg() > 0 && flags.Model == "" {
		flags.Model = flag.Arg(0)
	}

	cfg, err := config.Load(&flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== Midgard Paint ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	a, err := app.New(cfg)
	if err != nil {
		logger.Error("failed to start viewer", zap.Error(err))
		os.Exit(1)
	}
	defer a.Close()

	if err := a.Run(); err != nil {
		logger.Error("viewer error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("viewer closed normally")
}
