package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"netmon/internal/app"
	"netmon/internal/collector"
	"netmon/internal/config"
	"netmon/internal/health"
	"netmon/internal/report"
	"netmon/ui/tui"
)

func main() {
	configPath := flag.String("config", "", "path to netmon.yaml")
	refresh := flag.Duration("refresh", 2*time.Second, "refresh interval")
	probeOnly := flag.Bool("probe-only", false, "show only the local probe, without opening the store")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	// The alt screen owns the terminal.
	log := app.NewLogger(cfg.Log, io.Discard)

	loader := report.NewLoader(collector.NewProbe(collector.FromConfig(cfg.Probe)), nil, health.DefaultConfig())
	if !*probeOnly {
		a, err := app.Build(context.Background(), cfg, log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
			os.Exit(1)
		}
		defer a.Close()
		loader.Fleet = a.Service
	}

	if err := tui.Start(loader, *refresh); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}
