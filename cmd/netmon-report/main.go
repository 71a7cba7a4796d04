package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"netmon/internal/app"
	"netmon/internal/collector"
	"netmon/internal/config"
	"netmon/internal/health"
	"netmon/internal/output"
	"netmon/internal/report"
	"netmon/ui/console"
)

func main() {
	configPath := flag.String("config", "", "path to netmon.yaml")
	maxAlerts := flag.Int("alerts", 5, "number of recent alerts to show")
	skipProbe := flag.Bool("no-probe", false, "skip the local host probe")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	log := app.NewLogger(cfg.Log, os.Stderr)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to build backends")
	}
	defer a.Close()

	loader := report.NewLoader(nil, a.Service, health.DefaultConfig())
	loader.MaxAlerts = *maxAlerts
	if !*skipProbe {
		loader.Probe = collector.NewProbe(collector.FromConfig(cfg.Probe))
	}

	in, err := loader.Load(ctx)
	if err != nil {
		log.WithError(err).Error("report is incomplete")
	}
	console.Print(os.Stdout, output.BuildDashboard(in))
}
