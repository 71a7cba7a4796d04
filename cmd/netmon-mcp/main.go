package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"netmon/internal/app"
	"netmon/internal/collector"
	"netmon/internal/config"
	"netmon/internal/mcpserver"
)

// version is set at build time.
var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to netmon.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	// stdout carries the protocol.
	log := app.NewLogger(cfg.Log, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to build backends")
	}
	defer a.Close()

	probe := collector.NewProbe(collector.FromConfig(cfg.Probe))
	srv := mcpserver.NewServer(mcpserver.Config{ServerName: "netmon", ServerVersion: version}, a.Service, a.Graph, probe, log)

	log.Info("netmon MCP server starting on stdio")
	if err := srv.Start(ctx); err != nil && ctx.Err() == nil {
		log.WithError(err).Error("mcp server stopped")
		os.Exit(1)
	}
}
