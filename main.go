package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"netmon/internal/api"
	"netmon/internal/app"
	"netmon/internal/collector"
	"netmon/internal/config"
	"netmon/internal/database"
	"netmon/internal/health"
	"netmon/internal/model"
	"netmon/internal/websocket"
)

func main() {
	configPath := flag.String("config", "", "path to netmon.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	log := app.NewLogger(cfg.Log, os.Stderr)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("netmon stopped")
	}
}

func run(cfg config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.WithError(err).Warn("failed to close backends")
		}
	}()

	hub := websocket.NewHub(log)
	go hub.Run(ctx)
	a.Service.Subscribe(hub.BroadcastEvents)

	worker, err := newWorker(cfg, a, log)
	if err != nil {
		return err
	}
	if worker != nil {
		if err := worker.Start(ctx); err != nil {
			return err
		}
		defer worker.Stop()
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.NewRouter(api.NewHandler(a.Service, hub, cfg, log)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("netmon listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newWorker returns nil when neither the probe nor retention is enabled.
func newWorker(cfg config.Config, a *app.App, log *logrus.Logger) (*database.DataWorker, error) {
	if !cfg.Probe.Enabled && !cfg.Retention.Enabled {
		return nil, nil
	}

	wc := database.WorkerConfig{
		Retention: model.PrunePlan{
			KeepDays:            cfg.Retention.KeepDays,
			MinRecordsPerDevice: cfg.Retention.MinRecordsPerDevice,
		},
	}
	var probe collector.Provider
	if cfg.Probe.Enabled {
		pc := collector.FromConfig(cfg.Probe)
		if err := pc.Validate(); err != nil {
			return nil, err
		}
		probe = collector.NewProbe(pc)
		wc.ProbeInterval = cfg.Probe.Interval
	}
	if cfg.Retention.Enabled {
		wc.RetentionInterval = cfg.Retention.Interval
	}
	return database.NewDataWorker(probe, health.NewFlagger(health.DefaultConfig()), a.Service, a.Store, wc, log)
}
