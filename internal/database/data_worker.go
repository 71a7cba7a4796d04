package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"netmon/internal/collector"
	"netmon/internal/model"
	"netmon/internal/output"
)

const (
	defaultPollInterval      = 30 * time.Second
	defaultRetentionInterval = 24 * time.Hour
)

// Sink receives probe rounds. The service layer implements it so probe
// events reach the same subscribers as posted ones.
type Sink interface {
	IngestProbe(ctx context.Context, key string, metrics []model.Metric, events []model.Event) error
}

// Pruner applies retention plans. Every Store is one.
type Pruner interface {
	Prune(ctx context.Context, plan model.PrunePlan) (model.PruneResult, error)
}

// WorkerConfig selects which loops run. A zero interval turns a loop off.
type WorkerConfig struct {
	ProbeInterval     time.Duration
	RetentionInterval time.Duration
	Retention         model.PrunePlan
}

// DataWorker runs the background loops: Probe -> Flagger -> Sink on one
// ticker, retention on another.
type DataWorker struct {
	probe   collector.Provider
	flagger output.DataFlagger
	sink    Sink
	pruner  Pruner
	cfg     WorkerConfig
	log     *logrus.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup
}

// NewDataWorker creates a new worker instance. The probe and sink may be nil
// when only retention runs, and the pruner may be nil when only the probe runs.
func NewDataWorker(
	p collector.Provider,
	f output.DataFlagger,
	s Sink,
	pr Pruner,
	cfg WorkerConfig,
	log *logrus.Logger,
) (*DataWorker, error) {
	if cfg.ProbeInterval > 0 && (p == nil || s == nil) {
		return nil, errors.New("probe and sink are required when the probe loop is enabled")
	}
	if cfg.RetentionInterval > 0 && pr == nil {
		return nil, errors.New("pruner is required when retention is enabled")
	}
	if cfg.Retention.KeepDays < 0 || cfg.Retention.MinRecordsPerDevice < 0 {
		return nil, errors.New("retention keepDays and minRecordsPerDevice must be non-negative")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &DataWorker{
		probe:   p,
		flagger: f,
		sink:    s,
		pruner:  pr,
		cfg:     cfg,
		log:     log,
	}, nil
}

// Start begins the periodic loops.
func (w *DataWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("worker already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true
	w.mu.Unlock()

	if w.cfg.ProbeInterval > 0 {
		w.wg.Add(1)
		go w.loop(ctx, "probe", w.cfg.ProbeInterval, w.PullOnce)
	}
	if w.cfg.RetentionInterval > 0 {
		w.wg.Add(1)
		go w.loop(ctx, "retention", w.cfg.RetentionInterval, func(ctx context.Context) error {
			_, err := w.PruneOnce(ctx)
			return err
		})
	}
	w.log.WithFields(logrus.Fields{
		"probe_interval":     w.cfg.ProbeInterval,
		"retention_interval": w.cfg.RetentionInterval,
	}).Info("data worker started")
	return nil
}

// Stop cancels the loops and waits for the current round to finish.
func (w *DataWorker) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.running = false
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
}

func (w *DataWorker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// PullOnce executes a single probe round immediately.
func (w *DataWorker) PullOnce(ctx context.Context) error {
	if w.probe == nil || w.sink == nil {
		return errors.New("probe is not configured")
	}
	payload, err := output.RunPipeline(ctx, w.probe, w.flagger)
	if err != nil {
		return fmt.Errorf("pipeline execution failed: %w", err)
	}
	if len(payload.Metrics) == 0 {
		return nil
	}
	if err := w.sink.IngestProbe(ctx, payload.Key, payload.Metrics, payload.Events); err != nil {
		return fmt.Errorf("ingest probe round: %w", err)
	}
	w.log.WithFields(logrus.Fields{
		"metrics": len(payload.Metrics),
		"events":  len(payload.Events),
	}).Debug("probe round ingested")
	return nil
}

// PruneOnce applies the configured retention plan immediately.
func (w *DataWorker) PruneOnce(ctx context.Context) (model.PruneResult, error) {
	if w.pruner == nil {
		return model.PruneResult{}, errors.New("retention is not configured")
	}
	res, err := w.pruner.Prune(ctx, w.cfg.Retention)
	if err != nil {
		return res, fmt.Errorf("prune: %w", err)
	}
	w.log.WithFields(logrus.Fields{
		"metrics": res.MetricsDeleted,
		"events":  res.EventsDeleted,
		"cutoff":  res.Cutoff,
	}).Info("retention pass completed")
	return res, nil
}

func (w *DataWorker) loop(ctx context.Context, name string, interval time.Duration, run func(context.Context) error) {
	defer w.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := run(ctx); err != nil && ctx.Err() == nil {
				w.log.WithError(err).WithField("loop", name).Error("worker execution failed")
			}
		}
	}
}
