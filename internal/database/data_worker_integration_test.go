package database_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"netmon/internal/collector"
	"netmon/internal/database"
	"netmon/internal/database/relational"
	"netmon/internal/health"
	"netmon/internal/idempotency"
	"netmon/internal/model"
	"netmon/internal/service"
)

// MockProvider returns canned probe readings and counts calls.
type MockProvider struct {
	Metrics []model.Metric
	Err     error
	calls   atomic.Int32
}

func (m *MockProvider) Observe(ctx context.Context) ([]model.Metric, error) {
	m.calls.Add(1)
	return m.Metrics, m.Err
}

// MockPruner records retention plans.
type MockPruner struct {
	mu    sync.Mutex
	plans []model.PrunePlan
}

func (m *MockPruner) Prune(ctx context.Context, plan model.PrunePlan) (model.PruneResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans = append(m.plans, plan)
	return model.PruneResult{DryRun: plan.DryRun}, nil
}

func (m *MockPruner) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.plans)
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

func probeRound(at time.Time) []model.Metric {
	meta := model.Meta{HostID: "10084", DeviceID: "netmon-host", Location: "HQ", Iface: model.GlobalIface}
	eth := meta
	eth.Iface, eth.IfDescr = "eth0", "eth0"
	return []model.Metric{
		{Timestamp: at, Meta: meta, Name: collector.MetricCPU, Value: model.Number(96)},
		{Timestamp: at, Meta: meta, Name: collector.MetricMemory, Value: model.Number(40)},
		{Timestamp: at, Meta: eth, Name: "Interface eth0: " + collector.MetricOperStatus, Value: model.Number(1)},
	}
}

// TestDataWorkerPullAndPersist runs probe -> flagger -> service -> DuckDB.
func TestDataWorkerPullAndPersist(t *testing.T) {
	ctx := context.Background()

	repo, err := relational.Open(ctx, "", relational.WithThreads(1))
	if err != nil {
		t.Fatalf("failed to open duckdb: %v", err)
	}
	defer repo.Close()

	svc := service.New(service.Deps{
		Store: repo,
		Keys:  idempotency.NewMemory(),
		Log:   quietLogger(),
	})
	var published atomic.Int32
	svc.Subscribe(func(events []model.Event) { published.Add(int32(len(events))) })

	at := time.Now().Truncate(time.Second)
	provider := &MockProvider{Metrics: probeRound(at)}
	worker, err := database.NewDataWorker(provider, health.NewFlagger(health.DefaultConfig()), svc, repo,
		database.WorkerConfig{}, quietLogger())
	if err != nil {
		t.Fatalf("failed to create data worker: %v", err)
	}

	if err := worker.PullOnce(ctx); err != nil {
		t.Fatalf("PullOnce failed: %v", err)
	}
	// same round again: both batches are duplicates
	if err := worker.PullOnce(ctx); err != nil {
		t.Fatalf("second PullOnce failed: %v", err)
	}

	metrics, err := repo.FindMetrics(ctx, model.MetricFilter{HostID: "10084"})
	if err != nil {
		t.Fatalf("FindMetrics failed: %v", err)
	}
	if len(metrics) != 3 {
		t.Errorf("Expected 3 metrics, got %d", len(metrics))
	}

	events, err := repo.FindEvents(ctx, model.EventFilter{HostID: "10084"})
	if err != nil {
		t.Fatalf("FindEvents failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 event (cpu critical), got %d", len(events))
	}
	if events[0].Severity != health.SeverityCritical {
		t.Errorf("Expected critical severity, got %q", events[0].Severity)
	}
	if published.Load() != 1 {
		t.Errorf("Expected 1 published event, got %d", published.Load())
	}
}

func TestNewDataWorkerValidation(t *testing.T) {
	tests := []struct {
		name    string
		probe   collector.Provider
		pruner  database.Pruner
		cfg     database.WorkerConfig
		wantErr bool
	}{
		{"nothing enabled", nil, nil, database.WorkerConfig{}, false},
		{"probe loop without probe", nil, nil, database.WorkerConfig{ProbeInterval: time.Second}, true},
		{"retention without pruner", nil, nil, database.WorkerConfig{RetentionInterval: time.Hour}, true},
		{"negative keep days", nil, &MockPruner{}, database.WorkerConfig{Retention: model.PrunePlan{KeepDays: -1}}, true},
		{"retention only", nil, &MockPruner{}, database.WorkerConfig{RetentionInterval: time.Hour}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := database.NewDataWorker(tt.probe, nil, nil, tt.pruner, tt.cfg, quietLogger())
			if (err != nil) != tt.wantErr {
				t.Errorf("NewDataWorker() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

type recordingSink struct {
	mu     sync.Mutex
	rounds int
}

func (s *recordingSink) IngestProbe(ctx context.Context, key string, metrics []model.Metric, events []model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rounds++
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rounds
}

func TestDataWorkerLoops(t *testing.T) {
	provider := &MockProvider{Metrics: probeRound(time.Now())}
	sink := &recordingSink{}
	pruner := &MockPruner{}
	plan := model.PrunePlan{KeepDays: 7, MinRecordsPerDevice: 100}

	worker, err := database.NewDataWorker(provider, nil, sink, pruner, database.WorkerConfig{
		ProbeInterval:     10 * time.Millisecond,
		RetentionInterval: 10 * time.Millisecond,
		Retention:         plan,
	}, quietLogger())
	if err != nil {
		t.Fatalf("failed to create data worker: %v", err)
	}

	if err := worker.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := worker.Start(context.Background()); err == nil {
		t.Error("second Start should fail while running")
	}

	deadline := time.Now().Add(2 * time.Second)
	for (sink.count() == 0 || pruner.count() == 0) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	worker.Stop()

	if sink.count() == 0 {
		t.Error("probe loop never ingested")
	}
	if pruner.count() == 0 {
		t.Fatal("retention loop never ran")
	}
	if worker.Running() {
		t.Error("worker still running after Stop")
	}

	pruner.mu.Lock()
	got := pruner.plans[0]
	pruner.mu.Unlock()
	if got != plan {
		t.Errorf("prune plan = %+v, want %+v", got, plan)
	}
}

func TestPullOnceSurfacesProbeErrors(t *testing.T) {
	provider := &MockProvider{Err: errors.New("sensor offline")}
	worker, err := database.NewDataWorker(provider, nil, &recordingSink{}, nil, database.WorkerConfig{}, quietLogger())
	if err != nil {
		t.Fatalf("failed to create data worker: %v", err)
	}
	if err := worker.PullOnce(context.Background()); err == nil {
		t.Fatal("expected error from failing probe")
	}
}
