package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netmon/internal/collector"
	"netmon/internal/config"
	"netmon/internal/database/memory"
	"netmon/internal/health"
	"netmon/internal/idempotency"
	"netmon/internal/model"
	"netmon/internal/service"
)

type stubProbe struct {
	metrics []model.Metric
	err     error
}

func (p stubProbe) Observe(context.Context) ([]model.Metric, error) { return p.metrics, p.err }

func newService(t *testing.T) *service.Service {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return service.New(service.Deps{
		Store: memory.New(),
		Keys:  idempotency.NewMemory(),
		Query: config.Default().Query,
		Log:   log,
	})
}

func TestLoaderLoad(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	now := time.Now().UTC().Truncate(time.Second)

	_, err := svc.IngestMetrics(ctx, "", []model.Metric{{
		Timestamp: now,
		Meta:      model.Meta{HostID: "h1", DeviceID: "core-sw-01", Iface: model.GlobalIface},
		Name:      collector.MetricCPU,
		Value:     model.Number(40),
	}})
	require.NoError(t, err)
	_, err = svc.IngestEvents(ctx, "", []model.Event{{
		HostID: "h1", DeviceID: "core-sw-01", Metric: collector.MetricCPU,
		Severity: health.SeverityCritical, Status: "Down", DetectedAt: now,
	}})
	require.NoError(t, err)
	_, err = svc.CreateOffice(ctx, service.OfficeInput{Office: "HQ", City: "Paris", Country: "France"})
	require.NoError(t, err)

	probe := stubProbe{metrics: []model.Metric{{Timestamp: now, Name: collector.MetricMemory, Value: model.Number(55)}}}
	l := NewLoader(probe, svc, health.DefaultConfig())
	l.now = func() time.Time { return now }

	in, err := l.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, now, in.Generated)
	assert.Len(t, in.Probe, 1)
	require.Len(t, in.Hosts, 1)
	assert.Equal(t, "core-sw-01", in.Hosts[0].DeviceID)
	require.Len(t, in.Cities, 1)
	assert.Equal(t, "Paris", in.Cities[0].City)
	require.Len(t, in.Alerts, 1)
	assert.Equal(t, "critical", in.Alerts[0].Severity)
}

func TestLoaderProbeOnly(t *testing.T) {
	l := NewLoader(stubProbe{metrics: []model.Metric{{Name: collector.MetricCPU, Value: model.Number(1)}}}, nil, health.DefaultConfig())
	in, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, in.Probe, 1)
	assert.Empty(t, in.Hosts)
}

func TestLoaderProbeError(t *testing.T) {
	l := NewLoader(stubProbe{err: errors.New("sensor offline")}, newService(t), health.DefaultConfig())
	in, err := l.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "probe: sensor offline")
	assert.False(t, in.Generated.IsZero())
	assert.Empty(t, in.Hosts)
}
