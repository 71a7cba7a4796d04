package service

import (
	"context"
	"fmt"
	"time"

	"netmon/internal/database/graph"
	"netmon/internal/model"
)

// IngestResult is returned by both ingestion calls.
type IngestResult struct {
	Inserted  int  `json:"inserted"`
	Duplicate bool `json:"duplicate,omitempty"`
}

// claim reports whether a batch under key should be written. An empty key
// or no key store always writes.
func (s *Service) claim(ctx context.Context, key string) (bool, error) {
	if key == "" || s.keys == nil {
		return true, nil
	}
	ok, err := s.keys.Claim(ctx, key, s.keyTTL)
	if err != nil {
		return false, fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	return ok, nil
}

func (s *Service) release(ctx context.Context, key string) {
	if key == "" || s.keys == nil {
		return
	}
	if err := s.keys.Release(ctx, key); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("failed to release idempotency key")
	}
}

// IngestMetrics appends a batch of observations. A repeated idempotency key
// returns a duplicate result without writing.
func (s *Service) IngestMetrics(ctx context.Context, key string, metrics []model.Metric) (IngestResult, error) {
	ok, err := s.claim(ctx, key)
	if err != nil {
		return IngestResult{}, err
	}
	if !ok {
		s.log.WithField("key", key).Info("duplicate metrics batch skipped")
		return IngestResult{Duplicate: true}, nil
	}

	n, err := s.store.InsertMetrics(ctx, metrics)
	if err != nil {
		s.release(ctx, key)
		return IngestResult{}, fmt.Errorf("failed to insert metrics: %w", err)
	}
	s.log.WithField("count", n).Debug("metrics ingested")
	return IngestResult{Inserted: n}, nil
}

// IngestEvents appends a batch of alert events, mirrors them into the graph
// and hands them to subscribers.
func (s *Service) IngestEvents(ctx context.Context, key string, events []model.Event) (IngestResult, error) {
	ok, err := s.claim(ctx, key)
	if err != nil {
		return IngestResult{}, err
	}
	if !ok {
		s.log.WithField("key", key).Info("duplicate events batch skipped")
		return IngestResult{Duplicate: true}, nil
	}

	now := s.now()
	for i := range events {
		events[i].Normalize(now)
	}
	n, err := s.store.InsertEvents(ctx, events)
	if err != nil {
		s.release(ctx, key)
		return IngestResult{}, fmt.Errorf("failed to insert events: %w", err)
	}

	if n > 0 {
		s.syncGraph("ingest events", func(g graph.GraphClient) error { return g.IngestEvents(ctx, events) })
		s.publish(events)
	}
	s.log.WithField("count", n).Debug("events ingested")
	return IngestResult{Inserted: n}, nil
}

// IngestProbe records one round of the built-in host probe. The metric and
// event batches are claimed under separate keys derived from key.
func (s *Service) IngestProbe(ctx context.Context, key string, metrics []model.Metric, events []model.Event) error {
	mkey, ekey := "", ""
	if key != "" {
		mkey, ekey = key+":metrics", key+":events"
	}
	if len(metrics) > 0 {
		if _, err := s.IngestMetrics(ctx, mkey, metrics); err != nil {
			return err
		}
	}
	if len(events) > 0 {
		if _, err := s.IngestEvents(ctx, ekey, events); err != nil {
			return err
		}
	}
	return nil
}

// SeriesQuery selects one metric of one device over a closed time range.
type SeriesQuery struct {
	DeviceID string
	Metric   string
	Start    time.Time
	End      time.Time
	Limit    int
}

type SeriesResult struct {
	Count int            `json:"count"`
	Data  []model.Metric `json:"data"`
}

// MetricSeries returns the series oldest first.
func (s *Service) MetricSeries(ctx context.Context, q SeriesQuery) (SeriesResult, error) {
	if q.DeviceID == "" || q.Metric == "" {
		return SeriesResult{}, invalid("device_id and metric are required")
	}
	if q.End.Before(q.Start) {
		return SeriesResult{}, invalid("end_ts must not be before start_ts")
	}
	limit := q.Limit
	if limit <= 0 || limit > s.query.MetricsSeriesLimit {
		limit = s.query.MetricsSeriesLimit
	}

	data, err := s.store.FindMetrics(ctx, model.MetricFilter{
		DeviceID:  q.DeviceID,
		Metric:    q.Metric,
		Since:     q.Start,
		Until:     q.End,
		Ascending: true,
		Limit:     limit,
	})
	if err != nil {
		return SeriesResult{}, fmt.Errorf("failed to query metrics: %w", err)
	}
	return SeriesResult{Count: len(data), Data: data}, nil
}
