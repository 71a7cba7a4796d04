package service

import (
	"context"
	"time"

	"netmon/internal/model"
)

// MetricsQuery filters the metric listing. Metric matches by substring,
// ignoring case.
type MetricsQuery struct {
	Limit  int
	Metric string
	HostID string
}

type MetricsFilters struct {
	Metric *string `json:"metric"`
	HostID *string `json:"hostid"`
	Limit  int     `json:"limit"`
}

type MetricsResult struct {
	Count   int            `json:"count"`
	Filters MetricsFilters `json:"filters"`
	Data    []model.Metric `json:"data"`
}

// AllMetrics lists recent metrics of non-infrastructure devices, newest first.
func (s *Service) AllMetrics(ctx context.Context, q MetricsQuery) (MetricsResult, error) {
	limit := s.limit(q.Limit, s.query.MaxLimit)
	data, err := s.metrics(ctx, model.MetricFilter{
		HostID:                q.HostID,
		MetricPattern:         q.Metric,
		ExcludeInfrastructure: true,
		Limit:                 limit,
	})
	if err != nil {
		return MetricsResult{}, err
	}
	return MetricsResult{
		Count:   len(data),
		Filters: MetricsFilters{Metric: optional(q.Metric), HostID: optional(q.HostID), Limit: limit},
		Data:    data,
	}, nil
}

type HostMetricsResult struct {
	Success bool           `json:"success"`
	Metrics []model.Metric `json:"metrics"`
	Count   int            `json:"count"`
}

// HostMetrics returns the newest metrics of one host.
func (s *Service) HostMetrics(ctx context.Context, hostID string) (HostMetricsResult, error) {
	data, err := s.metrics(ctx, model.MetricFilter{HostID: hostID, Limit: s.query.MetricsSeriesLimit})
	if err != nil {
		return HostMetricsResult{}, err
	}
	return HostMetricsResult{Success: true, Metrics: data, Count: len(data)}, nil
}

type AlertQuery struct {
	Limit    int
	Severity string
	HostID   string
}

type AlertFilters struct {
	Severity *string `json:"severity"`
	HostID   *string `json:"hostid"`
	Limit    int     `json:"limit"`
}

type AlertsResult struct {
	Count   int           `json:"count"`
	Filters AlertFilters  `json:"filters"`
	Alerts  []model.Event `json:"alerts"`
}

// Alerts lists events newest first.
func (s *Service) Alerts(ctx context.Context, q AlertQuery) (AlertsResult, error) {
	limit := s.limit(q.Limit, s.query.MaxLimit)
	alerts, err := s.events(ctx, model.EventFilter{HostID: q.HostID, Severity: q.Severity, Limit: limit})
	if err != nil {
		return AlertsResult{}, err
	}
	return AlertsResult{
		Count:   len(alerts),
		Filters: AlertFilters{Severity: optional(q.Severity), HostID: optional(q.HostID), Limit: limit},
		Alerts:  alerts,
	}, nil
}

type TimeRange struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
	Hours int   `json:"hours"`
}

type MetricBlock struct {
	Count int            `json:"count"`
	Data  []model.Metric `json:"data"`
}

type AlertBlock struct {
	Count int           `json:"count"`
	Data  []model.Event `json:"data"`
}

type TroubleshootResult struct {
	HostID    string      `json:"hostid"`
	TimeRange TimeRange   `json:"time_range"`
	Metrics   MetricBlock `json:"metrics"`
	Alerts    AlertBlock  `json:"alerts"`
}

// Troubleshoot returns a host's metrics and alerts of the last hours.
func (s *Service) Troubleshoot(ctx context.Context, hostID string, limit, hours int) (TroubleshootResult, error) {
	if hostID == "" {
		return TroubleshootResult{}, invalid("hostid is required")
	}
	limit = s.limit(limit, s.query.TroubleshootMax)
	if hours <= 0 {
		hours = s.query.WindowHours
	}
	end := s.now()
	start := end.Add(-time.Duration(hours) * time.Hour)

	metrics, err := s.metrics(ctx, model.MetricFilter{HostID: hostID, Since: start, Until: end, Limit: limit})
	if err != nil {
		return TroubleshootResult{}, err
	}
	alerts, err := s.events(ctx, model.EventFilter{HostID: hostID, Since: start, Until: end, Limit: limit})
	if err != nil {
		return TroubleshootResult{}, err
	}

	return TroubleshootResult{
		HostID:    hostID,
		TimeRange: TimeRange{Start: start.Unix(), End: end.Unix(), Hours: hours},
		Metrics:   MetricBlock{Count: len(metrics), Data: metrics},
		Alerts:    AlertBlock{Count: len(alerts), Data: alerts},
	}, nil
}
