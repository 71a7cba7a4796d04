package service

import (
	"context"
	"fmt"
	"time"

	"netmon/internal/model"
)

// sampleOffices seed an empty registry.
var sampleOffices = []OfficeInput{
	{
		Office:      "Mumbai Suburban",
		City:        "Mumbai",
		Country:     "India",
		Geo:         &model.Geo{Lat: 19.1399626142165, Lon: 72.8435687889305, Source: "zabbix_inventory"},
		Description: "Main office in Mumbai Suburban area with network infrastructure",
		ContactInfo: map[string]any{
			"address": "Mumbai Suburban, Maharashtra, India",
			"phone":   "+91-22-XXXX-XXXX",
			"email":   "mumbai@company.com",
		},
	},
	{
		Office:      "Mumbai Central",
		City:        "Mumbai",
		Country:     "India",
		Geo:         &model.Geo{Lat: 19.0176, Lon: 72.8562, Source: "manual"},
		Description: "Central Mumbai office location",
		ContactInfo: map[string]any{
			"address": "Mumbai Central, Maharashtra, India",
			"phone":   "+91-22-YYYY-YYYY",
			"email":   "mumbai-central@company.com",
		},
	},
	{
		Office:      "Delhi Office",
		City:        "Delhi",
		Country:     "India",
		Geo:         &model.Geo{Lat: 28.6139, Lon: 77.2090, Source: "manual"},
		Description: "Delhi regional office",
		ContactInfo: map[string]any{
			"address": "New Delhi, Delhi, India",
			"phone":   "+91-11-ZZZZ-ZZZZ",
			"email":   "delhi@company.com",
		},
	},
}

type SetupResult struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Count   int            `json:"count"`
	Created int            `json:"created"`
	Offices []model.Office `json:"offices,omitempty"`
}

// SetupOffices seeds the sample offices when the registry is empty and does
// nothing otherwise.
func (s *Service) SetupOffices(ctx context.Context) (SetupResult, error) {
	n, err := s.store.CountOffices(ctx)
	if err != nil {
		return SetupResult{}, fmt.Errorf("failed to count offices: %w", err)
	}
	if n > 0 {
		return SetupResult{
			Success: true,
			Message: fmt.Sprintf("Offices collection already exists with %d offices", n),
			Count:   n,
		}, nil
	}

	created := make([]model.Office, 0, len(sampleOffices))
	for _, in := range sampleOffices {
		res, err := s.CreateOffice(ctx, in)
		if err != nil {
			return SetupResult{}, err
		}
		created = append(created, res.Office)
	}
	return SetupResult{
		Success: true,
		Message: fmt.Sprintf("Successfully created %d sample offices", len(created)),
		Count:   len(created),
		Created: len(created),
		Offices: created,
	}, nil
}

type SetupStatusResult struct {
	Success bool           `json:"success"`
	Count   int            `json:"count"`
	Offices []model.Office `json:"offices"`
	Message string         `json:"message"`
}

const setupPreview = 10

// SetupStatus reports how many offices exist and previews the first ones.
func (s *Service) SetupStatus(ctx context.Context) (SetupStatusResult, error) {
	offices, err := s.store.ListOffices(ctx, model.OfficeFilter{})
	if err != nil {
		return SetupStatusResult{}, fmt.Errorf("failed to list offices: %w", err)
	}
	n := len(offices)
	if len(offices) > setupPreview {
		offices = offices[:setupPreview]
	}
	return SetupStatusResult{
		Success: true,
		Count:   n,
		Offices: offices,
		Message: fmt.Sprintf("Offices collection has %d documents", n),
	}, nil
}

type StatsResult struct {
	Success bool             `json:"success"`
	Stats   model.StoreStats `json:"stats"`
}

// CleanupStats reports record counts and the stored time range.
func (s *Service) CleanupStats(ctx context.Context) (StatsResult, error) {
	st, err := s.store.Stats(ctx)
	if err != nil {
		return StatsResult{}, fmt.Errorf("failed to get stats: %w", err)
	}
	return StatsResult{Success: true, Stats: st}, nil
}

type RecordCounts struct {
	Metrics int64 `json:"metrics"`
	Events  int64 `json:"events"`
}

type CleanupStats struct {
	Before  RecordCounts `json:"before"`
	After   RecordCounts `json:"after"`
	Deleted RecordCounts `json:"deleted"`
}

type CleanupConfig struct {
	KeepDays            int       `json:"keepDays"`
	MinRecordsPerDevice int       `json:"minRecordsPerDevice"`
	CutoffTime          time.Time `json:"cutoffTime"`
}

type CleanupResult struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Stats   CleanupStats  `json:"stats"`
	Config  CleanupConfig `json:"config"`
}

// Cleanup applies a retention plan: per device, metrics older than keepDays
// go unless that would leave fewer than minRecordsPerDevice; old events go.
func (s *Service) Cleanup(ctx context.Context, plan model.PrunePlan) (CleanupResult, error) {
	if plan.KeepDays < 0 || plan.MinRecordsPerDevice < 0 {
		return CleanupResult{}, invalid("keepDays and minRecordsPerDevice must not be negative")
	}

	before, err := s.store.Stats(ctx)
	if err != nil {
		return CleanupResult{}, fmt.Errorf("failed to get stats: %w", err)
	}
	res, err := s.store.Prune(ctx, plan)
	if err != nil {
		return CleanupResult{}, fmt.Errorf("failed to prune: %w", err)
	}
	after, err := s.store.Stats(ctx)
	if err != nil {
		return CleanupResult{}, fmt.Errorf("failed to get stats: %w", err)
	}

	msg := "Cleanup completed"
	if plan.DryRun {
		msg = "Dry run completed"
	}
	s.log.WithField("dry_run", plan.DryRun).
		WithField("metrics", res.MetricsDeleted).
		WithField("events", res.EventsDeleted).
		Info("retention applied")

	return CleanupResult{
		Success: true,
		Message: msg,
		Stats: CleanupStats{
			Before:  RecordCounts{Metrics: before.Metrics, Events: before.Events},
			After:   RecordCounts{Metrics: after.Metrics, Events: after.Events},
			Deleted: RecordCounts{Metrics: res.MetricsDeleted, Events: res.EventsDeleted},
		},
		Config: CleanupConfig{
			KeepDays:            plan.KeepDays,
			MinRecordsPerDevice: plan.MinRecordsPerDevice,
			CutoffTime:          res.Cutoff,
		},
	}, nil
}
