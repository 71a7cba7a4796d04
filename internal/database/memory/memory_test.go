package memory

import (
	"context"
	"testing"
	"time"

	"netmon/internal/database"
	"netmon/internal/database/storetest"
	"netmon/internal/model"
)

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) database.Store { return New() })
}

func TestInsertStampsMissingTime(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := New()
	s.ResetClock(func() time.Time { return fixed })

	ctx := context.Background()
	if _, err := s.InsertMetrics(ctx, []model.Metric{{Name: "x", Value: model.Number(1)}}); err != nil {
		t.Fatalf("InsertMetrics: %v", err)
	}
	got, _ := s.FindMetrics(ctx, model.MetricFilter{})
	if !got[0].Timestamp.Equal(fixed) {
		t.Errorf("Timestamp = %v; want %v", got[0].Timestamp, fixed)
	}
}

func TestOfficeCopiesAreIsolated(t *testing.T) {
	s := New()
	ctx := context.Background()
	o, err := s.CreateOffice(ctx, model.Office{Office: "HQ", City: "Paris", Country: "France", DeviceIDs: []string{"h1"}})
	if err != nil {
		t.Fatalf("CreateOffice: %v", err)
	}
	o.DeviceIDs[0] = "mutated"

	got, _ := s.GetOffice(ctx, o.ID)
	if got.DeviceIDs[0] != "h1" {
		t.Errorf("stored office shares memory with caller: %v", got.DeviceIDs)
	}
}
