package relational

import (
	"context"
	"strings"
	"testing"
	"time"

	"netmon/internal/database"
	"netmon/internal/database/storetest"
	"netmon/internal/model"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	repo, err := Open(context.Background(), "", WithThreads(1))
	if err != nil {
		t.Fatalf("failed to open duckdb: %v", err)
	}
	return repo
}

func TestRepoConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) database.Store { return newTestRepo(t) })
}

func TestMigrateIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	defer repo.Close()

	if err := repo.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
}

func TestBuildMetricQuery(t *testing.T) {
	tests := []struct {
		name     string
		filter   model.MetricFilter
		contains []string
		args     int
	}{
		{
			name:     "empty filter",
			filter:   model.MetricFilter{},
			contains: []string{"WHERE 1=1", "ORDER BY ts DESC"},
			args:     0,
		},
		{
			name:     "hosts and limit",
			filter:   model.MetricFilter{HostIDs: []string{"a", "b", "c"}, Limit: 10},
			contains: []string{"hostid IN (?,?,?)", "LIMIT ?"},
			args:     4,
		},
		{
			name:     "infrastructure and ordering",
			filter:   model.MetricFilter{ExcludeInfrastructure: true, Ascending: true},
			contains: []string{"regexp_matches", "ORDER BY ts ASC"},
			args:     0,
		},
		{
			name:     "time window",
			filter:   model.MetricFilter{Since: time.Unix(1, 0), Until: time.Unix(2, 0)},
			contains: []string{"ts >= ?", "ts <= ?"},
			args:     2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := buildMetricQuery(tt.filter)
			for _, want := range tt.contains {
				if !strings.Contains(query, want) {
					t.Errorf("query missing %q:\n%s", want, query)
				}
			}
			if len(args) != tt.args {
				t.Errorf("got %d args; want %d", len(args), tt.args)
			}
		})
	}
}

func TestGeoAbsentVersusZero(t *testing.T) {
	repo := newTestRepo(t)
	defer repo.Close()
	ctx := context.Background()

	_, err := repo.InsertMetrics(ctx, []model.Metric{
		{Timestamp: time.Unix(10, 0), Meta: model.Meta{HostID: "h1"}, Name: "a", Value: model.Number(1)},
		{Timestamp: time.Unix(20, 0), Meta: model.Meta{HostID: "h1", Geo: &model.Geo{Source: "manual"}}, Name: "b", Value: model.Number(1)},
	})
	if err != nil {
		t.Fatalf("InsertMetrics: %v", err)
	}

	got, err := repo.FindMetrics(ctx, model.MetricFilter{HostID: "h1"})
	if err != nil {
		t.Fatalf("FindMetrics: %v", err)
	}
	if got[0].Meta.Geo == nil || got[0].Meta.Geo.Source != "manual" {
		t.Errorf("zero geo lost: %+v", got[0].Meta.Geo)
	}
	if got[1].Meta.Geo != nil {
		t.Errorf("absent geo came back as %+v", got[1].Meta.Geo)
	}
}
