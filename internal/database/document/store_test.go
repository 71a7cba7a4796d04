package document

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"netmon/internal/database"
	"netmon/internal/database/storetest"
	"netmon/internal/model"
)

// TestStoreConformance runs against a live deployment named by
// NETMON_TEST_MONGO_URL. Each subtest gets its own database.
func TestStoreConformance(t *testing.T) {
	uri := os.Getenv("NETMON_TEST_MONGO_URL")
	if uri == "" {
		t.Skip("NETMON_TEST_MONGO_URL not set")
	}

	n := 0
	storetest.Run(t, func(t *testing.T) database.Store {
		n++
		cfg := DefaultConfig()
		cfg.URI = uri
		cfg.Database = fmt.Sprintf("netmon_test_%d_%d", time.Now().UnixNano(), n)

		s, err := Open(context.Background(), cfg)
		if err != nil {
			t.Fatalf("open mongodb: %v", err)
		}
		t.Cleanup(func() {
			_ = s.metrics.Database().Drop(context.Background())
		})
		return s
	})
}

func TestMetricQuery(t *testing.T) {
	tests := []struct {
		name    string
		filter  model.MetricFilter
		clauses int
	}{
		{name: "empty", filter: model.MetricFilter{}, clauses: 0},
		{name: "host", filter: model.MetricFilter{HostID: "h1"}, clauses: 1},
		{
			name: "same field twice",
			filter: model.MetricFilter{
				DeviceID:              "sw-1",
				ExcludeInfrastructure: true,
			},
			clauses: 2,
		},
		{
			name:    "time window",
			filter:  model.MetricFilter{Since: time.Unix(1, 0), Until: time.Unix(2, 0)},
			clauses: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := metricQuery(tt.filter)
			if tt.clauses == 0 {
				if len(q) != 0 {
					t.Errorf("want empty query, got %v", q)
				}
				return
			}
			and, ok := q["$and"].([]bson.M)
			if !ok {
				t.Fatalf("want $and clauses, got %v", q)
			}
			if len(and) != tt.clauses {
				t.Errorf("got %d clauses; want %d", len(and), tt.clauses)
			}
		})
	}
}

func TestSubstringEscapesPattern(t *testing.T) {
	re := substring("eth0.100")
	if re.Pattern != `eth0\.100` || re.Options != "i" {
		t.Errorf("got %+v", re)
	}
}
