package status

import (
	"testing"
	"time"

	"netmon/internal/model"
)

func metric(ts int64, ifindex, ifdescr, name string, v model.Value) model.Metric {
	return model.Metric{
		Timestamp: time.Unix(ts, 0),
		Meta:      model.Meta{HostID: "10084", IfIndex: model.FlexString(ifindex), IfDescr: ifdescr},
		Name:      name,
		Value:     v,
	}
}

func TestAggregateStatusResolution(t *testing.T) {
	tests := []struct {
		name     string
		metrics  []model.Metric
		expected map[string]Status // Key -> Expected Status
	}{
		{
			name: "Operational status 1 is up",
			metrics: []model.Metric{
				metric(100, "1", "eth0", "Interface eth0: Operational status", model.Number(1)),
			},
			expected: map[string]Status{"eth0": StatusUp},
		},
		{
			name: "Any other number is down",
			metrics: []model.Metric{
				metric(100, "2", "eth1", "Interface eth1: Operational status", model.Number(2)),
				metric(100, "3", "eth2", "Interface eth2: Operational status", model.Number(0)),
			},
			expected: map[string]Status{"eth1": StatusDown, "eth2": StatusDown},
		},
		{
			name: "No status metric is unknown",
			metrics: []model.Metric{
				metric(100, "4", "eth3", "Bits received", model.Number(1234)),
			},
			expected: map[string]Status{"eth3": StatusUnknown},
		},
		{
			name: "String value is not numeric",
			metrics: []model.Metric{
				metric(100, "5", "eth4", "Interface eth4: Operational status", model.Text("1")),
			},
			expected: map[string]Status{"eth4": StatusUnknown},
		},
		{
			name: "Match is case sensitive",
			metrics: []model.Metric{
				metric(100, "6", "eth5", "interface eth5: operational status", model.Number(1)),
			},
			expected: map[string]Status{"eth5": StatusUnknown},
		},
		{
			name: "Newest observation decides",
			metrics: []model.Metric{
				metric(100, "7", "eth6", "Interface eth6: Operational status", model.Number(1)),
				metric(200, "7", "eth6", "Interface eth6: Operational status", model.Number(2)),
			},
			expected: map[string]Status{"eth6": StatusDown},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			states := Aggregate(tt.metrics, Options{})
			got := make(map[string]Status)
			for _, st := range states {
				got[st.Key] = st.Status
			}
			for key, want := range tt.expected {
				if got[key] != want {
					t.Errorf("status[%s] = %q; want %q", key, got[key], want)
				}
			}
		})
	}
}

func TestAggregateGroupingKey(t *testing.T) {
	metrics := []model.Metric{
		metric(100, "1", "uplink", "Bits sent", model.Number(1)),
		metric(110, "2", "uplink", "Bits sent", model.Number(2)),
		metric(120, "3", "", "Bits sent", model.Number(3)),
		metric(130, "", "", "CPU utilization", model.Number(4)),
	}

	states := Aggregate(metrics, Options{})
	if len(states) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(states))
	}

	keys := map[string]int{}
	for _, st := range states {
		keys[st.Key] = st.MetricCount
	}
	if keys["uplink"] != 2 {
		t.Errorf("expected two observations collapsed under description, got %d", keys["uplink"])
	}
	if _, ok := keys["3"]; !ok {
		t.Errorf("expected index fallback key \"3\", got %v", keys)
	}
	if _, ok := keys[GlobalKey]; !ok {
		t.Errorf("expected %q group, got %v", GlobalKey, keys)
	}
}

func TestAggregateLastSeenAndOrder(t *testing.T) {
	metrics := []model.Metric{
		metric(100, "1", "a", "Bits sent", model.Number(1)),
		metric(300, "1", "a", "Bits sent", model.Number(1)),
		metric(200, "2", "b", "Bits sent", model.Number(1)),
		metric(200, "3", "c", "Bits sent", model.Number(1)),
	}

	states := Aggregate(metrics, Options{})
	wantOrder := []string{"a", "b", "c"}
	for i, key := range wantOrder {
		if states[i].Key != key {
			t.Errorf("states[%d].Key = %q; want %q", i, states[i].Key, key)
		}
	}
	if states[0].LastSeen.Unix() != 300 {
		t.Errorf("lastSeen = %d; want 300", states[0].LastSeen.Unix())
	}
}

func TestAggregateTruncatesMetrics(t *testing.T) {
	var metrics []model.Metric
	for i := int64(0); i < 8; i++ {
		metrics = append(metrics, metric(100+i, "1", "eth0", "Bits sent", model.Number(float64(i))))
	}

	states := Aggregate(metrics, Options{})
	if len(states[0].Metrics) != DefaultMaxMetrics {
		t.Fatalf("kept %d metrics; want %d", len(states[0].Metrics), DefaultMaxMetrics)
	}
	if states[0].Metrics[0].Timestamp.Unix() != 107 {
		t.Errorf("first kept metric ts = %d; want newest (107)", states[0].Metrics[0].Timestamp.Unix())
	}
	if states[0].MetricCount != 8 {
		t.Errorf("MetricCount = %d; want 8", states[0].MetricCount)
	}

	all := Aggregate(metrics, Options{MaxMetrics: -1})
	if len(all[0].Metrics) != 8 {
		t.Errorf("negative MaxMetrics kept %d; want 8", len(all[0].Metrics))
	}
}

func TestAggregateEmptyInput(t *testing.T) {
	states := Aggregate(nil, Options{})
	if states == nil {
		t.Fatal("expected non-nil empty slice")
	}
	if len(states) != 0 {
		t.Errorf("expected no states, got %d", len(states))
	}
}

func TestAggregateDoesNotReorderInput(t *testing.T) {
	metrics := []model.Metric{
		metric(100, "1", "a", "Bits sent", model.Number(1)),
		metric(200, "1", "a", "Bits sent", model.Number(1)),
	}
	Aggregate(metrics, Options{})
	if metrics[0].Timestamp.Unix() != 100 {
		t.Error("Aggregate mutated its input slice")
	}
}

func TestSummarize(t *testing.T) {
	states := []InterfaceState{
		{Status: StatusUp}, {Status: StatusUp}, {Status: StatusDown}, {Status: StatusUnknown},
	}
	s := Summarize(states)
	if s.Total != 4 || s.Up != 2 || s.Down != 1 || s.Unknown != 1 {
		t.Errorf("Summarize() = %+v", s)
	}
}
