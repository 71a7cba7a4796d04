package health

import (
	"testing"

	"netmon/internal/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		counts    Counts
		wantScore int
		want      Status
	}{
		{"Score before degraded", Counts{Total: 10, Healthy: 8, Degraded: 2}, 80, StatusGood},
		{"Excellent with no down", Counts{Total: 20, Healthy: 19, Degraded: 1}, 95, StatusExcellent},
		{"Down blocks excellent", Counts{Total: 20, Healthy: 19, Down: 1}, 95, StatusGood},
		{"Degraded below good", Counts{Total: 4, Healthy: 2, Degraded: 2}, 50, StatusWarning},
		{"Degraded wins over down", Counts{Total: 4, Healthy: 1, Degraded: 1, Down: 2}, 25, StatusWarning},
		{"Down only", Counts{Total: 3, Healthy: 1, Down: 2}, 33, StatusCritical},
		{"Nothing to score", Counts{}, 0, StatusCritical},
		{"All healthy", Counts{Total: 1, Healthy: 1}, 100, StatusExcellent},
		{"Rounds half up", Counts{Total: 8, Healthy: 6, Degraded: 2}, 75, StatusGood},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.counts)
			if got.Score != tt.wantScore {
				t.Errorf("Classify(%+v).Score = %d; want %d", tt.counts, got.Score, tt.wantScore)
			}
			if got.Status != tt.want {
				t.Errorf("Classify(%+v).Status = %q; want %q", tt.counts, got.Status, tt.want)
			}
			if got.Score < 0 || got.Score > 100 {
				t.Errorf("score %d out of range", got.Score)
			}
		})
	}
}

func TestClassifierCustomCutoffs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExcellentScore = 100
	cfg.GoodScore = 50
	cl := NewClassifier(cfg)

	if got := cl.Classify(Counts{Total: 20, Healthy: 19, Degraded: 1}).Status; got != StatusGood {
		t.Errorf("Status = %q; want %q", got, StatusGood)
	}
	if got := cl.Classify(Counts{Total: 2, Healthy: 1, Degraded: 1}).Status; got != StatusGood {
		t.Errorf("Status = %q; want %q", got, StatusGood)
	}
}

func TestClassifyScore(t *testing.T) {
	cl := NewClassifier(DefaultConfig())
	tests := []struct {
		name   string
		counts Counts
		want   Status
	}{
		{"Down does not block excellent", Counts{Total: 20, Healthy: 19, Down: 1}, StatusExcellent},
		{"Good", Counts{Total: 4, Healthy: 3, Down: 1}, StatusGood},
		{"Half is warning", Counts{Total: 2, Healthy: 1, Down: 1}, StatusWarning},
		{"Below warning cutoff", Counts{Total: 3, Healthy: 1, Degraded: 2}, StatusCritical},
		{"Nothing to score", Counts{}, StatusCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cl.ClassifyScore(tt.counts).Status; got != tt.want {
				t.Errorf("ClassifyScore(%+v) = %q; want %q", tt.counts, got, tt.want)
			}
		})
	}
}

func TestClassifyDevices(t *testing.T) {
	cl := NewClassifier(DefaultConfig())
	up := DeviceState{Status: "up"}
	tests := []struct {
		name      string
		devices   []DeviceState
		assigned  int
		wantScore int
		want      Status
	}{
		{"All up", []DeviceState{up, up}, 2, 100, StatusExcellent},
		{"Critical alert withholds good", []DeviceState{up, up, up, {Status: "up", Severity: "critical"}}, 4, 75, StatusWarning},
		{"Warning alert stays good", []DeviceState{up, up, up, {Status: "up", Severity: "warning"}}, 4, 75, StatusGood},
		{"Down device withholds excellent", append(repeat(up, 19), DeviceState{Status: "down"}), 20, 95, StatusGood},
		{"Assigned but silent", nil, 3, 100, StatusExcellent},
		{"No devices at all", nil, 0, 0, StatusCritical},
		{"Mostly down", []DeviceState{up, {Status: "offline"}, {Status: "down"}}, 3, 33, StatusCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cl.ClassifyDevices(tt.devices, tt.assigned)
			if got.Score != tt.wantScore {
				t.Errorf("Score = %d; want %d", got.Score, tt.wantScore)
			}
			if got.Status != tt.want {
				t.Errorf("Status = %q; want %q", got.Status, tt.want)
			}
		})
	}
}

func repeat(d DeviceState, n int) []DeviceState {
	out := make([]DeviceState, n)
	for i := range out {
		out[i] = d
	}
	return out
}

func TestCityCounts(t *testing.T) {
	offices := []model.Office{
		{Office: "HQ", Status: model.OfficeActive, DeviceCount: 4},
		{Office: "Annex", Status: model.OfficeActive},
		{Office: "Old", Status: model.OfficeInactive, DeviceCount: 2},
		{Office: "Lab", Status: "", DeviceCount: 1},
	}

	got := CityCounts(offices)
	want := Counts{Total: 4, Healthy: 1, Degraded: 1, Down: 2}
	if got != want {
		t.Errorf("CityCounts() = %+v; want %+v", got, want)
	}
}

func TestCountryCounts(t *testing.T) {
	got := CountryCounts([]CitySummary{
		{City: "Lyon", Offices: 2, Devices: 5},
		{City: "Nice", Offices: 1},
		{City: "Metz"},
	})
	want := Counts{Total: 3, Healthy: 1, Degraded: 1, Down: 1}
	if got != want {
		t.Errorf("CountryCounts() = %+v; want %+v", got, want)
	}
}

func TestDeviceCounts(t *testing.T) {
	tests := []struct {
		state DeviceState
		want  bucket
	}{
		{DeviceState{Status: "up"}, bucketHealthy},
		{DeviceState{Status: "Operational", Severity: "info"}, bucketHealthy},
		{DeviceState{Status: "up", Severity: "warning"}, bucketDegraded},
		{DeviceState{Status: "unknown"}, bucketDegraded},
		{DeviceState{Status: "down"}, bucketDown},
		{DeviceState{Status: "up", Severity: "critical"}, bucketDown},
		{DeviceState{Status: "offline"}, bucketDown},
	}
	for _, tt := range tests {
		if got := deviceBucket(tt.state); got != tt.want {
			t.Errorf("deviceBucket(%+v) = %d; want %d", tt.state, got, tt.want)
		}
	}

	states := make([]DeviceState, 0, len(tests))
	for _, tt := range tests {
		states = append(states, tt.state)
	}
	got := DeviceCounts(states)
	want := Counts{Total: 7, Healthy: 2, Degraded: 2, Down: 3}
	if got != want {
		t.Errorf("DeviceCounts() = %+v; want %+v", got, want)
	}
}
