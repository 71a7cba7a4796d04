package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestMetricEpochRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int64
	}{
		{"integer seconds", `{"ts":1700000000,"meta":{"hostid":"10084"},"metric":"CPU utilization","value":12.5}`, 1700000000},
		{"fractional seconds", `{"ts":1700000000.75,"meta":{"hostid":"10084"},"metric":"x","value":1}`, 1700000000},
		{"numeric string", `{"ts":"1700000123","meta":{"hostid":"10084"},"metric":"x","value":1}`, 1700000123},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Metric
			if err := json.Unmarshal([]byte(tt.in), &m); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			out, err := json.Marshal(m)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			var back struct {
				TS int64 `json:"ts"`
			}
			if err := json.Unmarshal(out, &back); err != nil {
				t.Fatalf("decode output: %v", err)
			}
			if back.TS != tt.want {
				t.Errorf("ts = %d; want %d", back.TS, tt.want)
			}
		})
	}
}

func TestMetricNormalizeDefaults(t *testing.T) {
	var m Metric
	if err := json.Unmarshal([]byte(`{"meta":{"hostid":"1"},"metric":"x","value":"up"}`), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	now := time.Unix(1700000500, 0)
	m.Normalize(now)

	if !m.Timestamp.Equal(now) {
		t.Errorf("Timestamp = %v; want %v", m.Timestamp, now)
	}
	if m.ValueType != DefaultValueType {
		t.Errorf("ValueType = %q; want %q", m.ValueType, DefaultValueType)
	}
}

func TestValueKinds(t *testing.T) {
	tests := []struct {
		raw     string
		numeric bool
		str     string
	}{
		{`1`, true, "1"},
		{`2.5`, true, "2.5"},
		{`-3`, true, "-3"},
		{`"1"`, false, "1"},
		{`"Up"`, false, "Up"},
		{`true`, false, "true"},
		{`null`, false, ""},
		{`{"a":1}`, false, `{"a":1}`},
	}

	for _, tt := range tests {
		var v Value
		if err := json.Unmarshal([]byte(tt.raw), &v); err != nil {
			t.Fatalf("Unmarshal(%s): %v", tt.raw, err)
		}
		if v.IsNumeric() != tt.numeric {
			t.Errorf("IsNumeric(%s) = %v; want %v", tt.raw, v.IsNumeric(), tt.numeric)
		}
		if v.String() != tt.str {
			t.Errorf("String(%s) = %q; want %q", tt.raw, v.String(), tt.str)
		}
	}
}

func TestFlexStringAcceptsNumbers(t *testing.T) {
	var m Meta
	if err := json.Unmarshal([]byte(`{"ifindex":3}`), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.IfIndex != "3" {
		t.Errorf("IfIndex = %q; want %q", m.IfIndex, "3")
	}
}

func TestEventDefaults(t *testing.T) {
	var e Event
	if err := json.Unmarshal([]byte(`{"hostid":"1","metric":"x","value":5}`), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	now := time.Unix(1700000000, 0)
	e.Normalize(now)
	if e.Severity != "info" {
		t.Errorf("Severity = %q; want info", e.Severity)
	}
	if !e.DetectedAt.Equal(now) {
		t.Errorf("DetectedAt = %v; want %v", e.DetectedAt, now)
	}
}

func TestMetricFilterMatch(t *testing.T) {
	base := Metric{
		Timestamp: time.Unix(1000, 0),
		Meta:      Meta{HostID: "h1", DeviceID: "sw-core-01", IfIndex: "2", Location: "Mumbai Central, Mumbai, India"},
		Name:      "Interface eth0: Operational status",
		Value:     Number(1),
	}

	tests := []struct {
		name   string
		filter MetricFilter
		want   bool
	}{
		{"empty filter", MetricFilter{}, true},
		{"host match", MetricFilter{HostID: "h1"}, true},
		{"host mismatch", MetricFilter{HostID: "h2"}, false},
		{"pattern is case insensitive", MetricFilter{MetricPattern: "operational"}, true},
		{"location substring", MetricFilter{Location: "mumbai central"}, true},
		{"since excludes older", MetricFilter{Since: time.Unix(2000, 0)}, false},
		{"host list", MetricFilter{HostIDs: []string{"h9", "h1"}}, true},
		{"interfaces only", MetricFilter{InterfacesOnly: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Match(base); got != tt.want {
				t.Errorf("Match() = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestIsInfrastructure(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"Zabbix server", true},
		{"db-SERVER-2", true},
		{"sw-core-01", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsInfrastructure(tt.id); got != tt.want {
			t.Errorf("IsInfrastructure(%q) = %v; want %v", tt.id, got, tt.want)
		}
	}
}

func TestPrunePlanKeepCount(t *testing.T) {
	plan := PrunePlan{KeepDays: 7, MinRecordsPerDevice: 100}

	tests := []struct {
		name       string
		total, old int64
		want       int64
	}{
		{"below minimum keeps all", 80, 80, 80},
		{"nothing old keeps all", 500, 0, 500},
		{"old records trimmed", 500, 300, 200},
		{"minimum floor applies", 150, 120, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := plan.KeepCount(tt.total, tt.old); got != tt.want {
				t.Errorf("KeepCount(%d, %d) = %d; want %d", tt.total, tt.old, got, tt.want)
			}
		})
	}
}
