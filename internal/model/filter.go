package model

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

// infrastructurePattern matches the monitoring system's own devices.
var infrastructurePattern = regexp.MustCompile(`(?i)zabbix|server`)

// IsInfrastructure reports whether a device id belongs to the monitoring
// infrastructure rather than a monitored device.
func IsInfrastructure(deviceID string) bool {
	return infrastructurePattern.MatchString(deviceID)
}

// MetricFilter selects metric observations. Zero fields are ignored.
type MetricFilter struct {
	HostID   string
	HostIDs  []string
	DeviceID string
	Metric   string
	// MetricPattern is a case-insensitive substring of the metric name.
	MetricPattern string
	// Location is a case-insensitive substring of meta.location.
	Location              string
	ServerType            string
	ExcludeInfrastructure bool
	ExcludeGlobalIface    bool
	InterfacesOnly        bool
	Since                 time.Time
	Until                 time.Time
	Ascending             bool
	Limit                 int
}

func (f MetricFilter) Match(m Metric) bool {
	if f.HostID != "" && m.Meta.HostID != f.HostID {
		return false
	}
	if len(f.HostIDs) > 0 && !contains(f.HostIDs, m.Meta.HostID) {
		return false
	}
	if f.DeviceID != "" && m.Meta.DeviceID != f.DeviceID {
		return false
	}
	if f.Metric != "" && m.Name != f.Metric {
		return false
	}
	if f.MetricPattern != "" && !containsFold(m.Name, f.MetricPattern) {
		return false
	}
	if f.Location != "" && !containsFold(m.Meta.Location, f.Location) {
		return false
	}
	if f.ServerType != "" && m.Meta.ServerType != f.ServerType {
		return false
	}
	if f.ExcludeInfrastructure && IsInfrastructure(m.Meta.DeviceID) {
		return false
	}
	if f.ExcludeGlobalIface && m.Meta.Iface == GlobalIface {
		return false
	}
	if f.InterfacesOnly && m.Meta.IfIndex == "" {
		return false
	}
	if !f.Since.IsZero() && m.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && m.Timestamp.After(f.Until) {
		return false
	}
	return true
}

// Apply filters, sorts and limits metrics in process.
func (f MetricFilter) Apply(in []Metric) []Metric {
	out := make([]Metric, 0, len(in))
	for _, m := range in {
		if f.Match(m) {
			out = append(out, m)
		}
	}
	SortMetrics(out, f.Ascending)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

// SortMetrics orders metrics by timestamp; stable so equal timestamps keep
// their input order.
func SortMetrics(ms []Metric, ascending bool) {
	sort.SliceStable(ms, func(i, j int) bool {
		if ascending {
			return ms[i].Timestamp.Before(ms[j].Timestamp)
		}
		return ms[i].Timestamp.After(ms[j].Timestamp)
	})
}

// EventFilter selects alert events. Results are newest first.
type EventFilter struct {
	HostID   string
	HostIDs  []string
	DeviceID string
	Severity string
	Since    time.Time
	Until    time.Time
	Limit    int
}

func (f EventFilter) Match(e Event) bool {
	if f.HostID != "" && e.HostID != f.HostID {
		return false
	}
	if len(f.HostIDs) > 0 && !contains(f.HostIDs, e.HostID) {
		return false
	}
	if f.DeviceID != "" && e.DeviceID != f.DeviceID {
		return false
	}
	if f.Severity != "" && e.Severity != f.Severity {
		return false
	}
	if !f.Since.IsZero() && e.DetectedAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && e.DetectedAt.After(f.Until) {
		return false
	}
	return true
}

// Apply filters, sorts newest first and limits events in process.
func (f EventFilter) Apply(in []Event) []Event {
	out := make([]Event, 0, len(in))
	for _, e := range in {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	SortEvents(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

// SortEvents orders events newest first.
func SortEvents(es []Event) {
	sort.SliceStable(es, func(i, j int) bool {
		return es[i].DetectedAt.After(es[j].DetectedAt)
	})
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// StoreStats summarises stored data for the admin cleanup view.
type StoreStats struct {
	Metrics   int64     `json:"metrics"`
	Events    int64     `json:"events"`
	Devices   int       `json:"devices"`
	DateRange DateRange `json:"dateRange"`
}

type DateRange struct {
	Oldest *time.Time `json:"oldest"`
	Newest *time.Time `json:"newest"`
}

// PrunePlan describes a retention pass. Metrics older than KeepDays are
// removed per device, but every device keeps at least MinRecordsPerDevice of
// its newest metrics. Events older than KeepDays are removed outright.
type PrunePlan struct {
	KeepDays            int  `json:"keepDays"`
	MinRecordsPerDevice int  `json:"minRecordsPerDevice"`
	DryRun              bool `json:"dryRun"`
}

// PruneResult reports what a retention pass removed, or would remove.
type PruneResult struct {
	Cutoff         time.Time `json:"cutoffTime"`
	DryRun         bool      `json:"dryRun"`
	MetricsDeleted int64     `json:"metrics"`
	EventsDeleted  int64     `json:"events"`
}

// Cutoff returns the retention boundary relative to now, truncated to the second.
func (p PrunePlan) Cutoff(now time.Time) time.Time {
	return now.Add(-time.Duration(p.KeepDays) * 24 * time.Hour).Truncate(time.Second)
}

// KeepCount returns how many of a device's newest metrics survive, given the
// device's total and how many of them are older than the cutoff. A result
// equal to total means nothing is removed for that device.
func (p PrunePlan) KeepCount(total, old int64) int64 {
	min := int64(p.MinRecordsPerDevice)
	if total <= min || old == 0 {
		return total
	}
	keep := total - old
	if keep < min {
		keep = min
	}
	if keep < 1 {
		keep = 1
	}
	return keep
}
