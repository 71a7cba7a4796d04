// Package aggregate holds the grouping and reduction steps that build host,
// device and location listings out of raw metric and event records. Every
// function is pure and never fails; empty input gives empty output.
package aggregate

import (
	"sort"
	"time"

	"netmon/internal/model"
)

const (
	DefaultHostStatus   = "Operational"
	DefaultHostSeverity = model.DefaultSeverity
)

// ============================================================================
// Hosts
// ============================================================================

// HostSummary is one (hostid, device_id) pair seen in the metric stream.
type HostSummary struct {
	HostID         string     `json:"hostid"`
	DeviceID       string     `json:"device_id"`
	LastSeen       time.Time  `json:"last_seen"`
	InterfaceCount int        `json:"interface_count"`
	TotalMetrics   int        `json:"total_metrics"`
	Location       string     `json:"location,omitempty"`
	Geo            *model.Geo `json:"geo,omitempty"`
	DeviceType     string     `json:"device_type,omitempty"`
	Status         string     `json:"status,omitempty"`
	Severity       string     `json:"severity,omitempty"`
	LastAlert      *time.Time `json:"last_alert,omitempty"`
	DeviceStatus   string     `json:"device_status,omitempty"`
}

type hostKey struct{ hostID, deviceID string }

type ifaceKey struct{ ifIndex, ifDescr string }

// newestFirst returns a copy of metrics ordered by timestamp descending, so
// "first" reducers pick the most recent value.
func newestFirst(metrics []model.Metric) []model.Metric {
	out := make([]model.Metric, len(metrics))
	copy(out, metrics)
	model.SortMetrics(out, false)
	return out
}

// GroupHosts groups metrics by (hostid, device_id). Location, geo and
// device type come from the newest metric that carries them.
func GroupHosts(metrics []model.Metric) []HostSummary {
	index := make(map[hostKey]int)
	ifaces := make(map[hostKey]map[ifaceKey]struct{})
	hosts := make([]HostSummary, 0)

	for _, m := range newestFirst(metrics) {
		k := hostKey{m.Meta.HostID, m.Meta.DeviceID}
		i, ok := index[k]
		if !ok {
			i = len(hosts)
			index[k] = i
			ifaces[k] = make(map[ifaceKey]struct{})
			hosts = append(hosts, HostSummary{HostID: k.hostID, DeviceID: k.deviceID})
		}
		h := &hosts[i]
		h.TotalMetrics++
		if m.Timestamp.After(h.LastSeen) {
			h.LastSeen = m.Timestamp
		}
		if h.Location == "" {
			h.Location = m.Meta.Location
		}
		if h.Geo == nil && m.Meta.Geo != nil {
			g := *m.Meta.Geo
			h.Geo = &g
		}
		if h.DeviceType == "" {
			h.DeviceType = m.Meta.DeviceType
		}
		if m.HasInterface() {
			ifaces[k][ifaceKey{string(m.Meta.IfIndex), m.Meta.IfDescr}] = struct{}{}
		}
	}

	for k, i := range index {
		hosts[i].InterfaceCount = len(ifaces[k])
	}
	sortHosts(hosts)
	return hosts
}

func sortHosts(hosts []HostSummary) {
	sort.SliceStable(hosts, func(i, j int) bool {
		if !hosts[i].LastSeen.Equal(hosts[j].LastSeen) {
			return hosts[i].LastSeen.After(hosts[j].LastSeen)
		}
		if hosts[i].HostID != hosts[j].HostID {
			return hosts[i].HostID < hosts[j].HostID
		}
		return hosts[i].DeviceID < hosts[j].DeviceID
	})
}

// ============================================================================
// Alerts
// ============================================================================

// Alert is the latest alert known for a host.
type Alert struct {
	HostID     string    `json:"hostid"`
	Status     string    `json:"status"`
	Severity   string    `json:"severity"`
	DetectedAt time.Time `json:"last_alert"`
}

// LatestAlerts keeps the newest event per host id.
func LatestAlerts(events []model.Event) map[string]Alert {
	sorted := make([]model.Event, len(events))
	copy(sorted, events)
	model.SortEvents(sorted)

	out := make(map[string]Alert)
	for _, e := range sorted {
		if _, seen := out[e.HostID]; seen {
			continue
		}
		out[e.HostID] = Alert{
			HostID:     e.HostID,
			Status:     e.Status,
			Severity:   e.Severity,
			DetectedAt: e.DetectedAt,
		}
	}
	return out
}

// ApplyAlerts merges the latest alert into each host. Hosts without one are
// Operational/info.
func ApplyAlerts(hosts []HostSummary, alerts map[string]Alert) []HostSummary {
	out := make([]HostSummary, len(hosts))
	for i, h := range hosts {
		h.Status = DefaultHostStatus
		h.Severity = DefaultHostSeverity
		if a, ok := alerts[h.HostID]; ok {
			if a.Status != "" {
				h.Status = a.Status
			}
			if a.Severity != "" {
				h.Severity = a.Severity
			}
			at := a.DetectedAt
			h.LastAlert = &at
		}
		out[i] = h
	}
	return out
}

// ============================================================================
// Interfaces
// ============================================================================

// InterfaceSummary is one (ifindex, ifdescr) group of a host.
type InterfaceSummary struct {
	IfIndex      string    `json:"ifindex"`
	IfDescr      string    `json:"ifdescr"`
	LastSeen     time.Time `json:"last_seen"`
	MetricsCount int       `json:"metrics_count"`
}

// GroupInterfaces groups a host's metrics by (ifindex, ifdescr), newest
// first. Host-level metrics form the group with both fields empty.
func GroupInterfaces(metrics []model.Metric) []InterfaceSummary {
	index := make(map[ifaceKey]int)
	out := make([]InterfaceSummary, 0)

	for _, m := range metrics {
		k := ifaceKey{string(m.Meta.IfIndex), m.Meta.IfDescr}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, InterfaceSummary{IfIndex: k.ifIndex, IfDescr: k.ifDescr})
		}
		out[i].MetricsCount++
		if m.Timestamp.After(out[i].LastSeen) {
			out[i].LastSeen = m.Timestamp
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].LastSeen.Equal(out[j].LastSeen) {
			return out[i].LastSeen.After(out[j].LastSeen)
		}
		if out[i].IfIndex != out[j].IfIndex {
			return out[i].IfIndex < out[j].IfIndex
		}
		return out[i].IfDescr < out[j].IfDescr
	})
	return out
}

// ============================================================================
// Devices
// ============================================================================

// DeviceSummary is one device id seen in the metric stream.
type DeviceSummary struct {
	HostID         string     `json:"hostid"`
	DeviceID       string     `json:"device_id"`
	Location       string     `json:"location"`
	Geo            *model.Geo `json:"geo,omitempty"`
	LastSeen       time.Time  `json:"last_seen"`
	InterfaceCount int        `json:"interface_count"`
}

// GroupDevices groups metrics by device id and counts distinct iface names.
// The result is sorted by device id.
func GroupDevices(metrics []model.Metric) []DeviceSummary {
	index := make(map[string]int)
	ifaces := make(map[string]map[string]struct{})
	out := make([]DeviceSummary, 0)

	for _, m := range newestFirst(metrics) {
		id := m.Meta.DeviceID
		i, ok := index[id]
		if !ok {
			i = len(out)
			index[id] = i
			ifaces[id] = make(map[string]struct{})
			out = append(out, DeviceSummary{
				HostID:   m.Meta.HostID,
				DeviceID: id,
				Location: m.Meta.Location,
				LastSeen: m.Timestamp,
			})
			if m.Meta.Geo != nil {
				g := *m.Meta.Geo
				out[i].Geo = &g
			}
		}
		if m.Meta.Iface != "" {
			ifaces[id][m.Meta.Iface] = struct{}{}
		}
	}

	for id, i := range index {
		out[i].InterfaceCount = len(ifaces[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out
}

// OverlayDevices returns a copy of metrics with registry metadata applied.
// Registry fields that are set win over what the metric reported.
func OverlayDevices(metrics []model.Metric, registry []model.Device) []model.Metric {
	byHost := make(map[string]model.Device, len(registry))
	for _, d := range registry {
		byHost[d.HostID] = d
	}

	out := make([]model.Metric, len(metrics))
	for i, m := range metrics {
		if d, ok := byHost[m.Meta.HostID]; ok {
			if d.DeviceID != "" {
				m.Meta.DeviceID = d.DeviceID
			}
			if d.Location != "" {
				m.Meta.Location = d.Location
			}
			if d.Geo != nil {
				g := *d.Geo
				m.Meta.Geo = &g
			}
			if d.DeviceType != "" {
				m.Meta.DeviceType = d.DeviceType
			}
		}
		out[i] = m
	}
	return out
}

// CountOfficeDevices returns the live device count of an office: the larger
// of the hosts located at the office and the assigned device ids that are
// still reporting.
func CountOfficeDevices(office model.Office, hosts []HostSummary) int {
	located := make(map[string]struct{})
	present := make(map[string]struct{})
	for _, h := range hosts {
		present[h.HostID] = struct{}{}
		if h.Location == office.Office {
			located[h.HostID] = struct{}{}
		}
	}

	assigned := 0
	for _, id := range office.DeviceIDs {
		if _, ok := present[id]; ok {
			assigned++
		}
	}
	if assigned > len(located) {
		return assigned
	}
	return len(located)
}
