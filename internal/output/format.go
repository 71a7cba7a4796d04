package output

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"netmon/internal/aggregate"
	"netmon/internal/collector"
	"netmon/internal/health"
	"netmon/internal/model"
)

const (
	StatusHealthy  = "OK"
	StatusWarning  = "WARN"
	StatusCritical = "CRIT"

	SectionProbe      = "probe"
	SectionInterfaces = "interfaces"
	SectionFleet      = "fleet"
	SectionCities     = "cities"
	SectionAlerts     = "alerts"

	defaultMaxAlerts = 5
)

// UI/view-model types (no printing here)
type Item struct {
	Key    string
	Label  string
	Value  float64
	Unit   string
	Status string
	Note   string
}

type Section struct {
	ID    string
	Title string
	Items []Item
}

type DashboardView struct {
	Generated  time.Time
	Sections   []Section
	HostCount  int
	AlertCount int
}

// CityLine is one scored city. It mirrors the city health listing.
type CityLine struct {
	Country string
	City    string
	Health  health.Score
}

// ReportInput is everything the report can show. Any part may be empty.
type ReportInput struct {
	Probe      []model.Metric
	Hosts      []aggregate.HostSummary
	Cities     []CityLine
	Alerts     []model.Event
	Thresholds health.Config
	MaxAlerts  int
	Generated  time.Time
}

func levelStatus(v float64, t health.Thresholds) string {
	switch {
	case v > t.Critical:
		return StatusCritical
	case v > t.Warning:
		return StatusWarning
	default:
		return StatusHealthy
	}
}

func severityStatus(sev string) string {
	switch health.Bucket(sev) {
	case health.SeverityCritical:
		return StatusCritical
	case health.SeverityWarning:
		return StatusWarning
	default:
		return StatusHealthy
	}
}

func scoreStatus(s health.Status) string {
	switch s {
	case health.StatusCritical:
		return StatusCritical
	case health.StatusWarning:
		return StatusWarning
	default:
		return StatusHealthy
	}
}

func itemKey(label string) string {
	return strings.ReplaceAll(strings.ToLower(label), " ", "_")
}

// BuildDashboard converts probe readings, fleet state and alerts into
// UI-ready sections.
func BuildDashboard(in ReportInput) DashboardView {
	th := in.Thresholds
	if th.CPU == (health.Thresholds{}) {
		th = health.DefaultConfig()
	}

	probe := Section{ID: SectionProbe, Title: "Server"}
	ifaces := Section{ID: SectionInterfaces, Title: "Interfaces"}
	ifaceRows := map[string]*Item{}
	var ifaceOrder []string

	for _, m := range in.Probe {
		v, ok := m.Value.Float()
		if !ok {
			continue
		}
		switch m.Name {
		case collector.MetricCPU:
			probe.Items = append(probe.Items, Item{Key: itemKey(m.Name), Label: "CPU", Value: v, Unit: "%", Status: levelStatus(v, th.CPU)})
		case collector.MetricMemory:
			probe.Items = append(probe.Items, Item{Key: itemKey(m.Name), Label: "Memory", Value: v, Unit: "%", Status: levelStatus(v, th.Memory)})
		case collector.MetricDisk:
			probe.Items = append(probe.Items, Item{Key: itemKey(m.Name), Label: "Disk", Value: v, Unit: "%", Status: levelStatus(v, th.Disk)})
		case collector.MetricSwap:
			probe.Items = append(probe.Items, Item{Key: itemKey(m.Name), Label: "Swap", Value: v, Unit: "%"})
		case collector.MetricLoad1:
			probe.Items = append(probe.Items, Item{Key: itemKey(m.Name), Label: "Load Avg (1m)", Value: v})
		case collector.MetricUptime:
			probe.Items = append(probe.Items, Item{Key: itemKey(m.Name), Label: "Uptime", Value: v / 3600, Unit: "h"})
		case collector.MetricLatency:
			probe.Items = append(probe.Items, Item{Key: itemKey(m.Name), Label: "Latency", Value: v, Unit: "ms"})
		case collector.MetricReachable:
			st, note := StatusHealthy, "online"
			if v != 1 {
				st, note = StatusCritical, "offline"
			}
			probe.Items = append(probe.Items, Item{Key: itemKey(m.Name), Label: "Uplink", Status: st, Note: note})
		default:
			name := m.Meta.Iface
			if name == "" || name == model.GlobalIface {
				continue
			}
			row, ok := ifaceRows[name]
			if !ok {
				row = &Item{Key: itemKey(name), Label: name}
				ifaceRows[name] = row
				ifaceOrder = append(ifaceOrder, name)
			}
			switch {
			case strings.HasSuffix(m.Name, collector.MetricOperStatus):
				if v == 1 {
					row.Status, row.Note = StatusHealthy, "up"
				} else {
					row.Status, row.Note = StatusCritical, "down"
				}
			case strings.HasSuffix(m.Name, collector.MetricBitsReceived):
				row.Value = v / 1e6
				row.Unit = "Mbps"
			}
		}
	}
	for _, name := range ifaceOrder {
		ifaces.Items = append(ifaces.Items, *ifaceRows[name])
	}

	fleet := Section{ID: SectionFleet, Title: "Fleet"}
	var healthy, warning, critical int
	for _, h := range in.Hosts {
		switch health.Bucket(h.Severity) {
		case health.SeverityCritical:
			critical++
		case health.SeverityWarning:
			warning++
		default:
			healthy++
		}
	}
	fleet.Items = append(fleet.Items,
		Item{Key: "hosts", Label: "Hosts", Value: float64(len(in.Hosts))},
		Item{Key: "healthy", Label: "Healthy", Value: float64(healthy), Status: StatusHealthy},
		Item{Key: "warning", Label: "Warning", Value: float64(warning), Status: StatusWarning},
		Item{Key: "critical", Label: "Critical", Value: float64(critical), Status: StatusCritical},
	)

	cities := Section{ID: SectionCities, Title: "Cities"}
	for _, c := range in.Cities {
		cities.Items = append(cities.Items, Item{
			Key:    itemKey(c.Country + " " + c.City),
			Label:  c.City + ", " + c.Country,
			Value:  float64(c.Health.Score),
			Unit:   "%",
			Status: scoreStatus(c.Health.Status),
		})
	}

	alerts := Section{ID: SectionAlerts, Title: "Recent Alerts"}
	sorted := make([]model.Event, len(in.Alerts))
	copy(sorted, in.Alerts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].DetectedAt.After(sorted[j].DetectedAt) })
	limit := in.MaxAlerts
	if limit <= 0 {
		limit = defaultMaxAlerts
	}
	for i, e := range sorted {
		if i == limit {
			break
		}
		device := e.DeviceID
		if device == "" {
			device = e.HostID
		}
		note := e.Metric
		if note == "" {
			note = e.Status
		}
		alerts.Items = append(alerts.Items, Item{
			Key:    fmt.Sprintf("alert_%d", i),
			Label:  device,
			Status: severityStatus(e.Severity),
			Note:   note,
		})
	}

	view := DashboardView{
		Generated:  in.Generated,
		HostCount:  len(in.Hosts),
		AlertCount: len(in.Alerts),
	}
	for _, s := range []Section{probe, ifaces, fleet, cities, alerts} {
		if len(s.Items) > 0 {
			view.Sections = append(view.Sections, s)
		}
	}
	return view
}

func (v DashboardView) SectionByID(id string) *Section {
	for i := range v.Sections {
		if v.Sections[i].ID == id {
			return &v.Sections[i]
		}
	}
	return nil
}

func (s Section) ItemByKey(key string) *Item {
	for i := range s.Items {
		if s.Items[i].Key == key {
			return &s.Items[i]
		}
	}
	return nil
}
