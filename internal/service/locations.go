package service

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"netmon/internal/aggregate"
	"netmon/internal/health"
	"netmon/internal/model"
	"netmon/internal/status"
)

type LocationFilters struct {
	Location *string `json:"location"`
}

type HealthSlice struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// LocationFallback is returned in place of listings when no metric carries
// a location yet.
type LocationFallback struct {
	GlobalHealth []HealthSlice `json:"globalHealth"`
	TotalDevices int           `json:"totalDevices"`
	LastSeen     *time.Time    `json:"lastSeen"`
}

type LocationsResult struct {
	Count     int                  `json:"count"`
	Locations []aggregate.Location `json:"locations"`
	Hierarchy []*aggregate.Node    `json:"hierarchy,omitempty"`
	Filters   *LocationFilters     `json:"filters,omitempty"`
	Message   string               `json:"message,omitempty"`
	Fallback  *LocationFallback    `json:"fallback,omitempty"`
}

// Locations lists every known location with its devices and health buckets,
// plus the country > city > office tree. Count is the number of countries.
func (s *Service) Locations(ctx context.Context, filter string) (LocationsResult, error) {
	hosts, err := s.hosts(ctx, model.MetricFilter{ExcludeInfrastructure: true})
	if err != nil {
		return LocationsResult{}, err
	}
	locations := aggregate.BuildLocations(hosts, filter)
	if len(locations) == 0 {
		return LocationsResult{
			Locations: []aggregate.Location{},
			Message:   "No location data found in monitoring data",
			Fallback: &LocationFallback{
				GlobalHealth: []HealthSlice{{Name: "Healthy"}, {Name: "Warning"}, {Name: "Critical"}},
			},
		}, nil
	}
	tree := aggregate.BuildHierarchy(locations)
	return LocationsResult{
		Count:     len(tree),
		Locations: locations,
		Hierarchy: tree,
		Filters:   &LocationFilters{Location: optional(filter)},
	}, nil
}

// LocationQuery names one office location exactly.
type LocationQuery struct {
	Location string `json:"location"`
	City     string `json:"city"`
	Country  string `json:"country"`
}

func (q LocationQuery) validate() error {
	if q.Location == "" || q.City == "" || q.Country == "" {
		return invalid("location, city, and country are required")
	}
	return nil
}

func (q LocationQuery) match(m model.Metric) bool {
	return m.Meta.Location == q.Location && m.Meta.Geo != nil &&
		m.Meta.Geo.City == q.City && m.Meta.Geo.Country == q.Country
}

// locationMetrics returns the non-infrastructure metrics placed exactly at q.
func (s *Service) locationMetrics(ctx context.Context, q LocationQuery, f model.MetricFilter) ([]model.Metric, error) {
	f.Location = q.Location
	f.ExcludeInfrastructure = true
	ms, err := s.metrics(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]model.Metric, 0, len(ms))
	for _, m := range ms {
		if q.match(m) {
			out = append(out, m)
		}
	}
	return out, nil
}

// LocatedDevice is a device reporting from a location.
type LocatedDevice struct {
	HostID       string    `json:"hostid"`
	DeviceID     string    `json:"device_id"`
	DeviceType   string    `json:"device_type"`
	LastSeen     time.Time `json:"last_seen"`
	Status       string    `json:"status"`
	Severity     string    `json:"severity"`
	Interfaces   []string  `json:"interfaces,omitempty"`
	TotalMetrics int       `json:"total_metrics,omitempty"`
}

type locatedKey struct{ hostID, deviceID, deviceType string }

// groupLocated groups by (hostid, device_id, device_type) and collects the
// distinct non-global iface names. Sorted by device id.
func groupLocated(ms []model.Metric, alerts map[string]aggregate.Alert) []LocatedDevice {
	index := make(map[locatedKey]int)
	seen := make(map[locatedKey]map[string]struct{})
	out := make([]LocatedDevice, 0)

	for _, m := range ms {
		k := locatedKey{m.Meta.HostID, m.Meta.DeviceID, m.Meta.DeviceType}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			seen[k] = make(map[string]struct{})
			out = append(out, LocatedDevice{
				HostID:     k.hostID,
				DeviceID:   k.deviceID,
				DeviceType: k.deviceType,
				Status:     aggregate.DefaultHostStatus,
				Severity:   aggregate.DefaultHostSeverity,
				Interfaces: []string{},
			})
			if a, ok := alerts[k.hostID]; ok {
				if a.Status != "" {
					out[i].Status = a.Status
				}
				if a.Severity != "" {
					out[i].Severity = a.Severity
				}
			}
		}
		d := &out[i]
		d.TotalMetrics++
		if m.Timestamp.After(d.LastSeen) {
			d.LastSeen = m.Timestamp
		}
		iface := m.Meta.Iface
		if iface == "" || iface == model.GlobalIface {
			continue
		}
		if _, dup := seen[k][iface]; !dup {
			seen[k][iface] = struct{}{}
			d.Interfaces = append(d.Interfaces, iface)
		}
	}

	for i := range out {
		sort.Strings(out[i].Interfaces)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out
}

type LocationDevicesResult struct {
	Success  bool            `json:"success"`
	Devices  []LocatedDevice `json:"devices"`
	Count    int             `json:"count"`
	Location LocationQuery   `json:"location"`
}

// LocationDevices lists the devices reporting from one exact location.
func (s *Service) LocationDevices(ctx context.Context, q LocationQuery) (LocationDevicesResult, error) {
	if err := q.validate(); err != nil {
		return LocationDevicesResult{}, err
	}
	ms, err := s.locationMetrics(ctx, q, model.MetricFilter{})
	if err != nil {
		return LocationDevicesResult{}, err
	}
	es, err := s.events(ctx, model.EventFilter{})
	if err != nil {
		return LocationDevicesResult{}, err
	}
	devices := groupLocated(ms, aggregate.LatestAlerts(es))
	return LocationDevicesResult{Success: true, Devices: devices, Count: len(devices), Location: q}, nil
}

type CheckDevicesResult struct {
	Success     bool            `json:"success"`
	HasDevices  bool            `json:"hasDevices"`
	DeviceCount int             `json:"deviceCount"`
	Devices     []LocatedDevice `json:"devices"`
	Location    LocationQuery   `json:"location"`
}

// CheckLocationDevices reports whether any device has interface data at a
// location. Host-level (_global) observations do not count.
func (s *Service) CheckLocationDevices(ctx context.Context, q LocationQuery) (CheckDevicesResult, error) {
	if err := q.validate(); err != nil {
		return CheckDevicesResult{}, err
	}
	ms, err := s.locationMetrics(ctx, q, model.MetricFilter{ExcludeGlobalIface: true})
	if err != nil {
		return CheckDevicesResult{}, err
	}
	es, err := s.events(ctx, model.EventFilter{})
	if err != nil {
		return CheckDevicesResult{}, err
	}

	grouped := groupLocated(ms, aggregate.LatestAlerts(es))
	// one entry per device id
	devices := make([]LocatedDevice, 0, len(grouped))
	ids := make(map[string]bool)
	for _, d := range grouped {
		if ids[d.DeviceID] {
			continue
		}
		ids[d.DeviceID] = true
		d.Interfaces, d.TotalMetrics = nil, 0
		devices = append(devices, d)
	}
	return CheckDevicesResult{
		Success:     true,
		HasDevices:  len(devices) > 0,
		DeviceCount: len(devices),
		Devices:     devices,
		Location:    q,
	}, nil
}

type OfficeDevice struct {
	HostID     string                  `json:"hostid"`
	DeviceID   string                  `json:"device_id"`
	Status     string                  `json:"status"`
	Severity   string                  `json:"severity"`
	LastSeen   time.Time               `json:"last_seen"`
	DeviceType string                  `json:"deviceType"`
	Interfaces []status.InterfaceState `json:"interfaces"`
}

type ProblemInterface struct {
	Interface   string    `json:"interface"`
	Device      string    `json:"device"`
	Status      string    `json:"status"`
	Issues      []string  `json:"issues"`
	Suggestions []string  `json:"suggestions"`
	LastSeen    time.Time `json:"lastSeen"`
}

type InterfaceMonitoring struct {
	TotalInterfaces       int                `json:"totalInterfaces"`
	UpInterfaces          int                `json:"upInterfaces"`
	DownInterfaces        int                `json:"downInterfaces"`
	UnknownInterfaces     int                `json:"unknownInterfaces"`
	ProblematicInterfaces []ProblemInterface `json:"problematicInterfaces"`
}

type OfficeDetails struct {
	Country             string                 `json:"country"`
	City                string                 `json:"city"`
	Office              string                 `json:"office"`
	DeviceCount         int                    `json:"deviceCount"`
	Devices             []OfficeDevice         `json:"devices"`
	DeviceDistribution  aggregate.Distribution `json:"deviceDistribution"`
	HealthyDevices      int                    `json:"healthyDevices"`
	WarningDevices      int                    `json:"warningDevices"`
	CriticalDevices     int                    `json:"criticalDevices"`
	LastSeen            *time.Time             `json:"lastSeen"`
	InterfaceMonitoring InterfaceMonitoring    `json:"interfaceMonitoring"`
	Health              health.Score           `json:"health"`
}

// OfficeDetails builds the office page: every host whose location mentions
// the office, with resolved interface states, hints and a health score.
func (s *Service) OfficeDetails(ctx context.Context, country, city, office string) (OfficeDetails, error) {
	if office == "" {
		return OfficeDetails{}, invalid("office is required")
	}
	ms, err := s.metrics(ctx, model.MetricFilter{Location: office})
	if err != nil {
		return OfficeDetails{}, err
	}
	es, err := s.events(ctx, model.EventFilter{})
	if err != nil {
		return OfficeDetails{}, err
	}

	byHost := make(map[string][]model.Metric)
	for _, m := range ms {
		byHost[m.Meta.HostID] = append(byHost[m.Meta.HostID], m)
	}
	hosts := aggregate.ApplyAlerts(aggregate.GroupHosts(ms), aggregate.LatestAlerts(es))

	out := OfficeDetails{
		Country: country,
		City:    city,
		Office:  office,
		Devices: make([]OfficeDevice, 0, len(hosts)),
		InterfaceMonitoring: InterfaceMonitoring{
			ProblematicInterfaces: make([]ProblemInterface, 0),
		},
	}
	states := make([]health.DeviceState, 0, len(hosts))

	for _, h := range hosts {
		ifaces := status.Aggregate(byHost[h.HostID], status.Options{WithHints: true})
		d := OfficeDevice{
			HostID:     h.HostID,
			DeviceID:   h.DeviceID,
			Status:     h.Status,
			Severity:   h.Severity,
			LastSeen:   h.LastSeen,
			DeviceType: aggregate.CategorizeDeviceType(h.DeviceID),
			Interfaces: ifaces,
		}
		out.Devices = append(out.Devices, d)
		out.DeviceDistribution.Add(d.DeviceType)
		states = append(states, health.DeviceState{Status: d.Status, Severity: d.Severity})

		switch d.Severity {
		case "", "info":
			out.HealthyDevices++
		case "warning":
			out.WarningDevices++
		case "critical":
			out.CriticalDevices++
		}
		if out.LastSeen == nil || h.LastSeen.After(*out.LastSeen) {
			last := h.LastSeen
			out.LastSeen = &last
		}

		sum := status.Summarize(ifaces)
		mon := &out.InterfaceMonitoring
		mon.TotalInterfaces += sum.Total
		mon.UpInterfaces += sum.Up
		mon.DownInterfaces += sum.Down
		mon.UnknownInterfaces += sum.Unknown
		for _, st := range ifaces {
			if len(st.Issues) == 0 {
				continue
			}
			mon.ProblematicInterfaces = append(mon.ProblematicInterfaces, ProblemInterface{
				Interface:   st.Key,
				Device:      h.DeviceID,
				Status:      string(st.Status),
				Issues:      st.Issues,
				Suggestions: st.Suggestions,
				LastSeen:    st.LastSeen,
			})
		}
	}

	out.DeviceCount = len(out.Devices)
	out.Health = s.health.ClassifyDevices(states, 0)
	return out, nil
}

type ZabbixServer struct {
	Hostname    any       `json:"hostname"`
	Name        any       `json:"name"`
	HostID      any       `json:"hostid"`
	Interfaces  any       `json:"interfaces"`
	Inventory   any       `json:"inventory"`
	LastUpdated time.Time `json:"last_updated"`
}

type ZabbixServerResult struct {
	Success bool         `json:"success"`
	Server  ZabbixServer `json:"server"`
}

const (
	zabbixServerType   = "zabbix_server"
	zabbixServerMetric = "zabbix_server_info"
)

// ZabbixServer returns the newest self-description the monitoring server
// reported. Its value is a JSON object kept as text.
func (s *Service) ZabbixServer(ctx context.Context) (ZabbixServerResult, error) {
	ms, err := s.metrics(ctx, model.MetricFilter{ServerType: zabbixServerType, Metric: zabbixServerMetric, Limit: 1})
	if err != nil {
		return ZabbixServerResult{}, err
	}
	if len(ms) == 0 {
		return ZabbixServerResult{}, notFound("Zabbix server information not found")
	}

	info := map[string]any{}
	if err := json.Unmarshal([]byte(ms[0].Value.String()), &info); err != nil {
		s.log.WithError(err).Warn("zabbix server info is not a JSON object")
	}
	return ZabbixServerResult{
		Success: true,
		Server: ZabbixServer{
			Hostname:    info["hostname"],
			Name:        info["name"],
			HostID:      info["hostid"],
			Interfaces:  info["interfaces"],
			Inventory:   info["inventory"],
			LastUpdated: ms[0].Timestamp,
		},
	}, nil
}
