package aggregate

import (
	"testing"
	"time"

	"netmon/internal/model"
)

func obs(ts int64, host, device, ifindex, ifdescr, location, name string, v model.Value) model.Metric {
	return model.Metric{
		Timestamp: time.Unix(ts, 0),
		Meta: model.Meta{
			HostID:   host,
			DeviceID: device,
			IfIndex:  model.FlexString(ifindex),
			IfDescr:  ifdescr,
			Location: location,
		},
		Name:  name,
		Value: v,
	}
}

func TestGroupHosts(t *testing.T) {
	metrics := []model.Metric{
		obs(100, "h1", "core-sw-01", "1", "Gi0/1", "HQ, Paris, France", "Bits received", model.Number(1)),
		obs(300, "h1", "core-sw-01", "2", "Gi0/2", "HQ, Paris, France", "Bits received", model.Number(1)),
		obs(200, "h1", "core-sw-01", "", "", "", "CPU utilization", model.Number(12)),
		obs(250, "h2", "edge-rt-02", "1", "eth0", "Annex", "Bits sent", model.Number(9)),
	}

	hosts := GroupHosts(metrics)
	if len(hosts) != 2 {
		t.Fatalf("expected 2 hosts, got %d", len(hosts))
	}
	h := hosts[0]
	if h.HostID != "h1" {
		t.Fatalf("expected h1 first (newest), got %s", h.HostID)
	}
	if h.TotalMetrics != 3 {
		t.Errorf("TotalMetrics = %d; want 3", h.TotalMetrics)
	}
	if h.InterfaceCount != 2 {
		t.Errorf("InterfaceCount = %d; want 2", h.InterfaceCount)
	}
	if h.LastSeen.Unix() != 300 {
		t.Errorf("LastSeen = %d; want 300", h.LastSeen.Unix())
	}
	if h.Location != "HQ, Paris, France" {
		t.Errorf("Location = %q", h.Location)
	}
}

func TestLatestAlertsAndApply(t *testing.T) {
	events := []model.Event{
		{HostID: "h1", Status: "Degraded", Severity: "warning", DetectedAt: time.Unix(100, 0)},
		{HostID: "h1", Status: "Down", Severity: "critical", DetectedAt: time.Unix(200, 0)},
	}
	alerts := LatestAlerts(events)
	if got := alerts["h1"].Severity; got != "critical" {
		t.Errorf("latest severity = %q; want critical", got)
	}

	hosts := ApplyAlerts([]HostSummary{{HostID: "h1"}, {HostID: "h2"}}, alerts)
	if hosts[0].Status != "Down" || hosts[0].LastAlert == nil {
		t.Errorf("h1 not merged: %+v", hosts[0])
	}
	if hosts[1].Status != DefaultHostStatus || hosts[1].Severity != DefaultHostSeverity {
		t.Errorf("h2 defaults = %q/%q", hosts[1].Status, hosts[1].Severity)
	}
}

func TestGroupInterfaces(t *testing.T) {
	metrics := []model.Metric{
		obs(100, "h1", "d", "1", "eth0", "", "a", model.Number(1)),
		obs(300, "h1", "d", "1", "eth0", "", "b", model.Number(1)),
		obs(200, "h1", "d", "2", "eth1", "", "a", model.Number(1)),
	}
	got := GroupInterfaces(metrics)
	if len(got) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(got))
	}
	if got[0].IfDescr != "eth0" || got[0].MetricsCount != 2 {
		t.Errorf("first group = %+v", got[0])
	}
}

func TestGroupDevicesSortedByID(t *testing.T) {
	metrics := []model.Metric{
		{Timestamp: time.Unix(1, 0), Meta: model.Meta{HostID: "h2", DeviceID: "zeta", Iface: "eth0"}},
		{Timestamp: time.Unix(2, 0), Meta: model.Meta{HostID: "h1", DeviceID: "alpha", Iface: "eth0"}},
		{Timestamp: time.Unix(3, 0), Meta: model.Meta{HostID: "h1", DeviceID: "alpha", Iface: "_global"}},
	}
	got := GroupDevices(metrics)
	if len(got) != 2 || got[0].DeviceID != "alpha" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if got[0].InterfaceCount != 2 {
		t.Errorf("InterfaceCount = %d; want 2", got[0].InterfaceCount)
	}
	if got[0].LastSeen.Unix() != 3 {
		t.Errorf("LastSeen = %d; want 3", got[0].LastSeen.Unix())
	}
}

func TestOverlayDevices(t *testing.T) {
	metrics := []model.Metric{obs(1, "h1", "old-id", "", "", "Old", "x", model.Number(1))}
	registry := []model.Device{{HostID: "h1", DeviceID: "new-id", Location: "HQ"}}

	got := OverlayDevices(metrics, registry)
	if got[0].Meta.DeviceID != "new-id" || got[0].Meta.Location != "HQ" {
		t.Errorf("overlay not applied: %+v", got[0].Meta)
	}
	if metrics[0].Meta.DeviceID != "old-id" {
		t.Error("input was mutated")
	}
}

func TestCountOfficeDevices(t *testing.T) {
	hosts := []HostSummary{
		{HostID: "h1", Location: "HQ"},
		{HostID: "h2", Location: "HQ"},
		{HostID: "h3", Location: "Annex"},
	}
	tests := []struct {
		name   string
		office model.Office
		want   int
	}{
		{"Located hosts", model.Office{Office: "HQ"}, 2},
		{"Assigned wins when larger", model.Office{Office: "Annex", DeviceIDs: []string{"h1", "h2", "h3"}}, 3},
		{"Missing assigned ignored", model.Office{Office: "Lab", DeviceIDs: []string{"h9"}}, 0},
	}
	for _, tt := range tests {
		if got := CountOfficeDevices(tt.office, hosts); got != tt.want {
			t.Errorf("%s: CountOfficeDevices() = %d; want %d", tt.name, got, tt.want)
		}
	}
}

func TestCategorizeDeviceType(t *testing.T) {
	tests := map[string]string{
		"core-switch-1": "switches",
		"SW-02":         "switches",
		"edge-router":   "routers",
		"lab-pc-7":      "pcs",
		"Laptop-22":     "pcs",
		"eth-probe":     "interfaces",
		"printer":       "other",
		"rt-edge-01":    "routers",
		"smartbox":      "routers",
		"camera":        "other",
	}
	for id, want := range tests {
		if got := CategorizeDeviceType(id); got != want {
			t.Errorf("CategorizeDeviceType(%q) = %q; want %q", id, got, want)
		}
	}
}

func TestResolveHierarchy(t *testing.T) {
	tests := []struct {
		location string
		geo      *model.Geo
		want     Hierarchy
	}{
		{"HQ, Paris, France", nil, Hierarchy{Country: "France", City: "Paris", Office: "HQ"}},
		{"HQ, Paris", &model.Geo{Country: "France"}, Hierarchy{Country: "France", City: "Paris", Office: "HQ"}},
		{"Annex", &model.Geo{City: "Lyon", Country: "France"}, Hierarchy{Country: "France", City: "Lyon", Office: "Annex"}},
		{"Annex", nil, Hierarchy{Country: Unknown, City: Unknown, Office: "Annex"}},
		{"", nil, Hierarchy{Country: Unknown, City: Unknown, Office: Unknown}},
	}
	for _, tt := range tests {
		got := ResolveHierarchy(tt.location, tt.geo)
		got.FullPath = ""
		if got != tt.want {
			t.Errorf("ResolveHierarchy(%q) = %+v; want %+v", tt.location, got, tt.want)
		}
	}
}

func TestBuildLocationsAndHierarchy(t *testing.T) {
	hosts := []HostSummary{
		{HostID: "h1", DeviceID: "core-sw-01", Location: "HQ, Paris, France", Severity: "critical", LastSeen: time.Unix(100, 0)},
		{HostID: "h2", DeviceID: "lab-pc-02", Location: "HQ, Paris, France", Severity: "info", LastSeen: time.Unix(300, 0)},
		{HostID: "h3", DeviceID: "edge-rt-03", Location: "Annex, Lyon, France", Severity: "warning", LastSeen: time.Unix(200, 0)},
		{HostID: "h4", DeviceID: "cam-04", Location: "Unknown Location"},
		{HostID: "h5", DeviceID: "cam-05", Location: "Kiosk"},
	}

	locs := BuildLocations(hosts, "")
	if len(locs) != 3 {
		t.Fatalf("expected 3 locations, got %d", len(locs))
	}
	hq := locs[1]
	if hq.Location != "HQ, Paris, France" {
		t.Fatalf("unexpected order: %s", hq.Location)
	}
	if hq.DeviceCount != 2 || hq.CriticalDevices != 1 || hq.HealthyDevices != 1 {
		t.Errorf("HQ counts = %+v", hq)
	}
	if hq.LastSeen == nil || hq.LastSeen.Unix() != 300 {
		t.Errorf("HQ lastSeen = %v", hq.LastSeen)
	}
	if hq.DeviceDistribution.Switches != 1 || hq.DeviceDistribution.PCs != 1 {
		t.Errorf("HQ distribution = %+v", hq.DeviceDistribution)
	}

	if got := BuildLocations(hosts, "annex, lyon, france"); len(got) != 1 {
		t.Errorf("filter kept %d locations; want 1", len(got))
	}

	tree := BuildHierarchy(locs)
	if len(tree) != 1 || tree[0].Name != "France" {
		t.Fatalf("expected only France (Unknown dropped), got %+v", tree)
	}
	france := tree[0]
	if france.DeviceCount != 3 || france.WarningDevices != 1 {
		t.Errorf("France counts = %+v", france)
	}
	if len(france.Children) != 2 {
		t.Fatalf("expected 2 cities, got %d", len(france.Children))
	}
	if france.Path != "/france" {
		t.Errorf("Path = %q", france.Path)
	}
}

func TestProfileDevice(t *testing.T) {
	if _, ok := ProfileDevice(nil); ok {
		t.Fatal("expected no profile for empty input")
	}

	metrics := []model.Metric{
		obs(100, "h1", "core-sw-01", "", "", "HQ", "system.name", model.Text("core-sw-01.lan")),
		obs(100, "h1", "core-sw-01", "", "", "HQ", "CPU utilization", model.Number(42)),
		obs(100, "h1", "core-sw-01", "", "", "HQ", "Fan status", model.Number(2)),
		obs(100, "h1", "core-sw-01", "1", "Gi0/1", "HQ", "Interface Gi0/1: Operational status", model.Number(1)),
		obs(200, "h1", "core-sw-01", "1", "Gi0/1", "HQ", "net.if.in[ifHCInOctets.1]", model.Number(5000)),
		obs(150, "h1", "core-sw-01", "1", "Gi0/1", "HQ", "net.if.duplex[dot3StatsDuplexStatus.1]", model.Number(2)),
	}

	p, ok := ProfileDevice(metrics)
	if !ok {
		t.Fatal("expected profile")
	}
	if p.SystemInfo["system_name"] != "core-sw-01.lan" {
		t.Errorf("system_name = %v", p.SystemInfo["system_name"])
	}
	if p.SystemMetrics.CPU["utilization"] != float64(42) {
		t.Errorf("cpu = %v", p.SystemMetrics.CPU["utilization"])
	}
	if p.SystemMetrics.Hardware["fan_status"] != "Abnormal" {
		t.Errorf("fan_status = %v", p.SystemMetrics.Hardware["fan_status"])
	}
	gi := p.Interfaces["Gi0/1"]
	if gi == nil {
		t.Fatal("missing interface Gi0/1")
	}
	if gi.Status != "Up" || gi.Duplex != "Full" || gi.Traffic.BitsReceived != 5000 {
		t.Errorf("interface = %+v", gi)
	}
	if gi.LastSeen.Unix() != 200 || p.LastSeen.Unix() != 200 {
		t.Errorf("last seen iface=%d device=%d", gi.LastSeen.Unix(), p.LastSeen.Unix())
	}
}
