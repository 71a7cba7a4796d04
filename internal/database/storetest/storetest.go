// Package storetest is a conformance suite every database.Store backend runs
// from its own tests.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"netmon/internal/database"
	"netmon/internal/model"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) database.Store

// Run executes every conformance check against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s database.Store)
	}{
		{"MetricRoundTrip", testMetricRoundTrip},
		{"MetricFilters", testMetricFilters},
		{"EventsNewestFirst", testEventsNewestFirst},
		{"DeleteHostData", testDeleteHostData},
		{"DeviceRegistry", testDeviceRegistry},
		{"OfficeLifecycle", testOfficeLifecycle},
		{"StatsAndPrune", testStatsAndPrune},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			defer s.Close()
			tt.fn(t, s)
		})
	}
}

func metric(ts int64, host, device, ifindex, name string, v model.Value) model.Metric {
	return model.Metric{
		Timestamp: time.Unix(ts, 0).UTC(),
		Meta: model.Meta{
			HostID:   host,
			DeviceID: device,
			IfIndex:  model.FlexString(ifindex),
			IfDescr:  ifdescrFor(ifindex),
			Location: "HQ, Paris, France",
		},
		Name:  name,
		Value: v,
	}
}

func ifdescrFor(ifindex string) string {
	if ifindex == "" {
		return ""
	}
	return "eth" + ifindex
}

func testMetricRoundTrip(t *testing.T, s database.Store) {
	ctx := context.Background()
	in := []model.Metric{
		metric(1700000000, "10084", "edge-rt-01", "1", "Interface eth1: Operational status", model.Number(1)),
		metric(1700000060, "10084", "edge-rt-01", "2", "Interface eth2: Operational status", model.Number(2)),
		metric(1700000120, "10084", "edge-rt-01", "", "system.name", model.Text("edge-rt-01.lan")),
	}
	n, err := s.InsertMetrics(ctx, in)
	if err != nil {
		t.Fatalf("InsertMetrics: %v", err)
	}
	if n != len(in) {
		t.Fatalf("inserted %d; want %d", n, len(in))
	}

	got, err := s.FindMetrics(ctx, model.MetricFilter{HostID: "10084"})
	if err != nil {
		t.Fatalf("FindMetrics: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("found %d metrics; want 3", len(got))
	}
	if got[0].Timestamp.Unix() != 1700000120 {
		t.Errorf("newest ts = %d; want 1700000120", got[0].Timestamp.Unix())
	}
	for _, m := range got {
		if m.Timestamp.Unix()%60 != 1700000000%60 {
			t.Errorf("ts %d lost second precision", m.Timestamp.Unix())
		}
	}
	if !got[2].Value.IsNumeric() {
		t.Errorf("numeric value came back as %v", got[2].Value)
	}
	if got[0].Value.IsNumeric() || got[0].Value.String() != "edge-rt-01.lan" {
		t.Errorf("text value came back as %v", got[0].Value)
	}
	if got[2].Meta.IfIndex != "1" || got[2].Meta.Location != "HQ, Paris, France" {
		t.Errorf("meta not preserved: %+v", got[2].Meta)
	}
	if got[2].ValueType != model.DefaultValueType {
		t.Errorf("value_type = %q; want %q", got[2].ValueType, model.DefaultValueType)
	}

	asc, err := s.FindMetrics(ctx, model.MetricFilter{HostID: "10084", Ascending: true, Limit: 1})
	if err != nil {
		t.Fatalf("FindMetrics asc: %v", err)
	}
	if len(asc) != 1 || asc[0].Timestamp.Unix() != 1700000000 {
		t.Errorf("ascending limit returned %+v", asc)
	}
}

func testMetricFilters(t *testing.T, s database.Store) {
	ctx := context.Background()
	in := []model.Metric{
		metric(100, "h1", "core-sw-01", "1", "Bits received", model.Number(10)),
		metric(200, "h1", "core-sw-01", "", "CPU utilization", model.Number(20)),
		metric(300, "h2", "Zabbix server", "", "zabbix_server_info", model.Text("7.0")),
		metric(400, "h3", "lab-pc-03", "3", "Bits sent", model.Number(30)),
	}
	in[1].Meta.Iface = model.GlobalIface
	in[2].Meta.ServerType = "zabbix_server"
	in[3].Meta.Location = "Annex, Lyon, France"
	if _, err := s.InsertMetrics(ctx, in); err != nil {
		t.Fatalf("InsertMetrics: %v", err)
	}

	tests := []struct {
		name   string
		filter model.MetricFilter
		want   int
	}{
		{"all", model.MetricFilter{}, 4},
		{"by host", model.MetricFilter{HostID: "h1"}, 2},
		{"by hosts", model.MetricFilter{HostIDs: []string{"h1", "h3"}}, 3},
		{"by device", model.MetricFilter{DeviceID: "lab-pc-03"}, 1},
		{"exact metric", model.MetricFilter{Metric: "Bits sent"}, 1},
		{"metric pattern", model.MetricFilter{MetricPattern: "bits"}, 2},
		{"location substring", model.MetricFilter{Location: "lyon"}, 1},
		{"server type", model.MetricFilter{ServerType: "zabbix_server"}, 1},
		{"exclude infrastructure", model.MetricFilter{ExcludeInfrastructure: true}, 3},
		{"exclude global iface", model.MetricFilter{ExcludeGlobalIface: true}, 3},
		{"interfaces only", model.MetricFilter{InterfacesOnly: true}, 2},
		{"since", model.MetricFilter{Since: time.Unix(200, 0)}, 3},
		{"until", model.MetricFilter{Until: time.Unix(200, 0)}, 2},
		{"limit", model.MetricFilter{Limit: 2}, 2},
	}
	for _, tt := range tests {
		got, err := s.FindMetrics(ctx, tt.filter)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if len(got) != tt.want {
			t.Errorf("%s: got %d metrics; want %d", tt.name, len(got), tt.want)
		}
	}
}

func testEventsNewestFirst(t *testing.T, s database.Store) {
	ctx := context.Background()
	events := []model.Event{
		{HostID: "h1", DeviceID: "d1", Metric: "CPU utilization", Value: model.Number(95), Severity: "critical", DetectedAt: time.Unix(100, 0)},
		{HostID: "h1", DeviceID: "d1", Metric: "CPU utilization", Value: model.Number(75), Severity: "warning", DetectedAt: time.Unix(300, 0),
			Evidence: map[string]any{"explanation": "CPU warning"}, Labels: []string{"probe"}},
		{HostID: "h2", DeviceID: "d2", Metric: "Link", DetectedAt: time.Unix(200, 0)},
	}
	if _, err := s.InsertEvents(ctx, events); err != nil {
		t.Fatalf("InsertEvents: %v", err)
	}

	got, err := s.FindEvents(ctx, model.EventFilter{})
	if err != nil {
		t.Fatalf("FindEvents: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("found %d events; want 3", len(got))
	}
	if got[0].DetectedAt.Unix() != 300 || got[2].DetectedAt.Unix() != 100 {
		t.Errorf("events not newest first: %d, %d", got[0].DetectedAt.Unix(), got[2].DetectedAt.Unix())
	}
	if got[0].Evidence["explanation"] != "CPU warning" || len(got[0].Labels) != 1 {
		t.Errorf("evidence/labels not preserved: %+v", got[0])
	}
	if got[1].Severity != model.DefaultSeverity {
		t.Errorf("default severity = %q; want %q", got[1].Severity, model.DefaultSeverity)
	}

	crit, err := s.FindEvents(ctx, model.EventFilter{HostID: "h1", Severity: "critical"})
	if err != nil {
		t.Fatalf("FindEvents filtered: %v", err)
	}
	if len(crit) != 1 {
		t.Errorf("filtered events = %d; want 1", len(crit))
	}
}

func testDeleteHostData(t *testing.T, s database.Store) {
	ctx := context.Background()
	_, _ = s.InsertMetrics(ctx, []model.Metric{
		metric(1, "h1", "d1", "", "a", model.Number(1)),
		metric(2, "h1", "d1", "", "b", model.Number(1)),
		metric(3, "h2", "d2", "", "a", model.Number(1)),
	})
	_, _ = s.InsertEvents(ctx, []model.Event{{HostID: "h1", DetectedAt: time.Unix(1, 0)}})

	m, e, err := s.DeleteHostData(ctx, "h1")
	if err != nil {
		t.Fatalf("DeleteHostData: %v", err)
	}
	if m != 2 || e != 1 {
		t.Errorf("deleted metrics=%d events=%d; want 2, 1", m, e)
	}
	left, _ := s.FindMetrics(ctx, model.MetricFilter{})
	if len(left) != 1 {
		t.Errorf("remaining metrics = %d; want 1", len(left))
	}
}

func testDeviceRegistry(t *testing.T, s database.Store) {
	ctx := context.Background()

	if _, err := s.GetDevice(ctx, "h1"); !errors.Is(err, database.ErrNotFound) {
		t.Fatalf("GetDevice on empty registry: err = %v; want ErrNotFound", err)
	}

	d := model.Device{HostID: "h1", DeviceID: "core-sw-01", Location: "HQ", DeviceType: "switch",
		DeviceStatus: model.DeviceAvailable, Geo: &model.Geo{Lat: 48.85, Lon: 2.35, Source: "manual"}}
	if err := s.UpsertDevice(ctx, d); err != nil {
		t.Fatalf("UpsertDevice: %v", err)
	}
	d.DeviceStatus = model.DeviceOccupied
	if err := s.UpsertDevice(ctx, d); err != nil {
		t.Fatalf("UpsertDevice update: %v", err)
	}

	got, err := s.GetDevice(ctx, "h1")
	if err != nil {
		t.Fatalf("GetDevice: %v", err)
	}
	if got.DeviceStatus != model.DeviceOccupied || got.Geo == nil || got.Geo.Lat != 48.85 {
		t.Errorf("device = %+v", got)
	}

	_ = s.UpsertDevice(ctx, model.Device{HostID: "h0", DeviceID: "edge"})
	list, err := s.ListDevices(ctx)
	if err != nil {
		t.Fatalf("ListDevices: %v", err)
	}
	if len(list) != 2 || list[0].HostID != "h0" {
		t.Errorf("ListDevices = %+v", list)
	}

	if err := s.DeleteDevice(ctx, "h1"); err != nil {
		t.Fatalf("DeleteDevice: %v", err)
	}
	if err := s.DeleteDevice(ctx, "h1"); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("second DeleteDevice: err = %v; want ErrNotFound", err)
	}
}

func testOfficeLifecycle(t *testing.T, s database.Store) {
	ctx := context.Background()

	seed := []model.Office{
		{Office: "HQ", City: "Paris", Country: "France", DeviceIDs: []string{"h1"}},
		{Office: "Annex", City: "Lyon", Country: "France"},
		{Office: "Branch", City: "Berlin", Country: "Germany", ContactInfo: map[string]any{"email": "ops@example.com"}},
	}
	var created []model.Office
	for _, o := range seed {
		c, err := s.CreateOffice(ctx, o)
		if err != nil {
			t.Fatalf("CreateOffice(%s): %v", o.Office, err)
		}
		if c.ID == "" || c.Status != model.OfficeActive || c.Geo.Source != "manual" {
			t.Errorf("defaults not applied: %+v", c)
		}
		created = append(created, c)
	}

	if _, err := s.CreateOffice(ctx, seed[0]); !errors.Is(err, database.ErrConflict) {
		t.Errorf("duplicate CreateOffice: err = %v; want ErrConflict", err)
	}

	n, err := s.CountOffices(ctx)
	if err != nil || n != 3 {
		t.Fatalf("CountOffices = %d, %v; want 3", n, err)
	}

	list, err := s.ListOffices(ctx, model.OfficeFilter{})
	if err != nil {
		t.Fatalf("ListOffices: %v", err)
	}
	order := fmt.Sprintf("%s/%s/%s", list[0].Office, list[1].Office, list[2].Office)
	if order != "Annex/HQ/Branch" {
		t.Errorf("office order = %s; want Annex/HQ/Branch", order)
	}

	france, _ := s.ListOffices(ctx, model.OfficeFilter{Country: "France"})
	if len(france) != 2 {
		t.Errorf("France offices = %d; want 2", len(france))
	}

	byName, err := s.GetOffice(ctx, "Branch")
	if err != nil {
		t.Fatalf("GetOffice by name: %v", err)
	}
	if byName.ContactInfo["email"] != "ops@example.com" {
		t.Errorf("contact_info = %v", byName.ContactInfo)
	}
	byID, err := s.GetOffice(ctx, created[0].ID)
	if err != nil || byID.Office != "HQ" || len(byID.DeviceIDs) != 1 {
		t.Fatalf("GetOffice by id = %+v, %v", byID, err)
	}

	byID.Description = "Head office"
	byID.Status = model.OfficeInactive
	updated, err := s.UpdateOffice(ctx, byID)
	if err != nil {
		t.Fatalf("UpdateOffice: %v", err)
	}
	if updated.Description != "Head office" || updated.Active() {
		t.Errorf("update not applied: %+v", updated)
	}

	clash := byID
	clash.Office, clash.City = "Annex", "Lyon"
	if _, err := s.UpdateOffice(ctx, clash); !errors.Is(err, database.ErrConflict) {
		t.Errorf("clashing UpdateOffice: err = %v; want ErrConflict", err)
	}

	if err := s.DeleteOffice(ctx, created[1].ID); err != nil {
		t.Fatalf("DeleteOffice: %v", err)
	}
	if _, err := s.GetOffice(ctx, created[1].ID); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("GetOffice after delete: err = %v; want ErrNotFound", err)
	}
	if err := s.DeleteOffice(ctx, "missing"); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("DeleteOffice(missing): err = %v; want ErrNotFound", err)
	}
}

func testStatsAndPrune(t *testing.T, s database.Store) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	old := now.Add(-30 * 24 * time.Hour)

	var metrics []model.Metric
	// busy: 6 old + 2 recent; small: 2 old, under the per-device floor
	for i := 0; i < 6; i++ {
		metrics = append(metrics, metric(old.Add(time.Duration(i)*time.Minute).Unix(), "h1", "busy", "", "x", model.Number(1)))
	}
	for i := 0; i < 2; i++ {
		metrics = append(metrics, metric(now.Add(-time.Duration(i)*time.Minute).Unix(), "h1", "busy", "", "x", model.Number(1)))
	}
	for i := 0; i < 2; i++ {
		metrics = append(metrics, metric(old.Add(time.Duration(i)*time.Minute).Unix(), "h2", "small", "", "x", model.Number(1)))
	}
	if _, err := s.InsertMetrics(ctx, metrics); err != nil {
		t.Fatalf("InsertMetrics: %v", err)
	}
	_, _ = s.InsertEvents(ctx, []model.Event{
		{HostID: "h1", DetectedAt: old},
		{HostID: "h1", DetectedAt: now},
	})

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Metrics != 10 || st.Events != 2 || st.Devices != 2 {
		t.Errorf("stats = %+v", st)
	}
	if st.DateRange.Oldest == nil || st.DateRange.Newest == nil || !st.DateRange.Newest.After(*st.DateRange.Oldest) {
		t.Errorf("date range = %+v", st.DateRange)
	}

	plan := model.PrunePlan{KeepDays: 7, MinRecordsPerDevice: 3, DryRun: true}
	dry, err := s.Prune(ctx, plan)
	if err != nil {
		t.Fatalf("Prune dry run: %v", err)
	}
	if dry.MetricsDeleted != 5 || dry.EventsDeleted != 1 {
		t.Errorf("dry run = %+v; want 5 metrics, 1 event", dry)
	}
	if st2, _ := s.Stats(ctx); st2.Metrics != 10 {
		t.Errorf("dry run deleted data: %+v", st2)
	}

	plan.DryRun = false
	res, err := s.Prune(ctx, plan)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if res.MetricsDeleted != 5 || res.EventsDeleted != 1 {
		t.Errorf("prune = %+v; want 5 metrics, 1 event", res)
	}
	busy, _ := s.FindMetrics(ctx, model.MetricFilter{DeviceID: "busy"})
	if len(busy) != 3 {
		t.Errorf("busy kept %d; want 3", len(busy))
	}
	small, _ := s.FindMetrics(ctx, model.MetricFilter{DeviceID: "small"})
	if len(small) != 2 {
		t.Errorf("small kept %d; want 2", len(small))
	}
}
