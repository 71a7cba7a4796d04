package collector

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"netmon/internal/collector/services"
	"netmon/internal/model"
)

// fakeSensor returns a canned reading.
type fakeSensor struct {
	name  string
	value any
	err   error
}

func (f *fakeSensor) Name() string                        { return f.name }
func (f *fakeSensor) Connect(ctx context.Context) error    { return nil }
func (f *fakeSensor) Disconnect(ctx context.Context) error { return nil }
func (f *fakeSensor) Collect(ctx context.Context) (any, error) {
	return f.value, f.err
}

func newFakeProbe(cfg ProbeConfig, net *fakeSensor) *Probe {
	p := NewProbe(cfg.WithReach("", 0))
	p.cpuSensor = &fakeSensor{name: "CPU", value: services.CPUResult{Usage: 42.123, Load1: 0.5}}
	p.memSensor = &fakeSensor{name: "Memory", value: services.MemResult{UsedPercent: 91.5}}
	p.diskSensor = &fakeSensor{name: "Disk", value: services.DiskResult{Mounts: []services.MountUsage{{Mountpoint: "/", UsedPercent: 55}}}}
	p.hostSensor = &fakeSensor{name: "Host", value: services.HostResult{Hostname: "netmon-1", HostID: "abc", Platform: "ubuntu", Uptime: 3600}}
	p.netSensor = net
	return p
}

func byName(metrics []model.Metric) map[string]model.Metric {
	out := make(map[string]model.Metric, len(metrics))
	for _, m := range metrics {
		out[m.Name] = m
	}
	return out
}

func TestProbeObserve(t *testing.T) {
	net := &fakeSensor{name: "Network", value: services.NetResult{Interfaces: []services.InterfaceStat{
		{Name: "eth0", Index: 2, Up: true, BytesRecv: 1000, BytesSent: 500},
		{Name: "eth1", Index: 3, Up: false},
		{Name: "lo", Index: 1, Up: true, Loopback: true},
	}}}
	p := newFakeProbe(DefaultProbeConfig().WithIdentity("", "", "HQ"), net)

	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return start }

	first, err := p.Observe(context.Background())
	if err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	got := byName(first)

	cpu, ok := got[MetricCPU]
	if !ok {
		t.Fatalf("missing %q", MetricCPU)
	}
	if v, _ := cpu.Value.Float(); v != 42.12 {
		t.Errorf("cpu = %v, want 42.12", v)
	}
	switch {
	case cpu.Meta.DeviceID != "netmon-1":
		t.Errorf("device id should fall back to hostname, got %q", cpu.Meta.DeviceID)
	case cpu.Meta.HostID != "abc":
		t.Errorf("host id should fall back to host sensor, got %q", cpu.Meta.HostID)
	case cpu.Meta.Location != "HQ":
		t.Errorf("location = %q", cpu.Meta.Location)
	case cpu.Meta.Iface != model.GlobalIface:
		t.Errorf("host metrics belong to the global iface, got %q", cpu.Meta.Iface)
	}

	if v, _ := got["Interface eth0: Operational status"].Value.Float(); v != 1 {
		t.Errorf("eth0 status = %v, want 1", v)
	}
	if v, _ := got["Interface eth1: Operational status"].Value.Float(); v != 2 {
		t.Errorf("eth1 status = %v, want 2", v)
	}
	if _, ok := got["Interface lo: Operational status"]; ok {
		t.Error("loopback reported without IncludeLoopback")
	}
	if _, ok := got["Interface eth0: Bits received"]; ok {
		t.Error("first sample must not report traffic rates")
	}
	if got["Interface eth0: Operational status"].Meta.IfIndex != "2" {
		t.Errorf("ifindex = %q", got["Interface eth0: Operational status"].Meta.IfIndex)
	}

	// ten seconds later eth0 has moved 10000 bytes in and 2500 out
	p.now = func() time.Time { return start.Add(10 * time.Second) }
	net.value = services.NetResult{Interfaces: []services.InterfaceStat{
		{Name: "eth0", Index: 2, Up: true, BytesRecv: 11000, BytesSent: 3000},
	}}
	second, err := p.Observe(context.Background())
	if err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	got = byName(second)
	if v, _ := got["Interface eth0: Bits received"].Value.Float(); v != 8000 {
		t.Errorf("bits received = %v, want 8000", v)
	}
	if v, _ := got["Interface eth0: Bits sent"].Value.Float(); v != 2000 {
		t.Errorf("bits sent = %v, want 2000", v)
	}
}

func TestProbeRequiredSensors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Probe)
		wantErr string
	}{
		{"cpu failure", func(p *Probe) { p.cpuSensor = &fakeSensor{name: "CPU", err: errors.New("boom")} }, "CPU"},
		{"memory failure", func(p *Probe) { p.memSensor = &fakeSensor{name: "Memory", err: errors.New("boom")} }, "memory"},
		{"disk failure is tolerated", func(p *Probe) { p.diskSensor = &fakeSensor{name: "Disk", err: errors.New("boom")} }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newFakeProbe(DefaultProbeConfig(), &fakeSensor{name: "Network", value: services.NetResult{}})
			tt.mutate(p)

			snap, err := p.Snapshot(context.Background())
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if _, ok := snap.Errors["Disk"]; !ok {
					t.Error("expected disk failure recorded in snapshot")
				}
				if _, ok := byName(p.Metrics(snap))[MetricDisk]; ok {
					t.Error("disk metric emitted without a reading")
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestProbeConfiguredIdentityWins(t *testing.T) {
	p := newFakeProbe(DefaultProbeConfig().WithIdentity("10084", "edge-01", "Lyon"), &fakeSensor{name: "Network", value: services.NetResult{}})
	metrics, err := p.Observe(context.Background())
	if err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	for _, m := range metrics {
		if m.Meta.HostID != "10084" || m.Meta.DeviceID != "edge-01" || m.Meta.ServerType != "ubuntu" {
			t.Fatalf("unexpected meta on %q: %+v", m.Name, m.Meta)
		}
	}
}

func TestSystemProbe(t *testing.T) {
	p := NewProbe(DefaultProbeConfig().WithReach("", 0))
	metrics, err := p.Observe(context.Background())
	if err != nil {
		t.Skipf("Skipping system test: %v (might be environment specific)", err)
	}
	cpu, ok := byName(metrics)[MetricCPU]
	if !ok {
		t.Fatalf("missing %q", MetricCPU)
	}
	if v, _ := cpu.Value.Float(); v < 0 || v > 100 {
		t.Errorf("CPU usage out of bounds: %f", v)
	}
}
