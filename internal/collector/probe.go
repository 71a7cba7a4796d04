// Package collector is netmon's self-monitoring agent: it samples the server
// host with gopsutil and reports the readings as metric observations shaped
// like the ones the network collectors post.
package collector

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"netmon/internal/collector/services"
	"netmon/internal/model"
)

// Metric names the probe emits. Interface metrics are prefixed with
// "Interface <name>: ".
const (
	MetricCPU          = "CPU utilization"
	MetricMemory       = "Memory utilization"
	MetricDisk         = "Disk utilization"
	MetricSwap         = "Swap utilization"
	MetricLoad1        = "Load average (1m avg)"
	MetricUptime       = "System uptime"
	MetricLatency      = "Network latency"
	MetricReachable    = "Network reachability"
	MetricOperStatus   = "Operational status"
	MetricBitsReceived = "Bits received"
	MetricBitsSent     = "Bits sent"
	MetricErrorsIn     = "Inbound packets with errors"
	MetricErrorsOut    = "Outbound packets with errors"
	MetricDiscardsIn   = "Inbound packets discarded"
	MetricDiscardsOut  = "Outbound packets discarded"

	ifUp   = 1
	ifDown = 2
)

// Provider reports host observations. The data worker and the console report
// depend on this rather than on Probe so tests can substitute readings.
type Provider interface {
	Observe(ctx context.Context) ([]model.Metric, error)
}

// Snapshot is one round of sensor readings. Optional sensors that failed are
// listed in Errors and leave their field zero.
type Snapshot struct {
	Time   time.Time
	Host   services.HostResult
	CPU    services.CPUResult
	Mem    services.MemResult
	Disk   services.DiskResult
	Net    services.NetResult
	Reach  *services.ReachResult
	Errors map[string]string
}

type counterSample struct {
	at         time.Time
	sent, recv uint64
}

type Probe struct {
	cfg         ProbeConfig
	cpuSensor   services.Sensor
	memSensor   services.Sensor
	diskSensor  services.Sensor
	netSensor   services.Sensor
	hostSensor  services.Sensor
	reachSensor services.Sensor
	now         func() time.Time

	mu   sync.Mutex
	prev map[string]counterSample
}

func NewProbe(cfg ProbeConfig) *Probe {
	p := &Probe{
		cfg:        cfg,
		cpuSensor:  services.NewCPUSensor(),
		memSensor:  services.NewMemSensor(),
		diskSensor: services.NewDiskSensor(),
		netSensor:  services.NewNetSensor(),
		hostSensor: services.NewHostSensor(),
		now:        time.Now,
		prev:       make(map[string]counterSample),
	}
	if cfg.ReachEndpoint != "" {
		p.reachSensor = services.NewReachSensor(cfg.ReachEndpoint, cfg.ReachTimeout)
	}
	return p
}

func (p *Probe) Config() ProbeConfig { return p.cfg }

type sensorResult struct {
	name  string
	value any
	err   error
}

// Snapshot reads every sensor concurrently. CPU and memory are required;
// the rest degrade to entries in Snapshot.Errors.
func (p *Probe) Snapshot(ctx context.Context) (*Snapshot, error) {
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	sensors := []services.Sensor{p.cpuSensor, p.memSensor, p.diskSensor, p.netSensor, p.hostSensor}
	if p.reachSensor != nil {
		sensors = append(sensors, p.reachSensor)
	}

	results := make(chan sensorResult, len(sensors))
	var wg sync.WaitGroup
	wg.Add(len(sensors))
	for _, s := range sensors {
		go func(s services.Sensor) {
			defer wg.Done()
			v, err := s.Collect(ctx)
			results <- sensorResult{name: s.Name(), value: v, err: err}
		}(s)
	}
	wg.Wait()
	close(results)

	snap := &Snapshot{Time: p.now(), Errors: map[string]string{}}
	for res := range results {
		if res.err != nil {
			snap.Errors[res.name] = res.err.Error()
			continue
		}
		switch v := res.value.(type) {
		case services.CPUResult:
			snap.CPU = v
		case services.MemResult:
			snap.Mem = v
		case services.DiskResult:
			snap.Disk = v
		case services.NetResult:
			snap.Net = v
		case services.HostResult:
			snap.Host = v
		case services.ReachResult:
			snap.Reach = &v
		}
	}

	if msg, ok := snap.Errors[p.cpuSensor.Name()]; ok {
		return nil, fmt.Errorf("failed to get CPU metrics: %s", msg)
	}
	if msg, ok := snap.Errors[p.memSensor.Name()]; ok {
		return nil, fmt.Errorf("failed to get memory metrics: %s", msg)
	}
	return snap, nil
}

// Observe takes a snapshot and converts it into observations.
func (p *Probe) Observe(ctx context.Context) ([]model.Metric, error) {
	snap, err := p.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return p.Metrics(snap), nil
}

// Metrics converts a snapshot into observations. Traffic rates need a
// previous sample of the same interface, so the first call after start-up
// reports status and error counters only.
func (p *Probe) Metrics(s *Snapshot) []model.Metric {
	base := p.baseMeta(s.Host)

	global := base
	global.Iface = model.GlobalIface
	gauge := func(name string, v float64) model.Metric {
		return model.Metric{
			Timestamp: s.Time,
			Meta:      global,
			Name:      name,
			Value:     model.Number(round2(v)),
			ValueType: model.DefaultValueType,
		}
	}

	out := []model.Metric{
		gauge(MetricCPU, s.CPU.Usage),
		gauge(MetricMemory, s.Mem.UsedPercent),
		gauge(MetricSwap, s.Mem.SwapPercent),
		gauge(MetricLoad1, s.CPU.Load1),
	}
	if root, ok := s.Disk.Root(); ok {
		out = append(out, gauge(MetricDisk, root.UsedPercent))
	}
	if s.Host.Uptime > 0 {
		out = append(out, gauge(MetricUptime, float64(s.Host.Uptime)))
	}
	if s.Reach != nil {
		reachable := 0.0
		if s.Reach.Online {
			reachable = 1
			out = append(out, gauge(MetricLatency, s.Reach.LatencyMS))
		}
		out = append(out, gauge(MetricReachable, reachable))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, iface := range s.Net.Interfaces {
		if iface.Loopback && !p.cfg.IncludeLoopback {
			continue
		}
		meta := base
		meta.Iface = iface.Name
		meta.IfDescr = iface.Name
		if iface.Index > 0 {
			meta.IfIndex = model.FlexString(strconv.Itoa(iface.Index))
		}
		emit := func(metric, valueType string, v float64) {
			out = append(out, model.Metric{
				Timestamp: s.Time,
				Meta:      meta,
				Name:      "Interface " + iface.Name + ": " + metric,
				Value:     model.Number(v),
				ValueType: valueType,
			})
		}

		status := float64(ifDown)
		if iface.Up {
			status = ifUp
		}
		emit(MetricOperStatus, model.DefaultValueType, status)
		emit(MetricErrorsIn, "counter", float64(iface.ErrIn))
		emit(MetricErrorsOut, "counter", float64(iface.ErrOut))
		emit(MetricDiscardsIn, "counter", float64(iface.DropIn))
		emit(MetricDiscardsOut, "counter", float64(iface.DropOut))

		cur := counterSample{at: s.Time, sent: iface.BytesSent, recv: iface.BytesRecv}
		if prev, ok := p.prev[iface.Name]; ok {
			if secs := cur.at.Sub(prev.at).Seconds(); secs > 0 {
				// counters that went backwards were reset; skip this round
				if cur.recv >= prev.recv && cur.sent >= prev.sent {
					emit(MetricBitsReceived, "rate", math.Round(float64(cur.recv-prev.recv)*8/secs))
					emit(MetricBitsSent, "rate", math.Round(float64(cur.sent-prev.sent)*8/secs))
				}
			}
		}
		p.prev[iface.Name] = cur
	}

	return out
}

func (p *Probe) baseMeta(h services.HostResult) model.Meta {
	meta := model.Meta{
		HostID:     p.cfg.HostID,
		DeviceID:   p.cfg.DeviceID,
		Location:   p.cfg.Location,
		DeviceType: p.cfg.DeviceType,
		ServerType: h.Platform,
	}
	if meta.HostID == "" {
		meta.HostID = h.HostID
	}
	if meta.DeviceID == "" {
		meta.DeviceID = h.Hostname
	}
	return meta
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
