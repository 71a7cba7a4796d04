package health

import (
	"fmt"
	"strings"
	"time"

	"netmon/internal/model"
)

const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"

	MetricCPU    = "CPU utilization"
	MetricMemory = "Memory utilization"
	MetricDisk   = "Disk utilization"
)

// Flagger turns probe observations into alert events.
type Flagger struct {
	cfg Config
	now func() time.Time
}

func NewFlagger(cfg Config) *Flagger {
	return &Flagger{cfg: cfg, now: time.Now}
}

func getSeverity(value float64, t Thresholds) string {
	if value > t.Critical {
		return SeverityCritical
	}
	if value > t.Warning {
		return SeverityWarning
	}
	return SeverityInfo
}

// Flag evaluates each observation and returns one event per breach. Healthy
// observations produce nothing.
func (f *Flagger) Flag(metrics []model.Metric) []model.Event {
	var events []model.Event

	for _, m := range metrics {
		v, ok := m.Value.Float()
		if !ok {
			continue
		}

		var sev, explanation string
		switch {
		case m.Name == MetricCPU:
			sev = getSeverity(v, f.cfg.CPU)
			explanation = fmt.Sprintf("CPU %s: %.1f%%", sev, v)
		case m.Name == MetricMemory:
			sev = getSeverity(v, f.cfg.Memory)
			explanation = fmt.Sprintf("Memory %s: %.1f%%", sev, v)
		case m.Name == MetricDisk:
			sev = getSeverity(v, f.cfg.Disk)
			explanation = fmt.Sprintf("Disk %s: %.1f%%", sev, v)
		case strings.Contains(m.Name, "Operational status"):
			if v == 1 {
				continue
			}
			sev = SeverityCritical
			explanation = fmt.Sprintf("Interface %s down", m.Meta.IfDescr)
		default:
			continue
		}

		if sev == SeverityInfo {
			continue
		}

		detected := m.Timestamp
		if detected.IsZero() {
			detected = f.now()
		}
		events = append(events, model.Event{
			DeviceID:   m.Meta.DeviceID,
			HostID:     m.Meta.HostID,
			Iface:      m.Meta.Iface,
			Metric:     m.Name,
			Value:      m.Value,
			Status:     statusFor(sev),
			Severity:   sev,
			DetectedAt: detected,
			Evidence:   map[string]any{"explanation": explanation},
			Labels:     []string{"probe"},
		})
	}

	return events
}

func statusFor(severity string) string {
	if severity == SeverityCritical {
		return "Down"
	}
	return "Degraded"
}
