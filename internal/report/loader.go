// Package report gathers a probe reading and the fleet state into one
// output.ReportInput for the terminal front ends.
package report

import (
	"context"
	"fmt"
	"time"

	"netmon/internal/collector"
	"netmon/internal/health"
	"netmon/internal/output"
	"netmon/internal/service"
)

const defaultAlertLimit = 50

// Fleet is the slice of the service the report reads.
type Fleet interface {
	Hosts(ctx context.Context) (service.HostsResult, error)
	CityHealth(ctx context.Context, country string) (service.CityHealthResult, error)
	Alerts(ctx context.Context, q service.AlertQuery) (service.AlertsResult, error)
}

// Loader builds report inputs. Probe and Fleet are both optional.
type Loader struct {
	Probe      collector.Provider
	Fleet      Fleet
	Thresholds health.Config
	AlertLimit int
	MaxAlerts  int

	now func() time.Time
}

func NewLoader(probe collector.Provider, fleet Fleet, th health.Config) *Loader {
	return &Loader{
		Probe:      probe,
		Fleet:      fleet,
		Thresholds: th,
		AlertLimit: defaultAlertLimit,
		now:        time.Now,
	}
}

// Load reads the probe first, then the fleet. Whatever was read before a
// failure is returned alongside the error.
func (l *Loader) Load(ctx context.Context) (output.ReportInput, error) {
	now := time.Now
	if l.now != nil {
		now = l.now
	}
	in := output.ReportInput{
		Thresholds: l.Thresholds,
		MaxAlerts:  l.MaxAlerts,
		Generated:  now(),
	}

	if l.Probe != nil {
		ms, err := l.Probe.Observe(ctx)
		if err != nil {
			return in, fmt.Errorf("probe: %w", err)
		}
		in.Probe = ms
	}
	if l.Fleet == nil {
		return in, nil
	}

	hosts, err := l.Fleet.Hosts(ctx)
	if err != nil {
		return in, fmt.Errorf("hosts: %w", err)
	}
	in.Hosts = hosts.Hosts

	cities, err := l.Fleet.CityHealth(ctx, "")
	if err != nil {
		return in, fmt.Errorf("city health: %w", err)
	}
	for _, c := range cities.Cities {
		in.Cities = append(in.Cities, output.CityLine{Country: c.Country, City: c.City, Health: c.Health})
	}

	alerts, err := l.Fleet.Alerts(ctx, service.AlertQuery{Limit: l.AlertLimit})
	if err != nil {
		return in, fmt.Errorf("alerts: %w", err)
	}
	in.Alerts = alerts.Alerts
	return in, nil
}
