package service

import (
	"context"
	"fmt"
	"time"

	"netmon/internal/aggregate"
	"netmon/internal/model"
)

type HostsResult struct {
	Count int                     `json:"count"`
	Hosts []aggregate.HostSummary `json:"hosts"`
}

// Hosts lists every (hostid, device_id) pair with its latest alert, most
// recently seen first.
func (s *Service) Hosts(ctx context.Context) (HostsResult, error) {
	hosts, err := s.hosts(ctx, model.MetricFilter{})
	if err != nil {
		return HostsResult{}, err
	}
	return HostsResult{Count: len(hosts), Hosts: hosts}, nil
}

// AllHosts is Hosts without infrastructure devices, with each host's
// device_status: occupied when any office lists it.
func (s *Service) AllHosts(ctx context.Context) (HostsResult, error) {
	ms, err := s.metrics(ctx, model.MetricFilter{ExcludeInfrastructure: true})
	if err != nil {
		return HostsResult{}, err
	}
	es, err := s.events(ctx, model.EventFilter{})
	if err != nil {
		return HostsResult{}, err
	}
	offices, err := s.store.ListOffices(ctx, model.OfficeFilter{})
	if err != nil {
		return HostsResult{}, fmt.Errorf("failed to list offices: %w", err)
	}

	devices := make([]model.Event, 0, len(es))
	for _, e := range es {
		if !model.IsInfrastructure(e.DeviceID) {
			devices = append(devices, e)
		}
	}
	assigned := make(map[string]bool)
	for _, o := range offices {
		for _, id := range o.DeviceIDs {
			assigned[id] = true
		}
	}

	hosts := aggregate.ApplyAlerts(aggregate.GroupHosts(ms), aggregate.LatestAlerts(devices))
	for i := range hosts {
		hosts[i].DeviceStatus = model.DeviceAvailable
		if assigned[hosts[i].HostID] {
			hosts[i].DeviceStatus = model.DeviceOccupied
		}
		if hosts[i].Location == "" {
			hosts[i].Location = aggregate.Unknown
		}
	}
	return HostsResult{Count: len(hosts), Hosts: hosts}, nil
}

type HostDetail struct {
	HostID       string                       `json:"hostid"`
	DeviceID     string                       `json:"device_id"`
	LastSeen     time.Time                    `json:"last_seen"`
	TotalMetrics int                          `json:"total_metrics"`
	Interfaces   []aggregate.InterfaceSummary `json:"interfaces"`
}

// Host returns one host with its interface groups.
func (s *Service) Host(ctx context.Context, hostID string) (HostDetail, error) {
	ms, err := s.metrics(ctx, model.MetricFilter{HostID: hostID})
	if err != nil {
		return HostDetail{}, err
	}
	hosts := aggregate.GroupHosts(ms)
	if len(hosts) == 0 {
		return HostDetail{}, notFound("Host not found")
	}
	h := hosts[0]
	return HostDetail{
		HostID:       h.HostID,
		DeviceID:     h.DeviceID,
		LastSeen:     h.LastSeen,
		TotalMetrics: h.TotalMetrics,
		Interfaces:   aggregate.GroupInterfaces(ms),
	}, nil
}
