package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"netmon/internal/aggregate"
	"netmon/internal/database"
	"netmon/internal/database/graph"
	"netmon/internal/model"
	"netmon/internal/status"
)

const (
	DeviceStatusMetric = "device_status"
	DefaultDeviceType  = "other"
)

type DeviceListing struct {
	aggregate.DeviceSummary
	Status   string `json:"status"`
	Severity string `json:"severity"`
}

type DevicesResult struct {
	Success bool            `json:"success"`
	Devices []DeviceListing `json:"devices"`
	Count   int             `json:"count"`
}

// Devices lists devices, optionally restricted to an exact location and an
// exact geo city.
func (s *Service) Devices(ctx context.Context, location, city string) (DevicesResult, error) {
	ms, err := s.metrics(ctx, model.MetricFilter{Location: location})
	if err != nil {
		return DevicesResult{}, err
	}
	matched := ms[:0]
	for _, m := range ms {
		if location != "" && m.Meta.Location != location {
			continue
		}
		if city != "" && (m.Meta.Geo == nil || m.Meta.Geo.City != city) {
			continue
		}
		matched = append(matched, m)
	}

	es, err := s.events(ctx, model.EventFilter{})
	if err != nil {
		return DevicesResult{}, err
	}
	alerts := aggregate.LatestAlerts(es)

	summaries := aggregate.GroupDevices(matched)
	devices := make([]DeviceListing, len(summaries))
	for i, d := range summaries {
		devices[i] = DeviceListing{DeviceSummary: d, Status: aggregate.DefaultHostStatus, Severity: aggregate.DefaultHostSeverity}
		if a, ok := alerts[d.HostID]; ok {
			if a.Status != "" {
				devices[i].Status = a.Status
			}
			if a.Severity != "" {
				devices[i].Severity = a.Severity
			}
		}
	}
	return DevicesResult{Success: true, Devices: devices, Count: len(devices)}, nil
}

// DeviceInput registers a device.
type DeviceInput struct {
	HostID     string     `json:"hostid" validate:"required"`
	DeviceID   string     `json:"device_id" validate:"required"`
	Location   string     `json:"location"`
	Geo        *model.Geo `json:"geo"`
	DeviceType string     `json:"device_type"`
}

type DeviceCreated struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Device  DeviceInput `json:"device"`
}

// CreateDevice adds a registry entry and seeds the stream with an "Up"
// device_status observation so the device shows up in listings at once.
func (s *Service) CreateDevice(ctx context.Context, in DeviceInput) (DeviceCreated, error) {
	if in.HostID == "" || in.DeviceID == "" {
		return DeviceCreated{}, invalid("device_id and hostid are required")
	}

	if _, err := s.store.GetDevice(ctx, in.HostID); err == nil {
		return DeviceCreated{}, conflict("Device already exists")
	} else if !errors.Is(err, database.ErrNotFound) {
		return DeviceCreated{}, fmt.Errorf("failed to get device: %w", err)
	}
	existing, err := s.store.FindMetrics(ctx, model.MetricFilter{HostID: in.HostID, DeviceID: in.DeviceID, Limit: 1})
	if err != nil {
		return DeviceCreated{}, fmt.Errorf("failed to query metrics: %w", err)
	}
	if len(existing) > 0 {
		return DeviceCreated{}, conflict("Device already exists")
	}

	if in.Location == "" {
		in.Location = model.UnknownLocation
	}
	if in.Geo == nil {
		in.Geo = &model.Geo{Source: "manual"}
	}
	if in.DeviceType == "" {
		in.DeviceType = DefaultDeviceType
	}

	d := model.Device{
		HostID:       in.HostID,
		DeviceID:     in.DeviceID,
		Location:     in.Location,
		Geo:          in.Geo,
		DeviceType:   in.DeviceType,
		DeviceStatus: model.DeviceAvailable,
	}
	if err := s.store.UpsertDevice(ctx, d); err != nil {
		return DeviceCreated{}, fmt.Errorf("failed to register device: %w", err)
	}

	seed := model.Metric{
		Timestamp: s.now().UTC(),
		Meta: model.Meta{
			HostID:     in.HostID,
			DeviceID:   in.DeviceID,
			Iface:      model.GlobalIface,
			Location:   in.Location,
			Geo:        in.Geo,
			DeviceType: in.DeviceType,
		},
		Name:  DeviceStatusMetric,
		Value: model.Text("Up"),
	}
	if _, err := s.store.InsertMetrics(ctx, []model.Metric{seed}); err != nil {
		return DeviceCreated{}, fmt.Errorf("failed to insert device status: %w", err)
	}

	s.syncGraph("link device", func(g graph.GraphClient) error { return g.LinkDevice(ctx, d) })
	s.log.WithField("hostid", in.HostID).WithField("device_id", in.DeviceID).Info("device registered")
	return DeviceCreated{Success: true, Message: "Device created successfully", Device: in}, nil
}

type DeviceProfileResult struct {
	Success bool                    `json:"success"`
	Device  aggregate.DeviceProfile `json:"device"`
}

// Device returns the profile of one host built from all its metrics.
func (s *Service) Device(ctx context.Context, hostID string) (DeviceProfileResult, error) {
	ms, err := s.metrics(ctx, model.MetricFilter{HostID: hostID})
	if err != nil {
		return DeviceProfileResult{}, err
	}
	p, ok := aggregate.ProfileDevice(ms)
	if !ok {
		return DeviceProfileResult{}, notFound("Device not found")
	}
	return DeviceProfileResult{Success: true, Device: p}, nil
}

// DeviceUpdate changes registry metadata. Empty fields are left alone.
type DeviceUpdate struct {
	DeviceID   string     `json:"device_id"`
	Location   string     `json:"location"`
	Geo        *model.Geo `json:"geo"`
	DeviceType string     `json:"device_type"`
}

type UpdateResult struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	UpdatedCount int    `json:"updatedCount"`
}

func (s *Service) UpdateDevice(ctx context.Context, hostID string, u DeviceUpdate) (UpdateResult, error) {
	d, err := s.knownHost(ctx, hostID)
	if errors.Is(err, database.ErrNotFound) {
		return UpdateResult{}, notFound("Device not found")
	}
	if err != nil {
		return UpdateResult{}, err
	}

	if u.DeviceID != "" {
		d.DeviceID = u.DeviceID
	}
	if u.Location != "" {
		d.Location = u.Location
	}
	if u.Geo != nil {
		d.Geo = u.Geo
	}
	if u.DeviceType != "" {
		d.DeviceType = u.DeviceType
	}
	if err := s.store.UpsertDevice(ctx, d); err != nil {
		return UpdateResult{}, fmt.Errorf("failed to update device: %w", err)
	}
	s.syncGraph("link device", func(g graph.GraphClient) error { return g.LinkDevice(ctx, d) })
	return UpdateResult{Success: true, Message: "Device updated successfully", UpdatedCount: 1}, nil
}

type DeviceDeleted struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	DeletedMetrics int64  `json:"deletedMetrics"`
	DeletedEvents  int64  `json:"deletedEvents"`
}

// DeleteDevice removes a host's metrics, events and registry entry.
func (s *Service) DeleteDevice(ctx context.Context, hostID string) (DeviceDeleted, error) {
	metrics, events, err := s.store.DeleteHostData(ctx, hostID)
	if err != nil {
		return DeviceDeleted{}, fmt.Errorf("failed to delete host data: %w", err)
	}
	regErr := s.store.DeleteDevice(ctx, hostID)
	if regErr != nil && !errors.Is(regErr, database.ErrNotFound) {
		return DeviceDeleted{}, fmt.Errorf("failed to delete device: %w", regErr)
	}
	if metrics == 0 && regErr != nil {
		return DeviceDeleted{}, notFound("Device not found")
	}

	s.log.WithFields(logrus.Fields{"hostid": hostID, "metrics": metrics, "events": events}).Info("device deleted")
	return DeviceDeleted{
		Success:        true,
		Message:        "Device deleted successfully",
		DeletedMetrics: metrics,
		DeletedEvents:  events,
	}, nil
}

type InterfacesResult struct {
	HostID          string                  `json:"hostid"`
	DeviceID        string                  `json:"device_id"`
	LastSeen        *time.Time              `json:"last_seen"`
	TimeRange       TimeRange               `json:"time_range"`
	TotalInterfaces int                     `json:"total_interfaces"`
	Summary         status.Summary          `json:"summary"`
	Interfaces      []status.InterfaceState `json:"interfaces"`
	Alerts          []model.Event           `json:"alerts"`
}

// DeviceInterfaces resolves the operational state of every interface of a
// host over the last hours, with troubleshooting hints.
func (s *Service) DeviceInterfaces(ctx context.Context, hostID string, hours, limit int) (InterfacesResult, error) {
	d, err := s.knownHost(ctx, hostID)
	if errors.Is(err, database.ErrNotFound) {
		return InterfacesResult{}, notFound("Device not found")
	}
	if err != nil {
		return InterfacesResult{}, err
	}
	if hours <= 0 {
		hours = s.query.WindowHours
	}
	if limit <= 0 || limit > s.query.InterfaceLimit {
		limit = s.query.InterfaceLimit
	}
	end := s.now()
	start := end.Add(-time.Duration(hours) * time.Hour)

	ms, err := s.metrics(ctx, model.MetricFilter{HostID: hostID, Since: start, Until: end, Limit: limit})
	if err != nil {
		return InterfacesResult{}, err
	}
	alerts, err := s.events(ctx, model.EventFilter{HostID: hostID, Since: start, Until: end, Limit: s.query.DefaultLimit})
	if err != nil {
		return InterfacesResult{}, err
	}

	states := status.Aggregate(ms, status.Options{WithHints: true})
	res := InterfacesResult{
		HostID:          hostID,
		DeviceID:        d.DeviceID,
		TimeRange:       TimeRange{Start: start.Unix(), End: end.Unix(), Hours: hours},
		TotalInterfaces: len(states),
		Summary:         status.Summarize(states),
		Interfaces:      states,
		Alerts:          alerts,
	}
	if len(states) > 0 {
		last := states[0].LastSeen
		res.LastSeen = &last
	}
	return res, nil
}

type DeviceStatusResult struct {
	Success      bool   `json:"success"`
	DeviceID     string `json:"device_id"`
	DeviceStatus string `json:"device_status"`
}

// DeviceStatus reports whether a host is assigned to an office.
func (s *Service) DeviceStatus(ctx context.Context, hostID string) (DeviceStatusResult, error) {
	d, err := s.knownHost(ctx, hostID)
	if errors.Is(err, database.ErrNotFound) {
		return DeviceStatusResult{}, notFound("Device not found")
	}
	if err != nil {
		return DeviceStatusResult{}, err
	}
	st := d.DeviceStatus
	if st == "" {
		st = model.DeviceAvailable
	}
	return DeviceStatusResult{Success: true, DeviceID: hostID, DeviceStatus: st}, nil
}

func (s *Service) SetDeviceStatus(ctx context.Context, hostID, deviceStatus string) (UpdateResult, error) {
	if !model.ValidDeviceStatus(deviceStatus) {
		return UpdateResult{}, invalid(`Invalid device_status. Must be "%s" or "%s"`, model.DeviceOccupied, model.DeviceAvailable)
	}
	d, err := s.knownHost(ctx, hostID)
	if errors.Is(err, database.ErrNotFound) {
		return UpdateResult{}, notFound("Device not found")
	}
	if err != nil {
		return UpdateResult{}, err
	}
	d.DeviceStatus = deviceStatus
	if err := s.store.UpsertDevice(ctx, d); err != nil {
		return UpdateResult{}, fmt.Errorf("failed to update device status: %w", err)
	}
	return UpdateResult{
		Success:      true,
		Message:      "Device status updated to " + strings.ToLower(deviceStatus),
		UpdatedCount: 1,
	}, nil
}
