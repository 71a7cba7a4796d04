package service

import (
	"context"
	"errors"
	"fmt"

	"netmon/internal/aggregate"
	"netmon/internal/database"
	"netmon/internal/database/graph"
	"netmon/internal/health"
	"netmon/internal/model"
)

const officeAssignmentSource = "office_assignment"

// OfficeView is an office with its live device count and health.
type OfficeView struct {
	model.Office
	AssignedDevices []string      `json:"assigned_devices"`
	HealthScore     int           `json:"health_score"`
	HealthStatus    health.Status `json:"health_status"`
}

// officeHosts returns the hosts that belong to an office: located there by
// name or listed in its device ids.
func officeHosts(o model.Office, hosts []aggregate.HostSummary) []aggregate.HostSummary {
	listed := make(map[string]bool, len(o.DeviceIDs))
	for _, id := range o.DeviceIDs {
		listed[id] = true
	}
	seen := make(map[string]bool)
	out := make([]aggregate.HostSummary, 0)
	for _, h := range hosts {
		if seen[h.HostID] {
			continue
		}
		if h.Location == o.Office || listed[h.HostID] {
			seen[h.HostID] = true
			out = append(out, h)
		}
	}
	return out
}

func (s *Service) view(o model.Office, hosts []aggregate.HostSummary) OfficeView {
	o.DeviceCount = aggregate.CountOfficeDevices(o, hosts)

	present := make(map[string]bool)
	for _, h := range hosts {
		present[h.HostID] = true
	}
	assigned := make([]string, 0, len(o.DeviceIDs))
	for _, id := range o.DeviceIDs {
		if present[id] {
			assigned = append(assigned, id)
		}
	}

	members := officeHosts(o, hosts)
	states := make([]health.DeviceState, len(members))
	for i, h := range members {
		states[i] = health.DeviceState{Status: h.Status, Severity: h.Severity}
	}
	score := s.health.ClassifyDevices(states, len(o.DeviceIDs))
	return OfficeView{Office: o, AssignedDevices: assigned, HealthScore: score.Score, HealthStatus: score.Status}
}

// liveOffices lists offices with device_count recomputed from the stream.
func (s *Service) liveOffices(ctx context.Context, f model.OfficeFilter) ([]OfficeView, error) {
	offices, err := s.store.ListOffices(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list offices: %w", err)
	}
	hosts, err := s.hosts(ctx, model.MetricFilter{})
	if err != nil {
		return nil, err
	}
	out := make([]OfficeView, len(offices))
	for i, o := range offices {
		out[i] = s.view(o, hosts)
	}
	return out, nil
}

type OfficesResult struct {
	Success bool         `json:"success"`
	Offices []OfficeView `json:"offices"`
	Count   int          `json:"count"`
}

// Offices lists offices sorted by country, city and office name.
func (s *Service) Offices(ctx context.Context, f model.OfficeFilter) (OfficesResult, error) {
	views, err := s.liveOffices(ctx, f)
	if err != nil {
		return OfficesResult{}, err
	}
	return OfficesResult{Success: true, Offices: views, Count: len(views)}, nil
}

// OfficeInput creates an office.
type OfficeInput struct {
	Office      string         `json:"office" validate:"required"`
	City        string         `json:"city" validate:"required"`
	Country     string         `json:"country" validate:"required"`
	Geo         *model.Geo     `json:"geo"`
	Description string         `json:"description"`
	ContactInfo map[string]any `json:"contact_info"`
	DeviceIDs   []string       `json:"device_ids"`
}

type OfficeResult struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Office  model.Office `json:"office"`
}

// CreateOffice registers an office and moves the listed hosts into it.
func (s *Service) CreateOffice(ctx context.Context, in OfficeInput) (OfficeResult, error) {
	if in.Office == "" || in.City == "" || in.Country == "" {
		return OfficeResult{}, invalid("office, city, and country are required")
	}
	o := model.Office{
		Office:      in.Office,
		City:        in.City,
		Country:     in.Country,
		Description: in.Description,
		ContactInfo: in.ContactInfo,
		DeviceIDs:   in.DeviceIDs,
		DeviceCount: len(in.DeviceIDs),
		Status:      model.OfficeActive,
	}
	if in.Geo != nil {
		o.Geo = *in.Geo
	}

	created, err := s.store.CreateOffice(ctx, o)
	if errors.Is(err, database.ErrConflict) {
		return OfficeResult{}, conflict("Office already exists in this city and country")
	}
	if err != nil {
		return OfficeResult{}, fmt.Errorf("failed to create office: %w", err)
	}

	s.syncGraph("sync office", func(g graph.GraphClient) error { return g.SyncOffice(ctx, created) })
	if err := s.assignDevices(ctx, created, created.DeviceIDs); err != nil {
		return OfficeResult{}, err
	}
	s.log.WithField("office", created.Office).WithField("id", created.ID).Info("office created")
	return OfficeResult{Success: true, Message: "Office created successfully", Office: created}, nil
}

type OfficeViewResult struct {
	Success bool       `json:"success"`
	Office  OfficeView `json:"office"`
}

func (s *Service) getOffice(ctx context.Context, idOrName string) (model.Office, error) {
	o, err := s.store.GetOffice(ctx, idOrName)
	if errors.Is(err, database.ErrNotFound) {
		return model.Office{}, notFound("Office not found")
	}
	if err != nil {
		return model.Office{}, fmt.Errorf("failed to get office: %w", err)
	}
	return o, nil
}

// Office returns one office by id or by name.
func (s *Service) Office(ctx context.Context, idOrName string) (OfficeViewResult, error) {
	o, err := s.getOffice(ctx, idOrName)
	if err != nil {
		return OfficeViewResult{}, err
	}
	hosts, err := s.hosts(ctx, model.MetricFilter{})
	if err != nil {
		return OfficeViewResult{}, err
	}
	return OfficeViewResult{Success: true, Office: s.view(o, hosts)}, nil
}

// OfficePatch is a partial office update. Nil fields are left alone; a
// non-nil DeviceIDs replaces the assignment list.
type OfficePatch struct {
	Office      *string        `json:"office"`
	City        *string        `json:"city"`
	Country     *string        `json:"country"`
	Geo         *model.Geo     `json:"geo"`
	Description *string        `json:"description"`
	ContactInfo map[string]any `json:"contact_info"`
	Status      *string        `json:"status" validate:"omitempty,oneof=active inactive"`
	DeviceIDs   []string       `json:"device_ids"`
}

// UpdateOffice applies a patch. Hosts dropped from device_ids are released;
// the remaining ones follow the office's name and position.
func (s *Service) UpdateOffice(ctx context.Context, idOrName string, p OfficePatch) (UpdateResult, error) {
	old, err := s.getOffice(ctx, idOrName)
	if err != nil {
		return UpdateResult{}, err
	}

	o := old
	if p.Office != nil {
		o.Office = *p.Office
	}
	if p.City != nil {
		o.City = *p.City
	}
	if p.Country != nil {
		o.Country = *p.Country
	}
	if p.Geo != nil {
		o.Geo = *p.Geo
	}
	if p.Description != nil {
		o.Description = *p.Description
	}
	if p.ContactInfo != nil {
		o.ContactInfo = p.ContactInfo
	}
	if p.Status != nil {
		if *p.Status != model.OfficeActive && *p.Status != model.OfficeInactive {
			return UpdateResult{}, invalid("status must be %q or %q", model.OfficeActive, model.OfficeInactive)
		}
		o.Status = *p.Status
	}
	if p.DeviceIDs != nil {
		o.DeviceIDs = p.DeviceIDs
	}
	if o.Office == "" || o.City == "" || o.Country == "" {
		return UpdateResult{}, invalid("office, city, and country are required")
	}

	updated, err := s.store.UpdateOffice(ctx, o)
	if errors.Is(err, database.ErrConflict) {
		return UpdateResult{}, conflict("Office already exists in this city and country")
	}
	if errors.Is(err, database.ErrNotFound) {
		return UpdateResult{}, notFound("Office not found")
	}
	if err != nil {
		return UpdateResult{}, fmt.Errorf("failed to update office: %w", err)
	}

	if updated.Office != old.Office || updated.City != old.City || updated.Country != old.Country {
		s.syncGraph("remove office", func(g graph.GraphClient) error { return g.RemoveOffice(ctx, old) })
	}
	s.syncGraph("sync office", func(g graph.GraphClient) error { return g.SyncOffice(ctx, updated) })

	if err := s.releaseDevices(ctx, removed(old.DeviceIDs, updated.DeviceIDs)); err != nil {
		return UpdateResult{}, err
	}
	if p.DeviceIDs != nil || updated.Office != old.Office || updated.Geo != old.Geo {
		if err := s.assignDevices(ctx, updated, updated.DeviceIDs); err != nil {
			return UpdateResult{}, err
		}
	}
	return UpdateResult{Success: true, Message: "Office updated successfully", UpdatedCount: 1}, nil
}

type DeleteResult struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	DeletedCount int    `json:"deletedCount"`
}

// DeleteOffice removes an office and releases its hosts.
func (s *Service) DeleteOffice(ctx context.Context, idOrName string) (DeleteResult, error) {
	o, err := s.getOffice(ctx, idOrName)
	if err != nil {
		return DeleteResult{}, err
	}
	if err := s.store.DeleteOffice(ctx, o.ID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return DeleteResult{}, notFound("Office not found")
		}
		return DeleteResult{}, fmt.Errorf("failed to delete office: %w", err)
	}
	if err := s.releaseDevices(ctx, o.DeviceIDs); err != nil {
		return DeleteResult{}, err
	}
	s.syncGraph("remove office", func(g graph.GraphClient) error { return g.RemoveOffice(ctx, o) })
	s.log.WithField("office", o.Office).WithField("id", o.ID).Info("office deleted")
	return DeleteResult{Success: true, Message: "Office deleted successfully", DeletedCount: 1}, nil
}

// assignDevices moves hosts into an office: location is the office name,
// geo the office position and device_status occupied.
func (s *Service) assignDevices(ctx context.Context, o model.Office, hostIDs []string) error {
	geo := o.Geo
	if geo.Lat == 0 && geo.Lon == 0 {
		geo = model.Geo{Source: officeAssignmentSource}
	}
	geo.City, geo.Country = o.City, o.Country

	for _, id := range hostIDs {
		d, err := s.knownHost(ctx, id)
		if errors.Is(err, database.ErrNotFound) {
			d = model.Device{HostID: id, DeviceID: id}
		} else if err != nil {
			return err
		}
		g := geo
		d.Location = o.Office
		d.Geo = &g
		d.DeviceStatus = model.DeviceOccupied
		if err := s.store.UpsertDevice(ctx, d); err != nil {
			return fmt.Errorf("failed to assign device %s: %w", id, err)
		}
		s.syncGraph("link device", func(g graph.GraphClient) error { return g.LinkDevice(ctx, d) })
	}
	return nil
}

// releaseDevices marks hosts available and Unassigned. Unknown hosts are
// skipped.
func (s *Service) releaseDevices(ctx context.Context, hostIDs []string) error {
	for _, id := range hostIDs {
		d, err := s.knownHost(ctx, id)
		if errors.Is(err, database.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		d.Location = model.UnassignedLocation
		d.DeviceStatus = model.DeviceAvailable
		if err := s.store.UpsertDevice(ctx, d); err != nil {
			return fmt.Errorf("failed to release device %s: %w", id, err)
		}
		s.syncGraph("link device", func(g graph.GraphClient) error { return g.LinkDevice(ctx, d) })
	}
	return nil
}

// removed returns the ids in before that are not in after.
func removed(before, after []string) []string {
	keep := make(map[string]bool, len(after))
	for _, id := range after {
		keep[id] = true
	}
	var out []string
	for _, id := range before {
		if !keep[id] {
			out = append(out, id)
		}
	}
	return out
}
