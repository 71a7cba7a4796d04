// Package memory is an in-process Store used by tests and single-node demos.
// It applies the shared model filters directly, so its results define the
// semantics the SQL and document backends translate.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"netmon/internal/database"
	"netmon/internal/model"
)

type Store struct {
	mu      sync.RWMutex
	metrics []model.Metric
	events  []model.Event
	devices map[string]model.Device
	offices []model.Office
	now     func() time.Time
}

var _ database.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		devices: make(map[string]model.Device),
		now:     time.Now,
	}
}

// =============================================================================
// METRICS & EVENTS
// =============================================================================

func (s *Store) InsertMetrics(ctx context.Context, metrics []model.Metric) (int, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range metrics {
		m.Normalize(now)
		s.metrics = append(s.metrics, m)
	}
	return len(metrics), nil
}

func (s *Store) FindMetrics(ctx context.Context, f model.MetricFilter) ([]model.Metric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return f.Apply(s.metrics), nil
}

func (s *Store) InsertEvents(ctx context.Context, events []model.Event) (int, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range events {
		e.Normalize(now)
		s.events = append(s.events, e)
	}
	return len(events), nil
}

func (s *Store) FindEvents(ctx context.Context, f model.EventFilter) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return f.Apply(s.events), nil
}

func (s *Store) DeleteHostData(ctx context.Context, hostID string) (int64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var metricsDeleted, eventsDeleted int64
	keptMetrics := s.metrics[:0]
	for _, m := range s.metrics {
		if m.Meta.HostID == hostID {
			metricsDeleted++
			continue
		}
		keptMetrics = append(keptMetrics, m)
	}
	s.metrics = keptMetrics

	keptEvents := s.events[:0]
	for _, e := range s.events {
		if e.HostID == hostID {
			eventsDeleted++
			continue
		}
		keptEvents = append(keptEvents, e)
	}
	s.events = keptEvents

	return metricsDeleted, eventsDeleted, nil
}

// =============================================================================
// DEVICE REGISTRY
// =============================================================================

func (s *Store) GetDevice(ctx context.Context, hostID string) (model.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.devices[hostID]
	if !ok {
		return model.Device{}, fmt.Errorf("device %s: %w", hostID, database.ErrNotFound)
	}
	return d, nil
}

func (s *Store) UpsertDevice(ctx context.Context, d model.Device) error {
	if d.HostID == "" {
		return fmt.Errorf("upsert device: hostid required")
	}
	d.UpdatedAt = s.now().UTC()
	s.mu.Lock()
	s.devices[d.HostID] = d
	s.mu.Unlock()
	return nil
}

func (s *Store) ListDevices(ctx context.Context) ([]model.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Device, 0, len(s.devices))
	for _, d := range s.devices {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HostID < out[j].HostID })
	return out, nil
}

func (s *Store) DeleteDevice(ctx context.Context, hostID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.devices[hostID]; !ok {
		return fmt.Errorf("device %s: %w", hostID, database.ErrNotFound)
	}
	delete(s.devices, hostID)
	return nil
}

// =============================================================================
// OFFICES
// =============================================================================

func (s *Store) ListOffices(ctx context.Context, f model.OfficeFilter) ([]model.Office, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Office, 0, len(s.offices))
	for _, o := range s.offices {
		if f.Match(o) {
			out = append(out, cloneOffice(o))
		}
	}
	sortOffices(out)
	return out, nil
}

func (s *Store) GetOffice(ctx context.Context, idOrName string) (model.Office, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(idOrName); i >= 0 {
		return cloneOffice(s.offices[i]), nil
	}
	return model.Office{}, fmt.Errorf("office %s: %w", idOrName, database.ErrNotFound)
}

func (s *Store) CreateOffice(ctx context.Context, o model.Office) (model.Office, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.offices {
		if sameTriple(existing, o) {
			return model.Office{}, fmt.Errorf("office %s/%s/%s: %w", o.Country, o.City, o.Office, database.ErrConflict)
		}
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	o.Normalize(s.now())
	s.offices = append(s.offices, cloneOffice(o))
	return o, nil
}

func (s *Store) UpdateOffice(ctx context.Context, o model.Office) (model.Office, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(o.ID)
	if i < 0 {
		return model.Office{}, fmt.Errorf("office %s: %w", o.ID, database.ErrNotFound)
	}
	for j, existing := range s.offices {
		if j != i && sameTriple(existing, o) {
			return model.Office{}, fmt.Errorf("office %s/%s/%s: %w", o.Country, o.City, o.Office, database.ErrConflict)
		}
	}
	o.CreatedAt = s.offices[i].CreatedAt
	o.Normalize(s.now())
	s.offices[i] = cloneOffice(o)
	return o, nil
}

func (s *Store) DeleteOffice(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("office %s: %w", id, database.ErrNotFound)
	}
	s.offices = append(s.offices[:i], s.offices[i+1:]...)
	return nil
}

func (s *Store) CountOffices(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.offices), nil
}

// indexOf matches by id first, then by office name. Caller holds the lock.
func (s *Store) indexOf(idOrName string) int {
	for i, o := range s.offices {
		if o.ID == idOrName {
			return i
		}
	}
	for i, o := range s.offices {
		if o.Office == idOrName {
			return i
		}
	}
	return -1
}

func sameTriple(a, b model.Office) bool {
	return a.Office == b.Office && a.City == b.City && a.Country == b.Country
}

func sortOffices(offices []model.Office) {
	sort.SliceStable(offices, func(i, j int) bool {
		a, b := offices[i], offices[j]
		if a.Country != b.Country {
			return a.Country < b.Country
		}
		if a.City != b.City {
			return a.City < b.City
		}
		return a.Office < b.Office
	})
}

func cloneOffice(o model.Office) model.Office {
	o.DeviceIDs = append(make([]string, 0, len(o.DeviceIDs)), o.DeviceIDs...)
	if o.ContactInfo != nil {
		ci := make(map[string]any, len(o.ContactInfo))
		for k, v := range o.ContactInfo {
			ci[k] = v
		}
		o.ContactInfo = ci
	}
	return o
}

// =============================================================================
// ADMIN
// =============================================================================

func (s *Store) Stats(ctx context.Context) (model.StoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := model.StoreStats{
		Metrics: int64(len(s.metrics)),
		Events:  int64(len(s.events)),
	}
	devices := make(map[string]struct{})
	for _, m := range s.metrics {
		devices[m.Meta.DeviceID] = struct{}{}
		ts := m.Timestamp
		if st.DateRange.Oldest == nil || ts.Before(*st.DateRange.Oldest) {
			st.DateRange.Oldest = &ts
		}
		if st.DateRange.Newest == nil || ts.After(*st.DateRange.Newest) {
			st.DateRange.Newest = &ts
		}
	}
	st.Devices = len(devices)
	return st, nil
}

// Prune removes, per device, the metrics older than the newest KeepCount
// ones, and every event detected before the cutoff.
func (s *Store) Prune(ctx context.Context, plan model.PrunePlan) (model.PruneResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := plan.Cutoff(s.now())
	res := model.PruneResult{Cutoff: cutoff, DryRun: plan.DryRun}

	byDevice := make(map[string][]time.Time)
	for _, m := range s.metrics {
		byDevice[m.Meta.DeviceID] = append(byDevice[m.Meta.DeviceID], m.Timestamp)
	}
	thresholds := make(map[string]time.Time)
	for id, stamps := range byDevice {
		var old int64
		for _, ts := range stamps {
			if ts.Before(cutoff) {
				old++
			}
		}
		keep := plan.KeepCount(int64(len(stamps)), old)
		if keep >= int64(len(stamps)) {
			continue
		}
		sort.Slice(stamps, func(i, j int) bool { return stamps[i].After(stamps[j]) })
		thresholds[id] = stamps[keep-1]
	}

	keptMetrics := make([]model.Metric, 0, len(s.metrics))
	for _, m := range s.metrics {
		if th, ok := thresholds[m.Meta.DeviceID]; ok && m.Timestamp.Before(th) {
			res.MetricsDeleted++
			continue
		}
		keptMetrics = append(keptMetrics, m)
	}

	keptEvents := make([]model.Event, 0, len(s.events))
	for _, e := range s.events {
		if e.DetectedAt.Before(cutoff) {
			res.EventsDeleted++
			continue
		}
		keptEvents = append(keptEvents, e)
	}

	if !plan.DryRun {
		s.metrics = keptMetrics
		s.events = keptEvents
	}
	return res, nil
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() error { return nil }

// ResetClock is a test hook for pinning retention cutoffs.
func (s *Store) ResetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

