package database

import (
	"context"
	"errors"

	"netmon/internal/model"
)

var (
	// ErrNotFound is returned when an identity lookup matches nothing.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a create would duplicate an identity.
	ErrConflict = errors.New("already exists")
)

// =============================================================================
// STORE CONTRACT
// =============================================================================

// MetricStore holds the append-only observation stream.
type MetricStore interface {
	// InsertMetrics appends metrics and returns how many were written.
	InsertMetrics(ctx context.Context, metrics []model.Metric) (int, error)
	// FindMetrics returns matching metrics, newest first unless the filter
	// asks for ascending order.
	FindMetrics(ctx context.Context, f model.MetricFilter) ([]model.Metric, error)
}

// EventStore holds the append-only alert stream.
type EventStore interface {
	InsertEvents(ctx context.Context, events []model.Event) (int, error)
	// FindEvents returns matching events, newest first.
	FindEvents(ctx context.Context, f model.EventFilter) ([]model.Event, error)
}

// DeviceStore is the mutable per-host registry.
type DeviceStore interface {
	GetDevice(ctx context.Context, hostID string) (model.Device, error)
	UpsertDevice(ctx context.Context, d model.Device) error
	ListDevices(ctx context.Context) ([]model.Device, error)
	DeleteDevice(ctx context.Context, hostID string) error
}

// OfficeStore is the location registry. Offices are looked up by id or,
// failing that, by office name.
type OfficeStore interface {
	ListOffices(ctx context.Context, f model.OfficeFilter) ([]model.Office, error)
	GetOffice(ctx context.Context, idOrName string) (model.Office, error)
	// CreateOffice assigns an id and returns ErrConflict when the
	// (office, city, country) triple is taken.
	CreateOffice(ctx context.Context, o model.Office) (model.Office, error)
	UpdateOffice(ctx context.Context, o model.Office) (model.Office, error)
	DeleteOffice(ctx context.Context, id string) error
	CountOffices(ctx context.Context) (int, error)
}

// Store is everything the service layer needs from a backend.
type Store interface {
	MetricStore
	EventStore
	DeviceStore
	OfficeStore

	// DeleteHostData removes every metric and event of a host.
	DeleteHostData(ctx context.Context, hostID string) (metrics, events int64, err error)
	Stats(ctx context.Context) (model.StoreStats, error)
	// Prune applies a retention plan. A dry run counts without deleting.
	Prune(ctx context.Context, plan model.PrunePlan) (model.PruneResult, error)
	Ping(ctx context.Context) error
	Close() error
}
