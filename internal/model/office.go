package model

import "time"

const (
	OfficeActive   = "active"
	OfficeInactive = "inactive"

	DeviceOccupied  = "occupied"
	DeviceAvailable = "available"

	UnassignedLocation = "Unassigned"
	UnknownLocation    = "Unknown Location"
)

// Office is a location registry entry. (Office, City, Country) is unique.
type Office struct {
	ID          string         `json:"id"`
	Office      string         `json:"office" validate:"required"`
	City        string         `json:"city" validate:"required"`
	Country     string         `json:"country" validate:"required"`
	Geo         Geo            `json:"geo"`
	Description string         `json:"description"`
	ContactInfo map[string]any `json:"contact_info"`
	DeviceIDs   []string       `json:"device_ids"`
	Status      string         `json:"status"`
	// DeviceCount is recomputed on every read; the stored value is never trusted.
	DeviceCount int       `json:"device_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Active reports whether the office lifecycle flag is active.
func (o Office) Active() bool {
	return o.Status == OfficeActive
}

// Normalize fills creation defaults.
func (o *Office) Normalize(now time.Time) {
	if o.Status == "" {
		o.Status = OfficeActive
	}
	if o.Geo.Source == "" {
		o.Geo.Source = "manual"
	}
	if o.DeviceIDs == nil {
		o.DeviceIDs = []string{}
	}
	if o.ContactInfo == nil {
		o.ContactInfo = map[string]any{}
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now.UTC()
	}
	o.UpdatedAt = now.UTC()
}

// OfficeFilter narrows office listings by exact field match.
type OfficeFilter struct {
	Office  string
	City    string
	Country string
}

func (f OfficeFilter) Match(o Office) bool {
	if f.Office != "" && o.Office != f.Office {
		return false
	}
	if f.City != "" && o.City != f.City {
		return false
	}
	if f.Country != "" && o.Country != f.Country {
		return false
	}
	return true
}

// Device is the mutable registry entry for a host. Metadata set here
// overrides what the metric stream reports for the same host id.
type Device struct {
	HostID       string    `json:"hostid" validate:"required"`
	DeviceID     string    `json:"device_id" validate:"required"`
	Location     string    `json:"location"`
	Geo          *Geo      `json:"geo,omitempty"`
	DeviceType   string    `json:"device_type"`
	DeviceStatus string    `json:"device_status"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ValidDeviceStatus reports whether s is occupied or available.
func ValidDeviceStatus(s string) bool {
	return s == DeviceOccupied || s == DeviceAvailable
}
