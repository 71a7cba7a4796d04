// Package model holds the records netmon ingests and stores: metric
// observations, alert events, offices and device registry entries.
package model

import (
	"encoding/json"
	"time"
)

const (
	// GlobalIface marks host-level metrics that belong to no interface.
	GlobalIface = "_global"

	DefaultValueType = "gauge"
	DefaultSeverity  = "info"
)

// Geo is a coordinate pair with an optional place name and source tag.
type Geo struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	City    string  `json:"city,omitempty"`
	Country string  `json:"country,omitempty"`
	Source  string  `json:"source,omitempty"`
}

// Meta identifies where a metric came from.
type Meta struct {
	HostID     string     `json:"hostid,omitempty"`
	DeviceID   string     `json:"device_id,omitempty"`
	IfIndex    FlexString `json:"ifindex,omitempty"`
	IfDescr    string     `json:"ifdescr,omitempty"`
	Iface      string     `json:"iface,omitempty"`
	Location   string     `json:"location,omitempty"`
	Geo        *Geo       `json:"geo,omitempty"`
	DeviceType string     `json:"device_type,omitempty"`
	ServerType string     `json:"server_type,omitempty"`
}

// Metric is one time-stamped observation. Metrics are append-only.
type Metric struct {
	Timestamp time.Time `json:"-"`
	Meta      Meta      `json:"meta"`
	Name      string    `json:"metric"`
	Value     Value     `json:"value"`
	ValueType string    `json:"value_type,omitempty"`
}

type metricAlias Metric

func (m Metric) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		TS int64 `json:"ts"`
		metricAlias
	}{TS: Epoch(m.Timestamp), metricAlias: metricAlias(m)})
}

func (m *Metric) UnmarshalJSON(b []byte) error {
	aux := struct {
		TS json.RawMessage `json:"ts"`
		*metricAlias
	}{metricAlias: (*metricAlias)(m)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if t, ok := ParseEpoch(aux.TS); ok {
		m.Timestamp = t
	}
	return nil
}

// Normalize fills ingestion defaults.
func (m *Metric) Normalize(now time.Time) {
	if m.Timestamp.IsZero() {
		m.Timestamp = now.UTC()
	}
	if m.ValueType == "" {
		m.ValueType = DefaultValueType
	}
}

// HasInterface reports whether the metric carries interface identity.
func (m Metric) HasInterface() bool {
	return m.Meta.IfIndex != "" || m.Meta.IfDescr != ""
}

// Event is an alert detected for a device. Events are append-only.
type Event struct {
	DeviceID   string         `json:"device_id,omitempty"`
	HostID     string         `json:"hostid,omitempty"`
	Iface      string         `json:"iface,omitempty"`
	Metric     string         `json:"metric,omitempty"`
	Value      Value          `json:"value"`
	Status     string         `json:"status,omitempty"`
	Severity   string         `json:"severity"`
	DetectedAt time.Time      `json:"-"`
	Evidence   map[string]any `json:"evidence,omitempty"`
	Labels     []string       `json:"labels,omitempty"`
}

type eventAlias Event

func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		DetectedAt int64 `json:"detected_at"`
		eventAlias
	}{DetectedAt: Epoch(e.DetectedAt), eventAlias: eventAlias(e)})
}

func (e *Event) UnmarshalJSON(b []byte) error {
	aux := struct {
		DetectedAt json.RawMessage `json:"detected_at"`
		*eventAlias
	}{eventAlias: (*eventAlias)(e)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if t, ok := ParseEpoch(aux.DetectedAt); ok {
		e.DetectedAt = t
	}
	return nil
}

// Normalize fills ingestion defaults.
func (e *Event) Normalize(now time.Time) {
	if e.DetectedAt.IsZero() {
		e.DetectedAt = now.UTC()
	}
	if e.Severity == "" {
		e.Severity = DefaultSeverity
	}
}
