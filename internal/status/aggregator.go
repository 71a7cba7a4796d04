// Package status turns a host's raw metric observations into per-interface
// operational states and troubleshooting hints.
package status

import (
	"sort"
	"strings"
	"time"

	"netmon/internal/model"
)

type Status string

const (
	StatusUp      Status = "up"
	StatusDown    Status = "down"
	StatusUnknown Status = "unknown"

	// OperationalMetric is matched case-sensitively as a substring of the metric name.
	OperationalMetric = "Operational status"

	// GlobalKey groups metrics with neither an interface description nor an index.
	GlobalKey = "_global"

	DefaultMaxMetrics = 5
)

// Options tunes Aggregate. The zero value keeps DefaultMaxMetrics per state.
type Options struct {
	// MaxMetrics caps the observations kept on each state, newest first.
	// Zero means DefaultMaxMetrics; a negative value keeps everything.
	MaxMetrics int
	// WithHints attaches troubleshooting hints to each state.
	WithHints bool
}

// InterfaceState is the derived status of one interface group.
type InterfaceState struct {
	Key         string         `json:"key"`
	IfIndex     string         `json:"ifindex,omitempty"`
	IfDescr     string         `json:"ifdescr,omitempty"`
	Status      Status         `json:"status"`
	LastSeen    time.Time      `json:"last_seen"`
	Metrics     []model.Metric `json:"metrics"`
	MetricCount int            `json:"metric_count"`
	Issues      []string       `json:"issues,omitempty"`
	Suggestions []string       `json:"suggestions,omitempty"`
}

// GroupKey returns the interface grouping key for a metric. The description
// wins over the index, so two indices sharing a description collapse into one
// group.
func GroupKey(m model.Metric) string {
	if m.Meta.IfDescr != "" {
		return m.Meta.IfDescr
	}
	if m.Meta.IfIndex != "" {
		return string(m.Meta.IfIndex)
	}
	return GlobalKey
}

// Resolve scans metrics in order and returns the status decided by the first
// numeric operational status observation.
func Resolve(metrics []model.Metric) Status {
	for _, m := range metrics {
		if !strings.Contains(m.Name, OperationalMetric) {
			continue
		}
		v, ok := m.Value.Float()
		if !ok {
			continue
		}
		if v == 1 {
			return StatusUp
		}
		return StatusDown
	}
	return StatusUnknown
}

// Aggregate groups one host's observations by interface and resolves each
// group's status. The input is copied and sorted newest first before any
// resolution, so the newest operational status observation decides.
func Aggregate(metrics []model.Metric, opts Options) []InterfaceState {
	sorted := make([]model.Metric, len(metrics))
	copy(sorted, metrics)
	model.SortMetrics(sorted, false)

	groups := make(map[string]*InterfaceState)
	members := make(map[string][]model.Metric)
	var order []string

	for _, m := range sorted {
		key := GroupKey(m)
		st, ok := groups[key]
		if !ok {
			st = &InterfaceState{Key: key}
			groups[key] = st
			order = append(order, key)
		}
		if st.IfIndex == "" && m.Meta.IfIndex != "" {
			st.IfIndex = string(m.Meta.IfIndex)
		}
		if st.IfDescr == "" && m.Meta.IfDescr != "" {
			st.IfDescr = m.Meta.IfDescr
		}
		if m.Timestamp.After(st.LastSeen) {
			st.LastSeen = m.Timestamp
		}
		members[key] = append(members[key], m)
	}

	limit := opts.MaxMetrics
	if limit == 0 {
		limit = DefaultMaxMetrics
	}

	states := make([]InterfaceState, 0, len(order))
	for _, key := range order {
		st := groups[key]
		group := members[key]
		st.Status = Resolve(group)
		st.MetricCount = len(group)
		if limit > 0 && len(group) > limit {
			group = group[:limit]
		}
		st.Metrics = group
		if opts.WithHints {
			h := Suggest(displayName(*st), st.Status)
			st.Issues = h.Issues
			st.Suggestions = h.Suggestions
		}
		states = append(states, *st)
	}

	sort.SliceStable(states, func(i, j int) bool {
		if !states[i].LastSeen.Equal(states[j].LastSeen) {
			return states[i].LastSeen.After(states[j].LastSeen)
		}
		return states[i].Key < states[j].Key
	})
	return states
}

// Summary counts states per status.
type Summary struct {
	Total   int `json:"total"`
	Up      int `json:"up"`
	Down    int `json:"down"`
	Unknown int `json:"unknown"`
}

func Summarize(states []InterfaceState) Summary {
	s := Summary{Total: len(states)}
	for _, st := range states {
		switch st.Status {
		case StatusUp:
			s.Up++
		case StatusDown:
			s.Down++
		default:
			s.Unknown++
		}
	}
	return s
}

func displayName(st InterfaceState) string {
	if st.IfDescr != "" {
		return st.IfDescr
	}
	if st.IfIndex != "" {
		return "ifIndex " + st.IfIndex
	}
	return "host"
}
