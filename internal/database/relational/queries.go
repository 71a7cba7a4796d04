package relational

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"netmon/internal/model"
)

const metricColumns = `
	ts, COALESCE(hostid, ''), COALESCE(device_id, ''), COALESCE(ifindex, ''), COALESCE(ifdescr, ''),
	COALESCE(iface, ''), COALESCE(location, ''),
	has_geo, geo_lat, geo_lon, geo_city, geo_country, geo_source,
	COALESCE(device_type, ''), COALESCE(server_type, ''), metric, value_num, value_text, value_type
`

// buildMetricQuery translates a MetricFilter into SQL. It must select the
// same rows as MetricFilter.Match.
func buildMetricQuery(f model.MetricFilter) (string, []any) {
	query := `SELECT ` + metricColumns + ` FROM metrics WHERE 1=1`
	args := []any{}

	if f.HostID != "" {
		query += " AND hostid = ?"
		args = append(args, f.HostID)
	}
	if len(f.HostIDs) > 0 {
		query += " AND hostid IN (" + placeholders(len(f.HostIDs)) + ")"
		for _, id := range f.HostIDs {
			args = append(args, id)
		}
	}
	if f.DeviceID != "" {
		query += " AND device_id = ?"
		args = append(args, f.DeviceID)
	}
	if f.Metric != "" {
		query += " AND metric = ?"
		args = append(args, f.Metric)
	}
	if f.MetricPattern != "" {
		query += " AND contains(lower(metric), lower(?))"
		args = append(args, f.MetricPattern)
	}
	if f.Location != "" {
		query += " AND contains(lower(COALESCE(location, '')), lower(?))"
		args = append(args, f.Location)
	}
	if f.ServerType != "" {
		query += " AND server_type = ?"
		args = append(args, f.ServerType)
	}
	if f.ExcludeInfrastructure {
		query += " AND NOT regexp_matches(COALESCE(device_id, ''), 'zabbix|server', 'i')"
	}
	if f.ExcludeGlobalIface {
		query += " AND COALESCE(iface, '') <> ?"
		args = append(args, model.GlobalIface)
	}
	if f.InterfacesOnly {
		query += " AND COALESCE(ifindex, '') <> ''"
	}
	if !f.Since.IsZero() {
		query += " AND ts >= ?"
		args = append(args, f.Since.UTC())
	}
	if !f.Until.IsZero() {
		query += " AND ts <= ?"
		args = append(args, f.Until.UTC())
	}

	if f.Ascending {
		query += " ORDER BY ts ASC, metric_id ASC"
	} else {
		query += " ORDER BY ts DESC, metric_id ASC"
	}
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	return query, args
}

// FindMetrics retrieves metrics matching the filter.
func (r *Repo) FindMetrics(ctx context.Context, f model.MetricFilter) ([]model.Metric, error) {
	query, args := buildMetricQuery(f)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query metrics failed: %w", err)
	}
	defer rows.Close()

	metrics := []model.Metric{} // Initialize as empty slice, not nil
	for rows.Next() {
		var (
			m       model.Metric
			ifindex string
			g       geoCols
			num     sql.NullFloat64
			text    sql.NullString
		)
		err := rows.Scan(
			&m.Timestamp, &m.Meta.HostID, &m.Meta.DeviceID, &ifindex, &m.Meta.IfDescr,
			&m.Meta.Iface, &m.Meta.Location,
			&g.has, &g.lat, &g.lon, &g.city, &g.country, &g.source,
			&m.Meta.DeviceType, &m.Meta.ServerType, &m.Name, &num, &text, &m.ValueType,
		)
		if err != nil {
			return nil, fmt.Errorf("scan metric failed: %w", err)
		}
		m.Timestamp = m.Timestamp.UTC()
		m.Meta.IfIndex = model.FlexString(ifindex)
		m.Meta.Geo = g.geo()
		m.Value = valueFrom(num, text)
		metrics = append(metrics, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return metrics, nil
}

// FindEvents retrieves events matching the filter, newest first.
func (r *Repo) FindEvents(ctx context.Context, f model.EventFilter) ([]model.Event, error) {
	query := `
		SELECT
			detected_at,
			COALESCE(hostid, ''),
			COALESCE(device_id, ''),
			COALESCE(iface, ''),
			COALESCE(metric, ''),
			value_num,
			value_text,
			COALESCE(status, ''),
			severity,
			evidence,
			labels
		FROM events
		WHERE 1=1
	`
	args := []any{}

	if f.HostID != "" {
		query += " AND hostid = ?"
		args = append(args, f.HostID)
	}
	if len(f.HostIDs) > 0 {
		query += " AND hostid IN (" + placeholders(len(f.HostIDs)) + ")"
		for _, id := range f.HostIDs {
			args = append(args, id)
		}
	}
	if f.DeviceID != "" {
		query += " AND device_id = ?"
		args = append(args, f.DeviceID)
	}
	if f.Severity != "" {
		query += " AND severity = ?"
		args = append(args, f.Severity)
	}
	if !f.Since.IsZero() {
		query += " AND detected_at >= ?"
		args = append(args, f.Since.UTC())
	}
	if !f.Until.IsZero() {
		query += " AND detected_at <= ?"
		args = append(args, f.Until.UTC())
	}

	query += " ORDER BY detected_at DESC, event_id ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events failed: %w", err)
	}
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		var (
			e                model.Event
			num              sql.NullFloat64
			text             sql.NullString
			evidence, labels sql.NullString
		)
		err := rows.Scan(
			&e.DetectedAt, &e.HostID, &e.DeviceID, &e.Iface, &e.Metric,
			&num, &text, &e.Status, &e.Severity, &evidence, &labels,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event failed: %w", err)
		}
		e.DetectedAt = e.DetectedAt.UTC()
		e.Value = valueFrom(num, text)
		if err := decodeJSON(evidence, &e.Evidence); err != nil {
			return nil, fmt.Errorf("decode evidence: %w", err)
		}
		if err := decodeJSON(labels, &e.Labels); err != nil {
			return nil, fmt.Errorf("decode labels: %w", err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return events, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
