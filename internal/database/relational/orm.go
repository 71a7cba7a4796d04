// Schema notes:
//   - metrics and events are append-only fact tables; ids come from sequences.
//   - A metric value is split into value_num/value_text so the JSON kind
//     survives the round trip; exactly one of them is set.
//   - geo is flattened into columns, with has_geo telling "no geo" apart
//     from a (0, 0) coordinate.
//   - offices and devices are small mutable registries. Office identity
//     (office, city, country) is enforced in Go inside a transaction: DuckDB
//     rewrites updates of indexed columns as delete+insert, which trips
//     unique indexes on legitimate updates.
//
// Driver: github.com/marcboeker/go-duckdb
package relational

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"netmon/internal/database"
	"netmon/internal/model"
)

// =============================================================================
// SCHEMA SQL
// =============================================================================

const SchemaSQL = `
CREATE SEQUENCE IF NOT EXISTS metrics_seq START 1;
CREATE SEQUENCE IF NOT EXISTS events_seq START 1;

CREATE TABLE IF NOT EXISTS metrics (
  metric_id    BIGINT PRIMARY KEY DEFAULT nextval('metrics_seq'),
  ts           TIMESTAMP NOT NULL,
  hostid       VARCHAR,
  device_id    VARCHAR,
  ifindex      VARCHAR,
  ifdescr      VARCHAR,
  iface        VARCHAR,
  location     VARCHAR,
  has_geo      BOOLEAN NOT NULL DEFAULT false,
  geo_lat      DOUBLE,
  geo_lon      DOUBLE,
  geo_city     VARCHAR,
  geo_country  VARCHAR,
  geo_source   VARCHAR,
  device_type  VARCHAR,
  server_type  VARCHAR,
  metric       VARCHAR NOT NULL,
  value_num    DOUBLE,
  value_text   VARCHAR,
  value_type   VARCHAR NOT NULL DEFAULT 'gauge'
);

CREATE TABLE IF NOT EXISTS events (
  event_id     BIGINT PRIMARY KEY DEFAULT nextval('events_seq'),
  detected_at  TIMESTAMP NOT NULL,
  hostid       VARCHAR,
  device_id    VARCHAR,
  iface        VARCHAR,
  metric       VARCHAR,
  value_num    DOUBLE,
  value_text   VARCHAR,
  status       VARCHAR,
  severity     VARCHAR NOT NULL DEFAULT 'info',
  evidence     VARCHAR,
  labels       VARCHAR
);

CREATE TABLE IF NOT EXISTS offices (
  office_id    VARCHAR PRIMARY KEY,
  office       VARCHAR NOT NULL,
  city         VARCHAR NOT NULL,
  country      VARCHAR NOT NULL,
  geo_lat      DOUBLE,
  geo_lon      DOUBLE,
  geo_source   VARCHAR,
  description  VARCHAR,
  contact_info VARCHAR,
  device_ids   VARCHAR,
  status       VARCHAR NOT NULL,
  created_at   TIMESTAMP NOT NULL,
  updated_at   TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS devices (
  hostid        VARCHAR PRIMARY KEY,
  device_id     VARCHAR NOT NULL,
  location      VARCHAR,
  has_geo       BOOLEAN NOT NULL DEFAULT false,
  geo_lat       DOUBLE,
  geo_lon       DOUBLE,
  geo_city      VARCHAR,
  geo_country   VARCHAR,
  geo_source    VARCHAR,
  device_type   VARCHAR,
  device_status VARCHAR,
  updated_at    TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_metrics_host_ts ON metrics(hostid, ts);
CREATE INDEX IF NOT EXISTS idx_metrics_device_metric ON metrics(device_id, metric);
CREATE INDEX IF NOT EXISTS idx_events_device_detected ON events(device_id, detected_at);
`

// =============================================================================
// REPO IMPLEMENTATION
// =============================================================================

type Repo struct {
	db  *sql.DB
	now func() time.Time
}

var _ database.Store = (*Repo)(nil)

func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db, now: time.Now}
}

func (r *Repo) Close() error {
	return r.db.Close()
}

func (r *Repo) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, SchemaSQL)
	return err
}

func (r *Repo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// InsertMetrics appends metrics in one transaction.
func (r *Repo) InsertMetrics(ctx context.Context, metrics []model.Metric) (int, error) {
	if len(metrics) == 0 {
		return 0, nil
	}
	now := r.now()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO metrics(
		  ts, hostid, device_id, ifindex, ifdescr, iface, location,
		  has_geo, geo_lat, geo_lon, geo_city, geo_country, geo_source,
		  device_type, server_type, metric, value_num, value_text, value_type
		) VALUES (?,?,?,?,?,?,?, ?,?,?,?,?,?, ?,?,?,?,?,?)
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare metric insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range metrics {
		m.Normalize(now)
		g := geoColumns(m.Meta.Geo)
		num, text := valueColumns(m.Value)
		_, err := stmt.ExecContext(ctx,
			m.Timestamp.UTC(), nullStr(m.Meta.HostID), nullStr(m.Meta.DeviceID),
			nullStr(string(m.Meta.IfIndex)), nullStr(m.Meta.IfDescr), nullStr(m.Meta.Iface), nullStr(m.Meta.Location),
			g.has, g.lat, g.lon, g.city, g.country, g.source,
			nullStr(m.Meta.DeviceType), nullStr(m.Meta.ServerType), m.Name, num, text, m.ValueType,
		)
		if err != nil {
			return 0, fmt.Errorf("insert metric: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(metrics), nil
}

// InsertEvents appends events in one transaction.
func (r *Repo) InsertEvents(ctx context.Context, events []model.Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	now := r.now()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events(
		  detected_at, hostid, device_id, iface, metric,
		  value_num, value_text, status, severity, evidence, labels
		) VALUES (?,?,?,?,?, ?,?,?,?,?,?)
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare event insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		e.Normalize(now)
		num, text := valueColumns(e.Value)
		evidence, err := nullJSON(e.Evidence, len(e.Evidence) == 0)
		if err != nil {
			return 0, fmt.Errorf("encode evidence: %w", err)
		}
		labels, err := nullJSON(e.Labels, len(e.Labels) == 0)
		if err != nil {
			return 0, fmt.Errorf("encode labels: %w", err)
		}
		_, err = stmt.ExecContext(ctx,
			e.DetectedAt.UTC(), nullStr(e.HostID), nullStr(e.DeviceID), nullStr(e.Iface), nullStr(e.Metric),
			num, text, nullStr(e.Status), e.Severity, evidence, labels,
		)
		if err != nil {
			return 0, fmt.Errorf("insert event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(events), nil
}

// DeleteHostData removes every metric and event of a host.
func (r *Repo) DeleteHostData(ctx context.Context, hostID string) (int64, int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM metrics WHERE hostid = ?`, hostID)
	if err != nil {
		return 0, 0, fmt.Errorf("delete metrics: %w", err)
	}
	metrics, _ := res.RowsAffected()

	res, err = tx.ExecContext(ctx, `DELETE FROM events WHERE hostid = ?`, hostID)
	if err != nil {
		return 0, 0, fmt.Errorf("delete events: %w", err)
	}
	events, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}
	return metrics, events, nil
}

// =============================================================================
// HELPERS
// =============================================================================

type geoCols struct {
	has                   bool
	lat, lon              sql.NullFloat64
	city, country, source sql.NullString
}

func geoColumns(g *model.Geo) geoCols {
	if g == nil {
		return geoCols{}
	}
	return geoCols{
		has:     true,
		lat:     nullFloat(g.Lat),
		lon:     nullFloat(g.Lon),
		city:    nullStr(g.City),
		country: nullStr(g.Country),
		source:  nullStr(g.Source),
	}
}

func (g geoCols) geo() *model.Geo {
	if !g.has {
		return nil
	}
	return &model.Geo{
		Lat:     g.lat.Float64,
		Lon:     g.lon.Float64,
		City:    g.city.String,
		Country: g.country.String,
		Source:  g.source.String,
	}
}

func valueColumns(v model.Value) (sql.NullFloat64, sql.NullString) {
	if f, ok := v.Float(); ok {
		return nullFloat(f), sql.NullString{}
	}
	if v.IsZero() {
		return sql.NullFloat64{}, sql.NullString{}
	}
	return sql.NullFloat64{}, sql.NullString{String: v.String(), Valid: true}
}

func valueFrom(num sql.NullFloat64, text sql.NullString) model.Value {
	switch {
	case num.Valid:
		return model.Number(num.Float64)
	case text.Valid:
		return model.Text(text.String)
	default:
		return model.Value{}
	}
}

func nullJSON(v any, empty bool) (sql.NullString, error) {
	if empty {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeJSON(s sql.NullString, into any) error {
	if !s.Valid || s.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(s.String), into)
}

// Null helpers
func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
