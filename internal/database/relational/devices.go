package relational

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"netmon/internal/database"
	"netmon/internal/model"
)

const deviceColumns = `
	hostid, device_id, COALESCE(location, ''),
	has_geo, geo_lat, geo_lon, geo_city, geo_country, geo_source,
	COALESCE(device_type, ''), COALESCE(device_status, ''), updated_at
`

func scanDevice(row rowScanner) (model.Device, error) {
	var (
		d model.Device
		g geoCols
	)
	err := row.Scan(
		&d.HostID, &d.DeviceID, &d.Location,
		&g.has, &g.lat, &g.lon, &g.city, &g.country, &g.source,
		&d.DeviceType, &d.DeviceStatus, &d.UpdatedAt,
	)
	if err != nil {
		return model.Device{}, err
	}
	d.Geo = g.geo()
	d.UpdatedAt = d.UpdatedAt.UTC()
	return d, nil
}

func (r *Repo) GetDevice(ctx context.Context, hostID string) (model.Device, error) {
	d, err := scanDevice(r.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE hostid = ?`, hostID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Device{}, fmt.Errorf("device %s: %w", hostID, database.ErrNotFound)
	}
	if err != nil {
		return model.Device{}, fmt.Errorf("get device: %w", err)
	}
	return d, nil
}

// UpsertDevice writes the registry entry for d.HostID.
func (r *Repo) UpsertDevice(ctx context.Context, d model.Device) error {
	if d.HostID == "" {
		return errors.New("upsert device: hostid required")
	}
	g := geoColumns(d.Geo)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO devices(
		  hostid, device_id, location,
		  has_geo, geo_lat, geo_lon, geo_city, geo_country, geo_source,
		  device_type, device_status, updated_at
		) VALUES (?,?,?, ?,?,?,?,?,?, ?,?,?)
		ON CONFLICT(hostid) DO UPDATE SET
		  device_id     = excluded.device_id,
		  location      = excluded.location,
		  has_geo       = excluded.has_geo,
		  geo_lat       = excluded.geo_lat,
		  geo_lon       = excluded.geo_lon,
		  geo_city      = excluded.geo_city,
		  geo_country   = excluded.geo_country,
		  geo_source    = excluded.geo_source,
		  device_type   = excluded.device_type,
		  device_status = excluded.device_status,
		  updated_at    = excluded.updated_at
	`,
		d.HostID, d.DeviceID, nullStr(d.Location),
		g.has, g.lat, g.lon, g.city, g.country, g.source,
		nullStr(d.DeviceType), nullStr(d.DeviceStatus), r.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert device: %w", err)
	}
	return nil
}

func (r *Repo) ListDevices(ctx context.Context) ([]model.Device, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+deviceColumns+` FROM devices ORDER BY hostid`)
	if err != nil {
		return nil, fmt.Errorf("query devices failed: %w", err)
	}
	defer rows.Close()

	devices := []model.Device{}
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan device failed: %w", err)
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return devices, nil
}

func (r *Repo) DeleteDevice(ctx context.Context, hostID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM devices WHERE hostid = ?`, hostID)
	if err != nil {
		return fmt.Errorf("delete device: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("device %s: %w", hostID, database.ErrNotFound)
	}
	return nil
}
