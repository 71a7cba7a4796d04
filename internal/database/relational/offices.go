package relational

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"netmon/internal/database"
	"netmon/internal/model"
)

const officeColumns = `
	office_id, office, city, country, geo_lat, geo_lon, geo_source,
	description, contact_info, device_ids, status, created_at, updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOffice(row rowScanner) (model.Office, error) {
	var (
		o                   model.Office
		lat, lon            sql.NullFloat64
		source, description sql.NullString
		contact, deviceIDs  sql.NullString
	)
	err := row.Scan(
		&o.ID, &o.Office, &o.City, &o.Country, &lat, &lon, &source,
		&description, &contact, &deviceIDs, &o.Status, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return model.Office{}, err
	}
	o.Geo = model.Geo{Lat: lat.Float64, Lon: lon.Float64, Source: source.String}
	o.Description = description.String
	if err := decodeJSON(contact, &o.ContactInfo); err != nil {
		return model.Office{}, fmt.Errorf("decode contact_info: %w", err)
	}
	if err := decodeJSON(deviceIDs, &o.DeviceIDs); err != nil {
		return model.Office{}, fmt.Errorf("decode device_ids: %w", err)
	}
	if o.ContactInfo == nil {
		o.ContactInfo = map[string]any{}
	}
	if o.DeviceIDs == nil {
		o.DeviceIDs = []string{}
	}
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	return o, nil
}

// ListOffices returns offices ordered by country, city, office.
func (r *Repo) ListOffices(ctx context.Context, f model.OfficeFilter) ([]model.Office, error) {
	query := `SELECT ` + officeColumns + ` FROM offices WHERE 1=1`
	args := []any{}
	if f.Office != "" {
		query += " AND office = ?"
		args = append(args, f.Office)
	}
	if f.City != "" {
		query += " AND city = ?"
		args = append(args, f.City)
	}
	if f.Country != "" {
		query += " AND country = ?"
		args = append(args, f.Country)
	}
	query += " ORDER BY country, city, office"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query offices failed: %w", err)
	}
	defer rows.Close()

	offices := []model.Office{}
	for rows.Next() {
		o, err := scanOffice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan office failed: %w", err)
		}
		offices = append(offices, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return offices, nil
}

// GetOffice looks an office up by id, then by office name.
func (r *Repo) GetOffice(ctx context.Context, idOrName string) (model.Office, error) {
	return r.getOffice(ctx, r.db, idOrName)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *Repo) getOffice(ctx context.Context, q querier, idOrName string) (model.Office, error) {
	o, err := scanOffice(q.QueryRowContext(ctx,
		`SELECT `+officeColumns+` FROM offices WHERE office_id = ?`, idOrName))
	if err == nil {
		return o, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return model.Office{}, err
	}

	o, err = scanOffice(q.QueryRowContext(ctx,
		`SELECT `+officeColumns+` FROM offices WHERE office = ? ORDER BY country, city LIMIT 1`, idOrName))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Office{}, fmt.Errorf("office %s: %w", idOrName, database.ErrNotFound)
	}
	return o, err
}

func tripleTaken(ctx context.Context, tx *sql.Tx, o model.Office) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM offices
		WHERE office = ? AND city = ? AND country = ? AND office_id <> ?
	`, o.Office, o.City, o.Country, o.ID).Scan(&n)
	return n > 0, err
}

// CreateOffice inserts an office, assigning an id and creation defaults.
func (r *Repo) CreateOffice(ctx context.Context, o model.Office) (model.Office, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	o.Normalize(r.now())

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Office{}, err
	}
	defer func() { _ = tx.Rollback() }()

	taken, err := tripleTaken(ctx, tx, o)
	if err != nil {
		return model.Office{}, fmt.Errorf("check office identity: %w", err)
	}
	if taken {
		return model.Office{}, fmt.Errorf("office %s/%s/%s: %w", o.Country, o.City, o.Office, database.ErrConflict)
	}

	contact, deviceIDs, err := officeJSON(o)
	if err != nil {
		return model.Office{}, err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO offices(`+officeColumns+`)
		VALUES (?,?,?,?,?,?,?, ?,?,?,?,?,?)
	`,
		o.ID, o.Office, o.City, o.Country, nullFloat(o.Geo.Lat), nullFloat(o.Geo.Lon), nullStr(o.Geo.Source),
		o.Description, contact, deviceIDs, o.Status, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return model.Office{}, fmt.Errorf("insert office: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.Office{}, err
	}
	return o, nil
}

// UpdateOffice replaces the mutable fields of an existing office.
func (r *Repo) UpdateOffice(ctx context.Context, o model.Office) (model.Office, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Office{}, err
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := r.getOffice(ctx, tx, o.ID)
	if err != nil {
		return model.Office{}, err
	}
	o.ID = cur.ID
	o.CreatedAt = cur.CreatedAt
	o.Normalize(r.now())

	taken, err := tripleTaken(ctx, tx, o)
	if err != nil {
		return model.Office{}, fmt.Errorf("check office identity: %w", err)
	}
	if taken {
		return model.Office{}, fmt.Errorf("office %s/%s/%s: %w", o.Country, o.City, o.Office, database.ErrConflict)
	}

	contact, deviceIDs, err := officeJSON(o)
	if err != nil {
		return model.Office{}, err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE offices
		SET office = ?, city = ?, country = ?,
		    geo_lat = ?, geo_lon = ?, geo_source = ?,
		    description = ?, contact_info = ?, device_ids = ?,
		    status = ?, updated_at = ?
		WHERE office_id = ?
	`,
		o.Office, o.City, o.Country,
		nullFloat(o.Geo.Lat), nullFloat(o.Geo.Lon), nullStr(o.Geo.Source),
		o.Description, contact, deviceIDs,
		o.Status, o.UpdatedAt, o.ID,
	)
	if err != nil {
		return model.Office{}, fmt.Errorf("update office: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.Office{}, err
	}
	return o, nil
}

func (r *Repo) DeleteOffice(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := r.getOffice(ctx, tx, id)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM offices WHERE office_id = ?`, cur.ID); err != nil {
		return fmt.Errorf("delete office: %w", err)
	}
	return tx.Commit()
}

func (r *Repo) CountOffices(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM offices`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count offices: %w", err)
	}
	return n, nil
}

func officeJSON(o model.Office) (sql.NullString, sql.NullString, error) {
	contact, err := nullJSON(o.ContactInfo, false)
	if err != nil {
		return sql.NullString{}, sql.NullString{}, fmt.Errorf("encode contact_info: %w", err)
	}
	deviceIDs, err := nullJSON(o.DeviceIDs, false)
	if err != nil {
		return sql.NullString{}, sql.NullString{}, fmt.Errorf("encode device_ids: %w", err)
	}
	return contact, deviceIDs, nil
}
