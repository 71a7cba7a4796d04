package relational

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"netmon/internal/model"
)

// Stats summarises the stored streams.
func (r *Repo) Stats(ctx context.Context) (model.StoreStats, error) {
	var (
		st             model.StoreStats
		oldest, newest sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT COALESCE(device_id, '')), MIN(ts), MAX(ts)
		FROM metrics
	`).Scan(&st.Metrics, &st.Devices, &oldest, &newest)
	if err != nil {
		return model.StoreStats{}, fmt.Errorf("metric stats: %w", err)
	}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&st.Events); err != nil {
		return model.StoreStats{}, fmt.Errorf("event stats: %w", err)
	}
	if oldest.Valid {
		t := oldest.Time.UTC()
		st.DateRange.Oldest = &t
	}
	if newest.Valid {
		t := newest.Time.UTC()
		st.DateRange.Newest = &t
	}
	return st, nil
}

type deviceCounts struct {
	deviceID   string
	total, old int64
}

// Prune keeps each device's newest KeepCount metrics and drops events
// detected before the cutoff.
func (r *Repo) Prune(ctx context.Context, plan model.PrunePlan) (model.PruneResult, error) {
	cutoff := plan.Cutoff(r.now())
	res := model.PruneResult{Cutoff: cutoff, DryRun: plan.DryRun}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return res, err
	}
	defer func() { _ = tx.Rollback() }()

	// Read every per-device count before issuing more statements: the pool
	// holds a single connection.
	counts, err := readDeviceCounts(ctx, tx, cutoff)
	if err != nil {
		return res, err
	}

	for _, c := range counts {
		keep := plan.KeepCount(c.total, c.old)
		if keep >= c.total {
			continue
		}

		var threshold time.Time
		err := tx.QueryRowContext(ctx, `
			SELECT ts FROM metrics
			WHERE COALESCE(device_id, '') = ?
			ORDER BY ts DESC
			LIMIT 1 OFFSET ?
		`, c.deviceID, keep-1).Scan(&threshold)
		if err != nil {
			return res, fmt.Errorf("threshold for %q: %w", c.deviceID, err)
		}

		n, err := countOrDelete(ctx, tx, plan.DryRun,
			`FROM metrics WHERE COALESCE(device_id, '') = ? AND ts < ?`, c.deviceID, threshold)
		if err != nil {
			return res, fmt.Errorf("prune metrics for %q: %w", c.deviceID, err)
		}
		res.MetricsDeleted += n
	}

	n, err := countOrDelete(ctx, tx, plan.DryRun, `FROM events WHERE detected_at < ?`, cutoff)
	if err != nil {
		return res, fmt.Errorf("prune events: %w", err)
	}
	res.EventsDeleted = n

	if err := tx.Commit(); err != nil {
		return res, err
	}
	return res, nil
}

func readDeviceCounts(ctx context.Context, tx *sql.Tx, cutoff time.Time) ([]deviceCounts, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT COALESCE(device_id, ''),
		       COUNT(*),
		       COUNT(CASE WHEN ts < ? THEN 1 END)
		FROM metrics
		GROUP BY 1
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("count metrics per device: %w", err)
	}
	defer rows.Close()

	var out []deviceCounts
	for rows.Next() {
		var c deviceCounts
		if err := rows.Scan(&c.deviceID, &c.total, &c.old); err != nil {
			return nil, fmt.Errorf("scan device counts: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// countOrDelete runs "SELECT COUNT(*) <from>" on a dry run and
// "DELETE <from>" otherwise, returning the affected row count.
func countOrDelete(ctx context.Context, tx *sql.Tx, dryRun bool, from string, args ...any) (int64, error) {
	if dryRun {
		var n int64
		err := tx.QueryRowContext(ctx, `SELECT COUNT(*) `+from, args...).Scan(&n)
		return n, err
	}
	res, err := tx.ExecContext(ctx, `DELETE `+from, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
