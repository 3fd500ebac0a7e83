package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/Mb29661/LV418/internal/models"
)

type ReadingSQLite struct {
	db *sql.DB
}

func NewReadingSQLite(db *sql.DB) *ReadingSQLite {
	return &ReadingSQLite{db: db}
}

var _ Readings = (*ReadingSQLite)(nil)

const (
	upsertReadingSQLite = `
		INSERT INTO readings (timestamp, t01_return, t02_flow, t04_outdoor, t06_tank,
			t12_compressor, t33_comp_freq, t39_power_kw, d12_flow_rate,
			cop_calculated, heat_power_kw, mode)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(timestamp) DO UPDATE SET
			t01_return=excluded.t01_return,
			t02_flow=excluded.t02_flow,
			t04_outdoor=excluded.t04_outdoor,
			t06_tank=excluded.t06_tank,
			t12_compressor=excluded.t12_compressor,
			t33_comp_freq=excluded.t33_comp_freq,
			t39_power_kw=excluded.t39_power_kw,
			d12_flow_rate=excluded.d12_flow_rate,
			cop_calculated=excluded.cop_calculated,
			heat_power_kw=excluded.heat_power_kw,
			mode=excluded.mode
	`

	insertIfAbsentSQLite = `
		INSERT OR IGNORE INTO readings (timestamp, t02_flow, t06_tank, t04_outdoor, t39_power_kw)
		VALUES (?, ?, ?, ?, ?)
	`

	listSinceSQLite = `
		SELECT timestamp, t01_return, t02_flow, t04_outdoor, t06_tank,
			t12_compressor, t33_comp_freq, t39_power_kw, d12_flow_rate,
			cop_calculated, heat_power_kw, mode
		FROM readings WHERE timestamp > ? ORDER BY timestamp ASC
	`

	statsSQL = `SELECT COUNT(*), MIN(timestamp), MAX(timestamp) FROM readings`
)

// bucket normalizes a reading timestamp to its UTC hour bucket, the natural
// key of the readings table.
func bucket(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}

func (r *ReadingSQLite) Upsert(ctx context.Context, rd models.Reading) error {
	_, err := r.db.ExecContext(ctx, upsertReadingSQLite,
		bucket(rd.Timestamp),
		rd.T01Return, rd.T02Flow, rd.T04Outdoor, rd.T06Tank,
		rd.T12Compressor, rd.T33CompFreq, rd.T39PowerKW, rd.D12FlowRate,
		rd.COP, rd.HeatPowerKW, rd.Mode,
	)
	return err
}

func (r *ReadingSQLite) InsertIfAbsent(ctx context.Context, s models.CloudSample) (bool, error) {
	res, err := r.db.ExecContext(ctx, insertIfAbsentSQLite,
		bucket(s.Timestamp), s.T02Flow, s.T06Tank, s.T04Outdoor, s.T39PowerKW)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *ReadingSQLite) ListSince(ctx context.Context, cutoff time.Time) ([]models.Reading, error) {
	rows, err := r.db.QueryContext(ctx, listSinceSQLite, cutoff.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReadings(rows)
}

func (r *ReadingSQLite) Stats(ctx context.Context) (models.DBStats, error) {
	return scanStats(r.db.QueryRowContext(ctx, statsSQL))
}

// scanReadings and scanStats are shared by both backends; the row shapes are
// identical by construction.

func scanReadings(rows *sql.Rows) ([]models.Reading, error) {
	out := make([]models.Reading, 0, 64)
	for rows.Next() {
		var (
			rd  models.Reading
			cop sql.NullFloat64
		)
		if err := rows.Scan(
			&rd.Timestamp,
			&rd.T01Return, &rd.T02Flow, &rd.T04Outdoor, &rd.T06Tank,
			&rd.T12Compressor, &rd.T33CompFreq, &rd.T39PowerKW, &rd.D12FlowRate,
			&cop, &rd.HeatPowerKW, &rd.Mode,
		); err != nil {
			return nil, err
		}
		if cop.Valid {
			v := cop.Float64
			rd.COP = &v
		}
		rd.Timestamp = rd.Timestamp.UTC()
		out = append(out, rd)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanStats(row *sql.Row) (models.DBStats, error) {
	var (
		stats  models.DBStats
		oldest sql.NullTime
		newest sql.NullTime
	)
	if err := row.Scan(&stats.Count, &oldest, &newest); err != nil {
		return models.DBStats{}, err
	}
	if oldest.Valid {
		s := oldest.Time.UTC().Format(time.RFC3339)
		stats.Oldest = &s
	}
	if newest.Valid {
		s := newest.Time.UTC().Format(time.RFC3339)
		stats.Newest = &s
	}
	return stats, nil
}
