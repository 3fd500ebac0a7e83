package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/Mb29661/LV418/internal/models"
)

type ReadingPostgres struct {
	db *sql.DB
}

func NewReadingPostgres(db *sql.DB) *ReadingPostgres {
	return &ReadingPostgres{db: db}
}

var _ Readings = (*ReadingPostgres)(nil)

const (
	upsertReadingPG = `
		INSERT INTO readings (timestamp, t01_return, t02_flow, t04_outdoor, t06_tank,
			t12_compressor, t33_comp_freq, t39_power_kw, d12_flow_rate,
			cop_calculated, heat_power_kw, mode)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (timestamp) DO UPDATE SET
			t01_return=EXCLUDED.t01_return,
			t02_flow=EXCLUDED.t02_flow,
			t04_outdoor=EXCLUDED.t04_outdoor,
			t06_tank=EXCLUDED.t06_tank,
			t12_compressor=EXCLUDED.t12_compressor,
			t33_comp_freq=EXCLUDED.t33_comp_freq,
			t39_power_kw=EXCLUDED.t39_power_kw,
			d12_flow_rate=EXCLUDED.d12_flow_rate,
			cop_calculated=EXCLUDED.cop_calculated,
			heat_power_kw=EXCLUDED.heat_power_kw,
			mode=EXCLUDED.mode
	`

	insertIfAbsentPG = `
		INSERT INTO readings (timestamp, t02_flow, t06_tank, t04_outdoor, t39_power_kw)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (timestamp) DO NOTHING
	`

	listSincePG = `
		SELECT timestamp, t01_return, t02_flow, t04_outdoor, t06_tank,
			t12_compressor, t33_comp_freq, t39_power_kw, d12_flow_rate,
			cop_calculated, heat_power_kw, mode
		FROM readings WHERE timestamp > $1 ORDER BY timestamp ASC
	`
)

func (r *ReadingPostgres) Upsert(ctx context.Context, rd models.Reading) error {
	_, err := r.db.ExecContext(ctx, upsertReadingPG,
		bucket(rd.Timestamp),
		rd.T01Return, rd.T02Flow, rd.T04Outdoor, rd.T06Tank,
		rd.T12Compressor, rd.T33CompFreq, rd.T39PowerKW, rd.D12FlowRate,
		rd.COP, rd.HeatPowerKW, rd.Mode,
	)
	return err
}

func (r *ReadingPostgres) InsertIfAbsent(ctx context.Context, s models.CloudSample) (bool, error) {
	res, err := r.db.ExecContext(ctx, insertIfAbsentPG,
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

func (r *ReadingPostgres) ListSince(ctx context.Context, cutoff time.Time) ([]models.Reading, error) {
	rows, err := r.db.QueryContext(ctx, listSincePG, cutoff.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReadings(rows)
}

func (r *ReadingPostgres) Stats(ctx context.Context) (models.DBStats, error) {
	return scanStats(r.db.QueryRowContext(ctx, statsSQL))
}
