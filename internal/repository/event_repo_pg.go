package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/Mb29661/LV418/internal/models"
)

type EventPostgres struct {
	db *sql.DB
}

func NewEventPostgres(db *sql.DB) *EventPostgres { return &EventPostgres{db: db} }

var _ Events = (*EventPostgres)(nil)

const (
	insertEventPG = `
		INSERT INTO pump_events (id, occurred_at, type, description, value_before, value_after)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	listEventsPG = `
		SELECT id, occurred_at, type, description, value_before, value_after
		FROM pump_events WHERE occurred_at > $1
		ORDER BY occurred_at DESC LIMIT $2
	`
)

func (r *EventPostgres) Append(ctx context.Context, e models.PumpEvent) error {
	e = normalizeEvent(e)
	_, err := r.db.ExecContext(ctx, insertEventPG,
		e.EventID, e.OccurredAt, e.Type, e.Description, e.ValueBefore, e.ValueAfter)
	return err
}

func (r *EventPostgres) List(ctx context.Context, since time.Time, limit int) ([]models.PumpEvent, error) {
	rows, err := r.db.QueryContext(ctx, listEventsPG, since.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}
