package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/Mb29661/LV418/internal/models"

	"github.com/google/uuid"
)

type EventSQLite struct {
	db *sql.DB
}

func NewEventSQLite(db *sql.DB) *EventSQLite { return &EventSQLite{db: db} }

var _ Events = (*EventSQLite)(nil)

const (
	insertEventSQLite = `
		INSERT INTO pump_events (id, occurred_at, type, description, value_before, value_after)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	listEventsSQLite = `
		SELECT id, occurred_at, type, description, value_before, value_after
		FROM pump_events WHERE occurred_at > ?
		ORDER BY occurred_at DESC LIMIT ?
	`
)

// normalizeEvent fills in id and timestamp when the caller left them empty.
func normalizeEvent(e models.PumpEvent) models.PumpEvent {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	} else {
		e.OccurredAt = e.OccurredAt.UTC()
	}
	return e
}

func (r *EventSQLite) Append(ctx context.Context, e models.PumpEvent) error {
	e = normalizeEvent(e)
	_, err := r.db.ExecContext(ctx, insertEventSQLite,
		e.EventID, e.OccurredAt, e.Type, e.Description, e.ValueBefore, e.ValueAfter)
	return err
}

func (r *EventSQLite) List(ctx context.Context, since time.Time, limit int) ([]models.PumpEvent, error) {
	rows, err := r.db.QueryContext(ctx, listEventsSQLite, since.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]models.PumpEvent, error) {
	out := make([]models.PumpEvent, 0, 32)
	for rows.Next() {
		var (
			ev     models.PumpEvent
			before sql.NullString
			after  sql.NullString
		)
		if err := rows.Scan(&ev.EventID, &ev.OccurredAt, &ev.Type, &ev.Description, &before, &after); err != nil {
			return nil, err
		}
		ev.OccurredAt = ev.OccurredAt.UTC()
		ev.ValueBefore = before.String
		ev.ValueAfter = after.String
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
