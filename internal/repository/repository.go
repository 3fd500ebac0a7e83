package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/Mb29661/LV418/internal/models"
	"github.com/Mb29661/LV418/internal/repository/db"
)

// Readings persists pump snapshots keyed by hour-bucket timestamp.
type Readings interface {
	// Upsert writes one reading; a row already holding the same hour bucket
	// is overwritten column for column (last write wins, no partial merge).
	Upsert(ctx context.Context, r models.Reading) error
	// ListSince returns readings newer than cutoff, oldest first.
	ListSince(ctx context.Context, cutoff time.Time) ([]models.Reading, error)
	// InsertIfAbsent stores a cloud backfill sample only when no reading
	// exists for its bucket. Reports whether a row was written.
	InsertIfAbsent(ctx context.Context, s models.CloudSample) (bool, error)
	Stats(ctx context.Context) (models.DBStats, error)
}

// Events is the append-only pump state-transition log.
type Events interface {
	Append(ctx context.Context, e models.PumpEvent) error
	// List returns events since the given time, newest first, capped at limit.
	List(ctx context.Context, since time.Time, limit int) ([]models.PumpEvent, error)
}

// Users stores dashboard accounts keyed by lowercase email.
type Users interface {
	Create(ctx context.Context, u models.User) (int, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int) (*models.User, error)
	Count(ctx context.Context) (int, error)
	SetEmailVerified(ctx context.Context, id int) error
	SetAdminApproved(ctx context.Context, id int) error
}

type Repository struct {
	Readings Readings
	Events   Events
	Users    Users
}

// NewRepository selects the backend implementations once, from the driver the
// connection was opened with. Both backends behave identically; only
// placeholder syntax and the native upsert clause differ.
func NewRepository(conn *sql.DB, driver string) *Repository {
	if driver == db.DriverPostgres {
		return &Repository{
			Readings: NewReadingPostgres(conn),
			Events:   NewEventPostgres(conn),
			Users:    NewUserPostgres(conn),
		}
	}
	return &Repository{
		Readings: NewReadingSQLite(conn),
		Events:   NewEventSQLite(conn),
		Users:    NewUserSQLite(conn),
	}
}
