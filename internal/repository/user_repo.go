package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Mb29661/LV418/internal/models"
)

type UserSQLite struct {
	db *sql.DB
}

func NewUserSQLite(db *sql.DB) *UserSQLite {
	return &UserSQLite{db: db}
}

var _ Users = (*UserSQLite)(nil)

const userColumns = `id, email, password_hash, name, email_verified, admin_approved, is_admin, created_at`

const (
	insertUserSQLite = `
		INSERT INTO users (email, password_hash, name, email_verified, admin_approved, is_admin, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	selectUserByEmailSQLite = `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	selectUserByIDSQLite    = `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	countUsersSQL           = `SELECT COUNT(*) FROM users`
	setVerifiedSQLite       = `UPDATE users SET email_verified = TRUE WHERE id = ?`
	setApprovedSQLite       = `UPDATE users SET admin_approved = TRUE WHERE id = ?`
)

// Create inserts a new user and returns its ID. Email is stored lowercase so
// the unique constraint enforces case-insensitive uniqueness.
func (r *UserSQLite) Create(ctx context.Context, u models.User) (int, error) {
	res, err := r.db.ExecContext(ctx, insertUserSQLite,
		strings.ToLower(u.Email), u.PasswordHash, u.Name,
		u.EmailVerified, u.AdminApproved, u.IsAdmin, createdAt(u))
	if err != nil {
		return 0, fmt.Errorf("insert user %q: %w", u.Email, err)
	}
	lastID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id for user %q: %w", u.Email, err)
	}
	return int(lastID), nil
}

// GetByEmail fetches a user by email, case-insensitively. Returns (nil, nil)
// if not found.
func (r *UserSQLite) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, selectUserByEmailSQLite, strings.ToLower(email)))
}

func (r *UserSQLite) GetByID(ctx context.Context, id int) (*models.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, selectUserByIDSQLite, id))
}

func (r *UserSQLite) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, countUsersSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (r *UserSQLite) SetEmailVerified(ctx context.Context, id int) error {
	_, err := r.db.ExecContext(ctx, setVerifiedSQLite, id)
	return err
}

func (r *UserSQLite) SetAdminApproved(ctx context.Context, id int) error {
	_, err := r.db.ExecContext(ctx, setApprovedSQLite, id)
	return err
}

func createdAt(u models.User) time.Time {
	if u.CreatedAt.IsZero() {
		return time.Now().UTC()
	}
	return u.CreatedAt.UTC()
}

func scanUser(row *sql.Row) (*models.User, error) {
	var (
		u    models.User
		name sql.NullString
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &name,
		&u.EmailVerified, &u.AdminApproved, &u.IsAdmin, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	u.Name = name.String
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}
