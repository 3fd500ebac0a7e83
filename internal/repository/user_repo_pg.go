package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Mb29661/LV418/internal/models"
)

type UserPostgres struct {
	db *sql.DB
}

func NewUserPostgres(db *sql.DB) *UserPostgres {
	return &UserPostgres{db: db}
}

var _ Users = (*UserPostgres)(nil)

const (
	// lib/pq has no LastInsertId; the id comes back via RETURNING.
	insertUserPG = `
		INSERT INTO users (email, password_hash, name, email_verified, admin_approved, is_admin, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id
	`
	selectUserByEmailPG = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	selectUserByIDPG    = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	setVerifiedPG       = `UPDATE users SET email_verified = TRUE WHERE id = $1`
	setApprovedPG       = `UPDATE users SET admin_approved = TRUE WHERE id = $1`
)

func (r *UserPostgres) Create(ctx context.Context, u models.User) (int, error) {
	var id int
	err := r.db.QueryRowContext(ctx, insertUserPG,
		strings.ToLower(u.Email), u.PasswordHash, u.Name,
		u.EmailVerified, u.AdminApproved, u.IsAdmin, createdAt(u)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert user %q: %w", u.Email, err)
	}
	return id, nil
}

func (r *UserPostgres) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, selectUserByEmailPG, strings.ToLower(email)))
}

func (r *UserPostgres) GetByID(ctx context.Context, id int) (*models.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, selectUserByIDPG, id))
}

func (r *UserPostgres) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, countUsersSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (r *UserPostgres) SetEmailVerified(ctx context.Context, id int) error {
	_, err := r.db.ExecContext(ctx, setVerifiedPG, id)
	return err
}

func (r *UserPostgres) SetAdminApproved(ctx context.Context, id int) error {
	_, err := r.db.ExecContext(ctx, setApprovedPG, id)
	return err
}
