package repository_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/Mb29661/LV418/internal/models"
	"github.com/Mb29661/LV418/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestUserSQLite_Create_LowercasesEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := repository.NewUserSQLite(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("anna@example.com", "hash", "Anna", false, false, false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(3, 1))

	id, err := repo.Create(context.Background(), models.User{
		Email:        "Anna@Example.COM",
		PasswordHash: "hash",
		Name:         "Anna",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if id != 3 {
		t.Fatalf("id = %d, want 3", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserPostgres_Create_UsesReturning(t *testing.T) {
	db, mock := newMock(t)
	repo := repository.NewUserPostgres(db)

	mock.ExpectQuery(regexp.QuoteMeta("RETURNING id")).
		WithArgs("admin@example.com", "hash", "Admin", true, true, true, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	id, err := repo.Create(context.Background(), models.User{
		Email:         "admin@example.com",
		PasswordHash:  "hash",
		Name:          "Admin",
		EmailVerified: true,
		AdminApproved: true,
		IsAdmin:       true,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if id != 1 {
		t.Fatalf("id = %d, want 1", id)
	}
}

func TestUserSQLite_GetByEmail_CaseInsensitiveLookup(t *testing.T) {
	db, mock := newMock(t)
	repo := repository.NewUserSQLite(db)

	created := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "email", "password_hash", "name",
		"email_verified", "admin_approved", "is_admin", "created_at",
	}).AddRow(7, "anna@example.com", "hash", "Anna", true, false, false, created)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email =")).
		WithArgs("anna@example.com").
		WillReturnRows(rows)

	u, err := repo.GetByEmail(context.Background(), "ANNA@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if u == nil {
		t.Fatal("user = nil, want row")
	}
	if u.ID != 7 || !u.EmailVerified || u.AdminApproved {
		t.Fatalf("unexpected user: %+v", u)
	}
}

func TestUserSQLite_GetByEmail_NotFoundIsNilNil(t *testing.T) {
	db, mock := newMock(t)
	repo := repository.NewUserSQLite(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email =")).
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "email", "password_hash", "name",
			"email_verified", "admin_approved", "is_admin", "created_at",
		}))

	u, err := repo.GetByEmail(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if u != nil {
		t.Fatalf("user = %+v, want nil", u)
	}
}

func TestUserSQLite_SetFlags(t *testing.T) {
	db, mock := newMock(t)
	repo := repository.NewUserSQLite(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET email_verified = TRUE")).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET admin_approved = TRUE")).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SetEmailVerified(context.Background(), 7); err != nil {
		t.Fatalf("SetEmailVerified() error = %v", err)
	}
	if err := repo.SetAdminApproved(context.Background(), 7); err != nil {
		t.Fatalf("SetAdminApproved() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
