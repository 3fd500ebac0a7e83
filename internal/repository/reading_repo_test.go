package repository_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/Mb29661/LV418/internal/models"
	"github.com/Mb29661/LV418/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
)

type sqlmockArgumentFunc func(v driver.Value) bool

func (f sqlmockArgumentFunc) Match(v driver.Value) bool { return f(v) }

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func sampleReading(ts time.Time) models.Reading {
	cop := 3.2
	return models.Reading{
		Timestamp:     ts,
		T01Return:     30.5,
		T02Flow:       38.0,
		T04Outdoor:    -2.5,
		T06Tank:       52.0,
		T12Compressor: 71.0,
		T33CompFreq:   48.0,
		T39PowerKW:    1.8,
		D12FlowRate:   1.2,
		COP:           &cop,
		HeatPowerKW:   5.8,
		Mode:          "1",
	}
}

func TestReadingSQLite_Upsert_TruncatesToHourBucket(t *testing.T) {
	db, mock := newMock(t)
	repo := repository.NewReadingSQLite(db)

	// 12:34:56 local+offset must land in the 10:00 UTC bucket.
	loc := time.FixedZone("CEST", 2*3600)
	ts := time.Date(2026, 8, 29, 12, 34, 56, 0, loc)
	wantBucket := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

	rd := sampleReading(ts)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO readings")).
		WithArgs(
			wantBucket,
			rd.T01Return, rd.T02Flow, rd.T04Outdoor, rd.T06Tank,
			rd.T12Compressor, rd.T33CompFreq, rd.T39PowerKW, rd.D12FlowRate,
			*rd.COP, rd.HeatPowerKW, rd.Mode,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Upsert(context.Background(), rd); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReadingSQLite_Upsert_NilCOPWritesNull(t *testing.T) {
	db, mock := newMock(t)
	repo := repository.NewReadingSQLite(db)

	rd := sampleReading(time.Now())
	rd.COP = nil

	isNil := sqlmockArgumentFunc(func(v driver.Value) bool { return v == nil })

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO readings")).
		WithArgs(
			sqlmock.AnyArg(),
			rd.T01Return, rd.T02Flow, rd.T04Outdoor, rd.T06Tank,
			rd.T12Compressor, rd.T33CompFreq, rd.T39PowerKW, rd.D12FlowRate,
			isNil, rd.HeatPowerKW, rd.Mode,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Upsert(context.Background(), rd); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReadingPostgres_Upsert_UsesPositionalPlaceholders(t *testing.T) {
	db, mock := newMock(t)
	repo := repository.NewReadingPostgres(db)

	rd := sampleReading(time.Now())

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (timestamp) DO UPDATE SET")).
		WithArgs(
			sqlmock.AnyArg(),
			rd.T01Return, rd.T02Flow, rd.T04Outdoor, rd.T06Tank,
			rd.T12Compressor, rd.T33CompFreq, rd.T39PowerKW, rd.D12FlowRate,
			*rd.COP, rd.HeatPowerKW, rd.Mode,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Upsert(context.Background(), rd); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReadingSQLite_InsertIfAbsent_ReportsIgnoredRow(t *testing.T) {
	db, mock := newMock(t)
	repo := repository.NewReadingSQLite(db)

	ts := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	flow := 38.5
	s := models.CloudSample{Timestamp: ts, T02Flow: &flow}

	// Row already present: zero rows affected.
	mock.ExpectExec(regexp.QuoteMeta("INSERT OR IGNORE INTO readings")).
		WithArgs(ts, flow, nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 0))

	inserted, err := repo.InsertIfAbsent(context.Background(), s)
	if err != nil {
		t.Fatalf("InsertIfAbsent() error = %v", err)
	}
	if inserted {
		t.Fatal("inserted = true for conflicting bucket, want false")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReadingSQLite_ListSince_ScansNullCOP(t *testing.T) {
	db, mock := newMock(t)
	repo := repository.NewReadingSQLite(db)

	cutoff := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	t0 := cutoff.Add(time.Hour)
	t1 := cutoff.Add(2 * time.Hour)

	cols := []string{
		"timestamp", "t01_return", "t02_flow", "t04_outdoor", "t06_tank",
		"t12_compressor", "t33_comp_freq", "t39_power_kw", "d12_flow_rate",
		"cop_calculated", "heat_power_kw", "mode",
	}
	rows := sqlmock.NewRows(cols).
		AddRow(t0, 30.0, 38.0, -1.0, 50.0, 70.0, 45.0, 1.5, 1.1, 3.4, 5.1, "1").
		AddRow(t1, 30.0, 30.2, -1.0, 50.0, 25.0, 0.0, 0.05, 0.0, nil, 0.0, "1")

	mock.ExpectQuery(regexp.QuoteMeta("FROM readings WHERE timestamp >")).
		WithArgs(cutoff).
		WillReturnRows(rows)

	got, err := repo.ListSince(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("ListSince() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].COP == nil || *got[0].COP != 3.4 {
		t.Fatalf("first COP = %v, want 3.4", got[0].COP)
	}
	if got[1].COP != nil {
		t.Fatalf("second COP = %v, want nil", *got[1].COP)
	}
	if !got[0].Timestamp.Before(got[1].Timestamp) {
		t.Fatal("rows not ascending")
	}
}

func TestReadingSQLite_Stats(t *testing.T) {
	db, mock := newMock(t)
	repo := repository.NewReadingSQLite(db)

	oldest := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	newest := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*), MIN(timestamp), MAX(timestamp) FROM readings")).
		WillReturnRows(sqlmock.NewRows([]string{"count", "min", "max"}).AddRow(680, oldest, newest))

	stats, err := repo.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Count != 680 {
		t.Fatalf("count = %d", stats.Count)
	}
	if stats.Oldest == nil || *stats.Oldest != oldest.Format(time.RFC3339) {
		t.Fatalf("oldest = %v", stats.Oldest)
	}
	if stats.Newest == nil || *stats.Newest != newest.Format(time.RFC3339) {
		t.Fatalf("newest = %v", stats.Newest)
	}
}

func TestReadingSQLite_Stats_EmptyTable(t *testing.T) {
	db, mock := newMock(t)
	repo := repository.NewReadingSQLite(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WillReturnRows(sqlmock.NewRows([]string{"count", "min", "max"}).AddRow(0, nil, nil))

	stats, err := repo.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Count != 0 || stats.Oldest != nil || stats.Newest != nil {
		t.Fatalf("stats = %+v, want empty", stats)
	}
}
