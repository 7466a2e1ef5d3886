package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func setupImportLog(t *testing.T) (*ImportLogRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewImportLogRepo(db), mock
}

func TestImportLogDiscover(t *testing.T) {
	repo, mock := setupImportLog(t)
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO timesheet_import_log").
		WithArgs("drops/export.csv", int64(1024)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	fresh, err := repo.Discover(ctx, "drops/export.csv", 1024)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if !fresh {
		t.Error("Discover = false, want true for a new key")
	}

	// Conflict path: already known, no row inserted.
	mock.ExpectExec("INSERT INTO timesheet_import_log").
		WithArgs("drops/export.csv", int64(1024)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	fresh, err = repo.Discover(ctx, "drops/export.csv", 1024)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if fresh {
		t.Error("Discover = true, want false for a known key")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestImportLogClaim(t *testing.T) {
	repo, mock := setupImportLog(t)
	ctx := context.Background()

	mock.ExpectExec("UPDATE timesheet_import_log").
		WithArgs("drops/export.csv").
		WillReturnResult(sqlmock.NewResult(0, 1))
	claimed, err := repo.Claim(ctx, "drops/export.csv")
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if !claimed {
		t.Error("Claim = false, want true")
	}

	// Another worker already claimed it.
	mock.ExpectExec("UPDATE timesheet_import_log").
		WithArgs("drops/export.csv").
		WillReturnResult(sqlmock.NewResult(0, 0))
	claimed, err = repo.Claim(ctx, "drops/export.csv")
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if claimed {
		t.Error("Claim = true, want false when already processing")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestImportLogPending(t *testing.T) {
	repo, mock := setupImportLog(t)

	rows := sqlmock.NewRows([]string{"original_key"}).
		AddRow("drops/small.csv").
		AddRow("drops/large.csv")
	mock.ExpectQuery("SELECT original_key FROM timesheet_import_log").
		WithArgs(10).
		WillReturnRows(rows)

	keys, err := repo.Pending(context.Background(), 10)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(keys) != 2 || keys[0] != "drops/small.csv" {
		t.Errorf("Pending = %v", keys)
	}
}

func TestImportLogCompleteAndFail(t *testing.T) {
	repo, mock := setupImportLog(t)
	ctx := context.Background()

	mock.ExpectExec("UPDATE timesheet_import_log").
		WithArgs(42, "drops/export.csv").
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.Complete(ctx, "drops/export.csv", 42); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	mock.ExpectExec("UPDATE timesheet_import_log").
		WithArgs("parse: bad file", "drops/broken.csv").
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.Fail(ctx, "drops/broken.csv", "parse: bad file"); err != nil {
		t.Fatalf("Fail: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestImportLogResumeStuck(t *testing.T) {
	repo, mock := setupImportLog(t)

	mock.ExpectExec("UPDATE timesheet_import_log SET status = 'pending'").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("UPDATE timesheet_import_log").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.ResumeStuck(context.Background()); err != nil {
		t.Fatalf("ResumeStuck: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestImportLogList(t *testing.T) {
	repo, mock := setupImportLog(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"original_key", "archive_key", "status", "file_size",
		"record_count", "error_message", "created_at", "processed_at",
	}).
		AddRow("drops/b.csv", "processed/00002-B.csv", "completed", int64(2048), 90, "", now, now).
		AddRow("drops/a.csv", "", "failed", int64(1024), 0, "parse: bad file", now, nil)
	mock.ExpectQuery("SELECT original_key, COALESCE").
		WithArgs(50).
		WillReturnRows(rows)

	entries, err := repo.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].ArchiveKey != "processed/00002-B.csv" || entries[0].ProcessedAt == nil {
		t.Errorf("entry = %+v", entries[0])
	}
	if entries[1].Status != "failed" || entries[1].ProcessedAt != nil {
		t.Errorf("entry = %+v", entries[1])
	}
}
