package recordings

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/captainslog/internal/common"
	"github.com/dmitrijs2005/captainslog/internal/dbx"
	"github.com/dmitrijs2005/captainslog/internal/models"
	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5/pgconn"
)

var recordingCols = []string{"id", "user_id", "filename", "duration_ms", "audio_data", "file_path",
	"recorded_at", "created_at", "updated_at"}

func newRepoWithMock(t *testing.T) (*SQLRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewSQLRepository(db, dbx.Postgres), mock, db
}

func TestCreate_KeepsCallerID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	at := time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)
	q := `(?s)^INSERT\s+INTO\s+recordings\s*\(id,\s*user_id,\s*filename,\s*duration_ms,\s*audio_data,\s*file_path,\s*recorded_at,\s*created_at,\s*updated_at\)\s*VALUES\s*\(\$1,.*\$9\)$`
	mock.ExpectExec(q).
		WithArgs("r-1", "u-1", "recording-x.webm", int64(4200), []byte("audio"), "", at, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := &models.Recording{ID: "r-1", UserID: "u-1", Filename: "recording-x.webm",
		DurationMs: 4200, AudioData: []byte("audio"), RecordedAt: at}
	id, err := repo.Create(context.Background(), rec)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if id != "r-1" {
		t.Fatalf("want caller id, got %q", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"duplicate id", &pgconn.PgError{Code: "23505"}, common.ErrDuplicateKey},
		{"missing owner", &pgconn.PgError{Code: "23503"}, common.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, db := newRepoWithMock(t)
			defer db.Close()

			mock.ExpectExec(`INSERT\s+INTO\s+recordings`).WillReturnError(tt.err)

			_, err := repo.Create(context.Background(), &models.Recording{UserID: "u-1", Filename: "f"})
			if !errors.Is(err, tt.want) {
				t.Fatalf("want %v, got %v", tt.want, err)
			}
		})
	}
}

func TestGetByID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	at := time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)
	rows := sqlmock.NewRows(recordingCols).
		AddRow("r-1", "u-1", "f.webm", int64(1000), []byte("abc"), "", at, at, at)
	mock.ExpectQuery(`(?s)FROM\s+recordings\s+WHERE\s+id\s*=\s*\$1$`).WithArgs("r-1").WillReturnRows(rows)
	mock.ExpectQuery(`FROM\s+recordings`).WithArgs("nope").WillReturnError(sql.ErrNoRows)

	got, err := repo.GetByID(context.Background(), "r-1")
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	want := &models.Recording{ID: "r-1", UserID: "u-1", Filename: "f.webm", DurationMs: 1000,
		AudioData: []byte("abc"), RecordedAt: at, CreatedAt: at, UpdatedAt: at}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("recording mismatch (-want +got):\n%s", diff)
	}

	if _, err := repo.GetByID(context.Background(), "nope"); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestGetByOwner_OrderedAndEmpty(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	t1 := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)
	t0 := t1.Add(-time.Hour)
	rows := sqlmock.NewRows(recordingCols).
		AddRow("r-2", "u-1", "b", int64(2), nil, "r-2.webm", t1, t1, t1).
		AddRow("r-1", "u-1", "a", int64(1), []byte("x"), "", t0, t0, t0)

	q := `(?s)WHERE\s+user_id\s*=\s*\$1\s+ORDER\s+BY\s+recorded_at\s+DESC,\s*created_at\s+DESC$`
	mock.ExpectQuery(q).WithArgs("u-1").WillReturnRows(rows)
	mock.ExpectQuery(q).WithArgs("u-2").WillReturnRows(sqlmock.NewRows(recordingCols))

	got, err := repo.GetByOwner(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("GetByOwner error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "r-2" || got[1].ID != "r-1" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if !got[0].HasAudio() || !got[1].HasAudio() {
		t.Fatalf("both recordings should be playable")
	}

	empty, err := repo.GetByOwner(context.Background(), "u-2")
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("want empty non-nil slice, got %v, %v", empty, err)
	}
}

func TestUpdate_PartialAndNotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	path := "r-1.webm"
	q := `(?s)^UPDATE\s+recordings\s+SET\s+file_path\s*=\s*\$1,\s*updated_at\s*=\s*\$2\s+WHERE\s+id\s*=\s*\$3$`
	mock.ExpectExec(q).WithArgs(path, sqlmock.AnyArg(), "r-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs(path, sqlmock.AnyArg(), "r-9").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Update(context.Background(), "r-1", models.RecordingUpdate{FilePath: &path}); err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if err := repo.Update(context.Background(), "r-9", models.RecordingUpdate{FilePath: &path}); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestDelete_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`^DELETE\s+FROM\s+recordings\s+WHERE\s+id\s*=\s*\$1$`).
		WithArgs("r-1").
		WillReturnError(errors.New("db down"))

	if err := repo.Delete(context.Background(), "r-1"); err == nil || errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected db error, got %v", err)
	}
}
