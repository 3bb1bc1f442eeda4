package transcriptions

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
	"github.com/jackc/pgx/v5/pgconn"
)

var transcriptionCols = []string{"id", "recording_id", "content", "metadata", "created_at", "updated_at"}

func newRepoWithMock(t *testing.T) (*SQLRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewSQLRepository(db, dbx.Postgres), mock, db
}

func TestCreate_DefaultsToPending(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+transcriptions\s*\(id,\s*recording_id,\s*content,\s*metadata,\s*created_at,\s*updated_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6\)$`
	mock.ExpectExec(q).
		WithArgs("t-1", "r-1", models.PendingTranscript, `{"status":"pending"}`, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	tr := &models.Transcription{ID: "t-1", RecordingID: "r-1", Content: models.PendingTranscript}
	if _, err := repo.Create(context.Background(), tr); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if tr.Metadata.Status != models.StatusPending {
		t.Fatalf("want pending status, got %q", tr.Metadata.Status)
	}
}

func TestCreate_MissingRecording(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT\s+INTO\s+transcriptions`).WillReturnError(&pgconn.PgError{Code: "23503"})

	_, err := repo.Create(context.Background(), &models.Transcription{RecordingID: "ghost"})
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestGetByRecordingID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	at := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(transcriptionCols).
		AddRow("t-1", "r-1", "hello", []byte(`{"status":"completed","model":"whisper-1"}`), at, at)

	q := `(?s)WHERE\s+recording_id\s*=\s*\$1\s+ORDER\s+BY\s+created_at\s+DESC\s+LIMIT\s+1$`
	mock.ExpectQuery(q).WithArgs("r-1").WillReturnRows(rows)
	mock.ExpectQuery(q).WithArgs("r-2").WillReturnError(sql.ErrNoRows)

	got, err := repo.GetByRecordingID(context.Background(), "r-1")
	if err != nil {
		t.Fatalf("GetByRecordingID error: %v", err)
	}
	if got.Content != "hello" || got.Metadata.Status != models.StatusCompleted || got.Metadata.Model != "whisper-1" {
		t.Fatalf("unexpected transcription: %+v", got)
	}

	if _, err := repo.GetByRecordingID(context.Background(), "r-2"); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestGetByID_BadMetadata(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	at := time.Now()
	rows := sqlmock.NewRows(transcriptionCols).AddRow("t-1", "r-1", "x", []byte(`{`), at, at)
	mock.ExpectQuery(`FROM\s+transcriptions\s+WHERE\s+id\s*=\s*\$1`).WithArgs("t-1").WillReturnRows(rows)

	if _, err := repo.GetByID(context.Background(), "t-1"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestUpdateByRecordingID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	content := "final text"
	meta := models.TranscriptionMetadata{Status: models.StatusCompleted, Model: "whisper-1"}
	q := `(?s)^UPDATE\s+transcriptions\s+SET\s+content\s*=\s*\$1,\s*metadata\s*=\s*\$2,\s*updated_at\s*=\s*\$3\s+WHERE\s+recording_id\s*=\s*\$4$`
	mock.ExpectExec(q).
		WithArgs(content, `{"status":"completed","model":"whisper-1"}`, sqlmock.AnyArg(), "r-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).
		WithArgs(content, sqlmock.AnyArg(), sqlmock.AnyArg(), "r-2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	upd := models.TranscriptionUpdate{Content: &content, Metadata: &meta}
	if err := repo.UpdateByRecordingID(context.Background(), "r-1", upd); err != nil {
		t.Fatalf("UpdateByRecordingID error: %v", err)
	}
	if err := repo.UpdateByRecordingID(context.Background(), "r-2", upd); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestSearch(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	at := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	cols := append(append([]string{}, transcriptionCols...), "user_id", "filename", "duration_ms", "recorded_at")
	rows := sqlmock.NewRows(cols).
		AddRow("t-1", "r-1", "Engage warp", []byte(`{"status":"completed"}`), at, at, "u-1", "f.webm", int64(3000), at)

	q := `(?s)JOIN\s+recordings\s+r\s+ON\s+r\.id\s*=\s*t\.recording_id.*WHERE\s+r\.user_id\s*=\s*\$1\s+AND\s+LOWER\(t\.content\)\s+LIKE\s+LOWER\(\$2\)\s+ESCAPE.*ORDER\s+BY\s+r\.recorded_at\s+DESC`
	mock.ExpectQuery(q).WithArgs("u-1", "%warp%").WillReturnRows(rows)
	mock.ExpectQuery(q).WithArgs("u-1", "%nothing%").WillReturnRows(sqlmock.NewRows(cols))

	got, err := repo.Search(context.Background(), "u-1", "warp")
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(got) != 1 || got[0].RecordingID != "r-1" || got[0].DurationMs != 3000 || got[0].Filename != "f.webm" {
		t.Fatalf("unexpected results: %+v", got)
	}

	none, err := repo.Search(context.Background(), "u-1", "nothing")
	if err != nil || none == nil || len(none) != 0 {
		t.Fatalf("want empty slice without error, got %v, %v", none, err)
	}
}

func TestSearch_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+transcriptions\s+t`).WillReturnError(errors.New("db down"))

	if _, err := repo.Search(context.Background(), "u-1", "x"); err == nil {
		t.Fatal("expected error")
	}
}
