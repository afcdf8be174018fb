package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/abarnes/kudos/internal/models"
)

func TestRepository_Migrate_Error(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(".*").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(".*").WillReturnError(fmt.Errorf("migration failed"))

	repo := &Repository{db: db}
	if err := repo.migrate(); err == nil {
		t.Error("expected migrate to fail, but it succeeded")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestRepository_UpdateCycleStatus_DBError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE cycles").WillReturnError(fmt.Errorf("database locked"))

	repo := &Repository{db: db}
	err = repo.UpdateCycleStatus(context.Background(), uuid.New(), models.CycleDraft, models.CycleOpen)
	if err == nil {
		t.Error("expected UpdateCycleStatus to fail, but it succeeded")
	}
	if err == ErrStaleState {
		t.Error("driver error must not be reported as stale state")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestRepository_FinalizeCycle_RollsBackOnSnapshotError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	cycleID := uuid.New()
	nom := models.Nomination{
		ID:          uuid.New(),
		CycleID:     cycleID,
		NomineeID:   uuid.New(),
		SubmittedBy: uuid.New(),
		SubmittedAt: time.Now().UTC(),
		Status:      models.NominationApproved,
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE cycles SET status").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM rankings").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO nominations_history").WillReturnError(fmt.Errorf("disk I/O error"))
	mock.ExpectRollback()

	repo := &Repository{db: db}
	err = repo.FinalizeCycle(context.Background(), cycleID, []models.Nomination{nom}, nil, time.Now().UTC())
	if err == nil {
		t.Error("expected FinalizeCycle to fail, but it succeeded")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestRepository_ListRankings_DBError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT .* FROM rankings").WillReturnError(fmt.Errorf("database connection lost"))

	repo := &Repository{db: db}
	if _, err := repo.ListRankings(context.Background(), uuid.New(), nil); err == nil {
		t.Error("expected ListRankings to fail, but it succeeded")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
