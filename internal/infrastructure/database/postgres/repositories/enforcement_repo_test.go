package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencivic/lobbyreg/internal/domain/enforcement"
	"github.com/opencivic/lobbyreg/internal/infrastructure/monitoring/logging"
	"github.com/opencivic/lobbyreg/pkg/errors"
)

var violationCols = []string{
	"id", "lobbyist_id", "type", "description", "fine_amount",
	"status", "issued_at", "resolution_date", "created_at", "updated_at",
}

func sampleViolation() *enforcement.Violation {
	issued := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	return &enforcement.Violation{
		ID:          "vio-1",
		LobbyistID:  "lob-1",
		Type:        enforcement.ViolationLateReport,
		Description: "Q4 2024 report filed two weeks late",
		FineAmount:  decimal.RequireFromString("250.00"),
		Status:      enforcement.ViolationIssued,
		IssuedAt:    &issued,
		CreatedAt:   issued,
		UpdatedAt:   issued,
	}
}

func sampleAppeal(v *enforcement.Violation) *enforcement.Appeal {
	return &enforcement.Appeal{
		ID:          "app-1",
		ViolationID: v.ID,
		Reason:      "Report was postmarked before the deadline",
		Status:      enforcement.AppealPending,
		FiledAt:     time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
	}
}

func TestEnforcementRepository_GetViolation_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEnforcementRepository(db, logging.NewNopLogger())

	mock.ExpectQuery("SELECT .+ FROM violations WHERE id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(violationCols))

	_, err := repo.GetViolation(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeViolationNotFound))
}

func TestEnforcementRepository_FileAppealAtomic(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEnforcementRepository(db, logging.NewNopLogger())

	v := sampleViolation()
	a := sampleAppeal(v)
	v.Status = enforcement.ViolationAppealed

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO appeals").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE violations SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.FileAppealAtomic(context.Background(), a, v))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnforcementRepository_FileAppealAtomic_SecondFilingConflicts(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEnforcementRepository(db, logging.NewNopLogger())

	v := sampleViolation()
	a := sampleAppeal(v)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO appeals").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "appeals_violation_id_key"})
	mock.ExpectRollback()

	err := repo.FileAppealAtomic(context.Background(), a, v)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeAppealAlreadyFiled))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnforcementRepository_FileAppealAtomic_RollsBackWhenViolationMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEnforcementRepository(db, logging.NewNopLogger())

	v := sampleViolation()
	a := sampleAppeal(v)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO appeals").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE violations SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.FileAppealAtomic(context.Background(), a, v)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeViolationNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnforcementRepository_DecideAppealAtomic(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEnforcementRepository(db, logging.NewNopLogger())

	v := sampleViolation()
	a := sampleAppeal(v)
	decided := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)
	outcome := enforcement.OutcomeOverturned
	a.Status = enforcement.AppealDecided
	a.Decision = &outcome
	a.DecidedAt = &decided
	v.Status = enforcement.ViolationOverturned

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE appeals SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE violations SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.DecideAppealAtomic(context.Background(), a, v))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnforcementRepository_Summarize(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEnforcementRepository(db, logging.NewNopLogger())

	mock.ExpectQuery("SELECT").
		WillReturnRows(sqlmock.NewRows([]string{
			"count", "active", "pending_appeals", "total_fines", "avg_fine",
		}).AddRow(8, 3, 2, "1450.00", "181.25"))

	sum, err := repo.Summarize(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 8, sum.TotalViolations)
	assert.EqualValues(t, 3, sum.ActiveViolations)
	assert.EqualValues(t, 2, sum.PendingAppeals)
	assert.True(t, sum.TotalFines.Equal(decimal.RequireFromString("1450")))
	assert.True(t, sum.AverageFine.Equal(decimal.RequireFromString("181.25")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnforcementRepository_GetAppealByViolation(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEnforcementRepository(db, logging.NewNopLogger())
	filed := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT .+ FROM appeals WHERE violation_id").
		WithArgs("vio-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "violation_id", "reason", "status", "decision", "filed_at", "decided_at",
		}).AddRow("app-1", "vio-1", "Postmarked on time", "PENDING", nil, filed, nil))

	a, err := repo.GetAppealByViolation(context.Background(), "vio-1")
	require.NoError(t, err)
	assert.Equal(t, enforcement.AppealPending, a.Status)
	assert.Nil(t, a.Decision)
	require.NoError(t, mock.ExpectationsWereMet())
}
