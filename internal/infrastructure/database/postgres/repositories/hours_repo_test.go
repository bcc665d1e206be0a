package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencivic/lobbyreg/internal/domain/compliance"
	"github.com/opencivic/lobbyreg/internal/domain/hours"
	"github.com/opencivic/lobbyreg/internal/infrastructure/monitoring/logging"
	"github.com/opencivic/lobbyreg/pkg/errors"
)

var hourLogCols = []string{
	"id", "lobbyist_id", "hours", "activity", "official",
	"logged_on", "quarter", "year", "created_at",
}

func TestHoursRepository_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := NewHoursRepository(db, logging.NewNopLogger())

	log := &hours.HourLog{
		ID:         "log-1",
		LobbyistID: "lob-1",
		Hours:      decimal.RequireFromString("3.5"),
		Activity:   "Council meeting on zoning",
		Official:   "Councilmember Ruiz",
		LoggedOn:   time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC),
		Quarter:    compliance.Q1,
		Year:       2025,
		CreatedAt:  time.Date(2025, 2, 10, 9, 30, 0, 0, time.UTC),
	}

	mock.ExpectExec("INSERT INTO hour_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), log))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHoursRepository_QuarterTotal(t *testing.T) {
	db, mock := newMock(t)
	repo := NewHoursRepository(db, logging.NewNopLogger())
	p := compliance.Period{Quarter: compliance.Q1, Year: 2025}

	mock.ExpectQuery("SELECT COALESCE").
		WithArgs("lob-1", p.Quarter, p.Year).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow("12.50"))

	total, err := repo.QuarterTotal(context.Background(), "lob-1", p)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("12.5")), "got %s", total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHoursRepository_QuarterTotal_NoRowsSumsToZero(t *testing.T) {
	db, mock := newMock(t)
	repo := NewHoursRepository(db, logging.NewNopLogger())
	p := compliance.Period{Quarter: compliance.Q3, Year: 2025}

	mock.ExpectQuery("SELECT COALESCE").
		WithArgs("lob-1", p.Quarter, p.Year).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow("0"))

	total, err := repo.QuarterTotal(context.Background(), "lob-1", p)
	require.NoError(t, err)
	assert.True(t, total.IsZero())
}

func TestHoursRepository_Get_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewHoursRepository(db, logging.NewNopLogger())

	mock.ExpectQuery("SELECT .+ FROM hour_logs WHERE id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(hourLogCols))

	_, err := repo.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeHourLogNotFound))
}

func TestHoursRepository_Recent(t *testing.T) {
	db, mock := newMock(t)
	repo := NewHoursRepository(db, logging.NewNopLogger())
	p := compliance.Period{Quarter: compliance.Q1, Year: 2025}

	rows := sqlmock.NewRows(hourLogCols).
		AddRow("log-2", "lob-1", "2.0", "Drafting testimony", "",
			time.Date(2025, 2, 12, 0, 0, 0, 0, time.UTC), "Q1", 2025,
			time.Date(2025, 2, 12, 8, 0, 0, 0, time.UTC)).
		AddRow("log-1", "lob-1", "3.5", "Council meeting", "Councilmember Ruiz",
			time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC), "Q1", 2025,
			time.Date(2025, 2, 10, 9, 30, 0, 0, time.UTC))

	mock.ExpectQuery("SELECT .+ FROM hour_logs").
		WithArgs("lob-1", p.Quarter, p.Year, 5).
		WillReturnRows(rows)

	logs, err := repo.Recent(context.Background(), "lob-1", p, 5)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "log-2", logs[0].ID)
	assert.Equal(t, compliance.Q1, logs[0].Quarter)
	assert.True(t, logs[1].Hours.Equal(decimal.RequireFromString("3.5")))
	require.NoError(t, mock.ExpectationsWereMet())
}
