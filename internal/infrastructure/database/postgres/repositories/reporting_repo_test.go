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
	"github.com/opencivic/lobbyreg/internal/domain/reporting"
	"github.com/opencivic/lobbyreg/internal/infrastructure/monitoring/logging"
	"github.com/opencivic/lobbyreg/pkg/errors"
)

var expenseReportCols = []string{
	"id", "lobbyist_id", "quarter", "year", "status",
	"total_food_entertainment", "submitted_at", "due_date", "created_at", "updated_at",
}

func sampleReport() *reporting.ExpenseReport {
	now := time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)
	return &reporting.ExpenseReport{
		ID:         "rep-new",
		LobbyistID: "lob-1",
		Quarter:    compliance.Q1,
		Year:       2025,
		Status:     compliance.ReportSubmitted,
		Total:      decimal.RequireFromString("145.20"),
		DueDate:    time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC),
		LineItems: []reporting.LineItem{
			{
				ID:       "li-1",
				Date:     time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC),
				Payee:    "Capitol Grill",
				Official: "Councilmember Ruiz",
				Amount:   decimal.RequireFromString("145.20"),
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestReportingRepository_UpsertExpenseReport_KeepsExistingRowID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReportingRepository(db, logging.NewNopLogger())
	rep := sampleReport()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO expense_reports").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("rep-existing"))
	mock.ExpectExec("DELETE FROM expense_line_items").
		WithArgs("rep-existing").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO expense_line_items").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.UpsertExpenseReport(context.Background(), rep))

	// The conflict target row id wins over the freshly generated one.
	assert.Equal(t, "rep-existing", rep.ID)
	assert.Equal(t, "rep-existing", rep.LineItems[0].ReportID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportingRepository_UpsertExpenseReport_RollsBackOnLineItemError(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReportingRepository(db, logging.NewNopLogger())
	rep := sampleReport()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO expense_reports").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(rep.ID))
	mock.ExpectExec("DELETE FROM expense_line_items").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO expense_line_items").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.UpsertExpenseReport(context.Background(), rep)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatabaseError))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportingRepository_GetExpenseReportByPeriod_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReportingRepository(db, logging.NewNopLogger())
	p := compliance.Period{Quarter: compliance.Q2, Year: 2025}

	mock.ExpectQuery("SELECT .+ FROM expense_reports").
		WithArgs("lob-1", p.Quarter, p.Year).
		WillReturnRows(sqlmock.NewRows(expenseReportCols))

	_, err := repo.GetExpenseReportByPeriod(context.Background(), "lob-1", p)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeReportNotFound))
}

func TestReportingRepository_GetExpenseReport_LoadsLineItems(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReportingRepository(db, logging.NewNopLogger())
	rep := sampleReport()

	mock.ExpectQuery("SELECT .+ FROM expense_reports WHERE id").
		WithArgs(rep.ID).
		WillReturnRows(sqlmock.NewRows(expenseReportCols).AddRow(
			rep.ID, rep.LobbyistID, "Q1", 2025, "SUBMITTED",
			"145.20", nil, rep.DueDate, rep.CreatedAt, rep.UpdatedAt,
		))
	mock.ExpectQuery("SELECT .+ FROM expense_line_items").
		WithArgs(rep.ID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "report_id", "date", "payee", "official", "amount", "description", "receipt_key",
		}).AddRow("li-1", rep.ID, rep.LineItems[0].Date, "Capitol Grill",
			"Councilmember Ruiz", "145.20", "", "receipts/li-1.pdf"))

	got, err := repo.GetExpenseReport(context.Background(), rep.ID)
	require.NoError(t, err)
	require.Len(t, got.LineItems, 1)
	assert.Equal(t, "receipts/li-1.pdf", got.LineItems[0].ReceiptKey)
	assert.Equal(t, compliance.ReportSubmitted, got.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportingRepository_UpsertEmployerReport(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReportingRepository(db, logging.NewNopLogger())
	now := time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)

	rep := &reporting.EmployerReport{
		ID:         "er-new",
		EmployerID: "emp-1",
		Quarter:    compliance.Q1,
		Year:       2025,
		Status:     compliance.ReportSubmitted,
		TotalSpend: decimal.RequireFromString("10250.00"),
		DueDate:    time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	mock.ExpectQuery("INSERT INTO employer_reports").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("er-existing"))

	require.NoError(t, repo.UpsertEmployerReport(context.Background(), rep))
	assert.Equal(t, "er-existing", rep.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
