package reporting

import (
	"context"

	"github.com/opencivic/lobbyreg/internal/domain/compliance"
)

// Repository defines the persistence contract for expense reports.
type Repository interface {
	// UpsertExpenseReport creates or replaces the report for its
	// (lobbyist, quarter, year) key and replaces all line items in the
	// same transaction.
	UpsertExpenseReport(ctx context.Context, r *ExpenseReport) error
	GetExpenseReport(ctx context.Context, id string) (*ExpenseReport, error)
	GetExpenseReportByPeriod(ctx context.Context, lobbyistID string, p compliance.Period) (*ExpenseReport, error)
	ListExpenseReports(ctx context.Context, lobbyistID string, limit, offset int) ([]*ExpenseReport, int64, error)
	ListAllExpenseReports(ctx context.Context, limit, offset int) ([]*ExpenseReport, int64, error)

	UpsertEmployerReport(ctx context.Context, r *EmployerReport) error
	ListEmployerReports(ctx context.Context, employerID string, limit, offset int) ([]*EmployerReport, int64, error)
	ListAllEmployerReports(ctx context.Context, limit, offset int) ([]*EmployerReport, int64, error)
}
