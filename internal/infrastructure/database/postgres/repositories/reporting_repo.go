package repositories

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/opencivic/lobbyreg/internal/domain/compliance"
	"github.com/opencivic/lobbyreg/internal/domain/reporting"
	"github.com/opencivic/lobbyreg/internal/infrastructure/monitoring/logging"
	"github.com/opencivic/lobbyreg/pkg/errors"
)

const expenseReportColumns = `id, lobbyist_id, quarter, year, status,
	total_food_entertainment, submitted_at, due_date, created_at, updated_at`

// ReportingRepository is the PostgreSQL implementation of the reporting
// domain's Repository interface.
type ReportingRepository struct {
	db     *sql.DB
	logger logging.Logger
}

// NewReportingRepository constructs a ready-to-use ReportingRepository.
func NewReportingRepository(db *sql.DB, log logging.Logger) *ReportingRepository {
	return &ReportingRepository{db: db, logger: log}
}

// UpsertExpenseReport creates or replaces the report keyed by
// (lobbyist_id, quarter, year). The line items are replaced wholesale in
// the same transaction; a re-filed report keeps its original row id.
func (r *ReportingRepository) UpsertExpenseReport(ctx context.Context, rep *reporting.ExpenseReport) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.Error("ReportingRepository.UpsertExpenseReport: begin tx", logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to begin transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	var reportID string
	err = tx.QueryRowContext(ctx, `
		INSERT INTO expense_reports (
			id, lobbyist_id, quarter, year, status,
			total_food_entertainment, submitted_at, due_date, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (lobbyist_id, quarter, year) DO UPDATE SET
			status = EXCLUDED.status,
			total_food_entertainment = EXCLUDED.total_food_entertainment,
			submitted_at = EXCLUDED.submitted_at,
			due_date = EXCLUDED.due_date,
			updated_at = EXCLUDED.updated_at
		RETURNING id`,
		rep.ID, rep.LobbyistID, rep.Quarter, rep.Year, rep.Status,
		rep.Total, rep.SubmittedAt, rep.DueDate, rep.CreatedAt, rep.UpdatedAt,
	).Scan(&reportID)
	if err != nil {
		r.logger.Error("ReportingRepository.UpsertExpenseReport: upsert report", logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to upsert expense report")
	}

	// A conflict keeps the existing row id; repoint the aggregate at it.
	rep.ID = reportID
	for i := range rep.LineItems {
		rep.LineItems[i].ReportID = reportID
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM expense_line_items WHERE report_id = $1`, reportID); err != nil {
		r.logger.Error("ReportingRepository.UpsertExpenseReport: clear line items", logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to clear line items")
	}

	for _, li := range rep.LineItems {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO expense_line_items (
				id, report_id, date, payee, official, amount, description, receipt_key
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			li.ID, li.ReportID, li.Date, li.Payee, li.Official, li.Amount,
			li.Description, nullable(li.ReceiptKey),
		)
		if err != nil {
			r.logger.Error("ReportingRepository.UpsertExpenseReport: insert line item",
				logging.Err(err), logging.String("line_item_id", li.ID))
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert line item")
		}
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("ReportingRepository.UpsertExpenseReport: commit", logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to commit transaction")
	}
	return nil
}

// GetExpenseReport loads a report and its line items by primary key.
func (r *ReportingRepository) GetExpenseReport(ctx context.Context, id string) (*reporting.ExpenseReport, error) {
	rep, err := r.scanExpenseReport(r.db.QueryRowContext(ctx, `
		SELECT `+expenseReportColumns+` FROM expense_reports WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadLineItems(ctx, rep); err != nil {
		return nil, err
	}
	return rep, nil
}

// GetExpenseReportByPeriod loads the report for a lobbyist's period.
func (r *ReportingRepository) GetExpenseReportByPeriod(ctx context.Context, lobbyistID string, p compliance.Period) (*reporting.ExpenseReport, error) {
	rep, err := r.scanExpenseReport(r.db.QueryRowContext(ctx, `
		SELECT `+expenseReportColumns+` FROM expense_reports
		WHERE lobbyist_id = $1 AND quarter = $2 AND year = $3`,
		lobbyistID, p.Quarter, p.Year))
	if err != nil {
		return nil, err
	}
	if err := r.loadLineItems(ctx, rep); err != nil {
		return nil, err
	}
	return rep, nil
}

// ListExpenseReports pages one lobbyist's reports, newest period first.
// Line items are not loaded for list views.
func (r *ReportingRepository) ListExpenseReports(ctx context.Context, lobbyistID string, limit, offset int) ([]*reporting.ExpenseReport, int64, error) {
	return r.listExpenseReports(ctx, "WHERE lobbyist_id = $1", []interface{}{lobbyistID}, limit, offset)
}

// ListAllExpenseReports pages reports across all lobbyists.
func (r *ReportingRepository) ListAllExpenseReports(ctx context.Context, limit, offset int) ([]*reporting.ExpenseReport, int64, error) {
	return r.listExpenseReports(ctx, "", nil, limit, offset)
}

func (r *ReportingRepository) listExpenseReports(ctx context.Context, where string, args []interface{}, limit, offset int) ([]*reporting.ExpenseReport, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM expense_reports `+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count expense reports")
	}

	query := `SELECT ` + expenseReportColumns + ` FROM expense_reports ` + where +
		` ORDER BY year DESC, quarter DESC LIMIT ` + placeholder(len(args)+1) + ` OFFSET ` + placeholder(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("ReportingRepository.listExpenseReports", logging.Err(err))
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query expense reports")
	}
	defer rows.Close()

	var out []*reporting.ExpenseReport
	for rows.Next() {
		rep, err := r.scanExpenseReport(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate expense reports")
	}
	return out, total, nil
}

// UpsertEmployerReport creates or replaces an employer's spend report keyed
// by (employer_id, quarter, year).
func (r *ReportingRepository) UpsertEmployerReport(ctx context.Context, rep *reporting.EmployerReport) error {
	var reportID string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO employer_reports (
			id, employer_id, quarter, year, status,
			total_lobbying_spend, submitted_at, due_date, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (employer_id, quarter, year) DO UPDATE SET
			status = EXCLUDED.status,
			total_lobbying_spend = EXCLUDED.total_lobbying_spend,
			submitted_at = EXCLUDED.submitted_at,
			due_date = EXCLUDED.due_date,
			updated_at = EXCLUDED.updated_at
		RETURNING id`,
		rep.ID, rep.EmployerID, rep.Quarter, rep.Year, rep.Status,
		rep.TotalSpend, rep.SubmittedAt, rep.DueDate, rep.CreatedAt, rep.UpdatedAt,
	).Scan(&reportID)
	if err != nil {
		r.logger.Error("ReportingRepository.UpsertEmployerReport", logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to upsert employer report")
	}
	rep.ID = reportID
	return nil
}

// ListEmployerReports pages one employer's reports, newest period first.
func (r *ReportingRepository) ListEmployerReports(ctx context.Context, employerID string, limit, offset int) ([]*reporting.EmployerReport, int64, error) {
	return r.listEmployerReports(ctx, "WHERE employer_id = $1", []interface{}{employerID}, limit, offset)
}

// ListAllEmployerReports pages reports across all employers.
func (r *ReportingRepository) ListAllEmployerReports(ctx context.Context, limit, offset int) ([]*reporting.EmployerReport, int64, error) {
	return r.listEmployerReports(ctx, "", nil, limit, offset)
}

func (r *ReportingRepository) listEmployerReports(ctx context.Context, where string, args []interface{}, limit, offset int) ([]*reporting.EmployerReport, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM employer_reports `+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count employer reports")
	}

	query := `SELECT id, employer_id, quarter, year, status,
			total_lobbying_spend, submitted_at, due_date, created_at, updated_at
		FROM employer_reports ` + where +
		` ORDER BY year DESC, quarter DESC LIMIT ` + placeholder(len(args)+1) + ` OFFSET ` + placeholder(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("ReportingRepository.listEmployerReports", logging.Err(err))
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query employer reports")
	}
	defer rows.Close()

	var out []*reporting.EmployerReport
	for rows.Next() {
		rep := &reporting.EmployerReport{}
		err := rows.Scan(
			&rep.ID, &rep.EmployerID, &rep.Quarter, &rep.Year, &rep.Status,
			&rep.TotalSpend, &rep.SubmittedAt, &rep.DueDate, &rep.CreatedAt, &rep.UpdatedAt,
		)
		if err != nil {
			return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan employer report")
		}
		out = append(out, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate employer reports")
	}
	return out, total, nil
}

func (r *ReportingRepository) loadLineItems(ctx context.Context, rep *reporting.ExpenseReport) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, report_id, date, payee, official, amount, description,
			COALESCE(receipt_key, '')
		FROM expense_line_items WHERE report_id = $1
		ORDER BY date ASC, id ASC`, rep.ID)
	if err != nil {
		r.logger.Error("ReportingRepository.loadLineItems", logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query line items")
	}
	defer rows.Close()

	var items []reporting.LineItem
	for rows.Next() {
		var li reporting.LineItem
		err := rows.Scan(&li.ID, &li.ReportID, &li.Date, &li.Payee, &li.Official,
			&li.Amount, &li.Description, &li.ReceiptKey)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan line item")
		}
		items = append(items, li)
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate line items")
	}
	rep.LineItems = items
	return nil
}

func (r *ReportingRepository) scanExpenseReport(s scanner) (*reporting.ExpenseReport, error) {
	rep := &reporting.ExpenseReport{}
	err := s.Scan(
		&rep.ID, &rep.LobbyistID, &rep.Quarter, &rep.Year, &rep.Status,
		&rep.Total, &rep.SubmittedAt, &rep.DueDate, &rep.CreatedAt, &rep.UpdatedAt,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.New(errors.ErrCodeReportNotFound,
			errors.DefaultMessageForCode(errors.ErrCodeReportNotFound))
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan expense report")
	}
	return rep, nil
}
