package repositories

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/opencivic/lobbyreg/internal/domain/enforcement"
	"github.com/opencivic/lobbyreg/internal/infrastructure/monitoring/logging"
	"github.com/opencivic/lobbyreg/pkg/errors"
)

const violationColumns = `id, lobbyist_id, type, description, fine_amount,
	status, issued_at, resolution_date, created_at, updated_at`

const appealColumns = `id, violation_id, reason, status, decision, filed_at, decided_at`

// EnforcementRepository is the PostgreSQL implementation of the enforcement
// domain's Repository interface.
type EnforcementRepository struct {
	db     *sql.DB
	logger logging.Logger
}

// NewEnforcementRepository constructs a ready-to-use EnforcementRepository.
func NewEnforcementRepository(db *sql.DB, log logging.Logger) *EnforcementRepository {
	return &EnforcementRepository{db: db, logger: log}
}

// CreateViolation inserts an issued violation.
func (r *EnforcementRepository) CreateViolation(ctx context.Context, v *enforcement.Violation) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO violations (
			id, lobbyist_id, type, description, fine_amount,
			status, issued_at, resolution_date, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		v.ID, v.LobbyistID, v.Type, v.Description, v.FineAmount,
		v.Status, v.IssuedAt, v.ResolutionDate, v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("EnforcementRepository.CreateViolation", logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert violation")
	}
	return nil
}

// GetViolation loads a violation by primary key.
func (r *EnforcementRepository) GetViolation(ctx context.Context, id string) (*enforcement.Violation, error) {
	return r.scanViolation(r.db.QueryRowContext(ctx, `
		SELECT `+violationColumns+` FROM violations WHERE id = $1`, id))
}

// UpdateViolation persists fine and status changes.
func (r *EnforcementRepository) UpdateViolation(ctx context.Context, v *enforcement.Violation) error {
	res, err := r.db.ExecContext(ctx, updateViolationSQL,
		v.ID, v.Type, v.Description, v.FineAmount,
		v.Status, v.IssuedAt, v.ResolutionDate, v.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("EnforcementRepository.UpdateViolation", logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update violation")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.New(errors.ErrCodeViolationNotFound,
			errors.DefaultMessageForCode(errors.ErrCodeViolationNotFound))
	}
	return nil
}

const updateViolationSQL = `
	UPDATE violations SET
		type = $2, description = $3, fine_amount = $4,
		status = $5, issued_at = $6, resolution_date = $7, updated_at = $8
	WHERE id = $1`

// ListViolations pages violations, optionally filtered by lobbyist and
// status, newest first.
func (r *EnforcementRepository) ListViolations(ctx context.Context, lobbyistID string, status enforcement.ViolationStatus, limit, offset int) ([]*enforcement.Violation, int64, error) {
	where := ""
	args := []interface{}{}
	if lobbyistID != "" {
		where = "WHERE lobbyist_id = " + placeholder(1)
		args = append(args, lobbyistID)
	}
	if status != "" {
		if where == "" {
			where = "WHERE "
		} else {
			where += " AND "
		}
		where += "status = " + placeholder(len(args)+1)
		args = append(args, status)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM violations `+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count violations")
	}

	query := `SELECT ` + violationColumns + ` FROM violations ` + where +
		` ORDER BY created_at DESC LIMIT ` + placeholder(len(args)+1) + ` OFFSET ` + placeholder(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("EnforcementRepository.ListViolations", logging.Err(err))
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query violations")
	}
	defer rows.Close()

	var out []*enforcement.Violation
	for rows.Next() {
		v, err := r.scanViolation(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate violations")
	}
	return out, total, nil
}

// Summarize aggregates enforcement counts for the dashboard in one query.
func (r *EnforcementRepository) Summarize(ctx context.Context) (*enforcement.ViolationSummary, error) {
	sum := &enforcement.ViolationSummary{}
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status IN ('ISSUED','APPEALED')),
			(SELECT COUNT(*) FROM appeals WHERE status = 'PENDING'),
			COALESCE(SUM(fine_amount), 0),
			COALESCE(AVG(fine_amount), 0)
		FROM violations`).
		Scan(&sum.TotalViolations, &sum.ActiveViolations, &sum.PendingAppeals,
			&sum.TotalFines, &sum.AverageFine)
	if err != nil {
		r.logger.Error("EnforcementRepository.Summarize", logging.Err(err))
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to summarize violations")
	}
	return sum, nil
}

// GetAppeal loads an appeal by primary key.
func (r *EnforcementRepository) GetAppeal(ctx context.Context, id string) (*enforcement.Appeal, error) {
	return r.scanAppeal(r.db.QueryRowContext(ctx, `
		SELECT `+appealColumns+` FROM appeals WHERE id = $1`, id))
}

// GetAppealByViolation loads the appeal filed against a violation, if any.
func (r *EnforcementRepository) GetAppealByViolation(ctx context.Context, violationID string) (*enforcement.Appeal, error) {
	return r.scanAppeal(r.db.QueryRowContext(ctx, `
		SELECT `+appealColumns+` FROM appeals WHERE violation_id = $1`, violationID))
}

// ListAppeals pages appeals, optionally filtered by status, newest first.
func (r *EnforcementRepository) ListAppeals(ctx context.Context, status enforcement.AppealStatus, limit, offset int) ([]*enforcement.Appeal, int64, error) {
	where := ""
	args := []interface{}{}
	if status != "" {
		where = "WHERE status = $1"
		args = append(args, status)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM appeals `+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count appeals")
	}

	query := `SELECT ` + appealColumns + ` FROM appeals ` + where +
		` ORDER BY filed_at DESC LIMIT ` + placeholder(len(args)+1) + ` OFFSET ` + placeholder(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("EnforcementRepository.ListAppeals", logging.Err(err))
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query appeals")
	}
	defer rows.Close()

	var out []*enforcement.Appeal
	for rows.Next() {
		a, err := r.scanAppeal(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate appeals")
	}
	return out, total, nil
}

// FileAppealAtomic inserts the appeal and flips the violation to APPEALED
// in a single transaction. The unique index on violation_id backs up the
// one-appeal-per-violation rule under concurrent filings.
func (r *EnforcementRepository) FileAppealAtomic(ctx context.Context, a *enforcement.Appeal, v *enforcement.Violation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.Error("EnforcementRepository.FileAppealAtomic: begin tx", logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to begin transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO appeals (id, violation_id, reason, status, decision, filed_at, decided_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		a.ID, a.ViolationID, a.Reason, a.Status, a.Decision, a.FiledAt, a.DecidedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.New(errors.ErrCodeAppealAlreadyFiled,
				errors.DefaultMessageForCode(errors.ErrCodeAppealAlreadyFiled))
		}
		r.logger.Error("EnforcementRepository.FileAppealAtomic: insert appeal", logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert appeal")
	}

	if err := r.updateViolationTx(ctx, tx, v); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("EnforcementRepository.FileAppealAtomic: commit", logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to commit transaction")
	}
	return nil
}

// DecideAppealAtomic records the decision and the violation's final status
// in a single transaction.
func (r *EnforcementRepository) DecideAppealAtomic(ctx context.Context, a *enforcement.Appeal, v *enforcement.Violation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.Error("EnforcementRepository.DecideAppealAtomic: begin tx", logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to begin transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `
		UPDATE appeals SET status = $2, decision = $3, decided_at = $4
		WHERE id = $1`,
		a.ID, a.Status, a.Decision, a.DecidedAt,
	)
	if err != nil {
		r.logger.Error("EnforcementRepository.DecideAppealAtomic: update appeal", logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update appeal")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.New(errors.ErrCodeAppealNotFound,
			errors.DefaultMessageForCode(errors.ErrCodeAppealNotFound))
	}

	if err := r.updateViolationTx(ctx, tx, v); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("EnforcementRepository.DecideAppealAtomic: commit", logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to commit transaction")
	}
	return nil
}

func (r *EnforcementRepository) updateViolationTx(ctx context.Context, tx *sql.Tx, v *enforcement.Violation) error {
	res, err := tx.ExecContext(ctx, updateViolationSQL,
		v.ID, v.Type, v.Description, v.FineAmount,
		v.Status, v.IssuedAt, v.ResolutionDate, v.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("EnforcementRepository.updateViolationTx", logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update violation")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.New(errors.ErrCodeViolationNotFound,
			errors.DefaultMessageForCode(errors.ErrCodeViolationNotFound))
	}
	return nil
}

func (r *EnforcementRepository) scanViolation(s scanner) (*enforcement.Violation, error) {
	v := &enforcement.Violation{}
	err := s.Scan(
		&v.ID, &v.LobbyistID, &v.Type, &v.Description, &v.FineAmount,
		&v.Status, &v.IssuedAt, &v.ResolutionDate, &v.CreatedAt, &v.UpdatedAt,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.New(errors.ErrCodeViolationNotFound,
			errors.DefaultMessageForCode(errors.ErrCodeViolationNotFound))
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan violation")
	}
	return v, nil
}

func (r *EnforcementRepository) scanAppeal(s scanner) (*enforcement.Appeal, error) {
	a := &enforcement.Appeal{}
	err := s.Scan(
		&a.ID, &a.ViolationID, &a.Reason, &a.Status, &a.Decision,
		&a.FiledAt, &a.DecidedAt,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.New(errors.ErrCodeAppealNotFound,
			errors.DefaultMessageForCode(errors.ErrCodeAppealNotFound))
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan appeal")
	}
	return a, nil
}
