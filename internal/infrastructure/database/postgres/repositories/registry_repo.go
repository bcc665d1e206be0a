package repositories

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/opencivic/lobbyreg/internal/domain/registry"
	"github.com/opencivic/lobbyreg/internal/infrastructure/monitoring/logging"
	"github.com/opencivic/lobbyreg/pkg/errors"
)

const lobbyistColumns = `id, name, email, organization, status,
	threshold_exceeded_at, registration_deadline, reviewed_at, review_note,
	created_at, updated_at`

// RegistryRepository is the PostgreSQL implementation of the registry
// domain's Repository interface.
type RegistryRepository struct {
	db     *sql.DB
	logger logging.Logger
}

// NewRegistryRepository constructs a ready-to-use RegistryRepository.
func NewRegistryRepository(db *sql.DB, log logging.Logger) *RegistryRepository {
	return &RegistryRepository{db: db, logger: log}
}

// CreateLobbyist inserts a new registration. A duplicate email maps to
// ErrCodeEmailAlreadyRegistered.
func (r *RegistryRepository) CreateLobbyist(ctx context.Context, l *registry.Lobbyist) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO lobbyists (
			id, name, email, organization, status,
			threshold_exceeded_at, registration_deadline, reviewed_at, review_note,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		l.ID, l.Name, l.Email, l.Organization, l.Status,
		l.ThresholdExceededAt, l.RegistrationDeadline, l.ReviewedAt, l.ReviewNote,
		l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.New(errors.ErrCodeEmailAlreadyRegistered,
				errors.DefaultMessageForCode(errors.ErrCodeEmailAlreadyRegistered))
		}
		r.logger.Error("RegistryRepository.CreateLobbyist", logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert lobbyist")
	}
	return nil
}

// GetLobbyist loads a lobbyist by primary key.
func (r *RegistryRepository) GetLobbyist(ctx context.Context, id string) (*registry.Lobbyist, error) {
	return r.scanLobbyist(r.db.QueryRowContext(ctx, `
		SELECT `+lobbyistColumns+` FROM lobbyists WHERE id = $1`, id))
}

// GetLobbyistByEmail locates a registration by its (unique) email.
func (r *RegistryRepository) GetLobbyistByEmail(ctx context.Context, email string) (*registry.Lobbyist, error) {
	return r.scanLobbyist(r.db.QueryRowContext(ctx, `
		SELECT `+lobbyistColumns+` FROM lobbyists WHERE email = $1`, email))
}

// UpdateLobbyist persists review and threshold state changes.
func (r *RegistryRepository) UpdateLobbyist(ctx context.Context, l *registry.Lobbyist) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE lobbyists SET
			name = $2, email = $3, organization = $4, status = $5,
			threshold_exceeded_at = $6, registration_deadline = $7,
			reviewed_at = $8, review_note = $9, updated_at = $10
		WHERE id = $1`,
		l.ID, l.Name, l.Email, l.Organization, l.Status,
		l.ThresholdExceededAt, l.RegistrationDeadline,
		l.ReviewedAt, l.ReviewNote, l.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("RegistryRepository.UpdateLobbyist", logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update lobbyist")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.New(errors.ErrCodeLobbyistNotFound,
			errors.DefaultMessageForCode(errors.ErrCodeLobbyistNotFound))
	}
	return nil
}

// ListLobbyists pages registrations, optionally filtered by status.
func (r *RegistryRepository) ListLobbyists(ctx context.Context, status registry.RegistrationStatus, limit, offset int) ([]*registry.Lobbyist, int64, error) {
	where := ""
	args := []interface{}{}
	if status != "" {
		where = "WHERE status = $1"
		args = append(args, status)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lobbyists `+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count lobbyists")
	}

	query := `SELECT ` + lobbyistColumns + ` FROM lobbyists ` + where +
		` ORDER BY created_at DESC LIMIT ` + placeholder(len(args)+1) + ` OFFSET ` + placeholder(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("RegistryRepository.ListLobbyists", logging.Err(err))
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query lobbyists")
	}
	defer rows.Close()

	var out []*registry.Lobbyist
	for rows.Next() {
		l, err := r.scanLobbyist(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate lobbyists")
	}
	return out, total, nil
}

// CreateEmployer inserts an employer record.
func (r *RegistryRepository) CreateEmployer(ctx context.Context, e *registry.Employer) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO employers (id, name, email, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5)`,
		e.ID, e.Name, e.Email, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("RegistryRepository.CreateEmployer", logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert employer")
	}
	return nil
}

// GetEmployer loads an employer by primary key.
func (r *RegistryRepository) GetEmployer(ctx context.Context, id string) (*registry.Employer, error) {
	e := &registry.Employer{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM employers WHERE id = $1`, id).
		Scan(&e.ID, &e.Name, &e.Email, &e.CreatedAt, &e.UpdatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.New(errors.ErrCodeEmployerNotFound,
			errors.DefaultMessageForCode(errors.ErrCodeEmployerNotFound))
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query employer")
	}
	return e, nil
}

// ListEmployers pages all employers.
func (r *RegistryRepository) ListEmployers(ctx context.Context, limit, offset int) ([]*registry.Employer, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM employers`).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count employers")
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM employers ORDER BY name ASC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query employers")
	}
	defer rows.Close()

	var out []*registry.Employer
	for rows.Next() {
		e := &registry.Employer{}
		if err := rows.Scan(&e.ID, &e.Name, &e.Email, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan employer")
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate employers")
	}
	return out, total, nil
}

func (r *RegistryRepository) scanLobbyist(s scanner) (*registry.Lobbyist, error) {
	l := &registry.Lobbyist{}
	err := s.Scan(
		&l.ID, &l.Name, &l.Email, &l.Organization, &l.Status,
		&l.ThresholdExceededAt, &l.RegistrationDeadline, &l.ReviewedAt, &l.ReviewNote,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.New(errors.ErrCodeLobbyistNotFound,
			errors.DefaultMessageForCode(errors.ErrCodeLobbyistNotFound))
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan lobbyist")
	}
	return l, nil
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return stderrors.As(err, &pgErr) && pgErr.Code == "23505"
}
