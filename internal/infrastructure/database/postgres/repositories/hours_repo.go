package repositories

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/shopspring/decimal"

	"github.com/opencivic/lobbyreg/internal/domain/compliance"
	"github.com/opencivic/lobbyreg/internal/domain/hours"
	"github.com/opencivic/lobbyreg/internal/infrastructure/monitoring/logging"
	"github.com/opencivic/lobbyreg/pkg/errors"
)

const hourLogColumns = `id, lobbyist_id, hours, activity, official,
	logged_on, quarter, year, created_at`

// HoursRepository is the PostgreSQL implementation of the hours domain's
// Repository interface.
type HoursRepository struct {
	db     *sql.DB
	logger logging.Logger
}

// NewHoursRepository constructs a ready-to-use HoursRepository.
func NewHoursRepository(db *sql.DB, log logging.Logger) *HoursRepository {
	return &HoursRepository{db: db, logger: log}
}

// Create inserts an hour log entry.
func (r *HoursRepository) Create(ctx context.Context, l *hours.HourLog) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO hour_logs (
			id, lobbyist_id, hours, activity, official,
			logged_on, quarter, year, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		l.ID, l.LobbyistID, l.Hours, l.Activity, l.Official,
		l.LoggedOn, l.Quarter, l.Year, l.CreatedAt,
	)
	if err != nil {
		r.logger.Error("HoursRepository.Create", logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert hour log")
	}
	return nil
}

// Get loads an hour log by primary key.
func (r *HoursRepository) Get(ctx context.Context, id string) (*hours.HourLog, error) {
	return r.scanHourLog(r.db.QueryRowContext(ctx, `
		SELECT `+hourLogColumns+` FROM hour_logs WHERE id = $1`, id))
}

// QuarterTotal sums the logged hours for a lobbyist in a period. The sum is
// taken over the rows each time; there is no running counter to drift.
func (r *HoursRepository) QuarterTotal(ctx context.Context, lobbyistID string, p compliance.Period) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(hours), 0)
		FROM hour_logs
		WHERE lobbyist_id = $1 AND quarter = $2 AND year = $3`,
		lobbyistID, p.Quarter, p.Year,
	).Scan(&total)
	if err != nil {
		r.logger.Error("HoursRepository.QuarterTotal", logging.Err(err))
		return decimal.Zero, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to sum quarter hours")
	}
	return total, nil
}

// ListByPeriod pages a lobbyist's hour logs for a period, newest first.
func (r *HoursRepository) ListByPeriod(ctx context.Context, lobbyistID string, p compliance.Period, limit, offset int) ([]*hours.HourLog, int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM hour_logs
		WHERE lobbyist_id = $1 AND quarter = $2 AND year = $3`,
		lobbyistID, p.Quarter, p.Year,
	).Scan(&total)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count hour logs")
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+hourLogColumns+` FROM hour_logs
		WHERE lobbyist_id = $1 AND quarter = $2 AND year = $3
		ORDER BY logged_on DESC, created_at DESC
		LIMIT $4 OFFSET $5`,
		lobbyistID, p.Quarter, p.Year, limit, offset,
	)
	if err != nil {
		r.logger.Error("HoursRepository.ListByPeriod", logging.Err(err))
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query hour logs")
	}
	defer rows.Close()

	logs, err := r.collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// Recent returns the most recent hour logs for a lobbyist in a period.
func (r *HoursRepository) Recent(ctx context.Context, lobbyistID string, p compliance.Period, limit int) ([]*hours.HourLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+hourLogColumns+` FROM hour_logs
		WHERE lobbyist_id = $1 AND quarter = $2 AND year = $3
		ORDER BY logged_on DESC, created_at DESC
		LIMIT $4`,
		lobbyistID, p.Quarter, p.Year, limit,
	)
	if err != nil {
		r.logger.Error("HoursRepository.Recent", logging.Err(err))
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query recent hour logs")
	}
	defer rows.Close()

	return r.collect(rows)
}

func (r *HoursRepository) collect(rows *sql.Rows) ([]*hours.HourLog, error) {
	var out []*hours.HourLog
	for rows.Next() {
		l, err := r.scanHourLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate hour logs")
	}
	return out, nil
}

func (r *HoursRepository) scanHourLog(s scanner) (*hours.HourLog, error) {
	l := &hours.HourLog{}
	err := s.Scan(
		&l.ID, &l.LobbyistID, &l.Hours, &l.Activity, &l.Official,
		&l.LoggedOn, &l.Quarter, &l.Year, &l.CreatedAt,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.New(errors.ErrCodeHourLogNotFound,
			errors.DefaultMessageForCode(errors.ErrCodeHourLogNotFound))
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan hour log")
	}
	return l, nil
}
