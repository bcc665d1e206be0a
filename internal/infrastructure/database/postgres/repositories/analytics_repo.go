package repositories

import (
	"context"
	"database/sql"

	"github.com/opencivic/lobbyreg/internal/domain/reporting"
	"github.com/opencivic/lobbyreg/internal/infrastructure/monitoring/logging"
	"github.com/opencivic/lobbyreg/pkg/errors"
)

// AnalyticsRepository answers the read-only aggregate queries behind the
// spending analytics endpoint.
type AnalyticsRepository struct {
	db     *sql.DB
	logger logging.Logger
}

// NewAnalyticsRepository constructs a ready-to-use AnalyticsRepository.
func NewAnalyticsRepository(db *sql.DB, log logging.Logger) *AnalyticsRepository {
	return &AnalyticsRepository{db: db, logger: log}
}

// SpendingTrends aggregates reported spend per quarter across the year
// range, oldest first.
func (r *AnalyticsRepository) SpendingTrends(ctx context.Context, fromYear, toYear int) ([]reporting.SpendingTrendPoint, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT quarter, year, COALESCE(SUM(total_food_entertainment), 0), COUNT(*)
		FROM expense_reports
		WHERE year BETWEEN $1 AND $2
		GROUP BY year, quarter
		ORDER BY year ASC, quarter ASC`, fromYear, toYear)
	if err != nil {
		r.logger.Error("AnalyticsRepository.SpendingTrends", logging.Err(err))
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query spending trends")
	}
	defer rows.Close()

	var out []reporting.SpendingTrendPoint
	for rows.Next() {
		var p reporting.SpendingTrendPoint
		if err := rows.Scan(&p.Quarter, &p.Year, &p.Total, &p.Reports); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan trend point")
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate trend points")
	}
	return out, nil
}

// TopLobbyists ranks lobbyists by total reported spend.
func (r *AnalyticsRepository) TopLobbyists(ctx context.Context, limit int) ([]reporting.TopSpender, error) {
	return r.rank(ctx, `
		SELECT l.id, l.name, COALESCE(SUM(er.total_food_entertainment), 0) AS total
		FROM expense_reports er
		JOIN lobbyists l ON l.id = er.lobbyist_id
		GROUP BY l.id, l.name
		ORDER BY total DESC
		LIMIT $1`, limit)
}

// TopEmployers ranks employers by total reported lobbying spend.
func (r *AnalyticsRepository) TopEmployers(ctx context.Context, limit int) ([]reporting.TopSpender, error) {
	return r.rank(ctx, `
		SELECT e.id, e.name, COALESCE(SUM(r.total_lobbying_spend), 0) AS total
		FROM employer_reports r
		JOIN employers e ON e.id = r.employer_id
		GROUP BY e.id, e.name
		ORDER BY total DESC
		LIMIT $1`, limit)
}

// TopOfficials ranks officials by the line-item spend naming them. The
// official is free text on the line item, so the id column is empty.
func (r *AnalyticsRepository) TopOfficials(ctx context.Context, limit int) ([]reporting.TopSpender, error) {
	return r.rank(ctx, `
		SELECT '', official, COALESCE(SUM(amount), 0) AS total
		FROM expense_line_items
		WHERE official <> ''
		GROUP BY official
		ORDER BY total DESC
		LIMIT $1`, limit)
}

func (r *AnalyticsRepository) rank(ctx context.Context, query string, limit int) ([]reporting.TopSpender, error) {
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		r.logger.Error("AnalyticsRepository.rank", logging.Err(err))
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query spend ranking")
	}
	defer rows.Close()

	var out []reporting.TopSpender
	for rows.Next() {
		var t reporting.TopSpender
		if err := rows.Scan(&t.ID, &t.Name, &t.Total); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan spend ranking")
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate spend ranking")
	}
	return out, nil
}
