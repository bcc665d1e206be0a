// Package analytics assembles the compliance dashboard: registration
// pipeline counts, reporting activity for the current period, and the
// enforcement summary.
package analytics

import (
	"context"
	"time"

	"github.com/opencivic/lobbyreg/internal/domain/compliance"
	"github.com/opencivic/lobbyreg/internal/domain/enforcement"
	"github.com/opencivic/lobbyreg/internal/domain/registry"
	"github.com/opencivic/lobbyreg/internal/domain/reporting"
	"github.com/opencivic/lobbyreg/internal/infrastructure/database/redis"
	"github.com/opencivic/lobbyreg/internal/infrastructure/monitoring/logging"
	"github.com/opencivic/lobbyreg/pkg/errors"
)

const overviewCacheTTL = 60 * time.Second

// RegistrationCounts breaks lobbyists down by review status.
type RegistrationCounts struct {
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
}

// ReportingActivity summarizes filings for the current period.
type ReportingActivity struct {
	LobbyistReports int64 `json:"lobbyist_reports"`
	EmployerReports int64 `json:"employer_reports"`
}

// Overview is the compliance dashboard payload.
type Overview struct {
	Quarter       compliance.Quarter            `json:"quarter"`
	Year          int                           `json:"year"`
	ReportDueDate time.Time                     `json:"report_due_date"`
	DaysUntilDue  int                           `json:"days_until_due"`
	Registrations RegistrationCounts            `json:"registrations"`
	Reporting     ReportingActivity             `json:"reporting"`
	Enforcement   *enforcement.ViolationSummary `json:"enforcement"`
	GeneratedAt   time.Time                     `json:"generated_at"`
}

// SpendingReport aggregates reported spend across periods and ranks the
// heaviest spenders.
type SpendingReport struct {
	FromYear     int                            `json:"from_year"`
	ToYear       int                            `json:"to_year"`
	Trends       []reporting.SpendingTrendPoint `json:"trends"`
	TopLobbyists []reporting.TopSpender         `json:"top_lobbyists"`
	TopEmployers []reporting.TopSpender         `json:"top_employers"`
	TopOfficials []reporting.TopSpender         `json:"top_officials"`
}

// Service is the analytics application API.
type Service interface {
	Overview(ctx context.Context) (*Overview, error)
	Spending(ctx context.Context, fromYear, toYear, topN int) (*SpendingReport, error)
}

type service struct {
	lobbyists   registry.Repository
	reports     reporting.Repository
	enforcement enforcement.Repository
	spending    reporting.AnalyticsRepository
	cache       redis.Cache
	log         logging.Logger
	now         func() time.Time
}

// NewService wires the analytics service. cache may be nil; overviews are
// then computed on every call.
func NewService(
	lobbyists registry.Repository,
	reports reporting.Repository,
	enf enforcement.Repository,
	spending reporting.AnalyticsRepository,
	cache redis.Cache,
	log logging.Logger,
) Service {
	return &service{
		lobbyists:   lobbyists,
		reports:     reports,
		enforcement: enf,
		spending:    spending,
		cache:       cache,
		log:         log.Named("analytics"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Overview builds the dashboard for the current reporting period. The
// result is cached for a minute; all counts come from repository totals, so
// a stale overview never drifts more than the cache TTL.
func (s *service) Overview(ctx context.Context) (*Overview, error) {
	if s.cache == nil {
		return s.build(ctx)
	}
	var overview Overview
	err := s.cache.GetOrSet(ctx, "analytics:overview", &overview, overviewCacheTTL, func(ctx context.Context) (interface{}, error) {
		built, err := s.build(ctx)
		if err != nil {
			return nil, err
		}
		return built, nil
	})
	if err != nil {
		return nil, err
	}
	return &overview, nil
}

// Spending builds the spend analytics view: per-quarter trends over the
// year range plus the topN lobbyists, employers, and officials by total.
func (s *service) Spending(ctx context.Context, fromYear, toYear, topN int) (*SpendingReport, error) {
	if s.spending == nil {
		return nil, errors.New(errors.ErrCodeServiceUnavailable, "spending analytics are not configured")
	}
	if fromYear == 0 && toYear == 0 {
		year := s.now().Year()
		fromYear, toYear = year-2, year
	}
	if fromYear > toYear {
		return nil, errors.InvalidParam("from_year must not be after to_year")
	}
	if topN <= 0 || topN > 100 {
		topN = 10
	}

	trends, err := s.spending.SpendingTrends(ctx, fromYear, toYear)
	if err != nil {
		return nil, err
	}
	lobbyists, err := s.spending.TopLobbyists(ctx, topN)
	if err != nil {
		return nil, err
	}
	employers, err := s.spending.TopEmployers(ctx, topN)
	if err != nil {
		return nil, err
	}
	officials, err := s.spending.TopOfficials(ctx, topN)
	if err != nil {
		return nil, err
	}
	return &SpendingReport{
		FromYear:     fromYear,
		ToYear:       toYear,
		Trends:       trends,
		TopLobbyists: lobbyists,
		TopEmployers: employers,
		TopOfficials: officials,
	}, nil
}

func (s *service) build(ctx context.Context) (*Overview, error) {
	now := s.now()
	period := compliance.PeriodOf(now)

	counts := RegistrationCounts{}
	for _, st := range []struct {
		status registry.RegistrationStatus
		dest   *int64
	}{
		{registry.RegistrationPending, &counts.Pending},
		{registry.RegistrationApproved, &counts.Approved},
		{registry.RegistrationRejected, &counts.Rejected},
	} {
		_, total, err := s.lobbyists.ListLobbyists(ctx, st.status, 1, 0)
		if err != nil {
			return nil, err
		}
		*st.dest = total
	}

	_, lobbyistReports, err := s.reports.ListAllExpenseReports(ctx, 1, 0)
	if err != nil {
		return nil, err
	}
	_, employerReports, err := s.reports.ListAllEmployerReports(ctx, 1, 0)
	if err != nil {
		return nil, err
	}

	enfSummary, err := s.enforcement.Summarize(ctx)
	if err != nil {
		return nil, err
	}

	return &Overview{
		Quarter:       period.Quarter,
		Year:          period.Year,
		ReportDueDate: compliance.DueDate(period),
		DaysUntilDue:  compliance.DaysUntilDue(period, now),
		Registrations: counts,
		Reporting: ReportingActivity{
			LobbyistReports: lobbyistReports,
			EmployerReports: employerReports,
		},
		Enforcement: enfSummary,
		GeneratedAt: now,
	}, nil
}
