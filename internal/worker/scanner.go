// Package worker runs the periodic compliance scan: it finds lobbyists who
// missed their registration deadline and approved lobbyists who failed to
// file the previous quarter's expense report, and issues violations for
// both.
package worker

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	appenf "github.com/opencivic/lobbyreg/internal/application/enforcement"
	"github.com/opencivic/lobbyreg/internal/domain/compliance"
	domainenf "github.com/opencivic/lobbyreg/internal/domain/enforcement"
	"github.com/opencivic/lobbyreg/internal/domain/registry"
	"github.com/opencivic/lobbyreg/internal/domain/reporting"
	"github.com/opencivic/lobbyreg/internal/infrastructure/monitoring/logging"
	"github.com/opencivic/lobbyreg/internal/infrastructure/monitoring/prometheus"
	"github.com/opencivic/lobbyreg/pkg/errors"
)

const (
	defaultScanInterval = time.Hour
	defaultConcurrency  = 4
	scanPageSize        = 200
)

// ScanReport summarizes one completed scan pass.
type ScanReport struct {
	OverdueRegistrations int `json:"overdue_registrations"`
	MissedRegistration   int `json:"missed_registration_violations"`
	LateReports          int `json:"late_report_violations"`
}

// Scanner drives the compliance scan. Violations are issued through the
// enforcement service so events and metrics fire exactly as they do for
// manually issued ones. Auto-issued violations carry a zero fine; the fine
// is assessed by an administrator afterwards.
type Scanner struct {
	lobbyists   registry.Repository
	reports     reporting.Repository
	enforcement appenf.Service
	metrics     *prometheus.AppMetrics
	log         logging.Logger
	concurrency int
	now         func() time.Time
}

func NewScanner(
	lobbyists registry.Repository,
	reports reporting.Repository,
	enf appenf.Service,
	metrics *prometheus.AppMetrics,
	concurrency int,
	log logging.Logger,
) *Scanner {
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}
	return &Scanner{
		lobbyists:   lobbyists,
		reports:     reports,
		enforcement: enf,
		metrics:     metrics,
		log:         log.Named("scanner"),
		concurrency: concurrency,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Run scans on the given interval until ctx is cancelled. A failing pass is
// logged and retried on the next tick.
func (s *Scanner) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = defaultScanInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		report, err := s.ScanOnce(ctx)
		if err != nil {
			s.log.Error("compliance scan failed", logging.Err(err))
		} else {
			s.log.Info("compliance scan completed",
				logging.Int("overdue_registrations", report.OverdueRegistrations),
				logging.Int("missed_registration_violations", report.MissedRegistration),
				logging.Int("late_report_violations", report.LateReports))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ScanOnce runs both scans and returns their combined tally.
func (s *Scanner) ScanOnce(ctx context.Context) (*ScanReport, error) {
	report := &ScanReport{}
	if err := s.scanOverdueRegistrations(ctx, report); err != nil {
		return nil, fmt.Errorf("scan overdue registrations: %w", err)
	}
	if err := s.scanLateReports(ctx, report); err != nil {
		return nil, fmt.Errorf("scan late reports: %w", err)
	}
	return report, nil
}

// scanOverdueRegistrations walks pending registrations and issues a
// MISSED_REGISTRATION violation for each lobbyist whose deadline has
// passed without an administrator decision.
func (s *Scanner) scanOverdueRegistrations(ctx context.Context, report *ScanReport) error {
	start := s.now()
	defer s.observeScan("registrations", start)

	now := s.now()
	period := compliance.PeriodOf(now)
	overdue := 0

	for offset := 0; ; offset += scanPageSize {
		page, total, err := s.lobbyists.ListLobbyists(ctx, registry.RegistrationPending, scanPageSize, offset)
		if err != nil {
			return err
		}
		for _, lobbyist := range page {
			if lobbyist.RegistrationDeadline == nil || !now.After(*lobbyist.RegistrationDeadline) {
				continue
			}
			overdue++
			issued, err := s.issueOnce(ctx, lobbyist.ID, domainenf.ViolationMissedRegistration,
				fmt.Sprintf("registration not completed by deadline %s", lobbyist.RegistrationDeadline.Format("2006-01-02")))
			if err != nil {
				return err
			}
			if issued {
				report.MissedRegistration++
			}
		}
		if int64(offset+len(page)) >= total || len(page) == 0 {
			break
		}
	}

	report.OverdueRegistrations = overdue
	if s.metrics != nil {
		s.metrics.OverdueRegistrations.WithLabelValues(string(period.Quarter)).Set(float64(overdue))
	}
	return nil
}

// scanLateReports checks, once the previous period's due date has passed,
// that every approved lobbyist filed a report for it. Concurrency is
// bounded; each lobbyist is an independent lookup.
func (s *Scanner) scanLateReports(ctx context.Context, report *ScanReport) error {
	start := s.now()
	defer s.observeScan("reports", start)

	now := s.now()
	prev := previousPeriod(compliance.PeriodOf(now))
	if !now.After(compliance.DueDate(prev)) {
		return nil
	}

	for offset := 0; ; offset += scanPageSize {
		page, total, err := s.lobbyists.ListLobbyists(ctx, registry.RegistrationApproved, scanPageSize, offset)
		if err != nil {
			return err
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.concurrency)
		issued := make([]bool, len(page))
		for i, lobbyist := range page {
			i, lobbyist := i, lobbyist
			g.Go(func() error {
				_, err := s.reports.GetExpenseReportByPeriod(gctx, lobbyist.ID, prev)
				if err == nil {
					return nil
				}
				if !errors.IsNotFound(err) {
					return err
				}
				ok, err := s.issueOnce(gctx, lobbyist.ID, domainenf.ViolationLateReport,
					fmt.Sprintf("no expense report filed for %s by %s", prev.String(), compliance.DueDate(prev).Format("2006-01-02")))
				issued[i] = ok
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		for _, ok := range issued {
			if ok {
				report.LateReports++
			}
		}
		if int64(offset+len(page)) >= total || len(page) == 0 {
			break
		}
	}
	return nil
}

// issueOnce issues a violation unless an unresolved one of the same type
// already exists for the lobbyist. Returns whether a new violation was
// issued.
func (s *Scanner) issueOnce(ctx context.Context, lobbyistID string, vtype domainenf.ViolationType, description string) (bool, error) {
	existing, _, err := s.enforcement.ListViolations(ctx, lobbyistID, "", scanPageSize, 0)
	if err != nil {
		return false, err
	}
	for _, v := range existing {
		if v.Type == vtype && v.Status != domainenf.ViolationPaid && v.Status != domainenf.ViolationWaived {
			return false, nil
		}
	}
	_, err = s.enforcement.IssueViolation(ctx, appenf.IssueViolationRequest{
		LobbyistID:  lobbyistID,
		Type:        string(vtype),
		Description: description,
	})
	if err != nil {
		return false, err
	}
	s.log.Info("violation issued by scan",
		logging.String("lobbyist_id", lobbyistID),
		logging.String("type", string(vtype)))
	return true, nil
}

func (s *Scanner) observeScan(scanType string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.ComplianceScanDuration.WithLabelValues(scanType).Observe(s.now().Sub(start).Seconds())
}

// previousPeriod steps one quarter back, crossing the year boundary from
// Q1 to the prior year's Q4.
func previousPeriod(p compliance.Period) compliance.Period {
	if p.Quarter == compliance.Q1 {
		return compliance.Period{Quarter: compliance.Q4, Year: p.Year - 1}
	}
	return compliance.Period{Quarter: compliance.AllQuarters[p.Quarter.Ordinal()-2], Year: p.Year}
}
