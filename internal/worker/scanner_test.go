package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appenf "github.com/opencivic/lobbyreg/internal/application/enforcement"
	"github.com/opencivic/lobbyreg/internal/domain/compliance"
	domainenf "github.com/opencivic/lobbyreg/internal/domain/enforcement"
	"github.com/opencivic/lobbyreg/internal/domain/registry"
	"github.com/opencivic/lobbyreg/internal/domain/reporting"
	"github.com/opencivic/lobbyreg/internal/infrastructure/monitoring/logging"
	"github.com/opencivic/lobbyreg/pkg/errors"
)

type fakeLobbyistRepo struct {
	registry.Repository
	byStatus map[registry.RegistrationStatus][]*registry.Lobbyist
}

func (f *fakeLobbyistRepo) ListLobbyists(_ context.Context, status registry.RegistrationStatus, limit, offset int) ([]*registry.Lobbyist, int64, error) {
	all := f.byStatus[status]
	if offset >= len(all) {
		return nil, int64(len(all)), nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], int64(len(all)), nil
}

type fakeReportRepo struct {
	reporting.Repository
	filed map[string]bool // lobbyistID|period
}

func (f *fakeReportRepo) GetExpenseReportByPeriod(_ context.Context, lobbyistID string, p compliance.Period) (*reporting.ExpenseReport, error) {
	if f.filed[lobbyistID+"|"+p.String()] {
		return &reporting.ExpenseReport{LobbyistID: lobbyistID}, nil
	}
	return nil, errors.New(errors.ErrCodeReportNotFound, "report not found")
}

type fakeEnforcement struct {
	appenf.Service

	mu       sync.Mutex
	existing map[string][]*domainenf.Violation
	issued   []appenf.IssueViolationRequest
}

func (f *fakeEnforcement) ListViolations(_ context.Context, lobbyistID, _ string, _, _ int) ([]*domainenf.Violation, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	vs := f.existing[lobbyistID]
	return vs, int64(len(vs)), nil
}

func (f *fakeEnforcement) IssueViolation(_ context.Context, req appenf.IssueViolationRequest) (*domainenf.Violation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.issued = append(f.issued, req)
	return &domainenf.Violation{ID: "vio-new", LobbyistID: req.LobbyistID, Type: domainenf.ViolationType(req.Type)}, nil
}

type scanFixture struct {
	scanner   *Scanner
	lobbyists *fakeLobbyistRepo
	reports   *fakeReportRepo
	enf       *fakeEnforcement
}

func newScanFixture(t *testing.T, now time.Time) *scanFixture {
	t.Helper()
	f := &scanFixture{
		lobbyists: &fakeLobbyistRepo{byStatus: map[registry.RegistrationStatus][]*registry.Lobbyist{}},
		reports:   &fakeReportRepo{filed: map[string]bool{}},
		enf:       &fakeEnforcement{existing: map[string][]*domainenf.Violation{}},
	}
	f.scanner = NewScanner(f.lobbyists, f.reports, f.enf, nil, 2, logging.NewNopLogger())
	f.scanner.now = func() time.Time { return now }
	return f
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestScanIssuesMissedRegistration(t *testing.T) {
	now := date(2026, time.August, 30)
	f := newScanFixture(t, now)

	past := date(2026, time.August, 20)
	future := date(2026, time.September, 10)
	f.lobbyists.byStatus[registry.RegistrationPending] = []*registry.Lobbyist{
		{ID: "lob-overdue", RegistrationDeadline: &past},
		{ID: "lob-on-track", RegistrationDeadline: &future},
		{ID: "lob-no-deadline"},
	}

	report, err := f.scanner.ScanOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.OverdueRegistrations)
	assert.Equal(t, 1, report.MissedRegistration)
	require.Len(t, f.enf.issued, 1)
	assert.Equal(t, "lob-overdue", f.enf.issued[0].LobbyistID)
	assert.Equal(t, string(domainenf.ViolationMissedRegistration), f.enf.issued[0].Type)
	assert.True(t, f.enf.issued[0].FineAmount.IsZero())
}

func TestScanSkipsExistingUnresolvedViolation(t *testing.T) {
	now := date(2026, time.August, 30)
	f := newScanFixture(t, now)

	past := date(2026, time.August, 20)
	f.lobbyists.byStatus[registry.RegistrationPending] = []*registry.Lobbyist{
		{ID: "lob-1", RegistrationDeadline: &past},
	}
	f.enf.existing["lob-1"] = []*domainenf.Violation{
		{Type: domainenf.ViolationMissedRegistration, Status: domainenf.ViolationIssued},
	}

	report, err := f.scanner.ScanOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.OverdueRegistrations)
	assert.Equal(t, 0, report.MissedRegistration)
	assert.Empty(t, f.enf.issued)
}

func TestScanReissuesAfterResolution(t *testing.T) {
	now := date(2026, time.August, 30)
	f := newScanFixture(t, now)

	past := date(2026, time.August, 20)
	f.lobbyists.byStatus[registry.RegistrationPending] = []*registry.Lobbyist{
		{ID: "lob-1", RegistrationDeadline: &past},
	}
	f.enf.existing["lob-1"] = []*domainenf.Violation{
		{Type: domainenf.ViolationMissedRegistration, Status: domainenf.ViolationWaived},
	}

	report, err := f.scanner.ScanOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.MissedRegistration)
}

func TestScanIssuesLateReport(t *testing.T) {
	// Aug 30: Q2's Jul 15 due date has passed.
	now := date(2026, time.August, 30)
	f := newScanFixture(t, now)

	f.lobbyists.byStatus[registry.RegistrationApproved] = []*registry.Lobbyist{
		{ID: "lob-filed"},
		{ID: "lob-missing"},
	}
	f.reports.filed["lob-filed|Q2-2026"] = true

	report, err := f.scanner.ScanOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.LateReports)
	require.Len(t, f.enf.issued, 1)
	assert.Equal(t, "lob-missing", f.enf.issued[0].LobbyistID)
	assert.Equal(t, string(domainenf.ViolationLateReport), f.enf.issued[0].Type)
	assert.Contains(t, f.enf.issued[0].Description, "Q2-2026")
}

func TestScanSkipsReportsBeforeDueDate(t *testing.T) {
	// Jan 10: Q4-2025 reports are not due until Jan 15.
	now := date(2026, time.January, 10)
	f := newScanFixture(t, now)

	f.lobbyists.byStatus[registry.RegistrationApproved] = []*registry.Lobbyist{
		{ID: "lob-1"},
	}

	report, err := f.scanner.ScanOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.LateReports)
	assert.Empty(t, f.enf.issued)
}

func TestPreviousPeriod(t *testing.T) {
	assert.Equal(t, compliance.Period{Quarter: compliance.Q4, Year: 2025},
		previousPeriod(compliance.Period{Quarter: compliance.Q1, Year: 2026}))
	assert.Equal(t, compliance.Period{Quarter: compliance.Q2, Year: 2026},
		previousPeriod(compliance.Period{Quarter: compliance.Q3, Year: 2026}))
}

func TestScannerDefaultConcurrency(t *testing.T) {
	s := NewScanner(nil, nil, nil, nil, 0, logging.NewNopLogger())
	assert.Equal(t, defaultConcurrency, s.concurrency)
}
