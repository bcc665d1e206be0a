package enforcement

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencivic/lobbyreg/internal/domain/compliance"
	domainenf "github.com/opencivic/lobbyreg/internal/domain/enforcement"
	"github.com/opencivic/lobbyreg/internal/domain/registry"
	"github.com/opencivic/lobbyreg/internal/infrastructure/messaging/kafka"
	"github.com/opencivic/lobbyreg/internal/infrastructure/monitoring/logging"
	"github.com/opencivic/lobbyreg/pkg/errors"
)

type fakeEnforcementRepo struct {
	violations map[string]*domainenf.Violation
	appeals    map[string]*domainenf.Appeal
	byViol     map[string]*domainenf.Appeal
	atomic     int
}

func newFakeEnforcementRepo() *fakeEnforcementRepo {
	return &fakeEnforcementRepo{
		violations: map[string]*domainenf.Violation{},
		appeals:    map[string]*domainenf.Appeal{},
		byViol:     map[string]*domainenf.Appeal{},
	}
}

func (f *fakeEnforcementRepo) CreateViolation(ctx context.Context, v *domainenf.Violation) error {
	f.violations[v.ID] = v
	return nil
}

func (f *fakeEnforcementRepo) GetViolation(ctx context.Context, id string) (*domainenf.Violation, error) {
	if v, ok := f.violations[id]; ok {
		return v, nil
	}
	return nil, errors.New(errors.ErrCodeViolationNotFound, "violation not found")
}

func (f *fakeEnforcementRepo) UpdateViolation(ctx context.Context, v *domainenf.Violation) error {
	f.violations[v.ID] = v
	return nil
}

func (f *fakeEnforcementRepo) ListViolations(ctx context.Context, lobbyistID string, status domainenf.ViolationStatus, limit, offset int) ([]*domainenf.Violation, int64, error) {
	var out []*domainenf.Violation
	for _, v := range f.violations {
		if lobbyistID != "" && v.LobbyistID != lobbyistID {
			continue
		}
		if status != "" && v.Status != status {
			continue
		}
		out = append(out, v)
	}
	return out, int64(len(out)), nil
}

func (f *fakeEnforcementRepo) Summarize(ctx context.Context) (*domainenf.ViolationSummary, error) {
	return &domainenf.ViolationSummary{TotalViolations: int64(len(f.violations))}, nil
}

func (f *fakeEnforcementRepo) GetAppeal(ctx context.Context, id string) (*domainenf.Appeal, error) {
	if a, ok := f.appeals[id]; ok {
		return a, nil
	}
	return nil, errors.New(errors.ErrCodeAppealNotFound, "appeal not found")
}

func (f *fakeEnforcementRepo) GetAppealByViolation(ctx context.Context, violationID string) (*domainenf.Appeal, error) {
	if a, ok := f.byViol[violationID]; ok {
		return a, nil
	}
	return nil, errors.New(errors.ErrCodeAppealNotFound, "appeal not found")
}

func (f *fakeEnforcementRepo) ListAppeals(ctx context.Context, status domainenf.AppealStatus, limit, offset int) ([]*domainenf.Appeal, int64, error) {
	var out []*domainenf.Appeal
	for _, a := range f.appeals {
		if status == "" || a.Status == status {
			out = append(out, a)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeEnforcementRepo) FileAppealAtomic(ctx context.Context, a *domainenf.Appeal, v *domainenf.Violation) error {
	f.appeals[a.ID] = a
	f.byViol[a.ViolationID] = a
	f.violations[v.ID] = v
	f.atomic++
	return nil
}

func (f *fakeEnforcementRepo) DecideAppealAtomic(ctx context.Context, a *domainenf.Appeal, v *domainenf.Violation) error {
	f.appeals[a.ID] = a
	f.violations[v.ID] = v
	f.atomic++
	return nil
}

type fakeRegistryRepo struct{ known map[string]bool }

func (f *fakeRegistryRepo) CreateLobbyist(ctx context.Context, l *registry.Lobbyist) error { return nil }

func (f *fakeRegistryRepo) GetLobbyist(ctx context.Context, id string) (*registry.Lobbyist, error) {
	if f.known[id] {
		return &registry.Lobbyist{ID: id, Status: registry.RegistrationApproved}, nil
	}
	return nil, errors.New(errors.ErrCodeLobbyistNotFound, "lobbyist not found")
}

func (f *fakeRegistryRepo) GetLobbyistByEmail(ctx context.Context, email string) (*registry.Lobbyist, error) {
	return nil, errors.New(errors.ErrCodeLobbyistNotFound, "lobbyist not found")
}

func (f *fakeRegistryRepo) UpdateLobbyist(ctx context.Context, l *registry.Lobbyist) error { return nil }

func (f *fakeRegistryRepo) ListLobbyists(ctx context.Context, status registry.RegistrationStatus, limit, offset int) ([]*registry.Lobbyist, int64, error) {
	return nil, 0, nil
}

func (f *fakeRegistryRepo) CreateEmployer(ctx context.Context, e *registry.Employer) error { return nil }

func (f *fakeRegistryRepo) GetEmployer(ctx context.Context, id string) (*registry.Employer, error) {
	return nil, errors.New(errors.ErrCodeEmployerNotFound, "employer not found")
}

func (f *fakeRegistryRepo) ListEmployers(ctx context.Context, limit, offset int) ([]*registry.Employer, int64, error) {
	return nil, 0, nil
}

type fakePublisher struct {
	published []*kafka.ProducerMessage
}

func (f *fakePublisher) Publish(ctx context.Context, msg *kafka.ProducerMessage) error {
	f.published = append(f.published, msg)
	return nil
}

func (f *fakePublisher) topics() []string {
	var out []string
	for _, m := range f.published {
		out = append(out, m.Topic)
	}
	return out
}

type enfFixture struct {
	svc  *service
	repo *fakeEnforcementRepo
	pub  *fakePublisher
}

func newEnfFixture(t *testing.T) *enfFixture {
	t.Helper()
	f := &enfFixture{repo: newFakeEnforcementRepo(), pub: &fakePublisher{}}
	reg := &fakeRegistryRepo{known: map[string]bool{"lob-1": true}}
	svc := NewService(f.repo, reg, compliance.DefaultAppealPolicy(), f.pub, nil, logging.NewNopLogger()).(*service)
	svc.now = func() time.Time { return time.Date(2026, 5, 18, 10, 0, 0, 0, time.UTC) }
	f.svc = svc
	return f
}

func (f *enfFixture) issueViolation(t *testing.T, issuedAt time.Time) *domainenf.Violation {
	t.Helper()
	v, err := f.svc.IssueViolation(context.Background(), IssueViolationRequest{
		LobbyistID:  "lob-1",
		Type:        "LATE_REPORT",
		Description: "Q1 report filed after April 15",
		FineAmount:  decimal.NewFromInt(250),
	})
	require.NoError(t, err)
	if !issuedAt.IsZero() {
		ts := issuedAt
		v.IssuedAt = &ts
	}
	return v
}

func TestIssueViolation(t *testing.T) {
	f := newEnfFixture(t)

	v := f.issueViolation(t, time.Time{})

	assert.Equal(t, domainenf.ViolationIssued, v.Status)
	assert.Equal(t, domainenf.ViolationLateReport, v.Type)
	assert.Equal(t, []string{kafka.TopicViolationIssued}, f.pub.topics())
	assert.Contains(t, f.repo.violations, v.ID)
}

func TestIssueViolationFineOverCap(t *testing.T) {
	f := newEnfFixture(t)

	_, err := f.svc.IssueViolation(context.Background(), IssueViolationRequest{
		LobbyistID:  "lob-1",
		Type:        "OTHER",
		Description: "unregistered contact",
		FineAmount:  decimal.RequireFromString("500.01"),
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeFineExceedsCap))
	assert.Empty(t, f.repo.violations)
}

func TestIssueViolationAtCapAllowed(t *testing.T) {
	f := newEnfFixture(t)

	v, err := f.svc.IssueViolation(context.Background(), IssueViolationRequest{
		LobbyistID:  "lob-1",
		Type:        "MISSED_REGISTRATION",
		Description: "registration deadline missed",
		FineAmount:  decimal.NewFromInt(500),
	})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(500).Equal(v.FineAmount))
}

func TestIssueViolationInvalidType(t *testing.T) {
	f := newEnfFixture(t)

	_, err := f.svc.IssueViolation(context.Background(), IssueViolationRequest{
		LobbyistID: "lob-1", Type: "PARKING", Description: "x", FineAmount: decimal.NewFromInt(10),
	})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestIssueViolationUnknownLobbyist(t *testing.T) {
	f := newEnfFixture(t)

	_, err := f.svc.IssueViolation(context.Background(), IssueViolationRequest{
		LobbyistID: "ghost", Type: "OTHER", Description: "x", FineAmount: decimal.NewFromInt(10),
	})
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestUpdateFineRevalidatesCap(t *testing.T) {
	f := newEnfFixture(t)
	v := f.issueViolation(t, time.Time{})

	updated, err := f.svc.UpdateFine(context.Background(), v.ID, decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(updated.FineAmount))

	_, err = f.svc.UpdateFine(context.Background(), v.ID, decimal.NewFromInt(750))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeFineExceedsCap))
}

func TestResolveViolation(t *testing.T) {
	f := newEnfFixture(t)
	v := f.issueViolation(t, time.Time{})

	resolved, err := f.svc.ResolveViolation(context.Background(), v.ID, "PAID")
	require.NoError(t, err)
	assert.Equal(t, domainenf.ViolationPaid, resolved.Status)
	require.NotNil(t, resolved.ResolutionDate)

	_, err = f.svc.ResolveViolation(context.Background(), v.ID, "DISMISSED")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeViolationStatusInvalid))
}

func TestFileAppealInsideWindow(t *testing.T) {
	f := newEnfFixture(t)
	// Issued Apr 20; day 30 of the window is May 20, now is May 18.
	v := f.issueViolation(t, time.Date(2026, 4, 20, 9, 0, 0, 0, time.UTC))

	appeal, err := f.svc.FileAppeal(context.Background(), FileAppealRequest{
		ViolationID: v.ID,
		Reason:      "report was postmarked on time",
	})
	require.NoError(t, err)

	assert.Equal(t, domainenf.AppealPending, appeal.Status)
	assert.Equal(t, domainenf.ViolationAppealed, f.repo.violations[v.ID].Status)
	assert.Equal(t, 1, f.repo.atomic)
	assert.Contains(t, f.pub.topics(), kafka.TopicAppealFiled)
}

func TestFileAppealOnLastWindowDay(t *testing.T) {
	f := newEnfFixture(t)
	// Issued Apr 18; deadline is May 18, which is exactly today.
	v := f.issueViolation(t, time.Date(2026, 4, 18, 23, 0, 0, 0, time.UTC))

	_, err := f.svc.FileAppeal(context.Background(), FileAppealRequest{ViolationID: v.ID, Reason: "contesting the fine"})
	require.NoError(t, err)
}

func TestFileAppealWindowClosed(t *testing.T) {
	f := newEnfFixture(t)
	// Issued Apr 17; deadline May 17 was yesterday.
	v := f.issueViolation(t, time.Date(2026, 4, 17, 9, 0, 0, 0, time.UTC))

	_, err := f.svc.FileAppeal(context.Background(), FileAppealRequest{ViolationID: v.ID, Reason: "contesting the fine"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeAppealWindowClosed))
	assert.Equal(t, domainenf.ViolationIssued, f.repo.violations[v.ID].Status)
}

func TestFileAppealPreconditionOrder(t *testing.T) {
	f := newEnfFixture(t)

	// Unknown violation first.
	_, err := f.svc.FileAppeal(context.Background(), FileAppealRequest{ViolationID: "ghost", Reason: "r"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeViolationNotFound))

	// Non-ISSUED status reported before the missing issued date.
	v := f.issueViolation(t, time.Time{})
	_, err = f.svc.ResolveViolation(context.Background(), v.ID, "WAIVED")
	require.NoError(t, err)
	v.IssuedAt = nil
	_, err = f.svc.FileAppeal(context.Background(), FileAppealRequest{ViolationID: v.ID, Reason: "r"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeViolationNotAppealable))
}

func TestFileAppealDuplicate(t *testing.T) {
	f := newEnfFixture(t)
	v := f.issueViolation(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))

	_, err := f.svc.FileAppeal(context.Background(), FileAppealRequest{ViolationID: v.ID, Reason: "first"})
	require.NoError(t, err)

	// Force the status back to make the duplicate check the deciding one.
	f.repo.violations[v.ID].Status = domainenf.ViolationIssued
	_, err = f.svc.FileAppeal(context.Background(), FileAppealRequest{ViolationID: v.ID, Reason: "second"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeAppealAlreadyFiled))
}

func TestFileAppealMissingIssuedDate(t *testing.T) {
	f := newEnfFixture(t)
	v := f.issueViolation(t, time.Time{})
	v.IssuedAt = nil

	_, err := f.svc.FileAppeal(context.Background(), FileAppealRequest{ViolationID: v.ID, Reason: "r"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeIssuedDateMissing))
}

func TestFileAppealEmptyReason(t *testing.T) {
	f := newEnfFixture(t)
	v := f.issueViolation(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))

	_, err := f.svc.FileAppeal(context.Background(), FileAppealRequest{ViolationID: v.ID, Reason: "   "})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestDecideAppealUpheld(t *testing.T) {
	f := newEnfFixture(t)
	v := f.issueViolation(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	appeal, err := f.svc.FileAppeal(context.Background(), FileAppealRequest{ViolationID: v.ID, Reason: "contesting"})
	require.NoError(t, err)

	decided, err := f.svc.DecideAppeal(context.Background(), DecideAppealRequest{AppealID: appeal.ID, Outcome: "UPHELD"})
	require.NoError(t, err)

	assert.Equal(t, domainenf.AppealDecided, decided.Status)
	require.NotNil(t, decided.Decision)
	assert.Equal(t, domainenf.OutcomeUpheld, *decided.Decision)
	assert.Equal(t, domainenf.ViolationUpheld, f.repo.violations[v.ID].Status)
	require.NotNil(t, f.repo.violations[v.ID].ResolutionDate)
	assert.Equal(t, 2, f.repo.atomic)
	assert.Contains(t, f.pub.topics(), kafka.TopicAppealDecided)
}

func TestDecideAppealOverturned(t *testing.T) {
	f := newEnfFixture(t)
	v := f.issueViolation(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	appeal, err := f.svc.FileAppeal(context.Background(), FileAppealRequest{ViolationID: v.ID, Reason: "contesting"})
	require.NoError(t, err)

	decided, err := f.svc.DecideAppeal(context.Background(), DecideAppealRequest{AppealID: appeal.ID, Outcome: "overturned"})
	require.NoError(t, err)

	assert.Equal(t, domainenf.OutcomeOverturned, *decided.Decision)
	assert.Equal(t, domainenf.ViolationOverturned, f.repo.violations[v.ID].Status)
}

func TestDecideAppealTwice(t *testing.T) {
	f := newEnfFixture(t)
	v := f.issueViolation(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	appeal, err := f.svc.FileAppeal(context.Background(), FileAppealRequest{ViolationID: v.ID, Reason: "contesting"})
	require.NoError(t, err)
	_, err = f.svc.DecideAppeal(context.Background(), DecideAppealRequest{AppealID: appeal.ID, Outcome: "UPHELD"})
	require.NoError(t, err)

	_, err = f.svc.DecideAppeal(context.Background(), DecideAppealRequest{AppealID: appeal.ID, Outcome: "OVERTURNED"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeAppealAlreadyDecided))
}

func TestDecideAppealInvalidOutcome(t *testing.T) {
	f := newEnfFixture(t)

	_, err := f.svc.DecideAppeal(context.Background(), DecideAppealRequest{AppealID: "any", Outcome: "SETTLED"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeAppealOutcomeInvalid))
}

func TestSummary(t *testing.T) {
	f := newEnfFixture(t)
	f.issueViolation(t, time.Time{})

	summary, err := f.svc.Summary(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, summary.TotalViolations)
}
