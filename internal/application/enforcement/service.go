// Package enforcement is the application service for violations and
// appeals: issuing and resolving fines, the 30-day appeal window, and
// hearing decisions.
package enforcement

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opencivic/lobbyreg/internal/domain/compliance"
	domainenf "github.com/opencivic/lobbyreg/internal/domain/enforcement"
	"github.com/opencivic/lobbyreg/internal/domain/registry"
	"github.com/opencivic/lobbyreg/internal/infrastructure/messaging/kafka"
	"github.com/opencivic/lobbyreg/internal/infrastructure/monitoring/logging"
	"github.com/opencivic/lobbyreg/internal/infrastructure/monitoring/prometheus"
	"github.com/opencivic/lobbyreg/pkg/errors"
)

// EventPublisher is the messaging seam the service emits domain events
// through. *kafka.Producer satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, msg *kafka.ProducerMessage) error
}

// IssueViolationRequest issues an enforcement action against a lobbyist.
type IssueViolationRequest struct {
	LobbyistID  string          `json:"lobbyist_id"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	FineAmount  decimal.Decimal `json:"fine_amount"`
}

// FileAppealRequest contests an issued violation.
type FileAppealRequest struct {
	ViolationID string `json:"violation_id"`
	Reason      string `json:"reason"`
}

// DecideAppealRequest records a hearing outcome.
type DecideAppealRequest struct {
	AppealID string `json:"appeal_id"`
	Outcome  string `json:"outcome"`
}

// Service is the enforcement application API.
type Service interface {
	IssueViolation(ctx context.Context, req IssueViolationRequest) (*domainenf.Violation, error)
	GetViolation(ctx context.Context, id string) (*domainenf.Violation, error)
	UpdateFine(ctx context.Context, violationID string, fine decimal.Decimal) (*domainenf.Violation, error)
	ResolveViolation(ctx context.Context, violationID, status string) (*domainenf.Violation, error)
	ListViolations(ctx context.Context, lobbyistID, status string, limit, offset int) ([]*domainenf.Violation, int64, error)
	Summary(ctx context.Context) (*domainenf.ViolationSummary, error)

	FileAppeal(ctx context.Context, req FileAppealRequest) (*domainenf.Appeal, error)
	DecideAppeal(ctx context.Context, req DecideAppealRequest) (*domainenf.Appeal, error)
	GetAppeal(ctx context.Context, id string) (*domainenf.Appeal, error)
	ListAppeals(ctx context.Context, status string, limit, offset int) ([]*domainenf.Appeal, int64, error)
}

type service struct {
	repo      domainenf.Repository
	registry  registry.Repository
	policy    compliance.AppealPolicy
	publisher EventPublisher
	metrics   *prometheus.AppMetrics
	log       logging.Logger
	now       func() time.Time
}

// NewService wires the enforcement service. publisher and metrics may be
// nil; the corresponding side effects are skipped.
func NewService(
	repo domainenf.Repository,
	reg registry.Repository,
	policy compliance.AppealPolicy,
	publisher EventPublisher,
	metrics *prometheus.AppMetrics,
	log logging.Logger,
) Service {
	return &service{
		repo:      repo,
		registry:  reg,
		policy:    policy,
		publisher: publisher,
		metrics:   metrics,
		log:       log.Named("enforcement"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// IssueViolation creates a violation against a known lobbyist. The fine is
// validated against the ordinance cap before anything is persisted.
func (s *service) IssueViolation(ctx context.Context, req IssueViolationRequest) (*domainenf.Violation, error) {
	if _, err := s.registry.GetLobbyist(ctx, req.LobbyistID); err != nil {
		return nil, err
	}
	vtype, err := domainenf.ParseViolationType(req.Type)
	if err != nil {
		return nil, err
	}
	violation, err := domainenf.NewViolation(req.LobbyistID, vtype, req.Description, req.FineAmount)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateViolation(ctx, violation); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		prometheus.RecordViolationIssued(s.metrics, string(violation.Type))
	}
	s.publish(ctx, kafka.TopicViolationIssued, "violation.issued", kafka.ViolationIssuedPayload{
		ViolationID: violation.ID,
		LobbyistID:  violation.LobbyistID,
		Type:        string(violation.Type),
		FineAmount:  violation.FineAmount,
		IssuedAt:    *violation.IssuedAt,
	})
	s.log.Info("violation issued",
		logging.String("violation_id", violation.ID),
		logging.String("lobbyist_id", violation.LobbyistID),
		logging.String("type", string(violation.Type)),
		logging.String("fine", violation.FineAmount.String()))
	return violation, nil
}

func (s *service) GetViolation(ctx context.Context, id string) (*domainenf.Violation, error) {
	return s.repo.GetViolation(ctx, id)
}

// UpdateFine changes a violation's fine, re-validating the cap.
func (s *service) UpdateFine(ctx context.Context, violationID string, fine decimal.Decimal) (*domainenf.Violation, error) {
	violation, err := s.repo.GetViolation(ctx, violationID)
	if err != nil {
		return nil, err
	}
	if err := violation.UpdateFine(fine); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateViolation(ctx, violation); err != nil {
		return nil, err
	}
	return violation, nil
}

// ResolveViolation closes a violation as PAID or WAIVED.
func (s *service) ResolveViolation(ctx context.Context, violationID, status string) (*domainenf.Violation, error) {
	violation, err := s.repo.GetViolation(ctx, violationID)
	if err != nil {
		return nil, err
	}
	if err := violation.Resolve(domainenf.ViolationStatus(status), s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateViolation(ctx, violation); err != nil {
		return nil, err
	}
	s.log.Info("violation resolved",
		logging.String("violation_id", violation.ID),
		logging.String("status", string(violation.Status)))
	return violation, nil
}

func (s *service) ListViolations(ctx context.Context, lobbyistID, status string, limit, offset int) ([]*domainenf.Violation, int64, error) {
	limit, offset = clampPage(limit, offset)
	return s.repo.ListViolations(ctx, lobbyistID, domainenf.ViolationStatus(status), limit, offset)
}

func (s *service) Summary(ctx context.Context) (*domainenf.ViolationSummary, error) {
	return s.repo.Summarize(ctx)
}

// FileAppeal contests a violation. Preconditions are checked in order: the
// violation must exist, be in ISSUED status, have no appeal on file, carry
// an issued date, and still be inside the appeal window. The appeal insert
// and the violation status change are persisted atomically.
func (s *service) FileAppeal(ctx context.Context, req FileAppealRequest) (*domainenf.Appeal, error) {
	violation, err := s.repo.GetViolation(ctx, req.ViolationID)
	if err != nil {
		return nil, err
	}
	if violation.Status != domainenf.ViolationIssued {
		return nil, errors.New(errors.ErrCodeViolationNotAppealable, errors.DefaultMessageForCode(errors.ErrCodeViolationNotAppealable)).
			WithDetail("status " + string(violation.Status))
	}
	if existing, err := s.repo.GetAppealByViolation(ctx, violation.ID); err == nil && existing != nil {
		return nil, errors.New(errors.ErrCodeAppealAlreadyFiled, errors.DefaultMessageForCode(errors.ErrCodeAppealAlreadyFiled))
	} else if err != nil && !errors.IsNotFound(err) {
		return nil, err
	}
	if violation.IssuedAt == nil {
		return nil, errors.New(errors.ErrCodeIssuedDateMissing, errors.DefaultMessageForCode(errors.ErrCodeIssuedDateMissing))
	}
	now := s.now()
	if err := s.policy.CheckWindow(*violation.IssuedAt, now); err != nil {
		return nil, err
	}

	appeal, err := domainenf.FileAppeal(violation, req.Reason, now)
	if err != nil {
		return nil, err
	}
	if err := s.repo.FileAppealAtomic(ctx, appeal, violation); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.AppealsFiledTotal.WithLabelValues().Inc()
	}
	s.publish(ctx, kafka.TopicAppealFiled, "appeal.filed", kafka.AppealFiledPayload{
		AppealID:       appeal.ID,
		ViolationID:    violation.ID,
		LobbyistID:     violation.LobbyistID,
		FiledOn:        appeal.FiledAt,
		AppealDeadline: s.policy.Deadline(*violation.IssuedAt),
	})
	s.log.Info("appeal filed",
		logging.String("appeal_id", appeal.ID),
		logging.String("violation_id", violation.ID))
	return appeal, nil
}

// DecideAppeal records a hearing outcome. The appeal decision and the
// violation's final status are persisted atomically.
func (s *service) DecideAppeal(ctx context.Context, req DecideAppealRequest) (*domainenf.Appeal, error) {
	outcome, err := domainenf.ParseAppealOutcome(req.Outcome)
	if err != nil {
		return nil, err
	}
	appeal, err := s.repo.GetAppeal(ctx, req.AppealID)
	if err != nil {
		return nil, err
	}
	violation, err := s.repo.GetViolation(ctx, appeal.ViolationID)
	if err != nil {
		return nil, err
	}
	if err := appeal.Decide(violation, outcome, s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.DecideAppealAtomic(ctx, appeal, violation); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		prometheus.RecordAppealDecided(s.metrics, string(outcome))
	}
	s.publish(ctx, kafka.TopicAppealDecided, "appeal.decided", kafka.AppealDecidedPayload{
		AppealID:    appeal.ID,
		ViolationID: violation.ID,
		LobbyistID:  violation.LobbyistID,
		Outcome:     string(outcome),
		DecidedAt:   *appeal.DecidedAt,
	})
	s.log.Info("appeal decided",
		logging.String("appeal_id", appeal.ID),
		logging.String("outcome", string(outcome)))
	return appeal, nil
}

func (s *service) GetAppeal(ctx context.Context, id string) (*domainenf.Appeal, error) {
	return s.repo.GetAppeal(ctx, id)
}

func (s *service) ListAppeals(ctx context.Context, status string, limit, offset int) ([]*domainenf.Appeal, int64, error) {
	limit, offset = clampPage(limit, offset)
	return s.repo.ListAppeals(ctx, domainenf.AppealStatus(status), limit, offset)
}

// publish sends a domain event. Delivery is best effort: a publish failure
// is logged and never fails the request that produced it.
func (s *service) publish(ctx context.Context, topic, eventType string, payload interface{}) {
	if s.publisher == nil {
		return
	}
	envelope, err := kafka.NewEventEnvelope(eventType, "lobbyreg", payload)
	if err != nil {
		s.log.Warn("failed to build event envelope", logging.String("topic", topic), logging.Err(err))
		return
	}
	msg, err := envelope.ToMessage(topic)
	if err != nil {
		s.log.Warn("failed to encode event", logging.String("topic", topic), logging.Err(err))
		return
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.log.Warn("failed to publish event", logging.String("topic", topic), logging.Err(err))
	}
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
