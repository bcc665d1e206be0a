// Package registration is the application service for lobbyist and employer
// registration: intake, resubmission, and the administrative review
// workflow.
package registration

import (
	"context"
	"time"

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

// RegisterRequest is a new lobbyist registration submission.
type RegisterRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Organization string `json:"organization,omitempty"`
}

// ReviewRequest is an administrator decision on a pending registration.
type ReviewRequest struct {
	LobbyistID string `json:"lobbyist_id"`
	Action     string `json:"action"`
	Note       string `json:"note,omitempty"`
	ReviewedBy string `json:"reviewed_by"`
}

// Service is the registration application API.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*registry.Lobbyist, error)
	Resubmit(ctx context.Context, lobbyistID, name, organization string) (*registry.Lobbyist, error)
	Review(ctx context.Context, req ReviewRequest) (*registry.Lobbyist, error)
	Get(ctx context.Context, lobbyistID string) (*registry.Lobbyist, error)
	List(ctx context.Context, status string, limit, offset int) ([]*registry.Lobbyist, int64, error)

	CreateEmployer(ctx context.Context, name, email string) (*registry.Employer, error)
	GetEmployer(ctx context.Context, employerID string) (*registry.Employer, error)
	ListEmployers(ctx context.Context, limit, offset int) ([]*registry.Employer, int64, error)
}

type service struct {
	repo      registry.Repository
	publisher EventPublisher
	metrics   *prometheus.AppMetrics
	log       logging.Logger
	now       func() time.Time
}

// NewService wires the registration service. publisher and metrics may be
// nil; the corresponding side effects are skipped.
func NewService(repo registry.Repository, publisher EventPublisher, metrics *prometheus.AppMetrics, log logging.Logger) Service {
	return &service{
		repo:      repo,
		publisher: publisher,
		metrics:   metrics,
		log:       log.Named("registration"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a pending registration. Each email registers at most
// once; a returning lobbyist goes through Resubmit instead.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*registry.Lobbyist, error) {
	lobbyist, err := registry.NewLobbyist(req.Name, req.Email, req.Organization)
	if err != nil {
		return nil, err
	}
	if existing, err := s.repo.GetLobbyistByEmail(ctx, lobbyist.Email); err == nil && existing != nil {
		return nil, errors.New(errors.ErrCodeEmailAlreadyRegistered, errors.DefaultMessageForCode(errors.ErrCodeEmailAlreadyRegistered)).
			WithDetail("email " + lobbyist.Email)
	} else if err != nil && !errors.IsNotFound(err) {
		return nil, err
	}
	if err := s.repo.CreateLobbyist(ctx, lobbyist); err != nil {
		return nil, err
	}
	s.log.Info("registration submitted",
		logging.String("lobbyist_id", lobbyist.ID), logging.String("email", lobbyist.Email))
	return lobbyist, nil
}

// Resubmit returns a previously reviewed registration to pending, clearing
// the earlier decision.
func (s *service) Resubmit(ctx context.Context, lobbyistID, name, organization string) (*registry.Lobbyist, error) {
	lobbyist, err := s.repo.GetLobbyist(ctx, lobbyistID)
	if err != nil {
		return nil, err
	}
	lobbyist.Resubmit(name, organization)
	if err := s.repo.UpdateLobbyist(ctx, lobbyist); err != nil {
		return nil, err
	}
	s.log.Info("registration resubmitted", logging.String("lobbyist_id", lobbyist.ID))
	return lobbyist, nil
}

// Review applies an approve/reject decision to a pending registration and
// emits a review event.
func (s *service) Review(ctx context.Context, req ReviewRequest) (*registry.Lobbyist, error) {
	action, err := registry.ParseReviewAction(req.Action)
	if err != nil {
		return nil, err
	}
	lobbyist, err := s.repo.GetLobbyist(ctx, req.LobbyistID)
	if err != nil {
		return nil, err
	}
	if err := lobbyist.Review(action, req.Note, s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateLobbyist(ctx, lobbyist); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RegistrationsReviewedTotal.WithLabelValues(string(lobbyist.Status)).Inc()
	}
	s.publish(ctx, kafka.TopicRegistrationReviewed, "registration.reviewed", kafka.RegistrationReviewedPayload{
		LobbyistID: lobbyist.ID,
		Status:     string(lobbyist.Status),
		ReviewedBy: req.ReviewedBy,
		ReviewedAt: *lobbyist.ReviewedAt,
		Reason:     lobbyist.ReviewNote,
	})
	s.log.Info("registration reviewed",
		logging.String("lobbyist_id", lobbyist.ID),
		logging.String("status", string(lobbyist.Status)),
		logging.String("reviewed_by", req.ReviewedBy))
	return lobbyist, nil
}

func (s *service) Get(ctx context.Context, lobbyistID string) (*registry.Lobbyist, error) {
	return s.repo.GetLobbyist(ctx, lobbyistID)
}

// List returns lobbyists, optionally filtered by registration status.
func (s *service) List(ctx context.Context, status string, limit, offset int) ([]*registry.Lobbyist, int64, error) {
	var filter registry.RegistrationStatus
	switch registry.RegistrationStatus(status) {
	case registry.RegistrationPending, registry.RegistrationApproved, registry.RegistrationRejected:
		filter = registry.RegistrationStatus(status)
	case "":
		// no filter
	default:
		return nil, 0, errors.InvalidParam("invalid registration status filter " + status)
	}
	limit, offset = clampPage(limit, offset)
	return s.repo.ListLobbyists(ctx, filter, limit, offset)
}

func (s *service) CreateEmployer(ctx context.Context, name, email string) (*registry.Employer, error) {
	employer, err := registry.NewEmployer(name, email)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateEmployer(ctx, employer); err != nil {
		return nil, err
	}
	s.log.Info("employer created", logging.String("employer_id", employer.ID))
	return employer, nil
}

func (s *service) GetEmployer(ctx context.Context, employerID string) (*registry.Employer, error) {
	return s.repo.GetEmployer(ctx, employerID)
}

func (s *service) ListEmployers(ctx context.Context, limit, offset int) ([]*registry.Employer, int64, error) {
	limit, offset = clampPage(limit, offset)
	return s.repo.ListEmployers(ctx, limit, offset)
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
