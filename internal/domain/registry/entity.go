// Package registry holds the lobbyist and employer registration aggregates.
package registry

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opencivic/lobbyreg/pkg/errors"
)

// RegistrationStatus is the review state of a lobbyist registration.
type RegistrationStatus string

const (
	RegistrationPending  RegistrationStatus = "PENDING"
	RegistrationApproved RegistrationStatus = "APPROVED"
	RegistrationRejected RegistrationStatus = "REJECTED"
)

// ReviewAction is an administrator's decision on a pending registration.
type ReviewAction string

const (
	ReviewApprove ReviewAction = "approve"
	ReviewReject  ReviewAction = "reject"
)

// ParseReviewAction validates a review action string.
func ParseReviewAction(s string) (ReviewAction, error) {
	switch ReviewAction(strings.ToLower(s)) {
	case ReviewApprove:
		return ReviewApprove, nil
	case ReviewReject:
		return ReviewReject, nil
	default:
		return "", errors.New(errors.ErrCodeReviewActionInvalid, errors.DefaultMessageForCode(errors.ErrCodeReviewActionInvalid))
	}
}

// Lobbyist is the registration aggregate. Threshold fields are written by
// the hours service when the quarterly registration threshold is crossed.
type Lobbyist struct {
	ID                   string             `json:"id"`
	Name                 string             `json:"name"`
	Email                string             `json:"email"`
	Organization         string             `json:"organization"`
	Status               RegistrationStatus `json:"status"`
	ThresholdExceededAt  *time.Time         `json:"threshold_exceeded_at,omitempty"`
	RegistrationDeadline *time.Time         `json:"registration_deadline,omitempty"`
	ReviewedAt           *time.Time         `json:"reviewed_at,omitempty"`
	ReviewNote           string             `json:"review_note,omitempty"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// NewLobbyist creates a pending registration.
func NewLobbyist(name, email, organization string) (*Lobbyist, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" {
		return nil, errors.InvalidParam("name must not be empty")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, errors.InvalidParam("a valid email is required")
	}
	now := time.Now().UTC()
	return &Lobbyist{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		Organization: strings.TrimSpace(organization),
		Status:       RegistrationPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Resubmit returns an already-registered lobbyist to pending review,
// clearing any previous decision.
func (l *Lobbyist) Resubmit(name, organization string) {
	if name = strings.TrimSpace(name); name != "" {
		l.Name = name
	}
	if organization = strings.TrimSpace(organization); organization != "" {
		l.Organization = organization
	}
	l.Status = RegistrationPending
	l.ReviewedAt = nil
	l.ReviewNote = ""
	l.UpdatedAt = time.Now().UTC()
}

// Review applies an administrator decision. Only pending registrations can
// be reviewed.
func (l *Lobbyist) Review(action ReviewAction, note string, now time.Time) error {
	if l.Status != RegistrationPending {
		return errors.New(errors.ErrCodeRegistrationNotPending, errors.DefaultMessageForCode(errors.ErrCodeRegistrationNotPending)).
			WithDetail("current status " + string(l.Status))
	}
	switch action {
	case ReviewApprove:
		l.Status = RegistrationApproved
	case ReviewReject:
		l.Status = RegistrationRejected
	default:
		return errors.New(errors.ErrCodeReviewActionInvalid, errors.DefaultMessageForCode(errors.ErrCodeReviewActionInvalid))
	}
	reviewedAt := now.UTC()
	l.ReviewedAt = &reviewedAt
	l.ReviewNote = strings.TrimSpace(note)
	l.UpdatedAt = reviewedAt
	return nil
}

// RecordThresholdCrossing stores the crossing timestamp and registration
// deadline. It is a no-op if a crossing is already recorded.
func (l *Lobbyist) RecordThresholdCrossing(exceededAt, deadline time.Time) bool {
	if l.ThresholdExceededAt != nil {
		return false
	}
	e, d := exceededAt.UTC(), deadline.UTC()
	l.ThresholdExceededAt = &e
	l.RegistrationDeadline = &d
	l.UpdatedAt = time.Now().UTC()
	return true
}

// Employer is a principal that retains lobbyists and files its own
// quarterly spend reports.
type Employer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEmployer validates and creates an employer record.
func NewEmployer(name, email string) (*Employer, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" {
		return nil, errors.InvalidParam("name must not be empty")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, errors.InvalidParam("a valid email is required")
	}
	now := time.Now().UTC()
	return &Employer{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
