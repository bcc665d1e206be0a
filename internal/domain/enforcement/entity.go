// Package enforcement holds the violation and appeal aggregates and their
// state machines.
package enforcement

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/opencivic/lobbyreg/internal/domain/compliance"
	"github.com/opencivic/lobbyreg/pkg/errors"
)

// ViolationStatus is the lifecycle state of a violation.
type ViolationStatus string

const (
	ViolationIssued     ViolationStatus = "ISSUED"
	ViolationAppealed   ViolationStatus = "APPEALED"
	ViolationUpheld     ViolationStatus = "UPHELD"
	ViolationOverturned ViolationStatus = "OVERTURNED"
	ViolationPaid       ViolationStatus = "PAID"
	ViolationWaived     ViolationStatus = "WAIVED"
)

// ViolationType categorizes the compliance failure.
type ViolationType string

const (
	ViolationLateReport         ViolationType = "LATE_REPORT"
	ViolationMissedRegistration ViolationType = "MISSED_REGISTRATION"
	ViolationUnreportedExpense  ViolationType = "UNREPORTED_EXPENSE"
	ViolationOther              ViolationType = "OTHER"
)

// ParseViolationType validates a violation type string.
func ParseViolationType(s string) (ViolationType, error) {
	switch ViolationType(strings.ToUpper(s)) {
	case ViolationLateReport, ViolationMissedRegistration, ViolationUnreportedExpense, ViolationOther:
		return ViolationType(strings.ToUpper(s)), nil
	default:
		return "", errors.InvalidParam("invalid violation type " + s)
	}
}

// AppealStatus is the lifecycle state of an appeal.
type AppealStatus string

const (
	AppealPending AppealStatus = "PENDING"
	AppealDecided AppealStatus = "DECIDED"
)

// AppealOutcome is a hearing decision on an appeal.
type AppealOutcome string

const (
	OutcomeUpheld     AppealOutcome = "UPHELD"
	OutcomeOverturned AppealOutcome = "OVERTURNED"
)

// ParseAppealOutcome validates an outcome string.
func ParseAppealOutcome(s string) (AppealOutcome, error) {
	switch AppealOutcome(strings.ToUpper(s)) {
	case OutcomeUpheld:
		return OutcomeUpheld, nil
	case OutcomeOverturned:
		return OutcomeOverturned, nil
	default:
		return "", errors.New(errors.ErrCodeAppealOutcomeInvalid, errors.DefaultMessageForCode(errors.ErrCodeAppealOutcomeInvalid))
	}
}

// Violation is an enforcement action against a lobbyist.
type Violation struct {
	ID             string          `json:"id"`
	LobbyistID     string          `json:"lobbyist_id"`
	Type           ViolationType   `json:"type"`
	Description    string          `json:"description"`
	FineAmount     decimal.Decimal `json:"fine_amount"`
	Status         ViolationStatus `json:"status"`
	IssuedAt       *time.Time      `json:"issued_at,omitempty"`
	ResolutionDate *time.Time      `json:"resolution_date,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// NewViolation issues a violation. The fine is validated against the
// ordinance cap and status starts at ISSUED.
func NewViolation(lobbyistID string, vtype ViolationType, description string, fine decimal.Decimal) (*Violation, error) {
	if lobbyistID == "" {
		return nil, errors.InvalidParam("lobbyist_id is required")
	}
	if strings.TrimSpace(description) == "" {
		return nil, errors.InvalidParam("description is required")
	}
	if err := compliance.ValidateFine(fine); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	issued := now
	return &Violation{
		ID:          uuid.New().String(),
		LobbyistID:  lobbyistID,
		Type:        vtype,
		Description: strings.TrimSpace(description),
		FineAmount:  fine,
		Status:      ViolationIssued,
		IssuedAt:    &issued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// UpdateFine changes the fine amount, re-validating the cap.
func (v *Violation) UpdateFine(fine decimal.Decimal) error {
	if err := compliance.ValidateFine(fine); err != nil {
		return err
	}
	v.FineAmount = fine
	v.UpdatedAt = time.Now().UTC()
	return nil
}

// Resolve transitions the violation to PAID or WAIVED, stamping the
// resolution date.
func (v *Violation) Resolve(status ViolationStatus, now time.Time) error {
	if status != ViolationPaid && status != ViolationWaived {
		return errors.New(errors.ErrCodeViolationStatusInvalid, errors.DefaultMessageForCode(errors.ErrCodeViolationStatusInvalid))
	}
	ts := now.UTC()
	v.Status = status
	v.ResolutionDate = &ts
	v.UpdatedAt = ts
	return nil
}

// CheckAppealable verifies the filing preconditions that depend on the
// violation alone, in order: status must be ISSUED, and an issued date must
// be present. The no-existing-appeal and window checks happen in the
// application service, which has the repository and the clock.
func (v *Violation) CheckAppealable() error {
	if v.Status != ViolationIssued {
		return errors.New(errors.ErrCodeViolationNotAppealable, errors.DefaultMessageForCode(errors.ErrCodeViolationNotAppealable)).
			WithDetail("status " + string(v.Status))
	}
	if v.IssuedAt == nil {
		return errors.New(errors.ErrCodeIssuedDateMissing, errors.DefaultMessageForCode(errors.ErrCodeIssuedDateMissing))
	}
	return nil
}

// markAppealed is applied inside the filing transaction.
func (v *Violation) markAppealed(now time.Time) {
	v.Status = ViolationAppealed
	v.UpdatedAt = now.UTC()
}

// applyOutcome is applied inside the decision transaction: the violation
// takes the outcome as its final status and the resolution date is stamped.
func (v *Violation) applyOutcome(outcome AppealOutcome, now time.Time) {
	ts := now.UTC()
	switch outcome {
	case OutcomeOverturned:
		v.Status = ViolationOverturned
	default:
		v.Status = ViolationUpheld
	}
	v.ResolutionDate = &ts
	v.UpdatedAt = ts
}

// Appeal contests a violation. At most one appeal exists per violation.
type Appeal struct {
	ID          string         `json:"id"`
	ViolationID string         `json:"violation_id"`
	Reason      string         `json:"reason"`
	Status      AppealStatus   `json:"status"`
	Decision    *AppealOutcome `json:"decision,omitempty"`
	FiledAt     time.Time      `json:"filed_at"`
	DecidedAt   *time.Time     `json:"decided_at,omitempty"`
}

// FileAppeal creates a pending appeal and marks the violation appealed.
// Both mutations must be persisted in the same transaction.
func FileAppeal(v *Violation, reason string, now time.Time) (*Appeal, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, errors.InvalidParam("appeal reason is required")
	}
	if err := v.CheckAppealable(); err != nil {
		return nil, err
	}
	v.markAppealed(now)
	return &Appeal{
		ID:          uuid.New().String(),
		ViolationID: v.ID,
		Reason:      strings.TrimSpace(reason),
		Status:      AppealPending,
		FiledAt:     now.UTC(),
	}, nil
}

// Decide records the hearing outcome on the appeal and applies it to the
// violation. Both mutations must be persisted in the same transaction.
// Deciding an already-decided appeal is a state conflict.
func (a *Appeal) Decide(v *Violation, outcome AppealOutcome, now time.Time) error {
	if a.Status == AppealDecided {
		return errors.New(errors.ErrCodeAppealAlreadyDecided, errors.DefaultMessageForCode(errors.ErrCodeAppealAlreadyDecided))
	}
	if outcome != OutcomeUpheld && outcome != OutcomeOverturned {
		return errors.New(errors.ErrCodeAppealOutcomeInvalid, errors.DefaultMessageForCode(errors.ErrCodeAppealOutcomeInvalid))
	}
	ts := now.UTC()
	a.Status = AppealDecided
	a.Decision = &outcome
	a.DecidedAt = &ts
	v.applyOutcome(outcome, now)
	return nil
}
