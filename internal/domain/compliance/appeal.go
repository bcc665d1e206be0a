package compliance

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/opencivic/lobbyreg/pkg/errors"
)

// DefaultAppealWindowDays is the calendar-day window for appealing a
// violation, counted from its issued date. Day 30 is the last day an appeal
// may be filed.
const DefaultAppealWindowDays = 30

// MaxFineAmount is the ordinance cap on a single fine (§3.808).
var MaxFineAmount = decimal.NewFromInt(500)

// AppealPolicy holds the tunable parameters of the appeal rule.
type AppealPolicy struct {
	WindowDays int
}

// DefaultAppealPolicy returns the ordinance default 30-day window.
func DefaultAppealPolicy() AppealPolicy {
	return AppealPolicy{WindowDays: DefaultAppealWindowDays}
}

// Deadline returns the last calendar day on which an appeal may be filed
// for a violation issued at issuedAt, at UTC midnight.
func (p AppealPolicy) Deadline(issuedAt time.Time) time.Time {
	return midnightUTC(issuedAt).AddDate(0, 0, p.WindowDays)
}

// WithinWindow reports whether now falls inside the appeal window for a
// violation issued at issuedAt. The window is inclusive of day WindowDays
// and exclusive of the day after, compared at date granularity.
func (p AppealPolicy) WithinWindow(issuedAt, now time.Time) bool {
	return !midnightUTC(now).After(p.Deadline(issuedAt))
}

// CheckWindow returns an AppealWindowClosed error when now is past the
// appeal deadline.
func (p AppealPolicy) CheckWindow(issuedAt, now time.Time) error {
	if !p.WithinWindow(issuedAt, now) {
		return errors.New(errors.ErrCodeAppealWindowClosed, errors.DefaultMessageForCode(errors.ErrCodeAppealWindowClosed)).
			WithDetail("deadline was " + p.Deadline(issuedAt).Format("2006-01-02"))
	}
	return nil
}

// ValidateFine enforces the fine cap: amounts must be non-negative and at
// most MaxFineAmount.
func ValidateFine(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return errors.New(errors.ErrCodeValidation, "fine amount must not be negative")
	}
	if amount.GreaterThan(MaxFineAmount) {
		return errors.New(errors.ErrCodeFineExceedsCap, errors.DefaultMessageForCode(errors.ErrCodeFineExceedsCap))
	}
	return nil
}
