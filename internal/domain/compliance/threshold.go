package compliance

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultThresholdHours is the quarterly lobbying-hours total that triggers
// mandatory registration under the ordinance.
var DefaultThresholdHours = decimal.NewFromInt(10)

// DefaultRegistrationWorkingDays is how many working days a lobbyist has to
// register after crossing the threshold.
const DefaultRegistrationWorkingDays = 3

// ThresholdPolicy holds the tunable parameters of the registration
// threshold rule.
type ThresholdPolicy struct {
	Hours                   decimal.Decimal
	RegistrationWorkingDays int
}

// DefaultThresholdPolicy returns the ordinance defaults: 10 hours per
// quarter, 3 working days to register.
func DefaultThresholdPolicy() ThresholdPolicy {
	return ThresholdPolicy{
		Hours:                   DefaultThresholdHours,
		RegistrationWorkingDays: DefaultRegistrationWorkingDays,
	}
}

// ThresholdOutcome is the result of evaluating the threshold rule after an
// hour log append. Crossed is true only on the single append that takes the
// quarter total from below the threshold to at or above it; ExceededAt and
// RegistrationDeadline are meaningful only when Crossed is true.
type ThresholdOutcome struct {
	Crossed              bool
	ExceededAt           time.Time
	RegistrationDeadline time.Time
}

// Evaluate applies the crossing rule. previousTotal is the quarter total
// before the append, newTotal after it, and alreadyRecorded whether a
// crossing has been recorded for this lobbyist and period. The rule fires
// at most once per lobbyist per quarter: previousTotal below the threshold,
// newTotal at or above it, and no crossing on record.
func (p ThresholdPolicy) Evaluate(previousTotal, newTotal decimal.Decimal, alreadyRecorded bool, now time.Time) ThresholdOutcome {
	if alreadyRecorded {
		return ThresholdOutcome{}
	}
	if previousTotal.GreaterThanOrEqual(p.Hours) || newTotal.LessThan(p.Hours) {
		return ThresholdOutcome{}
	}
	exceededAt := now.UTC()
	return ThresholdOutcome{
		Crossed:              true,
		ExceededAt:           exceededAt,
		RegistrationDeadline: AddWorkingDays(exceededAt, p.RegistrationWorkingDays),
	}
}

// HoursUntilThreshold returns how many hours remain before the threshold,
// floored at zero once the total meets or exceeds it.
func (p ThresholdPolicy) HoursUntilThreshold(total decimal.Decimal) decimal.Decimal {
	remaining := p.Hours.Sub(total)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// Exceeded reports whether total meets or exceeds the threshold.
func (p ThresholdPolicy) Exceeded(total decimal.Decimal) bool {
	return total.GreaterThanOrEqual(p.Hours)
}
