package compliance

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestThresholdPolicy_Evaluate_Crossing(t *testing.T) {
	t.Parallel()

	policy := DefaultThresholdPolicy()
	now := time.Date(2025, time.January, 1, 10, 0, 0, 0, time.UTC) // Wednesday

	out := policy.Evaluate(dec("8.5"), dec("10.5"), false, now)

	require.True(t, out.Crossed)
	assert.Equal(t, now, out.ExceededAt)
	// Three working days from Wed Jan 1: Thu, Fri, then Mon Jan 6.
	assert.Equal(t, date(2025, time.January, 6), out.RegistrationDeadline)
}

func TestThresholdPolicy_Evaluate_ExactBoundary(t *testing.T) {
	t.Parallel()

	policy := DefaultThresholdPolicy()
	now := time.Now().UTC()

	assert.True(t, policy.Evaluate(dec("9.99"), dec("10"), false, now).Crossed)
	assert.False(t, policy.Evaluate(dec("9"), dec("9.99"), false, now).Crossed)
}

func TestThresholdPolicy_Evaluate_FiresAtMostOnce(t *testing.T) {
	t.Parallel()

	policy := DefaultThresholdPolicy()
	now := time.Now().UTC()

	// Already at or above the threshold before this append: no new crossing.
	assert.False(t, policy.Evaluate(dec("12"), dec("14"), false, now).Crossed)

	// A crossing is already on record for the quarter: never fires again,
	// even if the totals would otherwise qualify.
	assert.False(t, policy.Evaluate(dec("8"), dec("11"), true, now).Crossed)
}

func TestThresholdPolicy_HoursUntilThreshold(t *testing.T) {
	t.Parallel()

	policy := DefaultThresholdPolicy()

	assert.True(t, dec("4.5").Equal(policy.HoursUntilThreshold(dec("5.5"))))
	assert.True(t, decimal.Zero.Equal(policy.HoursUntilThreshold(dec("10"))))
	assert.True(t, decimal.Zero.Equal(policy.HoursUntilThreshold(dec("15"))))
}

func TestThresholdPolicy_Exceeded(t *testing.T) {
	t.Parallel()

	policy := DefaultThresholdPolicy()
	assert.False(t, policy.Exceeded(dec("9.99")))
	assert.True(t, policy.Exceeded(dec("10")))
	assert.True(t, policy.Exceeded(dec("10.01")))
}
