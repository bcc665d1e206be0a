package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencivic/lobbyreg/pkg/errors"
)

func TestNewLobbyist(t *testing.T) {
	t.Parallel()

	l, err := NewLobbyist("  Jordan Reyes ", "Jordan@Example.com", "Acme Strategies")
	require.NoError(t, err)
	assert.Equal(t, "Jordan Reyes", l.Name)
	assert.Equal(t, "jordan@example.com", l.Email, "email is normalized to lowercase")
	assert.Equal(t, RegistrationPending, l.Status)

	_, err = NewLobbyist("", "a@b.com", "")
	assert.Error(t, err)
	_, err = NewLobbyist("Jordan", "not-an-email", "")
	assert.Error(t, err)
}

func TestLobbyist_Resubmit(t *testing.T) {
	t.Parallel()

	l, err := NewLobbyist("Jordan", "jordan@example.com", "Acme")
	require.NoError(t, err)
	require.NoError(t, l.Review(ReviewReject, "incomplete", time.Now()))

	l.Resubmit("Jordan Reyes", "Acme Strategies")
	assert.Equal(t, RegistrationPending, l.Status)
	assert.Nil(t, l.ReviewedAt)
	assert.Empty(t, l.ReviewNote)
	assert.Equal(t, "Jordan Reyes", l.Name)
}

func TestLobbyist_Review(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.February, 3, 10, 0, 0, 0, time.UTC)

	l, err := NewLobbyist("Jordan", "jordan@example.com", "Acme")
	require.NoError(t, err)

	require.NoError(t, l.Review(ReviewApprove, "verified", now))
	assert.Equal(t, RegistrationApproved, l.Status)
	require.NotNil(t, l.ReviewedAt)

	// Already decided: reviewing again is a state conflict.
	err = l.Review(ReviewReject, "", now)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRegistrationNotPending))
}

func TestLobbyist_RecordThresholdCrossing(t *testing.T) {
	t.Parallel()

	l, err := NewLobbyist("Jordan", "jordan@example.com", "Acme")
	require.NoError(t, err)

	exceededAt := time.Date(2025, time.March, 3, 15, 0, 0, 0, time.UTC)
	deadline := time.Date(2025, time.March, 6, 0, 0, 0, 0, time.UTC)

	assert.True(t, l.RecordThresholdCrossing(exceededAt, deadline))
	require.NotNil(t, l.ThresholdExceededAt)
	assert.Equal(t, exceededAt, *l.ThresholdExceededAt)

	// Second crossing in the same quarter is ignored.
	assert.False(t, l.RecordThresholdCrossing(exceededAt.AddDate(0, 0, 1), deadline))
	assert.Equal(t, exceededAt, *l.ThresholdExceededAt)
}

func TestParseReviewAction(t *testing.T) {
	t.Parallel()

	a, err := ParseReviewAction("Approve")
	require.NoError(t, err)
	assert.Equal(t, ReviewApprove, a)

	_, err = ParseReviewAction("defer")
	assert.True(t, errors.IsCode(err, errors.ErrCodeReviewActionInvalid))
}

func TestNewEmployer(t *testing.T) {
	t.Parallel()

	e, err := NewEmployer("Northside Holdings", "CONTACT@northside.com")
	require.NoError(t, err)
	assert.Equal(t, "contact@northside.com", e.Email)

	_, err = NewEmployer("", "x@y.com")
	assert.Error(t, err)
}
