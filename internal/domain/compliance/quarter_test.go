package compliance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestQuarterOf(t *testing.T) {
	t.Parallel()

	cases := []struct {
		t        time.Time
		expected Quarter
	}{
		{date(2025, time.January, 1), Q1},
		{date(2025, time.March, 31), Q1},
		{date(2025, time.April, 1), Q2},
		{date(2025, time.June, 30), Q2},
		{date(2025, time.July, 1), Q3},
		{date(2025, time.September, 30), Q3},
		{date(2025, time.October, 1), Q4},
		{date(2025, time.December, 31), Q4},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.expected, QuarterOf(tc.t), tc.t.Format("2006-01-02"))
	}
}

func TestParseQuarter(t *testing.T) {
	t.Parallel()

	for _, q := range AllQuarters {
		parsed, err := ParseQuarter(string(q))
		require.NoError(t, err)
		assert.Equal(t, q, parsed)
	}

	for _, bad := range []string{"", "q1", "Q5", "Q0", "first"} {
		_, err := ParseQuarter(bad)
		assert.Error(t, err, bad)
	}
}

func TestQuarter_EndDate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, date(2025, time.March, 31), Q1.EndDate(2025))
	assert.Equal(t, date(2025, time.June, 30), Q2.EndDate(2025))
	assert.Equal(t, date(2025, time.September, 30), Q3.EndDate(2025))
	assert.Equal(t, date(2025, time.December, 31), Q4.EndDate(2025))
	// Leap year does not move quarter boundaries.
	assert.Equal(t, date(2024, time.March, 31), Q1.EndDate(2024))
}

func TestQuarter_RoundTrip(t *testing.T) {
	t.Parallel()

	// Every day of a year maps to a quarter whose range contains it.
	for d := date(2025, time.January, 1); d.Year() == 2025; d = d.AddDate(0, 0, 1) {
		q := QuarterOf(d)
		assert.True(t, q.Contains(d, 2025), d.Format("2006-01-02"))
	}
}

func TestNewPeriod(t *testing.T) {
	t.Parallel()

	p, err := NewPeriod("Q3", 2025)
	require.NoError(t, err)
	assert.Equal(t, "Q3-2025", p.String())

	_, err = NewPeriod("Q7", 2025)
	assert.Error(t, err)

	_, err = NewPeriod("Q1", 1850)
	assert.Error(t, err)
}
