package compliance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDueDate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		period   Period
		expected time.Time
	}{
		{Period{Q1, 2025}, date(2025, time.April, 15)},
		{Period{Q2, 2025}, date(2025, time.July, 15)},
		{Period{Q3, 2025}, date(2025, time.October, 15)},
		// Q4 rolls into the following January.
		{Period{Q4, 2024}, date(2025, time.January, 15)},
		{Period{Q4, 2025}, date(2026, time.January, 15)},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.expected, DueDate(tc.period), tc.period.String())
	}
}

func TestClassifyReport(t *testing.T) {
	t.Parallel()

	p := Period{Q1, 2025} // due 2025-04-15
	onDue := date(2025, time.April, 15)
	dayAfter := date(2025, time.April, 16)

	cases := []struct {
		name        string
		draft       bool
		submittedAt *time.Time
		now         time.Time
		expected    ReportStatus
	}{
		{"draft is always draft", true, &dayAfter, dayAfter, ReportDraft},
		{"at exactly the due date is submitted", false, &onDue, onDue, ReportSubmitted},
		{"one second after the due date is late", false, timePtr(onDue.Add(time.Second)), onDue, ReportLate},
		{"later on the due-date day is late", false, timePtr(time.Date(2025, time.April, 15, 23, 59, 0, 0, time.UTC)), onDue, ReportLate},
		{"day after due date is late", false, &dayAfter, dayAfter, ReportLate},
		{"nil submission uses now, before due", false, nil, date(2025, time.April, 1), ReportSubmitted},
		{"nil submission uses now, after due", false, nil, date(2025, time.May, 1), ReportLate},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, ClassifyReport(p, tc.draft, tc.submittedAt, tc.now))
		})
	}
}

func TestDaysUntilDue(t *testing.T) {
	t.Parallel()

	p := Period{Q1, 2025}
	assert.Equal(t, 14, DaysUntilDue(p, date(2025, time.April, 1)))
	assert.Equal(t, 0, DaysUntilDue(p, date(2025, time.April, 15)))
	assert.Equal(t, -5, DaysUntilDue(p, date(2025, time.April, 20)))
}

func timePtr(t time.Time) *time.Time {
	return &t
}
