package compliance

import "time"

// ReportStatus classifies a quarterly expense report.
type ReportStatus string

const (
	ReportDraft     ReportStatus = "DRAFT"
	ReportSubmitted ReportStatus = "SUBMITTED"
	ReportLate      ReportStatus = "LATE"
)

// DueDate returns the filing deadline for a reporting period. Reports for
// Q1 through Q3 are due on the 15th of the month following the quarter;
// Q4 reports are due January 15 of the following year.
func DueDate(p Period) time.Time {
	switch p.Quarter {
	case Q1:
		return time.Date(p.Year, time.April, 15, 0, 0, 0, 0, time.UTC)
	case Q2:
		return time.Date(p.Year, time.July, 15, 0, 0, 0, 0, time.UTC)
	case Q3:
		return time.Date(p.Year, time.October, 15, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(p.Year+1, time.January, 15, 0, 0, 0, 0, time.UTC)
	}
}

// ClassifyReport resolves a report's status. Drafts stay DRAFT regardless
// of timing. Otherwise the submission instant (now when submittedAt is nil)
// is compared against the due date: at or before midnight UTC of the due
// date is SUBMITTED, any later instant is LATE.
func ClassifyReport(p Period, draft bool, submittedAt *time.Time, now time.Time) ReportStatus {
	if draft {
		return ReportDraft
	}
	submitted := now
	if submittedAt != nil {
		submitted = *submittedAt
	}
	if submitted.After(DueDate(p)) {
		return ReportLate
	}
	return ReportSubmitted
}

// DaysUntilDue returns whole days from now until the period's due date,
// negative when the due date has passed.
func DaysUntilDue(p Period, now time.Time) int {
	return int(DueDate(p).Sub(midnightUTC(now)).Hours() / 24)
}
