// Package compliance implements the ordinance rules the service enforces:
// the quarterly reporting calendar, working-day deadline arithmetic, report
// due dates, the hours registration threshold, and the appeal window.
// Everything in this package is pure computation over time.Time values in
// UTC; persistence and transport live elsewhere.
package compliance

import (
	"fmt"
	"time"

	"github.com/opencivic/lobbyreg/pkg/errors"
)

// Quarter identifies a calendar quarter of a reporting year.
type Quarter string

const (
	Q1 Quarter = "Q1"
	Q2 Quarter = "Q2"
	Q3 Quarter = "Q3"
	Q4 Quarter = "Q4"
)

// AllQuarters lists the quarters in calendar order.
var AllQuarters = []Quarter{Q1, Q2, Q3, Q4}

// ParseQuarter validates and normalizes a quarter label.
func ParseQuarter(s string) (Quarter, error) {
	switch Quarter(s) {
	case Q1, Q2, Q3, Q4:
		return Quarter(s), nil
	default:
		return "", errors.New(errors.ErrCodeQuarterInvalid, fmt.Sprintf("invalid quarter %q", s))
	}
}

// QuarterOf returns the quarter containing t. Months 1-3 map to Q1, 4-6 to
// Q2, 7-9 to Q3, 10-12 to Q4.
func QuarterOf(t time.Time) Quarter {
	switch m := t.UTC().Month(); {
	case m <= time.March:
		return Q1
	case m <= time.June:
		return Q2
	case m <= time.September:
		return Q3
	default:
		return Q4
	}
}

// Ordinal returns the quarter's position 1..4, or 0 for an invalid value.
func (q Quarter) Ordinal() int {
	switch q {
	case Q1:
		return 1
	case Q2:
		return 2
	case Q3:
		return 3
	case Q4:
		return 4
	default:
		return 0
	}
}

// IsValid reports whether q is one of the four quarter labels.
func (q Quarter) IsValid() bool {
	return q.Ordinal() != 0
}

func (q Quarter) String() string {
	return string(q)
}

// StartDate returns the first day of the quarter at UTC midnight.
func (q Quarter) StartDate(year int) time.Time {
	month := time.Month((q.Ordinal()-1)*3 + 1)
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

// EndDate returns the last day of the quarter at UTC midnight:
// Mar 31, Jun 30, Sep 30, or Dec 31.
func (q Quarter) EndDate(year int) time.Time {
	// First day of the following quarter, minus one day.
	next := q.StartDate(year).AddDate(0, 3, 0)
	return next.AddDate(0, 0, -1)
}

// Contains reports whether t falls within the quarter of the given year,
// compared at date granularity in UTC.
func (q Quarter) Contains(t time.Time, year int) bool {
	d := midnightUTC(t)
	return !d.Before(q.StartDate(year)) && !d.After(q.EndDate(year))
}

// Period pairs a quarter with its reporting year.
type Period struct {
	Quarter Quarter
	Year    int
}

// PeriodOf returns the reporting period containing t.
func PeriodOf(t time.Time) Period {
	u := t.UTC()
	return Period{Quarter: QuarterOf(u), Year: u.Year()}
}

// NewPeriod validates the quarter label and year range.
func NewPeriod(quarter string, year int) (Period, error) {
	q, err := ParseQuarter(quarter)
	if err != nil {
		return Period{}, err
	}
	if year < 2000 || year > 2100 {
		return Period{}, errors.New(errors.ErrCodeReportPeriodInvalid, fmt.Sprintf("year %d out of range", year))
	}
	return Period{Quarter: q, Year: year}, nil
}

func (p Period) String() string {
	return fmt.Sprintf("%s-%d", p.Quarter, p.Year)
}

// midnightUTC truncates t to UTC midnight. All date comparisons in this
// package happen at this granularity.
func midnightUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
