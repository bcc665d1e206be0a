// Package reporting holds the quarterly expense report aggregates for
// lobbyists and employers.
package reporting

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/opencivic/lobbyreg/internal/domain/compliance"
	"github.com/opencivic/lobbyreg/pkg/errors"
)

// LineItem is a single food/entertainment expense on a lobbyist report.
// ReceiptKey references an uploaded receipt in object storage.
type LineItem struct {
	ID          string          `json:"id"`
	ReportID    string          `json:"report_id"`
	Date        time.Time       `json:"date"`
	Payee       string          `json:"payee"`
	Official    string          `json:"official"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
	ReceiptKey  string          `json:"receipt_key,omitempty"`
}

// Validate checks a line item before persistence.
func (li *LineItem) Validate() error {
	if strings.TrimSpace(li.Payee) == "" {
		return errors.New(errors.ErrCodeLineItemInvalid, "payee is required")
	}
	if strings.TrimSpace(li.Official) == "" {
		return errors.New(errors.ErrCodeLineItemInvalid, "official is required")
	}
	if li.Amount.IsNegative() {
		return errors.New(errors.ErrCodeLineItemInvalid, "amount must not be negative")
	}
	if li.Date.IsZero() {
		return errors.New(errors.ErrCodeLineItemInvalid, "date is required")
	}
	return nil
}

// ExpenseReport is a lobbyist's quarterly food/entertainment report. One
// report exists per lobbyist per period; re-filing replaces the line items
// wholesale.
type ExpenseReport struct {
	ID          string                  `json:"id"`
	LobbyistID  string                  `json:"lobbyist_id"`
	Quarter     compliance.Quarter      `json:"quarter"`
	Year        int                     `json:"year"`
	Status      compliance.ReportStatus `json:"status"`
	Total       decimal.Decimal         `json:"total_food_entertainment"`
	DueDate     time.Time               `json:"due_date"`
	SubmittedAt *time.Time              `json:"submitted_at,omitempty"`
	LineItems   []LineItem              `json:"line_items"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

// NewExpenseReport assembles a report for a period, validating and summing
// its line items and resolving the status from the filing deadline.
func NewExpenseReport(lobbyistID string, p compliance.Period, draft bool, submittedAt *time.Time, items []LineItem) (*ExpenseReport, error) {
	if lobbyistID == "" {
		return nil, errors.InvalidParam("lobbyist_id is required")
	}
	now := time.Now().UTC()
	reportID := uuid.New().String()
	total := decimal.Zero
	for i := range items {
		if err := items[i].Validate(); err != nil {
			return nil, err
		}
		if items[i].ID == "" {
			items[i].ID = uuid.New().String()
		}
		items[i].ReportID = reportID
		total = total.Add(items[i].Amount)
	}

	status := compliance.ClassifyReport(p, draft, submittedAt, now)
	var submitted *time.Time
	if status != compliance.ReportDraft {
		ts := now
		if submittedAt != nil {
			ts = submittedAt.UTC()
		}
		submitted = &ts
	}

	return &ExpenseReport{
		ID:          reportID,
		LobbyistID:  lobbyistID,
		Quarter:     p.Quarter,
		Year:        p.Year,
		Status:      status,
		Total:       total,
		DueDate:     compliance.DueDate(p),
		SubmittedAt: submitted,
		LineItems:   items,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Period returns the report's reporting period.
func (r *ExpenseReport) Period() compliance.Period {
	return compliance.Period{Quarter: r.Quarter, Year: r.Year}
}

// EmployerReport is an employer's quarterly total lobbying spend filing.
type EmployerReport struct {
	ID          string                  `json:"id"`
	EmployerID  string                  `json:"employer_id"`
	Quarter     compliance.Quarter      `json:"quarter"`
	Year        int                     `json:"year"`
	Status      compliance.ReportStatus `json:"status"`
	TotalSpend  decimal.Decimal         `json:"total_lobbying_spend"`
	DueDate     time.Time               `json:"due_date"`
	SubmittedAt *time.Time              `json:"submitted_at,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

// NewEmployerReport validates and creates an employer spend report.
func NewEmployerReport(employerID string, p compliance.Period, draft bool, totalSpend decimal.Decimal, submittedAt *time.Time) (*EmployerReport, error) {
	if employerID == "" {
		return nil, errors.InvalidParam("employer_id is required")
	}
	if totalSpend.IsNegative() {
		return nil, errors.InvalidParam("total_lobbying_spend must not be negative")
	}
	now := time.Now().UTC()
	status := compliance.ClassifyReport(p, draft, submittedAt, now)
	var submitted *time.Time
	if status != compliance.ReportDraft {
		ts := now
		if submittedAt != nil {
			ts = submittedAt.UTC()
		}
		submitted = &ts
	}
	return &EmployerReport{
		ID:          uuid.New().String(),
		EmployerID:  employerID,
		Quarter:     p.Quarter,
		Year:        p.Year,
		Status:      status,
		TotalSpend:  totalSpend,
		DueDate:     compliance.DueDate(p),
		SubmittedAt: submitted,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
