// Package hours holds the lobbying hour-log aggregate.
package hours

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/opencivic/lobbyreg/internal/domain/compliance"
	"github.com/opencivic/lobbyreg/pkg/errors"
)

// maxHoursPerEntry bounds a single log entry to one calendar day.
var maxHoursPerEntry = decimal.NewFromInt(24)

// HourLog is a single record of lobbying activity. Quarter and Year are
// derived from LoggedOn at creation and never recomputed, so the record
// stays in its original reporting period even if rules change.
type HourLog struct {
	ID         string             `json:"id"`
	LobbyistID string             `json:"lobbyist_id"`
	Hours      decimal.Decimal    `json:"hours"`
	Activity   string             `json:"activity"`
	Official   string             `json:"official,omitempty"`
	LoggedOn   time.Time          `json:"logged_on"`
	Quarter    compliance.Quarter `json:"quarter"`
	Year       int                `json:"year"`
	CreatedAt  time.Time          `json:"created_at"`
}

// NewHourLog validates and creates an hour log entry. loggedOn defaults to
// now when zero.
func NewHourLog(lobbyistID string, hrs decimal.Decimal, activity, official string, loggedOn time.Time) (*HourLog, error) {
	if lobbyistID == "" {
		return nil, errors.InvalidParam("lobbyist_id is required")
	}
	if !hrs.IsPositive() {
		return nil, errors.New(errors.ErrCodeHoursInvalid, errors.DefaultMessageForCode(errors.ErrCodeHoursInvalid))
	}
	if hrs.GreaterThan(maxHoursPerEntry) {
		return nil, errors.New(errors.ErrCodeHoursInvalid, "hours must not exceed 24 per entry")
	}
	activity = strings.TrimSpace(activity)
	if activity == "" {
		return nil, errors.InvalidParam("activity description is required")
	}
	now := time.Now().UTC()
	if loggedOn.IsZero() {
		loggedOn = now
	}
	period := compliance.PeriodOf(loggedOn)
	return &HourLog{
		ID:         uuid.New().String(),
		LobbyistID: lobbyistID,
		Hours:      hrs,
		Activity:   activity,
		Official:   strings.TrimSpace(official),
		LoggedOn:   loggedOn.UTC(),
		Quarter:    period.Quarter,
		Year:       period.Year,
		CreatedAt:  now,
	}, nil
}

// Period returns the reporting period the log belongs to.
func (h *HourLog) Period() compliance.Period {
	return compliance.Period{Quarter: h.Quarter, Year: h.Year}
}
