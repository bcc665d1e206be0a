package hours

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/opencivic/lobbyreg/internal/domain/compliance"
)

// Repository defines the persistence contract for hour logs.
type Repository interface {
	Create(ctx context.Context, log *HourLog) error
	Get(ctx context.Context, id string) (*HourLog, error)
	// QuarterTotal sums all hours for a lobbyist in a period. The summed
	// total is the single source of truth for the threshold rule; there is
	// no running counter to drift from it.
	QuarterTotal(ctx context.Context, lobbyistID string, p compliance.Period) (decimal.Decimal, error)
	ListByPeriod(ctx context.Context, lobbyistID string, p compliance.Period, limit, offset int) ([]*HourLog, int64, error)
	Recent(ctx context.Context, lobbyistID string, p compliance.Period, limit int) ([]*HourLog, error)
}
