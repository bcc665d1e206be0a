package reporting

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/opencivic/lobbyreg/internal/domain/compliance"
)

// SpendingTrendPoint is one quarter's aggregate food/entertainment spend.
type SpendingTrendPoint struct {
	Quarter compliance.Quarter `json:"quarter"`
	Year    int                `json:"year"`
	Total   decimal.Decimal    `json:"total"`
	Reports int64              `json:"reports"`
}

// TopSpender ranks a lobbyist, employer, or official by total spend.
type TopSpender struct {
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name"`
	Total decimal.Decimal `json:"total"`
}

// AnalyticsRepository is the read model behind the spending analytics
// endpoint. Officials have no table of their own; they are ranked by the
// names appearing on line items.
type AnalyticsRepository interface {
	SpendingTrends(ctx context.Context, fromYear, toYear int) ([]SpendingTrendPoint, error)
	TopLobbyists(ctx context.Context, limit int) ([]TopSpender, error)
	TopEmployers(ctx context.Context, limit int) ([]TopSpender, error)
	TopOfficials(ctx context.Context, limit int) ([]TopSpender, error)
}
