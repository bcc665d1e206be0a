package enforcement

import (
	"context"

	"github.com/shopspring/decimal"
)

// ViolationSummary aggregates enforcement counts for the dashboard.
type ViolationSummary struct {
	TotalViolations  int64           `json:"totalViolations"`
	ActiveViolations int64           `json:"activeViolations"`
	PendingAppeals   int64           `json:"pendingAppeals"`
	TotalFines       decimal.Decimal `json:"totalFines"`
	AverageFine      decimal.Decimal `json:"averageFine"`
}

// Repository defines the persistence contract for enforcement. The two
// *Atomic methods persist an appeal mutation and its violation mutation in
// a single transaction; callers never see one without the other.
type Repository interface {
	CreateViolation(ctx context.Context, v *Violation) error
	GetViolation(ctx context.Context, id string) (*Violation, error)
	UpdateViolation(ctx context.Context, v *Violation) error
	ListViolations(ctx context.Context, lobbyistID string, status ViolationStatus, limit, offset int) ([]*Violation, int64, error)
	Summarize(ctx context.Context) (*ViolationSummary, error)

	GetAppeal(ctx context.Context, id string) (*Appeal, error)
	GetAppealByViolation(ctx context.Context, violationID string) (*Appeal, error)
	ListAppeals(ctx context.Context, status AppealStatus, limit, offset int) ([]*Appeal, int64, error)

	// FileAppealAtomic inserts the appeal and updates the violation status
	// in one transaction.
	FileAppealAtomic(ctx context.Context, a *Appeal, v *Violation) error
	// DecideAppealAtomic updates the appeal decision and the violation's
	// final status in one transaction.
	DecideAppealAtomic(ctx context.Context, a *Appeal, v *Violation) error
}
