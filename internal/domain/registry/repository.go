package registry

import "context"

// Repository defines the persistence contract for registrations.
type Repository interface {
	CreateLobbyist(ctx context.Context, l *Lobbyist) error
	GetLobbyist(ctx context.Context, id string) (*Lobbyist, error)
	GetLobbyistByEmail(ctx context.Context, email string) (*Lobbyist, error)
	UpdateLobbyist(ctx context.Context, l *Lobbyist) error
	ListLobbyists(ctx context.Context, status RegistrationStatus, limit, offset int) ([]*Lobbyist, int64, error)

	CreateEmployer(ctx context.Context, e *Employer) error
	GetEmployer(ctx context.Context, id string) (*Employer, error)
	ListEmployers(ctx context.Context, limit, offset int) ([]*Employer, int64, error)
}
