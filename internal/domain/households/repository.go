package households

import "context"

type Repository interface {
	CreateHousehold(ctx context.Context, h Household) error
	GetHousehold(ctx context.Context, id string) (Household, error)

	CreateMembership(ctx context.Context, m Membership) error
	UpdateMembership(ctx context.Context, m Membership) error
	GetMembershipByID(ctx context.Context, id string) (Membership, error)
	ListMembersByHousehold(ctx context.Context, householdID string) ([]Membership, error)
	ListMembershipsByUser(ctx context.Context, userID string) ([]Membership, error)

	// GetActiveMembership devuelve la membership activa de (household, user),
	// o error si no existe.
	GetActiveMembership(ctx context.Context, householdID, userID string) (Membership, error)
}
