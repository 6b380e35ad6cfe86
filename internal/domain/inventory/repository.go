package inventory

import "context"

type Repository interface {
	Create(ctx context.Context, it Item) error
	Update(ctx context.Context, it Item) error
	GetByID(ctx context.Context, id string) (Item, error)
	ListByHousehold(ctx context.Context, householdID string) ([]Item, error)
}
