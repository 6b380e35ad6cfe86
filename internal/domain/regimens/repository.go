package regimens

import "context"

type Repository interface {
	Create(ctx context.Context, reg Regimen) error
	Update(ctx context.Context, reg Regimen) error
	GetByID(ctx context.Context, id string) (Regimen, error)
	ListByAnimal(ctx context.Context, animalID string) ([]Regimen, error)

	// ListActiveByAnimal devuelve solo regímenes con Active=true.
	ListActiveByAnimal(ctx context.Context, animalID string) ([]Regimen, error)
}
