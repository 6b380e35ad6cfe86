package administrations

import (
	"context"
	"time"
)

type Repository interface {
	// CreateIfAbsent inserta respetando la unicidad de IdempotencyKey.
	// Si la clave ya existe devuelve el registro existente con created=false;
	// el conflicto es el camino esperado de duplicados concurrentes, no un
	// caso excepcional.
	CreateIfAbsent(ctx context.Context, a Administration) (Administration, bool, error)

	GetByID(ctx context.Context, id string) (Administration, error)
	GetByKey(ctx context.Context, key string) (Administration, error)
	Update(ctx context.Context, a Administration) error

	ListByAnimal(ctx context.Context, animalID string, filter ListFilter) ([]Administration, error)

	// ExistingKeys devuelve cuáles de las claves ya tienen un registro
	// no-anulado. Lo usa el clasificador para descartar slots ya registrados.
	ExistingKeys(ctx context.Context, keys []string) (map[string]bool, error)
}

type ListFilter struct {
	From          *time.Time
	To            *time.Time
	Status        Status
	IncludeVoided bool
	Limit         int
}
