package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"pet-med-tracker/internal/domain/administrations"
)

type administrationsRepo struct {
	mu    sync.RWMutex
	byID  map[string]administrations.Administration
	byKey map[string]string // IdempotencyKey -> ID
}

func NewAdministrationsRepo() administrations.Repository {
	return &administrationsRepo{
		byID:  make(map[string]administrations.Administration),
		byKey: make(map[string]string),
	}
}

// CreateIfAbsent emula la unicidad de la clave idempotente: si ya hay un
// registro con esa clave devuelve el existente con created=false, como hace
// el adapter de Postgres con el unique index.
func (r *administrationsRepo) CreateIfAbsent(ctx context.Context, a administrations.Administration) (administrations.Administration, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a.ID == "" {
		return administrations.Administration{}, false, errors.New("administration id required")
	}
	if a.IdempotencyKey == "" {
		return administrations.Administration{}, false, errors.New("idempotency key required")
	}

	if existingID, ok := r.byKey[a.IdempotencyKey]; ok {
		return r.byID[existingID], false, nil
	}

	r.byID[a.ID] = a
	r.byKey[a.IdempotencyKey] = a.ID
	return a, true, nil
}

func (r *administrationsRepo) GetByID(ctx context.Context, id string) (administrations.Administration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return administrations.Administration{}, ErrNotFound
	}
	return a, nil
}

func (r *administrationsRepo) GetByKey(ctx context.Context, key string) (administrations.Administration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byKey[key]
	if !ok {
		return administrations.Administration{}, ErrNotFound
	}
	return r.byID[id], nil
}

func (r *administrationsRepo) Update(ctx context.Context, a administrations.Administration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[a.ID]; !ok {
		return ErrNotFound
	}
	r.byID[a.ID] = a
	return nil
}

func (r *administrationsRepo) ListByAnimal(ctx context.Context, animalID string, filter administrations.ListFilter) ([]administrations.Administration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	out := make([]administrations.Administration, 0)
	for _, a := range r.byID {
		if a.AnimalID != animalID {
			continue
		}
		if a.Voided() && !filter.IncludeVoided {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.From != nil && a.RecordedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && a.RecordedAt.After(*filter.To) {
			continue
		}
		out = append(out, a)
	}

	// Más reciente primero.
	sort.Slice(out, func(i, j int) bool {
		return out[i].RecordedAt.After(out[j].RecordedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *administrationsRepo) ExistingKeys(ctx context.Context, keys []string) (map[string]bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]bool, len(keys))
	for _, key := range keys {
		id, ok := r.byKey[key]
		if !ok {
			continue
		}
		if r.byID[id].Voided() {
			continue
		}
		out[key] = true
	}
	return out, nil
}
