package inventory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrBadState     = errors.New("invalid state")
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

type AddInput struct {
	MedicationID   string
	Label          string
	UnitsRemaining float64
	ExpiresAt      *time.Time
	OpenedAt       *time.Time
}

func (s *Service) Add(ctx context.Context, householdID string, in AddInput) (Item, error) {
	householdID = strings.TrimSpace(householdID)
	if householdID == "" || strings.TrimSpace(in.MedicationID) == "" {
		return Item{}, ErrInvalidInput
	}
	if in.UnitsRemaining < 0 {
		return Item{}, ErrInvalidInput
	}

	now := s.now()
	it := Item{
		ID:             uuid.NewString(),
		HouseholdID:    householdID,
		MedicationID:   strings.TrimSpace(in.MedicationID),
		Label:          strings.TrimSpace(in.Label),
		UnitsRemaining: in.UnitsRemaining,
		ExpiresAt:      in.ExpiresAt,
		OpenedAt:       in.OpenedAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, it); err != nil {
		return Item{}, err
	}
	return it, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Item, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Item{}, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

// GetSource expone la vista que valida el recorder.
func (s *Service) GetSource(ctx context.Context, id string) (Source, error) {
	it, err := s.GetByID(ctx, id)
	if err != nil {
		return Source{}, err
	}
	return Source{
		ID:             it.ID,
		MedicationID:   it.MedicationID,
		UnitsRemaining: it.UnitsRemaining,
		ExpiresAt:      it.ExpiresAt,
	}, nil
}

// Consume descuenta unidades. Nunca deja el stock bajo cero.
func (s *Service) Consume(ctx context.Context, id string, units float64) error {
	if units <= 0 {
		return ErrInvalidInput
	}

	it, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	it.UnitsRemaining -= units
	if it.UnitsRemaining < 0 {
		it.UnitsRemaining = 0
	}
	it.UpdatedAt = s.now()
	return s.repo.Update(ctx, it)
}

// Adjust corrige el stock a un valor absoluto (conteo manual).
func (s *Service) Adjust(ctx context.Context, id string, units float64) (Item, error) {
	if units < 0 {
		return Item{}, ErrInvalidInput
	}

	it, err := s.GetByID(ctx, id)
	if err != nil {
		return Item{}, err
	}

	it.UnitsRemaining = units
	it.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, it); err != nil {
		return Item{}, err
	}
	return it, nil
}

func (s *Service) ListByHousehold(ctx context.Context, householdID string) ([]Item, error) {
	items, err := s.repo.ListByHousehold(ctx, householdID)
	if err != nil {
		return nil, err
	}

	// Urgencia primero (vencimiento más próximo, luego menos stock),
	// después por label. Mismo orden de prioridad que usan los listados
	// de due-doses.
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		switch {
		case a.ExpiresAt != nil && b.ExpiresAt == nil:
			return true
		case a.ExpiresAt == nil && b.ExpiresAt != nil:
			return false
		case a.ExpiresAt != nil && b.ExpiresAt != nil && !a.ExpiresAt.Equal(*b.ExpiresAt):
			return a.ExpiresAt.Before(*b.ExpiresAt)
		}
		if a.UnitsRemaining != b.UnitsRemaining {
			return a.UnitsRemaining < b.UnitsRemaining
		}
		return a.Label < b.Label
	})
	return items, nil
}

// LowStock lista items con stock en o bajo el umbral.
func (s *Service) LowStock(ctx context.Context, householdID string, threshold float64) ([]Item, error) {
	items, err := s.ListByHousehold(ctx, householdID)
	if err != nil {
		return nil, err
	}

	out := make([]Item, 0)
	for _, it := range items {
		if it.UnitsRemaining <= threshold {
			out = append(out, it)
		}
	}
	return out, nil
}
