package animals

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
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

type CreateInput struct {
	Name      string
	Species   string
	Breed     string
	Sex       string
	BirthDate *time.Time
	WeightKg  *float64
	Timezone  string
	Notes     string
}

func (s *Service) Create(ctx context.Context, householdID string, in CreateInput) (Animal, error) {
	householdID = strings.TrimSpace(householdID)
	if householdID == "" {
		return Animal{}, ErrInvalidInput
	}
	if strings.TrimSpace(in.Name) == "" {
		return Animal{}, ErrInvalidInput
	}

	species := Species(strings.TrimSpace(in.Species))
	switch species {
	case SpeciesDog, SpeciesCat, SpeciesOther:
	default:
		return Animal{}, ErrInvalidInput
	}

	sex := Sex(strings.TrimSpace(in.Sex))
	if sex == "" {
		sex = SexUnknown
	}
	switch sex {
	case SexMale, SexFemale, SexUnknown:
	default:
		return Animal{}, ErrInvalidInput
	}

	tz := strings.TrimSpace(in.Timezone)
	if tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return Animal{}, ErrInvalidInput
		}
	}

	now := s.now()
	a := Animal{
		ID:          uuid.NewString(),
		HouseholdID: householdID,
		Name:        strings.TrimSpace(in.Name),
		Species:     species,
		Breed:       strings.TrimSpace(in.Breed),
		Sex:         sex,
		BirthDate:   in.BirthDate,
		WeightKg:    in.WeightKg,
		Timezone:    tz,
		Notes:       strings.TrimSpace(in.Notes),
		Status:      StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return Animal{}, err
	}
	return a, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Animal, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Animal{}, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByHousehold(ctx context.Context, householdID string) ([]Animal, error) {
	return s.repo.ListByHousehold(ctx, householdID)
}

type UpdateProfileInput struct {
	// Punteros para PATCH real: nil = no tocar.
	Name     *string
	Breed    *string
	Sex      *string
	WeightKg *float64
	Timezone *string
	Notes    *string
}

func (s *Service) UpdateProfile(ctx context.Context, id string, in UpdateProfileInput) (Animal, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Animal{}, ErrNotFound
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return Animal{}, ErrInvalidInput
		}
		a.Name = name
	}
	if in.Breed != nil {
		a.Breed = strings.TrimSpace(*in.Breed)
	}
	if in.Sex != nil {
		sex := Sex(strings.TrimSpace(*in.Sex))
		switch sex {
		case SexMale, SexFemale, SexUnknown:
			a.Sex = sex
		default:
			return Animal{}, ErrInvalidInput
		}
	}
	if in.WeightKg != nil {
		if *in.WeightKg <= 0 {
			return Animal{}, ErrInvalidInput
		}
		a.WeightKg = in.WeightKg
	}
	if in.Timezone != nil {
		tz := strings.TrimSpace(*in.Timezone)
		if tz != "" {
			if _, err := time.LoadLocation(tz); err != nil {
				return Animal{}, ErrInvalidInput
			}
		}
		a.Timezone = tz
	}
	if in.Notes != nil {
		a.Notes = strings.TrimSpace(*in.Notes)
	}

	a.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, a); err != nil {
		return Animal{}, err
	}
	return a, nil
}

// Archive marca el animal como archivado (soft delete).
// Las administraciones históricas quedan enlazadas.
func (s *Service) Archive(ctx context.Context, id string) (Animal, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Animal{}, ErrNotFound
	}
	if a.Status == StatusArchived {
		return a, nil
	}

	a.Status = StatusArchived
	a.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, a); err != nil {
		return Animal{}, err
	}
	return a, nil
}

// HouseholdOf expone el householdID de un animal.
// Evita ciclos de imports entre módulos que solo necesitan autorizar.
func (s *Service) HouseholdOf(ctx context.Context, animalID string) (string, error) {
	a, err := s.GetByID(ctx, animalID)
	if err != nil {
		return "", err
	}
	return a.HouseholdID, nil
}
