package medications

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
	GenericName string
	BrandName   string
	Route       string
	Form        string
	Strength    string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Medication, error) {
	generic := strings.TrimSpace(in.GenericName)
	if generic == "" {
		return Medication{}, ErrInvalidInput
	}

	route := Route(strings.TrimSpace(in.Route))
	switch route {
	case RouteOral, RouteTopical, RouteInjection, RouteOphthalmic, RouteOtic, RouteInhaled:
	default:
		return Medication{}, ErrInvalidInput
	}

	form := Form(strings.TrimSpace(in.Form))
	switch form {
	case FormTablet, FormCapsule, FormLiquid, FormOintment, FormDrops, FormInjector:
	default:
		return Medication{}, ErrInvalidInput
	}

	m := Medication{
		ID:          uuid.NewString(),
		GenericName: generic,
		BrandName:   strings.TrimSpace(in.BrandName),
		Route:       route,
		Form:        form,
		Strength:    strings.TrimSpace(in.Strength),
		CreatedAt:   s.now(),
	}

	if err := s.repo.Create(ctx, m); err != nil {
		return Medication{}, err
	}
	return m, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Medication, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Medication{}, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Medication, error) {
	return s.repo.List(ctx, filter)
}

// DisplayName es el nombre que se muestra en listados y ordenamientos.
func DisplayName(m Medication) string {
	if m.BrandName != "" {
		return m.BrandName
	}
	return m.GenericName
}
