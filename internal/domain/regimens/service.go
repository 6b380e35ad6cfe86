package regimens

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

const DefaultCutoffMins = 240

type Service struct {
	repo          Repository
	now           func() time.Time
	defaultCutoff int
}

func NewService(repo Repository) *Service {
	return &Service{
		repo:          repo,
		now:           time.Now,
		defaultCutoff: DefaultCutoffMins,
	}
}

// SetDefaultCutoff fija el cutoff (en minutos) que reciben los regímenes
// creados sin uno explícito. Valores no positivos se ignoran.
func (s *Service) SetDefaultCutoff(mins int) {
	if mins > 0 {
		s.defaultCutoff = mins
	}
}

type CreateInput struct {
	MedicationID   string
	MedicationName string

	ScheduleType  string
	TimesLocal    []string
	IntervalHours int
	TaperSteps    []TaperStep

	Dose         string
	DoseUnit     string
	Instructions string

	CutoffMins int
	HighRisk   bool

	StartDate time.Time
	EndDate   *time.Time
}

func (s *Service) Create(ctx context.Context, animalID string, in CreateInput) (Regimen, error) {
	animalID = strings.TrimSpace(animalID)
	if animalID == "" {
		return Regimen{}, ErrInvalidInput
	}
	if strings.TrimSpace(in.MedicationID) == "" || strings.TrimSpace(in.MedicationName) == "" {
		return Regimen{}, ErrInvalidInput
	}

	st := ScheduleType(strings.TrimSpace(in.ScheduleType))
	if !ValidScheduleType(st) {
		return Regimen{}, ErrInvalidInput
	}

	cutoff := in.CutoffMins
	if cutoff == 0 {
		cutoff = s.defaultCutoff
	}
	if cutoff < 0 {
		return Regimen{}, ErrInvalidInput
	}

	start := in.StartDate
	if start.IsZero() {
		start = s.now()
	}
	if in.EndDate != nil && in.EndDate.Before(start) {
		return Regimen{}, ErrInvalidInput
	}

	reg := Regimen{
		ID:             uuid.NewString(),
		AnimalID:       animalID,
		MedicationID:   strings.TrimSpace(in.MedicationID),
		MedicationName: strings.TrimSpace(in.MedicationName),
		ScheduleType:   st,
		IntervalHours:  in.IntervalHours,
		TaperSteps:     in.TaperSteps,
		Dose:           strings.TrimSpace(in.Dose),
		DoseUnit:       strings.TrimSpace(in.DoseUnit),
		Instructions:   strings.TrimSpace(in.Instructions),
		CutoffMins:     cutoff,
		HighRisk:       in.HighRisk,
		Active:         true,
		StartDate:      start,
		EndDate:        in.EndDate,
	}

	switch st {
	case ScheduleFixed:
		times, err := NormalizeTimesLocal(in.TimesLocal)
		if err != nil {
			return Regimen{}, err
		}
		reg.TimesLocal = times
		reg.IntervalHours = 0
		reg.TaperSteps = nil

	case SchedulePRN:
		// PRN no lleva horarios: si vienen, es un error de input, no se ignoran
		// en silencio.
		if len(in.TimesLocal) > 0 {
			return Regimen{}, ErrInvalidInput
		}
		reg.TimesLocal = nil
		reg.IntervalHours = 0
		reg.TaperSteps = nil

	case ScheduleInterval:
		if in.IntervalHours < 1 {
			return Regimen{}, ErrInvalidInput
		}
		reg.TimesLocal = nil
		reg.TaperSteps = nil

	case ScheduleTaper:
		steps, err := normalizeTaperSteps(in.TaperSteps)
		if err != nil {
			return Regimen{}, err
		}
		reg.TaperSteps = steps
		reg.TimesLocal = nil
		reg.IntervalHours = 0
	}

	now := s.now()
	reg.CreatedAt = now
	reg.UpdatedAt = now

	if err := s.repo.Create(ctx, reg); err != nil {
		return Regimen{}, err
	}
	return reg, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Regimen, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Regimen{}, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByAnimal(ctx context.Context, animalID string) ([]Regimen, error) {
	return s.repo.ListByAnimal(ctx, animalID)
}

func (s *Service) ListActiveByAnimal(ctx context.Context, animalID string) ([]Regimen, error) {
	return s.repo.ListActiveByAnimal(ctx, animalID)
}

type UpdateInput struct {
	// Punteros para PATCH real: nil = no tocar.
	TimesLocal   *[]string
	CutoffMins   *int
	HighRisk     *bool
	Dose         *string
	DoseUnit     *string
	Instructions *string
	EndDate      *time.Time
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (Regimen, error) {
	reg, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Regimen{}, ErrNotFound
	}

	if in.TimesLocal != nil {
		if reg.ScheduleType != ScheduleFixed {
			return Regimen{}, ErrInvalidInput
		}
		times, err := NormalizeTimesLocal(*in.TimesLocal)
		if err != nil {
			return Regimen{}, err
		}
		reg.TimesLocal = times
	}
	if in.CutoffMins != nil {
		if *in.CutoffMins <= 0 {
			return Regimen{}, ErrInvalidInput
		}
		reg.CutoffMins = *in.CutoffMins
	}
	if in.HighRisk != nil {
		reg.HighRisk = *in.HighRisk
	}
	if in.Dose != nil {
		reg.Dose = strings.TrimSpace(*in.Dose)
	}
	if in.DoseUnit != nil {
		reg.DoseUnit = strings.TrimSpace(*in.DoseUnit)
	}
	if in.Instructions != nil {
		reg.Instructions = strings.TrimSpace(*in.Instructions)
	}
	if in.EndDate != nil {
		if in.EndDate.Before(reg.StartDate) {
			return Regimen{}, ErrInvalidInput
		}
		reg.EndDate = in.EndDate
	}

	reg.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, reg); err != nil {
		return Regimen{}, err
	}
	return reg, nil
}

// Deactivate apaga el régimen de inmediato: deja de generar dosis esperadas
// incluso a mitad del día. Idempotente.
func (s *Service) Deactivate(ctx context.Context, id string) (Regimen, error) {
	reg, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Regimen{}, ErrNotFound
	}
	if !reg.Active {
		return reg, nil
	}

	reg.Active = false
	reg.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, reg); err != nil {
		return Regimen{}, err
	}
	return reg, nil
}

// ParseTimeOfDay valida y parsea un "HH:MM" (24h).
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, 0, fmt.Errorf("%w: time %q must be HH:MM", ErrInvalidInput, s)
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("%w: time %q must be HH:MM", ErrInvalidInput, s)
	}
	return h, m, nil
}

// NormalizeTimesLocal valida, deduplica y ordena una lista de "HH:MM".
// Lista vacía => ErrInvalidInput (un FIXED sin horarios no tiene sentido).
func NormalizeTimesLocal(times []string) ([]string, error) {
	if len(times) == 0 {
		return nil, ErrInvalidInput
	}

	seen := map[string]struct{}{}
	out := make([]string, 0, len(times))
	for _, t := range times {
		t = strings.TrimSpace(t)
		if _, _, err := ParseTimeOfDay(t); err != nil {
			return nil, err
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	sort.Strings(out)
	return out, nil
}

func normalizeTaperSteps(steps []TaperStep) ([]TaperStep, error) {
	if len(steps) == 0 {
		return nil, ErrInvalidInput
	}

	out := make([]TaperStep, 0, len(steps))
	for _, st := range steps {
		start, err := time.Parse("2006-01-02", strings.TrimSpace(st.StartDate))
		if err != nil {
			return nil, ErrInvalidInput
		}
		end, err := time.Parse("2006-01-02", strings.TrimSpace(st.EndDate))
		if err != nil || end.Before(start) {
			return nil, ErrInvalidInput
		}
		times, err := NormalizeTimesLocal(st.TimesLocal)
		if err != nil {
			return nil, err
		}
		out = append(out, TaperStep{
			StartDate:  start.Format("2006-01-02"),
			EndDate:    end.Format("2006-01-02"),
			TimesLocal: times,
			Dose:       strings.TrimSpace(st.Dose),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].StartDate < out[j].StartDate })

	// Los pasos no pueden solaparse.
	for i := 1; i < len(out); i++ {
		if out[i].StartDate <= out[i-1].EndDate {
			return nil, ErrInvalidInput
		}
	}

	return out, nil
}
