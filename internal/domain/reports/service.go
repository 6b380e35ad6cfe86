package reports

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"pet-med-tracker/internal/domain/administrations"
	"pet-med-tracker/internal/domain/animals"
	"pet-med-tracker/internal/domain/households"
	"pet-med-tracker/internal/domain/regimens"
	"pet-med-tracker/internal/domain/schedule"
)

var ErrInvalidInput = errors.New("invalid input")

type AnimalSource interface {
	GetByID(ctx context.Context, id string) (animals.Animal, error)
}

type RegimenSource interface {
	ListByAnimal(ctx context.Context, animalID string) ([]regimens.Regimen, error)
}

type HouseholdSource interface {
	GetByID(ctx context.Context, id string) (households.Household, error)
}

type AdministrationSource interface {
	ListByAnimal(ctx context.Context, animalID string, filter administrations.ListFilter) ([]administrations.Administration, error)
}

// Service arma reportes de adherencia. Es lectura pura: recalcula las dosis
// esperadas del rango y las cruza contra los registros por clave idempotente.
type Service struct {
	animals    AnimalSource
	regimens   RegimenSource
	households HouseholdSource
	admins     AdministrationSource
	now        func() time.Time
}

func NewService(animalsSrc AnimalSource, regimensSrc RegimenSource, householdsSrc HouseholdSource, adminsSrc AdministrationSource) *Service {
	return &Service{
		animals:    animalsSrc,
		regimens:   regimensSrc,
		households: householdsSrc,
		admins:     adminsSrc,
		now:        time.Now,
	}
}

// Compliance calcula la adherencia de un animal entre dos días locales
// (inclusive, "YYYY-MM-DD"). Un slot sin registro cuenta como MISSED solo
// cuando su ventana (target + 2*cutoff) ya cerró; antes de eso queda Pending
// y no castiga el porcentaje.
func (s *Service) Compliance(ctx context.Context, animalID, fromDay, toDay string) (AnimalCompliance, error) {
	animalID = strings.TrimSpace(animalID)
	if animalID == "" {
		return AnimalCompliance{}, ErrInvalidInput
	}

	fromDate, err := time.Parse("2006-01-02", fromDay)
	if err != nil {
		return AnimalCompliance{}, ErrInvalidInput
	}
	toDate, err := time.Parse("2006-01-02", toDay)
	if err != nil || toDate.Before(fromDate) {
		return AnimalCompliance{}, ErrInvalidInput
	}

	animal, err := s.animals.GetByID(ctx, animalID)
	if err != nil {
		return AnimalCompliance{}, err
	}
	household, err := s.households.GetByID(ctx, animal.HouseholdID)
	if err != nil {
		return AnimalCompliance{}, err
	}
	loc, err := schedule.ResolveLocation(animal.Timezone, household.Timezone)
	if err != nil {
		return AnimalCompliance{}, err
	}

	// [00:00 del primer día, 00:00 del día siguiente al último), en local.
	from := schedule.ResolveLocal(fromDate.Year(), fromDate.Month(), fromDate.Day(), 0, 0, loc)
	to := schedule.ResolveLocal(toDate.Year(), toDate.Month(), toDate.Day()+1, 0, 0, loc)

	regs, err := s.regimens.ListByAnimal(ctx, animalID)
	if err != nil {
		return AnimalCompliance{}, err
	}

	// Margen para registros muy tardíos de slots del rango.
	listFrom := from.Add(-48 * time.Hour)
	listTo := to.Add(48 * time.Hour)
	recorded, err := s.admins.ListByAnimal(ctx, animalID, administrations.ListFilter{
		From: &listFrom,
		To:   &listTo,
	})
	if err != nil {
		return AnimalCompliance{}, err
	}

	byKey := make(map[string]administrations.Administration, len(recorded))
	prnByRegimen := make(map[string]int)
	for _, a := range recorded {
		if a.Voided() {
			continue
		}
		if a.Status == administrations.StatusPRN {
			day := schedule.LocalDayISO(a.RecordedAt, loc)
			if day >= fromDay && day <= toDay {
				prnByRegimen[a.RegimenID]++
			}
			continue
		}
		byKey[a.IdempotencyKey] = a
	}

	now := s.now()
	out := AnimalCompliance{
		AnimalID:   animal.ID,
		AnimalName: animal.Name,
		FromDay:    fromDay,
		ToDay:      toDay,
		Regimens:   []RegimenCompliance{},
	}

	for _, reg := range regs {
		rc := RegimenCompliance{
			RegimenID:      reg.ID,
			MedicationID:   reg.MedicationID,
			MedicationName: reg.MedicationName,
			PRNCount:       prnByRegimen[reg.ID],
		}

		if reg.ScheduleType != regimens.SchedulePRN {
			// Un régimen desactivado conserva su historia: sus slots previos a
			// la desactivación (UpdatedAt) siguen contando; los posteriores no
			// existieron.
			histReg := reg
			var deactivatedAt time.Time
			if !reg.Active {
				histReg.Active = true
				deactivatedAt = reg.UpdatedAt
			}
			slots, err := schedule.ExpectedDoses(histReg, from, to, loc)
			if err != nil {
				return AnimalCompliance{}, err
			}
			for _, slot := range slots {
				if !deactivatedAt.IsZero() && slot.Target.After(deactivatedAt) {
					continue
				}
				key := administrations.SlotKey(animal.ID, reg.ID, slot.LocalDay, slot.Index)
				if a, ok := byKey[key]; ok {
					rc.Expected++
					switch a.Status {
					case administrations.StatusOnTime:
						rc.OnTime++
					case administrations.StatusLate:
						rc.Late++
					case administrations.StatusVeryLate:
						rc.VeryLate++
					}
					continue
				}
				if now.After(administrations.MissedAfter(slot.Target, reg.CutoffMins)) {
					rc.Expected++
					rc.Missed++
				} else {
					rc.Pending++
				}
			}
		}

		if rc.Expected > 0 {
			taken := rc.OnTime + rc.Late + rc.VeryLate
			rc.CompliancePct = float64(taken) / float64(rc.Expected) * 100
		}
		if rc.Expected == 0 && rc.Pending == 0 && rc.PRNCount == 0 {
			// Régimen sin actividad en el rango: no ensucia el reporte.
			continue
		}
		out.Regimens = append(out.Regimens, rc)
	}

	sort.Slice(out.Regimens, func(i, j int) bool {
		return out.Regimens[i].MedicationName < out.Regimens[j].MedicationName
	})
	return out, nil
}
