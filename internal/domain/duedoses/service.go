package duedoses

import (
	"context"
	"errors"
	"math"
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
	ListByHousehold(ctx context.Context, householdID string) ([]animals.Animal, error)
}

type RegimenSource interface {
	ListActiveByAnimal(ctx context.Context, animalID string) ([]regimens.Regimen, error)
}

type HouseholdSource interface {
	GetByID(ctx context.Context, id string) (households.Household, error)
}

// AdministrationIndex dice qué claves de slot ya tienen registro no-anulado.
type AdministrationIndex interface {
	ExistingKeys(ctx context.Context, keys []string) (map[string]bool, error)
}

// Service es el clasificador de dosis: decide qué regímenes están due,
// later o prn para un "now" dado. Lectura pura sobre los repos; el clock
// se inyecta para poder testearlo.
type Service struct {
	animals    AnimalSource
	regimens   RegimenSource
	households HouseholdSource
	adminIndex AdministrationIndex

	cache *dueCache
	now   func() time.Time
}

func NewService(animalsSrc AnimalSource, regimensSrc RegimenSource, householdsSrc HouseholdSource, adminIndex AdministrationIndex, cacheTTL time.Duration) *Service {
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	return &Service{
		animals:    animalsSrc,
		regimens:   regimensSrc,
		households: householdsSrc,
		adminIndex: adminIndex,
		cache:      newDueCache(cacheTTL),
		now:        time.Now,
	}
}

// Invalidate implementa administrations.DueInvalidator.
func (s *Service) Invalidate(householdID, animalID string) {
	s.cache.invalidate(householdID, animalID)
}

// ListDue clasifica los regímenes del hogar (o de un animal puntual).
// Un now en cero usa el reloj del servicio y habilita el cache; un now
// explícito (tests, vistas históricas) siempre recalcula.
func (s *Service) ListDue(ctx context.Context, householdID, animalID string, now time.Time) (Grouped, error) {
	householdID = strings.TrimSpace(householdID)
	if householdID == "" {
		return Grouped{}, ErrInvalidInput
	}

	useCache := now.IsZero()
	if now.IsZero() {
		now = s.now()
	}

	key := cacheKey(householdID, animalID)
	if useCache {
		if cached, ok := s.cache.get(key, now); ok {
			return cached, nil
		}
	}

	household, err := s.households.GetByID(ctx, householdID)
	if err != nil {
		return Grouped{}, err
	}

	var targets []animals.Animal
	if animalID != "" {
		a, err := s.animals.GetByID(ctx, animalID)
		if err != nil {
			return Grouped{}, err
		}
		if a.HouseholdID != householdID {
			return Grouped{}, ErrInvalidInput
		}
		targets = []animals.Animal{a}
	} else {
		targets, err = s.animals.ListByHousehold(ctx, householdID)
		if err != nil {
			return Grouped{}, err
		}
	}

	out := Grouped{
		Due:   []Item{},
		Later: []Item{},
		PRN:   []Item{},
	}

	for _, animal := range targets {
		if animal.Status != animals.StatusActive {
			continue
		}
		if err := s.classifyAnimal(ctx, household, animal, now, &out); err != nil {
			return Grouped{}, err
		}
	}

	sortDue(out.Due)
	sortLater(out.Later)
	sortPRN(out.PRN)

	if useCache {
		s.cache.set(key, out, now)
	}
	return out, nil
}

func (s *Service) classifyAnimal(ctx context.Context, household households.Household, animal animals.Animal, now time.Time, out *Grouped) error {
	loc, err := schedule.ResolveLocation(animal.Timezone, household.Timezone)
	if err != nil {
		return err
	}

	regs, err := s.regimens.ListActiveByAnimal(ctx, animal.ID)
	if err != nil {
		return err
	}

	localToday := schedule.LocalDayISO(now, loc)

	// Ventana: ayer + hoy locales. El look-back de un día cubre slots de
	// medianoche que siguen dentro de su cutoff.
	nowLocal := now.In(loc)
	from := schedule.ResolveLocal(nowLocal.Year(), nowLocal.Month(), nowLocal.Day()-1, 0, 0, loc)
	to := schedule.ResolveLocal(nowLocal.Year(), nowLocal.Month(), nowLocal.Day()+1, 0, 0, loc)

	type pending struct {
		reg  regimens.Regimen
		slot schedule.Slot
		key  string
	}
	var slots []pending
	var keys []string

	for _, reg := range regs {
		if reg.ScheduleType == regimens.SchedulePRN {
			out.PRN = append(out.PRN, Item{
				RegimenID:      reg.ID,
				AnimalID:       animal.ID,
				AnimalName:     animal.Name,
				MedicationID:   reg.MedicationID,
				MedicationName: reg.MedicationName,
				Dose:           reg.Dose,
				DoseUnit:       reg.DoseUnit,
				HighRisk:       reg.HighRisk,
				Section:        SectionPRN,
				LocalDay:       localToday,
			})
			continue
		}

		expanded, err := schedule.ExpectedDoses(reg, from, to, loc)
		if err != nil {
			return err
		}
		for _, slot := range expanded {
			k := administrations.SlotKey(animal.ID, reg.ID, slot.LocalDay, slot.Index)
			slots = append(slots, pending{reg: reg, slot: slot, key: k})
			keys = append(keys, k)
		}
	}

	recorded := map[string]bool{}
	if len(keys) > 0 {
		recorded, err = s.adminIndex.ExistingKeys(ctx, keys)
		if err != nil {
			return err
		}
	}

	for _, p := range slots {
		if recorded[p.key] {
			continue
		}

		target := p.slot.Target
		cutoff := p.slot.Cutoff

		item := Item{
			RegimenID:       p.reg.ID,
			AnimalID:        animal.ID,
			AnimalName:      animal.Name,
			MedicationID:    p.reg.MedicationID,
			MedicationName:  p.reg.MedicationName,
			Dose:            p.reg.Dose,
			DoseUnit:        p.reg.DoseUnit,
			HighRisk:        p.reg.HighRisk,
			Target:          &target,
			Cutoff:          &cutoff,
			SlotIndex:       p.slot.Index,
			LocalDay:        p.slot.LocalDay,
			IdempotencyKey:  p.key,
			IsOverdue:       now.After(target),
			MinutesUntilDue: int(math.Round(target.Sub(now).Minutes())),
		}

		switch {
		case target.After(now):
			// Futuro: solo el resto del día local de hoy.
			if p.slot.LocalDay == localToday {
				item.Section = SectionLater
				out.Later = append(out.Later, item)
			}
		case p.slot.LocalDay == localToday:
			// Hoy: sigue due (overdue) hasta que se registre, incluso
			// pasado el cutoff.
			item.Section = SectionDue
			out.Due = append(out.Due, item)
		case !now.After(cutoff):
			// Ayer: solo si sigue dentro de su cutoff.
			item.Section = SectionDue
			out.Due = append(out.Due, item)
		}
	}

	return nil
}

// Orden en due: vencidos primero, luego target ascendente, luego nombre del
// medicamento. Mismo criterio de prioridad (urgencia, después nombre) que
// los listados de inventario.
func sortDue(items []Item) {
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.IsOverdue != b.IsOverdue {
			return a.IsOverdue
		}
		if !a.Target.Equal(*b.Target) {
			return a.Target.Before(*b.Target)
		}
		return a.MedicationName < b.MedicationName
	})
}

func sortLater(items []Item) {
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.Target.Equal(*b.Target) {
			return a.Target.Before(*b.Target)
		}
		return a.MedicationName < b.MedicationName
	})
}

func sortPRN(items []Item) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].MedicationName < items[j].MedicationName
	})
}
