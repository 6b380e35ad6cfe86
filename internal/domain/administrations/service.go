package administrations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pet-med-tracker/internal/domain/animals"
	"pet-med-tracker/internal/domain/households"
	"pet-med-tracker/internal/domain/inventory"
	"pet-med-tracker/internal/domain/regimens"
	"pet-med-tracker/internal/domain/schedule"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrBadState         = errors.New("invalid state")
	ErrBlocked          = errors.New("inventory source blocked")
	ErrEditWindowClosed = errors.New("edit window closed")
)

// EditWindow es cuánto tiempo después de registrar se puede corregir
// notes/site/tags. Pasado eso, el registro queda inmutable.
const EditWindow = 10 * time.Minute

type AnimalSource interface {
	GetByID(ctx context.Context, id string) (animals.Animal, error)
}

type RegimenSource interface {
	GetByID(ctx context.Context, id string) (regimens.Regimen, error)
}

// HouseholdDirectory resuelve membership y zona del hogar.
// households.Service lo satisface.
type HouseholdDirectory interface {
	CurrentMembership(ctx context.Context, householdID, userID string) (households.Membership, error)
	GetByID(ctx context.Context, householdID string) (households.Household, error)
}

type InventorySource interface {
	GetSource(ctx context.Context, id string) (inventory.Source, error)
	Consume(ctx context.Context, id string, units float64) error
}

// DueInvalidator invalida las vistas cacheadas de "due now" tras un registro
// exitoso. Es post-condición explícita del recorder, no un detalle.
type DueInvalidator interface {
	Invalidate(householdID, animalID string)
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(string, string) {}

type Service struct {
	repo        Repository
	animals     AnimalSource
	regimens    RegimenSource
	directory   HouseholdDirectory
	inventory   InventorySource
	invalidator DueInvalidator
	now         func() time.Time
}

func NewService(repo Repository, animalsSrc AnimalSource, regimensSrc RegimenSource, directory HouseholdDirectory, inv InventorySource) *Service {
	return &Service{
		repo:        repo,
		animals:     animalsSrc,
		regimens:    regimensSrc,
		directory:   directory,
		inventory:   inv,
		invalidator: noopInvalidator{},
		now:         time.Now,
	}
}

// SetInvalidator engancha la invalidación de cache de due-doses.
// Se setea desde el router para no acoplar módulos entre sí.
func (s *Service) SetInvalidator(inv DueInvalidator) {
	if inv != nil {
		s.invalidator = inv
	}
}

type RecordInput struct {
	AnimalID  string
	RegimenID string

	// AdministeredAt en cero => ahora.
	AdministeredAt time.Time

	// ScheduledFor es el slot objetivo para regímenes programados;
	// nil para PRN.
	ScheduledFor *time.Time

	// ClientNonce es obligatorio para PRN: cada toma PRN es un evento
	// distinto y el nonce evita que colapsen en una sola clave.
	ClientNonce string

	InventorySourceID string
	Notes             string
	Site              string
	ConditionTags     []string

	AllowOverride  bool
	OverrideReason string
}

// Record registra una dosis con semántica at-most-once por clave idempotente.
// Un duplicado (retry, replay offline, doble tap) devuelve el registro
// existente como éxito, nunca como error.
func (s *Service) Record(ctx context.Context, userID string, in RecordInput) (Administration, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Administration{}, ErrForbidden
	}
	if strings.TrimSpace(in.AnimalID) == "" || strings.TrimSpace(in.RegimenID) == "" {
		return Administration{}, ErrInvalidInput
	}

	animal, err := s.animals.GetByID(ctx, in.AnimalID)
	if err != nil {
		return Administration{}, fmt.Errorf("%w: animal", ErrInvalidInput)
	}

	membership, err := s.directory.CurrentMembership(ctx, animal.HouseholdID, userID)
	if err != nil || !households.CanWrite(membership) {
		return Administration{}, ErrForbidden
	}

	reg, err := s.regimens.GetByID(ctx, in.RegimenID)
	if err != nil {
		return Administration{}, fmt.Errorf("%w: regimen", ErrInvalidInput)
	}
	if reg.AnimalID != animal.ID {
		return Administration{}, fmt.Errorf("%w: regimen does not belong to animal", ErrInvalidInput)
	}
	if !reg.Active {
		return Administration{}, ErrBadState
	}

	household, err := s.directory.GetByID(ctx, animal.HouseholdID)
	if err != nil {
		return Administration{}, fmt.Errorf("%w: household", ErrInvalidInput)
	}
	loc, err := schedule.ResolveLocation(animal.Timezone, household.Timezone)
	if err != nil {
		return Administration{}, err
	}

	recordedAt := in.AdministeredAt
	if recordedAt.IsZero() {
		recordedAt = s.now()
	}

	var key string
	var scheduledFor *time.Time

	if reg.ScheduleType == regimens.SchedulePRN {
		if in.ScheduledFor != nil {
			return Administration{}, fmt.Errorf("%w: PRN dose cannot carry scheduled_for", ErrInvalidInput)
		}
		nonce := strings.TrimSpace(in.ClientNonce)
		if nonce == "" {
			return Administration{}, fmt.Errorf("%w: PRN dose requires client_nonce", ErrInvalidInput)
		}
		key = PRNKey(animal.ID, reg.ID, schedule.LocalDayISO(recordedAt, loc), nonce)
	} else {
		if in.ScheduledFor == nil {
			return Administration{}, fmt.Errorf("%w: scheduled_for required", ErrInvalidInput)
		}
		slot, err := s.matchSlot(reg, *in.ScheduledFor, loc)
		if err != nil {
			return Administration{}, err
		}
		t := slot.Target
		scheduledFor = &t
		key = SlotKey(animal.ID, reg.ID, slot.LocalDay, slot.Index)
	}

	a := Administration{
		ID:                uuid.NewString(),
		AnimalID:          animal.ID,
		RegimenID:         reg.ID,
		CaregiverUserID:   userID,
		RecordedAt:        recordedAt,
		ScheduledFor:      scheduledFor,
		Status:            ResolveStatus(scheduledFor, recordedAt, reg.CutoffMins),
		IdempotencyKey:    key,
		InventorySourceID: strings.TrimSpace(in.InventorySourceID),
		Notes:             strings.TrimSpace(in.Notes),
		Site:              strings.TrimSpace(in.Site),
		ConditionTags:     in.ConditionTags,
		RequiresCoSign:    reg.HighRisk,
		CreatedAt:         s.now(),
		UpdatedAt:         s.now(),
	}

	// Inventario: una fuente vencida o de otro medicamento bloquea el
	// registro, salvo override explícito (que queda auditado).
	if a.InventorySourceID != "" {
		src, err := s.inventory.GetSource(ctx, a.InventorySourceID)
		if err != nil {
			return Administration{}, fmt.Errorf("%w: inventory source", ErrInvalidInput)
		}
		expired := src.IsExpired(recordedAt)
		wrongMed := src.MedicationID != reg.MedicationID
		if expired || wrongMed {
			if !in.AllowOverride {
				return Administration{}, fmt.Errorf("%w: expired=%v wrong_medication=%v", ErrBlocked, expired, wrongMed)
			}
			a.Override = &Override{
				UserID: userID,
				Reason: strings.TrimSpace(in.OverrideReason),
			}
		}
	}

	existing, created, err := s.repo.CreateIfAbsent(ctx, a)
	if err != nil {
		return Administration{}, err
	}
	if !created {
		// Conflicto de clave = duplicado concurrente: éxito con el existente.
		return existing, nil
	}

	if a.InventorySourceID != "" {
		// Best effort: no deshacemos la administración si el descuento falla.
		_ = s.inventory.Consume(ctx, a.InventorySourceID, 1)
	}
	s.invalidator.Invalidate(animal.HouseholdID, animal.ID)

	return existing, nil
}

// matchSlot valida que scheduledFor corresponda a una dosis esperada del
// régimen y devuelve su slot (día local + ordinal) para derivar la clave.
func (s *Service) matchSlot(reg regimens.Regimen, scheduledFor time.Time, loc *time.Location) (schedule.Slot, error) {
	from := scheduledFor.Add(-36 * time.Hour)
	to := scheduledFor.Add(36 * time.Hour)

	slots, err := schedule.ExpectedDoses(reg, from, to, loc)
	if err != nil {
		return schedule.Slot{}, err
	}
	for _, slot := range slots {
		if slot.Target.Equal(scheduledFor) {
			return slot, nil
		}
	}
	return schedule.Slot{}, fmt.Errorf("%w: scheduled_for does not match an expected dose", ErrInvalidInput)
}

// AttachCoSign completa la co-firma pendiente de una administración de alto
// riesgo. Debe firmar un segundo cuidador distinto del que registró.
// Idempotente si ya está firmada.
func (s *Service) AttachCoSign(ctx context.Context, adminID, userID string) (Administration, error) {
	userID = strings.TrimSpace(userID)
	if strings.TrimSpace(adminID) == "" || userID == "" {
		return Administration{}, ErrInvalidInput
	}

	a, err := s.repo.GetByID(ctx, adminID)
	if err != nil {
		return Administration{}, ErrNotFound
	}
	if a.Voided() {
		return Administration{}, ErrBadState
	}
	if !a.RequiresCoSign {
		return Administration{}, ErrBadState
	}
	if a.CoSign != nil {
		return a, nil
	}
	if a.CaregiverUserID == userID {
		return Administration{}, fmt.Errorf("%w: co-sign requires a second caregiver", ErrInvalidInput)
	}

	animal, err := s.animals.GetByID(ctx, a.AnimalID)
	if err != nil {
		return Administration{}, ErrNotFound
	}
	membership, err := s.directory.CurrentMembership(ctx, animal.HouseholdID, userID)
	if err != nil || !households.CanWrite(membership) {
		return Administration{}, ErrForbidden
	}

	a.CoSign = &CoSign{UserID: userID, SignedAt: s.now()}
	a.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, a); err != nil {
		return Administration{}, err
	}
	return a, nil
}

type AmendInput struct {
	Notes         *string
	Site          *string
	ConditionTags *[]string
}

// Amend corrige campos descriptivos dentro de la ventana de edición.
// El resto del registro es inmutable.
func (s *Service) Amend(ctx context.Context, adminID, userID string, in AmendInput) (Administration, error) {
	a, err := s.authorizeWrite(ctx, adminID, userID)
	if err != nil {
		return Administration{}, err
	}
	if s.now().Sub(a.RecordedAt) > EditWindow {
		return Administration{}, ErrEditWindowClosed
	}

	if in.Notes != nil {
		a.Notes = strings.TrimSpace(*in.Notes)
	}
	if in.Site != nil {
		a.Site = strings.TrimSpace(*in.Site)
	}
	if in.ConditionTags != nil {
		a.ConditionTags = *in.ConditionTags
	}

	a.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, a); err != nil {
		return Administration{}, err
	}
	return a, nil
}

// Void anula el registro dejando rastro de quién y cuándo. Idempotente.
func (s *Service) Void(ctx context.Context, adminID, userID string) (Administration, error) {
	a, err := s.authorizeWrite(ctx, adminID, userID)
	if err != nil {
		return Administration{}, err
	}
	if a.Voided() {
		return a, nil
	}

	now := s.now()
	a.VoidedBy = userID
	a.VoidedAt = &now
	a.UpdatedAt = now
	if err := s.repo.Update(ctx, a); err != nil {
		return Administration{}, err
	}

	animal, err := s.animals.GetByID(ctx, a.AnimalID)
	if err == nil {
		s.invalidator.Invalidate(animal.HouseholdID, animal.ID)
	}
	return a, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Administration, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Administration{}, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByKey(ctx context.Context, key string) (Administration, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Administration{}, ErrInvalidInput
	}
	return s.repo.GetByKey(ctx, key)
}

func (s *Service) ListByAnimal(ctx context.Context, animalID string, filter ListFilter) ([]Administration, error) {
	return s.repo.ListByAnimal(ctx, animalID, filter)
}

// ExistingKeys expone el índice de claves para el clasificador de due-doses.
func (s *Service) ExistingKeys(ctx context.Context, keys []string) (map[string]bool, error) {
	return s.repo.ExistingKeys(ctx, keys)
}

func (s *Service) authorizeWrite(ctx context.Context, adminID, userID string) (Administration, error) {
	userID = strings.TrimSpace(userID)
	if strings.TrimSpace(adminID) == "" || userID == "" {
		return Administration{}, ErrInvalidInput
	}

	a, err := s.repo.GetByID(ctx, adminID)
	if err != nil {
		return Administration{}, ErrNotFound
	}

	animal, err := s.animals.GetByID(ctx, a.AnimalID)
	if err != nil {
		return Administration{}, ErrNotFound
	}
	membership, err := s.directory.CurrentMembership(ctx, animal.HouseholdID, userID)
	if err != nil || !households.CanWrite(membership) {
		return Administration{}, ErrForbidden
	}
	return a, nil
}
