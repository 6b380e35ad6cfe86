package households

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
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

type CreateInput struct {
	Name     string
	Timezone string
}

// Create crea el hogar y deja al creador como owner activo.
func (s *Service) Create(ctx context.Context, creatorUserID string, in CreateInput) (Household, error) {
	creatorUserID = strings.TrimSpace(creatorUserID)
	name := strings.TrimSpace(in.Name)
	tz := strings.TrimSpace(in.Timezone)

	if creatorUserID == "" || name == "" {
		return Household{}, ErrInvalidInput
	}
	if tz == "" {
		tz = "UTC"
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return Household{}, ErrInvalidInput
	}

	now := s.now()
	h := Household{
		ID:        uuid.NewString(),
		Name:      name,
		Timezone:  tz,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.CreateHousehold(ctx, h); err != nil {
		return Household{}, err
	}

	owner := Membership{
		ID:            uuid.NewString(),
		HouseholdID:   h.ID,
		UserID:        creatorUserID,
		InviterUserID: creatorUserID,
		Role:          RoleOwner,
		Status:        StatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.CreateMembership(ctx, owner); err != nil {
		return Household{}, err
	}

	return h, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Household, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Household{}, ErrInvalidInput
	}
	return s.repo.GetHousehold(ctx, id)
}

type InviteInput struct {
	HouseholdID   string
	InviterUserID string
	InviteeUserID string
	Role          Role
}

// Invite invita a un usuario al hogar. Solo un owner activo puede invitar.
// Si ya existe una membership no-revocada para el invitado, se actualiza
// su rol en lugar de crear otra (dedup).
func (s *Service) Invite(ctx context.Context, in InviteInput) (Membership, error) {
	householdID := strings.TrimSpace(in.HouseholdID)
	inviterID := strings.TrimSpace(in.InviterUserID)
	inviteeID := strings.TrimSpace(in.InviteeUserID)

	if householdID == "" || inviterID == "" || inviteeID == "" {
		return Membership{}, ErrInvalidInput
	}
	if inviterID == inviteeID {
		return Membership{}, ErrInvalidInput
	}

	role := in.Role
	if role == "" {
		role = RoleCaregiver
	}
	if !ValidRole(role) || role == RoleOwner {
		// El ownership no se asigna por invitación.
		return Membership{}, ErrInvalidInput
	}

	inviter, err := s.repo.GetActiveMembership(ctx, householdID, inviterID)
	if err != nil || inviter.Role != RoleOwner {
		return Membership{}, ErrForbidden
	}

	now := s.now()

	// Dedup: si ya hay una membership no-revocada, actualizamos rol.
	existing, err := s.latestMembership(ctx, householdID, inviteeID)
	if err == nil && existing.ID != "" && existing.Status != StatusRevoked {
		existing.Role = role
		existing.UpdatedAt = now
		if err := s.repo.UpdateMembership(ctx, existing); err != nil {
			return Membership{}, err
		}
		return existing, nil
	}

	m := Membership{
		ID:            uuid.NewString(),
		HouseholdID:   householdID,
		UserID:        inviteeID,
		InviterUserID: inviterID,
		Role:          role,
		Status:        StatusInvited,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.CreateMembership(ctx, m); err != nil {
		return Membership{}, err
	}
	return m, nil
}

// Accept acepta la invitación. Idempotente si ya está activa.
func (s *Service) Accept(ctx context.Context, membershipID, userID string) (Membership, error) {
	membershipID = strings.TrimSpace(membershipID)
	userID = strings.TrimSpace(userID)
	if membershipID == "" || userID == "" {
		return Membership{}, ErrInvalidInput
	}

	m, err := s.repo.GetMembershipByID(ctx, membershipID)
	if err != nil {
		return Membership{}, ErrNotFound
	}
	if m.UserID != userID {
		return Membership{}, ErrForbidden
	}
	if m.Status == StatusRevoked {
		return Membership{}, ErrBadState
	}
	if m.Status == StatusActive {
		return m, nil
	}

	m.Status = StatusActive
	m.UpdatedAt = s.now()

	if err := s.repo.UpdateMembership(ctx, m); err != nil {
		return Membership{}, err
	}
	return m, nil
}

// Revoke revoca la membership. Solo owner del hogar. Idempotente.
func (s *Service) Revoke(ctx context.Context, membershipID, ownerUserID string) (Membership, error) {
	membershipID = strings.TrimSpace(membershipID)
	ownerUserID = strings.TrimSpace(ownerUserID)
	if membershipID == "" || ownerUserID == "" {
		return Membership{}, ErrInvalidInput
	}

	m, err := s.repo.GetMembershipByID(ctx, membershipID)
	if err != nil {
		return Membership{}, ErrNotFound
	}

	owner, err := s.repo.GetActiveMembership(ctx, m.HouseholdID, ownerUserID)
	if err != nil || owner.Role != RoleOwner {
		return Membership{}, ErrForbidden
	}
	if m.Role == RoleOwner {
		// Un owner no se revoca a sí mismo ni a otro owner por esta vía.
		return Membership{}, ErrBadState
	}

	if m.Status == StatusRevoked {
		return m, nil
	}

	now := s.now()
	m.Status = StatusRevoked
	m.UpdatedAt = now
	m.RevokedAt = &now

	if err := s.repo.UpdateMembership(ctx, m); err != nil {
		return Membership{}, err
	}
	return m, nil
}

func (s *Service) ListMembers(ctx context.Context, householdID string) ([]Membership, error) {
	householdID = strings.TrimSpace(householdID)
	if householdID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListMembersByHousehold(ctx, householdID)
}

// ListMyHouseholds devuelve los hogares donde el usuario tiene membership activa.
func (s *Service) ListMyHouseholds(ctx context.Context, userID string) ([]Household, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidInput
	}

	ms, err := s.repo.ListMembershipsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]Household, 0, len(ms))
	for _, m := range ms {
		if m.Status != StatusActive {
			continue
		}
		h, err := s.repo.GetHousehold(ctx, m.HouseholdID)
		if err != nil {
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

// CurrentMembership devuelve la membership activa del usuario en el hogar,
// o ErrForbidden si no tiene.
func (s *Service) CurrentMembership(ctx context.Context, householdID, userID string) (Membership, error) {
	householdID = strings.TrimSpace(householdID)
	userID = strings.TrimSpace(userID)
	if householdID == "" || userID == "" {
		return Membership{}, ErrInvalidInput
	}

	m, err := s.repo.GetActiveMembership(ctx, householdID, userID)
	if err != nil {
		return Membership{}, ErrForbidden
	}
	return m, nil
}

// latestMembership busca la membership más reciente de (household, user),
// priorizando UpdatedAt y luego CreatedAt.
func (s *Service) latestMembership(ctx context.Context, householdID, userID string) (Membership, error) {
	ms, err := s.repo.ListMembersByHousehold(ctx, householdID)
	if err != nil {
		return Membership{}, err
	}

	var winner Membership
	has := false
	for _, m := range ms {
		if m.UserID != userID {
			continue
		}
		if !has {
			winner = m
			has = true
			continue
		}
		if m.UpdatedAt.After(winner.UpdatedAt) {
			winner = m
			continue
		}
		if m.UpdatedAt.Equal(winner.UpdatedAt) && m.CreatedAt.After(winner.CreatedAt) {
			winner = m
		}
	}

	if !has {
		return Membership{}, ErrNotFound
	}
	return winner, nil
}
