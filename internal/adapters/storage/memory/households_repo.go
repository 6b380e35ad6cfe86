package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"pet-med-tracker/internal/domain/households"
)

type householdsRepo struct {
	mu              sync.RWMutex
	byID            map[string]households.Household
	membershipsByID map[string]households.Membership
}

func NewHouseholdsRepo() households.Repository {
	return &householdsRepo{
		byID:            make(map[string]households.Household),
		membershipsByID: make(map[string]households.Membership),
	}
}

func (r *householdsRepo) CreateHousehold(ctx context.Context, h households.Household) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h.ID == "" {
		return errors.New("household id required")
	}
	if _, exists := r.byID[h.ID]; exists {
		return errors.New("household already exists")
	}
	r.byID[h.ID] = h
	return nil
}

func (r *householdsRepo) GetHousehold(ctx context.Context, id string) (households.Household, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.byID[id]
	if !ok {
		return households.Household{}, ErrNotFound
	}
	return h, nil
}

func (r *householdsRepo) CreateMembership(ctx context.Context, m households.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m.ID == "" {
		return errors.New("membership id required")
	}
	if _, exists := r.membershipsByID[m.ID]; exists {
		return errors.New("membership already exists")
	}
	r.membershipsByID[m.ID] = m
	return nil
}

func (r *householdsRepo) UpdateMembership(ctx context.Context, m households.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.membershipsByID[m.ID]; !ok {
		return ErrNotFound
	}
	r.membershipsByID[m.ID] = m
	return nil
}

func (r *householdsRepo) GetMembershipByID(ctx context.Context, id string) (households.Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.membershipsByID[id]
	if !ok {
		return households.Membership{}, ErrNotFound
	}
	return m, nil
}

func (r *householdsRepo) ListMembersByHousehold(ctx context.Context, householdID string) ([]households.Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]households.Membership, 0)
	for _, m := range r.membershipsByID {
		if m.HouseholdID == householdID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *householdsRepo) ListMembershipsByUser(ctx context.Context, userID string) ([]households.Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]households.Membership, 0)
	for _, m := range r.membershipsByID {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *householdsRepo) GetActiveMembership(ctx context.Context, householdID, userID string) (households.Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.membershipsByID {
		if m.HouseholdID == householdID && m.UserID == userID && m.Status == households.StatusActive {
			return m, nil
		}
	}
	return households.Membership{}, ErrNotFound
}
