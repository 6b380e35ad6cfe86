package postgres

import (
	"context"
	"database/sql"
	"strings"

	"pet-med-tracker/internal/domain/households"
)

type HouseholdsRepo struct {
	db *sql.DB
}

func NewHouseholdsRepo(db *sql.DB) *HouseholdsRepo {
	return &HouseholdsRepo{db: db}
}

func (r *HouseholdsRepo) CreateHousehold(ctx context.Context, h households.Household) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO households (id, name, timezone, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5)
	`, h.ID, h.Name, h.Timezone, h.CreatedAt, h.UpdatedAt)
	return err
}

func (r *HouseholdsRepo) GetHousehold(ctx context.Context, id string) (households.Household, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return households.Household{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, timezone, created_at, updated_at
		FROM households
		WHERE id = $1
	`, id)

	var h households.Household
	if err := row.Scan(&h.ID, &h.Name, &h.Timezone, &h.CreatedAt, &h.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return households.Household{}, ErrNotFound
		}
		return households.Household{}, err
	}
	return h, nil
}

func (r *HouseholdsRepo) CreateMembership(ctx context.Context, m households.Membership) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO memberships (
			id, household_id, user_id, inviter_user_id,
			role, status,
			created_at, updated_at, revoked_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		m.ID, m.HouseholdID, m.UserID, m.InviterUserID,
		string(m.Role), string(m.Status),
		m.CreatedAt, m.UpdatedAt, m.RevokedAt,
	)
	return err
}

func (r *HouseholdsRepo) UpdateMembership(ctx context.Context, m households.Membership) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE memberships
		SET role = $2, status = $3, updated_at = $4, revoked_at = $5
		WHERE id = $1
	`, m.ID, string(m.Role), string(m.Status), m.UpdatedAt, m.RevokedAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *HouseholdsRepo) GetMembershipByID(ctx context.Context, id string) (households.Membership, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, household_id, user_id, inviter_user_id,
		       role, status,
		       created_at, updated_at, revoked_at
		FROM memberships
		WHERE id = $1
	`, id)
	return scanMembership(row)
}

func (r *HouseholdsRepo) ListMembersByHousehold(ctx context.Context, householdID string) ([]households.Membership, error) {
	return r.listMemberships(ctx, `WHERE household_id = $1`, householdID)
}

func (r *HouseholdsRepo) ListMembershipsByUser(ctx context.Context, userID string) ([]households.Membership, error) {
	return r.listMemberships(ctx, `WHERE user_id = $1`, userID)
}

func (r *HouseholdsRepo) GetActiveMembership(ctx context.Context, householdID, userID string) (households.Membership, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, household_id, user_id, inviter_user_id,
		       role, status,
		       created_at, updated_at, revoked_at
		FROM memberships
		WHERE household_id = $1 AND user_id = $2 AND status = 'active'
		ORDER BY created_at DESC
		LIMIT 1
	`, householdID, userID)
	return scanMembership(row)
}

func (r *HouseholdsRepo) listMemberships(ctx context.Context, where string, arg any) ([]households.Membership, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, household_id, user_id, inviter_user_id,
		       role, status,
		       created_at, updated_at, revoked_at
		FROM memberships
		`+where+`
		ORDER BY created_at ASC
	`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]households.Membership, 0)
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMembership(row rowScanner) (households.Membership, error) {
	var m households.Membership
	var role, status string
	if err := row.Scan(
		&m.ID, &m.HouseholdID, &m.UserID, &m.InviterUserID,
		&role, &status,
		&m.CreatedAt, &m.UpdatedAt, &m.RevokedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return households.Membership{}, ErrNotFound
		}
		return households.Membership{}, err
	}
	m.Role = households.Role(role)
	m.Status = households.Status(status)
	return m, nil
}
