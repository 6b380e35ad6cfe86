package postgres

import (
	"context"
	"database/sql"
	"strings"

	"pet-med-tracker/internal/domain/inventory"
)

type InventoryRepo struct {
	db *sql.DB
}

func NewInventoryRepo(db *sql.DB) *InventoryRepo {
	return &InventoryRepo{db: db}
}

func (r *InventoryRepo) Create(ctx context.Context, it inventory.Item) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO inventory_items (
			id, household_id, medication_id, label,
			units_remaining, expires_at, opened_at,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		it.ID, it.HouseholdID, it.MedicationID, it.Label,
		it.UnitsRemaining, it.ExpiresAt, it.OpenedAt,
		it.CreatedAt, it.UpdatedAt,
	)
	return err
}

func (r *InventoryRepo) Update(ctx context.Context, it inventory.Item) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE inventory_items
		SET label = $2, units_remaining = $3,
		    expires_at = $4, opened_at = $5,
		    updated_at = $6
		WHERE id = $1
	`, it.ID, it.Label, it.UnitsRemaining, it.ExpiresAt, it.OpenedAt, it.UpdatedAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *InventoryRepo) GetByID(ctx context.Context, id string) (inventory.Item, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return inventory.Item{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT id, household_id, medication_id, label,
		       units_remaining, expires_at, opened_at,
		       created_at, updated_at
		FROM inventory_items
		WHERE id = $1
	`, id)

	var it inventory.Item
	if err := row.Scan(
		&it.ID, &it.HouseholdID, &it.MedicationID, &it.Label,
		&it.UnitsRemaining, &it.ExpiresAt, &it.OpenedAt,
		&it.CreatedAt, &it.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return inventory.Item{}, ErrNotFound
		}
		return inventory.Item{}, err
	}
	return it, nil
}

func (r *InventoryRepo) ListByHousehold(ctx context.Context, householdID string) ([]inventory.Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, household_id, medication_id, label,
		       units_remaining, expires_at, opened_at,
		       created_at, updated_at
		FROM inventory_items
		WHERE household_id = $1
		ORDER BY created_at ASC
	`, householdID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]inventory.Item, 0)
	for rows.Next() {
		var it inventory.Item
		if err := rows.Scan(
			&it.ID, &it.HouseholdID, &it.MedicationID, &it.Label,
			&it.UnitsRemaining, &it.ExpiresAt, &it.OpenedAt,
			&it.CreatedAt, &it.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
