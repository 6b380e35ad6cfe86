package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"pet-med-tracker/internal/domain/administrations"

	"github.com/jackc/pgx/v5/pgconn"
)

type AdministrationsRepo struct {
	db *sql.DB
}

func NewAdministrationsRepo(db *sql.DB) *AdministrationsRepo {
	return &AdministrationsRepo{db: db}
}

// CreateIfAbsent se apoya en el unique index de idempotency_key: el INSERT
// que choca con 23505 no es un error sino el camino normal de un duplicado
// concurrente, y resuelve leyendo el registro existente.
func (r *AdministrationsRepo) CreateIfAbsent(ctx context.Context, a administrations.Administration) (administrations.Administration, bool, error) {
	tags, err := json.Marshal(a.ConditionTags)
	if err != nil {
		return administrations.Administration{}, false, err
	}

	var coSignUserID *string
	var coSignAt any
	if a.CoSign != nil {
		coSignUserID = &a.CoSign.UserID
		coSignAt = a.CoSign.SignedAt
	}
	var overrideUserID, overrideReason *string
	if a.Override != nil {
		overrideUserID = &a.Override.UserID
		overrideReason = &a.Override.Reason
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO administrations (
			id, animal_id, regimen_id, caregiver_user_id,
			recorded_at, scheduled_for, status,
			idempotency_key, inventory_source_id,
			notes, site, condition_tags,
			requires_cosign, cosign_user_id, cosign_at,
			override_user_id, override_reason,
			voided_by, voided_at,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
	`,
		a.ID, a.AnimalID, a.RegimenID, a.CaregiverUserID,
		a.RecordedAt, a.ScheduledFor, string(a.Status),
		a.IdempotencyKey, nullIfEmpty(a.InventorySourceID),
		a.Notes, a.Site, tags,
		a.RequiresCoSign, coSignUserID, coSignAt,
		overrideUserID, overrideReason,
		nullIfEmpty(a.VoidedBy), a.VoidedAt,
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			existing, getErr := r.GetByKey(ctx, a.IdempotencyKey)
			if getErr != nil {
				return administrations.Administration{}, false, fmt.Errorf("duplicate key but existing row unreadable: %w", getErr)
			}
			return existing, false, nil
		}
		return administrations.Administration{}, false, err
	}
	return a, true, nil
}

func (r *AdministrationsRepo) GetByID(ctx context.Context, id string) (administrations.Administration, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return administrations.Administration{}, ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, administrationSelect+` WHERE id = $1`, id)
	return scanAdministration(row)
}

func (r *AdministrationsRepo) GetByKey(ctx context.Context, key string) (administrations.Administration, error) {
	row := r.db.QueryRowContext(ctx, administrationSelect+` WHERE idempotency_key = $1`, key)
	return scanAdministration(row)
}

func (r *AdministrationsRepo) Update(ctx context.Context, a administrations.Administration) error {
	tags, err := json.Marshal(a.ConditionTags)
	if err != nil {
		return err
	}

	var coSignUserID *string
	var coSignAt any
	if a.CoSign != nil {
		coSignUserID = &a.CoSign.UserID
		coSignAt = a.CoSign.SignedAt
	}
	var overrideUserID, overrideReason *string
	if a.Override != nil {
		overrideUserID = &a.Override.UserID
		overrideReason = &a.Override.Reason
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE administrations
		SET notes = $2, site = $3, condition_tags = $4,
		    cosign_user_id = $5, cosign_at = $6,
		    override_user_id = $7, override_reason = $8,
		    voided_by = $9, voided_at = $10,
		    updated_at = $11
		WHERE id = $1
	`,
		a.ID,
		a.Notes, a.Site, tags,
		coSignUserID, coSignAt,
		overrideUserID, overrideReason,
		nullIfEmpty(a.VoidedBy), a.VoidedAt,
		a.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AdministrationsRepo) ListByAnimal(ctx context.Context, animalID string, filter administrations.ListFilter) ([]administrations.Administration, error) {
	animalID = strings.TrimSpace(animalID)
	if animalID == "" {
		return nil, nil
	}

	sb := strings.Builder{}
	sb.WriteString(administrationSelect)
	sb.WriteString(` WHERE animal_id = $1`)

	args := []any{animalID}
	argN := 2

	if !filter.IncludeVoided {
		sb.WriteString(" AND voided_at IS NULL")
	}
	if filter.Status != "" {
		sb.WriteString(fmt.Sprintf(" AND status = $%d", argN))
		args = append(args, string(filter.Status))
		argN++
	}
	if filter.From != nil {
		sb.WriteString(fmt.Sprintf(" AND recorded_at >= $%d", argN))
		args = append(args, *filter.From)
		argN++
	}
	if filter.To != nil {
		sb.WriteString(fmt.Sprintf(" AND recorded_at <= $%d", argN))
		args = append(args, *filter.To)
		argN++
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}

	sb.WriteString(" ORDER BY recorded_at DESC")
	sb.WriteString(fmt.Sprintf(" LIMIT $%d", argN))
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]administrations.Administration, 0)
	for rows.Next() {
		a, err := scanAdministration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AdministrationsRepo) ExistingKeys(ctx context.Context, keys []string) (map[string]bool, error) {
	out := make(map[string]bool, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	placeholders := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for i, k := range keys {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
		args = append(args, k)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT idempotency_key
		FROM administrations
		WHERE idempotency_key IN (`+strings.Join(placeholders, ",")+`)
		  AND voided_at IS NULL
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		out[key] = true
	}
	return out, rows.Err()
}

const administrationSelect = `
	SELECT id, animal_id, regimen_id, caregiver_user_id,
	       recorded_at, scheduled_for, status,
	       idempotency_key, inventory_source_id,
	       notes, site, condition_tags,
	       requires_cosign, cosign_user_id, cosign_at,
	       override_user_id, override_reason,
	       voided_by, voided_at,
	       created_at, updated_at
	FROM administrations`

func scanAdministration(row rowScanner) (administrations.Administration, error) {
	var a administrations.Administration
	var status string
	var tags []byte
	var inventorySourceID, coSignUserID, overrideUserID, overrideReason, voidedBy sql.NullString
	var coSignAt sql.NullTime

	if err := row.Scan(
		&a.ID, &a.AnimalID, &a.RegimenID, &a.CaregiverUserID,
		&a.RecordedAt, &a.ScheduledFor, &status,
		&a.IdempotencyKey, &inventorySourceID,
		&a.Notes, &a.Site, &tags,
		&a.RequiresCoSign, &coSignUserID, &coSignAt,
		&overrideUserID, &overrideReason,
		&voidedBy, &a.VoidedAt,
		&a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return administrations.Administration{}, ErrNotFound
		}
		return administrations.Administration{}, err
	}

	a.Status = administrations.Status(status)
	a.InventorySourceID = inventorySourceID.String
	a.VoidedBy = voidedBy.String
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &a.ConditionTags); err != nil {
			return administrations.Administration{}, err
		}
	}
	if coSignUserID.Valid {
		a.CoSign = &administrations.CoSign{
			UserID:   coSignUserID.String,
			SignedAt: coSignAt.Time,
		}
	}
	if overrideUserID.Valid {
		a.Override = &administrations.Override{
			UserID: overrideUserID.String,
			Reason: overrideReason.String,
		}
	}
	return a, nil
}

func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
