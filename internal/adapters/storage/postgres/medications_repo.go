package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"pet-med-tracker/internal/domain/medications"
)

type MedicationsRepo struct {
	db *sql.DB
}

func NewMedicationsRepo(db *sql.DB) *MedicationsRepo {
	return &MedicationsRepo{db: db}
}

func (r *MedicationsRepo) Create(ctx context.Context, m medications.Medication) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO medications (
			id, generic_name, brand_name,
			route, form, strength,
			created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		m.ID, m.GenericName, m.BrandName,
		string(m.Route), string(m.Form), m.Strength,
		m.CreatedAt,
	)
	return err
}

func (r *MedicationsRepo) GetByID(ctx context.Context, id string) (medications.Medication, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return medications.Medication{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT id, generic_name, brand_name, route, form, strength, created_at
		FROM medications
		WHERE id = $1
	`, id)

	var m medications.Medication
	var route, form string
	if err := row.Scan(&m.ID, &m.GenericName, &m.BrandName, &route, &form, &m.Strength, &m.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return medications.Medication{}, ErrNotFound
		}
		return medications.Medication{}, err
	}
	m.Route = medications.Route(route)
	m.Form = medications.Form(form)
	return m, nil
}

func (r *MedicationsRepo) List(ctx context.Context, filter medications.ListFilter) ([]medications.Medication, error) {
	sb := strings.Builder{}
	sb.WriteString(`
		SELECT id, generic_name, brand_name, route, form, strength, created_at
		FROM medications
		WHERE 1=1
	`)

	args := []any{}
	argN := 1

	if q := strings.TrimSpace(filter.Query); q != "" {
		sb.WriteString(fmt.Sprintf(" AND (generic_name ILIKE $%d OR brand_name ILIKE $%d)", argN, argN))
		args = append(args, "%"+q+"%")
		argN++
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	sb.WriteString(" ORDER BY generic_name ASC")
	sb.WriteString(fmt.Sprintf(" LIMIT $%d", argN))
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]medications.Medication, 0)
	for rows.Next() {
		var m medications.Medication
		var route, form string
		if err := rows.Scan(&m.ID, &m.GenericName, &m.BrandName, &route, &form, &m.Strength, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Route = medications.Route(route)
		m.Form = medications.Form(form)
		out = append(out, m)
	}
	return out, rows.Err()
}
