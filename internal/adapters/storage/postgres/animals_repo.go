package postgres

import (
	"context"
	"database/sql"
	"strings"

	"pet-med-tracker/internal/domain/animals"
)

type AnimalsRepo struct {
	db *sql.DB
}

func NewAnimalsRepo(db *sql.DB) *AnimalsRepo {
	return &AnimalsRepo{db: db}
}

func (r *AnimalsRepo) Create(ctx context.Context, a animals.Animal) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO animals (
			id, household_id,
			name, species, breed, sex,
			birth_date, weight_kg,
			timezone, notes, status,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`,
		a.ID, a.HouseholdID,
		a.Name, string(a.Species), a.Breed, string(a.Sex),
		a.BirthDate, a.WeightKg,
		a.Timezone, a.Notes, string(a.Status),
		a.CreatedAt, a.UpdatedAt,
	)
	return err
}

func (r *AnimalsRepo) Update(ctx context.Context, a animals.Animal) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE animals
		SET name = $2, species = $3, breed = $4, sex = $5,
		    birth_date = $6, weight_kg = $7,
		    timezone = $8, notes = $9, status = $10,
		    updated_at = $11
		WHERE id = $1
	`,
		a.ID,
		a.Name, string(a.Species), a.Breed, string(a.Sex),
		a.BirthDate, a.WeightKg,
		a.Timezone, a.Notes, string(a.Status),
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

func (r *AnimalsRepo) GetByID(ctx context.Context, id string) (animals.Animal, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return animals.Animal{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT id, household_id,
		       name, species, breed, sex,
		       birth_date, weight_kg,
		       timezone, notes, status,
		       created_at, updated_at
		FROM animals
		WHERE id = $1
	`, id)
	return scanAnimal(row)
}

func (r *AnimalsRepo) ListByHousehold(ctx context.Context, householdID string) ([]animals.Animal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, household_id,
		       name, species, breed, sex,
		       birth_date, weight_kg,
		       timezone, notes, status,
		       created_at, updated_at
		FROM animals
		WHERE household_id = $1
		ORDER BY name ASC
	`, householdID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]animals.Animal, 0)
	for rows.Next() {
		a, err := scanAnimal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAnimal(row rowScanner) (animals.Animal, error) {
	var a animals.Animal
	var species, sex, status string
	if err := row.Scan(
		&a.ID, &a.HouseholdID,
		&a.Name, &species, &a.Breed, &sex,
		&a.BirthDate, &a.WeightKg,
		&a.Timezone, &a.Notes, &status,
		&a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return animals.Animal{}, ErrNotFound
		}
		return animals.Animal{}, err
	}
	a.Species = animals.Species(species)
	a.Sex = animals.Sex(sex)
	a.Status = animals.AnimalStatus(status)
	return a, nil
}
