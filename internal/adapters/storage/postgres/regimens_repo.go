package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"pet-med-tracker/internal/domain/regimens"
)

type RegimensRepo struct {
	db *sql.DB
}

func NewRegimensRepo(db *sql.DB) *RegimensRepo {
	return &RegimensRepo{db: db}
}

// times_local y taper_steps se guardan como JSONB: son listas chicas que
// siempre se leen completas junto con el régimen.
func (r *RegimensRepo) Create(ctx context.Context, reg regimens.Regimen) error {
	times, steps, err := marshalSchedule(reg)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO regimens (
			id, animal_id,
			medication_id, medication_name,
			schedule_type, times_local, interval_hours, taper_steps,
			dose, dose_unit, instructions,
			cutoff_mins, high_risk, active,
			start_date, end_date,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	`,
		reg.ID, reg.AnimalID,
		reg.MedicationID, reg.MedicationName,
		string(reg.ScheduleType), times, reg.IntervalHours, steps,
		reg.Dose, reg.DoseUnit, reg.Instructions,
		reg.CutoffMins, reg.HighRisk, reg.Active,
		reg.StartDate, reg.EndDate,
		reg.CreatedAt, reg.UpdatedAt,
	)
	return err
}

func (r *RegimensRepo) Update(ctx context.Context, reg regimens.Regimen) error {
	times, steps, err := marshalSchedule(reg)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE regimens
		SET medication_name = $2,
		    times_local = $3, interval_hours = $4, taper_steps = $5,
		    dose = $6, dose_unit = $7, instructions = $8,
		    cutoff_mins = $9, high_risk = $10, active = $11,
		    end_date = $12,
		    updated_at = $13
		WHERE id = $1
	`,
		reg.ID,
		reg.MedicationName,
		times, reg.IntervalHours, steps,
		reg.Dose, reg.DoseUnit, reg.Instructions,
		reg.CutoffMins, reg.HighRisk, reg.Active,
		reg.EndDate,
		reg.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RegimensRepo) GetByID(ctx context.Context, id string) (regimens.Regimen, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return regimens.Regimen{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, regimenSelect+` WHERE id = $1`, id)
	return scanRegimen(row)
}

func (r *RegimensRepo) ListByAnimal(ctx context.Context, animalID string) ([]regimens.Regimen, error) {
	return r.list(ctx, ` WHERE animal_id = $1 ORDER BY created_at ASC`, animalID)
}

func (r *RegimensRepo) ListActiveByAnimal(ctx context.Context, animalID string) ([]regimens.Regimen, error) {
	return r.list(ctx, ` WHERE animal_id = $1 AND active = true ORDER BY created_at ASC`, animalID)
}

const regimenSelect = `
	SELECT id, animal_id,
	       medication_id, medication_name,
	       schedule_type, times_local, interval_hours, taper_steps,
	       dose, dose_unit, instructions,
	       cutoff_mins, high_risk, active,
	       start_date, end_date,
	       created_at, updated_at
	FROM regimens`

func (r *RegimensRepo) list(ctx context.Context, where string, arg any) ([]regimens.Regimen, error) {
	rows, err := r.db.QueryContext(ctx, regimenSelect+where, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]regimens.Regimen, 0)
	for rows.Next() {
		reg, err := scanRegimen(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, reg)
	}
	return out, rows.Err()
}

func scanRegimen(row rowScanner) (regimens.Regimen, error) {
	var reg regimens.Regimen
	var scheduleType string
	var times, steps []byte

	if err := row.Scan(
		&reg.ID, &reg.AnimalID,
		&reg.MedicationID, &reg.MedicationName,
		&scheduleType, &times, &reg.IntervalHours, &steps,
		&reg.Dose, &reg.DoseUnit, &reg.Instructions,
		&reg.CutoffMins, &reg.HighRisk, &reg.Active,
		&reg.StartDate, &reg.EndDate,
		&reg.CreatedAt, &reg.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return regimens.Regimen{}, ErrNotFound
		}
		return regimens.Regimen{}, err
	}

	reg.ScheduleType = regimens.ScheduleType(scheduleType)
	if len(times) > 0 {
		if err := json.Unmarshal(times, &reg.TimesLocal); err != nil {
			return regimens.Regimen{}, err
		}
	}
	if len(steps) > 0 {
		if err := json.Unmarshal(steps, &reg.TaperSteps); err != nil {
			return regimens.Regimen{}, err
		}
	}
	return reg, nil
}

func marshalSchedule(reg regimens.Regimen) (times, steps []byte, err error) {
	times, err = json.Marshal(reg.TimesLocal)
	if err != nil {
		return nil, nil, err
	}
	steps, err = json.Marshal(reg.TaperSteps)
	if err != nil {
		return nil, nil, err
	}
	return times, steps, nil
}
