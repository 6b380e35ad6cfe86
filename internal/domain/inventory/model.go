package inventory

import "time"

// Item es una fuente física de medicación del hogar (frasco, blister, vial).
type Item struct {
	ID          string
	HouseholdID string

	MedicationID string
	Label        string

	UnitsRemaining float64

	ExpiresAt *time.Time
	OpenedAt  *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Source es la vista que consume el recorder para validar el enlace
// administración -> inventario.
type Source struct {
	ID             string
	MedicationID   string
	UnitsRemaining float64
	ExpiresAt      *time.Time
}

func (s Source) IsExpired(at time.Time) bool {
	return s.ExpiresAt != nil && s.ExpiresAt.Before(at)
}
