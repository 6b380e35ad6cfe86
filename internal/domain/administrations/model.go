package administrations

import "time"

// Status clasifica qué tan a tiempo se registró una dosis.
type Status string

const (
	StatusOnTime   Status = "ON_TIME"
	StatusLate     Status = "LATE"
	StatusVeryLate Status = "VERY_LATE"
	// StatusMissed nunca se persiste al registrar: es una clasificación
	// retrospectiva de slots sin registro (ver reports).
	StatusMissed Status = "MISSED"
	StatusPRN    Status = "PRN"
)

type CoSign struct {
	UserID   string
	SignedAt time.Time
}

// Override documenta que se forzó el uso de una fuente de inventario
// vencida o de otro medicamento. Queda para auditoría.
type Override struct {
	UserID string
	Reason string
}

// Administration es el registro append-only de una dosis aplicada.
// Nunca se borra físicamente: se anula con VoidedBy/VoidedAt.
type Administration struct {
	ID string

	AnimalID        string
	RegimenID       string
	CaregiverUserID string

	RecordedAt   time.Time
	ScheduledFor *time.Time // nil => PRN

	Status Status

	// IdempotencyKey es único a nivel global: un retry, un replay offline o
	// un doble tap colapsan en este mismo registro.
	IdempotencyKey string

	InventorySourceID string

	Notes         string
	Site          string
	ConditionTags []string

	RequiresCoSign bool
	CoSign         *CoSign

	Override *Override

	VoidedBy string
	VoidedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (a Administration) Voided() bool {
	return a.VoidedAt != nil
}
