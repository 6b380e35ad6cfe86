package regimens

import "time"

// TaperStep es un tramo del taper: horarios fijos dentro de [StartDate, EndDate]
// (fechas locales "YYYY-MM-DD", inclusive) con una dosis propia.
type TaperStep struct {
	StartDate  string
	EndDate    string
	TimesLocal []string
	Dose       string
}

// Regimen es la pauta de medicación de un animal.
// Los horarios se interpretan en la zona del animal (fallback: zona del hogar),
// nunca en la del navegador de quien consulta. Eso sostiene la corrección
// frente a cambios DST.
type Regimen struct {
	ID       string
	AnimalID string

	MedicationID string
	// Denormalizado para ordenar listados sin ir al catálogo.
	MedicationName string

	ScheduleType ScheduleType

	// FIXED: lista ordenada de "HH:MM".
	TimesLocal []string
	// INTERVAL: separación en horas entre dosis.
	IntervalHours int
	// TAPER: pasos ordenados, sin solaparse.
	TaperSteps []TaperStep

	Dose         string
	DoseUnit     string
	Instructions string

	// CutoffMins define hasta cuántos minutos después del horario objetivo
	// una dosis sigue siendo on-time.
	CutoffMins int

	// HighRisk exige co-firma de un segundo cuidador.
	HighRisk bool

	Active bool

	StartDate time.Time
	EndDate   *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
