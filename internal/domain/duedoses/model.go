package duedoses

import "time"

// Section indica en qué bloque del listado cae un régimen.
type Section string

const (
	SectionDue   Section = "due"
	SectionLater Section = "later"
	SectionPRN   Section = "prn"
)

// Item es una fila del listado de dosis: un slot esperado (due/later) o un
// régimen PRN (sin horario objetivo).
type Item struct {
	RegimenID string
	AnimalID  string

	AnimalName     string
	MedicationID   string
	MedicationName string
	Dose           string
	DoseUnit       string
	HighRisk       bool

	Section Section

	// Target/Cutoff son nil para PRN: un PRN nunca está "gateado" por hora.
	Target *time.Time
	Cutoff *time.Time

	SlotIndex int
	LocalDay  string

	// IdempotencyKey precalculada del slot, para que el cliente (online u
	// offline) registre con la misma clave que espera el servidor.
	IdempotencyKey string

	IsOverdue bool
	// MinutesUntilDue es firmado: negativo = vencido hace N minutos.
	MinutesUntilDue int
}

// Grouped es la respuesta del clasificador.
type Grouped struct {
	Due   []Item
	Later []Item
	PRN   []Item
}
