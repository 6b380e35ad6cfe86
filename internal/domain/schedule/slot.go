package schedule

import "time"

// Slot es una dosis esperada, derivada al vuelo de un régimen.
// No se persiste: se recalcula en cada consulta.
type Slot struct {
	RegimenID string
	AnimalID  string

	// Target es el instante objetivo; Cutoff = Target + CutoffMins.
	Target time.Time
	Cutoff time.Time

	// Index es la posición de la dosis dentro de las dosis esperadas de su
	// día local (0-based). Junto con LocalDay identifica la dosis lógica.
	Index    int
	LocalDay string // "YYYY-MM-DD" en la zona del animal
}
