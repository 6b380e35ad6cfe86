package reports

// RegimenCompliance resume la adherencia de un régimen en un rango de días
// locales. Expected cuenta solo dosis ya juzgables (cuya ventana MISSED
// cerró o que tienen registro); Pending son las que todavía están abiertas.
type RegimenCompliance struct {
	RegimenID      string
	MedicationID   string
	MedicationName string

	Expected int
	OnTime   int
	Late     int
	VeryLate int
	Missed   int
	Pending  int

	// PRNCount va aparte: las tomas PRN no tienen dosis esperadas.
	PRNCount int

	// CompliancePct = (OnTime + Late + VeryLate) / Expected * 100.
	// Cero si no hay dosis esperadas.
	CompliancePct float64
}

// AnimalCompliance agrupa el reporte de todos los regímenes de un animal.
type AnimalCompliance struct {
	AnimalID   string
	AnimalName string
	FromDay    string
	ToDay      string

	Regimens []RegimenCompliance
}
