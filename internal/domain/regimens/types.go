package regimens

// ScheduleType define cómo se esperan las dosis de un régimen.
type ScheduleType string

const (
	// ScheduleFixed: horarios fijos del día ("08:00", "20:00") en la zona del animal.
	ScheduleFixed ScheduleType = "FIXED"
	// SchedulePRN: a demanda; nunca genera dosis esperadas.
	SchedulePRN ScheduleType = "PRN"
	// ScheduleInterval: cada N horas ancladas al inicio del régimen.
	ScheduleInterval ScheduleType = "INTERVAL"
	// ScheduleTaper: secuencia de pasos con rango de fechas, cada paso con
	// horarios fijos y dosis propia.
	ScheduleTaper ScheduleType = "TAPER"
)

func ValidScheduleType(t ScheduleType) bool {
	switch t {
	case ScheduleFixed, SchedulePRN, ScheduleInterval, ScheduleTaper:
		return true
	}
	return false
}
