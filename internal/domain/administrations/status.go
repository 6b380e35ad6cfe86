package administrations

import "time"

// ResolveStatus clasifica una administración registrada.
// Es función pura de sus tres inputs.
//
//   - scheduledFor == nil => PRN.
//   - recordedAt <= scheduledFor + cutoff => ON_TIME (el cutoff define la
//     ventana de gracia on-time; el límite es inclusivo).
//   - hasta cutoff*2 => LATE.
//   - después => VERY_LATE.
//
// MISSED no sale de acá: requiere la AUSENCIA de registro, así que se
// calcula retrospectivamente (ver MissedAfter y el módulo reports).
func ResolveStatus(scheduledFor *time.Time, recordedAt time.Time, cutoffMins int) Status {
	if scheduledFor == nil {
		return StatusPRN
	}

	cutoff := time.Duration(cutoffMins) * time.Minute
	delta := recordedAt.Sub(*scheduledFor)

	switch {
	case delta <= cutoff:
		return StatusOnTime
	case delta <= 2*cutoff:
		return StatusLate
	default:
		return StatusVeryLate
	}
}

// MissedAfter es el instante a partir del cual un slot sin registro se
// considera MISSED.
func MissedAfter(target time.Time, cutoffMins int) time.Time {
	return target.Add(2 * time.Duration(cutoffMins) * time.Minute)
}
