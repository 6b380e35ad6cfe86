package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"pet-med-tracker/internal/domain/regimens"
)

var ErrInvalidInput = errors.New("invalid input")

// ResolveLocation carga la zona efectiva del animal: su override si existe,
// si no la del hogar, si no UTC.
func ResolveLocation(animalTZ, householdTZ string) (*time.Location, error) {
	tz := strings.TrimSpace(animalTZ)
	if tz == "" {
		tz = strings.TrimSpace(householdTZ)
	}
	if tz == "" {
		tz = "UTC"
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown timezone %q", ErrInvalidInput, tz)
	}
	return loc, nil
}

// ExpandTimes convierte cada "HH:MM" de timesLocal, en la fecha dateISO
// ("YYYY-MM-DD") y la zona IANA tz, a un instante absoluto (UTC).
//
// Política DST:
//   - gap (spring forward): un horario local inexistente se corre hacia
//     adelante al primer instante válido después del salto.
//   - overlap (fall back): un horario ambiguo resuelve a la primera
//     ocurrencia (offset pre-transición).
//
// Es una función pura: el resultado no depende del reloj actual.
func ExpandTimes(timesLocal []string, dateISO string, tz string) ([]time.Time, error) {
	if strings.TrimSpace(tz) == "" {
		return nil, fmt.Errorf("%w: timezone required", ErrInvalidInput)
	}
	loc, err := time.LoadLocation(strings.TrimSpace(tz))
	if err != nil {
		return nil, fmt.Errorf("%w: unknown timezone %q", ErrInvalidInput, tz)
	}

	day, err := time.Parse("2006-01-02", strings.TrimSpace(dateISO))
	if err != nil {
		return nil, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidInput, dateISO)
	}

	out := make([]time.Time, 0, len(timesLocal))
	for _, t := range timesLocal {
		h, m, err := regimens.ParseTimeOfDay(t)
		if err != nil {
			return nil, fmt.Errorf("%w: time %q must be HH:MM", ErrInvalidInput, t)
		}
		out = append(out, ResolveLocal(day.Year(), day.Month(), day.Day(), h, m, loc).UTC())
	}
	return out, nil
}

// ResolveLocal resuelve una hora civil en loc a un instante. Para horarios
// existentes y no ambiguos es el instante exacto; en un gap DST cae al final
// del gap; en un overlap elige la ocurrencia más temprana (offset
// pre-transición).
func ResolveLocal(year int, month time.Month, day, hour, minute int, loc *time.Location) time.Time {
	// Normaliza fechas fuera de rango (día 0, día 32) antes de comparar.
	norm := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	year, month, day = norm.Year(), norm.Month(), norm.Day()

	want := civilKey(year, int(month), day, hour, minute)
	keyAt := func(t time.Time) int64 {
		t = t.In(loc)
		return civilKey(t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute())
	}

	// Rango seguro: los offsets UTC reales caen en [-12h, +14h].
	base := time.Date(year, month, day, hour, minute, 0, 0, time.UTC).Add(-30 * time.Hour)

	// La bisección converge a algún instante con hora civil >= want, pero en
	// un overlap la hora civil se repite y puede caer en cualquiera de las
	// ocurrencias.
	lo, hi := 0, 60*60 // minutos sobre base, 60h de ventana
	for lo < hi {
		mid := (lo + hi) / 2
		if keyAt(base.Add(time.Duration(mid)*time.Minute)) < want {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	cand := base.Add(time.Duration(lo) * time.Minute)

	// Si la hora pedida existe, barre hacia atrás sobre el posible overlap y
	// quédate con el instante más temprano que rinde la misma hora civil.
	// Ninguna transición real repite más de unas pocas horas.
	earliest := cand
	if keyAt(cand) == want {
		for d := time.Minute; d <= 3*time.Hour; d += time.Minute {
			if prev := cand.Add(-d); keyAt(prev) == want {
				earliest = prev
			}
		}
	}
	return earliest.In(loc)
}

// civilKey codifica una hora civil como entero comparable.
func civilKey(year, month, day, hour, minute int) int64 {
	return ((int64(year)*100+int64(month))*100+int64(day))*10000 + int64(hour)*100 + int64(minute)
}

// LocalDayISO devuelve el día calendario del instante en la zona dada.
func LocalDayISO(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}
