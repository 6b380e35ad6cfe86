package schedule

import (
	"time"

	"pet-med-tracker/internal/domain/regimens"
)

// ExpectedDoses expande las dosis esperadas de un régimen en [from, to),
// en la zona loc. Un régimen inactivo no genera dosis, incluso a mitad
// del día. PRN nunca genera dosis esperadas.
func ExpectedDoses(reg regimens.Regimen, from, to time.Time, loc *time.Location) ([]Slot, error) {
	if !reg.Active || !to.After(from) {
		return nil, nil
	}

	switch reg.ScheduleType {
	case regimens.SchedulePRN:
		return nil, nil
	case regimens.ScheduleFixed:
		return fixedSlots(reg, reg.TimesLocal, from, to, loc)
	case regimens.ScheduleInterval:
		return intervalSlots(reg, from, to, loc)
	case regimens.ScheduleTaper:
		return taperSlots(reg, from, to, loc)
	}
	return nil, nil
}

func fixedSlots(reg regimens.Regimen, timesLocal []string, from, to time.Time, loc *time.Location) ([]Slot, error) {
	cutoff := time.Duration(reg.CutoffMins) * time.Minute
	out := make([]Slot, 0)

	for _, dateISO := range localDays(from, to, loc) {
		targets, err := ExpandTimes(timesLocal, dateISO, loc.String())
		if err != nil {
			return nil, err
		}
		for i, target := range targets {
			if target.Before(from) || !target.Before(to) {
				continue
			}
			if !withinRegimenWindow(reg, target, loc) {
				continue
			}
			out = append(out, Slot{
				RegimenID: reg.ID,
				AnimalID:  reg.AnimalID,
				Target:    target,
				Cutoff:    target.Add(cutoff),
				Index:     i,
				LocalDay:  dateISO,
			})
		}
	}
	return out, nil
}

// intervalSlots ancla la serie en el StartDate del régimen y avanza de a
// IntervalHours. El índice de cada slot es su ordinal dentro del día local.
func intervalSlots(reg regimens.Regimen, from, to time.Time, loc *time.Location) ([]Slot, error) {
	if reg.IntervalHours < 1 {
		return nil, nil
	}

	step := time.Duration(reg.IntervalHours) * time.Hour
	cutoff := time.Duration(reg.CutoffMins) * time.Minute

	// Saltamos de a intervalos completos hasta acercarnos a from.
	target := reg.StartDate
	if target.Before(from) {
		n := from.Sub(target) / step
		target = target.Add(n * step)
		for target.Before(from) {
			target = target.Add(step)
		}
	}

	out := make([]Slot, 0)
	dayCounts := map[string]int{}

	// El índice dentro del día depende de dónde cayeron los slots previos de
	// ese día local, así que contamos también los anteriores a from.
	if prev := target.Add(-step); !prev.Before(reg.StartDate) {
		day := LocalDayISO(target, loc)
		for p := prev; !p.Before(reg.StartDate) && LocalDayISO(p, loc) == day; p = p.Add(-step) {
			dayCounts[day]++
		}
	}

	for ; target.Before(to); target = target.Add(step) {
		if !withinRegimenWindow(reg, target, loc) {
			continue
		}
		day := LocalDayISO(target, loc)
		idx := dayCounts[day]
		dayCounts[day] = idx + 1

		out = append(out, Slot{
			RegimenID: reg.ID,
			AnimalID:  reg.AnimalID,
			Target:    target,
			Cutoff:    target.Add(cutoff),
			Index:     idx,
			LocalDay:  day,
		})
	}
	return out, nil
}

func taperSlots(reg regimens.Regimen, from, to time.Time, loc *time.Location) ([]Slot, error) {
	out := make([]Slot, 0)
	for _, stepCfg := range reg.TaperSteps {
		cutoff := time.Duration(reg.CutoffMins) * time.Minute
		for _, dateISO := range localDays(from, to, loc) {
			if dateISO < stepCfg.StartDate || dateISO > stepCfg.EndDate {
				continue
			}
			targets, err := ExpandTimes(stepCfg.TimesLocal, dateISO, loc.String())
			if err != nil {
				return nil, err
			}
			for i, target := range targets {
				if target.Before(from) || !target.Before(to) {
					continue
				}
				if !withinRegimenWindow(reg, target, loc) {
					continue
				}
				out = append(out, Slot{
					RegimenID: reg.ID,
					AnimalID:  reg.AnimalID,
					Target:    target,
					Cutoff:    target.Add(cutoff),
					Index:     i,
					LocalDay:  dateISO,
				})
			}
		}
	}
	return out, nil
}

// withinRegimenWindow filtra targets fuera de [StartDate, EndDate] del régimen
// (comparado por día local: el régimen rige días calendario completos).
func withinRegimenWindow(reg regimens.Regimen, target time.Time, loc *time.Location) bool {
	day := LocalDayISO(target, loc)
	if day < LocalDayISO(reg.StartDate, loc) {
		return false
	}
	if reg.EndDate != nil && day > LocalDayISO(*reg.EndDate, loc) {
		return false
	}
	return true
}

// localDays lista los días calendario locales tocados por [from, to).
func localDays(from, to time.Time, loc *time.Location) []string {
	first := LocalDayISO(from, loc)
	last := LocalDayISO(to.Add(-time.Nanosecond), loc)

	// Iteramos fechas con el truco del mediodía UTC para esquivar DST.
	start, _ := time.Parse("2006-01-02", first)
	cursor := time.Date(start.Year(), start.Month(), start.Day(), 12, 0, 0, 0, time.UTC)

	out := []string{}
	for {
		day := cursor.Format("2006-01-02")
		if day > last {
			break
		}
		out = append(out, day)
		cursor = cursor.AddDate(0, 0, 1)
	}
	return out
}
