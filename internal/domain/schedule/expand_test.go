package schedule

import (
	"errors"
	"testing"
	"time"
)

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("load location %s: %v", name, err)
	}
	return loc
}

func TestResolveLocation_AnimalOverridesHousehold(t *testing.T) {
	loc, err := ResolveLocation("Europe/Amsterdam", "America/New_York")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.String() != "Europe/Amsterdam" {
		t.Fatalf("expected animal tz, got %s", loc)
	}

	loc, err = ResolveLocation("", "America/New_York")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.String() != "America/New_York" {
		t.Fatalf("expected household tz fallback, got %s", loc)
	}

	loc, err = ResolveLocation("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.String() != "UTC" {
		t.Fatalf("expected UTC fallback, got %s", loc)
	}

	if _, err := ResolveLocation("Mars/Olympus", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bogus tz, got %v", err)
	}
}

// La noche del 2024-10-27 Amsterdam retrocede de CEST (+02) a CET (+01).
// Los horarios locales deben mantenerse en la pared del reloj: 08:00 sigue
// siendo 08:00 local los cuatro días, aunque el instante UTC se corra.
func TestExpandTimes_FallBack_KeepsLocalWallClock(t *testing.T) {
	ams := mustLoc(t, "Europe/Amsterdam")
	days := []string{"2024-10-26", "2024-10-27", "2024-10-28", "2024-10-29"}

	total := 0
	for _, day := range days {
		targets, err := ExpandTimes([]string{"08:00", "18:00"}, day, "Europe/Amsterdam")
		if err != nil {
			t.Fatalf("expand %s: %v", day, err)
		}
		if len(targets) != 2 {
			t.Fatalf("expected 2 targets for %s, got %d", day, len(targets))
		}
		for i, want := range []int{8, 18} {
			local := targets[i].In(ams)
			if local.Hour() != want || local.Minute() != 0 {
				t.Fatalf("day %s slot %d: expected %02d:00 local, got %s", day, i, want, local)
			}
			if local.Format("2006-01-02") != day {
				t.Fatalf("day %s slot %d landed on %s", day, i, local.Format("2006-01-02"))
			}
		}
		total += len(targets)
	}
	if total != 8 {
		t.Fatalf("expected 8 slots across the transition, got %d", total)
	}

	// Antes de la transición 08:00 local = 06:00Z; después = 07:00Z.
	before, _ := ExpandTimes([]string{"08:00"}, "2024-10-26", "Europe/Amsterdam")
	after, _ := ExpandTimes([]string{"08:00"}, "2024-10-28", "Europe/Amsterdam")
	if before[0].Hour() != 6 {
		t.Fatalf("expected 06:00Z before fall-back, got %s", before[0])
	}
	if after[0].Hour() != 7 {
		t.Fatalf("expected 07:00Z after fall-back, got %s", after[0])
	}
}

// 2024-03-31 02:00 CET salta a 03:00 CEST: las 02:30 locales no existen.
// Deben resolver al primer instante válido después del gap.
func TestResolveLocal_SpringForwardGap(t *testing.T) {
	ams := mustLoc(t, "Europe/Amsterdam")

	got := ResolveLocal(2024, time.March, 31, 2, 30, ams)
	if got.Hour() != 3 || got.Minute() != 0 {
		t.Fatalf("expected 03:00 local after the gap, got %s", got)
	}
	if !got.UTC().Equal(time.Date(2024, 3, 31, 1, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected 01:00Z, got %s", got.UTC())
	}
}

// 2024-10-27 02:30 local ocurre dos veces; debe resolver a la primera
// ocurrencia (offset pre-transición, +02).
// Horas ambiguas en distintas zonas y saltos (incluida la transición de
// 30 minutos de Lord Howe): siempre la primera ocurrencia.
func TestResolveLocal_FallBackOverlap_EarliestOccurrence(t *testing.T) {
	cases := []struct {
		name string
		tz   string
		y    int
		m    time.Month
		d    int
		hh   int
		mm   int
		want time.Time // instante UTC de la primera ocurrencia
	}{
		{"amsterdam start of overlap", "Europe/Amsterdam", 2024, time.October, 27, 2, 0,
			time.Date(2024, 10, 27, 0, 0, 0, 0, time.UTC)},
		{"amsterdam mid overlap", "Europe/Amsterdam", 2024, time.October, 27, 2, 30,
			time.Date(2024, 10, 27, 0, 30, 0, 0, time.UTC)},
		{"amsterdam end of overlap", "Europe/Amsterdam", 2024, time.October, 27, 2, 59,
			time.Date(2024, 10, 27, 0, 59, 0, 0, time.UTC)},
		{"new york", "America/New_York", 2024, time.November, 3, 1, 30,
			time.Date(2024, 11, 3, 5, 30, 0, 0, time.UTC)},
		{"santiago overlap before midnight", "America/Santiago", 2025, time.April, 5, 23, 30,
			time.Date(2025, 4, 6, 2, 30, 0, 0, time.UTC)},
		{"lord howe 30-minute shift", "Australia/Lord_Howe", 2025, time.April, 6, 1, 45,
			time.Date(2025, 4, 5, 14, 45, 0, 0, time.UTC)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			loc := mustLoc(t, tc.tz)

			got := ResolveLocal(tc.y, tc.m, tc.d, tc.hh, tc.mm, loc)
			if got.Hour() != tc.hh || got.Minute() != tc.mm {
				t.Fatalf("expected %02d:%02d local, got %s", tc.hh, tc.mm, got)
			}
			if !got.UTC().Equal(tc.want) {
				t.Fatalf("expected earliest occurrence %s, got %s", tc.want, got.UTC())
			}
		})
	}
}

// La expansión es pura: mismo input, mismo output, sin importar el reloj.
func TestExpandTimes_Deterministic(t *testing.T) {
	a, err := ExpandTimes([]string{"08:00", "20:00"}, "2025-06-15", "America/New_York")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := ExpandTimes([]string{"08:00", "20:00"}, "2025-06-15", "America/New_York")
	for i := range a {
		if !a[i].Equal(b[i]) {
			t.Fatalf("expansion not deterministic at %d: %s vs %s", i, a[i], b[i])
		}
	}
}

func TestExpandTimes_InvalidInputs(t *testing.T) {
	cases := []struct {
		name  string
		times []string
		date  string
		tz    string
	}{
		{"empty tz", []string{"08:00"}, "2025-01-01", ""},
		{"bad tz", []string{"08:00"}, "2025-01-01", "Not/AZone"},
		{"bad date", []string{"08:00"}, "01-01-2025", "UTC"},
		{"bad time", []string{"8am"}, "2025-01-01", "UTC"},
		{"out of range", []string{"25:00"}, "2025-01-01", "UTC"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ExpandTimes(tc.times, tc.date, tc.tz); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestLocalDayISO_CrossesMidnight(t *testing.T) {
	ny := mustLoc(t, "America/New_York")

	// 03:00Z del 2 de enero = 22:00 del 1 de enero en NY.
	instant := time.Date(2025, 1, 2, 3, 0, 0, 0, time.UTC)
	if got := LocalDayISO(instant, ny); got != "2025-01-01" {
		t.Fatalf("expected 2025-01-01, got %s", got)
	}
	if got := LocalDayISO(instant, time.UTC); got != "2025-01-02" {
		t.Fatalf("expected 2025-01-02, got %s", got)
	}
}
