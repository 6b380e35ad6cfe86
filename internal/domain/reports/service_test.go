package reports

import (
	"context"
	"testing"
	"time"

	"pet-med-tracker/internal/domain/administrations"
	"pet-med-tracker/internal/domain/animals"
	"pet-med-tracker/internal/domain/households"
	"pet-med-tracker/internal/domain/regimens"
	"pet-med-tracker/internal/domain/schedule"
)

// -------------------------
// Fakes
// -------------------------

type testAnimals struct {
	byID map[string]animals.Animal
}

func (f *testAnimals) GetByID(ctx context.Context, id string) (animals.Animal, error) {
	return f.byID[id], nil
}

type testRegimens struct {
	regs []regimens.Regimen
}

func (f *testRegimens) ListByAnimal(ctx context.Context, animalID string) ([]regimens.Regimen, error) {
	return f.regs, nil
}

type testHouseholds struct {
	byID map[string]households.Household
}

func (f *testHouseholds) GetByID(ctx context.Context, id string) (households.Household, error) {
	return f.byID[id], nil
}

type testAdmins struct {
	admins []administrations.Administration
}

func (f *testAdmins) ListByAnimal(ctx context.Context, animalID string, filter administrations.ListFilter) ([]administrations.Administration, error) {
	return f.admins, nil
}

// -------------------------
// Fixture
// -------------------------

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("load location %s: %v", name, err)
	}
	return loc
}

func nyTarget(t *testing.T, day string, hour, minute int) time.Time {
	t.Helper()
	loc := mustLoc(t, "America/New_York")
	d, err := time.Parse("2006-01-02", day)
	if err != nil {
		t.Fatalf("parse day %s: %v", day, err)
	}
	return schedule.ResolveLocal(d.Year(), d.Month(), d.Day(), hour, minute, loc).UTC()
}

func fixedRegimen() regimens.Regimen {
	return regimens.Regimen{
		ID:             "reg-1",
		AnimalID:       "an-1",
		MedicationID:   "med-1",
		MedicationName: "Amoxicilina",
		ScheduleType:   regimens.ScheduleFixed,
		TimesLocal:     []string{"08:00", "20:00"},
		CutoffMins:     240,
		Active:         true,
		StartDate:      time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func newFixture(regs []regimens.Regimen, admins []administrations.Administration) *Service {
	return NewService(
		&testAnimals{byID: map[string]animals.Animal{
			"an-1": {ID: "an-1", HouseholdID: "hh-1", Name: "Firulais", Status: animals.StatusActive},
		}},
		&testRegimens{regs: regs},
		&testHouseholds{byID: map[string]households.Household{
			"hh-1": {ID: "hh-1", Timezone: "America/New_York"},
		}},
		&testAdmins{admins: admins},
	)
}

func slotAdmin(t *testing.T, day string, hour, minute, index int, status administrations.Status) administrations.Administration {
	t.Helper()
	target := nyTarget(t, day, hour, minute)
	return administrations.Administration{
		ID:             "adm-" + day + "-" + string(rune('0'+index)),
		AnimalID:       "an-1",
		RegimenID:      "reg-1",
		RecordedAt:     target,
		ScheduledFor:   &target,
		Status:         status,
		IdempotencyKey: administrations.SlotKey("an-1", "reg-1", day, index),
	}
}

// -------------------------
// Tests
// -------------------------

func TestCompliance_CountsStatusesAndMissed(t *testing.T) {
	admins := []administrations.Administration{
		slotAdmin(t, "2025-06-10", 8, 0, 0, administrations.StatusOnTime),
		slotAdmin(t, "2025-06-10", 20, 0, 1, administrations.StatusLate),
		slotAdmin(t, "2025-06-11", 8, 0, 0, administrations.StatusVeryLate),
		// El slot 2025-06-11 20:00 queda sin registro => MISSED.
	}
	svc := newFixture([]regimens.Regimen{fixedRegimen()}, admins)
	// Mucho después del rango: todas las ventanas cerradas.
	svc.now = func() time.Time { return nyTarget(t, "2025-06-20", 12, 0) }

	out, err := svc.Compliance(context.Background(), "an-1", "2025-06-10", "2025-06-11")
	if err != nil {
		t.Fatalf("compliance: %v", err)
	}
	if out.AnimalName != "Firulais" || len(out.Regimens) != 1 {
		t.Fatalf("unexpected report: %+v", out)
	}

	rc := out.Regimens[0]
	if rc.Expected != 4 || rc.OnTime != 1 || rc.Late != 1 || rc.VeryLate != 1 || rc.Missed != 1 {
		t.Fatalf("unexpected counts: %+v", rc)
	}
	if rc.Pending != 0 {
		t.Fatalf("closed windows must not leave pending: %+v", rc)
	}
	if rc.CompliancePct != 75 {
		t.Fatalf("expected 75%%, got %v", rc.CompliancePct)
	}
}

func TestCompliance_OpenWindowIsPendingNotMissed(t *testing.T) {
	admins := []administrations.Administration{
		slotAdmin(t, "2025-06-10", 8, 0, 0, administrations.StatusOnTime),
	}
	svc := newFixture([]regimens.Regimen{fixedRegimen()}, admins)
	// 20:30 local del mismo día: la ventana del slot de las 20:00 sigue abierta
	// (cierra a las 04:00 del día siguiente con cutoff de 240).
	svc.now = func() time.Time { return nyTarget(t, "2025-06-10", 20, 30) }

	out, err := svc.Compliance(context.Background(), "an-1", "2025-06-10", "2025-06-10")
	if err != nil {
		t.Fatalf("compliance: %v", err)
	}

	rc := out.Regimens[0]
	if rc.Expected != 1 || rc.OnTime != 1 || rc.Missed != 0 || rc.Pending != 1 {
		t.Fatalf("unexpected counts: %+v", rc)
	}
	if rc.CompliancePct != 100 {
		t.Fatalf("pending must not punish the pct, got %v", rc.CompliancePct)
	}
}

func TestCompliance_PRNCountedByLocalDay(t *testing.T) {
	prn := regimens.Regimen{
		ID:             "reg-prn",
		AnimalID:       "an-1",
		MedicationID:   "med-2",
		MedicationName: "Gabapentina",
		ScheduleType:   regimens.SchedulePRN,
		CutoffMins:     240,
		Active:         true,
		StartDate:      time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	admins := []administrations.Administration{
		{
			ID: "adm-prn-1", AnimalID: "an-1", RegimenID: "reg-prn",
			RecordedAt: nyTarget(t, "2025-06-10", 14, 0),
			Status:     administrations.StatusPRN, IdempotencyKey: "k1",
		},
		{
			// Fuera del rango: no cuenta.
			ID: "adm-prn-2", AnimalID: "an-1", RegimenID: "reg-prn",
			RecordedAt: nyTarget(t, "2025-06-12", 9, 0),
			Status:     administrations.StatusPRN, IdempotencyKey: "k2",
		},
	}
	svc := newFixture([]regimens.Regimen{prn}, admins)
	svc.now = func() time.Time { return nyTarget(t, "2025-06-20", 12, 0) }

	out, err := svc.Compliance(context.Background(), "an-1", "2025-06-10", "2025-06-11")
	if err != nil {
		t.Fatalf("compliance: %v", err)
	}
	if len(out.Regimens) != 1 {
		t.Fatalf("expected 1 regimen, got %d", len(out.Regimens))
	}

	rc := out.Regimens[0]
	if rc.PRNCount != 1 || rc.Expected != 0 || rc.CompliancePct != 0 {
		t.Fatalf("unexpected PRN counts: %+v", rc)
	}
}

func TestCompliance_VoidedRecordsBecomeMissed(t *testing.T) {
	voidedAt := nyTarget(t, "2025-06-10", 9, 0)
	a := slotAdmin(t, "2025-06-10", 8, 0, 0, administrations.StatusOnTime)
	a.VoidedBy = "owner-1"
	a.VoidedAt = &voidedAt

	reg := fixedRegimen()
	reg.TimesLocal = []string{"08:00"}

	svc := newFixture([]regimens.Regimen{reg}, []administrations.Administration{a})
	svc.now = func() time.Time { return nyTarget(t, "2025-06-20", 12, 0) }

	out, err := svc.Compliance(context.Background(), "an-1", "2025-06-10", "2025-06-10")
	if err != nil {
		t.Fatalf("compliance: %v", err)
	}

	rc := out.Regimens[0]
	if rc.Expected != 1 || rc.OnTime != 0 || rc.Missed != 1 {
		t.Fatalf("voided record must not count as taken: %+v", rc)
	}
}

func TestCompliance_DeactivatedRegimenKeepsHistory(t *testing.T) {
	// Desactivado al mediodía del 2025-06-10: el slot de la mañana ya existió,
	// el de la noche no llegó a generarse.
	reg := fixedRegimen()
	reg.Active = false
	reg.UpdatedAt = nyTarget(t, "2025-06-10", 12, 0)

	admins := []administrations.Administration{
		slotAdmin(t, "2025-06-10", 8, 0, 0, administrations.StatusOnTime),
	}
	svc := newFixture([]regimens.Regimen{reg}, admins)
	svc.now = func() time.Time { return nyTarget(t, "2025-06-20", 12, 0) }

	out, err := svc.Compliance(context.Background(), "an-1", "2025-06-10", "2025-06-11")
	if err != nil {
		t.Fatalf("compliance: %v", err)
	}
	if len(out.Regimens) != 1 {
		t.Fatalf("deactivated regimen must keep its history, got %d regimens", len(out.Regimens))
	}

	rc := out.Regimens[0]
	if rc.Expected != 1 || rc.OnTime != 1 || rc.Missed != 0 || rc.Pending != 0 {
		t.Fatalf("slots after deactivation must not count: %+v", rc)
	}
	if rc.CompliancePct != 100 {
		t.Fatalf("expected 100%%, got %v", rc.CompliancePct)
	}
}

func TestCompliance_SkipsIdleRegimensAndSortsByName(t *testing.T) {
	idle := fixedRegimen()
	idle.ID = "reg-idle"
	idle.MedicationName = "Zyrtec"
	idle.Active = true
	// Régimen que terminó antes del rango: sin slots, sin PRN => fuera del reporte.
	end := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	idle.EndDate = &end

	second := fixedRegimen()
	second.ID = "reg-2"
	second.MedicationID = "med-3"
	second.MedicationName = "Zentonil"
	second.TimesLocal = []string{"09:00"}

	svc := newFixture([]regimens.Regimen{idle, second, fixedRegimen()}, nil)
	svc.now = func() time.Time { return nyTarget(t, "2025-06-20", 12, 0) }

	out, err := svc.Compliance(context.Background(), "an-1", "2025-06-10", "2025-06-10")
	if err != nil {
		t.Fatalf("compliance: %v", err)
	}
	if len(out.Regimens) != 2 {
		t.Fatalf("idle regimen must be skipped, got %d regimens", len(out.Regimens))
	}
	if out.Regimens[0].MedicationName != "Amoxicilina" || out.Regimens[1].MedicationName != "Zentonil" {
		t.Fatalf("not sorted by name: %s, %s", out.Regimens[0].MedicationName, out.Regimens[1].MedicationName)
	}
}

func TestCompliance_RejectsBadRange(t *testing.T) {
	svc := newFixture([]regimens.Regimen{fixedRegimen()}, nil)

	if _, err := svc.Compliance(context.Background(), "an-1", "2025-06-10", "2025-06-09"); err == nil {
		t.Fatal("to before from must fail")
	}
	if _, err := svc.Compliance(context.Background(), "an-1", "junio", "2025-06-10"); err == nil {
		t.Fatal("bad date must fail")
	}
}
