package administrations

import (
	"context"
	"errors"
	"testing"
	"time"

	"pet-med-tracker/internal/domain/animals"
	"pet-med-tracker/internal/domain/households"
	"pet-med-tracker/internal/domain/inventory"
	"pet-med-tracker/internal/domain/regimens"
	"pet-med-tracker/internal/domain/schedule"
)

// -------------------------
// Fakes (in-memory)
// -------------------------

var errFakeNotFound = errors.New("fake: not found")

type testRepo struct {
	byID  map[string]Administration
	byKey map[string]string
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Administration{}, byKey: map[string]string{}}
}

func (r *testRepo) CreateIfAbsent(ctx context.Context, a Administration) (Administration, bool, error) {
	if id, ok := r.byKey[a.IdempotencyKey]; ok {
		return r.byID[id], false, nil
	}
	r.byID[a.ID] = a
	r.byKey[a.IdempotencyKey] = a.ID
	return a, true, nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (Administration, error) {
	a, ok := r.byID[id]
	if !ok {
		return Administration{}, errFakeNotFound
	}
	return a, nil
}

func (r *testRepo) GetByKey(ctx context.Context, key string) (Administration, error) {
	id, ok := r.byKey[key]
	if !ok {
		return Administration{}, errFakeNotFound
	}
	return r.byID[id], nil
}

func (r *testRepo) Update(ctx context.Context, a Administration) error {
	if _, ok := r.byID[a.ID]; !ok {
		return errFakeNotFound
	}
	r.byID[a.ID] = a
	return nil
}

func (r *testRepo) ListByAnimal(ctx context.Context, animalID string, filter ListFilter) ([]Administration, error) {
	out := make([]Administration, 0)
	for _, a := range r.byID {
		if a.AnimalID == animalID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *testRepo) ExistingKeys(ctx context.Context, keys []string) (map[string]bool, error) {
	out := map[string]bool{}
	for _, k := range keys {
		if id, ok := r.byKey[k]; ok && !r.byID[id].Voided() {
			out[k] = true
		}
	}
	return out, nil
}

type testAnimals map[string]animals.Animal

func (t testAnimals) GetByID(ctx context.Context, id string) (animals.Animal, error) {
	a, ok := t[id]
	if !ok {
		return animals.Animal{}, errFakeNotFound
	}
	return a, nil
}

type testRegimens map[string]regimens.Regimen

func (t testRegimens) GetByID(ctx context.Context, id string) (regimens.Regimen, error) {
	r, ok := t[id]
	if !ok {
		return regimens.Regimen{}, errFakeNotFound
	}
	return r, nil
}

type testDirectory struct {
	households  map[string]households.Household
	memberships map[string]households.Membership // householdID+"|"+userID
}

func (t *testDirectory) CurrentMembership(ctx context.Context, householdID, userID string) (households.Membership, error) {
	m, ok := t.memberships[householdID+"|"+userID]
	if !ok {
		return households.Membership{}, errFakeNotFound
	}
	return m, nil
}

func (t *testDirectory) GetByID(ctx context.Context, householdID string) (households.Household, error) {
	h, ok := t.households[householdID]
	if !ok {
		return households.Household{}, errFakeNotFound
	}
	return h, nil
}

type testInventory struct {
	sources  map[string]inventory.Source
	consumed map[string]float64
}

func (t *testInventory) GetSource(ctx context.Context, id string) (inventory.Source, error) {
	s, ok := t.sources[id]
	if !ok {
		return inventory.Source{}, errFakeNotFound
	}
	return s, nil
}

func (t *testInventory) Consume(ctx context.Context, id string, units float64) error {
	t.consumed[id] += units
	return nil
}

type spyInvalidator struct {
	calls int
}

func (s *spyInvalidator) Invalidate(householdID, animalID string) { s.calls++ }

// -------------------------
// Fixture
// -------------------------

type fixture struct {
	svc       *Service
	repo      *testRepo
	inventory *testInventory
	spy       *spyInvalidator
	target    time.Time // slot 08:00 NY del 2025-06-10
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load tz: %v", err)
	}

	animalsSrc := testAnimals{
		"an-1": {ID: "an-1", HouseholdID: "hh-1", Name: "Milo", Status: animals.StatusActive},
	}
	regimensSrc := testRegimens{
		"reg-1": {
			ID: "reg-1", AnimalID: "an-1",
			MedicationID: "med-1", MedicationName: "Amoxicillin",
			ScheduleType: regimens.ScheduleFixed,
			TimesLocal:   []string{"08:00", "20:00"},
			CutoffMins:   240,
			Active:       true,
			StartDate:    time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		},
		"reg-prn": {
			ID: "reg-prn", AnimalID: "an-1",
			MedicationID: "med-2", MedicationName: "Gabapentin",
			ScheduleType: regimens.SchedulePRN,
			CutoffMins:   240,
			Active:       true,
			StartDate:    time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		},
		"reg-risky": {
			ID: "reg-risky", AnimalID: "an-1",
			MedicationID: "med-3", MedicationName: "Insulin",
			ScheduleType: regimens.ScheduleFixed,
			TimesLocal:   []string{"08:00"},
			CutoffMins:   240,
			HighRisk:     true,
			Active:       true,
			StartDate:    time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		},
	}
	directory := &testDirectory{
		households: map[string]households.Household{
			"hh-1": {ID: "hh-1", Name: "Casa", Timezone: "America/New_York"},
		},
		memberships: map[string]households.Membership{
			"hh-1|owner-1": {ID: "m-1", HouseholdID: "hh-1", UserID: "owner-1", Role: households.RoleOwner, Status: households.StatusActive},
			"hh-1|care-1":  {ID: "m-2", HouseholdID: "hh-1", UserID: "care-1", Role: households.RoleCaregiver, Status: households.StatusActive},
			"hh-1|view-1":  {ID: "m-3", HouseholdID: "hh-1", UserID: "view-1", Role: households.RoleViewer, Status: households.StatusActive},
		},
	}
	inv := &testInventory{
		sources: map[string]inventory.Source{
			"src-ok":      {ID: "src-ok", MedicationID: "med-1", UnitsRemaining: 10},
			"src-expired": {ID: "src-expired", MedicationID: "med-1", UnitsRemaining: 10, ExpiresAt: timePtr(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))},
			"src-wrong":   {ID: "src-wrong", MedicationID: "med-99", UnitsRemaining: 10},
		},
		consumed: map[string]float64{},
	}

	repo := newTestRepo()
	svc := NewService(repo, animalsSrc, regimensSrc, directory, inv)
	spy := &spyInvalidator{}
	svc.SetInvalidator(spy)

	target := schedule.ResolveLocal(2025, time.June, 10, 8, 0, ny).UTC()
	svc.now = func() time.Time { return target.Add(10 * time.Minute) }

	return &fixture{svc: svc, repo: repo, inventory: inv, spy: spy, target: target}
}

func timePtr(t time.Time) *time.Time { return &t }

// -------------------------
// Tests
// -------------------------

func TestRecord_ScheduledDose_OnTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Record(ctx, "owner-1", RecordInput{
		AnimalID:     "an-1",
		RegimenID:    "reg-1",
		ScheduledFor: &f.target,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if a.Status != StatusOnTime {
		t.Fatalf("expected ON_TIME, got %s", a.Status)
	}
	wantKey := SlotKey("an-1", "reg-1", "2025-06-10", 0)
	if a.IdempotencyKey != wantKey {
		t.Fatalf("expected slot key %s, got %s", wantKey, a.IdempotencyKey)
	}
	if a.ScheduledFor == nil || !a.ScheduledFor.Equal(f.target) {
		t.Fatalf("scheduled_for should be the matched slot target")
	}
	if f.spy.calls != 1 {
		t.Fatalf("expected 1 cache invalidation, got %d", f.spy.calls)
	}
}

func TestRecord_Duplicate_CollapsesToOneRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := RecordInput{AnimalID: "an-1", RegimenID: "reg-1", ScheduledFor: &f.target}

	first, err := f.svc.Record(ctx, "owner-1", in)
	if err != nil {
		t.Fatalf("first record: %v", err)
	}
	second, err := f.svc.Record(ctx, "care-1", in) // otro cuidador, mismo slot
	if err != nil {
		t.Fatalf("duplicate record must succeed: %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("duplicate must return the existing row: %s vs %s", first.ID, second.ID)
	}
	if len(f.repo.byID) != 1 {
		t.Fatalf("expected exactly 1 stored row, got %d", len(f.repo.byID))
	}
	// El duplicado no vuelve a invalidar el cache.
	if f.spy.calls != 1 {
		t.Fatalf("expected 1 invalidation, got %d", f.spy.calls)
	}
}

func TestRecord_PRN_RequiresNonce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Record(ctx, "owner-1", RecordInput{AnimalID: "an-1", RegimenID: "reg-prn"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("PRN without nonce must fail, got %v", err)
	}

	a, err := f.svc.Record(ctx, "owner-1", RecordInput{
		AnimalID: "an-1", RegimenID: "reg-prn", ClientNonce: "nonce-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Status != StatusPRN || a.ScheduledFor != nil {
		t.Fatalf("expected a PRN record without scheduled_for, got %s %v", a.Status, a.ScheduledFor)
	}

	// Mismo nonce = retry del mismo evento.
	again, err := f.svc.Record(ctx, "owner-1", RecordInput{
		AnimalID: "an-1", RegimenID: "reg-prn", ClientNonce: "nonce-1",
	})
	if err != nil || again.ID != a.ID {
		t.Fatalf("same nonce must collapse: err=%v ids=%s/%s", err, a.ID, again.ID)
	}

	// Nonce nuevo = toma nueva.
	other, err := f.svc.Record(ctx, "owner-1", RecordInput{
		AnimalID: "an-1", RegimenID: "reg-prn", ClientNonce: "nonce-2",
	})
	if err != nil || other.ID == a.ID {
		t.Fatalf("new nonce must create a new row: err=%v", err)
	}
}

func TestRecord_ViewerForbidden(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Record(context.Background(), "view-1", RecordInput{
		AnimalID: "an-1", RegimenID: "reg-1", ScheduledFor: &f.target,
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("viewer must not record, got %v", err)
	}
}

func TestRecord_UnmatchedSlotRejected(t *testing.T) {
	f := newFixture(t)

	bogus := f.target.Add(37 * time.Minute)
	_, err := f.svc.Record(context.Background(), "owner-1", RecordInput{
		AnimalID: "an-1", RegimenID: "reg-1", ScheduledFor: &bogus,
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("scheduled_for off-slot must fail, got %v", err)
	}
}

func TestRecord_ExpiredSource_BlocksUnlessOverride(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Record(ctx, "owner-1", RecordInput{
		AnimalID: "an-1", RegimenID: "reg-1", ScheduledFor: &f.target,
		InventorySourceID: "src-expired",
	})
	if !errors.Is(err, ErrBlocked) {
		t.Fatalf("expired source must block, got %v", err)
	}

	a, err := f.svc.Record(ctx, "owner-1", RecordInput{
		AnimalID: "an-1", RegimenID: "reg-1", ScheduledFor: &f.target,
		InventorySourceID: "src-expired",
		AllowOverride:     true,
		OverrideReason:    "vet approved",
	})
	if err != nil {
		t.Fatalf("override must succeed: %v", err)
	}
	if a.Override == nil || a.Override.UserID != "owner-1" || a.Override.Reason != "vet approved" {
		t.Fatalf("override must be audited, got %+v", a.Override)
	}
	if f.inventory.consumed["src-expired"] != 1 {
		t.Fatalf("override still consumes a unit, got %v", f.inventory.consumed)
	}
}

func TestRecord_WrongMedicationSource_Blocks(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Record(context.Background(), "owner-1", RecordInput{
		AnimalID: "an-1", RegimenID: "reg-1", ScheduledFor: &f.target,
		InventorySourceID: "src-wrong",
	})
	if !errors.Is(err, ErrBlocked) {
		t.Fatalf("wrong-medication source must block, got %v", err)
	}
}

func TestAttachCoSign(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Record(ctx, "care-1", RecordInput{
		AnimalID: "an-1", RegimenID: "reg-risky", ScheduledFor: &f.target,
	})
	if err != nil {
		t.Fatalf("record high-risk: %v", err)
	}
	if !a.RequiresCoSign || a.CoSign != nil {
		t.Fatalf("high-risk record must start with pending co-sign")
	}

	// El mismo cuidador no puede co-firmarse.
	if _, err := f.svc.AttachCoSign(ctx, a.ID, "care-1"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("self co-sign must fail, got %v", err)
	}

	signed, err := f.svc.AttachCoSign(ctx, a.ID, "owner-1")
	if err != nil {
		t.Fatalf("co-sign: %v", err)
	}
	if signed.CoSign == nil || signed.CoSign.UserID != "owner-1" {
		t.Fatalf("co-sign not persisted: %+v", signed.CoSign)
	}

	// Idempotente: la segunda firma devuelve la existente.
	again, err := f.svc.AttachCoSign(ctx, a.ID, "view-1")
	if err != nil {
		t.Fatalf("repeat co-sign: %v", err)
	}
	if again.CoSign.UserID != "owner-1" {
		t.Fatalf("repeat co-sign must not overwrite, got %s", again.CoSign.UserID)
	}
}

func TestAmend_OnlyWithinEditWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Record(ctx, "owner-1", RecordInput{
		AnimalID: "an-1", RegimenID: "reg-1", ScheduledFor: &f.target,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	notes := "gave with food"
	amended, err := f.svc.Amend(ctx, a.ID, "owner-1", AmendInput{Notes: &notes})
	if err != nil {
		t.Fatalf("amend within window: %v", err)
	}
	if amended.Notes != notes {
		t.Fatalf("notes not updated: %q", amended.Notes)
	}

	f.svc.now = func() time.Time { return a.RecordedAt.Add(EditWindow + time.Minute) }
	if _, err := f.svc.Amend(ctx, a.ID, "owner-1", AmendInput{Notes: &notes}); !errors.Is(err, ErrEditWindowClosed) {
		t.Fatalf("amend past window must fail, got %v", err)
	}
}

func TestVoid_SoftAndIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Record(ctx, "owner-1", RecordInput{
		AnimalID: "an-1", RegimenID: "reg-1", ScheduledFor: &f.target,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	voided, err := f.svc.Void(ctx, a.ID, "care-1")
	if err != nil {
		t.Fatalf("void: %v", err)
	}
	if !voided.Voided() || voided.VoidedBy != "care-1" {
		t.Fatalf("void not persisted: %+v", voided)
	}

	// La fila sigue existiendo (soft delete) pero fuera del índice de claves.
	keys, _ := f.repo.ExistingKeys(ctx, []string{a.IdempotencyKey})
	if keys[a.IdempotencyKey] {
		t.Fatal("voided record must not count as existing for the classifier")
	}

	again, err := f.svc.Void(ctx, a.ID, "owner-1")
	if err != nil {
		t.Fatalf("repeat void must be idempotent: %v", err)
	}
	if again.VoidedBy != "care-1" {
		t.Fatalf("repeat void must not overwrite audit, got %s", again.VoidedBy)
	}
}
