package syncqueue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

// -------------------------
// Fake dispatcher
// -------------------------

type fakeDispatcher struct {
	applied []Command
	// failKeys marca claves que fallan al aplicar.
	failKeys map[string]error
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, cmd Command) error {
	if err, ok := d.failKeys[cmd.IdempotencyKey]; ok {
		return err
	}
	d.applied = append(d.applied, cmd)
	return nil
}

func recordCmd(key, userID string) Command {
	payload, _ := json.Marshal(RecordPayload{AnimalID: "an-1", RegimenID: "reg-1", ClientNonce: key})
	return Command{
		Type:           CommandRecordAdministration,
		Payload:        payload,
		UserID:         userID,
		IdempotencyKey: key,
	}
}

// -------------------------
// Tests
// -------------------------

func TestEnqueue_DedupesByKey(t *testing.T) {
	q := NewQueue()

	first, added := q.Enqueue(recordCmd("k1", "user-1"))
	if !added || first.ID == "" {
		t.Fatalf("first enqueue must add and assign an ID: %+v", first)
	}

	dup, added := q.Enqueue(recordCmd("k1", "user-1"))
	if added {
		t.Fatal("same key must dedupe")
	}
	if dup.ID != first.ID {
		t.Fatalf("dedupe must return the existing command: %s vs %s", dup.ID, first.ID)
	}

	if _, added := q.Enqueue(recordCmd("k2", "user-1")); !added {
		t.Fatal("distinct key must enqueue")
	}
	if q.Len() != 2 {
		t.Fatalf("expected 2 pending, got %d", q.Len())
	}
}

func TestReplayAll_AppliesInOrder(t *testing.T) {
	q := NewQueue()
	q.Enqueue(recordCmd("k1", "user-1"))
	q.Enqueue(recordCmd("k2", "user-1"))
	q.Enqueue(recordCmd("k3", "user-2"))

	d := &fakeDispatcher{}
	res := q.ReplayAll(context.Background(), d)

	if res.Applied != 3 || res.Failed != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if q.Len() != 0 {
		t.Fatalf("queue must drain, got %d pending", q.Len())
	}

	wantKeys := []string{"k1", "k2", "k3"}
	for i, want := range wantKeys {
		if d.applied[i].IdempotencyKey != want {
			t.Fatalf("order broken at %d: got %s, want %s", i, d.applied[i].IdempotencyKey, want)
		}
	}
	if d.applied[0].Attempts != 1 || d.applied[0].LastTriedAt == nil {
		t.Fatalf("attempt accounting missing: %+v", d.applied[0])
	}
}

func TestReplayAll_FailuresStayQueued(t *testing.T) {
	q := NewQueue()
	q.Enqueue(recordCmd("k1", "user-1"))
	failing, _ := q.Enqueue(recordCmd("k2", "user-1"))
	q.Enqueue(recordCmd("k3", "user-1"))

	d := &fakeDispatcher{failKeys: map[string]error{"k2": errors.New("animal not found")}}
	res := q.ReplayAll(context.Background(), d)

	if res.Applied != 2 || res.Failed != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Errors[failing.ID] != "animal not found" {
		t.Fatalf("error not reported: %+v", res.Errors)
	}

	pending := q.Pending()
	if len(pending) != 1 || pending[0].IdempotencyKey != "k2" {
		t.Fatalf("failed command must stay queued: %+v", pending)
	}
	if pending[0].Attempts != 1 || pending[0].LastError != "animal not found" {
		t.Fatalf("attempt state not kept: %+v", pending[0])
	}

	// Segundo replay, sin el fallo: aplica y acumula intentos.
	d.failKeys = nil
	res = q.ReplayAll(context.Background(), d)
	if res.Applied != 1 || res.Failed != 0 || q.Len() != 0 {
		t.Fatalf("retry must drain: %+v, pending=%d", res, q.Len())
	}
	last := d.applied[len(d.applied)-1]
	if last.IdempotencyKey != "k2" || last.Attempts != 2 {
		t.Fatalf("retry must accumulate attempts: %+v", last)
	}
}

func TestReplayAll_FailedKeyStillDeduped(t *testing.T) {
	q := NewQueue()
	q.Enqueue(recordCmd("k1", "user-1"))

	d := &fakeDispatcher{failKeys: map[string]error{"k1": errors.New("boom")}}
	q.ReplayAll(context.Background(), d)

	// La clave sigue en cola: reencolar el mismo intento no duplica.
	if _, added := q.Enqueue(recordCmd("k1", "user-1")); added {
		t.Fatal("failed command's key must still dedupe")
	}
	if q.Len() != 1 {
		t.Fatalf("expected 1 pending, got %d", q.Len())
	}
}

func TestReplayAll_CancelledContextKeepsCommands(t *testing.T) {
	q := NewQueue()
	q.Enqueue(recordCmd("k1", "user-1"))
	q.Enqueue(recordCmd("k2", "user-1"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := &fakeDispatcher{}
	res := q.ReplayAll(ctx, d)

	if res.Applied != 0 || len(d.applied) != 0 {
		t.Fatalf("cancelled replay must not apply: %+v", res)
	}
	if q.Len() != 2 {
		t.Fatalf("commands must survive a cancelled replay, got %d", q.Len())
	}
}

func TestQueuedDispatcher_Enqueues(t *testing.T) {
	q := NewQueue()
	d := NewQueuedDispatcher(q)

	if err := d.Dispatch(context.Background(), recordCmd("k1", "user-1")); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if q.Len() != 1 {
		t.Fatalf("expected 1 pending, got %d", q.Len())
	}
}
