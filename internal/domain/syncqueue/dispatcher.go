package syncqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pet-med-tracker/internal/domain/administrations"
)

// Dispatcher aplica un comando diferido contra el dominio.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd Command) error
}

// RecordPayload es el cuerpo serializado de un comando
// "administration.record". Espeja el input del recorder.
type RecordPayload struct {
	AnimalID          string     `json:"animal_id"`
	RegimenID         string     `json:"regimen_id"`
	AdministeredAt    *time.Time `json:"administered_at"`
	ScheduledFor      *time.Time `json:"scheduled_for"`
	ClientNonce       string     `json:"client_nonce"`
	InventorySourceID string     `json:"inventory_source_id"`
	Notes             string     `json:"notes"`
	Site              string     `json:"site"`
	ConditionTags     []string   `json:"condition_tags"`
	AllowOverride     bool       `json:"allow_override"`
	OverrideReason    string     `json:"override_reason"`
}

// DirectDispatcher aplica comandos de inmediato vía el recorder. Reaplicar
// un comando ya aplicado es éxito: el recorder colapsa por clave idempotente.
type DirectDispatcher struct {
	recorder *administrations.Service
}

func NewDirectDispatcher(recorder *administrations.Service) *DirectDispatcher {
	return &DirectDispatcher{recorder: recorder}
}

func (d *DirectDispatcher) Dispatch(ctx context.Context, cmd Command) error {
	switch cmd.Type {
	case CommandRecordAdministration:
		var p RecordPayload
		if err := json.Unmarshal(cmd.Payload, &p); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		in := administrations.RecordInput{
			AnimalID:          p.AnimalID,
			RegimenID:         p.RegimenID,
			ScheduledFor:      p.ScheduledFor,
			ClientNonce:       p.ClientNonce,
			InventorySourceID: p.InventorySourceID,
			Notes:             p.Notes,
			Site:              p.Site,
			ConditionTags:     p.ConditionTags,
			AllowOverride:     p.AllowOverride,
			OverrideReason:    p.OverrideReason,
		}
		if p.AdministeredAt != nil {
			in.AdministeredAt = *p.AdministeredAt
		}
		_, err := d.recorder.Record(ctx, cmd.UserID, in)
		return err
	default:
		return fmt.Errorf("unknown command type %q", cmd.Type)
	}
}

// QueuedDispatcher difiere la aplicación: encola y deja que un replay
// posterior (o el endpoint de sync) drene contra el dispatcher directo.
type QueuedDispatcher struct {
	queue *Queue
}

func NewQueuedDispatcher(queue *Queue) *QueuedDispatcher {
	return &QueuedDispatcher{queue: queue}
}

func (d *QueuedDispatcher) Dispatch(_ context.Context, cmd Command) error {
	d.queue.Enqueue(cmd)
	return nil
}
