package syncqueue

import (
	"encoding/json"
	"time"
)

// CommandType identifica qué operación encapsula un comando encolado.
type CommandType string

const (
	CommandRecordAdministration CommandType = "administration.record"
)

// Command es una operación diferida capturada offline. El payload viaja
// opaco; quien lo aplica es el dispatcher según el tipo. La clave idempotente
// es la misma del registro final, así que reaplicar un comando ya aplicado
// colapsa en el registro existente.
type Command struct {
	ID             string
	Type           CommandType
	Payload        json.RawMessage
	UserID         string
	IdempotencyKey string

	Attempts    int
	LastError   string
	EnqueuedAt  time.Time
	LastTriedAt *time.Time
}
