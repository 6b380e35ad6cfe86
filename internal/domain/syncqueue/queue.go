package syncqueue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Queue es la cola de comandos diferidos. FIFO, en memoria, con dedupe por
// clave idempotente: encolar dos veces el mismo intento deja un solo comando.
type Queue struct {
	mu      sync.Mutex
	pending []Command
	byKey   map[string]bool
	now     func() time.Time
}

func NewQueue() *Queue {
	return &Queue{
		byKey: make(map[string]bool),
		now:   time.Now,
	}
}

// Enqueue agrega un comando si su clave no está ya en la cola.
// Devuelve el comando encolado (o el existente) y si se agregó.
func (q *Queue) Enqueue(cmd Command) (Command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if cmd.IdempotencyKey != "" && q.byKey[cmd.IdempotencyKey] {
		for _, existing := range q.pending {
			if existing.IdempotencyKey == cmd.IdempotencyKey {
				return existing, false
			}
		}
	}

	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}
	cmd.EnqueuedAt = q.now()
	q.pending = append(q.pending, cmd)
	if cmd.IdempotencyKey != "" {
		q.byKey[cmd.IdempotencyKey] = true
	}
	return cmd, true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *Queue) Pending() []Command {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Command, len(q.pending))
	copy(out, q.pending)
	return out
}

// ReplayResult resume un intento de drenado.
type ReplayResult struct {
	Applied int
	Failed  int
	// Errors mapea ID de comando a su último error.
	Errors map[string]string
}

// ReplayAll drena la cola en orden FIFO aplicando cada comando con el
// dispatcher. Los que fallan quedan en la cola con Attempts incrementado;
// replays posteriores los reintentan. Un comando ya aplicado en el servidor
// sale como éxito porque el recorder colapsa por clave.
func (q *Queue) ReplayAll(ctx context.Context, d Dispatcher) ReplayResult {
	q.mu.Lock()
	batch := q.pending
	q.pending = nil
	q.mu.Unlock()

	res := ReplayResult{Errors: make(map[string]string)}
	var remaining []Command

	for _, cmd := range batch {
		if err := ctx.Err(); err != nil {
			remaining = append(remaining, cmd)
			continue
		}

		now := q.now()
		cmd.Attempts++
		cmd.LastTriedAt = &now

		if err := d.Dispatch(ctx, cmd); err != nil {
			cmd.LastError = err.Error()
			res.Failed++
			res.Errors[cmd.ID] = err.Error()
			remaining = append(remaining, cmd)
			continue
		}

		cmd.LastError = ""
		res.Applied++
	}

	q.mu.Lock()
	// Los fallidos vuelven al frente, antes de lo encolado durante el drenado.
	q.pending = append(remaining, q.pending...)
	rebuilt := make(map[string]bool, len(q.pending))
	for _, cmd := range q.pending {
		if cmd.IdempotencyKey != "" {
			rebuilt[cmd.IdempotencyKey] = true
		}
	}
	q.byKey = rebuilt
	q.mu.Unlock()

	return res
}
