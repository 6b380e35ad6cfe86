package syncqueue

import (
	"encoding/json"
	"net/http"
	"strings"

	"pet-med-tracker/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, queue *Queue, direct Dispatcher) {
	r.Post("/sync/commands", enqueueHandler(queue))
	r.Post("/sync/replay", replayHandler(queue, direct))
	r.Get("/sync/pending", pendingHandler(queue))
}

type enqueueRequest struct {
	Type           CommandType     `json:"type"`
	Payload        json.RawMessage `json:"payload"`
	IdempotencyKey string          `json:"idempotency_key"`
}

type commandResponse struct {
	ID             string          `json:"id"`
	Type           CommandType     `json:"type"`
	Payload        json.RawMessage `json:"payload"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	Attempts       int             `json:"attempts"`
	LastError      string          `json:"last_error,omitempty"`
}

type replayResponse struct {
	Applied int               `json:"applied"`
	Failed  int               `json:"failed"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func enqueueHandler(queue *Queue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req enqueueRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Type != CommandRecordAdministration {
			http.Error(w, "unknown command type", http.StatusBadRequest)
			return
		}
		if len(req.Payload) == 0 {
			http.Error(w, "payload required", http.StatusBadRequest)
			return
		}

		cmd, created := queue.Enqueue(Command{
			Type:           req.Type,
			Payload:        req.Payload,
			UserID:         claims.UserID,
			IdempotencyKey: strings.TrimSpace(req.IdempotencyKey),
		})

		status := http.StatusCreated
		if !created {
			status = http.StatusOK
		}
		writeJSON(w, status, toCommandResponse(cmd))
	}
}

func replayHandler(queue *Queue, direct Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		res := queue.ReplayAll(r.Context(), direct)
		writeJSON(w, http.StatusOK, replayResponse{
			Applied: res.Applied,
			Failed:  res.Failed,
			Errors:  res.Errors,
		})
	}
}

func pendingHandler(queue *Queue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		pending := queue.Pending()
		out := make([]commandResponse, 0, len(pending))
		for _, cmd := range pending {
			out = append(out, toCommandResponse(cmd))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func toCommandResponse(cmd Command) commandResponse {
	return commandResponse{
		ID:             cmd.ID,
		Type:           cmd.Type,
		Payload:        cmd.Payload,
		IdempotencyKey: cmd.IdempotencyKey,
		Attempts:       cmd.Attempts,
		LastError:      cmd.LastError,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
