package inventory

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pet-med-tracker/internal/domain/households"
	"pet-med-tracker/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, householdsSvc *households.Service) {
	r.Route("/households/{householdID}/inventory", func(ir chi.Router) {
		ir.Post("/", addItemHandler(svc, householdsSvc))
		ir.Get("/", listItemsHandler(svc, householdsSvc))
		ir.Get("/low-stock", lowStockHandler(svc, householdsSvc))
	})

	r.Patch("/inventory/{itemID}", adjustItemHandler(svc, householdsSvc))
}

type addItemRequest struct {
	MedicationID   string  `json:"medication_id"`
	Label          string  `json:"label"`
	UnitsRemaining float64 `json:"units_remaining"`
	ExpiresAt      string  `json:"expires_at"` // YYYY-MM-DD opcional
	OpenedAt       string  `json:"opened_at"`  // YYYY-MM-DD opcional
}

type itemResponse struct {
	ID             string     `json:"id"`
	HouseholdID    string     `json:"household_id"`
	MedicationID   string     `json:"medication_id"`
	Label          string     `json:"label"`
	UnitsRemaining float64    `json:"units_remaining"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	OpenedAt       *time.Time `json:"opened_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type adjustItemRequest struct {
	UnitsRemaining *float64 `json:"units_remaining"`
}

func requireMember(w http.ResponseWriter, r *http.Request, householdsSvc *households.Service, householdID string, writeAccess bool) bool {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok || strings.TrimSpace(claims.UserID) == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return false
	}
	m, err := householdsSvc.CurrentMembership(r.Context(), householdID, claims.UserID)
	if err != nil {
		http.Error(w, "forbidden", http.StatusForbidden)
		return false
	}
	if writeAccess && !households.CanWrite(m) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return false
	}
	return true
}

func addItemHandler(svc *Service, householdsSvc *households.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		householdID := chi.URLParam(r, "householdID")
		if !requireMember(w, r, householdsSvc, householdID, true) {
			return
		}

		var req addItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		var expires, opened *time.Time
		if strings.TrimSpace(req.ExpiresAt) != "" {
			t, err := time.Parse("2006-01-02", req.ExpiresAt)
			if err != nil {
				http.Error(w, "expires_at must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			expires = &t
		}
		if strings.TrimSpace(req.OpenedAt) != "" {
			t, err := time.Parse("2006-01-02", req.OpenedAt)
			if err != nil {
				http.Error(w, "opened_at must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			opened = &t
		}

		it, err := svc.Add(r.Context(), householdID, AddInput{
			MedicationID:   req.MedicationID,
			Label:          req.Label,
			UnitsRemaining: req.UnitsRemaining,
			ExpiresAt:      expires,
			OpenedAt:       opened,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		writeJSON(w, http.StatusCreated, toItemResponse(it))
	}
}

func listItemsHandler(svc *Service, householdsSvc *households.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		householdID := chi.URLParam(r, "householdID")
		if !requireMember(w, r, householdsSvc, householdID, false) {
			return
		}

		items, err := svc.ListByHousehold(r.Context(), householdID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]itemResponse, 0, len(items))
		for _, it := range items {
			out = append(out, toItemResponse(it))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func lowStockHandler(svc *Service, householdsSvc *households.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		householdID := chi.URLParam(r, "householdID")
		if !requireMember(w, r, householdsSvc, householdID, false) {
			return
		}

		threshold := 3.0
		if v := r.URL.Query().Get("threshold"); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
				threshold = f
			}
		}

		items, err := svc.LowStock(r.Context(), householdID, threshold)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]itemResponse, 0, len(items))
		for _, it := range items {
			out = append(out, toItemResponse(it))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func adjustItemHandler(svc *Service, householdsSvc *households.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID := chi.URLParam(r, "itemID")
		it, err := svc.GetByID(r.Context(), itemID)
		if err != nil {
			http.Error(w, "item not found", http.StatusNotFound)
			return
		}
		if !requireMember(w, r, householdsSvc, it.HouseholdID, true) {
			return
		}

		var req adjustItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UnitsRemaining == nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		updated, err := svc.Adjust(r.Context(), itemID, *req.UnitsRemaining)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		writeJSON(w, http.StatusOK, toItemResponse(updated))
	}
}

func toItemResponse(it Item) itemResponse {
	return itemResponse{
		ID:             it.ID,
		HouseholdID:    it.HouseholdID,
		MedicationID:   it.MedicationID,
		Label:          it.Label,
		UnitsRemaining: it.UnitsRemaining,
		ExpiresAt:      it.ExpiresAt,
		OpenedAt:       it.OpenedAt,
		CreatedAt:      it.CreatedAt,
		UpdatedAt:      it.UpdatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
