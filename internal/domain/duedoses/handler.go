package duedoses

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"pet-med-tracker/internal/domain/households"
	"pet-med-tracker/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, householdsSvc *households.Service) {
	r.Get("/households/{householdID}/due-doses", listDueHandler(svc, householdsSvc))
}

type itemResponse struct {
	RegimenID       string     `json:"regimen_id"`
	AnimalID        string     `json:"animal_id"`
	AnimalName      string     `json:"animal_name"`
	MedicationID    string     `json:"medication_id"`
	MedicationName  string     `json:"medication_name"`
	Dose            string     `json:"dose"`
	DoseUnit        string     `json:"dose_unit"`
	HighRisk        bool       `json:"high_risk"`
	Section         Section    `json:"section"`
	Target          *time.Time `json:"target,omitempty"`
	Cutoff          *time.Time `json:"cutoff,omitempty"`
	SlotIndex       int        `json:"slot_index"`
	LocalDay        string     `json:"local_day,omitempty"`
	IdempotencyKey  string     `json:"idempotency_key"`
	IsOverdue       bool       `json:"is_overdue"`
	MinutesUntilDue int        `json:"minutes_until_due"`
}

type groupedResponse struct {
	Due   []itemResponse `json:"due"`
	Later []itemResponse `json:"later"`
	PRN   []itemResponse `json:"prn"`
}

// listDueHandler godoc
// @Summary      Dosis pendientes del hogar
// @Description  Clasifica los regímenes activos en due / later / prn para el momento actual (o para ?now=RFC3339).
// @Tags         due-doses
// @Produce      json
// @Param        householdID  path   string  true   "ID del hogar"
// @Param        animal_id    query  string  false  "Limitar a un animal"
// @Param        now          query  string  false  "Instante de evaluación (RFC3339); por defecto el reloj del servidor"
// @Success      200  {object}  groupedResponse
// @Failure      400  {string}  string
// @Failure      401  {string}  string
// @Failure      403  {string}  string
// @Router       /households/{householdID}/due-doses [get]
// @Security     BearerAuth
func listDueHandler(svc *Service, householdsSvc *households.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		householdID := chi.URLParam(r, "householdID")

		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if _, err := householdsSvc.CurrentMembership(r.Context(), householdID, claims.UserID); err != nil {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		animalID := strings.TrimSpace(r.URL.Query().Get("animal_id"))

		var now time.Time
		if v := strings.TrimSpace(r.URL.Query().Get("now")); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				http.Error(w, "now must be RFC3339", http.StatusBadRequest)
				return
			}
			now = t
		}

		grouped, err := svc.ListDue(r.Context(), householdID, animalID, now)
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, toGroupedResponse(grouped))
	}
}

func toGroupedResponse(g Grouped) groupedResponse {
	out := groupedResponse{
		Due:   make([]itemResponse, 0, len(g.Due)),
		Later: make([]itemResponse, 0, len(g.Later)),
		PRN:   make([]itemResponse, 0, len(g.PRN)),
	}
	for _, it := range g.Due {
		out.Due = append(out.Due, toItemResponse(it))
	}
	for _, it := range g.Later {
		out.Later = append(out.Later, toItemResponse(it))
	}
	for _, it := range g.PRN {
		out.PRN = append(out.PRN, toItemResponse(it))
	}
	return out
}

func toItemResponse(it Item) itemResponse {
	return itemResponse{
		RegimenID:       it.RegimenID,
		AnimalID:        it.AnimalID,
		AnimalName:      it.AnimalName,
		MedicationID:    it.MedicationID,
		MedicationName:  it.MedicationName,
		Dose:            it.Dose,
		DoseUnit:        it.DoseUnit,
		HighRisk:        it.HighRisk,
		Section:         it.Section,
		Target:          it.Target,
		Cutoff:          it.Cutoff,
		SlotIndex:       it.SlotIndex,
		LocalDay:        it.LocalDay,
		IdempotencyKey:  it.IdempotencyKey,
		IsOverdue:       it.IsOverdue,
		MinutesUntilDue: it.MinutesUntilDue,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
