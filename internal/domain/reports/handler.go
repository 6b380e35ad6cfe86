package reports

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"pet-med-tracker/internal/domain/animals"
	"pet-med-tracker/internal/domain/households"
	"pet-med-tracker/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, animalsSvc *animals.Service, householdsSvc *households.Service) {
	r.Get("/households/{householdID}/animals/{animalID}/compliance", complianceHandler(svc, animalsSvc, householdsSvc))
}

type regimenComplianceResponse struct {
	RegimenID      string  `json:"regimen_id"`
	MedicationID   string  `json:"medication_id"`
	MedicationName string  `json:"medication_name"`
	Expected       int     `json:"expected"`
	OnTime         int     `json:"on_time"`
	Late           int     `json:"late"`
	VeryLate       int     `json:"very_late"`
	Missed         int     `json:"missed"`
	Pending        int     `json:"pending"`
	PRNCount       int     `json:"prn_count"`
	CompliancePct  float64 `json:"compliance_pct"`
}

type complianceResponse struct {
	AnimalID   string                      `json:"animal_id"`
	AnimalName string                      `json:"animal_name"`
	FromDay    string                      `json:"from_day"`
	ToDay      string                      `json:"to_day"`
	Regimens   []regimenComplianceResponse `json:"regimens"`
}

// complianceHandler godoc
// @Summary      Reporte de adherencia de un animal
// @Description  Cruza dosis esperadas contra registros entre dos días locales inclusive.
// @Tags         reports
// @Produce      json
// @Param        householdID  path   string  true  "ID del hogar"
// @Param        animalID     path   string  true  "ID del animal"
// @Param        from         query  string  true  "Día local inicial (YYYY-MM-DD)"
// @Param        to           query  string  true  "Día local final (YYYY-MM-DD)"
// @Success      200  {object}  complianceResponse
// @Failure      400  {string}  string
// @Failure      401  {string}  string
// @Failure      403  {string}  string
// @Router       /households/{householdID}/animals/{animalID}/compliance [get]
// @Security     BearerAuth
func complianceHandler(svc *Service, animalsSvc *animals.Service, householdsSvc *households.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		householdID := chi.URLParam(r, "householdID")
		animalID := chi.URLParam(r, "animalID")

		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if _, err := householdsSvc.CurrentMembership(r.Context(), householdID, claims.UserID); err != nil {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		owner, err := animalsSvc.HouseholdOf(r.Context(), animalID)
		if err != nil || owner != householdID {
			http.Error(w, "animal not found", http.StatusNotFound)
			return
		}

		fromDay := r.URL.Query().Get("from")
		toDay := r.URL.Query().Get("to")

		report, err := svc.Compliance(r.Context(), animalID, fromDay, toDay)
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, "from/to must be YYYY-MM-DD and from <= to", http.StatusBadRequest)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := complianceResponse{
			AnimalID:   report.AnimalID,
			AnimalName: report.AnimalName,
			FromDay:    report.FromDay,
			ToDay:      report.ToDay,
			Regimens:   make([]regimenComplianceResponse, 0, len(report.Regimens)),
		}
		for _, rc := range report.Regimens {
			out.Regimens = append(out.Regimens, regimenComplianceResponse{
				RegimenID:      rc.RegimenID,
				MedicationID:   rc.MedicationID,
				MedicationName: rc.MedicationName,
				Expected:       rc.Expected,
				OnTime:         rc.OnTime,
				Late:           rc.Late,
				VeryLate:       rc.VeryLate,
				Missed:         rc.Missed,
				Pending:        rc.Pending,
				PRNCount:       rc.PRNCount,
				CompliancePct:  rc.CompliancePct,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
