package regimens

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"pet-med-tracker/internal/domain/animals"
	"pet-med-tracker/internal/domain/households"
	"pet-med-tracker/internal/domain/medications"
	"pet-med-tracker/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, animalsSvc *animals.Service, medsSvc *medications.Service, householdsSvc *households.Service) {
	r.Route("/animals/{animalID}/regimens", func(rr chi.Router) {
		rr.Post("/", createRegimenHandler(svc, animalsSvc, medsSvc, householdsSvc))
		rr.Get("/", listRegimensHandler(svc, animalsSvc, householdsSvc))
	})

	r.Route("/regimens/{regimenID}", func(rr chi.Router) {
		rr.Get("/", getRegimenHandler(svc, animalsSvc, householdsSvc))
		rr.Patch("/", updateRegimenHandler(svc, animalsSvc, householdsSvc))
		rr.Post("/deactivate", deactivateRegimenHandler(svc, animalsSvc, householdsSvc))
	})
}

type taperStepPayload struct {
	StartDate  string   `json:"start_date"` // YYYY-MM-DD
	EndDate    string   `json:"end_date"`   // YYYY-MM-DD
	TimesLocal []string `json:"times_local"`
	Dose       string   `json:"dose"`
}

type createRegimenRequest struct {
	MedicationID string `json:"medication_id"`

	ScheduleType  string             `json:"schedule_type"` // FIXED|PRN|INTERVAL|TAPER
	TimesLocal    []string           `json:"times_local"`
	IntervalHours int                `json:"interval_hours"`
	TaperSteps    []taperStepPayload `json:"taper_steps"`

	Dose         string `json:"dose"`
	DoseUnit     string `json:"dose_unit"`
	Instructions string `json:"instructions"`

	CutoffMins int  `json:"cutoff_mins"`
	HighRisk   bool `json:"high_risk"`

	StartDate string `json:"start_date"` // YYYY-MM-DD opcional
	EndDate   string `json:"end_date"`   // YYYY-MM-DD opcional
}

type regimenResponse struct {
	ID             string             `json:"id"`
	AnimalID       string             `json:"animal_id"`
	MedicationID   string             `json:"medication_id"`
	MedicationName string             `json:"medication_name"`
	ScheduleType   ScheduleType       `json:"schedule_type"`
	TimesLocal     []string           `json:"times_local,omitempty"`
	IntervalHours  int                `json:"interval_hours,omitempty"`
	TaperSteps     []taperStepPayload `json:"taper_steps,omitempty"`
	Dose           string             `json:"dose"`
	DoseUnit       string             `json:"dose_unit"`
	Instructions   string             `json:"instructions"`
	CutoffMins     int                `json:"cutoff_mins"`
	HighRisk       bool               `json:"high_risk"`
	Active         bool               `json:"active"`
	StartDate      time.Time          `json:"start_date"`
	EndDate        *time.Time         `json:"end_date,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

type updateRegimenRequest struct {
	TimesLocal   *[]string `json:"times_local"`
	CutoffMins   *int      `json:"cutoff_mins"`
	HighRisk     *bool     `json:"high_risk"`
	Dose         *string   `json:"dose"`
	DoseUnit     *string   `json:"dose_unit"`
	Instructions *string   `json:"instructions"`
	EndDate      *string   `json:"end_date"` // YYYY-MM-DD
}

// authorizeAnimal resuelve el animal y exige membership en su hogar.
func authorizeAnimal(w http.ResponseWriter, r *http.Request, animalsSvc *animals.Service, householdsSvc *households.Service, animalID string, writeAccess bool) (animals.Animal, bool) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok || strings.TrimSpace(claims.UserID) == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return animals.Animal{}, false
	}

	a, err := animalsSvc.GetByID(r.Context(), animalID)
	if err != nil {
		http.Error(w, "animal not found", http.StatusNotFound)
		return animals.Animal{}, false
	}

	m, err := householdsSvc.CurrentMembership(r.Context(), a.HouseholdID, claims.UserID)
	if err != nil {
		http.Error(w, "forbidden", http.StatusForbidden)
		return animals.Animal{}, false
	}
	if writeAccess && !households.CanWrite(m) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return animals.Animal{}, false
	}

	return a, true
}

// createRegimenHandler godoc
// @Summary Crear régimen de medicación
// @Description Crea una pauta para el animal. FIXED exige times_local; PRN no lleva horarios; INTERVAL exige interval_hours; TAPER exige taper_steps. Los horarios se interpretan en la zona del animal.
// @Tags regimens
// @Accept json
// @Produce json
// @Param animalID path string true "ID del animal"
// @Param payload body createRegimenRequest true "Datos del régimen"
// @Success 201 {object} regimenResponse
// @Failure 400 {string} string "invalid json / reglas de negocio"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "animal not found"
// @Router /animals/{animalID}/regimens [post]
func createRegimenHandler(svc *Service, animalsSvc *animals.Service, medsSvc *medications.Service, householdsSvc *households.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		animalID := chi.URLParam(r, "animalID")
		if _, ok := authorizeAnimal(w, r, animalsSvc, householdsSvc, animalID, true); !ok {
			return
		}

		var req createRegimenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		med, err := medsSvc.GetByID(r.Context(), req.MedicationID)
		if err != nil {
			http.Error(w, "medication not found", http.StatusNotFound)
			return
		}

		var start time.Time
		if strings.TrimSpace(req.StartDate) != "" {
			start, err = time.Parse("2006-01-02", req.StartDate)
			if err != nil {
				http.Error(w, "start_date must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
		}
		var end *time.Time
		if strings.TrimSpace(req.EndDate) != "" {
			t, err := time.Parse("2006-01-02", req.EndDate)
			if err != nil {
				http.Error(w, "end_date must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			end = &t
		}

		reg, err := svc.Create(r.Context(), animalID, CreateInput{
			MedicationID:   med.ID,
			MedicationName: medications.DisplayName(med),
			ScheduleType:   req.ScheduleType,
			TimesLocal:     req.TimesLocal,
			IntervalHours:  req.IntervalHours,
			TaperSteps:     fromTaperPayload(req.TaperSteps),
			Dose:           req.Dose,
			DoseUnit:       req.DoseUnit,
			Instructions:   req.Instructions,
			CutoffMins:     req.CutoffMins,
			HighRisk:       req.HighRisk,
			StartDate:      start,
			EndDate:        end,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		writeJSON(w, http.StatusCreated, toRegimenResponse(reg))
	}
}

func listRegimensHandler(svc *Service, animalsSvc *animals.Service, householdsSvc *households.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		animalID := chi.URLParam(r, "animalID")
		if _, ok := authorizeAnimal(w, r, animalsSvc, householdsSvc, animalID, false); !ok {
			return
		}

		items, err := svc.ListByAnimal(r.Context(), animalID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]regimenResponse, 0, len(items))
		for _, reg := range items {
			out = append(out, toRegimenResponse(reg))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getRegimenHandler(svc *Service, animalsSvc *animals.Service, householdsSvc *households.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reg, err := svc.GetByID(r.Context(), chi.URLParam(r, "regimenID"))
		if err != nil {
			http.Error(w, "regimen not found", http.StatusNotFound)
			return
		}
		if _, ok := authorizeAnimal(w, r, animalsSvc, householdsSvc, reg.AnimalID, false); !ok {
			return
		}

		writeJSON(w, http.StatusOK, toRegimenResponse(reg))
	}
}

func updateRegimenHandler(svc *Service, animalsSvc *animals.Service, householdsSvc *households.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		regimenID := chi.URLParam(r, "regimenID")
		current, err := svc.GetByID(r.Context(), regimenID)
		if err != nil {
			http.Error(w, "regimen not found", http.StatusNotFound)
			return
		}
		if _, ok := authorizeAnimal(w, r, animalsSvc, householdsSvc, current.AnimalID, true); !ok {
			return
		}

		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()

		var req updateRegimenRequest
		if err := dec.Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		var end *time.Time
		if req.EndDate != nil {
			t, err := time.Parse("2006-01-02", *req.EndDate)
			if err != nil {
				http.Error(w, "end_date must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			end = &t
		}

		reg, err := svc.Update(r.Context(), regimenID, UpdateInput{
			TimesLocal:   req.TimesLocal,
			CutoffMins:   req.CutoffMins,
			HighRisk:     req.HighRisk,
			Dose:         req.Dose,
			DoseUnit:     req.DoseUnit,
			Instructions: req.Instructions,
			EndDate:      end,
		})
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidInput):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, ErrNotFound):
				http.Error(w, "regimen not found", http.StatusNotFound)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusOK, toRegimenResponse(reg))
	}
}

func deactivateRegimenHandler(svc *Service, animalsSvc *animals.Service, householdsSvc *households.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		regimenID := chi.URLParam(r, "regimenID")
		current, err := svc.GetByID(r.Context(), regimenID)
		if err != nil {
			http.Error(w, "regimen not found", http.StatusNotFound)
			return
		}
		if _, ok := authorizeAnimal(w, r, animalsSvc, householdsSvc, current.AnimalID, true); !ok {
			return
		}

		reg, err := svc.Deactivate(r.Context(), regimenID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, toRegimenResponse(reg))
	}
}

func fromTaperPayload(steps []taperStepPayload) []TaperStep {
	if len(steps) == 0 {
		return nil
	}
	out := make([]TaperStep, 0, len(steps))
	for _, st := range steps {
		out = append(out, TaperStep{
			StartDate:  st.StartDate,
			EndDate:    st.EndDate,
			TimesLocal: st.TimesLocal,
			Dose:       st.Dose,
		})
	}
	return out
}

func toTaperPayload(steps []TaperStep) []taperStepPayload {
	if len(steps) == 0 {
		return nil
	}
	out := make([]taperStepPayload, 0, len(steps))
	for _, st := range steps {
		out = append(out, taperStepPayload{
			StartDate:  st.StartDate,
			EndDate:    st.EndDate,
			TimesLocal: st.TimesLocal,
			Dose:       st.Dose,
		})
	}
	return out
}

func toRegimenResponse(reg Regimen) regimenResponse {
	return regimenResponse{
		ID:             reg.ID,
		AnimalID:       reg.AnimalID,
		MedicationID:   reg.MedicationID,
		MedicationName: reg.MedicationName,
		ScheduleType:   reg.ScheduleType,
		TimesLocal:     reg.TimesLocal,
		IntervalHours:  reg.IntervalHours,
		TaperSteps:     toTaperPayload(reg.TaperSteps),
		Dose:           reg.Dose,
		DoseUnit:       reg.DoseUnit,
		Instructions:   reg.Instructions,
		CutoffMins:     reg.CutoffMins,
		HighRisk:       reg.HighRisk,
		Active:         reg.Active,
		StartDate:      reg.StartDate,
		EndDate:        reg.EndDate,
		CreatedAt:      reg.CreatedAt,
		UpdatedAt:      reg.UpdatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
