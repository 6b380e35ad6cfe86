package animals

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"pet-med-tracker/internal/domain/households"
	"pet-med-tracker/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, householdsSvc *households.Service) {
	r.Route("/households/{householdID}/animals", func(ar chi.Router) {
		ar.Post("/", createAnimalHandler(svc, householdsSvc))
		ar.Get("/", listAnimalsHandler(svc, householdsSvc))
	})

	r.Route("/animals/{animalID}", func(ar chi.Router) {
		ar.Get("/", getAnimalHandler(svc, householdsSvc))
		ar.Patch("/", updateAnimalHandler(svc, householdsSvc))
		ar.Post("/archive", archiveAnimalHandler(svc, householdsSvc))
	})
}

type createAnimalRequest struct {
	Name      string   `json:"name"`
	Species   string   `json:"species"`
	Breed     string   `json:"breed"`
	Sex       string   `json:"sex"`
	BirthDate string   `json:"birth_date"` // YYYY-MM-DD opcional
	WeightKg  *float64 `json:"weight_kg"`
	Timezone  string   `json:"timezone"` // IANA opcional; vacío => zona del hogar
	Notes     string   `json:"notes"`
}

type animalResponse struct {
	ID          string       `json:"id"`
	HouseholdID string       `json:"household_id"`
	Name        string       `json:"name"`
	Species     Species      `json:"species"`
	Breed       string       `json:"breed"`
	Sex         Sex          `json:"sex"`
	BirthDate   *time.Time   `json:"birth_date,omitempty"`
	WeightKg    *float64     `json:"weight_kg,omitempty"`
	Timezone    string       `json:"timezone,omitempty"`
	Notes       string       `json:"notes"`
	Status      AnimalStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

type updateAnimalRequest struct {
	Name     *string  `json:"name"`
	Breed    *string  `json:"breed"`
	Sex      *string  `json:"sex"`
	WeightKg *float64 `json:"weight_kg"`
	Timezone *string  `json:"timezone"`
	Notes    *string  `json:"notes"`
}

// requireMembership resuelve claims + membership activa del hogar.
// Si writeAccess es true exige rol owner|caregiver.
func requireMembership(w http.ResponseWriter, r *http.Request, householdsSvc *households.Service, householdID string, writeAccess bool) (households.Membership, bool) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok || strings.TrimSpace(claims.UserID) == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return households.Membership{}, false
	}

	m, err := householdsSvc.CurrentMembership(r.Context(), householdID, claims.UserID)
	if err != nil {
		http.Error(w, "forbidden", http.StatusForbidden)
		return households.Membership{}, false
	}
	if writeAccess && !households.CanWrite(m) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return households.Membership{}, false
	}
	return m, true
}

func createAnimalHandler(svc *Service, householdsSvc *households.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		householdID := chi.URLParam(r, "householdID")
		if _, ok := requireMembership(w, r, householdsSvc, householdID, true); !ok {
			return
		}

		var req createAnimalRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		var bd *time.Time
		if strings.TrimSpace(req.BirthDate) != "" {
			t, err := time.Parse("2006-01-02", req.BirthDate)
			if err != nil {
				http.Error(w, "birth_date must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			bd = &t
		}

		a, err := svc.Create(r.Context(), householdID, CreateInput{
			Name:      req.Name,
			Species:   req.Species,
			Breed:     req.Breed,
			Sex:       req.Sex,
			BirthDate: bd,
			WeightKg:  req.WeightKg,
			Timezone:  req.Timezone,
			Notes:     req.Notes,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		writeJSON(w, http.StatusCreated, toAnimalResponse(a))
	}
}

func listAnimalsHandler(svc *Service, householdsSvc *households.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		householdID := chi.URLParam(r, "householdID")
		if _, ok := requireMembership(w, r, householdsSvc, householdID, false); !ok {
			return
		}

		items, err := svc.ListByHousehold(r.Context(), householdID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]animalResponse, 0, len(items))
		for _, a := range items {
			out = append(out, toAnimalResponse(a))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getAnimalHandler(svc *Service, householdsSvc *households.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := svc.GetByID(r.Context(), chi.URLParam(r, "animalID"))
		if err != nil {
			http.Error(w, "animal not found", http.StatusNotFound)
			return
		}
		if _, ok := requireMembership(w, r, householdsSvc, a.HouseholdID, false); !ok {
			return
		}

		writeJSON(w, http.StatusOK, toAnimalResponse(a))
	}
}

func updateAnimalHandler(svc *Service, householdsSvc *households.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		animalID := chi.URLParam(r, "animalID")
		current, err := svc.GetByID(r.Context(), animalID)
		if err != nil {
			http.Error(w, "animal not found", http.StatusNotFound)
			return
		}
		if _, ok := requireMembership(w, r, householdsSvc, current.HouseholdID, true); !ok {
			return
		}

		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()

		var req updateAnimalRequest
		if err := dec.Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		updated, err := svc.UpdateProfile(r.Context(), animalID, UpdateProfileInput{
			Name:     req.Name,
			Breed:    req.Breed,
			Sex:      req.Sex,
			WeightKg: req.WeightKg,
			Timezone: req.Timezone,
			Notes:    req.Notes,
		})
		if err != nil {
			switch err {
			case ErrInvalidInput:
				http.Error(w, err.Error(), http.StatusBadRequest)
			case ErrNotFound:
				http.Error(w, "animal not found", http.StatusNotFound)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusOK, toAnimalResponse(updated))
	}
}

func archiveAnimalHandler(svc *Service, householdsSvc *households.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		animalID := chi.URLParam(r, "animalID")
		current, err := svc.GetByID(r.Context(), animalID)
		if err != nil {
			http.Error(w, "animal not found", http.StatusNotFound)
			return
		}
		if _, ok := requireMembership(w, r, householdsSvc, current.HouseholdID, true); !ok {
			return
		}

		a, err := svc.Archive(r.Context(), animalID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, toAnimalResponse(a))
	}
}

func toAnimalResponse(a Animal) animalResponse {
	return animalResponse{
		ID:          a.ID,
		HouseholdID: a.HouseholdID,
		Name:        a.Name,
		Species:     a.Species,
		Breed:       a.Breed,
		Sex:         a.Sex,
		BirthDate:   a.BirthDate,
		WeightKg:    a.WeightKg,
		Timezone:    a.Timezone,
		Notes:       a.Notes,
		Status:      a.Status,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
