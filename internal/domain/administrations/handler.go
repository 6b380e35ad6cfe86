package administrations

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pet-med-tracker/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/animals/{animalID}/administrations", func(ar chi.Router) {
		ar.Post("/", recordHandler(svc))
		ar.Get("/", listHandler(svc))
	})

	r.Route("/administrations/{adminID}", func(ar chi.Router) {
		ar.Get("/", getHandler(svc))
		ar.Patch("/", amendHandler(svc))
		ar.Post("/cosign", coSignHandler(svc))
		ar.Post("/void", voidHandler(svc))
	})
}

type recordRequest struct {
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

type amendRequest struct {
	Notes         *string   `json:"notes"`
	Site          *string   `json:"site"`
	ConditionTags *[]string `json:"condition_tags"`
}

type coSignResponse struct {
	UserID   string    `json:"user_id"`
	SignedAt time.Time `json:"signed_at"`
}

type overrideResponse struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason,omitempty"`
}

type administrationResponse struct {
	ID                string            `json:"id"`
	AnimalID          string            `json:"animal_id"`
	RegimenID         string            `json:"regimen_id"`
	CaregiverUserID   string            `json:"caregiver_user_id"`
	RecordedAt        time.Time         `json:"recorded_at"`
	ScheduledFor      *time.Time        `json:"scheduled_for,omitempty"`
	Status            Status            `json:"status"`
	IdempotencyKey    string            `json:"idempotency_key"`
	InventorySourceID string            `json:"inventory_source_id,omitempty"`
	Notes             string            `json:"notes,omitempty"`
	Site              string            `json:"site,omitempty"`
	ConditionTags     []string          `json:"condition_tags,omitempty"`
	RequiresCoSign    bool              `json:"requires_cosign"`
	CoSign            *coSignResponse   `json:"cosign,omitempty"`
	Override          *overrideResponse `json:"override,omitempty"`
	VoidedBy          string            `json:"voided_by,omitempty"`
	VoidedAt          *time.Time        `json:"voided_at,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// recordHandler godoc
// @Summary      Registrar una dosis aplicada
// @Description  Registra una administración con clave idempotente; los duplicados devuelven el registro existente.
// @Tags         administrations
// @Accept       json
// @Produce      json
// @Param        animalID  path  string         true  "ID del animal"
// @Param        request   body  recordRequest  true  "Datos de la dosis"
// @Success      201  {object}  administrationResponse
// @Failure      400  {string}  string
// @Failure      401  {string}  string
// @Failure      403  {string}  string
// @Failure      409  {string}  string  "Fuente de inventario bloqueada (vencida o de otro medicamento)"
// @Router       /animals/{animalID}/administrations [post]
// @Security     BearerAuth
func recordHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req recordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		in := RecordInput{
			AnimalID:          chi.URLParam(r, "animalID"),
			RegimenID:         req.RegimenID,
			ScheduledFor:      req.ScheduledFor,
			ClientNonce:       req.ClientNonce,
			InventorySourceID: req.InventorySourceID,
			Notes:             req.Notes,
			Site:              req.Site,
			ConditionTags:     req.ConditionTags,
			AllowOverride:     req.AllowOverride,
			OverrideReason:    req.OverrideReason,
		}
		if req.AdministeredAt != nil {
			in.AdministeredAt = *req.AdministeredAt
		}

		a, err := svc.Record(r.Context(), claims.UserID, in)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		// Un duplicado devuelve el mismo registro con el mismo 201: para el
		// cliente (retry, replay offline) el resultado es indistinguible.
		writeJSON(w, http.StatusCreated, toAdministrationResponse(a))
	}
}

func listHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		animalID := chi.URLParam(r, "animalID")
		q := r.URL.Query()

		var filter ListFilter
		if v := q.Get("from"); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				http.Error(w, "from must be RFC3339", http.StatusBadRequest)
				return
			}
			filter.From = &t
		}
		if v := q.Get("to"); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				http.Error(w, "to must be RFC3339", http.StatusBadRequest)
				return
			}
			filter.To = &t
		}
		if v := q.Get("status"); v != "" {
			filter.Status = Status(strings.ToUpper(v))
		}
		filter.IncludeVoided = q.Get("include_voided") == "true"
		if v := q.Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				filter.Limit = n
			}
		}

		list, err := svc.ListByAnimal(r.Context(), animalID, filter)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]administrationResponse, 0, len(list))
		for _, a := range list {
			out = append(out, toAdministrationResponse(a))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := svc.GetByID(r.Context(), chi.URLParam(r, "adminID"))
		if err != nil {
			http.Error(w, "administration not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, toAdministrationResponse(a))
	}
}

func amendHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req amendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		a, err := svc.Amend(r.Context(), chi.URLParam(r, "adminID"), claims.UserID, AmendInput{
			Notes:         req.Notes,
			Site:          req.Site,
			ConditionTags: req.ConditionTags,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAdministrationResponse(a))
	}
}

// coSignHandler godoc
// @Summary      Co-firmar una administración de alto riesgo
// @Tags         administrations
// @Produce      json
// @Param        adminID  path  string  true  "ID de la administración"
// @Success      200  {object}  administrationResponse
// @Failure      400  {string}  string
// @Failure      403  {string}  string
// @Failure      404  {string}  string
// @Failure      422  {string}  string
// @Router       /administrations/{adminID}/cosign [post]
// @Security     BearerAuth
func coSignHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		a, err := svc.AttachCoSign(r.Context(), chi.URLParam(r, "adminID"), claims.UserID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAdministrationResponse(a))
	}
}

func voidHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		a, err := svc.Void(r.Context(), chi.URLParam(r, "adminID"), claims.UserID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAdministrationResponse(a))
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBlocked):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "administration not found", http.StatusNotFound)
	case errors.Is(err, ErrBadState), errors.Is(err, ErrEditWindowClosed):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toAdministrationResponse(a Administration) administrationResponse {
	out := administrationResponse{
		ID:                a.ID,
		AnimalID:          a.AnimalID,
		RegimenID:         a.RegimenID,
		CaregiverUserID:   a.CaregiverUserID,
		RecordedAt:        a.RecordedAt,
		ScheduledFor:      a.ScheduledFor,
		Status:            a.Status,
		IdempotencyKey:    a.IdempotencyKey,
		InventorySourceID: a.InventorySourceID,
		Notes:             a.Notes,
		Site:              a.Site,
		ConditionTags:     a.ConditionTags,
		RequiresCoSign:    a.RequiresCoSign,
		VoidedBy:          a.VoidedBy,
		VoidedAt:          a.VoidedAt,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
	if a.CoSign != nil {
		out.CoSign = &coSignResponse{UserID: a.CoSign.UserID, SignedAt: a.CoSign.SignedAt}
	}
	if a.Override != nil {
		out.Override = &overrideResponse{UserID: a.Override.UserID, Reason: a.Override.Reason}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
