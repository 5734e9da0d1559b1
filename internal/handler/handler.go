package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Dan9191/credit-scoring/internal/integrations/bureau"
	"github.com/Dan9191/credit-scoring/internal/models"
	"github.com/Dan9191/credit-scoring/internal/repository"
	"github.com/Dan9191/credit-scoring/internal/service"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	svc *service.Service
	log *logrus.Logger
}

func NewHandler(svc *service.Service, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// NewRouter registers every route; all but /healthz go through auth
func NewRouter(h *Handler, auth mux.MiddlewareFunc) *mux.Router {
	r := mux.NewRouter()
	// Public routes
	r.HandleFunc("/healthz", h.Health).Methods("GET")

	// Protected routes
	api := r.PathPrefix("/").Subrouter()
	if auth != nil {
		api.Use(auth)
	}
	api.HandleFunc("/profiles/{id}/sync", h.SyncProfile).Methods("POST")
	api.HandleFunc("/profiles/{id}/schedule", h.SetSchedule).Methods("PUT")
	api.HandleFunc("/profiles/{id}/consent", h.ConfirmConsent).Methods("POST")
	api.HandleFunc("/profiles/{id}/consent", h.RevokeConsent).Methods("DELETE")
	api.HandleFunc("/credit-records/{hash}", h.GetCreditRecord).Methods("GET")
	api.HandleFunc("/credit-records/{hash}/report", h.GetCreditReport).Methods("GET")
	api.HandleFunc("/geo/assess", h.AssessGeo).Methods("POST")
	return r
}

// Health reports liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SyncProfile handles a manual credit sync
func (h *Handler) SyncProfile(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.SyncProfile(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

type scheduleRequest struct {
	Enabled   bool   `json:"enabled"`
	Frequency string `json:"frequency"`
}

// SetSchedule handles the owner's automatic sync settings
func (h *Handler) SetSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	sc, err := h.svc.SetSchedule(r.Context(), mux.Vars(r)["id"], req.Enabled, req.Frequency)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sc)
}

// ConfirmConsent handles auto-sync consent; the profile is synced right away
func (h *Handler) ConfirmConsent(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ConfirmConsent(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// RevokeConsent handles consent withdrawal
func (h *Handler) RevokeConsent(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RevokeConsent(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetCreditRecord returns a credit record as JSON
func (h *Handler) GetCreditRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.GetCreditRecord(r.Context(), mux.Vars(r)["hash"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

// GetCreditReport returns a credit record as the bureau XML report
func (h *Handler) GetCreditReport(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.GetCreditRecord(r.Context(), mux.Vars(r)["hash"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	body, err := bureau.RenderReport(rec)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		h.log.Errorf("Failed to write credit report: %v", err)
	}
}

type geoRequest struct {
	ProfileID string    `json:"profile_id"`
	CardID    string    `json:"card_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// AssessGeo handles a geo velocity check for a card transaction
func (h *Handler) AssessGeo(w http.ResponseWriter, r *http.Request) {
	var req geoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.CardID == "" || req.Timestamp.IsZero() {
		http.Error(w, "card_id and timestamp are required", http.StatusBadRequest)
		return
	}
	result, err := h.svc.AssessGeo(r.Context(), req.ProfileID, req.CardID, models.GeoSample{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError || status == http.StatusBadGateway {
		h.log.Errorf("Request failed: %v", err)
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrMissingIdentity), errors.Is(err, service.ErrLegacyIdentifier):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrInvalidFrequency):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrConcurrentUpdate):
		return http.StatusConflict
	case errors.Is(err, service.ErrUpstreamRead):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
