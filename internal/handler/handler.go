// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the station.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Shivanand-hulikatti/trainbot/internal/model"
	"github.com/Shivanand-hulikatti/trainbot/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// History reads closed trains back from the journal.
type History interface {
	List(ctx context.Context, limit int) ([]model.HistoryRecord, error)
}

// DepartureHandler holds the JSON handlers for the station API.
type DepartureHandler struct {
	station  *service.Station
	history  History
	validate *validator.Validate
}

// NewDepartureHandler constructs a DepartureHandler. history may be nil.
func NewDepartureHandler(station *service.Station, history History) *DepartureHandler {
	return &DepartureHandler{station: station, history: history, validate: validator.New()}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// statusFor maps a station failure to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrNotBoarded):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict), errors.Is(err, service.ErrAlreadyMember):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

// ListDepartures handles GET /departures
func (h *DepartureHandler) ListDepartures(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.station.Snapshot())
}

// StartDeparture handles POST /departures
func (h *DepartureHandler) StartDeparture(w http.ResponseWriter, r *http.Request) {
	var req model.StartRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.station.Start(r.Context(), req.Conductor, req.Destination, req.Category, req.Minutes)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, model.MessageResponse{Message: msg})
}

// JoinDeparture handles POST /departures/{destination}/passengers
func (h *DepartureHandler) JoinDeparture(w http.ResponseWriter, r *http.Request) {
	destination := chi.URLParam(r, "destination")

	var req model.JoinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.station.Join(r.Context(), req.Passenger, destination)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, model.MessageResponse{Message: msg})
}

// Disembark handles DELETE /passengers/{passenger}
func (h *DepartureHandler) Disembark(w http.ResponseWriter, r *http.Request) {
	msg, err := h.station.Leave(r.Context(), chi.URLParam(r, "passenger"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, model.MessageResponse{Message: msg})
}

// Whereabouts handles GET /passengers/{passenger}
func (h *DepartureHandler) Whereabouts(w http.ResponseWriter, r *http.Request) {
	msg, err := h.station.Whereabouts(r.Context(), chi.URLParam(r, "passenger"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, model.MessageResponse{Message: msg})
}

// ListHistory handles GET /history?limit=N
func (h *DepartureHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusServiceUnavailable, "departure history is disabled")
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	records, err := h.history.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list departure history")
		return
	}
	if records == nil {
		records = []model.HistoryRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
