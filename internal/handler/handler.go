// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/Shivanand-hulikatti/campus-events/internal/auth"
	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/registration"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository"
	"github.com/Shivanand-hulikatti/campus-events/internal/roster"
	"github.com/Shivanand-hulikatti/campus-events/internal/service"
	"github.com/go-chi/chi/v5"
)

// EventHandler holds all HTTP handlers for the events API.
type EventHandler struct {
	svc    *service.EventService
	issuer *auth.Issuer
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc *service.EventService, issuer *auth.Issuer) *EventHandler {
	return &EventHandler{svc: svc, issuer: issuer}
}

// EventView is an event together with its computed availability.
type EventView struct {
	model.Event
	Remaining *int                      `json:"remaining"`
	Deadline  registration.DeadlineInfo `json:"deadline"`
}

// FormView is the empty roster a client renders for registration.
type FormView struct {
	TeamSize   model.TeamSize        `json:"team_size"`
	MinMembers int                   `json:"min_members"`
	MaxMembers int                   `json:"max_members"`
	Members    []model.MemberDetails `json:"members"`
}

// RosterView is the organizer listing of an event's registrations.
type RosterView struct {
	TeamMode bool               `json:"team_mode"`
	Stats    roster.Stats       `json:"stats"`
	Entries  []roster.Entry     `json:"entries,omitempty"`
	Teams    []roster.TeamGroup `json:"teams,omitempty"`
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

func (h *EventHandler) view(e *model.Event) EventView {
	return EventView{
		Event:     *e,
		Remaining: e.Remaining(),
		Deadline:  registration.Urgency(e.RegistrationDeadline, h.svc.Now()),
	}
}

// writeServiceError maps domain errors to status codes. Anything
// unrecognised is reported with fallback.
func writeServiceError(w http.ResponseWriter, err error, fallback int) {
	var (
		verr *registration.ValidationError
		serr *service.StoreWriteError
		rerr *service.StoreReadError
	)
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, repository.ErrCapacityExceeded):
		writeError(w, http.StatusConflict, "event does not have enough remaining capacity")
	case errors.Is(err, repository.ErrAlreadyRegistered):
		writeError(w, http.StatusConflict, "you are already registered for this event")
	case errors.Is(err, repository.ErrDeadlinePassed):
		writeError(w, http.StatusUnprocessableEntity, "registration deadline has passed")
	case errors.Is(err, repository.ErrEventNotOpen):
		writeError(w, http.StatusUnprocessableEntity, "event is not open for registration")
	case errors.As(err, &serr):
		writeError(w, http.StatusBadGateway, serr.Error())
	case errors.As(err, &rerr):
		log.Printf("store read failed: %v", rerr)
		writeError(w, http.StatusServiceUnavailable, rerr.Op+": store unavailable")
	default:
		writeError(w, fallback, err.Error())
	}
}

// ─── Public handlers ──────────────────────────────────────────────────────────

// ListEvents handles GET /events
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListEvents(r.Context())
	if err != nil {
		writeServiceError(w, err, http.StatusInternalServerError)
		return
	}

	views := make([]EventView, 0, len(events))
	for i := range events {
		views = append(views, h.view(&events[i]))
	}
	writeJSON(w, http.StatusOK, views)
}

// GetEvent handles GET /events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, h.view(event))
}

// GetForm handles GET /events/{id}/form
// Returns the initial member roster for the event's team policy.
func (h *EventHandler) GetForm(w http.ResponseWriter, r *http.Request) {
	form, err := h.svc.Form(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, http.StatusInternalServerError)
		return
	}
	min, max := form.Limits()
	writeJSON(w, http.StatusOK, FormView{
		TeamSize:   form.TeamSize(),
		MinMembers: min,
		MaxMembers: max,
		Members:    form.Members(),
	})
}

// Register handles POST /events/{id}/register
func (h *EventHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	reg, err := h.svc.Register(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, reg)
}

// VerifyHost handles POST /host/verify
// Exchanges the organizer passcode for a bearer token.
func (h *EventHandler) VerifyHost(w http.ResponseWriter, r *http.Request) {
	var req model.VerifyHostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	token, expires, err := h.issuer.Verify(req.Passcode)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidPasscode) {
			writeError(w, http.StatusUnauthorized, "invalid passcode")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	writeJSON(w, http.StatusOK, model.TokenResponse{Token: token, ExpiresAt: expires})
}

// ─── Organizer handlers ───────────────────────────────────────────────────────

// CreateEvent handles POST /events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), req)
	if err != nil {
		writeServiceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, h.view(event))
}

// UpdateEventStatus handles PATCH /events/{id}/status
func (h *EventHandler) UpdateEventStatus(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateEventStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.UpdateEventStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeServiceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.view(event))
}

// ListRegistrations handles GET /events/{id}/registrations
// Optional query parameters: status=<registration status>, group=team.
func (h *EventHandler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	ros, err := h.svc.Roster(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, http.StatusInternalServerError)
		return
	}
	if !applyFilter(w, r, ros) {
		return
	}

	out := RosterView{TeamMode: ros.TeamMode(), Stats: ros.ComputeStats()}
	if r.URL.Query().Get("group") == "team" {
		out.Teams = ros.GroupByTeam()
	} else {
		out.Entries = ros.View()
	}
	writeJSON(w, http.StatusOK, out)
}

// RegistrationStats handles GET /events/{id}/registrations/stats
func (h *EventHandler) RegistrationStats(w http.ResponseWriter, r *http.Request) {
	ros, err := h.svc.Roster(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, ros.ComputeStats())
}

// ExportRegistrations handles GET /events/{id}/registrations/export
// Streams the (optionally status-filtered) roster as a CSV download.
func (h *EventHandler) ExportRegistrations(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ros, err := h.svc.Roster(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, http.StatusInternalServerError)
		return
	}
	if !applyFilter(w, r, ros) {
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="registrations-%s.csv"`, id))
	w.WriteHeader(http.StatusOK)
	_ = ros.ExportCSV(w)
}

// UpdateRegistrationStatus handles PATCH /events/{id}/registrations/{regID}/status
func (h *EventHandler) UpdateRegistrationStatus(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	ros, err := h.svc.UpdateRegistrationStatus(r.Context(),
		chi.URLParam(r, "id"), chi.URLParam(r, "regID"), req.Status)
	if err != nil {
		writeServiceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, RosterView{
		TeamMode: ros.TeamMode(),
		Stats:    ros.ComputeStats(),
		Entries:  ros.Entries(),
	})
}

func applyFilter(w http.ResponseWriter, r *http.Request, ros *roster.Roster) bool {
	status := model.RegistrationStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("status %q is not supported", status))
		return false
	}
	ros.SetFilter(status)
	return true
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
