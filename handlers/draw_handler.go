package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/openbracket/tournament-engine/models"
	"github.com/openbracket/tournament-engine/repositories"
	"github.com/openbracket/tournament-engine/services"
)

type DrawHandler struct {
	drawService services.DrawService
}

func NewDrawHandler(ds services.DrawService) *DrawHandler {
	return &DrawHandler{drawService: ds}
}

// CreateHandler handles POST /draw-sessions.
func (h *DrawHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	var input services.CreateDrawInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	session, err := h.drawService.Create(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"session": session}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetHandler handles GET /draw-sessions/{sessionID}.
func (h *DrawHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	publicID := chi.URLParam(r, "sessionID")
	if publicID == "" {
		badRequestResponse(w, r, errors.New("missing sessionID URL parameter"))
		return
	}

	session, err := h.drawService.Get(r.Context(), publicID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"session": session}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler handles GET /draw-sessions.
func (h *DrawHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	var filter repositories.DrawSessionFilter
	query := r.URL.Query()

	if raw := query.Get("tournament_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id < 1 {
			badRequestResponse(w, r, errors.New("invalid tournament_id query parameter"))
			return
		}
		filter.TournamentID = &id
	}
	if raw := query.Get("stage_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id < 1 {
			badRequestResponse(w, r, errors.New("invalid stage_id query parameter"))
			return
		}
		filter.StageID = &id
	}
	if raw := query.Get("type"); raw != "" {
		t := models.DrawSessionType(raw)
		filter.Type = &t
	}
	if raw := query.Get("status"); raw != "" {
		s := models.DrawSessionStatus(raw)
		filter.Status = &s
	}

	sessions, err := h.drawService.List(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"sessions": sessions}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateHandler handles PATCH /draw-sessions/{sessionID}.
func (h *DrawHandler) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	publicID := chi.URLParam(r, "sessionID")
	if publicID == "" {
		badRequestResponse(w, r, errors.New("missing sessionID URL parameter"))
		return
	}

	var input struct {
		Payload *string `json:"payload"`
		Result  *string `json:"result"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	session, err := h.drawService.Update(r.Context(), publicID, input.Payload, input.Result)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"session": session}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ApplyHandler handles POST /draw-sessions/{sessionID}/apply.
func (h *DrawHandler) ApplyHandler(w http.ResponseWriter, r *http.Request) {
	publicID := chi.URLParam(r, "sessionID")
	if publicID == "" {
		badRequestResponse(w, r, errors.New("missing sessionID URL parameter"))
		return
	}

	session, err := h.drawService.Apply(r.Context(), publicID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"session": session}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
