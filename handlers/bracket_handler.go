package handlers

import (
	"net/http"

	"github.com/openbracket/tournament-engine/services"
)

type BracketHandler struct {
	bracketService  services.BracketService
	resolverService services.SlotResolverService
}

func NewBracketHandler(bs services.BracketService, rs services.SlotResolverService) *BracketHandler {
	return &BracketHandler{bracketService: bs, resolverService: rs}
}

// GenerateHandler handles POST /stages/{stageID}/bracket.
func (h *BracketHandler) GenerateHandler(w http.ResponseWriter, r *http.Request) {
	stageID, err := getIDFromURL(r, "stageID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var opts services.GenerateBracketOptions
	if err := readJSON(w, r, &opts); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	view, err := h.bracketService.Generate(r.Context(), stageID, opts)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"bracket": view}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetViewHandler handles GET /stages/{stageID}/bracket.
func (h *BracketHandler) GetViewHandler(w http.ResponseWriter, r *http.Request) {
	stageID, err := getIDFromURL(r, "stageID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	view, err := h.bracketService.GetView(r.Context(), stageID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"bracket": view}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ResolveHandler handles POST /stages/{stageID}/bracket/resolve.
func (h *BracketHandler) ResolveHandler(w http.ResponseWriter, r *http.Request) {
	stageID, err := getIDFromURL(r, "stageID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	report, err := h.resolverService.ResolveStage(r.Context(), stageID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"report": report}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// PublishHandler handles POST /stages/{stageID}/bracket/publish.
func (h *BracketHandler) PublishHandler(w http.ResponseWriter, r *http.Request) {
	stageID, err := getIDFromURL(r, "stageID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	location, err := h.bracketService.Publish(r.Context(), stageID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"location": location}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UnpublishHandler handles DELETE /stages/{stageID}/bracket/publish.
func (h *BracketHandler) UnpublishHandler(w http.ResponseWriter, r *http.Request) {
	stageID, err := getIDFromURL(r, "stageID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.bracketService.Unpublish(r.Context(), stageID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
