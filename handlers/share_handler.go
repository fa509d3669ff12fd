package handlers

import (
	"context"
	"net/http"

	"github.com/Dosada05/mahjong-scorebook/models"
)

// ShareService is the part of services.ShareService the handler needs.
type ShareService interface {
	Export(ctx context.Context, gameID int) (string, error)
	Import(ctx context.Context, code string) (*models.Game, error)
}

type ShareHandler struct {
	shareService ShareService
}

func NewShareHandler(ss ShareService) *ShareHandler {
	return &ShareHandler{
		shareService: ss,
	}
}

type importInput struct {
	Code string `json:"code"`
}

func (h *ShareHandler) Export(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	code, err := h.shareService.Export(r.Context(), gameID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"code": code}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ShareHandler) Import(w http.ResponseWriter, r *http.Request) {
	var input importInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	game, err := h.shareService.Import(r.Context(), input.Code)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"game": game}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
