package handlers

import (
	"fmt"
	"net/http"

	"github.com/Dosada05/mahjong-scorebook/services"
)

type GameHandler struct {
	sessionService services.SessionService
}

func NewGameHandler(ss services.SessionService) *GameHandler {
	return &GameHandler{
		sessionService: ss,
	}
}

type startGameInput struct {
	PlayerCount int      `json:"player_count"`
	Players     []string `json:"players"`
}

type recordRoundInput struct {
	Points []int `json:"points"`
}

type recordChipsInput struct {
	Chips []int `json:"chips"`
}

func (h *GameHandler) StartGame(w http.ResponseWriter, r *http.Request) {
	var input startGameInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	game, err := h.sessionService.StartGame(r.Context(), input.PlayerCount, input.Players)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"game": game}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListGames отдаёт незавершённые (по умолчанию) или завершённые игры.
func (h *GameHandler) ListGames(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")

	var (
		games interface{}
		err   error
	)
	switch status {
	case "", "unfinished":
		games, err = h.sessionService.ListUnfinished(r.Context())
	case "finished":
		games, err = h.sessionService.ListFinished(r.Context())
	default:
		badRequestResponse(w, r, fmt.Errorf("unknown status filter %q", status))
		return
	}
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"games": games}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *GameHandler) GetCurrentGame(w http.ResponseWriter, r *http.Request) {
	detail, err := h.sessionService.GetCurrentGame(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"game": detail}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	detail, err := h.sessionService.GetGame(r.Context(), gameID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"game": detail}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *GameHandler) DeleteGame(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.sessionService.DeleteGame(r.Context(), gameID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *GameHandler) ClearAll(w http.ResponseWriter, r *http.Request) {
	if err := h.sessionService.ClearAll(r.Context()); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *GameHandler) SuspendGame(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	game, err := h.sessionService.SuspendGame(r.Context(), gameID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"game": game}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *GameHandler) FinishGame(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	detail, err := h.sessionService.FinishGame(r.Context(), gameID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"game": detail}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *GameHandler) AbandonGame(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.sessionService.AbandonGame(r.Context(), gameID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *GameHandler) RecordRound(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input recordRoundInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	round, err := h.sessionService.RecordRound(r.Context(), gameID, input.Points)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"round": round}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *GameHandler) DeleteRound(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	roundIndex, err := getIDFromURL(r, "roundIndex")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.sessionService.DeleteRound(r.Context(), gameID, roundIndex); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *GameHandler) RecordChips(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input recordChipsInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	event, err := h.sessionService.RecordChips(r.Context(), gameID, input.Chips)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"chip_event": event}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeleteChips ожидает ?ids=1,2,3 (отдельные записи или всё событие).
func (h *GameHandler) DeleteChips(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	ids, err := parseIDList(r.URL.Query().Get("ids"))
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.sessionService.DeleteChips(r.Context(), gameID, ids); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
