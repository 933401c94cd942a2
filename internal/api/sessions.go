package api

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/dbchat/dbchat/internal/chat"
)

type askRequest struct {
	Question string `json:"question"`
}

func handleCreateSession(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Chat == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "CHAT_NOT_CONFIGURED", "chat service is not configured", false, nil)
		return
	}
	session := deps.Chat.CreateSession(ownerFromRequest(r))
	writeJSON(w, http.StatusCreated, map[string]any{
		"session_id": session.ID,
		"created_at": session.CreatedAt,
	})
}

func handleListTurns(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Chat == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "CHAT_NOT_CONFIGURED", "chat service is not configured", false, nil)
		return
	}
	sessionID := r.PathValue("session")
	turns, err := deps.Chat.History(sessionID, ownerFromRequest(r))
	if err != nil {
		writeChatError(deps, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"turns":      turns,
	})
}

func handleAsk(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Chat == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "CHAT_NOT_CONFIGURED", "chat service is not configured", false, nil)
		return
	}
	var req askRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid question request body", false, map[string]any{"details": err.Error()})
		return
	}

	turn, err := deps.Chat.Ask(r.Context(), r.PathValue("session"), ownerFromRequest(r), req.Question)
	if err != nil {
		writeChatError(deps, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, turn)
}

func handleTurnChart(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Chat == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "CHAT_NOT_CONFIGURED", "chat service is not configured", false, nil)
		return
	}
	index, err := strconv.Atoi(r.PathValue("turn"))
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_TURN", "turn must be an integer index", false, map[string]any{"turn": r.PathValue("turn")})
		return
	}

	var page bytes.Buffer
	if err := deps.Chat.RenderTurnChart(&page, r.PathValue("session"), ownerFromRequest(r), index); err != nil {
		writeChatError(deps, w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = page.WriteTo(w)
}

func writeChatError(deps Dependencies, w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, chat.ErrSessionNotFound):
		writeError(ctx, w, http.StatusNotFound, "SESSION_NOT_FOUND", err.Error(), false, map[string]any{"session_id": r.PathValue("session")})
	case errors.Is(err, chat.ErrTurnNotFound):
		writeError(ctx, w, http.StatusNotFound, "TURN_NOT_FOUND", err.Error(), false, map[string]any{"turn": r.PathValue("turn")})
	case errors.Is(err, chat.ErrChartUnavailable):
		writeError(ctx, w, http.StatusUnprocessableEntity, "CHART_UNAVAILABLE", err.Error(), false, nil)
	case errors.Is(err, chat.ErrEmptyQuestion):
		writeError(ctx, w, http.StatusBadRequest, "QUESTION_REQUIRED", err.Error(), false, nil)
	default:
		if deps.Logger != nil {
			deps.Logger.ErrorContext(ctx, "chat turn failed", "error", err)
		}
		writeError(ctx, w, http.StatusBadGateway, "AGENT_FAILED", "failed to answer question", true, map[string]any{"details": err.Error()})
	}
}
