// internal/adapters/in/http/handler/chat_handler.go
package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"chatbridge/internal/application/usecase"
	cartdom "chatbridge/internal/domain/cart"
)

// ChatHandler serves the conversational endpoint.
// Intended mount (router side):
// - POST /api/chat
type ChatHandler struct {
	uc  *usecase.ChatUsecase
	log zerolog.Logger
}

func NewChatHandler(uc *usecase.ChatUsecase, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		uc:  uc,
		log: log.With().Str("component", "chat_handler").Logger(),
	}
}

type chatReq struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

type chatResp struct {
	SessionID string `json:"sessionId"`
	*usecase.Result
}

func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req chatReq
	if err := readJSON(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json body")
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		writeErr(w, http.StatusBadRequest, "message is required")
		return
	}

	// Sessions are client-scoped; a client without one gets a fresh ID
	// back in the response and is expected to echo it on the next turn.
	sid := strings.TrimSpace(req.SessionID)
	if sid == "" {
		sid = uuid.NewString()
	}

	res, err := h.uc.Respond(r.Context(), sid, req.Message, r.Header.Get("Cookie"))
	if err != nil {
		if errors.Is(err, usecase.ErrChatInvalidArgument) || errors.Is(err, cartdom.ErrInvalidVariantRef) {
			writeErr(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Str("sessionId", sid).Msg("chat respond failed")
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}

	cartdom.WriteSetCookies(w.Header(), res.SetCookies)
	writeJSON(w, http.StatusOK, chatResp{SessionID: sid, Result: res})
}
