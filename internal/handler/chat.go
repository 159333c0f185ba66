// Package handler implements the HTTP API surface.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/neurocare-ai/companion-backend/internal/model"
	"github.com/neurocare-ai/companion-backend/internal/service"
	"github.com/neurocare-ai/companion-backend/pkg/logger"
)

// ChatHandler handles the chat endpoints.
type ChatHandler struct {
	chat   *service.ChatService
	logger *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(chat *service.ChatService, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		chat:   chat,
		logger: log,
	}
}

// Message handles POST /api/message
func (h *ChatHandler) Message(w http.ResponseWriter, r *http.Request) {
	var req model.MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Input is required")
		return
	}

	response, err := h.chat.Respond(r.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrEmptyInput) {
			writeError(w, http.StatusBadRequest, "Input is required")
			return
		}
		// Internal detail stays in the logs; clients get an opaque error.
		h.logger.Error("message request failed",
			zap.String("user_id", req.UserID),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, model.MessageResponse{Response: response})
}

// Welcome handles POST /api/welcome
func (h *ChatHandler) Welcome(w http.ResponseWriter, r *http.Request) {
	var req model.WelcomeRequest
	if r.Body != nil {
		// An empty or absent body means an anonymous session resume.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	response, err := h.chat.Welcome(r.Context(), req.UserID)
	if err != nil {
		h.logger.Error("welcome request failed",
			zap.String("user_id", req.UserID),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, model.MessageResponse{Response: response})
}
