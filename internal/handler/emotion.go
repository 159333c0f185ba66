package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/neurocare-ai/companion-backend/internal/nlu"
	"github.com/neurocare-ai/companion-backend/pkg/logger"
)

// EmotionHandler exposes document emotion analysis as a standalone helper
// endpoint. It is registered only when an NLU client is configured.
type EmotionHandler struct {
	nlu    *nlu.Client
	logger *logger.Logger
}

// NewEmotionHandler creates a new emotion handler.
func NewEmotionHandler(client *nlu.Client, log *logger.Logger) *EmotionHandler {
	return &EmotionHandler{
		nlu:    client,
		logger: log,
	}
}

type emotionRequest struct {
	Text string `json:"text"`
}

type emotionResponse struct {
	Emotion map[string]float64 `json:"emotion"`
}

// Analyze handles POST /api/emotion
func (h *EmotionHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req emotionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "Text is required")
		return
	}

	scores, err := h.nlu.AnalyzeEmotion(r.Context(), req.Text)
	if err != nil {
		h.logger.Error("emotion analysis failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, emotionResponse{Emotion: scores})
}
