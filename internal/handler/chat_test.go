package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/neurocare-ai/companion-backend/internal/history"
	"github.com/neurocare-ai/companion-backend/internal/llm"
	"github.com/neurocare-ai/companion-backend/internal/model"
	"github.com/neurocare-ai/companion-backend/internal/service"
	"github.com/neurocare-ai/companion-backend/pkg/logger"
)

type stubCompleter struct {
	content string
	err     error
}

func (s *stubCompleter) Complete(_ context.Context, _ *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &llm.CompletionResponse{Content: s.content}, nil
}

func (s *stubCompleter) Name() string { return "stub" }

type stubExtractor struct{}

func (stubExtractor) Extract(_ context.Context, _ string) (model.Intent, error) {
	return model.Intent{}, errors.New("not implemented")
}

type stubResolver struct{}

func (stubResolver) Resolve(_ context.Context, _, _ string) ([]model.Place, error) {
	return nil, errors.New("not implemented")
}

func newChatHandler(completer llm.Client, store history.Store) *ChatHandler {
	if store == nil {
		store = history.NewMemoryStore()
	}
	svc := service.NewChatService(stubExtractor{}, stubResolver{}, nil, completer, store, logger.NewNop())
	return NewChatHandler(svc, logger.NewNop())
}

func postJSON(t *testing.T, handlerFunc http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handlerFunc(rec, req)
	return rec
}

func TestMessageEmptyInput(t *testing.T) {
	store := history.NewMemoryStore()
	h := newChatHandler(&stubCompleter{content: "hi"}, store)

	for _, body := range []string{`{}`, `{"input": "   "}`, `not json`} {
		rec := postJSON(t, h.Message, body)
		require.Equal(t, http.StatusBadRequest, rec.Code, "body: %s", body)

		var payload map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
		require.Equal(t, "Input is required", payload["error"])
	}

	// Rejected requests leave no trace in history.
	_, err := store.LastMood(context.Background(), model.AnonymousUserID)
	require.ErrorIs(t, err, history.ErrNoHistory)
}

func TestMessageSuccess(t *testing.T) {
	h := newChatHandler(&stubCompleter{content: "sure, happy to help"}, nil)

	rec := postJSON(t, h.Message, `{"input": "hello", "user_id": "ana"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var payload model.MessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Contains(t, payload.Response, "sure, happy to help")
	require.Contains(t, payload.Response, "\n\n")
}

func TestMessageBranchFailureIsOpaque(t *testing.T) {
	h := newChatHandler(&stubCompleter{err: errors.New("model exploded: secret detail")}, nil)

	rec := postJSON(t, h.Message, `{"input": "hello"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, "Server error", payload["error"])
	require.NotContains(t, rec.Body.String(), "secret detail")
}

func TestWelcomeNoHistory(t *testing.T) {
	h := newChatHandler(&stubCompleter{content: "hi"}, nil)

	rec := postJSON(t, h.Welcome, `{"user_id": "newcomer"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload model.MessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, "Hi! How can I help you today?", payload.Response)
}

func TestWelcomeRecallsMood(t *testing.T) {
	store := history.NewMemoryStore()
	err := store.Append(context.Background(), &model.ChatTurn{UserID: "rey", Mood: model.MoodSad})
	require.NoError(t, err)

	h := newChatHandler(&stubCompleter{content: "hi"}, store)

	rec := postJSON(t, h.Welcome, `{"user_id": "rey"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload model.MessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Contains(t, payload.Response, "weren't feeling great")
}

func TestWelcomeEmptyBody(t *testing.T) {
	h := newChatHandler(&stubCompleter{content: "hi"}, nil)

	rec := postJSON(t, h.Welcome, ``)
	require.Equal(t, http.StatusOK, rec.Code)
}
