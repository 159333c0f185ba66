// Package service orchestrates chat turns: branch routing, mood tracking,
// greeting composition, and history persistence.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/neurocare-ai/companion-backend/internal/history"
	"github.com/neurocare-ai/companion-backend/internal/llm"
	"github.com/neurocare-ai/companion-backend/internal/model"
	"github.com/neurocare-ai/companion-backend/internal/mood"
	"github.com/neurocare-ai/companion-backend/pkg/logger"
	"github.com/neurocare-ai/companion-backend/pkg/metrics"
)

var (
	// ErrEmptyInput means the request carried no usable utterance.
	ErrEmptyInput = errors.New("input is required")

	// ErrRAGUnavailable means retrieval-augmented mode was requested but no
	// retriever is configured.
	ErrRAGUnavailable = errors.New("retrieval-augmented mode is not available")
)

// Location queries are recognized by substring, not by model: precedence over
// the use_rag flag must stay deterministic.
var locationTriggers = []string{"near", "around"}

const (
	branchLocation = "location"
	branchRAG      = "rag"
	branchDirect   = "direct"

	maxPlaceNames = 5

	directTemperature = 0.7
	directTopP        = 0.9
	directMaxTokens   = 300

	moodLookupTimeout = 2 * time.Second
)

// IntentExtractor pulls a place category and location out of an utterance.
type IntentExtractor interface {
	Extract(ctx context.Context, utterance string) (model.Intent, error)
}

// PlaceResolver finds named places for a location string and category.
type PlaceResolver interface {
	Resolve(ctx context.Context, location, category string) ([]model.Place, error)
}

// Retriever answers a question grounded on an indexed document corpus.
type Retriever interface {
	Answer(ctx context.Context, question string) (string, error)
}

// ChatService routes utterances to a response branch and blends the result
// with a greeting derived from the user's prior mood.
type ChatService struct {
	extractor IntentExtractor
	places    PlaceResolver
	retriever Retriever // nil when RAG is disabled
	completer llm.Client
	store     history.Store
	logger    *logger.Logger
}

// NewChatService creates the chat orchestrator. retriever may be nil, in
// which case requests with use_rag set fail.
func NewChatService(
	extractor IntentExtractor,
	places PlaceResolver,
	retriever Retriever,
	completer llm.Client,
	store history.Store,
	log *logger.Logger,
) *ChatService {
	return &ChatService{
		extractor: extractor,
		places:    places,
		retriever: retriever,
		completer: completer,
		store:     store,
		logger:    log,
	}
}

// Respond handles one chat turn end to end: reads the user's prior mood,
// executes the routed branch, records the turn, and returns the branch result
// prefixed by a mood-aware greeting.
func (s *ChatService) Respond(ctx context.Context, req *model.MessageRequest) (string, error) {
	input := strings.TrimSpace(req.Input)
	if input == "" {
		return "", ErrEmptyInput
	}
	userID := req.UserID
	if userID == "" {
		userID = model.AnonymousUserID
	}

	lastMood, hadHistory := s.lastMood(ctx, userID)

	branch := s.classify(input, req.UseRAG)
	body, err := s.runBranch(ctx, branch, input)
	if err != nil {
		metrics.BranchTotal.WithLabelValues(branch, "error").Inc()
		return "", fmt.Errorf("%s branch: %w", branch, err)
	}
	metrics.BranchTotal.WithLabelValues(branch, "ok").Inc()

	// Mood comes from what the user said, never from the reply.
	currentMood := mood.Classify(input)
	metrics.MoodDetectedTotal.WithLabelValues(string(currentMood)).Inc()

	s.persist(ctx, userID, input, body, currentMood)

	// The greeting reflects prior turns only; the mood just computed is
	// not visible until the next request.
	return greetingFor(lastMood, hadHistory) + "\n\n" + body, nil
}

// Welcome returns a canned session-resume greeting keyed on the user's last
// recorded mood. It runs no branch and persists nothing.
func (s *ChatService) Welcome(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		userID = model.AnonymousUserID
	}

	last, err := s.store.LastMood(ctx, userID)
	if err != nil {
		if errors.Is(err, history.ErrNoHistory) {
			return "Hi! How can I help you today?", nil
		}
		return "", fmt.Errorf("load last mood: %w", err)
	}

	switch last {
	case model.MoodSad:
		return "Welcome back! I remember you weren't feeling great earlier. How are you feeling now?", nil
	case model.MoodHappy:
		return "Welcome back! You seemed happy last time we spoke.", nil
	default:
		return "Hey again. I'm here if you want to talk.", nil
	}
}

// classify picks the response branch. Location triggers win over the RAG
// flag: a location-flavored RAG query still goes to the place lookup.
func (s *ChatService) classify(input string, useRAG bool) string {
	lowered := strings.ToLower(input)
	for _, trigger := range locationTriggers {
		if strings.Contains(lowered, trigger) {
			return branchLocation
		}
	}
	if useRAG {
		return branchRAG
	}
	return branchDirect
}

func (s *ChatService) runBranch(ctx context.Context, branch, input string) (string, error) {
	switch branch {
	case branchLocation:
		return s.respondWithPlaces(ctx, input)
	case branchRAG:
		if s.retriever == nil {
			return "", ErrRAGUnavailable
		}
		return s.retriever.Answer(ctx, input)
	default:
		return s.respondDirect(ctx, input)
	}
}

func (s *ChatService) respondWithPlaces(ctx context.Context, input string) (string, error) {
	intent, err := s.extractor.Extract(ctx, input)
	if err != nil {
		return "", err
	}

	category := strings.ToLower(intent.Category)
	found, err := s.places.Resolve(ctx, intent.Location, category)
	if err != nil {
		return "", err
	}

	// Zero matches near a real location is an answer, not an error.
	if len(found) == 0 {
		return fmt.Sprintf("No places found near %s.", intent.Location), nil
	}

	names := make([]string, 0, maxPlaceNames)
	for _, place := range found {
		if len(names) == maxPlaceNames {
			break
		}
		names = append(names, place.Name)
	}
	return fmt.Sprintf("Nearby %ss in %s: %s", category, intent.Location, strings.Join(names, ", ")), nil
}

func (s *ChatService) respondDirect(ctx context.Context, input string) (string, error) {
	start := time.Now()
	res, err := s.completer.Complete(ctx, &llm.CompletionRequest{
		Messages:    []llm.ChatMessage{{Role: "user", Content: input}},
		MaxTokens:   directMaxTokens,
		Temperature: directTemperature,
		TopP:        directTopP,
	})
	if err != nil {
		metrics.RecordCompletion(s.completer.Name(), "error", time.Since(start).Seconds(), 0, 0)
		return "", err
	}
	metrics.RecordCompletion(s.completer.Name(), "ok", time.Since(start).Seconds(), res.TokensIn, res.TokensOut)
	return strings.TrimSpace(res.Content), nil
}

// lastMood reads the user's most recent mood. Lookup failures degrade to the
// no-history greeting rather than failing the turn.
func (s *ChatService) lastMood(ctx context.Context, userID string) (model.Mood, bool) {
	lookupCtx, cancel := context.WithTimeout(ctx, moodLookupTimeout)
	defer cancel()

	last, err := s.store.LastMood(lookupCtx, userID)
	if err != nil {
		if !errors.Is(err, history.ErrNoHistory) {
			s.logger.Warn("mood lookup failed, greeting as first-time user",
				zap.String("user_id", userID),
				zap.Error(err))
		}
		return model.MoodNeutral, false
	}
	return last, true
}

// persist writes the turn to the history store. Failures are logged and
// counted but never surface to the user.
func (s *ChatService) persist(ctx context.Context, userID, input, response string, turnMood model.Mood) {
	turn := &model.ChatTurn{
		UserID:   userID,
		Message:  input,
		Response: response,
		Mood:     turnMood,
	}
	if err := s.store.Append(ctx, turn); err != nil {
		metrics.PersistFailuresTotal.Inc()
		s.logger.Error("failed to persist chat turn",
			zap.String("user_id", userID),
			zap.Error(err))
		return
	}
	metrics.TurnsTotal.WithLabelValues(string(turnMood)).Inc()
}

func greetingFor(last model.Mood, hadHistory bool) string {
	if !hadHistory {
		return "Hi there! I'm always here for you."
	}
	switch last {
	case model.MoodSad:
		return "Hey again! Last time you seemed a bit sad. How are you feeling today?"
	case model.MoodHappy:
		return "Hey again! You seemed happy last time we talked. What's on your mind?"
	default:
		return "Hey again. I'm here if you want to talk."
	}
}
