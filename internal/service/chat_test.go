package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/neurocare-ai/companion-backend/internal/history"
	"github.com/neurocare-ai/companion-backend/internal/llm"
	"github.com/neurocare-ai/companion-backend/internal/model"
	"github.com/neurocare-ai/companion-backend/pkg/logger"
)

type fakeExtractor struct {
	intent model.Intent
	err    error
	calls  int
}

func (f *fakeExtractor) Extract(_ context.Context, _ string) (model.Intent, error) {
	f.calls++
	return f.intent, f.err
}

type fakePlaces struct {
	places      []model.Place
	err         error
	gotLocation string
	gotCategory string
	calls       int
}

func (f *fakePlaces) Resolve(_ context.Context, location, category string) ([]model.Place, error) {
	f.calls++
	f.gotLocation = location
	f.gotCategory = category
	return f.places, f.err
}

type fakeRetriever struct {
	answer string
	err    error
	calls  int
}

func (f *fakeRetriever) Answer(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.answer, f.err
}

type fakeCompleter struct {
	content string
	err     error
	gotReq  *llm.CompletionRequest
	calls   int
}

func (f *fakeCompleter) Complete(_ context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.calls++
	f.gotReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &llm.CompletionResponse{Content: f.content}, nil
}

func (f *fakeCompleter) Name() string { return "fake" }

type failingStore struct {
	appendErr   error
	lastMoodErr error
	mood        model.Mood
}

func (s *failingStore) Append(_ context.Context, _ *model.ChatTurn) error {
	return s.appendErr
}

func (s *failingStore) LastMood(_ context.Context, _ string) (model.Mood, error) {
	if s.lastMoodErr != nil {
		return "", s.lastMoodErr
	}
	return s.mood, nil
}

func newTestService(store history.Store, completer llm.Client, extractor *fakeExtractor, places *fakePlaces, retriever Retriever) *ChatService {
	if store == nil {
		store = history.NewMemoryStore()
	}
	if completer == nil {
		completer = &fakeCompleter{content: "hello"}
	}
	if extractor == nil {
		extractor = &fakeExtractor{}
	}
	if places == nil {
		places = &fakePlaces{}
	}
	return NewChatService(extractor, places, retriever, completer, store, logger.NewNop())
}

func TestRespondRejectsEmptyInput(t *testing.T) {
	svc := newTestService(nil, nil, nil, nil, nil)

	_, err := svc.Respond(context.Background(), &model.MessageRequest{Input: "   "})
	require.ErrorIs(t, err, ErrEmptyInput)
}

func TestRespondLocationBranch(t *testing.T) {
	extractor := &fakeExtractor{intent: model.Intent{Category: "Cafe", Location: "Boston"}}
	places := &fakePlaces{places: []model.Place{{Name: "Cafe A"}, {Name: "Cafe B"}}}
	svc := newTestService(nil, nil, extractor, places, nil)

	got, err := svc.Respond(context.Background(), &model.MessageRequest{Input: "find a cafe near Boston"})
	require.NoError(t, err)
	require.Contains(t, got, "Nearby cafes in Boston: Cafe A, Cafe B")
	require.True(t, strings.HasPrefix(got, "Hi there!"), "first turn gets the generic greeting: %q", got)
	require.Equal(t, "cafe", places.gotCategory, "category is lowercased before resolution")
	require.Equal(t, "Boston", places.gotLocation)
}

func TestRespondLocationBranchNoResults(t *testing.T) {
	extractor := &fakeExtractor{intent: model.Intent{Category: "museum", Location: "Svalbard"}}
	places := &fakePlaces{places: nil}
	svc := newTestService(nil, nil, extractor, places, nil)

	got, err := svc.Respond(context.Background(), &model.MessageRequest{Input: "museums around Svalbard"})
	require.NoError(t, err)
	require.Contains(t, got, "No places found near Svalbard.")
}

func TestRespondLocationBranchCapsAtFiveNames(t *testing.T) {
	found := []model.Place{
		{Name: "P1"}, {Name: "P2"}, {Name: "P3"}, {Name: "P4"}, {Name: "P5"}, {Name: "P6"}, {Name: "P7"},
	}
	extractor := &fakeExtractor{intent: model.Intent{Category: "park", Location: "Oslo"}}
	places := &fakePlaces{places: found}
	svc := newTestService(nil, nil, extractor, places, nil)

	got, err := svc.Respond(context.Background(), &model.MessageRequest{Input: "parks near Oslo"})
	require.NoError(t, err)
	require.Contains(t, got, "P5")
	require.NotContains(t, got, "P6")
}

func TestRespondLocationWinsOverRAGFlag(t *testing.T) {
	extractor := &fakeExtractor{intent: model.Intent{Category: "hotel", Location: "Paris"}}
	places := &fakePlaces{places: []model.Place{{Name: "Hotel X"}}}
	retriever := &fakeRetriever{answer: "should not be used"}
	svc := newTestService(nil, nil, extractor, places, retriever)

	got, err := svc.Respond(context.Background(), &model.MessageRequest{
		Input:  "hotels near Paris",
		UseRAG: true,
	})
	require.NoError(t, err)
	require.Contains(t, got, "Hotel X")
	require.Zero(t, retriever.calls, "location trigger must take precedence over use_rag")
	require.Equal(t, 1, extractor.calls)
}

func TestRespondRAGBranch(t *testing.T) {
	retriever := &fakeRetriever{answer: "Grounded answer."}
	completer := &fakeCompleter{content: "direct answer"}
	svc := newTestService(nil, completer, nil, nil, retriever)

	got, err := svc.Respond(context.Background(), &model.MessageRequest{
		Input:  "what does the handbook say about time off?",
		UseRAG: true,
	})
	require.NoError(t, err)
	require.Contains(t, got, "Grounded answer.")
	require.Zero(t, completer.calls)
}

func TestRespondRAGRequestedButUnavailable(t *testing.T) {
	svc := newTestService(nil, nil, nil, nil, nil)

	_, err := svc.Respond(context.Background(), &model.MessageRequest{
		Input:  "what does the handbook say?",
		UseRAG: true,
	})
	require.ErrorIs(t, err, ErrRAGUnavailable)
}

func TestRespondDirectBranchParameters(t *testing.T) {
	completer := &fakeCompleter{content: "  a thoughtful reply \n"}
	svc := newTestService(nil, completer, nil, nil, nil)

	got, err := svc.Respond(context.Background(), &model.MessageRequest{Input: "tell me something interesting"})
	require.NoError(t, err)
	require.Contains(t, got, "a thoughtful reply")
	require.NotContains(t, got, "reply \n")

	require.NotNil(t, completer.gotReq)
	require.InDelta(t, 0.7, completer.gotReq.Temperature, 1e-9)
	require.InDelta(t, 0.9, completer.gotReq.TopP, 1e-9)
	require.Equal(t, 300, completer.gotReq.MaxTokens)
	require.Len(t, completer.gotReq.Messages, 1)
	require.Equal(t, "tell me something interesting", completer.gotReq.Messages[0].Content)
}

func TestRespondBranchFailurePropagates(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("upstream down")}
	store := history.NewMemoryStore()
	svc := newTestService(store, completer, nil, nil, nil)

	_, err := svc.Respond(context.Background(), &model.MessageRequest{Input: "hi", UserID: "u1"})
	require.Error(t, err)

	// Failed turns are not recorded.
	_, err = store.LastMood(context.Background(), "u1")
	require.ErrorIs(t, err, history.ErrNoHistory)
}

func TestRespondGreetingUsesPriorMoodOnly(t *testing.T) {
	store := history.NewMemoryStore()
	svc := newTestService(store, &fakeCompleter{content: "here for you"}, nil, nil, nil)

	// First message is sad, but there is no history yet.
	first, err := svc.Respond(context.Background(), &model.MessageRequest{
		Input:  "I feel so sad today",
		UserID: "mia",
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(first, "Hi there!"), "got: %q", first)
	require.NotContains(t, strings.SplitN(first, "\n\n", 2)[0], "sad")

	// Second message sees the sad mood recorded by the first.
	second, err := svc.Respond(context.Background(), &model.MessageRequest{
		Input:  "how are you",
		UserID: "mia",
	})
	require.NoError(t, err)
	require.Contains(t, strings.SplitN(second, "\n\n", 2)[0], "sad")
}

func TestRespondGreetingSeparator(t *testing.T) {
	svc := newTestService(nil, &fakeCompleter{content: "body text"}, nil, nil, nil)

	got, err := svc.Respond(context.Background(), &model.MessageRequest{Input: "hello"})
	require.NoError(t, err)
	parts := strings.SplitN(got, "\n\n", 2)
	require.Len(t, parts, 2)
	require.Equal(t, "body text", parts[1])
}

func TestRespondPersistsTurnWithMood(t *testing.T) {
	store := history.NewMemoryStore()
	svc := newTestService(store, &fakeCompleter{content: "glad to hear it"}, nil, nil, nil)

	_, err := svc.Respond(context.Background(), &model.MessageRequest{
		Input:  "I am so happy today",
		UserID: "leo",
	})
	require.NoError(t, err)

	last, err := store.LastMood(context.Background(), "leo")
	require.NoError(t, err)
	require.Equal(t, model.MoodHappy, last)
}

func TestRespondPersistFailureIsNonFatal(t *testing.T) {
	store := &failingStore{appendErr: errors.New("stream unavailable"), lastMoodErr: history.ErrNoHistory}
	svc := newTestService(store, &fakeCompleter{content: "still fine"}, nil, nil, nil)

	got, err := svc.Respond(context.Background(), &model.MessageRequest{Input: "hello"})
	require.NoError(t, err)
	require.Contains(t, got, "still fine")
}

func TestRespondMoodLookupFailureDegrades(t *testing.T) {
	store := &failingStore{lastMoodErr: errors.New("timeout")}
	svc := newTestService(store, &fakeCompleter{content: "works anyway"}, nil, nil, nil)

	got, err := svc.Respond(context.Background(), &model.MessageRequest{Input: "hello"})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(got, "Hi there!"), "lookup failure greets as first-time: %q", got)
}

func TestRespondDefaultsAnonymousUser(t *testing.T) {
	store := history.NewMemoryStore()
	svc := newTestService(store, &fakeCompleter{content: "noted"}, nil, nil, nil)

	_, err := svc.Respond(context.Background(), &model.MessageRequest{Input: "I feel great"})
	require.NoError(t, err)

	last, err := store.LastMood(context.Background(), model.AnonymousUserID)
	require.NoError(t, err)
	require.Equal(t, model.MoodHappy, last)
}

func TestWelcome(t *testing.T) {
	tests := []struct {
		name string
		mood model.Mood
		seed bool
		want string
	}{
		{name: "sad", mood: model.MoodSad, seed: true, want: "weren't feeling great"},
		{name: "happy", mood: model.MoodHappy, seed: true, want: "seemed happy"},
		{name: "neutral", mood: model.MoodNeutral, seed: true, want: "Hey again"},
		{name: "no history", seed: false, want: "Hi! How can I help you today?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := history.NewMemoryStore()
			if tt.seed {
				err := store.Append(context.Background(), &model.ChatTurn{
					UserID: "kai",
					Mood:   tt.mood,
				})
				require.NoError(t, err)
			}
			svc := newTestService(store, nil, nil, nil, nil)

			got, err := svc.Welcome(context.Background(), "kai")
			require.NoError(t, err)
			require.Contains(t, got, tt.want)
		})
	}
}

func TestWelcomeLookupFailure(t *testing.T) {
	store := &failingStore{lastMoodErr: errors.New("store offline")}
	svc := newTestService(store, nil, nil, nil, nil)

	_, err := svc.Welcome(context.Background(), "kai")
	require.Error(t, err)
}
