package history

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/neurocare-ai/companion-backend/internal/model"
)

func TestMemoryStoreLastMoodEmpty(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.LastMood(context.Background(), "u1")
	require.ErrorIs(t, err, ErrNoHistory)
}

func TestMemoryStoreAppendAssignsFields(t *testing.T) {
	s := NewMemoryStore()

	turn := &model.ChatTurn{UserID: "u1", Message: "hi", Response: "hello", Mood: model.MoodHappy}
	require.NoError(t, s.Append(context.Background(), turn))

	require.NotEmpty(t, turn.ID)
	require.Equal(t, model.TurnType, turn.Type)
	require.False(t, turn.CreatedAt.IsZero())
	require.Equal(t, uint64(1), turn.Sequence)
}

func TestMemoryStoreLastMoodIsMostRecent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, &model.ChatTurn{UserID: "u1", Mood: model.MoodSad}))
	require.NoError(t, s.Append(ctx, &model.ChatTurn{UserID: "u1", Mood: model.MoodHappy}))
	require.NoError(t, s.Append(ctx, &model.ChatTurn{UserID: "u2", Mood: model.MoodSad}))

	mood, err := s.LastMood(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, model.MoodHappy, mood)

	mood, err = s.LastMood(ctx, "u2")
	require.NoError(t, err)
	require.Equal(t, model.MoodSad, mood)
}

func TestSubjectToken(t *testing.T) {
	require.Equal(t, "chat.turn.alice-1", TurnSubject("alice-1"))
	require.Equal(t, "chat.turn.anonymous", TurnSubject(""))
	require.Equal(t, "chat.turn.a_b_c", TurnSubject("a.b c"))
	require.Equal(t, "chat.turn.u__", TurnSubject("u.>"))
}
