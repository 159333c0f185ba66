package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/neurocare-ai/companion-backend/internal/model"
)

// MemoryStore is an in-process history store. It backs the service when no
// NATS broker is configured and keeps tests hermetic. History is advisory
// greeting context, so losing it on restart is acceptable in that mode.
type MemoryStore struct {
	mu    sync.RWMutex
	turns map[string][]model.ChatTurn
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		turns: make(map[string][]model.ChatTurn),
	}
}

// Append records a copy of the turn under its user id.
func (s *MemoryStore) Append(ctx context.Context, turn *model.ChatTurn) error {
	turn.ID = uuid.Must(uuid.NewV7()).String()
	turn.Type = model.TurnType
	turn.CreatedAt = time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns[turn.UserID] = append(s.turns[turn.UserID], *turn)
	turn.Sequence = uint64(len(s.turns[turn.UserID]))
	return nil
}

// LastMood returns the mood of the user's most recent turn.
func (s *MemoryStore) LastMood(ctx context.Context, userID string) (model.Mood, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.turns[userID]
	if len(turns) == 0 {
		return "", ErrNoHistory
	}

	mood := turns[len(turns)-1].Mood
	if mood == "" {
		return model.MoodNeutral, nil
	}
	return mood, nil
}
