// Package history persists chat turns and answers most-recent-mood lookups.
package history

import (
	"context"
	"errors"

	"github.com/neurocare-ai/companion-backend/internal/model"
)

// ErrNoHistory means the user has no recorded turns. Distinct from a neutral
// mood: callers greet first-time users differently.
var ErrNoHistory = errors.New("no chat history for user")

// Store is an append-only log of chat turns partitioned by user id.
type Store interface {
	// Append writes one turn. The store assigns the creation timestamp;
	// turns are immutable once written.
	Append(ctx context.Context, turn *model.ChatTurn) error

	// LastMood returns the mood of the user's most recent turn, or
	// ErrNoHistory when none exists.
	LastMood(ctx context.Context, userID string) (model.Mood, error)
}
