// Package model defines data structures for the companion backend.
package model

import (
	"time"
)

// Mood is the mood label attached to a chat turn.
type Mood string

const (
	MoodSad     Mood = "sad"
	MoodHappy   Mood = "happy"
	MoodNeutral Mood = "neutral"
)

// AnonymousUserID is used when the caller does not identify itself.
const AnonymousUserID = "anonymous"

// ChatTurn is one persisted request/response exchange. Turns are append-only;
// there is no update or delete path.
type ChatTurn struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	Message  string `json:"message"`
	Response string `json:"response"`
	Mood     Mood   `json:"mood"`
	Type     string `json:"type"`

	// CreatedAt is assigned by the store at write time, never by the caller.
	CreatedAt time.Time `json:"created_at"`

	// Sequence is populated on reads from JetStream-backed stores.
	Sequence uint64 `json:"sequence,omitempty"`
}

// TurnType tags persisted documents so future record kinds can share the stream.
const TurnType = "chat"

// MessageRequest is the body of POST /api/message.
type MessageRequest struct {
	Input  string `json:"input"`
	UserID string `json:"user_id,omitempty"`
	UseRAG bool   `json:"use_rag,omitempty"`
}

// WelcomeRequest is the body of POST /api/welcome.
type WelcomeRequest struct {
	UserID string `json:"user_id,omitempty"`
}

// MessageResponse is the success body for both chat endpoints.
type MessageResponse struct {
	Response string `json:"response"`
}
