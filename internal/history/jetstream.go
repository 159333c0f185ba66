package history

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/neurocare-ai/companion-backend/internal/model"
)

const (
	// StreamName is the name of the chat-history stream.
	StreamName = "CHAT_HISTORY"

	// SubjectPrefix is the prefix for all chat-turn subjects.
	SubjectPrefix = "chat.turn"
)

// JetStreamStore persists chat turns on a NATS JetStream stream, one subject
// per user. The stream denies deletes and purges, which enforces the
// append-only contract at the storage layer.
type JetStreamStore struct {
	client *Client
}

var _ Store = (*JetStreamStore)(nil)

// NewJetStreamStore creates a store on the given client.
func NewJetStreamStore(client *Client) *JetStreamStore {
	return &JetStreamStore{client: client}
}

// EnsureStream provisions the chat-history stream if it does not exist.
func (s *JetStreamStore) EnsureStream(ctx context.Context) error {
	js := s.client.JetStream()

	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      365 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		DenyDelete:  true,
		DenyPurge:   true,
		Description: "Append-only log of chat turns per user",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// TurnSubject returns the subject carrying a user's turns.
func TurnSubject(userID string) string {
	return SubjectPrefix + "." + subjectToken(userID)
}

// subjectToken maps an arbitrary user id onto a valid NATS subject token.
// User ids are caller-supplied and unvalidated; reserved characters are
// replaced rather than rejected.
func subjectToken(userID string) string {
	if userID == "" {
		return model.AnonymousUserID
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, userID)
}

// Append publishes one turn to the user's subject, assigning id, type and
// creation timestamp at write time.
func (s *JetStreamStore) Append(ctx context.Context, turn *model.ChatTurn) error {
	turn.ID = uuid.Must(uuid.NewV7()).String()
	turn.Type = model.TurnType
	turn.CreatedAt = time.Now().UTC()

	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to marshal turn: %w", err)
	}

	ack, err := s.client.JetStream().Publish(ctx, TurnSubject(turn.UserID), data)
	if err != nil {
		return fmt.Errorf("failed to publish turn: %w", err)
	}
	turn.Sequence = ack.Sequence

	return nil
}

// LastMood reads the newest turn on the user's subject via an ephemeral
// deliver-last consumer. Stream order stands in for created_at ordering;
// JetStream assigns sequence numbers at publish time.
func (s *JetStreamStore) LastMood(ctx context.Context, userID string) (model.Mood, error) {
	js := s.client.JetStream()

	consumer, err := js.CreateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		FilterSubject: TurnSubject(userID),
		AckPolicy:     jetstream.AckNonePolicy,
		DeliverPolicy: jetstream.DeliverLastPolicy,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create consumer: %w", err)
	}

	batch, err := consumer.Fetch(1, jetstream.FetchMaxWait(2*time.Second))
	if err != nil {
		return "", fmt.Errorf("failed to fetch last turn: %w", err)
	}

	for msg := range batch.Messages() {
		var turn model.ChatTurn
		if err := json.Unmarshal(msg.Data(), &turn); err != nil {
			return "", fmt.Errorf("failed to unmarshal turn: %w", err)
		}
		if turn.Mood == "" {
			return model.MoodNeutral, nil
		}
		return turn.Mood, nil
	}

	if batch.Error() != nil {
		return "", fmt.Errorf("batch error: %w", batch.Error())
	}

	return "", ErrNoHistory
}
