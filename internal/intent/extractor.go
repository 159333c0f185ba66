// Package intent extracts structured place-search intent from free text.
package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/neurocare-ai/companion-backend/internal/llm"
	"github.com/neurocare-ai/companion-backend/internal/model"
)

const (
	extractTemperature = 0.3
	extractMaxTokens   = 100
)

// ExtractionError reports a failed intent extraction. RawOutput carries the
// model's unparsed reply for diagnostics; it is logged, never returned to the
// caller.
type ExtractionError struct {
	RawOutput string
	Err       error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("intent: extraction failed: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Extractor asks the completion provider for a {category, location} intent.
type Extractor struct {
	client llm.Client
}

// NewExtractor creates an extractor backed by the given completion client.
func NewExtractor(client llm.Client) *Extractor {
	return &Extractor{client: client}
}

// Extract derives a place-search intent from a single utterance. The category
// is not validated against the allowed list here; unknown categories are
// handled downstream by the place resolver's tag fallback.
func (e *Extractor) Extract(ctx context.Context, utterance string) (model.Intent, error) {
	resp, err := e.client.Complete(ctx, &llm.CompletionRequest{
		Messages:    []llm.ChatMessage{{Role: "user", Content: buildPrompt(utterance)}},
		Temperature: extractTemperature,
		MaxTokens:   extractMaxTokens,
	})
	if err != nil {
		return model.Intent{}, &ExtractionError{Err: fmt.Errorf("completion call: %w", err)}
	}

	intent, err := parseIntent(resp.Content)
	if err != nil {
		return model.Intent{}, &ExtractionError{RawOutput: resp.Content, Err: err}
	}
	return intent, nil
}

func buildPrompt(utterance string) string {
	categories, _ := json.Marshal(model.PlaceCategories)

	var b strings.Builder
	b.WriteString("Extract the location and category for a place search from the user's sentence.\n\n")
	b.WriteString("Only choose categories from this list:\n")
	b.Write(categories)
	b.WriteString("\n\nSentence: \"")
	b.WriteString(utterance)
	b.WriteString("\"\n\nRespond ONLY in this JSON format:\n{\n  \"category\": \"...\",\n  \"location\": \"...\"\n}\n")
	return b.String()
}

// parseIntent scans free-form model output for an embedded JSON object. The
// scan is greedy: everything from the first '{' to the last '}' is treated as
// the candidate object, matching how loosely instructed models wrap their
// answer in prose.
func parseIntent(output string) (model.Intent, error) {
	start := strings.Index(output, "{")
	end := strings.LastIndex(output, "}")
	if start == -1 || end == -1 || end < start {
		return model.Intent{}, fmt.Errorf("no JSON object in model output")
	}

	var intent model.Intent
	if err := json.Unmarshal([]byte(output[start:end+1]), &intent); err != nil {
		return model.Intent{}, fmt.Errorf("parse JSON object: %w", err)
	}
	if intent.Category == "" || intent.Location == "" {
		return model.Intent{}, fmt.Errorf("JSON object missing category or location")
	}
	return intent, nil
}
