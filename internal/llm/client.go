// Package llm provides completion-provider interfaces and implementations.
package llm

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// CompletionRequest represents a completion request. Temperature zero
// requests greedy decoding, not the provider default.
type CompletionRequest struct {
	Model       string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// ChatMessage represents a chat message for LLM.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionResponse represents a completion response.
type CompletionResponse struct {
	Content    string
	Model      string
	TokensIn   int
	TokensOut  int
	StopReason string
	LatencyMs  int64
}

// Client is the interface for completion providers.
type Client interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name.
	Name() string
}

// Provider is the type of completion provider.
type Provider string

const (
	ProviderWatsonx   Provider = "watsonx"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("llm: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// readBody drains up to 1MB of a response body.
func readBody(res *http.Response) ([]byte, error) {
	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}

// checkStatus converts a non-2xx response into an HTTPStatusError.
func checkStatus(res *http.Response, url string) error {
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return nil
	}
	buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return &HTTPStatusError{
		StatusCode: res.StatusCode,
		URL:        url,
		Body:       string(buf),
	}
}
