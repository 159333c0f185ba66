// Package nlu provides emotion analysis through the IBM Watson Natural
// Language Understanding service.
package nlu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const apiVersion = "2021-08-01"

// Client calls the NLU analyze endpoint for document emotion scores.
type Client struct {
	apiKey     string
	serviceURL string
	httpClient *http.Client
}

// NewClient creates an NLU client for the given service instance.
func NewClient(apiKey, serviceURL string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("NLU API key is required")
	}
	if serviceURL == "" {
		return nil, errors.New("NLU service URL is required")
	}
	return &Client{
		apiKey:     apiKey,
		serviceURL: strings.TrimRight(serviceURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}, nil
}

type analyzeRequest struct {
	Text     string   `json:"text"`
	Features features `json:"features"`
	Language string   `json:"language"`
}

type features struct {
	Emotion struct{} `json:"emotion"`
}

type analyzeResponse struct {
	Emotion struct {
		Document struct {
			Emotion map[string]float64 `json:"emotion"`
		} `json:"document"`
	} `json:"emotion"`
}

// AnalyzeEmotion returns document-level emotion scores (joy, sadness, anger,
// fear, disgust) for the given text.
func (c *Client) AnalyzeEmotion(ctx context.Context, text string) (map[string]float64, error) {
	body, err := json.Marshal(analyzeRequest{Text: text, Language: "en"})
	if err != nil {
		return nil, fmt.Errorf("nlu: marshal request: %w", err)
	}

	endpoint := c.serviceURL + "/v1/analyze?version=" + apiVersion
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("nlu: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth("apikey", c.apiKey)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nlu: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, fmt.Errorf("nlu: unexpected status %d: %s", res.StatusCode, string(buf))
	}

	var payload analyzeResponse
	if err := json.NewDecoder(io.LimitReader(res.Body, 1<<20)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("nlu: decode response: %w", err)
	}

	scores := payload.Emotion.Document.Emotion
	if scores == nil {
		scores = map[string]float64{}
	}
	return scores, nil
}
