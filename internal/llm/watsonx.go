package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	watsonxAPIVersion = "2024-05-01"

	// DefaultWatsonxModel is the chat model used when none is configured.
	DefaultWatsonxModel = "meta-llama/llama-3-2-3b-instruct"
)

// WatsonxConfig holds credentials and endpoints for the watsonx.ai client.
type WatsonxConfig struct {
	APIKey    string
	Region    string // e.g. https://us-south.ml.cloud.ibm.com
	ProjectID string
	IAMURL    string
	Model     string
}

// WatsonxClient is a watsonx.ai chat and embeddings client. API calls carry a
// bearer token obtained through the IBM IAM token exchange; the token is
// cached until shortly before it expires.
type WatsonxClient struct {
	cfg        WatsonxConfig
	httpClient *http.Client

	tokenMu     sync.Mutex
	token       string
	tokenExpiry time.Time
}

var _ Client = (*WatsonxClient)(nil)

// NewWatsonxClient creates a new watsonx.ai client.
func NewWatsonxClient(cfg WatsonxConfig) (*WatsonxClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("watsonx API key is required")
	}
	if cfg.Region == "" {
		return nil, errors.New("watsonx region URL is required")
	}
	if cfg.ProjectID == "" {
		return nil, errors.New("watsonx project ID is required")
	}
	if cfg.IAMURL == "" {
		cfg.IAMURL = "https://iam.cloud.ibm.com/identity/token"
	}
	if cfg.Model == "" {
		cfg.Model = DefaultWatsonxModel
	}
	cfg.Region = strings.TrimRight(cfg.Region, "/")

	return &WatsonxClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// Name returns the provider name.
func (c *WatsonxClient) Name() string {
	return "watsonx"
}

type watsonxChatRequest struct {
	ModelID    string            `json:"model_id"`
	ProjectID  string            `json:"project_id"`
	Messages   []watsonxMessage  `json:"messages"`
	Parameters watsonxChatParams `json:"parameters"`
}

type watsonxMessage struct {
	Role    string           `json:"role"`
	Content []watsonxContent `json:"content"`
}

type watsonxContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type watsonxChatParams struct {
	// Temperature is always sent: zero means greedy decoding, which
	// omitempty would silently turn into the service default.
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

type watsonxChatResponse struct {
	ModelID string `json:"model_id"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Complete sends a chat completion request.
func (c *WatsonxClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	model := req.Model
	if model == "" {
		model = c.cfg.Model
	}

	messages := make([]watsonxMessage, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = watsonxMessage{
			Role:    msg.Role,
			Content: []watsonxContent{{Type: "text", Text: msg.Content}},
		}
	}

	payload := watsonxChatRequest{
		ModelID:   model,
		ProjectID: c.cfg.ProjectID,
		Messages:  messages,
		Parameters: watsonxChatParams{
			Temperature: req.Temperature,
			TopP:        req.TopP,
			MaxTokens:   req.MaxTokens,
		},
	}

	endpoint := c.cfg.Region + "/ml/v1/text/chat?version=" + watsonxAPIVersion
	raw, err := c.postJSON(ctx, endpoint, payload)
	if err != nil {
		return nil, err
	}

	var resp watsonxChatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("watsonx: decode chat response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("watsonx: no choices in response")
	}

	respModel := resp.ModelID
	if respModel == "" {
		respModel = model
	}

	return &CompletionResponse{
		Content:    resp.Choices[0].Message.Content,
		Model:      respModel,
		TokensIn:   resp.Usage.PromptTokens,
		TokensOut:  resp.Usage.CompletionTokens,
		StopReason: resp.Choices[0].FinishReason,
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

type watsonxEmbedRequest struct {
	ModelID   string   `json:"model_id"`
	ProjectID string   `json:"project_id"`
	Inputs    []string `json:"inputs"`
}

type watsonxEmbedResponse struct {
	Results []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"results"`
}

// EmbedBatch generates embedding vectors for the given texts.
func (c *WatsonxClient) EmbedBatch(ctx context.Context, model string, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	payload := watsonxEmbedRequest{
		ModelID:   model,
		ProjectID: c.cfg.ProjectID,
		Inputs:    texts,
	}

	endpoint := c.cfg.Region + "/ml/v1/text/embeddings?version=" + watsonxAPIVersion
	raw, err := c.postJSON(ctx, endpoint, payload)
	if err != nil {
		return nil, err
	}

	var resp watsonxEmbedResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("watsonx: decode embeddings response: %w", err)
	}
	if len(resp.Results) != len(texts) {
		return nil, fmt.Errorf("watsonx: embedding count mismatch: got %d, want %d", len(resp.Results), len(texts))
	}

	vectors := make([][]float32, len(resp.Results))
	for i, r := range resp.Results {
		vectors[i] = r.Embedding
	}
	return vectors, nil
}

type watsonxModelSpecs struct {
	Resources []struct {
		ModelID string `json:"model_id"`
	} `json:"resources"`
}

// ListModels returns the foundation-model IDs accessible to the account.
func (c *WatsonxClient) ListModels(ctx context.Context) ([]string, error) {
	endpoint := c.cfg.Region + "/ml/v1/foundation_model_specs?version=" + watsonxAPIVersion

	token, err := c.bearerToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("watsonx: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("watsonx: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if err := checkStatus(res, endpoint); err != nil {
		return nil, err
	}
	raw, err := readBody(res)
	if err != nil {
		return nil, err
	}

	var specs watsonxModelSpecs
	if err := json.Unmarshal(raw, &specs); err != nil {
		return nil, fmt.Errorf("watsonx: decode model specs: %w", err)
	}

	models := make([]string, 0, len(specs.Resources))
	for _, r := range specs.Resources {
		if r.ModelID != "" {
			models = append(models, r.ModelID)
		}
	}
	return models, nil
}

func (c *WatsonxClient) postJSON(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	token, err := c.bearerToken(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("watsonx: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("watsonx: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("watsonx: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if err := checkStatus(res, endpoint); err != nil {
		return nil, err
	}
	return readBody(res)
}

type iamTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// bearerToken returns a cached IAM access token, exchanging the API key for a
// fresh one when the cached token is within a minute of expiry.
func (c *WatsonxClient) bearerToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-time.Minute)) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "urn:ibm:params:oauth:grant-type:apikey")
	form.Set("apikey", c.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.IAMURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("watsonx: create IAM request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("watsonx: IAM token exchange failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if err := checkStatus(res, c.cfg.IAMURL); err != nil {
		return "", err
	}
	raw, err := readBody(res)
	if err != nil {
		return "", err
	}

	var tok iamTokenResponse
	if err := json.Unmarshal(raw, &tok); err != nil {
		return "", fmt.Errorf("watsonx: decode IAM response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", errors.New("watsonx: IAM response has no access token")
	}

	expiresIn := tok.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}

	c.token = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(expiresIn) * time.Second)
	return c.token, nil
}
