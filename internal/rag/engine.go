// Package rag answers queries with retrieval-augmented completion over a
// local knowledge file.
package rag

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/neurocare-ai/companion-backend/internal/llm"
)

const (
	// chunkSize is the character length of one indexed chunk.
	chunkSize = 1000

	// topK is how many chunks are stuffed into the answer prompt.
	topK = 4

	answerMaxTokens = 300
)

// Embedder generates embedding vectors for texts.
type Embedder interface {
	EmbedBatch(ctx context.Context, model string, texts []string) ([][]float32, error)
}

var _ Embedder = (*llm.WatsonxClient)(nil)

// Config holds engine configuration.
type Config struct {
	DocsPath   string
	EmbedModel string
}

// Engine retrieves relevant chunks by cosine similarity and answers through
// the completion provider. The index is built lazily on first use and kept
// for the life of the engine once built.
type Engine struct {
	cfg      Config
	embedder Embedder
	client   llm.Client

	indexMu sync.Mutex
	chunks  []string // nil until the index is built
	vectors [][]float32
}

// NewEngine creates a retrieval engine over the configured knowledge file.
func NewEngine(cfg Config, embedder Embedder, client llm.Client) *Engine {
	return &Engine{
		cfg:      cfg,
		embedder: embedder,
		client:   client,
	}
}

// Answer retrieves the chunks closest to the query and asks the completion
// provider to answer from them with greedy decoding.
func (e *Engine) Answer(ctx context.Context, query string) (string, error) {
	if err := e.ensureIndex(ctx); err != nil {
		return "", err
	}

	queryVecs, err := e.embedder.EmbedBatch(ctx, e.cfg.EmbedModel, []string{query})
	if err != nil {
		return "", fmt.Errorf("rag: embed query: %w", err)
	}

	contextChunks := e.retrieve(queryVecs[0])

	// Temperature zero requests greedy decoding; retrieval answers should
	// not be creative.
	resp, err := e.client.Complete(ctx, &llm.CompletionRequest{
		Messages:    []llm.ChatMessage{{Role: "user", Content: buildAnswerPrompt(contextChunks, query)}},
		MaxTokens:   answerMaxTokens,
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("rag: completion call: %w", err)
	}

	return strings.TrimSpace(resp.Content), nil
}

// ensureIndex builds the index if it does not exist yet. Failures are not
// cached: a transient embedding outage must not disable retrieval for the
// life of the process, so the next call retries from scratch.
func (e *Engine) ensureIndex(ctx context.Context) error {
	e.indexMu.Lock()
	defer e.indexMu.Unlock()

	if e.chunks != nil {
		return nil
	}

	raw, err := os.ReadFile(e.cfg.DocsPath)
	if err != nil {
		return fmt.Errorf("rag: read knowledge file: %w", err)
	}

	chunks := splitChunks(string(raw), chunkSize)
	if len(chunks) == 0 {
		return fmt.Errorf("rag: knowledge file %s is empty", e.cfg.DocsPath)
	}

	vectors, err := e.embedder.EmbedBatch(ctx, e.cfg.EmbedModel, chunks)
	if err != nil {
		return fmt.Errorf("rag: embed chunks: %w", err)
	}

	e.chunks = chunks
	e.vectors = vectors
	return nil
}

// retrieve returns the topK chunks ranked by cosine similarity to the query
// vector. The corpus is small enough that a linear scan is fine.
func (e *Engine) retrieve(query []float32) []string {
	type scored struct {
		index int
		score float64
	}

	ranked := make([]scored, len(e.vectors))
	for i, vec := range e.vectors {
		ranked[i] = scored{index: i, score: cosineSimilarity(query, vec)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	k := topK
	if k > len(ranked) {
		k = len(ranked)
	}

	result := make([]string, k)
	for i := 0; i < k; i++ {
		result[i] = e.chunks[ranked[i].index]
	}
	return result
}

func buildAnswerPrompt(contextChunks []string, query string) string {
	var b strings.Builder
	b.WriteString("Use the following pieces of context to answer the question at the end. ")
	b.WriteString("If you don't know the answer, just say that you don't know.\n\n")
	for _, chunk := range contextChunks {
		b.WriteString(chunk)
		b.WriteString("\n\n")
	}
	b.WriteString("Question: ")
	b.WriteString(query)
	b.WriteString("\nHelpful Answer:")
	return b.String()
}

// splitChunks splits text into fixed-size character chunks on rune
// boundaries, skipping whitespace-only pieces.
func splitChunks(text string, size int) []string {
	var chunks []string
	runes := []rune(text)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
