package rag

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/neurocare-ai/companion-backend/internal/llm"
)

// keywordEmbedder maps texts onto a 2-dim space: coffee-ness and tea-ness.
type keywordEmbedder struct {
	batches int
}

func (f *keywordEmbedder) EmbedBatch(_ context.Context, _ string, texts []string) ([][]float32, error) {
	f.batches++
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		var v [2]float32
		if strings.Contains(text, "coffee") {
			v[0] = 1
		}
		if strings.Contains(text, "tea") {
			v[1] = 1
		}
		vecs[i] = v[:]
	}
	return vecs, nil
}

// flakyEmbedder fails a configured number of batches before recovering.
type flakyEmbedder struct {
	keywordEmbedder
	failures int
}

func (f *flakyEmbedder) EmbedBatch(ctx context.Context, model string, texts []string) ([][]float32, error) {
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("embedding service unavailable")
	}
	return f.keywordEmbedder.EmbedBatch(ctx, model, texts)
}

type echoCompleter struct {
	lastPrompt string
	lastReq    *llm.CompletionRequest
}

func (f *echoCompleter) Complete(_ context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.lastPrompt = req.Messages[0].Content
	f.lastReq = req
	return &llm.CompletionResponse{Content: "  the answer  "}, nil
}

func (f *echoCompleter) Name() string { return "fake" }

func writeKnowledgeFile(t *testing.T) string {
	t.Helper()
	// Two topical sections, each padded beyond one chunk boundary.
	coffee := "coffee is roasted and brewed " + strings.Repeat("x ", 600)
	tea := "tea is steeped in hot water " + strings.Repeat("y ", 600)
	path := filepath.Join(t.TempDir(), "knowledge.txt")
	require.NoError(t, os.WriteFile(path, []byte(coffee+tea), 0o644))
	return path
}

func TestAnswerRetrievesRelevantChunks(t *testing.T) {
	embedder := &keywordEmbedder{}
	completer := &echoCompleter{}
	e := NewEngine(Config{DocsPath: writeKnowledgeFile(t), EmbedModel: "m"}, embedder, completer)

	answer, err := e.Answer(context.Background(), "how is coffee made")
	require.NoError(t, err)
	require.Equal(t, "the answer", answer, "response must be trimmed")

	require.Contains(t, completer.lastPrompt, "coffee is roasted")
	require.Contains(t, completer.lastPrompt, "Question: how is coffee made")

	// coffee chunk must be ranked first in the stuffed context
	require.Less(t,
		strings.Index(completer.lastPrompt, "coffee is roasted"),
		strings.Index(completer.lastPrompt, "tea is steeped"),
	)
}

func TestIndexBuiltOnce(t *testing.T) {
	embedder := &keywordEmbedder{}
	e := NewEngine(Config{DocsPath: writeKnowledgeFile(t), EmbedModel: "m"}, embedder, &echoCompleter{})

	_, err := e.Answer(context.Background(), "coffee")
	require.NoError(t, err)
	afterFirst := embedder.batches

	_, err = e.Answer(context.Background(), "tea")
	require.NoError(t, err)

	// one extra batch for the second query, none for re-indexing
	require.Equal(t, afterFirst+1, embedder.batches)
}

func TestAnswerRequestsGreedyDecoding(t *testing.T) {
	completer := &echoCompleter{}
	e := NewEngine(Config{DocsPath: writeKnowledgeFile(t), EmbedModel: "m"}, &keywordEmbedder{}, completer)

	_, err := e.Answer(context.Background(), "coffee")
	require.NoError(t, err)

	require.NotNil(t, completer.lastReq)
	require.Zero(t, completer.lastReq.Temperature, "retrieval answers must use greedy decoding")
	require.Zero(t, completer.lastReq.TopP)
	require.Equal(t, answerMaxTokens, completer.lastReq.MaxTokens)
}

func TestIndexRetriedAfterEmbeddingFailure(t *testing.T) {
	embedder := &flakyEmbedder{failures: 1}
	e := NewEngine(Config{DocsPath: writeKnowledgeFile(t), EmbedModel: "m"}, embedder, &echoCompleter{})

	_, err := e.Answer(context.Background(), "coffee")
	require.Error(t, err)

	// The failed build must not be cached; the next call rebuilds the
	// index once the embedder is back.
	answer, err := e.Answer(context.Background(), "coffee")
	require.NoError(t, err)
	require.Equal(t, "the answer", answer)
}

func TestAnswerMissingKnowledgeFile(t *testing.T) {
	e := NewEngine(Config{DocsPath: "/does/not/exist.txt", EmbedModel: "m"}, &keywordEmbedder{}, &echoCompleter{})

	_, err := e.Answer(context.Background(), "anything")
	require.Error(t, err)
}

func TestSplitChunks(t *testing.T) {
	chunks := splitChunks(strings.Repeat("a", 2500), 1000)
	require.Len(t, chunks, 3)
	require.Len(t, chunks[0], 1000)
	require.Len(t, chunks[2], 500)

	require.Empty(t, splitChunks("   \n  ", 1000))
}
