// Package config provides environment configuration for the API server.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// NATS settings (history store; in-memory fallback when URL is empty)
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// Completion provider settings
	CompletionProvider string
	WatsonxAPIKey      string
	WatsonxRegion      string
	WatsonxProjectID   string
	WatsonxModelID     string
	IAMURL             string
	OpenAIAPIKey       string
	AnthropicAPIKey    string

	// Place resolution
	NominatimURL string
	OverpassURL  string
	PlacesRadius int

	// Retrieval
	RAGEnabled    bool
	RAGDocsPath   string
	RAGEmbedModel string

	// Emotion analysis (IBM NLU)
	NLUAPIKey string
	NLUURL    string

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),

		// NATS
		NATSURL:      getEnv("NATS_URL", ""),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// Completion
		CompletionProvider: getEnv("COMPLETION_PROVIDER", "watsonx"),
		WatsonxAPIKey:      getEnv("WATSONX_API_KEY", ""),
		WatsonxRegion:      getEnv("WATSONX_REGION", "https://us-south.ml.cloud.ibm.com"),
		WatsonxProjectID:   getEnv("PROJECT_ID", ""),
		WatsonxModelID:     getEnv("MODEL_ID", "meta-llama/llama-3-2-3b-instruct"),
		IAMURL:             getEnv("IAM_URL", "https://iam.cloud.ibm.com/identity/token"),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey:    getEnv("ANTHROPIC_API_KEY", ""),

		// Places
		NominatimURL: getEnv("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
		OverpassURL:  getEnv("OVERPASS_URL", "https://overpass-api.de/api/interpreter"),
		PlacesRadius: getIntEnv("PLACES_RADIUS", 1000),

		// Retrieval
		RAGEnabled:    getBoolEnv("RAG_ENABLED", false),
		RAGDocsPath:   getEnv("RAG_DOCS_PATH", "docs/knowledge.txt"),
		RAGEmbedModel: getEnv("RAG_EMBED_MODEL", "sentence-transformers/all-minilm-l6-v2"),

		// Emotion analysis
		NLUAPIKey: getEnv("NLU_API_KEY", ""),
		NLUURL:    getEnv("NLU_URL", ""),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
