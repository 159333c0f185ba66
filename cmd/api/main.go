// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/neurocare-ai/companion-backend/internal/config"
	"github.com/neurocare-ai/companion-backend/internal/handler"
	"github.com/neurocare-ai/companion-backend/internal/history"
	"github.com/neurocare-ai/companion-backend/internal/intent"
	"github.com/neurocare-ai/companion-backend/internal/llm"
	"github.com/neurocare-ai/companion-backend/internal/middleware"
	"github.com/neurocare-ai/companion-backend/internal/nlu"
	"github.com/neurocare-ai/companion-backend/internal/places"
	"github.com/neurocare-ai/companion-backend/internal/rag"
	"github.com/neurocare-ai/companion-backend/internal/service"
	"github.com/neurocare-ai/companion-backend/pkg/logger"
	"github.com/neurocare-ai/companion-backend/pkg/tracing"
)

func main() {
	// Load .env if present; real environments set variables directly.
	_ = godotenv.Load()

	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting API server")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "companion-backend", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// History store: JetStream when NATS is configured, in-memory otherwise.
	var store history.Store
	var natsClient *history.Client
	if cfg.NATSURL != "" {
		natsClient, err = history.Connect(history.NATSConfig{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Error("failed to connect to NATS", zap.Error(err))
			os.Exit(1)
		}
		defer natsClient.Close()

		jsStore := history.NewJetStreamStore(natsClient)
		if err := jsStore.EnsureStream(ctx); err != nil {
			log.Error("failed to ensure history stream", zap.Error(err))
			os.Exit(1)
		}
		store = jsStore
	} else {
		log.Warn("NATS_URL not set, chat history will not survive restarts")
		store = history.NewMemoryStore()
	}

	completer, watsonx, err := buildCompleter(cfg)
	if err != nil {
		log.Error("failed to create completion client", zap.Error(err))
		os.Exit(1)
	}
	log.Info("completion provider ready", zap.String("provider", completer.Name()))

	geocoder := places.NewGeocoder(cfg.NominatimURL)
	overpass := places.NewOverpassClient(cfg.OverpassURL)
	resolver := places.NewResolver(geocoder, overpass, cfg.PlacesRadius, log)

	// RAG needs an embedding backend, which only watsonx provides.
	var retriever service.Retriever
	if cfg.RAGEnabled {
		if watsonx == nil {
			log.Warn("RAG_ENABLED is set but the active provider has no embedding support, disabling RAG")
		} else {
			retriever = rag.NewEngine(rag.Config{
				DocsPath:   cfg.RAGDocsPath,
				EmbedModel: cfg.RAGEmbedModel,
			}, watsonx, completer)
		}
	}

	chatSvc := service.NewChatService(
		intent.NewExtractor(completer),
		resolver,
		retriever,
		completer,
		store,
		log,
	)

	healthHandler := handler.NewHealthHandler(natsClient)
	chatHandler := handler.NewChatHandler(chatSvc, log)

	var emotionHandler *handler.EmotionHandler
	if cfg.NLUAPIKey != "" && cfg.NLUURL != "" {
		nluClient, err := nlu.NewClient(cfg.NLUAPIKey, cfg.NLUURL)
		if err != nil {
			log.Warn("failed to create NLU client, emotion endpoint disabled", zap.Error(err))
		} else {
			emotionHandler = handler.NewEmotionHandler(nluClient, log)
		}
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Requested-With"},
		ExposedHeaders: []string{"X-Correlation-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Post("/message", chatHandler.Message)
		r.Post("/welcome", chatHandler.Welcome)

		if emotionHandler != nil {
			r.Post("/emotion", emotionHandler.Analyze)
		}
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

// buildCompleter selects the completion provider. The watsonx client is
// returned separately because it doubles as the embedding backend.
func buildCompleter(cfg *config.Config) (llm.Client, *llm.WatsonxClient, error) {
	switch llm.Provider(cfg.CompletionProvider) {
	case llm.ProviderOpenAI:
		client, err := llm.NewOpenAIClient(cfg.OpenAIAPIKey)
		return client, nil, err
	case llm.ProviderAnthropic:
		client, err := llm.NewAnthropicClient(cfg.AnthropicAPIKey)
		return client, nil, err
	case llm.ProviderWatsonx:
		client, err := llm.NewWatsonxClient(llm.WatsonxConfig{
			APIKey:    cfg.WatsonxAPIKey,
			Region:    cfg.WatsonxRegion,
			ProjectID: cfg.WatsonxProjectID,
			IAMURL:    cfg.IAMURL,
			Model:     cfg.WatsonxModelID,
		})
		return client, client, err
	default:
		return nil, nil, fmt.Errorf("unknown completion provider %q", cfg.CompletionProvider)
	}
}
