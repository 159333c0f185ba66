// Command listmodels prints the foundation models available to the configured
// watsonx.ai instance. Useful for picking a MODEL_ID.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/neurocare-ai/companion-backend/internal/config"
	"github.com/neurocare-ai/companion-backend/internal/llm"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	client, err := llm.NewWatsonxClient(llm.WatsonxConfig{
		APIKey:    cfg.WatsonxAPIKey,
		Region:    cfg.WatsonxRegion,
		ProjectID: cfg.WatsonxProjectID,
		IAMURL:    cfg.IAMURL,
		Model:     cfg.WatsonxModelID,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "listmodels: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	models, err := client.ListModels(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "listmodels: %v\n", err)
		os.Exit(1)
	}

	for _, id := range models {
		fmt.Println(id)
	}
}
