package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	temporalclient "go.temporal.io/sdk/client"

	"github.com/medialens/medialens/internal/config"
	"github.com/medialens/medialens/internal/llm"
	"github.com/medialens/medialens/internal/llm/openai"
	"github.com/medialens/medialens/internal/perception"
	"github.com/medialens/medialens/internal/pipeline"
	temporalmod "github.com/medialens/medialens/internal/temporal"
	"github.com/medialens/medialens/internal/vector"
)

func main() {
	configPath := "configs/medialens.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	factory := llm.NewFactory()
	factory.Register("openai", func(c llm.ProviderConfig) (llm.Provider, error) {
		return openai.New(openai.Config{
			APIKey:          c.APIKey,
			BaseURL:         c.BaseURL,
			ChatModel:       c.ChatModel,
			VisionModel:     c.VisionModel,
			EmbedModel:      c.EmbedModel,
			TranscribeModel: c.TranscribeModel,
		}), nil
	})

	provider, err := factory.Create(llm.ProviderConfig{
		Provider:          "openai",
		APIKey:            cfg.Provider.APIKey,
		BaseURL:           cfg.Provider.BaseURL,
		ChatModel:         cfg.Provider.ChatModel,
		VisionModel:       cfg.Provider.VisionModel,
		EmbedModel:        cfg.Provider.EmbedModel,
		TranscribeModel:   cfg.Provider.TranscribeModel,
		Timeout:           cfg.Provider.Timeout,
		MaxRetries:        cfg.Provider.MaxRetries,
		RetryDelay:        cfg.Provider.RetryDelay,
		RequestsPerMinute: cfg.Provider.RequestsPerMinute,
	})
	if err != nil {
		log.Fatalf("creating provider: %v", err)
	}
	if provider == nil {
		log.Fatal("provider api_key is required for the worker")
	}

	ctx := context.Background()
	var store vector.Store
	if cfg.Vector.Backend == "qdrant" {
		store, err = vector.NewQdrant(ctx, cfg.Vector.Host, cfg.Vector.Port, cfg.Vector.Namespace, cfg.Vector.Dimension)
	} else {
		store, err = vector.NewEmbedded(cfg.Vector.Namespace, cfg.Vector.Dimension)
	}
	if err != nil {
		log.Fatalf("vector store: %v", err)
	}
	defer store.Close()

	p := pipeline.New(
		perception.New(provider, nil),
		vector.NewEmbedder(provider, nil),
		store,
		nil, nil,
		cfg.Chunk,
		cfg.Ingest,
		nil,
	)
	temporalmod.SetDependencies(&temporalmod.Dependencies{Pipeline: p})

	c, err := temporalclient.Dial(temporalclient.Options{
		HostPort:  cfg.Temporal.Host,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w, err := temporalmod.StartWorker(c, cfg.Temporal.TaskQueue)
	if err != nil {
		log.Fatalf("worker: %v", err)
	}

	fmt.Printf("Worker started on task queue: %s\n", cfg.Temporal.TaskQueue)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	w.Stop()
	fmt.Println("Worker stopped")
}
