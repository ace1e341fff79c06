package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/medialens/medialens/internal/config"
	"github.com/medialens/medialens/internal/llm"
	"github.com/medialens/medialens/internal/llm/openai"
	"github.com/medialens/medialens/internal/observability"
	"github.com/medialens/medialens/internal/perception"
	"github.com/medialens/medialens/internal/pipeline"
	"github.com/medialens/medialens/internal/search"
	"github.com/medialens/medialens/internal/server"
	temporalmod "github.com/medialens/medialens/internal/temporal"
	"github.com/medialens/medialens/internal/vector"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "medialens",
		Short: "Multimodal media ingestion and semantic search service",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/medialens.yaml", "Config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}

	var (
		fileType    string
		saveFrames  bool
		useWorkflow bool
		jsonOutput  bool
	)
	ingestCmd := &cobra.Command{
		Use:   "ingest <path>...",
		Short: "Ingest files or directories into the vector store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if useWorkflow {
				return runIngestWorkflow(cmd.Context(), configPath, args, saveFrames)
			}
			return runIngest(cmd.Context(), configPath, args, fileType, saveFrames, jsonOutput)
		},
	}
	ingestCmd.Flags().StringVar(&fileType, "type", "", "Force a content type (image, video, audio, document, url) for a single path")
	ingestCmd.Flags().BoolVar(&saveFrames, "save-frames", false, "Keep sampled video frames on disk")
	ingestCmd.Flags().BoolVar(&useWorkflow, "workflow", false, "Submit as a durable Temporal workflow instead of running in-process")
	ingestCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the result as JSON")

	var (
		topK      int
		threshold float32
	)
	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Semantic search over ingested media",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), configPath, args[0], topK, threshold, jsonOutput)
		},
	}
	searchCmd.Flags().IntVar(&topK, "top-k", 10, "Maximum number of results")
	searchCmd.Flags().Float32Var(&threshold, "threshold", 0, "Minimum similarity score")
	searchCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every vector in the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReset(cmd.Context(), configPath)
		},
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show vector store statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd.Context(), configPath)
		},
	}

	rootCmd.AddCommand(serveCmd, ingestCmd, searchCmd, resetCmd, statsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app bundles the wired components shared by the commands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    vector.Store
	pipeline *pipeline.Pipeline
	searcher *search.Searcher
	tracer   *observability.TracerProvider
}

func (a *app) close(ctx context.Context) {
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.logger.Warn("tracer shutdown failed", "error", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("store close failed", "error", err)
		}
	}
}

func buildApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: config load failed (%v), using defaults\n", err)
		cfg = &config.Config{}
		cfg.ApplyDefaults()
	}

	logger := buildLogger(cfg.Log)

	tracer, err := observability.InitTracing(ctx, &observability.TracingConfig{
		Environment:  cfg.Tracing.Environment,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SampleRate:   cfg.Tracing.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	provider, err := buildProvider(cfg.Provider)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg.Vector)
	if err != nil {
		return nil, fmt.Errorf("vector store: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, store: store, tracer: tracer}
	if provider != nil {
		embedder := vector.NewEmbedder(provider, logger)
		a.pipeline = pipeline.New(
			perception.New(provider, logger),
			embedder,
			store,
			nil, nil,
			cfg.Chunk,
			cfg.Ingest,
			logger,
		)
		a.searcher = search.New(embedder, store, logger)
	}
	return a, nil
}

func buildLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// buildProvider builds the model provider via the factory. Returns nil when
// the provider is disabled, which leaves only reset and stats usable.
func buildProvider(cfg config.ProviderConfig) (llm.Provider, error) {
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

	name := "openai"
	if cfg.APIKey == "" {
		name = "none"
	}
	return factory.Create(llm.ProviderConfig{
		Provider:          name,
		APIKey:            cfg.APIKey,
		BaseURL:           cfg.BaseURL,
		ChatModel:         cfg.ChatModel,
		VisionModel:       cfg.VisionModel,
		EmbedModel:        cfg.EmbedModel,
		TranscribeModel:   cfg.TranscribeModel,
		Timeout:           cfg.Timeout,
		MaxRetries:        cfg.MaxRetries,
		RetryDelay:        cfg.RetryDelay,
		RequestsPerMinute: cfg.RequestsPerMinute,
	})
}

func buildStore(ctx context.Context, cfg config.VectorConfig) (vector.Store, error) {
	if cfg.Backend == "qdrant" {
		return vector.NewQdrant(ctx, cfg.Host, cfg.Port, cfg.Namespace, cfg.Dimension)
	}
	return vector.NewEmbedded(cfg.Namespace, cfg.Dimension)
}

var errProviderRequired = errors.New("provider api_key is required for this command (set MEDIALENS_PROVIDER_API_KEY)")

func runServe(ctx context.Context, configPath string) error {
	a, err := buildApp(ctx, configPath)
	if err != nil {
		return err
	}
	if a.pipeline == nil {
		return errProviderRequired
	}

	health := server.NewHealthServer()
	health.RegisterCheck("vector_store", func(ctx context.Context) server.HealthCheck {
		if _, err := a.store.Stats(ctx); err != nil {
			return server.HealthCheck{Status: server.HealthStatusUnhealthy, Message: err.Error()}
		}
		return server.HealthCheck{Status: server.HealthStatusHealthy}
	})

	api := server.NewAPI(a.pipeline, a.searcher, a.store, health, a.logger)
	srv := &http.Server{Addr: a.cfg.Server.Addr, Handler: api.Handler()}

	shutdown := server.NewShutdownHandler(a.cfg.Server.ShutdownTimeout, a.logger)
	shutdown.RegisterHook(server.ShutdownHook{
		Name:     "http",
		Priority: server.PriorityHTTP,
		Fn:       srv.Shutdown,
	})
	shutdown.RegisterHook(server.ShutdownHook{
		Name:     "tracer",
		Priority: server.PriorityTracer,
		Fn:       a.tracer.Shutdown,
	})
	shutdown.RegisterHook(server.ShutdownHook{
		Name:     "store",
		Priority: server.PriorityStore,
		Fn:       func(context.Context) error { return a.store.Close() },
	})
	shutdown.Start()

	go func() {
		a.logger.Info("server listening", "addr", a.cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("server failed", "error", err)
			shutdown.Shutdown()
		}
	}()
	health.SetReady(true)

	shutdown.Wait()
	return nil
}

func runIngest(ctx context.Context, configPath string, paths []string, fileType string, saveFrames, jsonOutput bool) error {
	a, err := buildApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.close(ctx)
	if a.pipeline == nil {
		return errProviderRequired
	}

	// An explicit type runs each path through the single-item pipeline,
	// which is also the only way to ingest URLs.
	if fileType != "" {
		for _, path := range paths {
			res, err := a.pipeline.Ingest(ctx, pipeline.Request{
				FileURL:    path,
				FileType:   fileType,
				SaveFrames: saveFrames,
			})
			if err != nil {
				return err
			}
			if jsonOutput {
				data, _ := json.MarshalIndent(res, "", "  ")
				fmt.Println(string(data))
			} else {
				fmt.Printf("Ingested %s: %d vectors\n", res.Locator, res.Vectors)
			}
		}
		return nil
	}

	result, err := a.pipeline.IngestDirectory(ctx, paths)
	if err != nil {
		return err
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Processed: %d  Failed: %d  Skipped: %d\n", result.Processed, result.Failed, result.Skipped)
	for kind, count := range result.PerType {
		fmt.Printf("  %-10s %d\n", kind, count)
	}
	for _, failure := range result.Failures {
		fmt.Printf("  [FAIL] %s\n", failure)
	}
	return nil
}

// runIngestWorkflow submits the paths as a BulkIngestWorkflow and waits for
// the result. A worker (cmd/worker) must be running on the task queue.
func runIngestWorkflow(ctx context.Context, configPath string, paths []string, saveFrames bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	c, err := temporalclient.Dial(temporalclient.Options{
		HostPort:  cfg.Temporal.Host,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		return fmt.Errorf("temporal client: %w", err)
	}
	defer c.Close()

	run, err := c.ExecuteWorkflow(ctx, temporalclient.StartWorkflowOptions{
		TaskQueue: cfg.Temporal.TaskQueue,
	}, temporalmod.BulkIngestWorkflow, temporalmod.BulkIngestInput{
		Paths:            paths,
		SaveFrames:       saveFrames,
		ImageConcurrency: cfg.Ingest.ImageConcurrency,
	})
	if err != nil {
		return fmt.Errorf("start workflow: %w", err)
	}
	fmt.Printf("Started workflow %s\n", run.GetID())

	var output temporalmod.BulkIngestOutput
	if err := run.Get(ctx, &output); err != nil {
		return fmt.Errorf("workflow: %w", err)
	}

	fmt.Printf("Processed: %d  Failed: %d  Skipped: %d\n", output.Processed, output.Failed, output.Skipped)
	for _, failure := range output.Failures {
		fmt.Printf("  [FAIL] %s\n", failure)
	}
	return nil
}

func runSearch(ctx context.Context, configPath, query string, topK int, threshold float32, jsonOutput bool) error {
	a, err := buildApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.close(ctx)
	if a.searcher == nil {
		return errProviderRequired
	}

	results, err := a.searcher.Search(ctx, query, topK, threshold)
	if err != nil {
		return err
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}
	for i, r := range results {
		fmt.Printf("%2d. [%.3f] %-8s %s\n", i+1, r.Score, r.Type, r.Locator)
	}
	return nil
}

func runReset(ctx context.Context, configPath string) error {
	a, err := buildApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	if err := a.store.Clear(ctx); err != nil {
		return err
	}
	fmt.Println("Vector store cleared.")
	return nil
}

func runStats(ctx context.Context, configPath string) error {
	a, err := buildApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	stats, err := a.store.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Namespace: %s\nVectors:   %d\nDimension: %d\n", stats.Namespace, stats.Count, stats.Dimension)
	return nil
}
