// Taskd is a task inference daemon. It ingests free-text content (chat
// messages, meeting transcripts, manual notes), infers actionable
// tasks using a two-tier LLM setup (cheap local classification, remote
// extraction), and persists them in SQLite behind a REST API.
//
// Usage:
//
//	# Start server with defaults
//	taskd
//
//	# Configure via file and environment
//	taskd -config /etc/taskd/config.yaml
//	TASKD_SERVER_PORT=8080 TASKD_EXTRACTION_ANTHROPIC_API_KEY=... taskd
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/taskd/internal/classify"
	"github.com/fyrsmithlabs/taskd/internal/config"
	"github.com/fyrsmithlabs/taskd/internal/extract"
	"github.com/fyrsmithlabs/taskd/internal/httpapi"
	"github.com/fyrsmithlabs/taskd/internal/logging"
	"github.com/fyrsmithlabs/taskd/internal/pipeline"
	"github.com/fyrsmithlabs/taskd/internal/store"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  taskd           Start the taskd daemon\n")
			fmt.Fprintf(os.Stderr, "  taskd version   Show version information\n")
			os.Exit(1)
		}
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("taskd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the taskd server and blocks until context is cancelled.
//
// Initialization order:
//  1. Load and validate configuration
//  2. Build logger
//  3. Open SQLite store and initialize schema
//  4. Construct classification and extraction clients
//  5. Wire the inference pipeline via dependency injection
//  6. Start the HTTP server
//  7. Graceful shutdown on context cancellation
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("starting taskd",
		zap.String("version", version),
		zap.String("extraction_provider", cfg.Extraction.Provider),
		logging.RedactedString("anthropic_api_key", cfg.Extraction.Anthropic.APIKey),
		logging.RedactedString("openai_api_key", cfg.Extraction.OpenAI.APIKey),
		zap.Bool("classification_enabled", cfg.Inference.ClassificationEnabled))

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	classifier := classify.NewClient(classify.Config{
		BaseURL: cfg.Classifier.BaseURL,
		Model:   cfg.Classifier.Model,
		Timeout: cfg.Classifier.TimeoutSeconds,
	})

	var extractor extract.Extractor
	ecfg := extractionConfig(cfg)
	if p, ok := ecfg.Providers[ecfg.Provider]; ok && p.APIKey == "" {
		logger.Warn("extraction API key not set, inference will return no tasks",
			zap.String("provider", ecfg.Provider))
		extractor = &extract.NoOpExtractor{}
	} else if extractor, err = extract.NewExtractor(ecfg); err != nil {
		return fmt.Errorf("failed to create extractor: %w", err)
	}

	pipe := pipeline.New(classifier, extractor, pipeline.NewStoreSink(st), pipeline.Options{
		ConfidenceThreshold:   cfg.Inference.ConfidenceThreshold,
		ClassificationEnabled: cfg.Inference.ClassificationEnabled,
	}, logger.Named("pipeline"))

	server, err := httpapi.NewServer(st, pipe, logger.Named("http"), &httpapi.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}

// extractionConfig maps app config onto the extractor factory config.
func extractionConfig(cfg *config.Config) extract.ExtractionConfig {
	return extract.ExtractionConfig{
		Provider: cfg.Extraction.Provider,
		Providers: map[string]extract.Config{
			"anthropic": {
				Model:     cfg.Extraction.Anthropic.Model,
				APIKey:    cfg.Extraction.Anthropic.APIKey,
				BaseURL:   cfg.Extraction.Anthropic.BaseURL,
				MaxTokens: cfg.Extraction.Anthropic.MaxTokens,
				Timeout:   cfg.Extraction.Anthropic.TimeoutSeconds,
			},
			"openai": {
				Model:     cfg.Extraction.OpenAI.Model,
				APIKey:    cfg.Extraction.OpenAI.APIKey,
				BaseURL:   cfg.Extraction.OpenAI.BaseURL,
				MaxTokens: cfg.Extraction.OpenAI.MaxTokens,
				Timeout:   cfg.Extraction.OpenAI.TimeoutSeconds,
			},
		},
	}
}
