package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/talent-pipeline/internal/ai"
	"github.com/jonathan/talent-pipeline/internal/config"
	"github.com/jonathan/talent-pipeline/internal/db"
	"github.com/jonathan/talent-pipeline/internal/features"
	"github.com/jonathan/talent-pipeline/internal/logger"
	"github.com/jonathan/talent-pipeline/internal/parsing"
	"github.com/jonathan/talent-pipeline/internal/pipeline"
	"github.com/jonathan/talent-pipeline/internal/queue"
	"github.com/jonathan/talent-pipeline/internal/scoring"
	"github.com/jonathan/talent-pipeline/internal/storage"
	"github.com/jonathan/talent-pipeline/internal/usage"
)

// sweepInterval is how often the worker fails stale processing resumes.
const sweepInterval = 5 * time.Minute

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the resume processing worker",
	Long:  `Consume resume processing messages from the broker, run parsing and AI scoring, and persist candidates, scores, and applications.`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, _ []string) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	if !cfg.QueueEnabled() {
		return fmt.Errorf("RABBITMQ_URL is required to run the worker")
	}

	log, err := logger.New(cfg.LogJSON, cfg.LogDebug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	provider, err := ai.NewProvider(ctx, ai.Config{
		Provider: cfg.AIProvider,
		APIKey:   cfg.GeminiAPIKey,
	})
	if err != nil {
		return err
	}
	if health := provider.HealthCheck(ctx); health.Status == ai.HealthError {
		return fmt.Errorf("AI provider unavailable: %s", health.Details)
	}

	blobs, err := storage.NewLocalStore(cfg.StorageDir)
	if err != nil {
		return err
	}

	rabbit, err := queue.Dial(cfg.RabbitURL, queue.Queues{
		Processing: cfg.ProcessingQueue,
		Results:    cfg.ResultQueue,
		DeadLetter: cfg.DeadLetterQueue,
	})
	if err != nil {
		return err
	}
	defer rabbit.Close()

	publisher := queue.NewPublisher(rabbit, log)
	parser := parsing.NewParser(provider, cfg.MaxUploadBytes, log)
	resolver := features.NewResolver(database, log)
	ledger := usage.NewLedger(database, log)
	agent := scoring.NewAgent(resolver, database, provider, log)
	orchestrator := pipeline.NewOrchestrator(database, blobs, parser, ledger, agent, publisher, cfg.StaleResumeTimeout, log)
	consumer := queue.NewConsumer(rabbit, publisher, orchestrator, database, blobs,
		cfg.ConsumerConcurrency, cfg.MaxAttempts, log)

	go runSweeper(ctx, orchestrator, log)

	log.Info("worker starting",
		zap.String("provider", cfg.AIProvider),
		zap.Int("concurrency", cfg.ConsumerConcurrency),
		zap.Int("max_attempts", cfg.MaxAttempts))

	if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	log.Info("worker stopped")
	return nil
}

// runSweeper periodically fails resumes stuck in processing, covering worker
// crashes that left rows behind.
func runSweeper(ctx context.Context, orchestrator *pipeline.Orchestrator, log *zap.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := orchestrator.SweepStaleResumes(ctx); err != nil {
				log.Error("stale resume sweep failed", zap.Error(err))
			}
		}
	}
}
