/**
 * formscan Worker - Main Entry Point
 *
 * Consumes "formscan:process" jobs from the Redis-backed asynq queue and runs the
 * form extraction pipeline for each of them.
 *
 * Architecture:
 * - asynq consumer, one pipeline per concurrent handler
 * - Embedded page scans (pdfcpu) with a pdftoppm fallback
 * - Tesseract OCR through gosseract
 * - Ruled table extraction from the PDF content stream
 * - Job status events on Redis pub/sub
 */

package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Donskoy-Andrey/Documents-Parser/internal/config"
	"github.com/Donskoy-Andrey/Documents-Parser/internal/logging"
	"github.com/Donskoy-Andrey/Documents-Parser/internal/processor"
	"github.com/Donskoy-Andrey/Documents-Parser/internal/queue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Stdout)
	stop()
	os.Exit(code)
}

// run starts the worker and blocks until ctx is done. Resources opened here are
// closed before it returns, on every path.
func run(ctx context.Context, stdout io.Writer) int {
	cfg, err := config.LoadConfig(".env.formscan", ".env")
	if err != nil {
		logging.NewLoggerTo(stdout, "worker", logging.LevelInfo).Error("Failed to load configuration", "error", err)
		return 1
	}

	log := logging.NewLoggerTo(stdout, "worker", logging.ParseLevel(cfg.LogLevel))
	log.Info("formscan worker starting",
		"redis", cfg.RedisURL, "queue", cfg.QueueName, "workers", cfg.WorkerConcurrency)

	proc, err := processor.NewFromConfig(cfg, log)
	if err != nil {
		log.Error("Failed to initialize document processor", "error", err)
		return 1
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	events, err := queue.NewRedisEvents(pingCtx, cfg.RedisURL, cfg.QueueName, log)
	cancel()

	var publisher queue.Publisher
	if err != nil {
		log.Warn("Redis events unavailable, job status will not be published", "error", err)
	} else {
		defer func() {
			if err := events.Close(); err != nil {
				log.Warn("Failed to close Redis events", "error", err)
			}
		}()
		publisher = events
	}

	consumer, err := queue.NewConsumer(&queue.ConsumerConfig{
		RedisURL:          cfg.RedisURL,
		QueueName:         cfg.QueueName,
		Concurrency:       cfg.WorkerConcurrency,
		Processor:         proc,
		Events:            publisher,
		ProcessingTimeout: cfg.ProcessingTimeout,
		Logger:            log,
	})
	if err != nil {
		log.Error("Failed to initialize queue consumer", "error", err)
		return 1
	}

	if err := consumer.Start(); err != nil {
		log.Error("Failed to start queue consumer", "error", err)
		return 1
	}
	log.Info("Waiting for jobs", "task", queue.TypeProcessForm, "events", queue.EventsChannel(cfg.QueueName))

	<-ctx.Done()
	log.Info("Received signal, initiating graceful shutdown")

	consumer.Stop()
	stats := consumer.GetStatistics()
	log.Info("Consumer statistics", "completed", stats["completed"], "failed", stats["failed"])
	log.Info("Shutdown complete")
	return 0
}
