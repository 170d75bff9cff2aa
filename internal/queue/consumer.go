/**
 * Queue Consumer for formscan
 *
 * Consumes form processing jobs from Redis through asynq. Results are written to
 * the task result so submitters can read them back, and status changes are published
 * as events. Jobs are never retried.
 */

package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hibiken/asynq"

	ferrors "github.com/Donskoy-Andrey/Documents-Parser/internal/errors"
	"github.com/Donskoy-Andrey/Documents-Parser/internal/forms"
	"github.com/Donskoy-Andrey/Documents-Parser/internal/logging"
	"github.com/Donskoy-Andrey/Documents-Parser/internal/processor"
)

// DefaultProcessingTimeout applies when the consumer config leaves it unset.
const DefaultProcessingTimeout = 5 * time.Minute

// Consumer handles job consumption from Redis queue
type Consumer struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor processor.DocumentProcessorInterface
	events    Publisher
	config    *ConsumerConfig
	log       *logging.Logger

	completed atomic.Int64
	failed    atomic.Int64
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	RedisURL          string
	QueueName         string
	Concurrency       int
	Processor         processor.DocumentProcessorInterface
	Events            Publisher
	ProcessingTimeout time.Duration
	Logger            *logging.Logger
}

// NewConsumer creates a new queue consumer
func NewConsumer(cfg *ConsumerConfig) (*Consumer, error) {
	c, err := newHandler(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	c.server = asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				cfg.QueueName: 10,
				"default":     1,
			},
			Logger:   logging.AsynqLogger{L: c.log.With("component", "asynq")},
			LogLevel: asynq.InfoLevel,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				c.log.Error("Task processing error", "type", task.Type(), "error", err)
			}),
		},
	)
	return c, nil
}

// newHandler builds the consumer without a server, for task handling alone.
func newHandler(cfg *ConsumerConfig) (*Consumer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.QueueName == "" {
		return nil, fmt.Errorf("QueueName is required")
	}
	if cfg.Processor == nil {
		return nil, fmt.Errorf("Processor is required")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.ProcessingTimeout <= 0 {
		cfg.ProcessingTimeout = DefaultProcessingTimeout
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Nop()
	}

	c := &Consumer{
		mux:       asynq.NewServeMux(),
		processor: cfg.Processor,
		events:    cfg.Events,
		config:    cfg,
		log:       log,
	}
	c.mux.HandleFunc(TypeProcessForm, c.ProcessTask)
	return c, nil
}

// Start starts the queue consumer
func (c *Consumer) Start() error {
	c.log.Info("Starting queue consumer", "concurrency", c.config.Concurrency, "queue", c.config.QueueName)
	return c.server.Start(c.mux)
}

// Stop stops the queue consumer gracefully
func (c *Consumer) Stop() {
	c.log.Info("Stopping queue consumer")
	c.server.Shutdown()
	c.log.Info("Queue consumer stopped")
}

// ProcessTask handles one form processing task. Invalid input and structural
// failures skip retry; they would fail again on the same document.
func (c *Consumer) ProcessTask(ctx context.Context, task *asynq.Task) error {
	startTime := time.Now()

	var job JobPayload
	if err := json.Unmarshal(task.Payload(), &job); err != nil {
		c.failed.Add(1)
		return fmt.Errorf("failed to unmarshal job data: %v: %w", err, asynq.SkipRetry)
	}
	log := c.log.With("job", job.JobID)

	kind, err := forms.ParseKind(job.Form)
	if err == nil {
		err = job.Validate()
	}
	if err != nil {
		c.failed.Add(1)
		c.publish(ctx, job.JobID, StatusFailed, ferrors.NewInvalidInputError(job.Path, err.Error()).ToMap())
		return fmt.Errorf("invalid job: %v: %w", err, asynq.SkipRetry)
	}

	log.Info("Processing form", "form", kind, "committee", job.Committee, "path", job.Path, "bytes", len(job.FileBuffer))
	c.publish(ctx, job.JobID, StatusProcessing, nil)

	processCtx, cancel := context.WithTimeout(ctx, c.config.ProcessingTimeout)
	defer cancel()

	opts := processor.Options{Committee: job.Committee, DocumentID: job.JobID}
	var result *processor.Result
	if len(job.FileBuffer) > 0 {
		result, err = c.processor.ProcessBytes(processCtx, job.FileBuffer, kind, opts)
	} else {
		result, err = c.processor.Process(processCtx, job.Path, kind, opts)
	}
	duration := time.Since(startTime)

	if err != nil {
		if processCtx.Err() == context.DeadlineExceeded && ferrors.CodeOf(err) != ferrors.ErrorProcessingTimeout {
			err = ferrors.NewProcessingTimeoutError(job.JobID, c.config.ProcessingTimeout, err)
		}
		log.Error("Processing failed", "duration", duration, "error", err)
		c.failed.Add(1)
		c.publish(ctx, job.JobID, StatusFailed, failureDetails(err, duration))

		if ferrors.IsFatalForDocument(err) {
			return fmt.Errorf("document processing failed: %v: %w", err, asynq.SkipRetry)
		}
		return fmt.Errorf("document processing failed: %w", err)
	}

	data, err := json.Marshal(result)
	if err != nil {
		c.failed.Add(1)
		return fmt.Errorf("failed to marshal result: %v: %w", err, asynq.SkipRetry)
	}
	if w := task.ResultWriter(); w != nil {
		if _, err := w.Write(data); err != nil {
			log.Warn("Failed to write task result", "error", err)
		}
	}

	c.completed.Add(1)
	log.Info("Processing completed", "duration", duration, "accepted", result.Outcome.Accepted)
	c.publish(ctx, job.JobID, StatusCompleted, map[string]interface{}{
		"accepted":       result.Outcome.Accepted,
		"issues":         len(result.Outcome.Locations),
		"processingTime": duration.Milliseconds(),
	})
	return nil
}

func (c *Consumer) publish(ctx context.Context, jobID, status string, details map[string]interface{}) {
	if c.events == nil {
		return
	}
	if err := c.events.Publish(ctx, NewEvent(jobID, status, details)); err != nil {
		c.log.Warn("Failed to publish job event", "job", jobID, "status", status, "error", err)
	}
}

func failureDetails(err error, duration time.Duration) map[string]interface{} {
	var pe *ferrors.ProcessingError
	if errors.As(err, &pe) {
		m := pe.ToMap()
		m["processingTime"] = duration.Milliseconds()
		return m
	}
	return map[string]interface{}{
		"error":          err.Error(),
		"processingTime": duration.Milliseconds(),
	}
}

// GetStatistics returns consumer statistics
func (c *Consumer) GetStatistics() map[string]interface{} {
	return map[string]interface{}{
		"concurrency": c.config.Concurrency,
		"queue":       c.config.QueueName,
		"completed":   c.completed.Load(),
		"failed":      c.failed.Load(),
	}
}
