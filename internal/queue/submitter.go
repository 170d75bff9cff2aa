package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// ResultRetention keeps completed task results readable by submitters.
const ResultRetention = 24 * time.Hour

// DefaultResultPollInterval is how often Result re-reads a task that has no result yet.
const DefaultResultPollInterval = 200 * time.Millisecond

// taskInspector is the part of asynq.Inspector the submitter reads results with.
type taskInspector interface {
	GetTaskInfo(queue, id string) (*asynq.TaskInfo, error)
	Close() error
}

// Submitter enqueues form processing jobs and reads their results back.
type Submitter struct {
	client    *asynq.Client
	inspector taskInspector
	queue     string
	poll      time.Duration
}

// NewSubmitter creates a submitter for queue.
func NewSubmitter(redisURL, queue string) (*Submitter, error) {
	if queue == "" {
		return nil, fmt.Errorf("QueueName is required")
	}
	redisOpt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return &Submitter{
		client:    asynq.NewClient(redisOpt),
		inspector: asynq.NewInspector(redisOpt),
		queue:     queue,
		poll:      DefaultResultPollInterval,
	}, nil
}

// Submit enqueues the job and returns its ID. A job ID is generated when empty.
func (s *Submitter) Submit(ctx context.Context, job *JobPayload) (string, error) {
	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	if err := job.Validate(); err != nil {
		return "", err
	}
	task, err := NewProcessTask(job)
	if err != nil {
		return "", err
	}
	info, err := s.client.EnqueueContext(ctx, task,
		asynq.Queue(s.queue),
		asynq.TaskID(job.JobID),
		asynq.Retention(ResultRetention),
	)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue job %s: %w", job.JobID, err)
	}
	return info.ID, nil
}

// Result returns the stored JSON result of a job. The worker writes the result
// before the task is marked completed, so an active task that already carries a
// result is done; otherwise Result polls until the task settles or ctx ends.
func (s *Submitter) Result(ctx context.Context, jobID string) ([]byte, error) {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		info, err := s.inspector.GetTaskInfo(s.queue, jobID)
		if err != nil {
			return nil, fmt.Errorf("failed to get job %s: %w", jobID, err)
		}
		if data, done, err := resultOf(info); done {
			return data, err
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("job %s is %s: %w", jobID, info.State, ctx.Err())
		case <-ticker.C:
		}
	}
}

// resultOf reports whether info is final and, if so, its result.
func resultOf(info *asynq.TaskInfo) ([]byte, bool, error) {
	if len(info.Result) > 0 {
		return info.Result, true, nil
	}
	switch info.State {
	case asynq.TaskStateCompleted:
		return nil, true, fmt.Errorf("job %s completed without a result", info.ID)
	case asynq.TaskStateArchived:
		return nil, true, fmt.Errorf("job %s failed: %s", info.ID, info.LastErr)
	}
	return nil, false, nil
}

// Close releases the Redis connections.
func (s *Submitter) Close() error {
	if err := s.inspector.Close(); err != nil {
		s.client.Close()
		return err
	}
	return s.client.Close()
}
