/**
 * Job status events over Redis pub/sub
 *
 * Every status change of a job is published to "<queue>:events" so that submitters
 * and dashboards can follow progress without polling.
 */

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Donskoy-Andrey/Documents-Parser/internal/logging"
)

// Job statuses.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Event is one published status change.
type Event struct {
	Event     string                 `json:"event"`
	JobID     string                 `json:"jobId"`
	Timestamp string                 `json:"timestamp"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// Status returns the status part of the event name ("job:<status>").
func (e Event) Status() string {
	const prefix = "job:"
	if len(e.Event) > len(prefix) && e.Event[:len(prefix)] == prefix {
		return e.Event[len(prefix):]
	}
	return e.Event
}

// Terminal reports whether no further events follow for the job.
func (e Event) Terminal() bool {
	s := e.Status()
	return s == StatusCompleted || s == StatusFailed
}

// NewEvent builds an event stamped with the current time.
func NewEvent(jobID, status string, details map[string]interface{}) Event {
	return Event{
		Event:     fmt.Sprintf("job:%s", status),
		JobID:     jobID,
		Timestamp: time.Now().Format(time.RFC3339),
		Details:   details,
	}
}

// EventsChannel is the pub/sub channel of a queue.
func EventsChannel(queue string) string {
	return fmt.Sprintf("%s:events", queue)
}

// Publisher publishes job events. Publishing is best effort.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// RedisEvents publishes and subscribes to job events with go-redis.
type RedisEvents struct {
	client  *redis.Client
	channel string
	log     *logging.Logger
}

// NewRedisEvents connects to Redis and verifies the connection.
func NewRedisEvents(ctx context.Context, redisURL, queue string, log *logging.Logger) (*RedisEvents, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}
	if log == nil {
		log = logging.Nop()
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisEvents{client: client, channel: EventsChannel(queue), log: log}, nil
}

// Publish implements Publisher.
func (r *RedisEvents) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Watcher is an open subscription to the events channel.
type Watcher struct {
	sub     *redis.PubSub
	channel string
	log     *logging.Logger
}

// Watch subscribes to the events channel. Subscribe before submitting a job so
// that its events cannot be missed.
func (r *RedisEvents) Watch(ctx context.Context) (*Watcher, error) {
	sub := r.client.Subscribe(ctx, r.channel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}
	return &Watcher{sub: sub, channel: r.channel, log: r.log}, nil
}

// Wait blocks until a terminal event for jobID arrives or ctx is done.
func (w *Watcher) Wait(ctx context.Context, jobID string) (Event, error) {
	ch := w.sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return Event{}, fmt.Errorf("subscription to %s closed", w.channel)
			}
			ev, err := decodeEvent(msg.Payload)
			if err != nil {
				w.log.Warn("Skipping malformed event", "error", err)
				continue
			}
			if ev.JobID == jobID && ev.Terminal() {
				return ev, nil
			}
		}
	}
}

// Close ends the subscription.
func (w *Watcher) Close() error {
	return w.sub.Close()
}

// Close closes the Redis client.
func (r *RedisEvents) Close() error {
	return r.client.Close()
}

func decodeEvent(payload string) (Event, error) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return Event{}, err
	}
	return ev, nil
}
