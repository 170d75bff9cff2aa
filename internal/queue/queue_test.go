package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "github.com/Donskoy-Andrey/Documents-Parser/internal/errors"
	"github.com/Donskoy-Andrey/Documents-Parser/internal/forms"
	"github.com/Donskoy-Andrey/Documents-Parser/internal/processor"
	"github.com/Donskoy-Andrey/Documents-Parser/internal/validate"
)

type call struct {
	path  string
	bytes int
	kind  forms.Kind
	opts  processor.Options
}

type fakeProcessor struct {
	calls []call
	err   error
}

func (f *fakeProcessor) result(kind forms.Kind, opts processor.Options) (*processor.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &processor.Result{
		DocumentID: opts.DocumentID,
		Form:       kind,
		Outcome:    &validate.Outcome{Accepted: true, Locations: []validate.Location{}, Reasons: []string{}},
	}, nil
}

func (f *fakeProcessor) Process(_ context.Context, path string, kind forms.Kind, opts processor.Options) (*processor.Result, error) {
	f.calls = append(f.calls, call{path: path, kind: kind, opts: opts})
	return f.result(kind, opts)
}

func (f *fakeProcessor) ProcessBytes(_ context.Context, data []byte, kind forms.Kind, opts processor.Options) (*processor.Result, error) {
	f.calls = append(f.calls, call{bytes: len(data), kind: kind, opts: opts})
	return f.result(kind, opts)
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) statuses() []string {
	var out []string
	for _, ev := range r.events {
		out = append(out, ev.Status())
	}
	return out
}

func newTestConsumer(t *testing.T, proc *fakeProcessor) (*Consumer, *recorder) {
	t.Helper()
	rec := &recorder{}
	c, err := newHandler(&ConsumerConfig{QueueName: "formscan", Processor: proc, Events: rec})
	require.NoError(t, err)
	return c, rec
}

func task(t *testing.T, p *JobPayload) *asynq.Task {
	t.Helper()
	tk, err := NewProcessTask(p)
	require.NoError(t, err)
	return tk
}

func TestPayloadFileBufferFormats(t *testing.T) {
	var p JobPayload
	require.NoError(t, json.Unmarshal([]byte(`{"jobId":"1","form":"m11","fileBuffer":"JVBERg=="}`), &p))
	assert.Equal(t, []byte("%PDF"), p.FileBuffer)
	assert.Equal(t, "m11", p.Form)

	p = JobPayload{}
	require.NoError(t, json.Unmarshal([]byte(`{"jobId":"2","form":"fmu76","fileBuffer":{"type":"Buffer","data":[37,80,68,70]}}`), &p))
	assert.Equal(t, []byte("%PDF"), p.FileBuffer)

	assert.Error(t, json.Unmarshal([]byte(`{"fileBuffer":{"type":"Blob"}}`), &p))
	assert.Error(t, json.Unmarshal([]byte(`{"fileBuffer":42}`), &p))
}

func TestPayloadRoundTripThroughTask(t *testing.T) {
	in := &JobPayload{JobID: "j", FileBuffer: []byte("%PDF-1.4"), Form: "fmu76", Committee: true}
	tk := task(t, in)
	assert.Equal(t, TypeProcessForm, tk.Type())

	var out JobPayload
	require.NoError(t, json.Unmarshal(tk.Payload(), &out))
	assert.Equal(t, *in, out)
}

func TestPayloadValidate(t *testing.T) {
	assert.Error(t, (&JobPayload{JobID: "x"}).Validate())
	assert.Error(t, (&JobPayload{JobID: "x", Path: "a.pdf", FileBuffer: []byte("b")}).Validate())
	assert.NoError(t, (&JobPayload{JobID: "x", Path: "a.pdf"}).Validate())
}

func TestEventStatus(t *testing.T) {
	ev := NewEvent("j", StatusCompleted, nil)
	assert.Equal(t, "job:completed", ev.Event)
	assert.Equal(t, StatusCompleted, ev.Status())
	assert.True(t, ev.Terminal())
	assert.False(t, NewEvent("j", StatusProcessing, nil).Terminal())
	assert.Equal(t, "formscan:events", EventsChannel("formscan"))
}

func TestProcessTaskPath(t *testing.T) {
	proc := &fakeProcessor{}
	c, rec := newTestConsumer(t, proc)

	err := c.ProcessTask(context.Background(), task(t, &JobPayload{JobID: "job-1", Path: "/data/a.pdf", Form: "ФМУ-76", Committee: true}))
	require.NoError(t, err)

	require.Len(t, proc.calls, 1)
	assert.Equal(t, "/data/a.pdf", proc.calls[0].path)
	assert.Equal(t, forms.KindFMU76, proc.calls[0].kind)
	assert.Equal(t, processor.Options{Committee: true, DocumentID: "job-1"}, proc.calls[0].opts)
	assert.Equal(t, []string{StatusProcessing, StatusCompleted}, rec.statuses())
	assert.Equal(t, true, rec.events[1].Details["accepted"])
}

func TestProcessTaskBuffer(t *testing.T) {
	proc := &fakeProcessor{}
	c, _ := newTestConsumer(t, proc)

	err := c.ProcessTask(context.Background(), task(t, &JobPayload{JobID: "job-2", FileBuffer: []byte("%PDF-1.4"), Form: "m11"}))
	require.NoError(t, err)
	require.Len(t, proc.calls, 1)
	assert.Equal(t, 8, proc.calls[0].bytes)
}

func TestProcessTaskInvalidJobSkipsRetry(t *testing.T) {
	proc := &fakeProcessor{}
	c, rec := newTestConsumer(t, proc)

	err := c.ProcessTask(context.Background(), task(t, &JobPayload{JobID: "job-3", Path: "a.pdf", Form: "m-99"}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
	assert.Empty(t, proc.calls)
	assert.Equal(t, []string{StatusFailed}, rec.statuses())

	err = c.ProcessTask(context.Background(), asynq.NewTask(TypeProcessForm, []byte("{")))
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestProcessTaskFailures(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		skipRetry bool
	}{
		{"structural", ferrors.NewStructuralError("lines", "no lines"), true},
		{"invalid input", ferrors.NewInvalidInputError("a.pdf", "not a pdf"), true},
		{"rasterizer", ferrors.NewRasterizeFailedError("a.pdf", errors.New("boom")), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newTestConsumer(t, &fakeProcessor{err: tt.err})

			err := c.ProcessTask(context.Background(), task(t, &JobPayload{JobID: "job-4", Path: "a.pdf", Form: "m11"}))
			require.Error(t, err)
			assert.Equal(t, tt.skipRetry, errors.Is(err, asynq.SkipRetry))
			assert.Equal(t, []string{StatusProcessing, StatusFailed}, rec.statuses())
			assert.Equal(t, string(ferrors.CodeOf(tt.err)), rec.events[1].Details["error_code"])
		})
	}
}

func TestNewConsumerValidation(t *testing.T) {
	_, err := NewConsumer(&ConsumerConfig{QueueName: "q", Processor: &fakeProcessor{}})
	assert.Error(t, err)
	_, err = NewConsumer(&ConsumerConfig{RedisURL: "redis://localhost:6379", Processor: &fakeProcessor{}})
	assert.Error(t, err)
}

func TestConsumerStatistics(t *testing.T) {
	c, _ := newTestConsumer(t, &fakeProcessor{})
	require.NoError(t, c.ProcessTask(context.Background(), task(t, &JobPayload{JobID: "ok", Path: "a.pdf", Form: "m11"})))
	require.Error(t, c.ProcessTask(context.Background(), task(t, &JobPayload{JobID: "bad", Path: "a.pdf", Form: "m-99"})))

	stats := c.GetStatistics()
	assert.Equal(t, int64(1), stats["completed"])
	assert.Equal(t, int64(1), stats["failed"])
	assert.Equal(t, "formscan", stats["queue"])
}

type fakeInspector struct {
	infos []*asynq.TaskInfo
	calls int
}

func (f *fakeInspector) GetTaskInfo(queue, id string) (*asynq.TaskInfo, error) {
	info := f.infos[f.calls]
	if f.calls < len(f.infos)-1 {
		f.calls++
	}
	return info, nil
}

func (f *fakeInspector) Close() error { return nil }

func newTestSubmitter(infos ...*asynq.TaskInfo) (*Submitter, *fakeInspector) {
	in := &fakeInspector{infos: infos}
	return &Submitter{inspector: in, queue: "formscan", poll: time.Millisecond}, in
}

func TestResultOfActiveTaskWithStoredResult(t *testing.T) {
	// The worker writes the result and publishes completion before asynq marks
	// the task completed.
	sub, _ := newTestSubmitter(&asynq.TaskInfo{ID: "j", State: asynq.TaskStateActive, Result: []byte(`{"form":"m11"}`)})

	data, err := sub.Result(context.Background(), "j")
	require.NoError(t, err)
	assert.JSONEq(t, `{"form":"m11"}`, string(data))
}

func TestResultPollsUntilSettled(t *testing.T) {
	sub, in := newTestSubmitter(
		&asynq.TaskInfo{ID: "j", State: asynq.TaskStateActive},
		&asynq.TaskInfo{ID: "j", State: asynq.TaskStateActive},
		&asynq.TaskInfo{ID: "j", State: asynq.TaskStateCompleted, Result: []byte(`{}`)},
	)

	data, err := sub.Result(context.Background(), "j")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{}`), data)
	assert.Equal(t, 2, in.calls)
}

func TestResultFailures(t *testing.T) {
	sub, _ := newTestSubmitter(&asynq.TaskInfo{ID: "j", State: asynq.TaskStateArchived, LastErr: "boom"})
	_, err := sub.Result(context.Background(), "j")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	sub, _ = newTestSubmitter(&asynq.TaskInfo{ID: "j", State: asynq.TaskStateCompleted})
	_, err = sub.Result(context.Background(), "j")
	assert.Error(t, err)

	sub, _ = newTestSubmitter(&asynq.TaskInfo{ID: "j", State: asynq.TaskStateActive})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = sub.Result(ctx, "j")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
