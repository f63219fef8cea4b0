package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/JHodgkins/Test-Recorder-Extension/internal/taskqueue"
	"github.com/JHodgkins/Test-Recorder-Extension/pkg/api"
)

type recordingProcessor struct {
	mu    sync.Mutex
	tasks []taskqueue.Task
	delay func(t taskqueue.Task) time.Duration
}

func (p *recordingProcessor) ProcessCandidate(ctx context.Context, t taskqueue.Task) {
	if p.delay != nil {
		time.Sleep(p.delay(t))
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tasks = append(p.tasks, t)
}

func (p *recordingProcessor) processed() []taskqueue.Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]taskqueue.Task(nil), p.tasks...)
}

func candidateTask(id string) taskqueue.Task {
	return taskqueue.Task{
		ID:         id,
		SessionID:  "s1",
		TabID:      "tab-1",
		Candidate:  api.StepCandidate{EventType: api.EventLeftClick, ElementDescription: id},
		AcceptedAt: time.Now(),
	}
}

func TestWorker_ProcessOneRunsTask(t *testing.T) {
	ctx := context.Background()
	q := taskqueue.NewInMemoryQueue(10)
	p := &recordingProcessor{}
	w := New(p, q)

	if err := q.Enqueue(ctx, candidateTask("a")); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	processed, err := w.ProcessOne(ctx)
	if err != nil {
		t.Fatalf("ProcessOne failed: %v", err)
	}
	if !processed {
		t.Fatalf("expected a task to be processed")
	}

	got := p.processed()
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("unexpected processed tasks: %+v", got)
	}
	if q.Len() != 0 {
		t.Fatalf("expected empty queue, got %d", q.Len())
	}
}

func TestWorker_ProcessOneHonorsCancellation(t *testing.T) {
	q := taskqueue.NewInMemoryQueue(10)
	w := New(&recordingProcessor{}, q)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	processed, err := w.ProcessOne(ctx)
	if processed {
		t.Fatalf("expected nothing processed on cancelled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPool_DrainsQueueAfterClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	q := taskqueue.NewInMemoryQueue(100)
	p := &recordingProcessor{}
	pool := NewPool(p, q, nil)

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		if err := q.Enqueue(ctx, candidateTask(id)); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	if err := pool.Start(ctx, 3); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := pool.Start(ctx, 3); err == nil {
		t.Fatalf("expected error starting a running pool")
	}

	q.Close()
	pool.Wait()

	if got := len(p.processed()); got != 5 {
		t.Fatalf("expected 5 processed tasks, got %d", got)
	}
}

func TestPool_SlowPipelineDoesNotBlockOthers(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	q := taskqueue.NewInMemoryQueue(10)
	p := &recordingProcessor{delay: func(t taskqueue.Task) time.Duration {
		if t.ID == "slow" {
			return 100 * time.Millisecond
		}
		return 0
	}}
	pool := NewPool(p, q, nil)
	if err := pool.Start(ctx, 2); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer pool.Stop()

	_ = q.Enqueue(ctx, candidateTask("slow"))
	time.Sleep(10 * time.Millisecond)
	_ = q.Enqueue(ctx, candidateTask("fast"))

	deadline := time.Now().Add(2 * time.Second)
	for len(p.processed()) < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for tasks")
		}
		time.Sleep(5 * time.Millisecond)
	}

	got := p.processed()
	if got[0].ID != "fast" || got[1].ID != "slow" {
		t.Fatalf("expected fast to complete before slow, got %s then %s", got[0].ID, got[1].ID)
	}
}

func TestPool_StopIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	pool := NewPool(&recordingProcessor{}, taskqueue.NewInMemoryQueue(1), nil)
	pool.Stop()

	if err := pool.Start(context.Background(), 2); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	pool.Stop()
	pool.Stop()
}
