package taskqueue

import (
	"context"
	"time"

	"github.com/JHodgkins/Test-Recorder-Extension/pkg/api"
)

// Task is one accepted step candidate waiting for its capture/annotate
// pipeline to run.
type Task struct {
	ID string

	// SessionID is the recording session that accepted the candidate.
	SessionID string

	// TabID identifies the page the candidate came from. Empty means the
	// origin is unknown and annotation is skipped.
	TabID string

	Candidate api.StepCandidate

	AcceptedAt time.Time
}

// Queue is a simple async task queue interface.
type Queue interface {
	// Enqueue adds a task to the queue without blocking. Implementations
	// report a full queue with an error rather than waiting.
	Enqueue(ctx context.Context, t Task) error

	// Dequeue removes and returns the next task, blocking until one is available
	// or the context is cancelled.
	Dequeue(ctx context.Context) (*Task, error)

	// Len returns the approximate number of tasks queued.
	Len() int
}
