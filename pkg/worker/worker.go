package worker

import (
	"context"
	"errors"

	"github.com/JHodgkins/Test-Recorder-Extension/internal/taskqueue"
)

// Processor runs the pipeline for one accepted candidate.
// *recorder.Recorder implements it.
type Processor interface {
	ProcessCandidate(ctx context.Context, t taskqueue.Task)
}

// Worker pulls tasks from a Queue and hands them to a Processor.
type Worker struct {
	proc  Processor
	queue taskqueue.Queue
}

// New creates a new Worker.
func New(proc Processor, queue taskqueue.Queue) *Worker {
	return &Worker{
		proc:  proc,
		queue: queue,
	}
}

// ProcessOne pulls a single task from the queue and processes it.
// Returns (processed, error):
//   - processed == false: no task was obtained; err is the Dequeue error
//     (context cancellation or taskqueue.ErrClosed).
//   - processed == true: a task ran to completion. Pipelines report their
//     own failures through the recorder's listener, so err is nil.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	task, err := w.queue.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if task == nil {
		return false, nil
	}

	w.proc.ProcessCandidate(ctx, *task)
	return true, nil
}

// isShutdown reports whether err means the worker loop should exit.
func isShutdown(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, taskqueue.ErrClosed)
}
