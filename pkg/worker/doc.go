// Package worker runs step pipelines in the background.
//
// The recorder acknowledges a step candidate as soon as it arrives and puts
// the candidate on a task queue. Workers pull those tasks and run the
// capture/annotate pipeline for each one, so a slow annotation round trip
// never holds up the next candidate.
//
// # Pools
//
// A Pool runs N Workers on their own goroutines against a shared queue.
// With more than one worker, pipelines complete in whatever order their
// capture and annotation finish, and steps are appended in that order.
//
// Most applications get a pool from testrecorder.NewLocalRunner or the
// serve command; the worker package is useful when wiring a custom queue.
package worker
