package api

import "context"

// Recorder is the authoritative holder of recording state.
//
// Command methods return their acknowledgment immediately. The effect of
// RecordEvent (a new step) happens later and is observed through the
// STEPS_UPDATED broadcast, never through the returned Ack.
type Recorder interface {
	// Start opens a fresh session named name (DefaultTestPlanName when blank),
	// discarding any steps of a previous session. Steps still in flight for
	// the previous session are dropped, not appended to the new one.
	Start(ctx context.Context, name string) Ack

	// Pause suspends step acceptance. Calling it outside Recording is a no-op.
	Pause(ctx context.Context) Ack

	// Resume re-enables step acceptance after Pause. Calling it outside
	// Paused is a no-op.
	Resume(ctx context.Context) Ack

	// Stop closes the session and returns the steps and plan name.
	Stop(ctx context.Context) StopResult

	// State returns a copy of the current state without mutating it.
	State(ctx context.Context) State

	// RecordEvent offers a step candidate that originated in tabID. An empty
	// tabID means the origin page is not identifiable and annotation is
	// skipped. Candidates offered outside Recording are acknowledged and
	// discarded.
	RecordEvent(ctx context.Context, tabID string, c StepCandidate) Ack
}
