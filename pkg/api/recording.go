package api

import (
	"strings"
	"time"
)

// Phase is the recorder's position in the recording state machine.
type Phase string

const (
	PhaseIdle      Phase = "IDLE"
	PhaseRecording Phase = "RECORDING"
	PhasePaused    Phase = "PAUSED"
	PhaseStopped   Phase = "STOPPED"
)

// DefaultTestPlanName is adopted by START when the requested name is blank.
const DefaultTestPlanName = "UntitledTestPlan"

// Status strings returned in command acknowledgments.
const (
	StatusRecordingStarted = "recording_started"
	StatusRecordingPaused  = "recording_paused"
	StatusRecordingResumed = "recording_resumed"
	StatusRecordingStopped = "recording_stopped"
	StatusOK               = "ok"
)

// Event type labels produced by the page observer.
const (
	EventLeftClick  = "Left Click"
	EventRightClick = "Right Click"
	EventKeyPrefix  = "Key: "
)

// Rect is an element's bounding box in page viewport coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Viewport is the visible size of a page, in the same units as Rect.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// StepCandidate is an interaction reported by a page observer, before the
// recorder decides whether to keep it.
type StepCandidate struct {
	EventType          string `json:"eventType"`
	ElementDescription string `json:"elementDescription"`
	BoundingRect       Rect   `json:"boundingRect"`
}

// Step is one recorded interaction. Steps are never modified after they are
// appended to a recording.
type Step struct {
	StepNumber         int    `json:"stepNumber"`
	EventType          string `json:"eventType"`
	ElementDescription string `json:"elementDescription"`
	Screenshot         *Image `json:"screenshot,omitempty"`
}

// State is a point-in-time copy of the recorder's state.
type State struct {
	SessionID    string
	Phase        Phase
	TestPlanName string
	Steps        []Step
	UpdatedAt    time.Time
}

// IsRecording reports whether a recording session is open. A paused
// session still counts as recording.
func (s State) IsRecording() bool {
	return s.Phase == PhaseRecording || s.Phase == PhasePaused
}

// IsPaused reports whether the open session is paused.
func (s State) IsPaused() bool {
	return s.Phase == PhasePaused
}

// NormalizePlanName substitutes DefaultTestPlanName for a blank name.
// Any other name is kept exactly as given.
func NormalizePlanName(name string) string {
	if strings.TrimSpace(name) == "" {
		return DefaultTestPlanName
	}
	return name
}

// CloneSteps returns a copy of steps that callers may retain. Screenshot
// images are shared; they are never mutated once a step exists.
func CloneSteps(steps []Step) []Step {
	out := make([]Step, len(steps))
	copy(out, steps)
	return out
}
