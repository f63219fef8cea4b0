package testrecorder

import (
	"github.com/JHodgkins/Test-Recorder-Extension/internal/capture"
	"github.com/JHodgkins/Test-Recorder-Extension/internal/export"
	"github.com/JHodgkins/Test-Recorder-Extension/internal/observer"
	"github.com/JHodgkins/Test-Recorder-Extension/internal/persistence"
	"github.com/JHodgkins/Test-Recorder-Extension/pkg/api"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Phase                = api.Phase
	Rect                 = api.Rect
	Viewport             = api.Viewport
	Image                = api.Image
	Step                 = api.Step
	StepCandidate        = api.StepCandidate
	State                = api.State
	Message              = api.Message
	Ack                  = api.Ack
	StopResult           = api.StopResult
	StateReply           = api.StateReply
	Recorder             = api.Recorder
	Listener             = api.Listener
	LoggingListener      = api.LoggingListener
	CompositeListener    = api.CompositeListener
	NoopListener         = api.NoopListener
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot

	// Page-side types.
	Element  = observer.Element
	DOMEvent = observer.DOMEvent

	Capturer    = capture.Capturer
	CaptureFunc = capture.CaptureFunc

	Bundle      = export.Bundle
	Plan        = persistence.Plan
	PlanSummary = persistence.PlanSummary
)

// Re-export common helpers.

var (
	NewLoggingListener   = api.NewLoggingListener
	NewCompositeListener = api.NewCompositeListener
	NewPNG               = api.NewPNG
	ParseDataURL         = api.ParseDataURL
)

// Re-export phase values for convenience.

const (
	PhaseIdle      = api.PhaseIdle
	PhaseRecording = api.PhaseRecording
	PhasePaused    = api.PhasePaused
	PhaseStopped   = api.PhaseStopped
)

// DefaultTestPlanName is the plan name START adopts when none is given.
const DefaultTestPlanName = api.DefaultTestPlanName

// Event type labels.

const (
	EventLeftClick  = api.EventLeftClick
	EventRightClick = api.EventRightClick
	EventKeyPrefix  = api.EventKeyPrefix
)

// StaticCapturer returns a Capturer that always yields img.
func StaticCapturer(img Image) Capturer {
	return capture.Static{Image: img}
}

// Export helpers.
// These wrap internal/export so external callers never need to import
// internal packages.

// CSV renders the step manifest.
func CSV(steps []Step) string {
	return export.CSV(steps)
}

// ZIP packs one PNG per step that has a screenshot.
func ZIP(steps []Step) ([]byte, error) {
	return export.ZIP(steps)
}

// XLSX renders the steps and their screenshots as a workbook.
func XLSX(planName string, steps []Step) ([]byte, error) {
	return export.XLSX(planName, steps)
}

// WriteBundle writes <plan>_Steps.csv and <plan>_Screenshots.zip into dir.
func WriteBundle(dir, planName string, steps []Step) (Bundle, error) {
	return export.WriteBundle(dir, planName, steps)
}
