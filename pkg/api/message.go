package api

// MessageType names an operation of the message contract.
type MessageType string

const (
	MsgStartRecording     MessageType = "START_RECORDING"
	MsgPauseRecording     MessageType = "PAUSE_RECORDING"
	MsgResumeRecording    MessageType = "RESUME_RECORDING"
	MsgStopRecording      MessageType = "STOP_RECORDING"
	MsgGetRecordingState  MessageType = "GET_RECORDING_STATE"
	MsgEventRecorded      MessageType = "EVENT_RECORDED"
	MsgStepsUpdated       MessageType = "STEPS_UPDATED"
	MsgAnnotateScreenshot MessageType = "ANNOTATE_SCREENSHOT"

	// Browser bridge and page socket messages.
	MsgCaptureVisibleTab MessageType = "CAPTURE_VISIBLE_TAB"
	MsgCaptureResult     MessageType = "CAPTURE_RESULT"
	MsgDOMEvent          MessageType = "DOM_EVENT"
	MsgViewport          MessageType = "VIEWPORT"
)

// Message is the envelope exchanged between controller, page observer and
// recorder. Only the fields relevant to Type are populated.
type Message struct {
	Type MessageType `json:"type"`

	// RequestID correlates replies on transports without native
	// request/reply (websockets).
	RequestID string `json:"requestId,omitempty"`

	// TabID names the page an EVENT_RECORDED originated from when the
	// transport does not carry it (bus subjects, the JSON endpoint).
	TabID string `json:"tabId,omitempty"`

	// START_RECORDING
	TestPlanName string `json:"testPlanName,omitempty"`

	// EVENT_RECORDED
	EventType          string `json:"eventType,omitempty"`
	ElementDescription string `json:"elementDescription,omitempty"`
	BoundingRect       *Rect  `json:"boundingRect,omitempty"`

	// STEPS_UPDATED
	Steps []Step `json:"steps,omitempty"`

	// ANNOTATE_SCREENSHOT / CAPTURE_RESULT
	Screenshot *Image `json:"screenshotDataUrl,omitempty"`

	// CAPTURE_RESULT failure
	Error string `json:"error,omitempty"`

	// VIEWPORT
	Viewport *Viewport `json:"viewport,omitempty"`
}

// Candidate extracts the step candidate carried by an EVENT_RECORDED message.
func (m Message) Candidate() StepCandidate {
	c := StepCandidate{
		EventType:          m.EventType,
		ElementDescription: m.ElementDescription,
	}
	if m.BoundingRect != nil {
		c.BoundingRect = *m.BoundingRect
	}
	return c
}

// EventRecordedMessage builds the EVENT_RECORDED message for a candidate.
func EventRecordedMessage(c StepCandidate) Message {
	rect := c.BoundingRect
	return Message{
		Type:               MsgEventRecorded,
		EventType:          c.EventType,
		ElementDescription: c.ElementDescription,
		BoundingRect:       &rect,
	}
}

// Ack is the immediate reply to START/PAUSE/RESUME and EVENT_RECORDED.
type Ack struct {
	Status string `json:"status"`
}

// StopResult is the reply to STOP_RECORDING and doubles as the export payload.
type StopResult struct {
	Status       string `json:"status"`
	Steps        []Step `json:"steps"`
	TestPlanName string `json:"testPlanName"`
}

// StateReply is the reply to GET_RECORDING_STATE.
type StateReply struct {
	TestPlanName string `json:"testPlanName"`
	Steps        []Step `json:"steps"`
	IsRecording  bool   `json:"isRecording"`
	IsPaused     bool   `json:"isPaused"`
}

// NewStateReply converts a State into its wire form.
func NewStateReply(s State) StateReply {
	steps := s.Steps
	if steps == nil {
		steps = []Step{}
	}
	return StateReply{
		TestPlanName: s.TestPlanName,
		Steps:        steps,
		IsRecording:  s.IsRecording(),
		IsPaused:     s.IsPaused(),
	}
}

// AnnotateRequest asks a page observer to draw a box onto a screenshot.
type AnnotateRequest struct {
	Type         MessageType `json:"type"`
	BoundingRect Rect        `json:"boundingRect"`
	Screenshot   Image       `json:"screenshotDataUrl"`
}

// AnnotateReply carries the annotated screenshot. A nil AnnotatedScreenshot
// means annotation was unavailable.
type AnnotateReply struct {
	AnnotatedScreenshot *Image `json:"annotatedScreenshot,omitempty"`
}
