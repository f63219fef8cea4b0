package api_test

import (
	"encoding/json"
	"fmt"

	"github.com/JHodgkins/Test-Recorder-Extension/pkg/api"
)

// ExampleEventRecordedMessage shows the wire form of a step candidate.
func ExampleEventRecordedMessage() {
	msg := api.EventRecordedMessage(api.StepCandidate{
		EventType:          api.EventLeftClick,
		ElementDescription: "Submit",
		BoundingRect:       api.Rect{X: 10, Y: 20, Width: 80, Height: 24},
	})
	msg.TabID = "7"

	b, _ := json.Marshal(msg)
	fmt.Println(string(b))

	// Output:
	// {"type":"EVENT_RECORDED","tabId":"7","eventType":"Left Click","elementDescription":"Submit","boundingRect":{"x":10,"y":20,"width":80,"height":24}}
}

// ExampleNewStateReply shows how a paused session is reported.
func ExampleNewStateReply() {
	reply := api.NewStateReply(api.State{Phase: api.PhasePaused, TestPlanName: "Checkout"})
	b, _ := json.Marshal(reply)
	fmt.Println(string(b))

	// Output:
	// {"testPlanName":"Checkout","steps":[],"isRecording":true,"isPaused":true}
}
