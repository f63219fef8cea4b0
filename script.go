package testrecorder

import (
	"context"
	"fmt"

	"github.com/JHodgkins/Test-Recorder-Extension/internal/observer"
)

// Script provides a fluent API for driving a LocalRunner with scripted page
// interactions, the way a person would with the browser extension:
//
//	res, err := testrecorder.NewScript("Login Flow").
//	    Viewport("tab-1", 1280, 720).
//	    Click("tab-1", testrecorder.Element{TagName: "BUTTON", Text: "Sign in", Rect: rect}).
//	    Key("tab-1", "Enter", nil).
//	    Run(ctx, runner)
//
// Run starts a recording, replays the actions in order, waits for every
// accepted candidate's step and stops the recording.
type Script struct {
	name    string
	actions []scriptAction
}

type scriptAction struct {
	tabID    string
	viewport *Viewport
	event    *DOMEvent
	pause    bool
	resume   bool
}

// NewScript creates a script that records into a plan named planName.
func NewScript(planName string) *Script {
	return &Script{
		name:    planName,
		actions: make([]scriptAction, 0),
	}
}

// Name returns the plan name.
func (s *Script) Name() string {
	return s.name
}

// Len returns the number of actions.
func (s *Script) Len() int {
	return len(s.actions)
}

func mustTab(tabID string) {
	if tabID == "" {
		panic("testrecorder: tab id must not be empty")
	}
}

// Viewport reports the visible size of tabID.
func (s *Script) Viewport(tabID string, width, height float64) *Script {
	mustTab(tabID)
	s.actions = append(s.actions, scriptAction{
		tabID:    tabID,
		viewport: &Viewport{Width: width, Height: height},
	})
	return s
}

// Event appends a raw DOM event on tabID.
func (s *Script) Event(tabID string, ev DOMEvent) *Script {
	mustTab(tabID)
	// Copy so callers can reuse their DOMEvent.
	e := ev
	s.actions = append(s.actions, scriptAction{tabID: tabID, event: &e})
	return s
}

// Click appends a primary-button click on el.
func (s *Script) Click(tabID string, el Element) *Script {
	return s.Event(tabID, DOMEvent{Type: observer.EventClick, Button: observer.PrimaryButton, Target: &el})
}

// RightClick appends a context-menu event on el.
func (s *Script) RightClick(tabID string, el Element) *Script {
	return s.Event(tabID, DOMEvent{Type: observer.EventContextMenu, Target: &el})
}

// Key appends a keydown of key. el may be nil for key presses without a
// focused element.
func (s *Script) Key(tabID, key string, el *Element) *Script {
	return s.Event(tabID, DOMEvent{Type: observer.EventKeyDown, Key: key, Target: el})
}

// Pause suspends recording; events until the next Resume are discarded.
func (s *Script) Pause() *Script {
	s.actions = append(s.actions, scriptAction{pause: true})
	return s
}

// Resume re-enables recording after Pause.
func (s *Script) Resume() *Script {
	s.actions = append(s.actions, scriptAction{resume: true})
	return s
}

// Run replays the script against r, which must be started. ctx bounds the
// whole run, including the wait for pending steps.
func (s *Script) Run(ctx context.Context, r *LocalRunner) (StopResult, error) {
	if _, err := r.Client.Start(ctx, s.name); err != nil {
		return StopResult{}, err
	}

	paused := false
	expected := 0
	for i, a := range s.actions {
		switch {
		case a.pause:
			if _, err := r.Client.Pause(ctx); err != nil {
				return StopResult{}, err
			}
			paused = true
		case a.resume:
			if _, err := r.Client.Resume(ctx); err != nil {
				return StopResult{}, err
			}
			paused = false
		default:
			page, err := r.Page(ctx, a.tabID)
			if err != nil {
				return StopResult{}, err
			}
			if a.viewport != nil {
				page.SetViewport(*a.viewport)
				continue
			}
			sent, err := page.HandleDOMEvent(ctx, *a.event)
			if err != nil {
				return StopResult{}, fmt.Errorf("action %d on %s: %w", i, a.tabID, err)
			}
			if sent && !paused {
				expected++
			}
		}
	}

	if _, err := r.WaitForSteps(ctx, expected); err != nil {
		return StopResult{}, fmt.Errorf("waiting for %d steps: %w", expected, err)
	}
	return r.Client.Stop(ctx)
}
