// Package observer turns page interactions into step candidates and draws
// annotation boxes onto captured screenshots.
package observer

import (
	"strings"

	"github.com/JHodgkins/Test-Recorder-Extension/pkg/api"
)

// DOM event types the page shim forwards. The shim registers its listeners
// in the capture phase so targets that stop propagation are still seen.
const (
	EventClick       = "click"
	EventContextMenu = "contextmenu"
	EventKeyDown     = "keydown"
)

// UnknownElement describes a candidate whose event had no target.
const UnknownElement = "Unknown Element"

// PrimaryButton is the DOM MouseEvent.button value of the main button.
const PrimaryButton = 0

// relevantKeys maps allowed KeyboardEvent.key values to their label.
var relevantKeys = map[string]string{
	"Enter":     "Enter",
	"Escape":    "Escape",
	"ArrowUp":   "ArrowUp",
	"ArrowDown": "ArrowDown",
	"Tab":       "Tab",
	" ":         "Space",
}

// Element is the snapshot of an event target taken by the page shim.
type Element struct {
	TagName string   `json:"tagName"`
	Text    string   `json:"innerText,omitempty"`
	Value   string   `json:"value,omitempty"`
	Rect    api.Rect `json:"boundingRect"`
}

// DOMEvent is a raw interaction reported by the page.
type DOMEvent struct {
	Type   string   `json:"type"`
	Button int      `json:"button,omitempty"`
	Key    string   `json:"key,omitempty"`
	Target *Element `json:"target,omitempty"`
}

// Qualify converts ev into a step candidate. It returns false for events
// that are not recorded.
func Qualify(ev DOMEvent) (api.StepCandidate, bool) {
	var eventType string
	switch ev.Type {
	case EventClick:
		if ev.Button != PrimaryButton {
			return api.StepCandidate{}, false
		}
		eventType = api.EventLeftClick
	case EventContextMenu:
		eventType = api.EventRightClick
	case EventKeyDown:
		name, ok := relevantKeys[ev.Key]
		if !ok {
			return api.StepCandidate{}, false
		}
		eventType = api.EventKeyPrefix + name
	default:
		return api.StepCandidate{}, false
	}

	c := api.StepCandidate{
		EventType:          eventType,
		ElementDescription: Describe(ev.Target),
	}
	if ev.Target != nil {
		c.BoundingRect = ev.Target.Rect
	}
	return c, true
}

// Describe returns the first non-empty of the element's trimmed text, its
// trimmed form value, and its lowercased tag name.
func Describe(el *Element) string {
	if el == nil {
		return UnknownElement
	}
	if text := strings.TrimSpace(el.Text); text != "" {
		return text
	}
	if value := strings.TrimSpace(el.Value); value != "" {
		return value
	}
	if tag := strings.ToLower(el.TagName); tag != "" {
		return tag
	}
	return UnknownElement
}
