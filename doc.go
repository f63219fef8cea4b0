// Package testrecorder records a person's interactions with web pages as a
// numbered list of steps, each with an annotated screenshot, and exports the
// result as a reusable test plan.
//
// # Core Concepts
//
// Three components cooperate over a message bus:
//
//  1. Observer
//  2. Recorder
//  3. Controller
//
// # Observer
//
// A page observer is attached to one tab. It turns qualifying DOM events
// (primary clicks, context menus, and the Enter, Escape, Tab, Space and
// arrow keys) into step candidates carrying an event label, an element
// description and the element's bounding rectangle. On request it draws a
// red box around that rectangle onto a screenshot.
//
// # Recorder
//
// The Recorder owns the recording phase (idle, recording, paused, stopped)
// and the step list. Every candidate that arrives while recording is
// acknowledged at once and handed to a worker, which captures the visible
// viewport, asks the originating page to annotate it, appends the step and
// broadcasts STEPS_UPDATED. If annotation is unreachable or fails the raw
// capture is kept; if capture fails the step is dropped.
//
// Step numbers are assigned when a step is appended, so they are always
// 1..n without gaps even when pipelines finish out of order.
//
// # Controller
//
// A controller issues START, PAUSE, RESUME and STOP, shows the step list as
// it is broadcast, and exports a stopped plan as a CSV manifest, a ZIP of
// screenshots and an optional XLSX workbook.
//
// # LocalRunner and Script
//
// LocalRunner wires a bus, a Recorder and a worker pool into one process.
// Script drives a LocalRunner with scripted interactions:
//
//	runner := testrecorder.NewLocalRunner(testrecorder.WithCapturer(cap))
//	_ = runner.Start(ctx, 2)
//	defer runner.Stop()
//
//	res, err := testrecorder.NewScript("Login Flow").
//	    Viewport("tab-1", 1280, 720).
//	    Click("tab-1", testrecorder.Element{TagName: "BUTTON", Text: "Sign in", Rect: rect}).
//	    Run(ctx, runner)
//
// For a browser-facing deployment, see the serve command in
// cmd/testrecorder.
package testrecorder
