package api

import "errors"

var (
	// ErrCaptureFailed is reported when the platform could not produce a
	// viewport image. The candidate that triggered the capture is dropped.
	ErrCaptureFailed = errors.New("viewport capture failed")

	// ErrAnnotationUnavailable means the page observer answered but returned
	// no annotated image.
	ErrAnnotationUnavailable = errors.New("annotation unavailable")

	// ErrTargetUnreachable means the page observer for a tab could not be
	// reached (navigated away, torn down, or never attached).
	ErrTargetUnreachable = errors.New("annotation target unreachable")

	// ErrUnknownCommand is returned by the dispatcher for unrecognised
	// message types.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrNoSteps is returned by exporters when there is nothing to export.
	ErrNoSteps = errors.New("no steps were recorded")

	// ErrInvalidDataURL is returned when a screenshot is not a base64 data URL.
	ErrInvalidDataURL = errors.New("invalid data url")
)
