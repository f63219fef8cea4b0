// Package api contains the data model and message contract shared by the
// recorder, page observers and controllers.
//
// Most users interact with the higher-level testrecorder package, which
// re-exports selected types and helpers from this package.
//
// # Data model
//
// A recording is a State: a phase, a test plan name and an ordered list of
// Steps. A StepCandidate is what a page observer reports before the recorder
// decides whether to keep it. Images travel on the wire as base64 data URLs.
//
// # Message contract
//
// Message is the envelope for every command and broadcast. Replies are Ack
// for START/PAUSE/RESUME and EVENT_RECORDED, StopResult for STOP and
// StateReply for GET_RECORDING_STATE. ANNOTATE_SCREENSHOT uses its own
// AnnotateRequest and AnnotateReply.
//
// # Listeners
//
// A Listener receives recorder lifecycle callbacks. LoggingListener writes
// them to zap, BasicMetrics counts them, and CompositeListener fans out to
// several listeners.
package api
