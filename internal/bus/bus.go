// Package bus carries the recorder's message contract between components.
// It supports publish/subscribe and request/reply over named subjects. The
// in-memory implementation serves a single process; NATSBus connects
// recorder, page observers and controllers running in separate processes.
package bus

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrTimeout is returned when a request times out waiting for a response.
	ErrTimeout = errors.New("request timeout")

	// ErrNoResponders is returned when no subscribers are available to handle a request.
	ErrNoResponders = errors.New("no responders available")

	// ErrClosed is returned when operating on a closed bus or subscription.
	ErrClosed = errors.New("bus or subscription closed")
)

// Subjects used by the recorder pipeline.
const (
	// SubjectCommand carries controller and observer commands to the
	// recorder (request/reply).
	SubjectCommand = "recorder.command"

	// SubjectSteps carries STEPS_UPDATED broadcasts.
	SubjectSteps = "recorder.steps"
)

// AnnotateSubject is the request/reply subject served by the page observer
// attached to tabID.
func AnnotateSubject(tabID string) string {
	return "page." + tabID + ".annotate"
}

// MessageBus is the transport between recorder, observers and controllers.
// Implementations must be safe for concurrent use.
type MessageBus interface {
	// Publish sends a message to all subscribers of the given subject.
	// Returns immediately; does not wait for message delivery.
	Publish(ctx context.Context, subject string, data []byte) error

	// Subscribe registers a handler for messages on the given subject.
	// Supports wildcards: "page.*.annotate" matches "page.7.annotate".
	Subscribe(ctx context.Context, subject string, handler MessageHandler) (Subscription, error)

	// Request sends a message and waits for a single response.
	Request(ctx context.Context, subject string, data []byte, timeout time.Duration) ([]byte, error)

	// Close shuts down the bus and all subscriptions.
	Close() error
}

// MessageHandler processes incoming messages.
// For request/reply, return data to send as response; return nil for no response.
type MessageHandler func(msg *Message) []byte

// Message represents an incoming message from the bus.
type Message struct {
	Subject string
	Data    []byte
	ReplyTo string // Set if sender expects a response
}

// Subscription represents an active subscription that can be cancelled.
type Subscription interface {
	// Unsubscribe stops receiving messages and cleans up resources.
	Unsubscribe() error

	// Subject returns the subject pattern this subscription is for.
	Subject() string
}

// Config holds configuration for creating a MessageBus.
type Config struct {
	// Kind selects the implementation: "memory" or "nats".
	Kind string `mapstructure:"kind" yaml:"kind"`

	// URL is the NATS server URL (e.g., "nats://localhost:4222").
	// Ignored for in-memory bus.
	URL string `mapstructure:"url" yaml:"url"`

	// Name is a client identifier for debugging/monitoring.
	Name string `mapstructure:"name" yaml:"name"`

	// Timeout is the default timeout for operations.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Kind:    "memory",
		URL:     "nats://localhost:4222",
		Name:    "testrecorder",
		Timeout: 30 * time.Second,
	}
}

// New builds the bus selected by cfg.Kind.
func New(cfg Config) (MessageBus, error) {
	switch cfg.Kind {
	case "", "memory":
		return NewMemoryBus(), nil
	case "nats":
		return NewNATSBus(cfg)
	default:
		return nil, errors.New("bus: unknown kind " + cfg.Kind)
	}
}
