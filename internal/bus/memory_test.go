package bus

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
)

type MemoryBusSuite struct {
	suite.Suite
	bus *MemoryBus
	ctx context.Context
}

func TestMemoryBusSuite(t *testing.T) {
	suite.Run(t, new(MemoryBusSuite))
}

func (s *MemoryBusSuite) SetupTest() {
	s.bus = NewMemoryBus()
	s.ctx = context.Background()
}

func (s *MemoryBusSuite) TearDownTest() {
	_ = s.bus.Close()
}

func (s *MemoryBusSuite) TestPublishSubscribe() {
	received := make(chan *Message, 1)
	sub, err := s.bus.Subscribe(s.ctx, SubjectSteps, func(msg *Message) []byte {
		received <- msg
		return nil
	})
	s.Require().NoError(err)
	defer sub.Unsubscribe()

	s.Require().NoError(s.bus.Publish(s.ctx, SubjectSteps, []byte("hello")))

	select {
	case msg := <-received:
		s.Equal("hello", string(msg.Data))
		s.Equal(SubjectSteps, msg.Subject)
	case <-time.After(time.Second):
		s.Fail("timeout waiting for message")
	}
}

func (s *MemoryBusSuite) TestWildcardAnnotateSubjects() {
	var received atomic.Int32
	sub, err := s.bus.Subscribe(s.ctx, "page.*.annotate", func(msg *Message) []byte {
		received.Add(1)
		return nil
	})
	s.Require().NoError(err)
	defer sub.Unsubscribe()

	_ = s.bus.Publish(s.ctx, AnnotateSubject("7"), []byte("1"))
	_ = s.bus.Publish(s.ctx, AnnotateSubject("8"), []byte("2"))
	_ = s.bus.Publish(s.ctx, SubjectCommand, []byte("3"))

	s.Eventually(func() bool { return received.Load() == 2 }, time.Second, 10*time.Millisecond)
}

func (s *MemoryBusSuite) TestRequestReply() {
	sub, err := s.bus.Subscribe(s.ctx, "echo", func(msg *Message) []byte {
		return append([]byte("echo: "), msg.Data...)
	})
	s.Require().NoError(err)
	defer sub.Unsubscribe()

	reply, err := s.bus.Request(s.ctx, "echo", []byte("hello"), time.Second)
	s.Require().NoError(err)
	s.Equal("echo: hello", string(reply))
}

func (s *MemoryBusSuite) TestRequestNoResponders() {
	_, err := s.bus.Request(s.ctx, AnnotateSubject("missing"), []byte("x"), 100*time.Millisecond)
	s.True(errors.Is(err, ErrNoResponders), "got %v", err)
}

func (s *MemoryBusSuite) TestRequestTimeoutWhenResponderIsSilent() {
	sub, err := s.bus.Subscribe(s.ctx, "silent", func(msg *Message) []byte { return nil })
	s.Require().NoError(err)
	defer sub.Unsubscribe()

	_, err = s.bus.Request(s.ctx, "silent", []byte("x"), 50*time.Millisecond)
	s.True(errors.Is(err, ErrTimeout), "got %v", err)
}

func (s *MemoryBusSuite) TestRequestHonorsContext() {
	sub, err := s.bus.Subscribe(s.ctx, "silent", func(msg *Message) []byte { return nil })
	s.Require().NoError(err)
	defer sub.Unsubscribe()

	ctx, cancel := context.WithTimeout(s.ctx, 20*time.Millisecond)
	defer cancel()
	_, err = s.bus.Request(ctx, "silent", []byte("x"), time.Minute)
	s.True(errors.Is(err, context.DeadlineExceeded), "got %v", err)
}

func (s *MemoryBusSuite) TestUnsubscribeStopsDelivery() {
	var received atomic.Int32
	sub, err := s.bus.Subscribe(s.ctx, "test", func(msg *Message) []byte {
		received.Add(1)
		return nil
	})
	s.Require().NoError(err)

	_ = s.bus.Publish(s.ctx, "test", []byte("1"))
	s.Eventually(func() bool { return received.Load() == 1 }, time.Second, 5*time.Millisecond)

	s.Require().NoError(sub.Unsubscribe())
	_ = s.bus.Publish(s.ctx, "test", []byte("2"))
	time.Sleep(50 * time.Millisecond)

	s.Equal(int32(1), received.Load())
}

func (s *MemoryBusSuite) TestClosedOperations() {
	s.Require().NoError(s.bus.Close())

	s.ErrorIs(s.bus.Publish(s.ctx, "test", nil), ErrClosed)
	_, err := s.bus.Subscribe(s.ctx, "test", nil)
	s.ErrorIs(err, ErrClosed)
	_, err = s.bus.Request(s.ctx, "test", nil, time.Second)
	s.ErrorIs(err, ErrClosed)
	s.ErrorIs(s.bus.Close(), ErrClosed)
}

func TestMatchSubject(t *testing.T) {
	tests := []struct {
		pattern string
		subject string
		want    bool
	}{
		{"recorder.command", "recorder.command", true},
		{"recorder.command", "recorder.steps", false},
		{"page.*.annotate", "page.42.annotate", true},
		{"page.*.annotate", "page.42.viewport", false},
		{"page.*", "page.42.annotate", false},
		{"page.>", "page.42.annotate", true},
		{"page.>", "page", false},
		{"*.steps", "recorder.steps", true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"_"+tt.subject, func(t *testing.T) {
			if got := matchSubject(tt.pattern, tt.subject); got != tt.want {
				t.Errorf("matchSubject(%q, %q) = %v, want %v", tt.pattern, tt.subject, got, tt.want)
			}
		})
	}
}

func TestMemoryBus_CloseReleasesGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t)

	b := NewMemoryBus()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := b.Subscribe(ctx, "fanout", func(msg *Message) []byte { return nil }); err != nil {
			t.Fatalf("Subscribe failed: %v", err)
		}
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	// run loops exit asynchronously after done is closed
	time.Sleep(20 * time.Millisecond)
}

func TestNew_SelectsImplementation(t *testing.T) {
	b, err := New(Config{Kind: "memory"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, ok := b.(*MemoryBus); !ok {
		t.Fatalf("expected *MemoryBus, got %T", b)
	}
	_ = b.Close()

	if _, err := New(Config{Kind: "kafka"}); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
