package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

func TestBreakerPublisherOpensAfterFailures(t *testing.T) {
	down := &recordingPublisher{err: errors.New("broker down")}
	p := NewBreakerPublisher(down, BreakerConfig{Name: "test-events", FailureThreshold: 2, Timeout: time.Hour}, zap.NewNop())
	ctx := context.Background()
	e := Event{Type: EventAppointmentCreated, EntityID: "a-1"}

	for i := 0; i < 2; i++ {
		if err := p.Publish(ctx, e); !errors.Is(err, down.err) {
			t.Fatalf("Publish() #%d error = %v, want broker error", i, err)
		}
	}
	if err := p.Publish(ctx, e); !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("Publish() with open breaker error = %v", err)
	}
	if len(down.events) != 2 {
		t.Errorf("downstream calls = %d, want 2", len(down.events))
	}
}

func TestBreakerMailerPassesThrough(t *testing.T) {
	m := &recordingMailer{}
	b := NewBreakerMailer(m, BreakerConfig{Name: "test-email"}, zap.NewNop())

	if err := b.Send(context.Background(), Message{To: []string{"a@x.com"}, Subject: "hi"}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if len(m.sent) != 1 {
		t.Errorf("sent = %d, want 1", len(m.sent))
	}
}
