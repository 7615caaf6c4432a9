package notify

import (
	"context"
	"time"

	"practice/internal/metrics"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// BreakerConfig tunes when a downstream is considered down.
type BreakerConfig struct {
	Name             string
	FailureThreshold uint32
	// Timeout is how long the breaker stays open before letting a probe through.
	Timeout time.Duration
}

func newBreaker(cfg BreakerConfig, log *zap.Logger) *gobreaker.CircuitBreaker[struct{}] {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	metrics.BreakerState.WithLabelValues(cfg.Name).Set(0)
	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
			log.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

// BreakerPublisher stops calling a failing publisher until it recovers.
// While open, Publish fails fast with gobreaker.ErrOpenState.
type BreakerPublisher struct {
	next Publisher
	cb   *gobreaker.CircuitBreaker[struct{}]
}

func NewBreakerPublisher(next Publisher, cfg BreakerConfig, log *zap.Logger) *BreakerPublisher {
	return &BreakerPublisher{next: next, cb: newBreaker(cfg, log)}
}

func (p *BreakerPublisher) Publish(ctx context.Context, e Event) error {
	_, err := p.cb.Execute(func() (struct{}, error) {
		return struct{}{}, p.next.Publish(ctx, e)
	})
	return err
}

// BreakerMailer is the Mailer counterpart of BreakerPublisher.
type BreakerMailer struct {
	next Mailer
	cb   *gobreaker.CircuitBreaker[struct{}]
}

func NewBreakerMailer(next Mailer, cfg BreakerConfig, log *zap.Logger) *BreakerMailer {
	return &BreakerMailer{next: next, cb: newBreaker(cfg, log)}
}

func (m *BreakerMailer) Send(ctx context.Context, msg Message) error {
	_, err := m.cb.Execute(func() (struct{}, error) {
		return struct{}{}, m.next.Send(ctx, msg)
	})
	return err
}
