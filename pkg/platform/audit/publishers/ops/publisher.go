// Package ops provides a best-effort audit publisher for wallet and security events.
//
// Emit never fails the caller. When the store keeps failing, a circuit breaker
// drops events until the cooldown passes so audit outages do not slow requests.
package ops

import (
	"context"
	"log/slog"
	"time"

	audit "titlechain/pkg/platform/audit"
	"titlechain/pkg/platform/circuit"
)

// Publisher emits events without blocking business operations on audit failures.
type Publisher struct {
	store   audit.Store
	breaker *circuit.Breaker
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
}

// Option configures the Publisher.
type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithBreaker replaces the default breaker (5 failures, 1 minute cooldown).
func WithBreaker(b *circuit.Breaker) Option {
	return func(p *Publisher) {
		p.breaker = b
	}
}

func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store: store,
		breaker: circuit.New("audit-ops",
			circuit.WithFailureThreshold(5),
			circuit.WithSuccessThreshold(1),
			circuit.WithCooldown(time.Minute),
		),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit records the event if the store is healthy. It always returns nil.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if !p.breaker.Allow() {
		if p.metrics != nil {
			p.metrics.IncCircuitBreakerDropped()
		}
		return nil
	}

	event = event.Prepare(p.now())
	if err := p.store.Append(ctx, event); err != nil {
		_, change := p.breaker.RecordFailure()
		if p.metrics != nil {
			p.metrics.IncPersistFailures()
			if change.Opened {
				p.metrics.SetCircuitBreakerState(true)
			}
		}
		p.logger.WarnContext(ctx, "audit event dropped",
			"action", event.Action,
			"category", event.Category,
			"error", err,
		)
		return nil
	}

	_, change := p.breaker.RecordSuccess()
	if p.metrics != nil {
		p.metrics.IncTracked()
		if change.Closed {
			p.metrics.SetCircuitBreakerState(false)
		}
	}
	return nil
}
