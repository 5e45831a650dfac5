package events

import (
	"context"
	"log/slog"
	"sync"

	"flightsurety/pkg/platform/circuit"
)

// GuardedPublisher sends to primary and buffers in fallback when the primary
// fails. The breaker tracks primary health; state changes are logged once.
// Whenever the breaker is closed after a delivery, buffered events are
// replayed to the primary in the order they were buffered.
type GuardedPublisher struct {
	primary  Publisher
	fallback Buffer
	breaker  *circuit.Breaker
	metrics  *Metrics
	logger   *slog.Logger

	replayMu sync.Mutex
}

type GuardedOption func(*GuardedPublisher)

func WithGuardMetrics(m *Metrics) GuardedOption {
	return func(p *GuardedPublisher) {
		p.metrics = m
	}
}

func NewGuardedPublisher(primary Publisher, fallback Buffer, breaker *circuit.Breaker, logger *slog.Logger, opts ...GuardedOption) *GuardedPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	p := &GuardedPublisher{primary: primary, fallback: fallback, breaker: breaker, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Degraded reports whether the primary is currently considered unhealthy.
func (p *GuardedPublisher) Degraded() bool {
	return p.breaker.IsOpen()
}

func (p *GuardedPublisher) Publish(ctx context.Context, event Event) error {
	err := p.primary.Publish(ctx, event)
	if err == nil {
		usable, change := p.breaker.RecordSuccess()
		if change.Closed {
			p.logger.InfoContext(ctx, "event bus recovered", "breaker", p.breaker.Name())
		}
		if usable {
			p.replay(ctx)
		}
		return nil
	}

	if _, change := p.breaker.RecordFailure(); change.Opened {
		p.logger.WarnContext(ctx, "event bus degraded", "breaker", p.breaker.Name(), "error", err)
	}
	if p.fallback == nil {
		return err
	}
	return p.fallback.Publish(ctx, event)
}

// replay drains the fallback into the primary. The first failure puts the
// undelivered remainder back into the fallback.
func (p *GuardedPublisher) replay(ctx context.Context) {
	if p.fallback == nil {
		return
	}
	p.replayMu.Lock()
	defer p.replayMu.Unlock()

	pending := p.fallback.Drain()
	for i, e := range pending {
		if err := p.primary.Publish(ctx, e); err != nil {
			p.breaker.RecordFailure()
			for _, rest := range pending[i:] {
				_ = p.fallback.Publish(ctx, rest)
			}
			p.logger.WarnContext(ctx, "event replay interrupted",
				"breaker", p.breaker.Name(),
				"delivered", i,
				"remaining", len(pending)-i,
				"error", err,
			)
			return
		}
		if p.metrics != nil {
			p.metrics.Replayed.Inc()
		}
	}
	if len(pending) > 0 {
		p.logger.InfoContext(ctx, "buffered events replayed", "breaker", p.breaker.Name(), "count", len(pending))
	}
}
