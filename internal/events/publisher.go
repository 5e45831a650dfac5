package events

import (
	"context"
	"sync"
)

// DefaultBufferCapacity bounds an InMemoryPublisher unless WithCapacity says
// otherwise.
const DefaultBufferCapacity = 10000

// Publisher delivers events to a bus.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Buffer holds events while the bus cannot take them.
type Buffer interface {
	Publisher
	Drain() []Event
}

// InMemoryPublisher keeps the most recent events in memory. Once full, each
// new event evicts the oldest one.
type InMemoryPublisher struct {
	mu       sync.RWMutex
	events   []Event
	capacity int
	dropped  uint64
	metrics  *Metrics
}

type InMemoryOption func(*InMemoryPublisher)

func WithCapacity(n int) InMemoryOption {
	return func(p *InMemoryPublisher) {
		if n > 0 {
			p.capacity = n
		}
	}
}

func WithBufferMetrics(m *Metrics) InMemoryOption {
	return func(p *InMemoryPublisher) {
		p.metrics = m
	}
}

func NewInMemoryPublisher(opts ...InMemoryOption) *InMemoryPublisher {
	p := &InMemoryPublisher{capacity: DefaultBufferCapacity}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *InMemoryPublisher) Publish(_ context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) >= p.capacity {
		p.events = p.events[1:]
		p.dropped++
		if p.metrics != nil {
			p.metrics.Dropped.Inc()
		}
	}
	p.events = append(p.events, event)
	return nil
}

// Drain removes and returns the buffered events in order.
func (p *InMemoryPublisher) Drain() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.events
	p.events = nil
	return out
}

// Events returns buffered events in order.
func (p *InMemoryPublisher) Events() []Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Event{}, p.events...)
}

// OfType returns buffered events of type t in order.
func (p *InMemoryPublisher) OfType(t Type) []Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []Event
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Dropped reports how many events were evicted by a full buffer.
func (p *InMemoryPublisher) Dropped() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.dropped
}

func (p *InMemoryPublisher) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}
