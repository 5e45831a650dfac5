package service

import (
	"context"

	"flightsurety/internal/events"
	"flightsurety/internal/journal"
)

// JournalStore persists accepted transitions before they are applied.
type JournalStore interface {
	Append(ctx context.Context, entry journal.Entry) (journal.Entry, error)
	List(ctx context.Context) ([]journal.Entry, error)
}

// EventPublisher delivers ledger events after a transition commits.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, events.Event) error { return nil }
