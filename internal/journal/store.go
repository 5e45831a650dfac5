package journal

import "context"

// Store appends and lists journal entries. Append returns the stored entry with
// its sequence number; a duplicate ID fails with sentinel.ErrConflict.
type Store interface {
	Append(ctx context.Context, entry Entry) (Entry, error)
	List(ctx context.Context) ([]Entry, error)
}
