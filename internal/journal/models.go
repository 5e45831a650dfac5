// Package journal persists the ordered list of accepted ledger transitions so
// a ledger can be rebuilt by replaying them.
package journal

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"flightsurety/pkg/domain"
)

// Op names a ledger transition.
type Op string

// Entry is one accepted transition. Seq is assigned by the store and is
// strictly increasing.
type Entry struct {
	ID        uuid.UUID       `json:"id"`
	Seq       int64           `json:"seq"`
	Op        Op              `json:"op"`
	Actor     domain.Address  `json:"actor"`
	Payload   json.RawMessage `json:"payload"`
	RequestID string          `json:"request_id,omitempty"`
	At        time.Time       `json:"at"`
}

// NewEntry marshals payload into a fresh entry.
func NewEntry(op Op, actor domain.Address, payload any, at time.Time) (Entry, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		ID:      uuid.New(),
		Op:      op,
		Actor:   actor,
		Payload: raw,
		At:      at.UTC(),
	}, nil
}

// Decode unmarshals the entry payload into v.
func (e Entry) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}
