package journal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flightsurety/pkg/domain"
	"flightsurety/pkg/platform/sentinel"
)

var actor = domain.MustParseAddress("0x627306090abab3a6e1400e9345bc60c78a8bef57")

type fundPayload struct {
	Airline domain.Address `json:"airline"`
	Amount  string         `json:"amount"`
}

func TestInMemoryStore_AppendAssignsSequence(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	first, err := NewEntry("airline.fund", actor, fundPayload{Airline: actor, Amount: "10"}, time.Now())
	require.NoError(t, err)
	second, err := NewEntry("operational.set", actor, map[string]bool{"operational": false}, time.Now())
	require.NoError(t, err)

	stored, err := store.Append(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Seq)
	stored, err = store.Append(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.Seq)

	entries, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, Op("airline.fund"), entries[0].Op)

	var payload fundPayload
	require.NoError(t, entries[0].Decode(&payload))
	assert.Equal(t, "10", payload.Amount)
}

func TestInMemoryStore_DuplicateID(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	entry, err := NewEntry("airline.fund", actor, nil, time.Now())
	require.NoError(t, err)

	_, err = store.Append(ctx, entry)
	require.NoError(t, err)
	_, err = store.Append(ctx, entry)
	assert.True(t, errors.Is(err, sentinel.ErrConflict))

	entries, _ := store.List(ctx)
	assert.Len(t, entries, 1)
}

func TestInMemoryStore_ListReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	entry, _ := NewEntry("airline.fund", actor, nil, time.Now())
	_, _ = store.Append(ctx, entry)

	entries, _ := store.List(ctx)
	entries[0].Op = "tampered"

	again, _ := store.List(ctx)
	assert.Equal(t, Op("airline.fund"), again[0].Op)

	store.Clear()
	again, _ = store.List(ctx)
	assert.Empty(t, again)
}
