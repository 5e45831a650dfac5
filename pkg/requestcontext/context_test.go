package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"flightsurety/pkg/domain"
)

func TestAccessorsFallBackToZeroValues(t *testing.T) {
	ctx := context.Background()
	assert.True(t, Caller(ctx).IsZero())
	assert.Empty(t, RequestID(ctx))
	assert.WithinDuration(t, time.Now(), Now(ctx), time.Second)
}

func TestAccessorsReturnInjectedValues(t *testing.T) {
	caller := domain.MustParseAddress("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	ctx := WithCaller(context.Background(), caller)
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithTime(ctx, fixed)

	assert.Equal(t, caller, Caller(ctx))
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, fixed, Now(ctx))
}
