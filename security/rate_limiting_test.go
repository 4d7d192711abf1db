package security

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer mock.ClearExpect()

	limiter := NewRateLimiter(db, 2, time.Minute)
	ctx := context.Background()
	key := "ratelimit:register:1.2.3.4"

	// First hit opens the window.
	mock.ExpectIncr(key).SetVal(1)
	mock.ExpectExpireNX(key, time.Minute).SetVal(true)
	assert.True(t, limiter.allow(ctx, key))

	mock.ExpectIncr(key).SetVal(2)
	mock.ExpectExpireNX(key, time.Minute).SetVal(false)
	assert.True(t, limiter.allow(ctx, key))

	mock.ExpectIncr(key).SetVal(3)
	mock.ExpectExpireNX(key, time.Minute).SetVal(false)
	assert.False(t, limiter.allow(ctx, key))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimiter_RepairsMissingTTL(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer mock.ClearExpect()

	limiter := NewRateLimiter(db, 2, time.Minute)
	key := "ratelimit:register:1.2.3.4"

	// A counter that lost its TTL gets one again on the next hit, even
	// when the count is already past the first request.
	mock.ExpectIncr(key).SetVal(7)
	mock.ExpectExpireNX(key, time.Minute).SetVal(true)
	assert.False(t, limiter.allow(context.Background(), key))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer mock.ClearExpect()

	limiter := NewRateLimiter(db, 2, time.Minute)
	key := "ratelimit:register:1.2.3.4"

	mock.ExpectIncr(key).SetErr(errors.New("connection refused"))
	assert.True(t, limiter.allow(context.Background(), key))
}
