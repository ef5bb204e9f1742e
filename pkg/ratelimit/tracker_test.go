package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// setupTestRedis connects to a local Redis (DB 15) and flushes it.
// Tests are skipped when Redis is not available.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // separate test database
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test database: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(ctx)
		client.Close()
	})

	return client
}

func TestNewTracker_DefaultLimit(t *testing.T) {
	redisClient := setupTestRedis(t)

	tracker := NewTracker(redisClient, 0, zerolog.Nop())
	if tracker.limit != DefaultDailyBudget {
		t.Errorf("limit = %d, want %d", tracker.limit, DefaultDailyBudget)
	}

	tracker = NewTracker(redisClient, 500, zerolog.Nop())
	if tracker.limit != 500 {
		t.Errorf("limit = %d, want 500", tracker.limit)
	}
}

func TestTracker_State_FreshDay(t *testing.T) {
	redisClient := setupTestRedis(t)
	tracker := NewTracker(redisClient, 10000, zerolog.Nop())

	state, err := tracker.State(context.Background())
	if err != nil {
		t.Fatalf("State() error = %v", err)
	}

	if state.Used != 0 {
		t.Errorf("Used = %d, want 0", state.Used)
	}
	if state.Limit != 10000 {
		t.Errorf("Limit = %d, want 10000", state.Limit)
	}
	if !state.IsHealthy {
		t.Error("fresh day should be healthy")
	}
	if want := time.Now().UTC().Format("2006-01-02"); state.Day != want {
		t.Errorf("Day = %q, want %q", state.Day, want)
	}
}

func TestTracker_RecordRequest(t *testing.T) {
	redisClient := setupTestRedis(t)
	tracker := NewTracker(redisClient, 10000, zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := tracker.RecordRequest(ctx); err != nil {
			t.Fatalf("RecordRequest() error = %v", err)
		}
	}

	state, err := tracker.State(ctx)
	if err != nil {
		t.Fatalf("State() error = %v", err)
	}
	if state.Used != 3 {
		t.Errorf("Used = %d, want 3", state.Used)
	}

	// The counter must expire on its own.
	ttl := redisClient.TTL(ctx, dayKey(time.Now())).Val()
	if ttl <= 0 || ttl > counterTTL {
		t.Errorf("counter TTL = %v, want within (0, %v]", ttl, counterTTL)
	}
}

func TestTracker_ShouldAllowRequest_Healthy(t *testing.T) {
	redisClient := setupTestRedis(t)
	tracker := NewTracker(redisClient, 10000, zerolog.Nop())

	allowed, err := tracker.ShouldAllowRequest(context.Background())
	if err != nil {
		t.Fatalf("ShouldAllowRequest() error = %v", err)
	}
	if !allowed {
		t.Error("request should be allowed with an untouched budget")
	}
}

func TestTracker_ShouldAllowRequest_Exhausted(t *testing.T) {
	redisClient := setupTestRedis(t)
	tracker := NewTracker(redisClient, 10, zerolog.Nop())
	ctx := context.Background()

	if err := redisClient.Set(ctx, dayKey(time.Now()), 10, time.Hour).Err(); err != nil {
		t.Fatalf("seed counter: %v", err)
	}

	allowed, err := tracker.ShouldAllowRequest(ctx)
	if err != nil {
		t.Fatalf("ShouldAllowRequest() error = %v", err)
	}
	if allowed {
		t.Error("request should be blocked when the budget is exhausted")
	}
}

func TestTracker_ShouldAllowRequest_Throttled(t *testing.T) {
	redisClient := setupTestRedis(t)
	tracker := NewTracker(redisClient, 20, zerolog.Nop())
	ctx := context.Background()

	// 19 of 20 used: remaining 1 is below the 10% warning threshold.
	if err := redisClient.Set(ctx, dayKey(time.Now()), 19, time.Hour).Err(); err != nil {
		t.Fatalf("seed counter: %v", err)
	}

	start := time.Now()
	allowed, err := tracker.ShouldAllowRequest(ctx)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("ShouldAllowRequest() error = %v", err)
	}
	if !allowed {
		t.Error("throttled requests are still allowed")
	}
	if elapsed < 1*time.Second {
		t.Errorf("throttle delay = %v, want >= 1s", elapsed)
	}
}

func TestTracker_ShouldAllowRequest_ThrottleRespectsContext(t *testing.T) {
	redisClient := setupTestRedis(t)
	tracker := NewTracker(redisClient, 20, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := redisClient.Set(ctx, dayKey(time.Now()), 19, time.Hour).Err(); err != nil {
		t.Fatalf("seed counter: %v", err)
	}

	allowed, err := tracker.ShouldAllowRequest(ctx)
	if err == nil {
		t.Error("ShouldAllowRequest() should fail when the context expires during throttle")
	}
	if allowed {
		t.Error("request should not be allowed after context expiry")
	}
}
