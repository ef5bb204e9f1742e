package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for budget tracking.
var (
	inatBudgetUsed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inat_budget_requests_used",
		Help: "Number of requests recorded against today's budget",
	})

	inatBudgetBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inat_budget_blocks_total",
		Help: "Total number of requests blocked due to exhausted daily budget",
	})

	inatBudgetThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inat_budget_throttles_total",
		Help: "Total number of requests throttled due to low remaining budget",
	})
)

// Tracker monitors the shared daily request budget and gates requests.
type Tracker struct {
	redis  *redis.Client
	limit  int
	logger zerolog.Logger
}

// NewTracker creates a new budget tracker. A non-positive limit falls back
// to DefaultDailyBudget.
func NewTracker(redisClient *redis.Client, limit int, logger zerolog.Logger) *Tracker {
	if limit <= 0 {
		limit = DefaultDailyBudget
	}
	return &Tracker{
		redis:  redisClient,
		limit:  limit,
		logger: logger,
	}
}

// dayKey returns the Redis counter key for the given instant's UTC day.
func dayKey(now time.Time) string {
	return redisKeyPrefix + now.UTC().Format("2006-01-02")
}

// State retrieves the current budget state from Redis.
// A missing counter means no requests were recorded today.
func (t *Tracker) State(ctx context.Context) (*BudgetState, error) {
	now := time.Now()

	used, err := t.redis.Get(ctx, dayKey(now)).Int()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get budget counter: %w", err)
	}

	state := &BudgetState{
		Used:  used,
		Limit: t.limit,
		Day:   now.UTC().Format("2006-01-02"),
	}
	state.UpdateHealth()

	return state, nil
}

// RecordRequest counts one request against today's budget.
// Called once per request that actually reached the API, retries included.
func (t *Tracker) RecordRequest(ctx context.Context) error {
	key := dayKey(time.Now())

	pipe := t.redis.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, counterTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record request in redis: %w", err)
	}

	used := incr.Val()
	inatBudgetUsed.Set(float64(used))

	if used%1000 == 0 {
		t.logger.Info().
			Int64("used", used).
			Int("limit", t.limit).
			Msg("Daily budget checkpoint")
	}

	return nil
}

// ShouldAllowRequest checks if a request should be allowed based on the
// current budget state. Returns false when the budget is exhausted.
// Returns true but sleeps briefly when the remaining budget is low.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.State(ctx)
	if err != nil {
		return false, fmt.Errorf("get budget state: %w", err)
	}

	// Exhausted: block until the counter rolls over at UTC midnight.
	if state.NeedsCriticalBlock() {
		t.logger.Error().
			Int("used", state.Used).
			Int("limit", state.Limit).
			Dur("resets_in", state.TimeUntilReset()).
			Msg("Daily budget exhausted - blocking request")

		inatBudgetBlocksTotal.Inc()
		return false, nil
	}

	// Nearly exhausted: slow down.
	if state.NeedsThrottling() {
		t.logger.Warn().
			Int("remaining", state.Remaining()).
			Int("limit", state.Limit).
			Msg("Daily budget low - throttling request")

		inatBudgetThrottlesTotal.Inc()

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(1 * time.Second):
		}
	}

	return true, nil
}
