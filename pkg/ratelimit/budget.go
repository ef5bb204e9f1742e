// Package ratelimit implements daily request budget tracking and request
// gating for the iNaturalist API. The API publishes no budget headers;
// its guidelines recommend staying under roughly 10k requests per day,
// so the tracker counts outgoing requests in Redis and stops a client
// before it reaches the ceiling.
package ratelimit

import (
	"time"
)

// Redis key prefix for budget counters. One counter per UTC day:
// inat:budget:2026-08-27
const redisKeyPrefix = "inat:budget:"

// counterTTL keeps yesterday's counter around for inspection before
// Redis drops it.
const counterTTL = 48 * time.Hour

const (
	// DefaultDailyBudget is the recommended request ceiling per day.
	DefaultDailyBudget = 10000

	// WarningFraction of the budget remaining triggers throttling.
	// With the default budget that is the last 1000 requests.
	WarningFraction = 0.10
)

// BudgetState represents the current daily budget state.
// The counter is shared across all client instances via Redis.
type BudgetState struct {
	// Used is the number of requests recorded for Day.
	Used int `json:"used"`

	// Limit is the configured daily ceiling.
	Limit int `json:"limit"`

	// Day is the UTC day the counter belongs to (YYYY-MM-DD).
	Day string `json:"day"`

	// IsHealthy indicates normal operation: no throttling, no blocking.
	IsHealthy bool `json:"is_healthy"`
}

// Remaining returns the number of requests left in the budget.
// Never negative.
func (s *BudgetState) Remaining() int {
	remaining := s.Limit - s.Used
	if remaining < 0 {
		return 0
	}
	return remaining
}

// NeedsCriticalBlock returns true if requests must be blocked because the
// budget is exhausted.
func (s *BudgetState) NeedsCriticalBlock() bool {
	return s.Remaining() <= 0
}

// NeedsThrottling returns true if requests should be slowed down because
// the budget is nearly exhausted.
func (s *BudgetState) NeedsThrottling() bool {
	if s.NeedsCriticalBlock() {
		return false
	}
	return float64(s.Remaining()) < float64(s.Limit)*WarningFraction
}

// TimeUntilReset returns the duration until the counter rolls over to the
// next UTC day.
func (s *BudgetState) TimeUntilReset() time.Duration {
	now := time.Now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
	return midnight.Sub(now)
}

// UpdateHealth updates the IsHealthy field based on current usage.
func (s *BudgetState) UpdateHealth() {
	s.IsHealthy = !s.NeedsThrottling() && !s.NeedsCriticalBlock()
}
