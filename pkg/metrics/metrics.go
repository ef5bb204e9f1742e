// Package metrics provides the centralized Prometheus registry reference for
// the observations client. All metrics are defined in their respective
// packages (client, cache, ratelimit, pagination) to maintain modularity and
// avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Budget Metrics (pkg/ratelimit):
//   - inat_budget_requests_used (Gauge): Requests recorded against today's budget
//   - inat_budget_blocks_total (Counter): Requests blocked by an exhausted budget
//   - inat_budget_throttles_total (Counter): Requests throttled by a low budget
//
// Cache Metrics (pkg/cache):
//   - inat_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - inat_cache_misses_total (Counter): Cache misses
//   - inat_cache_size_bytes{layer="redis"} (Gauge): Bytes written to the cache
//   - inat_304_responses_total (Counter): 304 Not Modified responses
//   - inat_conditional_requests_total (Counter): Conditional requests sent
//   - inat_cache_errors_total{operation} (Counter): Cache operation errors
//
// Request Metrics (pkg/client):
//   - inat_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - inat_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - inat_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - inat_retries_total{error_class} (Counter): Retry attempts by error class
//   - inat_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - inat_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Collection Metrics (pkg/pagination):
//   - inat_collect_pages_total (Counter): Pages fetched across collection runs
//   - inat_collect_records_total (Counter): Records collected across runs
//   - inat_collect_duration_seconds (Histogram): Duration of complete collection runs
//   - inat_collect_runs_total{status} (Counter): Collection runs by outcome
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(inat_cache_hits_total[5m])) /
//   (sum(rate(inat_cache_hits_total[5m])) + sum(rate(inat_cache_misses_total[5m])))
//
//   # Budget headroom
//   inat_budget_requests_used / 10000
//
//   # Request Error Rate
//   rate(inat_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(inat_request_duration_seconds_bucket[5m]))
