// Package cache provides Redis-backed caching of API responses with ETag
// support for conditional requests.
//
// The observations endpoint is an idempotent read-only GET; identical
// query+cursor combinations return the same page until the underlying data
// changes. Re-running a collection (the normal interactive workflow) walks
// the same cursor sequence, so cached entries answer revalidations with
// 304 Not Modified instead of full payloads.
//
// Entries are keyed by endpoint plus sorted query parameters and expire
// with the response's Expires header (default 5 minutes).
package cache
