package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// CacheKey represents a unique identifier for a cached API response.
// Observation pages are fully determined by the endpoint and its query
// parameters (including the id_above cursor).
type CacheKey struct {
	// Endpoint is the API endpoint path (e.g., "/v1/observations")
	Endpoint string

	// QueryParams are the query parameters of the request
	QueryParams url.Values
}

// String generates a deterministic cache key string.
// Format: inat:endpoint:param1=val1:param2=val2
//
// Example:
//
//	inat:v1/observations:id_above=184627:per_page=200
func (k CacheKey) String() string {
	parts := []string{"inat"}

	// Add endpoint (normalize path)
	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	// Add query params (sorted for determinism)
	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, k.QueryParams.Get(key)))
		}
	}

	return strings.Join(parts, ":")
}
