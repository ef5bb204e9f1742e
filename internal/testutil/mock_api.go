// Package testutil provides testing utilities for the observations client.
package testutil

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// MockResponse defines the behavior for a canned endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockAPI is a configurable mock observations API server. It serves a
// seeded, ID-ordered corpus through the real pagination contract: records
// with id strictly greater than id_above, at most per_page of them,
// ascending.
type MockAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
	corpus   []mockRecord

	// Failure injection for the observations endpoint.
	failuresLeft int
	failStatus   int

	// Tracking
	RequestCount     int
	ConditionalCount int
	LastQuery        url.Values
}

type mockRecord struct {
	id   int64
	body json.RawMessage
}

// NewMockAPI creates a new mock API server with an empty corpus.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastQuery = r.URL.Query()
		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.ConditionalCount++
		}
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		if r.URL.Path == "/v1/observations" {
			mock.observationsHandler(w, r)
			return
		}

		http.NotFound(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears tracking counters and failure injection.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ConditionalCount = 0
	m.LastQuery = nil
	m.failuresLeft = 0
}

// Seed replaces the corpus with records of the given identifiers.
// Identifiers must be provided in ascending order.
func (m *MockAPI) Seed(ids ...int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.corpus = make([]mockRecord, 0, len(ids))
	for _, id := range ids {
		m.corpus = append(m.corpus, mockRecord{id: id, body: recordBody(id)})
	}
}

// SeedSequential replaces the corpus with n records of identifiers 1..n.
func (m *MockAPI) SeedSequential(n int) {
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	m.Seed(ids...)
}

// FailNext makes the next n observations requests fail with the given status.
func (m *MockAPI) FailNext(n int, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failuresLeft = n
	m.failStatus = status
}

// SetHandler sets a custom handler for a specific path.
func (m *MockAPI) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple canned response for a path.
func (m *MockAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockAPI) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

// observationsHandler serves the seeded corpus through the cursor contract.
func (m *MockAPI) observationsHandler(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	if m.failuresLeft > 0 {
		m.failuresLeft--
		status := m.failStatus
		m.mu.Unlock()
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"error": "injected failure", "status": %d}`, status)
		return
	}
	corpus := m.corpus
	m.mu.Unlock()

	q := r.URL.Query()

	idAbove, _ := strconv.ParseInt(q.Get("id_above"), 10, 64)
	perPage, err := strconv.Atoi(q.Get("per_page"))
	if err != nil || perPage <= 0 || perPage > 200 {
		perPage = 200
	}

	var matching []mockRecord
	for _, rec := range corpus {
		if rec.id > idAbove {
			matching = append(matching, rec)
		}
	}

	page := matching
	if len(page) > perPage {
		page = page[:perPage]
	}

	etag := pageETag(r.URL.RawQuery, len(corpus))
	expires := time.Now().Add(5 * time.Minute).Format(http.TimeFormat)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Expires", expires)

	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)

	results := make([]json.RawMessage, 0, len(page))
	for _, rec := range page {
		results = append(results, rec.body)
	}

	resp := map[string]any{
		"total_results": len(matching),
		"page":          1,
		"per_page":      perPage,
		"results":       results,
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// recordBody builds a plausible observation payload for an identifier.
func recordBody(id int64) json.RawMessage {
	body := fmt.Sprintf(`{"id": %d, "quality_grade": "research", "taxon": {"name": "Danaus plexippus", "rank": "species"}, "observed_on_details": {"year": 2024, "month": %d}}`,
		id, (id%12)+1)
	return json.RawMessage(body)
}

// pageETag derives a stable ETag from the query string and corpus version.
func pageETag(rawQuery string, corpusLen int) string {
	h := fnv.New64a()
	h.Write([]byte(rawQuery))
	fmt.Fprintf(h, ":%d", corpusLen)
	return fmt.Sprintf(`"obs-%x"`, h.Sum64())
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Rate limit exceeded"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}
