package integration

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/Sternrassler/inat-obs-client/internal/testutil"
	"github.com/Sternrassler/inat-obs-client/pkg/client"
	"github.com/Sternrassler/inat-obs-client/pkg/observations"
	"github.com/Sternrassler/inat-obs-client/pkg/pagination"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

func newTestClient(t *testing.T, redisClient *redis.Client, baseURL string) *client.Client {
	t.Helper()

	cfg := client.DefaultConfig(redisClient, "inat-obs-client-test/1.0 (integration@test.com)")
	cfg.BaseURL = baseURL
	cfg.InitialBackoff = 50 * time.Millisecond

	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return c
}

func newCollector(c *client.Client) *pagination.Collector {
	return pagination.New(observations.NewService(c), pagination.Config{
		Interval: 10 * time.Millisecond, // speed up test
	})
}

// TestFullCollectionFlow runs a complete collection against the mock API:
// budget check, cache, cursor walk, termination on the short final page.
func TestFullCollectionFlow(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SeedSequential(487)

	c := newTestClient(t, redisClient, mock.URL())
	defer c.Close()

	result, err := newCollector(c).Collect(context.Background(), observations.Query{PerPage: 200})
	if err != nil {
		t.Fatalf("Collect() failed: %v", err)
	}

	if result.Len() != 487 {
		t.Errorf("records = %d, want 487", result.Len())
	}
	if result.MaxID() != 487 {
		t.Errorf("max id = %d, want 487", result.MaxID())
	}
	// 487 records at 200 per page: pages of 200, 200, 87.
	if got := mock.GetRequestCount(); got != 3 {
		t.Errorf("API requests = %d, want 3", got)
	}
}

// TestRepeatCollectionUsesCache reruns the same query and verifies every
// page is revalidated conditionally and served from cache via 304s.
func TestRepeatCollectionUsesCache(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SeedSequential(487)

	c := newTestClient(t, redisClient, mock.URL())
	defer c.Close()

	ctx := context.Background()
	query := observations.Query{PerPage: 200}

	first, err := newCollector(c).Collect(ctx, query)
	if err != nil {
		t.Fatalf("First Collect() failed: %v", err)
	}

	// Wait for cache writes to land.
	time.Sleep(100 * time.Millisecond)

	second, err := newCollector(c).Collect(ctx, query)
	if err != nil {
		t.Fatalf("Second Collect() failed: %v", err)
	}

	if first.Len() != second.Len() {
		t.Errorf("second run records = %d, want %d", second.Len(), first.Len())
	}
	if got := mock.GetConditionalCount(); got != 3 {
		t.Errorf("conditional requests = %d, want 3 (one per page)", got)
	}
	for i := range first.Records {
		if first.Records[i].ID != second.Records[i].ID {
			t.Fatalf("record %d differs between runs: %d vs %d",
				i, first.Records[i].ID, second.Records[i].ID)
		}
	}
}

// TestCollectionSurvivesServerErrors verifies 5xx failures are retried and
// the run completes with the full result set.
func TestCollectionSurvivesServerErrors(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SeedSequential(250)
	mock.FailNext(2, http.StatusInternalServerError)

	c := newTestClient(t, redisClient, mock.URL())
	defer c.Close()

	result, err := newCollector(c).Collect(context.Background(), observations.Query{PerPage: 200})
	if err != nil {
		t.Fatalf("Collect() failed despite retries: %v", err)
	}

	if result.Len() != 250 {
		t.Errorf("records = %d, want 250", result.Len())
	}
	// 2 failed attempts + 2 successful pages.
	if got := mock.GetRequestCount(); got != 4 {
		t.Errorf("API requests = %d, want 4", got)
	}
}

// TestCollectionBlockedByBudget verifies an exhausted daily budget stops
// the run before any HTTP request is made.
func TestCollectionBlockedByBudget(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SeedSequential(10)

	ctx := context.Background()

	// Exhaust today's budget before the run.
	key := "inat:budget:" + time.Now().UTC().Format("2006-01-02")
	if err := redisClient.Set(ctx, key, 10, time.Hour).Err(); err != nil {
		t.Fatalf("seed budget counter: %v", err)
	}

	cfg := client.DefaultConfig(redisClient, "inat-obs-client-test/1.0 (integration@test.com)")
	cfg.BaseURL = mock.URL()
	cfg.DailyBudget = 10

	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer c.Close()

	_, err = newCollector(c).Collect(ctx, observations.Query{PerPage: 200})
	if err == nil {
		t.Error("Collect() should fail when the daily budget is exhausted")
	}
	if got := mock.GetRequestCount(); got != 0 {
		t.Errorf("API requests = %d, want 0 (blocked)", got)
	}
}

// TestFilteredCollection verifies query filters reach the API unchanged.
func TestFilteredCollection(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SeedSequential(5)

	c := newTestClient(t, redisClient, mock.URL())
	defer c.Close()

	query := observations.Query{
		QualityGrade:  "research",
		PlaceID:       6712,
		TermID:        12,
		TermValueID:   13,
		ObservedSince: "2021-01-01",
		PerPage:       200,
	}

	if _, err := newCollector(c).Collect(context.Background(), query); err != nil {
		t.Fatalf("Collect() failed: %v", err)
	}

	got := mock.LastQuery
	checks := map[string]string{
		"quality_grade": "research",
		"place_id":      "6712",
		"term_id":       "12",
		"term_value_id": "13",
		"d1":            "2021-01-01",
		"order_by":      "id",
		"order":         "asc",
		"per_page":      "200",
	}
	for param, want := range checks {
		if got.Get(param) != want {
			t.Errorf("query param %s = %q, want %q", param, got.Get(param), want)
		}
	}
}
