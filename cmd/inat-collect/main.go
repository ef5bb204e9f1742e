// Command inat-collect runs one complete collection of an observations
// query and writes the result set to an NDJSON file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/inat-obs-client/internal/storage"
	"github.com/Sternrassler/inat-obs-client/pkg/client"
	"github.com/Sternrassler/inat-obs-client/pkg/logging"
	"github.com/Sternrassler/inat-obs-client/pkg/observations"
	"github.com/Sternrassler/inat-obs-client/pkg/pagination"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "inat-collect: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	godotenv.Load()

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		Pretty: os.Getenv("LOG_PRETTY") == "true",
		Output: os.Stderr,
	})

	var (
		quality   = flag.String("quality", "research", "quality grade filter")
		placeID   = flag.Int("place", 0, "place ID (geographic region)")
		termID    = flag.Int("term", 0, "annotation term ID")
		termValue = flag.Int("term-value", 0, "annotation term value ID")
		since     = flag.String("since", "", "minimum observation date (YYYY-MM-DD)")
		perPage   = flag.Int("per-page", observations.MaxPerPage, "page size (API caps at 200)")
		interval  = flag.Duration("interval", 1*time.Second, "delay between requests")
		out       = flag.String("out", "observations.ndjson", "output NDJSON file")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Redis backs the response cache and the shared daily budget.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     getEnv("REDIS_URL", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}

	cfg := client.DefaultConfig(redisClient, getEnv("USER_AGENT", "inat-obs-client/0.1.0"))
	if baseURL := os.Getenv("INAT_BASE_URL"); baseURL != "" {
		cfg.BaseURL = baseURL
	}

	apiClient, err := client.New(cfg)
	if err != nil {
		return fmt.Errorf("create API client: %w", err)
	}
	defer apiClient.Close()

	writer, err := storage.NewWriter(*out)
	if err != nil {
		return err
	}
	defer writer.Close()

	query := observations.Query{
		QualityGrade:  *quality,
		PlaceID:       *placeID,
		TermID:        *termID,
		TermValueID:   *termValue,
		ObservedSince: *since,
		PerPage:       *perPage,
	}

	collector := pagination.New(observations.NewService(apiClient), pagination.Config{
		Interval: *interval,
		Sink:     writer,
	})

	start := time.Now()
	result, err := collector.Collect(ctx, query)
	if err != nil {
		return fmt.Errorf("collect: %w", err)
	}

	logger.Info().
		Int("records", result.Len()).
		Int64("max_id", result.MaxID()).
		Str("output", *out).
		Dur("duration", time.Since(start)).
		Msg("Collection written")

	return nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
