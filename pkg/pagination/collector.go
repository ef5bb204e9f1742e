package pagination

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/inat-obs-client/pkg/logging"
	"github.com/Sternrassler/inat-obs-client/pkg/observations"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Prometheus metrics for collection runs.
var (
	inatCollectPagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inat_collect_pages_total",
		Help: "Pages fetched across collection runs",
	})

	inatCollectRecordsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inat_collect_records_total",
		Help: "Records collected across collection runs",
	})

	inatCollectDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "inat_collect_duration_seconds",
		Help:    "Duration of complete collection runs",
		Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
	})

	inatCollectRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inat_collect_runs_total",
		Help: "Collection runs by outcome",
	}, []string{"status"})
)

// ErrCursorRegression indicates the API returned a record whose identifier
// is not strictly greater than the cursor. The no-duplicates invariant of
// the result set cannot be guaranteed past this point, so collection aborts.
var ErrCursorRegression = errors.New("page identifier at or below cursor")

// PageFetcher is the interface the API client must implement for
// single-page fetching. FetchPage returns the records matching the query
// whose identifier is strictly greater than idAbove.
type PageFetcher interface {
	FetchPage(ctx context.Context, q observations.Query, idAbove int64) (observations.Page, error)
}

// PageSink receives each page as it is fetched, before the next fetch is
// issued. Sinks persist pages incrementally so an aborted run keeps the
// data it already paid for. A sink error aborts the run.
type PageSink interface {
	WritePage(ctx context.Context, page observations.Page) error
}

// Config holds collector configuration.
type Config struct {
	// Interval is the fixed delay between successive fetches. The first
	// fetch is never delayed. Default: 1s, matching the public API's
	// recommended request rate.
	Interval time.Duration

	// Sink optionally receives every fetched page (may be nil).
	Sink PageSink
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		Interval: 1 * time.Second,
	}
}

// Collector drains a query's complete result set by walking the
// ascending-ID cursor.
type Collector struct {
	fetcher PageFetcher
	limiter *rate.Limiter
	sink    PageSink
	logger  zerolog.Logger
}

// New creates a new collector.
func New(fetcher PageFetcher, cfg Config) *Collector {
	if cfg.Interval <= 0 {
		cfg.Interval = 1 * time.Second
	}

	return &Collector{
		fetcher: fetcher,
		limiter: rate.NewLimiter(rate.Every(cfg.Interval), 1),
		sink:    cfg.Sink,
		logger:  logging.NewLogger("collector"),
	}
}

// Collect fetches every page of the query and returns the ordered,
// duplicate-free result set.
//
// Termination is "page shorter than the requested page size", not "page
// empty": a short page is the API's authoritative end-of-data signal, and
// an empty page is trivially short, so one check covers both. No confirming
// empty fetch is issued after a short page.
//
// Any fetch, decode, or sink error aborts the run; pages already handed to
// the sink are kept by the sink.
func (c *Collector) Collect(ctx context.Context, q observations.Query) (*observations.ResultSet, error) {
	runID := uuid.NewString()
	logger := c.logger.With().Str("run_id", runID).Logger()

	perPage := q.EffectivePerPage()
	start := time.Now()

	logger.Info().
		Int("per_page", perPage).
		Msg("Starting collection run")

	result := &observations.ResultSet{}
	var cursor int64
	fetches := 0

	for {
		// Fixed inter-request pacing; the limiter's initial burst lets
		// the first fetch through immediately.
		if err := c.limiter.Wait(ctx); err != nil {
			inatCollectRunsTotal.WithLabelValues("cancelled").Inc()
			return nil, fmt.Errorf("collection cancelled: %w", err)
		}

		page, err := c.fetcher.FetchPage(ctx, q, cursor)
		if err != nil {
			inatCollectRunsTotal.WithLabelValues("error").Inc()
			logger.Error().
				Err(err).
				Int64("id_above", cursor).
				Int("fetches", fetches).
				Int("records", result.Len()).
				Msg("Collection aborted")
			return nil, fmt.Errorf("fetch page after id %d: %w", cursor, err)
		}
		fetches++
		inatCollectPagesTotal.Inc()

		if page.Len() > 0 {
			// The cursor contract promises identifiers strictly above
			// id_above; anything else would duplicate records.
			if minID := page.MinID(); minID <= cursor {
				inatCollectRunsTotal.WithLabelValues("error").Inc()
				return nil, fmt.Errorf("%w: got id %d with cursor %d", ErrCursorRegression, minID, cursor)
			}

			result.Append(page)
			inatCollectRecordsTotal.Add(float64(page.Len()))

			if c.sink != nil {
				if err := c.sink.WritePage(ctx, page); err != nil {
					inatCollectRunsTotal.WithLabelValues("error").Inc()
					return nil, fmt.Errorf("write page to sink: %w", err)
				}
			}

			cursor = page.MaxID()
		}

		logger.Debug().
			Int("fetch", fetches).
			Int("page_size", page.Len()).
			Int64("cursor", cursor).
			Int("records", result.Len()).
			Msg("Page collected")

		// Short page (including empty) means end of data.
		if page.Len() < perPage {
			break
		}
	}

	inatCollectDuration.Observe(time.Since(start).Seconds())
	inatCollectRunsTotal.WithLabelValues("ok").Inc()

	logger.Info().
		Int("fetches", fetches).
		Int("records", result.Len()).
		Int64("max_id", result.MaxID()).
		Dur("duration", time.Since(start)).
		Msg("Collection complete")

	return result, nil
}
