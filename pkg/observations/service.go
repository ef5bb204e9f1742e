package observations

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/Sternrassler/inat-obs-client/pkg/client"
	"github.com/Sternrassler/inat-obs-client/pkg/logging"
	"github.com/rs/zerolog"
)

// Endpoint is the observations search endpoint path.
const Endpoint = "/v1/observations"

// Service fetches observation pages through the API client.
// It implements pagination.PageFetcher.
type Service struct {
	client *client.Client
	logger zerolog.Logger
}

// NewService creates an observations service on top of an API client.
func NewService(c *client.Client) *Service {
	return &Service{
		client: c,
		logger: logging.NewLogger("observations"),
	}
}

// FetchPage performs one fetch: the records matching the query whose
// identifier is strictly greater than idAbove, at most per_page of them.
func (s *Service) FetchPage(ctx context.Context, q Query, idAbove int64) (Page, error) {
	resp, err := s.client.Get(ctx, Endpoint, q.Values(idAbove))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// 4xx responses pass through the client unretried; they are
		// terminal for the collection run.
		return nil, &client.APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: client.ClassifyStatus(resp.StatusCode),
			Message:    resp.Status,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read observations response: %w", err)
	}

	page, total, err := DecodePage(body)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Int64("id_above", idAbove).
		Int("page_size", page.Len()).
		Int("total_results", total).
		Msg("Fetched observations page")

	return page, nil
}
