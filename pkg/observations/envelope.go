package observations

import (
	"encoding/json"
	"fmt"
)

// envelope mirrors the top-level shape of an observations response.
type envelope struct {
	TotalResults int               `json:"total_results"`
	Page         int               `json:"page"`
	PerPage      int               `json:"per_page"`
	Results      []json.RawMessage `json:"results"`
}

// DecodePage parses a response body into a Page. It returns the server's
// total_results count alongside the page for progress reporting.
//
// A body that is not valid JSON, or that carries no results field at all,
// fails with ErrMalformedResponse. An empty results array is a valid
// empty page.
func DecodePage(body []byte) (Page, int, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if env.Results == nil {
		return nil, 0, fmt.Errorf("%w: missing results field", ErrMalformedResponse)
	}

	page := make(Page, 0, len(env.Results))
	for i, raw := range env.Results {
		obs, err := decodeObservation(raw)
		if err != nil {
			return nil, 0, fmt.Errorf("record %d: %w", i, err)
		}
		page = append(page, obs)
	}

	return page, env.TotalResults, nil
}
