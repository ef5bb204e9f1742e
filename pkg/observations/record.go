package observations

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Errors returned while decoding API responses.
var (
	// ErrMalformedResponse indicates the response body was not valid JSON
	// or lacked the results field.
	ErrMalformedResponse = errors.New("malformed observations response")

	// ErrMissingID indicates a record without a usable identifier.
	// The cursor cannot advance past such a record, so decoding fails.
	ErrMissingID = errors.New("observation record missing id")
)

// Observation is one record from the API. Only the identifier is modeled;
// the remaining ~160 fields stay in Raw for downstream consumers (see
// pkg/flatten for dot-path access).
type Observation struct {
	ID  int64
	Raw json.RawMessage
}

// decodeObservation extracts the identifier and keeps the payload opaque.
func decodeObservation(raw json.RawMessage) (Observation, error) {
	var head struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return Observation{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if head.ID <= 0 {
		return Observation{}, ErrMissingID
	}
	return Observation{ID: head.ID, Raw: raw}, nil
}

// Page is the ordered sequence of records returned by one fetch.
type Page []Observation

// Len returns the number of records in the page.
func (p Page) Len() int { return len(p) }

// MinID returns the smallest identifier in the page, or 0 if empty.
func (p Page) MinID() int64 {
	if len(p) == 0 {
		return 0
	}
	min := p[0].ID
	for _, o := range p[1:] {
		if o.ID < min {
			min = o.ID
		}
	}
	return min
}

// MaxID returns the largest identifier in the page, or 0 if empty.
// It is the cursor for the next fetch.
func (p Page) MaxID() int64 {
	if len(p) == 0 {
		return 0
	}
	max := p[0].ID
	for _, o := range p[1:] {
		if o.ID > max {
			max = o.ID
		}
	}
	return max
}

// ResultSet is the ordered concatenation of all pages of a collection run.
// Records appear in fetch order, which is ascending-ID order because the
// query requests that sort explicitly.
type ResultSet struct {
	Records []Observation
}

// Append adds a page's records to the result set.
func (rs *ResultSet) Append(p Page) {
	rs.Records = append(rs.Records, p...)
}

// Len returns the number of collected records.
func (rs *ResultSet) Len() int { return len(rs.Records) }

// MaxID returns the largest identifier collected so far, or 0 if empty.
func (rs *ResultSet) MaxID() int64 {
	if len(rs.Records) == 0 {
		return 0
	}
	return rs.Records[len(rs.Records)-1].ID
}
