// Package observations models the iNaturalist observations endpoint:
// queries, records, pages, and the decoded result set.
package observations

import (
	"net/url"
	"strconv"
)

// MaxPerPage is the page size cap enforced by the API.
const MaxPerPage = 200

// Query holds the fixed filter parameters of a collection session.
// The ascending-ID cursor is deliberately not part of the Query; the
// collector owns it and passes it to each fetch.
type Query struct {
	// QualityGrade filters by observation quality (e.g. "research").
	QualityGrade string

	// PlaceID restricts results to a geographic region.
	PlaceID int

	// TermID and TermValueID select an annotation, e.g. term 12
	// (Plant Phenology) with value 13 (Flowering).
	TermID      int
	TermValueID int

	// ObservedSince is the minimum observation date (d1) as YYYY-MM-DD.
	ObservedSince string

	// PerPage is the requested page size. Zero or negative values and
	// values above MaxPerPage are replaced with MaxPerPage.
	PerPage int
}

// EffectivePerPage returns the page size actually sent to the API.
func (q Query) EffectivePerPage() int {
	if q.PerPage <= 0 || q.PerPage > MaxPerPage {
		return MaxPerPage
	}
	return q.PerPage
}

// Values renders the query parameters for one fetch. Sort order is always
// ascending by ID; cursor advancement depends on it.
func (q Query) Values(idAbove int64) url.Values {
	v := url.Values{}
	v.Set("order_by", "id")
	v.Set("order", "asc")
	v.Set("per_page", strconv.Itoa(q.EffectivePerPage()))

	if q.QualityGrade != "" {
		v.Set("quality_grade", q.QualityGrade)
	}
	if q.PlaceID > 0 {
		v.Set("place_id", strconv.Itoa(q.PlaceID))
	}
	if q.TermID > 0 {
		v.Set("term_id", strconv.Itoa(q.TermID))
	}
	if q.TermValueID > 0 {
		v.Set("term_value_id", strconv.Itoa(q.TermValueID))
	}
	if q.ObservedSince != "" {
		v.Set("d1", q.ObservedSince)
	}
	if idAbove > 0 {
		v.Set("id_above", strconv.FormatInt(idAbove, 10))
	}

	return v
}
