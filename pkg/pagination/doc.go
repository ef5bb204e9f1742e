// Package pagination implements cursor-based collection of complete result
// sets from the observations endpoint.
//
// The API paginates with an ascending-ID cursor: each fetch returns records
// whose identifier is strictly greater than id_above, sorted ascending, and
// a page shorter than the requested page size signals end of data. Because
// fetch N+1's cursor is the maximum identifier of fetch N, collection is
// strictly sequential; there is nothing to parallelize.
//
// Example usage:
//
//	svc := observations.NewService(apiClient)
//	collector := pagination.New(svc, pagination.DefaultConfig())
//	rs, err := collector.Collect(ctx, observations.Query{
//		QualityGrade:  "research",
//		PlaceID:       6712,
//		ObservedSince: "2020-01-01",
//	})
//
// The collector:
//   - Paces fetches with a fixed inter-request delay
//   - Appends each page to the result set in fetch order
//   - Advances the cursor to the page's maximum identifier
//   - Stops on the first short page (an empty page is trivially short)
//   - Optionally hands each page to a PageSink for incremental persistence
package pagination
