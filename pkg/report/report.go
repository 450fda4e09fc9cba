// Package report turns a query spec and a date range into a tabular
// report: it partitions the range, paginates every chunk through a page
// fetcher, and assembles the raw rows into one stable column schema.
// Sequential extraction is fail-fast; the concurrent runner offers an
// explicit best-effort alternative.
package report

import (
	"context"
	"errors"
	"net/url"

	"metrika-export/pkg/budget"
	"metrika-export/pkg/client"
)

var (
	// ErrProtocol reports a response without the expected data field.
	// An empty data list is fine; a missing one means the upstream
	// contract was violated.
	ErrProtocol = errors.New("report: response missing data field")

	// ErrEmptyResult reports zero rows across every chunk. Callers see
	// this as a failure, not a valid empty table.
	ErrEmptyResult = errors.New("report: no rows for the requested range")
)

// Fetcher issues one paginated Reports API request. *client.Client
// satisfies it; tests substitute scripted fetchers.
type Fetcher interface {
	FetchPage(ctx context.Context, params url.Values, bud *budget.Budget) (*client.PageResponse, error)
}

// RowSink receives assembled rows incrementally. Begin is called exactly
// once, before the first WriteRows, with the final column schema.
type RowSink interface {
	Begin(columns []string) error
	WriteRows(rows []Row) error
	Close() error
}
