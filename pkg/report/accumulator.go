package report

import (
	"context"
	"fmt"

	"metrika-export/pkg/budget"
	"metrika-export/pkg/client"
	"metrika-export/pkg/daterange"
	"metrika-export/pkg/query"
)

// DefaultBatchSize is the page size requested from the API.
const DefaultBatchSize = 10000

// DefaultOffsetOrigin is the first page offset. The Reports API counts
// rows from 1.
const DefaultOffsetOrigin = 1

// ChunkResult holds everything one chunk produced.
type ChunkResult struct {
	Rows    []client.RawRow
	Echo    client.QueryEcho
	Sampled bool
}

// Accumulator drains one chunk page by page. All pagination state is
// local to a single Collect call, so independent chunks can run on
// separate accumulator calls concurrently.
type Accumulator struct {
	Fetcher   Fetcher
	BatchSize int // rows per page
	MaxRows   int // row ceiling, 0 = unlimited
	Origin    int // first offset
}

// NewAccumulator returns an accumulator with default page size and
// offset origin. Fields may be adjusted before first use.
func NewAccumulator(f Fetcher) *Accumulator {
	return &Accumulator{
		Fetcher:   f,
		BatchSize: DefaultBatchSize,
		Origin:    DefaultOffsetOrigin,
	}
}

// Collect fetches every page of one chunk and returns the merged rows.
// The query echo is taken from the first page; the sampled flag is
// sticky once any page reports it. Stops on the row ceiling (trimming
// the last page) or on the first short page.
func (a *Accumulator) Collect(ctx context.Context, spec query.Spec, chunk daterange.Range, bud *budget.Budget) (*ChunkResult, error) {
	res := &ChunkResult{}
	err := a.collect(ctx, spec, chunk, bud, func(rows []client.RawRow, page *client.PageResponse) error {
		if len(res.Echo.Dimensions) == 0 && len(res.Echo.Metrics) == 0 {
			res.Echo = page.Query
		}
		if page.Sampled {
			res.Sampled = true
		}
		res.Rows = append(res.Rows, rows...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// CollectFunc fetches one chunk like Collect but hands each page's rows
// to fn instead of retaining them, keeping at most one page in memory.
// Rows passed to fn are already trimmed to the ceiling.
func (a *Accumulator) CollectFunc(ctx context.Context, spec query.Spec, chunk daterange.Range, bud *budget.Budget, fn func(rows []client.RawRow, page *client.PageResponse) error) error {
	return a.collect(ctx, spec, chunk, bud, fn)
}

func (a *Accumulator) collect(ctx context.Context, spec query.Spec, chunk daterange.Range, bud *budget.Budget, onPage func([]client.RawRow, *client.PageResponse) error) error {
	batch := a.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}

	offset := a.Origin
	merged := 0

	for {
		page, err := a.Fetcher.FetchPage(ctx, spec.Params(chunk, batch, offset), bud)
		if err != nil {
			return fmt.Errorf("chunk %s offset %d: %w", chunk, offset, err)
		}
		if !page.HasData() {
			return fmt.Errorf("chunk %s offset %d: %w", chunk, offset, ErrProtocol)
		}

		rows := page.Rows()
		fetched := len(rows)
		if a.MaxRows > 0 && merged+fetched > a.MaxRows {
			rows = rows[:a.MaxRows-merged]
		}
		merged += len(rows)

		if err := onPage(rows, page); err != nil {
			return err
		}

		if a.MaxRows > 0 && merged >= a.MaxRows {
			return nil
		}
		if fetched < batch {
			return nil
		}
		offset += batch
	}
}
