package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	"metrika-export/pkg/budget"
	"metrika-export/pkg/client"
	"metrika-export/pkg/daterange"
	"metrika-export/pkg/query"
)

// FailurePolicy decides what a failed chunk does to a concurrent run.
type FailurePolicy string

const (
	// FailFast aborts the whole run on the first chunk error, matching
	// the sequential regime's no-partial-result contract.
	FailFast FailurePolicy = "fail_fast"

	// BestEffort drops failed chunks and reports how many were
	// excluded, trading completeness for availability.
	BestEffort FailurePolicy = "best_effort"
)

// DefaultMaxConcurrency bounds the fan-out width.
const DefaultMaxConcurrency = 4

// ConcurrentRunner issues one request per chunk in parallel. It does
// not paginate: each chunk is expected to fit a single page, which
// holds for year-sized chunks of aggregate reports. Every request
// draws on the same shared budget.
type ConcurrentRunner struct {
	fetcher        Fetcher
	opts           Options
	policy         FailurePolicy
	maxConcurrency int
	logger         zerolog.Logger
}

// NewConcurrentRunner creates a runner with the given failure policy.
func NewConcurrentRunner(f Fetcher, opts Options, policy FailurePolicy) *ConcurrentRunner {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &ConcurrentRunner{
		fetcher:        f,
		opts:           opts,
		policy:         policy,
		maxConcurrency: DefaultMaxConcurrency,
		logger:         log.With().Str("component", "concurrent-runner").Logger(),
	}
}

// SetMaxConcurrency overrides the fan-out width.
func (r *ConcurrentRunner) SetMaxConcurrency(n int) {
	if n > 0 {
		r.maxConcurrency = n
	}
}

type chunkOutcome struct {
	index int
	chunk daterange.Range
	page  *client.PageResponse
	err   error
}

// Extract fans one request per chunk out across the pool and merges
// the results in chunk order on the calling goroutine.
func (r *ConcurrentRunner) Extract(ctx context.Context, spec query.Spec, dr daterange.Range) (*Result, error) {
	if err := spec.Validate(); err != nil {
		extractionsTotal.WithLabelValues("concurrent", "invalid").Inc()
		return nil, err
	}

	logger := r.logger.With().
		Str("extraction_id", uuid.New().String()).
		Str("counter_id", spec.CounterID).
		Logger()

	chunks := daterange.Partition(dr, r.opts.Split, r.opts.Policy)
	bud := budget.New(r.opts.Timeout)
	start := time.Now()

	logger.Info().
		Str("range", dr.String()).
		Int("chunks", len(chunks)).
		Str("policy", string(r.policy)).
		Msg("Concurrent extraction started")

	p := pool.NewWithResults[chunkOutcome]().
		WithContext(ctx).
		WithMaxGoroutines(r.maxConcurrency)
	if r.policy == FailFast {
		p = p.WithCancelOnError().WithFirstError()
	}

	for i, chunk := range chunks {
		i, chunk := i, chunk
		p.Go(func(ctx context.Context) (chunkOutcome, error) {
			out := chunkOutcome{index: i, chunk: chunk}
			page, err := r.fetchChunk(ctx, spec, chunk, bud)
			if err != nil {
				if r.policy == FailFast {
					return out, err
				}
				logger.Warn().Err(err).Str("chunk", chunk.String()).Msg("Chunk dropped")
				out.err = err
				return out, nil
			}
			out.page = page
			return out, nil
		})
	}

	outcomes, err := p.Wait()
	if err != nil {
		extractionsTotal.WithLabelValues("concurrent", "error").Inc()
		return nil, err
	}

	// Pool completion order is not chunk order.
	sort.Slice(outcomes, func(a, b int) bool { return outcomes[a].index < outcomes[b].index })

	var (
		raw      []client.RawRow
		echo     client.QueryEcho
		sampled  bool
		excluded int
	)
	for _, out := range outcomes {
		if out.err != nil {
			excluded++
			continue
		}
		chunksProcessed.WithLabelValues("concurrent").Inc()
		if len(echo.Dimensions) == 0 && len(echo.Metrics) == 0 {
			echo = out.page.Query
		}
		if out.page.Sampled {
			sampled = true
		}
		raw = append(raw, out.page.Rows()...)
	}

	if r.opts.MaxRows > 0 && len(raw) > r.opts.MaxRows {
		raw = raw[:r.opts.MaxRows]
	}
	if len(raw) == 0 {
		extractionsTotal.WithLabelValues("concurrent", "empty").Inc()
		if excluded > 0 {
			return nil, fmt.Errorf("%w (%d of %d chunks failed)", ErrEmptyResult, excluded, len(chunks))
		}
		return nil, ErrEmptyResult
	}

	if sampled {
		logger.Warn().Msg("Response was sampled, the report may be incomplete")
	}

	elapsed := time.Since(start)
	extractionsTotal.WithLabelValues("concurrent", "success").Inc()
	extractionDuration.Observe(elapsed.Seconds())

	logger.Info().
		Int("rows", len(raw)).
		Int("excluded_chunks", excluded).
		Dur("duration", elapsed).
		Msg("Concurrent extraction finished")

	return &Result{
		Table:          NewAssembler(echo, r.opts.Period).Table(raw),
		Sampled:        sampled,
		TotalRows:      len(raw),
		ExcludedChunks: excluded,
		Elapsed:        elapsed,
	}, nil
}

func (r *ConcurrentRunner) fetchChunk(ctx context.Context, spec query.Spec, chunk daterange.Range, bud *budget.Budget) (*client.PageResponse, error) {
	page, err := r.fetcher.FetchPage(ctx, spec.Params(chunk, r.opts.BatchSize, r.opts.Origin), bud)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", chunk, err)
	}
	if !page.HasData() {
		return nil, fmt.Errorf("chunk %s: %w", chunk, ErrProtocol)
	}
	return page, nil
}
