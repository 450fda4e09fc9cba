package report

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"metrika-export/pkg/budget"
	"metrika-export/pkg/client"
	"metrika-export/pkg/daterange"
	"metrika-export/pkg/query"
)

// DefaultTimeout is the wall-clock allowance for one extraction.
const DefaultTimeout = 60 * time.Second

var (
	extractionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "metrika_extractions_total",
		Help: "Total extractions by mode and outcome",
	}, []string{"mode", "outcome"})

	extractionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "metrika_extraction_duration_seconds",
		Help:    "End-to-end extraction duration in seconds",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
	})

	chunksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "metrika_chunks_processed_total",
		Help: "Chunks fully drained, by scheduling regime",
	}, []string{"mode"})
)

// Options tune one extractor.
type Options struct {
	// BatchSize is the page size requested per API call.
	BatchSize int

	// MaxRows caps the total row count across all chunks, 0 = unlimited.
	MaxRows int

	// Origin is the first page offset within each chunk.
	Origin int

	// Split enables date-range partitioning. Off, the whole range is
	// one chunk.
	Split bool

	// Policy selects the partition granularity table.
	Policy daterange.Policy

	// Period selects the value set for multi-period metric responses.
	Period int

	// Timeout is the total wall-clock budget for the extraction.
	Timeout time.Duration
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		BatchSize: DefaultBatchSize,
		Origin:    DefaultOffsetOrigin,
		Split:     true,
		Policy:    daterange.PolicyStandard,
		Timeout:   DefaultTimeout,
	}
}

// Result summarizes one finished extraction.
type Result struct {
	// Table holds the assembled rows. Nil in streaming mode, where rows
	// went to the sink instead.
	Table *Table

	// Sampled is true when any page was answered from a sampled
	// dataset. A warning, never an error.
	Sampled bool

	// TotalRows is the number of rows produced.
	TotalRows int

	// ExcludedChunks counts chunks dropped by a best-effort concurrent
	// run. Always 0 for sequential extractions.
	ExcludedChunks int

	// Elapsed is the extraction wall-clock time.
	Elapsed time.Duration
}

// Extractor runs the sequential extraction regime: chunks strictly in
// order, pages strictly in offset order, any error aborting the whole
// run with no partial result.
type Extractor struct {
	fetcher Fetcher
	opts    Options
	logger  zerolog.Logger
}

// New creates an extractor. Zero fields in opts fall back to defaults.
func New(f Fetcher, opts Options) *Extractor {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Extractor{
		fetcher: f,
		opts:    opts,
		logger:  log.With().Str("component", "extractor").Logger(),
	}
}

// Extract pulls the whole report into memory and assembles it.
func (e *Extractor) Extract(ctx context.Context, spec query.Spec, r daterange.Range) (*Result, error) {
	var (
		raw     []client.RawRow
		echo    client.QueryEcho
		sampled bool
	)

	res, err := e.run(ctx, "sequential", spec, r, func(rows []client.RawRow, page *client.PageResponse) error {
		if len(echo.Dimensions) == 0 && len(echo.Metrics) == 0 {
			echo = page.Query
		}
		if page.Sampled {
			sampled = true
		}
		raw = append(raw, rows...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if sampled {
		e.logger.Warn().Msg("Response was sampled, the report may be incomplete")
	}
	res.Table = NewAssembler(echo, e.opts.Period).Table(raw)
	res.Sampled = sampled
	res.TotalRows = len(raw)
	return res, nil
}

// ExtractStream pulls the report page by page into sink, holding at
// most one page of rows in memory. The sink's header is written once,
// from the first page's schema; it is closed only on success.
func (e *Extractor) ExtractStream(ctx context.Context, spec query.Spec, r daterange.Range, sink RowSink) (*Result, error) {
	var (
		asm     *Assembler
		sampled bool
		total   int
	)

	res, err := e.run(ctx, "streaming", spec, r, func(rawRows []client.RawRow, page *client.PageResponse) error {
		if page.Sampled {
			sampled = true
		}
		rows := make([]Row, 0, len(rawRows))
		if asm == nil {
			asm = NewAssembler(page.Query, e.opts.Period)
			rows = asm.Rows(rawRows)
			if err := sink.Begin(asm.Columns()); err != nil {
				return err
			}
		} else {
			rows = asm.Rows(rawRows)
		}
		total += len(rows)
		return sink.WriteRows(rows)
	})
	if err != nil {
		return nil, err
	}

	if err := sink.Close(); err != nil {
		return nil, err
	}
	res.Sampled = sampled
	res.TotalRows = total
	return res, nil
}

// run drives the shared chunk loop: validate, partition, budget, then
// one accumulator pass per chunk in range order.
func (e *Extractor) run(ctx context.Context, mode string, spec query.Spec, r daterange.Range, onPage func([]client.RawRow, *client.PageResponse) error) (*Result, error) {
	if err := spec.Validate(); err != nil {
		extractionsTotal.WithLabelValues(mode, "invalid").Inc()
		return nil, err
	}

	extractionID := uuid.New().String()
	logger := e.logger.With().
		Str("extraction_id", extractionID).
		Str("counter_id", spec.CounterID).
		Logger()

	chunks := daterange.Partition(r, e.opts.Split, e.opts.Policy)
	bud := budget.New(e.opts.Timeout)
	start := time.Now()

	logger.Info().
		Str("range", r.String()).
		Int("chunks", len(chunks)).
		Str("mode", mode).
		Msg("Extraction started")

	merged := 0
	for _, chunk := range chunks {
		acc := &Accumulator{
			Fetcher:   e.fetcher,
			BatchSize: e.opts.BatchSize,
			Origin:    e.opts.Origin,
		}
		if e.opts.MaxRows > 0 {
			acc.MaxRows = e.opts.MaxRows - merged
		}

		before := merged
		err := acc.CollectFunc(ctx, spec, chunk, bud, func(rows []client.RawRow, page *client.PageResponse) error {
			merged += len(rows)
			return onPage(rows, page)
		})
		if err != nil {
			extractionsTotal.WithLabelValues(mode, "error").Inc()
			logger.Error().Err(err).Str("chunk", chunk.String()).Msg("Extraction aborted")
			return nil, err
		}

		chunksProcessed.WithLabelValues(mode).Inc()
		logger.Debug().
			Str("chunk", chunk.String()).
			Int("rows", merged-before).
			Msg("Chunk complete")

		if e.opts.MaxRows > 0 && merged >= e.opts.MaxRows {
			break
		}
	}

	if merged == 0 {
		extractionsTotal.WithLabelValues(mode, "empty").Inc()
		return nil, ErrEmptyResult
	}

	elapsed := time.Since(start)
	extractionsTotal.WithLabelValues(mode, "success").Inc()
	extractionDuration.Observe(elapsed.Seconds())

	logger.Info().
		Int("rows", merged).
		Dur("duration", elapsed).
		Msg("Extraction finished")

	return &Result{Elapsed: elapsed}, nil
}
