// Package client implements the Reports API page fetcher: one paginated
// GET per call, with request pacing, error classification, optional
// Redis page caching, and shared quota gating.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"metrika-export/pkg/budget"
	"metrika-export/pkg/cache"
	"metrika-export/pkg/quota"
)

// DefaultBaseURL is the Reports API endpoint.
const DefaultBaseURL = "https://api-metrika.yandex.net/stat/v1/data"

// DefaultPaceInterval is the minimum spacing between consecutive
// requests, keeping one extraction under the API request-rate ceiling.
const DefaultPaceInterval = 110 * time.Millisecond

// Prometheus metrics for page fetch operations.
var (
	metrikaRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "metrika_requests_total",
		Help: "Total Reports API requests by HTTP status",
	}, []string{"status"})

	metrikaRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "metrika_request_duration_seconds",
		Help:    "Reports API request duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	})

	metrikaErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "metrika_errors_total",
		Help: "Total Reports API errors by kind",
	}, []string{"kind"})

	metrikaRowsFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "metrika_rows_fetched_total",
		Help: "Total raw rows fetched from the Reports API",
	})

	metrikaSampledResponsesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "metrika_sampled_responses_total",
		Help: "Total pages answered from a sampled dataset",
	})
)

// Config holds the client configuration.
type Config struct {
	// BaseURL of the Reports API (default DefaultBaseURL).
	BaseURL string

	// Token is the OAuth token. Empty means public-counter access:
	// no Authorization header is sent.
	Token string

	// PaceInterval is the minimum spacing between consecutive requests.
	PaceInterval time.Duration

	// HTTPClient overrides the transport (tests). Timeouts are applied
	// per request from the extraction budget, not here.
	HTTPClient *http.Client

	// Cache enables Redis page caching when non-nil.
	Cache *cache.Manager

	// CacheTTL is how long a cached page stays fresh.
	CacheTTL time.Duration

	// Quota enables shared rate-limit gating when non-nil.
	Quota *quota.Tracker
}

// DefaultConfig returns a configuration for direct API access.
func DefaultConfig(token string) Config {
	return Config{
		BaseURL:      DefaultBaseURL,
		Token:        token,
		PaceInterval: DefaultPaceInterval,
		CacheTTL:     5 * time.Minute,
	}
}

// Client fetches report pages from the Reports API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	limiter    *rate.Limiter
	cache      *cache.Manager
	cacheTTL   time.Duration
	quota      *quota.Tracker
	logger     zerolog.Logger
}

// New creates a new Reports API client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.PaceInterval <= 0 {
		cfg.PaceInterval = DefaultPaceInterval
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}

	return &Client{
		httpClient: cfg.HTTPClient,
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		limiter:    rate.NewLimiter(rate.Every(cfg.PaceInterval), 1),
		cache:      cfg.Cache,
		cacheTTL:   cfg.CacheTTL,
		quota:      cfg.Quota,
		logger:     log.With().Str("component", "metrika-client").Logger(),
	}
}

// FetchPage issues one paginated Reports API request. It fails fast when
// the budget is exhausted and uses the remaining budget as the network
// timeout; the pacing limiter spaces this call from the previous one
// whatever its outcome was.
func (c *Client) FetchPage(ctx context.Context, params url.Values, bud *budget.Budget) (*PageResponse, error) {
	left, err := bud.Remaining()
	if err != nil {
		metrikaErrorsTotal.WithLabelValues("timeout").Inc()
		return nil, err
	}

	if c.quota != nil {
		allowed, err := c.quota.ShouldAllowRequest(ctx)
		if err != nil {
			return nil, fmt.Errorf("quota gate: %w", err)
		}
		if !allowed {
			metrikaRequestsTotal.WithLabelValues("quota_blocked").Inc()
			return nil, &APIError{
				StatusCode: http.StatusTooManyRequests,
				Kind:       KindRateLimited,
				Message:    "request blocked: shared quota window exhausted",
			}
		}
	}

	key := cache.Key{Params: params}
	if c.cache != nil {
		if entry, err := c.cache.Get(ctx, key); err == nil {
			var page PageResponse
			if err := json.Unmarshal(entry.Data, &page); err == nil {
				c.logger.Debug().
					Str("offset", params.Get("offset")).
					Msg("Page served from cache")
				return &page, nil
			}
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("pacing wait: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, left)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.URL.RawQuery = params.Encode()
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "OAuth "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrikaRequestDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case reqCtx.Err() == context.DeadlineExceeded:
			metrikaErrorsTotal.WithLabelValues("timeout").Inc()
			c.logger.Error().
				Dur("remaining", left).
				Msg("Request ran past the remaining time budget")
			return nil, fmt.Errorf("%w: request exceeded remaining allowance", budget.ErrExhausted)
		default:
			metrikaErrorsTotal.WithLabelValues("connection").Inc()
			c.logger.Error().Err(err).Msg("HTTP request failed")
			return nil, fmt.Errorf("%w: %v", ErrConnection, err)
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrikaErrorsTotal.WithLabelValues("connection").Inc()
		return nil, fmt.Errorf("%w: read body: %v", ErrConnection, err)
	}

	metrikaRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		kind := classifyStatus(resp.StatusCode)
		if kind == KindRateLimited && c.quota != nil {
			if err := c.quota.RecordRateLimit(ctx); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to record rate limit hit")
			}
		}
		metrikaErrorsTotal.WithLabelValues(string(kind)).Inc()
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("kind", string(kind)).
			Msg("Reports API error")
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Kind:       kind,
			Message:    apiMessage(body),
		}
	}

	var page PageResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decode page response: %w", err)
	}

	if page.Sampled {
		metrikaSampledResponsesTotal.Inc()
	}
	metrikaRowsFetchedTotal.Add(float64(len(page.Rows())))

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, cache.NewEntry(body, c.cacheTTL)); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache page")
		}
	}

	c.logger.Debug().
		Str("offset", params.Get("offset")).
		Int("rows", len(page.Rows())).
		Int64("total_rows", page.TotalRows).
		Bool("sampled", page.Sampled).
		Msg("Page fetched")

	return &page, nil
}
