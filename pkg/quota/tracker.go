package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for quota tracking.
var (
	quotaRateLimitHits = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "metrika_quota_rate_limit_hits",
		Help: "Number of 429 responses observed in the current window",
	})

	quotaBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "metrika_quota_blocks_total",
		Help: "Total number of requests blocked due to quota pressure",
	})

	quotaThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "metrika_quota_throttles_total",
		Help: "Total number of requests throttled due to quota pressure",
	})
)

// Tracker monitors rate-limit pressure and gates requests.
// A nil Redis client disables gating entirely.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// NewTracker creates a new quota tracker.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		logger: logger,
	}
}

// GetState retrieves the current quota state from Redis.
// Returns a clean state when Redis holds no data.
func (t *Tracker) GetState(ctx context.Context) (*State, error) {
	if t.redis == nil {
		return &State{LastUpdate: time.Now()}, nil
	}

	hits, err := t.redis.Get(ctx, RedisKeyRateLimitHits).Int()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get rate limit hits: %w", err)
	}

	resetUnix, err := t.redis.Get(ctx, RedisKeyWindowReset).Int64()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get window reset: %w", err)
	}

	lastUnix, err := t.redis.Get(ctx, RedisKeyLastUpdate).Int64()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get last update: %w", err)
	}

	return &State{
		RateLimitHits: hits,
		WindowResetAt: time.Unix(resetUnix, 0),
		LastUpdate:    time.Unix(lastUnix, 0),
	}, nil
}

// RecordRateLimit registers one 429 response in the shared window.
func (t *Tracker) RecordRateLimit(ctx context.Context) error {
	if t.redis == nil {
		return nil
	}

	hits, err := t.redis.Incr(ctx, RedisKeyRateLimitHits).Result()
	if err != nil {
		return fmt.Errorf("incr rate limit hits: %w", err)
	}

	// First hit opens a fresh counting window.
	if hits == 1 {
		if err := t.redis.Expire(ctx, RedisKeyRateLimitHits, Window).Err(); err != nil {
			return fmt.Errorf("expire rate limit hits: %w", err)
		}
		reset := time.Now().Add(Window).Unix()
		if err := t.redis.Set(ctx, RedisKeyWindowReset, reset, Window).Err(); err != nil {
			return fmt.Errorf("set window reset: %w", err)
		}
	}

	if err := t.redis.Set(ctx, RedisKeyLastUpdate, time.Now().Unix(), Window).Err(); err != nil {
		return fmt.Errorf("set last update: %w", err)
	}

	quotaRateLimitHits.Set(float64(hits))
	t.logger.Warn().
		Int64("hits", hits).
		Msg("Rate limit response recorded")

	return nil
}

// ShouldAllowRequest decides whether a request may proceed. While the
// window is under throttle pressure the call sleeps for ThrottleDelay
// before allowing; under block pressure it refuses outright.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	if t.redis == nil {
		return true, nil
	}

	state, err := t.GetState(ctx)
	if err != nil {
		// Quota state is advisory: a broken Redis must not stop extraction.
		t.logger.Warn().Err(err).Msg("Quota state unavailable, allowing request")
		return true, nil
	}

	if state.NeedsBlock() {
		quotaBlocksTotal.Inc()
		t.logger.Warn().
			Int("hits", state.RateLimitHits).
			Dur("until_reset", state.TimeUntilReset()).
			Msg("Request blocked by quota gate")
		return false, nil
	}

	if state.NeedsThrottle() {
		quotaThrottlesTotal.Inc()
		t.logger.Debug().
			Int("hits", state.RateLimitHits).
			Msg("Request throttled by quota gate")
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(ThrottleDelay):
		}
	}

	return true, nil
}
