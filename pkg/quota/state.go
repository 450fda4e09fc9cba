// Package quota tracks Reports API rate-limit pressure and gates
// requests. The API enforces per-counter and per-IP request quotas;
// 429 responses observed by any worker are counted in Redis so every
// process sharing the quota backs off before it is fully burned.
package quota

import (
	"time"
)

// Redis keys for quota state storage.
const (
	RedisKeyRateLimitHits = "metrika:quota:rate_limit_hits"
	RedisKeyWindowReset   = "metrika:quota:window_reset"
	RedisKeyLastUpdate    = "metrika:quota:last_update"
)

// Thresholds for quota decisions.
const (
	// HitThresholdBlock stops new requests for the rest of the window
	// once this many 429 responses were observed.
	HitThresholdBlock = 10

	// HitThresholdThrottle delays new requests once this many 429
	// responses were observed.
	HitThresholdThrottle = 3

	// Window is the rolling window in which rate-limit hits are counted.
	Window = time.Minute

	// ThrottleDelay is applied before a request while throttling.
	ThrottleDelay = 500 * time.Millisecond
)

// State is the shared quota pressure observed across all workers.
type State struct {
	// RateLimitHits is the number of 429 responses seen in the window.
	RateLimitHits int `json:"rate_limit_hits"`

	// WindowResetAt is when the current counting window expires.
	WindowResetAt time.Time `json:"window_reset_at"`

	// LastUpdate is when this state was last written.
	LastUpdate time.Time `json:"last_update"`
}

// NeedsBlock returns true if requests should be stopped until the
// window resets.
func (s *State) NeedsBlock() bool {
	return s.RateLimitHits >= HitThresholdBlock
}

// NeedsThrottle returns true if requests should be delayed.
func (s *State) NeedsThrottle() bool {
	return s.RateLimitHits >= HitThresholdThrottle && !s.NeedsBlock()
}

// TimeUntilReset returns the duration until the window resets.
// Returns 0 if the reset time has already passed.
func (s *State) TimeUntilReset() time.Duration {
	d := time.Until(s.WindowResetAt)
	if d < 0 {
		return 0
	}
	return d
}

// IsStale returns true if the state is older than maxAge.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}
