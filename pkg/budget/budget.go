// Package budget implements the wall-clock allowance shared by every
// network call within one extraction. The budget is consumed, never
// reset: a multi-chunk extraction can legitimately fail partway once
// the global allowance is exhausted, which bounds worst-case latency
// independent of how many chunks or pages the data requires.
package budget

import (
	"errors"
	"time"
)

// ErrExhausted is returned once the budget deadline has passed.
var ErrExhausted = errors.New("time budget exhausted")

// Budget holds the deadline for one extraction call. It is owned by
// exactly one extraction and passed by reference to every fetch.
type Budget struct {
	deadline time.Time
}

// New creates a budget expiring total from now.
func New(total time.Duration) *Budget {
	return &Budget{deadline: time.Now().Add(total)}
}

// Remaining returns the time left before the deadline, or ErrExhausted
// if the allowance is spent.
func (b *Budget) Remaining() (time.Duration, error) {
	left := time.Until(b.deadline)
	if left <= 0 {
		return 0, ErrExhausted
	}
	return left, nil
}

// Deadline returns the instant at which the budget expires.
func (b *Budget) Deadline() time.Time {
	return b.deadline
}
