// Package daterange splits a requested reporting period into contiguous
// chunks. The Reports API degrades to statistical sampling and truncates
// very large result sets for wide ranges; chunking keeps each sub-query
// within a regime where full-fidelity, unsampled answers are more likely.
package daterange

import (
	"errors"
	"fmt"
	"time"
)

// Layout is the date format accepted by the Reports API.
const Layout = "2006-01-02"

// ErrInvalidRange is returned for malformed or reversed date ranges.
var ErrInvalidRange = errors.New("invalid date range")

// Range is a closed date interval. Start is never after End.
type Range struct {
	Start time.Time
	End   time.Time
}

// New creates a Range, validating that start does not exceed end.
func New(start, end time.Time) (Range, error) {
	if start.After(end) {
		return Range{}, fmt.Errorf("%w: start %s is after end %s",
			ErrInvalidRange, start.Format(Layout), end.Format(Layout))
	}
	return Range{Start: start, End: end}, nil
}

// Parse creates a Range from two YYYY-MM-DD strings.
func Parse(date1, date2 string) (Range, error) {
	start, err := time.Parse(Layout, date1)
	if err != nil {
		return Range{}, fmt.Errorf("%w: malformed date1 %q", ErrInvalidRange, date1)
	}
	end, err := time.Parse(Layout, date2)
	if err != nil {
		return Range{}, fmt.Errorf("%w: malformed date2 %q", ErrInvalidRange, date2)
	}
	return New(start, end)
}

// Days returns the span of the range in whole days (same-day range is 0).
func (r Range) Days() int {
	return int(r.End.Sub(r.Start) / (24 * time.Hour))
}

// Date1 returns the start formatted for the API.
func (r Range) Date1() string { return r.Start.Format(Layout) }

// Date2 returns the end formatted for the API.
func (r Range) Date2() string { return r.End.Format(Layout) }

func (r Range) String() string {
	return r.Date1() + ".." + r.Date2()
}

// Policy selects the granularity thresholds used when partitioning.
type Policy int

const (
	// PolicyStandard chunks by calendar months up to a year, quarters up
	// to five years, and calendar years beyond that.
	PolicyStandard Policy = iota

	// PolicyWeekly is the legacy threshold set: 7-day chunks up to 90
	// days, calendar months up to two years, calendar years beyond.
	PolicyWeekly
)

// Partition splits a range into contiguous, non-overlapping chunks whose
// union equals the input. With split=false the range is returned as a
// single chunk. Every boundary aligns to the natural start of its unit
// except the first chunk (starts at r.Start) and the last (ends at r.End).
func Partition(r Range, split bool, policy Policy) []Range {
	if !split {
		return []Range{r}
	}

	next := boundaryFunc(r, policy)

	var chunks []Range
	cur := r.Start
	for !cur.After(r.End) {
		boundary := next(cur)
		end := boundary.AddDate(0, 0, -1)
		if end.After(r.End) {
			end = r.End
		}
		chunks = append(chunks, Range{Start: cur, End: end})
		cur = boundary
	}
	return chunks
}

func boundaryFunc(r Range, policy Policy) func(time.Time) time.Time {
	days := r.Days()
	if policy == PolicyWeekly {
		switch {
		case days <= 90:
			return nextWeek
		case days <= 730:
			return nextMonth
		default:
			return nextYear
		}
	}
	switch {
	case days <= 365:
		return nextMonth
	case days <= 1825:
		return nextQuarter
	default:
		return nextYear
	}
}

func nextWeek(t time.Time) time.Time {
	return t.AddDate(0, 0, 7)
}

func nextMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, t.Location())
}

func nextQuarter(t time.Time) time.Time {
	month := ((int(t.Month())-1)/3 + 1) * 3
	return time.Date(t.Year(), time.Month(month+1), 1, 0, 0, 0, 0, t.Location())
}

func nextYear(t time.Time) time.Time {
	return time.Date(t.Year()+1, time.January, 1, 0, 0, 0, 0, t.Location())
}
