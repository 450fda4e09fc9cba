// Package query describes a single report request: which counter, which
// columns (preset or manual metrics+dimensions), and how to encode that
// into Reports API parameters for one date chunk and page.
package query

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"metrika-export/pkg/daterange"
)

// DefaultPreset is used when neither a preset nor a manual
// metrics+dimensions pair is given.
const DefaultPreset = "traffic"

// DefaultLang is the report language sent when none is requested.
const DefaultLang = "en"

// ErrMissingCounterID reports a spec without the mandatory counter id.
var ErrMissingCounterID = errors.New("query: missing counter id")

// Presets lists the report presets the Reports API ships with. The list
// is informational: unknown presets are passed through and rejected by
// the API itself.
var Presets = []string{
	"traffic",
	"conversion",
	"hourly",
	"deepness_time",
	"deepness_depth",
	"loyalty_newness",
	"loyalty_period",
	"tech_browsers",
	"tech_platforms",
	"tech_devices",
	"age",
	"age_gender",
	"gender",
	"search_engines",
	"sources_search_phrases",
	"sources_sites",
	"sources_social",
	"geo_country",
	"sources_summary",
}

// KnownPreset reports whether name is in the shipped preset catalog.
func KnownPreset(name string) bool {
	for _, p := range Presets {
		if p == name {
			return true
		}
	}
	return false
}

// Spec is the user-facing description of one report extraction.
// Manual mode (both Metrics and Dimensions set) overrides Preset.
type Spec struct {
	// CounterID is the Metrika counter, mandatory.
	CounterID string

	// Preset names a prebuilt report. Ignored in manual mode.
	Preset string

	// Dimensions and Metrics select columns manually. Manual mode is
	// active only when both are non-empty.
	Dimensions []string
	Metrics    []string

	// Filters is passed through verbatim (the API takes a string).
	Filters string

	// Sort is passed through without local validation; the API rejects
	// fields that are not part of the selected columns.
	Sort string

	// Lang is the report language (default "en").
	Lang string
}

// Validate checks the mandatory fields.
func (s Spec) Validate() error {
	if strings.TrimSpace(s.CounterID) == "" {
		return ErrMissingCounterID
	}
	return nil
}

// Manual reports whether the spec selects columns explicitly instead of
// through a preset.
func (s Spec) Manual() bool {
	return len(s.Metrics) > 0 && len(s.Dimensions) > 0
}

// Params encodes the spec for one date chunk and one page window.
func (s Spec) Params(chunk daterange.Range, limit, offset int) url.Values {
	lang := s.Lang
	if lang == "" {
		lang = DefaultLang
	}

	v := url.Values{}
	v.Set("ids", s.CounterID)
	v.Set("lang", lang)
	v.Set("date1", chunk.Date1())
	v.Set("date2", chunk.Date2())

	if s.Manual() {
		v.Set("metrics", strings.Join(s.Metrics, ","))
		v.Set("dimensions", strings.Join(s.Dimensions, ","))
		if s.Filters != "" {
			v.Set("filters", s.Filters)
		}
	} else {
		preset := s.Preset
		if preset == "" {
			preset = DefaultPreset
		}
		v.Set("preset", preset)
	}

	if s.Sort != "" {
		v.Set("sort", s.Sort)
	}

	v.Set("limit", strconv.Itoa(limit))
	v.Set("offset", strconv.Itoa(offset))
	return v
}

// String renders a compact description for logs.
func (s Spec) String() string {
	if s.Manual() {
		return fmt.Sprintf("counter %s, %d metrics x %d dimensions",
			s.CounterID, len(s.Metrics), len(s.Dimensions))
	}
	preset := s.Preset
	if preset == "" {
		preset = DefaultPreset
	}
	return fmt.Sprintf("counter %s, preset %s", s.CounterID, preset)
}

// SplitList parses a comma-separated field list, dropping whitespace
// and empty elements.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
