package client

import (
	"encoding/json"
	"fmt"
)

// QueryEcho is the server's restatement of the dimensions and metrics it
// actually used. It is authoritative for naming the report columns.
type QueryEcho struct {
	Dimensions []string `json:"dimensions"`
	Metrics    []string `json:"metrics"`
}

// DimensionValue is one dimension entry of a raw row. The display name
// carries the value used for the report column.
type DimensionValue struct {
	Name string `json:"name"`
	ID   string `json:"id,omitempty"`
}

// MetricValues holds one raw row's metric values as an explicit tagged
// variant: a flat value list for single-period queries, or one list per
// period when the API nests them (comparison mode). Values can be null.
type MetricValues struct {
	Flat    []*float64
	Periods [][]*float64
	Nested  bool
}

// UnmarshalJSON accepts both the flat ([1, 2]) and the nested
// ([[1, 2], [3, 4]]) wire shape.
func (m *MetricValues) UnmarshalJSON(data []byte) error {
	var flat []*float64
	if err := json.Unmarshal(data, &flat); err == nil {
		m.Flat = flat
		m.Nested = false
		return nil
	}

	var nested [][]*float64
	if err := json.Unmarshal(data, &nested); err != nil {
		return fmt.Errorf("metrics are neither a value list nor a period list: %w", err)
	}
	m.Periods = nested
	m.Nested = true
	return nil
}

// MarshalJSON writes back the wire shape the values arrived in.
func (m MetricValues) MarshalJSON() ([]byte, error) {
	if m.Nested {
		return json.Marshal(m.Periods)
	}
	return json.Marshal(m.Flat)
}

// Values returns the value list for the given period. For flat metrics
// the period index is ignored. Returns nil when the period is absent.
func (m MetricValues) Values(period int) []*float64 {
	if !m.Nested {
		return m.Flat
	}
	if period < 0 || period >= len(m.Periods) {
		return nil
	}
	return m.Periods[period]
}

// RawRow is one unprocessed row of a page response.
type RawRow struct {
	Dimensions []DimensionValue `json:"dimensions"`
	Metrics    MetricValues     `json:"metrics"`
}

// PageResponse is the parsed body of one paginated Reports API request.
// Data is a pointer so a missing row-list field (a protocol violation)
// is distinguishable from an empty page.
type PageResponse struct {
	Data      *[]RawRow `json:"data"`
	Query     QueryEcho `json:"query"`
	TotalRows int64     `json:"total_rows"`
	Sampled   bool      `json:"sampled"`
}

// HasData reports whether the response carried the row-list field.
func (p *PageResponse) HasData() bool {
	return p.Data != nil
}

// Rows returns the row list, or nil when the field was absent.
func (p *PageResponse) Rows() []RawRow {
	if p.Data == nil {
		return nil
	}
	return *p.Data
}
