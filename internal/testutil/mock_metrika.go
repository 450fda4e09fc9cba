// Package testutil provides testing utilities for the Metrika exporter.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
)

// Failure configures an error response for one chunk.
type Failure struct {
	StatusCode int
	Body       string
}

// dataset is the synthetic result set for one chunk, keyed by date1.
type dataset struct {
	rows    int
	sampled bool
}

// MockMetrika is a configurable mock Reports API server. It generates
// a synthetic row set per chunk and serves it page by page, honoring
// the limit/offset parameters with a 1-based offset origin.
type MockMetrika struct {
	server *httptest.Server
	mu     sync.RWMutex

	datasets map[string]dataset
	failures map[string]Failure
	token    string

	// Tracking
	RequestCount int
	LastQuery    url.Values
}

// NewMockMetrika creates a mock server with no datasets configured.
// Unconfigured chunks answer with an empty data list.
func NewMockMetrika() *MockMetrika {
	mock := &MockMetrika{
		datasets: make(map[string]dataset),
		failures: make(map[string]Failure),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))
	return mock
}

// URL returns the mock server URL.
func (m *MockMetrika) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockMetrika) Close() {
	m.server.Close()
}

// Reset clears tracking counters.
func (m *MockMetrika) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.LastQuery = nil
}

// SetDataset configures a synthetic result set for the chunk starting
// at date1.
func (m *MockMetrika) SetDataset(date1 string, rows int, sampled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.datasets[date1] = dataset{rows: rows, sampled: sampled}
}

// SetFailure makes the chunk starting at date1 answer with an error.
func (m *MockMetrika) SetFailure(date1 string, f Failure) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[date1] = f
}

// RequireToken makes the server reject requests without the matching
// OAuth token.
func (m *MockMetrika) RequireToken(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
}

// GetRequestCount returns the number of requests served.
func (m *MockMetrika) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

func (m *MockMetrika) handle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	m.mu.Lock()
	m.RequestCount++
	m.LastQuery = q
	token := m.token
	date1 := q.Get("date1")
	fail, failing := m.failures[date1]
	ds := m.datasets[date1]
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	if token != "" && r.Header.Get("Authorization") != "OAuth "+token {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"errors":[{"error_type":"invalid_token","message":"Invalid oauth_token"}],"code":401,"message":"Invalid oauth_token"}`))
		return
	}

	if failing {
		w.WriteHeader(fail.StatusCode)
		w.Write([]byte(fail.Body))
		return
	}

	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 {
		limit = 100
	}
	offset, _ := strconv.Atoi(q.Get("offset"))
	if offset <= 0 {
		offset = 1
	}

	type rawRow struct {
		Dimensions []map[string]string `json:"dimensions"`
		Metrics    []float64           `json:"metrics"`
	}

	// Rows are numbered from 1 across the whole chunk so pages are
	// reproducible for any limit/offset combination.
	rows := []rawRow{}
	for i := offset; i < offset+limit && i <= ds.rows; i++ {
		rows = append(rows, rawRow{
			Dimensions: []map[string]string{{"name": fmt.Sprintf("%s-row-%d", date1, i)}},
			Metrics:    []float64{float64(i)},
		})
	}

	resp := map[string]any{
		"data":       rows,
		"query":      map[string]any{"dimensions": []string{"ym:s:trafficSource"}, "metrics": []string{"ym:s:visits"}},
		"total_rows": ds.rows,
		"sampled":    ds.sampled,
	}
	json.NewEncoder(w).Encode(resp)
}

// RateLimitFailure builds a 429 error response.
func RateLimitFailure() Failure {
	return Failure{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"errors":[{"error_type":"quota_requests","message":"Quota exceeded"}],"code":429,"message":"Quota exceeded"}`,
	}
}

// ServerErrorFailure builds a 500 error response.
func ServerErrorFailure() Failure {
	return Failure{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"message":"Internal server error"}`,
	}
}

// ProtocolFailure builds a 200 response without the data field.
func ProtocolFailure() Failure {
	return Failure{
		StatusCode: http.StatusOK,
		Body:       `{"code":200,"query":{}}`,
	}
}
