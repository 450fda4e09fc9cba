// Package metrics provides centralized Prometheus metrics registry for
// the extraction pipeline. All metrics are defined in their respective
// packages (client, report, cache, quota) to maintain modularity and
// avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the exporter.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - metrika_requests_total{status} (Counter): Total Reports API requests by HTTP status
//   - metrika_request_duration_seconds (Histogram): Request duration
//   - metrika_errors_total{kind} (Counter): Errors by taxonomy kind
//   - metrika_rows_fetched_total (Counter): Raw rows fetched
//   - metrika_sampled_responses_total (Counter): Pages answered from a sampled dataset
//
// Extraction Metrics (pkg/report):
//   - metrika_extractions_total{mode, outcome} (Counter): Extractions by regime and result
//   - metrika_extraction_duration_seconds (Histogram): End-to-end extraction duration
//   - metrika_chunks_processed_total{mode} (Counter): Chunks fully drained, by scheduling regime
//
// Cache Metrics (pkg/cache):
//   - metrika_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - metrika_cache_misses_total (Counter): Cache misses
//   - metrika_cache_size_bytes{layer="redis"} (Gauge): Current cache size in bytes
//   - metrika_cache_errors_total{operation} (Counter): Cache operation errors
//
// Quota Metrics (pkg/quota):
//   - metrika_quota_rate_limit_hits (Gauge): 429 responses in the current window
//   - metrika_quota_blocks_total (Counter): Requests blocked by the shared quota gate
//   - metrika_quota_throttles_total (Counter): Requests throttled by the shared quota gate
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(metrika_cache_hits_total[5m])) /
//   (sum(rate(metrika_cache_hits_total[5m])) + sum(rate(metrika_cache_misses_total[5m])))
//
//   # Extraction Failure Rate
//   sum(rate(metrika_extractions_total{outcome!="success"}[15m]))
//
//   # Rate Limit Pressure
//   metrika_quota_rate_limit_hits > 3
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(metrika_request_duration_seconds_bucket[5m]))
//
//   # Sampling Rate
//   rate(metrika_sampled_responses_total[5m]) / rate(metrika_requests_total[5m])
