// Package metrics documents the Prometheus metrics of the review fetcher and
// dumps them for the node_exporter textfile collector after a CLI run.
// All metrics are defined in their respective packages (client, cache,
// ratelimit, pagination, export) via promauto to avoid circular dependencies.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

// Gatherer reads back the metrics promauto registered in the default registry.
var Gatherer prometheus.Gatherer = prometheus.DefaultGatherer

// WriteTextfile writes all gathered metrics to path in the text exposition
// format. The file is replaced atomically.
func WriteTextfile(path string) error {
	return WriteTextfileFrom(Gatherer, path)
}

// WriteTextfileFrom writes the metrics of g to path.
func WriteTextfileFrom(g prometheus.Gatherer, path string) error {
	if path == "" {
		return fmt.Errorf("metrics textfile path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return fmt.Errorf("metrics textfile directory: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - steam_requests_total{status} (Counter): Page requests by HTTP status ("network_error" when no response)
//   - steam_request_duration_seconds (Histogram): Page request duration
//   - steam_errors_total{class} (Counter): Errors by class (network, client, server, rejected, decode)
//
// Cache Metrics (pkg/cache):
//   - steam_cache_hits_total (Counter): Pages served from Redis
//   - steam_cache_misses_total (Counter): Pages not found in Redis
//   - steam_cache_stored_bytes (Counter): Bytes of page data written to Redis
//   - steam_cache_errors_total{operation} (Counter): Cache operation errors
//
// Pacing Metrics (pkg/ratelimit):
//   - steam_pacer_wait_seconds_total (Counter): Time spent waiting between pages
//   - steam_pacer_interrupts_total (Counter): Waits cut short by cancellation
//
// Session Metrics (pkg/pagination):
//   - steam_pages_fetched_total (Counter): Pages received
//   - steam_reviews_fetched_total (Counter): Reviews flattened into records
//   - steam_fetch_sessions_total{reason} (Counter): Sessions by terminal reason
//
// Export Metrics (pkg/export):
//   - steam_export_rows_total{format} (Counter): Rows written per format
//   - steam_export_errors_total{format} (Counter): Failed writes per format
//   - steam_export_duration_seconds{format} (Histogram): Time to write one file
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(steam_cache_hits_total) /
//   (sum(steam_cache_hits_total) + sum(steam_cache_misses_total))
//
//   # Sessions that ended on an error
//   sum(steam_fetch_sessions_total{reason=~"transport_failed|api_rejected|malformed_response"})
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(steam_request_duration_seconds_bucket[1h]))
