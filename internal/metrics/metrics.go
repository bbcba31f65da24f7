// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RPCRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenrisk_rpc_requests_total",
			Help: "JSON-RPC requests by method and error kind (none = success)",
		},
		[]string{"method", "kind"},
	)

	ScanBatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenrisk_scan_batches_total",
			Help: "Log query attempts issued by the range scanner by outcome",
		},
		[]string{"outcome"}, // ok|range_too_large|error
	)

	ScanShrinks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tokenrisk_scan_shrinks_total",
			Help: "Times the scanner halved a batch after a capacity error",
		},
	)

	ScanSkippedBlocks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenrisk_scan_skipped_blocks_total",
			Help: "Blocks abandoned without data by reason",
		},
		[]string{"reason"},
	)

	UndecodableLogs = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tokenrisk_undecodable_logs_total",
			Help: "Transfer logs skipped because they failed to decode",
		},
	)

	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenrisk_cache_lookups_total",
			Help: "Fact/result cache lookups by cache and result",
		},
		[]string{"cache", "result"}, // result: hit|miss
	)

	BalanceReadFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tokenrisk_balance_read_failures_total",
			Help: "balanceOf reads that failed and were substituted with zero",
		},
	)
)

var collectors = []prometheus.Collector{
	RPCRequests,
	ScanBatches,
	ScanShrinks,
	ScanSkippedBlocks,
	UndecodableLogs,
	CacheLookups,
	BalanceReadFailures,
}

// Register adds all collectors to reg. Already-registered collectors are ignored.
func Register(reg prometheus.Registerer) error {
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// Handler returns an HTTP handler exposing the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRPC counts one JSON-RPC call outcome.
func ObserveRPC(method, kind string) {
	RPCRequests.WithLabelValues(method, kind).Inc()
}

// ObserveCache counts one cache lookup.
func ObserveCache(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookups.WithLabelValues(cache, result).Inc()
}
