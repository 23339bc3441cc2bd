package metrics

import (
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/backfeedhq/backfeed/internal/logger"
)

var (
	ImportedReactions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backfeed_reactions_imported_total",
		Help: "Reactions stored as new comments",
	}, []string{"silo", "type"})
	DuplicateReactions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backfeed_reactions_duplicate_total",
		Help: "Reactions skipped because an equivalent comment already exists",
	}, []string{"silo", "type"})
	PagesFetched = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "backfeed_silo_pages_fetched_total",
		Help: "Remote API pages fetched while paginating",
	})
	ImportRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "backfeed_import_runs_total",
		Help: "Import driver invocations",
	})
	ImportErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "backfeed_import_errors_total",
		Help: "Advisory errors raised while importing",
	})
	ImportDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "backfeed_import_duration_seconds",
		Help:    "Duration of one import driver invocation",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(
		ImportedReactions,
		DuplicateReactions,
		PagesFetched,
		ImportRuns,
		ImportErrors,
		ImportDuration,
	)
}

// StartServer starts a metrics HTTP server on addr (e.g., ":9090").
// An empty addr disables the server. The listener is bound before
// returning so a bad addr shows up in the log at startup instead of
// failing silently in the background.
func StartServer(addr string) {
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		logger.ErrorObj("metrics server failed to bind", "metrics_error", map[string]any{
			"addr":  addr,
			"error": err.Error(),
		})
		return
	}

	go func() {
		if err := http.Serve(ln, mux); err != nil {
			logger.ErrorObj("metrics server stopped", "metrics_error", map[string]any{
				"addr":  addr,
				"error": err.Error(),
			})
		}
	}()
}

// ObserveImportDuration records the duration of one driver invocation.
func ObserveImportDuration(start time.Time) {
	ImportDuration.Observe(time.Since(start).Seconds())
}
