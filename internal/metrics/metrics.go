// Package metrics provides Prometheus metrics collection for the connector.
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Global metrics - used by the application
	// Using atomic.Pointer for lock-free initialization checks on hot path metrics.
	apiRequestsTotal    atomic.Pointer[prometheus.CounterVec]
	tokenRequestsTotal  atomic.Pointer[prometheus.CounterVec]
	syncRunsTotal       atomic.Pointer[prometheus.CounterVec]
	activitiesImported  atomic.Pointer[prometheus.Counter]
	activitiesUpdated   atomic.Pointer[prometheus.Counter]
	packagesDownloaded  atomic.Pointer[prometheus.Counter]
	orphansDeletedTotal atomic.Pointer[prometheus.Counter]
)

// Init initializes all Prometheus metrics and registers them with the provided registry.
// This should be called once at application startup.
func Init(reg prometheus.Registerer) error {
	apiRequestsVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "edflex",
			Subsystem: "connector",
			Name:      "api_requests_total",
			Help:      "Total number of requests issued against the Edflex API",
		},
		[]string{"endpoint", "status"},
	)
	if err := reg.Register(apiRequestsVec); err != nil {
		return fmt.Errorf("failed to register apiRequestsTotal: %w", err)
	}

	tokenRequestsVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "edflex",
			Subsystem: "connector",
			Name:      "token_requests_total",
			Help:      "Total number of access token requests by result",
		},
		[]string{"result"},
	)
	if err := reg.Register(tokenRequestsVec); err != nil {
		return fmt.Errorf("failed to register tokenRequestsTotal: %w", err)
	}

	syncRunsVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "edflex",
			Subsystem: "connector",
			Name:      "sync_runs_total",
			Help:      "Total number of reconciliation passes by result",
		},
		[]string{"result"},
	)
	if err := reg.Register(syncRunsVec); err != nil {
		return fmt.Errorf("failed to register syncRunsTotal: %w", err)
	}

	imported := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "edflex",
		Subsystem: "connector",
		Name:      "activities_imported_total",
		Help:      "Total number of activities imported from the catalog",
	})
	if err := reg.Register(imported); err != nil {
		return fmt.Errorf("failed to register activitiesImported: %w", err)
	}

	updated := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "edflex",
		Subsystem: "connector",
		Name:      "activities_updated_total",
		Help:      "Total number of activities updated during reconciliation",
	})
	if err := reg.Register(updated); err != nil {
		return fmt.Errorf("failed to register activitiesUpdated: %w", err)
	}

	downloaded := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "edflex",
		Subsystem: "connector",
		Name:      "packages_downloaded_total",
		Help:      "Total number of content packages downloaded",
	})
	if err := reg.Register(downloaded); err != nil {
		return fmt.Errorf("failed to register packagesDownloaded: %w", err)
	}

	orphans := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "edflex",
		Subsystem: "connector",
		Name:      "orphans_deleted_total",
		Help:      "Total number of orphaned activity records deleted",
	})
	if err := reg.Register(orphans); err != nil {
		return fmt.Errorf("failed to register orphansDeleted: %w", err)
	}

	apiRequestsTotal.Store(apiRequestsVec)
	tokenRequestsTotal.Store(tokenRequestsVec)
	syncRunsTotal.Store(syncRunsVec)
	activitiesImported.Store(&imported)
	activitiesUpdated.Store(&updated)
	packagesDownloaded.Store(&downloaded)
	orphansDeletedTotal.Store(&orphans)

	return nil
}

// RecordAPIRequest increments the API request counter for an endpoint and
// status ("200", "401", "transport_error", ...).
func RecordAPIRequest(endpoint, status string) {
	if counter := apiRequestsTotal.Load(); counter != nil {
		counter.WithLabelValues(endpoint, status).Inc()
	}
}

// RecordTokenRequest increments the token request counter.
// Common results: "success", "error", "transport_error".
func RecordTokenRequest(result string) {
	if counter := tokenRequestsTotal.Load(); counter != nil {
		counter.WithLabelValues(result).Inc()
	}
}

// RecordSyncRun increments the sync run counter.
// Results: "success", "error".
func RecordSyncRun(result string) {
	if counter := syncRunsTotal.Load(); counter != nil {
		counter.WithLabelValues(result).Inc()
	}
}

// RecordImported adds to the imported-activities counter.
func RecordImported(n int) {
	if counter := activitiesImported.Load(); counter != nil {
		(*counter).Add(float64(n))
	}
}

// RecordUpdated adds to the updated-activities counter.
func RecordUpdated(n int) {
	if counter := activitiesUpdated.Load(); counter != nil {
		(*counter).Add(float64(n))
	}
}

// RecordPackageDownload increments the package download counter.
func RecordPackageDownload() {
	if counter := packagesDownloaded.Load(); counter != nil {
		(*counter).Inc()
	}
}

// RecordOrphansDeleted adds to the orphan deletion counter.
func RecordOrphansDeleted(n int) {
	if counter := orphansDeletedTotal.Load(); counter != nil {
		(*counter).Add(float64(n))
	}
}

// Handler returns an HTTP handler for Prometheus metrics in text format.
// This handler should be registered at /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// GetMetricsText returns the Prometheus text-format output from a registry.
// This is useful for testing and debugging.
func GetMetricsText(reg prometheus.Gatherer) (string, error) {
	handler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	body, err := io.ReadAll(w.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read metrics output: %w", err)
	}

	return string(body), nil
}
