// Package metrics exposes Prometheus collectors for the inventory service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	syncRunsTotal         *prometheus.CounterVec
	phonesUpsertedTotal   *prometheus.CounterVec
	registrationBatches   prometheus.Counter
	scrapesTotal          *prometheus.CounterVec
	scrapeDurationSeconds prometheus.Histogram
	queueBacklog          prometheus.Gauge
	activeWorkers         prometheus.Gauge

	httpRequestsTotal       *prometheus.CounterVec
	httpRequestDurationSecs *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		syncRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phoneinfo_sync_runs_total",
				Help: "Total cluster sync runs, labeled by cluster and result.",
			},
			[]string{"cluster", "result"},
		)

		phonesUpsertedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phoneinfo_phones_upserted_total",
				Help: "Total device records upserted by cluster sync, labeled by cluster.",
			},
			[]string{"cluster"},
		)

		registrationBatches = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "phoneinfo_registration_batches_total",
				Help: "Total RisPort registration query batches issued.",
			},
		)

		scrapesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phoneinfo_scrapes_total",
				Help: "Total device scrapes processed, labeled by result.",
			},
			[]string{"result"},
		)

		scrapeDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "phoneinfo_scrape_duration_seconds",
				Help:    "Histogram of single-device scrape latencies.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
			},
		)

		queueBacklog = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "phoneinfo_scrape_queue_backlog",
				Help: "Current number of scrape units waiting in the queue.",
			},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "phoneinfo_active_scrape_workers",
				Help: "Number of workers currently processing a scrape unit.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phoneinfo_http_requests_total",
				Help: "Total HTTP requests, labeled by method, route, and status code.",
			},
			[]string{"method", "route", "status"},
		)

		httpRequestDurationSecs = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "phoneinfo_http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies by method and route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveSyncRun increments the sync run counter for the given cluster/result.
func ObserveSyncRun(cluster, result string) {
	syncRunsTotal.WithLabelValues(cluster, result).Inc()
}

// ObservePhonesUpserted adds to the upserted-device counter for a cluster.
func ObservePhonesUpserted(cluster string, count int) {
	if count > 0 {
		phonesUpsertedTotal.WithLabelValues(cluster).Add(float64(count))
	}
}

// ObserveRegistrationBatch counts one RisPort query batch.
func ObserveRegistrationBatch() {
	registrationBatches.Inc()
}

// ObserveScrape records the outcome and duration of one device scrape.
func ObserveScrape(result string, duration time.Duration) {
	scrapesTotal.WithLabelValues(result).Inc()
	scrapeDurationSeconds.Observe(duration.Seconds())
}

// SetQueueBacklog records the current scrape queue depth.
func SetQueueBacklog(depth int) {
	queueBacklog.Set(float64(depth))
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	activeWorkers.Dec()
}

// ObserveHTTPRequest records one completed HTTP request.
func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDurationSecs.WithLabelValues(method, route).Observe(duration.Seconds())
}
