package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pdftoolkit"

var (
	operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Operations by tag and result (ok or an error code)",
		},
		[]string{"operation", "result"},
	)

	duration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of operations by tag",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	inputBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "input_bytes",
			Help:      "Total uploaded bytes per operation",
			Buckets:   prometheus.ExponentialBuckets(16<<10, 4, 8),
		},
		[]string{"operation"},
	)

	outputBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "output_bytes",
			Help:      "Size of written documents per operation",
			Buckets:   prometheus.ExponentialBuckets(16<<10, 4, 8),
		},
		[]string{"operation"},
	)

	pages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_processed_total",
			Help:      "Pages written to outputs per operation",
		},
		[]string{"operation"},
	)

	compressionRatio = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compression_ratio",
			Help:      "Size reduction achieved by compress",
			Buckets:   []float64{0, 0.02, 0.05, 0.1, 0.2, 0.3, 0.5, 0.75},
		},
	)

	compressionWarnings = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compression_warnings_total",
			Help:      "Compress runs that stayed under the reduction threshold",
		},
	)

	limiterRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "limiter_rejections_total",
			Help:      "Requests turned away for lack of a processing slot",
		},
		[]string{"operation"},
	)

	once sync.Once
)

// Init registers collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(operations, duration, inputBytes, outputBytes, pages,
			compressionRatio, compressionWarnings, limiterRejections)
	})
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

// ObserveOperation records one finished operation. result is "ok" or the
// error code.
func ObserveOperation(op, result string, dur time.Duration) {
	operations.WithLabelValues(op, result).Inc()
	duration.WithLabelValues(op).Observe(dur.Seconds())
}

// ObserveSizes records input and output sizes and the pages written.
func ObserveSizes(op string, in int64, out int, pageCount int) {
	inputBytes.WithLabelValues(op).Observe(float64(in))
	outputBytes.WithLabelValues(op).Observe(float64(out))
	pages.WithLabelValues(op).Add(float64(pageCount))
}

func ObserveCompression(ratio float64, warned bool) {
	compressionRatio.Observe(ratio)
	if warned {
		compressionWarnings.Inc()
	}
}

func IncLimiterRejection(op string) { limiterRejections.WithLabelValues(op).Inc() }
