package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Metrics mengumpulkan metrik Prometheus untuk HTTP dan ledger POS.
type Metrics struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	salesTotal       *prometheus.CounterVec
	salesAmount      *prometheus.CounterVec
	paymentsTotal    *prometheus.CounterVec
	snapshotFailures prometheus.Counter
	publishFailures  prometheus.Counter
}

// NewMetrics menginisialisasi registry beserta metrik HTTP dan domain.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "saripos_http_requests_total",
		Help: "Jumlah permintaan HTTP berdasarkan route dan status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "saripos_http_request_duration_seconds",
		Help:    "Durasi permintaan HTTP per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	sales := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "saripos_sales_total",
		Help: "Jumlah penjualan yang selesai per tipe (Cash/Credit).",
	}, []string{"type"})
	amount := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "saripos_sales_amount_total",
		Help: "Total nilai penjualan per tipe.",
	}, []string{"type"})
	payments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "saripos_payments_total",
		Help: "Jumlah pembayaran utang per mode alokasi.",
	}, []string{"mode"})
	snapshots := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "saripos_snapshot_failures_total",
		Help: "Jumlah kegagalan menyimpan snapshot ledger.",
	})
	publishes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "saripos_event_publish_failures_total",
		Help: "Jumlah event yang gagal dikirim ke Kafka.",
	})
	registry.MustRegister(requests, duration, sales, amount, payments, snapshots, publishes)
	return &Metrics{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:    requests,
		requestDuration:  duration,
		salesTotal:       sales,
		salesAmount:      amount,
		paymentsTotal:    payments,
		snapshotFailures: snapshots,
		publishFailures:  publishes,
	}
}

// Handler mengembalikan http.Handler untuk endpoint /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware mencatat metrik untuk setiap permintaan HTTP.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveSale mencatat satu penjualan beserta nilainya.
func (m *Metrics) ObserveSale(saleType string, total decimal.Decimal) {
	if m == nil {
		return
	}
	m.salesTotal.WithLabelValues(saleType).Inc()
	m.salesAmount.WithLabelValues(saleType).Add(total.InexactFloat64())
}

// ObservePayment mencatat satu pembayaran utang.
func (m *Metrics) ObservePayment(mode string) {
	if m == nil {
		return
	}
	m.paymentsTotal.WithLabelValues(mode).Inc()
}

// SnapshotFailed menambah hitungan kegagalan snapshot.
func (m *Metrics) SnapshotFailed() {
	if m == nil {
		return
	}
	m.snapshotFailures.Inc()
}

// PublishFailed menambah hitungan kegagalan publish event.
func (m *Metrics) PublishFailed() {
	if m == nil {
		return
	}
	m.publishFailures.Inc()
}

// Registerer mengekspos registry untuk pendaftaran metrik khusus.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
