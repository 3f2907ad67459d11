package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestMetricsHandlerExposesDomainCounters(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveSale("Cash", decimal.RequireFromString("150"))
	metrics.ObserveSale("Credit", decimal.RequireFromString("120"))
	metrics.ObserveSale("Cash", decimal.RequireFromString("21.5"))
	metrics.ObservePayment("account")
	metrics.SnapshotFailed()

	require.Equal(t, float64(2), testutil.ToFloat64(metrics.salesTotal.WithLabelValues("Cash")))
	require.Equal(t, 171.5, testutil.ToFloat64(metrics.salesAmount.WithLabelValues("Cash")))
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.snapshotFailures))

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	require.Contains(t, body, `saripos_sales_total{type="Credit"} 1`)
	require.Contains(t, body, `saripos_payments_total{mode="account"} 1`)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	metrics.ObserveSale("Cash", decimal.NewFromInt(1))
	metrics.ObservePayment("entry")
	metrics.SnapshotFailed()
	metrics.PublishFailed()

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/api/sales")

	req := httptest.NewRequest(http.MethodPost, "/api/sales", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTeapot, rr.Code)

	metricsRR := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(metricsRR, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := metricsRR.Body.String()
	if !strings.Contains(body, `saripos_http_requests_total{code="418",route="/api/sales"} 1`) {
		t.Fatalf("expected metrics to record request, got: %s", body)
	}
	require.Contains(t, body, `saripos_http_request_duration_seconds_bucket{route="/api/sales"`)
}
