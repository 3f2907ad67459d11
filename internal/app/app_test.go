package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/saripos/saripos/internal/credit"
	"github.com/saripos/saripos/internal/inventory"
	"github.com/saripos/saripos/internal/observability"
	"github.com/saripos/saripos/internal/shared"
	_ "github.com/saripos/saripos/internal/testing/guard"
)

// ===== CONFIG =====

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, credit.OldestFirst, cfg.PaymentOrder)
	require.Equal(t, inventory.OldestFirst, cfg.DepletionOrder)
	require.Equal(t, "saripos", cfg.SnapshotPrefix)
	require.True(t, cfg.SeedDefaults)
	require.Empty(t, cfg.Brokers())
}

func TestLoadConfigOrdersAndBrokers(t *testing.T) {
	t.Setenv("PAYMENT_ORDER", "newest_first")
	t.Setenv("INVENTORY_DEPLETION_ORDER", "NEWEST_FIRST")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, credit.NewestFirst, cfg.PaymentOrder)
	require.Equal(t, inventory.NewestFirst, cfg.DepletionOrder)
	require.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Brokers())
}

func TestLoadConfigRejectsUnknownOrder(t *testing.T) {
	t.Setenv("PAYMENT_ORDER", "RANDOM")
	_, err := LoadConfig()
	require.ErrorContains(t, err, "PAYMENT_ORDER")
}

func TestInTestModeFromGuard(t *testing.T) {
	RefreshTestMode()
	require.True(t, InTestMode())
}

// ===== WIRING =====

type testApp struct {
	cfg      *Config
	services *Services
	redis    *redis.Client
	mr       *miniredis.Miniredis
}

func newTestApp(t *testing.T, mr *miniredis.Miniredis) *testApp {
	t.Helper()
	if mr == nil {
		mr = miniredis.RunT(t)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cfg, err := LoadConfig()
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	services := NewServices(cfg, logger, Infra{
		Redis:   client,
		Metrics: observability.NewMetrics(),
		Clock:   func() time.Time { return time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, services.Restore(context.Background(), cfg))
	return &testApp{cfg: cfg, services: services, redis: client, mr: mr}
}

func (a *testApp) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(TerminalHeader, "till-1")
	rr := httptest.NewRecorder()
	a.services.Router.ServeHTTP(rr, req)
	return rr
}

func TestServicesSeedAndServe(t *testing.T) {
	a := newTestApp(t, nil)

	rr := a.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))

	rr = a.do(t, http.MethodGet, "/api/products", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "Ground Coffee")

	rr = a.do(t, http.MethodGet, "/api/credit/customers", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "Raymart")

	require.True(t, a.mr.Exists("saripos:inventory"))
}

func TestSaleAndPaymentArePersisted(t *testing.T) {
	a := newTestApp(t, nil)

	rr := a.do(t, http.MethodPost, "/api/products", `{"name":"rice","unit":"kg","stock":10,"price":50}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = a.do(t, http.MethodPost, "/api/sales", `{"type":"credit","customer":"ana","items":[{"name":"Rice","quantity":"2.4"}]}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = a.do(t, http.MethodPost, "/api/credit/customers/Ana/payments", `{"amount":50}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	raw, err := a.mr.Get("saripos:credit")
	require.NoError(t, err)
	var accounts map[string][]credit.DebtEntry
	require.NoError(t, json.Unmarshal([]byte(raw), &accounts))
	require.Len(t, accounts["Ana"], 1)
	require.Equal(t, "70", accounts["Ana"][0].Amount.String())

	restarted := newTestApp(t, a.mr)
	ctx := shared.ContextWithTerminal(context.Background(), "till-1")
	require.Equal(t, "70", restarted.services.Credit.PendingBalance(ctx, "Ana").String())
	product, err := restarted.services.Inventory.Get(ctx, "Rice")
	require.NoError(t, err)
	require.Equal(t, "7.6", product.Stock.String())
	require.Len(t, restarted.services.Processor.History().List(), 1)

	rr = a.do(t, http.MethodGet, "/metrics", "")
	require.Contains(t, rr.Body.String(), `saripos_sales_total{type="Credit"} 1`)
}

// ===== LOGGER =====

func TestNewLoggerJSON(t *testing.T) {
	var buf strings.Builder
	logger := newLogger(&buf, &Config{LogFormat: "json", AppEnv: "production"})
	logger.Info("ready")

	var line map[string]any
	require.NoError(t, json.Unmarshal([]byte(buf.String()), &line))
	require.Equal(t, "saripos", line["service"])
	require.Equal(t, "production", line["env"])
	require.NotContains(t, line, "source")
}
