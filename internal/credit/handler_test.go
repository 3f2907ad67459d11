package credit

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCreditRouter(t *testing.T, amounts ...string) http.Handler {
	t.Helper()
	ledger, alloc, _ := newAccount(t, OldestFirst, amounts...)
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), ledger, alloc)
	r := chi.NewRouter()
	r.Route("/api/credit", h.MountRoutes)
	return r
}

func TestHandlerPayAcrossAccount(t *testing.T) {
	router := newCreditRouter(t, "30", "50")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/credit/customers/Ana/payments", strings.NewReader(`{"amount":"40"}`)))
	require.Equal(t, http.StatusOK, rr.Code)
	var receipt Receipt
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &receipt))
	assert.True(t, receipt.Balance.Equal(dec("40")))
	assert.Equal(t, ModeAccount, receipt.Mode)
}

func TestHandlerPayAgainstEntry(t *testing.T) {
	router := newCreditRouter(t, "30", "50")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/credit/customers/Ana/pending", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var pending struct {
		Entries []pendingEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &pending))
	require.Len(t, pending.Entries, 2)
	require.Equal(t, 1, pending.Entries[1].Position)

	body := `{"amount":60,"position":1,"entry_id":"` + pending.Entries[1].ID + `"}`
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/credit/customers/Ana/payments", strings.NewReader(body)))
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	body = `{"amount":50,"position":1,"entry_id":"` + pending.Entries[1].ID + `"}`
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/credit/customers/Ana/payments", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestHandlerErrors(t *testing.T) {
	router := newCreditRouter(t, "30")
	cases := []struct {
		method, path, body string
		status             int
	}{
		{http.MethodGet, "/api/credit/customers/Nobody", "", http.StatusNotFound},
		{http.MethodPost, "/api/credit/customers/Ana/payments", `{"amount":0}`, http.StatusBadRequest},
		{http.MethodPost, "/api/credit/customers/Ana/payments", `{"amount":31}`, http.StatusUnprocessableEntity},
		{http.MethodPost, "/api/credit/customers/Ana/payments", `{"amount":5,"position":-1}`, http.StatusBadRequest},
		{http.MethodGet, "/api/credit/customers/Ana?order=sideways", "", http.StatusBadRequest},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		var body io.Reader
		if tc.body != "" {
			body = strings.NewReader(tc.body)
		}
		router.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, body))
		assert.Equal(t, tc.status, rr.Code, tc.path+" "+tc.body)
	}
}

func TestHandlerListCustomers(t *testing.T) {
	router := newCreditRouter(t, "30", "50")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/credit/customers", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Customers   []customerBalance `json:"customers"`
		Outstanding string            `json:"outstanding"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Customers, 1)
	assert.Equal(t, "Ana", body.Customers[0].Name)
	assert.Equal(t, "80", body.Outstanding)
}
