package inventory

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

func newTestRouter(t *testing.T) (*Ledger, http.Handler) {
	t.Helper()
	ledger := newTestLedger(t, nil)
	handler := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), ledger)
	r := chi.NewRouter()
	r.Route("/api/products", handler.MountRoutes)
	return ledger, r
}

func TestHandlerCreateAndGet(t *testing.T) {
	_, router := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(`{"name":"sardines","unit":"pc","stock":50,"price":"21.50"}`)))
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/products/Sardines", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var body productResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "Sardines", body.Name)
	assert.True(t, body.Price.Equal(dec("21.5")))
	assert.Len(t, body.Lots, 1)
}

func TestHandlerRenameAndDelete(t *testing.T) {
	ledger, router := newTestRouter(t)
	seed(t, ledger, "Rice", "kg", "10", "50")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/api/products/Rice", strings.NewReader(`{"name":"Brown Rice","unit":"kg","stock":8,"price":60}`)))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/products/Brown%20Rice", nil))
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/products/Rice", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlerRejectsInvalidBodies(t *testing.T) {
	ledger, router := newTestRouter(t)
	seed(t, ledger, "Rice", "kg", "10", "50")

	for _, body := range []string{
		`{"name":"","unit":"kg"}`,
		`{"name":"Beans","unit":"kg","stock":-2}`,
		`{"name":"rice","unit":"kg"}`,
		`not json`,
	} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
	}
}
