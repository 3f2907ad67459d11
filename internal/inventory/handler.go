package inventory

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/saripos/saripos/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the product catalog.
type Handler struct {
	logger *slog.Logger
	ledger *Ledger
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, ledger *Ledger) *Handler {
	return &Handler{logger: logger, ledger: ledger}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{name}", h.get)
	r.Put("/{name}", h.update)
	r.Delete("/{name}", h.remove)
}

type productRequest struct {
	Name  string          `json:"name" validate:"required"`
	Unit  string          `json:"unit" validate:"required"`
	Stock decimal.Decimal `json:"stock"`
	Price decimal.Decimal `json:"price"`
}

type productResponse struct {
	Product
	Lots []Lot `json:"lots,omitempty"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"products": h.ledger.ListAll(r.Context())})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	name := pathName(r)
	product, err := h.ledger.Get(r.Context(), name)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	lots, err := h.ledger.Lots(r.Context(), name)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, productResponse{Product: product, Lots: lots})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	product, err := h.ledger.UpsertProduct(r.Context(), UpsertInput{
		Name:  req.Name,
		Unit:  req.Unit,
		Stock: req.Stock,
		Price: req.Price,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("product created", slog.String("product", product.Name))
	httpx.JSON(w, http.StatusCreated, product)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	original := pathName(r)
	product, err := h.ledger.UpsertProduct(r.Context(), UpsertInput{
		Original: original,
		Name:     req.Name,
		Unit:     req.Unit,
		Stock:    req.Stock,
		Price:    req.Price,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("product updated", slog.String("product", product.Name), slog.String("original", original))
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	name := pathName(r)
	if err := h.ledger.RemoveProduct(r.Context(), name); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("product removed", slog.String("product", name))
	w.WriteHeader(http.StatusNoContent)
}

func pathName(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	if name, err := url.PathUnescape(raw); err == nil {
		return name
	}
	return raw
}
