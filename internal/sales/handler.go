package sales

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/saripos/saripos/internal/inventory"
	"github.com/saripos/saripos/internal/platform/httpx"
	"github.com/saripos/saripos/internal/shared"
)

// IdempotencyHeader carries the client-generated checkout key.
const IdempotencyHeader = "Idempotency-Key"

// Handler exposes checkout, cart and history endpoints.
type Handler struct {
	logger    *slog.Logger
	processor *Processor
	cart      *Cart
}

// NewHandler constructs the sales handler.
func NewHandler(logger *slog.Logger, processor *Processor, cart *Cart) *Handler {
	return &Handler{logger: logger, processor: processor, cart: cart}
}

// MountRoutes registers sales routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.history)
	r.Post("/", h.finalize)
	r.Post("/quote", h.quote)
	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.showCart)
		r.Delete("/", h.clearCart)
		r.Post("/items", h.addCartItem)
		r.Delete("/items/{index}", h.removeCartItem)
		r.Post("/checkout", h.checkoutCart)
	})
}

type lineRequest struct {
	Name     string          `json:"name" validate:"required"`
	Quantity decimal.Decimal `json:"quantity"`
}

type checkoutRequest struct {
	Type         string          `json:"type" validate:"required"`
	Customer     string          `json:"customer"`
	CashReceived decimal.Decimal `json:"cash_received"`
}

type saleRequest struct {
	checkoutRequest
	Items []lineRequest `json:"items" validate:"dive"`
}

type quoteRequest struct {
	Items []lineRequest `json:"items" validate:"dive"`
}

type saleResponse struct {
	Sale   Record           `json:"sale"`
	Change *decimal.Decimal `json:"change,omitempty"`
}

func toLineItems(lines []lineRequest) []inventory.LineItem {
	items := make([]inventory.LineItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, inventory.LineItem{Name: l.Name, Quantity: l.Quantity})
	}
	return items
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"sales": h.processor.History().List()})
}

func (h *Handler) quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	reservation, err := h.processor.Quote(r.Context(), toLineItems(req.Items))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, reservation)
}

func (h *Handler) finalize(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	record, err := h.finalizeSale(r, req.checkoutRequest, toLineItems(req.Items))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.respondSale(w, req.checkoutRequest, record)
}

func (h *Handler) checkoutCart(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	var record Record
	err := h.cart.Checkout(func(items []inventory.LineItem) error {
		var err error
		record, err = h.finalizeSale(r, req, items)
		return err
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.respondSale(w, req, record)
}

func (h *Handler) finalizeSale(r *http.Request, req checkoutRequest, items []inventory.LineItem) (Record, error) {
	saleType, err := ParseType(req.Type)
	if err != nil {
		return Record{}, shared.Invalid("type", "%v", err)
	}
	return h.processor.FinalizeSale(r.Context(), FinalizeInput{
		Customer:       req.Customer,
		Items:          items,
		Type:           saleType,
		CashReceived:   req.CashReceived,
		IdempotencyKey: r.Header.Get(IdempotencyHeader),
	})
}

func (h *Handler) respondSale(w http.ResponseWriter, req checkoutRequest, record Record) {
	resp := saleResponse{Sale: record}
	if record.Type == TypeCash {
		change := shared.Round2(req.CashReceived.Sub(record.Total))
		resp.Change = &change
	}
	h.logger.Info("sale finalized",
		slog.String("sale_id", record.ID),
		slog.String("type", string(record.Type)),
		slog.String("customer", record.Customer),
		slog.String("total", record.Total.StringFixed(2)))
	httpx.JSON(w, http.StatusCreated, resp)
}

func (h *Handler) showCart(w http.ResponseWriter, r *http.Request) {
	items := h.cart.Items()
	resp := map[string]any{"items": items}
	if len(items) > 0 {
		reservation, err := h.processor.Quote(r.Context(), items)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		resp["quote"] = reservation
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req lineRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	item, err := h.cart.Add(r.Context(), req.Name, req.Quantity)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		httpx.RespondError(w, shared.Invalid("index", "must be an integer"))
		return
	}
	if err := h.cart.Remove(index); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	h.cart.Clear()
	w.WriteHeader(http.StatusNoContent)
}
