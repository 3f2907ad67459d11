package credit

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/saripos/saripos/internal/platform/httpx"
)

// Handler exposes credit accounts and payment endpoints.
type Handler struct {
	logger    *slog.Logger
	ledger    *Ledger
	allocator *Allocator
}

// NewHandler constructs the credit handler.
func NewHandler(logger *slog.Logger, ledger *Ledger, allocator *Allocator) *Handler {
	return &Handler{logger: logger, ledger: ledger, allocator: allocator}
}

// MountRoutes registers credit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/customers", h.listCustomers)
	r.Get("/customers/{name}", h.customerHistory)
	r.Get("/customers/{name}/pending", h.pendingEntries)
	r.Post("/customers/{name}/payments", h.recordPayment)
}

type customerBalance struct {
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

type pendingEntry struct {
	Position int `json:"position"`
	DebtEntry
}

type paymentRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Position *int            `json:"position,omitempty" validate:"omitempty,gte=0"`
	EntryID  string          `json:"entry_id,omitempty" validate:"omitempty,uuid"`
}

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	names := h.ledger.ListCustomersWithHistory(ctx)
	customers := make([]customerBalance, 0, len(names))
	for _, name := range names {
		customers = append(customers, customerBalance{Name: name, Balance: h.ledger.PendingBalance(ctx, name)})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"customers":   customers,
		"outstanding": h.ledger.Outstanding(ctx),
	})
}

func (h *Handler) customerHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := customerParam(r)
	order := h.ledger.PaymentOrder()
	if raw := r.URL.Query().Get("order"); raw != "" {
		parsed, err := ParsePaymentOrder(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		order = parsed
	}
	summary, err := h.ledger.Summary(ctx, name)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	entries, err := h.ledger.SortedEntries(ctx, name, order)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"summary": summary, "entries": entries})
}

func (h *Handler) pendingEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.ledger.PendingEntries(r.Context(), customerParam(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]pendingEntry, 0, len(entries))
	for i, e := range entries {
		out = append(out, pendingEntry{Position: i, DebtEntry: e})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"order": h.ledger.PaymentOrder(), "entries": out})
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	name := customerParam(r)
	var (
		receipt Receipt
		err     error
	)
	if req.Position != nil {
		receipt, err = h.allocator.PayAgainstEntry(r.Context(), name, EntryRef{Position: *req.Position, EntryID: req.EntryID}, req.Amount)
	} else {
		receipt, err = h.allocator.PayAcrossAccount(r.Context(), name, req.Amount)
	}
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("payment recorded",
		slog.String("customer", receipt.Customer),
		slog.String("mode", string(receipt.Mode)),
		slog.String("amount", receipt.Amount.StringFixed(2)),
		slog.String("balance", receipt.Balance.StringFixed(2)))
	httpx.JSON(w, http.StatusOK, receipt)
}

func customerParam(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	if name, err := url.PathUnescape(raw); err == nil {
		return name
	}
	return raw
}
