package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/thitiwat/salika-pos/internal/domain/transaction"
)

const defaultListLimit = 50

type transactionItemResponse struct {
	ID         string          `json:"id"`
	ProductID  string          `json:"product_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

type transactionResponse struct {
	ID                string                    `json:"id"`
	Number            string                    `json:"number"`
	TotalAmount       decimal.Decimal           `json:"total_amount"`
	TaxAmount         decimal.Decimal           `json:"tax_amount"`
	DiscountAmount    decimal.Decimal           `json:"discount_amount"`
	PriceExcludingVAT decimal.Decimal           `json:"price_excluding_vat"`
	PaymentMethod     string                    `json:"payment_method"`
	Status            string                    `json:"status"`
	CashTendered      decimal.Decimal           `json:"cash_tendered"`
	ChangeDue         decimal.Decimal           `json:"change_due"`
	SalespersonName   string                    `json:"salesperson_name,omitempty"`
	CreatedAt         time.Time                 `json:"created_at"`
	Items             []transactionItemResponse `json:"items"`
}

func toTransactionResponse(t transaction.Transaction) transactionResponse {
	items := make([]transactionItemResponse, len(t.Items))
	for i, it := range t.Items {
		items[i] = transactionItemResponse{
			ID:         it.ID,
			ProductID:  it.ProductID,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
			TotalPrice: it.TotalPrice,
		}
	}
	return transactionResponse{
		ID:                t.ID,
		Number:            t.Number,
		TotalAmount:       t.TotalAmount,
		TaxAmount:         t.TaxAmount,
		DiscountAmount:    t.DiscountAmount,
		PriceExcludingVAT: t.PriceExcludingVAT,
		PaymentMethod:     t.PaymentMethod,
		Status:            t.Status,
		CashTendered:      t.CashTendered,
		ChangeDue:         t.ChangeDue,
		SalespersonName:   t.SalespersonName,
		CreatedAt:         t.CreatedAt,
		Items:             items,
	}
}

// listTransactions returns recent sales, newest first.
func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	txs, err := h.transactions.List(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]transactionResponse, len(txs))
	for i, t := range txs {
		out[i] = toTransactionResponse(t)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := h.transactions.GetByID(r.Context(), chi.URLParam(r, "transactionID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(*t))
}

type daySummaryResponse struct {
	Day        string          `json:"day"`
	SalesCount int             `json:"sales_count"`
	GrossTotal decimal.Decimal `json:"gross_total"`
	TaxTotal   decimal.Decimal `json:"tax_total"`
}

// salesSummary returns per-day sales aggregates. The since parameter is an
// RFC 3339 date; it defaults to 30 days ago.
func (h *Handler) salesSummary(w http.ResponseWriter, r *http.Request) {
	since := time.Now().AddDate(0, 0, -30)
	if raw := r.URL.Query().Get("since"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeBadRequest(w, "since must be a YYYY-MM-DD date")
			return
		}
		since = t
	}

	days, err := h.transactions.SalesSummary(r.Context(), since)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]daySummaryResponse, len(days))
	for i, d := range days {
		out[i] = daySummaryResponse{
			Day:        d.Day.Format("2006-01-02"),
			SalesCount: d.SalesCount,
			GrossTotal: d.GrossTotal,
			TaxTotal:   d.TaxTotal,
		}
	}
	writeJSON(w, http.StatusOK, out)
}
