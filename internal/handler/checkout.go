package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/thitiwat/salika-pos/internal/domain/checkout"
	"github.com/thitiwat/salika-pos/internal/receipt"
)

type lineResponse struct {
	ProductID    string          `json:"product_id"`
	Name         string          `json:"name"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     int             `json:"quantity"`
	StockCeiling int             `json:"stock_ceiling"`
	Total        decimal.Decimal `json:"total"`
}

type totalsResponse struct {
	Subtotal            decimal.Decimal `json:"subtotal"`
	DiscountAmount      decimal.Decimal `json:"discount_amount"`
	AmountAfterDiscount decimal.Decimal `json:"amount_after_discount"`
	VATRate             decimal.Decimal `json:"vat_rate"`
	PriceExcludingVAT   decimal.Decimal `json:"price_excluding_vat"`
	VATAmount           decimal.Decimal `json:"vat_amount"`
	Total               decimal.Decimal `json:"total"`
}

type sessionResponse struct {
	ID     string         `json:"id"`
	Lines  []lineResponse `json:"lines"`
	Totals totalsResponse `json:"totals"`
}

func toLineResponses(lines []checkout.Line) []lineResponse {
	out := make([]lineResponse, len(lines))
	for i, l := range lines {
		out[i] = lineResponse{
			ProductID:    l.ProductID,
			Name:         l.Name,
			UnitPrice:    l.UnitPrice,
			Quantity:     l.Quantity,
			StockCeiling: l.StockCeiling,
			Total:        l.Total(),
		}
	}
	return out
}

func toTotalsResponse(t checkout.Totals) totalsResponse {
	return totalsResponse{
		Subtotal:            t.Subtotal,
		DiscountAmount:      t.DiscountAmount,
		AmountAfterDiscount: t.AmountAfterDiscount,
		VATRate:             t.VATRate,
		PriceExcludingVAT:   t.PriceExcludingVAT,
		VATAmount:           t.VATAmount,
		Total:               t.Total,
	}
}

func (h *Handler) sessionState(r *http.Request, s *checkout.Session) sessionResponse {
	return sessionResponse{
		ID:     s.ID(),
		Lines:  toLineResponses(s.Lines()),
		Totals: toTotalsResponse(s.Totals(r.Context())),
	}
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*checkout.Session, bool) {
	s, err := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return s, true
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Create()
	writeJSON(w, http.StatusCreated, h.sessionState(r, s))
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.sessionState(r, s))
}

func (h *Handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	h.sessions.Delete(chi.URLParam(r, "sessionID"))
	w.WriteHeader(http.StatusNoContent)
}

type addLineRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// addLine puts qty units of a product into the cart. The product's current
// stock is captured as the line's ceiling.
func (h *Handler) addLine(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req addLineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if req.ProductID == "" {
		writeBadRequest(w, "product_id is required")
		return
	}

	p, err := h.products.GetByID(r.Context(), req.ProductID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.AddLine(p.Snapshot(), req.Quantity); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.sessionState(r, s))
}

type adjustLineRequest struct {
	Delta int `json:"delta"`
}

func (h *Handler) adjustLine(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req adjustLineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if err := s.AdjustQuantity(chi.URLParam(r, "productID"), req.Delta); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.sessionState(r, s))
}

func (h *Handler) removeLine(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.RemoveLine(chi.URLParam(r, "productID")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.sessionState(r, s))
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Clear()
	writeJSON(w, http.StatusOK, h.sessionState(r, s))
}

type payRequest struct {
	Method       string          `json:"method"`
	CashTendered decimal.Decimal `json:"cash_tendered"`
	Salesperson  string          `json:"salesperson"`
}

type receiptResponse struct {
	TransactionID string          `json:"transaction_id"`
	Number        string          `json:"number"`
	Lines         []lineResponse  `json:"lines"`
	Totals        totalsResponse  `json:"totals"`
	Method        string          `json:"method"`
	CashTendered  decimal.Decimal `json:"cash_tendered"`
	ChangeDue     decimal.Decimal `json:"change_due"`
	Salesperson   string          `json:"salesperson,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	Rendered      string          `json:"rendered"`
}

func (h *Handler) toReceiptResponse(r *http.Request, rec *checkout.Receipt) receiptResponse {
	s, err := h.settingsView.Get(r.Context())
	if err != nil {
		s = nil
	}
	return receiptResponse{
		TransactionID: rec.TransactionID,
		Number:        rec.Number,
		Lines:         toLineResponses(rec.Lines),
		Totals:        toTotalsResponse(rec.Totals),
		Method:        string(rec.Method),
		CashTendered:  rec.CashTendered,
		ChangeDue:     rec.ChangeDue,
		Salesperson:   rec.Salesperson,
		CreatedAt:     rec.CreatedAt,
		Rendered:      receipt.Render(rec, s),
	}
}

// pay commits the sale. On success the session's cart has been cleared, a
// receipt is returned, and cached catalog listings are invalidated so the
// next product grid load reflects decremented stock.
func (h *Handler) pay(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req payRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	method, err := checkout.ParseMethod(req.Method)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rec, err := s.Commit(r.Context(), checkout.CommitRequest{
		Method:      method,
		Tendered:    req.CashTendered,
		Salesperson: req.Salesperson,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	if h.catalogCache != nil {
		h.catalogCache.Invalidate(r.Context())
	}
	zctx.From(r.Context()).Info("Sale committed",
		zap.String("transaction_id", rec.TransactionID),
		zap.String("number", rec.Number),
		zap.String("method", string(rec.Method)),
		zap.String("total", rec.Totals.Total.String()),
	)
	writeJSON(w, http.StatusCreated, h.toReceiptResponse(r, rec))
}

// lastReceipt re-serves the receipt of the session's most recent sale, for
// reprints.
func (h *Handler) lastReceipt(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	rec := s.LastReceipt()
	if rec == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Code: http.StatusNotFound, Message: "no completed sale for this session"})
		return
	}
	writeJSON(w, http.StatusOK, h.toReceiptResponse(r, rec))
}
