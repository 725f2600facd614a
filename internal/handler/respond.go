package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/thitiwat/salika-pos/internal/domain/checkout"
	"github.com/thitiwat/salika-pos/internal/domain/product"
	"github.com/thitiwat/salika-pos/internal/domain/settings"
	"github.com/thitiwat/salika-pos/internal/domain/transaction"
)

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError converts domain errors to HTTP error responses. Anything it
// does not recognize is a 500 and logged with its cause; the cause is not
// echoed to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := mapError(err)
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Code: status, Message: msg})
}

func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, checkout.ErrSessionNotFound),
		errors.Is(err, checkout.ErrEntryNotFound),
		errors.Is(err, product.ErrNotFound),
		errors.Is(err, transaction.ErrNotFound),
		errors.Is(err, settings.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, checkout.ErrCommitInFlight):
		return http.StatusConflict, err.Error()
	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrUnknownMethod):
		return http.StatusUnprocessableEntity, err.Error()
	}

	var lineErr *checkout.LineNotFoundError
	if errors.As(err, &lineErr) {
		return http.StatusNotFound, lineErr.Error()
	}

	var oosErr *checkout.OutOfStockError
	if errors.As(err, &oosErr) {
		return http.StatusUnprocessableEntity, oosErr.Error()
	}

	var ceilErr *checkout.StockCeilingError
	if errors.As(err, &ceilErr) {
		return http.StatusUnprocessableEntity, ceilErr.Error()
	}

	var tenderErr *checkout.InsufficientTenderError
	if errors.As(err, &tenderErr) {
		return http.StatusUnprocessableEntity, tenderErr.Error()
	}

	// A failed commit is a storage-side fault; the cart survived, so the
	// terminal can retry.
	var commitErr *checkout.CommitError
	if errors.As(err, &commitErr) {
		return http.StatusBadGateway, commitErr.Error()
	}

	return http.StatusInternalServerError, ""
}

// decodeJSON reads the request body into dst and rejects malformed or
// trailing input.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.Wrap(err, "decode request body")
	}
	return nil
}

// writeBadRequest reports a malformed request body or parameter.
func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Code: http.StatusBadRequest, Message: msg})
}
