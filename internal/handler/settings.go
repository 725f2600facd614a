package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/thitiwat/salika-pos/internal/domain/settings"
)

type settingsResponse struct {
	CompanyName       string          `json:"company_name"`
	AddressLine1      string          `json:"address_line1,omitempty"`
	AddressLine2      string          `json:"address_line2,omitempty"`
	AddressLine3      string          `json:"address_line3,omitempty"`
	TaxID             string          `json:"tax_id,omitempty"`
	Phone             string          `json:"phone,omitempty"`
	Website           string          `json:"website,omitempty"`
	ReceiptHeaderText string          `json:"receipt_header_text,omitempty"`
	ReceiptFooterText string          `json:"receipt_footer_text,omitempty"`
	VATRate           decimal.Decimal `json:"vat_rate"`
}

func toSettingsResponse(s *settings.CompanySettings) settingsResponse {
	return settingsResponse{
		CompanyName:       s.CompanyName,
		AddressLine1:      s.AddressLine1,
		AddressLine2:      s.AddressLine2,
		AddressLine3:      s.AddressLine3,
		TaxID:             s.TaxID,
		Phone:             s.Phone,
		Website:           s.Website,
		ReceiptHeaderText: s.ReceiptHeaderText,
		ReceiptFooterText: s.ReceiptFooterText,
		VATRate:           s.VATRate,
	}
}

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.settingsView.Get(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSettingsResponse(s))
}

type updateSettingsRequest struct {
	CompanyName       string          `json:"company_name"`
	AddressLine1      string          `json:"address_line1"`
	AddressLine2      string          `json:"address_line2"`
	AddressLine3      string          `json:"address_line3"`
	TaxID             string          `json:"tax_id"`
	Phone             string          `json:"phone"`
	Website           string          `json:"website"`
	ReceiptHeaderText string          `json:"receipt_header_text"`
	ReceiptFooterText string          `json:"receipt_footer_text"`
	VATRate           decimal.Decimal `json:"vat_rate"`
}

// updateSettings replaces the company settings row and drops the cached
// copy so in-flight totals pick up a changed VAT rate on the next request.
func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if req.CompanyName == "" {
		writeBadRequest(w, "company_name is required")
		return
	}
	if req.VATRate.IsNegative() || req.VATRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		writeBadRequest(w, "vat_rate must be a fraction in [0, 1)")
		return
	}

	s := &settings.CompanySettings{
		CompanyName:       req.CompanyName,
		AddressLine1:      req.AddressLine1,
		AddressLine2:      req.AddressLine2,
		AddressLine3:      req.AddressLine3,
		TaxID:             req.TaxID,
		Phone:             req.Phone,
		Website:           req.Website,
		ReceiptHeaderText: req.ReceiptHeaderText,
		ReceiptFooterText: req.ReceiptFooterText,
		VATRate:           req.VATRate,
	}
	if err := h.settings.Update(r.Context(), s); err != nil {
		writeError(w, r, err)
		return
	}
	h.settingsView.Invalidate()
	writeJSON(w, http.StatusOK, toSettingsResponse(s))
}
