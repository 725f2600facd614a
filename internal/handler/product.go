package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/thitiwat/salika-pos/internal/domain/product"
)

type productResponse struct {
	ID          string          `json:"id"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Category    string          `json:"category,omitempty"`
	ImageURL    string          `json:"image_url,omitempty"`
}

func (h *Handler) toProductResponse(p product.Product) productResponse {
	img := p.ImageURL
	if img != "" && h.imageBaseURL != "" && !strings.HasPrefix(img, "http") {
		img = strings.TrimSuffix(h.imageBaseURL, "/") + "/" + strings.TrimPrefix(img, "/")
	}
	return productResponse{
		ID:          p.ID,
		SKU:         p.SKU,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		Category:    p.Category,
		ImageURL:    img,
	}
}

// listProducts serves the catalog grid. With a q parameter it searches by
// name or SKU; otherwise it returns the full (possibly cached) list.
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	var (
		products []product.Product
		err      error
	)
	if term := r.URL.Query().Get("q"); term != "" {
		products, err = h.products.Search(r.Context(), term)
	} else {
		products, err = h.products.List(r.Context())
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]productResponse, len(products))
	for i, p := range products {
		out[i] = h.toProductResponse(p)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toProductResponse(*p))
}

type upsertProductRequest struct {
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Category    string          `json:"category"`
	ImageURL    string          `json:"image_url"`
}

// upsertProduct creates a product on POST /products and replaces one on
// PUT /products/{productID}.
func (h *Handler) upsertProduct(w http.ResponseWriter, r *http.Request) {
	var req upsertProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if req.Name == "" {
		writeBadRequest(w, "name is required")
		return
	}
	if req.Price.IsNegative() || req.Stock < 0 {
		writeBadRequest(w, "price and stock must be non-negative")
		return
	}

	id := chi.URLParam(r, "productID")
	status := http.StatusOK
	if id == "" {
		id = uuid.New().String()
		status = http.StatusCreated
	}

	p := &product.Product{
		ID:          id,
		SKU:         req.SKU,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
	}
	if err := h.products.Upsert(r.Context(), p); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, status, h.toProductResponse(*p))
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.products.Delete(r.Context(), chi.URLParam(r, "productID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
