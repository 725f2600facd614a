// Package handler exposes the register's HTTP API: catalog, checkout
// sessions, transaction history, company settings, and the stock
// reconciliation queue. It is a thin layer; all business rules live in the
// domain packages.
package handler

import (
	"context"

	"github.com/go-chi/chi/v5"

	"github.com/thitiwat/salika-pos/internal/domain/checkout"
	"github.com/thitiwat/salika-pos/internal/domain/product"
	"github.com/thitiwat/salika-pos/internal/domain/settings"
	"github.com/thitiwat/salika-pos/internal/domain/transaction"
)

// CatalogCache invalidates cached catalog listings after a sale changes
// stock. A nil cache disables invalidation.
type CatalogCache interface {
	Invalidate(ctx context.Context)
}

// ReconciliationStore exposes the queue of stock decrements that failed
// during otherwise successful commits.
type ReconciliationStore interface {
	ListUnresolved(ctx context.Context) ([]checkout.ReconciliationEntry, error)
	Resolve(ctx context.Context, id string) error
}

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product
	// responses. When empty, paths are returned as stored.
	ImageBaseURL string
}

// Handler wires the HTTP surface to the domain.
type Handler struct {
	products     product.Repository
	sessions     *checkout.Manager
	transactions transaction.Repository
	settings     settings.Repository
	settingsView *settings.Provider
	reconcile    ReconciliationStore
	catalogCache CatalogCache
	imageBaseURL string
}

// Deps are the collaborators the Handler needs. CatalogCache may be nil.
type Deps struct {
	Products     product.Repository
	Sessions     *checkout.Manager
	Transactions transaction.Repository
	Settings     settings.Repository
	SettingsView *settings.Provider
	Reconcile    ReconciliationStore
	CatalogCache CatalogCache
}

// New constructs a Handler with the required domain dependencies.
func New(cfg Config, deps Deps) *Handler {
	return &Handler{
		products:     deps.Products,
		sessions:     deps.Sessions,
		transactions: deps.Transactions,
		settings:     deps.Settings,
		settingsView: deps.SettingsView,
		reconcile:    deps.Reconcile,
		catalogCache: deps.CatalogCache,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Routes mounts every API endpoint behind the given authenticator.
func (h *Handler) Routes(sec *Security) chi.Router {
	r := chi.NewRouter()
	r.Use(sec.RequireAPIKey)

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.listProducts)
		r.Post("/", h.upsertProduct)
		r.Get("/{productID}", h.getProduct)
		r.Put("/{productID}", h.upsertProduct)
		r.Delete("/{productID}", h.deleteProduct)
	})

	r.Route("/checkout/sessions", func(r chi.Router) {
		r.Post("/", h.createSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", h.getSession)
			r.Delete("/", h.deleteSession)
			r.Post("/lines", h.addLine)
			r.Delete("/lines", h.clearCart)
			r.Patch("/lines/{productID}", h.adjustLine)
			r.Delete("/lines/{productID}", h.removeLine)
			r.Post("/pay", h.pay)
			r.Get("/receipt", h.lastReceipt)
		})
	})

	r.Route("/transactions", func(r chi.Router) {
		r.Get("/", h.listTransactions)
		r.Get("/{transactionID}", h.getTransaction)
	})
	r.Get("/reports/sales", h.salesSummary)

	r.Get("/settings", h.getSettings)
	r.Put("/settings", h.updateSettings)

	r.Route("/reconciliation/failures", func(r chi.Router) {
		r.Get("/", h.listDecrementFailures)
		r.Post("/{failureID}/resolve", h.resolveDecrementFailure)
	})

	return r
}
