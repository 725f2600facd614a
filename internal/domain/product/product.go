package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a requested product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrInsufficientStock is returned by DecrementStock when the remaining
	// stock is lower than the requested quantity.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Product represents a catalog item available for sale at the register.
// Stock is the on-hand quantity; checkout captures it as the cart line's
// ceiling at add time.
type Product struct {
	ID          string
	SKU         string
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Category    string
	ImageURL    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Snapshot is the subset of product data the checkout engine needs when a
// line is added to a cart.
type Snapshot struct {
	ID    string
	Name  string
	Price decimal.Decimal
	Stock int
}

// Snapshot returns the checkout-facing view of the product.
func (p *Product) Snapshot() Snapshot {
	return Snapshot{
		ID:    p.ID,
		Name:  p.Name,
		Price: p.Price,
		Stock: p.Stock,
	}
}

// Repository defines catalog persistence. Search matches name or SKU,
// case-insensitively, and returns all products for an empty term.
// DecrementStock must fail with ErrInsufficientStock rather than drive
// stock negative.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	Search(ctx context.Context, term string) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	Upsert(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
	DecrementStock(ctx context.Context, id string, qty int) error
}
