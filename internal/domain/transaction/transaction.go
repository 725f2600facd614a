package transaction

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested transaction does not exist.
var ErrNotFound = errors.New("transaction not found")

// StatusCompleted is the only status the register writes: a sale is
// persisted in its final state, with no pending/confirmation step.
const StatusCompleted = "completed"

// Transaction is the durable record of a completed sale.
type Transaction struct {
	ID                string
	Number            string
	TotalAmount       decimal.Decimal
	TaxAmount         decimal.Decimal
	DiscountAmount    decimal.Decimal
	PriceExcludingVAT decimal.Decimal
	PaymentMethod     string
	Status            string
	CashTendered      decimal.Decimal
	ChangeDue         decimal.Decimal
	SalespersonName   string
	CreatedAt         time.Time
	Items             []Item
}

// Item is one sold line within a transaction.
type Item struct {
	ID            string
	TransactionID string
	ProductID     string
	Quantity      int
	UnitPrice     decimal.Decimal
	TotalPrice    decimal.Decimal
}

// NewNumber builds a human-readable transaction number from the sale time.
// The random suffix keeps numbers unique under the database's uniqueness
// constraint when two terminals commit within the same millisecond.
func NewNumber(t time.Time) string {
	var suffix [4]byte
	_, _ = rand.Read(suffix[:])
	return fmt.Sprintf("TXN-%d-%X", t.UnixMilli(), suffix[:])
}

// DaySummary aggregates sales for one calendar day, for reporting.
type DaySummary struct {
	Day        time.Time
	SalesCount int
	GrossTotal decimal.Decimal
	TaxTotal   decimal.Decimal
}

// Repository defines persistence for sale records. Header and items are
// written in separate calls on purpose: the checkout engine owns the
// ordering and compensation between them.
type Repository interface {
	CreateHeader(ctx context.Context, tx *Transaction) error
	CreateItems(ctx context.Context, items []Item) error
	DeleteHeader(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*Transaction, error)
	List(ctx context.Context, limit int) ([]Transaction, error)
	SalesSummary(ctx context.Context, since time.Time) ([]DaySummary, error)
}
