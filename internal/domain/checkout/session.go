package checkout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/thitiwat/salika-pos/internal/domain/product"
	"github.com/thitiwat/salika-pos/internal/domain/transaction"
)

// Sentinel errors for session operations.
var (
	ErrEmptyCart      = errors.New("cart is empty")
	ErrCommitInFlight = errors.New("a commit is already in progress")
)

// CommitStage identifies which step of the commit sequence failed.
type CommitStage string

const (
	// StageHeader is the transaction header write. Failure here aborts the
	// whole commit; nothing was persisted.
	StageHeader CommitStage = "header"
	// StageItems is the line items write. Failure here triggers a
	// compensating delete of the header.
	StageItems CommitStage = "items"
)

// CommitError reports a failed commit. The cart is preserved in all cases
// so the cashier can retry.
type CommitError struct {
	Stage CommitStage
	Err   error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit failed at %s write: %s", e.Stage, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// TransactionStore persists sale records. Each operation is independently
// failable; no multi-statement atomicity is assumed. DeleteHeader is the
// compensating action for an items-write failure.
type TransactionStore interface {
	CreateHeader(ctx context.Context, tx *transaction.Transaction) error
	CreateItems(ctx context.Context, items []transaction.Item) error
	DeleteHeader(ctx context.Context, id string) error
}

// StockStore decrements on-hand stock after a sale.
type StockStore interface {
	DecrementStock(ctx context.Context, productID string, qty int) error
}

// DecrementFailure records a stock decrement that failed during an
// otherwise successful commit, for later reconciliation.
type DecrementFailure struct {
	TransactionID string
	ProductID     string
	Quantity      int
	Cause         string
}

// ReconciliationLog receives decrement failures. Recording is best-effort;
// a failure to record is itself only logged.
type ReconciliationLog interface {
	Record(ctx context.Context, f DecrementFailure) error
}

// ErrEntryNotFound is returned when a reconciliation entry does not exist
// or was already resolved.
var ErrEntryNotFound = errors.New("reconciliation entry not found")

// ReconciliationEntry is a recorded decrement failure awaiting operator
// action.
type ReconciliationEntry struct {
	ID        string
	CreatedAt time.Time
	DecrementFailure
}

// RateSource supplies the VAT rate for totals computation.
type RateSource interface {
	VATRate(ctx context.Context) decimal.Decimal
}

// Deps are the collaborators a checkout session needs.
type Deps struct {
	Store     TransactionStore
	Stock     StockStore
	Reconcile ReconciliationLog
	Rates     RateSource
	Discount  DiscountPolicy
	Now       func() time.Time
}

// CommitRequest carries the payment choice for a commit.
type CommitRequest struct {
	Method      Method
	Tendered    decimal.Decimal
	Salesperson string
}

// Receipt is the projection handed to the renderer after a successful
// commit. Lines and totals are deep copies taken at commit time, so later
// cart activity cannot retroactively alter a rendered receipt.
type Receipt struct {
	TransactionID string
	Number        string
	Lines         []Line
	Totals        Totals
	Method        Method
	CashTendered  decimal.Decimal
	ChangeDue     decimal.Decimal
	Salesperson   string
	CreatedAt     time.Time
}

// State is the commit state of a session.
type State int

const (
	// StateIdle accepts cart mutations and a new commit.
	StateIdle State = iota
	// StateCommitting holds the cart exclusively until the in-flight
	// commit settles; all state transitions return here afterwards.
	StateCommitting
)

// Session owns one terminal's cart and drives the commit sequence. All
// methods are safe for concurrent use; cart mutations run to completion
// under the session lock, and at most one commit is in flight at a time.
type Session struct {
	id   string
	deps Deps

	mu          sync.Mutex
	state       State
	cart        Cart
	lastReceipt *Receipt
	lastActive  time.Time
}

// NewSession creates an idle session with an empty cart.
func NewSession(id string, deps Deps) *Session {
	if deps.Discount == nil {
		deps.Discount = ZeroDiscount{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Session{
		id:         id,
		deps:       deps,
		lastActive: deps.Now(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

func (s *Session) touch() { s.lastActive = s.deps.Now() }

// AddLine adds qty units of the product to the cart. Rejected while a
// commit is in flight.
func (s *Session) AddLine(p product.Snapshot, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return ErrCommitInFlight
	}
	s.touch()
	return s.cart.AddLine(p, qty)
}

// AdjustQuantity applies a signed delta to a cart line.
func (s *Session) AdjustQuantity(productID string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return ErrCommitInFlight
	}
	s.touch()
	return s.cart.AdjustQuantity(productID, delta)
}

// RemoveLine deletes a cart line unconditionally.
func (s *Session) RemoveLine(productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return ErrCommitInFlight
	}
	s.touch()
	s.cart.RemoveLine(productID)
	return nil
}

// Clear empties the cart. It is a silent no-op while a commit is in
// flight.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return
	}
	s.touch()
	s.cart.Clear()
}

// Lines returns a copy of the current cart lines.
func (s *Session) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Lines()
}

// LastReceipt returns the receipt of the most recent successful commit,
// or nil.
func (s *Session) LastReceipt() *Receipt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReceipt
}

// Totals computes the checkout totals for the current cart contents and
// VAT rate. Pure with respect to session state.
func (s *Session) Totals(ctx context.Context) Totals {
	s.mu.Lock()
	lines := s.cart.Lines()
	s.mu.Unlock()

	return ComputeTotals(lines, s.deps.Rates.VATRate(ctx), s.deps.Discount)
}

// ValidateCash checks a cash tender against the current total and returns
// the change due.
func (s *Session) ValidateCash(ctx context.Context, tendered decimal.Decimal) (decimal.Decimal, error) {
	return ValidateCashTender(tendered, s.Totals(ctx).Total)
}

// Commit persists the sale: header, then line items, then one stock
// decrement per line. The sequence is ordered and non-atomic by design;
// see CommitError for the failure semantics of each stage. On success the
// cart is cleared and a receipt projection returned. The caller is
// responsible for refreshing the catalog afterwards.
func (s *Session) Commit(ctx context.Context, req CommitRequest) (*Receipt, error) {
	lines, err := s.beginCommit()
	if err != nil {
		return nil, err
	}

	receipt, err := s.runCommit(ctx, req, lines)
	s.endCommit(receipt)
	return receipt, err
}

// beginCommit transitions Idle -> Committing and snapshots the cart.
func (s *Session) beginCommit() ([]Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return nil, ErrCommitInFlight
	}
	if s.cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	s.touch()
	s.state = StateCommitting
	return s.cart.Lines(), nil
}

// endCommit returns the session to Idle. A non-nil receipt marks success
// and clears the cart; on failure the cart is left exactly as it was.
func (s *Session) endCommit(receipt *Receipt) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if receipt != nil {
		s.cart.Clear()
		s.lastReceipt = receipt
	}
	s.state = StateIdle
}

func (s *Session) runCommit(ctx context.Context, req CommitRequest, lines []Line) (*Receipt, error) {
	lg := zctx.From(ctx)
	totals := ComputeTotals(lines, s.deps.Rates.VATRate(ctx), s.deps.Discount)

	var tendered, change decimal.Decimal
	if req.Method == MethodCash {
		var err error
		change, err = ValidateCashTender(req.Tendered, totals.Total)
		if err != nil {
			return nil, err
		}
		tendered = req.Tendered
	}

	now := s.deps.Now()
	tx := &transaction.Transaction{
		ID:                uuid.New().String(),
		Number:            transaction.NewNumber(now),
		TotalAmount:       totals.Total,
		TaxAmount:         totals.VATAmount,
		DiscountAmount:    totals.DiscountAmount,
		PriceExcludingVAT: totals.PriceExcludingVAT,
		PaymentMethod:     string(req.Method),
		Status:            transaction.StatusCompleted,
		CashTendered:      tendered,
		ChangeDue:         change,
		SalespersonName:   req.Salesperson,
		CreatedAt:         now,
	}

	// Step 1: header. Failure aborts everything; nothing was persisted.
	if err := s.deps.Store.CreateHeader(ctx, tx); err != nil {
		return nil, &CommitError{Stage: StageHeader, Err: err}
	}

	items := make([]transaction.Item, len(lines))
	for i, l := range lines {
		items[i] = transaction.Item{
			ID:            uuid.New().String(),
			TransactionID: tx.ID,
			ProductID:     l.ProductID,
			Quantity:      l.Quantity,
			UnitPrice:     l.UnitPrice,
			TotalPrice:    l.Total(),
		}
	}

	// Step 2: line items. On failure, compensate by deleting the header;
	// if the compensation itself fails the orphan is logged, not hidden.
	if err := s.deps.Store.CreateItems(ctx, items); err != nil {
		if delErr := s.deps.Store.DeleteHeader(ctx, tx.ID); delErr != nil {
			lg.Error("Compensating header delete failed, orphaned transaction header persists",
				zap.String("transaction_id", tx.ID),
				zap.Error(delErr),
			)
		}
		return nil, &CommitError{Stage: StageItems, Err: err}
	}

	// Step 3: stock decrements, one per line, independently. Failures are
	// non-fatal for the sale but must stay visible to operators.
	for _, l := range lines {
		if err := s.deps.Stock.DecrementStock(ctx, l.ProductID, l.Quantity); err != nil {
			lg.Warn("Stock decrement failed, queued for reconciliation",
				zap.String("transaction_id", tx.ID),
				zap.String("product_id", l.ProductID),
				zap.Int("quantity", l.Quantity),
				zap.Error(err),
			)
			failure := DecrementFailure{
				TransactionID: tx.ID,
				ProductID:     l.ProductID,
				Quantity:      l.Quantity,
				Cause:         err.Error(),
			}
			if recErr := s.deps.Reconcile.Record(ctx, failure); recErr != nil {
				lg.Error("Recording decrement failure failed",
					zap.String("transaction_id", tx.ID),
					zap.String("product_id", l.ProductID),
					zap.Error(recErr),
				)
			}
		}
	}

	return &Receipt{
		TransactionID: tx.ID,
		Number:        tx.Number,
		Lines:         lines,
		Totals:        totals,
		Method:        req.Method,
		CashTendered:  tendered,
		ChangeDue:     change,
		Salesperson:   req.Salesperson,
		CreatedAt:     now,
	}, nil
}
