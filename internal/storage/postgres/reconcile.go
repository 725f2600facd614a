package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thitiwat/salika-pos/internal/domain/checkout"
)

const (
	recordDecrementFailureSQL = `INSERT INTO stock_decrement_failures
		(id, transaction_id, product_id, quantity, cause)
		VALUES ($1, $2, $3, $4, $5)`

	listUnresolvedFailuresSQL = `SELECT id, transaction_id, product_id, quantity, cause, created_at
		FROM stock_decrement_failures WHERE resolved_at IS NULL ORDER BY created_at`

	resolveFailureSQL = `UPDATE stock_decrement_failures SET resolved_at = now()
		WHERE id = $1 AND resolved_at IS NULL`
)

var _ checkout.ReconciliationLog = (*ReconciliationRepository)(nil)

// ReconciliationRepository persists stock decrements that failed during an
// otherwise successful commit, so operators can correct stock later.
type ReconciliationRepository struct {
	pool *pgxpool.Pool
}

// NewReconciliationRepository returns a ReconciliationRepository that uses
// the given pool.
func NewReconciliationRepository(pool *pgxpool.Pool) *ReconciliationRepository {
	return &ReconciliationRepository{pool: pool}
}

// Record stores one failed decrement.
func (r *ReconciliationRepository) Record(ctx context.Context, f checkout.DecrementFailure) error {
	_, err := r.pool.Exec(ctx, recordDecrementFailureSQL,
		uuid.New().String(), f.TransactionID, f.ProductID, f.Quantity, f.Cause,
	)
	if err != nil {
		return fmt.Errorf("recording decrement failure: %w", err)
	}
	return nil
}

// ListUnresolved returns all pending reconciliation entries, oldest first.
func (r *ReconciliationRepository) ListUnresolved(ctx context.Context) ([]checkout.ReconciliationEntry, error) {
	rows, err := r.pool.Query(ctx, listUnresolvedFailuresSQL)
	if err != nil {
		return nil, fmt.Errorf("listing decrement failures: %w", err)
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (checkout.ReconciliationEntry, error) {
		var e checkout.ReconciliationEntry
		err := row.Scan(&e.ID, &e.TransactionID, &e.ProductID, &e.Quantity, &e.Cause, &e.CreatedAt)
		return e, err
	})
}

// Resolve marks one entry as handled.
func (r *ReconciliationRepository) Resolve(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, resolveFailureSQL, id)
	if err != nil {
		return fmt.Errorf("resolving decrement failure %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return checkout.ErrEntryNotFound
	}
	return nil
}
