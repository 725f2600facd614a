package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thitiwat/salika-pos/internal/domain/transaction"
)

const (
	txColumns = `id, transaction_number, total_amount, tax_amount, discount_amount,
		price_excluding_vat, payment_method, status, cash_tendered, change_due,
		salesperson_name, created_at`

	createTxHeaderSQL = `INSERT INTO transactions
		(id, transaction_number, total_amount, tax_amount, discount_amount,
		 price_excluding_vat, payment_method, status, cash_tendered, change_due,
		 salesperson_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	createTxItemSQL = `INSERT INTO transaction_items
		(id, transaction_id, product_id, quantity, unit_price, total_price)
		VALUES ($1, $2, $3, $4, $5, $6)`

	deleteTxHeaderSQL = `DELETE FROM transactions WHERE id = $1`

	getTxByIDSQL = `SELECT ` + txColumns + ` FROM transactions WHERE id = $1`

	listTxSQL = `SELECT ` + txColumns + ` FROM transactions ORDER BY created_at DESC LIMIT $1`

	listTxItemsSQL = `SELECT id, transaction_id, product_id, quantity, unit_price, total_price
		FROM transaction_items WHERE transaction_id = ANY($1) ORDER BY id`

	salesSummarySQL = `SELECT date_trunc('day', created_at) AS day,
			count(*) AS sales_count,
			sum(total_amount) AS gross_total,
			sum(tax_amount) AS tax_total
		FROM transactions
		WHERE created_at >= $1 AND status = 'completed'
		GROUP BY day ORDER BY day DESC`
)

var _ transaction.Repository = (*TransactionRepository)(nil)

// TransactionRepository implements transaction.Repository backed by
// PostgreSQL. CreateHeader and CreateItems are deliberately separate
// statements: the checkout engine owns the sequencing and compensation
// between them.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository returns a TransactionRepository that uses the
// given pool.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

// CreateHeader persists the transaction header row.
func (r *TransactionRepository) CreateHeader(ctx context.Context, tx *transaction.Transaction) error {
	_, err := r.pool.Exec(ctx, createTxHeaderSQL,
		tx.ID, tx.Number, tx.TotalAmount, tx.TaxAmount, tx.DiscountAmount,
		tx.PriceExcludingVAT, tx.PaymentMethod, tx.Status, tx.CashTendered,
		tx.ChangeDue, tx.SalespersonName, tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating transaction %q: %w", tx.ID, err)
	}
	return nil
}

// CreateItems persists all line items in a single batch round trip.
func (r *TransactionRepository) CreateItems(ctx context.Context, items []transaction.Item) error {
	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(createTxItemSQL,
			it.ID, it.TransactionID, it.ProductID, it.Quantity, it.UnitPrice, it.TotalPrice,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer func() { _ = br.Close() }()

	for range items {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("creating transaction items: %w", err)
		}
	}
	return nil
}

// DeleteHeader removes a transaction header; items cascade.
func (r *TransactionRepository) DeleteHeader(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, deleteTxHeaderSQL, id); err != nil {
		return fmt.Errorf("deleting transaction %q: %w", id, err)
	}
	return nil
}

// GetByID returns one transaction with its items.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*transaction.Transaction, error) {
	rows, err := r.pool.Query(ctx, getTxByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting transaction %q: %w", id, err)
	}

	tx, err := pgx.CollectExactlyOneRow(rows, scanTransaction)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrNotFound
		}
		return nil, fmt.Errorf("getting transaction %q: %w", id, err)
	}

	items, err := r.itemsFor(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	tx.Items = items[id]
	return &tx, nil
}

// List returns the most recent transactions with their items, newest
// first.
func (r *TransactionRepository) List(ctx context.Context, limit int) ([]transaction.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, listTxSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}

	txs, err := pgx.CollectRows(rows, scanTransaction)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	if len(txs) == 0 {
		return txs, nil
	}

	ids := make([]string, len(txs))
	for i := range txs {
		ids[i] = txs[i].ID
	}

	items, err := r.itemsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range txs {
		txs[i].Items = items[txs[i].ID]
	}
	return txs, nil
}

// SalesSummary aggregates completed sales per day since the given time.
func (r *TransactionRepository) SalesSummary(ctx context.Context, since time.Time) ([]transaction.DaySummary, error) {
	rows, err := r.pool.Query(ctx, salesSummarySQL, since)
	if err != nil {
		return nil, fmt.Errorf("sales summary: %w", err)
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (transaction.DaySummary, error) {
		var s transaction.DaySummary
		err := row.Scan(&s.Day, &s.SalesCount, &s.GrossTotal, &s.TaxTotal)
		return s, err
	})
}

func (r *TransactionRepository) itemsFor(ctx context.Context, ids []string) (map[string][]transaction.Item, error) {
	rows, err := r.pool.Query(ctx, listTxItemsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("listing transaction items: %w", err)
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (transaction.Item, error) {
		var it transaction.Item
		err := row.Scan(&it.ID, &it.TransactionID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.TotalPrice)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("listing transaction items: %w", err)
	}

	byTx := make(map[string][]transaction.Item, len(ids))
	for _, it := range items {
		byTx[it.TransactionID] = append(byTx[it.TransactionID], it)
	}
	return byTx, nil
}

func scanTransaction(row pgx.CollectableRow) (transaction.Transaction, error) {
	var tx transaction.Transaction
	err := row.Scan(
		&tx.ID, &tx.Number, &tx.TotalAmount, &tx.TaxAmount, &tx.DiscountAmount,
		&tx.PriceExcludingVAT, &tx.PaymentMethod, &tx.Status, &tx.CashTendered,
		&tx.ChangeDue, &tx.SalespersonName, &tx.CreatedAt,
	)
	return tx, err
}
