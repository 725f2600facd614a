package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thitiwat/salika-pos/internal/domain/settings"
)

// settingsRowID keys the single company_settings row; callers never pick
// the ID themselves.
const settingsRowID = "company"

const (
	settingsColumns = `id, company_name, address_line1, address_line2, address_line3,
		tax_id, phone, website, receipt_header_text, receipt_footer_text, vat_rate,
		created_at, updated_at`

	getSettingsSQL = `SELECT ` + settingsColumns + ` FROM company_settings LIMIT 1`

	upsertSettingsSQL = `INSERT INTO company_settings
		(id, company_name, address_line1, address_line2, address_line3, tax_id,
		 phone, website, receipt_header_text, receipt_footer_text, vat_rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			company_name = EXCLUDED.company_name,
			address_line1 = EXCLUDED.address_line1,
			address_line2 = EXCLUDED.address_line2,
			address_line3 = EXCLUDED.address_line3,
			tax_id = EXCLUDED.tax_id,
			phone = EXCLUDED.phone,
			website = EXCLUDED.website,
			receipt_header_text = EXCLUDED.receipt_header_text,
			receipt_footer_text = EXCLUDED.receipt_footer_text,
			vat_rate = EXCLUDED.vat_rate,
			updated_at = now()`
)

var _ settings.Repository = (*SettingsRepository)(nil)

// SettingsRepository implements settings.Repository backed by PostgreSQL.
// The store keeps exactly one company settings row.
type SettingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository returns a SettingsRepository that uses the given
// pool.
func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// Get returns the company settings row.
func (r *SettingsRepository) Get(ctx context.Context) (*settings.CompanySettings, error) {
	rows, err := r.pool.Query(ctx, getSettingsSQL)
	if err != nil {
		return nil, fmt.Errorf("getting company settings: %w", err)
	}

	s, err := pgx.CollectExactlyOneRow(rows, scanSettings)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, settings.ErrNotFound
		}
		return nil, fmt.Errorf("getting company settings: %w", err)
	}
	return &s, nil
}

// Update writes the company settings row, creating it if absent.
func (r *SettingsRepository) Update(ctx context.Context, s *settings.CompanySettings) error {
	_, err := r.pool.Exec(ctx, upsertSettingsSQL,
		settingsRowID, s.CompanyName, s.AddressLine1, s.AddressLine2, s.AddressLine3,
		s.TaxID, s.Phone, s.Website, s.ReceiptHeaderText, s.ReceiptFooterText, s.VATRate,
	)
	if err != nil {
		return fmt.Errorf("updating company settings: %w", err)
	}
	return nil
}

func scanSettings(row pgx.CollectableRow) (settings.CompanySettings, error) {
	var s settings.CompanySettings
	err := row.Scan(
		&s.ID, &s.CompanyName, &s.AddressLine1, &s.AddressLine2, &s.AddressLine3,
		&s.TaxID, &s.Phone, &s.Website, &s.ReceiptHeaderText, &s.ReceiptFooterText,
		&s.VATRate, &s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}
