package settings

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/thitiwat/salika-pos/internal/domain/checkout"
)

// ErrNotFound is returned when the company settings row does not exist.
var ErrNotFound = errors.New("company settings not found")

// CompanySettings is the single row of store identity and receipt
// configuration. VATRate is a decimal fraction (0.07 for 7%).
type CompanySettings struct {
	ID                string
	CompanyName       string
	AddressLine1      string
	AddressLine2      string
	AddressLine3      string
	TaxID             string
	Phone             string
	Website           string
	ReceiptHeaderText string
	ReceiptFooterText string
	VATRate           decimal.Decimal
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Repository provides access to the company settings row.
type Repository interface {
	Get(ctx context.Context) (*CompanySettings, error)
	Update(ctx context.Context, s *CompanySettings) error
}

// Provider serves settings reads through a small TTL cache so the checkout
// engine can ask for the VAT rate on every totals computation without a
// round trip per keystroke.
type Provider struct {
	repo Repository
	ttl  time.Duration
	now  func() time.Time

	mu        sync.Mutex
	cached    *CompanySettings
	fetchedAt time.Time
}

// NewProvider creates a Provider with the given cache TTL.
func NewProvider(repo Repository, ttl time.Duration) *Provider {
	return &Provider{repo: repo, ttl: ttl, now: time.Now}
}

// Get returns the current settings, refreshing the cache when stale.
func (p *Provider) Get(ctx context.Context) (*CompanySettings, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != nil && p.now().Sub(p.fetchedAt) < p.ttl {
		return p.cached, nil
	}

	s, err := p.repo.Get(ctx)
	if err != nil {
		// Keep serving the stale copy when the backend is unreachable.
		if p.cached != nil {
			return p.cached, nil
		}
		return nil, errors.Wrap(err, "fetch company settings")
	}

	p.cached = s
	p.fetchedAt = p.now()
	return s, nil
}

// Invalidate drops the cached copy so the next Get refetches.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	p.cached = nil
	p.mu.Unlock()
}

// VATRate returns the configured VAT rate, falling back to the default
// rate when settings are unavailable or hold a non-positive rate.
func (p *Provider) VATRate(ctx context.Context) decimal.Decimal {
	s, err := p.Get(ctx)
	if err != nil {
		zctx.From(ctx).Warn("Company settings unavailable, using default VAT rate",
			zap.Error(err),
			zap.String("default_rate", checkout.DefaultVATRate.String()),
		)
		return checkout.DefaultVATRate
	}
	if s.VATRate.IsZero() || s.VATRate.IsNegative() {
		return checkout.DefaultVATRate
	}
	return s.VATRate
}
