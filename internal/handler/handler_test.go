package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thitiwat/salika-pos/internal/domain/auth"
	"github.com/thitiwat/salika-pos/internal/domain/checkout"
	"github.com/thitiwat/salika-pos/internal/domain/product"
	"github.com/thitiwat/salika-pos/internal/domain/settings"
	"github.com/thitiwat/salika-pos/internal/domain/transaction"
)

const testAPIKey = "test-key"

type fakeProducts struct {
	products map[string]*product.Product
}

var _ product.Repository = (*fakeProducts)(nil)

func (f *fakeProducts) List(context.Context) ([]product.Product, error) {
	out := make([]product.Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeProducts) Search(_ context.Context, term string) ([]product.Product, error) {
	var out []product.Product
	for _, p := range f.products {
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(term)) || p.SKU == term {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeProducts) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (f *fakeProducts) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeProducts) Upsert(_ context.Context, p *product.Product) error {
	clone := *p
	f.products[p.ID] = &clone
	return nil
}

func (f *fakeProducts) Delete(_ context.Context, id string) error {
	if _, ok := f.products[id]; !ok {
		return product.ErrNotFound
	}
	delete(f.products, id)
	return nil
}

func (f *fakeProducts) DecrementStock(_ context.Context, id string, qty int) error {
	p, ok := f.products[id]
	if !ok {
		return product.ErrNotFound
	}
	if p.Stock < qty {
		return product.ErrInsufficientStock
	}
	p.Stock -= qty
	return nil
}

type fakeTransactions struct {
	headers []transaction.Transaction
	items   []transaction.Item
}

var _ transaction.Repository = (*fakeTransactions)(nil)

func (f *fakeTransactions) CreateHeader(_ context.Context, tx *transaction.Transaction) error {
	f.headers = append(f.headers, *tx)
	return nil
}

func (f *fakeTransactions) CreateItems(_ context.Context, items []transaction.Item) error {
	f.items = append(f.items, items...)
	return nil
}

func (f *fakeTransactions) DeleteHeader(_ context.Context, id string) error {
	for i, h := range f.headers {
		if h.ID == id {
			f.headers = append(f.headers[:i], f.headers[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeTransactions) GetByID(_ context.Context, id string) (*transaction.Transaction, error) {
	for _, h := range f.headers {
		if h.ID == id {
			return &h, nil
		}
	}
	return nil, transaction.ErrNotFound
}

func (f *fakeTransactions) List(_ context.Context, limit int) ([]transaction.Transaction, error) {
	if limit > len(f.headers) {
		limit = len(f.headers)
	}
	return f.headers[:limit], nil
}

func (f *fakeTransactions) SalesSummary(context.Context, time.Time) ([]transaction.DaySummary, error) {
	return nil, nil
}

type fakeSettings struct {
	current *settings.CompanySettings
}

var _ settings.Repository = (*fakeSettings)(nil)

func (f *fakeSettings) Get(context.Context) (*settings.CompanySettings, error) {
	if f.current == nil {
		return nil, settings.ErrNotFound
	}
	return f.current, nil
}

func (f *fakeSettings) Update(_ context.Context, s *settings.CompanySettings) error {
	f.current = s
	return nil
}

type fakeReconcile struct {
	recorded []checkout.DecrementFailure
	entries  []checkout.ReconciliationEntry
	resolved []string
}

func (f *fakeReconcile) Record(_ context.Context, failure checkout.DecrementFailure) error {
	f.recorded = append(f.recorded, failure)
	return nil
}

func (f *fakeReconcile) ListUnresolved(context.Context) ([]checkout.ReconciliationEntry, error) {
	return f.entries, nil
}

func (f *fakeReconcile) Resolve(_ context.Context, id string) error {
	for _, e := range f.entries {
		if e.ID == id {
			f.resolved = append(f.resolved, id)
			return nil
		}
	}
	return checkout.ErrEntryNotFound
}

type fakeKeys struct {
	hash string
}

func (f *fakeKeys) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	if hash != f.hash {
		return nil, auth.ErrKeyNotFound
	}
	return &auth.APIKeyInfo{ID: "k1", KeyHash: f.hash, Name: "terminal-1"}, nil
}

type fixture struct {
	server       *httptest.Server
	products     *fakeProducts
	transactions *fakeTransactions
	reconcile    *fakeReconcile
	invalidated  int
}

func (f *fixture) Invalidate(context.Context) { f.invalidated++ }

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		products: &fakeProducts{products: map[string]*product.Product{
			"p1": {ID: "p1", SKU: "RICE-5", Name: "Jasmine Rice 5kg", Price: decimal.RequireFromString("100.00"), Stock: 10},
			"p2": {ID: "p2", SKU: "MILK-1", Name: "Fresh Milk 1L", Price: decimal.RequireFromString("7.00"), Stock: 3},
		}},
		transactions: &fakeTransactions{},
		reconcile:    &fakeReconcile{},
	}
	settingsRepo := &fakeSettings{current: &settings.CompanySettings{
		CompanyName: "Salika Minimart",
		VATRate:     decimal.RequireFromString("0.07"),
	}}
	provider := settings.NewProvider(settingsRepo, time.Minute)

	manager := checkout.NewManager(checkout.Deps{
		Store:     f.transactions,
		Stock:     f.products,
		Reconcile: f.reconcile,
		Rates:     provider,
	}, time.Hour)

	h := New(Config{}, Deps{
		Products:     f.products,
		Sessions:     manager,
		Transactions: f.transactions,
		Settings:     settingsRepo,
		SettingsView: provider,
		Reconcile:    f.reconcile,
		CatalogCache: f,
	})

	sec := NewSecurity(&fakeKeys{}, []byte("pepper"))
	sec.apikeys = &fakeKeys{hash: sec.HashKey(testAPIKey)}

	f.server = httptest.NewServer(h.Routes(sec))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, f.server.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set(APIKeyHeader, testAPIKey)

	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	return resp, data
}

func TestRequestWithoutAPIKeyIsRejected(t *testing.T) {
	f := newFixture(t)

	resp, err := f.server.Client().Get(f.server.URL + "/products")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRequestWithWrongAPIKeyIsRejected(t *testing.T) {
	f := newFixture(t)

	req, err := http.NewRequest(http.MethodGet, f.server.URL+"/products", nil)
	require.NoError(t, err)
	req.Header.Set(APIKeyHeader, "wrong-key")

	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestListProducts(t *testing.T) {
	f := newFixture(t)

	resp, data := f.do(t, http.MethodGet, "/products", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var products []productResponse
	require.NoError(t, json.Unmarshal(data, &products))
	assert.Len(t, products, 2)
}

func TestSearchProducts(t *testing.T) {
	f := newFixture(t)

	resp, data := f.do(t, http.MethodGet, "/products?q=milk", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var products []productResponse
	require.NoError(t, json.Unmarshal(data, &products))
	require.Len(t, products, 1)
	assert.Equal(t, "Fresh Milk 1L", products[0].Name)
}

func TestGetUnknownProductIs404(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, http.MethodGet, "/products/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func createSession(t *testing.T, f *fixture) string {
	t.Helper()
	resp, data := f.do(t, http.MethodPost, "/checkout/sessions", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var s sessionResponse
	require.NoError(t, json.Unmarshal(data, &s))
	require.NotEmpty(t, s.ID)
	return s.ID
}

func TestCheckoutFlowCashPayment(t *testing.T) {
	f := newFixture(t)
	id := createSession(t, f)

	resp, _ := f.do(t, http.MethodPost, "/checkout/sessions/"+id+"/lines",
		addLineRequest{ProductID: "p1", Quantity: 2})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/checkout/sessions/"+id+"/lines",
		addLineRequest{ProductID: "p2", Quantity: 3})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// 2x100 + 3x7 = 221 inclusive; whole-unit total is 221.
	resp, data := f.do(t, http.MethodPost, "/checkout/sessions/"+id+"/pay",
		payRequest{Method: "cash", CashTendered: decimal.RequireFromString("300"), Salesperson: "Nok"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var rec receiptResponse
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.True(t, strings.HasPrefix(rec.Number, "TXN-"))
	assert.True(t, rec.Totals.Total.Equal(decimal.NewFromInt(221)), "total %s", rec.Totals.Total)
	assert.True(t, rec.ChangeDue.Equal(decimal.NewFromInt(79)), "change %s", rec.ChangeDue)
	assert.Contains(t, rec.Rendered, "Salika Minimart")

	require.Len(t, f.transactions.headers, 1)
	assert.Len(t, f.transactions.items, 2)
	assert.Equal(t, 8, f.products.products["p1"].Stock)
	assert.Equal(t, 0, f.products.products["p2"].Stock)
	assert.Equal(t, 1, f.invalidated)

	// Cart is cleared; the receipt stays reachable for reprints.
	resp, data = f.do(t, http.MethodGet, "/checkout/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var s sessionResponse
	require.NoError(t, json.Unmarshal(data, &s))
	assert.Empty(t, s.Lines)

	resp, _ = f.do(t, http.MethodGet, "/checkout/sessions/"+id+"/receipt", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPayInsufficientCashPersistsNothing(t *testing.T) {
	f := newFixture(t)
	id := createSession(t, f)

	resp, _ := f.do(t, http.MethodPost, "/checkout/sessions/"+id+"/lines",
		addLineRequest{ProductID: "p1", Quantity: 2})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/checkout/sessions/"+id+"/pay",
		payRequest{Method: "cash", CashTendered: decimal.RequireFromString("100")})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Empty(t, f.transactions.headers)
	assert.Equal(t, 10, f.products.products["p1"].Stock)
}

func TestPayEmptyCart(t *testing.T) {
	f := newFixture(t)
	id := createSession(t, f)

	resp, _ := f.do(t, http.MethodPost, "/checkout/sessions/"+id+"/pay",
		payRequest{Method: "card"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestPayUnknownMethod(t *testing.T) {
	f := newFixture(t)
	id := createSession(t, f)

	resp, _ := f.do(t, http.MethodPost, "/checkout/sessions/"+id+"/lines",
		addLineRequest{ProductID: "p1", Quantity: 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/checkout/sessions/"+id+"/pay",
		payRequest{Method: "cheque"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestAddLineUnknownProduct(t *testing.T) {
	f := newFixture(t)
	id := createSession(t, f)

	resp, _ := f.do(t, http.MethodPost, "/checkout/sessions/"+id+"/lines",
		addLineRequest{ProductID: "nope", Quantity: 1})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAddLineBeyondStockCeiling(t *testing.T) {
	f := newFixture(t)
	id := createSession(t, f)

	resp, data := f.do(t, http.MethodPost, "/checkout/sessions/"+id+"/lines",
		addLineRequest{ProductID: "p2", Quantity: 4})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, string(data), "in stock")
}

func TestAdjustAndRemoveLine(t *testing.T) {
	f := newFixture(t)
	id := createSession(t, f)

	resp, _ := f.do(t, http.MethodPost, "/checkout/sessions/"+id+"/lines",
		addLineRequest{ProductID: "p1", Quantity: 2})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, data := f.do(t, http.MethodPatch, "/checkout/sessions/"+id+"/lines/p1",
		adjustLineRequest{Delta: -1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var s sessionResponse
	require.NoError(t, json.Unmarshal(data, &s))
	require.Len(t, s.Lines, 1)
	assert.Equal(t, 1, s.Lines[0].Quantity)

	resp, data = f.do(t, http.MethodDelete, "/checkout/sessions/"+id+"/lines/p1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(data, &s))
	assert.Empty(t, s.Lines)
}

func TestAdjustLineNotInCart(t *testing.T) {
	f := newFixture(t)
	id := createSession(t, f)

	resp, _ := f.do(t, http.MethodPatch, "/checkout/sessions/"+id+"/lines/p1",
		adjustLineRequest{Delta: 1})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSessionNotFound(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, http.MethodGet, "/checkout/sessions/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpsertAndDeleteProduct(t *testing.T) {
	f := newFixture(t)

	resp, data := f.do(t, http.MethodPost, "/products", upsertProductRequest{
		SKU:   "EGG-10",
		Name:  "Eggs x10",
		Price: decimal.RequireFromString("52.00"),
		Stock: 20,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var p productResponse
	require.NoError(t, json.Unmarshal(data, &p))
	require.NotEmpty(t, p.ID)

	resp, _ = f.do(t, http.MethodDelete, "/products/"+p.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestUpsertProductValidation(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, http.MethodPost, "/products", upsertProductRequest{
		Price: decimal.RequireFromString("1.00"),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/products", upsertProductRequest{
		Name:  "Bad",
		Price: decimal.RequireFromString("-1.00"),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateSettingsRefreshesVATRate(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, http.MethodPut, "/settings", updateSettingsRequest{
		CompanyName: "Salika Minimart",
		VATRate:     decimal.RequireFromString("0.10"),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, data := f.do(t, http.MethodGet, "/settings", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var s settingsResponse
	require.NoError(t, json.Unmarshal(data, &s))
	assert.True(t, s.VATRate.Equal(decimal.RequireFromString("0.10")))
}

func TestUpdateSettingsRejectsBadRate(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, http.MethodPut, "/settings", updateSettingsRequest{
		CompanyName: "Salika Minimart",
		VATRate:     decimal.RequireFromString("1.5"),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTransactionsList(t *testing.T) {
	f := newFixture(t)
	id := createSession(t, f)

	resp, _ := f.do(t, http.MethodPost, "/checkout/sessions/"+id+"/lines",
		addLineRequest{ProductID: "p1", Quantity: 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = f.do(t, http.MethodPost, "/checkout/sessions/"+id+"/pay",
		payRequest{Method: "card"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, data := f.do(t, http.MethodGet, "/transactions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var txs []transactionResponse
	require.NoError(t, json.Unmarshal(data, &txs))
	require.Len(t, txs, 1)
	assert.Equal(t, "completed", txs[0].Status)
}

func TestReconciliationQueue(t *testing.T) {
	f := newFixture(t)
	f.reconcile.entries = []checkout.ReconciliationEntry{{
		ID:        "f1",
		CreatedAt: time.Now(),
		DecrementFailure: checkout.DecrementFailure{
			TransactionID: "tx1",
			ProductID:     "p1",
			Quantity:      2,
			Cause:         "connection refused",
		},
	}}

	resp, data := f.do(t, http.MethodGet, "/reconciliation/failures", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var entries []decrementFailureResponse
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "p1", entries[0].ProductID)

	resp, _ = f.do(t, http.MethodPost, "/reconciliation/failures/f1/resolve", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, []string{"f1"}, f.reconcile.resolved)
}

func TestResolveUnknownFailureNotFound(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, http.MethodPost, "/reconciliation/failures/nope/resolve", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Empty(t, f.reconcile.resolved)
}
