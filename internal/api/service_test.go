package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rugscope/market-analyzer/internal/api"
	"github.com/rugscope/market-analyzer/internal/datasource"
	"github.com/rugscope/market-analyzer/internal/ledger"
	"github.com/rugscope/market-analyzer/internal/model"
	"github.com/rugscope/market-analyzer/internal/store"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// fakeSource serves canned market data or a canned error.
type fakeSource struct {
	market  model.MarketSnapshot
	holders *model.HolderSnapshot
	coins   []model.MarketSnapshot
	err     error
	lastSym string
}

func (f *fakeSource) FetchBoth(_ context.Context, sym string, _ int) (model.MarketSnapshot, *model.HolderSnapshot, error) {
	f.lastSym = sym
	if f.err != nil {
		return model.MarketSnapshot{}, nil, f.err
	}
	return f.market, f.holders, nil
}

func (f *fakeSource) SearchMarkets(_ context.Context, _ string) ([]model.MarketSnapshot, error) {
	return f.coins, f.err
}

type testEnv struct {
	router chi.Router
	ledger *ledger.Ledger
	source *fakeSource
	kv     *store.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	kv := store.NewMemoryStore()
	l := ledger.New(kv, nil)
	src := &fakeSource{
		market: model.MarketSnapshot{
			Symbol:       "MOON",
			Name:         "Moon Coin",
			CurrentPrice: 2,
			Change24h:    1,
			MarketCap:    50000,
			Volume24h:    5000,
		},
		holders: &model.HolderSnapshot{
			Holders:           []model.Holder{{Address: "a", Percentage: 12}},
			CirculatingSupply: 1000,
			PoolInfo:          model.PoolInfo{CoinAmount: 400},
		},
	}
	svc := api.NewService(l, src, store.NewCredentialStore(kv))

	r := chi.NewRouter()
	r.Route("/api/v1", svc.Routes)
	return &testEnv{router: r, ledger: l, source: src, kv: kv}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body: %s", w.Body.String())
	return v
}

// --- Report ---

func TestGetReport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.ledger.AddTransaction(ctx, "MOON", d(10), d(1), time.Time{})
	require.NoError(t, err)

	w := env.do(t, "GET", "/api/v1/report/moon", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "MOON", env.source.lastSym)

	rep := decode[model.Report](t, w)
	assert.Equal(t, "MOON", rep.Symbol)
	assert.Equal(t, "Moon Coin", rep.Name)
	assert.Equal(t, 1, rep.HolderCount)
	assert.Equal(t, 1, rep.TransactionCnt)
	assert.InDelta(t, 100.0, rep.ChangePct24h, 1e-9)
	assert.True(t, rep.Position.ProfitLoss.Equal(d(10)), "pnl %s", rep.Position.ProfitLoss)
	assert.Equal(t, model.TrendUnknown, rep.Trend.Trend)
	assert.NotEqual(t, model.SecurityUnknown, rep.Security.Level)
}

func TestGetReport_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"missing credential", datasource.ErrMissingCredential, http.StatusPreconditionFailed},
		{"unauthorized", datasource.ErrUnauthorized, http.StatusUnauthorized},
		{"upstream 500", &datasource.RequestError{Endpoint: "coin", StatusCode: 500, Status: "500 Internal Server Error"}, http.StatusBadGateway},
		{"upstream 404", &datasource.RequestError{Endpoint: "coin", StatusCode: 404, Status: "404 Not Found"}, http.StatusNotFound},
		{"transport", &datasource.RequestError{Endpoint: "coin", Err: context.DeadlineExceeded}, http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.source.err = tc.err
			w := env.do(t, "GET", "/api/v1/report/MOON", nil)
			assert.Equal(t, tc.want, w.Code, w.Body.String())
			assert.Contains(t, decode[map[string]string](t, w), "error")
		})
	}
}

func TestGetReport_InvalidSymbol(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, "GET", "/api/v1/report/bad%20sym", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, env.source.lastSym, "no upstream call for an invalid symbol")
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t)
	env.source.coins = []model.MarketSnapshot{{Symbol: "MOON"}, {Symbol: "MOONX"}}

	w := env.do(t, "GET", "/api/v1/search?q=moon", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string][]model.MarketSnapshot](t, w)
	assert.Len(t, body["coins"], 2)

	w = env.do(t, "GET", "/api/v1/search?q=%20", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Ledger ---

func TestAddAndDeleteTransaction(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "POST", "/api/v1/portfolio/moon/transactions", map[string]any{
		"quantity": "100", "price": "1", "date": "2025-03-01T12:00:00Z",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	buy := decode[model.Transaction](t, w)
	assert.Equal(t, model.TxBuy, buy.Type)

	w = env.do(t, "POST", "/api/v1/portfolio/MOON/transactions", map[string]any{
		"quantity": "-40", "price": "2",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sell := decode[model.Transaction](t, w)
	assert.Equal(t, model.TxSell, sell.Type)
	assert.True(t, sell.Quantity.Equal(d(40)))

	w = env.do(t, "GET", "/api/v1/portfolio/MOON", nil)
	require.Equal(t, http.StatusOK, w.Code)
	entry := decode[api.EntryResponse](t, w)
	assert.True(t, entry.Holdings.Quantity.Equal(d(60)))
	assert.True(t, entry.Holdings.AvgPrice.Equal(d(1)))
	assert.Len(t, entry.Transactions, 2)

	w = env.do(t, "DELETE", "/api/v1/portfolio/MOON/transactions/"+sell.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, "DELETE", "/api/v1/portfolio/MOON/transactions/"+sell.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAddTransaction_Validation(t *testing.T) {
	env := newTestEnv(t)

	cases := map[string]any{
		"zero quantity":  map[string]any{"quantity": "0", "price": "1"},
		"negative price": map[string]any{"quantity": "1", "price": "-1"},
		"bad json":       "{",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := env.do(t, "POST", "/api/v1/portfolio/MOON/transactions", body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
	w := env.do(t, "GET", "/api/v1/portfolio/MOON", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNotes(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "PUT", "/api/v1/portfolio/MOON/notes", api.NotesRequest{Notes: "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	env.ledger.AddTransaction(context.Background(), "MOON", d(1), d(1), time.Time{})
	w = env.do(t, "PUT", "/api/v1/portfolio/MOON/notes", api.NotesRequest{Notes: "watch the creator"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	entry := decode[api.EntryResponse](t, env.do(t, "GET", "/api/v1/portfolio/MOON", nil))
	assert.Equal(t, "watch the creator", entry.Notes)
}

func TestPortfolioOverviewAndHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		env.ledger.AddTransaction(ctx, "MOON", d(1), d(2), base.Add(time.Duration(i)*time.Minute))
	}
	env.ledger.AddTransaction(ctx, "SUN", d(3), d(1), base)

	ov := decode[ledger.Overview](t, env.do(t, "GET", "/api/v1/portfolio", nil))
	assert.Equal(t, 2, ov.AssetsTracked)
	assert.True(t, ov.TotalCostBasis.Equal(d(27)), "total %s", ov.TotalCostBasis)

	page := decode[ledger.Page](t, env.do(t, "GET", "/api/v1/portfolio/MOON/transactions?page=2", nil))
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 12, page.Total)
	assert.Len(t, page.Items, 2)

	all := decode[ledger.Page](t, env.do(t, "GET", "/api/v1/portfolio/history?per_page=5", nil))
	assert.Equal(t, 13, all.Total)
	assert.Equal(t, 3, all.TotalPages)
	assert.Len(t, all.Items, 5)
}

func TestExportImportClear(t *testing.T) {
	env := newTestEnv(t)
	env.ledger.AddTransaction(context.Background(), "MOON", d(5), d(2), time.Time{})

	w := env.do(t, "GET", "/api/v1/portfolio/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "rugscope-portfolio-")
	exported := w.Body.String()

	w = env.do(t, "DELETE", "/api/v1/portfolio", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, decode[ledger.Overview](t, env.do(t, "GET", "/api/v1/portfolio", nil)).AssetsTracked)

	w = env.do(t, "POST", "/api/v1/portfolio/import", "not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, "POST", "/api/v1/portfolio/import", exported)
	assert.Equal(t, http.StatusNoContent, w.Code)

	again := env.do(t, "GET", "/api/v1/portfolio/export", nil).Body.String()
	assert.JSONEq(t, exported, again)
}

// --- Credential ---

func TestCredential(t *testing.T) {
	env := newTestEnv(t)

	st := decode[api.CredentialStatus](t, env.do(t, "GET", "/api/v1/credential", nil))
	assert.False(t, st.Configured)

	w := env.do(t, "PUT", "/api/v1/credential", api.CredentialRequest{APIKey: "rp_123"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, "GET", "/api/v1/credential", nil)
	assert.False(t, strings.Contains(w.Body.String(), "rp_123"), "key must not be echoed")
	assert.True(t, decode[api.CredentialStatus](t, w).Configured)

	v, ok, _ := env.kv.Get(context.Background(), store.KeyCredential)
	assert.True(t, ok)
	assert.Equal(t, "rp_123", string(v))
}
