// Package api exposes the analyzer over HTTP: per-symbol reports, market
// search, the personal ledger and the data-source credential.
//
// All monetary values use shopspring/decimal. Never float64 for money.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/rugscope/market-analyzer/internal/datasource"
	"github.com/rugscope/market-analyzer/internal/ledger"
	"github.com/rugscope/market-analyzer/internal/metrics"
	"github.com/rugscope/market-analyzer/internal/model"
	"github.com/rugscope/market-analyzer/internal/report"
	"github.com/rugscope/market-analyzer/internal/store"
	"github.com/rugscope/market-analyzer/internal/symbol"
)

const maxImportBytes = 10 << 20

// MarketSource is the subset of datasource.Client the handlers need.
type MarketSource interface {
	FetchBoth(ctx context.Context, sym string, limit int) (model.MarketSnapshot, *model.HolderSnapshot, error)
	SearchMarkets(ctx context.Context, query string) ([]model.MarketSnapshot, error)
}

// Service holds the HTTP handlers. It keeps no per-view state; the symbol
// and page are always taken from the request.
type Service struct {
	ledger *ledger.Ledger
	source MarketSource
	creds  *store.CredentialStore
	now    func() time.Time
}

// NewService wires the handlers to their collaborators.
func NewService(l *ledger.Ledger, src MarketSource, creds *store.CredentialStore) *Service {
	return &Service{
		ledger: l,
		source: src,
		creds:  creds,
		now:    time.Now,
	}
}

// Routes registers every endpoint on r. Mount it under /api/v1.
func (s *Service) Routes(r chi.Router) {
	r.Get("/report/{symbol}", s.GetReport)
	r.Get("/search", s.Search)

	r.Route("/portfolio", func(r chi.Router) {
		r.Get("/", s.GetPortfolio)
		r.Delete("/", s.ClearPortfolio)
		r.Get("/export", s.ExportPortfolio)
		r.Post("/import", s.ImportPortfolio)
		r.Get("/history", s.ListTransactions)

		r.Get("/{symbol}", s.GetEntry)
		r.Put("/{symbol}/notes", s.SetNotes)
		r.Get("/{symbol}/transactions", s.ListTransactions)
		r.Post("/{symbol}/transactions", s.AddTransaction)
		r.Delete("/{symbol}/transactions/{txID}", s.DeleteTransaction)
	})

	r.Get("/credential", s.GetCredential)
	r.Put("/credential", s.PutCredential)
}

// --- Request/Response types ---

// AddTransactionRequest is the JSON body for POST /portfolio/{symbol}/transactions.
type AddTransactionRequest struct {
	Quantity decimal.Decimal `json:"quantity"` // positive = buy, negative = sell
	Price    decimal.Decimal `json:"price"`
	Date     *time.Time      `json:"date,omitempty"` // omitted = now
}

// EntryResponse is returned from GET /portfolio/{symbol}.
type EntryResponse struct {
	Symbol       string              `json:"symbol"`
	Holdings     model.Holdings      `json:"holdings"`
	CostBasis    decimal.Decimal     `json:"cost_basis"`
	Notes        string              `json:"notes"`
	Transactions []model.Transaction `json:"transactions"`
}

// NotesRequest is the JSON body for PUT /portfolio/{symbol}/notes.
type NotesRequest struct {
	Notes string `json:"notes"`
}

// CredentialRequest is the JSON body for PUT /credential.
type CredentialRequest struct {
	APIKey string `json:"api_key"`
}

// CredentialStatus reports whether a key is stored. The key itself is never returned.
type CredentialStatus struct {
	Configured bool `json:"configured"`
}

// --- Handlers ---

// GetReport handles GET /report/{symbol}.
func (s *Service) GetReport(w http.ResponseWriter, r *http.Request) {
	sym, err := symbol.Normalize(chi.URLParam(r, "symbol"))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	market, holders, err := s.source.FetchBoth(r.Context(), sym, 0)
	if err != nil {
		writeSourceError(w, sym, err)
		return
	}

	entry, _, err := s.ledger.Entry(r.Context(), sym)
	if err != nil {
		slog.Error("load ledger entry", "symbol", sym, "err", err)
		writeError(w, "failed to load ledger", http.StatusInternalServerError)
		return
	}

	rep := report.Build(sym, market, holders, entry, s.now())
	metrics.ReportsTotal.WithLabelValues(string(rep.Trend.Trend), string(rep.Security.Level)).Inc()
	slog.Info("report built",
		"symbol", sym,
		"trend", rep.Trend.Trend,
		"security", rep.Security.Level,
		"security_score", rep.Security.Score,
	)
	writeJSON(w, http.StatusOK, rep)
}

// Search handles GET /search?q=.
func (s *Service) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, "q is required", http.StatusBadRequest)
		return
	}
	coins, err := s.source.SearchMarkets(r.Context(), q)
	if err != nil {
		writeSourceError(w, "", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"coins": coins})
}

// GetPortfolio handles GET /portfolio.
func (s *Service) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	ov, err := s.ledger.Overview(r.Context())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

// GetEntry handles GET /portfolio/{symbol}.
func (s *Service) GetEntry(w http.ResponseWriter, r *http.Request) {
	entry, found, err := s.ledger.Entry(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	sym := symbol.MustNormalize(chi.URLParam(r, "symbol"))
	if !found {
		writeError(w, "no transactions for "+sym, http.StatusNotFound)
		return
	}
	h := ledger.ComputeHoldings(entry.Transactions)
	writeJSON(w, http.StatusOK, EntryResponse{
		Symbol:       sym,
		Holdings:     h,
		CostBasis:    h.CostBasis(),
		Notes:        entry.Notes,
		Transactions: entry.Transactions,
	})
}

// ListTransactions handles GET /portfolio/{symbol}/transactions and
// GET /portfolio/history (all symbols).
func (s *Service) ListTransactions(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "per_page", ledger.DefaultPerPage)

	p, err := s.ledger.TransactionsPage(r.Context(), chi.URLParam(r, "symbol"), page, perPage)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// AddTransaction handles POST /portfolio/{symbol}/transactions.
func (s *Service) AddTransaction(w http.ResponseWriter, r *http.Request) {
	var req AddTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	var date time.Time
	if req.Date != nil {
		date = *req.Date
	}

	tx, err := s.ledger.AddTransaction(r.Context(), chi.URLParam(r, "symbol"), req.Quantity, req.Price, date)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

// DeleteTransaction handles DELETE /portfolio/{symbol}/transactions/{txID}.
func (s *Service) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	ok, err := s.ledger.DeleteTransaction(r.Context(), chi.URLParam(r, "symbol"), chi.URLParam(r, "txID"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	if !ok {
		writeError(w, "transaction not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetNotes handles PUT /portfolio/{symbol}/notes.
func (s *Service) SetNotes(w http.ResponseWriter, r *http.Request) {
	var req NotesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.ledger.SetNotes(r.Context(), chi.URLParam(r, "symbol"), req.Notes); err != nil {
		writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportPortfolio handles GET /portfolio/export.
func (s *Service) ExportPortfolio(w http.ResponseWriter, r *http.Request) {
	data, err := s.ledger.ExportJSON(r.Context())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	name := fmt.Sprintf("rugscope-portfolio-%s.json", s.now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Write(data)
}

// ImportPortfolio handles POST /portfolio/import. The body replaces the
// whole ledger.
func (s *Service) ImportPortfolio(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		writeError(w, "import too large or unreadable", http.StatusBadRequest)
		return
	}
	if err := s.ledger.ImportJSON(r.Context(), data); err != nil {
		writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearPortfolio handles DELETE /portfolio.
func (s *Service) ClearPortfolio(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.ClearAll(r.Context()); err != nil {
		writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetCredential handles GET /credential.
func (s *Service) GetCredential(w http.ResponseWriter, r *http.Request) {
	key, err := s.creds.APIKey(r.Context())
	if err != nil {
		slog.Error("read api key", "err", err)
		writeError(w, "failed to read credential", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, CredentialStatus{Configured: key != ""})
}

// PutCredential handles PUT /credential. An empty key clears it.
func (s *Service) PutCredential(w http.ResponseWriter, r *http.Request) {
	var req CredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.creds.SetAPIKey(r.Context(), req.APIKey); err != nil {
		slog.Error("store api key", "err", err)
		writeError(w, "failed to store credential", http.StatusInternalServerError)
		return
	}
	slog.Info("api key updated", "configured", strings.TrimSpace(req.APIKey) != "")
	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

func queryInt(r *http.Request, key string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil && v > 0 {
		return v
	}
	return def
}

// writeSourceError maps data-source failures onto HTTP statuses.
func writeSourceError(w http.ResponseWriter, sym string, err error) {
	var reqErr *datasource.RequestError
	switch {
	case errors.Is(err, datasource.ErrMissingCredential):
		writeError(w, "api key not set", http.StatusPreconditionFailed)
	case errors.Is(err, datasource.ErrUnauthorized):
		writeError(w, "api key rejected by upstream", http.StatusUnauthorized)
	case errors.Is(err, symbol.ErrInvalidSymbol):
		writeError(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &reqErr) && reqErr.StatusCode == http.StatusNotFound:
		writeError(w, "coin not found: "+sym, http.StatusNotFound)
	default:
		slog.Error("upstream fetch failed", "symbol", sym, "err", err)
		writeError(w, "upstream request failed", http.StatusBadGateway)
	}
}

// writeLedgerError maps ledger failures onto HTTP statuses.
func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidQuantity),
		errors.Is(err, ledger.ErrInvalidPrice),
		errors.Is(err, ledger.ErrMalformedImport),
		errors.Is(err, symbol.ErrInvalidSymbol):
		writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ledger.ErrUnknownSymbol):
		writeError(w, err.Error(), http.StatusNotFound)
	default:
		slog.Error("ledger operation failed", "err", err)
		writeError(w, "ledger operation failed", http.StatusInternalServerError)
	}
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
