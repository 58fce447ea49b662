// Package ledger maintains the personal transaction ledger: an append-only,
// per-symbol list of buys and sells persisted as one JSON snapshot in the
// key-value store, plus the cost-basis reduction that turns it into holdings.
//
// All monetary values use shopspring/decimal. Never float64 for money.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rugscope/market-analyzer/internal/metrics"
	"github.com/rugscope/market-analyzer/internal/model"
	"github.com/rugscope/market-analyzer/internal/store"
	"github.com/rugscope/market-analyzer/internal/symbol"
)

var (
	ErrInvalidQuantity = errors.New("ledger: quantity must be non-zero")
	ErrInvalidPrice    = errors.New("ledger: price must be non-negative")
	ErrMalformedImport = errors.New("ledger: malformed import")
	ErrCorruptSnapshot = errors.New("ledger: stored snapshot is corrupt")
	ErrUnknownSymbol   = errors.New("ledger: symbol not in ledger")
)

// Change kinds published to the Notifier.
const (
	ChangeAdd    = "transaction_added"
	ChangeDelete = "transaction_deleted"
	ChangeNotes  = "notes_updated"
	ChangeImport = "ledger_imported"
	ChangeClear  = "ledger_cleared"
)

// Change describes one successful ledger write.
type Change struct {
	Kind          string `json:"kind"`
	Symbol        string `json:"symbol,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
}

// Notifier is told about every successful write so views can refresh.
type Notifier interface {
	LedgerChanged(ctx context.Context, c Change)
}

// Ledger serialises read-modify-write cycles over the snapshot record with
// a mutex, since the store itself has no transactional guarantee. For more
// than one process, replace with a store-level compare-and-swap.
type Ledger struct {
	kv       store.KV
	notifier Notifier
	now      func() time.Time
	mu       sync.Mutex
}

// New creates a ledger over kv. Pass nil for n if no notifications are needed.
func New(kv store.KV, n Notifier) *Ledger {
	return &Ledger{
		kv:       kv,
		notifier: n,
		now:      time.Now,
	}
}

// --- Snapshot I/O ---

func (l *Ledger) load(ctx context.Context) (model.LedgerSnapshot, error) {
	data, err := store.GetOr(ctx, l.kv, store.KeyPortfolio, nil)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	snap := model.LedgerSnapshot{}
	if len(data) == 0 {
		return snap, nil
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if snap == nil {
		snap = model.LedgerSnapshot{}
	}
	return snap, nil
}

func (l *Ledger) save(ctx context.Context, snap model.LedgerSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := l.kv.Set(ctx, store.KeyPortfolio, data); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}

func (l *Ledger) notify(ctx context.Context, c Change) {
	metrics.LedgerMutations.WithLabelValues(c.Kind).Inc()
	if l.notifier != nil {
		l.notifier.LedgerChanged(ctx, c)
	}
}

// --- Mutations ---

// AddTransaction appends a transaction for sym. A positive quantity records
// a buy and a negative one a sell; the stored quantity is the magnitude.
// A zero date means now.
func (l *Ledger) AddTransaction(ctx context.Context, sym string, quantity, price decimal.Decimal, date time.Time) (model.Transaction, error) {
	sym, err := symbol.Normalize(sym)
	if err != nil {
		return model.Transaction{}, err
	}
	if quantity.IsZero() {
		return model.Transaction{}, ErrInvalidQuantity
	}
	if price.IsNegative() {
		return model.Transaction{}, ErrInvalidPrice
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	snap, err := l.load(ctx)
	if err != nil {
		return model.Transaction{}, err
	}

	now := l.now()
	if date.IsZero() {
		date = now
	}

	entry := snap[sym]
	tx := model.NewTransaction(newID(now, entry.Transactions), quantity, price, date)
	entry.Transactions = append(entry.Transactions, tx)
	snap[sym] = entry

	if err := l.save(ctx, snap); err != nil {
		return model.Transaction{}, err
	}

	slog.Info("transaction added",
		"symbol", sym,
		"id", tx.ID,
		"type", tx.Type,
		"qty", tx.Quantity.String(),
		"price", tx.Price.String(),
	)
	l.notify(ctx, Change{Kind: ChangeAdd, Symbol: sym, TransactionID: tx.ID})
	return tx, nil
}

// DeleteTransaction removes transaction id from sym. It returns false, with
// no error, when the symbol or id does not exist. Removing the last
// transaction removes the symbol entirely.
func (l *Ledger) DeleteTransaction(ctx context.Context, sym, id string) (bool, error) {
	sym, err := symbol.Normalize(sym)
	if err != nil {
		return false, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	snap, err := l.load(ctx)
	if err != nil {
		return false, err
	}

	entry, ok := snap[sym]
	if !ok {
		return false, nil
	}
	idx := -1
	for i, tx := range entry.Transactions {
		if tx.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}

	entry.Transactions = append(entry.Transactions[:idx], entry.Transactions[idx+1:]...)
	if len(entry.Transactions) == 0 {
		delete(snap, sym)
	} else {
		snap[sym] = entry
	}

	if err := l.save(ctx, snap); err != nil {
		return false, err
	}

	slog.Info("transaction deleted", "symbol", sym, "id", id)
	l.notify(ctx, Change{Kind: ChangeDelete, Symbol: sym, TransactionID: id})
	return true, nil
}

// SetNotes replaces the free-text notes of an existing entry.
func (l *Ledger) SetNotes(ctx context.Context, sym, notes string) error {
	sym, err := symbol.Normalize(sym)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	snap, err := l.load(ctx)
	if err != nil {
		return err
	}
	entry, ok := snap[sym]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSymbol, sym)
	}
	entry.Notes = notes
	snap[sym] = entry

	if err := l.save(ctx, snap); err != nil {
		return err
	}
	l.notify(ctx, Change{Kind: ChangeNotes, Symbol: sym})
	return nil
}

// ClearAll removes every entry.
func (l *Ledger) ClearAll(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.kv.Delete(ctx, store.KeyPortfolio); err != nil {
		return fmt.Errorf("clear ledger: %w", err)
	}
	slog.Info("ledger cleared")
	l.notify(ctx, Change{Kind: ChangeClear})
	return nil
}

// --- Reads ---

// Entry returns the entry for sym. found is false when it has no transactions.
func (l *Ledger) Entry(ctx context.Context, sym string) (model.LedgerEntry, bool, error) {
	sym, err := symbol.Normalize(sym)
	if err != nil {
		return model.LedgerEntry{}, false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	snap, err := l.load(ctx)
	if err != nil {
		return model.LedgerEntry{}, false, err
	}
	entry, ok := snap[sym]
	return entry, ok, nil
}

// CalculateHoldings returns the holdings for sym; zero holdings when the
// symbol is not in the ledger.
func (l *Ledger) CalculateHoldings(ctx context.Context, sym string) (model.Holdings, error) {
	entry, _, err := l.Entry(ctx, sym)
	if err != nil {
		return model.Holdings{}, err
	}
	return ComputeHoldings(entry.Transactions), nil
}

// Symbols returns every symbol in the ledger, sorted.
func (l *Ledger) Symbols(ctx context.Context) ([]string, error) {
	snap, err := l.ExportAll(ctx)
	if err != nil {
		return nil, err
	}
	syms := make([]string, 0, len(snap))
	for s := range snap {
		syms = append(syms, s)
	}
	sort.Strings(syms)
	return syms, nil
}

// --- Export / import ---

// ExportAll returns a copy of the full snapshot.
func (l *Ledger) ExportAll(ctx context.Context) (model.LedgerSnapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(ctx)
}

// ExportJSON returns the snapshot as indented JSON, the export file format.
func (l *Ledger) ExportJSON(ctx context.Context) ([]byte, error) {
	snap, err := l.ExportAll(ctx)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(snap, "", "  ")
}

// ImportAll validates snap and overwrites the stored ledger with it. On a
// validation error the store is left unchanged.
func (l *Ledger) ImportAll(ctx context.Context, snap model.LedgerSnapshot) error {
	clean, err := validateSnapshot(snap)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.save(ctx, clean); err != nil {
		return err
	}
	slog.Info("ledger imported", "symbols", len(clean))
	l.notify(ctx, Change{Kind: ChangeImport})
	return nil
}

// ImportJSON decodes an export document and imports it.
func (l *Ledger) ImportJSON(ctx context.Context, data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("%w: expected a JSON object", ErrMalformedImport)
	}
	var snap model.LedgerSnapshot
	if err := json.Unmarshal(trimmed, &snap); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedImport, err)
	}
	return l.ImportAll(ctx, snap)
}

// validateSnapshot normalises symbol keys and checks every transaction.
// Two keys that normalise to the same symbol are rejected, even when one of
// them is empty. Entries without transactions are dropped.
func validateSnapshot(snap model.LedgerSnapshot) (model.LedgerSnapshot, error) {
	clean := make(model.LedgerSnapshot, len(snap))
	keys := make(map[string]bool, len(snap))
	for rawSym, entry := range snap {
		sym, err := symbol.Normalize(rawSym)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedImport, err)
		}
		if keys[sym] {
			return nil, fmt.Errorf("%w: duplicate symbol %s", ErrMalformedImport, sym)
		}
		keys[sym] = true
		if len(entry.Transactions) == 0 {
			continue
		}
		seen := make(map[string]bool, len(entry.Transactions))
		txs := make([]model.Transaction, len(entry.Transactions))
		for i, tx := range entry.Transactions {
			switch {
			case strings.TrimSpace(tx.ID) == "":
				return nil, fmt.Errorf("%w: %s transaction %d has no id", ErrMalformedImport, sym, i)
			case seen[tx.ID]:
				return nil, fmt.Errorf("%w: %s duplicate transaction id %s", ErrMalformedImport, sym, tx.ID)
			case tx.Type != model.TxBuy && tx.Type != model.TxSell:
				return nil, fmt.Errorf("%w: %s transaction %s has type %q", ErrMalformedImport, sym, tx.ID, tx.Type)
			case tx.Quantity.IsZero():
				return nil, fmt.Errorf("%w: %s transaction %s has zero quantity", ErrMalformedImport, sym, tx.ID)
			case tx.Price.IsNegative():
				return nil, fmt.Errorf("%w: %s transaction %s has negative price", ErrMalformedImport, sym, tx.ID)
			}
			seen[tx.ID] = true
			tx.Quantity = tx.Quantity.Abs()
			txs[i] = tx
		}
		clean[sym] = model.LedgerEntry{Transactions: txs, Notes: entry.Notes}
	}
	return clean, nil
}

// newID returns <unix millis><7 random chars>, retrying on the (unlikely)
// collision with an id already in existing.
func newID(now time.Time, existing []model.Transaction) string {
	for {
		suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:7]
		id := fmt.Sprintf("%d%s", now.UnixMilli(), suffix)
		clash := false
		for _, tx := range existing {
			if tx.ID == id {
				clash = true
				break
			}
		}
		if !clash {
			return id
		}
	}
}
