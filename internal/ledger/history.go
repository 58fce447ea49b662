package ledger

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rugscope/market-analyzer/internal/model"
	"github.com/rugscope/market-analyzer/internal/symbol"
)

// DefaultPerPage is the history page size when the caller passes none.
const DefaultPerPage = 10

// HistoryItem is a transaction tagged with its symbol.
type HistoryItem struct {
	Symbol   string          `json:"symbol"`
	ID       string          `json:"id"`
	Type     model.TxType    `json:"type"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Date     time.Time       `json:"date"`
}

func historyItem(sym string, tx model.Transaction) HistoryItem {
	return HistoryItem{
		Symbol:   sym,
		ID:       tx.ID,
		Type:     tx.Type,
		Quantity: tx.Quantity,
		Price:    tx.Price,
		Date:     tx.Date,
	}
}

// Page is one page of transaction history, newest first.
type Page struct {
	Items      []HistoryItem `json:"items"`
	Page       int           `json:"page"`
	PerPage    int           `json:"per_page"`
	Total      int           `json:"total"`
	TotalPages int           `json:"total_pages"`
}

// TransactionsPage returns page (1-based) of the history for sym, or of
// every symbol when sym is empty. Items are sorted by date descending; ties
// keep the reverse of insertion order. Out-of-range pages are clamped.
func (l *Ledger) TransactionsPage(ctx context.Context, sym string, page, perPage int) (Page, error) {
	if sym != "" {
		var err error
		if sym, err = symbol.Normalize(sym); err != nil {
			return Page{}, err
		}
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}

	snap, err := l.ExportAll(ctx)
	if err != nil {
		return Page{}, err
	}

	var items []HistoryItem
	for s, entry := range snap {
		if sym != "" && s != sym {
			continue
		}
		for i := len(entry.Transactions) - 1; i >= 0; i-- {
			items = append(items, historyItem(s, entry.Transactions[i]))
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].Date.Equal(items[j].Date) {
			return items[i].Date.After(items[j].Date)
		}
		if items[i].Symbol != items[j].Symbol {
			return items[i].Symbol < items[j].Symbol
		}
		return false
	})

	total := len(items)
	totalPages := (total + perPage - 1) / perPage
	if totalPages == 0 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * perPage
	end := min(start+perPage, total)
	out := make([]HistoryItem, 0, end-start)
	out = append(out, items[start:end]...)

	return Page{
		Items:      out,
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

// PositionSummary is one open position in the overview.
type PositionSummary struct {
	Symbol    string          `json:"symbol"`
	Quantity  decimal.Decimal `json:"quantity"`
	AvgPrice  decimal.Decimal `json:"avg_price"`
	CostBasis decimal.Decimal `json:"cost_basis"`
	TxCount   int             `json:"transaction_count"`
	Notes     string          `json:"notes,omitempty"`
}

// Overview summarises the whole ledger.
type Overview struct {
	AssetsTracked  int               `json:"assets_tracked"`
	TotalCostBasis decimal.Decimal   `json:"total_cost_basis"`
	Positions      []PositionSummary `json:"positions"`
}

// Overview counts every tracked symbol but lists, and sums the cost basis
// of, only those with a positive quantity. Positions are sorted by symbol.
func (l *Ledger) Overview(ctx context.Context) (Overview, error) {
	snap, err := l.ExportAll(ctx)
	if err != nil {
		return Overview{}, err
	}

	ov := Overview{
		AssetsTracked:  len(snap),
		TotalCostBasis: decimal.Zero,
		Positions:      []PositionSummary{},
	}
	for s, entry := range snap {
		h := ComputeHoldings(entry.Transactions)
		if !h.Quantity.IsPositive() {
			continue
		}
		cb := h.CostBasis()
		ov.TotalCostBasis = ov.TotalCostBasis.Add(cb)
		ov.Positions = append(ov.Positions, PositionSummary{
			Symbol:    s,
			Quantity:  h.Quantity,
			AvgPrice:  h.AvgPrice,
			CostBasis: cb,
			TxCount:   len(entry.Transactions),
			Notes:     entry.Notes,
		})
	}
	sort.Slice(ov.Positions, func(i, j int) bool {
		return ov.Positions[i].Symbol < ov.Positions[j].Symbol
	})
	return ov, nil
}
