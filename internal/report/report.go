// Package report assembles the per-symbol analysis overlay from a market
// snapshot, a holder snapshot and the caller's ledger entry.
package report

import (
	"time"

	"github.com/rugscope/market-analyzer/internal/analysis"
	"github.com/rugscope/market-analyzer/internal/ledger"
	"github.com/rugscope/market-analyzer/internal/model"
)

// Build runs every analyzer over the inputs and returns a new Report
// stamped with now. It performs no I/O; holders may be nil when the holder
// fetch produced nothing.
func Build(symbol string, market model.MarketSnapshot, holders *model.HolderSnapshot, entry model.LedgerEntry, now time.Time) model.Report {
	holdings := ledger.ComputeHoldings(entry.Transactions)

	holderCount := 0
	if holders != nil {
		holderCount = len(holders.Holders)
	}

	name := market.Name
	if name == "" {
		name = symbol
	}

	return model.Report{
		Symbol:         symbol,
		Name:           name,
		GeneratedAt:    now.UTC(),
		Market:         market,
		ChangePct24h:   market.ChangePercent24h(),
		HolderCount:    holderCount,
		Trend:          analysis.AnalyzeTrend(market.Candles),
		Security:       analysis.AnalyzeSecurity(market, holders, now),
		Activity:       analysis.AnalyzeActivity(market, holders),
		Profitability:  analysis.AnalyzeProfitability(market, holdings),
		Position:       ledger.MarkToMarket(holdings, market.CurrentPrice),
		TransactionCnt: len(entry.Transactions),
	}
}
