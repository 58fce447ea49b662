package report

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rugscope/market-analyzer/internal/analysis"
	"github.com/rugscope/market-analyzer/internal/model"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func rising(n int) []model.Candle {
	cs := make([]model.Candle, n)
	p := 100.0
	for i := range cs {
		cs[i] = model.Candle{Open: p, Close: p * 1.02}
		p *= 1.02
	}
	return cs
}

func market() model.MarketSnapshot {
	return model.MarketSnapshot{
		Symbol:            "MOON",
		Name:              "Moon Coin",
		CurrentPrice:      110,
		Change24h:         10,
		MarketCap:         2000000,
		Volume24h:         1000,
		CirculatingSupply: 1000000,
		CreatedAt:         now.Add(-72 * time.Hour),
		Candles:           rising(12),
	}
}

func entry() model.LedgerEntry {
	return model.LedgerEntry{Transactions: []model.Transaction{
		model.NewTransaction("1", decimal.NewFromInt(10), decimal.NewFromInt(100), now),
	}}
}

func TestBuild_WithPosition(t *testing.T) {
	m := market()
	rep := Build("MOON", m, nil, entry(), now)

	assert.Equal(t, "MOON", rep.Symbol)
	assert.Equal(t, "Moon Coin", rep.Name)
	assert.Equal(t, now, rep.GeneratedAt)
	assert.InDelta(t, 10.0, rep.ChangePct24h, 1e-9)
	assert.Equal(t, 1, rep.TransactionCnt)
	assert.Equal(t, 0, rep.HolderCount)

	assert.True(t, rep.Position.Quantity.Equal(decimal.NewFromInt(10)))
	assert.True(t, rep.Position.ProfitLoss.Equal(decimal.NewFromInt(100)), "pnl %s", rep.Position.ProfitLoss)
	assert.InDelta(t, 10.0, rep.Position.ProfitLossPct, 1e-9)

	assert.Equal(t, analysis.AnalyzeTrend(m.Candles), rep.Trend)
	assert.NotEqual(t, model.TrendUnknown, rep.Trend.Trend)
	assert.Equal(t, model.SecurityUnknown, rep.Security.Level, "no holder data")
	assert.InDelta(t, 50+10+(0.1-10)+10, rep.Profitability.Score, 1e-6)
}

func TestBuild_WithHolders(t *testing.T) {
	holders := &model.HolderSnapshot{
		Holders: []model.Holder{
			{Address: "a", Percentage: 5},
			{Address: "b", Percentage: 4},
		},
		PoolInfo:          model.PoolInfo{CoinAmount: 500000},
		CirculatingSupply: 1000000,
	}
	m := market()
	rep := Build("MOON", m, holders, model.LedgerEntry{}, now)

	assert.Equal(t, 2, rep.HolderCount)
	assert.Equal(t, analysis.AnalyzeSecurity(m, holders, now), rep.Security)
	assert.Equal(t, analysis.AnalyzeActivity(m, holders), rep.Activity)
	assert.NotEqual(t, model.SecurityUnknown, rep.Security.Level)

	assert.True(t, rep.Position.Quantity.IsZero())
	assert.True(t, rep.Position.ProfitLoss.IsZero())
	assert.Zero(t, rep.TransactionCnt)
}

func TestBuild_Deterministic(t *testing.T) {
	a := Build("MOON", market(), nil, entry(), now)
	b := Build("MOON", market(), nil, entry(), now)
	require.Equal(t, a, b)
}

func TestBuild_EmptyMarket(t *testing.T) {
	rep := Build("NEW", model.MarketSnapshot{}, nil, model.LedgerEntry{}, now)
	assert.Equal(t, "NEW", rep.Name)
	assert.Equal(t, model.TrendUnknown, rep.Trend.Trend)
	assert.Zero(t, rep.ChangePct24h)
	assert.GreaterOrEqual(t, rep.Profitability.Score, 0.0)
	assert.LessOrEqual(t, rep.Profitability.Score, 100.0)
}
