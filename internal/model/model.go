// Package model defines the core domain types shared across the analyzer.
// Ledger money uses shopspring/decimal; market data coming from the
// upstream API is float64 and only ever feeds scores.
package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// TxType tags a ledger transaction as a buy or a sell.
type TxType string

const (
	TxBuy  TxType = "buy"
	TxSell TxType = "sell"
)

// Transaction is one personal trade record. Quantity is always stored as an
// unsigned magnitude; the direction lives in Type.
type Transaction struct {
	ID       string          `json:"id"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Date     time.Time       `json:"date"`
	Type     TxType          `json:"type"`
}

// NewTransaction builds a transaction from a signed quantity:
// positive is a buy, anything else a sell.
func NewTransaction(id string, signedQty, price decimal.Decimal, date time.Time) Transaction {
	typ := TxSell
	if signedQty.IsPositive() {
		typ = TxBuy
	}
	return Transaction{
		ID:       id,
		Quantity: signedQty.Abs(),
		Price:    price,
		Date:     date.UTC(),
		Type:     typ,
	}
}

// Signed returns the quantity with sells negated.
func (t Transaction) Signed() decimal.Decimal {
	if t.Type == TxSell {
		return t.Quantity.Neg()
	}
	return t.Quantity
}

// UnmarshalJSON accepts exports where sells carry a negative quantity and
// where the type tag is missing, and normalises both.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	type raw Transaction
	var r raw
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	if r.Type == "" {
		r.Type = TxSell
		if r.Quantity.IsPositive() {
			r.Type = TxBuy
		}
	}
	r.Quantity = r.Quantity.Abs()
	*t = Transaction(r)
	return nil
}

// LedgerEntry holds the transactions recorded for one symbol in insertion order.
type LedgerEntry struct {
	Transactions []Transaction `json:"transactions"`
	Notes        string        `json:"notes"`
}

// LedgerSnapshot is the whole ledger keyed by upper-case symbol. It is also
// the export/import document.
type LedgerSnapshot map[string]LedgerEntry

// Holdings is derived from a ledger entry and never persisted.
type Holdings struct {
	Quantity decimal.Decimal `json:"quantity"`
	AvgPrice decimal.Decimal `json:"avg_price"`
}

// CostBasis returns quantity × average price.
func (h Holdings) CostBasis() decimal.Decimal {
	return h.Quantity.Mul(h.AvgPrice)
}

// Candle is one candlestick. Only Open and Close drive the trend analyzer.
type Candle struct {
	Time   int64   `json:"time,omitempty"`
	Open   float64 `json:"open"`
	High   float64 `json:"high,omitempty"`
	Low    float64 `json:"low,omitempty"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume,omitempty"`
}

// MarketSnapshot is the market state of one coin at fetch time.
type MarketSnapshot struct {
	Symbol                 string    `json:"symbol"`
	Name                   string    `json:"name"`
	CurrentPrice           float64   `json:"currentPrice"`
	Change24h              float64   `json:"change24h"` // absolute, not percent
	MarketCap              float64   `json:"marketCap"`
	Volume24h              float64   `json:"volume24h"`
	CirculatingSupply      float64   `json:"circulatingSupply"`
	PoolBaseCurrencyAmount float64   `json:"poolBaseCurrencyAmount"`
	CreatedAt              time.Time `json:"createdAt"`
	CreatorName            string    `json:"creatorName"`
	Candles                []Candle  `json:"candlestickData,omitempty"`
}

// ChangePercent24h converts the absolute 24h change into a percentage of the
// price 24 hours ago. Returns 0 when that price is zero.
func (m MarketSnapshot) ChangePercent24h() float64 {
	prev := m.CurrentPrice - m.Change24h
	if prev == 0 {
		return 0
	}
	return m.Change24h / prev * 100
}

// Holder is one wallet and its share of circulating supply.
type Holder struct {
	Address    string  `json:"address"`
	Username   string  `json:"username,omitempty"`
	Quantity   float64 `json:"quantity,omitempty"`
	Percentage float64 `json:"percentage"`
}

// PoolInfo describes the coin side of the trading pool.
type PoolInfo struct {
	CoinAmount         float64 `json:"coinAmount"`
	BaseCurrencyAmount float64 `json:"baseCurrencyAmount,omitempty"`
}

// HolderSnapshot lists holders sorted by descending percentage.
type HolderSnapshot struct {
	Holders           []Holder `json:"holders"`
	PoolInfo          PoolInfo `json:"poolInfo"`
	CirculatingSupply float64  `json:"circulatingSupply"`
}

// Position is the caller's holdings in a symbol marked to the current price.
type Position struct {
	Quantity      decimal.Decimal `json:"quantity"`
	AvgPrice      decimal.Decimal `json:"avg_price"`
	CurrentPrice  float64         `json:"current_price"`
	CurrentValue  decimal.Decimal `json:"current_value"`
	CostBasis     decimal.Decimal `json:"cost_basis"`
	ProfitLoss    decimal.Decimal `json:"profit_loss"`
	ProfitLossPct float64         `json:"profit_loss_pct"`
}

// Report is the consolidated analysis of one symbol at one point in time.
// A refresh produces a new Report; existing ones are never mutated.
type Report struct {
	Symbol         string              `json:"symbol"`
	Name           string              `json:"name"`
	GeneratedAt    time.Time           `json:"generated_at"`
	Market         MarketSnapshot      `json:"market"`
	ChangePct24h   float64             `json:"change_pct_24h"`
	HolderCount    int                 `json:"holder_count"`
	Trend          TrendResult         `json:"trend"`
	Security       SecurityResult      `json:"security"`
	Activity       ActivityResult      `json:"activity"`
	Profitability  ProfitabilityResult `json:"profitability"`
	Position       Position            `json:"position"`
	TransactionCnt int                 `json:"transaction_count"`
}
