package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/rugscope/market-analyzer/internal/model"
)

// ComputeHoldings reduces a transaction list to holdings using the moving
// average cost-basis method.
//
// Transactions are walked in slice (insertion) order, not by date:
//   - buy:  totalCost += qty*price; totalQty += qty
//   - sell: totalCost -= qty*(totalCost/totalQty); totalQty -= qty
//
// A sell against zero quantity uses an average cost of 0. The returned
// average is totalCost/totalQty when quantity is positive, else 0. An
// oversold ledger reports zero quantity.
func ComputeHoldings(txs []model.Transaction) model.Holdings {
	totalQty := decimal.Zero
	totalCost := decimal.Zero

	for _, tx := range txs {
		if tx.Type == model.TxBuy {
			totalCost = totalCost.Add(tx.Quantity.Mul(tx.Price))
			totalQty = totalQty.Add(tx.Quantity)
			continue
		}
		avgCost := decimal.Zero
		if !totalQty.IsZero() {
			avgCost = totalCost.Div(totalQty)
		}
		totalCost = totalCost.Sub(tx.Quantity.Mul(avgCost))
		totalQty = totalQty.Sub(tx.Quantity)
	}

	if !totalQty.IsPositive() {
		return model.Holdings{Quantity: decimal.Zero, AvgPrice: decimal.Zero}
	}
	return model.Holdings{
		Quantity: totalQty,
		AvgPrice: totalCost.Div(totalQty),
	}
}

// MarkToMarket values holdings at price. P&L is qty*(price-avg) and the
// percentage is (price/avg-1)*100. Both are zero without holdings. With a
// zero average price the P&L is the full qty*price and the percentage is zero.
func MarkToMarket(h model.Holdings, price float64) model.Position {
	p := decimal.NewFromFloat(price)
	pos := model.Position{
		Quantity:     h.Quantity,
		AvgPrice:     h.AvgPrice,
		CurrentPrice: price,
		CurrentValue: h.Quantity.Mul(p),
		CostBasis:    h.CostBasis(),
		ProfitLoss:   decimal.Zero,
	}
	if !h.Quantity.IsPositive() {
		return pos
	}
	pos.ProfitLoss = h.Quantity.Mul(p.Sub(h.AvgPrice))
	if h.AvgPrice.IsPositive() {
		pos.ProfitLossPct = p.Div(h.AvgPrice).Sub(decimal.NewFromInt(1)).
			Mul(decimal.NewFromInt(100)).InexactFloat64()
	}
	return pos
}
