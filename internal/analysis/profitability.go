package analysis

import (
	"fmt"

	"github.com/rugscope/market-analyzer/internal/model"
)

// AnalyzeProfitability blends 24h market performance, a liquidity premium,
// the caller's own return and a small-cap growth bonus into a 0-100 score.
// The score starts at a neutral 50.
func AnalyzeProfitability(market model.MarketSnapshot, holdings model.Holdings) model.ProfitabilityResult {
	score := 50.0
	var factors []model.ScoreFactor
	add := func(metric, value string, impact float64) {
		score += impact
		factors = append(factors, model.ScoreFactor{
			Severity: impactSeverity(impact),
			Metric:   metric,
			Message:  fmt.Sprintf("%s: %s", metric, value),
			Value:    value,
			Impact:   impact,
		})
	}

	change := market.ChangePercent24h()
	add("24h Performance", signedPercent(change), clamp(change, -25, 25))

	volRatio := safeDiv(market.Volume24h, market.MarketCap) * 100
	add("Liquidity Ratio", fmt.Sprintf("%.2f%%", volRatio), min(15, volRatio*2)-10)

	if holdings.Quantity.IsPositive() {
		qty := holdings.Quantity.InexactFloat64()
		current := qty * market.CurrentPrice
		cost := qty * holdings.AvgPrice.InexactFloat64()
		ret := safeDiv(current-cost, cost) * 100
		add("Your P&L", signedPercent(ret), clamp(ret, -25, 25))
	}

	var capBonus float64
	switch {
	case market.MarketCap < 100000:
		capBonus = 10
	case market.MarketCap < 1000000:
		capBonus = 5
	}
	if capBonus > 0 {
		add("Growth Potential", "Small Cap", capBonus)
	}

	score = clampScore(score)

	return model.ProfitabilityResult{
		Score:   score,
		Level:   profitLevel(score),
		Factors: factors,
	}
}

func impactSeverity(impact float64) model.Severity {
	if impact >= 0 {
		return model.SeverityPositive
	}
	return model.SeverityNegative
}

func signedPercent(v float64) string {
	if v >= 0 {
		return fmt.Sprintf("+%.2f%%", v)
	}
	return fmt.Sprintf("%.2f%%", v)
}

func profitLevel(score float64) model.ProfitLevel {
	switch {
	case score >= 80:
		return model.ProfitExcellent
	case score >= 65:
		return model.ProfitGood
	case score >= 50:
		return model.ProfitNeutral
	case score >= 35:
		return model.ProfitPoor
	default:
		return model.ProfitVeryPoor
	}
}
