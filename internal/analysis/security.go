package analysis

import (
	"fmt"
	"time"

	"github.com/rugscope/market-analyzer/internal/model"
)

// Recommendations attached to each security level.
const (
	RecommendHigh     = "Low risk - appears relatively safe"
	RecommendMedium   = "Medium risk - exercise caution"
	RecommendLow      = "High risk - be very careful"
	RecommendCritical = "Critical risk - avoid or keep exposure minimal"
	RecommendUnknown  = "Insufficient data"
)

// AnalyzeSecurity scores how safe a coin looks, from 0 (avoid) to 100.
//
// The score starts at 100 and every rule adds or subtracts independently,
// each evaluated against the raw snapshot fields. The total is clamped to
// [0, 100] once at the end. A nil holder snapshot, or one without a holder
// list, yields SecurityUnknown with score 0.
func AnalyzeSecurity(market model.MarketSnapshot, holders *model.HolderSnapshot, now time.Time) model.SecurityResult {
	if holders == nil || holders.Holders == nil {
		return model.SecurityResult{
			Level:          model.SecurityUnknown,
			Factors:        []model.ScoreFactor{},
			Recommendation: RecommendUnknown,
		}
	}

	score := 100.0
	var factors []model.ScoreFactor
	apply := func(sev model.Severity, metric, msg string, impact float64) {
		score += impact
		factors = append(factors, model.ScoreFactor{
			Severity: sev,
			Metric:   metric,
			Message:  msg,
			Impact:   impact,
		})
	}

	// Top holder concentration.
	var top float64
	if len(holders.Holders) > 0 {
		top = holders.Holders[0].Percentage
	}
	switch {
	case top > 80:
		apply(model.SeverityCritical, "Top Holder",
			fmt.Sprintf("Extreme concentration: top holder owns %.2f%%", top), -40)
	case top > 50:
		apply(model.SeverityHigh, "Top Holder",
			fmt.Sprintf("High concentration: top holder owns %.2f%%", top), -25)
	case top > 30:
		apply(model.SeverityMedium, "Top Holder",
			fmt.Sprintf("Moderate concentration: top holder owns %.2f%%", top), -15)
	}

	// Top 10 holders.
	var top10 float64
	for i, h := range holders.Holders {
		if i == 10 {
			break
		}
		top10 += h.Percentage
	}
	switch {
	case top10 > 95:
		apply(model.SeverityCritical, "Top 10 Holders",
			fmt.Sprintf("Top 10 holders control %.2f%%", top10), -30)
	case top10 > 80:
		apply(model.SeverityHigh, "Top 10 Holders",
			fmt.Sprintf("Top 10 holders control %.2f%%", top10), -20)
	}

	// Pool liquidity. A zero circulating supply is treated as a 0% pool.
	pool := safeDiv(holders.PoolInfo.CoinAmount, holders.CirculatingSupply) * 100
	switch {
	case pool < 1:
		apply(model.SeverityCritical, "Liquidity",
			fmt.Sprintf("Very low liquidity: %.3f%% in pool", pool), -25)
	case pool < 5:
		apply(model.SeverityMedium, "Liquidity",
			fmt.Sprintf("Low liquidity: %.2f%% in pool", pool), -15)
	}

	// Project age. Skipped when the creation time is unknown.
	var ageDays float64
	if !market.CreatedAt.IsZero() {
		ageDays = now.Sub(market.CreatedAt).Hours() / 24
		switch {
		case ageDays < 1:
			apply(model.SeverityHigh, "Age",
				fmt.Sprintf("Very new project (%.1f days old)", ageDays), -20)
		case ageDays < 7:
			apply(model.SeverityMedium, "Age",
				fmt.Sprintf("New project (%.1f days old)", ageDays), -10)
		case ageDays > 30:
			apply(model.SeverityPositive, "Age",
				fmt.Sprintf("Established project (%.0f days old)", ageDays), 5)
		}
	}

	// Volume anomalies.
	volRatio := safeDiv(market.Volume24h, market.MarketCap) * 100
	switch {
	case volRatio > 50:
		apply(model.SeverityMedium, "Volume",
			fmt.Sprintf("Extremely high volume ratio: %.2f%%", volRatio), -10)
	case volRatio > 20:
		apply(model.SeverityLow, "Volume",
			fmt.Sprintf("High volume ratio: %.2f%%", volRatio), -5)
	}

	if factors == nil {
		factors = []model.ScoreFactor{}
	}

	score = clampScore(score)
	level, rec := securityLevel(score)

	return model.SecurityResult{
		Score:          score,
		Level:          level,
		Factors:        factors,
		Recommendation: rec,
		HolderAnalysis: model.HolderAnalysis{
			TopHolder:      top,
			Top10Holders:   top10,
			PoolPercentage: pool,
			TotalHolders:   len(holders.Holders),
		},
		AgeDays: ageDays,
	}
}

func securityLevel(score float64) (model.SecurityLevel, string) {
	switch {
	case score >= 80:
		return model.SecurityHigh, RecommendHigh
	case score >= 60:
		return model.SecurityMedium, RecommendMedium
	case score >= 40:
		return model.SecurityLow, RecommendLow
	default:
		return model.SecurityCritical, RecommendCritical
	}
}
