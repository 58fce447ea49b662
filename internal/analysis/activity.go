package analysis

import (
	"fmt"
	"math"
	"strconv"

	"github.com/rugscope/market-analyzer/internal/model"
)

// Sub-score caps for the activity score.
const (
	maxVolumeScore     = 30
	maxMarketCapScore  = 25
	maxHolderScore     = 25
	maxVolatilityScore = 20
)

// AnalyzeActivity scores trading engagement from 0 to 100 as the sum of four
// capped sub-scores: volume, market cap, holder count and 24h volatility.
// A nil holder snapshot counts as zero holders.
func AnalyzeActivity(market model.MarketSnapshot, holders *model.HolderSnapshot) model.ActivityResult {
	holderCount := 0
	if holders != nil {
		holderCount = len(holders.Holders)
	}

	volumeScore := math.Min(maxVolumeScore, market.Volume24h/10000*10)
	mcapScore := math.Min(maxMarketCapScore, market.MarketCap/100000*5)
	holderScore := math.Min(maxHolderScore, float64(holderCount)/10*2)
	priceChange := math.Abs(market.ChangePercent24h())
	volatilityScore := math.Min(maxVolatilityScore, priceChange/2)

	factors := []model.ScoreFactor{
		activityFactor("Trading Volume", "$"+FormatNumber(market.Volume24h), volumeScore, maxVolumeScore),
		activityFactor("Market Cap", "$"+FormatNumber(market.MarketCap), mcapScore, maxMarketCapScore),
		activityFactor("Holder Count", strconv.Itoa(holderCount), holderScore, maxHolderScore),
		activityFactor("Price Volatility", fmt.Sprintf("%.2f%%", priceChange), volatilityScore, maxVolatilityScore),
	}

	score := clampScore(volumeScore + mcapScore + holderScore + volatilityScore)

	return model.ActivityResult{
		Score:   score,
		Level:   activityLevel(score),
		Factors: factors,
	}
}

func activityFactor(metric, value string, score, maxScore float64) model.ScoreFactor {
	sev := model.SeverityInfo
	if score >= maxScore {
		sev = model.SeverityPositive
	}
	return model.ScoreFactor{
		Severity: sev,
		Metric:   metric,
		Message:  fmt.Sprintf("%s: %s", metric, value),
		Value:    value,
		Impact:   score,
		MaxScore: maxScore,
	}
}

func activityLevel(score float64) model.ActivityLevel {
	switch {
	case score >= 80:
		return model.ActivityVeryHigh
	case score >= 60:
		return model.ActivityHigh
	case score >= 40:
		return model.ActivityMedium
	case score >= 20:
		return model.ActivityLow
	default:
		return model.ActivityVeryLow
	}
}
