package analysis

import (
	"fmt"
	"math"

	"github.com/rugscope/market-analyzer/internal/model"
)

const (
	// MinTrendCandles is the fewest candles the trend analyzer accepts.
	MinTrendCandles = 10

	// TrendWindow is the preferred number of trailing candles analysed.
	TrendWindow = 20

	shortMAPeriod = 5
	longMAPeriod  = 10
)

// AnalyzeTrend classifies the short-term trend of a candlestick series
// ordered oldest to newest.
//
// The window is the last TrendWindow candles, or all of them when fewer are
// available. Fewer than MinTrendCandles yields TrendUnknown with zero
// confidence; it never fails.
func AnalyzeTrend(candles []model.Candle) model.TrendResult {
	if len(candles) < MinTrendCandles {
		return model.TrendResult{
			Trend:   model.TrendUnknown,
			Message: "Insufficient data",
		}
	}

	window := candles
	if len(window) > TrendWindow {
		window = window[len(window)-TrendWindow:]
	}

	first := window[0].Open
	last := window[len(window)-1].Close
	change := safeDiv(last-first, first) * 100

	closes := make([]float64, len(window))
	for i, c := range window {
		closes[i] = c.Close
	}
	avg := mean(closes)
	volatility := safeDiv(stddev(closes), avg) * 100

	longMA := mean(lastN(closes, longMAPeriod))
	shortMA := mean(lastN(closes, shortMAPeriod))
	momentum := safeDiv(shortMA-longMA, longMA) * 100

	trend, confidence, message := classifyTrend(change)

	return model.TrendResult{
		Trend:         trend,
		ChangePercent: change,
		Message:       message,
		Confidence:    confidence,
		Volatility:    volatility,
		Momentum:      momentum,
		Window:        len(window),
	}
}

// classifyTrend maps a window change percentage onto a trend. Rules are
// evaluated in order and the first match wins.
func classifyTrend(change float64) (model.Trend, float64, string) {
	abs := math.Abs(change)
	switch {
	case change > 50:
		return model.TrendStrongUp, math.Min(95, 70+abs/2),
			fmt.Sprintf("Strong bullish trend (+%.1f%%)", change)
	case change > 20:
		return model.TrendUp, math.Min(85, 60+abs),
			fmt.Sprintf("Bullish trend (+%.1f%%)", change)
	case change < -30:
		return model.TrendStrongDown, math.Min(90, 65+abs/2),
			fmt.Sprintf("Strong bearish trend (%.1f%%)", change)
	case change < -10:
		return model.TrendDown, math.Min(80, 55+abs),
			fmt.Sprintf("Bearish trend (%.1f%%)", change)
	default:
		return model.TrendNeutral, 50,
			fmt.Sprintf("Sideways movement (%.1f%%)", change)
	}
}
