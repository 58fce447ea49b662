package model

// Severity classifies a ScoreFactor.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityPositive Severity = "positive"
	SeverityNegative Severity = "negative"
	SeverityInfo     Severity = "info"
)

// ScoreFactor is one contribution to a score, shared by every scorer.
// Impact is the signed number of points the factor moved the score by.
type ScoreFactor struct {
	Severity Severity `json:"severity"`
	Metric   string   `json:"metric,omitempty"`
	Message  string   `json:"message"`
	Value    string   `json:"value,omitempty"`
	Impact   float64  `json:"impact"`
	MaxScore float64  `json:"max_score,omitempty"`
}

// Trend is the short-term price direction.
type Trend string

const (
	TrendUnknown    Trend = "UNKNOWN"
	TrendStrongUp   Trend = "STRONG_UP"
	TrendUp         Trend = "UP"
	TrendNeutral    Trend = "NEUTRAL"
	TrendDown       Trend = "DOWN"
	TrendStrongDown Trend = "STRONG_DOWN"
)

// TrendResult is the output of the trend analyzer.
type TrendResult struct {
	Trend         Trend   `json:"trend"`
	ChangePercent float64 `json:"change_percent"`
	Message       string  `json:"message"`
	Confidence    float64 `json:"confidence"`
	Volatility    float64 `json:"volatility"`
	Momentum      float64 `json:"momentum"`
	Window        int     `json:"window"`
}

// SecurityLevel grades the security score. HIGH means safe.
type SecurityLevel string

const (
	SecurityUnknown  SecurityLevel = "UNKNOWN"
	SecurityHigh     SecurityLevel = "HIGH"
	SecurityMedium   SecurityLevel = "MEDIUM"
	SecurityLow      SecurityLevel = "LOW"
	SecurityCritical SecurityLevel = "CRITICAL"
)

// HolderAnalysis summarises holder distribution for display.
type HolderAnalysis struct {
	TopHolder      float64 `json:"top_holder"`
	Top10Holders   float64 `json:"top10_holders"`
	PoolPercentage float64 `json:"pool_percentage"`
	TotalHolders   int     `json:"total_holders"`
}

// SecurityResult is the output of the security scorer.
type SecurityResult struct {
	Score          float64        `json:"score"`
	Level          SecurityLevel  `json:"level"`
	Factors        []ScoreFactor  `json:"factors"`
	Recommendation string         `json:"recommendation"`
	HolderAnalysis HolderAnalysis `json:"holder_analysis"`
	AgeDays        float64        `json:"age_days"`
}

// ActivityLevel grades the activity score.
type ActivityLevel string

const (
	ActivityVeryHigh ActivityLevel = "VERY_HIGH"
	ActivityHigh     ActivityLevel = "HIGH"
	ActivityMedium   ActivityLevel = "MEDIUM"
	ActivityLow      ActivityLevel = "LOW"
	ActivityVeryLow  ActivityLevel = "VERY_LOW"
)

// ActivityResult is the output of the activity scorer.
type ActivityResult struct {
	Score   float64       `json:"score"`
	Level   ActivityLevel `json:"level"`
	Factors []ScoreFactor `json:"factors"`
}

// ProfitLevel grades the profitability score.
type ProfitLevel string

const (
	ProfitExcellent ProfitLevel = "EXCELLENT"
	ProfitGood      ProfitLevel = "GOOD"
	ProfitNeutral   ProfitLevel = "NEUTRAL"
	ProfitPoor      ProfitLevel = "POOR"
	ProfitVeryPoor  ProfitLevel = "VERY_POOR"
)

// ProfitabilityResult is the output of the profitability scorer.
type ProfitabilityResult struct {
	Score   float64       `json:"score"`
	Level   ProfitLevel   `json:"level"`
	Factors []ScoreFactor `json:"factors"`
}
