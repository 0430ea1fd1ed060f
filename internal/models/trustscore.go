package models

type TrustScoreCategory string

const (
	CategoryExcellent TrustScoreCategory = "excellent" // 90-100
	CategoryGood      TrustScoreCategory = "good"      // 75-89
	CategoryFair      TrustScoreCategory = "fair"      // 60-74
	CategoryPoor      TrustScoreCategory = "poor"      // 40-59
	CategoryCritical  TrustScoreCategory = "critical"  // 0-39
)

type ScoreTrend string

const (
	TrendImproving ScoreTrend = "improving"
	TrendDeclining ScoreTrend = "declining"
	TrendStable    ScoreTrend = "stable"
)

// TrustScoreFactors is the per-evaluation breakdown. It is recomputed from
// scratch on every call and never persisted.
//
// Invariant: final = clamp(BaseScore - ViolationPenalty - TimePenalty -
// BehaviorPatternPenalty + ConsistencyBonus + RecoveryBonus, 0, 100).
type TrustScoreFactors struct {
	BaseScore              float64 `json:"base_score"`
	ViolationPenalty       float64 `json:"violation_penalty"`
	ConsistencyBonus       float64 `json:"consistency_bonus"`
	TimePenalty            float64 `json:"time_penalty"`
	BehaviorPatternPenalty float64 `json:"behavior_pattern_penalty"`
	RecoveryBonus          float64 `json:"recovery_bonus"`
}

// TrustScoreResult is the engine output for one evaluation.
type TrustScoreResult struct {
	CurrentScore    float64            `json:"current_score"`
	Category        TrustScoreCategory `json:"category"`
	Factors         TrustScoreFactors  `json:"factors"`
	ViolationsCount int                `json:"violations_count"`
	Recommendations []string           `json:"recommendations"`
	Trend           ScoreTrend         `json:"trend"`
}

// ScoreAnalytics summarizes a session's bounded score history.
type ScoreAnalytics struct {
	CurrentScore  float64    `json:"current_score"`
	AverageScore  float64    `json:"average_score"`
	MinScore      float64    `json:"min_score"`
	MaxScore      float64    `json:"max_score"`
	ScoreVariance float64    `json:"score_variance"`
	Trend         ScoreTrend `json:"trend"`
	Stability     string     `json:"stability"` // "stable" or "unstable"
}
