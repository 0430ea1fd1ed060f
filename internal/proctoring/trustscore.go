package proctoring

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/360-proctor/proctoring-service/internal/detection"
	"github.com/360-proctor/proctoring-service/internal/models"
)

const (
	baseScore = 100.0

	// Caps on the individual score components
	maxViolationPenalty = 80.0
	maxTimePenalty      = 20.0
	maxPatternPenalty   = 15.0
	maxRecoveryBonus    = 10.0

	// Frequency compounding for repeated violations of the same type
	frequencyStep = 0.2
	frequencyCap  = 2.0

	// Violations within this window count toward the recency penalty
	recentWindow = 5 * time.Minute

	// Consecutive violations closer than this are "rapid succession"
	rapidSuccessionGap = 30 * time.Second

	// Bounded per-session score history
	maxScoreHistory = 20
)

var severityMultipliers = map[models.Severity]float64{
	models.SeverityLow:      0.5,
	models.SeverityMedium:   1.0,
	models.SeverityHigh:     1.5,
	models.SeverityCritical: 2.0,
}

// TrustScoreEngine folds a session's accumulated violations into a bounded
// 0-100 score with category, trend and recommendations. Every evaluation
// recomputes all penalties and bonuses from the full violation list; the
// engine holds no incremental state beyond the bounded score history used for
// trend and analytics.
type TrustScoreEngine struct {
	mu      sync.Mutex
	history map[string][]float64
	logger  *slog.Logger
	now     func() time.Time
}

func NewTrustScoreEngine(logger *slog.Logger) *TrustScoreEngine {
	return &TrustScoreEngine{
		history: make(map[string][]float64),
		logger:  logger,
		now:     time.Now,
	}
}

// Evaluate computes the trust score for a session given its full ordered
// violation list, the exam duration and the elapsed exam time in minutes.
// The final score is appended to the session's bounded history.
func (e *TrustScoreEngine) Evaluate(sessionID string, violations []models.ViolationEvent, examDurationMinutes, currentTimeMinutes int) models.TrustScoreResult {
	now := e.now()

	factors := models.TrustScoreFactors{
		BaseScore:              baseScore,
		ViolationPenalty:       e.violationPenalty(violations),
		ConsistencyBonus:       e.consistencyBonus(violations, currentTimeMinutes),
		TimePenalty:            e.timePenalty(violations, now),
		BehaviorPatternPenalty: e.behaviorPatternPenalty(violations),
		RecoveryBonus:          e.recoveryBonus(violations, currentTimeMinutes, now),
	}

	finalScore := clampScore(factors.BaseScore -
		factors.ViolationPenalty -
		factors.TimePenalty -
		factors.BehaviorPatternPenalty +
		factors.ConsistencyBonus +
		factors.RecoveryBonus)

	result := models.TrustScoreResult{
		CurrentScore:    finalScore,
		Category:        scoreCategory(finalScore),
		Factors:         factors,
		ViolationsCount: len(violations),
		Recommendations: recommendations(violations, finalScore),
		Trend:           e.trend(sessionID),
	}

	e.storeScore(sessionID, finalScore)

	e.logger.Debug("Trust score evaluated",
		"session_id", sessionID,
		"score", finalScore,
		"category", result.Category,
		"violations", len(violations),
		"exam_duration_minutes", examDurationMinutes)

	return result
}

// violationPenalty sums the weighted per-event penalties. Repeated violations
// of the same type compound via the frequency multiplier, capped at 2x; the
// total is scaled to score points and capped at 80.
func (e *TrustScoreEngine) violationPenalty(violations []models.ViolationEvent) float64 {
	total := 0.0
	counts := make(map[models.ViolationType]int)

	for _, v := range violations {
		counts[v.Type]++

		weight := detection.Weight(v.Type)
		severity := severityMultiplier(v.Severity)
		frequency := frequencyCap
		if f := 1.0 + float64(counts[v.Type]-1)*frequencyStep; f < frequencyCap {
			frequency = f
		}

		total += weight * severity * v.Confidence * frequency
	}

	penalty := total * 100
	if penalty > maxViolationPenalty {
		penalty = maxViolationPenalty
	}
	return penalty
}

// consistencyBonus rewards a low violation rate once the session has run for
// at least 10 minutes.
func (e *TrustScoreEngine) consistencyBonus(violations []models.ViolationEvent, currentTimeMinutes int) float64 {
	if len(violations) == 0 || currentTimeMinutes < 10 {
		return 0
	}

	denominator := currentTimeMinutes
	if denominator < 1 {
		denominator = 1
	}
	rate := float64(len(violations)) / float64(denominator)

	switch {
	case rate < 0.1:
		return 5.0
	case rate < 0.2:
		return 2.0
	default:
		return 0
	}
}

// timePenalty penalizes violations within the last five minutes of wall
// clock, indicating currently problematic behavior.
func (e *TrustScoreEngine) timePenalty(violations []models.ViolationEvent, now time.Time) float64 {
	if len(violations) == 0 {
		return 0
	}

	recent := 0
	for _, v := range violations {
		if now.Sub(v.Timestamp) < recentWindow {
			recent++
		}
	}

	penalty := float64(recent) * 2.0
	if penalty > maxTimePenalty {
		penalty = maxTimePenalty
	}
	return penalty
}

// behaviorPatternPenalty detects rapid-succession and escalating-severity
// patterns over the time-sorted violation sequence. Requires at least three
// violations; capped at 15.
func (e *TrustScoreEngine) behaviorPatternPenalty(violations []models.ViolationEvent) float64 {
	if len(violations) < 3 {
		return 0
	}

	sorted := make([]models.ViolationEvent, len(violations))
	copy(sorted, violations)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	penalty := 0.0

	rapid := 0
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Timestamp.Sub(sorted[i-1].Timestamp) < rapidSuccessionGap {
			rapid++
		}
	}
	if rapid > 2 {
		penalty += 10.0
	}

	escalating := 0
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Severity.Rank() > sorted[i-1].Severity.Rank() {
			escalating++
		}
	}
	if float64(escalating) > float64(len(violations))*0.5 {
		penalty += 5.0
	}

	if penalty > maxPatternPenalty {
		penalty = maxPatternPenalty
	}
	return penalty
}

// recoveryBonus rewards improvement: after 20 minutes, if the early half of
// the exam produced more violations than the recent half, award up to 10
// points proportional to the improvement ratio.
func (e *TrustScoreEngine) recoveryBonus(violations []models.ViolationEvent, currentTimeMinutes int, now time.Time) float64 {
	if len(violations) == 0 || currentTimeMinutes < 20 {
		return 0
	}

	midpoint := time.Duration(currentTimeMinutes) * time.Minute / 2

	early, recent := 0, 0
	for _, v := range violations {
		if now.Sub(v.Timestamp) > midpoint {
			early++
		} else {
			recent++
		}
	}

	if early <= recent || early <= 2 {
		return 0
	}

	improvement := float64(early-recent) / float64(early)
	bonus := improvement * 10.0
	if bonus > maxRecoveryBonus {
		bonus = maxRecoveryBonus
	}
	return bonus
}

// trend compares up to the last three stored scores for the session. An
// average consecutive delta above +2 is improving, below -2 declining.
func (e *TrustScoreEngine) trend(sessionID string) models.ScoreTrend {
	e.mu.Lock()
	defer e.mu.Unlock()

	history := e.history[sessionID]
	if len(history) < 2 {
		return models.TrendStable
	}

	recent := history
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}

	sum := 0.0
	for i := 1; i < len(recent); i++ {
		sum += recent[i] - recent[i-1]
	}
	avg := sum / float64(len(recent)-1)

	switch {
	case avg > 2:
		return models.TrendImproving
	case avg < -2:
		return models.TrendDeclining
	default:
		return models.TrendStable
	}
}

func (e *TrustScoreEngine) storeScore(sessionID string, score float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	history := append(e.history[sessionID], score)
	if len(history) > maxScoreHistory {
		history = history[len(history)-maxScoreHistory:]
	}
	e.history[sessionID] = history
}

// History returns a copy of the session's bounded score history.
func (e *TrustScoreEngine) History(sessionID string) []float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	history := e.history[sessionID]
	out := make([]float64, len(history))
	copy(out, history)
	return out
}

// DropHistory removes a session's score history on teardown.
func (e *TrustScoreEngine) DropHistory(sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.history, sessionID)
}

// Analytics summarizes the session's score history.
func (e *TrustScoreEngine) Analytics(sessionID string) (models.ScoreAnalytics, error) {
	history := e.History(sessionID)
	if len(history) == 0 {
		return models.ScoreAnalytics{}, fmt.Errorf("no score history for session %s: %w", sessionID, ErrSessionNotFound)
	}

	current := history[len(history)-1]
	minScore, maxScore, sum := history[0], history[0], 0.0
	for _, s := range history {
		if s < minScore {
			minScore = s
		}
		if s > maxScore {
			maxScore = s
		}
		sum += s
	}

	variance := scoreVariance(history)
	stability := "stable"
	if variance >= 100 {
		stability = "unstable"
	}

	return models.ScoreAnalytics{
		CurrentScore:  current,
		AverageScore:  sum / float64(len(history)),
		MinScore:      minScore,
		MaxScore:      maxScore,
		ScoreVariance: variance,
		Trend:         e.trend(sessionID),
		Stability:     stability,
	}, nil
}

func scoreVariance(scores []float64) float64 {
	if len(scores) < 2 {
		return 0
	}
	mean := 0.0
	for _, s := range scores {
		mean += s
	}
	mean /= float64(len(scores))

	variance := 0.0
	for _, s := range scores {
		variance += (s - mean) * (s - mean)
	}
	return variance / float64(len(scores))
}

func severityMultiplier(s models.Severity) float64 {
	if m, ok := severityMultipliers[s]; ok {
		return m
	}
	return 1.0
}

func scoreCategory(score float64) models.TrustScoreCategory {
	switch {
	case score >= 90:
		return models.CategoryExcellent
	case score >= 75:
		return models.CategoryGood
	case score >= 60:
		return models.CategoryFair
	case score >= 40:
		return models.CategoryPoor
	default:
		return models.CategoryCritical
	}
}

func recommendations(violations []models.ViolationEvent, score float64) []string {
	recs := []string{}

	counts := make(map[models.ViolationType]int)
	for _, v := range violations {
		counts[v.Type]++
	}

	if counts[models.ViolationFaceNotDetected] > 2 {
		recs = append(recs, "Ensure proper lighting and camera positioning for face detection")
	}
	if counts[models.ViolationLookingAway] > 3 {
		recs = append(recs, "Maintain focus on the screen during the exam")
	}
	if counts[models.ViolationTabSwitch] > 1 {
		recs = append(recs, "Avoid switching browser tabs during the exam")
	}
	if counts[models.ViolationAudioDetected] > 1 {
		recs = append(recs, "Ensure a quiet environment during the exam")
	}
	if counts[models.ViolationMultipleFaces] > 0 {
		recs = append(recs, "Ensure you are alone during the exam")
	}

	if score < 60 {
		recs = append(recs, "Review exam guidelines and proctoring requirements")
		recs = append(recs, "Contact support if you're experiencing technical issues")
	} else if score < 80 {
		recs = append(recs, "Be more mindful of exam guidelines")
	}

	return recs
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
