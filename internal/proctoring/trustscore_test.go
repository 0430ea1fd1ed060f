package proctoring

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"testing"
	"time"

	"github.com/360-proctor/proctoring-service/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestEngine(now time.Time) *TrustScoreEngine {
	engine := NewTrustScoreEngine(testLogger())
	engine.now = func() time.Time { return now }
	return engine
}

func violation(t models.ViolationType, severity models.Severity, confidence float64, ts time.Time) models.ViolationEvent {
	return models.ViolationEvent{
		Type:       t,
		Severity:   severity,
		Confidence: confidence,
		Timestamp:  ts,
		SessionID:  "session-1",
		UserID:     "user-1",
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEvaluate_EmptyViolations(t *testing.T) {
	engine := newTestEngine(time.Now())

	result := engine.Evaluate("session-1", nil, 60, 30)

	if result.CurrentScore != 100 {
		t.Errorf("Expected score 100, got %v", result.CurrentScore)
	}
	if result.Category != models.CategoryExcellent {
		t.Errorf("Expected category %s, got %s", models.CategoryExcellent, result.Category)
	}
	if result.ViolationsCount != 0 {
		t.Errorf("Expected 0 violations, got %d", result.ViolationsCount)
	}
	if result.Factors.ViolationPenalty != 0 || result.Factors.TimePenalty != 0 {
		t.Errorf("Expected zero penalties, got %+v", result.Factors)
	}
}

func TestEvaluate_ScoreAlwaysBounded(t *testing.T) {
	now := time.Now()
	engine := newTestEngine(now)

	// Pile up enough critical violations to exceed every cap
	var violations []models.ViolationEvent
	for i := 0; i < 50; i++ {
		violations = append(violations, violation(
			models.ViolationPhoneDetected, models.SeverityCritical, 1.0,
			now.Add(time.Duration(-i)*time.Second)))
	}

	for i := 1; i <= len(violations); i++ {
		result := engine.Evaluate("session-1", violations[:i], 60, 30)
		if result.CurrentScore < 0 || result.CurrentScore > 100 {
			t.Fatalf("Score out of bounds at %d violations: %v", i, result.CurrentScore)
		}
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	now := time.Now()
	violations := []models.ViolationEvent{
		violation(models.ViolationTabSwitch, models.SeverityHigh, 1.0, now.Add(-10*time.Minute)),
		violation(models.ViolationLookingAway, models.SeverityMedium, 0.8, now.Add(-8*time.Minute)),
	}

	first := newTestEngine(now).Evaluate("session-1", violations, 60, 30)
	second := newTestEngine(now).Evaluate("session-1", violations, 60, 30)

	if first.CurrentScore != second.CurrentScore {
		t.Errorf("Expected identical scores, got %v and %v", first.CurrentScore, second.CurrentScore)
	}
	if first.Factors != second.Factors {
		t.Errorf("Expected identical factors, got %+v and %+v", first.Factors, second.Factors)
	}
}

func TestViolationPenalty_NonDecreasing(t *testing.T) {
	now := time.Now()
	engine := newTestEngine(now)

	var violations []models.ViolationEvent
	previous := 0.0
	for i := 0; i < 30; i++ {
		violations = append(violations, violation(
			models.ViolationWindowBlur, models.SeverityMedium, 0.9,
			now.Add(time.Duration(-30+i)*time.Minute)))

		penalty := engine.violationPenalty(violations)
		if penalty < previous {
			t.Fatalf("Penalty decreased from %v to %v at %d violations", previous, penalty, len(violations))
		}
		previous = penalty
	}
}

func TestViolationPenalty_FrequencyCompounding(t *testing.T) {
	now := time.Now()
	engine := newTestEngine(now)

	// First face_not_detected: 0.15 x 1.5 x 1.0 x 1.0 = 0.225
	// Second:                  0.15 x 1.5 x 1.0 x 1.2 = 0.27
	one := engine.violationPenalty([]models.ViolationEvent{
		violation(models.ViolationFaceNotDetected, models.SeverityHigh, 1.0, now),
	})
	two := engine.violationPenalty([]models.ViolationEvent{
		violation(models.ViolationFaceNotDetected, models.SeverityHigh, 1.0, now),
		violation(models.ViolationFaceNotDetected, models.SeverityHigh, 1.0, now),
	})

	if !almostEqual(one, 22.5) {
		t.Errorf("Expected first penalty 22.5, got %v", one)
	}
	if !almostEqual(two-one, 27.0) {
		t.Errorf("Expected second event to add 27.0, got %v", two-one)
	}

	// The multiplier caps at 2x from the sixth repeat onward
	var many []models.ViolationEvent
	for i := 0; i < 7; i++ {
		many = append(many, violation(models.ViolationRightClick, models.SeverityLow, 1.0, now))
	}
	capped := engine.violationPenalty(many)
	// 0.05 x 0.5 x (1.0 + 1.2 + 1.4 + 1.6 + 1.8 + 2.0 + 2.0) x 100
	if !almostEqual(capped, 0.05*0.5*11.0*100) {
		t.Errorf("Expected capped penalty %v, got %v", 0.05*0.5*11.0*100, capped)
	}
}

func TestScoreCategory_Boundaries(t *testing.T) {
	cases := []struct {
		score    float64
		expected models.TrustScoreCategory
	}{
		{100, models.CategoryExcellent},
		{90, models.CategoryExcellent},
		{89.999, models.CategoryGood},
		{75, models.CategoryGood},
		{74.999, models.CategoryFair},
		{60, models.CategoryFair},
		{59.999, models.CategoryPoor},
		{40, models.CategoryPoor},
		{39.999, models.CategoryCritical},
		{0, models.CategoryCritical},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("score_%v", tc.score), func(t *testing.T) {
			if got := scoreCategory(tc.score); got != tc.expected {
				t.Errorf("Expected category %s for score %v, got %s", tc.expected, tc.score, got)
			}
		})
	}
}

func TestEvaluate_MidExamScenario(t *testing.T) {
	now := time.Now()
	engine := newTestEngine(now)

	// 60 minute exam, 30 minutes in. Both violations just happened, so both
	// land inside the 5 minute recency window.
	violations := []models.ViolationEvent{
		violation(models.ViolationFaceNotDetected, models.SeverityHigh, 0.9, now),
		violation(models.ViolationTabSwitch, models.SeverityHigh, 1.0, now),
	}

	result := engine.Evaluate("session-1", violations, 60, 30)

	// (0.15x1.5x0.9 + 0.20x1.5x1.0) x 100 = 50.25
	if !almostEqual(result.Factors.ViolationPenalty, 50.25) {
		t.Errorf("Expected violation penalty 50.25, got %v", result.Factors.ViolationPenalty)
	}
	if !almostEqual(result.Factors.TimePenalty, 4.0) {
		t.Errorf("Expected time penalty 4, got %v", result.Factors.TimePenalty)
	}
	// 2 violations over 30 minutes is a rate below 0.1
	if !almostEqual(result.Factors.ConsistencyBonus, 5.0) {
		t.Errorf("Expected consistency bonus 5, got %v", result.Factors.ConsistencyBonus)
	}
	if result.Factors.BehaviorPatternPenalty != 0 || result.Factors.RecoveryBonus != 0 {
		t.Errorf("Expected no pattern penalty or recovery bonus, got %+v", result.Factors)
	}

	if !almostEqual(result.CurrentScore, 50.75) {
		t.Errorf("Expected score 50.75, got %v", result.CurrentScore)
	}
	if result.Category != models.CategoryPoor {
		t.Errorf("Expected category %s, got %s", models.CategoryPoor, result.Category)
	}
}

func TestConsistencyBonus(t *testing.T) {
	now := time.Now()
	engine := newTestEngine(now)
	old := now.Add(-20 * time.Minute)

	t.Run("RequiresTenMinutes", func(t *testing.T) {
		v := []models.ViolationEvent{violation(models.ViolationRightClick, models.SeverityLow, 1.0, old)}
		if got := engine.consistencyBonus(v, 9); got != 0 {
			t.Errorf("Expected no bonus before 10 minutes, got %v", got)
		}
	})

	t.Run("LowRate", func(t *testing.T) {
		v := []models.ViolationEvent{violation(models.ViolationRightClick, models.SeverityLow, 1.0, old)}
		if got := engine.consistencyBonus(v, 30); got != 5.0 {
			t.Errorf("Expected bonus 5 for rate 1/30, got %v", got)
		}
	})

	t.Run("ModerateRate", func(t *testing.T) {
		var v []models.ViolationEvent
		for i := 0; i < 3; i++ {
			v = append(v, violation(models.ViolationRightClick, models.SeverityLow, 1.0, old))
		}
		if got := engine.consistencyBonus(v, 20); got != 2.0 {
			t.Errorf("Expected bonus 2 for rate 3/20, got %v", got)
		}
	})

	t.Run("HighRate", func(t *testing.T) {
		var v []models.ViolationEvent
		for i := 0; i < 10; i++ {
			v = append(v, violation(models.ViolationRightClick, models.SeverityLow, 1.0, old))
		}
		if got := engine.consistencyBonus(v, 20); got != 0 {
			t.Errorf("Expected no bonus for rate 10/20, got %v", got)
		}
	})
}

func TestBehaviorPatternPenalty(t *testing.T) {
	now := time.Now()
	engine := newTestEngine(now)

	t.Run("RequiresThreeViolations", func(t *testing.T) {
		v := []models.ViolationEvent{
			violation(models.ViolationTabSwitch, models.SeverityHigh, 1.0, now),
			violation(models.ViolationTabSwitch, models.SeverityHigh, 1.0, now.Add(time.Second)),
		}
		if got := engine.behaviorPatternPenalty(v); got != 0 {
			t.Errorf("Expected no penalty for two violations, got %v", got)
		}
	})

	t.Run("RapidSuccession", func(t *testing.T) {
		// Four violations 10s apart means three rapid pairs
		var v []models.ViolationEvent
		for i := 0; i < 4; i++ {
			v = append(v, violation(models.ViolationWindowBlur, models.SeverityMedium, 1.0,
				now.Add(time.Duration(i)*10*time.Second)))
		}
		if got := engine.behaviorPatternPenalty(v); got != 10.0 {
			t.Errorf("Expected rapid succession penalty 10, got %v", got)
		}
	})

	t.Run("EscalatingSeverity", func(t *testing.T) {
		// Spaced out to avoid the rapid pattern, strictly escalating
		v := []models.ViolationEvent{
			violation(models.ViolationRightClick, models.SeverityLow, 1.0, now),
			violation(models.ViolationWindowBlur, models.SeverityMedium, 1.0, now.Add(2*time.Minute)),
			violation(models.ViolationTabSwitch, models.SeverityHigh, 1.0, now.Add(4*time.Minute)),
		}
		if got := engine.behaviorPatternPenalty(v); got != 5.0 {
			t.Errorf("Expected escalation penalty 5, got %v", got)
		}
	})

	t.Run("BothPatternsCapAtFifteen", func(t *testing.T) {
		v := []models.ViolationEvent{
			violation(models.ViolationRightClick, models.SeverityLow, 1.0, now),
			violation(models.ViolationWindowBlur, models.SeverityMedium, 1.0, now.Add(5*time.Second)),
			violation(models.ViolationTabSwitch, models.SeverityHigh, 1.0, now.Add(10*time.Second)),
			violation(models.ViolationPhoneDetected, models.SeverityCritical, 1.0, now.Add(15*time.Second)),
		}
		if got := engine.behaviorPatternPenalty(v); got != 15.0 {
			t.Errorf("Expected combined penalty capped at 15, got %v", got)
		}
	})
}

func TestRecoveryBonus(t *testing.T) {
	now := time.Now()
	engine := newTestEngine(now)

	t.Run("RequiresTwentyMinutes", func(t *testing.T) {
		var v []models.ViolationEvent
		for i := 0; i < 5; i++ {
			v = append(v, violation(models.ViolationLookingAway, models.SeverityMedium, 1.0,
				now.Add(-18*time.Minute)))
		}
		if got := engine.recoveryBonus(v, 19, now); got != 0 {
			t.Errorf("Expected no bonus before 20 minutes, got %v", got)
		}
	})

	t.Run("ImprovedBehavior", func(t *testing.T) {
		// 30 minutes in: 4 violations in the early half, 1 recent
		var v []models.ViolationEvent
		for i := 0; i < 4; i++ {
			v = append(v, violation(models.ViolationLookingAway, models.SeverityMedium, 1.0,
				now.Add(-25*time.Minute)))
		}
		v = append(v, violation(models.ViolationLookingAway, models.SeverityMedium, 1.0,
			now.Add(-2*time.Minute)))

		got := engine.recoveryBonus(v, 30, now)
		expected := (4.0 - 1.0) / 4.0 * 10.0
		if !almostEqual(got, expected) {
			t.Errorf("Expected recovery bonus %v, got %v", expected, got)
		}
	})

	t.Run("NoImprovement", func(t *testing.T) {
		var v []models.ViolationEvent
		for i := 0; i < 4; i++ {
			v = append(v, violation(models.ViolationLookingAway, models.SeverityMedium, 1.0,
				now.Add(-2*time.Minute)))
		}
		if got := engine.recoveryBonus(v, 30, now); got != 0 {
			t.Errorf("Expected no bonus for recent violations, got %v", got)
		}
	})
}

func TestTrend(t *testing.T) {
	now := time.Now()

	t.Run("StableWithShortHistory", func(t *testing.T) {
		engine := newTestEngine(now)
		engine.storeScore("session-1", 90)
		if got := engine.trend("session-1"); got != models.TrendStable {
			t.Errorf("Expected stable trend, got %s", got)
		}
	})

	t.Run("Improving", func(t *testing.T) {
		engine := newTestEngine(now)
		for _, s := range []float64{60, 70, 80} {
			engine.storeScore("session-1", s)
		}
		if got := engine.trend("session-1"); got != models.TrendImproving {
			t.Errorf("Expected improving trend, got %s", got)
		}
	})

	t.Run("Declining", func(t *testing.T) {
		engine := newTestEngine(now)
		for _, s := range []float64{90, 80, 70} {
			engine.storeScore("session-1", s)
		}
		if got := engine.trend("session-1"); got != models.TrendDeclining {
			t.Errorf("Expected declining trend, got %s", got)
		}
	})

	t.Run("OnlyLastThreeCount", func(t *testing.T) {
		engine := newTestEngine(now)
		for _, s := range []float64{100, 10, 70, 80, 90} {
			engine.storeScore("session-1", s)
		}
		if got := engine.trend("session-1"); got != models.TrendImproving {
			t.Errorf("Expected improving trend over last three scores, got %s", got)
		}
	})
}

func TestScoreHistory_Bounded(t *testing.T) {
	engine := newTestEngine(time.Now())

	for i := 0; i < 25; i++ {
		engine.storeScore("session-1", float64(i))
	}

	history := engine.History("session-1")
	if len(history) != maxScoreHistory {
		t.Fatalf("Expected history length %d, got %d", maxScoreHistory, len(history))
	}
	if history[0] != 5 {
		t.Errorf("Expected oldest entries evicted, first is %v", history[0])
	}
	if history[len(history)-1] != 24 {
		t.Errorf("Expected newest score last, got %v", history[len(history)-1])
	}
}

func TestAnalytics(t *testing.T) {
	engine := newTestEngine(time.Now())

	t.Run("UnknownSession", func(t *testing.T) {
		if _, err := engine.Analytics("missing"); !IsNotFound(err) {
			t.Errorf("Expected not-found error, got %v", err)
		}
	})

	t.Run("Summary", func(t *testing.T) {
		for _, s := range []float64{80, 90, 100} {
			engine.storeScore("session-1", s)
		}

		analytics, err := engine.Analytics("session-1")
		if err != nil {
			t.Fatalf("Analytics failed: %v", err)
		}
		if analytics.CurrentScore != 100 {
			t.Errorf("Expected current score 100, got %v", analytics.CurrentScore)
		}
		if analytics.MinScore != 80 || analytics.MaxScore != 100 {
			t.Errorf("Expected min 80 max 100, got %v and %v", analytics.MinScore, analytics.MaxScore)
		}
		if !almostEqual(analytics.AverageScore, 90) {
			t.Errorf("Expected average 90, got %v", analytics.AverageScore)
		}
		if analytics.Trend != models.TrendImproving {
			t.Errorf("Expected improving trend, got %s", analytics.Trend)
		}
	})
}

func TestRecommendations(t *testing.T) {
	now := time.Now()

	t.Run("MultipleFacesAlwaysFlagged", func(t *testing.T) {
		v := []models.ViolationEvent{
			violation(models.ViolationMultipleFaces, models.SeverityCritical, 1.0, now),
		}
		recs := recommendations(v, 95)
		if len(recs) != 1 {
			t.Fatalf("Expected 1 recommendation, got %d: %v", len(recs), recs)
		}
	})

	t.Run("LowScoreAddsGuidance", func(t *testing.T) {
		recs := recommendations(nil, 50)
		if len(recs) != 2 {
			t.Errorf("Expected 2 recommendations for a failing score, got %d: %v", len(recs), recs)
		}
	})

	t.Run("CleanSession", func(t *testing.T) {
		recs := recommendations(nil, 100)
		if len(recs) != 0 {
			t.Errorf("Expected no recommendations, got %v", recs)
		}
	})
}

// Benchmark test
func BenchmarkEvaluate(b *testing.B) {
	now := time.Now()
	engine := newTestEngine(now)

	violations := make([]models.ViolationEvent, 0, 40)
	for i := 0; i < 10; i++ {
		ts := now.Add(-time.Duration(45-i*4) * time.Minute)
		violations = append(violations,
			violation(models.ViolationTabSwitch, models.SeverityMedium, 1.0, ts),
			violation(models.ViolationLookingAway, models.SeverityLow, 0.7, ts.Add(10*time.Second)),
			violation(models.ViolationPhoneDetected, models.SeverityCritical, 0.9, ts.Add(time.Minute)),
			violation(models.ViolationWindowBlur, models.SeverityMedium, 1.0, ts.Add(2*time.Minute)),
		)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		engine.Evaluate("session-bench", violations, 60, 45)
	}
}
