package proctoring

import (
	"sync"
	"testing"
	"time"

	"github.com/360-proctor/proctoring-service/internal/models"
)

func TestLedger_AppendAndList(t *testing.T) {
	ledger := NewLedger()
	ledger.Init("session-1")

	now := time.Now()
	first := violation(models.ViolationTabSwitch, models.SeverityHigh, 1.0, now)
	second := violation(models.ViolationWindowBlur, models.SeverityMedium, 1.0, now.Add(time.Second))

	ledger.Append("session-1", first)
	ledger.Append("session-1", second)

	events := ledger.List("session-1")
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	if events[0].Type != models.ViolationTabSwitch || events[1].Type != models.ViolationWindowBlur {
		t.Errorf("Events out of order: %v, %v", events[0].Type, events[1].Type)
	}
	if ledger.Count("session-1") != 2 {
		t.Errorf("Expected count 2, got %d", ledger.Count("session-1"))
	}
}

func TestLedger_ListReturnsCopy(t *testing.T) {
	ledger := NewLedger()
	ledger.Append("session-1", violation(models.ViolationTabSwitch, models.SeverityHigh, 1.0, time.Now()))

	events := ledger.List("session-1")
	events[0].Type = models.ViolationPhoneDetected

	if got := ledger.List("session-1")[0].Type; got != models.ViolationTabSwitch {
		t.Errorf("Mutating the returned slice leaked into the ledger: %v", got)
	}
}

func TestLedger_UnknownSession(t *testing.T) {
	ledger := NewLedger()

	if got := ledger.List("missing"); len(got) != 0 {
		t.Errorf("Expected empty list, got %v", got)
	}
	if got := ledger.Count("missing"); got != 0 {
		t.Errorf("Expected count 0, got %d", got)
	}
	summary := ledger.Summarize("missing")
	if summary.Total != 0 {
		t.Errorf("Expected empty summary, got %+v", summary)
	}
}

func TestLedger_Summarize(t *testing.T) {
	ledger := NewLedger()
	now := time.Now()

	events := []models.ViolationEvent{
		violation(models.ViolationTabSwitch, models.SeverityHigh, 1.0, now),
		violation(models.ViolationTabSwitch, models.SeverityHigh, 1.0, now.Add(time.Second)),
		violation(models.ViolationPhoneDetected, models.SeverityCritical, 0.95, now.Add(2*time.Second)),
	}
	events[0].TrustScoreImpact = 30.0
	events[1].TrustScoreImpact = 36.0
	events[2].TrustScoreImpact = 57.0
	ledger.Append("session-1", events...)

	summary := ledger.Summarize("session-1")
	if summary.Total != 3 {
		t.Errorf("Expected total 3, got %d", summary.Total)
	}
	if summary.ByType[models.ViolationTabSwitch] != 2 {
		t.Errorf("Expected 2 tab switches, got %d", summary.ByType[models.ViolationTabSwitch])
	}
	if summary.BySeverity[models.SeverityCritical] != 1 {
		t.Errorf("Expected 1 critical, got %d", summary.BySeverity[models.SeverityCritical])
	}
	if summary.TotalTrustImpact != 123.0 {
		t.Errorf("Expected total impact 123, got %v", summary.TotalTrustImpact)
	}
}

func TestLedger_Drop(t *testing.T) {
	ledger := NewLedger()
	ledger.Append("session-1", violation(models.ViolationTabSwitch, models.SeverityHigh, 1.0, time.Now()))

	ledger.Drop("session-1")

	if ledger.Count("session-1") != 0 {
		t.Errorf("Expected empty session after drop, got %d events", ledger.Count("session-1"))
	}
}

func TestLedger_ConcurrentAppend(t *testing.T) {
	ledger := NewLedger()
	now := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				ledger.Append("session-1", violation(models.ViolationWindowBlur, models.SeverityMedium, 1.0, now))
				ledger.List("session-1")
			}
		}()
	}
	wg.Wait()

	if got := ledger.Count("session-1"); got != 200 {
		t.Errorf("Expected 200 events, got %d", got)
	}
}
