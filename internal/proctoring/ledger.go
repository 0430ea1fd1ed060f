package proctoring

import (
	"sync"

	"github.com/360-proctor/proctoring-service/internal/models"
)

// Ledger is the per-session append-only store of violation events. Events are
// kept in insertion order and are never removed before session teardown.
//
// The ledger is an explicit object passed by reference rather than a
// process-wide registry, so multiple isolated instances can coexist in tests.
type Ledger struct {
	mu       sync.RWMutex
	sessions map[string][]models.ViolationEvent
}

func NewLedger() *Ledger {
	return &Ledger{
		sessions: make(map[string][]models.ViolationEvent),
	}
}

// Init registers an empty event sequence for a session.
func (l *Ledger) Init(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.sessions[sessionID]; !ok {
		l.sessions[sessionID] = []models.ViolationEvent{}
	}
}

// Append adds events to a session's sequence in arrival order.
func (l *Ledger) Append(sessionID string, events ...models.ViolationEvent) {
	if len(events) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sessions[sessionID] = append(l.sessions[sessionID], events...)
}

// List returns a copy of the session's ordered event sequence.
func (l *Ledger) List(sessionID string) []models.ViolationEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	events := l.sessions[sessionID]
	out := make([]models.ViolationEvent, len(events))
	copy(out, events)
	return out
}

// Count returns the number of events recorded for a session.
func (l *Ledger) Count(sessionID string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.sessions[sessionID])
}

// Summarize folds the ledger into per-type and per-severity counts plus the
// accumulated trust-score impact.
func (l *Ledger) Summarize(sessionID string) models.ViolationSummary {
	l.mu.RLock()
	defer l.mu.RUnlock()

	summary := models.ViolationSummary{
		ByType:     make(map[models.ViolationType]int),
		BySeverity: make(map[models.Severity]int),
	}

	for _, event := range l.sessions[sessionID] {
		summary.Total++
		summary.ByType[event.Type]++
		summary.BySeverity[event.Severity]++
		summary.TotalTrustImpact += event.TrustScoreImpact
	}

	return summary
}

// Drop removes a session's events on teardown.
func (l *Ledger) Drop(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.sessions, sessionID)
}
