package proctoring

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/360-proctor/proctoring-service/internal/cache"
	"github.com/360-proctor/proctoring-service/internal/detection"
	"github.com/360-proctor/proctoring-service/internal/events"
	"github.com/360-proctor/proctoring-service/internal/models"
	"github.com/360-proctor/proctoring-service/internal/repositories"
	"github.com/360-proctor/proctoring-service/internal/ws"
)

const (
	persistTimeout = 5 * time.Second
	scoreCacheTTL  = 30 * time.Minute
)

// liveSession is the in-memory state of one monitored exam attempt. Its
// mutex serializes the detect-evaluate-publish pipeline per session, so
// concurrent frames for the same session never interleave mid-evaluation.
type liveSession struct {
	mu sync.Mutex

	id                  string
	userID              string
	examID              uint
	examDurationMinutes int
	startedAt           time.Time
	endedAt             time.Time
	status              models.SessionStatus
	lastResult          models.TrustScoreResult
	summary             models.SessionSummary
}

// LiveStatus is a point-in-time snapshot of a monitored session.
type LiveStatus struct {
	SessionID       string                    `json:"session_id"`
	Status          models.SessionStatus      `json:"status"`
	TrustScore      float64                   `json:"trust_score"`
	Category        models.TrustScoreCategory `json:"category"`
	ViolationsCount int                       `json:"violations_count"`
	ElapsedSeconds  float64                   `json:"elapsed_seconds"`
}

// CoordinatorOptions carries the optional collaborators. Any nil field is
// skipped; the detection and scoring pipeline itself never depends on them.
type CoordinatorOptions struct {
	Publisher events.EventPublisher
	Hub       *ws.Hub
	Repo      repositories.Repository
	Cache     cache.CacheService
	Logger    *slog.Logger
}

// Coordinator owns the lifecycle of live proctoring sessions and drives the
// pipeline for each incoming signal: classify, record, re-score, then fan the
// outcome out to storage, Kafka and the websocket hub.
type Coordinator struct {
	mu       sync.RWMutex
	sessions map[string]*liveSession

	classifier *detection.Classifier
	engine     *TrustScoreEngine
	ledger     *Ledger

	publisher events.EventPublisher
	hub       *ws.Hub
	repo      repositories.Repository
	cache     cache.CacheService
	logger    *slog.Logger

	now func() time.Time
}

func NewCoordinator(classifier *detection.Classifier, engine *TrustScoreEngine, ledger *Ledger, opts CoordinatorOptions) *Coordinator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		sessions:   make(map[string]*liveSession),
		classifier: classifier,
		engine:     engine,
		ledger:     ledger,
		publisher:  opts.Publisher,
		hub:        opts.Hub,
		repo:       opts.Repo,
		cache:      opts.Cache,
		logger:     logger,
		now:        time.Now,
	}
}

// ===== LIFECYCLE =====

// StartSession opens a monitored session for one student and exam. An empty
// sessionID gets a generated one. Starting an ID that is already live fails
// with ErrSessionExists.
func (c *Coordinator) StartSession(ctx context.Context, sessionID, userID string, examID uint, examDurationMinutes int) (*models.ExamSession, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	startedAt := c.now()

	c.mu.Lock()
	if existing, ok := c.sessions[sessionID]; ok {
		state := existing.status
		c.mu.Unlock()
		return nil, &SessionStateError{SessionID: sessionID, State: string(state), Op: "start", Err: ErrSessionExists}
	}
	live := &liveSession{
		id:                  sessionID,
		userID:              userID,
		examID:              examID,
		examDurationMinutes: examDurationMinutes,
		startedAt:           startedAt,
		status:              models.SessionActive,
		lastResult: models.TrustScoreResult{
			CurrentScore: baseScore,
			Category:     models.CategoryExcellent,
			Trend:        models.TrendStable,
			Factors:      models.TrustScoreFactors{BaseScore: baseScore},
		},
	}
	c.sessions[sessionID] = live
	c.mu.Unlock()

	c.ledger.Init(sessionID)

	record := &models.ExamSession{
		ID:        sessionID,
		ExamID:    examID,
		UserID:    userID,
		Status:    models.SessionActive,
		StartedAt: &startedAt,
	}
	if c.repo != nil {
		if err := c.repo.Session().Create(ctx, record); err != nil {
			c.logger.Error("failed to persist session start",
				"session_id", sessionID,
				"user_id", userID,
				"error", err)
		}
	}

	c.publish(ctx, events.NewSessionStartedEvent(sessionID, userID, examID, startedAt, baseScore))
	c.notifyHub(ws.Message{
		Type:      "session_started",
		SessionID: sessionID,
		Payload:   record,
	})
	c.cacheScore(ctx, sessionID, live.lastResult)

	c.logger.Info("proctoring session started",
		"session_id", sessionID,
		"user_id", userID,
		"exam_id", examID,
		"exam_duration_minutes", examDurationMinutes)

	return record, nil
}

// ProcessFrame runs one detector frame through the pipeline and returns the
// re-evaluated trust score plus any violations the frame produced.
func (c *Coordinator) ProcessFrame(ctx context.Context, sessionID string, frame detection.FrameData) (models.TrustScoreResult, []models.ViolationEvent, error) {
	live, err := c.activeSession(sessionID, "process frame for")
	if err != nil {
		return models.TrustScoreResult{}, nil, err
	}

	live.mu.Lock()
	defer live.mu.Unlock()
	if err := live.checkActive("process frame for"); err != nil {
		return models.TrustScoreResult{}, nil, err
	}

	violations := c.classifier.ClassifyFrame(sessionID, live.userID, frame)
	result := c.ingest(ctx, live, violations)
	return result, violations, nil
}

// ProcessBrowserEvent runs one browser-side event through the pipeline.
func (c *Coordinator) ProcessBrowserEvent(ctx context.Context, sessionID string, event detection.BrowserEvent) (models.TrustScoreResult, []models.ViolationEvent, error) {
	if event.Type == "" {
		return models.TrustScoreResult{}, nil, ErrMalformedInput
	}

	live, err := c.activeSession(sessionID, "process event for")
	if err != nil {
		return models.TrustScoreResult{}, nil, err
	}

	live.mu.Lock()
	defer live.mu.Unlock()
	if err := live.checkActive("process event for"); err != nil {
		return models.TrustScoreResult{}, nil, err
	}

	violations := c.classifier.ClassifyBrowserEvent(sessionID, live.userID, event)
	result := c.ingest(ctx, live, violations)
	return result, violations, nil
}

// EndSession closes an active session: it runs a final evaluation over the
// whole exam window, persists the outcome and returns the summary. Ending an
// already-completed session fails with ErrSessionCompleted.
func (c *Coordinator) EndSession(ctx context.Context, sessionID string) (models.SessionSummary, error) {
	live, err := c.session(sessionID)
	if err != nil {
		return models.SessionSummary{}, err
	}

	live.mu.Lock()
	defer live.mu.Unlock()

	if live.status == models.SessionCompleted {
		return models.SessionSummary{}, &SessionStateError{SessionID: sessionID, State: string(live.status), Op: "end", Err: ErrSessionCompleted}
	}

	endedAt := c.now()
	violations := c.ledger.List(sessionID)
	final := c.engine.Evaluate(sessionID, violations, live.examDurationMinutes, live.examDurationMinutes)

	duration := endedAt.Sub(live.startedAt).Seconds()
	summary := models.SessionSummary{
		SessionID:       sessionID,
		DurationSeconds: duration,
		TotalViolations: len(violations),
		FinalTrustScore: final.CurrentScore,
		Status:          string(models.SessionCompleted),
	}

	live.status = models.SessionCompleted
	live.endedAt = endedAt
	live.lastResult = final
	live.summary = summary

	if c.repo != nil {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
		defer cancel()
		record, err := c.repo.Session().GetByID(pctx, sessionID)
		if err != nil {
			c.logger.Error("failed to load session for finalization", "session_id", sessionID, "error", err)
		} else {
			score := final.CurrentScore
			record.Status = models.SessionCompleted
			record.EndedAt = &endedAt
			record.FinalTrustScore = &score
			record.TotalViolations = len(violations)
			record.DurationSeconds = int(duration)
			if err := c.repo.Session().Update(pctx, record); err != nil {
				c.logger.Error("failed to persist session end", "session_id", sessionID, "error", err)
			}
		}
	}

	c.publish(ctx, events.NewSessionEndedEvent(sessionID, live.userID, live.examID, summary, endedAt))
	c.notifyHub(ws.Message{
		Type:      "session_ended",
		SessionID: sessionID,
		Payload:   summary,
	})
	c.cacheSummary(ctx, sessionID, summary)

	c.logger.Info("proctoring session ended",
		"session_id", sessionID,
		"final_trust_score", final.CurrentScore,
		"total_violations", len(violations),
		"duration_seconds", int(duration))

	return summary, nil
}

// Cleanup discards the in-memory state of a completed session. The persisted
// row, alerts and cached summary survive; a later Cleanup of an unknown or
// still-active session is an error.
func (c *Coordinator) Cleanup(sessionID string) error {
	c.mu.Lock()
	live, ok := c.sessions[sessionID]
	if !ok {
		c.mu.Unlock()
		return ErrSessionNotFound
	}
	if live.status != models.SessionCompleted {
		c.mu.Unlock()
		return &SessionStateError{SessionID: sessionID, State: string(live.status), Op: "clean up", Err: ErrSessionNotActive}
	}
	delete(c.sessions, sessionID)
	c.mu.Unlock()

	c.ledger.Drop(sessionID)
	c.engine.DropHistory(sessionID)
	return nil
}

// ===== PIPELINE =====

// ingest is the shared tail of the pipeline. Caller holds live.mu.
func (c *Coordinator) ingest(ctx context.Context, live *liveSession, violations []models.ViolationEvent) models.TrustScoreResult {
	if len(violations) > 0 {
		c.ledger.Append(live.id, violations...)
	}

	elapsed := int(c.now().Sub(live.startedAt).Minutes())
	all := c.ledger.List(live.id)
	result := c.engine.Evaluate(live.id, all, live.examDurationMinutes, elapsed)
	live.lastResult = result

	for _, v := range violations {
		c.persistAlert(ctx, v)
		c.publish(ctx, events.NewViolationDetectedEvent(v))
		c.notifyHub(ws.Message{
			Type:      "violation",
			SessionID: live.id,
			Payload:   v,
		})
	}

	c.publish(ctx, events.NewTrustScoreUpdatedEvent(live.id, live.userID, result))
	c.notifyHub(ws.Message{
		Type:      "trust_score_update",
		SessionID: live.id,
		Payload:   result,
	})
	c.cacheScore(ctx, live.id, result)

	if len(violations) > 0 {
		c.logger.Info("violations processed",
			"session_id", live.id,
			"count", len(violations),
			"trust_score", result.CurrentScore,
			"category", result.Category)
	}

	return result
}

func (c *Coordinator) persistAlert(ctx context.Context, v models.ViolationEvent) {
	if c.repo == nil {
		return
	}

	var metadata datatypes.JSON
	if len(v.Metadata) > 0 {
		if raw, err := json.Marshal(v.Metadata); err == nil {
			metadata = raw
		}
	}

	alert := &models.Alert{
		SessionID:        v.SessionID,
		UserID:           v.UserID,
		Type:             v.Type,
		Severity:         v.Severity,
		Description:      v.Description,
		Confidence:       v.Confidence,
		TrustScoreImpact: v.TrustScoreImpact,
		Metadata:         metadata,
		ReviewStatus:     models.AlertReviewPending,
		OccurredAt:       v.Timestamp,
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := c.repo.Alert().Create(pctx, alert); err != nil {
		c.logger.Error("failed to persist alert",
			"session_id", v.SessionID,
			"violation_type", v.Type,
			"error", err)
	}
}

func (c *Coordinator) publish(ctx context.Context, event *events.ProctoringEvent) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.PublishProctoringEvent(ctx, event); err != nil {
		c.logger.Error("failed to publish event",
			"event_type", event.Type,
			"session_id", event.SessionID,
			"error", err)
	}
}

func (c *Coordinator) notifyHub(msg ws.Message) {
	if c.hub == nil {
		return
	}
	c.hub.SendToSession(msg.SessionID, msg)
	c.hub.BroadcastToProctors(msg)
}

func (c *Coordinator) cacheScore(ctx context.Context, sessionID string, result models.TrustScoreResult) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, cache.SessionScoreKey(sessionID), result, scoreCacheTTL); err != nil {
		c.logger.Warn("failed to cache trust score", "session_id", sessionID, "error", err)
	}
}

func (c *Coordinator) cacheSummary(ctx context.Context, sessionID string, summary models.SessionSummary) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, cache.SessionSummaryKey(sessionID), summary, scoreCacheTTL); err != nil {
		c.logger.Warn("failed to cache session summary", "session_id", sessionID, "error", err)
	}
}

// ===== QUERIES =====

// Summary returns the end-of-session summary for a completed session, or a
// snapshot computed over the violations so far for an active one.
func (c *Coordinator) Summary(sessionID string) (models.SessionSummary, error) {
	live, err := c.session(sessionID)
	if err != nil {
		return models.SessionSummary{}, err
	}

	live.mu.Lock()
	defer live.mu.Unlock()

	if live.status == models.SessionCompleted {
		return live.summary, nil
	}

	return models.SessionSummary{
		SessionID:       sessionID,
		DurationSeconds: c.now().Sub(live.startedAt).Seconds(),
		TotalViolations: c.ledger.Count(sessionID),
		FinalTrustScore: live.lastResult.CurrentScore,
		Status:          string(live.status),
	}, nil
}

// Status returns a live snapshot without re-running the evaluation.
func (c *Coordinator) Status(sessionID string) (LiveStatus, error) {
	live, err := c.session(sessionID)
	if err != nil {
		return LiveStatus{}, err
	}

	live.mu.Lock()
	defer live.mu.Unlock()

	elapsed := c.now().Sub(live.startedAt).Seconds()
	if live.status == models.SessionCompleted {
		elapsed = live.endedAt.Sub(live.startedAt).Seconds()
	}

	return LiveStatus{
		SessionID:       sessionID,
		Status:          live.status,
		TrustScore:      live.lastResult.CurrentScore,
		Category:        live.lastResult.Category,
		ViolationsCount: c.ledger.Count(sessionID),
		ElapsedSeconds:  elapsed,
	}, nil
}

// Violations lists every violation recorded for the session, oldest first.
func (c *Coordinator) Violations(sessionID string) ([]models.ViolationEvent, error) {
	if _, err := c.session(sessionID); err != nil {
		return nil, err
	}
	return c.ledger.List(sessionID), nil
}

// ViolationSummary aggregates the session's violations by type and severity.
func (c *Coordinator) ViolationSummary(sessionID string) (models.ViolationSummary, error) {
	if _, err := c.session(sessionID); err != nil {
		return models.ViolationSummary{}, err
	}
	return c.ledger.Summarize(sessionID), nil
}

// ScoreHistory returns the bounded trust score history, oldest first.
func (c *Coordinator) ScoreHistory(sessionID string) ([]float64, error) {
	if _, err := c.session(sessionID); err != nil {
		return nil, err
	}
	return c.engine.History(sessionID), nil
}

// Analytics returns aggregate statistics over the session's score history.
func (c *Coordinator) Analytics(sessionID string) (models.ScoreAnalytics, error) {
	if _, err := c.session(sessionID); err != nil {
		return models.ScoreAnalytics{}, err
	}
	return c.engine.Analytics(sessionID)
}

// ActiveSessions lists the IDs of sessions currently accepting signals.
func (c *Coordinator) ActiveSessions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, 0, len(c.sessions))
	for id, live := range c.sessions {
		if live.status == models.SessionActive {
			ids = append(ids, id)
		}
	}
	return ids
}

// ===== HELPERS =====

func (c *Coordinator) session(sessionID string) (*liveSession, error) {
	c.mu.RLock()
	live, ok := c.sessions[sessionID]
	c.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return live, nil
}

// activeSession resolves the session and rejects non-active states early.
// The state is re-checked under the session lock before mutating.
func (c *Coordinator) activeSession(sessionID, op string) (*liveSession, error) {
	live, err := c.session(sessionID)
	if err != nil {
		return nil, err
	}
	live.mu.Lock()
	err = live.checkActive(op)
	live.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return live, nil
}

// checkActive requires live.mu held.
func (s *liveSession) checkActive(op string) error {
	switch s.status {
	case models.SessionActive:
		return nil
	case models.SessionCompleted:
		return &SessionStateError{SessionID: s.id, State: string(s.status), Op: op, Err: ErrSessionCompleted}
	default:
		return &SessionStateError{SessionID: s.id, State: string(s.status), Op: op, Err: ErrSessionNotActive}
	}
}
