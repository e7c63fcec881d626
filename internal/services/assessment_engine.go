package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"regexp"
	"sync"
	"time"

	"github.com/SAP-F-2025/ec0249-assessment/internal/catalog"
	"github.com/SAP-F-2025/ec0249-assessment/internal/events"
	"github.com/SAP-F-2025/ec0249-assessment/internal/metrics"
	"github.com/SAP-F-2025/ec0249-assessment/internal/models"
	"github.com/SAP-F-2025/ec0249-assessment/internal/questions"
	"github.com/SAP-F-2025/ec0249-assessment/internal/scoring"
	"github.com/SAP-F-2025/ec0249-assessment/internal/storage"
	"github.com/google/uuid"
)

const (
	tickInterval = time.Second

	defaultTimeWarning = 300 // seconds
	perfectScore       = 100
	highPerformance    = 90
)

var modulePattern = regexp.MustCompile(`^module[-_]?\d+`)

// EngineConfig carries the collaborators shared by every engine.
type EngineConfig struct {
	Catalog   *catalog.Catalog
	Evaluator *questions.Evaluator
	Scorer    *scoring.Engine
	Store     storage.Store
	Publisher events.EventPublisher
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	Clock     Clock
	Scheduler Scheduler
	// Rand makes shuffling deterministic. It is shared by every engine built from this config and
	// is not synchronized, so leave it nil outside single-threaded tests.
	Rand *rand.Rand
}

func (c *EngineConfig) withDefaults() EngineConfig {
	out := *c
	if out.Evaluator == nil {
		out.Evaluator = questions.NewEvaluator(nil)
	}
	if out.Scorer == nil {
		out.Scorer = scoring.NewEngine(out.Evaluator)
	}
	if out.Store == nil {
		out.Store = storage.NewMemoryStore()
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	if out.Publisher == nil {
		out.Publisher = events.NewMockEventPublisher(out.Logger)
	}
	if out.Clock == nil {
		out.Clock = SystemClock
	}
	if out.Scheduler == nil {
		out.Scheduler = TickerScheduler{}
	}
	return out
}

// StartOptions override the assessment's own settings for one session.
type StartOptions struct {
	RandomizeQuestions *bool                `json:"randomize_questions,omitempty"`
	RandomizeOptions   *bool                `json:"randomize_options,omitempty"`
	ScoringMethod      models.ScoringMethod `json:"scoring_method,omitempty"`
}

type StartResponse struct {
	SessionID      string               `json:"session_id"`
	AssessmentID   string               `json:"assessment_id"`
	Title          string               `json:"title"`
	Question       *models.QuestionView `json:"question"`
	TotalQuestions int                  `json:"total_questions"`
	TimeLimit      int                  `json:"time_limit"`
	ScoringMethod  models.ScoringMethod `json:"scoring_method"`
}

// SubmitResponse carries either the next question or, after the last answer, the Result.
type SubmitResponse struct {
	SessionID    string                `json:"session_id"`
	QuestionID   string                `json:"question_id"`
	Answered     int                   `json:"answered"`
	Total        int                   `json:"total"`
	Progress     int                   `json:"progress"`
	Evaluation   *questions.Evaluation `json:"evaluation,omitempty"`
	NextQuestion *models.QuestionView  `json:"next_question,omitempty"`
	Completed    bool                  `json:"completed"`
	Result       *models.Result        `json:"result,omitempty"`
}

// SessionState describes the active session, or the result of one that ended while resuming.
type SessionState struct {
	SessionID       string               `json:"session_id"`
	AssessmentID    string               `json:"assessment_id"`
	Status          models.SessionStatus `json:"status"`
	StartedAt       time.Time            `json:"started_at"`
	TimeLimit       int                  `json:"time_limit"`
	TimeRemaining   int                  `json:"time_remaining"`
	Answered        int                  `json:"answered"`
	Total           int                  `json:"total"`
	Progress        int                  `json:"progress"`
	CurrentQuestion *models.QuestionView `json:"current_question,omitempty"`
	Result          *models.Result       `json:"result,omitempty"`
}

type sessionTimer struct {
	sessionID string
	cancel    func()
}

// AssessmentEngine runs the assessment sessions of one user. At most one session is active
// at a time. All methods are safe for concurrent use.
type AssessmentEngine struct {
	userID string
	cfg    EngineConfig
	log    *ServiceLogger

	mu         sync.Mutex
	session    *models.Session
	assessment *models.AssessmentDefinition
	timer      *sessionTimer
	lastResult *models.Result
	closed     bool
}

func NewAssessmentEngine(userID string, cfg EngineConfig) *AssessmentEngine {
	cfg = cfg.withDefaults()
	return &AssessmentEngine{
		userID: userID,
		cfg:    cfg,
		log: NewServiceLogger(cfg.Logger.With("user_id", userID), LogConfig{
			Service:   "ec0249-assessment",
			Component: "assessment_engine",
		}),
	}
}

func (e *AssessmentEngine) UserID() string { return e.userID }

// ===== START =====

// Start begins a new session of assessmentID after checking attempts and prerequisites.
func (e *AssessmentEngine) Start(ctx context.Context, assessmentID string, opts StartOptions) (resp *StartResponse, err error) {
	op := e.log.WithOperation(ctx, "start_assessment", e.userID)
	defer func() { op.LogResult(assessmentID, "assessment", err) }()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrEngineClosed
	}
	if e.session != nil {
		return nil, NewBusinessRuleError(RuleSingleSession,
			"finish or resume the current assessment before starting another",
			map[string]interface{}{"session_id": e.session.ID, "assessment_id": e.session.AssessmentID},
			ErrSessionInProgress)
	}

	a, err := e.cfg.Catalog.Get(assessmentID)
	if err != nil {
		return nil, err
	}

	method := a.Settings.ScoringMethod
	if opts.ScoringMethod != "" {
		method = opts.ScoringMethod
	}
	if method == "" {
		method = models.ScoringStandard
	}
	if !method.IsValid() {
		return nil, fmt.Errorf("%w: %s", scoring.ErrUnknownScoringMethod, method)
	}

	history := e.loadHistory(ctx, a.ID)
	if a.MaxAttempts > 0 && history.Attempts >= a.MaxAttempts {
		return nil, NewBusinessRuleError(RuleMaxAttempts,
			fmt.Sprintf("maximum of %d attempts reached", a.MaxAttempts),
			map[string]interface{}{"attempts": history.Attempts, "max_attempts": a.MaxAttempts},
			ErrMaxAttemptsExceeded)
	}

	var missing []string
	for _, pre := range a.Prerequisites {
		if !e.loadHistory(ctx, pre).Passed {
			missing = append(missing, pre)
		}
	}
	if len(missing) > 0 {
		return nil, NewBusinessRuleError(RulePrerequisites,
			"pass the prerequisite assessments first",
			map[string]interface{}{"missing": missing},
			ErrPrerequisitesNotMet)
	}

	randomizeQuestions := a.Settings.RandomizeQuestions
	if opts.RandomizeQuestions != nil {
		randomizeQuestions = *opts.RandomizeQuestions
	}
	randomizeOptions := a.Settings.RandomizeOptions
	if opts.RandomizeOptions != nil {
		randomizeOptions = *opts.RandomizeOptions
	}

	now := e.cfg.Clock.Now()
	s := &models.Session{
		ID:                  uuid.NewString(),
		UserID:              e.userID,
		AssessmentID:        a.ID,
		Questions:           e.prepareQuestions(a.Questions, randomizeQuestions, randomizeOptions),
		StartedAt:           now,
		TimeLimit:           a.TimeLimit,
		TimeRemaining:       a.TimeLimit,
		Responses:           make(map[string]*models.Response),
		QuestionPresentedAt: now,
		ScoringMethod:       method,
		Status:              models.SessionInProgress,
	}

	e.session = s
	e.assessment = a
	e.saveSession(ctx)
	e.publish(ctx, events.NewAssessmentStartedEvent(events.AssessmentStartedEvent{
		SessionID:       s.ID,
		UserID:          e.userID,
		AssessmentID:    a.ID,
		AssessmentTitle: a.Title,
		QuestionCount:   len(s.Questions),
		TimeLimit:       s.TimeLimit,
		StartedAt:       now,
	}))
	e.cfg.Metrics.SessionStarted(a.ID)
	e.startTimer(ctx)

	return &StartResponse{
		SessionID:      s.ID,
		AssessmentID:   a.ID,
		Title:          a.Title,
		Question:       questions.View(&s.Questions[0], 0, len(s.Questions)),
		TotalQuestions: len(s.Questions),
		TimeLimit:      s.TimeLimit,
		ScoringMethod:  method,
	}, nil
}

// prepareQuestions copies the catalog questions, optionally shuffling their order and,
// independently, each multiple-choice question's options.
func (e *AssessmentEngine) prepareQuestions(src []models.Question, randomizeQuestions, randomizeOptions bool) []models.Question {
	out := make([]models.Question, len(src))
	for i := range src {
		out[i] = src[i].Clone()
	}
	if randomizeQuestions {
		e.shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	}
	if randomizeOptions {
		for i := range out {
			if out[i].Type == models.MultipleChoice {
				e.shuffleOptions(&out[i])
			}
		}
	}
	return out
}

// shuffleOptions permutes the options and moves CorrectIndex to follow the correct option.
func (e *AssessmentEngine) shuffleOptions(q *models.Question) {
	if q.CorrectIndex == nil {
		return
	}
	correct := *q.CorrectIndex
	e.shuffle(len(q.Options), func(i, j int) {
		q.Options[i], q.Options[j] = q.Options[j], q.Options[i]
		switch correct {
		case i:
			correct = j
		case j:
			correct = i
		}
	})
	q.CorrectIndex = &correct
}

// shuffle is a Fisher-Yates shuffle over n elements.
func (e *AssessmentEngine) shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		var j int
		if e.cfg.Rand != nil {
			j = e.cfg.Rand.IntN(i + 1)
		} else {
			j = rand.IntN(i + 1)
		}
		swap(i, j)
	}
}

// ===== ANSWERS =====

// SubmitRawAnswer decodes a JSON answer for the question's type and submits it.
func (e *AssessmentEngine) SubmitRawAnswer(ctx context.Context, sessionID, questionID string, raw json.RawMessage) (*SubmitResponse, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.activeSession(sessionID)
	if err != nil {
		return nil, err
	}
	idx := s.QuestionIndex(questionID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrQuestionNotInSession, questionID)
	}
	answer, err := questions.DecodeAnswer(s.Questions[idx].Type, raw)
	if err != nil {
		return nil, err
	}
	return e.submitLocked(ctx, sessionID, questionID, answer)
}

// SubmitAnswer records an answer. Answering the last open question completes the session.
func (e *AssessmentEngine) SubmitAnswer(ctx context.Context, sessionID, questionID string, answer models.Answer) (*SubmitResponse, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.submitLocked(ctx, sessionID, questionID, answer)
}

func (e *AssessmentEngine) submitLocked(ctx context.Context, sessionID, questionID string, answer models.Answer) (resp *SubmitResponse, err error) {
	op := e.log.WithOperation(ctx, "submit_answer", e.userID)
	defer func() { op.LogResult(questionID, "question", err) }()

	s, err := e.activeSession(sessionID)
	if err != nil {
		return nil, err
	}
	idx := s.QuestionIndex(questionID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrQuestionNotInSession, questionID)
	}
	if _, done := s.Responses[questionID]; done {
		return nil, fmt.Errorf("%w: %s", ErrQuestionAlreadyAnswered, questionID)
	}
	if answer.IsEmpty() {
		return nil, fmt.Errorf("%w: empty answer", questions.ErrInvalidAnswer)
	}

	q := &s.Questions[idx]
	evaluation, err := e.cfg.Evaluator.Evaluate(q, answer)
	if err != nil {
		return nil, err
	}

	now := e.cfg.Clock.Now()
	s.Responses[questionID] = &models.Response{
		QuestionID:  questionID,
		Answer:      answer,
		SubmittedAt: now,
		TimeSpent:   now.Sub(s.QuestionPresentedAt),
	}
	e.advance(s, idx)
	s.QuestionPresentedAt = now

	e.cfg.Metrics.AnswerSubmitted(string(q.Type))
	e.saveSession(ctx)
	e.publish(ctx, events.NewAssessmentAnsweredEvent(events.AssessmentAnsweredEvent{
		SessionID:    s.ID,
		UserID:       e.userID,
		AssessmentID: s.AssessmentID,
		QuestionID:   questionID,
		Answered:     s.AnsweredCount(),
		Total:        len(s.Questions),
		Progress:     s.Progress(),
	}))

	resp = &SubmitResponse{
		SessionID:  s.ID,
		QuestionID: questionID,
		Answered:   s.AnsweredCount(),
		Total:      len(s.Questions),
		Progress:   s.Progress(),
	}
	if e.assessment.Settings.ShowCorrectAnswers {
		resp.Evaluation = &evaluation
	}

	if s.AllAnswered() {
		result, err := e.completeLocked(ctx, models.SessionCompleted)
		if err != nil {
			return nil, err
		}
		resp.Completed = true
		resp.Result = result
		return resp, nil
	}

	resp.NextQuestion = e.currentView(s)
	return resp, nil
}

// advance moves CurrentQuestionIndex past answered to the next open question. It never moves back.
func (e *AssessmentEngine) advance(s *models.Session, answered int) {
	if answered >= s.CurrentQuestionIndex {
		s.CurrentQuestionIndex = answered + 1
	}
	for s.CurrentQuestionIndex < len(s.Questions) {
		if _, done := s.Responses[s.Questions[s.CurrentQuestionIndex].ID]; !done {
			return
		}
		s.CurrentQuestionIndex++
	}
}

// currentView is the question to present next: the current one, or the first skipped one.
func (e *AssessmentEngine) currentView(s *models.Session) *models.QuestionView {
	if q := s.CurrentQuestion(); q != nil {
		return questions.View(q, s.CurrentQuestionIndex, len(s.Questions))
	}
	for i := range s.Questions {
		if _, done := s.Responses[s.Questions[i].ID]; !done {
			return questions.View(&s.Questions[i], i, len(s.Questions))
		}
	}
	return nil
}

// ===== COMPLETION =====

// Complete scores the active session, records it in the history and clears it.
func (e *AssessmentEngine) Complete(ctx context.Context, sessionID string) (*models.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.activeSession(sessionID); err != nil {
		return nil, err
	}
	return e.completeLocked(ctx, models.SessionCompleted)
}

func (e *AssessmentEngine) completeLocked(ctx context.Context, status models.SessionStatus) (result *models.Result, err error) {
	op := e.log.WithOperation(ctx, "complete_assessment", e.userID)
	s, a := e.session, e.assessment
	defer func() { op.LogResult(s.ID, "session", err) }()

	now := e.cfg.Clock.Now()
	elapsed := now.Sub(s.StartedAt)

	// Score against the session's questions: option shuffling moved the correct indexes.
	def := *a
	def.Questions = s.Questions
	score, err := e.cfg.Scorer.Calculate(&def, s.Responses, scoring.Options{
		Method:              s.ScoringMethod,
		CompetencyThreshold: a.Settings.CompetencyThreshold,
		TimeSpent:           elapsed,
	})
	if err != nil {
		return nil, err
	}

	e.stopTimer()
	s.Status = status

	result = &models.Result{
		SessionID:     s.ID,
		AssessmentID:  s.AssessmentID,
		UserID:        e.userID,
		Score:         *score,
		Status:        status,
		StartedAt:     s.StartedAt,
		CompletedAt:   now,
		Duration:      elapsed,
		AnsweredCount: s.AnsweredCount(),
		QuestionCount: len(s.Questions),
	}

	history := e.loadHistory(ctx, s.AssessmentID)
	history.Record(result)
	e.save(ctx, "save_result", storage.ResultKey(s.ID), result)
	e.save(ctx, "save_history", storage.HistoryKey(e.userID, s.AssessmentID), history)
	if err := e.cfg.Store.Remove(ctx, storage.SessionKey(e.userID)); err != nil {
		e.storageFailed(ctx, "remove_session", err)
	}

	e.publish(ctx, events.NewAssessmentCompletedEvent(events.AssessmentCompletedEvent{
		SessionID:    s.ID,
		UserID:       e.userID,
		AssessmentID: s.AssessmentID,
		Status:       string(status),
		Percentage:   score.Percentage,
		FinalScore:   score.FinalScore,
		Passed:       score.Passed,
		GradeLetter:  score.GradeLetter,
		Duration:     int(elapsed.Seconds()),
		CompletedAt:  now,
	}))
	e.publishAchievements(ctx, result)
	e.cfg.Metrics.SessionCompleted(s.AssessmentID, string(status), score.Passed, score.Percentage)

	e.session = nil
	e.assessment = nil
	e.lastResult = result
	return result, nil
}

func (e *AssessmentEngine) publishAchievements(ctx context.Context, r *models.Result) {
	data := events.AchievementEvent{
		SessionID:    r.SessionID,
		UserID:       r.UserID,
		AssessmentID: r.AssessmentID,
		Percentage:   r.Score.Percentage,
	}
	if r.Score.Percentage == perfectScore {
		e.publish(ctx, events.NewAchievementEvent(events.EventPerfectScore, data))
	}
	if r.Score.Percentage >= highPerformance {
		e.publish(ctx, events.NewAchievementEvent(events.EventHighPerformance, data))
	}
	if r.Score.Passed && modulePattern.MatchString(r.AssessmentID) {
		e.publish(ctx, events.NewAchievementEvent(events.EventModulePassed, data))
	}
}

// ===== TIMER =====

// Tick advances the active session's countdown by one second. When it reaches zero the
// session completes as time_expired. Untimed or absent sessions are left alone.
func (e *AssessmentEngine) Tick(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return nil
	}
	return e.tickLocked(ctx, e.session.ID)
}

func (e *AssessmentEngine) tickLocked(ctx context.Context, sessionID string) error {
	s := e.session
	if s == nil || s.ID != sessionID || s.Status != models.SessionInProgress || !s.IsTimed() {
		return nil
	}

	if s.TimeRemaining > 0 {
		s.TimeRemaining--
	}
	e.publish(ctx, events.NewTimerTickEvent(s.ID, e.userID, s.TimeRemaining))

	if s.TimeRemaining == 0 {
		_, err := e.completeLocked(ctx, models.SessionTimeExpired)
		return err
	}

	if !s.TimeWarningSent && s.TimeRemaining <= e.warningThreshold() {
		s.TimeWarningSent = true
		e.publish(ctx, events.NewTimeWarningEvent(s.ID, e.userID, s.AssessmentID, s.TimeRemaining))
	}
	return nil
}

// warningThreshold is the remaining time, in seconds, at which the time warning fires.
func (e *AssessmentEngine) warningThreshold() int {
	if e.assessment.TimeWarning > 0 {
		return e.assessment.TimeWarning
	}
	return min(defaultTimeWarning, e.session.TimeLimit/10)
}

func (e *AssessmentEngine) startTimer(ctx context.Context) {
	s := e.session
	if !s.IsTimed() {
		return
	}
	base := context.WithoutCancel(ctx)
	sessionID := s.ID
	e.timer = &sessionTimer{
		sessionID: sessionID,
		cancel: e.cfg.Scheduler.Every(tickInterval, func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if err := e.tickLocked(base, sessionID); err != nil {
				e.log.Logger().Error("Timer tick failed", "session_id", sessionID, "error", err)
			}
		}),
	}
}

func (e *AssessmentEngine) stopTimer() {
	if e.timer != nil {
		e.timer.cancel()
		e.timer = nil
	}
}

// ExtendTime adds seconds to the active timed session and returns the new remaining time.
func (e *AssessmentEngine) ExtendTime(ctx context.Context, sessionID string, seconds int) (remaining int, err error) {
	op := e.log.WithOperation(ctx, "extend_time", e.userID)
	defer func() { op.LogResult(sessionID, "session", err) }()

	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.activeSession(sessionID)
	if err != nil {
		return 0, err
	}
	if seconds <= 0 {
		return 0, ValidationErrors{*NewValidationError("seconds", "Extension must be a positive number of seconds", seconds)}
	}
	if !s.IsTimed() {
		return 0, NewBusinessRuleError(RuleTimedExtension, "untimed sessions cannot be extended",
			map[string]interface{}{"session_id": s.ID}, ErrSessionNotTimed)
	}

	s.TimeLimit += seconds
	s.TimeRemaining += seconds
	if s.TimeRemaining > e.warningThreshold() {
		s.TimeWarningSent = false
	}
	e.saveSession(ctx)
	return s.TimeRemaining, nil
}

// ===== QUERIES =====

// CurrentSession describes the active session.
func (e *AssessmentEngine) CurrentSession() (*SessionState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return nil, ErrSessionNotFound
	}
	return e.stateLocked(), nil
}

// Progress returns the answered percentage of the active session.
func (e *AssessmentEngine) Progress() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return 0, ErrSessionNotFound
	}
	return e.session.Progress(), nil
}

func (e *AssessmentEngine) stateLocked() *SessionState {
	s := e.session
	return &SessionState{
		SessionID:       s.ID,
		AssessmentID:    s.AssessmentID,
		Status:          s.Status,
		StartedAt:       s.StartedAt,
		TimeLimit:       s.TimeLimit,
		TimeRemaining:   s.TimeRemaining,
		Answered:        s.AnsweredCount(),
		Total:           len(s.Questions),
		Progress:        s.Progress(),
		CurrentQuestion: e.currentView(s),
	}
}

// History returns the user's attempt record for assessmentID, empty when there is none.
func (e *AssessmentEngine) History(ctx context.Context, assessmentID string) (*models.History, error) {
	if _, err := e.cfg.Catalog.Get(assessmentID); err != nil {
		return nil, err
	}
	return e.loadHistory(ctx, assessmentID), nil
}

// Result returns a completed session's result.
func (e *AssessmentEngine) Result(ctx context.Context, sessionID string) (*models.Result, error) {
	e.mu.Lock()
	last := e.lastResult
	e.mu.Unlock()

	if last != nil && last.SessionID == sessionID {
		return last, nil
	}

	var result models.Result
	err := storage.GetJSON(ctx, e.cfg.Store, storage.ResultKey(sessionID), &result)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrResultNotFound, sessionID)
	}
	if err != nil {
		e.storageFailed(ctx, "load_result", err)
		return nil, fmt.Errorf("%w: %s", ErrResultNotFound, sessionID)
	}
	if result.UserID != e.userID {
		return nil, fmt.Errorf("%w: %s", ErrResultNotFound, sessionID)
	}
	return &result, nil
}

// ===== RESUME / SHUTDOWN =====

// Resume restores the user's persisted in-progress session. A snapshot whose time ran out
// while suspended completes immediately as time_expired and its Result is returned.
func (e *AssessmentEngine) Resume(ctx context.Context) (state *SessionState, err error) {
	op := e.log.WithOperation(ctx, "resume_assessment", e.userID)
	defer func() { op.LogResult("", "session", err) }()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrEngineClosed
	}
	if e.session != nil {
		return e.stateLocked(), nil
	}

	var s models.Session
	err = storage.GetJSON(ctx, e.cfg.Store, storage.SessionKey(e.userID), &s)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		e.storageFailed(ctx, "load_session", err)
		return nil, ErrSessionNotFound
	}
	if s.Status != models.SessionInProgress || s.UserID != e.userID {
		e.removeSession(ctx)
		return nil, ErrSessionNotFound
	}

	a, err := e.cfg.Catalog.Get(s.AssessmentID)
	if err != nil {
		e.removeSession(ctx)
		return nil, err
	}
	if s.Responses == nil {
		s.Responses = make(map[string]*models.Response)
	}

	now := e.cfg.Clock.Now()
	if s.IsTimed() {
		suspended := int(now.Sub(s.UpdatedAt).Seconds())
		s.TimeRemaining = max(0, s.TimeRemaining-suspended)
	}
	s.QuestionPresentedAt = now

	e.session = &s
	e.assessment = a
	e.cfg.Metrics.SessionResumed()

	if s.IsTimed() && s.TimeRemaining == 0 {
		expired := e.stateLocked()
		result, err := e.completeLocked(ctx, models.SessionTimeExpired)
		if err != nil {
			return nil, err
		}
		expired.Status = result.Status
		expired.CurrentQuestion = nil
		expired.Result = result
		return expired, nil
	}

	e.saveSession(ctx)
	e.startTimer(ctx)
	return e.stateLocked(), nil
}

// Close stops the timer and persists any in-flight session so it can be resumed.
// The engine rejects new sessions afterwards.
func (e *AssessmentEngine) Close(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	e.stopTimer()
	if e.session != nil {
		e.saveSession(ctx)
		e.cfg.Metrics.SessionSuspended()
		e.session = nil
		e.assessment = nil
	}
	return nil
}

// ===== HELPERS =====

func (e *AssessmentEngine) activeSession(sessionID string) (*models.Session, error) {
	if e.session == nil || e.session.ID != sessionID || e.session.Status != models.SessionInProgress {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return e.session, nil
}

func (e *AssessmentEngine) loadHistory(ctx context.Context, assessmentID string) *models.History {
	history := &models.History{UserID: e.userID, AssessmentID: assessmentID}
	err := storage.GetJSON(ctx, e.cfg.Store, storage.HistoryKey(e.userID, assessmentID), history)
	if err != nil && !errors.Is(err, storage.ErrKeyNotFound) {
		e.storageFailed(ctx, "load_history", err)
		return &models.History{UserID: e.userID, AssessmentID: assessmentID}
	}
	return history
}

func (e *AssessmentEngine) saveSession(ctx context.Context) {
	e.session.UpdatedAt = e.cfg.Clock.Now()
	e.save(ctx, "save_session", storage.SessionKey(e.userID), e.session)
}

func (e *AssessmentEngine) removeSession(ctx context.Context) {
	if err := e.cfg.Store.Remove(ctx, storage.SessionKey(e.userID)); err != nil {
		e.storageFailed(ctx, "remove_session", err)
	}
}

// save persists value. Failures are logged and do not fail the operation.
func (e *AssessmentEngine) save(ctx context.Context, operation, key string, value interface{}) {
	if err := storage.SetJSON(ctx, e.cfg.Store, key, value); err != nil {
		e.storageFailed(ctx, operation, err)
	}
}

func (e *AssessmentEngine) storageFailed(ctx context.Context, operation string, err error) {
	e.cfg.Metrics.StorageFailure(operation)
	e.log.Logger().WarnContext(ctx, "Storage operation failed, continuing without it",
		"operation", operation,
		"error", err)
}

func (e *AssessmentEngine) publish(ctx context.Context, event *events.NotificationEvent) {
	if err := e.cfg.Publisher.PublishNotificationEvent(ctx, event); err != nil {
		e.log.Logger().WarnContext(ctx, "Failed to publish notification event",
			"event_type", event.Type,
			"error", err)
	}
}
