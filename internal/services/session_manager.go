package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/SAP-F-2025/ec0249-assessment/internal/catalog"
	"github.com/SAP-F-2025/ec0249-assessment/internal/events"
	"github.com/SAP-F-2025/ec0249-assessment/internal/models"
)

// SessionManager keeps one AssessmentEngine per user and routes inbound commands to them.
type SessionManager struct {
	cfg EngineConfig

	mu      sync.Mutex
	engines map[string]*AssessmentEngine
	closed  bool
}

func NewSessionManager(cfg EngineConfig) *SessionManager {
	return &SessionManager{
		cfg:     cfg.withDefaults(),
		engines: make(map[string]*AssessmentEngine),
	}
}

func (m *SessionManager) Catalog() *catalog.Catalog {
	return m.cfg.Catalog
}

// Engine returns the user's engine, creating it on first use.
func (m *SessionManager) Engine(userID string) (*AssessmentEngine, error) {
	if userID == "" {
		return nil, ValidationErrors{*NewValidationError("user_id", "User ID is required", userID)}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrEngineClosed
	}
	e, ok := m.engines[userID]
	if !ok {
		e = NewAssessmentEngine(userID, m.cfg)
		m.engines[userID] = e
	}
	return e, nil
}

// HandleCommand executes a start, submit or complete command for the command's user.
func (m *SessionManager) HandleCommand(ctx context.Context, cmd *events.Command) error {
	e, err := m.Engine(cmd.UserID)
	if err != nil {
		return err
	}

	switch cmd.Type {
	case events.CommandStart:
		_, err = e.Start(ctx, cmd.AssessmentID, StartOptions{
			RandomizeQuestions: cmd.RandomizeQuestions,
			RandomizeOptions:   cmd.RandomizeOptions,
			ScoringMethod:      models.ScoringMethod(cmd.ScoringMethod),
		})
	case events.CommandSubmit:
		_, err = e.SubmitRawAnswer(ctx, cmd.SessionID, cmd.QuestionID, cmd.Answer)
	case events.CommandComplete:
		_, err = e.Complete(ctx, cmd.SessionID)
	default:
		err = fmt.Errorf("%w: %q", events.ErrUnknownCommand, cmd.Type)
	}
	return err
}

// ActiveSessions counts users with a session in progress.
func (m *SessionManager) ActiveSessions() int {
	m.mu.Lock()
	engines := make([]*AssessmentEngine, 0, len(m.engines))
	for _, e := range m.engines {
		engines = append(engines, e)
	}
	m.mu.Unlock()

	active := 0
	for _, e := range engines {
		if _, err := e.CurrentSession(); err == nil {
			active++
		}
	}
	return active
}

// Close shuts down every engine, persisting their in-flight sessions.
func (m *SessionManager) Close(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	engines := m.engines
	m.engines = make(map[string]*AssessmentEngine)
	m.mu.Unlock()

	var errs []error
	for _, e := range engines {
		if err := e.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
