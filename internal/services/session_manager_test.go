package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/SAP-F-2025/ec0249-assessment/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionManager_EnginePerUser(t *testing.T) {
	f := newFixture(t)
	m := NewSessionManager(f.cfg)

	a1, err := m.Engine("ana")
	require.NoError(t, err)
	a2, err := m.Engine("ana")
	require.NoError(t, err)
	b, err := m.Engine("ben")
	require.NoError(t, err)

	assert.Same(t, a1, a2)
	assert.NotSame(t, a1, b)
	assert.Equal(t, "ben", b.UserID())

	_, err = m.Engine("")
	assert.True(t, IsValidation(err))
}

func TestSessionManager_HandleCommands(t *testing.T) {
	f := newFixture(t)
	m := NewSessionManager(f.cfg)
	ctx := context.Background()

	require.NoError(t, m.HandleCommand(ctx, &events.Command{
		Type:         events.CommandStart,
		UserID:       "ana",
		AssessmentID: "quiz",
	}))
	assert.Equal(t, 1, m.ActiveSessions())

	e, err := m.Engine("ana")
	require.NoError(t, err)
	state, err := e.CurrentSession()
	require.NoError(t, err)

	require.NoError(t, m.HandleCommand(ctx, &events.Command{
		Type:       events.CommandSubmit,
		UserID:     "ana",
		SessionID:  state.SessionID,
		QuestionID: "q1",
		Answer:     json.RawMessage(`1`),
	}))

	err = m.HandleCommand(ctx, &events.Command{
		Type:       events.CommandSubmit,
		UserID:     "ana",
		SessionID:  state.SessionID,
		QuestionID: "q2",
		Answer:     json.RawMessage(`"yes"`),
	})
	assert.True(t, IsValidation(err))

	require.NoError(t, m.HandleCommand(ctx, &events.Command{
		Type:      events.CommandComplete,
		UserID:    "ana",
		SessionID: state.SessionID,
	}))
	assert.Zero(t, m.ActiveSessions())

	result, err := e.Result(ctx, state.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 50, result.Score.Percentage)

	err = m.HandleCommand(ctx, &events.Command{Type: "pause", UserID: "ana"})
	assert.ErrorIs(t, err, events.ErrUnknownCommand)
}

func TestSessionManager_StartOverrides(t *testing.T) {
	f := newFixture(t)
	m := NewSessionManager(f.cfg)
	ctx := context.Background()

	err := m.HandleCommand(ctx, &events.Command{
		Type:          events.CommandStart,
		UserID:        "ana",
		AssessmentID:  "quiz",
		ScoringMethod: "bell_curve",
	})
	assert.True(t, IsValidation(err))
	assert.Zero(t, m.ActiveSessions())

	require.NoError(t, m.HandleCommand(ctx, &events.Command{
		Type:          events.CommandStart,
		UserID:        "ana",
		AssessmentID:  "quiz",
		ScoringMethod: "competency",
	}))
	e, err := m.Engine("ana")
	require.NoError(t, err)
	assert.Equal(t, "competency", string(e.session.ScoringMethod))
}

func TestSessionManager_CloseSuspendsSessions(t *testing.T) {
	f := newFixture(t)
	m := NewSessionManager(f.cfg)
	ctx := context.Background()

	require.NoError(t, m.HandleCommand(ctx, &events.Command{Type: events.CommandStart, UserID: "ana", AssessmentID: "timed"}))
	require.NoError(t, m.HandleCommand(ctx, &events.Command{Type: events.CommandStart, UserID: "ben", AssessmentID: "quiz"}))
	assert.Equal(t, 2, m.ActiveSessions())
	assert.Equal(t, 1, f.scheduler.Active())

	require.NoError(t, m.Close(ctx))
	assert.Zero(t, m.ActiveSessions())
	assert.Zero(t, f.scheduler.Active())

	_, err := m.Engine("ana")
	assert.ErrorIs(t, err, ErrEngineClosed)

	restarted := NewSessionManager(f.cfg)
	e, err := restarted.Engine("ana")
	require.NoError(t, err)
	state, err := e.Resume(ctx)
	require.NoError(t, err)
	assert.Equal(t, "timed", state.AssessmentID)
	assert.Equal(t, 60, state.TimeRemaining)
}
