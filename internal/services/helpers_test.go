package services

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/SAP-F-2025/ec0249-assessment/internal/catalog"
	"github.com/SAP-F-2025/ec0249-assessment/internal/events"
	"github.com/SAP-F-2025/ec0249-assessment/internal/storage"
	"github.com/stretchr/testify/require"
)

const testCatalog = `{
  "version": "test",
  "assessments": [
    {
      "id": "quiz",
      "title": "Two question quiz",
      "passing_score": 70,
      "max_attempts": 2,
      "questions": [
        {"id": "q1", "type": "multiple_choice", "prompt": "Pick b", "points": 10, "options": ["a", "b", "c"], "correct_index": 1},
        {"id": "q2", "type": "true_false", "prompt": "True?", "points": 10, "correct_bool": true}
      ]
    },
    {
      "id": "timed",
      "title": "Timed quiz",
      "time_limit": 60,
      "questions": [
        {"id": "t1", "type": "true_false", "prompt": "1", "points": 10, "correct_bool": true},
        {"id": "t2", "type": "true_false", "prompt": "2", "points": 10, "correct_bool": true},
        {"id": "t3", "type": "true_false", "prompt": "3", "points": 10, "correct_bool": true}
      ]
    },
    {
      "id": "module1_quiz",
      "title": "Module 1 quiz",
      "module": "module1",
      "questions": [
        {"id": "m1", "type": "true_false", "prompt": "1", "points": 10, "correct_bool": true},
        {"id": "m2", "type": "true_false", "prompt": "2", "points": 10, "correct_bool": false}
      ]
    },
    {
      "id": "advanced",
      "title": "Advanced",
      "prerequisites": ["module1_quiz"],
      "questions": [
        {"id": "a1", "type": "true_false", "prompt": "1", "points": 10, "correct_bool": true}
      ]
    },
    {
      "id": "shuffled",
      "title": "Shuffled",
      "settings": {"randomize_questions": true, "randomize_options": true},
      "questions": [
        {"id": "s1", "type": "multiple_choice", "prompt": "1", "points": 10, "options": ["a", "b", "c", "d", "e"], "correct_index": 0},
        {"id": "s2", "type": "multiple_choice", "prompt": "2", "points": 10, "options": ["f", "g", "h", "i"], "correct_index": 3},
        {"id": "s3", "type": "true_false", "prompt": "3", "points": 10, "correct_bool": true},
        {"id": "s4", "type": "short_answer", "prompt": "4", "points": 10, "sample_answer": "alpha beta gamma delta"},
        {"id": "s5", "type": "essay", "prompt": "5", "points": 10, "rubric": [{"criterion": "clarity", "points": 10}]}
      ]
    },
    {
      "id": "feedback",
      "title": "With feedback",
      "settings": {"show_correct_answers": true, "scoring_method": "weighted"},
      "questions": [
        {"id": "f1", "type": "short_answer", "prompt": "Phases", "points": 10, "sample_answer": "alpha beta gamma delta"},
        {"id": "f2", "type": "true_false", "prompt": "2", "points": 10, "correct_bool": true}
      ]
    }
  ]
}`

var testStart = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fixture struct {
	cfg       EngineConfig
	store     storage.Store
	publisher *events.MockEventPublisher
	scheduler *ManualScheduler
	clock     *FakeClock
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithStore(t, storage.NewMemoryStore())
}

func newFixtureWithStore(t *testing.T, store storage.Store) *fixture {
	t.Helper()

	c, err := catalog.Load(strings.NewReader(testCatalog), nil)
	require.NoError(t, err)

	logger := testLogger()
	f := &fixture{
		store:     store,
		publisher: events.NewMockEventPublisher(logger),
		scheduler: NewManualScheduler(),
		clock:     NewFakeClock(testStart),
	}
	f.cfg = EngineConfig{
		Catalog:   c,
		Store:     store,
		Publisher: f.publisher,
		Logger:    logger,
		Clock:     f.clock,
		Scheduler: f.scheduler,
		Rand:      rand.New(rand.NewPCG(1, 2)),
	}
	return f
}

func (f *fixture) engine(userID string) *AssessmentEngine {
	return NewAssessmentEngine(userID, f.cfg)
}

func (f *fixture) eventTypes() []events.EventType {
	var out []events.EventType
	for _, e := range f.publisher.GetPublishedEvents() {
		out = append(out, e.Type)
	}
	return out
}

var errStoreDown = errors.New("store unavailable")

// failingStore fails every operation.
type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, error) { return nil, errStoreDown }
func (failingStore) Set(context.Context, string, []byte) error   { return errStoreDown }
func (failingStore) Remove(context.Context, string) error        { return errStoreDown }
