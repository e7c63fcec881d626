// Package storage provides the key-value stores sessions, results and history are persisted to.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrKeyNotFound = errors.New("key not found")

// Store is a JSON-friendly key-value store. Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// GetJSON loads key into dest. It returns ErrKeyNotFound when the key is absent.
func GetJSON(ctx context.Context, s Store, key string, dest interface{}) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func SetJSON(ctx context.Context, s Store, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}

// Keys under which the assessment engine persists its state.

func SessionKey(userID string) string {
	return "assessment_session:" + userID
}

func ResultKey(sessionID string) string {
	return "assessment_result:" + sessionID
}

func HistoryKey(userID, assessmentID string) string {
	return "assessment_history:" + userID + ":" + assessmentID
}
