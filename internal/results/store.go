// Package results reads the persisted analysis payload and drives the
// result view and its keyword chat.
package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"signaware-client/internal/gateway"
	"signaware-client/internal/shared/storage/kv"
)

var (
	// ErrNoResult means no analysis has been stored yet.
	ErrNoResult = errors.New("no analysis result stored")
	// ErrMalformedResult means the stored blob could not be decoded.
	ErrMalformedResult = errors.New("stored analysis result is unreadable")
)

// Store persists the most recent analysis payload under kv.KeyAnalysisResult.
type Store struct {
	kv kv.Store
}

// NewStore wraps a kv.Store.
func NewStore(store kv.Store) *Store {
	return &Store{kv: store}
}

// Save replaces the stored payload.
func (s *Store) Save(ctx context.Context, a gateway.Analysis) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}
	if err := s.kv.Set(ctx, kv.KeyAnalysisResult, string(raw)); err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	return nil
}

// Load returns the stored payload. A stored JSON null counts as no result.
func (s *Store) Load(ctx context.Context) (gateway.Analysis, error) {
	raw, err := s.kv.Get(ctx, kv.KeyAnalysisResult)
	if errors.Is(err, kv.ErrNotFound) {
		return gateway.Analysis{}, ErrNoResult
	}
	if err != nil {
		return gateway.Analysis{}, fmt.Errorf("load analysis: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return gateway.Analysis{}, ErrNoResult
	}
	var a gateway.Analysis
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return gateway.Analysis{}, fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}
	return a, nil
}

// Clear removes the stored payload.
func (s *Store) Clear(ctx context.Context) error {
	return s.kv.Delete(ctx, kv.KeyAnalysisResult)
}
