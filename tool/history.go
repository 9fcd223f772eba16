package tool

import (
	"context"
	"errors"
	"sync"
)

const defaultHistoryLimit = 20

// HistoryStore persists coordinator summaries.
type HistoryStore interface {
	Append(ctx context.Context, summary Summary) error
	// List returns up to limit summaries, newest first. limit <= 0 uses a default.
	List(ctx context.Context, limit int) ([]Summary, error)
}

// MemoryHistoryStore keeps summaries in process memory.
type MemoryHistoryStore struct {
	mu        sync.RWMutex
	summaries []Summary
}

// NewMemoryHistoryStore creates an empty in-memory store.
func NewMemoryHistoryStore() *MemoryHistoryStore {
	return &MemoryHistoryStore{}
}

// Append stores a copy of summary.
func (s *MemoryHistoryStore) Append(ctx context.Context, summary Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil {
		return errors.New("tool: memory history store is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries = append(s.summaries, cloneSummary(summary))
	return nil
}

// List returns stored summaries, newest first.
func (s *MemoryHistoryStore) List(ctx context.Context, limit int) ([]Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil {
		return nil, errors.New("tool: memory history store is nil")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Summary, 0, min(limit, len(s.summaries)))
	for i := len(s.summaries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, cloneSummary(s.summaries[i]))
	}
	return out, nil
}

func cloneSummary(summary Summary) Summary {
	out := summary
	out.Outcomes = append([]Outcome(nil), summary.Outcomes...)
	return out
}

var (
	_ HistoryStore = (*MemoryHistoryStore)(nil)
	_ HistoryStore = (*SQLiteHistoryStore)(nil)
)
