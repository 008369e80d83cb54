// Package memory provides an in-memory history store for development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/viberoam/restaurant-scraper/internal/scrape"
)

// Store keeps scrape history rows in memory.
type Store struct {
	mu   sync.RWMutex
	rows []scrape.HistoryRecord
}

// NewStore creates an empty in-memory history store.
func NewStore() *Store {
	return &Store{}
}

// RecordScrape appends the row to the in-memory log.
func (s *Store) RecordScrape(_ context.Context, rec scrape.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, rec)
	return nil
}

// Records returns a copy of all stored rows.
func (s *Store) Records() []scrape.HistoryRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]scrape.HistoryRecord, len(s.rows))
	copy(out, s.rows)
	return out
}
