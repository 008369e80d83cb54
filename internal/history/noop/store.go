// Package noop provides a history store that discards all rows.
package noop

import (
	"context"

	"github.com/viberoam/restaurant-scraper/internal/scrape"
)

// Store discards every history row.
type Store struct{}

// NewStore creates a no-op history store.
func NewStore() Store { return Store{} }

// RecordScrape discards the row.
func (Store) RecordScrape(context.Context, scrape.HistoryRecord) error { return nil }
