package assemble

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/viberoam/restaurant-scraper/internal/scrape"
)

// Persister serializes ScrapeRecords and writes them through a BlobStore.
type Persister struct {
	store       scrape.BlobStore
	prefix      string
	contentType string
	logger      *zap.Logger
}

// NewPersister builds a Persister. prefix defaults to "scraped_data".
func NewPersister(store scrape.BlobStore, prefix, contentType string, logger *zap.Logger) *Persister {
	if prefix == "" {
		prefix = "scraped_data"
	}
	if contentType == "" {
		contentType = "application/json; charset=utf-8"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Persister{
		store:       store,
		prefix:      prefix,
		contentType: contentType,
		logger:      logger,
	}
}

// Persist writes the record as indented UTF-8 JSON at its deterministic key.
// Write failures are captured in the outcome, never raised: the invocation
// completes either way.
func (p *Persister) Persist(ctx context.Context, rec scrape.ScrapeRecord) scrape.PersistOutcome {
	key := StorageKey(p.prefix, rec.ScrapedAt, rec.Target)

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		p.logger.Error("marshal scrape record failed", zap.String("key", key), zap.Error(err))
		return scrape.PersistOutcome{Key: key, Error: "marshal record: " + err.Error()}
	}

	uri, err := p.store.PutObject(ctx, key, p.contentType, data)
	if err != nil {
		p.logger.Error("persist scrape record failed", zap.String("key", key), zap.Error(err))
		return scrape.PersistOutcome{Key: key, Error: err.Error()}
	}

	p.logger.Info("scrape record persisted", zap.String("key", key), zap.String("uri", uri))
	return scrape.PersistOutcome{Success: true, Key: key, URI: uri}
}
