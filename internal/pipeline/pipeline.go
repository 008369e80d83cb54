// Package pipeline orchestrates one scrape invocation end to end: select a
// target, fetch its page, extract fields, persist the record, and emit
// advisory side effects.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/viberoam/restaurant-scraper/internal/assemble"
	"github.com/viberoam/restaurant-scraper/internal/extract"
	"github.com/viberoam/restaurant-scraper/internal/scrape"
)

// Config carries the pipeline's non-dependency settings.
type Config struct {
	// Topic is the Pub/Sub topic for completion events. Empty disables
	// publishing.
	Topic string
}

// Pipeline wires the selector, fetcher, persister, and advisory sinks into a
// single Run entrypoint. All dependencies are required except metrics.
type Pipeline struct {
	selector  scrape.Selector
	fetcher   scrape.Fetcher
	persister *assemble.Persister
	history   scrape.HistoryStore
	publisher scrape.Publisher
	clock     scrape.Clock
	ids       scrape.IDGenerator
	metrics   *Metrics
	logger    *zap.Logger
	topic     string
}

// New builds a Pipeline.
func New(
	selector scrape.Selector,
	fetcher scrape.Fetcher,
	persister *assemble.Persister,
	history scrape.HistoryStore,
	publisher scrape.Publisher,
	clock scrape.Clock,
	ids scrape.IDGenerator,
	metrics *Metrics,
	logger *zap.Logger,
	cfg Config,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		selector:  selector,
		fetcher:   fetcher,
		persister: persister,
		history:   history,
		publisher: publisher,
		clock:     clock,
		ids:       ids,
		metrics:   metrics,
		logger:    logger,
		topic:     cfg.Topic,
	}
}

// Run executes one full scrape invocation. It never panics and never returns
// an error: every path, including internal panics, yields a well-formed
// Outcome describing what happened.
func (p *Pipeline) Run(ctx context.Context) (outcome scrape.Outcome) {
	started := p.clock.Now()
	var runID string

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("pipeline panic recovered", zap.Any("panic", r))
			outcome = scrape.Outcome{
				RunID:      runID,
				Error:      fmt.Sprintf("internal error: %v", r),
				FinishedAt: p.clock.Now(),
			}
			p.metrics.observeRun(false, 0, false, false, p.clock.Now().Sub(started))
		}
	}()

	runID, err := p.ids.NewID()
	if err != nil {
		// UUID generation only fails when the entropy source does; fall
		// back to a timestamp so the run stays traceable.
		runID = "run-" + started.UTC().Format("20060102150405.000000000")
		p.logger.Warn("run id generation failed", zap.Error(err))
	}
	logger := p.logger.With(zap.String("run_id", runID))

	target := p.selector.SelectTarget(ctx)
	logger.Info("target selected",
		zap.String("target_id", target.ID),
		zap.String("target_name", target.Name),
		zap.String("url", target.URL))

	fetch := p.fetcher.Fetch(ctx, target.URL)

	var structured, heuristic scrape.Fields
	if fetch.Succeeded() {
		structured, _ = extract.Structured(fetch.Body)
		heuristic = extract.Heuristic(fetch.Body)
	}

	scrapedAt := p.clock.Now()
	rec := assemble.Record(runID, target, fetch, structured, heuristic, scrapedAt)

	persisted := p.persister.Persist(ctx, rec)

	p.recordHistory(ctx, logger, rec, persisted)
	p.publishCompletion(ctx, logger, rec, persisted)
	p.selector.ReportOutcome(ctx, target, rec.Success, rec.Error)

	outcome = scrape.Outcome{
		Success:    rec.Success && persisted.Success,
		RunID:      runID,
		TargetID:   target.ID,
		TargetName: target.Name,
		StorageKey: persisted.Key,
		BlobURI:    persisted.URI,
		Persisted:  persisted.Success,
		Attempts:   fetch.Attempts,
		FinishedAt: p.clock.Now(),
	}
	if !outcome.Success {
		outcome.Error = rec.Error
		if outcome.Error == "" {
			outcome.Error = persisted.Error
		}
	}

	p.metrics.observeRun(outcome.Success, fetch.Attempts, fetch.UsedHeadless, !persisted.Success, outcome.FinishedAt.Sub(started))
	logger.Info("pipeline run finished",
		zap.Bool("success", outcome.Success),
		zap.Bool("persisted", outcome.Persisted),
		zap.Int("attempts", outcome.Attempts),
		zap.String("storage_key", outcome.StorageKey))
	return outcome
}

// recordHistory writes the advisory history row. Failures are logged and
// swallowed.
func (p *Pipeline) recordHistory(ctx context.Context, logger *zap.Logger, rec scrape.ScrapeRecord, persisted scrape.PersistOutcome) {
	if p.history == nil {
		return
	}
	row := scrape.HistoryRecord{
		RunID:      rec.RunID,
		TargetID:   rec.Target.ID,
		TargetName: rec.Target.Name,
		URL:        rec.Target.URL,
		StorageKey: persisted.Key,
		BlobURI:    persisted.URI,
		Success:    rec.Success,
		HTTPStatus: rec.HTTPStatus,
		Attempts:   rec.Attempts,
		Error:      rec.Error,
		ScrapedAt:  rec.ScrapedAt,
	}
	if err := p.history.RecordScrape(ctx, row); err != nil {
		logger.Warn("history write failed", zap.Error(err))
	}
}

// publishCompletion emits the completion event. Failures are logged and
// swallowed.
func (p *Pipeline) publishCompletion(ctx context.Context, logger *zap.Logger, rec scrape.ScrapeRecord, persisted scrape.PersistOutcome) {
	if p.publisher == nil || p.topic == "" {
		return
	}
	event := scrape.CompletionEvent{
		RunID:      rec.RunID,
		TargetID:   rec.Target.ID,
		TargetName: rec.Target.Name,
		StorageKey: persisted.Key,
		BlobURI:    persisted.URI,
		Success:    rec.Success,
		ScrapedAt:  rec.ScrapedAt,
	}
	if _, err := p.publisher.Publish(ctx, p.topic, event); err != nil {
		logger.Warn("completion publish failed", zap.Error(err))
	}
}
