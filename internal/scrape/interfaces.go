package scrape

import (
	"context"
	"time"
)

// Selector picks the restaurant to scrape and reports outcomes back to the
// catalog. SelectTarget must always return a usable Target; implementations
// degrade to a fallback rather than erroring.
type Selector interface {
	SelectTarget(ctx context.Context) Target
	// ReportOutcome is advisory and best-effort; implementations swallow
	// failures.
	ReportOutcome(ctx context.Context, target Target, success bool, errText string)
}

// Fetcher retrieves the target page. The returned FetchResult encodes failure
// as data and never carries an error past this boundary.
type Fetcher interface {
	Fetch(ctx context.Context, url string) FetchResult
}

// PageFetcher performs a single HTTP attempt. It sits below the retry loop.
type PageFetcher interface {
	FetchOnce(ctx context.Context, url string) (status int, body []byte, err error)
}

// BlobStore writes the serialized record and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// HistoryStore records per-run metadata. Writes are advisory.
type HistoryStore interface {
	RecordScrape(ctx context.Context, rec HistoryRecord) error
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
