// Package scrape defines core types shared across subsystems.
package scrape

import "time"

// Target identifies one restaurant to scrape, as returned by the catalog API.
// A Target is immutable once selected.
type Target struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	URL     string `json:"url"`
	City    string `json:"city"`
	Country string `json:"country"`
}

// FetchStatus reports whether a fetch sequence ultimately succeeded.
type FetchStatus string

// Fetch status values recorded in FetchResult.
const (
	FetchSuccess FetchStatus = "success"
	FetchFailure FetchStatus = "failure"
)

// FetchResult is the outcome of one fetch attempt sequence against the target
// page. Failure is data, not an error: the fetch client never propagates an
// error past its boundary.
type FetchResult struct {
	Status       FetchStatus `json:"status"`
	HTTPStatus   int         `json:"http_status,omitempty"`
	Body         []byte      `json:"-"`
	Error        string      `json:"error,omitempty"`
	Attempts     int         `json:"attempts"`
	UsedHeadless bool        `json:"used_headless,omitempty"`
	Duration     time.Duration
}

// Succeeded reports whether the fetch produced a usable body.
func (r FetchResult) Succeeded() bool {
	return r.Status == FetchSuccess
}

// Canonical field keys produced by both extractors.
const (
	FieldType        = "type"
	FieldName        = "name"
	FieldRating      = "rating"
	FieldReviewCount = "review_count"
	FieldAddress     = "address"
	FieldPriceRange  = "price_range"
	FieldCuisine     = "cuisine"
	FieldPhone       = "phone"
	FieldURL         = "url"
)

// Fields is a set of extracted restaurant attributes keyed by the canonical
// field names above. Both extractors produce the same key space so the
// assembler can coalesce per field.
type Fields map[string]any

// Merge returns a copy of f with missing keys filled from fallback. Keys
// already present in f win.
func (f Fields) Merge(fallback Fields) Fields {
	out := make(Fields, len(f)+len(fallback))
	for k, v := range fallback {
		out[k] = v
	}
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Clone returns a shallow copy of f, or nil for a nil map.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// ScrapeRecord is the unit persisted to object storage, one per invocation.
// It is never mutated after assembly.
type ScrapeRecord struct {
	RunID      string    `json:"run_id"`
	Target     Target    `json:"target"`
	ScrapedAt  time.Time `json:"scraped_at"`
	Success    bool      `json:"success"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Attempts   int       `json:"attempts"`
	// Structured is present only when a JSON-LD block was found and parsed.
	Structured Fields `json:"structured,omitempty"`
	// Heuristic is always attempted; may be empty.
	Heuristic Fields `json:"heuristic"`
	// Data is the merged view: structured values win per field, heuristic
	// fills the gaps.
	Data  Fields `json:"data"`
	Error string `json:"error,omitempty"`
}

// PersistOutcome reports the result of writing a ScrapeRecord.
type PersistOutcome struct {
	Success bool   `json:"success"`
	Key     string `json:"key,omitempty"`
	URI     string `json:"uri,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Outcome is the terminal result of one pipeline invocation. Every path
// through the pipeline, including panics, yields a well-formed Outcome.
type Outcome struct {
	Success    bool      `json:"success"`
	RunID      string    `json:"run_id"`
	TargetID   string    `json:"target_id,omitempty"`
	TargetName string    `json:"target_name,omitempty"`
	StorageKey string    `json:"storage_key,omitempty"`
	BlobURI    string    `json:"blob_uri,omitempty"`
	Persisted  bool      `json:"persisted"`
	Attempts   int       `json:"attempts,omitempty"`
	Error      string    `json:"error,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

// HistoryRecord is the advisory per-run row written to the history store.
type HistoryRecord struct {
	RunID      string
	TargetID   string
	TargetName string
	URL        string
	StorageKey string
	BlobURI    string
	Success    bool
	HTTPStatus int
	Attempts   int
	Error      string
	ScrapedAt  time.Time
}

// CompletionEvent is published after persistence for downstream consumers.
type CompletionEvent struct {
	RunID      string    `json:"run_id"`
	TargetID   string    `json:"target_id"`
	TargetName string    `json:"target_name"`
	StorageKey string    `json:"storage_key"`
	BlobURI    string    `json:"blob_uri"`
	Success    bool      `json:"success"`
	ScrapedAt  time.Time `json:"scraped_at"`
}
