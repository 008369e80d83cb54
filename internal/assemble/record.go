// Package assemble builds the final ScrapeRecord, derives its storage key,
// and writes it to the blob store.
package assemble

import (
	"regexp"
	"time"

	"github.com/viberoam/restaurant-scraper/internal/scrape"
)

const keyTimestampLayout = "20060102_150405"

// Record merges the fetch and extraction outputs into one immutable
// ScrapeRecord. Success mirrors the fetch status; a failed fetch produces an
// error record that is still persisted. The merged Data view coalesces per
// field with structured values winning.
func Record(
	runID string,
	target scrape.Target,
	fetch scrape.FetchResult,
	structured scrape.Fields,
	heuristic scrape.Fields,
	scrapedAt time.Time,
) scrape.ScrapeRecord {
	if heuristic == nil {
		heuristic = scrape.Fields{}
	}
	rec := scrape.ScrapeRecord{
		RunID:      runID,
		Target:     target,
		ScrapedAt:  scrapedAt,
		Success:    fetch.Succeeded(),
		HTTPStatus: fetch.HTTPStatus,
		Attempts:   fetch.Attempts,
		Structured: structured.Clone(),
		Heuristic:  heuristic.Clone(),
		Data:       structured.Merge(heuristic),
	}
	if !rec.Success {
		rec.Error = fetch.Error
		if rec.Error == "" {
			rec.Error = "fetch failed"
		}
	}
	return rec
}

// nonKeyChars matches everything not allowed in the name segment of the
// storage key. Unicode letters and digits stay, so "Café Central" keeps
// its accent.
var nonKeyChars = regexp.MustCompile(`[^\p{L}\p{N}_-]`)

// StorageKey derives the deterministic object key
// <prefix>/<run-timestamp>/<target-id>_<sanitized-name>.json. The timestamp
// plus target id keeps concurrent runs from overwriting each other.
func StorageKey(prefix string, runAt time.Time, target scrape.Target) string {
	name := target.Name
	if name == "" {
		name = "unknown"
	}
	id := target.ID
	if id == "" {
		id = "no_id"
	}
	return prefix + "/" + runAt.UTC().Format(keyTimestampLayout) + "/" +
		id + "_" + SanitizeName(name) + ".json"
}

// SanitizeName replaces key-hostile characters with underscores.
func SanitizeName(name string) string {
	return nonKeyChars.ReplaceAllString(name, "_")
}
