// Package extract pulls restaurant fields out of fetched HTML. Two
// independent strategies produce the same field set: Structured reads JSON-LD
// markup when present, Heuristic pattern-matches the raw document. Neither
// strategy ever fails the pipeline.
package extract

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/viberoam/restaurant-scraper/internal/scrape"
)

// restaurantTypes are the schema.org types accepted as a restaurant page.
var restaurantTypes = map[string]bool{
	"Restaurant":        true,
	"FoodEstablishment": true,
	"LocalBusiness":     true,
}

// Structured scans the document for JSON-LD blocks and returns the fields of
// the first block whose declared type matches a restaurant schema. Absent or
// malformed markup yields (nil, false); structured data is optional-effort.
func Structured(html []byte) (scrape.Fields, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, false
	}

	var fields scrape.Fields
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		block := findRestaurantBlock([]byte(s.Text()))
		if block == nil {
			return true
		}
		fields = mapStructuredFields(block)
		return false
	})
	if len(fields) == 0 {
		return nil, false
	}
	return fields, true
}

// findRestaurantBlock parses one script payload and returns the object whose
// @type matches, looking through top-level arrays and @graph containers.
// Malformed JSON is skipped, not reported.
func findRestaurantBlock(raw []byte) map[string]any {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil
	}
	return searchBlock(payload)
}

func searchBlock(payload any) map[string]any {
	switch v := payload.(type) {
	case map[string]any:
		if matchesRestaurantType(v["@type"]) {
			return v
		}
		if graph, ok := v["@graph"].([]any); ok {
			return searchBlock(graph)
		}
	case []any:
		for _, item := range v {
			if block := searchBlock(item); block != nil {
				return block
			}
		}
	}
	return nil
}

// matchesRestaurantType accepts both "Restaurant" and ["Restaurant", ...].
func matchesRestaurantType(declared any) bool {
	switch v := declared.(type) {
	case string:
		return restaurantTypes[v]
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && restaurantTypes[s] {
				return true
			}
		}
	}
	return false
}

func mapStructuredFields(block map[string]any) scrape.Fields {
	fields := scrape.Fields{}

	if s, ok := asString(block["@type"]); ok {
		fields[scrape.FieldType] = s
	}
	if s, ok := asString(block["name"]); ok {
		fields[scrape.FieldName] = s
	}
	if s, ok := asString(block["priceRange"]); ok {
		fields[scrape.FieldPriceRange] = s
	}
	if s, ok := asString(block["telephone"]); ok {
		fields[scrape.FieldPhone] = s
	}
	if s, ok := asString(block["url"]); ok {
		fields[scrape.FieldURL] = s
	}
	if s := formatAddress(block["address"]); s != "" {
		fields[scrape.FieldAddress] = s
	}
	if s := joinStrings(block["servesCuisine"]); s != "" {
		fields[scrape.FieldCuisine] = s
	}

	if agg, ok := block["aggregateRating"].(map[string]any); ok {
		if rating, ok := asFloat(agg["ratingValue"]); ok {
			fields[scrape.FieldRating] = rating
		}
		if count, ok := asInt(agg["reviewCount"]); ok {
			fields[scrape.FieldReviewCount] = count
		}
	}

	return fields
}

// formatAddress renders either a plain string or a schema.org PostalAddress.
func formatAddress(v any) string {
	if s, ok := asString(v); ok {
		return s
	}
	addr, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	parts := make([]string, 0, 4)
	for _, key := range []string{"streetAddress", "postalCode", "addressLocality", "addressCountry"} {
		if s, ok := asString(addr[key]); ok && s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

func joinStrings(v any) string {
	if s, ok := asString(v); ok {
		return s
	}
	items, ok := v.([]any)
	if !ok {
		return ""
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := asString(item); ok && s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// asFloat normalizes ratings JSON-LD emits as either 4.5 or "4.5".
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(n), ",", "")
		i, err := strconv.Atoi(s)
		if err != nil {
			return 0, false
		}
		return i, true
	}
	return 0, false
}
