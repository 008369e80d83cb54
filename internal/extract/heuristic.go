package extract

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/viberoam/restaurant-scraper/internal/scrape"
)

// selectorCandidate is one way a field may appear in the markup. Candidates
// are ordered most- to least-specific to tolerate markup drift.
type selectorCandidate struct {
	selector string
	attr     string // read this attribute instead of the text when set
}

var heuristicSelectors = map[string][]selectorCandidate{
	scrape.FieldName: {
		{selector: `h1[data-automation="mainH1"]`},
		{selector: `h1[class*="heading"]`},
		{selector: `[itemprop="name"]`},
		{selector: `h1`},
	},
	scrape.FieldRating: {
		{selector: `[data-automation="bubbleRatingValue"]`},
		{selector: `[itemprop="ratingValue"]`, attr: "content"},
		{selector: `[itemprop="ratingValue"]`},
		{selector: `span[class*="rating"]`},
	},
	scrape.FieldReviewCount: {
		{selector: `[data-automation="bubbleReviewCount"]`},
		{selector: `[itemprop="reviewCount"]`, attr: "content"},
		{selector: `span[class*="reviewCount"]`},
		{selector: `span[class*="review-count"]`},
	},
	scrape.FieldAddress: {
		{selector: `[data-automation="restaurantsMapLinkOnName"]`},
		{selector: `[itemprop="address"]`},
		{selector: `span[class*="address"]`},
	},
	scrape.FieldPhone: {
		{selector: `[itemprop="telephone"]`},
		{selector: `a[href^="tel:"]`},
	},
}

// labeledFields are rendered as an ALL-CAPS label followed by a sibling value.
var labeledFields = map[string]string{
	scrape.FieldCuisine:    "CUISINES",
	scrape.FieldPriceRange: "PRICE RANGE",
}

var heuristicPatterns = map[string][]*regexp.Regexp{
	scrape.FieldRating: {
		regexp.MustCompile(`"ratingValue"\s*:\s*"?([0-9]+(?:\.[0-9]+)?)`),
		regexp.MustCompile(`([0-9]\.[0-9])\s+of\s+5\s+bubbles`),
	},
	scrape.FieldReviewCount: {
		regexp.MustCompile(`"reviewCount"\s*:\s*"?([0-9,]+)`),
		regexp.MustCompile(`([0-9][0-9,.]*)\s+reviews?\b`),
	},
	scrape.FieldPriceRange: {
		regexp.MustCompile(`([$€£¥]{1,4}\s*[-–]\s*[$€£¥]{1,4})`),
	},
}

// Heuristic extracts fields by direct pattern search over the document. It
// always runs, regardless of the structured extractor's outcome; a field with
// no match is omitted and an empty result is valid.
func Heuristic(html []byte) scrape.Fields {
	fields := scrape.Fields{}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err == nil {
		for field, candidates := range heuristicSelectors {
			if value := firstSelectorMatch(doc, candidates); value != "" {
				fields[field] = value
			}
		}
		for field, label := range labeledFields {
			if _, ok := fields[field]; ok {
				continue
			}
			if value := labeledValue(doc, label); value != "" {
				fields[field] = value
			}
		}
	}

	for field, patterns := range heuristicPatterns {
		if _, ok := fields[field]; ok {
			continue
		}
		if value := firstPatternMatch(html, patterns); value != "" {
			fields[field] = value
		}
	}

	normalize(fields)
	return fields
}

func firstSelectorMatch(doc *goquery.Document, candidates []selectorCandidate) string {
	for _, c := range candidates {
		sel := doc.Find(c.selector).First()
		if sel.Length() == 0 {
			continue
		}
		var value string
		if c.attr != "" {
			value, _ = sel.Attr(c.attr)
		} else {
			value = sel.Text()
		}
		value = strings.TrimSpace(value)
		if value != "" {
			return value
		}
	}
	return ""
}

// labeledValue finds an element whose text is exactly the label and returns
// its next sibling's text.
func labeledValue(doc *goquery.Document, label string) string {
	var value string
	doc.Find("span,div,dt").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.TrimSpace(s.Text()) != label {
			return true
		}
		value = strings.TrimSpace(s.Next().Text())
		return value == ""
	})
	return value
}

func firstPatternMatch(html []byte, patterns []*regexp.Regexp) string {
	for _, p := range patterns {
		if m := p.FindSubmatch(html); len(m) > 1 {
			return strings.TrimSpace(string(m[1]))
		}
	}
	return ""
}

// normalize converts rating and review_count to numeric values when the raw
// text parses cleanly; otherwise the raw string is kept.
func normalize(fields scrape.Fields) {
	if raw, ok := fields[scrape.FieldRating].(string); ok {
		if f, ok := asFloat(extractNumber(raw)); ok {
			fields[scrape.FieldRating] = f
		}
	}
	if raw, ok := fields[scrape.FieldReviewCount].(string); ok {
		if i, ok := asInt(extractNumber(raw)); ok {
			fields[scrape.FieldReviewCount] = i
		}
	}
}

var numberPattern = regexp.MustCompile(`[0-9][0-9,]*(?:\.[0-9]+)?`)

func extractNumber(s string) string {
	return numberPattern.FindString(s)
}
