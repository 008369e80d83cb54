package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viberoam/restaurant-scraper/internal/scrape"
)

func TestStructuredRestaurantBlock(t *testing.T) {
	t.Parallel()

	html := []byte(`<html><head>
		<script type="application/ld+json">
		{
			"@context": "https://schema.org",
			"@type": "Restaurant",
			"name": "Café Central",
			"priceRange": "€€ - €€€",
			"telephone": "+31 20 123 4567",
			"servesCuisine": ["Dutch", "European"],
			"address": {
				"@type": "PostalAddress",
				"streetAddress": "Herengracht 1",
				"postalCode": "1015 BA",
				"addressLocality": "Amsterdam"
			},
			"aggregateRating": {"ratingValue": 4.5, "reviewCount": "1,204"}
		}
		</script>
	</head><body></body></html>`)

	fields, ok := Structured(html)
	require.True(t, ok)
	assert.Equal(t, "Café Central", fields[scrape.FieldName])
	assert.Equal(t, 4.5, fields[scrape.FieldRating])
	assert.Equal(t, 1204, fields[scrape.FieldReviewCount])
	assert.Equal(t, "Herengracht 1, 1015 BA, Amsterdam", fields[scrape.FieldAddress])
	assert.Equal(t, "€€ - €€€", fields[scrape.FieldPriceRange])
	assert.Equal(t, "Dutch, European", fields[scrape.FieldCuisine])
	assert.Equal(t, "Restaurant", fields[scrape.FieldType])
}

func TestStructuredRatingAsString(t *testing.T) {
	t.Parallel()

	html := []byte(`<script type="application/ld+json">
		{"@type": "Restaurant", "name": "Bistro", "aggregateRating": {"ratingValue": "4.0"}}
	</script>`)

	fields, ok := Structured(html)
	require.True(t, ok)
	assert.Equal(t, 4.0, fields[scrape.FieldRating])
}

func TestStructuredGraphContainer(t *testing.T) {
	t.Parallel()

	html := []byte(`<script type="application/ld+json">
		{"@graph": [
			{"@type": "WebPage", "name": "ignored"},
			{"@type": "FoodEstablishment", "name": "De Haven", "aggregateRating": {"ratingValue": 3.5}}
		]}
	</script>`)

	fields, ok := Structured(html)
	require.True(t, ok)
	assert.Equal(t, "De Haven", fields[scrape.FieldName])
	assert.Equal(t, 3.5, fields[scrape.FieldRating])
}

func TestStructuredTypeArray(t *testing.T) {
	t.Parallel()

	html := []byte(`<script type="application/ld+json">
		{"@type": ["LocalBusiness", "Restaurant"], "name": "Het Hoekje"}
	</script>`)

	fields, ok := Structured(html)
	require.True(t, ok)
	assert.Equal(t, "Het Hoekje", fields[scrape.FieldName])
}

func TestStructuredSkipsNonRestaurantTypes(t *testing.T) {
	t.Parallel()

	html := []byte(`<script type="application/ld+json">
		{"@type": "Article", "name": "Ten Best Pancakes"}
	</script>`)

	fields, ok := Structured(html)
	assert.False(t, ok)
	assert.Nil(t, fields)
}

func TestStructuredSkipsMalformedBlockAndUsesNext(t *testing.T) {
	t.Parallel()

	html := []byte(`
		<script type="application/ld+json">{not json at all</script>
		<script type="application/ld+json">{"@type": "Restaurant", "name": "Tweede Kans"}</script>
	`)

	fields, ok := Structured(html)
	require.True(t, ok)
	assert.Equal(t, "Tweede Kans", fields[scrape.FieldName])
}

func TestStructuredAbsentMarkup(t *testing.T) {
	t.Parallel()

	fields, ok := Structured([]byte(`<html><body><h1>No markup here</h1></body></html>`))
	assert.False(t, ok)
	assert.Nil(t, fields)
}
