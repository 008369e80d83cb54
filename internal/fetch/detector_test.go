package fetch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectorSmallBodyNeedsRender(t *testing.T) {
	t.Parallel()

	d := NewRenderDetector(2000, nil, nil)
	assert.True(t, d.NeedsRender([]byte("<html></html>")))
}

func TestDetectorKeywordNeedsRender(t *testing.T) {
	t.Parallel()

	d := NewRenderDetector(0, []string{"__NEXT_DATA__"}, nil)
	body := []byte(`<html><script id="__next_data__">{}</script></html>`)
	assert.True(t, d.NeedsRender(body), "keyword match is case-insensitive")
}

func TestDetectorMissingSelectorNeedsRender(t *testing.T) {
	t.Parallel()

	d := NewRenderDetector(0, nil, []string{".reviews"})
	assert.True(t, d.NeedsRender([]byte(`<html><body><div class="main"></div></body></html>`)))
	assert.False(t, d.NeedsRender([]byte(`<html><body><div class="reviews"></div></body></html>`)))
}

func TestDetectorFullPageDoesNotNeedRender(t *testing.T) {
	t.Parallel()

	body := []byte(`<html><body>` + strings.Repeat("<p>content</p>", 200) + `</body></html>`)
	d := NewRenderDetector(2000, []string{"__NEXT_DATA__"}, nil)
	assert.False(t, d.NeedsRender(body))
}

func TestNilDetectorNeverPromotes(t *testing.T) {
	t.Parallel()

	var d *RenderDetector
	assert.False(t, d.NeedsRender(nil))
}
