package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/viberoam/restaurant-scraper/internal/scrape"
)

func newFastClient(page scrape.PageFetcher, maxRetries int) *Client {
	c := NewClient(page, nil, nil, Config{
		MaxRetries: maxRetries,
		BaseDelay:  time.Millisecond,
		MaxDelay:   2 * time.Millisecond,
	}, zap.NewNop())
	c.sleep = func(context.Context, time.Duration) error { return nil }
	return c
}

func TestFetchRetriesTransientThenSucceeds(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("<html><body>restaurant page</body></html>"))
	}))
	defer srv.Close()

	client := newFastClient(NewColly(CollyConfig{Timeout: 2 * time.Second}), 3)
	result := client.Fetch(context.Background(), srv.URL)

	assert.Equal(t, scrape.FetchSuccess, result.Status)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, http.StatusOK, result.HTTPStatus)
	assert.Contains(t, string(result.Body), "restaurant page")
	assert.Empty(t, result.Error)
}

func TestFetchDoesNotRetryNotFound(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := newFastClient(NewColly(CollyConfig{Timeout: 2 * time.Second}), 3)
	result := client.Fetch(context.Background(), srv.URL)

	assert.Equal(t, scrape.FetchFailure, result.Status)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, http.StatusNotFound, result.HTTPStatus)
	assert.NotEmpty(t, result.Error)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchRetriesTooManyRequests(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	client := newFastClient(NewColly(CollyConfig{Timeout: 2 * time.Second}), 3)
	result := client.Fetch(context.Background(), srv.URL)

	assert.Equal(t, scrape.FetchSuccess, result.Status)
	assert.Equal(t, 2, result.Attempts)
}

func TestFetchExhaustsRetriesOnConnectionError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close() // connection refused from here on

	client := newFastClient(NewColly(CollyConfig{Timeout: time.Second}), 2)
	result := client.Fetch(context.Background(), url)

	assert.Equal(t, scrape.FetchFailure, result.Status)
	assert.Equal(t, 3, result.Attempts)
	assert.NotEmpty(t, result.Error)
}

func TestFetchRetriesPerAttemptTimeout(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		time.Sleep(500 * time.Millisecond)
		_, _ = w.Write([]byte("<html><body>too late</body></html>"))
	}))
	defer srv.Close()

	client := newFastClient(NewColly(CollyConfig{Timeout: 100 * time.Millisecond}), 2)
	result := client.Fetch(context.Background(), srv.URL)

	assert.Equal(t, scrape.FetchFailure, result.Status)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, int32(3), calls.Load())
	assert.NotEmpty(t, result.Error)
}

type scriptedPage struct {
	results []scriptedResult
	calls   int
}

type scriptedResult struct {
	status int
	body   []byte
	err    error
}

func (p *scriptedPage) FetchOnce(context.Context, string) (int, []byte, error) {
	r := p.results[p.calls]
	if p.calls < len(p.results)-1 {
		p.calls++
	}
	return r.status, r.body, r.err
}

func TestFetchStopsWhenContextCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	page := &scriptedPage{results: []scriptedResult{
		{status: 0, err: errors.New("dial tcp: connection refused")},
	}}
	client := newFastClient(page, 5)
	result := client.Fetch(ctx, "http://example.test/r/1")

	assert.Equal(t, scrape.FetchFailure, result.Status)
	assert.Equal(t, 1, result.Attempts)
}

func TestFetchHeadlessPromotionReplacesShellBody(t *testing.T) {
	t.Parallel()

	shell := []byte(`<html><head><script>window.__WEB_CONTEXT__={}</script></head><body></body></html>`)
	rendered := []byte(`<html><body><h1>Café Central</h1><span class="rating">4.5</span></body></html>`)

	page := &scriptedPage{results: []scriptedResult{{status: 200, body: shell}}}
	renderer := &scriptedPage{results: []scriptedResult{{status: 200, body: rendered}}}
	detector := NewRenderDetector(0, []string{"__WEB_CONTEXT__"}, nil)

	client := NewClient(page, renderer, detector, Config{MaxRetries: 0}, zap.NewNop())
	result := client.Fetch(context.Background(), "http://example.test/r/1")

	require.Equal(t, scrape.FetchSuccess, result.Status)
	assert.True(t, result.UsedHeadless)
	assert.Equal(t, rendered, result.Body)
}

func TestFetchNilRendererSkipsRenderPath(t *testing.T) {
	t.Parallel()

	shell := []byte(`<html><head><script>window.__WEB_CONTEXT__={}</script></head><body></body></html>`)
	page := &scriptedPage{results: []scriptedResult{{status: 200, body: shell}}}
	detector := NewRenderDetector(0, []string{"__WEB_CONTEXT__"}, nil)

	client := NewClient(page, nil, detector, Config{MaxRetries: 0}, zap.NewNop())
	result := client.Fetch(context.Background(), "http://example.test/r/1")

	require.Equal(t, scrape.FetchSuccess, result.Status)
	assert.False(t, result.UsedHeadless)
	assert.Equal(t, shell, result.Body)
}

func TestFetchHeadlessFailureKeepsProbeBody(t *testing.T) {
	t.Parallel()

	shell := []byte(`tiny`)
	page := &scriptedPage{results: []scriptedResult{{status: 200, body: shell}}}
	renderer := &scriptedPage{results: []scriptedResult{{status: 0, err: errors.New("chrome crashed")}}}
	detector := NewRenderDetector(100, nil, nil)

	client := NewClient(page, renderer, detector, Config{MaxRetries: 0}, zap.NewNop())
	result := client.Fetch(context.Background(), "http://example.test/r/1")

	require.Equal(t, scrape.FetchSuccess, result.Status)
	assert.False(t, result.UsedHeadless)
	assert.Equal(t, shell, result.Body)
}
