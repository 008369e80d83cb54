package fetch

import (
	"context"
	"crypto/rand"
	"errors"
	"math"
	"math/big"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/viberoam/restaurant-scraper/internal/scrape"
)

// Config controls the retrying fetch client.
type Config struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// Client implements scrape.Fetcher: it wraps a PageFetcher with retry,
// jittered exponential backoff, and an optional headless-render fallback.
// All failure is returned as data in the FetchResult.
type Client struct {
	page     scrape.PageFetcher
	renderer scrape.PageFetcher
	detector *RenderDetector
	cfg      Config
	logger   *zap.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewClient builds a Client. renderer and detector are optional; when both are
// set, a successful probe whose body looks like an unrendered JS shell is
// re-fetched once with the renderer.
func NewClient(page scrape.PageFetcher, renderer scrape.PageFetcher, detector *RenderDetector, cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 250 * time.Millisecond
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		page:     page,
		renderer: renderer,
		detector: detector,
		cfg:      cfg,
		logger:   logger,
		sleep:    sleepCtx,
	}
}

// Fetch retrieves url, retrying transient failures (timeouts, connection
// errors, 5xx, 429) up to MaxRetries times. Permanent failures (other 4xx)
// fail on the first attempt. The error return path does not exist: failures
// land in the result's Status and Error fields.
func (c *Client) Fetch(ctx context.Context, url string) scrape.FetchResult {
	start := time.Now()
	result := scrape.FetchResult{Status: scrape.FetchFailure}

	for attempt := 1; ; attempt++ {
		result.Attempts = attempt

		status, body, err := c.page.FetchOnce(ctx, url)
		result.HTTPStatus = status

		if err == nil && status >= 200 && status < 300 {
			result.Status = scrape.FetchSuccess
			result.Error = ""
			result.Body = c.maybeRender(ctx, url, body, &result)
			result.Duration = time.Since(start)
			return result
		}

		if err != nil {
			result.Error = err.Error()
		} else {
			result.Error = http.StatusText(status)
		}

		if ctx.Err() != nil || !retryable(status, err) || attempt > c.cfg.MaxRetries {
			result.Duration = time.Since(start)
			return result
		}

		delay := c.backoff(attempt)
		c.logger.Warn("fetch attempt failed, retrying",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Int("status", status),
			zap.Duration("backoff", delay),
			zap.Error(err))
		if err := c.sleep(ctx, delay); err != nil {
			result.Duration = time.Since(start)
			return result
		}
	}
}

// maybeRender swaps the probe body for a headless render when the page looks
// like an unrendered shell. A failed render keeps the probe body.
func (c *Client) maybeRender(ctx context.Context, url string, body []byte, result *scrape.FetchResult) []byte {
	if c.renderer == nil || c.detector == nil || !c.detector.NeedsRender(body) {
		return body
	}
	c.logger.Info("page looks like a JS shell, rendering headless", zap.String("url", url))
	_, rendered, err := c.renderer.FetchOnce(ctx, url)
	if err != nil || len(rendered) == 0 {
		c.logger.Warn("headless render failed, keeping probe body",
			zap.String("url", url), zap.Error(err))
		return body
	}
	result.UsedHeadless = true
	return rendered
}

// retryable classifies a failed attempt. 5xx and 429 responses plus network
// timeouts and connection errors are transient; everything else is permanent.
func retryable(status int, err error) bool {
	if status >= 500 || status == http.StatusTooManyRequests {
		return true
	}
	if status >= 400 {
		return false
	}
	if err == nil {
		return false
	}
	// A per-attempt client timeout also satisfies errors.Is(err,
	// context.DeadlineExceeded) since Go 1.16, so the timeout check must
	// run first. Caller cancellation is handled in Fetch via ctx.Err().
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.As(err, &netErr) {
		return true
	}
	// Connection refused/reset and DNS failures arrive as *net.OpError
	// wrapped by colly; treat any transport-level error as transient.
	return status == 0
}

func (c *Client) backoff(attempt int) time.Duration {
	delay := float64(c.cfg.BaseDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(c.cfg.MaxDelay) {
		delay = float64(c.cfg.MaxDelay)
	}
	jitter := randomJitter(time.Duration(delay) / 2)
	return time.Duration(delay/2) + jitter
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	bound := big.NewInt(int64(limit))
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
