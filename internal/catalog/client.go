// Package catalog talks to the restaurant catalog API: it selects the next
// target to scrape and reports outcomes back. The catalog is advisory
// upstream state; every failure here degrades instead of propagating.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/viberoam/restaurant-scraper/internal/scrape"
)

// Config controls the catalog client.
type Config struct {
	Endpoint       string
	UpdateEndpoint string
	Timeout        time.Duration
	UserAgent      string
	Fallback       scrape.Target
}

// Client implements scrape.Selector against the catalog HTTP API.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// New builds a Client. The fallback target must be usable: SelectTarget
// returns it whenever the catalog cannot produce one.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("catalog endpoint is required")
	}
	if cfg.Fallback.URL == "" {
		return nil, fmt.Errorf("fallback target URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

// SelectTarget asks the catalog for a random never-scraped restaurant. On any
// failure (network, timeout, non-2xx, malformed body) it logs the condition
// and returns the fallback target so the pipeline always has work.
func (c *Client) SelectTarget(ctx context.Context) scrape.Target {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Endpoint, nil)
	if err != nil {
		c.logger.Warn("build catalog request failed, using fallback target", zap.Error(err))
		return c.cfg.Fallback
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("catalog unreachable, using fallback target", zap.Error(err))
		return c.cfg.Fallback
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("catalog returned non-2xx, using fallback target",
			zap.Int("status", resp.StatusCode))
		return c.cfg.Fallback
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		c.logger.Warn("read catalog response failed, using fallback target", zap.Error(err))
		return c.cfg.Fallback
	}

	target, err := decodeTarget(body)
	if err != nil {
		c.logger.Warn("decode catalog response failed, using fallback target", zap.Error(err))
		return c.cfg.Fallback
	}
	c.logger.Info("target selected",
		zap.String("target_id", target.ID),
		zap.String("target_name", target.Name))
	return target
}

// ReportOutcome posts the scrape result to the update endpoint. The call is
// fire-and-forget: scrape status in the catalog is advisory, so every failure
// is logged and swallowed. A missing update endpoint disables reporting.
func (c *Client) ReportOutcome(ctx context.Context, target scrape.Target, success bool, errText string) {
	if c.cfg.UpdateEndpoint == "" {
		return
	}
	payload := map[string]any{
		"id":      target.ID,
		"success": success,
	}
	if errText != "" {
		payload["error"] = errText
	}
	data, err := json.Marshal(payload)
	if err != nil {
		c.logger.Warn("marshal outcome report failed", zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.UpdateEndpoint, bytes.NewReader(data))
	if err != nil {
		c.logger.Warn("build outcome report failed", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("outcome report failed", zap.String("target_id", target.ID), zap.Error(err))
		return
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("outcome report rejected",
			zap.String("target_id", target.ID),
			zap.Int("status", resp.StatusCode))
		return
	}
	c.logger.Debug("outcome reported", zap.String("target_id", target.ID), zap.Bool("success", success))
}

// catalogRestaurant tolerates both the flat shape and the nested city/country
// objects the catalog has emitted historically.
type catalogRestaurant struct {
	ID             json.Number     `json:"id"`
	Name           string          `json:"name"`
	URL            string          `json:"url"`
	TripadvisorURL string          `json:"tripadvisor_detail_page"`
	City           json.RawMessage `json:"city"`
	Country        json.RawMessage `json:"country"`
}

func decodeTarget(body []byte) (scrape.Target, error) {
	var raw catalogRestaurant
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return scrape.Target{}, fmt.Errorf("decode restaurant: %w", err)
	}

	target := scrape.Target{
		ID:   raw.ID.String(),
		Name: raw.Name,
		URL:  raw.URL,
	}
	if target.URL == "" {
		target.URL = raw.TripadvisorURL
	}
	if target.ID == "" || target.Name == "" || target.URL == "" {
		return scrape.Target{}, fmt.Errorf("restaurant missing id, name, or url")
	}

	city, country := decodePlace(raw.City)
	target.City = city
	if country == "" {
		country, _ = decodeString(raw.Country)
	}
	target.Country = country
	return target, nil
}

// decodePlace accepts either "Amsterdam" or {"name":"Amsterdam","country":{"name":"Netherlands"}}.
func decodePlace(raw json.RawMessage) (name, country string) {
	if len(raw) == 0 {
		return "", ""
	}
	if s, ok := decodeString(raw); ok {
		return s, ""
	}
	var nested struct {
		Name    string          `json:"name"`
		Country json.RawMessage `json:"country"`
	}
	if err := json.Unmarshal(raw, &nested); err != nil {
		return "", ""
	}
	country, _ = decodeString(nested.Country)
	if country == "" && len(nested.Country) > 0 {
		var cc struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(nested.Country, &cc); err == nil {
			country = cc.Name
		}
	}
	return nested.Name, country
}

func decodeString(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
