// Package nwis is the HTTP client for the USGS National Water Information
// System web services: the Site Service (RDB listings) and the Instantaneous
// Values Service (JSON time series). It owns retry, backoff, rate limiting,
// and response flattening; callers see only domain types.
package nwis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"github.com/riverwatch/usgs-water-etl/internal/config"
	"github.com/riverwatch/usgs-water-etl/internal/domain"
	"github.com/riverwatch/usgs-water-etl/internal/observability"
)

// Client talks to the NWIS web services. All goroutines of a run share one
// Client so they observe the same rate limiter; the only state it mutates
// between calls is the limiter's clock.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics

	maxAttempts   int
	backoffBase   time.Duration
	backoffCap    time.Duration
	defaultParams []string
	pageWindow    time.Duration
}

// NewClient creates an NWIS client. The limiter is shared with any other
// client of the same remote service; tests inject rate.NewLimiter(rate.Inf, 0).
func NewClient(cfg *config.Config, limiter *rate.Limiter, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		baseURL:       cfg.BaseURL,
		httpClient:    &http.Client{Timeout: cfg.HTTPTimeout},
		limiter:       limiter,
		clock:         clock,
		logger:        logger,
		metrics:       metrics,
		maxAttempts:   cfg.MaxAttempts,
		backoffBase:   200 * time.Millisecond,
		backoffCap:    5 * time.Second,
		defaultParams: cfg.ParameterCodes,
		pageWindow:    cfg.PageWindow,
	}
}

// FetchSites retrieves the full site listing for one state in RDB format.
func (c *Client) FetchSites(ctx context.Context, stateCd string) ([]domain.Site, error) {
	params := url.Values{
		"format":  {"rdb"},
		"stateCd": {stateCd},
	}
	body, err := c.get(ctx, "site", c.baseURL+"/site/?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("fetch sites for %s: %w", stateCd, err)
	}

	sites, dropped, err := parseRDB(bytes.NewReader(body), stateCd)
	if err != nil {
		return nil, domain.Permanent(fmt.Errorf("parse site listing for %s: %w", stateCd, err))
	}
	if dropped > 0 {
		c.logger.Warn("dropped malformed site rows", "state", stateCd, "count", dropped)
	}
	return sites, nil
}

// FetchReadings retrieves all observations for one site batch over the
// query's date range. The range is paged through lazily in fixed windows so
// no single response exceeds the service's size ceiling; pages are fetched
// in order and concatenated, preserving each site's timestamp order.
func (c *Client) FetchReadings(ctx context.Context, q domain.ReadingsQuery) ([]domain.Reading, error) {
	if len(q.Sites) == 0 {
		return nil, domain.Permanent(errors.New("readings query has no sites"))
	}

	p := c.newPager(q)
	var all []domain.Reading
	for p.more() {
		page, err := p.next(ctx)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
	}
	return all, nil
}

// pager produces one page of readings per call: a single IV request covering
// one date window for the query's site batch. Lazy so a multi-year range for
// a large batch never materializes more than one response at a time.
type pager struct {
	c      *Client
	q      domain.ReadingsQuery
	window time.Duration
	cursor time.Time
}

func (c *Client) newPager(q domain.ReadingsQuery) *pager {
	return &pager{c: c, q: q, window: c.pageWindow, cursor: q.Start}
}

func (p *pager) more() bool { return p.cursor.Before(p.q.End) }

func (p *pager) next(ctx context.Context) ([]domain.Reading, error) {
	winEnd := p.cursor.Add(p.window)
	if winEnd.After(p.q.End) {
		winEnd = p.q.End
	}
	readings, err := p.c.fetchWindow(ctx, p.q, p.cursor, winEnd)
	if err != nil {
		return nil, err
	}
	// Windows share their boundary instant; the duplicate seam reading, if
	// any, is reconciled by the caller's dedupe pass.
	p.cursor = winEnd
	return readings, nil
}

func (c *Client) fetchWindow(ctx context.Context, q domain.ReadingsQuery, start, end time.Time) ([]domain.Reading, error) {
	paramCodes := q.ParameterCodes
	if len(paramCodes) == 0 {
		paramCodes = c.defaultParams
	}

	params := url.Values{
		"format":      {"json"},
		"sites":       {strings.Join(q.Sites, ",")},
		"startDT":     {start.UTC().Format(time.RFC3339)},
		"endDT":       {end.UTC().Format(time.RFC3339)},
		"parameterCd": {strings.Join(paramCodes, ",")},
	}
	body, err := c.get(ctx, "iv", c.baseURL+"/iv/?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("fetch readings %s..%s: %w",
			start.Format(time.DateOnly), end.Format(time.DateOnly), err)
	}

	readings, err := flattenIV(body, q.State)
	if err != nil {
		return nil, domain.Permanent(fmt.Errorf("decode IV response: %w", err))
	}
	return readings, nil
}

// get issues a rate-limited GET with retry. Transient failures back off
// exponentially up to maxAttempts; permanent failures return immediately.
func (c *Client) get(ctx context.Context, endpoint, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 1; ; attempt++ {
		waitStart := c.clock.Now()
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		c.metrics.RateLimitWait.Observe(c.clock.Since(waitStart).Seconds())

		body, err := c.do(ctx, endpoint, fullURL)
		if err == nil {
			c.metrics.APIRequests.WithLabelValues(endpoint, "success").Inc()
			return body, nil
		}
		lastErr = err

		if domain.IsPermanent(err) {
			c.metrics.APIRequests.WithLabelValues(endpoint, "permanent_error").Inc()
			return nil, err
		}
		c.metrics.APIRequests.WithLabelValues(endpoint, "transient_error").Inc()

		if attempt >= c.maxAttempts {
			return nil, fmt.Errorf("%s request: %d attempts exhausted: %w", endpoint, c.maxAttempts, lastErr)
		}

		delay := backoffFor(attempt, c.backoffBase, c.backoffCap)
		c.logger.Warn("request failed, retrying",
			"endpoint", endpoint, "attempt", attempt, "delay", delay, "error", err)
		c.metrics.APIRetries.Inc()
		if !c.sleep(ctx, delay) {
			return nil, ctx.Err()
		}
	}
}

// do performs a single request and classifies the outcome.
func (c *Client) do(ctx context.Context, endpoint, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, domain.Permanent(fmt.Errorf("create request: %w", err))
	}

	start := c.clock.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(c.clock.Since(start).Seconds())
	if err != nil {
		// Transport errors (connection reset, timeout) are transient.
		return nil, fmt.Errorf("%s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", endpoint, err)
	}
	if err := classifyStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

// sleep waits for d on the injected clock, returning false if the context
// was cancelled first.
func (c *Client) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-c.clock.After(d):
		return true
	}
}
