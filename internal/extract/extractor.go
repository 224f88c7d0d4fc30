// Package extract fetches a target page and pulls best-effort first-party
// context for prompting. Extraction failures never block an analysis; the
// caller proceeds with a nil PageContext.
package extract

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/bizclone/internal/model"
)

const (
	defaultTimeout   = 8 * time.Second
	defaultUserAgent = "bizclone/1.0"
	maxBodyBytes     = 2 << 20 // 2 MiB is plenty for a landing page
	excerptLimit     = 2000
)

// AdaptiveLimiter wraps a rate.Limiter with adaptive rate adjustment.
// On success it increases the rate by 20% (up to 2x initial).
// On 429 it halves the rate (down to initial/4 minimum).
type AdaptiveLimiter struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	initialRate rate.Limit
	maxRate     rate.Limit
	minRate     rate.Limit
	currentRate rate.Limit
}

// NewAdaptiveLimiter creates an adaptive rate limiter that auto-tunes.
func NewAdaptiveLimiter(initialRate rate.Limit, burst int) *AdaptiveLimiter {
	return &AdaptiveLimiter{
		limiter:     rate.NewLimiter(initialRate, burst),
		initialRate: initialRate,
		maxRate:     initialRate * 2,
		minRate:     initialRate / 4,
		currentRate: initialRate,
	}
}

// Wait blocks until the limiter allows an event.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess increases the rate by 20%, up to 2x initial.
func (a *AdaptiveLimiter) OnSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	newRate := a.currentRate * 1.2
	if newRate > a.maxRate {
		newRate = a.maxRate
	}
	a.currentRate = newRate
	a.limiter.SetLimit(newRate)
}

// OnRateLimit halves the rate on 429 responses.
func (a *AdaptiveLimiter) OnRateLimit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	newRate := a.currentRate * 0.5
	if newRate < a.minRate {
		newRate = a.minRate
	}
	a.currentRate = newRate
	a.limiter.SetLimit(newRate)
	zap.L().Warn("extract: reducing fetch rate after 429",
		zap.Float64("new_rate", float64(newRate)),
	)
}

// Limit returns the current rate limit.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentRate
}

// Extractor fetches and parses target pages.
type Extractor struct {
	client    *http.Client
	limiter   *AdaptiveLimiter
	userAgent string
}

// Options configures an Extractor. Zero values select defaults.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Limiter   *AdaptiveLimiter
}

// New creates an Extractor.
func New(opts Options) *Extractor {
	if opts.Timeout == 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Limiter == nil {
		opts.Limiter = NewAdaptiveLimiter(2, 4)
	}
	return &Extractor{
		client:    &http.Client{Timeout: opts.Timeout},
		limiter:   opts.Limiter,
		userAgent: opts.UserAgent,
	}
}

// Extract fetches rawURL and returns first-party page context. Errors are
// returned for the caller to log; callers treat them as advisory.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (*model.PageContext, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "extract: rate limit wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "extract: create request")
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "extract: fetch page")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		e.limiter.OnRateLimit()
		return nil, eris.Errorf("extract: rate limited by %s", rawURL)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("extract: unexpected status %d from %s", resp.StatusCode, rawURL)
	}
	e.limiter.OnSuccess()

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "extract: parse html")
	}

	return pageContextFrom(doc), nil
}

func pageContextFrom(doc *goquery.Document) *model.PageContext {
	pc := &model.PageContext{
		Title:          strings.TrimSpace(doc.Find("title").First().Text()),
		PrimaryHeading: strings.TrimSpace(doc.Find("h1").First().Text()),
	}

	if desc, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		pc.Description = strings.TrimSpace(desc)
	} else if og, ok := doc.Find(`meta[property="og:description"]`).First().Attr("content"); ok {
		pc.Description = strings.TrimSpace(og)
	}

	if canonical, ok := doc.Find(`link[rel="canonical"]`).First().Attr("href"); ok {
		pc.CanonicalURL = strings.TrimSpace(canonical)
	}

	doc.Find("script, style, noscript").Remove()
	body := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	if len(body) > excerptLimit {
		body = body[:excerptLimit]
	}
	pc.TextExcerpt = body

	return pc
}
