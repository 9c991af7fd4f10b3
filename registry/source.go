package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/codymoss/hopgate/cache"
	"github.com/codymoss/hopgate/logger"
	"github.com/codymoss/hopgate/urlutil"
)

// jitterPercent is the percentage of jitter added to retry delays (+/- 25%).
const jitterPercent = 0.25

// ErrRefreshThrottled is returned when forced refreshes arrive faster than
// the configured minimum interval.
var ErrRefreshThrottled = errors.New("registry refresh throttled")

// RetryPolicy controls backoff for remote registry fetches.
type RetryPolicy struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// GetMaxRetries returns the max retries with a default of 2.
func (p RetryPolicy) GetMaxRetries() int {
	if p.MaxRetries < 0 {
		return 0
	}
	if p.MaxRetries == 0 {
		return 2
	}
	return p.MaxRetries
}

// GetInitialDelay returns the initial delay with a default of 1 second.
func (p RetryPolicy) GetInitialDelay() time.Duration {
	if p.InitialDelay > 0 {
		return p.InitialDelay
	}
	return time.Second
}

// GetMaxDelay returns the max delay with a default of 30 seconds.
func (p RetryPolicy) GetMaxDelay() time.Duration {
	if p.MaxDelay > 0 {
		return p.MaxDelay
	}
	return 30 * time.Second
}

// GetMultiplier returns the backoff multiplier with a default of 2.0.
func (p RetryPolicy) GetMultiplier() float64 {
	if p.Multiplier > 0 {
		return p.Multiplier
	}
	return 2.0
}

// SourceConfig holds configuration for a remote registry source.
type SourceConfig struct {
	// URL of the remote platform document.
	URL string
	// Client is the HTTP client used for fetches (default: 30s timeout).
	Client *http.Client
	// Cache stores fetched documents (default: in-memory).
	Cache cache.Store
	// Retry controls backoff between failed fetch attempts.
	Retry RetryPolicy
	// MinRefreshInterval throttles forced refreshes (default: 30s).
	MinRefreshInterval time.Duration
	Log                logger.Logger
}

// Source fetches the platform document from a remote URL, caching it with
// conditional requests so an unreachable origin degrades to the last known
// document instead of an outage.
type Source struct {
	url     string
	client  *http.Client
	cache   cache.Store
	retry   RetryPolicy
	limiter *rate.Limiter
	log     logger.Logger
}

// NewSource creates a remote registry source.
func NewSource(cfg SourceConfig) (*Source, error) {
	if _, err := urlutil.ParseAndValidate(cfg.URL); err != nil {
		return nil, fmt.Errorf("invalid registry url: %w", err)
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	store := cfg.Cache
	if store == nil {
		store = cache.NewMemoryStore(cache.DefaultConfig())
	}

	minInterval := cfg.MinRefreshInterval
	if minInterval == 0 {
		minInterval = 30 * time.Second
	}

	log := cfg.Log
	if log == nil {
		log = logger.Noop()
	}

	return &Source{
		url:     cfg.URL,
		client:  client,
		cache:   store,
		retry:   cfg.Retry,
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
		log:     log,
	}, nil
}

// Load returns the current registry, serving from cache while fresh and
// falling back to a stale cached document when the origin is unreachable.
func (s *Source) Load(ctx context.Context) (*Registry, error) {
	cached, err := s.cache.Get(ctx, s.url)
	if err != nil {
		s.log.Warn("registry cache read failed", "error", err)
		cached = nil
	}

	if cached != nil && cached.IsFresh() {
		return s.parse(cached.Body)
	}

	body, err := s.fetch(ctx, cached)
	if err != nil {
		if cached != nil {
			s.log.Warn("registry fetch failed; serving stale document",
				"url", s.url, "error", err)
			return s.parse(cached.Body)
		}
		return nil, err
	}

	return s.parse(body)
}

// Refresh forces a fetch regardless of cache freshness. Refreshes arriving
// faster than the configured minimum interval return ErrRefreshThrottled.
func (s *Source) Refresh(ctx context.Context) (*Registry, error) {
	if !s.limiter.Allow() {
		return nil, ErrRefreshThrottled
	}

	cached, err := s.cache.Get(ctx, s.url)
	if err != nil {
		cached = nil
	}

	body, err := s.fetch(ctx, cached)
	if err != nil {
		return nil, err
	}

	return s.parse(body)
}

// Run periodically reloads the registry into the store until the context is
// cancelled.
func (s *Source) Run(ctx context.Context, interval time.Duration, store *Store) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reg, err := s.Load(ctx)
			if err != nil {
				s.log.Warn("periodic registry reload failed", "url", s.url, "error", err)
				continue
			}
			store.Swap(reg)
			s.log.Debug("registry reloaded", "url", s.url, "platforms", reg.Len())
		}
	}
}

// Close releases the cache backend.
func (s *Source) Close() error {
	return s.cache.Close()
}

func (s *Source) parse(body []byte) (*Registry, error) {
	reg, err := Parse(body)
	if err != nil {
		return nil, err
	}
	warnOnBadEntries(reg, s.log)
	return reg, nil
}

// fetch retrieves the platform document with retries and conditional
// request headers. A 304 response revalidates the cached document.
func (s *Source) fetch(ctx context.Context, cached *cache.Entry) ([]byte, error) {
	maxRetries := s.retry.GetMaxRetries()

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		body, retryable, err := s.fetchOnce(ctx, cached)
		if err == nil {
			return body, nil
		}

		lastErr = fmt.Errorf("attempt %d: %w", attempt, err)
		if !retryable {
			return nil, lastErr
		}

		if attempt < maxRetries {
			if sleepErr := s.sleep(ctx, s.calculateBackoff(attempt)); sleepErr != nil {
				return nil, sleepErr
			}
		}
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", maxRetries+1, lastErr)
}

func (s *Source) fetchOnce(ctx context.Context, cached *cache.Entry) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, false, err
	}

	if cached != nil {
		if cached.ETag != "" {
			req.Header.Set("If-None-Match", cached.ETag)
		}
		if cached.LastModified != "" {
			req.Header.Set("If-Modified-Since", cached.LastModified)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified && cached != nil:
		updated := cached.WithUpdatedTimestamp()
		if err := s.cache.Set(ctx, updated); err != nil {
			s.log.Warn("failed to revalidate cached registry", "error", err)
		}
		return cached.Body, false, nil

	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, true, err
		}

		entry := &cache.Entry{
			Key:          s.url,
			Body:         body,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			StoredAt:     time.Now(),
		}
		if err := s.cache.Set(ctx, entry); err != nil {
			s.log.Warn("failed to cache registry document", "error", err)
		}
		return body, false, nil

	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("HTTP %d", resp.StatusCode)

	default:
		return nil, false, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
}

// calculateBackoff computes the delay for an attempt using exponential
// backoff with jitter.
func (s *Source) calculateBackoff(attempt int) time.Duration {
	delay := float64(s.retry.GetInitialDelay()) * math.Pow(s.retry.GetMultiplier(), float64(attempt))

	maxDelay := float64(s.retry.GetMaxDelay())
	if delay > maxDelay {
		delay = maxDelay
	}

	jitter := delay * jitterPercent * (2*rand.Float64() - 1)
	return time.Duration(delay + jitter)
}

func (s *Source) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
