package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/aluiziolira/go-catalog-sync/config"
)

// PageFetcher performs a GET and returns the raw markup. It is the crawler's only network
// primitive. Failures are reported as ErrFetch.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) ([]byte, error)
}

// CollyFetcher fetches pages one at a time through a synchronous colly collector.
type CollyFetcher struct {
	cfg       *config.Config
	collector *colly.Collector
	metrics   *Metrics

	retries int64
}

// NewCollyFetcher builds a fetcher restricted to the configured catalog host.
func NewCollyFetcher(cfg *config.Config, metrics *Metrics) (*CollyFetcher, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	collector := colly.NewCollector(
		colly.Async(false),
		colly.AllowURLRevisit(),
		colly.AllowedDomains(parsed.Hostname()),
		colly.UserAgent(cfg.UserAgent),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       cfg.Delay,
		RandomDelay: cfg.RandomDelay,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	return &CollyFetcher{
		cfg:       cfg,
		collector: collector,
		metrics:   metrics,
	}, nil
}

// Fetch retrieves pageURL. With MaxRetries > 0, retryable failures are attempted again after a
// capped exponential backoff; the final failure is returned as ErrFetch.
func (f *CollyFetcher) Fetch(ctx context.Context, pageURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, ErrFetch{URL: pageURL, Err: err}
		}

		body, err := f.fetchOnce(pageURL)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if attempt >= f.cfg.MaxRetries || !retryable(err) {
			break
		}

		atomic.AddInt64(&f.retries, 1)
		f.metrics.IncRetries()
		delay := backoff(f.cfg, attempt+1)
		slog.Debug("retrying fetch",
			slog.String("url", pageURL),
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay),
			slog.Any("error", err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ErrFetch{URL: pageURL, Err: lastErr}
		case <-timer.C:
		}
	}
	return nil, ErrFetch{URL: pageURL, Err: lastErr}
}

// Retries reports how many retry attempts the fetcher has made.
func (f *CollyFetcher) Retries() int64 {
	return atomic.LoadInt64(&f.retries)
}

func (f *CollyFetcher) fetchOnce(pageURL string) ([]byte, error) {
	c := f.collector.Clone()

	var (
		body       []byte
		statusCode int
		failure    error
	)

	c.OnRequest(func(r *colly.Request) {
		r.Ctx.Put("start", time.Now())
	})
	c.OnResponse(func(r *colly.Response) {
		if start, ok := r.Request.Ctx.GetAny("start").(time.Time); ok {
			f.metrics.ObserveDuration(time.Since(start))
		}
		body = r.Body
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			statusCode = r.StatusCode
		}
		failure = err
	})

	if err := c.Visit(pageURL); err != nil && failure == nil {
		failure = err
	}
	c.Wait()

	if failure != nil || statusCode >= http.StatusBadRequest {
		return nil, classifyError(failure, statusCode)
	}
	return body, nil
}

func backoff(cfg *config.Config, attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := cfg.RetryBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * time.Duration(1<<(attempt-1))
	if max := cfg.RetryBackoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}
