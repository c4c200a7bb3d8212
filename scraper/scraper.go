package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aluiziolira/go-catalog-sync/config"
	"github.com/aluiziolira/go-catalog-sync/models"
	"github.com/aluiziolira/go-catalog-sync/parser"
	"github.com/aluiziolira/go-catalog-sync/store"
)

// Scraper runs crawl passes over the catalog and reconciles every detail page into a store.
// A Scraper runs one pass at a time.
type Scraper struct {
	cfg     *config.Config
	fetcher PageFetcher
	store   store.Store
	Metrics *Metrics

	newID  func() string
	result *models.PassResult
}

// Option customizes a Scraper.
type Option func(*Scraper)

// WithFetcher replaces the default colly-backed fetcher.
func WithFetcher(f PageFetcher) Option {
	return func(s *Scraper) { s.fetcher = f }
}

// WithIDGenerator replaces the identifier source for new records.
func WithIDGenerator(fn func() string) Option {
	return func(s *Scraper) { s.newID = fn }
}

// WithMetrics replaces the default metric set.
func WithMetrics(m *Metrics) Option {
	return func(s *Scraper) { s.Metrics = m }
}

// NewScraper builds a scraper writing into st.
func NewScraper(cfg *config.Config, st store.Store, opts ...Option) (*Scraper, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}

	s := &Scraper{
		cfg:   cfg,
		store: st,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Metrics == nil {
		s.Metrics = NewMetrics()
	}
	if s.fetcher == nil {
		f, err := NewCollyFetcher(cfg, s.Metrics)
		if err != nil {
			return nil, err
		}
		s.fetcher = f
	}
	return s, nil
}

type retryCounter interface {
	Retries() int64
}

// RunPass performs one full crawl: discover categories, walk every listing page of each and
// reconcile every detail page found. Individual failures are recorded in the result and never
// abort the pass. The returned error is non-nil only when ctx is already done.
func (s *Scraper) RunPass(ctx context.Context) (*models.PassResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.result = &models.PassResult{
		StartTime:    time.Now(),
		ErrorsByType: make(map[string]int),
	}
	var retriesBefore int64
	if rc, ok := s.fetcher.(retryCounter); ok {
		retriesBefore = rc.Retries()
	}

	slog.Info("crawl pass started", slog.String("base_url", s.cfg.BaseURL))

	categories := s.DiscoverCategories(ctx, s.cfg.BaseURL)
	s.result.Categories = len(categories)
	for _, category := range categories {
		if ctx.Err() != nil {
			break
		}
		s.CrawlCategory(ctx, category)
	}

	result := s.result
	s.result = nil
	result.EndTime = time.Now()
	if rc, ok := s.fetcher.(retryCounter); ok {
		result.RetryCount = int(rc.Retries() - retriesBefore)
	}

	outcome := "ok"
	switch {
	case len(categories) == 0:
		outcome = "empty"
	case result.ErrorCount > 0:
		outcome = "partial"
	}
	s.Metrics.ObservePass(outcome, result.EndTime)

	slog.Info("crawl pass finished",
		slog.String("outcome", outcome),
		slog.Int("categories", result.Categories),
		slog.Int("pages", result.PageCount),
		slog.Int("inserted", result.Inserted),
		slog.Int("updated", result.Updated),
		slog.Int("errors", result.ErrorCount),
		slog.Duration("duration", result.Duration()),
	)
	return result, nil
}

// DiscoverCategories fetches the root page and returns its categories in navigation order.
// Any failure is logged and yields an empty list.
func (s *Scraper) DiscoverCategories(ctx context.Context, rootURL string) []parser.Category {
	body, err := s.fetch(ctx, "root", rootURL)
	if err != nil {
		s.recordError(rootURL, err)
		slog.Error("category discovery failed", slog.String("url", rootURL), slog.Any("error", err))
		return nil
	}

	doc, err := parser.ParseDocument(body)
	if err != nil {
		s.recordError(rootURL, err)
		slog.Error("category discovery failed", slog.String("url", rootURL), slog.Any("error", err))
		return nil
	}

	categories, err := parser.ExtractCategories(doc, rootURL)
	if err != nil {
		s.recordError(rootURL, err)
		slog.Error("category discovery failed", slog.String("url", rootURL), slog.Any("error", err))
		return nil
	}

	slog.Info("categories discovered", slog.Int("count", len(categories)))
	return categories
}

// CrawlCategory walks the category's listing pages until no next-page control remains and
// reconciles every item found. A listing page that cannot be fetched or parsed ends the
// category. It returns the number of listing pages processed.
func (s *Scraper) CrawlCategory(ctx context.Context, category parser.Category) int {
	current := category.URL
	pages := 0

	for current != "" {
		if ctx.Err() != nil {
			return pages
		}

		body, err := s.fetch(ctx, "listing", current)
		if err != nil {
			s.recordError(current, err)
			slog.Error("listing fetch failed",
				slog.String("category", category.Name),
				slog.String("url", current),
				slog.Any("error", err),
			)
			return pages
		}
		doc, err := parser.ParseDocument(body)
		if err != nil {
			s.recordError(current, err)
			slog.Error("listing parse failed",
				slog.String("category", category.Name),
				slog.String("url", current),
				slog.Any("error", err),
			)
			return pages
		}

		pages++
		s.tally().PageCount++

		for _, href := range parser.ExtractDetailLinks(doc) {
			if ctx.Err() != nil {
				return pages
			}
			detailURL, err := parser.ResolveDetailURL(s.cfg.BaseURL, s.cfg.ArchivePath, current, href)
			if err != nil {
				s.recordError(href, err)
				slog.Warn("detail link unresolvable", slog.String("href", href), slog.Any("error", err))
				continue
			}
			if err := s.ExtractDetail(ctx, detailURL, category.Name); err != nil {
				s.recordError(detailURL, err)
				slog.Error("detail reconcile failed",
					slog.String("category", category.Name),
					slog.String("url", detailURL),
					slog.String("error_type", ErrorTypeLabel(err)),
					slog.Any("error", err),
				)
			}
		}

		href, ok := parser.NextPageHref(doc)
		if !ok {
			break
		}
		if s.cfg.MaxPages > 0 && pages >= s.cfg.MaxPages {
			slog.Warn("category page limit reached",
				slog.String("category", category.Name),
				slog.Int("max_pages", s.cfg.MaxPages),
			)
			break
		}
		next := parser.NextPageURL(current, href)
		if next == current {
			slog.Warn("next page points at itself", slog.String("url", current))
			break
		}
		current = next
	}

	slog.Debug("category crawled", slog.String("category", category.Name), slog.Int("pages", pages))
	return pages
}

// ExtractDetail fetches one detail page and reconciles it into the store: an existing record
// with the same title is updated in place, otherwise a new record with a fresh ID is inserted.
// Each record is committed before the next page is handled.
func (s *Scraper) ExtractDetail(ctx context.Context, detailURL, category string) error {
	body, err := s.fetch(ctx, "detail", detailURL)
	if err != nil {
		return err
	}
	doc, err := parser.ParseDocument(body)
	if err != nil {
		return err
	}
	detail, err := parser.ExtractDetail(doc, s.cfg.BaseURL)
	if err != nil {
		return err
	}
	for _, issue := range detail.Issues {
		s.Metrics.IncError(ErrorTypeLabel(issue))
		slog.Debug("detail value defaulted", slog.String("url", detailURL), slog.Any("error", issue))
	}

	fresh := models.Book{
		Title:        detail.Title,
		Price:        detail.Price,
		Availability: detail.Availability,
		Rating:       detail.Rating,
		ImageURL:     detail.ImageURL,
		Category:     category,
		URL:          detailURL,
	}

	existing, found, err := s.store.GetByTitle(ctx, fresh.Title)
	if err != nil {
		return ErrStore{Op: "get", Err: err}
	}

	record := &fresh
	if found {
		existing.Apply(fresh)
		record = existing
	} else {
		record.ID = s.newID()
	}

	if err := parser.ValidateBook(record); err != nil {
		return err
	}

	if err := s.store.Upsert(ctx, record); err != nil {
		return s.rollback(ctx, ErrStore{Op: "upsert", Err: err})
	}
	if err := s.store.Commit(ctx); err != nil {
		return s.rollback(ctx, ErrStore{Op: "commit", Err: err})
	}

	op, msg := "insert", "book inserted"
	if found {
		op, msg = "update", "book updated"
		s.tally().Updated++
	} else {
		s.tally().Inserted++
	}
	s.Metrics.IncRecord(op)
	slog.Info(msg,
		slog.String("id", record.ID),
		slog.String("title", record.Title),
		slog.String("category", category),
	)
	return nil
}

func (s *Scraper) rollback(ctx context.Context, cause error) error {
	if err := s.store.Rollback(ctx); err != nil {
		return errors.Join(cause, ErrStore{Op: "rollback", Err: err})
	}
	return cause
}

func (s *Scraper) fetch(ctx context.Context, phase, pageURL string) ([]byte, error) {
	s.tally().RequestCount++
	s.Metrics.IncRequest(phase)

	body, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		var fetchErr ErrFetch
		if !errors.As(err, &fetchErr) {
			err = ErrFetch{URL: pageURL, Err: err}
		}
		return nil, err
	}
	return body, nil
}

func (s *Scraper) recordError(pageURL string, err error) {
	label := ErrorTypeLabel(err)
	r := s.tally()
	r.ErrorCount++
	r.ErrorsByType[label]++
	r.FailedURLs = append(r.FailedURLs, pageURL)
	s.Metrics.IncError(label)
}

// tally returns the running pass result, starting one when a crawl step is called outside RunPass.
func (s *Scraper) tally() *models.PassResult {
	if s.result == nil {
		s.result = &models.PassResult{StartTime: time.Now(), ErrorsByType: make(map[string]int)}
	}
	return s.result
}
