package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aluiziolira/go-catalog-sync/config"
	"github.com/aluiziolira/go-catalog-sync/export"
	"github.com/aluiziolira/go-catalog-sync/models"
	"github.com/aluiziolira/go-catalog-sync/scheduler"
	"github.com/aluiziolira/go-catalog-sync/scraper"
	"github.com/aluiziolira/go-catalog-sync/store"
)

func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg, err := loadConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration: %v\n", err)
		os.Exit(1)
	}

	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("catalog sync failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	backend, err := store.Open(ctx, cfg.StoreDriver, cfg.StoreDSN)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			slog.Error("close store", slog.Any("error", err))
		}
	}()

	var st store.Store = backend
	if cfg.CacheSize > 0 {
		cached, err := store.NewCachedStore(backend, cfg.CacheSize)
		if err != nil {
			return fmt.Errorf("create store cache: %w", err)
		}
		st = cached
	}

	s, err := scraper.NewScraper(cfg, st)
	if err != nil {
		return fmt.Errorf("initialise scraper: %w", err)
	}

	slog.Info("starting catalog sync",
		slog.String("base_url", cfg.BaseURL),
		slog.String("store", cfg.StoreDriver),
		slog.Duration("interval", cfg.CrawlInterval),
		slog.Bool("once", cfg.RunOnce),
	)

	metricsServer := startMetricsServer(cfg.MetricsAddr, s.Metrics)
	defer func() {
		if metricsServer == nil {
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
	}()

	afterPass := func(ctx context.Context, result *models.PassResult, err error) {
		if result != nil {
			printSummary(result, cfg.OutputFile)
		}
		if cfg.OutputFile == "" {
			return
		}
		if _, err := export.WriteSnapshot(ctx, backend, cfg.OutputFormat, cfg.OutputFile); err != nil {
			slog.Error("snapshot export failed", slog.String("file", cfg.OutputFile), slog.Any("error", err))
		}
	}

	if cfg.RunOnce {
		result, err := s.RunPass(ctx)
		afterPass(ctx, result, err)
		return err
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, finishing current pass")
	}()
	return scheduler.New(s, cfg.CrawlInterval, scheduler.WithOnPass(afterPass)).Run(ctx)
}

// loadConfig layers flags over environment over defaults.
func loadConfig(fs *flag.FlagSet, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if value, ok := config.EnvString("SCRAPER_BASE_URL"); ok {
		cfg.BaseURL = value
	}
	if value, ok := config.EnvString("SCRAPER_ARCHIVE_PATH"); ok {
		cfg.ArchivePath = value
	}
	if value, ok := config.EnvString("SCRAPER_STORE"); ok {
		cfg.StoreDriver = value
	}
	if value, ok := config.EnvString("SCRAPER_STORE_DSN"); ok {
		cfg.StoreDSN = value
	}
	if value, ok := config.EnvString("SCRAPER_OUTPUT"); ok {
		cfg.OutputFile = value
	}
	if value, ok := config.EnvString("SCRAPER_FORMAT"); ok {
		cfg.OutputFormat = value
	}
	if value, ok := config.EnvString("SCRAPER_METRICS_ADDR"); ok {
		cfg.MetricsAddr = value
	}
	if value, ok := config.EnvString("SCRAPER_USER_AGENT"); ok {
		cfg.UserAgent = value
	}

	intervalHours := int(cfg.CrawlInterval / time.Hour)
	for key, target := range map[string]*int{
		"SCRAPER_INTERVAL_HOURS": &intervalHours,
		"SCRAPER_PAGES":          &cfg.MaxPages,
		"SCRAPER_CACHE_SIZE":     &cfg.CacheSize,
		"SCRAPER_MAX_RETRIES":    &cfg.MaxRetries,
	} {
		value, ok, err := config.EnvInt(key)
		if err != nil {
			return nil, err
		}
		if ok {
			*target = value
		}
	}
	if value, ok, err := config.EnvBool("SCRAPER_ONCE"); err != nil {
		return nil, err
	} else if ok {
		cfg.RunOnce = value
	}

	baseURL := fs.String("base-url", cfg.BaseURL, "Catalog root URL")
	archivePath := fs.String("archive-path", cfg.ArchivePath, "Path segment that holds detail pages")
	interval := fs.Int("interval", intervalHours, "Hours between crawl passes")
	once := fs.Bool("once", cfg.RunOnce, "Run a single pass and exit")
	maxPages := fs.Int("pages", cfg.MaxPages, "Maximum listing pages per category (0 is unlimited)")
	delayMs := fs.Int("delay", 0, "Delay between requests (milliseconds)")
	randomDelayMs := fs.Int("random-delay", 0, "Random jitter added to delay (milliseconds)")
	maxRetries := fs.Int("max-retries", cfg.MaxRetries, "Retry attempts per URL (0 disables retries)")
	retryBackoffMs := fs.Int("retry-backoff", int(cfg.RetryBackoff/time.Millisecond), "Initial retry backoff (milliseconds)")
	retryBackoffMaxMs := fs.Int("retry-backoff-max", int(cfg.RetryBackoffMax/time.Millisecond), "Maximum retry backoff (milliseconds)")
	respectRobots := fs.Bool("respect-robots", cfg.RespectRobotsTxt, "Respect robots.txt directives")
	storeDriver := fs.String("store", cfg.StoreDriver, "Record store: memory, sqlite, or postgres")
	storeDSN := fs.String("dsn", cfg.StoreDSN, "Store DSN (sqlite path or postgres URL)")
	cacheSize := fs.Int("cache-size", cfg.CacheSize, "Title lookup cache entries (0 disables the cache)")
	outputFile := fs.String("output", cfg.OutputFile, "Snapshot file written after every pass")
	outputFormat := fs.String("format", cfg.OutputFormat, "Snapshot format: csv, json, or dual")
	metricsAddr := fs.String("metrics-addr", cfg.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	verbose := fs.Bool("v", cfg.Verbose, "Enable verbose logging")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.BaseURL = *baseURL
	cfg.ArchivePath = *archivePath
	cfg.CrawlInterval = time.Duration(*interval) * time.Hour
	cfg.RunOnce = *once
	cfg.MaxPages = *maxPages
	cfg.Delay = time.Duration(*delayMs) * time.Millisecond
	cfg.RandomDelay = time.Duration(*randomDelayMs) * time.Millisecond
	cfg.MaxRetries = *maxRetries
	cfg.RetryBackoff = time.Duration(*retryBackoffMs) * time.Millisecond
	cfg.RetryBackoffMax = time.Duration(*retryBackoffMaxMs) * time.Millisecond
	cfg.RespectRobotsTxt = *respectRobots
	cfg.StoreDriver = strings.ToLower(*storeDriver)
	cfg.StoreDSN = *storeDSN
	cfg.CacheSize = *cacheSize
	cfg.OutputFile = *outputFile
	cfg.OutputFormat = strings.ToLower(*outputFormat)
	cfg.MetricsAddr = *metricsAddr
	cfg.Verbose = *verbose
	return cfg, nil
}

func startMetricsServer(addr string, metrics *scraper.Metrics) *http.Server {
	if addr == "" || metrics == nil {
		return nil
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	slog.Info("metrics server enabled", slog.String("addr", addr))
	return server
}

func printSummary(result *models.PassResult, outputFile string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Crawl pass complete")
	fmt.Printf("  Categories:    %d\n", result.Categories)
	fmt.Printf("  Pages:         %d\n", result.PageCount)
	fmt.Printf("  Inserted:      %d\n", result.Inserted)
	fmt.Printf("  Updated:       %d\n", result.Updated)
	successRate := 0.0
	if result.RequestCount > 0 {
		successRate = float64(result.RequestCount-result.ErrorCount) / float64(result.RequestCount) * 100
	}
	fmt.Printf("  Success rate:  %.2f%%\n", successRate)
	fmt.Printf("  Errors:        %d\n", result.ErrorCount)
	fmt.Printf("  Retries:       %d\n", result.RetryCount)
	fmt.Printf("  Failed URLs:   %d\n", len(result.FailedURLs))
	if len(result.ErrorsByType) > 0 {
		fmt.Printf("  Error types:   %v\n", result.ErrorsByType)
	}
	fmt.Printf("  Duration:      %v\n", result.Duration())
	if outputFile != "" {
		fmt.Printf("  Output file:   %s\n", outputFile)
	}
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
