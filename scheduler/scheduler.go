// Package scheduler repeats crawl passes on a fixed interval until its context is cancelled.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/aluiziolira/go-catalog-sync/models"
)

// DefaultInterval is used when New is given a non-positive interval.
const DefaultInterval = 6 * time.Hour

// Runner performs one crawl pass.
type Runner interface {
	RunPass(ctx context.Context) (*models.PassResult, error)
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithOnPass registers a hook called after every pass, successful or not. result may be nil.
func WithOnPass(fn func(ctx context.Context, result *models.PassResult, err error)) Option {
	return func(s *Scheduler) { s.onPass = fn }
}

// Scheduler runs a Runner in a loop: one pass, then a wait of Interval.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	onPass   func(ctx context.Context, result *models.PassResult, err error)
}

// New creates a scheduler around runner.
func New(runner Runner, interval time.Duration, opts ...Option) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	s := &Scheduler{runner: runner, interval: interval}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Interval reports the wait between passes.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Run executes passes until ctx is cancelled. Cancellation is observed between passes: a pass
// that has started runs to completion, while a pending wait returns immediately. Pass errors and
// panics are logged and never end the loop. Run returns nil once ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	slog.Info("scheduler started", slog.Duration("interval", s.interval))

	for pass := 1; ; pass++ {
		if ctx.Err() != nil {
			break
		}

		result, err := s.runPass(context.WithoutCancel(ctx))
		if err != nil {
			slog.Error("crawl pass failed", slog.Int("pass", pass), slog.Any("error", err))
		}
		if s.onPass != nil {
			s.onPass(context.WithoutCancel(ctx), result, err)
		}

		slog.Info("next crawl pass scheduled",
			slog.Int("pass", pass+1),
			slog.Time("at", time.Now().Add(s.interval)),
		)
		if !s.wait(ctx) {
			break
		}
	}

	slog.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) runPass(ctx context.Context) (result *models.PassResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("crawl pass panicked", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
			result = nil
			err = fmt.Errorf("pass panicked: %v", r)
		}
	}()
	return s.runner.RunPass(ctx)
}

// wait blocks for one interval. It reports false if ctx was cancelled first.
func (s *Scheduler) wait(ctx context.Context) bool {
	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
