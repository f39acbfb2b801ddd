// Package scheduler drives poll sweeps over every watch with bounded fan-out.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Houeta/seat-watch/internal/models"
	"github.com/Houeta/seat-watch/internal/retry"
	"github.com/Houeta/seat-watch/internal/services/checker"
	"golang.org/x/sync/errgroup"
)

const (
	defaultBatchSize = 4
	defaultInterval  = 5 * time.Minute
)

// ErrSweepInProgress is returned when a sweep is requested while another one runs.
var ErrSweepInProgress = errors.New("sweep already in progress")

// WatchLister reads the active watches a sweep works on, one page at a time.
type WatchLister interface {
	ListActive(ctx context.Context, after models.Cursor, limit int) ([]models.Watch, error)
}

// Options tune a sweep.
type Options struct {
	BatchSize  int
	BatchDelay time.Duration
	ListLimit  int // ListLimit caps one sweep's page, non-positive reads every watch.
	ListPolicy retry.Policy
}

// Report summarizes one sweep.
type Report struct {
	Listed    int
	Inactive  int
	Succeeded int
	Skipped   int
	Failed    int
	Notified  int
	Duration  time.Duration
}

// Scheduler runs at most one sweep at a time. Each sweep picks up where the
// previous page ended and wraps to the oldest watch after the last page.
type Scheduler struct {
	log       *slog.Logger
	repo      WatchLister
	processor checker.Interface
	opts      Options
	running   atomic.Bool
	cursor    models.Cursor // guarded by running
}

func New(log *slog.Logger, repo WatchLister, processor checker.Interface, opts Options) *Scheduler {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}

	return &Scheduler{log: log, repo: repo, processor: processor, opts: opts}
}

// Run starts a sweep right away and then on every tick until ctx is done.
// A tick that lands while a sweep is still running is dropped.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		s.log.WarnContext(ctx, "Invalid sweep interval, using default", "interval", interval, "default", defaultInterval)
		interval = defaultInterval
	}

	s.log.InfoContext(ctx, "Scheduler started", "interval", interval, "batch_size", s.opts.BatchSize)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var wg sync.WaitGroup
	trigger := func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Sweep(ctx) // outcomes are logged by Sweep
		}()
	}

	trigger()
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			s.log.Info("Scheduler stopped")
			return
		case <-ticker.C:
			trigger()
		}
	}
}

// Sweep processes the next page of active watches once. Only a listing failure
// or cancellation of ctx ends it early.
func (s *Scheduler) Sweep(ctx context.Context) (Report, error) {
	const opn = "scheduler.Sweep"
	log := s.log.With("op", opn)

	if !s.running.CompareAndSwap(false, true) {
		log.InfoContext(ctx, "Sweep already running, dropping trigger")
		return Report{}, ErrSweepInProgress
	}
	defer s.running.Store(false)

	start := time.Now()
	var report Report

	watches, err := s.nextPage(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to list watches, sweep aborted", "error", err)
		return report, fmt.Errorf("%s: failed to list watches: %w", opn, err)
	}
	report.Listed = len(watches)

	active := slices.DeleteFunc(watches, func(w models.Watch) bool {
		return w.Status != models.WatchActive
	})
	report.Inactive = report.Listed - len(active)

	first := true
	for batch := range slices.Chunk(active, s.opts.BatchSize) {
		if !first && s.opts.BatchDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(s.opts.BatchDelay):
			}
		}
		first = false

		if err = ctx.Err(); err != nil {
			log.WarnContext(ctx, "Sweep interrupted", "error", err)
			report.Duration = time.Since(start)
			return report, fmt.Errorf("%s: %w", opn, err)
		}

		for _, res := range s.runBatch(ctx, batch) {
			report.add(res)
		}
	}

	report.Duration = time.Since(start)
	log.InfoContext(ctx, "Sweep complete",
		"listed", report.Listed,
		"inactive", report.Inactive,
		"succeeded", report.Succeeded,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"notified", report.Notified,
		"duration", report.Duration,
	)

	return report, nil
}

// nextPage lists the watches after the cursor and moves the cursor past them.
// A short page means the end was reached, so the next sweep starts over. An
// empty page after a full one starts over right away.
func (s *Scheduler) nextPage(ctx context.Context) ([]models.Watch, error) {
	watches, err := s.list(ctx, s.cursor)
	if err != nil {
		return nil, err
	}

	if len(watches) == 0 && !s.cursor.IsZero() {
		s.cursor = models.Cursor{}
		if watches, err = s.list(ctx, s.cursor); err != nil {
			return nil, err
		}
	}

	if s.opts.ListLimit <= 0 || len(watches) < s.opts.ListLimit {
		s.cursor = models.Cursor{}
	} else {
		s.cursor = watches[len(watches)-1].Cursor()
	}

	return watches, nil
}

func (s *Scheduler) list(ctx context.Context, after models.Cursor) ([]models.Watch, error) {
	var watches []models.Watch
	err := s.opts.ListPolicy.Do(ctx, func(ctx context.Context) error {
		var listErr error
		watches, listErr = s.repo.ListActive(ctx, after, s.opts.ListLimit)
		return listErr
	})

	return watches, err //nolint:wrapcheck // wrapped by Sweep
}

// runBatch processes one batch concurrently and waits for all of it.
func (s *Scheduler) runBatch(ctx context.Context, batch []models.Watch) []checker.Result {
	results := make([]checker.Result, len(batch))

	var g errgroup.Group
	for i, watch := range batch {
		g.Go(func() error {
			results[i] = s.safeProcess(ctx, watch)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	return results
}

// safeProcess keeps a panicking processor from taking down the batch.
func (s *Scheduler) safeProcess(ctx context.Context, watch models.Watch) (res checker.Result) {
	defer func() {
		if r := recover(); r != nil {
			s.log.ErrorContext(ctx, "Processor panicked", "watch_id", watch.ID, "panic", r)
			res = checker.Result{
				WatchID: watch.ID,
				Outcome: models.OutcomeFailed,
				Err:     fmt.Errorf("processor panic: %v", r),
			}
		}
	}()

	return s.processor.Process(ctx, watch)
}

func (r *Report) add(res checker.Result) {
	switch res.Outcome {
	case models.OutcomeSuccess:
		r.Succeeded++
	case models.OutcomeSkipped:
		r.Skipped++
	case models.OutcomeFailed:
		r.Failed++
	}
	r.Notified += res.Notified
}
