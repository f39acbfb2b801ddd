// Package initializer captures the baseline snapshot of a freshly created watch.
package initializer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Houeta/seat-watch/internal/models"
	"github.com/Houeta/seat-watch/internal/notify"
	"github.com/Houeta/seat-watch/internal/repository"
	"github.com/Houeta/seat-watch/internal/services/checker"
)

const defaultNotifyTimeout = 10 * time.Second

// WatchStore is the part of the repository the initializer needs.
type WatchStore interface {
	GetByID(ctx context.Context, id string) (*models.Watch, error)
	UpdateSections(ctx context.Context, id string, sections []models.Section) (bool, error)
	UpdateStatus(ctx context.Context, id string, status models.WatchStatus) error
}

type Interface interface {
	Initialize(ctx context.Context, id string) models.Outcome
}

type Initializer struct {
	log      *slog.Logger
	store    WatchStore
	source   checker.SectionSource
	notifier checker.Notifier
	policies checker.Policies
}

func New(
	log *slog.Logger,
	store WatchStore,
	source checker.SectionSource,
	notifier checker.Notifier,
	policies checker.Policies,
) *Initializer {
	if policies.NotifyTimeout <= 0 {
		policies.NotifyTimeout = defaultNotifyTimeout
	}

	return &Initializer{log: log, store: store, source: source, notifier: notifier, policies: policies}
}

// Initialize moves an initializing watch to active once its baseline is stored,
// or to failed when no baseline can be captured. Watches in any other state are
// left alone.
func (i *Initializer) Initialize(ctx context.Context, id string) (outcome models.Outcome) {
	const opn = "initializer.Initialize"
	log := i.log.With("op", opn, "watch_id", id)

	defer func() {
		if r := recover(); r != nil {
			log.ErrorContext(ctx, "Initialization panicked", "panic", r)
			i.markFailed(ctx, log, id)
			outcome = models.OutcomeFailed
		}
	}()

	// 1. Load the watch.
	var watch *models.Watch
	err := i.policies.Store.Do(ctx, func(ctx context.Context) error {
		var getErr error
		watch, getErr = i.store.GetByID(ctx, id)
		return getErr
	})
	if errors.Is(err, repository.ErrWatchNotFound) {
		log.WarnContext(ctx, "Watch not found, initialization aborted")
		return models.OutcomeSkipped
	}
	if err != nil {
		log.ErrorContext(ctx, "Failed to load watch", "error", err)
		i.markFailed(ctx, log, id)
		return models.OutcomeFailed
	}

	if watch.Status != models.WatchInitializing {
		log.InfoContext(ctx, "Watch already initialized", "status", watch.Status)
		return models.OutcomeSkipped
	}

	// 2. Capture the baseline.
	var sections []models.Section
	err = i.policies.Fetch.Do(ctx, func(ctx context.Context) error {
		var fetchErr error
		sections, fetchErr = i.source.Fetch(ctx, watch.Spec)
		return fetchErr
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to fetch baseline", "spec", watch.Spec.String(), "error", err)
		i.markFailed(ctx, log, id)
		return models.OutcomeFailed
	}
	if len(sections) == 0 {
		log.WarnContext(ctx, "No sections match the watch", "spec", watch.Spec.String())
		i.markFailed(ctx, log, id)
		return models.OutcomeFailed
	}

	// 3. Persist it.
	var found bool
	err = i.policies.Store.Do(ctx, func(ctx context.Context) error {
		var storeErr error
		found, storeErr = i.store.UpdateSections(ctx, id, sections)
		return storeErr
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to store baseline", "error", err)
		i.markFailed(ctx, log, id)
		return models.OutcomeFailed
	}
	if !found {
		log.InfoContext(ctx, "Watch was deleted during initialization")
		return models.OutcomeSkipped
	}

	// 4. Confirm to the recipient. Delivery problems do not fail the watch.
	msg := notify.Confirmation(sections)
	sendCtx, cancel := context.WithTimeout(ctx, i.policies.NotifyTimeout)
	if err = i.notifier.Send(sendCtx, watch.Recipient, msg.Subject, msg.Body); err != nil {
		log.WarnContext(ctx, "Failed to send confirmation", "error", err)
	}
	cancel()

	// 5. Activate.
	err = i.policies.Store.Do(ctx, func(ctx context.Context) error {
		return i.store.UpdateStatus(ctx, id, models.WatchActive)
	})
	if errors.Is(err, repository.ErrWatchNotFound) {
		log.InfoContext(ctx, "Watch was deleted during initialization")
		return models.OutcomeSkipped
	}
	if err != nil {
		log.ErrorContext(ctx, "Failed to activate watch", "error", err)
		i.markFailed(ctx, log, id)
		return models.OutcomeFailed
	}

	log.InfoContext(ctx, "Watch initialized", "sections", len(sections))

	return models.OutcomeSuccess
}

func (i *Initializer) markFailed(ctx context.Context, log *slog.Logger, id string) {
	err := i.policies.Store.Do(ctx, func(ctx context.Context) error {
		return i.store.UpdateStatus(ctx, id, models.WatchFailed)
	})
	if err != nil && !errors.Is(err, repository.ErrWatchNotFound) {
		log.ErrorContext(ctx, "Failed to mark watch as failed", "error", fmt.Errorf("mark failed: %w", err))
	}
}
