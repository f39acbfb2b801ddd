package checker

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/Houeta/seat-watch/internal/models"
	"github.com/Houeta/seat-watch/internal/notify"
	"github.com/Houeta/seat-watch/internal/retry"
)

const defaultNotifyTimeout = 10 * time.Second

// SectionSource fetches the current sections for a search spec.
type SectionSource interface {
	Fetch(ctx context.Context, spec models.SearchSpec) ([]models.Section, error)
}

// SnapshotStore persists a watch's latest snapshot.
type SnapshotStore interface {
	UpdateSections(ctx context.Context, id string, sections []models.Section) (bool, error)
}

// AlertLedger remembers delivered alerts so a re-detected transition is not sent twice.
type AlertLedger interface {
	AlertSent(ctx context.Context, key models.AlertKey) (bool, error)
	RecordAlert(ctx context.Context, key models.AlertKey) error
}

// Notifier delivers a message to a recipient.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

type Interface interface {
	// Process runs one poll of a single active watch.
	Process(ctx context.Context, watch models.Watch) Result
}

// Policies bound the boundary calls made while processing a watch.
type Policies struct {
	Fetch         retry.Policy
	Store         retry.Policy
	NotifyTimeout time.Duration
}

// Result is the typed outcome of processing one watch.
type Result struct {
	WatchID   string
	Outcome   models.Outcome
	Changes   []models.Section
	Notified  int
	Persisted bool
	Err       error
}

// Processor runs fetch, diff, notify and persist for one watch at a time.
type Processor struct {
	log      *slog.Logger
	source   SectionSource
	store    SnapshotStore
	ledger   AlertLedger
	notifier Notifier
	policies Policies
}

// NewProcessor creates a Processor. ledger may be nil, alerts are then not deduplicated.
func NewProcessor(
	log *slog.Logger,
	source SectionSource,
	store SnapshotStore,
	ledger AlertLedger,
	notifier Notifier,
	policies Policies,
) *Processor {
	if policies.NotifyTimeout <= 0 {
		policies.NotifyTimeout = defaultNotifyTimeout
	}

	return &Processor{
		log:      log,
		source:   source,
		store:    store,
		ledger:   ledger,
		notifier: notifier,
		policies: policies,
	}
}

// Process polls one watch. It never panics and never returns an error, every
// failure is reported through the Result.
func (p *Processor) Process(ctx context.Context, watch models.Watch) (res Result) {
	const opn = "checker.Process"
	log := p.log.With("op", opn, "watch_id", watch.ID)
	res.WatchID = watch.ID

	defer func() {
		if r := recover(); r != nil {
			log.ErrorContext(ctx, "Watch processing panicked", "panic", r)
			res.Outcome = models.OutcomeFailed
			res.Err = fmt.Errorf("%s: panic: %v", opn, r)
		}
	}()

	// 1. Fetch the current sections.
	var current []models.Section
	err := p.policies.Fetch.Do(ctx, func(ctx context.Context) error {
		var fetchErr error
		current, fetchErr = p.source.Fetch(ctx, watch.Spec)
		return fetchErr
	})
	if err != nil {
		log.WarnContext(ctx, "Fetch failed, keeping stored snapshot", "error", err)
		res.Outcome = models.OutcomeSkipped
		res.Err = fmt.Errorf("%s: failed to fetch sections: %w", opn, err)
		return res
	}

	// 2. An empty answer for a watch that had sections is treated as a failed fetch.
	if len(current) == 0 && len(watch.Sections) > 0 {
		log.WarnContext(ctx, "Upstream returned no sections, keeping stored snapshot")
		res.Outcome = models.OutcomeSkipped
		return res
	}

	// 3. Compare snapshots.
	res.Changes = DetectChanges(watch.Sections, current)
	if len(res.Changes) > 0 {
		log.InfoContext(ctx, "Status changes detected", "changed", len(res.Changes))
	}

	// 4. Notify. Must happen before the snapshot is overwritten.
	res.Notified = p.notifyChanges(ctx, log, watch, res.Changes)

	// 5. Persist only when the snapshot actually differs.
	if slices.Equal(watch.Sections, current) {
		log.DebugContext(ctx, "Snapshot unchanged")
		res.Outcome = models.OutcomeSuccess
		return res
	}

	var found bool
	err = p.policies.Store.Do(ctx, func(ctx context.Context) error {
		var storeErr error
		found, storeErr = p.store.UpdateSections(ctx, watch.ID, current)
		return storeErr
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to persist snapshot", "error", err)
		res.Outcome = models.OutcomeFailed
		res.Err = fmt.Errorf("%s: failed to update sections: %w", opn, err)
		return res
	}

	if !found {
		log.InfoContext(ctx, "Watch was deleted while being processed")
		res.Outcome = models.OutcomeSkipped
		return res
	}

	res.Persisted = true
	res.Outcome = models.OutcomeSuccess
	log.InfoContext(ctx, "Successfully updated snapshot", "sections", len(current))

	return res
}

// notifyChanges sends one alert per changed section and returns how many were
// delivered. Failures are logged and never retried within the cycle.
func (p *Processor) notifyChanges(ctx context.Context, log *slog.Logger, watch models.Watch, changes []models.Section) int {
	sent := 0

	for _, section := range changes {
		key := models.AlertKey{
			WatchID: watch.ID,
			CRN:     section.CRN,
			Status:  section.Status,
			Version: watch.UpdatedAt.UnixNano(),
		}

		if p.alreadySent(ctx, log, key) {
			log.InfoContext(ctx, "Alert already delivered, skipping", "crn", section.CRN, "status", section.Status)
			continue
		}

		msg := notify.StatusChange(section)

		sendCtx, cancel := context.WithTimeout(ctx, p.policies.NotifyTimeout)
		err := p.notifier.Send(sendCtx, watch.Recipient, msg.Subject, msg.Body)
		cancel()

		if err != nil {
			log.ErrorContext(ctx, "Failed to send status alert", "crn", section.CRN, "error", err)
			continue
		}
		sent++

		if p.ledger != nil {
			if err = p.ledger.RecordAlert(ctx, key); err != nil {
				log.WarnContext(ctx, "Failed to record delivered alert", "crn", section.CRN, "error", err)
			}
		}
	}

	return sent
}

// alreadySent consults the ledger. A ledger failure counts as not sent, a
// duplicate alert is preferred over a lost one.
func (p *Processor) alreadySent(ctx context.Context, log *slog.Logger, key models.AlertKey) bool {
	if p.ledger == nil {
		return false
	}

	sent, err := p.ledger.AlertSent(ctx, key)
	if err != nil {
		log.WarnContext(ctx, "Failed to read alert ledger", "crn", key.CRN, "error", err)
		return false
	}

	return sent
}
