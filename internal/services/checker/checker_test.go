package checker_test

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Houeta/seat-watch/internal/models"
	"github.com/Houeta/seat-watch/internal/retry"
	"github.com/Houeta/seat-watch/internal/services/checker"
	"github.com/Houeta/seat-watch/test/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	open100   = models.Section{CRN: "100", Title: "Algorithms", Status: models.StatusOpen}
	closed100 = models.Section{CRN: "100", Title: "Algorithms", Status: models.StatusClosed}
	open200   = models.Section{CRN: "200", Title: "Compilers", Status: models.StatusOpen}
	open300   = models.Section{CRN: "300", Title: "Networks", Status: models.StatusOpen}
)

var errNetwork = errors.New("network error")

func activeWatch(sections ...models.Section) models.Watch {
	return models.Watch{
		ID:        "w1",
		Spec:      models.SearchSpec{Subject: "CSCE", CourseNumber: "411"},
		Recipient: "42",
		Status:    models.WatchActive,
		Sections:  sections,
		UpdatedAt: time.Unix(0, 1000),
	}
}

func TestProcessor_Process(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	keyClosed := models.AlertKey{WatchID: "w1", CRN: "100", Status: models.StatusClosed, Version: 1000}

	testCases := []struct {
		name       string
		watch      models.Watch
		setupMocks func(src *mocks.SectionSource, repo *mocks.WatchRepository, ledger *mocks.AlertLedger, n *mocks.Notifier)
		outcome    models.Outcome
		changes    []models.Section
		notified   int
		persisted  bool
	}{
		{
			name:  "Success: transition notified and persisted",
			watch: activeWatch(open100),
			setupMocks: func(src *mocks.SectionSource, repo *mocks.WatchRepository, ledger *mocks.AlertLedger, n *mocks.Notifier) {
				src.On("Fetch", mock.Anything, mock.Anything).Return([]models.Section{closed100}, nil).Once()
				ledger.On("AlertSent", mock.Anything, keyClosed).Return(false, nil).Once()
				n.On("Send", mock.Anything, "42", mock.MatchedBy(func(s string) bool {
					return s == "Course Status Change Alert: CRN 100 is Closed"
				}), mock.Anything).Return(nil).Once()
				ledger.On("RecordAlert", mock.Anything, keyClosed).Return(nil).Once()
				repo.On("UpdateSections", mock.Anything, "w1", []models.Section{closed100}).Return(true, nil).Once()
			},
			outcome:   models.OutcomeSuccess,
			changes:   []models.Section{closed100},
			notified:  1,
			persisted: true,
		},
		{
			name:  "No change: nothing sent, nothing written",
			watch: activeWatch(open100, open200),
			setupMocks: func(src *mocks.SectionSource, _ *mocks.WatchRepository, _ *mocks.AlertLedger, _ *mocks.Notifier) {
				src.On("Fetch", mock.Anything, mock.Anything).Return([]models.Section{open100, open200}, nil).Once()
			},
			outcome: models.OutcomeSuccess,
		},
		{
			name:  "New section: persisted without alert",
			watch: activeWatch(open100),
			setupMocks: func(src *mocks.SectionSource, repo *mocks.WatchRepository, _ *mocks.AlertLedger, _ *mocks.Notifier) {
				current := []models.Section{open100, open300}
				src.On("Fetch", mock.Anything, mock.Anything).Return(current, nil).Once()
				repo.On("UpdateSections", mock.Anything, "w1", current).Return(true, nil).Once()
			},
			outcome:   models.OutcomeSuccess,
			persisted: true,
		},
		{
			name:  "Fetch failure: skipped, snapshot untouched",
			watch: activeWatch(open100),
			setupMocks: func(src *mocks.SectionSource, _ *mocks.WatchRepository, _ *mocks.AlertLedger, _ *mocks.Notifier) {
				src.On("Fetch", mock.Anything, mock.Anything).Return(nil, errNetwork).Once()
			},
			outcome: models.OutcomeSkipped,
		},
		{
			name:  "Empty fetch: skipped, snapshot untouched",
			watch: activeWatch(open100),
			setupMocks: func(src *mocks.SectionSource, _ *mocks.WatchRepository, _ *mocks.AlertLedger, _ *mocks.Notifier) {
				src.On("Fetch", mock.Anything, mock.Anything).Return([]models.Section{}, nil).Once()
			},
			outcome: models.OutcomeSkipped,
		},
		{
			name:  "Notifier failure: still persisted",
			watch: activeWatch(open100),
			setupMocks: func(src *mocks.SectionSource, repo *mocks.WatchRepository, ledger *mocks.AlertLedger, n *mocks.Notifier) {
				src.On("Fetch", mock.Anything, mock.Anything).Return([]models.Section{closed100}, nil).Once()
				ledger.On("AlertSent", mock.Anything, keyClosed).Return(false, nil).Once()
				n.On("Send", mock.Anything, "42", mock.Anything, mock.Anything).Return(assert.AnError).Once()
				repo.On("UpdateSections", mock.Anything, "w1", []models.Section{closed100}).Return(true, nil).Once()
			},
			outcome:   models.OutcomeSuccess,
			changes:   []models.Section{closed100},
			persisted: true,
		},
		{
			name:  "Duplicate alert: ledger suppresses the send",
			watch: activeWatch(open100),
			setupMocks: func(src *mocks.SectionSource, repo *mocks.WatchRepository, ledger *mocks.AlertLedger, _ *mocks.Notifier) {
				src.On("Fetch", mock.Anything, mock.Anything).Return([]models.Section{closed100}, nil).Once()
				ledger.On("AlertSent", mock.Anything, keyClosed).Return(true, nil).Once()
				repo.On("UpdateSections", mock.Anything, "w1", []models.Section{closed100}).Return(true, nil).Once()
			},
			outcome:   models.OutcomeSuccess,
			changes:   []models.Section{closed100},
			persisted: true,
		},
		{
			name:  "Ledger read failure: alert still sent",
			watch: activeWatch(open100),
			setupMocks: func(src *mocks.SectionSource, repo *mocks.WatchRepository, ledger *mocks.AlertLedger, n *mocks.Notifier) {
				src.On("Fetch", mock.Anything, mock.Anything).Return([]models.Section{closed100}, nil).Once()
				ledger.On("AlertSent", mock.Anything, keyClosed).Return(false, assert.AnError).Once()
				n.On("Send", mock.Anything, "42", mock.Anything, mock.Anything).Return(nil).Once()
				ledger.On("RecordAlert", mock.Anything, keyClosed).Return(assert.AnError).Once()
				repo.On("UpdateSections", mock.Anything, "w1", []models.Section{closed100}).Return(true, nil).Once()
			},
			outcome:   models.OutcomeSuccess,
			changes:   []models.Section{closed100},
			notified:  1,
			persisted: true,
		},
		{
			name:  "Persist failure: failed",
			watch: activeWatch(open100),
			setupMocks: func(src *mocks.SectionSource, repo *mocks.WatchRepository, ledger *mocks.AlertLedger, n *mocks.Notifier) {
				src.On("Fetch", mock.Anything, mock.Anything).Return([]models.Section{closed100}, nil).Once()
				ledger.On("AlertSent", mock.Anything, keyClosed).Return(false, nil).Once()
				n.On("Send", mock.Anything, "42", mock.Anything, mock.Anything).Return(nil).Once()
				ledger.On("RecordAlert", mock.Anything, keyClosed).Return(nil).Once()
				repo.On("UpdateSections", mock.Anything, "w1", mock.Anything).Return(false, assert.AnError).Once()
			},
			outcome:  models.OutcomeFailed,
			changes:  []models.Section{closed100},
			notified: 1,
		},
		{
			name:  "Watch deleted mid-cycle: skipped",
			watch: activeWatch(open100),
			setupMocks: func(src *mocks.SectionSource, repo *mocks.WatchRepository, _ *mocks.AlertLedger, _ *mocks.Notifier) {
				src.On("Fetch", mock.Anything, mock.Anything).Return([]models.Section{open100, open300}, nil).Once()
				repo.On("UpdateSections", mock.Anything, "w1", mock.Anything).Return(false, nil).Once()
			},
			outcome: models.OutcomeSkipped,
		},
		{
			name:  "Panic in source: failed",
			watch: activeWatch(open100),
			setupMocks: func(src *mocks.SectionSource, _ *mocks.WatchRepository, _ *mocks.AlertLedger, _ *mocks.Notifier) {
				src.On("Fetch", mock.Anything, mock.Anything).Panic("boom").Once()
			},
			outcome: models.OutcomeFailed,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			src := mocks.NewSectionSource(t)
			repo := mocks.NewWatchRepository(t)
			ledger := mocks.NewAlertLedger(t)
			notifier := mocks.NewNotifier(t)
			tc.setupMocks(src, repo, ledger, notifier)

			processor := checker.NewProcessor(logger, src, repo, ledger, notifier, checker.Policies{})

			res := processor.Process(t.Context(), tc.watch)

			assert.Equal(t, "w1", res.WatchID)
			assert.Equal(t, tc.outcome, res.Outcome, "outcome %s, err %v", res.Outcome, res.Err)
			assert.Equal(t, tc.changes, res.Changes)
			assert.Equal(t, tc.notified, res.Notified)
			assert.Equal(t, tc.persisted, res.Persisted)
		})
	}
}

func TestProcessor_RetriesTransientFetch(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	src := mocks.NewSectionSource(t)
	repo := mocks.NewWatchRepository(t)
	notifier := mocks.NewNotifier(t)

	src.On("Fetch", mock.Anything, mock.Anything).Return(nil, errNetwork).Twice()
	src.On("Fetch", mock.Anything, mock.Anything).Return([]models.Section{open100}, nil).Once()

	policies := checker.Policies{
		Fetch: retry.Policy{
			MaxAttempts: 3,
			BaseDelay:   time.Millisecond,
			Retryable:   func(err error) bool { return errors.Is(err, errNetwork) },
		},
	}
	processor := checker.NewProcessor(logger, src, repo, nil, notifier, policies)

	res := processor.Process(t.Context(), activeWatch(open100))

	require.NoError(t, res.Err)
	assert.Equal(t, models.OutcomeSuccess, res.Outcome)
}

func TestProcessor_FetchFailureLeavesStateUntouched(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	src := mocks.NewSectionSource(t)
	repo := mocks.NewWatchRepository(t)
	notifier := mocks.NewNotifier(t)

	src.On("Fetch", mock.Anything, mock.Anything).Return(nil, errNetwork).Once()

	processor := checker.NewProcessor(logger, src, repo, nil, notifier, checker.Policies{})

	res := processor.Process(t.Context(), activeWatch(open100))

	assert.Equal(t, models.OutcomeSkipped, res.Outcome)
	require.ErrorIs(t, res.Err, errNetwork)
	repo.AssertNotCalled(t, "UpdateSections", mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
