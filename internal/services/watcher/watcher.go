// Package watcher is the entry point for creating, listing and removing watches.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Houeta/seat-watch/internal/models"
	"github.com/Houeta/seat-watch/internal/repository"
	"github.com/Houeta/seat-watch/internal/services/initializer"
)

// Store is the part of the repository the watch service needs.
type Store interface {
	CreateMinimal(ctx context.Context, spec models.SearchSpec, recipient string) (string, error)
	GetByID(ctx context.Context, id string) (*models.Watch, error)
	ListAll(ctx context.Context) ([]models.Watch, error)
	ListByRecipient(ctx context.Context, recipient string) ([]models.Watch, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// Service creates watches and runs their initialization in the background.
type Service struct {
	log      *slog.Logger
	store    Store
	baseline initializer.Interface
	wg       sync.WaitGroup
}

func New(log *slog.Logger, store Store, baseline initializer.Interface) *Service {
	return &Service{log: log, store: store, baseline: baseline}
}

// Create stores a watch and returns its ID right away. The baseline is
// captured asynchronously; use Wait to block until it is done.
func (s *Service) Create(ctx context.Context, spec models.SearchSpec, recipient string) (string, error) {
	const opn = "watcher.Create"
	log := s.log.With("op", opn)

	if err := spec.Validate(); err != nil {
		return "", fmt.Errorf("%s: %w", opn, err)
	}

	id, err := s.store.CreateMinimal(ctx, spec, recipient)
	if err != nil {
		return "", fmt.Errorf("%s: failed to create watch: %w", opn, err)
	}
	log.InfoContext(ctx, "Watch created", "watch_id", id, "spec", spec.String())

	// The request that created the watch may end before initialization does.
	initCtx := context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		outcome := s.baseline.Initialize(initCtx, id)
		log.InfoContext(initCtx, "Initialization finished", "watch_id", id, "outcome", outcome.String())
	}()

	return id, nil
}

// Wait blocks until every background initialization has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Get returns a single watch.
func (s *Service) Get(ctx context.Context, id string) (*models.Watch, error) {
	const opn = "watcher.Get"

	watch, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opn, err)
	}

	return watch, nil
}

// List returns the watches of one recipient, or every watch when recipient is empty.
func (s *Service) List(ctx context.Context, recipient string) ([]models.Watch, error) {
	const opn = "watcher.List"

	var (
		watches []models.Watch
		err     error
	)
	if recipient == "" {
		watches, err = s.store.ListAll(ctx)
	} else {
		watches, err = s.store.ListByRecipient(ctx, recipient)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opn, err)
	}

	return watches, nil
}

// Delete removes a watch. A non-empty recipient must own the watch; a
// foreign watch is reported as not found.
func (s *Service) Delete(ctx context.Context, id, recipient string) error {
	const opn = "watcher.Delete"
	log := s.log.With("op", opn, "watch_id", id)

	if recipient != "" {
		watch, err := s.store.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("%s: %w", opn, err)
		}
		if watch.Recipient != recipient {
			log.WarnContext(ctx, "Refusing to delete a foreign watch", "recipient", recipient)
			return fmt.Errorf("%s: %w", opn, repository.ErrWatchNotFound)
		}
	}

	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: failed to delete watch: %w", opn, err)
	}
	if !deleted {
		return fmt.Errorf("%s: %w", opn, repository.ErrWatchNotFound)
	}

	log.InfoContext(ctx, "Watch deleted")

	return nil
}

// IsNotFound reports whether err means the watch does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrWatchNotFound)
}
