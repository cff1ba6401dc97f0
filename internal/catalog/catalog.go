// Package catalog is the fetch-through cache of resource kind policies.
//
// Consumers always go through Get/ListActive rather than holding their own
// copy of a kind. The cache is invalidated whenever the resource_kinds table
// changes and on day rollover, so a stale policy can survive at most one
// change event.
package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/campus-reserve/backend/internal/storage"
	"github.com/campus-reserve/backend/internal/storage/models"
)

// Service serves resource kind policies from an in-process cache backed by
// the kind repository.
type Service struct {
	repo *storage.KindRepository

	mu      sync.RWMutex
	byID    map[string]models.ResourceKind
	fetched time.Time

	// maxAge bounds staleness even if an invalidation event is dropped.
	maxAge time.Duration
}

// NewService creates a catalog service over the given repository.
func NewService(repo *storage.KindRepository) *Service {
	return &Service{
		repo:   repo,
		maxAge: 5 * time.Minute,
	}
}

// Get returns the policy for a kind, fetching through to storage on a cache
// miss. Returns storage.ErrNotFound for unknown kinds.
func (s *Service) Get(ctx context.Context, kindID string) (*models.ResourceKind, error) {
	s.mu.RLock()
	kind, ok := s.byID[kindID]
	fresh := time.Since(s.fetched) < s.maxAge
	s.mu.RUnlock()

	if ok && fresh {
		k := kind
		return &k, nil
	}

	if err := s.refresh(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	kind, ok = s.byID[kindID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	k := kind
	return &k, nil
}

// ListActive returns all kinds currently accepting reservations.
// Always reads through to storage: the list is an admin-facing view and
// cheap to compute.
func (s *Service) ListActive(ctx context.Context) ([]models.ResourceKind, error) {
	return s.repo.ListActive(ctx)
}

// ListAll returns every kind, active or not.
func (s *Service) ListAll(ctx context.Context) ([]models.ResourceKind, error) {
	return s.repo.ListAll(ctx)
}

// Invalidate drops the cache. Called on every resource_kinds change event
// and on day rollover; the next Get refetches.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.byID = nil
	s.fetched = time.Time{}
	s.mu.Unlock()
}

func (s *Service) refresh(ctx context.Context) error {
	kinds, err := s.repo.ListAll(ctx)
	if err != nil {
		return err
	}

	byID := make(map[string]models.ResourceKind, len(kinds))
	for _, k := range kinds {
		byID[k.ID] = k
	}

	s.mu.Lock()
	s.byID = byID
	s.fetched = time.Now()
	s.mu.Unlock()
	return nil
}
