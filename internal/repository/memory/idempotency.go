package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/outflow-ledger/internal/repository"
)

type idempotencyKey struct {
	key       string
	companyID uuid.UUID
}

// IdempotencyStore mirrors the Postgres idempotency_cache semantics: a live
// entry is never overwritten, an expired one is.
type IdempotencyStore struct {
	mu      sync.Mutex
	entries map[idempotencyKey]repository.IdempotencyCacheEntry
	now     func() time.Time
}

func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{
		entries: make(map[idempotencyKey]repository.IdempotencyCacheEntry),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *IdempotencyStore) Get(_ context.Context, key string, companyID uuid.UUID) (*repository.IdempotencyCacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[idempotencyKey{key, companyID}]
	if !ok || !e.ExpiresAt.After(s.now()) {
		return nil, nil
	}
	body := append([]byte(nil), e.ResponseBody...)
	e.ResponseBody = body
	return &e, nil
}

func (s *IdempotencyStore) Set(_ context.Context, entry *repository.IdempotencyCacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := idempotencyKey{entry.Key, entry.CompanyID}
	if existing, ok := s.entries[k]; ok && existing.ExpiresAt.After(s.now()) {
		return nil
	}
	e := *entry
	e.ResponseBody = append([]byte(nil), entry.ResponseBody...)
	s.entries[k] = e
	return nil
}

func (s *IdempotencyStore) CleanExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var n int64
	for k, e := range s.entries {
		if e.ExpiresAt.Before(now) {
			delete(s.entries, k)
			n++
		}
	}
	return n, nil
}
