// Package memory is an in-process EntryStore. Entries live in an arena keyed
// by id; the parent to installments index is rebuilt on every read so a
// deleted parent never leaves a dangling in-memory reference behind.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/outflow-ledger/internal/domain"
)

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpFind   Op = "find"
)

// FaultFunc lets callers inject store failures. A non-nil return aborts the
// operation before it touches the arena.
type FaultFunc func(op Op, e *domain.LedgerEntry) error

type Option func(*EntryStore)

func WithFault(f FaultFunc) Option {
	return func(s *EntryStore) { s.fault = f }
}

type EntryStore struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]domain.LedgerEntry
	fault   FaultFunc
	now     func() time.Time
}

func NewEntryStore(opts ...Option) *EntryStore {
	s := &EntryStore{
		entries: make(map[uuid.UUID]domain.LedgerEntry),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetFault replaces the fault hook; nil clears it.
func (s *EntryStore) SetFault(f FaultFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = f
}

func (s *EntryStore) Insert(_ context.Context, e *domain.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.injected(OpInsert, e); err != nil {
		return fmt.Errorf("Insert: %w", err)
	}
	if _, ok := s.entries[e.ID]; ok {
		return fmt.Errorf("Insert: duplicate id %s", e.ID)
	}

	now := s.now()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = e.CreatedAt
	if e.Version == 0 {
		e.Version = 1
	}
	s.entries[e.ID] = clone(*e)
	return nil
}

func (s *EntryStore) InsertMany(ctx context.Context, entries []*domain.LedgerEntry) (int, error) {
	for i, e := range entries {
		if err := s.Insert(ctx, e); err != nil {
			return i, fmt.Errorf("InsertMany: entry %d: %w", i, err)
		}
	}
	return len(entries), nil
}

func (s *EntryStore) Update(_ context.Context, e *domain.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.injected(OpUpdate, e); err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	cur, ok := s.entries[e.ID]
	if !ok || cur.CompanyID != e.CompanyID {
		return fmt.Errorf("Update: %w", domain.ErrNotFound)
	}
	if cur.Version != e.Version {
		return fmt.Errorf("Update: %w", domain.ErrVersionConflict)
	}

	cur.CategoryID = e.CategoryID
	cur.ItemID = e.ItemID
	cur.Description = e.Description
	cur.Amount = e.Amount
	cur.ReferencePeriod = e.ReferencePeriod
	cur.DueDate = e.DueDate
	cur.InstallmentCount = e.InstallmentCount
	cur.Version++
	cur.UpdatedAt = s.now()
	s.entries[e.ID] = cur

	e.Version = cur.Version
	e.UpdatedAt = cur.UpdatedAt
	return nil
}

func (s *EntryStore) Delete(_ context.Context, companyID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.entries[id]
	if err := s.injected(OpDelete, &cur); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if !ok || cur.CompanyID != companyID {
		return fmt.Errorf("Delete: %w", domain.ErrNotFound)
	}
	delete(s.entries, id)
	return nil
}

func (s *EntryStore) FindByID(_ context.Context, companyID, id uuid.UUID) (*domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cur, ok := s.entries[id]
	if err := s.injected(OpFind, &cur); err != nil {
		return nil, fmt.Errorf("FindByID: %w", err)
	}
	if !ok || cur.CompanyID != companyID {
		return nil, fmt.Errorf("FindByID: %w", domain.ErrNotFound)
	}
	e := clone(cur)
	return &e, nil
}

func (s *EntryStore) FindChildren(_ context.Context, companyID, parentID uuid.UUID) ([]domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.injected(OpFind, nil); err != nil {
		return nil, fmt.Errorf("FindChildren: %w", err)
	}

	ids := s.childIndex(companyID)[parentID]
	out := make([]domain.LedgerEntry, 0, len(ids))
	for _, id := range ids {
		out = append(out, clone(s.entries[id]))
	}
	sort.Slice(out, func(i, j int) bool {
		return *out[i].InstallmentNumber < *out[j].InstallmentNumber
	})
	return out, nil
}

func (s *EntryStore) FindRoots(_ context.Context, companyID uuid.UUID, filter domain.RootFilter) ([]domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.injected(OpFind, nil); err != nil {
		return nil, fmt.Errorf("FindRoots: %w", err)
	}

	var out []domain.LedgerEntry
	for _, e := range s.entries {
		if e.CompanyID != companyID || !filter.Matches(&e) {
			continue
		}
		out = append(out, clone(e))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.After(out[j].DueDate)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Len reports the number of stored entries across all companies.
func (s *EntryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *EntryStore) childIndex(companyID uuid.UUID) map[uuid.UUID][]uuid.UUID {
	idx := make(map[uuid.UUID][]uuid.UUID)
	for id, e := range s.entries {
		if e.CompanyID != companyID || e.ParentEntryID == nil {
			continue
		}
		idx[*e.ParentEntryID] = append(idx[*e.ParentEntryID], id)
	}
	return idx
}

func (s *EntryStore) injected(op Op, e *domain.LedgerEntry) error {
	if s.fault == nil {
		return nil
	}
	return s.fault(op, e)
}

func clone(e domain.LedgerEntry) domain.LedgerEntry {
	if e.InstallmentNumber != nil {
		n := *e.InstallmentNumber
		e.InstallmentNumber = &n
	}
	if e.ParentEntryID != nil {
		id := *e.ParentEntryID
		e.ParentEntryID = &id
	}
	return e
}
