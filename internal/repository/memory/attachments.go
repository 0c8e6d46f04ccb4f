package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/josh-kwaku/outflow-ledger/internal/domain"
)

type AttachmentStore struct {
	mu      sync.RWMutex
	byEntry map[uuid.UUID][]domain.Attachment
}

func NewAttachmentStore() *AttachmentStore {
	return &AttachmentStore{byEntry: make(map[uuid.UUID][]domain.Attachment)}
}

func (s *AttachmentStore) Create(_ context.Context, a *domain.Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byEntry[a.EntryID] = append(s.byEntry[a.EntryID], *a)
	return nil
}

func (s *AttachmentStore) CountAttachments(_ context.Context, entryID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byEntry[entryID]), nil
}

func (s *AttachmentStore) ListByEntry(_ context.Context, entryID uuid.UUID) ([]domain.Attachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Attachment(nil), s.byEntry[entryID]...), nil
}
