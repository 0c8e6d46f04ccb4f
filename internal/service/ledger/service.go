package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/outflow-ledger/internal/config"
	"github.com/josh-kwaku/outflow-ledger/internal/domain"
	"github.com/josh-kwaku/outflow-ledger/internal/logging"
)

type entryStore interface {
	Insert(ctx context.Context, e *domain.LedgerEntry) error
	InsertMany(ctx context.Context, entries []*domain.LedgerEntry) (int, error)
	Update(ctx context.Context, e *domain.LedgerEntry) error
	Delete(ctx context.Context, companyID, id uuid.UUID) error
	FindByID(ctx context.Context, companyID, id uuid.UUID) (*domain.LedgerEntry, error)
	FindChildren(ctx context.Context, companyID, parentID uuid.UUID) ([]domain.LedgerEntry, error)
	FindRoots(ctx context.Context, companyID uuid.UUID, filter domain.RootFilter) ([]domain.LedgerEntry, error)
}

// txRunner is implemented by stores that can group writes into one
// transaction. Store calls made with the ctx passed to fn join it.
type txRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type attachmentStore interface {
	Create(ctx context.Context, a *domain.Attachment) error
	CountAttachments(ctx context.Context, entryID uuid.UUID) (int, error)
	ListByEntry(ctx context.Context, entryID uuid.UUID) ([]domain.Attachment, error)
}

type eventPublisher interface {
	Publish(ctx context.Context, event domain.EntryEvent) error
}

const defaultMaxInstallments = 120

type Service struct {
	entries     entryStore
	attachments attachmentStore
	events      eventPublisher
	config      *config.Config
	now         func() time.Time
}

func NewService(
	entries entryStore,
	attachments attachmentStore,
	events eventPublisher,
	cfg *config.Config,
) *Service {
	return &Service{
		entries:     entries,
		attachments: attachments,
		events:      events,
		config:      cfg,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

type EntryInput struct {
	CompanyID       uuid.UUID
	CategoryID      uuid.UUID
	ItemID          uuid.UUID
	Description     string
	Amount          decimal.Decimal
	ReferencePeriod domain.Period
	DueDate         time.Time
}

// EntryChanges lists the fields to overwrite. Nil fields keep their value.
type EntryChanges struct {
	CategoryID      *uuid.UUID
	ItemID          *uuid.UUID
	Description     *string
	Amount          *decimal.Decimal
	ReferencePeriod *domain.Period
	DueDate         *time.Time
	ExpectedVersion *int64
}

type AttachmentInput struct {
	FileName    string
	StoragePath string
	ContentType string
	SizeBytes   int64
}

func (s *Service) maxInstallments() int {
	if s.config == nil || s.config.MaxInstallments <= 0 {
		return defaultMaxInstallments
	}
	return s.config.MaxInstallments
}

// transactional reports whether the store can group writes.
func (s *Service) transactional() (txRunner, bool) {
	tx, ok := s.entries.(txRunner)
	return tx, ok
}

// inTx runs fn inside a store transaction. Errors raised by fn pass through
// untouched; anything else (begin or commit) is a commit-phase store error.
func (s *Service) inTx(ctx context.Context, tx txRunner, fn func(ctx context.Context) error) error {
	var fnErr error
	err := tx.InTx(ctx, func(ctx context.Context) error {
		fnErr = fn(ctx)
		return fnErr
	})
	if err == nil {
		return nil
	}
	if fnErr != nil {
		return fnErr
	}
	return storeFailure(domain.PhaseCommit, err)
}

func (s *Service) lookup(ctx context.Context, companyID, id uuid.UUID, phase domain.StorePhase) (*domain.LedgerEntry, error) {
	e, err := s.entries.FindByID(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.NotFoundError{ID: id}
		}
		return nil, storeFailure(phase, err)
	}
	return e, nil
}

func (s *Service) publish(ctx context.Context, typ domain.EntryEventType, e *domain.LedgerEntry) {
	if s.events == nil {
		return
	}
	event := domain.EntryEvent{
		ID:            uuid.New(),
		Type:          typ,
		CompanyID:     e.CompanyID,
		EntryID:       e.ID,
		ParentEntryID: e.ParentEntryID,
		Amount:        e.Amount,
		OccurredAt:    s.now(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		logging.FromContext(ctx).Warn("entry event not published",
			"event_type", typ,
			"entry_id", e.ID,
			"error", err,
		)
	}
}

func storeFailure(phase domain.StorePhase, err error) error {
	return &domain.StoreError{Phase: phase, Err: err}
}

func newEntry(in EntryInput, now time.Time) *domain.LedgerEntry {
	return &domain.LedgerEntry{
		ID:               uuid.New(),
		CompanyID:        in.CompanyID,
		CategoryID:       in.CategoryID,
		ItemID:           in.ItemID,
		Description:      in.Description,
		Amount:           in.Amount,
		ReferencePeriod:  in.ReferencePeriod,
		DueDate:          domain.DateOf(in.DueDate),
		InstallmentCount: 1,
		CreatedAt:        now,
	}
}

func installmentDescription(description string, number, count int) string {
	return fmt.Sprintf("%s - Installment %d/%d", description, number, count)
}
