package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/outflow-ledger/internal/domain"
	"github.com/josh-kwaku/outflow-ledger/internal/logging"
)

func (s *Service) GetEntry(ctx context.Context, companyID, id uuid.UUID) (*domain.EntryDetail, error) {
	e, err := s.lookup(ctx, companyID, id, domain.PhaseLookup)
	if err != nil {
		return nil, fmt.Errorf("GetEntry: %w", err)
	}

	count, err := s.attachments.CountAttachments(ctx, e.ID)
	if err != nil {
		return nil, fmt.Errorf("GetEntry: %w", storeFailure(domain.PhaseAttachment, err))
	}

	return &domain.EntryDetail{Entry: *e, AttachmentCount: count}, nil
}

// ListRootEntries returns atomic entries and plan parents; installments only
// appear through ListInstallments.
func (s *Service) ListRootEntries(ctx context.Context, companyID uuid.UUID, filter domain.RootFilter) ([]domain.LedgerEntry, error) {
	if filter.DueFrom != nil && filter.DueTo != nil && filter.DueTo.Before(*filter.DueFrom) {
		return nil, fmt.Errorf("ListRootEntries: %w",
			domain.NewValidationError("due_to", "must not be before due_from"))
	}

	entries, err := s.entries.FindRoots(ctx, companyID, filter)
	if err != nil {
		return nil, fmt.Errorf("ListRootEntries: %w", storeFailure(domain.PhaseLookup, err))
	}
	if entries == nil {
		entries = []domain.LedgerEntry{}
	}
	return entries, nil
}

func (s *Service) ListInstallments(ctx context.Context, companyID, parentID uuid.UUID) ([]domain.LedgerEntry, error) {
	parent, err := s.lookup(ctx, companyID, parentID, domain.PhaseLookup)
	if err != nil {
		return nil, fmt.Errorf("ListInstallments: %w", err)
	}
	if parent.Kind() != domain.EntryKindParent {
		return nil, fmt.Errorf("ListInstallments: %w",
			domain.NewValidationError("id", "entry is not an installment parent"))
	}

	children, err := s.entries.FindChildren(ctx, companyID, parentID)
	if err != nil {
		return nil, fmt.Errorf("ListInstallments: %w", storeFailure(domain.PhaseLookup, err))
	}
	if children == nil {
		children = []domain.LedgerEntry{}
	}
	return children, nil
}

// LinkAttachment records document metadata against an existing entry.
func (s *Service) LinkAttachment(ctx context.Context, companyID, entryID uuid.UUID, in AttachmentInput) (*domain.Attachment, error) {
	if err := validateAttachment(in); err != nil {
		return nil, fmt.Errorf("LinkAttachment: %w", err)
	}

	e, err := s.lookup(ctx, companyID, entryID, domain.PhaseLookup)
	if err != nil {
		return nil, fmt.Errorf("LinkAttachment: %w", err)
	}

	a := &domain.Attachment{
		ID:          uuid.New(),
		EntryID:     e.ID,
		CompanyID:   e.CompanyID,
		FileName:    in.FileName,
		StoragePath: in.StoragePath,
		ContentType: in.ContentType,
		SizeBytes:   in.SizeBytes,
		CreatedAt:   s.now(),
	}
	if err := s.attachments.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("LinkAttachment: %w", storeFailure(domain.PhaseAttachment, err))
	}

	logging.FromContext(ctx).Info("attachment linked",
		"attachment_id", a.ID,
		"entry_id", a.EntryID,
		"file_name", a.FileName,
	)
	return a, nil
}

func (s *Service) ListAttachments(ctx context.Context, companyID, entryID uuid.UUID) ([]domain.Attachment, error) {
	e, err := s.lookup(ctx, companyID, entryID, domain.PhaseLookup)
	if err != nil {
		return nil, fmt.Errorf("ListAttachments: %w", err)
	}

	attachments, err := s.attachments.ListByEntry(ctx, e.ID)
	if err != nil {
		return nil, fmt.Errorf("ListAttachments: %w", storeFailure(domain.PhaseAttachment, err))
	}
	if attachments == nil {
		attachments = []domain.Attachment{}
	}
	return attachments, nil
}
