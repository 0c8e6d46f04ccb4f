package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/outflow-ledger/internal/domain"
	"github.com/josh-kwaku/outflow-ledger/internal/logging"
	"github.com/josh-kwaku/outflow-ledger/internal/schedule"
)

// UpdateEntry edits an atomic entry or a plan parent. Editing a parent
// rewrites every installment from the new base values, discarding any
// per-installment edits made before.
func (s *Service) UpdateEntry(ctx context.Context, companyID, id uuid.UUID, ch EntryChanges) (*domain.LedgerEntry, error) {
	log := logging.FromContext(ctx)

	if err := validateChanges(ch); err != nil {
		return nil, fmt.Errorf("UpdateEntry: %w", err)
	}

	e, err := s.lookup(ctx, companyID, id, domain.PhaseLookup)
	if err != nil {
		return nil, fmt.Errorf("UpdateEntry: %w", err)
	}
	if ch.ExpectedVersion != nil && *ch.ExpectedVersion != e.Version {
		return nil, fmt.Errorf("UpdateEntry: expected version %d, have %d: %w",
			*ch.ExpectedVersion, e.Version, domain.ErrVersionConflict)
	}

	switch e.Kind() {
	case domain.EntryKindInstallment:
		return nil, fmt.Errorf("UpdateEntry: %w",
			domain.NewValidationError("id", "installments are edited individually"))

	case domain.EntryKindAtomic:
		applyChanges(e, ch)
		if err := s.entries.Update(ctx, e); err != nil {
			return nil, fmt.Errorf("UpdateEntry: %w", storeFailure(domain.PhaseEntryUpdate, err))
		}

	case domain.EntryKindParent:
		if err := s.cascade(ctx, e, ch); err != nil {
			return nil, fmt.Errorf("UpdateEntry: %w", err)
		}
	}

	log.Info("entry updated",
		"entry_id", e.ID,
		"company_id", e.CompanyID,
		"kind", e.Kind(),
		"amount", e.Amount,
		"version", e.Version,
	)
	s.publish(ctx, domain.EntryEventTypeUpdated, e)

	return e, nil
}

// cascade applies ch to parent and re-derives each installment from the
// parent's new due date, period and total.
func (s *Service) cascade(ctx context.Context, parent *domain.LedgerEntry, ch EntryChanges) error {
	children, err := s.entries.FindChildren(ctx, parent.CompanyID, parent.ID)
	if err != nil {
		return storeFailure(domain.PhaseLookup, err)
	}
	if err := checkComplete(parent, children); err != nil {
		return err
	}

	applyChanges(parent, ch)
	if err := validateSplittable(parent.Amount, parent.InstallmentCount); err != nil {
		return err
	}

	slots, err := schedule.Generate(parent.DueDate, parent.ReferencePeriod, parent.Amount, parent.InstallmentCount, nil)
	if err != nil {
		return domain.NewValidationError("installments", err.Error())
	}

	write := func(ctx context.Context) error {
		if err := s.entries.Update(ctx, parent); err != nil {
			return storeFailure(domain.PhaseEntryUpdate, err)
		}
		for i := range children {
			c := &children[i]
			slot := slots[*c.InstallmentNumber-1]
			c.CategoryID = parent.CategoryID
			c.ItemID = parent.ItemID
			c.Description = installmentDescription(parent.Description, slot.Number, parent.InstallmentCount)
			c.Amount = slot.Amount
			c.ReferencePeriod = slot.ReferencePeriod
			c.DueDate = slot.DueDate
			if err := s.entries.Update(ctx, c); err != nil {
				return storeFailure(domain.PhaseChildUpdate, err)
			}
		}
		return nil
	}

	if tx, ok := s.transactional(); ok {
		return s.inTx(ctx, tx, write)
	}
	return write(ctx)
}

// checkComplete requires children numbered exactly 1..InstallmentCount.
func checkComplete(parent *domain.LedgerEntry, children []domain.LedgerEntry) error {
	if len(children) != parent.InstallmentCount {
		return fmt.Errorf("parent %s has %d of %d installments: %w",
			parent.ID, len(children), parent.InstallmentCount, domain.ErrIncompletePlan)
	}
	seen := make(map[int]bool, len(children))
	for _, c := range children {
		n := *c.InstallmentNumber
		if n < 1 || n > parent.InstallmentCount || seen[n] {
			return fmt.Errorf("parent %s has installment number %d: %w", parent.ID, n, domain.ErrIncompletePlan)
		}
		seen[n] = true
	}
	return nil
}

func applyChanges(e *domain.LedgerEntry, ch EntryChanges) {
	if ch.CategoryID != nil {
		e.CategoryID = *ch.CategoryID
	}
	if ch.ItemID != nil {
		e.ItemID = *ch.ItemID
	}
	if ch.Description != nil {
		e.Description = *ch.Description
	}
	if ch.Amount != nil {
		e.Amount = *ch.Amount
	}
	if ch.ReferencePeriod != nil {
		e.ReferencePeriod = *ch.ReferencePeriod
	}
	if ch.DueDate != nil {
		e.DueDate = domain.DateOf(*ch.DueDate)
	}
}

// EditInstallment changes a single installment's amount and due date and then
// brings the parent total back in line with its installments.
func (s *Service) EditInstallment(ctx context.Context, companyID, childID uuid.UUID, amount decimal.Decimal, dueDate time.Time) (*domain.LedgerEntry, error) {
	log := logging.FromContext(ctx)

	if err := validateInstallmentEdit(amount, dueDate); err != nil {
		return nil, fmt.Errorf("EditInstallment: %w", err)
	}

	child, err := s.lookup(ctx, companyID, childID, domain.PhaseLookup)
	if err != nil {
		return nil, fmt.Errorf("EditInstallment: %w", err)
	}
	if child.Kind() != domain.EntryKindInstallment {
		return nil, fmt.Errorf("EditInstallment: %w",
			domain.NewValidationError("id", "entry is not an installment"))
	}

	child.Amount = amount
	child.DueDate = domain.DateOf(dueDate)
	if err := s.entries.Update(ctx, child); err != nil {
		return nil, fmt.Errorf("EditInstallment: %w", storeFailure(domain.PhaseChildUpdate, err))
	}

	log.Info("installment edited",
		"entry_id", child.ID,
		"parent_id", *child.ParentEntryID,
		"amount", child.Amount,
		"due_date", child.DueDate.Format(time.DateOnly),
	)
	s.publish(ctx, domain.EntryEventTypeInstallmentEdited, child)

	if _, err := s.ReconcileParentTotal(ctx, companyID, *child.ParentEntryID); err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) && nf.ID == *child.ParentEntryID {
			log.Warn("installment has no parent to reconcile",
				"entry_id", child.ID,
				"parent_id", *child.ParentEntryID,
			)
			return child, nil
		}
		var se *domain.StoreError
		if !errors.As(err, &se) {
			err = storeFailure(domain.PhaseReconciliation, err)
		}
		return nil, fmt.Errorf("EditInstallment: installment %s saved: %w", child.ID, err)
	}

	return child, nil
}

// ReconcileParentTotal sets a parent's amount to the sum of its installments.
// Nothing is written when the two already agree.
func (s *Service) ReconcileParentTotal(ctx context.Context, companyID, parentID uuid.UUID) (*domain.LedgerEntry, error) {
	log := logging.FromContext(ctx)

	parent, err := s.lookup(ctx, companyID, parentID, domain.PhaseReconciliation)
	if err != nil {
		return nil, fmt.Errorf("ReconcileParentTotal: %w", err)
	}
	if parent.Kind() != domain.EntryKindParent {
		return nil, fmt.Errorf("ReconcileParentTotal: %w",
			domain.NewValidationError("id", "entry is not an installment parent"))
	}

	children, err := s.entries.FindChildren(ctx, companyID, parentID)
	if err != nil {
		return nil, fmt.Errorf("ReconcileParentTotal: %w", storeFailure(domain.PhaseReconciliation, err))
	}
	if len(children) == 0 {
		return parent, nil
	}

	sum := decimal.Zero
	for _, c := range children {
		sum = sum.Add(c.Amount)
	}
	if sum.Equal(parent.Amount) {
		return parent, nil
	}

	previous := parent.Amount
	parent.Amount = sum
	if err := s.entries.Update(ctx, parent); err != nil {
		return nil, fmt.Errorf("ReconcileParentTotal: %w", storeFailure(domain.PhaseReconciliation, err))
	}

	log.Info("parent total reconciled",
		"parent_id", parent.ID,
		"company_id", parent.CompanyID,
		"previous", previous,
		"amount", parent.Amount,
	)
	s.publish(ctx, domain.EntryEventTypeReconciled, parent)

	return parent, nil
}

// DeleteEntry removes exactly one row. Deleting a parent leaves its
// installments in place as orphans.
func (s *Service) DeleteEntry(ctx context.Context, companyID, id uuid.UUID) error {
	log := logging.FromContext(ctx)

	e, err := s.lookup(ctx, companyID, id, domain.PhaseLookup)
	if err != nil {
		return fmt.Errorf("DeleteEntry: %w", err)
	}

	if err := s.entries.Delete(ctx, companyID, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("DeleteEntry: %w", &domain.NotFoundError{ID: id})
		}
		return fmt.Errorf("DeleteEntry: %w", storeFailure(domain.PhaseDelete, err))
	}

	log.Info("entry deleted",
		"entry_id", e.ID,
		"company_id", e.CompanyID,
		"kind", e.Kind(),
	)
	s.publish(ctx, domain.EntryEventTypeDeleted, e)

	return nil
}
