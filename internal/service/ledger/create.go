package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/outflow-ledger/internal/domain"
	"github.com/josh-kwaku/outflow-ledger/internal/logging"
	"github.com/josh-kwaku/outflow-ledger/internal/schedule"
)

func (s *Service) CreateAtomicEntry(ctx context.Context, in EntryInput) (*domain.LedgerEntry, error) {
	log := logging.FromContext(ctx)

	if err := validateEntryInput(in); err != nil {
		return nil, fmt.Errorf("CreateAtomicEntry: %w", err)
	}

	e := newEntry(in, s.now())
	if err := s.entries.Insert(ctx, e); err != nil {
		return nil, fmt.Errorf("CreateAtomicEntry: %w", storeFailure(domain.PhaseEntryInsert, err))
	}

	log.Info("entry created",
		"entry_id", e.ID,
		"company_id", e.CompanyID,
		"amount", e.Amount,
		"reference_period", e.ReferencePeriod,
	)
	s.publish(ctx, domain.EntryEventTypeCreated, e)

	return e, nil
}

// CreateInstallmentPlan persists a parent carrying the plan total followed by
// count installments laid out by the scheduler.
func (s *Service) CreateInstallmentPlan(ctx context.Context, in EntryInput, count int, overrides schedule.Overrides) (*domain.Plan, error) {
	log := logging.FromContext(ctx)

	if err := validateEntryInput(in); err != nil {
		return nil, fmt.Errorf("CreateInstallmentPlan: %w", err)
	}
	if err := s.validatePlan(in.Amount, count, overrides); err != nil {
		return nil, fmt.Errorf("CreateInstallmentPlan: %w", err)
	}

	slots, err := schedule.Generate(in.DueDate, in.ReferencePeriod, in.Amount, count, overrides)
	if err != nil {
		return nil, fmt.Errorf("CreateInstallmentPlan: %w", domain.NewValidationError("installments", err.Error()))
	}

	parent := newEntry(in, s.now())
	parent.IsInstallmentParent = true
	parent.InstallmentCount = count

	children := make([]*domain.LedgerEntry, len(slots))
	for i, slot := range slots {
		children[i] = newInstallment(parent, slot, s.now())
	}

	if tx, ok := s.transactional(); ok {
		err = s.inTx(ctx, tx, func(ctx context.Context) error {
			return s.insertPlan(ctx, parent, children)
		})
		if err != nil {
			return nil, fmt.Errorf("CreateInstallmentPlan: %w", err)
		}
	} else if err := s.insertPlan(ctx, parent, children); err != nil {
		return nil, fmt.Errorf("CreateInstallmentPlan: %w", err)
	}

	plan := &domain.Plan{Parent: *parent, Installments: deref(children)}

	log.Info("installment plan created",
		"parent_id", parent.ID,
		"company_id", parent.CompanyID,
		"total", parent.Amount,
		"installments", count,
	)
	s.publish(ctx, domain.EntryEventTypePlanCreated, parent)

	return plan, nil
}

// insertPlan writes the parent and then its installments. A child failure
// after the parent is in reports what was persisted; inside a transaction
// the caller discards that detail since nothing survives the rollback.
func (s *Service) insertPlan(ctx context.Context, parent *domain.LedgerEntry, children []*domain.LedgerEntry) error {
	if err := s.entries.Insert(ctx, parent); err != nil {
		return storeFailure(domain.PhaseParentInsert, err)
	}

	n, err := s.entries.InsertMany(ctx, children)
	if err == nil {
		return nil
	}
	if _, ok := s.transactional(); ok {
		return storeFailure(domain.PhaseChildInsert, err)
	}

	persisted := make([]uuid.UUID, 0, n)
	for _, c := range children[:n] {
		persisted = append(persisted, c.ID)
	}
	return &domain.PartialPlanFailure{
		ParentID:  parent.ID,
		Expected:  len(children),
		Persisted: persisted,
		Err:       storeFailure(domain.PhaseChildInsert, err),
	}
}

// CompletePlan creates the installments a plan is missing, using the parent's
// current base values, and then reconciles the parent total. Existing
// installments are left as they are.
func (s *Service) CompletePlan(ctx context.Context, companyID, parentID uuid.UUID) (*domain.Plan, error) {
	log := logging.FromContext(ctx)

	parent, err := s.lookup(ctx, companyID, parentID, domain.PhaseLookup)
	if err != nil {
		return nil, fmt.Errorf("CompletePlan: %w", err)
	}
	if parent.Kind() != domain.EntryKindParent {
		return nil, fmt.Errorf("CompletePlan: %w", domain.NewValidationError("id", "entry is not an installment parent"))
	}

	existing, err := s.entries.FindChildren(ctx, companyID, parentID)
	if err != nil {
		return nil, fmt.Errorf("CompletePlan: %w", storeFailure(domain.PhaseLookup, err))
	}

	have := make(map[int]bool, len(existing))
	for _, c := range existing {
		have[*c.InstallmentNumber] = true
	}

	var missing []*domain.LedgerEntry
	if len(have) < parent.InstallmentCount {
		slots, err := schedule.Generate(parent.DueDate, parent.ReferencePeriod, parent.Amount, parent.InstallmentCount, nil)
		if err != nil {
			return nil, fmt.Errorf("CompletePlan: %w", domain.NewValidationError("installments", err.Error()))
		}
		for _, slot := range slots {
			if !have[slot.Number] {
				missing = append(missing, newInstallment(parent, slot, s.now()))
			}
		}
	}

	if len(missing) > 0 {
		if err := s.insertMissing(ctx, parent, existing, missing); err != nil {
			return nil, fmt.Errorf("CompletePlan: %w", err)
		}
		log.Info("installment plan completed",
			"parent_id", parent.ID,
			"company_id", parent.CompanyID,
			"created", len(missing),
		)
		s.publish(ctx, domain.EntryEventTypePlanCompleted, parent)
	}

	reconciled, err := s.ReconcileParentTotal(ctx, companyID, parentID)
	if err != nil {
		return nil, fmt.Errorf("CompletePlan: %w", err)
	}

	children, err := s.entries.FindChildren(ctx, companyID, parentID)
	if err != nil {
		return nil, fmt.Errorf("CompletePlan: %w", storeFailure(domain.PhaseLookup, err))
	}
	return &domain.Plan{Parent: *reconciled, Installments: children}, nil
}

func (s *Service) insertMissing(ctx context.Context, parent *domain.LedgerEntry, existing []domain.LedgerEntry, missing []*domain.LedgerEntry) error {
	if tx, ok := s.transactional(); ok {
		return s.inTx(ctx, tx, func(ctx context.Context) error {
			if _, err := s.entries.InsertMany(ctx, missing); err != nil {
				return storeFailure(domain.PhaseChildInsert, err)
			}
			return nil
		})
	}

	n, err := s.entries.InsertMany(ctx, missing)
	if err == nil {
		return nil
	}
	persisted := make([]uuid.UUID, 0, len(existing)+n)
	for _, c := range existing {
		persisted = append(persisted, c.ID)
	}
	for _, c := range missing[:n] {
		persisted = append(persisted, c.ID)
	}
	return &domain.PartialPlanFailure{
		ParentID:  parent.ID,
		Expected:  parent.InstallmentCount,
		Persisted: persisted,
		Err:       storeFailure(domain.PhaseChildInsert, err),
	}
}

func newInstallment(parent *domain.LedgerEntry, slot schedule.Slot, now time.Time) *domain.LedgerEntry {
	number := slot.Number
	parentID := parent.ID
	return &domain.LedgerEntry{
		ID:                uuid.New(),
		CompanyID:         parent.CompanyID,
		CategoryID:        parent.CategoryID,
		ItemID:            parent.ItemID,
		Description:       installmentDescription(parent.Description, slot.Number, parent.InstallmentCount),
		Amount:            slot.Amount,
		ReferencePeriod:   slot.ReferencePeriod,
		DueDate:           slot.DueDate,
		InstallmentCount:  parent.InstallmentCount,
		InstallmentNumber: &number,
		ParentEntryID:     &parentID,
		CreatedAt:         now,
	}
}

func deref(entries []*domain.LedgerEntry) []domain.LedgerEntry {
	out := make([]domain.LedgerEntry, len(entries))
	for i, e := range entries {
		out[i] = *e
	}
	return out
}
