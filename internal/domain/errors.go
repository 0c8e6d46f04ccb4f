package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
	ErrStore           = errors.New("store failure")
	ErrPartialPlan     = errors.New("installment plan partially persisted")
	ErrIncompletePlan  = errors.New("installment plan is missing installments")
	ErrVersionConflict = errors.New("optimistic lock conflict")
)

type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

type NotFoundError struct {
	ID uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("entry %s: not found", e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// StorePhase names the step of an operation whose store call failed.
type StorePhase string

const (
	PhaseLookup         StorePhase = "lookup"
	PhaseEntryInsert    StorePhase = "entry_insert"
	PhaseParentInsert   StorePhase = "parent_insert"
	PhaseChildInsert    StorePhase = "child_insert"
	PhaseEntryUpdate    StorePhase = "entry_update"
	PhaseChildUpdate    StorePhase = "child_update"
	PhaseReconciliation StorePhase = "reconciliation"
	PhaseDelete         StorePhase = "delete"
	PhaseAttachment     StorePhase = "attachment"
	PhaseCommit         StorePhase = "commit"
)

type StoreError struct {
	Phase StorePhase
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Phase, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStore }

// PartialPlanFailure reports a parent that was persisted without all of its
// installments. Persisted lists the installment ids that did make it.
type PartialPlanFailure struct {
	ParentID  uuid.UUID
	Expected  int
	Persisted []uuid.UUID
	Err       error
}

func (e *PartialPlanFailure) Error() string {
	return fmt.Sprintf("plan %s: %d of %d installments persisted: %v",
		e.ParentID, len(e.Persisted), e.Expected, e.Err)
}

func (e *PartialPlanFailure) Unwrap() error { return e.Err }

func (e *PartialPlanFailure) Is(target error) bool { return target == ErrPartialPlan }
