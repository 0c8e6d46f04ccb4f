package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EntryKind string

const (
	EntryKindAtomic      EntryKind = "atomic"
	EntryKindParent      EntryKind = "parent"
	EntryKindInstallment EntryKind = "installment"
)

// LedgerEntry is a single cash-outflow record. Parents and their installments
// are linked by ParentEntryID only; there are no in-memory back references.
type LedgerEntry struct {
	ID                  uuid.UUID
	CompanyID           uuid.UUID
	CategoryID          uuid.UUID
	ItemID              uuid.UUID
	Description         string
	Amount              decimal.Decimal
	ReferencePeriod     Period
	DueDate             time.Time
	IsInstallmentParent bool
	InstallmentCount    int
	InstallmentNumber   *int
	ParentEntryID       *uuid.UUID
	Version             int64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (e *LedgerEntry) Kind() EntryKind {
	switch {
	case e.ParentEntryID != nil:
		return EntryKindInstallment
	case e.IsInstallmentParent:
		return EntryKindParent
	default:
		return EntryKindAtomic
	}
}

func (e *LedgerEntry) IsRoot() bool {
	return e.ParentEntryID == nil
}

// Plan is a parent entry together with its installments ordered by number.
type Plan struct {
	Parent       LedgerEntry
	Installments []LedgerEntry
}

func (p *Plan) InstallmentIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(p.Installments))
	for i := range p.Installments {
		ids[i] = p.Installments[i].ID
	}
	return ids
}

// EntryDetail is an entry as shown on its detail view.
type EntryDetail struct {
	Entry           LedgerEntry
	AttachmentCount int
}

// RootFilter narrows the primary ledger view. Zero values mean "no filter".
type RootFilter struct {
	ReferencePeriod Period
	CategoryID      *uuid.UUID
	ItemID          *uuid.UUID
	DueFrom         *time.Time
	DueTo           *time.Time
}

func (f RootFilter) Matches(e *LedgerEntry) bool {
	if !e.IsRoot() {
		return false
	}
	if !f.ReferencePeriod.IsZero() && e.ReferencePeriod != f.ReferencePeriod {
		return false
	}
	if f.CategoryID != nil && e.CategoryID != *f.CategoryID {
		return false
	}
	if f.ItemID != nil && e.ItemID != *f.ItemID {
		return false
	}
	if f.DueFrom != nil && e.DueDate.Before(*f.DueFrom) {
		return false
	}
	if f.DueTo != nil && e.DueDate.After(*f.DueTo) {
		return false
	}
	return true
}

// DateOf truncates t to a calendar date in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
