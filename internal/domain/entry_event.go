package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EntryEventType string

const (
	EntryEventTypeCreated           EntryEventType = "entry.created"
	EntryEventTypePlanCreated       EntryEventType = "plan.created"
	EntryEventTypePlanCompleted     EntryEventType = "plan.completed"
	EntryEventTypeUpdated           EntryEventType = "entry.updated"
	EntryEventTypeInstallmentEdited EntryEventType = "installment.edited"
	EntryEventTypeReconciled        EntryEventType = "parent.reconciled"
	EntryEventTypeDeleted           EntryEventType = "entry.deleted"
)

type EntryEvent struct {
	ID            uuid.UUID       `json:"id"`
	Type          EntryEventType  `json:"type"`
	CompanyID     uuid.UUID       `json:"company_id"`
	EntryID       uuid.UUID       `json:"entry_id"`
	ParentEntryID *uuid.UUID      `json:"parent_entry_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	OccurredAt    time.Time       `json:"occurred_at"`
}
