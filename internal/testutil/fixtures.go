package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/outflow-ledger/internal/domain"
)

// Date parses a YYYY-MM-DD literal and fails the test on a typo.
func Date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

// NewAtomicEntry builds an unsaved atomic entry for companyID.
func NewAtomicEntry(t *testing.T, companyID uuid.UUID, amount, due string) *domain.LedgerEntry {
	t.Helper()
	d := Date(t, due)
	return &domain.LedgerEntry{
		ID:               uuid.New(),
		CompanyID:        companyID,
		CategoryID:       uuid.New(),
		ItemID:           uuid.New(),
		Description:      "Office rent",
		Amount:           decimal.RequireFromString(amount),
		ReferencePeriod:  domain.PeriodOf(d),
		DueDate:          d,
		InstallmentCount: 1,
	}
}

// NewInstallment builds an unsaved installment n of count under parent.
func NewInstallment(t *testing.T, parent *domain.LedgerEntry, n, count int, amount string) *domain.LedgerEntry {
	t.Helper()
	due := parent.DueDate.AddDate(0, n-1, 0)
	parentID := parent.ID
	return &domain.LedgerEntry{
		ID:                uuid.New(),
		CompanyID:         parent.CompanyID,
		CategoryID:        parent.CategoryID,
		ItemID:            parent.ItemID,
		Description:       parent.Description,
		Amount:            decimal.RequireFromString(amount),
		ReferencePeriod:   domain.PeriodOf(due),
		DueDate:           due,
		InstallmentCount:  count,
		InstallmentNumber: &n,
		ParentEntryID:     &parentID,
	}
}

type entryInserter interface {
	Insert(ctx context.Context, e *domain.LedgerEntry) error
}

// SeedPlan persists a parent and count equal installments of per each.
func SeedPlan(t *testing.T, store entryInserter, companyID uuid.UUID, per string, count int, due string) (*domain.LedgerEntry, []*domain.LedgerEntry) {
	t.Helper()
	ctx := context.Background()

	parent := NewAtomicEntry(t, companyID, per, due)
	parent.Amount = decimal.RequireFromString(per).Mul(decimal.NewFromInt(int64(count)))
	parent.IsInstallmentParent = true
	parent.InstallmentCount = count
	if err := store.Insert(ctx, parent); err != nil {
		t.Fatalf("seed parent: %v", err)
	}

	children := make([]*domain.LedgerEntry, 0, count)
	for n := 1; n <= count; n++ {
		c := NewInstallment(t, parent, n, count, per)
		if err := store.Insert(ctx, c); err != nil {
			t.Fatalf("seed installment %d: %v", n, err)
		}
		children = append(children, c)
	}
	return parent, children
}

// CountEntries reports the raw row count for a company, bypassing the
// repository.
func CountEntries(t *testing.T, db *sql.DB, companyID uuid.UUID) int {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM ledger_entries WHERE company_id = $1`, companyID).Scan(&n); err != nil {
		t.Fatalf("count entries: %v", err)
	}
	return n
}
