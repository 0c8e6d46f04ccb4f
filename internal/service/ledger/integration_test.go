package ledger_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/outflow-ledger/internal/config"
	"github.com/josh-kwaku/outflow-ledger/internal/domain"
	"github.com/josh-kwaku/outflow-ledger/internal/events"
	"github.com/josh-kwaku/outflow-ledger/internal/repository"
	"github.com/josh-kwaku/outflow-ledger/internal/service/ledger"
	"github.com/josh-kwaku/outflow-ledger/internal/testutil"
)

// flakyEntries fails InsertMany after writing the first installment, but keeps
// the real repository's transaction support.
type flakyEntries struct {
	*repository.EntryRepository
}

func (f flakyEntries) InsertMany(ctx context.Context, entries []*domain.LedgerEntry) (int, error) {
	if err := f.Insert(ctx, entries[0]); err != nil {
		return 0, err
	}
	return 1, errors.New("connection reset by peer")
}

func setupLedgerService(t *testing.T, db *sql.DB) *ledger.Service {
	t.Helper()
	return ledger.NewService(
		repository.NewEntryRepository(db),
		repository.NewAttachmentRepository(db),
		events.Nop{},
		&config.Config{MaxInstallments: 120},
	)
}

func leaseInput(t *testing.T, companyID uuid.UUID) ledger.EntryInput {
	t.Helper()
	return ledger.EntryInput{
		CompanyID:       companyID,
		CategoryID:      uuid.New(),
		ItemID:          uuid.New(),
		Description:     "Equipment lease",
		Amount:          decimal.RequireFromString("1000.00"),
		ReferencePeriod: domain.MustParsePeriod("2024-01"),
		DueDate:         testutil.Date(t, "2024-01-31"),
	}
}

func TestPostgres_PlanLifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)
	ctx := context.Background()
	company := uuid.New()

	plan, err := svc.CreateInstallmentPlan(ctx, leaseInput(t, company), 3, nil)
	require.NoError(t, err)
	require.Len(t, plan.Installments, 3)
	assert.Equal(t, 4, testutil.CountEntries(t, db, company))

	wantAmounts := []string{"333.33", "333.33", "333.34"}
	wantDue := []string{"2024-01-31", "2024-02-29", "2024-03-31"}
	for i, c := range plan.Installments {
		assert.Equal(t, wantAmounts[i], c.Amount.StringFixed(2))
		assert.Equal(t, wantDue[i], c.DueDate.Format("2006-01-02"))
	}

	edited, err := svc.EditInstallment(ctx, company, plan.Installments[0].ID,
		decimal.RequireFromString("400.00"), testutil.Date(t, "2024-02-05"))
	require.NoError(t, err)
	assert.Equal(t, "2024-02-05", edited.DueDate.Format("2006-01-02"))
	assert.Equal(t, "2024-01", edited.ReferencePeriod.String())

	detail, err := svc.GetEntry(ctx, company, plan.Parent.ID)
	require.NoError(t, err)
	assert.Equal(t, "1066.67", detail.Entry.Amount.StringFixed(2))

	roots, err := svc.ListRootEntries(ctx, company, domain.RootFilter{})
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, plan.Parent.ID, roots[0].ID)

	require.NoError(t, svc.DeleteEntry(ctx, company, plan.Parent.ID))
	assert.Equal(t, 3, testutil.CountEntries(t, db, company))
}

func TestPostgres_PlanInsertRollsBack(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := ledger.NewService(
		flakyEntries{repository.NewEntryRepository(db)},
		repository.NewAttachmentRepository(db),
		events.Nop{},
		&config.Config{MaxInstallments: 120},
	)
	company := uuid.New()

	_, err := svc.CreateInstallmentPlan(context.Background(), leaseInput(t, company), 4, nil)
	require.Error(t, err)

	var storeErr *domain.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, domain.PhaseChildInsert, storeErr.Phase)
	assert.NotErrorIs(t, err, domain.ErrPartialPlan)
	assert.Zero(t, testutil.CountEntries(t, db, company))
}
