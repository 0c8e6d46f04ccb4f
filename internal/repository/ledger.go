package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/outflow-ledger/internal/domain"
)

const entryColumns = `id, company_id, category_id, item_id, description, amount,
	reference_period, due_date, is_installment_parent, installment_count,
	installment_number, parent_entry_id, version, created_at, updated_at`

type txKey struct{}

// EntryRepository persists ledger entries in Postgres. Every read and write is
// scoped by company id.
type EntryRepository struct {
	db *sql.DB
}

func NewEntryRepository(db *sql.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

// InTx runs fn inside one transaction. Repository calls made with the context
// handed to fn join that transaction.
func (r *EntryRepository) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

func (r *EntryRepository) conn(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return r.db
}

func (r *EntryRepository) Insert(ctx context.Context, e *domain.LedgerEntry) error {
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = e.CreatedAt
	if e.Version == 0 {
		e.Version = 1
	}

	_, err := r.conn(ctx).ExecContext(ctx,
		`INSERT INTO ledger_entries (
			id, company_id, category_id, item_id, description, amount,
			reference_period, due_date, is_installment_parent, installment_count,
			installment_number, parent_entry_id, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		e.ID, e.CompanyID, e.CategoryID, e.ItemID, e.Description, e.Amount,
		e.ReferencePeriod, e.DueDate, e.IsInstallmentParent, e.InstallmentCount,
		e.InstallmentNumber, e.ParentEntryID, e.Version, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("Insert: %w", err)
	}
	return nil
}

// InsertMany inserts entries in order and reports how many were written
// before the first failure.
func (r *EntryRepository) InsertMany(ctx context.Context, entries []*domain.LedgerEntry) (int, error) {
	for i, e := range entries {
		if err := r.Insert(ctx, e); err != nil {
			return i, fmt.Errorf("InsertMany: entry %d: %w", i, err)
		}
	}
	return len(entries), nil
}

// Update writes the mutable columns of e when its version still matches and
// bumps the version on success.
func (r *EntryRepository) Update(ctx context.Context, e *domain.LedgerEntry) error {
	var (
		newVersion int64
		updatedAt  time.Time
	)
	err := r.conn(ctx).QueryRowContext(ctx,
		`UPDATE ledger_entries SET
			category_id = $1, item_id = $2, description = $3, amount = $4,
			reference_period = $5, due_date = $6, installment_count = $7,
			version = version + 1, updated_at = now()
		WHERE id = $8 AND company_id = $9 AND version = $10
		RETURNING version, updated_at`,
		e.CategoryID, e.ItemID, e.Description, e.Amount,
		e.ReferencePeriod, e.DueDate, e.InstallmentCount,
		e.ID, e.CompanyID, e.Version,
	).Scan(&newVersion, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		exists, existsErr := r.exists(ctx, e.CompanyID, e.ID)
		if existsErr != nil {
			return fmt.Errorf("Update: %w", existsErr)
		}
		if exists {
			return fmt.Errorf("Update: %w", domain.ErrVersionConflict)
		}
		return fmt.Errorf("Update: %w", domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}

	e.Version = newVersion
	e.UpdatedAt = updatedAt
	return nil
}

func (r *EntryRepository) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	res, err := r.conn(ctx).ExecContext(ctx,
		`DELETE FROM ledger_entries WHERE id = $1 AND company_id = $2`, id, companyID,
	)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Delete: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("Delete: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *EntryRepository) FindByID(ctx context.Context, companyID, id uuid.UUID) (*domain.LedgerEntry, error) {
	row := r.conn(ctx).QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM ledger_entries WHERE id = $1 AND company_id = $2`,
		id, companyID,
	)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("FindByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("FindByID: %w", err)
	}
	return e, nil
}

func (r *EntryRepository) FindChildren(ctx context.Context, companyID, parentID uuid.UUID) ([]domain.LedgerEntry, error) {
	rows, err := r.conn(ctx).QueryContext(ctx,
		`SELECT `+entryColumns+` FROM ledger_entries
		WHERE parent_entry_id = $1 AND company_id = $2
		ORDER BY installment_number`,
		parentID, companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("FindChildren: %w", err)
	}
	entries, err := collectEntries(rows)
	if err != nil {
		return nil, fmt.Errorf("FindChildren: %w", err)
	}
	return entries, nil
}

func (r *EntryRepository) FindRoots(ctx context.Context, companyID uuid.UUID, filter domain.RootFilter) ([]domain.LedgerEntry, error) {
	where := []string{"company_id = $1", "parent_entry_id IS NULL"}
	args := []any{companyID}

	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if !filter.ReferencePeriod.IsZero() {
		add("reference_period = $%d", filter.ReferencePeriod)
	}
	if filter.CategoryID != nil {
		add("category_id = $%d", *filter.CategoryID)
	}
	if filter.ItemID != nil {
		add("item_id = $%d", *filter.ItemID)
	}
	if filter.DueFrom != nil {
		add("due_date >= $%d", *filter.DueFrom)
	}
	if filter.DueTo != nil {
		add("due_date <= $%d", *filter.DueTo)
	}

	rows, err := r.conn(ctx).QueryContext(ctx,
		`SELECT `+entryColumns+` FROM ledger_entries
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY due_date DESC, created_at DESC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("FindRoots: %w", err)
	}
	entries, err := collectEntries(rows)
	if err != nil {
		return nil, fmt.Errorf("FindRoots: %w", err)
	}
	return entries, nil
}

func (r *EntryRepository) exists(ctx context.Context, companyID, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM ledger_entries WHERE id = $1 AND company_id = $2)`,
		id, companyID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("exists: %w", err)
	}
	return exists, nil
}

func collectEntries(rows *sql.Rows) ([]domain.LedgerEntry, error) {
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return entries, nil
}

func scanEntry(s scanner) (*domain.LedgerEntry, error) {
	var (
		e        domain.LedgerEntry
		number   sql.NullInt32
		parentID uuid.NullUUID
	)
	err := s.Scan(
		&e.ID, &e.CompanyID, &e.CategoryID, &e.ItemID, &e.Description, &e.Amount,
		&e.ReferencePeriod, &e.DueDate, &e.IsInstallmentParent, &e.InstallmentCount,
		&number, &parentID, &e.Version, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if number.Valid {
		n := int(number.Int32)
		e.InstallmentNumber = &n
	}
	if parentID.Valid {
		id := parentID.UUID
		e.ParentEntryID = &id
	}
	e.DueDate = domain.DateOf(e.DueDate)
	return &e, nil
}
