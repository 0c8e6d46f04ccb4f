package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/outflow-ledger/internal/domain"
)

const attachmentColumns = `id, entry_id, company_id, file_name, storage_path,
	content_type, size_bytes, created_at`

// AttachmentRepository holds document metadata keyed by entry id.
type AttachmentRepository struct {
	db *sql.DB
}

func NewAttachmentRepository(db *sql.DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

func (r *AttachmentRepository) Create(ctx context.Context, a *domain.Attachment) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO entry_attachments (`+attachmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.EntryID, a.CompanyID, a.FileName, a.StoragePath,
		a.ContentType, a.SizeBytes, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *AttachmentRepository) CountAttachments(ctx context.Context, entryID uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entry_attachments WHERE entry_id = $1`, entryID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("CountAttachments: %w", err)
	}
	return n, nil
}

func (r *AttachmentRepository) ListByEntry(ctx context.Context, entryID uuid.UUID) ([]domain.Attachment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+attachmentColumns+` FROM entry_attachments
		WHERE entry_id = $1 ORDER BY created_at`, entryID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByEntry: %w", err)
	}
	defer rows.Close()

	var out []domain.Attachment
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByEntry: scan: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByEntry: rows: %w", err)
	}
	return out, nil
}

func scanAttachment(s scanner) (*domain.Attachment, error) {
	var a domain.Attachment
	err := s.Scan(
		&a.ID, &a.EntryID, &a.CompanyID, &a.FileName, &a.StoragePath,
		&a.ContentType, &a.SizeBytes, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
