package domain

import (
	"time"

	"github.com/google/uuid"
)

// Attachment is document metadata keyed by entry id. The file itself lives in
// external storage.
type Attachment struct {
	ID          uuid.UUID
	EntryID     uuid.UUID
	CompanyID   uuid.UUID
	FileName    string
	StoragePath string
	ContentType string
	SizeBytes   int64
	CreatedAt   time.Time
}
