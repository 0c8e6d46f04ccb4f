package handler

import (
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/outflow-ledger/internal/domain"
	"github.com/josh-kwaku/outflow-ledger/internal/schedule"
	"github.com/josh-kwaku/outflow-ledger/internal/service/ledger"
)

const dateLayout = time.DateOnly

type entryRequest struct {
	CategoryID      string           `json:"category_id"`
	ItemID          string           `json:"item_id"`
	Description     string           `json:"description"`
	Amount          *decimal.Decimal `json:"amount"`
	ReferencePeriod string           `json:"reference_period"`
	DueDate         string           `json:"due_date"`
}

// toInput parses the request into an engine input. Field errors are collected
// rather than returned on the first miss.
func (r entryRequest) toInput(companyID uuid.UUID) (ledger.EntryInput, []FieldError) {
	var errs []FieldError
	in := ledger.EntryInput{CompanyID: companyID, Description: r.Description}

	in.CategoryID = parseUUIDField(&errs, "category_id", r.CategoryID)
	in.ItemID = parseUUIDField(&errs, "item_id", r.ItemID)

	if r.Description == "" {
		errs = append(errs, FieldError{Field: "description", Message: "required"})
	}

	if r.Amount == nil {
		errs = append(errs, FieldError{Field: "amount", Message: "required"})
	} else if !r.Amount.IsPositive() {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
	} else {
		in.Amount = *r.Amount
	}

	in.ReferencePeriod = parsePeriodField(&errs, "reference_period", r.ReferencePeriod)
	in.DueDate = parseDateField(&errs, "due_date", r.DueDate)

	return in, errs
}

type createPlanRequest struct {
	entryRequest
	InstallmentCount int            `json:"installment_count"`
	DueDateOverrides map[int]string `json:"due_date_overrides"`
}

func (r createPlanRequest) toInput(companyID uuid.UUID) (ledger.EntryInput, schedule.Overrides, []FieldError) {
	in, errs := r.entryRequest.toInput(companyID)

	if r.InstallmentCount < 2 {
		errs = append(errs, FieldError{Field: "installment_count", Message: "must be at least 2"})
	}

	var overrides schedule.Overrides
	if len(r.DueDateOverrides) > 0 {
		overrides = make(schedule.Overrides, len(r.DueDateOverrides))
		for n, s := range r.DueDateOverrides {
			field := fmt.Sprintf("due_date_overrides.%d", n)
			if d := parseDateField(&errs, field, s); !d.IsZero() {
				overrides[n] = d
			}
		}
	}

	return in, overrides, errs
}

type updateEntryRequest struct {
	CategoryID      *string          `json:"category_id"`
	ItemID          *string          `json:"item_id"`
	Description     *string          `json:"description"`
	Amount          *decimal.Decimal `json:"amount"`
	ReferencePeriod *string          `json:"reference_period"`
	DueDate         *string          `json:"due_date"`
	ExpectedVersion *int64           `json:"expected_version"`
}

func (r updateEntryRequest) toChanges() (ledger.EntryChanges, []FieldError) {
	var errs []FieldError
	ch := ledger.EntryChanges{
		Description:     r.Description,
		Amount:          r.Amount,
		ExpectedVersion: r.ExpectedVersion,
	}

	if r.CategoryID != nil {
		id := parseUUIDField(&errs, "category_id", *r.CategoryID)
		ch.CategoryID = &id
	}
	if r.ItemID != nil {
		id := parseUUIDField(&errs, "item_id", *r.ItemID)
		ch.ItemID = &id
	}
	if r.ReferencePeriod != nil {
		p := parsePeriodField(&errs, "reference_period", *r.ReferencePeriod)
		ch.ReferencePeriod = &p
	}
	if r.DueDate != nil {
		d := parseDateField(&errs, "due_date", *r.DueDate)
		ch.DueDate = &d
	}

	if ch.CategoryID == nil && ch.ItemID == nil && ch.Description == nil && ch.Amount == nil &&
		ch.ReferencePeriod == nil && ch.DueDate == nil {
		errs = append(errs, FieldError{Field: "body", Message: "at least one field must be provided"})
	}

	return ch, errs
}

type editInstallmentRequest struct {
	Amount  *decimal.Decimal `json:"amount"`
	DueDate string           `json:"due_date"`
}

func (r editInstallmentRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Amount == nil {
		errs = append(errs, FieldError{Field: "amount", Message: "required"})
	} else if !r.Amount.IsPositive() {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
	}
	parseDateField(&errs, "due_date", r.DueDate)
	return errs
}

type attachmentRequest struct {
	FileName    string `json:"file_name"`
	StoragePath string `json:"storage_path"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

func (r attachmentRequest) Validate() []FieldError {
	var errs []FieldError
	if r.FileName == "" {
		errs = append(errs, FieldError{Field: "file_name", Message: "required"})
	}
	if r.StoragePath == "" {
		errs = append(errs, FieldError{Field: "storage_path", Message: "required"})
	}
	if r.SizeBytes < 0 {
		errs = append(errs, FieldError{Field: "size_bytes", Message: "must not be negative"})
	}
	return errs
}

func parseRootFilter(q url.Values) (domain.RootFilter, []FieldError) {
	var (
		errs   []FieldError
		filter domain.RootFilter
	)

	if s := q.Get("reference_period"); s != "" {
		filter.ReferencePeriod = parsePeriodField(&errs, "reference_period", s)
	}
	if s := q.Get("category_id"); s != "" {
		id := parseUUIDField(&errs, "category_id", s)
		filter.CategoryID = &id
	}
	if s := q.Get("item_id"); s != "" {
		id := parseUUIDField(&errs, "item_id", s)
		filter.ItemID = &id
	}
	if s := q.Get("due_from"); s != "" {
		d := parseDateField(&errs, "due_from", s)
		filter.DueFrom = &d
	}
	if s := q.Get("due_to"); s != "" {
		d := parseDateField(&errs, "due_to", s)
		filter.DueTo = &d
	}
	return filter, errs
}

func parseUUIDField(errs *[]FieldError, field, s string) uuid.UUID {
	if s == "" {
		*errs = append(*errs, FieldError{Field: field, Message: "required"})
		return uuid.Nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		*errs = append(*errs, FieldError{Field: field, Message: "must be a UUID"})
		return uuid.Nil
	}
	return id
}

func parsePeriodField(errs *[]FieldError, field, s string) domain.Period {
	if s == "" {
		*errs = append(*errs, FieldError{Field: field, Message: "required"})
		return domain.Period{}
	}
	p, err := domain.ParsePeriod(s)
	if err != nil {
		*errs = append(*errs, FieldError{Field: field, Message: "must be YYYY-MM"})
		return domain.Period{}
	}
	return p
}

func parseDateField(errs *[]FieldError, field, s string) time.Time {
	if s == "" {
		*errs = append(*errs, FieldError{Field: field, Message: "required"})
		return time.Time{}
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		*errs = append(*errs, FieldError{Field: field, Message: "must be YYYY-MM-DD"})
		return time.Time{}
	}
	return d
}

type entryDTO struct {
	ID                  uuid.UUID  `json:"id"`
	Kind                string     `json:"kind"`
	CategoryID          uuid.UUID  `json:"category_id"`
	ItemID              uuid.UUID  `json:"item_id"`
	Description         string     `json:"description"`
	Amount              string     `json:"amount"`
	ReferencePeriod     string     `json:"reference_period"`
	DueDate             string     `json:"due_date"`
	IsInstallmentParent bool       `json:"is_installment_parent"`
	InstallmentCount    int        `json:"installment_count"`
	InstallmentNumber   *int       `json:"installment_number,omitempty"`
	ParentEntryID       *uuid.UUID `json:"parent_entry_id,omitempty"`
	Version             int64      `json:"version"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func toEntryDTO(e *domain.LedgerEntry) entryDTO {
	return entryDTO{
		ID:                  e.ID,
		Kind:                string(e.Kind()),
		CategoryID:          e.CategoryID,
		ItemID:              e.ItemID,
		Description:         e.Description,
		Amount:              e.Amount.StringFixed(schedule.AmountPlaces),
		ReferencePeriod:     e.ReferencePeriod.String(),
		DueDate:             e.DueDate.Format(dateLayout),
		IsInstallmentParent: e.IsInstallmentParent,
		InstallmentCount:    e.InstallmentCount,
		InstallmentNumber:   e.InstallmentNumber,
		ParentEntryID:       e.ParentEntryID,
		Version:             e.Version,
		CreatedAt:           e.CreatedAt,
		UpdatedAt:           e.UpdatedAt,
	}
}

func toEntryDTOs(entries []domain.LedgerEntry) []entryDTO {
	out := make([]entryDTO, len(entries))
	for i := range entries {
		out[i] = toEntryDTO(&entries[i])
	}
	return out
}

type entryDetailDTO struct {
	entryDTO
	AttachmentCount int `json:"attachment_count"`
}

type planDTO struct {
	Parent       entryDTO   `json:"parent"`
	Installments []entryDTO `json:"installments"`
}

func toPlanDTO(p *domain.Plan) planDTO {
	return planDTO{
		Parent:       toEntryDTO(&p.Parent),
		Installments: toEntryDTOs(p.Installments),
	}
}

type attachmentDTO struct {
	ID          uuid.UUID `json:"id"`
	EntryID     uuid.UUID `json:"entry_id"`
	FileName    string    `json:"file_name"`
	StoragePath string    `json:"storage_path"`
	ContentType string    `json:"content_type,omitempty"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}

func toAttachmentDTO(a *domain.Attachment) attachmentDTO {
	return attachmentDTO{
		ID:          a.ID,
		EntryID:     a.EntryID,
		FileName:    a.FileName,
		StoragePath: a.StoragePath,
		ContentType: a.ContentType,
		SizeBytes:   a.SizeBytes,
		CreatedAt:   a.CreatedAt,
	}
}
