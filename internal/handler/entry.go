package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/outflow-ledger/internal/auth"
	"github.com/josh-kwaku/outflow-ledger/internal/domain"
	"github.com/josh-kwaku/outflow-ledger/internal/logging"
	"github.com/josh-kwaku/outflow-ledger/internal/schedule"
	"github.com/josh-kwaku/outflow-ledger/internal/service/ledger"
)

type entryService interface {
	CreateAtomicEntry(ctx context.Context, in ledger.EntryInput) (*domain.LedgerEntry, error)
	CreateInstallmentPlan(ctx context.Context, in ledger.EntryInput, count int, overrides schedule.Overrides) (*domain.Plan, error)
	UpdateEntry(ctx context.Context, companyID, id uuid.UUID, ch ledger.EntryChanges) (*domain.LedgerEntry, error)
	EditInstallment(ctx context.Context, companyID, childID uuid.UUID, amount decimal.Decimal, dueDate time.Time) (*domain.LedgerEntry, error)
	ReconcileParentTotal(ctx context.Context, companyID, parentID uuid.UUID) (*domain.LedgerEntry, error)
	DeleteEntry(ctx context.Context, companyID, id uuid.UUID) error
	GetEntry(ctx context.Context, companyID, id uuid.UUID) (*domain.EntryDetail, error)
	ListRootEntries(ctx context.Context, companyID uuid.UUID, filter domain.RootFilter) ([]domain.LedgerEntry, error)
	ListInstallments(ctx context.Context, companyID, parentID uuid.UUID) ([]domain.LedgerEntry, error)
	CompletePlan(ctx context.Context, companyID, parentID uuid.UUID) (*domain.Plan, error)
	LinkAttachment(ctx context.Context, companyID, entryID uuid.UUID, in ledger.AttachmentInput) (*domain.Attachment, error)
	ListAttachments(ctx context.Context, companyID, entryID uuid.UUID) ([]domain.Attachment, error)
}

type EntryHandler struct {
	entries entryService
}

func NewEntryHandler(entries entryService) *EntryHandler {
	return &EntryHandler{entries: entries}
}

func (h *EntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	companyID, ok := auth.CompanyIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	in, fields := req.toInput(companyID)
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	e, err := h.entries.CreateAtomicEntry(r.Context(), in)
	if err != nil {
		log.Warn("entry creation failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/entries/%s", e.ID))
	RespondSuccess(w, http.StatusCreated, toEntryDTO(e))
}

func (h *EntryHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	companyID, ok := auth.CompanyIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req createPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	in, overrides, fields := req.toInput(companyID)
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	plan, err := h.entries.CreateInstallmentPlan(r.Context(), in, req.InstallmentCount, overrides)
	if err != nil {
		log.Warn("installment plan creation failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/entries/%s", plan.Parent.ID))
	RespondSuccess(w, http.StatusCreated, toPlanDTO(plan))
}

func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	companyID, ok := auth.CompanyIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	filter, fields := parseRootFilter(r.URL.Query())
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	entries, err := h.entries.ListRootEntries(r.Context(), companyID, filter)
	if err != nil {
		logging.FromContext(r.Context()).Warn("entry listing failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toEntryDTOs(entries))
}

func (h *EntryHandler) Get(w http.ResponseWriter, r *http.Request) {
	companyID, id, appErr := scopeFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	detail, err := h.entries.GetEntry(r.Context(), companyID, id)
	if err != nil {
		logging.FromContext(r.Context()).Warn("entry lookup failed", "error", err, "entry_id", id)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, entryDetailDTO{
		entryDTO:        toEntryDTO(&detail.Entry),
		AttachmentCount: detail.AttachmentCount,
	})
}

func (h *EntryHandler) Update(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	companyID, id, appErr := scopeFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req updateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	ch, fields := req.toChanges()
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	e, err := h.entries.UpdateEntry(r.Context(), companyID, id, ch)
	if err != nil {
		log.Warn("entry update failed", "error", err, "entry_id", id)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toEntryDTO(e))
}

func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	companyID, id, appErr := scopeFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	if err := h.entries.DeleteEntry(r.Context(), companyID, id); err != nil {
		logging.FromContext(r.Context()).Warn("entry deletion failed", "error", err, "entry_id", id)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]uuid.UUID{"deleted_id": id})
}

func (h *EntryHandler) ListInstallments(w http.ResponseWriter, r *http.Request) {
	companyID, id, appErr := scopeFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	children, err := h.entries.ListInstallments(r.Context(), companyID, id)
	if err != nil {
		logging.FromContext(r.Context()).Warn("installment listing failed", "error", err, "parent_id", id)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toEntryDTOs(children))
}

func (h *EntryHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	companyID, id, appErr := scopeFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	parent, err := h.entries.ReconcileParentTotal(r.Context(), companyID, id)
	if err != nil {
		logging.FromContext(r.Context()).Warn("reconciliation failed", "error", err, "parent_id", id)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toEntryDTO(parent))
}

func (h *EntryHandler) Complete(w http.ResponseWriter, r *http.Request) {
	companyID, id, appErr := scopeFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	plan, err := h.entries.CompletePlan(r.Context(), companyID, id)
	if err != nil {
		logging.FromContext(r.Context()).Warn("plan completion failed", "error", err, "parent_id", id)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toPlanDTO(plan))
}

func (h *EntryHandler) LinkAttachment(w http.ResponseWriter, r *http.Request) {
	companyID, id, appErr := scopeFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req attachmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	a, err := h.entries.LinkAttachment(r.Context(), companyID, id, ledger.AttachmentInput{
		FileName:    req.FileName,
		StoragePath: req.StoragePath,
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
	})
	if err != nil {
		logging.FromContext(r.Context()).Warn("attachment link failed", "error", err, "entry_id", id)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toAttachmentDTO(a))
}

func (h *EntryHandler) ListAttachments(w http.ResponseWriter, r *http.Request) {
	companyID, id, appErr := scopeFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	attachments, err := h.entries.ListAttachments(r.Context(), companyID, id)
	if err != nil {
		logging.FromContext(r.Context()).Warn("attachment listing failed", "error", err, "entry_id", id)
		RespondDomainError(w, err)
		return
	}

	out := make([]attachmentDTO, len(attachments))
	for i := range attachments {
		out[i] = toAttachmentDTO(&attachments[i])
	}
	RespondSuccess(w, http.StatusOK, out)
}

func (h *EntryHandler) EditInstallment(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	companyID, id, appErr := scopeFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req editInstallmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	due, _ := time.Parse(dateLayout, req.DueDate)
	e, err := h.entries.EditInstallment(r.Context(), companyID, id, *req.Amount, due)
	if err != nil {
		log.Warn("installment edit failed", "error", err, "entry_id", id)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toEntryDTO(e))
}
