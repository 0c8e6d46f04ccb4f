package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/josh-kwaku/outflow-ledger/internal/domain"
)

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data"`
	Error   *APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type partialPlanDetails struct {
	ParentID                uuid.UUID   `json:"parent_id"`
	ExpectedInstallments    int         `json:"expected_installments"`
	PersistedInstallmentIDs []uuid.UUID `json:"persisted_installment_ids"`
}

type storeFailureDetails struct {
	Phase domain.StorePhase `json:"phase"`
}

func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func RespondSuccess(w http.ResponseWriter, status int, data any) {
	RespondJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
		Error:   nil,
	})
}

func RespondAppError(w http.ResponseWriter, appErr *AppError, details any) {
	RespondJSON(w, appErr.Status, APIResponse{
		Success: false,
		Data:    nil,
		Error: &APIError{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: details,
		},
	})
}

func RespondValidationError(w http.ResponseWriter, fields []FieldError) {
	RespondAppError(w, ErrValidationFailed, fields)
}

// RespondDomainError maps engine errors onto API errors. A partial plan is
// checked before store failures since it wraps one.
func RespondDomainError(w http.ResponseWriter, err error) {
	var (
		partial    *domain.PartialPlanFailure
		validation *domain.ValidationError
		storeErr   *domain.StoreError
	)

	// A wrapped store error keeps its phase in the details so callers can tell
	// a saved installment with a stale parent total from a rejected write.
	var phase any
	if errors.As(err, &storeErr) {
		phase = storeFailureDetails{Phase: storeErr.Phase}
	}

	switch {
	case errors.As(err, &partial):
		persisted := partial.Persisted
		if persisted == nil {
			persisted = []uuid.UUID{}
		}
		RespondAppError(w, ErrPartialPlan, partialPlanDetails{
			ParentID:                partial.ParentID,
			ExpectedInstallments:    partial.Expected,
			PersistedInstallmentIDs: persisted,
		})
	case errors.As(err, &validation):
		RespondValidationError(w, []FieldError{{Field: validation.Field, Message: validation.Message}})
	case errors.Is(err, domain.ErrNotFound):
		RespondAppError(w, ErrResourceNotFound, phase)
	case errors.Is(err, domain.ErrVersionConflict):
		RespondAppError(w, ErrVersionConflict, phase)
	case errors.Is(err, domain.ErrIncompletePlan):
		RespondAppError(w, ErrIncompletePlan, nil)
	case storeErr != nil:
		slog.Error("ledger store failure", "phase", storeErr.Phase, "error", err)
		RespondAppError(w, ErrStoreFailure, storeFailureDetails{Phase: storeErr.Phase})
	default:
		slog.Error("unhandled domain error", "error", err)
		RespondAppError(w, ErrInternalError, nil)
	}
}
