package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken     = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken     = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrInvalidRequest   = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError    = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrVersionConflict       = &AppError{http.StatusConflict, "VERSION_CONFLICT", "Entry was modified concurrently, reload and retry"}
	ErrIncompletePlan        = &AppError{http.StatusConflict, "INCOMPLETE_PLAN", "Installment plan is missing installments, complete it first"}
	ErrPartialPlan           = &AppError{http.StatusBadGateway, "PARTIAL_PLAN", "Installment plan was only partially saved"}
	ErrStoreFailure          = &AppError{http.StatusInternalServerError, "STORE_FAILURE", "The ledger store could not complete the operation"}
	ErrMissingIdempotencyKey = &AppError{http.StatusBadRequest, "MISSING_IDEMPOTENCY_KEY", "Idempotency-Key header is required"}
	ErrIdempotencyConflict   = &AppError{http.StatusConflict, "IDEMPOTENCY_CONFLICT", "Idempotency key already used with a different request"}
)
