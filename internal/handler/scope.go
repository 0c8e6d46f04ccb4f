package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/josh-kwaku/outflow-ledger/internal/auth"
)

// scopeFromPath resolves the caller's company and the entry id in the path.
// A malformed id reads as not found.
func scopeFromPath(r *http.Request) (uuid.UUID, uuid.UUID, *AppError) {
	companyID, ok := auth.CompanyIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, uuid.Nil, ErrMissingToken
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, ErrResourceNotFound
	}
	return companyID, id, nil
}
