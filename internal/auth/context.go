package auth

import (
	"context"

	"github.com/google/uuid"
)

type principalKey struct{}

// Principal is the authenticated caller. Every ledger operation is scoped to
// its CompanyID.
type Principal struct {
	UserID    uuid.UUID
	CompanyID uuid.UUID
}

func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

func CompanyIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	p, ok := PrincipalFromContext(ctx)
	if !ok || p.CompanyID == uuid.Nil {
		return uuid.Nil, false
	}
	return p.CompanyID, true
}
