package middleware

import (
	"net/http"
	"strings"

	"github.com/josh-kwaku/outflow-ledger/internal/auth"
	"github.com/josh-kwaku/outflow-ledger/internal/handler"
	"github.com/josh-kwaku/outflow-ledger/internal/logging"
)

// Auth verifies the bearer token and puts the caller's principal, and a
// request logger tagged with it, on the context.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				handler.RespondAppError(w, handler.ErrMissingToken, nil)
				return
			}

			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || token == "" {
				handler.RespondAppError(w, handler.ErrInvalidToken, nil)
				return
			}

			principal, err := auth.ValidateToken(token, secret)
			if err != nil {
				logging.FromContext(r.Context()).Debug("token rejected", "error", err)
				handler.RespondAppError(w, handler.ErrInvalidToken, nil)
				return
			}

			ctx := auth.ContextWithPrincipal(r.Context(), *principal)
			ctx = logging.With(ctx, "company_id", principal.CompanyID, "user_id", principal.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
