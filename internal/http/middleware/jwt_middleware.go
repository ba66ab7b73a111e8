package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/diagnosis/luxsuv-accounts/internal/http/response"
	"github.com/diagnosis/luxsuv-accounts/internal/platform/auth"
	"github.com/diagnosis/luxsuv-accounts/pkg/logger"
)

type ctxKey string

const CtxClaims ctxKey = "claims"

// AccessParser validates bearer access tokens.
type AccessParser interface {
	ParseAccess(token string) (*auth.Claims, error)
}

func RequireJWT(tokens AccessParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if !strings.HasPrefix(authz, "Bearer ") {
				response.Unauthorized(w, "missing or invalid authorization header")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
			claims, err := tokens.ParseAccess(raw)
			if err != nil {
				logger.DebugContext(r.Context(), "Bearer token rejected", "error", err)
				response.WriteError(w, http.StatusUnauthorized, "invalid or expired token", response.CodeInvalidToken)
				return
			}
			ctx := context.WithValue(r.Context(), CtxClaims, claims)
			ctx = context.WithValue(ctx, logger.UserIDKey, claims.Sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func Claims(r *http.Request) *auth.Claims {
	v := r.Context().Value(CtxClaims)
	if v == nil {
		return nil
	}
	return v.(*auth.Claims)
}
