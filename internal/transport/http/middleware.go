package http

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/vladislavdragonenkov/storefront/internal/auth"
)

type ctxKey string

const (
	ctxKeyUserID ctxKey = "user_id"
	ctxKeyRole   ctxKey = "role"
)

// Authenticate проверяет Bearer-токен и кладёт субъект и роль в контекст.
func Authenticate(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeError(w, http.StatusUnauthorized, "missing_token", "authorization bearer token is required")
				return
			}

			claims, err := auth.ClaimsFromToken(token, secret)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid_token", "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyUserID, claims.Subject)
			ctx = context.WithValue(ctx, ctxKeyRole, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole пропускает запрос только при одной из перечисленных ролей.
func RequireRole(required ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := roleFrom(r.Context())
			if role == "" {
				writeError(w, http.StatusUnauthorized, "missing_role", "token carries no role")
				return
			}
			if !slices.Contains(required, role) {
				writeError(w, http.StatusForbidden, "forbidden", "insufficient role for this operation")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func userIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyUserID).(string)
	return id
}

func roleFrom(ctx context.Context) string {
	role, _ := ctx.Value(ctxKeyRole).(string)
	return role
}

func isAdmin(ctx context.Context) bool {
	return roleFrom(ctx) == auth.RoleAdmin
}
