package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/zhouzirui/projecthub/backend/internal/model/user"
	authservice "github.com/zhouzirui/projecthub/backend/internal/service/auth"
	"github.com/zhouzirui/projecthub/backend/pkg/utils"
)

type contextKey struct{ name string }

var identityKey = &contextKey{"identity"}

// Authenticator resolves the Bearer token to an account and stores it in
// the request context. Missing or invalid tokens end the request with 401.
func Authenticator(auth *authservice.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				utils.RespondError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			u, err := auth.CurrentUser(r.Context(), token)
			if err != nil {
				utils.RespondError(w, http.StatusUnauthorized, "could not validate credentials")
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, u)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects non-admin identities with 403. Must run after
// Authenticator.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := IdentityFrom(r.Context())
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "could not validate credentials")
			return
		}
		if !u.IsAdmin() {
			utils.RespondError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IdentityFrom returns the authenticated account stored by Authenticator.
func IdentityFrom(ctx context.Context) (user.User, bool) {
	u, ok := ctx.Value(identityKey).(user.User)
	return u, ok
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
