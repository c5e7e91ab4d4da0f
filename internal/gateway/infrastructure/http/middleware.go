package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/shoply/payments-service/internal/gateway/domain"
	"github.com/shoply/payments-service/pkg/policy"
)

type ctxKey int

const (
	userKey ctxKey = iota
	tokenKey
)

func userFrom(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(userKey).(domain.User)
	return u, ok
}

func tokenFrom(ctx context.Context) string {
	t, _ := ctx.Value(tokenKey).(string)
	return t
}

func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if c, err := r.Cookie("jwt"); err == nil {
		return c.Value
	}
	return ""
}

// authenticated resolves the bearer token against the user service and
// stashes the caller and token on the request context.
func (h *Handler) authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			respondErr(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		user, err := h.users.Me(r.Context(), token)
		if err != nil {
			h.log.Warn("authentication failed", "err", err)
			respondErr(w, http.StatusForbidden, "failed to authenticate user")
			return
		}
		ctx := context.WithValue(r.Context(), userKey, user)
		ctx = context.WithValue(ctx, tokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// restrict applies the capability check once at the boundary instead of
// re-implementing role checks per handler.
func (h *Handler) restrict(action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := userFrom(r.Context())
			if !ok || !policy.CanAccess(user.Role, action) {
				respondErr(w, http.StatusForbidden, "you do not have permission to perform this action")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
