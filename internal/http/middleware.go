package http

import (
	"net/http"

	"github.com/fjod/azura/internal/auth"
	"github.com/fjod/azura/internal/domain"
)

// RequireAuth rejects anonymous callers.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.PrincipalFrom(r.Context()).Authenticated() {
			respondError(w, http.StatusUnauthorized, "unauthenticated", "missing user authentication")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects callers without the given role. Anonymous callers get 401.
func RequireRole(role domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := auth.PrincipalFrom(r.Context())
			if !p.Authenticated() {
				respondError(w, http.StatusUnauthorized, "unauthenticated", "missing user authentication")
				return
			}
			if p.Role != role {
				respondError(w, http.StatusForbidden, "permission_denied", "not authorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
