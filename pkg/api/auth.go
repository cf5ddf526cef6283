package api

import (
	"context"
	"net/http"
	"strings"
)

// TokenValidator is the external port spec §1 scopes token validation
// behind: the API layer only needs to know whether a bearer token is valid
// and, for admin-only routes, whether it carries admin privilege.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (Principal, error)
}

// Principal describes the caller a validated bearer token resolved to.
type Principal struct {
	Subject string
	Admin   bool
}

type principalKey struct{}

// principalFrom extracts the Principal a prior middleware call attached to
// the request context.
func principalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// bearerAuth validates the Authorization header on every request via the
// injected TokenValidator, rejecting unauthenticated requests before any
// handler runs.
func bearerAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			principal, err := validator.Validate(r.Context(), token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid bearer token")
				return
			}

			ctx := context.WithValue(r.Context(), principalKey{}, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requireAdmin guards a route with an additional admin-privilege check,
// applied after bearerAuth has already populated the request's Principal
// (spec §6: the idle-detection toggle routes are "admin-only").
func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := principalFrom(r.Context())
		if !ok || !principal.Admin {
			writeError(w, http.StatusForbidden, "admin privilege required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
