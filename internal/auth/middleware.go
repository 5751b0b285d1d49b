package auth

import (
	"context"
	"net/http"
	"strings"
)

// contextKey is an unexported type for context keys in this package, so no
// other package can read or shadow the principal stored in a request context.
type contextKey string

const principalKey contextKey = "principal"

// RequireAuth enforces authentication on protected routes.
//
// It expects an "Authorization: Bearer <token>" header, validates the access
// token, and stores the resolved Principal in the request context. A missing
// header and an invalid token are rejected with distinct 401 messages, before
// the wrapped handler runs.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := bearerToken(r)
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			principal, err := tokens.Validate(tokenStr)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), principalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin enforces the admin role on routes already behind RequireAuth.
//
// The failure is 403 with its own message; an authenticated non-admin is
// distinguishable from an unauthenticated caller.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			writeAuthError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		if !principal.IsAdmin() {
			writeAuthError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PrincipalFromContext retrieves the authenticated principal from the request
// context. Returns (nil, false) on routes not behind RequireAuth.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok && p != nil
}

// bearerToken extracts the token from the Authorization header.
// The scheme comparison is case-insensitive per RFC 9110.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	return token, token != ""
}

// writeAuthError sends the standard {success, message} envelope. The body is
// assembled by hand so this package does not depend on the handler package.
func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"success":false,"message":"` + message + `"}`))
}
