package middleware

import (
	"encoding/json"
	"net/http"

	authsvc "todo-app-backend/internal/service/auth"
)

type IdentityResolver interface {
	IdentityFromAuthorizationHeader(header string) (authsvc.Identity, error)
}

// Authenticate rejects requests without a valid bearer token and stores the
// caller's identity in the request context.
func Authenticate(resolver IdentityResolver) Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			identity, err := resolver.IdentityFromAuthorizationHeader(r.Header.Get("Authorization"))
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"message": "Unauthorized"})
				return
			}

			next(w, r.WithContext(authsvc.WithIdentity(r.Context(), identity)))
		}
	}
}
