package handlers

import (
	"net/http"
	"strings"

	"github.com/printhubapp/printhub/internal/auth"
)

// RequireAuth resolves the Authorization bearer token to an identity and
// stores it in the request context. Requests without a valid token get 401.
func (h *Handlers) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := h.loggerFromContext(ctx)

		bearer, ok := bearerToken(r)
		if !ok {
			http.Error(w, "Authorization required", http.StatusUnauthorized)
			return
		}

		identity, err := h.tokenManager.Verify(bearer)
		if err != nil {
			logger.Warn("rejected bearer token", "error", err)
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(ctx, identity)))
	})
}

// identityFromRequest resolves the bearer token without enforcing it, for
// middleware that runs before RequireAuth on routes where auth is optional.
func (h *Handlers) identityFromRequest(r *http.Request) (auth.Identity, bool) {
	if h.tokenManager == nil {
		return auth.Identity{}, false
	}
	bearer, ok := bearerToken(r)
	if !ok {
		return auth.Identity{}, false
	}
	identity, err := h.tokenManager.Verify(bearer)
	if err != nil {
		return auth.Identity{}, false
	}
	return identity, true
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}
