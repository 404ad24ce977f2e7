package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/fitoclin/fitoclin/libs/auth"
	"github.com/fitoclin/fitoclin/services/scheduling-service/internal/model"
)

type identityKey struct{}

func ContextWithIdentity(ctx context.Context, id model.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(model.Identity)
	return id, ok && id.UserID != ""
}

// RequireIdentity verifies the bearer token and stores the caller in the request context.
func RequireIdentity(v *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			token = strings.TrimSpace(token)
			if !ok || token == "" {
				writeMessage(w, r, http.StatusUnauthorized, msgUnauthenticated)
				return
			}
			claims, err := v.Verify(token)
			if err != nil {
				writeMessage(w, r, http.StatusUnauthorized, msgUnauthenticated)
				return
			}
			ctx := ContextWithIdentity(r.Context(), model.Identity{
				UserID: claims.Subject,
				Role:   model.Role(claims.Role),
				Email:  claims.Email,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequireRole(next http.Handler, roles ...model.Role) http.Handler {
	allowed := map[model.Role]struct{}{}
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if !ok {
			writeMessage(w, r, http.StatusUnauthorized, msgUnauthenticated)
			return
		}
		if _, ok := allowed[id.Role]; !ok {
			writeMessage(w, r, http.StatusForbidden, msgForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
